// Package clock implements the cooking session clock: a two-phase
// (delay, then action) countdown per step that walks a recipe's steps in
// order and stops in a terminal done phase.
//
// The clock knows nothing about wall time. Something else calls Tick once
// per second; see package timer.
package clock

import (
	"fmt"

	"github.com/hammamikhairi/kitchenops/internal/domain"
)

// Clock is the session state machine. It is not safe for concurrent use;
// the owning runner serializes every call.
type Clock struct {
	steps   []domain.Step
	state   domain.SessionState
	started bool
}

// New creates a clock for the given steps, which must already be in
// execution order.
func New(steps []domain.Step) (*Clock, error) {
	if len(steps) == 0 {
		return nil, domain.ErrNoSteps
	}
	for i, s := range steps {
		if s.DelaySec < 0 {
			return nil, &domain.ValidationError{Field: fmt.Sprintf("steps[%d].delay_sec", i), Reason: "must not be negative"}
		}
		if s.DurationSec < 0 {
			return nil, &domain.ValidationError{Field: fmt.Sprintf("steps[%d].duration_sec", i), Reason: "must not be negative"}
		}
	}
	cp := make([]domain.Step, len(steps))
	copy(cp, steps)
	return &Clock{steps: cp}, nil
}

// Start enters the first step's delay phase. Zero-length phases are
// skipped immediately, so a step with no delay starts in action.
// Calling Start again resets the clock.
func (c *Clock) Start() domain.SessionState {
	c.started = true
	c.state = domain.SessionState{
		StepIndex: 0,
		Phase:     domain.PhaseDelay,
		Remaining: c.steps[0].DelaySec,
	}
	c.settle()
	return c.state
}

// Tick consumes one second. It reports false and changes nothing when the
// clock has not started or is already done.
func (c *Clock) Tick() (domain.SessionState, bool) {
	if !c.started || c.state.Phase == domain.PhaseDone {
		return c.state, false
	}
	if c.state.Remaining > 0 {
		c.state.Remaining--
	}
	c.settle()
	return c.state, true
}

// MarkDone completes the current step regardless of remaining time and
// moves to the next step (or done after the last one). It returns the
// index of the step that was completed, or -1 when there was nothing to
// complete. Repeated calls in done have no effect.
func (c *Clock) MarkDone() (domain.SessionState, int) {
	if !c.started || c.state.Phase == domain.PhaseDone {
		return c.state, -1
	}
	completed := c.state.StepIndex
	c.next()
	c.settle()
	return c.state, completed
}

// Restore overwrites the clock state wholesale. Relay followers use it to
// mirror an owner's broadcast.
func (c *Clock) Restore(s domain.SessionState) error {
	if s.StepIndex < 0 || s.StepIndex >= len(c.steps) {
		return fmt.Errorf("step index %d out of range [0,%d)", s.StepIndex, len(c.steps))
	}
	if s.Remaining < 0 || s.Phase == domain.PhaseDone {
		s.Remaining = 0
	}
	c.started = true
	c.state = s
	return nil
}

// State returns the current state.
func (c *Clock) State() domain.SessionState { return c.state }

// Started reports whether Start (or Restore) has been called.
func (c *Clock) Started() bool { return c.started }

// Done reports whether the clock reached its terminal phase.
func (c *Clock) Done() bool { return c.started && c.state.Phase == domain.PhaseDone }

// Steps returns the clock's steps in execution order.
func (c *Clock) Steps() []domain.Step { return c.steps }

// settle applies transitions until the clock sits in a phase with time
// left, or in done. A zero-length phase is never observable.
func (c *Clock) settle() {
	for c.state.Phase != domain.PhaseDone && c.state.Remaining == 0 {
		switch c.state.Phase {
		case domain.PhaseDelay:
			c.state.Phase = domain.PhaseAction
			c.state.Remaining = c.steps[c.state.StepIndex].DurationSec
		case domain.PhaseAction:
			c.next()
		}
	}
}

// next leaves the current step: into the following step's delay, or done.
func (c *Clock) next() {
	if c.state.StepIndex+1 < len(c.steps) {
		c.state.StepIndex++
		c.state.Phase = domain.PhaseDelay
		c.state.Remaining = c.steps[c.state.StepIndex].DelaySec
		return
	}
	c.state.Phase = domain.PhaseDone
	c.state.Remaining = 0
}
