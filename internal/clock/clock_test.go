package clock

import (
	"errors"
	"testing"

	"github.com/hammamikhairi/kitchenops/internal/domain"
)

func steps(pairs ...[2]int) []domain.Step {
	out := make([]domain.Step, len(pairs))
	for i, p := range pairs {
		out[i] = domain.Step{Number: i + 1, Instruction: "step", DelaySec: p[0], DurationSec: p[1]}
	}
	return out
}

func TestNewRejectsBadSteps(t *testing.T) {
	if _, err := New(nil); !errors.Is(err, domain.ErrNoSteps) {
		t.Fatalf("expected ErrNoSteps, got %v", err)
	}
	if _, err := New(steps([2]int{-1, 3})); !domain.IsValidation(err) {
		t.Fatalf("expected validation error for negative delay, got %v", err)
	}
	if _, err := New(steps([2]int{0, -2})); !domain.IsValidation(err) {
		t.Fatalf("expected validation error for negative duration, got %v", err)
	}
}

func TestScenarioTrace(t *testing.T) {
	c, err := New(steps([2]int{2, 3}, [2]int{0, 1}))
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	trace := []string{c.Start().String()}
	for !c.Done() {
		s, changed := c.Tick()
		if !changed {
			t.Fatal("tick reported no change before done")
		}
		trace = append(trace, s.String())
	}

	want := []string{"delay(2)", "delay(1)", "action(3)", "action(2)", "action(1)", "action(1)", "done"}
	if len(trace) != len(want) {
		t.Fatalf("trace = %v, want %v", trace, want)
	}
	for i := range want {
		if trace[i] != want[i] {
			t.Fatalf("trace[%d] = %s, want %s (full %v)", i, trace[i], want[i], trace)
		}
	}

	// Second step is active after the skipped delay.
	c2, _ := New(steps([2]int{2, 3}, [2]int{0, 1}))
	c2.Start()
	for i := 0; i < 5; i++ {
		c2.Tick()
	}
	if got := c2.State(); got.StepIndex != 1 || got.Phase != domain.PhaseAction || got.Remaining != 1 {
		t.Fatalf("after 5 ticks: %+v", got)
	}
}

func TestZeroDelayStartsInAction(t *testing.T) {
	for _, d := range []int{1, 5, 60} {
		c, _ := New(steps([2]int{0, d}))
		s := c.Start()
		if s.Phase != domain.PhaseAction || s.Remaining != d {
			t.Fatalf("duration %d: start state %+v, want action(%d)", d, s, d)
		}
	}
}

func TestZeroDurationLastStepIsDoneOnEntry(t *testing.T) {
	c, _ := New(steps([2]int{1, 0}))
	if s := c.Start(); s.Phase != domain.PhaseDelay || s.Remaining != 1 {
		t.Fatalf("start: %+v", s)
	}
	s, _ := c.Tick()
	if s.Phase != domain.PhaseDone {
		t.Fatalf("expected done on entry into zero-length action, got %+v", s)
	}

	all0, _ := New(steps([2]int{0, 0}, [2]int{0, 0}))
	if s := all0.Start(); s.Phase != domain.PhaseDone {
		t.Fatalf("all-zero recipe should be done at start, got %+v", s)
	}
}

func TestRemainingStrictlyDecreases(t *testing.T) {
	c, _ := New(steps([2]int{3, 4}, [2]int{2, 2}, [2]int{0, 3}))
	prev := c.Start()
	for !c.Done() {
		s, _ := c.Tick()
		if s.Remaining < 0 {
			t.Fatalf("negative remaining: %+v", s)
		}
		samePhase := s.StepIndex == prev.StepIndex && s.Phase == prev.Phase
		if samePhase && s.Remaining != prev.Remaining-1 {
			t.Fatalf("remaining went %d -> %d within %s", prev.Remaining, s.Remaining, s.Phase)
		}
		prev = s
	}
}

func TestTickStopsInDone(t *testing.T) {
	c, _ := New(steps([2]int{0, 1}))
	c.Start()
	c.Tick()
	if !c.Done() {
		t.Fatal("expected done")
	}
	if _, changed := c.Tick(); changed {
		t.Fatal("tick changed state after done")
	}
}

func TestTickBeforeStart(t *testing.T) {
	c, _ := New(steps([2]int{1, 1}))
	if _, changed := c.Tick(); changed {
		t.Fatal("tick changed state before start")
	}
}

func TestMarkDone(t *testing.T) {
	c, _ := New(steps([2]int{5, 10}, [2]int{3, 4}))
	c.Start()

	s, completed := c.MarkDone()
	if completed != 0 {
		t.Fatalf("completed = %d, want 0", completed)
	}
	if s.StepIndex != 1 || s.Phase != domain.PhaseDelay || s.Remaining != 3 {
		t.Fatalf("after first mark done: %+v", s)
	}

	s, completed = c.MarkDone()
	if completed != 1 || s.Phase != domain.PhaseDone {
		t.Fatalf("after last mark done: %+v completed=%d", s, completed)
	}

	for i := 0; i < 3; i++ {
		again, idx := c.MarkDone()
		if idx != -1 || again != s {
			t.Fatalf("mark done in done changed state: %+v idx=%d", again, idx)
		}
	}
}

func TestMarkDoneAppliesZeroSkip(t *testing.T) {
	c, _ := New(steps([2]int{0, 10}, [2]int{0, 4}))
	c.Start()
	s, _ := c.MarkDone()
	if s.StepIndex != 1 || s.Phase != domain.PhaseAction || s.Remaining != 4 {
		t.Fatalf("expected action(4) on step 1, got %+v", s)
	}
}

func TestRestore(t *testing.T) {
	c, _ := New(steps([2]int{5, 10}, [2]int{3, 4}))

	want := domain.SessionState{StepIndex: 1, Phase: domain.PhaseAction, Remaining: 2}
	if err := c.Restore(want); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if c.State() != want {
		t.Fatalf("state = %+v, want %+v", c.State(), want)
	}

	if err := c.Restore(domain.SessionState{StepIndex: 7}); err == nil {
		t.Fatal("expected out-of-range error")
	}

	c.Restore(domain.SessionState{StepIndex: 0, Phase: domain.PhaseDone, Remaining: 9})
	if c.State().Remaining != 0 || !c.Done() {
		t.Fatalf("restored done state should have zero remaining, got %+v", c.State())
	}
}
