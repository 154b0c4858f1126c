package domain

import (
	"fmt"
	"time"
)

// Phase is the part of a step the session clock is counting down.
type Phase int

const (
	// PhaseDelay is the wait before the step becomes actionable.
	PhaseDelay Phase = iota
	// PhaseAction is the time allotted to perform the step.
	PhaseAction
	// PhaseDone is terminal: every step has been completed.
	PhaseDone
)

// String returns the wire name of the phase.
func (p Phase) String() string {
	switch p {
	case PhaseDelay:
		return "delay"
	case PhaseAction:
		return "action"
	case PhaseDone:
		return "done"
	default:
		return "unknown"
	}
}

// ParsePhase converts a wire name back into a Phase.
func ParsePhase(s string) (Phase, error) {
	switch s {
	case "delay":
		return PhaseDelay, nil
	case "action", "duration":
		return PhaseAction, nil
	case "done":
		return PhaseDone, nil
	default:
		return 0, fmt.Errorf("unknown phase %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Phase) UnmarshalText(b []byte) error {
	v, err := ParsePhase(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// SessionState is the clock's view of a cooking session. Remaining is
// always >= 0 and is reported as 0 once the phase is done.
type SessionState struct {
	StepIndex int   `json:"step"`
	Phase     Phase `json:"mode"`
	Remaining int   `json:"timer"`
}

// String renders the state the way logs and tests read it, e.g. "action(3)".
func (s SessionState) String() string {
	if s.Phase == PhaseDone {
		return "done"
	}
	return fmt.Sprintf("%s(%d)", s.Phase, s.Remaining)
}

// Session is a live, server-hosted walk through a recipe's steps.
type Session struct {
	ID         string       `json:"id"`
	RecipeID   string       `json:"recipe_id"`
	RecipeName string       `json:"recipe_name"`
	OwnerID    string       `json:"owner_id"`
	StepCount  int          `json:"step_count"`
	StartedAt  time.Time    `json:"started_at"`
	UpdatedAt  time.Time    `json:"updated_at"`
	State      SessionState `json:"state"`
}
