// Package domain defines the core types and interfaces for the kitchen
// operations service. All other packages depend on domain; domain depends
// on nothing.
package domain

import (
	"strings"
	"time"
)

// Recipe is an authored dish with an ordered list of timed steps.
// A recipe exclusively owns its steps: deleting it deletes them.
type Recipe struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedBy   string    `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
	Steps       []Step    `json:"steps,omitempty"`
}

// RecipeSummary is a lightweight view of a recipe for listing.
type RecipeSummary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	StepCount   int    `json:"step_count"`
}

// Summary returns the listing view of r.
func (r *Recipe) Summary() RecipeSummary {
	return RecipeSummary{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		StepCount:   len(r.Steps),
	}
}

// Step is a single cooking step. Number is 1-based and unique within
// its recipe; it defines execution order.
type Step struct {
	ID          string     `json:"id"`
	RecipeID    string     `json:"recipe_id"`
	Number      int        `json:"step_number"`
	Instruction string     `json:"instruction"`
	DelaySec    int        `json:"delay_sec"`    // wait before the step becomes actionable
	DurationSec int        `json:"duration_sec"` // time allotted to perform the step
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Validate checks the fields a step needs before it can be saved or cooked.
func (s Step) Validate() error {
	if strings.TrimSpace(s.Instruction) == "" {
		return &ValidationError{Field: "instruction", Reason: "must not be empty"}
	}
	if s.DelaySec < 0 {
		return &ValidationError{Field: "delay_sec", Reason: "must not be negative"}
	}
	if s.DurationSec <= 0 {
		return &ValidationError{Field: "duration_sec", Reason: "must be positive"}
	}
	return nil
}
