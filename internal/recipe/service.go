// Package recipe authors recipes and their timed steps. Every draft is
// validated before anything touches the store.
package recipe

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hammamikhairi/kitchenops/internal/domain"
	"github.com/hammamikhairi/kitchenops/internal/logger"
)

// StepDraft is one step as entered by an author.
type StepDraft struct {
	Instruction string `json:"instruction"`
	DelaySec    int    `json:"delay_sec"`
	DurationSec int    `json:"duration_sec"`
}

// Draft is a recipe as entered by an author, before it has IDs.
type Draft struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Steps       []StepDraft `json:"steps"`
}

// Option configures the service.
type Option func(*Service)

// WithNow replaces the wall clock used for timestamps.
func WithNow(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// Service is the recipe authoring API.
type Service struct {
	store domain.RecipeStore
	log   *logger.Logger
	now   func() time.Time
}

// NewService creates a recipe service over store.
func NewService(store domain.RecipeStore, log *logger.Logger, opts ...Option) *Service {
	s := &Service{store: store, log: log, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create validates a draft and stores it as a new recipe. Steps are
// numbered 1..n in the order given.
func (s *Service) Create(ctx context.Context, authorID string, d Draft) (*domain.Recipe, error) {
	if err := validateDraft(d); err != nil {
		return nil, err
	}

	r := &domain.Recipe{
		ID:          uuid.NewString(),
		Name:        strings.TrimSpace(d.Name),
		Description: strings.TrimSpace(d.Description),
		CreatedBy:   authorID,
		CreatedAt:   s.now().UTC(),
	}
	for i, sd := range d.Steps {
		r.Steps = append(r.Steps, domain.Step{
			ID:          uuid.NewString(),
			RecipeID:    r.ID,
			Number:      i + 1,
			Instruction: strings.TrimSpace(sd.Instruction),
			DelaySec:    sd.DelaySec,
			DurationSec: sd.DurationSec,
		})
	}

	if err := s.store.Create(ctx, r); err != nil {
		return nil, err
	}
	s.log.Info("recipe created: %s (%d steps)", r.Name, len(r.Steps))
	return r, nil
}

// Get returns a recipe with its steps in order.
func (s *Service) Get(ctx context.Context, id string) (*domain.Recipe, error) {
	return s.store.Get(ctx, id)
}

// List returns summaries of all recipes.
func (s *Service) List(ctx context.Context) ([]domain.RecipeSummary, error) {
	return s.store.List(ctx)
}

// Search returns recipes whose name or description contains the query,
// case-insensitively. An empty query lists everything.
func (s *Service) Search(ctx context.Context, query string) ([]domain.RecipeSummary, error) {
	all, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}

	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return all, nil
	}
	s.log.Debug("searching recipes for: %s", q)

	var out []domain.RecipeSummary
	for _, r := range all {
		if strings.Contains(strings.ToLower(r.Name), q) ||
			strings.Contains(strings.ToLower(r.Description), q) {
			out = append(out, r)
		}
	}
	return out, nil
}

// Delete removes a recipe and its steps.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info("recipe deleted: %s", id)
	return nil
}

// SaveStep inserts or replaces step number of a recipe. An existing step
// keeps its ID; its completion time is cleared.
func (s *Service) SaveStep(ctx context.Context, recipeID string, number int, d StepDraft) (*domain.Step, error) {
	step := domain.Step{
		RecipeID:    recipeID,
		Number:      number,
		Instruction: strings.TrimSpace(d.Instruction),
		DelaySec:    d.DelaySec,
		DurationSec: d.DurationSec,
	}
	if number < 1 {
		return nil, &domain.ValidationError{Field: "step_number", Reason: "must be 1 or more"}
	}
	if err := step.Validate(); err != nil {
		return nil, err
	}

	existing, err := s.store.Steps(ctx, recipeID)
	if err != nil {
		return nil, err
	}
	step.ID = uuid.NewString()
	for _, e := range existing {
		if e.Number == number {
			step.ID = e.ID
			break
		}
	}

	if err := s.store.SaveStep(ctx, step); err != nil {
		return nil, err
	}
	s.log.Debug("step %d of %s saved", number, recipeID)
	return &step, nil
}

// CompleteStep records that a step was finished now.
func (s *Service) CompleteStep(ctx context.Context, recipeID string, number int) error {
	return s.store.CompleteStep(ctx, recipeID, number, s.now())
}

// Seed loads the built-in recipes when the store holds none. It returns
// how many were added.
func (s *Service) Seed(ctx context.Context) (int, error) {
	existing, err := s.store.List(ctx)
	if err != nil {
		return 0, err
	}
	if len(existing) > 0 {
		return 0, nil
	}

	drafts := builtins()
	sort.Slice(drafts, func(i, j int) bool { return drafts[i].Name < drafts[j].Name })
	for _, d := range drafts {
		if _, err := s.Create(ctx, "system", d); err != nil {
			return 0, fmt.Errorf("seeding %q: %w", d.Name, err)
		}
	}
	s.log.Debug("seeded %d recipes", len(drafts))
	return len(drafts), nil
}

func validateDraft(d Draft) error {
	if strings.TrimSpace(d.Name) == "" {
		return &domain.ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if strings.TrimSpace(d.Description) == "" {
		return &domain.ValidationError{Field: "description", Reason: "must not be empty"}
	}
	if len(d.Steps) == 0 {
		return &domain.ValidationError{Field: "steps", Reason: "at least one step is required"}
	}
	for i, sd := range d.Steps {
		step := domain.Step{Instruction: sd.Instruction, DelaySec: sd.DelaySec, DurationSec: sd.DurationSec}
		if err := step.Validate(); err != nil {
			ve := err.(*domain.ValidationError)
			return &domain.ValidationError{Field: fmt.Sprintf("steps[%d].%s", i, ve.Field), Reason: ve.Reason}
		}
	}
	return nil
}
