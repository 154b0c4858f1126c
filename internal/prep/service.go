// Package prep plans meal services per kitchen and records how they went.
package prep

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hammamikhairi/kitchenops/internal/domain"
	"github.com/hammamikhairi/kitchenops/internal/logger"
)

// DateLayout is the calendar date format plans are keyed by.
const DateLayout = "2006-01-02"

// Tab selects plans by date.
type Tab string

const (
	TabToday    Tab = "today"
	TabTomorrow Tab = "tomorrow"
	TabAll      Tab = "all"
)

// Filter narrows List results.
type Filter struct {
	Tab    Tab    `form:"tab"`
	Search string `form:"search"`
}

// DaySummary aggregates one day's plans.
type DaySummary struct {
	Date            string  `json:"date"`
	Plans           int     `json:"plans"`
	EstimatedPlates int     `json:"estimated_plates"`
	Wastage         float64 `json:"wastage"`
}

// WastageDay is the recorded wastage for one day of the past week.
type WastageDay struct {
	Date    string  `json:"date"`
	Day     string  `json:"day"` // Mon, Tue, ...
	Wastage float64 `json:"wastage"`
}

// Option configures the service.
type Option func(*Service)

// WithNow replaces the wall clock used for "today".
func WithNow(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// Service manages preparation plans.
type Service struct {
	store domain.PlanStore
	log   *logger.Logger
	now   func() time.Time
}

// NewService creates a prep service over store.
func NewService(store domain.PlanStore, log *logger.Logger, opts ...Option) *Service {
	s := &Service{store: store, log: log, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create validates and stores a new plan. New plans always start planned.
func (s *Service) Create(ctx context.Context, p domain.PreparationPlan) (*domain.PreparationPlan, error) {
	if err := validate(p); err != nil {
		return nil, err
	}
	p.ID = uuid.NewString()
	p.Status = domain.PlanPlanned
	p.ActualPlates = nil
	p.Wastage = nil
	p.WastageReason = ""
	p.CreatedAt = s.now().UTC()

	if err := s.store.Save(ctx, &p); err != nil {
		return nil, err
	}
	s.log.Info("plan created: %s %s for kitchen %s (%d plates)", p.Date, p.MealType, p.KitchenID, p.EstimatedPlates)
	return &p, nil
}

// Get returns one plan.
func (s *Service) Get(ctx context.Context, id string) (*domain.PreparationPlan, error) {
	return s.store.Get(ctx, id)
}

// Update replaces the planning fields of a plan. Status and outcome are
// only changed through Advance and RecordOutcome.
func (s *Service) Update(ctx context.Context, id string, p domain.PreparationPlan) (*domain.PreparationPlan, error) {
	if err := validate(p); err != nil {
		return nil, err
	}
	cur, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	cur.KitchenID = p.KitchenID
	cur.Date = p.Date
	cur.MealType = p.MealType
	cur.EstimatedPlates = p.EstimatedPlates
	cur.RecipeIDs = p.RecipeIDs

	if err := s.store.Save(ctx, cur); err != nil {
		return nil, err
	}
	return cur, nil
}

// Delete removes a plan.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info("plan deleted: %s", id)
	return nil
}

// List returns plans on the filter's tab whose meal type or wastage reason
// contains the search text.
func (s *Service) List(ctx context.Context, f Filter) ([]domain.PreparationPlan, error) {
	all, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}

	today := s.now().Format(DateLayout)
	tomorrow := s.now().AddDate(0, 0, 1).Format(DateLayout)
	q := strings.ToLower(strings.TrimSpace(f.Search))

	out := make([]domain.PreparationPlan, 0, len(all))
	for _, p := range all {
		switch f.Tab {
		case TabToday:
			if p.Date != today {
				continue
			}
		case TabTomorrow:
			if p.Date != tomorrow {
				continue
			}
		}
		if q != "" && !strings.Contains(string(p.MealType), q) &&
			!strings.Contains(strings.ToLower(p.WastageReason), q) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

// Advance moves a plan one status forward: planned, in-progress, completed.
func (s *Service) Advance(ctx context.Context, id string) (*domain.PreparationPlan, error) {
	p, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	switch p.Status {
	case domain.PlanPlanned:
		p.Status = domain.PlanInProgress
	case domain.PlanInProgress:
		p.Status = domain.PlanCompleted
	default:
		return nil, &domain.ValidationError{Field: "status", Reason: "plan is already completed"}
	}
	if err := s.store.Save(ctx, p); err != nil {
		return nil, err
	}
	s.log.Debug("plan %s advanced to %s", id, p.Status)
	return p, nil
}

// RecordOutcome stores the actual plates and wastage and completes the plan.
func (s *Service) RecordOutcome(ctx context.Context, id string, actualPlates int, wastage float64, reason string) (*domain.PreparationPlan, error) {
	if actualPlates < 0 {
		return nil, &domain.ValidationError{Field: "actual_plates", Reason: "must not be negative"}
	}
	if wastage < 0 {
		return nil, &domain.ValidationError{Field: "wastage", Reason: "must not be negative"}
	}
	p, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	p.ActualPlates = &actualPlates
	p.Wastage = &wastage
	p.WastageReason = strings.TrimSpace(reason)
	p.Status = domain.PlanCompleted

	if err := s.store.Save(ctx, p); err != nil {
		return nil, err
	}
	s.log.Info("plan %s completed: %d plates, %g wasted", id, actualPlates, wastage)
	return p, nil
}

// Today summarizes the plans dated today.
func (s *Service) Today(ctx context.Context) (DaySummary, error) {
	all, err := s.store.List(ctx)
	if err != nil {
		return DaySummary{}, err
	}
	sum := DaySummary{Date: s.now().Format(DateLayout)}
	for _, p := range all {
		if p.Date != sum.Date {
			continue
		}
		sum.Plans++
		sum.EstimatedPlates += p.EstimatedPlates
		if p.Wastage != nil {
			sum.Wastage += *p.Wastage
		}
	}
	return sum, nil
}

// WeeklyWastage returns recorded wastage for each of the 7 days ending on
// now's date, oldest first. Days without data report zero.
func (s *Service) WeeklyWastage(ctx context.Context, now time.Time) ([]WastageDay, error) {
	all, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}

	days := make([]WastageDay, 7)
	index := make(map[string]int, 7)
	for i := range days {
		d := now.AddDate(0, 0, i-6)
		days[i] = WastageDay{Date: d.Format(DateLayout), Day: d.Format("Mon")}
		index[days[i].Date] = i
	}
	for _, p := range all {
		i, ok := index[p.Date]
		if !ok || p.Wastage == nil {
			continue
		}
		days[i].Wastage += *p.Wastage
	}
	return days, nil
}

func validate(p domain.PreparationPlan) error {
	if strings.TrimSpace(p.KitchenID) == "" {
		return &domain.ValidationError{Field: "kitchen_id", Reason: "must not be empty"}
	}
	if _, err := time.Parse(DateLayout, p.Date); err != nil {
		return &domain.ValidationError{Field: "date", Reason: fmt.Sprintf("must be %s", "YYYY-MM-DD")}
	}
	if !p.MealType.Valid() {
		return &domain.ValidationError{Field: "meal_type", Reason: "unknown meal type " + string(p.MealType)}
	}
	if p.EstimatedPlates <= 0 {
		return &domain.ValidationError{Field: "estimated_plates", Reason: "must be positive"}
	}
	return nil
}
