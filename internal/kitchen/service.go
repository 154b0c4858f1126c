// Package kitchen manages the kitchen sites staff and plans belong to.
package kitchen

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hammamikhairi/kitchenops/internal/domain"
	"github.com/hammamikhairi/kitchenops/internal/logger"
)

// PageSize is how many kitchens one List page holds.
const PageSize = 5

// Page is one page of kitchens, newest first.
type Page struct {
	Items      []domain.Kitchen `json:"items"`
	Page       int              `json:"page"`
	TotalPages int              `json:"total_pages"`
	Total      int              `json:"total"`
}

// Stats counts kitchens by status.
type Stats struct {
	Total       int `json:"total"`
	Active      int `json:"active"`
	Inactive    int `json:"inactive"`
	Maintenance int `json:"maintenance"`
}

// Option configures the service.
type Option func(*Service)

// WithNow replaces the wall clock used for timestamps.
func WithNow(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// Service manages kitchens.
type Service struct {
	store domain.KitchenStore
	log   *logger.Logger
	now   func() time.Time
}

// NewService creates a kitchen service over store.
func NewService(store domain.KitchenStore, log *logger.Logger, opts ...Option) *Service {
	s := &Service{store: store, log: log, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create stores a new kitchen. The status defaults to active.
func (s *Service) Create(ctx context.Context, name, location string, status domain.KitchenStatus) (*domain.Kitchen, error) {
	name = strings.TrimSpace(name)
	location = strings.TrimSpace(location)
	if name == "" {
		return nil, &domain.ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if location == "" {
		return nil, &domain.ValidationError{Field: "location", Reason: "must not be empty"}
	}
	if status == "" {
		status = domain.KitchenActive
	}
	if !status.Valid() {
		return nil, &domain.ValidationError{Field: "status", Reason: "unknown status " + string(status)}
	}

	now := s.now().UTC()
	k := &domain.Kitchen{
		ID:        uuid.NewString(),
		Name:      name,
		Location:  location,
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Save(ctx, k); err != nil {
		return nil, err
	}
	s.log.Info("kitchen created: %s (%s)", k.Name, k.Location)
	return k, nil
}

// SetStatus changes a kitchen's operating status.
func (s *Service) SetStatus(ctx context.Context, id string, status domain.KitchenStatus) (*domain.Kitchen, error) {
	if !status.Valid() {
		return nil, &domain.ValidationError{Field: "status", Reason: "unknown status " + string(status)}
	}
	k, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	k.Status = status
	k.UpdatedAt = s.now().UTC()
	if err := s.store.Save(ctx, k); err != nil {
		return nil, err
	}
	s.log.Info("kitchen %s is now %s", k.Name, status)
	return k, nil
}

// Get returns one kitchen.
func (s *Service) Get(ctx context.Context, id string) (*domain.Kitchen, error) {
	return s.store.Get(ctx, id)
}

// List returns one page of the kitchens whose name or location contains
// search. Pages are 1-based; a page past the end is empty.
func (s *Service) List(ctx context.Context, search string, page int) (Page, error) {
	all, err := s.store.List(ctx)
	if err != nil {
		return Page{}, err
	}

	q := strings.ToLower(strings.TrimSpace(search))
	matched := make([]domain.Kitchen, 0, len(all))
	for _, k := range all {
		if q == "" || strings.Contains(strings.ToLower(k.Name), q) ||
			strings.Contains(strings.ToLower(k.Location), q) {
			matched = append(matched, k)
		}
	}

	if page < 1 {
		page = 1
	}
	out := Page{
		Items:      []domain.Kitchen{},
		Page:       page,
		Total:      len(matched),
		TotalPages: (len(matched) + PageSize - 1) / PageSize,
	}
	start := (page - 1) * PageSize
	if start < len(matched) {
		end := min(start+PageSize, len(matched))
		out.Items = matched[start:end]
	}
	return out, nil
}

// Stats counts kitchens by status.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	all, err := s.store.List(ctx)
	if err != nil {
		return Stats{}, err
	}
	var st Stats
	for _, k := range all {
		st.Total++
		switch k.Status {
		case domain.KitchenActive:
			st.Active++
		case domain.KitchenInactive:
			st.Inactive++
		case domain.KitchenMaintenance:
			st.Maintenance++
		}
	}
	return st, nil
}
