// Package inventory tracks stocked ingredients per kitchen and flags items
// that are running low.
package inventory

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hammamikhairi/kitchenops/internal/domain"
	"github.com/hammamikhairi/kitchenops/internal/logger"
)

// Status is how healthy an item's stock is relative to its threshold.
type Status string

const (
	StatusLow    Status = "low"
	StatusMedium Status = "medium"
	StatusGood   Status = "good"
)

// StockStatus rates an item: low at or under its threshold, medium up to
// twice the threshold, good above that. Items without a threshold are
// always good.
func StockStatus(item domain.InventoryItem) Status {
	if item.Threshold <= 0 {
		return StatusGood
	}
	ratio := item.Quantity / item.Threshold
	switch {
	case ratio <= 1:
		return StatusLow
	case ratio <= 2:
		return StatusMedium
	default:
		return StatusGood
	}
}

// Filter narrows List results. Zero fields match everything.
type Filter struct {
	Search    string          `form:"search"`
	Category  domain.Category `form:"category"`
	KitchenID string          `form:"kitchen_id"`
}

// Summary aggregates a set of items.
type Summary struct {
	TotalItems int     `json:"total_items"`
	LowStock   int     `json:"low_stock"`
	TotalValue float64 `json:"total_value"`
}

// Item is an inventory item with its computed stock status.
type Item struct {
	domain.InventoryItem
	Status Status `json:"status"`
}

// Option configures the service.
type Option func(*Service)

// WithNow replaces the wall clock used for timestamps.
func WithNow(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// Service manages inventory items.
type Service struct {
	store domain.InventoryStore
	log   *logger.Logger
	now   func() time.Time
}

// NewService creates an inventory service over store.
func NewService(store domain.InventoryStore, log *logger.Logger, opts ...Option) *Service {
	s := &Service{store: store, log: log, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Add validates and stores a new item.
func (s *Service) Add(ctx context.Context, item domain.InventoryItem) (*domain.InventoryItem, error) {
	item.Name = strings.TrimSpace(item.Name)
	if err := validate(item); err != nil {
		return nil, err
	}
	item.ID = uuid.NewString()
	item.UpdatedAt = s.now().UTC()

	if err := s.store.Save(ctx, &item); err != nil {
		return nil, err
	}
	s.log.Info("inventory item added: %s (%g %s)", item.Name, item.Quantity, item.Unit)
	return &item, nil
}

// Update replaces an existing item.
func (s *Service) Update(ctx context.Context, id string, item domain.InventoryItem) (*domain.InventoryItem, error) {
	item.Name = strings.TrimSpace(item.Name)
	if err := validate(item); err != nil {
		return nil, err
	}
	if _, err := s.store.Get(ctx, id); err != nil {
		return nil, err
	}
	item.ID = id
	item.UpdatedAt = s.now().UTC()

	if err := s.store.Save(ctx, &item); err != nil {
		return nil, err
	}
	s.log.Debug("inventory item updated: %s", id)
	return &item, nil
}

// Get returns one item.
func (s *Service) Get(ctx context.Context, id string) (*domain.InventoryItem, error) {
	return s.store.Get(ctx, id)
}

// Delete removes one item.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info("inventory item deleted: %s", id)
	return nil
}

// List returns the items matching f with their stock status. Search
// matches the name or category, case-insensitively.
func (s *Service) List(ctx context.Context, f Filter) ([]Item, error) {
	all, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}

	q := strings.ToLower(strings.TrimSpace(f.Search))
	out := make([]Item, 0, len(all))
	for _, it := range all {
		if f.Category != "" && it.Category != f.Category {
			continue
		}
		if f.KitchenID != "" && it.KitchenID != f.KitchenID {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(it.Name), q) &&
			!strings.Contains(strings.ToLower(string(it.Category)), q) {
			continue
		}
		out = append(out, Item{InventoryItem: it, Status: StockStatus(it)})
	}
	return out, nil
}

// Summary aggregates the items matching f.
func (s *Service) Summary(ctx context.Context, f Filter) (Summary, error) {
	items, err := s.List(ctx, f)
	if err != nil {
		return Summary{}, err
	}
	var sum Summary
	for _, it := range items {
		sum.TotalItems++
		if it.Status == StatusLow {
			sum.LowStock++
		}
		sum.TotalValue += it.Quantity * it.PricePerUnit
	}
	return sum, nil
}

func validate(item domain.InventoryItem) error {
	if item.Name == "" {
		return &domain.ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if !item.Category.Valid() {
		return &domain.ValidationError{Field: "category", Reason: "unknown category " + string(item.Category)}
	}
	if !item.Unit.Valid() {
		return &domain.ValidationError{Field: "unit", Reason: "unknown unit " + string(item.Unit)}
	}
	if item.Quantity < 0 {
		return &domain.ValidationError{Field: "quantity", Reason: "must not be negative"}
	}
	if item.Threshold < 0 {
		return &domain.ValidationError{Field: "threshold", Reason: "must not be negative"}
	}
	if item.PricePerUnit < 0 {
		return &domain.ValidationError{Field: "price_per_unit", Reason: "must not be negative"}
	}
	return nil
}
