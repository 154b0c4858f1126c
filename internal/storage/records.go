package storage

import (
	"context"
	"fmt"
	"sort"

	"github.com/hammamikhairi/kitchenops/internal/domain"
	"github.com/hammamikhairi/kitchenops/internal/logger"
)

// Compile-time interface checks.
var (
	_ domain.InventoryStore = (*InventoryRepo)(nil)
	_ domain.PlanStore      = (*PlanRepo)(nil)
	_ domain.KitchenStore   = (*KitchenRepo)(nil)
)

// collection stores one record type under "<kind>:<id>".
type collection[T any] struct {
	db   *Badger
	kind string
	id   func(*T) string
	log  *logger.Logger
}

func (c collection[T]) key(id string) string { return c.kind + ":" + id }

func (c collection[T]) save(v *T) error {
	if err := c.db.Set(c.key(c.id(v)), v); err != nil {
		return fmt.Errorf("saving %s %s: %w", c.kind, c.id(v), err)
	}
	c.log.Debug("%s saved: %s", c.kind, c.id(v))
	return nil
}

func (c collection[T]) get(id string) (*T, error) {
	var v T
	if err := c.db.Get(c.key(id), &v); err != nil {
		return nil, err
	}
	return &v, nil
}

func (c collection[T]) list() ([]T, error) {
	out, err := ScanAll[T](c.db, c.kind+":")
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", c.kind, err)
	}
	return out, nil
}

func (c collection[T]) delete(id string) error {
	ok, err := c.db.Exists(c.key(id))
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrNotFound
	}
	return c.db.Delete(c.key(id))
}

// InventoryRepo keeps inventory items under "inventory:<id>".
type InventoryRepo struct {
	c collection[domain.InventoryItem]
}

// NewInventoryRepo creates an inventory repository on db.
func NewInventoryRepo(db *Badger, log *logger.Logger) *InventoryRepo {
	return &InventoryRepo{c: collection[domain.InventoryItem]{
		db: db, kind: "inventory", log: log,
		id: func(i *domain.InventoryItem) string { return i.ID },
	}}
}

func (r *InventoryRepo) Save(ctx context.Context, item *domain.InventoryItem) error {
	return r.c.save(item)
}

func (r *InventoryRepo) Get(ctx context.Context, id string) (*domain.InventoryItem, error) {
	return r.c.get(id)
}

// List returns every item sorted by name.
func (r *InventoryRepo) List(ctx context.Context) ([]domain.InventoryItem, error) {
	items, err := r.c.list()
	if err != nil {
		return nil, err
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })
	return items, nil
}

func (r *InventoryRepo) Delete(ctx context.Context, id string) error {
	return r.c.delete(id)
}

// PlanRepo keeps preparation plans under "plan:<id>".
type PlanRepo struct {
	c collection[domain.PreparationPlan]
}

// NewPlanRepo creates a plan repository on db.
func NewPlanRepo(db *Badger, log *logger.Logger) *PlanRepo {
	return &PlanRepo{c: collection[domain.PreparationPlan]{
		db: db, kind: "plan", log: log,
		id: func(p *domain.PreparationPlan) string { return p.ID },
	}}
}

func (r *PlanRepo) Save(ctx context.Context, plan *domain.PreparationPlan) error {
	return r.c.save(plan)
}

func (r *PlanRepo) Get(ctx context.Context, id string) (*domain.PreparationPlan, error) {
	return r.c.get(id)
}

// List returns every plan, newest date first.
func (r *PlanRepo) List(ctx context.Context) ([]domain.PreparationPlan, error) {
	plans, err := r.c.list()
	if err != nil {
		return nil, err
	}
	sort.SliceStable(plans, func(i, j int) bool {
		if plans[i].Date != plans[j].Date {
			return plans[i].Date > plans[j].Date
		}
		return plans[i].CreatedAt.After(plans[j].CreatedAt)
	})
	return plans, nil
}

func (r *PlanRepo) Delete(ctx context.Context, id string) error {
	return r.c.delete(id)
}

// KitchenRepo keeps kitchens under "kitchen:<id>".
type KitchenRepo struct {
	c collection[domain.Kitchen]
}

// NewKitchenRepo creates a kitchen repository on db.
func NewKitchenRepo(db *Badger, log *logger.Logger) *KitchenRepo {
	return &KitchenRepo{c: collection[domain.Kitchen]{
		db: db, kind: "kitchen", log: log,
		id: func(k *domain.Kitchen) string { return k.ID },
	}}
}

func (r *KitchenRepo) Save(ctx context.Context, kitchen *domain.Kitchen) error {
	return r.c.save(kitchen)
}

func (r *KitchenRepo) Get(ctx context.Context, id string) (*domain.Kitchen, error) {
	return r.c.get(id)
}

// List returns every kitchen, newest first.
func (r *KitchenRepo) List(ctx context.Context) ([]domain.Kitchen, error) {
	kitchens, err := r.c.list()
	if err != nil {
		return nil, err
	}
	sort.SliceStable(kitchens, func(i, j int) bool {
		return kitchens[i].CreatedAt.After(kitchens[j].CreatedAt)
	})
	return kitchens, nil
}
