package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/hammamikhairi/kitchenops/internal/domain"
	"github.com/hammamikhairi/kitchenops/internal/logger"
)

// Compile-time interface check.
var _ domain.RecipeStore = (*RecipeRepo)(nil)

// RecipeRepo keeps recipes under "recipe:<id>" and each of their steps
// under "step:<recipeID>:<number>".
type RecipeRepo struct {
	db  *Badger
	log *logger.Logger
}

// NewRecipeRepo creates a recipe repository on db.
func NewRecipeRepo(db *Badger, log *logger.Logger) *RecipeRepo {
	return &RecipeRepo{db: db, log: log}
}

func recipeKey(id string) string { return "recipe:" + id }

func stepPrefix(recipeID string) string { return "step:" + recipeID + ":" }

func stepKey(recipeID string, number int) string {
	return stepPrefix(recipeID) + strconv.Itoa(number)
}

// Create stores a new recipe and all of its steps atomically.
func (r *RecipeRepo) Create(ctx context.Context, recipe *domain.Recipe) error {
	err := r.db.Batch(func(tx *Tx) error {
		var existing domain.Recipe
		err := tx.Get(recipeKey(recipe.ID), &existing)
		if err == nil {
			return domain.ErrAlreadyExists
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return err
		}

		head := *recipe
		head.Steps = nil
		if err := tx.Set(recipeKey(recipe.ID), head); err != nil {
			return err
		}
		for _, s := range recipe.Steps {
			s.RecipeID = recipe.ID
			if err := tx.Set(stepKey(recipe.ID, s.Number), s); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("creating recipe %s: %w", recipe.ID, err)
	}
	r.log.Debug("recipe stored: %s (%d steps)", recipe.ID, len(recipe.Steps))
	return nil
}

// Get returns a recipe with its steps ordered by number.
func (r *RecipeRepo) Get(ctx context.Context, id string) (*domain.Recipe, error) {
	var rec domain.Recipe
	if err := r.db.Get(recipeKey(id), &rec); err != nil {
		return nil, err
	}
	steps, err := r.Steps(ctx, id)
	if err != nil {
		return nil, err
	}
	rec.Steps = steps
	return &rec, nil
}

// List returns a summary of every recipe, sorted by name.
func (r *RecipeRepo) List(ctx context.Context) ([]domain.RecipeSummary, error) {
	recipes, err := ScanAll[domain.Recipe](r.db, "recipe:")
	if err != nil {
		return nil, fmt.Errorf("listing recipes: %w", err)
	}

	out := make([]domain.RecipeSummary, 0, len(recipes))
	for _, rec := range recipes {
		keys, err := r.db.List(stepPrefix(rec.ID))
		if err != nil {
			return nil, err
		}
		sum := rec.Summary()
		sum.StepCount = len(keys)
		out = append(out, sum)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Delete removes a recipe and every step it owns.
func (r *RecipeRepo) Delete(ctx context.Context, id string) error {
	err := r.db.Batch(func(tx *Tx) error {
		var rec domain.Recipe
		if err := tx.Get(recipeKey(id), &rec); err != nil {
			return err
		}
		for _, k := range tx.Keys(stepPrefix(id)) {
			if err := tx.Delete(k); err != nil {
				return err
			}
		}
		return tx.Delete(recipeKey(id))
	})
	if err != nil {
		return fmt.Errorf("deleting recipe %s: %w", id, err)
	}
	r.log.Debug("recipe deleted: %s", id)
	return nil
}

// Steps returns a recipe's steps ordered by step number.
func (r *RecipeRepo) Steps(ctx context.Context, recipeID string) ([]domain.Step, error) {
	steps, err := ScanAll[domain.Step](r.db, stepPrefix(recipeID))
	if err != nil {
		return nil, fmt.Errorf("loading steps of %s: %w", recipeID, err)
	}
	// Keys sort lexically, so step 10 comes before step 2.
	sort.Slice(steps, func(i, j int) bool { return steps[i].Number < steps[j].Number })
	return steps, nil
}

// SaveStep inserts or replaces one step of an existing recipe.
func (r *RecipeRepo) SaveStep(ctx context.Context, step domain.Step) error {
	err := r.db.Batch(func(tx *Tx) error {
		var rec domain.Recipe
		if err := tx.Get(recipeKey(step.RecipeID), &rec); err != nil {
			return err
		}
		return tx.Set(stepKey(step.RecipeID, step.Number), step)
	})
	if err != nil {
		return fmt.Errorf("saving step %d of %s: %w", step.Number, step.RecipeID, err)
	}
	return nil
}

// CompleteStep records when a step was finished.
func (r *RecipeRepo) CompleteStep(ctx context.Context, recipeID string, number int, at time.Time) error {
	var step domain.Step
	err := r.db.Update(stepKey(recipeID, number), &step, func() error {
		t := at.UTC()
		step.CompletedAt = &t
		return nil
	})
	if err != nil {
		return fmt.Errorf("completing step %d of %s: %w", number, recipeID, err)
	}
	r.log.Debug("step %d of %s completed", number, recipeID)
	return nil
}
