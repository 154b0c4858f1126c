package prep

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hammamikhairi/kitchenops/internal/domain"
	"github.com/hammamikhairi/kitchenops/internal/logger"
	"github.com/hammamikhairi/kitchenops/internal/storage"
)

var fixedNow = time.Date(2026, 6, 10, 8, 0, 0, 0, time.UTC) // a Wednesday

func setupService(t *testing.T) (*Service, context.Context) {
	t.Helper()
	log := logger.New(logger.LevelOff, nil)
	db, err := storage.Open("", log)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	svc := NewService(storage.NewPlanRepo(db, log), log, WithNow(func() time.Time { return fixedNow }))
	return svc, context.Background()
}

func plan(date string, meal domain.MealType, plates int) domain.PreparationPlan {
	return domain.PreparationPlan{KitchenID: "k1", Date: date, MealType: meal, EstimatedPlates: plates}
}

func TestCreateValidation(t *testing.T) {
	svc, ctx := setupService(t)

	tests := []struct {
		name  string
		plan  domain.PreparationPlan
		field string
	}{
		{"no kitchen", domain.PreparationPlan{Date: "2026-06-10", MealType: domain.MealLunch, EstimatedPlates: 1}, "kitchen_id"},
		{"bad date", plan("10/06/2026", domain.MealLunch, 1), "date"},
		{"bad meal", plan("2026-06-10", "brunch", 1), "meal_type"},
		{"zero plates", plan("2026-06-10", domain.MealLunch, 0), "estimated_plates"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tt.plan)
			var ve *domain.ValidationError
			if !errors.As(err, &ve) || ve.Field != tt.field {
				t.Fatalf("expected validation error on %s, got %v", tt.field, err)
			}
		})
	}

	p, err := svc.Create(ctx, plan("2026-06-10", domain.MealLunch, 120))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if p.Status != domain.PlanPlanned || p.ID == "" {
		t.Fatalf("unexpected plan: %+v", p)
	}
}

func TestListTabs(t *testing.T) {
	svc, ctx := setupService(t)

	for _, p := range []domain.PreparationPlan{
		plan("2026-06-10", domain.MealBreakfast, 40),
		plan("2026-06-10", domain.MealLunch, 100),
		plan("2026-06-11", domain.MealDinner, 80),
		plan("2026-06-01", domain.MealSpecial, 20),
	} {
		if _, err := svc.Create(ctx, p); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	tests := []struct {
		filter Filter
		want   int
	}{
		{Filter{Tab: TabToday}, 2},
		{Filter{Tab: TabTomorrow}, 1},
		{Filter{Tab: TabAll}, 4},
		{Filter{}, 4},
		{Filter{Tab: TabToday, Search: "LUN"}, 1},
		{Filter{Search: "dinner"}, 1},
	}
	for _, tt := range tests {
		got, err := svc.List(ctx, tt.filter)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(got) != tt.want {
			t.Errorf("List(%+v) = %d plans, want %d", tt.filter, len(got), tt.want)
		}
	}

	today, err := svc.Today(ctx)
	if err != nil {
		t.Fatalf("today: %v", err)
	}
	if today.Plans != 2 || today.EstimatedPlates != 140 {
		t.Fatalf("unexpected day summary: %+v", today)
	}
}

func TestAdvanceAndOutcome(t *testing.T) {
	svc, ctx := setupService(t)

	p, err := svc.Create(ctx, plan("2026-06-10", domain.MealLunch, 100))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	for _, want := range []domain.PlanStatus{domain.PlanInProgress, domain.PlanCompleted} {
		got, err := svc.Advance(ctx, p.ID)
		if err != nil {
			t.Fatalf("advance: %v", err)
		}
		if got.Status != want {
			t.Fatalf("expected %s, got %s", want, got.Status)
		}
	}
	if _, err := svc.Advance(ctx, p.ID); !domain.IsValidation(err) {
		t.Fatalf("expected validation error advancing a completed plan, got %v", err)
	}

	other, _ := svc.Create(ctx, plan("2026-06-10", domain.MealDinner, 60))
	done, err := svc.RecordOutcome(ctx, other.ID, 55, 4.5, " Overcooked ")
	if err != nil {
		t.Fatalf("outcome: %v", err)
	}
	if done.Status != domain.PlanCompleted || *done.ActualPlates != 55 || *done.Wastage != 4.5 || done.WastageReason != "Overcooked" {
		t.Fatalf("unexpected outcome: %+v", done)
	}

	found, _ := svc.List(ctx, Filter{Search: "overcooked"})
	if len(found) != 1 {
		t.Fatalf("expected search by wastage reason to find 1 plan, got %d", len(found))
	}

	if _, err := svc.RecordOutcome(ctx, other.ID, -1, 0, ""); !domain.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := svc.RecordOutcome(ctx, "missing", 1, 0, ""); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestWeeklyWastage(t *testing.T) {
	svc, ctx := setupService(t)

	record := func(date string, wastage float64) {
		p, err := svc.Create(ctx, plan(date, domain.MealLunch, 10))
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if _, err := svc.RecordOutcome(ctx, p.ID, 10, wastage, ""); err != nil {
			t.Fatalf("outcome: %v", err)
		}
	}
	record("2026-06-10", 3)
	record("2026-06-10", 2)
	record("2026-06-04", 7)  // first day of the window
	record("2026-06-03", 99) // outside the window
	if _, err := svc.Create(ctx, plan("2026-06-09", domain.MealLunch, 10)); err != nil {
		t.Fatalf("create: %v", err)
	}

	days, err := svc.WeeklyWastage(ctx, fixedNow)
	if err != nil {
		t.Fatalf("weekly: %v", err)
	}
	if len(days) != 7 {
		t.Fatalf("expected 7 days, got %d", len(days))
	}
	if days[0].Date != "2026-06-04" || days[0].Wastage != 7 || days[0].Day != "Thu" {
		t.Fatalf("unexpected first day: %+v", days[0])
	}
	if days[6].Date != "2026-06-10" || days[6].Wastage != 5 {
		t.Fatalf("unexpected last day: %+v", days[6])
	}
	if days[5].Wastage != 0 {
		t.Fatalf("plan without outcome counted: %+v", days[5])
	}
}
