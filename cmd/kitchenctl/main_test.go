package main

import (
	"context"
	"testing"

	"github.com/hammamikhairi/kitchenops/internal/clock"
	"github.com/hammamikhairi/kitchenops/internal/display"
	"github.com/hammamikhairi/kitchenops/internal/domain"
	"github.com/hammamikhairi/kitchenops/internal/logger"
	"github.com/hammamikhairi/kitchenops/internal/notify"
)

func testViewer(t *testing.T) *viewer {
	t.Helper()
	log := logger.New(logger.LevelOff, nil)
	recipe := &domain.Recipe{ID: "soup", Name: "Soup", Steps: []domain.Step{
		{Number: 1, Instruction: "Chop onions", DelaySec: 2, DurationSec: 3},
		{Number: 2, Instruction: "Simmer", DelaySec: 0, DurationSec: 5},
	}}
	mirror, err := clock.New(recipe.Steps)
	if err != nil {
		t.Fatalf("clock: %v", err)
	}
	return &viewer{
		recipe:   recipe,
		mirror:   mirror,
		ui:       display.NewUI(recipe),
		notifier: notify.NewLogNotifier(log, nil),
		log:      log,
	}
}

func TestViewerMirrorsRelayedState(t *testing.T) {
	v := testViewer(t)
	ctx := context.Background()

	v.show(ctx, domain.SessionState{StepIndex: 1, Phase: domain.PhaseAction, Remaining: 4})
	if got := v.mirror.State().String(); got != "action(4)" {
		t.Fatalf("mirrored state = %s, want action(4)", got)
	}

	v.show(ctx, domain.SessionState{StepIndex: 1, Phase: domain.PhaseDone, Remaining: 9})
	if got := v.mirror.State(); got.Phase != domain.PhaseDone || got.Remaining != 0 {
		t.Fatalf("done state should report 0 remaining, got %+v", got)
	}
}

func TestViewerIgnoresStateOutsideRecipe(t *testing.T) {
	v := testViewer(t)
	ctx := context.Background()

	v.show(ctx, domain.SessionState{StepIndex: 0, Phase: domain.PhaseDelay, Remaining: 1})

	tests := []domain.SessionState{
		{StepIndex: 2, Phase: domain.PhaseAction, Remaining: 3},
		{StepIndex: -1, Phase: domain.PhaseDelay, Remaining: 1},
	}
	for _, s := range tests {
		v.show(ctx, s)
		if got := v.mirror.State().String(); got != "delay(1)" {
			t.Fatalf("after %+v mirrored state = %s, want delay(1) kept", s, got)
		}
	}
}

func TestLatestStateKeepsNewest(t *testing.T) {
	states := newLatestState()
	for i := 1; i <= 5; i++ {
		states.put(domain.SessionState{Phase: domain.PhaseAction, Remaining: i})
	}

	if got := <-states; got.Remaining != 5 {
		t.Fatalf("pending state remaining = %d, want 5", got.Remaining)
	}
	select {
	case s := <-states:
		t.Fatalf("expected nothing pending, got %+v", s)
	default:
	}
}
