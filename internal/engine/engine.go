// Package engine hosts live cooking sessions. Each session walks one
// recipe's steps on a session clock driven by a timer runner; every state
// change is stored, relayed to viewers, and announced to the kitchen.
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hammamikhairi/kitchenops/internal/clock"
	"github.com/hammamikhairi/kitchenops/internal/domain"
	"github.com/hammamikhairi/kitchenops/internal/logger"
	"github.com/hammamikhairi/kitchenops/internal/relay"
	"github.com/hammamikhairi/kitchenops/internal/timer"
)

const publishTimeout = 2 * time.Second

// Option configures the engine.
type Option func(*Engine)

// WithRelay sets where state changes are broadcast. Without one the
// engine keeps its own in-process hub.
func WithRelay(r domain.Relay) Option {
	return func(e *Engine) {
		e.relay = r
	}
}

// WithNotifier sets who hears about phase changes.
func WithNotifier(n domain.Notifier) Option {
	return func(e *Engine) {
		e.notifier = n
	}
}

// WithTimerOptions passes options to every session's timer runner.
func WithTimerOptions(opts ...timer.Option) Option {
	return func(e *Engine) {
		e.timerOpts = append(e.timerOpts, opts...)
	}
}

// WithSender sets the sender name stamped on relay messages.
func WithSender(name string) Option {
	return func(e *Engine) {
		e.sender = name
	}
}

// WithNow replaces the wall clock used for timestamps.
func WithNow(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// Engine manages live cooking sessions, at most one per recipe. It
// depends only on interfaces and is fully testable with fakes.
type Engine struct {
	recipes   domain.RecipeStore
	store     domain.SessionStore
	relay     domain.Relay
	notifier  domain.Notifier
	log       *logger.Logger
	timerOpts []timer.Option
	sender    string
	now       func() time.Time

	mu   sync.Mutex
	live map[string]*liveSession
}

// liveSession is a running session. last and session are only touched on
// the runner goroutine, or before the runner starts.
type liveSession struct {
	session *domain.Session
	steps   []domain.Step
	runner  *timer.Runner
	last    domain.SessionState
	started bool
}

// New creates a cooking engine with the given dependencies and options.
func New(recipes domain.RecipeStore, store domain.SessionStore, log *logger.Logger, opts ...Option) *Engine {
	e := &Engine{
		recipes: recipes,
		store:   store,
		log:     log,
		sender:  "server",
		now:     time.Now,
		live:    make(map[string]*liveSession),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.relay == nil {
		e.relay = relay.NewHub(log)
	}
	return e
}

// Relay returns the relay state changes are published on.
func (e *Engine) Relay() domain.Relay {
	return e.relay
}

// Start begins a cooking session for a recipe. The recipe is validated
// before any clock starts. Only one session per recipe may run.
func (e *Engine) Start(ctx context.Context, recipeID, ownerID string) (*domain.Session, error) {
	e.mu.Lock()
	_, running := e.live[recipeID]
	e.mu.Unlock()
	if running {
		return nil, domain.ErrSessionExists
	}

	recipe, err := e.recipes.Get(ctx, recipeID)
	if err != nil {
		return nil, fmt.Errorf("getting recipe: %w", err)
	}
	if err := validateSteps(recipe.Steps); err != nil {
		return nil, err
	}

	c, err := clock.New(recipe.Steps)
	if err != nil {
		return nil, err
	}

	now := e.now()
	ls := &liveSession{
		session: &domain.Session{
			ID:         uuid.NewString(),
			RecipeID:   recipe.ID,
			RecipeName: recipe.Name,
			OwnerID:    ownerID,
			StepCount:  len(recipe.Steps),
			StartedAt:  now,
			UpdatedAt:  now,
		},
		steps: recipe.Steps,
	}
	ls.runner = timer.New(c, func(s domain.SessionState) { e.onChange(ls, s) }, e.log, e.timerOpts...)

	e.mu.Lock()
	if _, running := e.live[recipeID]; running {
		e.mu.Unlock()
		return nil, domain.ErrSessionExists
	}
	e.live[recipeID] = ls
	e.mu.Unlock()

	if err := e.store.Save(ctx, ls.session); err != nil {
		e.forget(ls)
		return nil, fmt.Errorf("saving session: %w", err)
	}

	// Once the runner starts, its goroutine owns ls.session.
	out := *ls.session

	// The runner outlives the request that started it.
	state := ls.runner.Start(context.Background())

	e.log.Info("started session %s for recipe %q (%d steps)", out.ID, recipe.Name, len(recipe.Steps))
	out.State = state
	return &out, nil
}

// MarkStepDone completes the current step. The completion time is
// persisted first; if that fails the clock is left untouched.
func (e *Engine) MarkStepDone(ctx context.Context, recipeID string) (domain.SessionState, error) {
	ls, err := e.lookup(recipeID)
	if err != nil {
		return domain.SessionState{}, err
	}

	state, err := ls.runner.MarkDone(ctx, func(idx int) error {
		step := ls.steps[idx]
		if err := e.recipes.CompleteStep(ctx, recipeID, step.Number, e.now()); err != nil {
			return fmt.Errorf("recording completion of step %d: %w", step.Number, err)
		}
		return nil
	})
	if err != nil {
		return state, err
	}

	e.log.Debug("session for %s marked done -> %s", recipeID, state)
	return state, nil
}

// Stop cancels a running session. Nothing else happens: no completions
// are recorded and no final broadcast is sent.
func (e *Engine) Stop(ctx context.Context, recipeID string) error {
	ls, err := e.lookup(recipeID)
	if err != nil {
		return err
	}
	ls.runner.Stop()
	e.forget(ls)

	e.log.Info("stopped session %s for recipe %s", ls.session.ID, recipeID)
	return nil
}

// State returns the stored view of a recipe's live session.
func (e *Engine) State(ctx context.Context, recipeID string) (*domain.Session, error) {
	sess, err := e.store.Load(ctx, recipeID)
	if err != nil {
		return nil, fmt.Errorf("loading session: %w", domain.ErrSessionNotActive)
	}
	return sess, nil
}

// Sessions lists every live session.
func (e *Engine) Sessions(ctx context.Context) ([]*domain.Session, error) {
	return e.store.List(ctx)
}

// Shutdown stops every running session.
func (e *Engine) Shutdown() {
	e.mu.Lock()
	all := make([]*liveSession, 0, len(e.live))
	for _, ls := range e.live {
		all = append(all, ls)
	}
	e.live = make(map[string]*liveSession)
	e.mu.Unlock()

	for _, ls := range all {
		ls.runner.Stop()
		_ = e.store.Delete(context.Background(), ls.session.RecipeID)
	}
	if len(all) > 0 {
		e.log.Info("stopped %d running session(s)", len(all))
	}
}

func (e *Engine) lookup(recipeID string) (*liveSession, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	ls, ok := e.live[recipeID]
	if !ok {
		return nil, domain.ErrSessionNotActive
	}
	return ls, nil
}

// forget unregisters ls if it is still the recipe's live session.
func (e *Engine) forget(ls *liveSession) {
	e.mu.Lock()
	cur, ok := e.live[ls.session.RecipeID]
	if !ok || cur != ls {
		e.mu.Unlock()
		return
	}
	delete(e.live, ls.session.RecipeID)
	// Still under the lock, so a new session for the recipe cannot be
	// saved in between and then deleted here.
	err := e.store.Delete(context.Background(), ls.session.RecipeID)
	e.mu.Unlock()

	if err != nil {
		e.log.Debug("removing session for %s: %v", ls.session.RecipeID, err)
	}
}

// onChange runs on the session's runner goroutine for every state the
// clock passes through.
func (e *Engine) onChange(ls *liveSession, s domain.SessionState) {
	ctx := context.Background()
	recipeID := ls.session.RecipeID

	ls.session.State = s
	ls.session.UpdatedAt = e.now()
	if err := e.store.Save(ctx, ls.session); err != nil {
		e.log.Warn("saving session state for %s: %v", recipeID, err)
	}

	pctx, cancel := context.WithTimeout(ctx, publishTimeout)
	if err := e.relay.Publish(pctx, relay.NewMessage(recipeID, e.sender, s)); err != nil {
		e.log.Warn("relay publish for %s: %v", recipeID, err)
	}
	cancel()

	if !ls.started || s.StepIndex != ls.last.StepIndex || s.Phase != ls.last.Phase {
		e.announce(ctx, ls, s)
	}
	ls.last = s
	ls.started = true

	if s.Phase == domain.PhaseDone {
		e.forget(ls)
		e.log.Info("session %s for recipe %q finished", ls.session.ID, ls.session.RecipeName)
	}
}

func (e *Engine) announce(ctx context.Context, ls *liveSession, s domain.SessionState) {
	if e.notifier == nil {
		return
	}

	var err error
	switch s.Phase {
	case domain.PhaseDelay:
		step := ls.steps[s.StepIndex]
		err = e.notifier.Notify(ctx, fmt.Sprintf("%s: step %d/%d in %ds: %s",
			ls.session.RecipeName, s.StepIndex+1, len(ls.steps), s.Remaining, step.Instruction))
	case domain.PhaseAction:
		step := ls.steps[s.StepIndex]
		err = e.notifier.NotifyUrgent(ctx, fmt.Sprintf("%s: step %d/%d now: %s",
			ls.session.RecipeName, s.StepIndex+1, len(ls.steps), step.Instruction))
	case domain.PhaseDone:
		err = e.notifier.Notify(ctx, fmt.Sprintf("%s is done", ls.session.RecipeName))
	}
	if err != nil {
		e.log.Warn("notify: %v", err)
	}
}

// validateSteps rejects recipes the clock must never start on.
func validateSteps(steps []domain.Step) error {
	if len(steps) == 0 {
		return domain.ErrNoSteps
	}
	for _, s := range steps {
		if err := s.Validate(); err != nil {
			return fmt.Errorf("step %d: %w", s.Number, err)
		}
	}
	return nil
}
