// Package timer drives a session clock from a periodic ticker. Each
// runner owns one clock on one goroutine, so ticks and manual completions
// never interleave.
package timer

import (
	"context"
	"sync"
	"time"

	"github.com/hammamikhairi/kitchenops/internal/clock"
	"github.com/hammamikhairi/kitchenops/internal/domain"
	"github.com/hammamikhairi/kitchenops/internal/logger"
)

// Option configures the runner.
type Option func(*Runner)

// WithTickInterval sets how often the clock is ticked.
func WithTickInterval(d time.Duration) Option {
	return func(r *Runner) {
		r.tickInterval = d
	}
}

// WithTickerFactory replaces the wall-clock ticker.
func WithTickerFactory(f TickerFactory) Option {
	return func(r *Runner) {
		r.newTicker = f
	}
}

// ChangeFunc observes every state the clock passes through. It is called
// on the runner goroutine and must not call Stop.
type ChangeFunc func(domain.SessionState)

// Runner ticks a clock once per interval until the clock is done or the
// runner is stopped.
type Runner struct {
	clock        *clock.Clock
	onChange     ChangeFunc
	log          *logger.Logger
	tickInterval time.Duration
	newTicker    TickerFactory

	reqs chan func()

	mu       sync.Mutex
	running  bool
	cancel   context.CancelFunc
	finished chan struct{}
	state    domain.SessionState
}

// New creates a runner for c. onChange may be nil.
func New(c *clock.Clock, onChange ChangeFunc, log *logger.Logger, opts ...Option) *Runner {
	r := &Runner{
		clock:        c,
		onChange:     onChange,
		log:          log,
		tickInterval: time.Second,
		newTicker:    NewTicker,
		reqs:         make(chan func()),
		finished:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start starts the clock and the background tick loop. Non-blocking. The
// start state is reported through onChange before Start returns.
func (r *Runner) Start(ctx context.Context) domain.SessionState {
	r.mu.Lock()
	if r.running {
		s := r.state
		r.mu.Unlock()
		r.log.Warn("timer runner already running")
		return s
	}
	childCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.running = true
	s := r.clock.Start()
	r.state = s
	r.mu.Unlock()

	r.emit(s)

	if r.clock.Done() {
		r.finish()
		cancel()
		return s
	}

	go r.loop(childCtx)
	r.log.Debug("timer runner started (tick=%s)", r.tickInterval)
	return s
}

// Stop halts the runner. When Stop returns no further onChange call will
// happen. Safe to call more than once and after the clock finished.
func (r *Runner) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	cancel := r.cancel
	r.mu.Unlock()

	cancel()
	<-r.finished
}

// Finished is closed once the loop has exited, either because the clock
// reached done or because the runner was stopped.
func (r *Runner) Finished() <-chan struct{} {
	return r.finished
}

// State returns the last state the runner reported.
func (r *Runner) State() domain.SessionState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// MarkDone completes the current step on the runner goroutine. before is
// called first with the index of the step about to be completed; if it
// returns an error the clock is left untouched and the error is returned.
func (r *Runner) MarkDone(ctx context.Context, before func(stepIndex int) error) (domain.SessionState, error) {
	type result struct {
		state domain.SessionState
		err   error
	}
	reply := make(chan result, 1)

	req := func() {
		cur := r.clock.State()
		if r.clock.Done() {
			reply <- result{state: cur}
			return
		}
		if before != nil {
			if err := before(cur.StepIndex); err != nil {
				reply <- result{state: cur, err: err}
				return
			}
		}
		s, _ := r.clock.MarkDone()
		r.record(s)
		reply <- result{state: s}
	}

	select {
	case r.reqs <- req:
	case <-r.finished:
		return r.State(), domain.ErrSessionNotActive
	case <-ctx.Done():
		return r.State(), ctx.Err()
	}

	res := <-reply
	return res.state, res.err
}

// loop is the main tick loop.
func (r *Runner) loop(ctx context.Context) {
	ticker := r.newTicker(r.tickInterval)
	defer func() {
		ticker.Stop()
		r.finish()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			if s, changed := r.clock.Tick(); changed {
				r.record(s)
			}
		case req := <-r.reqs:
			req()
		}

		if r.clock.Done() {
			r.log.Debug("timer runner: clock done")
			return
		}
	}
}

func (r *Runner) record(s domain.SessionState) {
	r.mu.Lock()
	r.state = s
	r.mu.Unlock()
	r.emit(s)
}

func (r *Runner) emit(s domain.SessionState) {
	if r.onChange != nil {
		r.onChange(s)
	}
}

func (r *Runner) finish() {
	r.mu.Lock()
	defer r.mu.Unlock()
	select {
	case <-r.finished:
	default:
		close(r.finished)
	}
}
