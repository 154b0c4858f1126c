package timer

import "time"

// Ticker delivers one value per interval. It abstracts time.Ticker so the
// runner can be driven by hand in tests.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// TickerFactory builds a Ticker for the given interval.
type TickerFactory func(d time.Duration) Ticker

type realTicker struct{ t *time.Ticker }

// NewTicker returns a Ticker backed by time.Ticker.
func NewTicker(d time.Duration) Ticker {
	return &realTicker{t: time.NewTicker(d)}
}

func (r *realTicker) C() <-chan time.Time { return r.t.C }
func (r *realTicker) Stop()               { r.t.Stop() }

// ManualTicker only ticks when Fire is called.
type ManualTicker struct {
	ch   chan time.Time
	stop chan struct{}
}

// NewManualTicker creates a ticker for tests.
func NewManualTicker() *ManualTicker {
	return &ManualTicker{
		ch:   make(chan time.Time),
		stop: make(chan struct{}),
	}
}

// Factory returns a TickerFactory that always hands out m.
func (m *ManualTicker) Factory() TickerFactory {
	return func(time.Duration) Ticker { return m }
}

// Fire delivers one tick. It blocks until the consumer takes it and
// reports false if the ticker was stopped first.
func (m *ManualTicker) Fire() bool {
	select {
	case m.ch <- time.Now():
		return true
	case <-m.stop:
		return false
	}
}

func (m *ManualTicker) C() <-chan time.Time { return m.ch }

func (m *ManualTicker) Stop() {
	select {
	case <-m.stop:
	default:
		close(m.stop)
	}
}
