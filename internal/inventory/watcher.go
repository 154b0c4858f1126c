package inventory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hammamikhairi/kitchenops/internal/domain"
	"github.com/hammamikhairi/kitchenops/internal/logger"
)

// WatcherOption configures the watcher.
type WatcherOption func(*Watcher)

// WithWatchInterval sets how often the watcher scans inventory.
func WithWatchInterval(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		w.interval = d
	}
}

// Watcher periodically scans inventory and raises one alert per item when
// it drops to low stock. The item is alerted again only after it has
// recovered and dropped once more.
type Watcher struct {
	store    domain.InventoryStore
	notifier domain.Notifier
	log      *logger.Logger
	interval time.Duration

	mu      sync.Mutex
	alerted map[string]bool
}

// NewWatcher creates a watcher with the given dependencies.
func NewWatcher(store domain.InventoryStore, notifier domain.Notifier, log *logger.Logger, opts ...WatcherOption) *Watcher {
	w := &Watcher{
		store:    store,
		notifier: notifier,
		log:      log,
		interval: 5 * time.Minute,
		alerted:  make(map[string]bool),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run starts the watcher loop. Blocks until ctx is cancelled.
// Intended to be called as a goroutine.
func (w *Watcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.log.Info("inventory watcher started (interval=%s)", w.interval)
	w.check(ctx)

	for {
		select {
		case <-ctx.Done():
			w.log.Info("inventory watcher stopped")
			return
		case <-ticker.C:
			w.check(ctx)
		}
	}
}

// check runs one scan and returns how many alerts it sent.
func (w *Watcher) check(ctx context.Context) int {
	items, err := w.store.List(ctx)
	if err != nil {
		w.log.Error("inventory watcher: listing items: %v", err)
		return 0
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	seen := make(map[string]bool, len(items))
	sent := 0
	for _, it := range items {
		seen[it.ID] = true
		low := StockStatus(it) == StatusLow
		switch {
		case low && !w.alerted[it.ID]:
			w.alerted[it.ID] = true
			if err := w.alert(ctx, it); err != nil {
				w.log.Error("inventory watcher: notify: %v", err)
				continue
			}
			sent++
		case !low && w.alerted[it.ID]:
			w.log.Debug("inventory watcher: %s recovered (%g %s)", it.Name, it.Quantity, it.Unit)
			delete(w.alerted, it.ID)
		}
	}

	// Forget deleted items.
	for id := range w.alerted {
		if !seen[id] {
			delete(w.alerted, id)
		}
	}

	w.log.Debug("inventory watcher: scanned %d items, %d alert(s)", len(items), sent)
	return sent
}

func (w *Watcher) alert(ctx context.Context, it domain.InventoryItem) error {
	if it.Quantity == 0 {
		return w.notifier.NotifyUrgent(ctx, fmt.Sprintf("%s is out of stock", it.Name))
	}
	return w.notifier.Notify(ctx, fmt.Sprintf("%s is running low: %g %s left (threshold %g)",
		it.Name, it.Quantity, it.Unit, it.Threshold))
}
