package relay

import (
	"context"

	"github.com/hammamikhairi/kitchenops/internal/domain"
	"github.com/hammamikhairi/kitchenops/internal/logger"
)

// Compile-time interface check.
var _ domain.Relay = (*Fallback)(nil)

// Fallback uses a primary relay and drops to a secondary one whenever the
// primary errors. Failures of both are logged and swallowed.
type Fallback struct {
	primary   domain.Relay
	secondary domain.Relay
	log       *logger.Logger
}

// NewFallback wraps primary with secondary.
func NewFallback(primary, secondary domain.Relay, log *logger.Logger) *Fallback {
	return &Fallback{primary: primary, secondary: secondary, log: log}
}

// Publish never returns an error.
func (f *Fallback) Publish(ctx context.Context, msg Message) error {
	err := f.primary.Publish(ctx, msg)
	if err == nil {
		return nil
	}
	f.log.Warn("relay: primary publish failed, using local relay: %v", err)
	if err := f.secondary.Publish(ctx, msg); err != nil {
		f.log.Warn("relay: local publish failed: %v", err)
	}
	return nil
}

// Subscribe subscribes on the primary, or the secondary when the primary
// is unavailable.
func (f *Fallback) Subscribe(ctx context.Context, recipeID string, fn func(Message)) (func(), error) {
	unsub, err := f.primary.Subscribe(ctx, recipeID, fn)
	if err == nil {
		return unsub, nil
	}
	f.log.Warn("relay: primary subscribe failed, using local relay: %v", err)
	return f.secondary.Subscribe(ctx, recipeID, fn)
}
