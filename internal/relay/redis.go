package relay

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/hammamikhairi/kitchenops/internal/domain"
	"github.com/hammamikhairi/kitchenops/internal/logger"
)

// Compile-time interface check.
var _ domain.Relay = (*RedisRelay)(nil)

// RedisRelay carries relay messages over Redis pub/sub so several server
// instances share the same recipe channels.
type RedisRelay struct {
	client *redis.Client
	prefix string
	log    *logger.Logger
}

// NewRedisRelay connects to addr. The connection is checked lazily; a
// dead server only shows up as publish errors.
func NewRedisRelay(addr, password string, db int, prefix string, log *logger.Logger) *RedisRelay {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &RedisRelay{client: client, prefix: prefix, log: log}
}

func (r *RedisRelay) channel(recipeID string) string {
	if r.prefix == "" {
		return ChannelName(recipeID)
	}
	return r.prefix + ":" + ChannelName(recipeID)
}

// Ping checks the Redis connection.
func (r *RedisRelay) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Publish sends msg to the recipe's channel.
func (r *RedisRelay) Publish(ctx context.Context, msg Message) error {
	data, err := Encode(msg)
	if err != nil {
		return fmt.Errorf("encoding relay message: %w", err)
	}
	if err := r.client.Publish(ctx, r.channel(msg.RecipeID), data).Err(); err != nil {
		return fmt.Errorf("publishing to %s: %w", r.channel(msg.RecipeID), err)
	}
	return nil
}

// Subscribe listens on the recipe's channel. Malformed payloads are logged
// and skipped.
func (r *RedisRelay) Subscribe(ctx context.Context, recipeID string, fn func(Message)) (func(), error) {
	ps := r.client.Subscribe(ctx, r.channel(recipeID))

	// Wait for the subscription to be confirmed.
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("subscribing to %s: %w", r.channel(recipeID), err)
	}

	go func() {
		for m := range ps.Channel() {
			msg, err := Decode([]byte(m.Payload))
			if err != nil {
				r.log.Warn("relay: dropping bad message on %s: %v", m.Channel, err)
				continue
			}
			fn(msg)
		}
	}()

	stop := make(chan struct{})
	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			close(stop)
			_ = ps.Close()
		})
	}
	go func() {
		select {
		case <-ctx.Done():
			_ = ps.Close()
		case <-stop:
		}
	}()

	r.log.Debug("relay: redis subscribed to %s", r.channel(recipeID))
	return unsubscribe, nil
}

// Close releases the Redis connection pool.
func (r *RedisRelay) Close() error {
	return r.client.Close()
}
