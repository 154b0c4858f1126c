package relay

import (
	"context"
	"errors"
	"runtime"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hammamikhairi/kitchenops/internal/domain"
	"github.com/hammamikhairi/kitchenops/internal/logger"
)

func quietLog() *logger.Logger {
	return logger.New(logger.LevelOff, nil)
}

func receive(t *testing.T, ch <-chan Message) Message {
	t.Helper()
	select {
	case m := <-ch:
		return m
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for relay message")
		return Message{}
	}
}

func TestApplyOverwrites(t *testing.T) {
	old := domain.SessionState{StepIndex: 3, Phase: domain.PhaseAction, Remaining: 40}
	msg := Message{RecipeID: "r1", StepIndex: 0, Phase: domain.PhaseDelay, Remaining: 4}

	got := Apply(old, msg)
	assert.Equal(t, domain.SessionState{StepIndex: 0, Phase: domain.PhaseDelay, Remaining: 4}, got)

	got = Apply(old, Message{RecipeID: "r1", StepIndex: 1, Phase: domain.PhaseDone, Remaining: 7})
	assert.Equal(t, 0, got.Remaining)
	assert.Equal(t, domain.PhaseDone, got.Phase)

	got = Apply(old, Message{RecipeID: "r1", Phase: domain.PhaseAction, Remaining: -3})
	assert.Equal(t, 0, got.Remaining)
}

func TestEncodeDecode(t *testing.T) {
	msg := NewMessage("r1", "owner", domain.SessionState{StepIndex: 2, Phase: domain.PhaseAction, Remaining: 9})
	data, err := Encode(msg)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"mode":"action"`)
	assert.Contains(t, string(data), `"timer":9`)

	back, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, msg.StepIndex, back.StepIndex)
	assert.Equal(t, msg.Phase, back.Phase)

	_, err = Decode([]byte(`{"step":1}`))
	assert.Error(t, err)
	_, err = Decode([]byte(`not json`))
	assert.Error(t, err)
	_, err = Decode([]byte(`{"recipe_id":"r","mode":"sideways"}`))
	assert.Error(t, err)
}

func TestHubTwoSubscribersMirrorOwner(t *testing.T) {
	hub := NewHub(quietLog())
	defer hub.Close()
	ctx := context.Background()

	a := make(chan Message, 4)
	b := make(chan Message, 4)
	_, err := hub.Subscribe(ctx, "r1", func(m Message) { a <- m })
	require.NoError(t, err)
	_, err = hub.Subscribe(ctx, "r1", func(m Message) { b <- m })
	require.NoError(t, err)

	owner := domain.SessionState{StepIndex: 0, Phase: domain.PhaseAction, Remaining: 5}
	owner.Remaining--
	require.NoError(t, hub.Publish(ctx, NewMessage("r1", "owner", owner)))

	var local domain.SessionState
	local = Apply(local, receive(t, a))
	assert.Equal(t, owner, local)
	assert.Equal(t, owner, Apply(domain.SessionState{}, receive(t, b)))
}

func TestHubIsolatesRecipesAndUnsubscribes(t *testing.T) {
	hub := NewHub(quietLog())
	defer hub.Close()
	ctx := context.Background()

	got := make(chan Message, 4)
	unsub, err := hub.Subscribe(ctx, "r1", func(m Message) { got <- m })
	require.NoError(t, err)
	assert.Equal(t, 1, hub.Subscribers("r1"))

	require.NoError(t, hub.Publish(ctx, Message{RecipeID: "r2"}))
	select {
	case m := <-got:
		t.Fatalf("received message for another recipe: %+v", m)
	case <-time.After(50 * time.Millisecond):
	}

	unsub()
	unsub()
	assert.Equal(t, 0, hub.Subscribers("r1"))
	require.NoError(t, hub.Publish(ctx, Message{RecipeID: "r1"}))
}

func TestHubContextCancelUnsubscribes(t *testing.T) {
	hub := NewHub(quietLog())
	defer hub.Close()

	ctx, cancel := context.WithCancel(context.Background())
	_, err := hub.Subscribe(ctx, "r1", func(Message) {})
	require.NoError(t, err)
	cancel()

	assert.Eventually(t, func() bool { return hub.Subscribers("r1") == 0 }, time.Second, 10*time.Millisecond)
}

func TestHubUnsubscribeReleasesGoroutines(t *testing.T) {
	hub := NewHub(quietLog())
	defer hub.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	before := runtime.NumGoroutine()
	for range 100 {
		unsub, err := hub.Subscribe(ctx, "r1", func(Message) {})
		require.NoError(t, err)
		unsub()
	}

	assert.Equal(t, 0, hub.Subscribers("r1"))
	assert.Eventually(t, func() bool { return runtime.NumGoroutine() <= before+5 },
		time.Second, 10*time.Millisecond, "subscriber goroutines should exit after unsubscribe")
}

func TestHubKeepsPublishOrder(t *testing.T) {
	hub := NewHub(quietLog())
	defer hub.Close()
	ctx := context.Background()

	got := make(chan Message, 16)
	_, err := hub.Subscribe(ctx, "r1", func(m Message) { got <- m })
	require.NoError(t, err)

	for i := 10; i > 0; i-- {
		require.NoError(t, hub.Publish(ctx, Message{RecipeID: "r1", Phase: domain.PhaseAction, Remaining: i}))
	}
	for i := 10; i > 0; i-- {
		assert.Equal(t, i, receive(t, got).Remaining)
	}
}

func TestRedisRelay(t *testing.T) {
	srv, err := miniredis.Run()
	require.NoError(t, err)
	defer srv.Close()

	r := NewRedisRelay(srv.Addr(), "", 0, "kitchenops", quietLog())
	defer func() { _ = r.Close() }()
	ctx := context.Background()
	require.NoError(t, r.Ping(ctx))

	got := make(chan Message, 4)
	unsub, err := r.Subscribe(ctx, "r1", func(m Message) { got <- m })
	require.NoError(t, err)
	defer unsub()

	want := NewMessage("r1", "owner", domain.SessionState{StepIndex: 1, Phase: domain.PhaseDelay, Remaining: 4})
	require.NoError(t, r.Publish(ctx, want))

	m := receive(t, got)
	assert.Equal(t, want.StepIndex, m.StepIndex)
	assert.Equal(t, want.Phase, m.Phase)
	assert.Equal(t, want.Remaining, m.Remaining)
	assert.Equal(t, "owner", m.Sender)
}

type brokenRelay struct{}

var errRelayDown = errors.New("relay down")

func (brokenRelay) Publish(context.Context, Message) error { return errRelayDown }
func (brokenRelay) Subscribe(context.Context, string, func(Message)) (func(), error) {
	return nil, errRelayDown
}

func TestFallbackDegradesSilently(t *testing.T) {
	hub := NewHub(quietLog())
	defer hub.Close()
	f := NewFallback(brokenRelay{}, hub, quietLog())
	ctx := context.Background()

	got := make(chan Message, 1)
	_, err := f.Subscribe(ctx, "r1", func(m Message) { got <- m })
	require.NoError(t, err)

	require.NoError(t, f.Publish(ctx, Message{RecipeID: "r1", Remaining: 3}))
	assert.Equal(t, 3, receive(t, got).Remaining)
}
