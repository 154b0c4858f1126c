package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hammamikhairi/kitchenops/internal/domain"
	"github.com/hammamikhairi/kitchenops/internal/logger"
	"github.com/hammamikhairi/kitchenops/internal/relay"
)

const testToken = "tok-123"

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func authorized(r *http.Request) bool {
	return r.Header.Get("Authorization") == "Bearer "+testToken
}

// fakeKitchen serves just enough of the API for the client.
func fakeKitchen(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	upgrader := websocket.Upgrader{}

	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["password"] != "password123" {
			writeJSON(w, http.StatusUnauthorized, APIError{Status: 401, Message: "invalid email or password"})
			return
		}
		writeJSON(w, http.StatusOK, LoginResult{
			Token:   testToken,
			Profile: &domain.Profile{ID: "p1", Email: body["email"], Role: domain.RoleChef},
		})
	})
	mux.HandleFunc("GET /auth/me", func(w http.ResponseWriter, r *http.Request) {
		if !authorized(r) {
			writeJSON(w, http.StatusUnauthorized, APIError{Status: 401, Message: "unauthorized"})
			return
		}
		writeJSON(w, http.StatusOK, domain.Profile{ID: "p1", Role: domain.RoleChef})
	})
	mux.HandleFunc("POST /recipes/{id}/session/done", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != "soup" {
			writeJSON(w, http.StatusNotFound, APIError{Status: 404, Message: "no active cooking session"})
			return
		}
		writeJSON(w, http.StatusOK, domain.SessionState{StepIndex: 1, Phase: domain.PhaseAction, Remaining: 4})
	})
	mux.HandleFunc("DELETE /recipes/{id}/session", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("GET /recipes/{id}/ws", func(w http.ResponseWriter, r *http.Request) {
		if !authorized(r) {
			writeJSON(w, http.StatusUnauthorized, APIError{Status: 401, Message: "unauthorized"})
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for i := 3; i >= 1; i-- {
			msg := relay.NewMessage(r.PathValue("id"), "server",
				domain.SessionState{Phase: domain.PhaseDelay, Remaining: i})
			data, _ := relay.Encode(msg)
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		}
		// Hold the connection open until the client leaves.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestLoginAndMe(t *testing.T) {
	srv := fakeKitchen(t)
	c := New(srv.URL, logger.New(logger.LevelOff, nil))
	ctx := context.Background()

	_, err := c.Me(ctx)
	assert.True(t, IsUnauthorized(err))

	_, err = c.Login(ctx, "chef@kitchen.test", "nope")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, "invalid email or password", apiErr.Message)

	res, err := c.Login(ctx, "chef@kitchen.test", "password123")
	require.NoError(t, err)
	assert.Equal(t, testToken, res.Token)

	p, err := c.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleChef, p.Role)
}

func TestSessionCalls(t *testing.T) {
	srv := fakeKitchen(t)
	c := New(srv.URL, logger.New(logger.LevelOff, nil), WithToken(testToken))
	ctx := context.Background()

	state, err := c.MarkDone(ctx, "soup")
	require.NoError(t, err)
	assert.Equal(t, domain.SessionState{StepIndex: 1, Phase: domain.PhaseAction, Remaining: 4}, state)

	_, err = c.MarkDone(ctx, "stew")
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	assert.NoError(t, c.StopSession(ctx, "soup"))
}

func TestFollow(t *testing.T) {
	srv := fakeKitchen(t)
	c := New(srv.URL+"/", logger.New(logger.LevelOff, nil), WithToken(testToken))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var got []int
	err := c.Follow(ctx, "soup", func(msg relay.Message) {
		assert.Equal(t, "soup", msg.RecipeID)
		got = append(got, msg.Remaining)
		if len(got) == 3 {
			cancel()
		}
	})
	assert.NoError(t, err)
	assert.Equal(t, []int{3, 2, 1}, got)
}

func TestFollowUnauthorized(t *testing.T) {
	srv := fakeKitchen(t)
	c := New(srv.URL, logger.New(logger.LevelOff, nil))

	err := c.Follow(context.Background(), "soup", func(relay.Message) {})
	assert.True(t, IsUnauthorized(err), "got %v", err)
}
