// Package client talks to a kitchenops server for kitchenctl: REST calls
// for auth and cooking sessions, and a WebSocket for following a session
// live.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/hammamikhairi/kitchenops/internal/domain"
	"github.com/hammamikhairi/kitchenops/internal/logger"
	"github.com/hammamikhairi/kitchenops/internal/relay"
)

// Option configures the Client.
type Option func(*Client)

// WithHTTPTimeout sets the HTTP client timeout.
func WithHTTPTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithToken sets the bearer token sent with every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// APIError is a non-2xx response from the server.
type APIError struct {
	Status  int    `json:"status"`
	Message string `json:"error"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server: %d %s", e.Status, e.Message)
}

// Unwrap maps the status back onto the domain error it came from, so
// callers can use errors.Is.
func (e *APIError) Unwrap() error {
	switch e.Status {
	case http.StatusUnauthorized:
		return domain.ErrUnauthorized
	case http.StatusForbidden:
		return domain.ErrForbidden
	case http.StatusNotFound:
		return domain.ErrNotFound
	case http.StatusConflict:
		return domain.ErrAlreadyExists
	}
	return nil
}

// LoginResult is what a successful login returns.
type LoginResult struct {
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expires_at"`
	Profile   *domain.Profile `json:"profile"`
}

// Client talks to one kitchenops server.
type Client struct {
	base   string
	token  string
	http   *http.Client
	dialer *websocket.Dialer
	log    *logger.Logger
}

// New creates a client for the server at baseURL, e.g. "http://localhost:8080".
func New(baseURL string, log *logger.Logger, opts ...Option) *Client {
	c := &Client{
		base:   strings.TrimRight(baseURL, "/"),
		http:   &http.Client{Timeout: 15 * time.Second},
		dialer: websocket.DefaultDialer,
		log:    log,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Login exchanges credentials for a token and uses it from then on.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	var res LoginResult
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/auth/login", body, &res); err != nil {
		return nil, err
	}
	c.token = res.Token
	return &res, nil
}

// Logout revokes the current token.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/auth/logout", nil, nil)
}

// Me returns the profile the token belongs to.
func (c *Client) Me(ctx context.Context) (*domain.Profile, error) {
	var p domain.Profile
	if err := c.do(ctx, http.MethodGet, "/auth/me", nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Recipes lists recipes, optionally matching search.
func (c *Client) Recipes(ctx context.Context, search string) ([]domain.RecipeSummary, error) {
	path := "/recipes"
	if search != "" {
		path += "?search=" + url.QueryEscape(search)
	}
	var out []domain.RecipeSummary
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Recipe returns a recipe with its steps.
func (c *Client) Recipe(ctx context.Context, id string) (*domain.Recipe, error) {
	var r domain.Recipe
	if err := c.do(ctx, http.MethodGet, "/recipes/"+url.PathEscape(id), nil, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// StartSession starts cooking a recipe on the server.
func (c *Client) StartSession(ctx context.Context, recipeID string) (*domain.Session, error) {
	var s domain.Session
	if err := c.do(ctx, http.MethodPost, sessionPath(recipeID), nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Session returns a recipe's live session.
func (c *Client) Session(ctx context.Context, recipeID string) (*domain.Session, error) {
	var s domain.Session
	if err := c.do(ctx, http.MethodGet, sessionPath(recipeID), nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// MarkDone completes the current step of a recipe's session.
func (c *Client) MarkDone(ctx context.Context, recipeID string) (domain.SessionState, error) {
	var s domain.SessionState
	err := c.do(ctx, http.MethodPost, sessionPath(recipeID)+"/done", nil, &s)
	return s, err
}

// StopSession cancels a recipe's session.
func (c *Client) StopSession(ctx context.Context, recipeID string) error {
	return c.do(ctx, http.MethodDelete, sessionPath(recipeID), nil, nil)
}

func sessionPath(recipeID string) string {
	return "/recipes/" + url.PathEscape(recipeID) + "/session"
}

// Follow streams a recipe's relay messages to fn until ctx is cancelled
// or the connection drops. A cancelled ctx returns nil.
func (c *Client) Follow(ctx context.Context, recipeID string, fn func(relay.Message)) error {
	u, err := url.Parse(c.base + "/recipes/" + url.PathEscape(recipeID) + "/ws")
	if err != nil {
		return fmt.Errorf("client: parse url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}

	header := http.Header{}
	if c.token != "" {
		header.Set("Authorization", "Bearer "+c.token)
	}

	conn, resp, err := c.dialer.DialContext(ctx, u.String(), header)
	if err != nil {
		if resp != nil {
			defer resp.Body.Close()
			return decodeError(resp)
		}
		return fmt.Errorf("client: dial %s: %w", u, err)
	}
	c.log.Debug("client: following %s", recipeID)

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			_ = conn.Close()
		case <-done:
			_ = conn.Close()
		}
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("client: follow %s: %w", recipeID, err)
		}
		msg, err := relay.Decode(raw)
		if err != nil {
			c.log.Warn("client: ignoring malformed relay message: %v", err)
			continue
		}
		fn(msg)
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("client: marshal body: %w", err)
		}
		r = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, r)
	if err != nil {
		return fmt.Errorf("client: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	c.log.Debug("client: %s %s", method, path)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("client: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("client: unmarshal response: %w", err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err := json.Unmarshal(data, apiErr); err != nil || apiErr.Message == "" {
		apiErr.Message = strings.TrimSpace(string(data))
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
	}
	apiErr.Status = resp.StatusCode
	return apiErr
}

// IsUnauthorized reports whether err means the token is missing or expired.
func IsUnauthorized(err error) bool {
	return errors.Is(err, domain.ErrUnauthorized)
}
