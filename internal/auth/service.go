// Package auth handles staff accounts: password login, bearer tokens with
// a TTL, role checks, and the client-side session file.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/hammamikhairi/kitchenops/internal/domain"
	"github.com/hammamikhairi/kitchenops/internal/logger"
)

const minPasswordLen = 8

// Option configures the service.
type Option func(*Service)

// WithTokenTTL sets how long a login token stays valid.
func WithTokenTTL(d time.Duration) Option {
	return func(s *Service) {
		s.tokenTTL = d
	}
}

// WithBcryptCost sets the password hashing cost. Tests use bcrypt.MinCost.
func WithBcryptCost(cost int) Option {
	return func(s *Service) {
		s.cost = cost
	}
}

// Service is the account API.
type Service struct {
	store    domain.ProfileStore
	log      *logger.Logger
	tokenTTL time.Duration
	cost     int
}

// NewService creates an auth service over store.
func NewService(store domain.ProfileStore, log *logger.Logger, opts ...Option) *Service {
	s := &Service{
		store:    store,
		log:      log,
		tokenTTL: 24 * time.Hour,
		cost:     bcrypt.DefaultCost,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TokenTTL returns the lifetime of issued tokens.
func (s *Service) TokenTTL() time.Duration {
	return s.tokenTTL
}

// Register creates an account.
func (s *Service) Register(ctx context.Context, name, email, password string, role domain.Role) (*domain.Profile, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	if name == "" {
		return nil, &domain.ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, &domain.ValidationError{Field: "email", Reason: "not a valid address"}
	}
	if !role.Valid() {
		return nil, &domain.ValidationError{Field: "role", Reason: "unknown role " + string(role)}
	}
	hash, err := s.hash(password)
	if err != nil {
		return nil, err
	}

	p := &domain.Profile{
		ID:        uuid.NewString(),
		Name:      name,
		Email:     email,
		Role:      role,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.Create(ctx, p, hash); err != nil {
		return nil, err
	}
	s.log.Info("account registered: %s (%s)", email, role)
	return p, nil
}

// Login checks a password and issues a new token.
func (s *Service) Login(ctx context.Context, email, password string) (string, *domain.Profile, error) {
	p, hash, err := s.store.ByEmail(ctx, email)
	if errors.Is(err, domain.ErrNotFound) {
		return "", nil, domain.ErrInvalidCredentials
	}
	if err != nil {
		return "", nil, err
	}
	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil {
		s.log.Debug("failed login for %s", email)
		return "", nil, domain.ErrInvalidCredentials
	}

	token := uuid.NewString()
	if err := s.store.PutToken(ctx, token, p.ID, s.tokenTTL); err != nil {
		return "", nil, fmt.Errorf("storing token: %w", err)
	}
	s.log.Info("login: %s", p.Email)
	return token, p, nil
}

// Logout revokes a token.
func (s *Service) Logout(ctx context.Context, token string) error {
	return s.store.DeleteToken(ctx, token)
}

// Current returns the profile a token belongs to.
func (s *Service) Current(ctx context.Context, token string) (*domain.Profile, error) {
	if token == "" {
		return nil, domain.ErrUnauthorized
	}
	id, err := s.store.TokenOwner(ctx, token)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrUnauthorized
	}
	if err != nil {
		return nil, err
	}
	p, err := s.store.Get(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrUnauthorized
	}
	return p, err
}

// ProfileUpdate holds the optional fields UpdateProfile may change.
type ProfileUpdate struct {
	Role      *domain.Role `json:"role,omitempty"`
	KitchenID *string      `json:"kitchen_id,omitempty"`
}

// UpdateProfile changes an account's role or kitchen.
func (s *Service) UpdateProfile(ctx context.Context, id string, u ProfileUpdate) (*domain.Profile, error) {
	if u.Role != nil && !u.Role.Valid() {
		return nil, &domain.ValidationError{Field: "role", Reason: "unknown role " + string(*u.Role)}
	}
	p, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if u.Role != nil {
		p.Role = *u.Role
	}
	if u.KitchenID != nil {
		p.KitchenID = strings.TrimSpace(*u.KitchenID)
	}
	if err := s.store.Update(ctx, p); err != nil {
		return nil, err
	}
	s.log.Info("profile updated: %s (%s)", p.Email, p.Role)
	return p, nil
}

// SetPassword replaces the password of the account with the given email.
func (s *Service) SetPassword(ctx context.Context, email, password string) error {
	hash, err := s.hash(password)
	if err != nil {
		return err
	}
	p, _, err := s.store.ByEmail(ctx, email)
	if err != nil {
		return err
	}
	if err := s.store.SetPasswordHash(ctx, p.ID, hash); err != nil {
		return err
	}
	s.log.Info("password changed for %s", p.Email)
	return nil
}

// Profiles lists every account.
func (s *Service) Profiles(ctx context.Context) ([]domain.Profile, error) {
	return s.store.List(ctx)
}

// Bootstrap creates an admin account when no accounts exist yet. It
// reports whether one was created.
func (s *Service) Bootstrap(ctx context.Context, email, password string) (bool, error) {
	if email == "" || password == "" {
		return false, nil
	}
	all, err := s.store.List(ctx)
	if err != nil {
		return false, err
	}
	if len(all) > 0 {
		return false, nil
	}
	if _, err := s.Register(ctx, "Administrator", email, password, domain.RoleAdmin); err != nil {
		return false, fmt.Errorf("creating admin account: %w", err)
	}
	return true, nil
}

// Require returns domain.ErrForbidden unless p has one of roles. Admins
// pass every check.
func Require(p *domain.Profile, roles ...domain.Role) error {
	if p == nil {
		return domain.ErrUnauthorized
	}
	if p.Role == domain.RoleAdmin || slices.Contains(roles, p.Role) {
		return nil
	}
	return domain.ErrForbidden
}

func (s *Service) hash(password string) ([]byte, error) {
	if len(password) < minPasswordLen {
		return nil, &domain.ValidationError{Field: "password", Reason: fmt.Sprintf("must be at least %d characters", minPasswordLen)}
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}
	return hash, nil
}
