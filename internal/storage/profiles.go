package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/hammamikhairi/kitchenops/internal/domain"
	"github.com/hammamikhairi/kitchenops/internal/logger"
)

// Compile-time interface check.
var _ domain.ProfileStore = (*ProfileRepo)(nil)

// ProfileRepo keeps accounts under "profile:<id>", an email index under
// "email:<email>", and login tokens under "token:<token>" with a TTL.
type ProfileRepo struct {
	db  *Badger
	log *logger.Logger
}

type profileRecord struct {
	Profile      domain.Profile `json:"profile"`
	PasswordHash []byte         `json:"password_hash"`
}

// NewProfileRepo creates a profile repository on db.
func NewProfileRepo(db *Badger, log *logger.Logger) *ProfileRepo {
	return &ProfileRepo{db: db, log: log}
}

func profileKey(id string) string { return "profile:" + id }

func emailKey(email string) string {
	return "email:" + strings.ToLower(strings.TrimSpace(email))
}

func tokenKey(token string) string { return "token:" + token }

// Create stores a new account. Emails are unique, case-insensitively.
func (r *ProfileRepo) Create(ctx context.Context, p *domain.Profile, passwordHash []byte) error {
	err := r.db.Batch(func(tx *Tx) error {
		var owner string
		err := tx.Get(emailKey(p.Email), &owner)
		if err == nil {
			return domain.ErrAlreadyExists
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		if err := tx.Set(profileKey(p.ID), profileRecord{Profile: *p, PasswordHash: passwordHash}); err != nil {
			return err
		}
		return tx.Set(emailKey(p.Email), p.ID)
	})
	if err != nil {
		return fmt.Errorf("creating profile %s: %w", p.Email, err)
	}
	r.log.Debug("profile created: %s (%s)", p.ID, p.Role)
	return nil
}

func (r *ProfileRepo) Get(ctx context.Context, id string) (*domain.Profile, error) {
	var rec profileRecord
	if err := r.db.Get(profileKey(id), &rec); err != nil {
		return nil, err
	}
	return &rec.Profile, nil
}

// ByEmail returns the account and its password hash.
func (r *ProfileRepo) ByEmail(ctx context.Context, email string) (*domain.Profile, []byte, error) {
	var id string
	if err := r.db.Get(emailKey(email), &id); err != nil {
		return nil, nil, err
	}
	var rec profileRecord
	if err := r.db.Get(profileKey(id), &rec); err != nil {
		return nil, nil, err
	}
	return &rec.Profile, rec.PasswordHash, nil
}

// Update replaces an account's profile fields. The email cannot change.
func (r *ProfileRepo) Update(ctx context.Context, p *domain.Profile) error {
	var rec profileRecord
	return r.db.Update(profileKey(p.ID), &rec, func() error {
		email := rec.Profile.Email
		rec.Profile = *p
		rec.Profile.Email = email
		return nil
	})
}

func (r *ProfileRepo) SetPasswordHash(ctx context.Context, id string, hash []byte) error {
	var rec profileRecord
	return r.db.Update(profileKey(id), &rec, func() error {
		rec.PasswordHash = hash
		return nil
	})
}

// List returns every account sorted by name.
func (r *ProfileRepo) List(ctx context.Context) ([]domain.Profile, error) {
	recs, err := ScanAll[profileRecord](r.db, "profile:")
	if err != nil {
		return nil, fmt.Errorf("listing profiles: %w", err)
	}
	out := make([]domain.Profile, 0, len(recs))
	for _, rec := range recs {
		out = append(out, rec.Profile)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *ProfileRepo) PutToken(ctx context.Context, token, profileID string, ttl time.Duration) error {
	return r.db.SetWithTTL(tokenKey(token), profileID, ttl)
}

// TokenOwner returns the profile a token belongs to. Expired and unknown
// tokens both return domain.ErrNotFound.
func (r *ProfileRepo) TokenOwner(ctx context.Context, token string) (string, error) {
	var id string
	if err := r.db.Get(tokenKey(token), &id); err != nil {
		return "", err
	}
	return id, nil
}

func (r *ProfileRepo) DeleteToken(ctx context.Context, token string) error {
	return r.db.Delete(tokenKey(token))
}
