package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/hammamikhairi/kitchenops/internal/domain"
	"github.com/hammamikhairi/kitchenops/internal/logger"
)

// Compile-time interface check.
var _ domain.SessionStore = (*MemoryStore)(nil)

// MemoryStore holds live cooking sessions, one per recipe. Sessions do not
// survive a restart. Safe for concurrent access.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*domain.Session
	log      *logger.Logger
}

// NewMemoryStore creates an empty in-memory session store.
func NewMemoryStore(log *logger.Logger) *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*domain.Session),
		log:      log,
	}
}

// Save stores a copy of the session under its recipe. Overwrites if one
// already exists.
func (s *MemoryStore) Save(ctx context.Context, session *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *session
	s.sessions[session.RecipeID] = &cp
	s.log.Debug("saving session %s (recipe=%s, state=%s)", session.ID, session.RecipeID, session.State)
	return nil
}

// Load returns the live session for a recipe.
func (s *MemoryStore) Load(ctx context.Context, recipeID string) (*domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[recipeID]
	if !ok {
		s.log.Debug("no session for recipe %s", recipeID)
		return nil, domain.ErrNotFound
	}
	cp := *sess
	return &cp, nil
}

// Delete removes the session for a recipe.
func (s *MemoryStore) Delete(ctx context.Context, recipeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[recipeID]; !ok {
		return domain.ErrNotFound
	}
	delete(s.sessions, recipeID)
	s.log.Debug("deleted session for recipe %s", recipeID)
	return nil
}

// List returns every live session, oldest first.
func (s *MemoryStore) List(ctx context.Context) ([]*domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		cp := *sess
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.Before(out[j].StartedAt) })
	s.log.Debug("listing sessions, count=%d", len(out))
	return out, nil
}
