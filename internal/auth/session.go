package auth

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Session is what kitchenctl remembers between runs after a login.
type Session struct {
	Server    string    `toml:"server"`
	Token     string    `toml:"token"`
	ProfileID string    `toml:"profile_id"`
	Email     string    `toml:"email"`
	Role      string    `toml:"role"`
	ExpiresAt time.Time `toml:"expires_at"`
}

// Expired reports whether the session's token is past its lifetime.
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}

// DefaultSessionPath returns the default path of the session file.
func DefaultSessionPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "kitchenops", "session.toml")
}

// LoadSession reads the session file at path. A missing file returns
// ok=false and no error.
func LoadSession(path string) (Session, bool, error) {
	var s Session
	if _, err := toml.DecodeFile(path, &s); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Session{}, false, nil
		}
		return Session{}, false, fmt.Errorf("reading session file: %w", err)
	}
	if s.Token == "" {
		return Session{}, false, nil
	}
	return s, true, nil
}

// SaveSession writes s to path with mode 0600, creating parent
// directories as needed.
func SaveSession(path string, s Session) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating session directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("opening session file: %w", err)
	}
	if encErr := toml.NewEncoder(f).Encode(s); encErr != nil {
		f.Close()
		return encErr
	}
	return f.Close()
}

// ClearSession deletes the session file. A missing file is not an error.
func ClearSession(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing session file: %w", err)
	}
	return nil
}
