// Package session persists the last login session between CLI invocations.
package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ortelius/pdvd-auth/model"
	"gopkg.in/yaml.v2"
)

// ErrNoSession is returned by Load when nobody is logged in
var ErrNoSession = errors.New("not logged in")

// Store reads and writes a session file
type Store struct {
	path string
}

// NewStore returns a store backed by the file at path
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the backing file
func (s *Store) Path() string {
	return s.path
}

// Save writes the session with owner-only permissions
func (s *Store) Save(sess *model.Session) error {
	if sess == nil || sess.AccessToken == "" {
		return fmt.Errorf("refusing to save a session without an access token")
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}

	data, err := yaml.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	// Write to a temp file first so a crash never leaves a truncated session
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write session: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to write session: %w", err)
	}
	return nil
}

// Load reads the saved session, returning ErrNoSession when there is none
func (s *Store) Load() (*model.Session, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session: %w", err)
	}

	var sess model.Session
	if err := yaml.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("failed to parse session file %s: %w", s.path, err)
	}
	if sess.AccessToken == "" {
		return nil, ErrNoSession
	}
	return &sess, nil
}

// Clear removes the session file; clearing an absent session is not an error
func (s *Store) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove session: %w", err)
	}
	return nil
}
