// Package storage persists the single session token held by the client.
package storage

import (
	"context"
	"crypto/cipher"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// tokenRecord is the on-disk layout of the token file.
type tokenRecord struct {
	Token  string `json:"token"`
	Sealed bool   `json:"sealed,omitempty"`
}

// FileTokenStore keeps the session token in a JSON file so that it
// survives process restarts. The zero value is not usable; see NewFileTokenStore.
type FileTokenStore struct {
	path string
	aead cipher.AEAD
	mu   sync.Mutex
}

// Option configures a FileTokenStore.
type Option func(*FileTokenStore)

// WithAEAD seals the token at rest with the given cipher.
func WithAEAD(aead cipher.AEAD) Option {
	return func(s *FileTokenStore) { s.aead = aead }
}

// NewFileTokenStore returns a store backed by the file at path.
func NewFileTokenStore(path string, opts ...Option) *FileTokenStore {
	s := &FileTokenStore{path: path}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load returns the stored token, or "" when nothing has been saved.
func (s *FileTokenStore) Load(_ context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("open token file: %w", err)
	}
	defer f.Close()

	var rec tokenRecord
	if err := json.NewDecoder(f).Decode(&rec); err != nil {
		return "", fmt.Errorf("decode token file: %w", err)
	}
	if !rec.Sealed || rec.Token == "" {
		return rec.Token, nil
	}
	if s.aead == nil {
		return "", ErrSealedRecord
	}
	return open(s.aead, rec.Token)
}

// Save overwrites the stored token.
func (s *FileTokenStore) Save(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := tokenRecord{Token: token}
	if s.aead != nil && token != "" {
		sealed, err := seal(s.aead, token)
		if err != nil {
			return err
		}
		rec = tokenRecord{Token: sealed, Sealed: true}
	}
	return s.write(rec)
}

// Clear erases the stored token. Clearing an absent file is not an error.
func (s *FileTokenStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove token file: %w", err)
	}
	return nil
}

// write replaces the file atomically so a crash never leaves half a record.
func (s *FileTokenStore) write(rec tokenRecord) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create token dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".token-*")
	if err != nil {
		return fmt.Errorf("create temp token file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := json.NewEncoder(tmp).Encode(rec); err != nil {
		tmp.Close()
		return fmt.Errorf("encode token file: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod token file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close token file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace token file: %w", err)
	}
	return nil
}
