// Package auth maintains the OAuth session against the search API:
// a file-backed credential store and a lifecycle manager that keeps a
// single valid bearer token across concurrent workers.
package auth

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// TokenState is an immutable snapshot of the current credentials.
// Replaced wholesale on refresh, never mutated in place.
type TokenState struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	ObtainedAt   time.Time `json:"obtained_at"`
}

// CredentialStore persists a single TokenState to disk and hands out
// consistent snapshots under concurrent access.
type CredentialStore struct {
	mu        sync.Mutex
	path      string
	freshness time.Duration
	state     *TokenState
}

// NewCredentialStore opens the token cache at path. An existing cache is
// loaded only if it is younger than the freshness window; legacyPath, if
// non-empty, names a bare single-token file to migrate from when the
// JSON cache is absent.
func NewCredentialStore(path, legacyPath string, freshness time.Duration) (*CredentialStore, error) {
	s := &CredentialStore{
		path:      path,
		freshness: freshness,
	}

	if err := s.load(legacyPath); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *CredentialStore) load(legacyPath string) error {
	data, err := os.ReadFile(s.path)
	switch {
	case err == nil:
		var st TokenState
		if err := json.Unmarshal(data, &st); err != nil {
			return eris.Wrap(err, "auth: parse token cache")
		}
		if st.AccessToken == "" {
			return nil
		}
		if time.Since(st.ObtainedAt) > s.freshness {
			zap.L().Debug("auth: discarding stale token cache",
				zap.Time("obtained_at", st.ObtainedAt),
			)
			// Keep the refresh token: it outlives the access token and
			// enables a silent renewal.
			if st.RefreshToken != "" {
				s.state = &TokenState{RefreshToken: st.RefreshToken, ObtainedAt: st.ObtainedAt}
			}
			return nil
		}
		s.state = &st
		return nil
	case os.IsNotExist(err):
		return s.migrateLegacy(legacyPath)
	default:
		return eris.Wrap(err, "auth: read token cache")
	}
}

// migrateLegacy imports a bare token file left behind by older tooling.
// The file holds only the access token, so freshness is judged by mtime.
func (s *CredentialStore) migrateLegacy(legacyPath string) error {
	if legacyPath == "" {
		return nil
	}
	info, err := os.Stat(legacyPath)
	if err != nil {
		return nil // nothing to migrate
	}
	if time.Since(info.ModTime()) > s.freshness {
		return nil
	}
	data, err := os.ReadFile(legacyPath)
	if err != nil {
		return nil
	}
	token := strings.TrimSpace(string(data))
	if token == "" {
		return nil
	}
	s.state = &TokenState{AccessToken: token, ObtainedAt: info.ModTime()}
	zap.L().Info("auth: migrated legacy token file", zap.String("path", legacyPath))
	return nil
}

// Get returns the current token snapshot, or ok=false if none is held.
func (s *CredentialStore) Get() (TokenState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == nil || s.state.AccessToken == "" {
		if s.state != nil && s.state.RefreshToken != "" {
			return *s.state, false
		}
		return TokenState{}, false
	}
	return *s.state, true
}

// Set replaces the held token and persists it. The write is atomic:
// a concurrent Get never observes a half-written cache file.
func (s *CredentialStore) Set(st TokenState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return eris.Wrap(err, "auth: marshal token cache")
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".tokens-*")
	if err != nil {
		return eris.Wrap(err, "auth: create temp cache")
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return eris.Wrap(err, "auth: write token cache")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return eris.Wrap(err, "auth: close token cache")
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return eris.Wrap(err, "auth: replace token cache")
	}

	cp := st
	s.state = &cp
	return nil
}

// Clear drops the access token, keeping the refresh token for silent
// renewal. Used when the API rejects the current token.
func (s *CredentialStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == nil {
		return
	}
	s.state = &TokenState{RefreshToken: s.state.RefreshToken, ObtainedAt: s.state.ObtainedAt}
}
