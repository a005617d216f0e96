// Package session persists authenticated browser sessions per tenant.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/MichalMitros/evend-publisher/internal/platform/fsutil"
	"github.com/MichalMitros/evend-publisher/internal/platform/models"
	"github.com/rs/zerolog"
)

// DefaultMaxAge is the age after which a saved session is discarded.
const DefaultMaxAge = 24 * time.Hour

// Option is custom configuration of Store.
type Option func(s *Store)

// Store keeps one session file per tenant in a directory.
type Store struct {
	dir    string
	maxAge time.Duration
	now    func() time.Time
	logger *zerolog.Logger
}

// New returns new Store keeping sessions in dir.
func New(dir string, logger *zerolog.Logger, ops ...Option) *Store {
	s := &Store{
		dir:    dir,
		maxAge: DefaultMaxAge,
		now:    func() time.Time { return time.Now().UTC() },
		logger: logger,
	}

	for _, op := range ops {
		op(s)
	}

	return s
}

// Save stores cookies as tenant's session stamped with the current time.
func (s *Store) Save(_ context.Context, tenantID string, cookies []models.Cookie) error {
	data, err := json.Marshal(models.Session{
		Timestamp: s.now(),
		Cookies:   cookies,
	})
	if err != nil {
		return fmt.Errorf("can't encode session: %w", err)
	}

	if err := fsutil.WriteFileAtomic(s.path(tenantID), data, 0o600); err != nil {
		return fmt.Errorf("can't save session: %w", err)
	}

	return nil
}

// TryLoad returns tenant's session cookies. It reports false when there is no usable session.
// An expired session is deleted.
func (s *Store) TryLoad(_ context.Context, tenantID string) ([]models.Cookie, bool, error) {
	path := s.path(tenantID)

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("can't read session: %w", err)
	}

	var session models.Session
	if err := json.Unmarshal(data, &session); err != nil {
		s.logger.Warn().Err(err).Str("tenantId", tenantID).Msg("session file is corrupted")
		return nil, false, nil
	}

	age := s.now().Sub(session.Timestamp)
	if age > s.maxAge {
		s.logger.Info().Str("tenantId", tenantID).Dur("age", age).Msg("session expired")
		if err := s.Delete(context.Background(), tenantID); err != nil {
			return nil, false, err
		}
		return nil, false, nil
	}

	return session.Cookies, true, nil
}

// Delete removes tenant's session.
func (s *Store) Delete(_ context.Context, tenantID string) error {
	err := os.Remove(s.path(tenantID))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("can't delete session: %w", err)
	}

	return nil
}

func (s *Store) path(tenantID string) string {
	return filepath.Join(s.dir, "session_"+fsutil.SafeName(tenantID)+".json")
}

// WithMaxAge sets the age after which a session is discarded.
func WithMaxAge(d time.Duration) Option {
	return func(s *Store) {
		s.maxAge = d
	}
}

// WithClock sets Store's custom time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}
