package membership

import (
	"context"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// SessionStore persists login sessions. One row per (user, ip, user agent)
// fingerprint: logging in again from the same device replaces the previous
// row instead of stacking a second one.
type SessionStore struct {
	repo   RepositoryManager
	logger Logger
	now    func() time.Time
}

// NewSessionStore creates a SessionStore over the shared repositories
func NewSessionStore(repo RepositoryManager) *SessionStore {
	return &SessionStore{
		repo:   repo,
		logger: defLogger{},
		now:    time.Now,
	}
}

func (s *SessionStore) WithLogger(logger Logger) *SessionStore {
	if logger != nil {
		s.logger = logger
	}
	return s
}

func (s *SessionStore) WithClock(clock func() time.Time) *SessionStore {
	if clock != nil {
		s.now = clock
	}
	return s
}

// Create stores a session for the token, replacing any previous session for
// the same fingerprint. Delete and insert run in one transaction so a crash
// cannot leave the device with zero or two rows.
func (s *SessionStore) Create(ctx context.Context, userID uuid.UUID, token string, fp Fingerprint) (*Session, error) {
	if token == "" {
		return nil, ErrTokenMissing
	}

	now := s.now()
	record := &Session{
		UserID:    userID,
		Token:     token,
		IPAddress: fp.IP,
		UserAgent: fp.UserAgent,
		CreatedAt: &now,
	}

	err := s.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := s.repo.Sessions().DeleteByFingerprintTx(ctx, tx, userID, fp); err != nil {
			return errors.Wrap(err, errors.CategoryInternal, "failed to clear previous session")
		}

		created, err := s.repo.Sessions().CreateTx(ctx, tx, record)
		if err != nil {
			return errors.Wrap(err, errors.CategoryInternal, "failed to persist session")
		}

		record = created
		return nil
	})
	if err != nil {
		return nil, err
	}

	return record, nil
}

// Revoke deletes the session matching the token. Deleting an already
// revoked token is a no-op, logout stays idempotent.
func (s *SessionStore) Revoke(ctx context.Context, token string) error {
	if token == "" {
		return ErrTokenMissing
	}

	return s.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return s.repo.Sessions().DeleteByTokenTx(ctx, tx, token)
	})
}

// RevokeAll deletes every session the user holds, across all devices.
func (s *SessionStore) RevokeAll(ctx context.Context, userID uuid.UUID) error {
	return s.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return s.repo.Sessions().DeleteByUserTx(ctx, tx, userID)
	})
}

// IsLive reports whether the token still has a session row behind it.
// Protected routes call this on every request so logout takes effect before
// the JWT naturally expires.
func (s *SessionStore) IsLive(ctx context.Context, token string) (bool, error) {
	if token == "" {
		return false, nil
	}

	exists, err := s.repo.Sessions().ExistsByToken(ctx, token)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return false, nil
		}
		return false, err
	}

	return exists, nil
}
