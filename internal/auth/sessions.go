// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Keyfold Contributors

package auth

import (
	"context"
	"errors"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// SessionStore owns session records: token issuance, validity-filtered
// lookup, and renewal. The expiration window is fixed at construction
// and exposed so the cookie adapter can compute a matching max-age.
type SessionStore struct {
	sessions SessionRepository
	lifetime time.Duration
}

// NewSessionStore creates a SessionStore. A non-positive lifetime falls
// back to DefaultSessionLifetime.
func NewSessionStore(sessions SessionRepository, lifetime time.Duration) (*SessionStore, error) {
	if sessions == nil {
		return nil, oops.Errorf("session repository is required")
	}
	if lifetime <= 0 {
		lifetime = DefaultSessionLifetime
	}
	return &SessionStore{sessions: sessions, lifetime: lifetime}, nil
}

// Lifetime returns the expiration window applied to new and renewed
// sessions.
func (s *SessionStore) Lifetime() time.Duration {
	return s.lifetime
}

// Create issues a session for the user: fresh token, expiry = now +
// lifetime, created-at = updated-at = now. A dangling user id surfaces
// as a non-validation service error; it means a bug upstream, not bad
// input.
func (s *SessionStore) Create(ctx context.Context, userID ulid.ULID) (*Session, error) {
	token, err := NewSessionToken()
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	session := &Session{
		ID:        ulid.Make(),
		UserID:    userID,
		Token:     token,
		ExpiresAt: now.Add(s.lifetime),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, oops.Code("SESSION_CREATE_FAILED").
			With("operation", "persist session").
			With("user_id", userID.String()).
			Wrap(err)
	}
	return session, nil
}

// FindByValidToken retrieves the live session holding the token. One
// error covers a token that never existed, expired, or matches nothing:
// distinguishing those would hand an attacker an enumeration oracle.
func (s *SessionStore) FindByValidToken(ctx context.Context, token string) (*Session, error) {
	session, err := s.sessions.GetByValidToken(ctx, token, time.Now().UTC())
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, oops.Code("SESSION_INVALID").Errorf("no active session for token")
		}
		return nil, oops.Code("SESSION_LOOKUP_FAILED").
			With("operation", "get session by token").
			Wrap(err)
	}
	return session, nil
}

// Renew unconditionally extends the session's expiry to now + lifetime
// and bumps updated-at, leaving id and token unchanged. Renewal only
// ever extends, so concurrent renewals commute: the last writer's
// expiry wins and nothing is lost.
func (s *SessionStore) Renew(ctx context.Context, id ulid.ULID) (*Session, error) {
	now := time.Now().UTC()
	session, err := s.sessions.Renew(ctx, id, now.Add(s.lifetime), now)
	if err != nil {
		return nil, oops.Code("SESSION_RENEW_FAILED").
			With("operation", "extend session expiry").
			With("id", id.String()).
			Wrap(err)
	}
	return session, nil
}
