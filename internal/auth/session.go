// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Keyfold Contributors

package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Session token configuration.
const (
	// SessionTokenBytes is the entropy of a session token. 32 bytes from
	// crypto/rand renders as a fixed 64-char hex string, well past the
	// 128-bit floor needed to make enumeration infeasible.
	SessionTokenBytes = 32

	// SessionTokenLength is the rendered token length in characters.
	SessionTokenLength = SessionTokenBytes * 2

	// DefaultSessionLifetime is the expiration window applied when the
	// configuration does not override it. The cookie adapter derives its
	// max-age from the same value.
	DefaultSessionLifetime = 30 * 24 * time.Hour
)

// Session is a proof-of-authentication record. The token is the opaque
// credential presented by clients; the ID only names the row. UserID is
// a non-owning reference to the user directory.
type Session struct {
	ID        ulid.ULID `json:"id"`
	UserID    ulid.ULID `json:"user_id"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsExpiredAt reports whether the session would be invalid at the given
// instant. A session is valid strictly before its expiry.
func (s *Session) IsExpiredAt(t time.Time) bool {
	return !t.Before(s.ExpiresAt)
}

// IsExpired reports whether the session is invalid now.
func (s *Session) IsExpired() bool {
	return s.IsExpiredAt(time.Now())
}

// NewSessionToken draws a session token from a cryptographically secure
// source. Tokens are unique across all sessions ever issued; the
// storage unique constraint backs that up.
func NewSessionToken() (string, error) {
	buf := make([]byte, SessionTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", oops.Code("SESSION_TOKEN_GENERATE_FAILED").
			With("operation", "crypto/rand.Read").
			With("requested_bytes", SessionTokenBytes).
			Wrap(err)
	}
	return hex.EncodeToString(buf), nil
}

// SessionRepository manages session persistence.
type SessionRepository interface {
	// Create stores a new session. Returns ErrUserMissing (wrapped) when
	// the owning user id violates referential integrity.
	Create(ctx context.Context, session *Session) error

	// GetByValidToken retrieves the session holding the token, filtered
	// to rows whose expiry lies after now. Returns ErrNotFound (wrapped)
	// whether the token never existed, expired, or belongs to nothing;
	// callers must not be able to tell those cases apart.
	GetByValidToken(ctx context.Context, token string, now time.Time) (*Session, error)

	// Renew pushes the session's expiry to expiresAt and its updated-at
	// to now, leaving id and token untouched, and returns the updated
	// record. Returns ErrNotFound (wrapped) if the row is gone.
	Renew(ctx context.Context, id ulid.ULID, expiresAt, now time.Time) (*Session, error)
}
