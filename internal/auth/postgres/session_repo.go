// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Keyfold Contributors

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/keyfold/keyfold/internal/auth"
)

// sessionsUserFK is the foreign key from sessions to users.
const sessionsUserFK = "sessions_user_id_fkey"

// SessionRepository implements auth.SessionRepository using PostgreSQL.
type SessionRepository struct {
	db DB
}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(db DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create stores a new session.
func (r *SessionRepository) Create(ctx context.Context, session *auth.Session) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO sessions (id, user_id, token, expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`,
		session.ID.String(),
		session.UserID.String(),
		session.Token,
		session.ExpiresAt,
		session.CreatedAt,
		session.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) &&
			pgErr.Code == pgerrcode.ForeignKeyViolation &&
			pgErr.ConstraintName == sessionsUserFK {
			return oops.Code("SESSION_USER_MISSING").
				With("user_id", session.UserID.String()).
				Wrap(auth.ErrUserMissing)
		}
		return oops.Code("SESSION_INSERT_FAILED").
			With("operation", "insert session").
			With("user_id", session.UserID.String()).
			Wrap(err)
	}
	return nil
}

// GetByValidToken retrieves the session holding the token if its expiry
// lies after now. Expired, unknown, and never-issued tokens are
// indistinguishable: all of them read as ErrNotFound.
func (r *SessionRepository) GetByValidToken(ctx context.Context, token string, now time.Time) (*auth.Session, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, user_id, token, expires_at, created_at, updated_at
		FROM sessions
		WHERE token = $1 AND expires_at > $2
	`, token, now)

	session, err := scanSession(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("SESSION_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("SESSION_GET_BY_TOKEN_FAILED").
			With("operation", "get session by token").
			Wrap(err)
	}
	return session, nil
}

// Renew extends the session's expiry and bumps updated-at in one atomic
// write, returning the updated row. The read-modify-write races of
// concurrent renewals collapse into whichever writer lands last.
func (r *SessionRepository) Renew(ctx context.Context, id ulid.ULID, expiresAt, now time.Time) (*auth.Session, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE sessions
		SET expires_at = $2, updated_at = $3
		WHERE id = $1
		RETURNING id, user_id, token, expires_at, created_at, updated_at
	`, id.String(), expiresAt, now)

	session, err := scanSession(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("SESSION_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("SESSION_RENEW_FAILED").
			With("operation", "renew session").
			With("id", id.String()).
			Wrap(err)
	}
	return session, nil
}

// scanSession scans a single row into a Session. Callers handle
// pgx.ErrNoRows.
func scanSession(row pgx.Row) (*auth.Session, error) {
	var (
		idStr     string
		userIDStr string
		token     string
		expiresAt time.Time
		createdAt time.Time
		updatedAt time.Time
	)

	err := row.Scan(&idStr, &userIDStr, &token, &expiresAt, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err //nolint:wrapcheck // callers wrap with context-specific info
		}
		return nil, oops.Code("SESSION_SCAN_FAILED").
			With("operation", "scan session").
			Wrap(err)
	}

	id, err := ulid.Parse(idStr)
	if err != nil {
		return nil, oops.Code("SESSION_INVALID_ID").
			With("operation", "parse session id").
			With("id", idStr).
			Wrap(err)
	}

	userID, err := ulid.Parse(userIDStr)
	if err != nil {
		return nil, oops.Code("SESSION_INVALID_USER_ID").
			With("operation", "parse session user id").
			With("user_id", userIDStr).
			Wrap(err)
	}

	return &auth.Session{
		ID:        id,
		UserID:    userID,
		Token:     token,
		ExpiresAt: expiresAt,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}, nil
}

// Compile-time interface check.
var _ auth.SessionRepository = (*SessionRepository)(nil)
