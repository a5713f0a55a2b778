// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Keyfold Contributors

package auth

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
)

// User is an identity record. Username and email are unique across the
// directory when compared case-insensitively; the password hash never
// leaves the process boundary.
type User struct {
	ID           ulid.ULID `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// CreateUserInput carries the fields required to register a user.
// Password is the plaintext secret; the directory hashes it before
// anything is persisted.
type CreateUserInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UpdateUserInput is a partial patch. Nil fields are left untouched;
// present fields go through the same uniqueness and hashing rules as
// registration.
type UpdateUserInput struct {
	Username *string `json:"username"`
	Email    *string `json:"email"`
	Password *string `json:"password"`
}

// UserRepository manages user persistence. Implementations enforce the
// case-insensitive unique constraints at the storage layer; the
// ErrDuplicate* sentinels surface constraint violations so the
// application-level pre-checks stay advisory.
type UserRepository interface {
	// Create stores a new user. Returns ErrDuplicateUsername or
	// ErrDuplicateEmail (wrapped) when a unique constraint rejects the
	// insert.
	Create(ctx context.Context, user *User) error

	// GetByID retrieves a user by ID. Returns ErrNotFound (wrapped) on
	// a miss.
	GetByID(ctx context.Context, id ulid.ULID) (*User, error)

	// GetByUsername retrieves a user by username (case-insensitive).
	GetByUsername(ctx context.Context, username string) (*User, error)

	// GetByEmail retrieves a user by email (case-insensitive).
	GetByEmail(ctx context.Context, email string) (*User, error)

	// Update rewrites an existing user's mutable fields. Same duplicate
	// sentinels as Create; ErrNotFound if the row is gone.
	Update(ctx context.Context, user *User) error

	// UsernameInUse reports whether any user other than exceptID holds
	// the username, compared case-insensitively. A zero exceptID
	// excludes nobody.
	UsernameInUse(ctx context.Context, username string, exceptID ulid.ULID) (bool, error)

	// EmailInUse is the email counterpart of UsernameInUse.
	EmailInUse(ctx context.Context, email string, exceptID ulid.ULID) (bool, error)
}
