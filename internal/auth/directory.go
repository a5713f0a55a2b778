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

// Directory owns user identity records: lookups, registration, and
// partial updates, all under the case-insensitive uniqueness invariant.
//
// Uniqueness is checked twice. The advisory pre-check here produces the
// friendlier error naming the colliding field; the storage unique
// constraint is the actual arbiter under concurrent writes, and its
// violation maps to the same error codes.
type Directory struct {
	users  UserRepository
	hasher PasswordHasher
}

// NewDirectory creates a Directory.
func NewDirectory(users UserRepository, hasher PasswordHasher) (*Directory, error) {
	if users == nil {
		return nil, oops.Errorf("user repository is required")
	}
	if hasher == nil {
		return nil, oops.Errorf("password hasher is required")
	}
	return &Directory{users: users, hasher: hasher}, nil
}

// Create registers a new user: advisory uniqueness checks, password
// hashing, then the insert. The generated ID and timestamps are set
// here; the repository stores what it is given.
func (d *Directory) Create(ctx context.Context, input CreateUserInput) (*User, error) {
	if err := d.checkUsernameFree(ctx, input.Username, ulid.ULID{}); err != nil {
		return nil, err
	}
	if err := d.checkEmailFree(ctx, input.Email, ulid.ULID{}); err != nil {
		return nil, err
	}

	hash, err := d.hasher.Hash(input.Password)
	if err != nil {
		return nil, oops.Code("USER_CREATE_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}

	now := time.Now().UTC()
	user := &User{
		ID:           ulid.Make(),
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := d.users.Create(ctx, user); err != nil {
		// A concurrent registration can slip past the advisory check;
		// the constraint violation gets the same field-naming codes.
		return nil, duplicateToValidation(err, oops.Code("USER_CREATE_FAILED").
			With("operation", "insert user").
			With("username", input.Username))
	}
	return user, nil
}

// FindByUsername retrieves a user by username, case-insensitively.
func (d *Directory) FindByUsername(ctx context.Context, username string) (*User, error) {
	return d.users.GetByUsername(ctx, username)
}

// FindByEmail retrieves a user by email, case-insensitively.
func (d *Directory) FindByEmail(ctx context.Context, email string) (*User, error) {
	return d.users.GetByEmail(ctx, email)
}

// FindByID retrieves a user by its identifier.
func (d *Directory) FindByID(ctx context.Context, id ulid.ULID) (*User, error) {
	return d.users.GetByID(ctx, id)
}

// Update applies a partial patch to the user currently holding username.
// Patched username and email re-run the uniqueness rules excluding the
// user's own row; a patched password is re-hashed. Updated-at is bumped
// on every call that reaches the write.
func (d *Directory) Update(ctx context.Context, username string, patch UpdateUserInput) (*User, error) {
	user, err := d.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	if patch.Username != nil {
		if err := d.checkUsernameFree(ctx, *patch.Username, user.ID); err != nil {
			return nil, err
		}
		user.Username = *patch.Username
	}

	if patch.Email != nil {
		if err := d.checkEmailFree(ctx, *patch.Email, user.ID); err != nil {
			return nil, err
		}
		user.Email = *patch.Email
	}

	if patch.Password != nil {
		hash, err := d.hasher.Hash(*patch.Password)
		if err != nil {
			return nil, oops.Code("USER_UPDATE_FAILED").
				With("operation", "hash password").
				With("id", user.ID.String()).
				Wrap(err)
		}
		user.PasswordHash = hash
	}

	user.UpdatedAt = time.Now().UTC()

	if err := d.users.Update(ctx, user); err != nil {
		return nil, duplicateToValidation(err, oops.Code("USER_UPDATE_FAILED").
			With("operation", "update user").
			With("id", user.ID.String()))
	}
	return user, nil
}

func (d *Directory) checkUsernameFree(ctx context.Context, username string, exceptID ulid.ULID) error {
	taken, err := d.users.UsernameInUse(ctx, username, exceptID)
	if err != nil {
		return oops.Code("USER_LOOKUP_FAILED").
			With("operation", "check username in use").
			Wrap(err)
	}
	if taken {
		return oops.Code("USER_USERNAME_TAKEN").
			With("username", username).
			Wrap(ErrDuplicateUsername)
	}
	return nil
}

func (d *Directory) checkEmailFree(ctx context.Context, email string, exceptID ulid.ULID) error {
	taken, err := d.users.EmailInUse(ctx, email, exceptID)
	if err != nil {
		return oops.Code("USER_LOOKUP_FAILED").
			With("operation", "check email in use").
			Wrap(err)
	}
	if taken {
		return oops.Code("USER_EMAIL_TAKEN").
			With("email", email).
			Wrap(ErrDuplicateEmail)
	}
	return nil
}

// duplicateToValidation maps storage-level unique violations to the
// field-naming validation codes; anything else keeps fallback's code.
func duplicateToValidation(err error, fallback oops.OopsErrorBuilder) error {
	switch {
	case errors.Is(err, ErrDuplicateUsername):
		return oops.Code("USER_USERNAME_TAKEN").Wrap(err)
	case errors.Is(err, ErrDuplicateEmail):
		return oops.Code("USER_EMAIL_TAKEN").Wrap(err)
	default:
		return fallback.Wrap(err)
	}
}
