// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Keyfold Contributors

package auth_test

import (
	"context"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/keyfold/keyfold/internal/auth"
	"github.com/keyfold/keyfold/internal/auth/mocks"
	"github.com/keyfold/keyfold/pkg/errutil"
)

func strPtr(s string) *string { return &s }

func newTestDirectory(t *testing.T) (*auth.Directory, *mocks.MockUserRepository, *mocks.MockPasswordHasher) {
	t.Helper()
	repo := mocks.NewMockUserRepository(t)
	hasher := mocks.NewMockPasswordHasher(t)
	dir, err := auth.NewDirectory(repo, hasher)
	require.NoError(t, err)
	return dir, repo, hasher
}

func TestDirectoryCreate(t *testing.T) {
	ctx := context.Background()
	input := auth.CreateUserInput{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "secret123",
	}

	t.Run("registers user with generated id and hash", func(t *testing.T) {
		dir, repo, hasher := newTestDirectory(t)

		repo.On("UsernameInUse", ctx, "alice", ulid.ULID{}).Return(false, nil)
		repo.On("EmailInUse", ctx, "alice@example.com", ulid.ULID{}).Return(false, nil)
		hasher.On("Hash", "secret123").Return("hashed-secret", nil)
		repo.On("Create", ctx, mock.AnythingOfType("*auth.User")).Return(nil)

		user, err := dir.Create(ctx, input)
		require.NoError(t, err)

		assert.NotEqual(t, ulid.ULID{}, user.ID)
		assert.Equal(t, "alice", user.Username)
		assert.Equal(t, "alice@example.com", user.Email)
		assert.Equal(t, "hashed-secret", user.PasswordHash)
		assert.Equal(t, user.CreatedAt, user.UpdatedAt)
	})

	t.Run("rejects taken username before hashing", func(t *testing.T) {
		dir, repo, _ := newTestDirectory(t)

		repo.On("UsernameInUse", ctx, "alice", ulid.ULID{}).Return(true, nil)

		_, err := dir.Create(ctx, input)
		errutil.AssertErrorCode(t, err, "USER_USERNAME_TAKEN")
		assert.ErrorIs(t, err, auth.ErrDuplicateUsername)
	})

	t.Run("rejects taken email", func(t *testing.T) {
		dir, repo, _ := newTestDirectory(t)

		repo.On("UsernameInUse", ctx, "alice", ulid.ULID{}).Return(false, nil)
		repo.On("EmailInUse", ctx, "alice@example.com", ulid.ULID{}).Return(true, nil)

		_, err := dir.Create(ctx, input)
		errutil.AssertErrorCode(t, err, "USER_EMAIL_TAKEN")
		assert.ErrorIs(t, err, auth.ErrDuplicateEmail)
	})

	t.Run("constraint race maps to the same field code", func(t *testing.T) {
		dir, repo, hasher := newTestDirectory(t)

		repo.On("UsernameInUse", ctx, "alice", ulid.ULID{}).Return(false, nil)
		repo.On("EmailInUse", ctx, "alice@example.com", ulid.ULID{}).Return(false, nil)
		hasher.On("Hash", "secret123").Return("hashed-secret", nil)
		repo.On("Create", ctx, mock.AnythingOfType("*auth.User")).
			Return(auth.ErrDuplicateUsername)

		_, err := dir.Create(ctx, input)
		errutil.AssertErrorCode(t, err, "USER_USERNAME_TAKEN")
	})

	t.Run("empty password rejected at hashing", func(t *testing.T) {
		dir, repo, hasher := newTestDirectory(t)

		repo.On("UsernameInUse", ctx, "alice", ulid.ULID{}).Return(false, nil)
		repo.On("EmailInUse", ctx, "alice@example.com", ulid.ULID{}).Return(false, nil)
		hasher.On("Hash", "").Return("", auth.ErrEmptyPassword)

		empty := input
		empty.Password = ""
		_, err := dir.Create(ctx, empty)
		require.Error(t, err)
		assert.ErrorIs(t, err, auth.ErrEmptyPassword)
		errutil.AssertErrorCode(t, err, "AUTH_EMPTY_PASSWORD")
	})
}

func TestDirectoryUpdate(t *testing.T) {
	ctx := context.Background()
	existing := func() *auth.User {
		return &auth.User{
			ID:           ulid.Make(),
			Username:     "alice",
			Email:        "alice@example.com",
			PasswordHash: "old-hash",
		}
	}

	t.Run("patches only present fields", func(t *testing.T) {
		dir, repo, _ := newTestDirectory(t)
		user := existing()

		repo.On("GetByUsername", ctx, "alice").Return(user, nil)
		repo.On("EmailInUse", ctx, "new@example.com", user.ID).Return(false, nil)
		repo.On("Update", ctx, user).Return(nil)

		updated, err := dir.Update(ctx, "alice", auth.UpdateUserInput{
			Email: strPtr("new@example.com"),
		})
		require.NoError(t, err)

		assert.Equal(t, "alice", updated.Username)
		assert.Equal(t, "new@example.com", updated.Email)
		assert.Equal(t, "old-hash", updated.PasswordHash)
		assert.False(t, updated.UpdatedAt.IsZero())
	})

	t.Run("username collision excludes own row", func(t *testing.T) {
		dir, repo, _ := newTestDirectory(t)
		user := existing()

		repo.On("GetByUsername", ctx, "alice").Return(user, nil)
		repo.On("UsernameInUse", ctx, "Alice", user.ID).Return(false, nil)
		repo.On("Update", ctx, user).Return(nil)

		updated, err := dir.Update(ctx, "alice", auth.UpdateUserInput{
			Username: strPtr("Alice"),
		})
		require.NoError(t, err)
		assert.Equal(t, "Alice", updated.Username)
	})

	t.Run("username taken by another user", func(t *testing.T) {
		dir, repo, _ := newTestDirectory(t)
		user := existing()

		repo.On("GetByUsername", ctx, "alice").Return(user, nil)
		repo.On("UsernameInUse", ctx, "bob", user.ID).Return(true, nil)

		_, err := dir.Update(ctx, "alice", auth.UpdateUserInput{
			Username: strPtr("bob"),
		})
		errutil.AssertErrorCode(t, err, "USER_USERNAME_TAKEN")
	})

	t.Run("password patch re-hashes", func(t *testing.T) {
		dir, repo, hasher := newTestDirectory(t)
		user := existing()

		repo.On("GetByUsername", ctx, "alice").Return(user, nil)
		hasher.On("Hash", "newsecret").Return("new-hash", nil)
		repo.On("Update", ctx, user).Return(nil)

		updated, err := dir.Update(ctx, "alice", auth.UpdateUserInput{
			Password: strPtr("newsecret"),
		})
		require.NoError(t, err)
		assert.Equal(t, "new-hash", updated.PasswordHash)
	})

	t.Run("unknown username propagates not found", func(t *testing.T) {
		dir, repo, _ := newTestDirectory(t)

		repo.On("GetByUsername", ctx, "ghost").Return(nil, auth.ErrNotFound)

		_, err := dir.Update(ctx, "ghost", auth.UpdateUserInput{})
		assert.ErrorIs(t, err, auth.ErrNotFound)
	})

	t.Run("constraint race on write maps to field code", func(t *testing.T) {
		dir, repo, _ := newTestDirectory(t)
		user := existing()

		repo.On("GetByUsername", ctx, "alice").Return(user, nil)
		repo.On("EmailInUse", ctx, "new@example.com", user.ID).Return(false, nil)
		repo.On("Update", ctx, user).Return(auth.ErrDuplicateEmail)

		_, err := dir.Update(ctx, "alice", auth.UpdateUserInput{
			Email: strPtr("new@example.com"),
		})
		errutil.AssertErrorCode(t, err, "USER_EMAIL_TAKEN")
	})
}
