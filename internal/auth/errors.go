// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Keyfold Contributors

package auth

import "errors"

// Sentinel errors shared by the repository implementations. Callers match
// them with errors.Is; the oops codes wrapped around them carry the
// structured context.
var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateUsername is returned when the storage unique constraint
	// on the lowercased username rejects a write.
	ErrDuplicateUsername = errors.New("username already in use")

	// ErrDuplicateEmail is returned when the storage unique constraint
	// on the lowercased email rejects a write.
	ErrDuplicateEmail = errors.New("email already in use")

	// ErrUserMissing is returned when a session write references a user
	// id that does not exist. This indicates a programming error
	// upstream, not bad user input.
	ErrUserMissing = errors.New("referenced user does not exist")
)
