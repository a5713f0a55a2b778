// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Keyfold Contributors

// Package auth implements the account and session lifecycle for Keyfold:
// peppered password hashing, the user directory with case-insensitive
// uniqueness guarantees, opaque session tokens with renewal, and
// credential authentication with a unified invalid-credentials failure.
package auth
