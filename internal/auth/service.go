// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Keyfold Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/samber/oops"
)

// dummyPasswordHash is verified when the email matches no user, so a
// failed lookup costs the same as a failed comparison. This is NOT a
// real credential; it never matches any password.
//
//nolint:gosec // G101: intentionally fake hash for timing-attack mitigation, not a credential.
const dummyPasswordHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// Service turns (email, plaintext password) into an authenticated user.
//
// Email-not-found and password-mismatch stay distinguishable in logs but
// produce one identical AUTH_INVALID_CREDENTIALS failure at the
// boundary. Collapsing the two causes is deliberate anti-enumeration
// behavior; do not "improve" it.
type Service struct {
	users  UserRepository
	hasher PasswordHasher
	logger *slog.Logger
}

// NewService creates an authentication Service.
func NewService(users UserRepository, hasher PasswordHasher) (*Service, error) {
	return NewServiceWithLogger(users, hasher, slog.Default())
}

// NewServiceWithLogger creates an authentication Service with an
// explicit logger.
func NewServiceWithLogger(users UserRepository, hasher PasswordHasher, logger *slog.Logger) (*Service, error) {
	if users == nil {
		return nil, oops.Errorf("user repository is required")
	}
	if hasher == nil {
		return nil, oops.Errorf("password hasher is required")
	}
	if logger == nil {
		return nil, oops.Errorf("logger is required")
	}
	return &Service{users: users, hasher: hasher, logger: logger}, nil
}

// Authenticate verifies the credential pair and returns the user on
// success. The caller is responsible for creating a session afterwards.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	user, lookupErr := s.users.GetByEmail(ctx, email)

	targetHash := dummyPasswordHash
	userExists := false

	if lookupErr != nil {
		if !errors.Is(lookupErr, ErrNotFound) {
			return nil, oops.Code("AUTH_LOOKUP_FAILED").
				With("operation", "get user by email").
				Wrap(lookupErr)
		}
		// Keep going with the dummy hash so the comparison still runs.
	} else {
		targetHash = user.PasswordHash
		userExists = true
	}

	valid := s.hasher.Verify(password, targetHash)

	if !userExists || !valid {
		s.logger.Warn("authentication failed",
			"cause", failureCause(userExists),
			"email", email)
		return nil, invalidCredentials()
	}

	return user, nil
}

// invalidCredentials builds the single externally observable
// authentication failure.
func invalidCredentials() error {
	return oops.Code("AUTH_INVALID_CREDENTIALS").Errorf("invalid authentication credentials")
}

func failureCause(userExists bool) string {
	if userExists {
		return "password_mismatch"
	}
	return "email_not_found"
}
