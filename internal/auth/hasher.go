// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Keyfold Contributors

package auth

import (
	"github.com/samber/oops"
	"golang.org/x/crypto/bcrypt"
)

// Bcrypt cost factors by deployment mode. Production uses a deliberately
// expensive factor; test and development use the cheapest legal one so
// suites stay fast.
const (
	ProductionHashCost = 14
	MinimumHashCost    = bcrypt.MinCost
)

// ErrEmptyPassword is returned when attempting to hash an empty password.
var ErrEmptyPassword = oops.Code("AUTH_EMPTY_PASSWORD").Errorf("password cannot be empty")

// PasswordHasher provides password hashing and verification.
type PasswordHasher interface {
	// Hash produces a salted, peppered hash of the password.
	Hash(password string) (string, error)

	// Verify reports whether the password matches the stored hash.
	// A mismatch is not an error: it returns false.
	Verify(password, hash string) bool
}

// BcryptHasher implements PasswordHasher using bcrypt with a server-side
// pepper concatenated to the password before hashing. The pepper is a
// process-wide secret from configuration, distinct from bcrypt's
// per-hash salt: a leaked hash table without the pepper stays useless
// for offline dictionary attacks.
type BcryptHasher struct {
	pepper string
	cost   int
}

// NewBcryptHasher creates a BcryptHasher with the given pepper and cost.
func NewBcryptHasher(pepper string, cost int) (*BcryptHasher, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, oops.Code("AUTH_INVALID_COST").
			With("cost", cost).
			With("min", bcrypt.MinCost).
			With("max", bcrypt.MaxCost).
			Errorf("bcrypt cost out of range")
	}
	return &BcryptHasher{pepper: pepper, cost: cost}, nil
}

// Hash produces a bcrypt hash of the peppered password.
func (h *BcryptHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password+h.pepper), h.cost)
	if err != nil {
		return "", oops.Code("AUTH_HASH_FAILED").
			With("operation", "bcrypt generate").
			Wrap(err)
	}
	return string(hashed), nil
}

// Verify reports whether the peppered password matches the stored hash.
// bcrypt's comparison is resistant to timing analysis. Any comparison
// failure, including a corrupt stored hash, reads as a mismatch:
// Verify's contract is a boolean.
func (h *BcryptHasher) Verify(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password+h.pepper)) == nil
}

// Compile-time interface check.
var _ PasswordHasher = (*BcryptHasher)(nil)
