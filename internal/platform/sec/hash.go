// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// PasswordHasher hashes and verifies secrets with a one-way, salted function.
type PasswordHasher interface {
	// Hash returns the digest of a plain-text password.
	Hash(plainTextPassword string) (string, error)

	// Verify reports whether plainTextPassword matches the stored digest.
	Verify(plainTextPassword, digest string) bool
}

// BcryptHasher implements [PasswordHasher] with bcrypt at a fixed cost.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher validates cost and returns a hasher.
//
// Out-of-range costs are rejected rather than silently clamped so that a
// misconfigured BCRYPT_COST fails at startup.
func NewBcryptHasher(cost int) (*BcryptHasher, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("sec: bcrypt cost %d outside [%d, %d]", cost, bcrypt.MinCost, bcrypt.MaxCost)
	}
	return &BcryptHasher{cost: cost}, nil
}

// Hash hashes a plain-text password using the bcrypt algorithm.
func (hasher *BcryptHasher) Hash(plainTextPassword string) (string, error) {
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(plainTextPassword), hasher.cost)
	if err != nil {
		return "", fmt.Errorf("sec: failed to hash password: %w", err)
	}
	return string(hashedBytes), nil
}

// Verify compares a plain-text password with its hashed version.
// bcrypt compares in constant time.
func (hasher *BcryptHasher) Verify(plainTextPassword, digest string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(digest), []byte(plainTextPassword))
	return err == nil
}

