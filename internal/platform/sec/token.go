// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// # Opaque Tokens

// GenerateSecureToken returns byteLength bytes of CSPRNG output, hex-encoded.
func GenerateSecureToken(byteLength int) (string, error) {
	if byteLength <= 0 {
		return "", fmt.Errorf("sec: token length must be positive, got %d", byteLength)
	}

	buffer := make([]byte, byteLength)
	if _, err := rand.Read(buffer); err != nil {
		return "", fmt.Errorf("sec: failed to read random bytes: %w", err)
	}

	return hex.EncodeToString(buffer), nil
}

// HashToken derives the storage digest of an opaque token (SHA-256, hex).
//
// It is a pure function: the same raw token always yields the same digest,
// which is what allows lookups by digest. Raw tokens are never persisted.
func HashToken(rawToken string) string {
	sum := sha256.Sum256([]byte(rawToken))
	return hex.EncodeToString(sum[:])
}

// # Reset Tokens

// ResetToken is a freshly generated password-reset credential.
type ResetToken struct {
	// Raw is delivered to the user and never stored.
	Raw string
	// Digest is the value persisted on the identity record.
	Digest string
	// ExpiresAt is the instant after which the token is rejected.
	ExpiresAt time.Time
}

// ResetTokenGenerator produces reset tokens with a fixed size and lifetime.
type ResetTokenGenerator struct {
	byteLength int
	timeToLive time.Duration
	now        func() time.Time
}

// NewResetTokenGenerator creates a generator. A nil clock defaults to [time.Now].
func NewResetTokenGenerator(byteLength int, timeToLive time.Duration, clock func() time.Time) *ResetTokenGenerator {
	if clock == nil {
		clock = time.Now
	}
	return &ResetTokenGenerator{
		byteLength: byteLength,
		timeToLive: timeToLive,
		now:        clock,
	}
}

// Generate creates a new raw token, its digest and its expiry.
func (generator *ResetTokenGenerator) Generate() (ResetToken, error) {
	raw, err := GenerateSecureToken(generator.byteLength)
	if err != nil {
		return ResetToken{}, err
	}

	return ResetToken{
		Raw:       raw,
		Digest:    HashToken(raw),
		ExpiresAt: generator.now().Add(generator.timeToLive),
	}, nil
}
