// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package auth implements the shopcore authentication and access-control core.

It owns admin-seat provisioning, credential verification with session-token
issuance, and the password-reset token lifecycle.

# Architecture

  - Entities: [User] and [Activity] carry no infrastructure dependencies.
  - Services: [ProvisioningService], [Service] and [PasswordResetService].
  - Stores: [CredentialStore], [ActivityStore] and [ResetThrottle], with
    PostgreSQL, Redis and in-memory implementations.
  - Transport: [Handler] exposes the services over JSON/HTTP.
*/
package auth

import (
	"time"

	"github.com/taibuivan/shopcore/internal/platform/sec"
)

// # Domain Entities

// User is an identity record: a customer or an admin-seat holder.
type User struct {
	ID             string       `json:"id"`
	Name           string       `json:"name"`
	Email          string       `json:"email"`
	PasswordDigest string       `json:"-"` // Explicitly omitted from JSON for security.
	Role           sec.UserRole `json:"role"`
	IsOnline       bool         `json:"isOnline"`
	LastSeenAt     *time.Time   `json:"lastSeenAt,omitempty"`

	// Reset fields are set together and cleared together.
	ResetToken       *string    `json:"-"`
	ResetTokenExpiry *time.Time `json:"-"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// SetResetToken stores a reset digest and its expiry.
func (user *User) SetResetToken(digest string, expiresAt time.Time) {
	user.ResetToken = &digest
	user.ResetTokenExpiry = &expiresAt
}

// ClearResetToken removes both reset fields.
func (user *User) ClearResetToken() {
	user.ResetToken = nil
	user.ResetTokenExpiry = nil
}

// HasResetToken reports whether a reset is pending.
func (user *User) HasResetToken() bool {
	return user.ResetToken != nil && user.ResetTokenExpiry != nil
}

// ActivityAction names a recorded identity event.
type ActivityAction string

const (
	ActionLoggedIn               ActivityAction = "logged_in"
	ActionPasswordResetRequested ActivityAction = "password_reset_requested"
	ActionPasswordResetCompleted ActivityAction = "password_reset_completed"
)

// Activity is one entry of the identity activity log.
type Activity struct {
	ID         string         `json:"id"`
	UserID     string         `json:"userId"`
	Email      string         `json:"email"`
	Action     ActivityAction `json:"action"`
	OccurredAt time.Time      `json:"occurredAt"`
}

// # Field Identifiers

// Global field names for validation and identity mapping in the authentication domain.
const (
	FieldName     = "name"
	FieldEmail    = "email"
	FieldPassword = "password"
	FieldToken    = "token"
	FieldMessage  = "message"
)
