// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"net/http"

	"github.com/taibuivan/shopcore/internal/platform/apperr"
)

// # Domain Errors

var (
	// ErrDuplicateIdentity is returned when the email already belongs to an identity.
	ErrDuplicateIdentity = apperr.New("DUPLICATE_IDENTITY", http.StatusBadRequest, "An account with this email already exists")

	// ErrSeatLimitExceeded is returned when every admin seat is taken.
	ErrSeatLimitExceeded = apperr.New("SEAT_LIMIT_EXCEEDED", http.StatusBadRequest, "The maximum number of admins has been reached")

	// ErrInvalidCredentials covers both an unknown email and a wrong password.
	ErrInvalidCredentials = apperr.New("INVALID_CREDENTIALS", http.StatusUnauthorized, "Invalid email or password")

	// ErrIdentityNotFound is returned by forgot-password for an unknown email.
	ErrIdentityNotFound = apperr.New("IDENTITY_NOT_FOUND", http.StatusBadRequest, "No account is registered with this email")

	// ErrDeliveryFailed is returned when the reset email could not be sent.
	ErrDeliveryFailed = apperr.New("DELIVERY_FAILED", http.StatusBadRequest, "The reset email could not be sent, please try again")

	// ErrInvalidOrExpiredToken covers unknown, expired and already-used reset tokens.
	ErrInvalidOrExpiredToken = apperr.New("INVALID_OR_EXPIRED_TOKEN", http.StatusBadRequest, "The reset link is invalid or has expired")
)
