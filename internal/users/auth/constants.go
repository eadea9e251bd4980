// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import "time"

// # Authentication Constraints

const (
	// PasswordMinLength is the shortest accepted password.
	PasswordMinLength = 8

	// PasswordMaxBytes is the bcrypt input limit; longer inputs are rejected.
	PasswordMaxBytes = 72

	// NameMaxLength bounds the display name.
	NameMaxLength = 100

	// ActivityListLimit is the number of entries returned by the activity endpoint.
	ActivityListLimit = 100

	// DefaultSessionTokenTTL is the validity of a session token.
	DefaultSessionTokenTTL = 24 * time.Hour

	// dummyPassword seeds the digest compared against when an email is unknown.
	dummyPassword = "shopcore-timing-equaliser"
)

// # Metric Operations

const (
	OperationProvision    = "provision"
	OperationLogin        = "login"
	OperationResetRequest = "reset_request"
	OperationResetConsume = "reset_consume"
)
