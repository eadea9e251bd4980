// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"time"

	"github.com/taibuivan/shopcore/internal/platform/sec"
)

// # Credential Data Access

// CredentialStore defines the data access contract for identity records.
//
// Lookups that match nothing return an error satisfying
// errors.Is(err, dberr.ErrNotFound). Email arguments are already normalised.
type CredentialStore interface {

	/*
		FindByEmail returns the identity with the given email.

		Parameters:
		  - context: context.Context
		  - email: string (normalised)

		Returns:
		  - *User: Hydrated entity
		  - error: dberr.ErrNotFound or storage failures
	*/
	FindByEmail(context context.Context, email string) (*User, error)

	/*
		FindByID returns the identity with the given ID.

		Parameters:
		  - context: context.Context
		  - id: string

		Returns:
		  - *User: Hydrated entity
		  - error: dberr.ErrNotFound or storage failures
	*/
	FindByID(context context.Context, id string) (*User, error)

	/*
		FindByResetToken returns the identity holding the given reset digest
		whose expiry is strictly after now.

		Parameters:
		  - context: context.Context
		  - digest: string
		  - now: time.Time

		Returns:
		  - *User: Hydrated entity
		  - error: dberr.ErrNotFound or storage failures
	*/
	FindByResetToken(context context.Context, digest string, now time.Time) (*User, error)

	/*
		CountByRoles counts identities whose role is one of roles.

		Parameters:
		  - context: context.Context
		  - roles: ...sec.UserRole

		Returns:
		  - int: Matching identities
		  - error: Storage failures
	*/
	CountByRoles(context context.Context, roles ...sec.UserRole) (int, error)

	/*
		Create inserts an identity with the role already set on user.

		Parameters:
		  - context: context.Context
		  - user: *User

		Returns:
		  - error: dberr.ErrConflict on a duplicate email, or storage failures
	*/
	Create(context context.Context, user *User) error

	/*
		CreatePrivileged atomically claims an admin seat and inserts user.

		Description: Counts current seat holders, fails when maxSeats are taken,
		sets user.Role to admin for the first seat and subadmin otherwise, then
		inserts. Concurrent callers are serialised so the cap is never exceeded.

		Parameters:
		  - context: context.Context
		  - user: *User (Role is assigned by the store)
		  - maxSeats: int

		Returns:
		  - error: ErrSeatLimitExceeded, dberr.ErrConflict, or storage failures
	*/
	CreatePrivileged(context context.Context, user *User, maxSeats int) error

	/*
		MarkOnline sets the presence fields of an identity and nothing else.

		Parameters:
		  - context: context.Context
		  - id: string
		  - lastSeen: time.Time

		Returns:
		  - error: dberr.ErrNotFound or storage failures
	*/
	MarkOnline(context context.Context, id string, lastSeen time.Time) error

	/*
		SetResetToken stores a reset digest and its expiry, replacing any
		earlier pair. The password digest is left untouched.

		Parameters:
		  - context: context.Context
		  - id: string
		  - digest: string
		  - expiry: time.Time

		Returns:
		  - error: dberr.ErrNotFound or storage failures
	*/
	SetResetToken(context context.Context, id, digest string, expiry time.Time) error

	/*
		ClearResetToken removes both reset fields while digest is still the
		stored one.

		Parameters:
		  - context: context.Context
		  - id: string
		  - digest: string

		Returns:
		  - error: dberr.ErrNotFound when digest was already consumed or replaced, or storage failures
	*/
	ClearResetToken(context context.Context, id, digest string) error

	/*
		ConsumeResetToken replaces the password digest and clears both reset
		fields, but only while digest is still stored and unexpired.

		Description: This is the single-use guard. Of two concurrent consumers
		of the same token, exactly one succeeds.

		Parameters:
		  - context: context.Context
		  - digest: string
		  - now: time.Time
		  - passwordDigest: string

		Returns:
		  - *User: The updated identity
		  - error: dberr.ErrNotFound or storage failures
	*/
	ConsumeResetToken(context context.Context, digest string, now time.Time, passwordDigest string) (*User, error)

	/*
		ListByRoles returns identities whose role is one of roles, oldest first.

		Parameters:
		  - context: context.Context
		  - roles: ...sec.UserRole

		Returns:
		  - []*User: Matching identities
		  - error: Storage failures
	*/
	ListByRoles(context context.Context, roles ...sec.UserRole) ([]*User, error)
}

// # Activity Data Access

// ActivityStore defines the data access contract for the activity log.
type ActivityStore interface {

	/*
		Record appends one activity entry.

		Parameters:
		  - context: context.Context
		  - activity: Activity

		Returns:
		  - error: Storage failures
	*/
	Record(context context.Context, activity Activity) error

	/*
		ListRecent returns up to limit entries, newest first.

		Parameters:
		  - context: context.Context
		  - limit: int

		Returns:
		  - []Activity: Entries
		  - error: Storage failures
	*/
	ListRecent(context context.Context, limit int) ([]Activity, error)
}

// # Volatile Data Access

// ResetThrottle enforces one forgot-password request per key per window.
type ResetThrottle interface {

	/*
		Acquire claims key for window.

		Parameters:
		  - context: context.Context
		  - key: string
		  - window: time.Duration

		Returns:
		  - bool: false when key is already claimed
		  - error: Storage failures
	*/
	Acquire(context context.Context, key string, window time.Duration) (bool, error)

	/*
		Release frees key before its window ends.

		Parameters:
		  - context: context.Context
		  - key: string

		Returns:
		  - error: Storage failures
	*/
	Release(context context.Context, key string) error
}
