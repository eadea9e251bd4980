// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/shopcore/internal/platform/dberr"
	"github.com/taibuivan/shopcore/internal/platform/sec"
	"github.com/taibuivan/shopcore/internal/users/auth"
)

/*
TestMemoryCredentialStore_CRUD covers inserts, lookups and presence updates.
*/
func TestMemoryCredentialStore_CRUD(t *testing.T) {
	store := auth.NewMemoryCredentialStore()
	ctx := context.Background()

	user := &auth.User{ID: "u1", Name: "Ann", Email: "ann@shop.io", Role: sec.RoleUser}
	require.NoError(t, store.Create(ctx, user))
	assert.False(t, user.CreatedAt.IsZero())

	err := store.Create(ctx, &auth.User{ID: "u2", Email: "ann@shop.io"})
	assert.ErrorIs(t, err, dberr.ErrConflict)

	found, err := store.FindByEmail(ctx, "ann@shop.io")
	require.NoError(t, err)
	assert.Equal(t, "u1", found.ID)

	// Returned records are copies.
	found.Name = "Mutated"
	again, err := store.FindByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Ann", again.Name)

	seen := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, store.MarkOnline(ctx, "u1", seen))
	saved, err := store.FindByID(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, saved.IsOnline)
	require.NotNil(t, saved.LastSeenAt)
	assert.True(t, seen.Equal(*saved.LastSeenAt))

	assert.ErrorIs(t, store.MarkOnline(ctx, "missing", seen), dberr.ErrNotFound)

	_, err = store.FindByEmail(ctx, "nobody@shop.io")
	assert.ErrorIs(t, err, dberr.ErrNotFound)
}

/*
TestMemoryCredentialStore_CreatePrivileged assigns roles from the seat count.
*/
func TestMemoryCredentialStore_CreatePrivileged(t *testing.T) {
	store := auth.NewMemoryCredentialStore()
	ctx := context.Background()

	wantRoles := []sec.UserRole{sec.RoleAdmin, sec.RoleSubadmin}
	for index, want := range wantRoles {
		user := &auth.User{ID: string(rune('a' + index)), Email: string(rune('a'+index)) + "@x.com"}
		require.NoError(t, store.CreatePrivileged(ctx, user, 2))
		assert.Equal(t, want, user.Role)
	}

	err := store.CreatePrivileged(ctx, &auth.User{ID: "c", Email: "c@x.com"}, 2)
	assert.ErrorIs(t, err, auth.ErrSeatLimitExceeded)

	err = store.CreatePrivileged(ctx, &auth.User{ID: "d", Email: "a@x.com"}, 5)
	assert.ErrorIs(t, err, dberr.ErrConflict)

	count, err := store.CountByRoles(ctx, sec.PrivilegedRoles...)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

/*
TestMemoryCredentialStore_ResetToken exercises lookup and consumption by digest.
*/
func TestMemoryCredentialStore_ResetToken(t *testing.T) {
	store := auth.NewMemoryCredentialStore()
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	user := &auth.User{ID: "u1", Email: "ann@shop.io", PasswordDigest: "old"}
	user.SetResetToken("digest-1", now.Add(time.Hour))
	require.NoError(t, store.Create(ctx, user))

	_, err := store.FindByResetToken(ctx, "digest-1", now)
	require.NoError(t, err)

	_, err = store.FindByResetToken(ctx, "digest-1", now.Add(time.Hour))
	assert.ErrorIs(t, err, dberr.ErrNotFound)

	_, err = store.ConsumeResetToken(ctx, "digest-1", now.Add(2*time.Hour), "new")
	assert.ErrorIs(t, err, dberr.ErrNotFound)

	consumed, err := store.ConsumeResetToken(ctx, "digest-1", now, "new")
	require.NoError(t, err)
	assert.Equal(t, "new", consumed.PasswordDigest)
	assert.False(t, consumed.HasResetToken())

	_, err = store.ConsumeResetToken(ctx, "digest-1", now, "newer")
	assert.ErrorIs(t, err, dberr.ErrNotFound)
}

/*
TestMemoryCredentialStore_Cancelled honours a cancelled context.
*/
func TestMemoryCredentialStore_Cancelled(t *testing.T) {
	store := auth.NewMemoryCredentialStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.FindByEmail(ctx, "ann@shop.io")
	assert.ErrorIs(t, err, context.Canceled)
}

/*
TestMemoryActivityStore_ListRecent returns newest first and honours the limit.
*/
func TestMemoryActivityStore_ListRecent(t *testing.T) {
	store := auth.NewMemoryActivityStore()
	ctx := context.Background()

	for _, id := range []string{"1", "2", "3"} {
		require.NoError(t, store.Record(ctx, auth.Activity{ID: id, Action: auth.ActionLoggedIn}))
	}

	entries, err := store.ListRecent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "3", entries[0].ID)
	assert.Equal(t, "2", entries[1].ID)
}

/*
TestMemoryResetThrottle checks claim, window expiry and release.
*/
func TestMemoryResetThrottle(t *testing.T) {
	clock := newFakeClock()
	throttle := auth.NewMemoryResetThrottle(clock.Now)
	ctx := context.Background()

	acquired, err := throttle.Acquire(ctx, "a@x.com", time.Minute)
	require.NoError(t, err)
	assert.True(t, acquired)

	acquired, _ = throttle.Acquire(ctx, "a@x.com", time.Minute)
	assert.False(t, acquired)

	acquired, _ = throttle.Acquire(ctx, "b@x.com", time.Minute)
	assert.True(t, acquired, "keys are independent")

	clock.Advance(time.Minute)
	acquired, _ = throttle.Acquire(ctx, "a@x.com", time.Minute)
	assert.True(t, acquired)

	require.NoError(t, throttle.Release(ctx, "a@x.com"))
	acquired, _ = throttle.Acquire(ctx, "a@x.com", time.Minute)
	assert.True(t, acquired)
}

/*
TestMemoryCredentialStore_TargetedUpdates leaves every column but the
targeted ones untouched.
*/
func TestMemoryCredentialStore_TargetedUpdates(t *testing.T) {
	store := auth.NewMemoryCredentialStore()
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	require.NoError(t, store.Create(ctx, &auth.User{ID: "u1", Email: "ann@shop.io", PasswordDigest: "old"}))

	require.NoError(t, store.SetResetToken(ctx, "u1", "digest-1", now.Add(time.Hour)))
	_, err := store.ConsumeResetToken(ctx, "digest-1", now, "new")
	require.NoError(t, err)

	// Writes issued from a copy read before the reset keep the new digest.
	require.NoError(t, store.MarkOnline(ctx, "u1", now))
	assert.ErrorIs(t, store.ClearResetToken(ctx, "u1", "digest-1"), dberr.ErrNotFound)

	stored, err := store.FindByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "new", stored.PasswordDigest)
	assert.True(t, stored.IsOnline)
	assert.False(t, stored.HasResetToken())

	require.NoError(t, store.SetResetToken(ctx, "u1", "digest-2", now.Add(time.Hour)))
	assert.ErrorIs(t, store.ClearResetToken(ctx, "u1", "digest-1"), dberr.ErrNotFound)
	require.NoError(t, store.ClearResetToken(ctx, "u1", "digest-2"))

	stored, err = store.FindByID(ctx, "u1")
	require.NoError(t, err)
	assert.Nil(t, stored.ResetToken)
	assert.Nil(t, stored.ResetTokenExpiry)

	assert.ErrorIs(t, store.SetResetToken(ctx, "missing", "d", now), dberr.ErrNotFound)
}
