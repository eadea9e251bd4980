// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/taibuivan/shopcore/internal/platform/dberr"
	"github.com/taibuivan/shopcore/internal/platform/sec"
)

// # Credential Store

// MemoryCredentialStore implements [CredentialStore] in process memory.
//
// It backs STORE_DRIVER=memory and the service tests. One mutex guards every
// operation, which also makes the seat claim in CreatePrivileged atomic.
type MemoryCredentialStore struct {
	mu      sync.Mutex
	byID    map[string]*User
	byEmail map[string]string
	now     func() time.Time
}

// NewMemoryCredentialStore returns an empty store.
func NewMemoryCredentialStore() *MemoryCredentialStore {
	return &MemoryCredentialStore{
		byID:    make(map[string]*User),
		byEmail: make(map[string]string),
		now:     time.Now,
	}
}

// clone copies a record so callers never alias stored state.
func clone(user *User) *User {
	copied := *user
	if user.LastSeenAt != nil {
		lastSeen := *user.LastSeenAt
		copied.LastSeenAt = &lastSeen
	}
	if user.ResetToken != nil {
		token := *user.ResetToken
		copied.ResetToken = &token
	}
	if user.ResetTokenExpiry != nil {
		expiry := *user.ResetTokenExpiry
		copied.ResetTokenExpiry = &expiry
	}
	return &copied
}

// FindByEmail implements [CredentialStore].
func (store *MemoryCredentialStore) FindByEmail(ctx context.Context, email string) (*User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	store.mu.Lock()
	defer store.mu.Unlock()

	id, ok := store.byEmail[email]
	if !ok {
		return nil, dberr.ErrNotFound
	}
	return clone(store.byID[id]), nil
}

// FindByID implements [CredentialStore].
func (store *MemoryCredentialStore) FindByID(ctx context.Context, id string) (*User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	store.mu.Lock()
	defer store.mu.Unlock()

	user, ok := store.byID[id]
	if !ok {
		return nil, dberr.ErrNotFound
	}
	return clone(user), nil
}

// FindByResetToken implements [CredentialStore].
func (store *MemoryCredentialStore) FindByResetToken(ctx context.Context, digest string, now time.Time) (*User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	store.mu.Lock()
	defer store.mu.Unlock()

	if user := store.findResetLocked(digest, now); user != nil {
		return clone(user), nil
	}
	return nil, dberr.ErrNotFound
}

func (store *MemoryCredentialStore) findResetLocked(digest string, now time.Time) *User {
	for _, user := range store.byID {
		if user.HasResetToken() && *user.ResetToken == digest && user.ResetTokenExpiry.After(now) {
			return user
		}
	}
	return nil
}

// CountByRoles implements [CredentialStore].
func (store *MemoryCredentialStore) CountByRoles(ctx context.Context, roles ...sec.UserRole) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	store.mu.Lock()
	defer store.mu.Unlock()

	return store.countLocked(roles), nil
}

func (store *MemoryCredentialStore) countLocked(roles []sec.UserRole) int {
	count := 0
	for _, user := range store.byID {
		if user.Role.In(roles...) {
			count++
		}
	}
	return count
}

// Create implements [CredentialStore].
func (store *MemoryCredentialStore) Create(ctx context.Context, user *User) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	store.mu.Lock()
	defer store.mu.Unlock()

	return store.insertLocked(user)
}

func (store *MemoryCredentialStore) insertLocked(user *User) error {
	if _, exists := store.byEmail[user.Email]; exists {
		return dberr.ErrConflict
	}

	now := store.now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	store.byID[user.ID] = clone(user)
	store.byEmail[user.Email] = user.ID
	return nil
}

// CreatePrivileged implements [CredentialStore].
func (store *MemoryCredentialStore) CreatePrivileged(ctx context.Context, user *User, maxSeats int) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	store.mu.Lock()
	defer store.mu.Unlock()

	occupied := store.countLocked(sec.PrivilegedRoles)
	if occupied >= maxSeats {
		return ErrSeatLimitExceeded
	}
	if _, exists := store.byEmail[user.Email]; exists {
		return dberr.ErrConflict
	}

	user.Role = sec.RoleSubadmin
	if occupied == 0 {
		user.Role = sec.RoleAdmin
	}
	return store.insertLocked(user)
}

// MarkOnline implements [CredentialStore].
func (store *MemoryCredentialStore) MarkOnline(ctx context.Context, id string, lastSeen time.Time) error {
	return store.update(ctx, id, func(user *User) bool {
		user.IsOnline = true
		user.LastSeenAt = &lastSeen
		return true
	})
}

// SetResetToken implements [CredentialStore].
func (store *MemoryCredentialStore) SetResetToken(ctx context.Context, id, digest string, expiry time.Time) error {
	return store.update(ctx, id, func(user *User) bool {
		user.SetResetToken(digest, expiry)
		return true
	})
}

// ClearResetToken implements [CredentialStore].
func (store *MemoryCredentialStore) ClearResetToken(ctx context.Context, id, digest string) error {
	return store.update(ctx, id, func(user *User) bool {
		if user.ResetToken == nil || *user.ResetToken != digest {
			return false
		}
		user.ClearResetToken()
		return true
	})
}

// update applies mutate to the stored record under the lock. A false return
// leaves the record as it was and reports dberr.ErrNotFound.
func (store *MemoryCredentialStore) update(ctx context.Context, id string, mutate func(user *User) bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	store.mu.Lock()
	defer store.mu.Unlock()

	existing, ok := store.byID[id]
	if !ok {
		return dberr.ErrNotFound
	}

	updated := clone(existing)
	if !mutate(updated) {
		return dberr.ErrNotFound
	}
	updated.UpdatedAt = store.now()
	store.byID[id] = updated
	return nil
}

// ConsumeResetToken implements [CredentialStore].
func (store *MemoryCredentialStore) ConsumeResetToken(ctx context.Context, digest string, now time.Time, passwordDigest string) (*User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	store.mu.Lock()
	defer store.mu.Unlock()

	user := store.findResetLocked(digest, now)
	if user == nil {
		return nil, dberr.ErrNotFound
	}

	user.PasswordDigest = passwordDigest
	user.ClearResetToken()
	user.UpdatedAt = now
	return clone(user), nil
}

// ListByRoles implements [CredentialStore].
func (store *MemoryCredentialStore) ListByRoles(ctx context.Context, roles ...sec.UserRole) ([]*User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	store.mu.Lock()
	defer store.mu.Unlock()

	users := []*User{}
	for _, user := range store.byID {
		if user.Role.In(roles...) {
			users = append(users, clone(user))
		}
	}
	sort.Slice(users, func(i, j int) bool {
		if users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].ID < users[j].ID
		}
		return users[i].CreatedAt.Before(users[j].CreatedAt)
	})
	return users, nil
}

// # Activity Store

// MemoryActivityStore implements [ActivityStore] in process memory.
type MemoryActivityStore struct {
	mu      sync.Mutex
	entries []Activity
}

// NewMemoryActivityStore returns an empty store.
func NewMemoryActivityStore() *MemoryActivityStore {
	return &MemoryActivityStore{}
}

// Record implements [ActivityStore].
func (store *MemoryActivityStore) Record(ctx context.Context, activity Activity) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	store.mu.Lock()
	defer store.mu.Unlock()

	store.entries = append(store.entries, activity)
	return nil
}

// ListRecent implements [ActivityStore].
func (store *MemoryActivityStore) ListRecent(ctx context.Context, limit int) ([]Activity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	store.mu.Lock()
	defer store.mu.Unlock()

	recent := make([]Activity, 0, min(limit, len(store.entries)))
	for index := len(store.entries) - 1; index >= 0 && len(recent) < limit; index-- {
		recent = append(recent, store.entries[index])
	}
	return recent, nil
}

// # Reset Throttle

// MemoryResetThrottle implements [ResetThrottle] in process memory.
type MemoryResetThrottle struct {
	mu     sync.Mutex
	claims map[string]time.Time
	now    func() time.Time
}

// NewMemoryResetThrottle returns an empty throttle. A nil clock defaults to [time.Now].
func NewMemoryResetThrottle(clock func() time.Time) *MemoryResetThrottle {
	if clock == nil {
		clock = time.Now
	}
	return &MemoryResetThrottle{claims: make(map[string]time.Time), now: clock}
}

// Acquire implements [ResetThrottle].
func (throttle *MemoryResetThrottle) Acquire(ctx context.Context, key string, window time.Duration) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	throttle.mu.Lock()
	defer throttle.mu.Unlock()

	now := throttle.now()
	if until, claimed := throttle.claims[key]; claimed && now.Before(until) {
		return false, nil
	}

	// Drop lapsed claims so the map stays bounded by live windows.
	for other, until := range throttle.claims {
		if !now.Before(until) {
			delete(throttle.claims, other)
		}
	}

	throttle.claims[key] = now.Add(window)
	return true, nil
}

// Release implements [ResetThrottle].
func (throttle *MemoryResetThrottle) Release(ctx context.Context, key string) error {
	throttle.mu.Lock()
	defer throttle.mu.Unlock()

	delete(throttle.claims, key)
	return nil
}
