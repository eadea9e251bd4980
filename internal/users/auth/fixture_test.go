// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth_test

import (
	"context"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/taibuivan/shopcore/internal/platform/mailer"
	"github.com/taibuivan/shopcore/internal/platform/metrics"
	"github.com/taibuivan/shopcore/internal/platform/sec"
	"github.com/taibuivan/shopcore/internal/users/auth"
)

const (
	testSecret   = "0123456789abcdef0123456789abcdef"
	testBaseURL  = "https://shop.io/api/v1"
	testPassword = "correct-horse-1"
)

// fakeClock is a settable clock shared by the services and stores.
type fakeClock struct {
	mu      sync.Mutex
	current time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{current: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (clock *fakeClock) Now() time.Time {
	clock.mu.Lock()
	defer clock.mu.Unlock()
	return clock.current
}

func (clock *fakeClock) Advance(duration time.Duration) {
	clock.mu.Lock()
	defer clock.mu.Unlock()
	clock.current = clock.current.Add(duration)
}

// recordingSender captures outgoing mail and optionally fails.
type recordingSender struct {
	mu       sync.Mutex
	messages []mailer.Message
	err      error
}

func (sender *recordingSender) Send(_ context.Context, message mailer.Message) error {
	sender.mu.Lock()
	defer sender.mu.Unlock()

	if sender.err != nil {
		return sender.err
	}
	sender.messages = append(sender.messages, message)
	return nil
}

func (sender *recordingSender) fail(err error) {
	sender.mu.Lock()
	defer sender.mu.Unlock()
	sender.err = err
}

func (sender *recordingSender) last(t *testing.T) mailer.Message {
	t.Helper()
	sender.mu.Lock()
	defer sender.mu.Unlock()

	require.NotEmpty(t, sender.messages, "no message was sent")
	return sender.messages[len(sender.messages)-1]
}

var resetLinkPattern = regexp.MustCompile(`/auth/reset-password/([0-9a-f]+)`)

// rawTokenFrom extracts the raw reset token from a delivered message.
func rawTokenFrom(t *testing.T, message mailer.Message) string {
	t.Helper()
	match := resetLinkPattern.FindStringSubmatch(message.Text)
	require.Len(t, match, 2, "message carries no reset link: %q", message.Text)
	return match[1]
}

// fixture wires every auth service onto the in-memory stores.
type fixture struct {
	clock       *fakeClock
	credentials *auth.MemoryCredentialStore
	activities  *auth.MemoryActivityStore
	throttle    *auth.MemoryResetThrottle
	sender      *recordingSender
	hasher      *sec.BcryptHasher
	tokens      *sec.TokenService
	metrics     *metrics.Metrics

	activity     *auth.ActivityLog
	provisioning *auth.ProvisioningService
	service      *auth.Service
	reset        *auth.PasswordResetService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	clock := newFakeClock()

	hasher, err := sec.NewBcryptHasher(bcrypt.MinCost)
	require.NoError(t, err)

	tokens, err := sec.NewTokenService(sec.TokenConfig{
		Issuer: "shopcore.test",
		Secret: testSecret,
		Clock:  clock.Now,
	})
	require.NoError(t, err)

	f := &fixture{
		clock:       clock,
		credentials: auth.NewMemoryCredentialStore(),
		activities:  auth.NewMemoryActivityStore(),
		throttle:    auth.NewMemoryResetThrottle(clock.Now),
		sender:      &recordingSender{},
		hasher:      hasher,
		tokens:      tokens,
		metrics:     metrics.New(),
	}

	options := auth.Options{Clock: clock.Now, Observer: f.metrics}

	f.activity = auth.NewActivityLog(f.activities, options)
	f.provisioning = auth.NewProvisioningService(f.credentials, hasher, options)
	f.service, err = auth.NewService(f.credentials, hasher, tokens, f.activity, options)
	require.NoError(t, err)
	f.reset = auth.NewPasswordResetService(f.credentials, hasher, f.sender, f.throttle, f.activity, options)
	return f
}

// provision registers an admin and fails the test on error.
func (f *fixture) provision(t *testing.T, name, email string) *auth.ProvisionResult {
	t.Helper()
	result, err := f.provisioning.ProvisionAdmin(context.Background(), auth.ProvisionInput{
		Name:     name,
		Email:    email,
		Password: testPassword,
	})
	require.NoError(t, err)
	return result
}

// stubCredentials overrides selected [auth.CredentialStore] methods. Calling
// any method that is not overridden panics on the nil embedded interface.
type stubCredentials struct {
	auth.CredentialStore

	findByEmail      func(ctx context.Context, email string) (*auth.User, error)
	countByRoles     func(ctx context.Context, roles ...sec.UserRole) (int, error)
	createPrivileged func(ctx context.Context, user *auth.User, maxSeats int) error
	setResetToken    func(ctx context.Context, id, digest string, expiry time.Time) error
	clearResetToken  func(ctx context.Context, id, digest string) error
}

func (stub *stubCredentials) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	return stub.findByEmail(ctx, email)
}

func (stub *stubCredentials) CountByRoles(ctx context.Context, roles ...sec.UserRole) (int, error) {
	return stub.countByRoles(ctx, roles...)
}

func (stub *stubCredentials) CreatePrivileged(ctx context.Context, user *auth.User, maxSeats int) error {
	return stub.createPrivileged(ctx, user, maxSeats)
}

func (stub *stubCredentials) SetResetToken(ctx context.Context, id, digest string, expiry time.Time) error {
	return stub.setResetToken(ctx, id, digest, expiry)
}

func (stub *stubCredentials) ClearResetToken(ctx context.Context, id, digest string) error {
	return stub.clearResetToken(ctx, id, digest)
}
