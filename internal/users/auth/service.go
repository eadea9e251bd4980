// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/taibuivan/shopcore/internal/platform/apperr"
	"github.com/taibuivan/shopcore/internal/platform/ctxutil"
	"github.com/taibuivan/shopcore/internal/platform/dberr"
	"github.com/taibuivan/shopcore/internal/platform/sec"
	"github.com/taibuivan/shopcore/internal/platform/validate"
)

// # Contracts & Types

// TokenIssuer mints signed session tokens.
type TokenIssuer interface {
	Issue(userID string, role sec.UserRole, timeToLive time.Duration) (string, error)
}

// Observer receives one outcome per auth operation. [metrics.Metrics] satisfies it.
type Observer interface {
	ObserveAuth(operation, outcome string)
}

// Options tunes the auth services. Zero values fall back to defaults.
type Options struct {
	// StoreTimeout bounds every credential and activity store call.
	StoreTimeout time.Duration
	// MailTimeout bounds one reset email delivery, retries included.
	MailTimeout time.Duration
	// SessionTTL is the validity of issued session tokens.
	SessionTTL time.Duration
	// ResetTTL is the validity of reset tokens.
	ResetTTL time.Duration
	// ResetCooldown is the minimum gap between two reset requests for one email.
	ResetCooldown time.Duration

	Clock    func() time.Time
	Observer Observer
}

// Defaults applied by [Options.withDefaults].
const (
	DefaultStoreTimeout  = 5 * time.Second
	DefaultMailTimeout   = 10 * time.Second
	DefaultResetTTL      = time.Hour
	DefaultResetCooldown = time.Minute
)

func (options Options) withDefaults() Options {
	if options.StoreTimeout <= 0 {
		options.StoreTimeout = DefaultStoreTimeout
	}
	if options.MailTimeout <= 0 {
		options.MailTimeout = DefaultMailTimeout
	}
	if options.SessionTTL <= 0 {
		options.SessionTTL = DefaultSessionTokenTTL
	}
	if options.ResetTTL <= 0 {
		options.ResetTTL = DefaultResetTTL
	}
	if options.ResetCooldown <= 0 {
		options.ResetCooldown = DefaultResetCooldown
	}
	if options.Clock == nil {
		options.Clock = time.Now
	}
	return options
}

// observe reports the outcome of operation. Failures are labelled with the
// lower-cased error code; infrastructure faults become "internal_error".
func (options Options) observe(operation string, err error) {
	if options.Observer == nil {
		return
	}

	outcome := "ok"
	if err != nil {
		outcome = "internal_error"
		if appErr := apperr.As(err); appErr != nil {
			outcome = strings.ToLower(appErr.Code)
		}
	}
	options.Observer.ObserveAuth(operation, outcome)
}

// bounded derives a child context that expires after timeout.
func bounded(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, timeout)
}

// detached derives a bounded context that survives cancellation of parent.
// Rollbacks run on it so a client disconnect cannot skip them.
func detached(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(parent), timeout)
}

// isNotFound reports whether a store error means "no matching record".
func isNotFound(err error) bool {
	return errors.Is(err, dberr.ErrNotFound)
}

// # Authentication Flow

// Service verifies credentials and issues session tokens.
//
// # Review Process
//
// This service is critical for security. Both failure paths of [Service.Login]
// must stay indistinguishable in error, message and bcrypt cost.
type Service struct {
	credentials CredentialStore
	hasher      sec.PasswordHasher
	tokens      TokenIssuer
	activity    *ActivityLog
	options     Options

	// dummyDigest is compared against when the email is unknown.
	dummyDigest string
}

/*
NewService constructs a new [Service] with its dependencies.

Description: The dummy digest used on the unknown-email path is hashed here
with the configured hasher so its cost matches real digests.

Returns:
  - *Service: Ready service
  - error: The dummy digest could not be hashed
*/
func NewService(credentials CredentialStore, hasher sec.PasswordHasher, tokens TokenIssuer, activity *ActivityLog, options Options) (*Service, error) {
	dummyDigest, err := hasher.Hash(dummyPassword)
	if err != nil {
		return nil, fmt.Errorf("auth_service_dummy_digest_failed: %w", err)
	}

	return &Service{
		credentials: credentials,
		hasher:      hasher,
		tokens:      tokens,
		activity:    activity,
		options:     options.withDefaults(),
		dummyDigest: dummyDigest,
	}, nil
}

// LoginInput defines credentials for an authentication attempt.
type LoginInput struct {
	Email    string
	Password string
}

// LoginResult is the public profile returned with a fresh session token.
type LoginResult struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Email        string       `json:"email"`
	Role         sec.UserRole `json:"role"`
	SessionToken string       `json:"sessionToken"`
}

/*
Login validates credentials and issues a session token.

Description: An unknown email and a wrong password both return
ErrInvalidCredentials. The unknown-email path still runs one bcrypt
comparison against a dummy digest. On success the identity is marked online,
its last-seen time is stored and a token carrying {id, role} is minted.

Parameters:
  - context: context.Context
  - input: LoginInput

Returns:
  - *LoginResult: Public profile and session token
  - error: ErrInvalidCredentials or internal failures
*/
func (service *Service) Login(context context.Context, input LoginInput) (*LoginResult, error) {
	result, err := service.login(context, input)
	service.options.observe(OperationLogin, err)
	return result, err
}

func (service *Service) login(context context.Context, input LoginInput) (*LoginResult, error) {
	email := validate.NormalizeEmail(input.Email)

	lookupContext, cancel := bounded(context, service.options.StoreTimeout)
	user, err := service.credentials.FindByEmail(lookupContext, email)
	cancel()

	if err != nil {
		if !isNotFound(err) {
			return nil, fmt.Errorf("auth_service_login_lookup_failed: %w", err)
		}

		// Spend the same bcrypt work as a real comparison.
		service.hasher.Verify(input.Password, service.dummyDigest)
		return nil, ErrInvalidCredentials
	}

	if !service.hasher.Verify(input.Password, user.PasswordDigest) {
		return nil, ErrInvalidCredentials
	}

	// Presence transition owned by login; nothing clears it. Only the
	// presence columns are written so a concurrent reset is never undone.
	now := service.options.Clock()

	presenceContext, cancel := bounded(context, service.options.StoreTimeout)
	err = service.credentials.MarkOnline(presenceContext, user.ID, now)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("auth_service_login_presence_failed: %w", err)
	}

	token, err := service.tokens.Issue(user.ID, user.Role, service.options.SessionTTL)
	if err != nil {
		return nil, fmt.Errorf("auth_service_token_generation_failed: %w", err)
	}

	service.activity.Record(context, user, ActionLoggedIn)
	ctxutil.GetLogger(context).Info("login_succeeded", "user_id", user.ID, "role", user.Role)

	return &LoginResult{
		ID:           user.ID,
		Name:         user.Name,
		Email:        user.Email,
		Role:         user.Role,
		SessionToken: token,
	}, nil
}
