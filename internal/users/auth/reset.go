// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"fmt"
	"strings"

	"github.com/taibuivan/shopcore/internal/platform/apperr"
	"github.com/taibuivan/shopcore/internal/platform/constants"
	"github.com/taibuivan/shopcore/internal/platform/ctxutil"
	"github.com/taibuivan/shopcore/internal/platform/mailer"
	"github.com/taibuivan/shopcore/internal/platform/sec"
	"github.com/taibuivan/shopcore/internal/platform/validate"
)

// # Password Recovery

// PasswordResetService runs the two-step forgot/reset flow.
//
// Only the SHA-256 digest of a reset token is stored. The raw token exists in
// the outgoing email and nowhere else.
type PasswordResetService struct {
	credentials CredentialStore
	hasher      sec.PasswordHasher
	sender      mailer.Sender
	throttle    ResetThrottle
	generator   *sec.ResetTokenGenerator
	activity    *ActivityLog
	options     Options
}

// NewPasswordResetService constructs a new [PasswordResetService].
// A nil throttle disables the per-email cooldown.
func NewPasswordResetService(
	credentials CredentialStore,
	hasher sec.PasswordHasher,
	sender mailer.Sender,
	throttle ResetThrottle,
	activity *ActivityLog,
	options Options,
) *PasswordResetService {
	options = options.withDefaults()
	return &PasswordResetService{
		credentials: credentials,
		hasher:      hasher,
		sender:      sender,
		throttle:    throttle,
		generator:   sec.NewResetTokenGenerator(constants.ResetTokenBytes, options.ResetTTL, options.Clock),
		activity:    activity,
		options:     options,
	}
}

/*
RequestReset issues a reset token and emails the reset link.

Description: The digest and expiry are persisted before delivery. When
delivery fails both fields are cleared again on a context detached from the
caller, and the call fails with ErrDeliveryFailed even if that rollback
fails (the rollback failure is logged for reconciliation).

Parameters:
  - context: context.Context
  - email: string
  - callbackBaseURL: string (e.g. "https://shop.io/api/v1")

Returns:
  - error: ErrIdentityNotFound, ErrDeliveryFailed, RATE_LIMITED or internal failures
*/
func (service *PasswordResetService) RequestReset(context context.Context, email, callbackBaseURL string) error {
	err := service.requestReset(context, validate.NormalizeEmail(email), callbackBaseURL)
	service.options.observe(OperationResetRequest, err)
	return err
}

func (service *PasswordResetService) requestReset(context context.Context, email, callbackBaseURL string) error {
	logger := ctxutil.GetLogger(context)

	if !service.acquire(context, email) {
		return apperr.RateLimited(int(service.options.ResetCooldown.Seconds()))
	}

	storeContext, cancel := bounded(context, service.options.StoreTimeout)
	user, err := service.credentials.FindByEmail(storeContext, email)
	cancel()

	if err != nil {
		// Unknown emails keep their cooldown so probing is throttled too.
		if isNotFound(err) {
			return ErrIdentityNotFound
		}
		service.release(context, email)
		return fmt.Errorf("auth_service_reset_lookup_failed: %w", err)
	}

	token, err := service.generator.Generate()
	if err != nil {
		service.release(context, email)
		return fmt.Errorf("auth_service_generate_reset_token_failed: %w", err)
	}

	storeContext, cancel = bounded(context, service.options.StoreTimeout)
	err = service.credentials.SetResetToken(storeContext, user.ID, token.Digest, token.ExpiresAt)
	cancel()
	if err != nil {
		service.release(context, email)
		return fmt.Errorf("auth_service_save_reset_token_failed: %w", err)
	}

	message := mailer.Message{
		To:      user.Email,
		Subject: "Password reset request",
		Text:    resetMessage(resetURL(callbackBaseURL, token.Raw), service.options.ResetTTL.String()),
	}

	mailContext, cancel := bounded(context, service.options.MailTimeout)
	err = service.sender.Send(mailContext, message)
	cancel()

	if err != nil {
		service.rollback(context, user, token.Digest)
		service.release(context, email)
		logger.Warn("reset_delivery_failed", "user_id", user.ID, "error", err)
		return ErrDeliveryFailed.WithCause(err)
	}

	service.activity.Record(context, user, ActionPasswordResetRequested)
	logger.Info("reset_requested", "user_id", user.ID, "expires_at", token.ExpiresAt)

	return nil
}

// rollback clears the undeliverable token so it can never be redeemed. A
// digest that is already gone (consumed or replaced) needs no rollback.
func (service *PasswordResetService) rollback(context context.Context, user *User, digest string) {
	rollbackContext, cancel := detached(context, constants.ResetRollbackTimeout)
	defer cancel()

	err := service.credentials.ClearResetToken(rollbackContext, user.ID, digest)
	if isNotFound(err) {
		ctxutil.GetLogger(context).Debug("reset_rollback_skipped", "user_id", user.ID)
		return
	}
	if err != nil {
		ctxutil.GetLogger(context).Error("reset_rollback_failed",
			"user_id", user.ID,
			"error", err,
		)
	}
}

// acquire claims the cooldown for email. A throttle outage fails open.
func (service *PasswordResetService) acquire(context context.Context, email string) bool {
	if service.throttle == nil {
		return true
	}

	storeContext, cancel := bounded(context, service.options.StoreTimeout)
	defer cancel()

	acquired, err := service.throttle.Acquire(storeContext, email, service.options.ResetCooldown)
	if err != nil {
		ctxutil.GetLogger(context).Warn("reset_throttle_unavailable", "error", err)
		return true
	}
	return acquired
}

func (service *PasswordResetService) release(context context.Context, email string) {
	if service.throttle == nil {
		return
	}

	storeContext, cancel := detached(context, service.options.StoreTimeout)
	defer cancel()

	if err := service.throttle.Release(storeContext, email); err != nil {
		ctxutil.GetLogger(context).Warn("reset_throttle_release_failed", "error", err)
	}
}

/*
ConsumeReset redeems a reset token and replaces the password.

Description: Unknown, expired and already-used tokens all fail with
ErrInvalidOrExpiredToken. The final write is conditional on the digest still
being stored and unexpired, so of two concurrent redemptions only one wins.

Parameters:
  - context: context.Context
  - rawToken: string
  - newPassword: string

Returns:
  - error: ErrInvalidOrExpiredToken or internal failures
*/
func (service *PasswordResetService) ConsumeReset(context context.Context, rawToken, newPassword string) error {
	err := service.consumeReset(context, rawToken, newPassword)
	service.options.observe(OperationResetConsume, err)
	return err
}

func (service *PasswordResetService) consumeReset(context context.Context, rawToken, newPassword string) error {
	digest := sec.HashToken(rawToken)

	storeContext, cancel := bounded(context, service.options.StoreTimeout)
	_, err := service.credentials.FindByResetToken(storeContext, digest, service.options.Clock())
	cancel()

	// Checked before hashing so invalid tokens cost no bcrypt work.
	if err != nil {
		if isNotFound(err) {
			return ErrInvalidOrExpiredToken
		}
		return fmt.Errorf("auth_service_reset_lookup_failed: %w", err)
	}

	passwordDigest, err := service.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("auth_service_reset_password_hash_failed: %w", err)
	}

	storeContext, cancel = bounded(context, service.options.StoreTimeout)
	user, err := service.credentials.ConsumeResetToken(storeContext, digest, service.options.Clock(), passwordDigest)
	cancel()

	if err != nil {
		if isNotFound(err) {
			return ErrInvalidOrExpiredToken
		}
		return fmt.Errorf("auth_service_reset_password_update_failed: %w", err)
	}

	service.activity.Record(context, user, ActionPasswordResetCompleted)
	ctxutil.GetLogger(context).Info("reset_completed", "user_id", user.ID)

	return nil
}

// resetURL joins the callback base and the raw token.
func resetURL(callbackBaseURL, rawToken string) string {
	return strings.TrimRight(callbackBaseURL, "/") + constants.ResetPathPrefix + rawToken
}

func resetMessage(link, validity string) string {
	return "You requested a password reset.\n\n" +
		"Open the link below to choose a new password:\n\n" +
		link + "\n\n" +
		"The link is valid for " + validity + ". If you did not request a reset, ignore this email.\n"
}
