// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package middleware

import (
	"net/http"
	"strings"

	"github.com/taibuivan/shopcore/internal/platform/apperr"
	"github.com/taibuivan/shopcore/internal/platform/constants"
	"github.com/taibuivan/shopcore/internal/platform/ctxutil"
	"github.com/taibuivan/shopcore/internal/platform/respond"
	"github.com/taibuivan/shopcore/internal/platform/sec"
)

// # Access Control Errors

var (
	// ErrMissingOrMalformedToken is returned when the Authorization header is
	// absent or is not exactly "Bearer <token>".
	ErrMissingOrMalformedToken = apperr.New("MISSING_OR_MALFORMED_TOKEN", http.StatusBadRequest, "Authorization header must be 'Bearer <token>'")

	// ErrInvalidToken is returned for any signature, expiry or claim failure.
	ErrInvalidToken = apperr.New("INVALID_TOKEN", http.StatusUnauthorized, "Invalid or expired token")

	// ErrInsufficientRole is returned when the caller's role is not allowed.
	ErrInsufficientRole = apperr.New("INSUFFICIENT_ROLE", http.StatusForbidden, "Insufficient permissions")
)

// TokenVerifier defines the interface needed to verify tokens in middleware.
//
// # Why an interface?
//
// Defining TokenVerifier here decouples the middleware from [sec.TokenService],
// so tests can inject a stub verifier.
type TokenVerifier interface {
	Verify(token string) (*sec.AuthClaims, error)
}

// Authenticate extracts and verifies the session token from the Authorization header.
//
// # Flow
//  1. Require 'Authorization: Bearer <token>' (scheme case-insensitive, exactly two parts).
//  2. Verify the token via [TokenVerifier].
//  3. Inject [*sec.AuthClaims] into the request context for downstream use.
//
// # Parameters
//   - verifier: The TokenVerifier instance.
//
// # Returns
//   - An [http.Handler] middleware.
func Authenticate(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {

			// ── 1. Format Validation ──────────────────────────────────────────
			token, ok := bearerToken(request.Header.Get(constants.HeaderAuthorization))
			if !ok {
				respond.Error(writer, request, ErrMissingOrMalformedToken)
				return
			}

			// ── 2. Token Verification ─────────────────────────────────────────
			claims, err := verifier.Verify(token)
			if err != nil {
				respond.Error(writer, request, ErrInvalidToken.WithCause(err))
				return
			}

			// ── 3. Context Injection ──────────────────────────────────────────
			ctx := ctxutil.WithAuthUser(request.Context(), claims)
			ctxutil.GetLogger(ctx).DebugContext(ctx, "request_authenticated")
			next.ServeHTTP(writer, request.WithContext(ctx))
		})
	}
}

// bearerToken splits "Bearer <token>" and reports whether the header had that shape.
func bearerToken(header string) (string, bool) {
	parts := strings.Split(header, " ")
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// RequireRole blocks requests whose authenticated role is not in allowed.
//
// # Usage
//
// Must be registered in the router AFTER [Authenticate]. When no claims are
// present the chain is mis-wired, and the request is refused as [ErrInvalidToken].
//
// # Flow
//  1. Read [*sec.AuthClaims] from context.
//  2. If the role is not one of allowed, abort with HTTP 403.
func RequireRole(allowed ...sec.UserRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			claims := ctxutil.GetAuthUser(request.Context())

			// ── 1. Authentication Check ───────────────────────────────────────
			if claims == nil {
				respond.Error(writer, request, ErrInvalidToken)
				return
			}

			// ── 2. Authorization Check ────────────────────────────────────────
			if !claims.Role.In(allowed...) {
				respond.Error(writer, request, ErrInsufficientRole)
				return
			}

			next.ServeHTTP(writer, request)
		})
	}
}
