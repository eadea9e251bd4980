// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package ctxutil stores and loads the per-request values set by the shopcore
// middleware chain. Readers never fail: a missing value yields its zero form,
// or [slog.Default] for the logger, so services stay callable outside HTTP.
package ctxutil

import (
	"context"
	"log/slog"

	"github.com/taibuivan/shopcore/internal/platform/ctxkey"
	"github.com/taibuivan/shopcore/internal/platform/sec"
)

// lookup returns the value under k when it has type T.
func lookup[T any](ctx context.Context, k any) (T, bool) {
	value, ok := ctx.Value(k).(T)
	return value, ok
}

// # Correlation

// WithRequestID attaches the correlation ID assigned by the RequestID middleware.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxkey.KeyRequestID, id)
}

// GetRequestID returns the correlation ID, or "" outside a request.
func GetRequestID(ctx context.Context) string {
	id, _ := lookup[string](ctx, ctxkey.KeyRequestID)
	return id
}

// # Logging

// WithLogger attaches the request logger.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxkey.KeyLogger, logger)
}

// GetLogger returns the request logger, falling back to [slog.Default].
func GetLogger(ctx context.Context) *slog.Logger {
	if logger, ok := lookup[*slog.Logger](ctx, ctxkey.KeyLogger); ok && logger != nil {
		return logger
	}
	return slog.Default()
}

// # Admin Session

// WithAuthUser attaches the claims of a verified session token.
func WithAuthUser(ctx context.Context, user *sec.AuthClaims) context.Context {
	return context.WithValue(ctx, ctxkey.KeyUser, user)
}

// GetAuthUser returns the session claims, or nil when the route is public.
func GetAuthUser(ctx context.Context) *sec.AuthClaims {
	claims, _ := lookup[*sec.AuthClaims](ctx, ctxkey.KeyUser)
	return claims
}
