// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package ctxkey names the request-scoped values shopcore carries through
// [context.Context]: the correlation ID, the request logger and the verified
// admin-seat claims. Only ctxutil should read or write them.
package ctxkey

// key is unexported so no other package can build a colliding key.
type key uint8

const (
	// KeyRequestID holds the X-Request-ID value echoed on every response.
	KeyRequestID key = iota + 1

	// KeyUser holds the [*sec.AuthClaims] of the bearer session.
	KeyUser

	// KeyLogger holds the request logger enriched with request_id.
	KeyLogger
)
