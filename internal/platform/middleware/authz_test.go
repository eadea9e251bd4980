// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package middleware_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/shopcore/internal/platform/ctxutil"
	"github.com/taibuivan/shopcore/internal/platform/middleware"
	"github.com/taibuivan/shopcore/internal/platform/sec"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func decodeError(t *testing.T, recorder *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&body))
	return body
}

// protectedRouter mounts Authenticate + RequireRole in front of a handler that
// echoes the caller's id.
func protectedRouter(verifier middleware.TokenVerifier, allowed ...sec.UserRole) http.Handler {
	router := chi.NewRouter()
	router.With(middleware.Authenticate(verifier), middleware.RequireRole(allowed...)).
		Get("/protected", func(writer http.ResponseWriter, request *http.Request) {
			_, _ = writer.Write([]byte(ctxutil.GetAuthUser(request.Context()).UserID))
		})
	return router
}

/*
TestAuthenticate_HeaderShapes checks every way the Authorization header can be
malformed, plus the accepted forms.
*/
func TestAuthenticate_HeaderShapes(t *testing.T) {
	tokens, err := sec.NewTokenService(sec.TokenConfig{Issuer: "shopcore.test", Secret: testSecret})
	require.NoError(t, err)

	token, err := tokens.Issue("user-1", sec.RoleAdmin, time.Hour)
	require.NoError(t, err)

	handler := protectedRouter(tokens, sec.RoleAdmin, sec.RoleSubadmin)

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantCode   string
	}{
		{"missing_header", "", http.StatusBadRequest, "MISSING_OR_MALFORMED_TOKEN"},
		{"wrong_scheme", "Token " + token, http.StatusBadRequest, "MISSING_OR_MALFORMED_TOKEN"},
		{"basic_scheme", "Basic dXNlcjpwYXNz", http.StatusBadRequest, "MISSING_OR_MALFORMED_TOKEN"},
		{"scheme_only", "Bearer", http.StatusBadRequest, "MISSING_OR_MALFORMED_TOKEN"},
		{"three_parts", "Bearer " + token + " extra", http.StatusBadRequest, "MISSING_OR_MALFORMED_TOKEN"},
		{"garbage_token", "Bearer not-a-token", http.StatusUnauthorized, "INVALID_TOKEN"},
		{"valid", "Bearer " + token, http.StatusOK, ""},
		{"lowercase_scheme", "bearer " + token, http.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			request := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tt.header != "" {
				request.Header.Set("Authorization", tt.header)
			}
			recorder := httptest.NewRecorder()

			handler.ServeHTTP(recorder, request)

			assert.Equal(t, tt.wantStatus, recorder.Code)
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, decodeError(t, recorder).Code)
			} else {
				assert.Equal(t, "user-1", recorder.Body.String())
			}
		})
	}
}

/*
TestAuthenticate_ExpiredToken rejects a well-signed but expired token with 401.
*/
func TestAuthenticate_ExpiredToken(t *testing.T) {
	tokens, err := sec.NewTokenService(sec.TokenConfig{Issuer: "shopcore.test", Secret: testSecret})
	require.NoError(t, err)

	expired, err := tokens.Issue("user-1", sec.RoleAdmin, -time.Second)
	require.NoError(t, err)

	request := httptest.NewRequest(http.MethodGet, "/protected", nil)
	request.Header.Set("Authorization", "Bearer "+expired)
	recorder := httptest.NewRecorder()

	protectedRouter(tokens, sec.RoleAdmin).ServeHTTP(recorder, request)

	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	assert.Equal(t, "INVALID_TOKEN", decodeError(t, recorder).Code)
}

type stubVerifier struct {
	claims *sec.AuthClaims
	err    error
}

func (stub stubVerifier) Verify(string) (*sec.AuthClaims, error) { return stub.claims, stub.err }

/*
TestRequireRole enforces the allow-list against the role claim.
*/
func TestRequireRole(t *testing.T) {
	tests := []struct {
		name       string
		role       sec.UserRole
		allowed    []sec.UserRole
		wantStatus int
	}{
		{"admin_allowed", sec.RoleAdmin, []sec.UserRole{sec.RoleAdmin}, http.StatusOK},
		{"subadmin_in_list", sec.RoleSubadmin, []sec.UserRole{sec.RoleAdmin, sec.RoleSubadmin}, http.StatusOK},
		{"subadmin_denied", sec.RoleSubadmin, []sec.UserRole{sec.RoleAdmin}, http.StatusForbidden},
		{"user_denied", sec.RoleUser, []sec.UserRole{sec.RoleAdmin, sec.RoleSubadmin}, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verifier := stubVerifier{claims: &sec.AuthClaims{UserID: "u", Role: tt.role}}
			request := httptest.NewRequest(http.MethodGet, "/protected", nil)
			request.Header.Set("Authorization", "Bearer anything")
			recorder := httptest.NewRecorder()

			protectedRouter(verifier, tt.allowed...).ServeHTTP(recorder, request)

			assert.Equal(t, tt.wantStatus, recorder.Code)
			if tt.wantStatus == http.StatusForbidden {
				assert.Equal(t, "INSUFFICIENT_ROLE", decodeError(t, recorder).Code)
			}
		})
	}
}

/*
TestRequireRole_WithoutAuthenticate refuses to run as a standalone guard.
*/
func TestRequireRole_WithoutAuthenticate(t *testing.T) {
	router := chi.NewRouter()
	router.With(middleware.RequireRole(sec.RoleAdmin)).Get("/", func(writer http.ResponseWriter, _ *http.Request) {
		writer.WriteHeader(http.StatusOK)
	})

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	assert.Equal(t, "INVALID_TOKEN", decodeError(t, recorder).Code)
}

/*
TestAuthenticate_VerifierError hides the verifier's reason from the client.
*/
func TestAuthenticate_VerifierError(t *testing.T) {
	verifier := stubVerifier{err: errors.New("auth: invalid token: signature is invalid")}
	request := httptest.NewRequest(http.MethodGet, "/protected", nil)
	request.Header.Set("Authorization", "Bearer x")
	recorder := httptest.NewRecorder()

	protectedRouter(verifier, sec.RoleAdmin).ServeHTTP(recorder, request)

	body := decodeError(t, recorder)
	assert.Equal(t, "INVALID_TOKEN", body.Code)
	assert.NotContains(t, body.Error, "signature")
}
