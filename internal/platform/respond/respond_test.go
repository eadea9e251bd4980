// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package respond_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/shopcore/internal/platform/apperr"
	"github.com/taibuivan/shopcore/internal/platform/ctxutil"
	"github.com/taibuivan/shopcore/internal/platform/respond"
)

/*
TestSuccessEnvelopes wraps payloads under "data".
*/
func TestSuccessEnvelopes(t *testing.T) {
	tests := []struct {
		name       string
		write      func(http.ResponseWriter)
		wantStatus int
	}{
		{"ok", func(w http.ResponseWriter) { respond.OK(w, map[string]string{"message": "hi"}) }, http.StatusOK},
		{"created", func(w http.ResponseWriter) { respond.Created(w, map[string]string{"message": "hi"}) }, http.StatusCreated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := httptest.NewRecorder()
			tt.write(recorder)

			assert.Equal(t, tt.wantStatus, recorder.Code)
			assert.Equal(t, "application/json; charset=utf-8", recorder.Header().Get("Content-Type"))
			assert.JSONEq(t, `{"data":{"message":"hi"}}`, recorder.Body.String())
		})
	}

	recorder := httptest.NewRecorder()
	respond.NoContent(recorder)
	assert.Equal(t, http.StatusNoContent, recorder.Code)
	assert.Empty(t, recorder.Body.String())
}

/*
TestError maps application errors to their status, code and details.
*/
func TestError(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		wantStatus     int
		wantCode       string
		wantRetryAfter string
	}{
		{
			"validation_with_details",
			apperr.ValidationError("Invalid input", apperr.FieldError{Field: "email", Message: "Invalid email"}),
			http.StatusBadRequest, "VALIDATION_ERROR", "",
		},
		{"wrapped_app_error", fmt.Errorf("outer: %w", apperr.NotFound("Identity")), http.StatusNotFound, "NOT_FOUND", ""},
		{"rate_limited", apperr.RateLimited(60), http.StatusTooManyRequests, "RATE_LIMITED", "60"},
		{"plain_error", errors.New("pq: relation does not exist"), http.StatusInternalServerError, "INTERNAL_ERROR", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var logs bytes.Buffer
			ctx := ctxutil.WithLogger(t.Context(), slog.New(slog.NewJSONHandler(&logs, nil)))
			request := httptest.NewRequest(http.MethodGet, "/", nil).WithContext(ctx)
			recorder := httptest.NewRecorder()

			respond.Error(recorder, request, tt.err)

			assert.Equal(t, tt.wantStatus, recorder.Code)
			assert.Equal(t, tt.wantRetryAfter, recorder.Header().Get("Retry-After"))

			var body respond.ErrorEnvelope
			require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
			assert.Equal(t, tt.wantCode, body.Code)
			assert.NotContains(t, recorder.Body.String(), "relation does not exist")

			if tt.wantStatus >= http.StatusInternalServerError {
				assert.Contains(t, logs.String(), "api_server_error")
			}
		})
	}
}
