// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package dberr_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/shopcore/internal/platform/apperr"
	"github.com/taibuivan/shopcore/internal/platform/dberr"
)

/*
TestWrap classifies driver errors into application errors.
*/
func TestWrap(t *testing.T) {
	uniqueViolation := &pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "account_email_key"}

	tests := []struct {
		name       string
		err        error
		wantCode   string
		wantStatus int
	}{
		{"no_rows", pgx.ErrNoRows, "NOT_FOUND", http.StatusNotFound},
		{"wrapped_no_rows", fmt.Errorf("scan: %w", pgx.ErrNoRows), "NOT_FOUND", http.StatusNotFound},
		{"unique_violation", uniqueViolation, "CONFLICT", http.StatusConflict},
		{"other_sqlstate", &pgconn.PgError{Code: pgerrcode.DeadlockDetected}, "INTERNAL_ERROR", http.StatusInternalServerError},
		{"plain_error", errors.New("connection reset"), "INTERNAL_ERROR", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := dberr.Wrap(tt.err, "account_lookup")

			appError := apperr.As(wrapped)
			require.NotNil(t, appError)
			assert.Equal(t, tt.wantCode, appError.Code)
			assert.Equal(t, tt.wantStatus, appError.HTTPStatus)
			assert.ErrorIs(t, wrapped, tt.err)
		})
	}

	assert.NoError(t, dberr.Wrap(nil, "noop"))
	assert.ErrorIs(t, dberr.Wrap(pgx.ErrNoRows, "x"), dberr.ErrNotFound)
}

/*
TestIsUniqueViolation only matches SQLSTATE 23505.
*/
func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, dberr.IsUniqueViolation(fmt.Errorf("insert: %w", &pgconn.PgError{Code: pgerrcode.UniqueViolation})))
	assert.False(t, dberr.IsUniqueViolation(&pgconn.PgError{Code: pgerrcode.CheckViolation}))
	assert.False(t, dberr.IsUniqueViolation(errors.New("boom")))
}
