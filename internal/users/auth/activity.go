// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/taibuivan/shopcore/internal/platform/ctxutil"
	"github.com/taibuivan/shopcore/pkg/uuid"
)

// ActivityLog appends identity events on a best-effort basis.
//
// A failed write is logged and swallowed: the operation that produced the
// event has already succeeded.
type ActivityLog struct {
	store   ActivityStore
	timeout time.Duration
	now     func() time.Time
}

// NewActivityLog wraps store. A nil store yields a log that records nothing.
func NewActivityLog(store ActivityStore, options Options) *ActivityLog {
	options = options.withDefaults()
	return &ActivityLog{store: store, timeout: options.StoreTimeout, now: options.Clock}
}

// Record appends action for user.
func (log *ActivityLog) Record(context context.Context, user *User, action ActivityAction) {
	if log == nil || log.store == nil {
		return
	}

	storeContext, cancel := bounded(context, log.timeout)
	defer cancel()

	err := log.store.Record(storeContext, Activity{
		ID:         uuid.New(),
		UserID:     user.ID,
		Email:      user.Email,
		Action:     action,
		OccurredAt: log.now(),
	})
	if err != nil {
		ctxutil.GetLogger(context).Warn("activity_record_failed",
			"user_id", user.ID,
			"action", action,
			"error", err,
		)
	}
}

/*
List returns the most recent activity entries, newest first.

Parameters:
  - context: context.Context

Returns:
  - []Activity: Up to ActivityListLimit entries
  - error: Storage failures
*/
func (log *ActivityLog) List(context context.Context) ([]Activity, error) {
	if log == nil || log.store == nil {
		return []Activity{}, nil
	}

	storeContext, cancel := bounded(context, log.timeout)
	defer cancel()

	entries, err := log.store.ListRecent(storeContext, ActivityListLimit)
	if err != nil {
		return nil, fmt.Errorf("auth_activity_list_failed: %w", err)
	}
	return entries, nil
}
