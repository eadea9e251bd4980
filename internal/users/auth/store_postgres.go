// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/taibuivan/shopcore/internal/platform/constants"
	"github.com/taibuivan/shopcore/internal/platform/dberr"
	"github.com/taibuivan/shopcore/internal/platform/sec"
	"github.com/taibuivan/shopcore/pkg/uuid"
)

// DBTX is the subset of [pgxpool.Pool] used by the Postgres stores.
//
// Accepting it instead of the concrete pool lets tests substitute pgxmock.
type DBTX interface {
	Exec(context context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(context context.Context, sql string, arguments ...any) (pgx.Rows, error)
	QueryRow(context context.Context, sql string, arguments ...any) pgx.Row
	Begin(context context.Context) (pgx.Tx, error)
}

// accountColumns is the projection shared by every account query.
const accountColumns = `id, name, email, passworddigest, role, isonline, lastseenat, resettoken, resettokenexpiry, createdat, updatedat`

// # Credential Store

// PostgresCredentialStore implements [CredentialStore] on the users.account table.
type PostgresCredentialStore struct {
	db  DBTX
	now func() time.Time
}

// NewPostgresCredentialStore creates a new PostgreSQL implementation of [CredentialStore].
func NewPostgresCredentialStore(db DBTX) *PostgresCredentialStore {
	return &PostgresCredentialStore{db: db, now: time.Now}
}

// scanUser hydrates a [User] from a row shaped like accountColumns.
func scanUser(row pgx.Row) (*User, error) {
	user := &User{}
	var role string
	err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.PasswordDigest,
		&role,
		&user.IsOnline,
		&user.LastSeenAt,
		&user.ResetToken,
		&user.ResetTokenExpiry,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	user.Role = sec.UserRole(role)
	return user, nil
}

/*
FindByEmail retrieves an identity by its normalised email.

Parameters:
  - context: context.Context
  - email: string

Returns:
  - *User: Hydrated account entity
  - error: dberr.ErrNotFound or database errors
*/
func (repository *PostgresCredentialStore) FindByEmail(context context.Context, email string) (*User, error) {
	query := `SELECT ` + accountColumns + ` FROM users.account WHERE email = $1`

	user, err := scanUser(repository.db.QueryRow(context, query, email))
	if err != nil {
		return nil, dberr.Wrap(err, "postgres_credential_store_find_by_email")
	}
	return user, nil
}

/*
FindByID retrieves an identity by primary key.

Parameters:
  - context: context.Context
  - id: string (UUIDv7)

Returns:
  - *User: Hydrated account entity
  - error: dberr.ErrNotFound or database errors
*/
func (repository *PostgresCredentialStore) FindByID(context context.Context, id string) (*User, error) {
	// A malformed id would fail the uuid cast server-side.
	if !uuid.Valid(id) {
		return nil, dberr.ErrNotFound
	}

	query := `SELECT ` + accountColumns + ` FROM users.account WHERE id = $1`

	user, err := scanUser(repository.db.QueryRow(context, query, id))
	if err != nil {
		return nil, dberr.Wrap(err, "postgres_credential_store_find_by_id")
	}
	return user, nil
}

/*
FindByResetToken retrieves the identity holding an unexpired reset digest.

Parameters:
  - context: context.Context
  - digest: string
  - now: time.Time

Returns:
  - *User: Hydrated account entity
  - error: dberr.ErrNotFound or database errors
*/
func (repository *PostgresCredentialStore) FindByResetToken(context context.Context, digest string, now time.Time) (*User, error) {
	query := `SELECT ` + accountColumns + ` FROM users.account WHERE resettoken = $1 AND resettokenexpiry > $2`

	user, err := scanUser(repository.db.QueryRow(context, query, digest, now))
	if err != nil {
		return nil, dberr.Wrap(err, "postgres_credential_store_find_by_reset_token")
	}
	return user, nil
}

/*
CountByRoles counts identities holding any of the given roles.

Parameters:
  - context: context.Context
  - roles: ...sec.UserRole

Returns:
  - int: Count
  - error: Database errors
*/
func (repository *PostgresCredentialStore) CountByRoles(context context.Context, roles ...sec.UserRole) (int, error) {
	return countByRoles(context, repository.db, roles)
}

// querier is satisfied by both the pool and a transaction.
type querier interface {
	QueryRow(context context.Context, sql string, arguments ...any) pgx.Row
}

func countByRoles(context context.Context, db querier, roles []sec.UserRole) (int, error) {
	const query = `SELECT count(*) FROM users.account WHERE role = ANY($1)`

	var count int
	if err := db.QueryRow(context, query, roleNames(roles)).Scan(&count); err != nil {
		return 0, dberr.Wrap(err, "postgres_credential_store_count_by_roles")
	}
	return count, nil
}

func roleNames(roles []sec.UserRole) []string {
	names := make([]string, len(roles))
	for index, role := range roles {
		names[index] = string(role)
	}
	return names
}

const insertAccount = `
	INSERT INTO users.account (
		id, name, email, passworddigest, role, isonline, lastseenat, resettoken, resettokenexpiry, createdat, updatedat
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

// insertUser stamps timestamps and inserts user through db.
func (repository *PostgresCredentialStore) insertUser(context context.Context, db interface {
	Exec(context context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}, user *User) error {
	now := repository.now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	_, err := db.Exec(context, insertAccount,
		user.ID,
		user.Name,
		user.Email,
		user.PasswordDigest,
		string(user.Role),
		user.IsOnline,
		user.LastSeenAt,
		user.ResetToken,
		user.ResetTokenExpiry,
		user.CreatedAt,
		user.UpdatedAt,
	)
	return err
}

/*
Create persists a new identity record into the users.account table.

Parameters:
  - context: context.Context
  - user: *User (Entity to persist)

Returns:
  - error: dberr.ErrConflict on a duplicate email, or database errors
*/
func (repository *PostgresCredentialStore) Create(context context.Context, user *User) error {
	if err := repository.insertUser(context, repository.db, user); err != nil {
		return dberr.Wrap(err, "postgres_credential_store_create")
	}
	return nil
}

/*
CreatePrivileged claims an admin seat and inserts user in one transaction.

Description: A transaction-scoped advisory lock serialises every seat claim,
so the count observed here cannot change before the insert commits.

Parameters:
  - context: context.Context
  - user: *User
  - maxSeats: int

Returns:
  - error: ErrSeatLimitExceeded, dberr.ErrConflict, or database errors
*/
func (repository *PostgresCredentialStore) CreatePrivileged(context context.Context, user *User, maxSeats int) error {
	tx, err := repository.db.Begin(context)
	if err != nil {
		return dberr.Wrap(err, "postgres_credential_store_claim_seat_begin")
	}

	if err := repository.claimSeat(context, tx, user, maxSeats); err != nil {
		_ = tx.Rollback(context)
		return err
	}

	if err := tx.Commit(context); err != nil {
		return dberr.Wrap(err, "postgres_credential_store_claim_seat_commit")
	}
	return nil
}

// claimSeat runs inside the seat transaction and returns domain or wrapped errors.
func (repository *PostgresCredentialStore) claimSeat(context context.Context, tx pgx.Tx, user *User, maxSeats int) error {
	if _, err := tx.Exec(context, `SELECT pg_advisory_xact_lock($1)`, constants.SeatLockKey); err != nil {
		return dberr.Wrap(err, "postgres_credential_store_seat_lock")
	}

	occupied, err := countByRoles(context, tx, sec.PrivilegedRoles)
	if err != nil {
		return err
	}
	if occupied >= maxSeats {
		return ErrSeatLimitExceeded
	}

	user.Role = sec.RoleSubadmin
	if occupied == 0 {
		user.Role = sec.RoleAdmin
	}

	if err := repository.insertUser(context, tx, user); err != nil {
		return dberr.Wrap(err, "postgres_credential_store_create_privileged")
	}
	return nil
}

/*
MarkOnline updates the presence columns only.

Parameters:
  - context: context.Context
  - id: string
  - lastSeen: time.Time

Returns:
  - error: dberr.ErrNotFound or database errors
*/
func (repository *PostgresCredentialStore) MarkOnline(context context.Context, id string, lastSeen time.Time) error {
	const query = `
		UPDATE users.account
		SET isonline = TRUE, lastseenat = $2, updatedat = $3
		WHERE id = $1`

	return repository.exec(context, "postgres_credential_store_mark_online", query, id, lastSeen, repository.now())
}

/*
SetResetToken stores the reset digest and expiry.

Parameters:
  - context: context.Context
  - id: string
  - digest: string
  - expiry: time.Time

Returns:
  - error: dberr.ErrNotFound or database errors
*/
func (repository *PostgresCredentialStore) SetResetToken(context context.Context, id, digest string, expiry time.Time) error {
	const query = `
		UPDATE users.account
		SET resettoken = $2, resettokenexpiry = $3, updatedat = $4
		WHERE id = $1`

	return repository.exec(context, "postgres_credential_store_set_reset_token", query, id, digest, expiry, repository.now())
}

/*
ClearResetToken nulls both reset columns while digest is still stored.

Parameters:
  - context: context.Context
  - id: string
  - digest: string

Returns:
  - error: dberr.ErrNotFound when the digest is gone, or database errors
*/
func (repository *PostgresCredentialStore) ClearResetToken(context context.Context, id, digest string) error {
	const query = `
		UPDATE users.account
		SET resettoken = NULL, resettokenexpiry = NULL, updatedat = $3
		WHERE id = $1 AND resettoken = $2`

	return repository.exec(context, "postgres_credential_store_clear_reset_token", query, id, digest, repository.now())
}

// exec runs a single-row UPDATE and maps zero affected rows to not found.
func (repository *PostgresCredentialStore) exec(context context.Context, action, query string, arguments ...any) error {
	tag, err := repository.db.Exec(context, query, arguments...)
	if err != nil {
		return dberr.Wrap(err, action)
	}
	if tag.RowsAffected() == 0 {
		return dberr.Wrap(pgx.ErrNoRows, action)
	}
	return nil
}

/*
ConsumeResetToken swaps the password digest and clears the reset fields in a
single conditional UPDATE.

Parameters:
  - context: context.Context
  - digest: string
  - now: time.Time
  - passwordDigest: string

Returns:
  - *User: Updated entity
  - error: dberr.ErrNotFound when the token is unknown, expired or already used
*/
func (repository *PostgresCredentialStore) ConsumeResetToken(context context.Context, digest string, now time.Time, passwordDigest string) (*User, error) {
	query := `
		UPDATE users.account
		SET passworddigest = $3, resettoken = NULL, resettokenexpiry = NULL, updatedat = $2
		WHERE resettoken = $1 AND resettokenexpiry > $2
		RETURNING ` + accountColumns

	user, err := scanUser(repository.db.QueryRow(context, query, digest, now, passwordDigest))
	if err != nil {
		return nil, dberr.Wrap(err, "postgres_credential_store_consume_reset_token")
	}
	return user, nil
}

/*
ListByRoles lists identities holding any of the given roles, oldest first.

Parameters:
  - context: context.Context
  - roles: ...sec.UserRole

Returns:
  - []*User: Matching identities
  - error: Database errors
*/
func (repository *PostgresCredentialStore) ListByRoles(context context.Context, roles ...sec.UserRole) ([]*User, error) {
	query := `SELECT ` + accountColumns + ` FROM users.account WHERE role = ANY($1) ORDER BY createdat ASC`

	rows, err := repository.db.Query(context, query, roleNames(roles))
	if err != nil {
		return nil, dberr.Wrap(err, "postgres_credential_store_list_by_roles")
	}
	defer rows.Close()

	users := []*User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, dberr.Wrap(err, "postgres_credential_store_list_by_roles_scan")
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, dberr.Wrap(err, "postgres_credential_store_list_by_roles_rows")
	}

	return users, nil
}

// # Activity Store

// PostgresActivityStore implements [ActivityStore] on the users.activity table.
type PostgresActivityStore struct {
	db DBTX
}

// NewPostgresActivityStore creates a new PostgreSQL implementation of [ActivityStore].
func NewPostgresActivityStore(db DBTX) *PostgresActivityStore {
	return &PostgresActivityStore{db: db}
}

/*
Record appends an activity entry.

Parameters:
  - context: context.Context
  - activity: Activity

Returns:
  - error: Database errors
*/
func (repository *PostgresActivityStore) Record(context context.Context, activity Activity) error {
	const query = `INSERT INTO users.activity (id, userid, action, occurredat) VALUES ($1, $2, $3, $4)`

	_, err := repository.db.Exec(context, query, activity.ID, activity.UserID, string(activity.Action), activity.OccurredAt)
	if err != nil {
		return dberr.Wrap(err, "postgres_activity_store_record")
	}
	return nil
}

/*
ListRecent returns the newest entries joined with the identity email.

Parameters:
  - context: context.Context
  - limit: int

Returns:
  - []Activity: Entries, newest first
  - error: Database errors
*/
func (repository *PostgresActivityStore) ListRecent(context context.Context, limit int) ([]Activity, error) {
	const query = `
		SELECT activity.id, activity.userid, account.email, activity.action, activity.occurredat
		FROM users.activity AS activity
		JOIN users.account AS account ON account.id = activity.userid
		ORDER BY activity.occurredat DESC
		LIMIT $1`

	rows, err := repository.db.Query(context, query, limit)
	if err != nil {
		return nil, dberr.Wrap(err, "postgres_activity_store_list_recent")
	}
	defer rows.Close()

	activities := []Activity{}
	for rows.Next() {
		var activity Activity
		var action string
		if err := rows.Scan(&activity.ID, &activity.UserID, &activity.Email, &action, &activity.OccurredAt); err != nil {
			return nil, dberr.Wrap(err, "postgres_activity_store_list_recent_scan")
		}
		activity.Action = ActivityAction(action)
		activities = append(activities, activity)
	}
	if err := rows.Err(); err != nil {
		return nil, dberr.Wrap(err, "postgres_activity_store_list_recent_rows")
	}

	return activities, nil
}
