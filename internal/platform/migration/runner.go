// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package migration brings the users schema (account and activity tables) up
// to date from the SQL files under MIGRATION_PATH. `shopcore migrate` runs it
// on demand and `shopcore serve` runs it before accepting traffic.
package migration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	// Registers the pgx5:// database scheme.
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	// Registers the file:// source scheme.
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// RunUp applies every pending up migration. A dirty version is reported, not
// forced: someone has to inspect the half-applied step first.
//
// # Parameters
//   - dsn: DATABASE_URL, postgres:// or postgresql://.
//   - migrationsPath: Directory holding NNNNNN_name.up.sql files.
//   - logger: Receives schema_migration_* events.
func RunUp(dsn string, migrationsPath string, logger *slog.Logger) error {
	migrator, err := migrate.New("file://"+migrationsPath, convertToPgx5DSN(dsn))
	if err != nil {
		return fmt.Errorf("schema_migration_init_failed: %w", err)
	}
	defer closeMigrator(migrator, logger)

	migrator.Log = &migrateLogger{logger: logger, verbose: logger.Enabled(context.Background(), slog.LevelDebug)}

	from, isDirty, err := migrator.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("schema_migration_version_failed: %w", err)
	}
	if isDirty {
		return fmt.Errorf("schema_migration_dirty: version %d needs manual repair", from)
	}

	err = migrator.Up()
	switch {
	case errors.Is(err, migrate.ErrNoChange):
		logger.Info("schema_migration_current", slog.Uint64("version", uint64(from)))
		return nil
	case err != nil:
		return fmt.Errorf("schema_migration_up_failed: %w", err)
	}

	to, _, _ := migrator.Version()
	logger.Info("schema_migration_applied",
		slog.Uint64("from_version", uint64(from)),
		slog.Uint64("to_version", uint64(to)),
	)
	return nil
}

func closeMigrator(migrator *migrate.Migrate, logger *slog.Logger) {
	sourceErr, databaseErr := migrator.Close()
	if err := errors.Join(sourceErr, databaseErr); err != nil {
		logger.Warn("schema_migration_close_failed", slog.Any("error", err))
	}
}

// convertToPgx5DSN swaps a postgres scheme for the one the pgx/v5 driver registers.
func convertToPgx5DSN(dsn string) string {
	for _, prefix := range []string{"postgres://", "postgresql://"} {
		if rest, ok := strings.CutPrefix(dsn, prefix); ok {
			return "pgx5://" + rest
		}
	}
	return dsn
}

// migrateLogger routes golang-migrate output to debug logs.
type migrateLogger struct {
	logger  *slog.Logger
	verbose bool
}

func (l *migrateLogger) Printf(format string, args ...any) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l *migrateLogger) Verbose() bool {
	return l.verbose
}
