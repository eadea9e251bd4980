// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package main

import (
	"errors"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/taibuivan/shopcore/internal/platform/config"
	"github.com/taibuivan/shopcore/internal/platform/migration"
)

// errNoDatabase is returned by migrate when the memory driver is selected.
var errNoDatabase = errors.New("migrate requires STORE_DRIVER=postgres")

// NewMigrateCmd creates the migrate subcommand.
func NewMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := bootstrap(cmd.OutOrStdout())
			if err != nil {
				return err
			}
			if cfg.StoreDriver != config.DriverPostgres {
				return errNoDatabase
			}

			if err := migration.RunUp(cfg.DatabaseURL, cfg.MigrationPath, log); err != nil {
				log.Error("startup_failure", slog.String("stage", "run_migrations"), slog.Any("error", err))
				return err
			}
			return nil
		},
	}
}
