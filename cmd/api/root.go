// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/taibuivan/shopcore/internal/platform/config"
	"github.com/taibuivan/shopcore/internal/platform/constants"
)

// NewRootCmd creates the root command for the shopcore CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "shopcore",
		Short:         "shopcore - admin seats, login and password reset",
		Version:       fmt.Sprintf("%s (commit: %s)", version, commit),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())

	return cmd
}

// bootstrap loads configuration and builds the process logger.
//
// Startup errors are logged as structured JSON before being returned.
func bootstrap(output io.Writer) (*config.Config, *slog.Logger, error) {
	log := newLogger(output, false)

	cfg, err := config.Load()
	if err != nil {
		log.Error("startup_failure", slog.String("stage", "load_configuration"), slog.Any("error", err))
		return nil, nil, err
	}

	if cfg.Debug {
		log = newLogger(output, true)
		log.Debug("debug_logging_enabled")
	}
	slog.SetDefault(log)

	log.Info("configuration_loaded",
		slog.String("environment", cfg.Environment),
		slog.String("store_driver", cfg.StoreDriver),
		slog.String("port", cfg.ServerPort),
	)
	return cfg, log, nil
}

func newLogger(output io.Writer, debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	handler := slog.NewJSONHandler(output, &slog.HandlerOptions{Level: level})
	return slog.New(handler).With(slog.String(constants.FieldApp, constants.AppName))
}
