// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Command api is the entry point for the shopcore HTTP API server.
//
// # Subcommands
//
//   - serve: connect dependencies, run migrations and serve HTTP until SIGTERM.
//   - migrate: apply pending migrations and exit.
//
// No business logic lives here. All wiring is explicit constructor injection.
package main

import (
	"os"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	cmd := NewRootCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
