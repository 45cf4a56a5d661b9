// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"assetfetch/internal/server"
)

func newServeCmd(ro *RootOpts) *cobra.Command {
	var (
		addr    string
		port    int
		dataDir string
		retries int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP server for remotely managed fetches",
		Long: `Start an HTTP server that provides:
  - REST API for fetch job management
  - WebSocket for live progress updates

Destination paths are configured server-side only (not via API): every
fetch lands under the configured data directory.

Example:
  assetfetch serve
  assetfetch serve --port 3000 --data-dir ./data`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := server.Config{
				Addr:    addr,
				Port:    port,
				DataDir: dataDir,
				Retries: retries,
			}

			srv := server.New(cfg)

			ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			return srv.ListenAndServe(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "0.0.0.0", "Address to bind to")
	cmd.Flags().IntVarP(&port, "port", "p", 8080, "Port to listen on")
	cmd.Flags().StringVar(&dataDir, "data-dir", "./data", "Directory fetched assets land under")
	cmd.Flags().IntVar(&retries, "retries", 0, "Retry attempts for fetch jobs")

	return cmd
}
