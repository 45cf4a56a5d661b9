// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"assetfetch/internal/tui"
	"assetfetch/pkg/fetcher"
)

// RootOpts holds global CLI options.
type RootOpts struct {
	JSONOut bool
	Quiet   bool
	Verbose bool
	Config  string
	DataDir string
}

// Execute runs the CLI with the given version string.
func Execute(version string) error {
	ro := &RootOpts{}
	ctx, cancel := signalContext(context.Background())
	defer cancel()

	root := &cobra.Command{
		Use:           "assetfetch",
		Short:         "Fetch the dataset subset and irreducible-loss values used by the paper's experiments",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if ro.Verbose {
				log.SetLevel(log.DebugLevel)
			}
		},
	}

	// Global flags
	root.PersistentFlags().BoolVar(&ro.JSONOut, "json", false, "Emit machine-readable JSON events")
	root.PersistentFlags().BoolVarP(&ro.Quiet, "quiet", "q", false, "Quiet mode (plain text, no progress bar)")
	root.PersistentFlags().BoolVarP(&ro.Verbose, "verbose", "v", false, "Verbose logs (debug details)")
	root.PersistentFlags().StringVar(&ro.Config, "config", "", "Path to config file (JSON or YAML)")
	root.PersistentFlags().StringVarP(&ro.DataDir, "output", "o", fetcher.DefaultDataDir, "Base directory for downloaded assets")

	// Add commands
	allCmd := newAllCmd(ctx, ro)
	root.AddCommand(allCmd)
	root.AddCommand(newDatasetCmd(ctx, ro))
	root.AddCommand(newLossesCmd(ctx, ro))
	root.AddCommand(newFetchCmd(ctx, ro))
	root.AddCommand(newVersionCmd(version))
	root.AddCommand(newServeCmd(ro))
	root.AddCommand(newConfigCmd())

	// Running with no subcommand fetches everything to the default paths.
	root.RunE = allCmd.RunE
	root.SetHelpCommand(&cobra.Command{Use: "help", Hidden: true})

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return err
	}
	return nil
}

func newFetchCmd(ctx context.Context, ro *RootOpts) *cobra.Command {
	opts := &fetcher.Options{}
	var sha string

	cmd := &cobra.Command{
		Use:   "fetch URL [DEST]",
		Short: "Fetch an arbitrary remote asset to a local path",
		Args:  cobra.RangeArgs(1, 2),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return applyOptionDefaults(cmd, ro, opts)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			name := fetcher.DestName(args[0])
			asset := fetcher.Asset{Name: name, URL: args[0], SHA256: sha}
			if len(args) > 1 {
				asset.Dest = args[1]
			} else {
				asset.Dest = fetcher.Resolve(fetcher.Asset{Dest: name}, ro.DataDir).Dest
			}
			log.Debugf("fetch %s -> %s", asset.URL, asset.Dest)

			progress, done := newProgress(ro)
			defer done()
			return fetcher.Fetch(ctx, asset, *opts, progress)
		},
	}

	addFetchFlags(cmd, opts)
	cmd.Flags().StringVar(&sha, "sha256", "", "Expected SHA-256 digest; verified before the file is moved into place")

	return cmd
}

// addFetchFlags registers the fetch behavior flags shared by all commands.
func addFetchFlags(cmd *cobra.Command, opts *fetcher.Options) {
	cmd.Flags().BoolVar(&opts.Overwrite, "overwrite", false, "Replace an existing file at the destination")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 0, "Maximum time allowed for the transfer (0 = no deadline)")
	cmd.Flags().IntVar(&opts.Retries, "retries", 0, "Additional attempts after retryable transfer failures")
	cmd.Flags().StringVar(&opts.BackoffInitial, "backoff-initial", "400ms", "Initial retry backoff duration")
	cmd.Flags().StringVar(&opts.BackoffMax, "backoff-max", "10s", "Maximum retry backoff duration")
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-ch:
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}

// newProgress selects the progress handler for the current mode and
// returns it together with a cleanup func.
func newProgress(ro *RootOpts) (fetcher.ProgressFunc, func()) {
	if ro.JSONOut {
		return jsonProgress(os.Stdout), func() {}
	}
	if ro.Quiet || !tui.Interactive() {
		return cliProgress(), func() {}
	}
	ui := tui.NewRenderer()
	return ui.Handler(), ui.Close
}

// cliProgress returns a simple text-based progress handler.
func cliProgress() fetcher.ProgressFunc {
	return func(ev fetcher.ProgressEvent) {
		switch ev.Event {
		case "fetch_start":
			if ev.Total > 0 {
				fmt.Printf("fetching: %s (%d bytes) -> %s\n", ev.Asset, ev.Total, ev.Dest)
			} else {
				fmt.Printf("fetching: %s -> %s\n", ev.Asset, ev.Dest)
			}
		case "retry":
			fmt.Printf("retry %s (attempt %d): %s\n", ev.Asset, ev.Attempt, ev.Message)
		case "fetch_done":
			fmt.Printf("done: %s\n", ev.Dest)
		case "error":
			fmt.Fprintf(os.Stderr, "error: %s: %s\n", ev.Asset, ev.Message)
		case "done":
			fmt.Println(ev.Message)
		}
	}
}

// jsonProgress returns a JSON-lines progress handler.
func jsonProgress(w io.Writer) fetcher.ProgressFunc {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	var mu sync.Mutex
	return func(ev fetcher.ProgressEvent) {
		mu.Lock()
		_ = enc.Encode(ev)
		mu.Unlock()
	}
}

// applyOptionDefaults layers config-file values under flags the user did
// not set explicitly. CLI flags always win.
func applyOptionDefaults(cmd *cobra.Command, ro *RootOpts, dst *fetcher.Options) error {
	cfg, err := loadConfigFile(ro.Config)
	if err != nil {
		return err
	}
	if cfg == nil {
		return nil
	}

	setStr := func(flagName string, set func(string)) {
		if cmd.Flags().Changed(flagName) {
			return
		}
		if v, ok := cfg[flagName]; ok && v != nil {
			set(fmt.Sprint(v))
		}
	}
	setInt := func(flagName string, set func(int)) {
		if cmd.Flags().Changed(flagName) {
			return
		}
		if v, ok := cfg[flagName]; ok && v != nil {
			var x int
			fmt.Sscan(fmt.Sprint(v), &x)
			set(x)
		}
	}
	setBool := func(flagName string, set func(bool)) {
		if cmd.Flags().Changed(flagName) {
			return
		}
		if v, ok := cfg[flagName]; ok && v != nil {
			set(strings.EqualFold(fmt.Sprint(v), "true"))
		}
	}

	setBool("overwrite", func(v bool) { dst.Overwrite = v })
	setStr("timeout", func(v string) {
		if d, perr := time.ParseDuration(v); perr == nil {
			dst.Timeout = d
		}
	})
	setInt("retries", func(v int) { dst.Retries = v })
	setStr("backoff-initial", func(v string) { dst.BackoffInitial = v })
	setStr("backoff-max", func(v string) { dst.BackoffMax = v })

	if !cmd.Flags().Changed("output") {
		if v, ok := cfg["output"]; ok && v != nil {
			ro.DataDir = fmt.Sprint(v)
		}
	}

	return nil
}
