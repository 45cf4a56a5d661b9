// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"assetfetch/pkg/fetcher"
)

// newDatasetCmd fetches the C4 subset archive to its fixed default path.
func newDatasetCmd(ctx context.Context, ro *RootOpts) *cobra.Command {
	return newCatalogCmd(ctx, ro, fetcher.AssetC4Subset,
		"dataset",
		"Fetch the random C4 subset archive")
}

// newLossesCmd fetches the precomputed irreducible-loss values.
func newLossesCmd(ctx context.Context, ro *RootOpts) *cobra.Command {
	return newCatalogCmd(ctx, ro, fetcher.AssetIrreducibleLosses,
		"losses",
		"Fetch the precomputed irreducible-loss values")
}

// newCatalogCmd builds a command that fetches one built-in asset.
func newCatalogCmd(ctx context.Context, ro *RootOpts, name, use, short string) *cobra.Command {
	opts := &fetcher.Options{}

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return applyOptionDefaults(cmd, ro, opts)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			asset, ok := fetcher.Lookup(name)
			if !ok {
				return fmt.Errorf("unknown built-in asset %q", name)
			}
			asset = fetcher.Resolve(asset, ro.DataDir)

			progress, done := newProgress(ro)
			defer done()
			return fetcher.Fetch(ctx, asset, *opts, progress)
		},
	}

	addFetchFlags(cmd, opts)
	return cmd
}

// newAllCmd fetches every built-in asset. This is also the behavior of the
// bare `assetfetch` invocation.
func newAllCmd(ctx context.Context, ro *RootOpts) *cobra.Command {
	opts := &fetcher.Options{}

	cmd := &cobra.Command{
		Use:   "all",
		Short: "Fetch every built-in asset to its default path",
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return applyOptionDefaults(cmd, ro, opts)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			assets := make([]fetcher.Asset, 0, 2)
			for _, a := range fetcher.Catalog() {
				assets = append(assets, fetcher.Resolve(a, ro.DataDir))
			}

			progress, done := newProgress(ro)
			defer done()
			return fetcher.FetchAll(ctx, assets, *opts, progress)
		},
	}

	addFetchFlags(cmd, opts)
	cmd.Flags().BoolVar(&opts.Parallel, "parallel", false, "Fetch assets concurrently instead of sequentially")
	return cmd
}
