// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package fetcher

import "path/filepath"

// Built-in asset names.
const (
	// AssetC4Subset is the random subset of the C4 text corpus used by the
	// paper's experiments.
	AssetC4Subset = "c4-subset"

	// AssetIrreducibleLosses is the file of precomputed per-example
	// irreducible loss values for the subset.
	AssetIrreducibleLosses = "irreducible-losses"
)

// DefaultDataDir is the base directory the built-in assets land under when
// no other output directory is configured.
const DefaultDataDir = "data"

// Catalog returns the built-in assets with their documented default
// destination paths, relative to the data directory.
//
// The upstream release does not publish digests for these files, so the
// entries carry no SHA256; pass your own Asset with a digest to opt in to
// verification.
func Catalog() []Asset {
	return []Asset{
		{
			Name: AssetC4Subset,
			URL:  "https://storage.googleapis.com/irreducible-assets/c4_subset.tar.gz",
			Dest: filepath.Join("c4_subset", "c4_subset.tar.gz"),
		},
		{
			Name: AssetIrreducibleLosses,
			URL:  "https://storage.googleapis.com/irreducible-assets/irreducible_losses.npz",
			Dest: filepath.Join("irreducible_losses", "irreducible_losses.npz"),
		},
	}
}

// Lookup returns the built-in asset with the given name.
func Lookup(name string) (Asset, bool) {
	for _, a := range Catalog() {
		if a.Name == name {
			return a, true
		}
	}
	return Asset{}, false
}

// Resolve rebases an asset's destination under the given data directory.
// Relative catalog destinations stay relative to dataDir; an explicit
// absolute Dest is kept as is.
func Resolve(a Asset, dataDir string) Asset {
	if dataDir == "" {
		dataDir = DefaultDataDir
	}
	if !filepath.IsAbs(a.Dest) {
		a.Dest = filepath.Join(dataDir, a.Dest)
	}
	return a
}
