// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

/*
Package fetcher retrieves remote research assets and persists them on the
local filesystem, atomically and exactly once.

A fetch is single-shot: it either produces a destination file whose bytes
equal the remote asset's, or it fails and leaves the destination path
exactly as it was. Bytes stream into a "<dest>.part" temporary file that is
renamed into place on completion, so an interrupted transfer never leaves a
partial artifact behind.

# Quick start

	asset, _ := fetcher.Lookup(fetcher.AssetC4Subset)
	asset = fetcher.Resolve(asset, "data")

	err := fetcher.Fetch(context.Background(), asset, fetcher.DefaultOptions(), nil)
	if err != nil {
	    log.Fatal(err)
	}

# Error taxonomy

Failures map onto four conditions, inspectable with errors.Is / errors.As:

  - ErrNotFound: the remote locator does not resolve (404/410)
  - ErrExists: the destination holds a file and Overwrite is false
  - TransferError: network failure, non-2xx response, or timeout
  - WriteError: local filesystem failure (permissions, disk full)

Errors are never silently recovered; by default there is no retry. Retries,
a transfer deadline, and SHA-256 verification are opt-in hardening via
Options and Asset.SHA256.

# Progress

Pass a ProgressFunc to observe fetch_start / progress / retry / fetch_done /
error / done events, e.g. to drive a progress bar or emit JSON lines.
*/
package fetcher
