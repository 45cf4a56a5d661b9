// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package fetcher

import "time"

// Asset identifies one remote file and where it lands on disk.
//
// URL and Dest are required. SHA256 is optional; when set, the downloaded
// bytes are verified before the file is moved into place.
//
// Example:
//
//	asset := fetcher.Asset{
//	    Name: "c4-subset",
//	    URL:  "https://storage.googleapis.com/irreducible-assets/c4_subset.tar.gz",
//	    Dest: "data/c4_subset/c4_subset.tar.gz",
//	}
type Asset struct {
	// Name is a short human-readable label used in progress events and
	// error messages. Optional; defaults to the Dest base name.
	Name string `json:"name,omitempty"`

	// URL is the remote locator. Must be a well-formed http or https URL.
	URL string `json:"url"`

	// Dest is the local destination path. Parent directories are created
	// as needed. Relative paths are resolved against the working directory.
	Dest string `json:"dest"`

	// SHA256 is the expected hex digest of the asset, if known.
	// When non-empty, the transfer is verified before the rename.
	SHA256 string `json:"sha256,omitempty"`

	// Size is the expected size in bytes, if known. Used only for
	// progress reporting; zero means unknown.
	Size int64 `json:"size,omitempty"`
}

// Options configures fetch behavior.
//
// The zero value is valid and matches the documented defaults: no overwrite,
// no deadline, no retries.
type Options struct {
	// Overwrite replaces an existing file at the destination path.
	// When false (the default) and the destination exists, Fetch returns
	// an error wrapping ErrExists and leaves the existing file untouched.
	Overwrite bool

	// Timeout bounds the whole transfer, including retries.
	// Zero means no deadline beyond the caller's context.
	Timeout time.Duration

	// Retries is the number of additional attempts after a retryable
	// transfer failure (5xx, connection errors). Zero by default; not
	// found, already exists, and local write errors are never retried.
	Retries int

	// BackoffInitial is the delay before the first retry.
	// Accepts duration strings ("400ms", "2s"). Defaults to "400ms".
	BackoffInitial string

	// BackoffMax caps the exponentially growing retry delay.
	// Defaults to "10s".
	BackoffMax string

	// Parallel lets FetchAll run independent assets concurrently.
	// Each asset writes to a distinct destination, so ordering does not
	// matter; the default remains sequential.
	Parallel bool
}

// DefaultOptions returns Options with the documented defaults filled in.
func DefaultOptions() Options {
	return Options{
		Overwrite:      false,
		Retries:        0,
		BackoffInitial: "400ms",
		BackoffMax:     "10s",
	}
}

// ProgressEvent represents a progress update during a fetch.
//
// The Event field indicates the type of event:
//   - "fetch_start": transfer of an asset has started
//   - "progress": periodic byte-count update during transfer
//   - "retry": a retry attempt is being made
//   - "fetch_done": asset written and renamed into place
//   - "error": the fetch failed
//   - "done": all assets in a FetchAll run are complete
type ProgressEvent struct {
	// Time is when the event occurred (UTC).
	Time time.Time `json:"time"`

	// Event is the event type identifier.
	Event string `json:"event"`

	// Asset is the asset name the event refers to.
	Asset string `json:"asset,omitempty"`

	// Dest is the local destination path.
	Dest string `json:"dest,omitempty"`

	// Downloaded is the cumulative bytes transferred so far.
	Downloaded int64 `json:"downloaded,omitempty"`

	// Total is the expected size in bytes; zero when the server did not
	// report a length.
	Total int64 `json:"total,omitempty"`

	// Attempt is the retry attempt number (1-based). Only set in
	// "retry" events.
	Attempt int `json:"attempt,omitempty"`

	// Message carries additional context or error details.
	Message string `json:"message,omitempty"`
}

// ProgressFunc is a callback for receiving progress events.
//
// The callback may be invoked from multiple goroutines when FetchAll runs
// in parallel mode and must be safe for concurrent use.
type ProgressFunc func(ProgressEvent)
