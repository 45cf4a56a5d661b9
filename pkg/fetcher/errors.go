// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package fetcher

import (
	"errors"
	"fmt"
)

// Common errors returned by the library.
var (
	// ErrNotFound is returned when the remote locator does not resolve to
	// an existing resource.
	ErrNotFound = errors.New("remote asset not found")

	// ErrExists is returned when the destination already holds a file and
	// Overwrite is false.
	ErrExists = errors.New("destination already exists")

	// ErrInvalidURL is returned when the remote locator is empty or not a
	// well-formed http(s) URL.
	ErrInvalidURL = errors.New("invalid remote URL")

	// ErrMissingDest is returned when no destination path is specified.
	ErrMissingDest = errors.New("missing destination path")
)

// TransferError wraps a network or HTTP failure during transfer.
type TransferError struct {
	URL        string
	StatusCode int // zero when the request never produced a response
	Status     string
	Err        error
}

func (e *TransferError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("transfer failed: %s: %s", e.URL, e.Status)
	}
	return fmt.Sprintf("transfer failed: %s: %v", e.URL, e.Err)
}

func (e *TransferError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is so a 404/410 response matches ErrNotFound.
func (e *TransferError) Is(target error) bool {
	switch e.StatusCode {
	case 404, 410:
		return errors.Is(target, ErrNotFound)
	default:
		return false
	}
}

// IsRetryable returns true if the error might succeed on retry.
func (e *TransferError) IsRetryable() bool {
	switch e.StatusCode {
	case 0, 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

// WriteError wraps a local filesystem failure while persisting an asset.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write failed: %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// VerificationError is returned when the downloaded bytes do not match the
// expected SHA-256 digest.
type VerificationError struct {
	Asset    string
	Expected string
	Actual   string
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("verification failed for %s: sha256 mismatch (expected %s, got %s)",
		e.Asset, e.Expected, e.Actual)
}
