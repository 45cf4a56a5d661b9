// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package fetcher

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"strings"
)

// verifySHA256 computes the SHA-256 of a file and compares it to expected.
func verifySHA256(path, expected, asset string) error {
	f, err := os.Open(path)
	if err != nil {
		return &WriteError{Path: path, Err: err}
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return &WriteError{Path: path, Err: err}
	}

	sum := hex.EncodeToString(h.Sum(nil))
	if !strings.EqualFold(sum, expected) {
		return &VerificationError{Asset: asset, Expected: strings.ToLower(expected), Actual: sum}
	}
	return nil
}
