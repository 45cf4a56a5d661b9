// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"
)

// progressReader wraps an io.Reader and emits progress events during reads.
type progressReader struct {
	reader     io.Reader
	total      int64
	downloaded int64
	asset      string
	dest       string
	emit       func(ProgressEvent)
	lastEmit   time.Time
	interval   time.Duration
}

func newProgressReader(r io.Reader, total int64, asset, dest string, emit func(ProgressEvent)) *progressReader {
	return &progressReader{
		reader:   r,
		total:    total,
		asset:    asset,
		dest:     dest,
		emit:     emit,
		lastEmit: time.Now(),
		interval: 200 * time.Millisecond, // emit at most 5 times per second
	}
}

func (pr *progressReader) Read(p []byte) (n int, err error) {
	n, err = pr.reader.Read(p)
	if n > 0 {
		pr.downloaded += int64(n)
		if time.Since(pr.lastEmit) >= pr.interval || err == io.EOF {
			pr.emit(ProgressEvent{
				Event:      "progress",
				Asset:      pr.asset,
				Dest:       pr.dest,
				Downloaded: pr.downloaded,
				Total:      pr.total,
			})
			pr.lastEmit = time.Now()
		}
	}
	return n, err
}

// Fetch retrieves one remote asset and persists it at asset.Dest.
//
// The fetch is single-shot and atomic: bytes stream into a temporary
// "<dest>.part" file which is renamed into place only after the transfer
// (and optional SHA-256 verification) completes. On any failure the
// temporary file is removed and the destination path is left exactly as
// it was, including any pre-existing file.
//
// Parent directories of asset.Dest are created as needed. When the
// destination already holds a file and opts.Overwrite is false, Fetch
// returns an error wrapping ErrExists without touching the network.
//
// Cancellation: the transfer is tied to ctx; opts.Timeout additionally
// bounds the whole operation including retries.
func Fetch(ctx context.Context, asset Asset, opts Options, progress ProgressFunc) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := validate(asset); err != nil {
		return err
	}

	name := asset.Name
	if name == "" {
		name = filepath.Base(asset.Dest)
	}

	emit := func(ev ProgressEvent) {
		if progress != nil {
			if ev.Time.IsZero() {
				ev.Time = time.Now().UTC()
			}
			if ev.Asset == "" {
				ev.Asset = name
			}
			if ev.Dest == "" {
				ev.Dest = asset.Dest
			}
			progress(ev)
		}
	}

	dst := asset.Dest

	// Overwrite check happens before any network or directory side effect.
	if !opts.Overwrite {
		if _, err := os.Stat(dst); err == nil {
			return fmt.Errorf("fetch %s: %s: %w", name, dst, ErrExists)
		}
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("fetch %s: %w", name, &WriteError{Path: filepath.Dir(dst), Err: err})
	}

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	httpc := buildHTTPClient()
	retry := newRetry(opts)

	// A negative retry count means no retries, same as zero; the loop
	// below must always run at least one attempt.
	retries := opts.Retries
	if retries < 0 {
		retries = 0
	}

	emit(ProgressEvent{Event: "fetch_start", Total: asset.Size})

	var lastErr error
	for attempt := 0; attempt <= retries; attempt++ {
		select {
		case <-ctx.Done():
			return fmt.Errorf("fetch %s: %w", name, &TransferError{URL: asset.URL, Err: ctx.Err()})
		default:
		}

		lastErr = fetchOnce(ctx, httpc, asset, name, dst, emit)
		if lastErr == nil {
			emit(ProgressEvent{Event: "fetch_done"})
			return nil
		}

		// Only retryable transfer failures are worth another attempt.
		var te *TransferError
		if !errors.As(lastErr, &te) || !te.IsRetryable() || errors.Is(lastErr, ErrNotFound) {
			break
		}
		if attempt < retries {
			emit(ProgressEvent{Event: "retry", Attempt: attempt + 1, Message: lastErr.Error()})
			if !sleepCtx(ctx, retry.Next()) {
				return fmt.Errorf("fetch %s: %w", name, &TransferError{URL: asset.URL, Err: ctx.Err()})
			}
		}
	}

	emit(ProgressEvent{Event: "error", Message: lastErr.Error()})
	return fmt.Errorf("fetch %s: %w", name, lastErr)
}

// fetchOnce performs a single transfer attempt into a temporary file and
// renames it into place on success. The temporary file never survives a
// failed attempt.
func fetchOnce(ctx context.Context, httpc *http.Client, asset Asset, name, dst string, emit func(ProgressEvent)) (err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, asset.URL, nil)
	if err != nil {
		return &TransferError{URL: asset.URL, Err: err}
	}
	setHeaders(req)

	resp, err := httpc.Do(req)
	if err != nil {
		return &TransferError{URL: asset.URL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError(asset.URL, resp)
	}

	total := asset.Size
	if resp.ContentLength > 0 {
		total = resp.ContentLength
	}

	tmp := dst + ".part"
	out, err := os.Create(tmp)
	if err != nil {
		return &WriteError{Path: tmp, Err: err}
	}
	defer func() {
		if err != nil {
			out.Close()
			os.Remove(tmp)
		}
	}()

	pr := newProgressReader(resp.Body, total, name, dst, emit)
	if _, cerr := io.Copy(out, pr); cerr != nil {
		// A *fs.PathError comes from the local file; anything else is the
		// network side of the copy.
		var perr *fs.PathError
		if errors.As(cerr, &perr) {
			err = &WriteError{Path: tmp, Err: cerr}
		} else {
			err = &TransferError{URL: asset.URL, Err: cerr}
		}
		return err
	}
	if cerr := out.Close(); cerr != nil {
		err = &WriteError{Path: tmp, Err: cerr}
		return err
	}

	// Verify before the rename so a bad transfer never reaches dst.
	if asset.SHA256 != "" {
		if verr := verifySHA256(tmp, asset.SHA256, name); verr != nil {
			os.Remove(tmp)
			err = verr
			return err
		}
	}

	if rerr := os.Rename(tmp, dst); rerr != nil {
		os.Remove(tmp)
		err = &WriteError{Path: dst, Err: rerr}
		return err
	}
	return nil
}

// FetchAll retrieves a set of independent assets.
//
// Each asset writes to a distinct destination, so no ordering is required.
// Assets are fetched sequentially unless opts.Parallel is set, in which
// case an errgroup runs them concurrently and the first failure cancels
// the remaining transfers.
func FetchAll(ctx context.Context, assets []Asset, opts Options, progress ProgressFunc) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if opts.Parallel {
		g, gctx := errgroup.WithContext(ctx)
		for _, a := range assets {
			a := a
			g.Go(func() error {
				return Fetch(gctx, a, opts, progress)
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
	} else {
		for _, a := range assets {
			if err := Fetch(ctx, a, opts, progress); err != nil {
				return err
			}
		}
	}

	if progress != nil {
		progress(ProgressEvent{
			Time:    time.Now().UTC(),
			Event:   "done",
			Message: fmt.Sprintf("fetched %d asset(s)", len(assets)),
		})
	}
	return nil
}
