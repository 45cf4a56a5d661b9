// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

// Package tui renders fetch progress for interactive terminal runs.
package tui

import (
	"fmt"
	"os"
	"sync"

	pb "github.com/cheggaaa/pb/v3"
	"github.com/fatih/color"
	"golang.org/x/term"

	"assetfetch/pkg/fetcher"
)

var (
	okColor   = color.New(color.FgGreen).SprintFunc()
	warnColor = color.New(color.FgYellow).SprintFunc()
	errColor  = color.New(color.FgRed).SprintFunc()
)

// Interactive reports whether stdout is a terminal.
func Interactive() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// Renderer drives one progress bar per in-flight asset. Fetches are
// usually sequential, so at most one bar is active at a time; the map
// keeps parallel FetchAll runs safe too.
type Renderer struct {
	mu   sync.Mutex
	bars map[string]*pb.ProgressBar
}

// NewRenderer creates a renderer for interactive runs.
func NewRenderer() *Renderer {
	return &Renderer{bars: map[string]*pb.ProgressBar{}}
}

// Handler returns a ProgressFunc that feeds events to the renderer.
func (r *Renderer) Handler() fetcher.ProgressFunc {
	return func(ev fetcher.ProgressEvent) {
		r.mu.Lock()
		defer r.mu.Unlock()

		switch ev.Event {
		case "fetch_start":
			fmt.Printf("fetching %s -> %s\n", ev.Asset, ev.Dest)
			bar := pb.Full.Start64(ev.Total)
			bar.Set(pb.Bytes, true)
			r.bars[ev.Asset] = bar

		case "progress":
			if bar, ok := r.bars[ev.Asset]; ok {
				if ev.Total > 0 && bar.Total() != ev.Total {
					bar.SetTotal(ev.Total)
				}
				bar.SetCurrent(ev.Downloaded)
			}

		case "retry":
			fmt.Println(warnColor(fmt.Sprintf("retry %s (attempt %d): %s", ev.Asset, ev.Attempt, ev.Message)))

		case "fetch_done":
			if bar, ok := r.bars[ev.Asset]; ok {
				bar.SetCurrent(bar.Total())
				bar.Finish()
				delete(r.bars, ev.Asset)
			}
			fmt.Println(okColor("done: " + ev.Dest))

		case "error":
			if bar, ok := r.bars[ev.Asset]; ok {
				bar.Finish()
				delete(r.bars, ev.Asset)
			}
			fmt.Println(errColor(fmt.Sprintf("error: %s: %s", ev.Asset, ev.Message)))

		case "done":
			fmt.Println(okColor(ev.Message))
		}
	}
}

// Close finishes any bar still running, e.g. after a cancellation.
func (r *Renderer) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for name, bar := range r.bars {
		bar.Finish()
		delete(r.bars, name)
	}
}
