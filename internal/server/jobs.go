// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"assetfetch/pkg/fetcher"
)

// JobStatus represents the state of a fetch job.
type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// Job represents a fetch job.
type Job struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	URL       string      `json:"url"`
	Dest      string      `json:"dest"`
	Overwrite bool        `json:"overwrite,omitempty"`
	Status    JobStatus   `json:"status"`
	Progress  JobProgress `json:"progress"`
	Error     string      `json:"error,omitempty"`
	CreatedAt time.Time   `json:"createdAt"`
	StartedAt *time.Time  `json:"startedAt,omitempty"`
	EndedAt   *time.Time  `json:"endedAt,omitempty"`

	cancel context.CancelFunc `json:"-"`
}

// JobProgress holds transfer progress info.
type JobProgress struct {
	TotalBytes      int64 `json:"totalBytes"`
	DownloadedBytes int64 `json:"downloadedBytes"`
}

// JobManager manages fetch jobs.
type JobManager struct {
	mu         sync.RWMutex
	jobs       map[string]*Job
	config     Config
	listeners  []chan *Job
	listenerMu sync.RWMutex
	wsHub      *WSHub
}

// NewJobManager creates a new job manager.
func NewJobManager(cfg Config, wsHub *WSHub) *JobManager {
	return &JobManager{
		jobs:   make(map[string]*Job),
		config: cfg,
		wsHub:  wsHub,
	}
}

// UpdateConfig replaces the fetch defaults used by future jobs.
// Jobs already running keep the options they started with.
func (m *JobManager) UpdateConfig(cfg Config) {
	m.mu.Lock()
	m.config = cfg
	m.mu.Unlock()
}

// generateID creates a short random ID.
func generateID() string {
	b := make([]byte, 6)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// resolveAsset maps a request onto a concrete asset. Catalog names take
// precedence; raw URLs land under the data directory with a sanitized
// file name. Destinations are never taken from the request.
// Caller must hold m.mu.
func (m *JobManager) resolveAsset(req FetchRequest) (fetcher.Asset, error) {
	if req.Name != "" {
		asset, ok := fetcher.Lookup(req.Name)
		if !ok {
			return fetcher.Asset{}, fmt.Errorf("unknown asset %q", req.Name)
		}
		return fetcher.Resolve(asset, m.config.DataDir), nil
	}

	name := fetcher.DestName(req.URL)
	return fetcher.Asset{
		Name: name,
		URL:  req.URL,
		Dest: filepath.Join(m.config.DataDir, name),
	}, nil
}

// CreateJob creates a new fetch job.
// Returns the existing job if the same URL+dest is already in progress.
func (m *JobManager) CreateJob(req FetchRequest) (*Job, bool, error) {
	m.mu.Lock()
	asset, err := m.resolveAsset(req)
	if err != nil {
		m.mu.Unlock()
		return nil, false, err
	}

	for _, existing := range m.jobs {
		if existing.URL == asset.URL &&
			existing.Dest == asset.Dest &&
			(existing.Status == JobStatusQueued || existing.Status == JobStatusRunning) {
			m.mu.Unlock()
			return existing, true, nil
		}
	}

	// The cancel func is stored under m.mu before the worker goroutine
	// starts, so CancelJob always finds it, even for a still-queued job.
	ctx, cancel := context.WithCancel(context.Background())
	job := &Job{
		ID:        generateID(),
		Name:      asset.Name,
		URL:       asset.URL,
		Dest:      asset.Dest, // Server-controlled, not from request
		Overwrite: req.Overwrite,
		Status:    JobStatusQueued,
		CreatedAt: time.Now(),
		Progress:  JobProgress{},
		cancel:    cancel,
	}

	m.jobs[job.ID] = job
	m.mu.Unlock()

	go m.runJob(ctx, job, asset)

	return job, false, nil
}

// GetJob retrieves a job by ID.
func (m *JobManager) GetJob(id string) (*Job, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	job, ok := m.jobs[id]
	return job, ok
}

// ListJobs returns all jobs.
func (m *JobManager) ListJobs() []*Job {
	m.mu.RLock()
	defer m.mu.RUnlock()

	jobs := make([]*Job, 0, len(m.jobs))
	for _, job := range m.jobs {
		jobs = append(jobs, job)
	}
	return jobs
}

// CancelJob cancels a running or queued job.
func (m *JobManager) CancelJob(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[id]
	if !ok {
		return false
	}

	if job.Status == JobStatusQueued || job.Status == JobStatusRunning {
		if job.cancel != nil {
			job.cancel()
		}
		job.Status = JobStatusCancelled
		now := time.Now()
		job.EndedAt = &now
		m.notifyListeners(job)
		return true
	}

	return false
}

// DeleteJob removes a job from the list.
func (m *JobManager) DeleteJob(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[id]
	if !ok {
		return false
	}

	if job.cancel != nil && (job.Status == JobStatusQueued || job.Status == JobStatusRunning) {
		job.cancel()
	}

	delete(m.jobs, id)
	return true
}

// Subscribe adds a listener for job updates.
func (m *JobManager) Subscribe() chan *Job {
	ch := make(chan *Job, 100)
	m.listenerMu.Lock()
	m.listeners = append(m.listeners, ch)
	m.listenerMu.Unlock()
	return ch
}

// Unsubscribe removes a listener.
func (m *JobManager) Unsubscribe(ch chan *Job) {
	m.listenerMu.Lock()
	defer m.listenerMu.Unlock()

	for i, listener := range m.listeners {
		if listener == ch {
			m.listeners = append(m.listeners[:i], m.listeners[i+1:]...)
			close(ch)
			return
		}
	}
}

func (m *JobManager) notifyListeners(job *Job) {
	m.listenerMu.RLock()
	for _, ch := range m.listeners {
		select {
		case ch <- job:
		default:
			// Listener is slow, skip
		}
	}
	m.listenerMu.RUnlock()

	if m.wsHub != nil {
		m.wsHub.BroadcastJob(job)
	}
}

// runJob executes the fetch job.
func (m *JobManager) runJob(ctx context.Context, job *Job, asset fetcher.Asset) {
	m.mu.Lock()
	// A cancel may land while the job is still queued; don't resurrect it.
	if job.Status != JobStatusQueued {
		m.mu.Unlock()
		return
	}
	job.Status = JobStatusRunning
	now := time.Now()
	job.StartedAt = &now
	opts := fetcher.DefaultOptions()
	opts.Overwrite = job.Overwrite || m.config.Overwrite
	opts.Retries = m.config.Retries
	m.mu.Unlock()
	m.notifyListeners(job)

	// Progress callback - must not hold the lock when calling notifyListeners
	progressFunc := func(evt fetcher.ProgressEvent) {
		m.mu.Lock()

		switch evt.Event {
		case "fetch_start":
			job.Progress.TotalBytes = evt.Total

		case "progress":
			if evt.Total > 0 {
				job.Progress.TotalBytes = evt.Total
			}
			job.Progress.DownloadedBytes = evt.Downloaded

		case "fetch_done":
			if job.Progress.TotalBytes == 0 {
				job.Progress.TotalBytes = job.Progress.DownloadedBytes
			}
			job.Progress.DownloadedBytes = job.Progress.TotalBytes
		}

		m.mu.Unlock() // Unlock BEFORE notifying to avoid deadlock
		m.notifyListeners(job)
	}

	err := fetcher.Fetch(ctx, asset, opts, progressFunc)

	m.mu.Lock()
	endTime := time.Now()
	job.EndedAt = &endTime
	if ctx.Err() != nil {
		job.Status = JobStatusCancelled
	} else if err != nil {
		job.Status = JobStatusFailed
		job.Error = err.Error()
	} else {
		job.Status = JobStatusCompleted
	}
	m.mu.Unlock()

	m.notifyListeners(job)
}
