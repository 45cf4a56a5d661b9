// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"assetfetch/pkg/fetcher"
)

// FetchRequest is the request body for starting a fetch.
// Note: Destination paths are NOT configurable via API for security
// reasons. The server places every fetch under its configured DataDir.
type FetchRequest struct {
	Name      string `json:"name,omitempty"` // catalog asset name
	URL       string `json:"url,omitempty"`  // ad-hoc remote locator
	Overwrite bool   `json:"overwrite,omitempty"`
}

// AssetInfo describes a catalog entry.
type AssetInfo struct {
	Name string `json:"name"`
	URL  string `json:"url"`
	Dest string `json:"dest"`
}

// SettingsResponse represents current settings.
type SettingsResponse struct {
	DataDir   string `json:"dataDir"`
	Retries   int    `json:"retries"`
	Overwrite bool   `json:"overwrite"`
}

// ErrorResponse represents an API error.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// SuccessResponse represents a simple success message.
type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// --- Handlers ---

// handleHealth returns server health status.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// handleListAssets returns the built-in asset catalog, with
// destinations resolved against the server data directory.
func (s *Server) handleListAssets(w http.ResponseWriter, r *http.Request) {
	catalog := fetcher.Catalog()
	assets := make([]AssetInfo, 0, len(catalog))
	for _, a := range catalog {
		resolved := fetcher.Resolve(a, s.config.DataDir)
		assets = append(assets, AssetInfo{
			Name: resolved.Name,
			URL:  resolved.URL,
			Dest: resolved.Dest,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"assets": assets,
		"count":  len(assets),
	})
}

// handleStartFetch starts a new fetch job.
func (s *Server) handleStartFetch(w http.ResponseWriter, r *http.Request) {
	var req FetchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}

	// Validate
	if req.Name == "" && req.URL == "" {
		writeError(w, http.StatusBadRequest, "Missing required field: name or url", "")
		return
	}
	if req.Name != "" && req.URL != "" {
		writeError(w, http.StatusBadRequest, "Specify either name or url, not both", "")
		return
	}
	if req.Name != "" {
		if _, ok := fetcher.Lookup(req.Name); !ok {
			writeError(w, http.StatusBadRequest, "Unknown asset name", req.Name)
			return
		}
	}
	if req.URL != "" {
		u, err := url.ParseRequestURI(req.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			writeError(w, http.StatusBadRequest, "Invalid URL", "Expected an absolute http(s) URL")
			return
		}
	}

	// Create and start the job (or return existing if duplicate)
	job, wasExisting, err := s.jobs.CreateJob(req)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create job", err.Error())
		return
	}

	if wasExisting {
		// Job already exists for this asset - return it with 200
		writeJSON(w, http.StatusOK, map[string]any{
			"job":     job,
			"message": "Fetch already in progress",
		})
	} else {
		writeJSON(w, http.StatusAccepted, job)
	}
}

// handleListJobs returns all jobs.
func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	jobs := s.jobs.ListJobs()
	writeJSON(w, http.StatusOK, map[string]any{
		"jobs":  jobs,
		"count": len(jobs),
	})
}

// handleGetJob returns a specific job.
func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "Missing job ID", "")
		return
	}

	job, ok := s.jobs.GetJob(id)
	if !ok {
		writeError(w, http.StatusNotFound, "Job not found", "")
		return
	}

	writeJSON(w, http.StatusOK, job)
}

// handleCancelJob cancels an active job, or removes a terminal one.
func (s *Server) handleCancelJob(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "Missing job ID", "")
		return
	}

	if s.jobs.CancelJob(id) {
		writeJSON(w, http.StatusOK, SuccessResponse{
			Success: true,
			Message: "Job cancelled",
		})
		return
	}

	// Already completed, failed, or cancelled: drop it from the list.
	if s.jobs.DeleteJob(id) {
		writeJSON(w, http.StatusOK, SuccessResponse{
			Success: true,
			Message: "Job removed",
		})
		return
	}

	writeError(w, http.StatusNotFound, "Job not found", "")
}

// handleGetSettings returns current settings.
func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	resp := SettingsResponse{
		DataDir:   s.config.DataDir,
		Retries:   s.config.Retries,
		Overwrite: s.config.Overwrite,
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleUpdateSettings updates settings.
// Note: The data directory cannot be changed via API for security.
func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Retries   *int  `json:"retries,omitempty"`
		Overwrite *bool `json:"overwrite,omitempty"`
		// Note: DataDir is NOT updatable via API for security
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}

	// Update config (only safe fields)
	if req.Retries != nil && *req.Retries >= 0 {
		s.config.Retries = *req.Retries
	}
	if req.Overwrite != nil {
		s.config.Overwrite = *req.Overwrite
	}

	// Also update job manager config
	s.jobs.UpdateConfig(s.config)

	writeJSON(w, http.StatusOK, SuccessResponse{
		Success: true,
		Message: "Settings updated",
	})
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message, details string) {
	writeJSON(w, status, ErrorResponse{
		Error:   message,
		Details: details,
	})
}
