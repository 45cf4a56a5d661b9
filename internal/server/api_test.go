// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
)

func newTestServer(t *testing.T) *Server {
	cfg := Config{
		Addr:    "127.0.0.1",
		Port:    0, // Random port
		DataDir: t.TempDir(),
	}
	srv := New(cfg)
	drainJobs(t, srv.jobs)
	return srv
}

func TestAPI_Health(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest("GET", "/api/health", nil)
	w := httptest.NewRecorder()

	srv.handleHealth(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", w.Code)
	}

	var resp map[string]any
	json.Unmarshal(w.Body.Bytes(), &resp)

	if resp["status"] != "ok" {
		t.Errorf("Expected status ok, got %v", resp["status"])
	}
}

func TestAPI_ListAssets(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest("GET", "/api/assets", nil)
	w := httptest.NewRecorder()

	srv.handleListAssets(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", w.Code)
	}

	var resp struct {
		Assets []AssetInfo `json:"assets"`
		Count  int         `json:"count"`
	}
	json.Unmarshal(w.Body.Bytes(), &resp)

	if resp.Count != 2 {
		t.Fatalf("Expected 2 catalog assets, got %d", resp.Count)
	}
	for _, a := range resp.Assets {
		if !strings.HasPrefix(a.Dest, srv.config.DataDir+string(filepath.Separator)) {
			t.Errorf("Asset %s dest not under data dir: %s", a.Name, a.Dest)
		}
		if a.URL == "" {
			t.Errorf("Asset %s has no URL", a.Name)
		}
	}
}

func TestAPI_GetSettings(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest("GET", "/api/settings", nil)
	w := httptest.NewRecorder()

	srv.handleGetSettings(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", w.Code)
	}

	var resp SettingsResponse
	json.Unmarshal(w.Body.Bytes(), &resp)

	if resp.DataDir != srv.config.DataDir {
		t.Errorf("Expected dataDir %s, got %s", srv.config.DataDir, resp.DataDir)
	}
}

func TestAPI_UpdateSettings(t *testing.T) {
	srv := newTestServer(t)

	body := `{"retries": 3, "overwrite": true}`
	req := httptest.NewRequest("POST", "/api/settings", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	srv.handleUpdateSettings(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", w.Code)
	}

	if srv.config.Retries != 3 {
		t.Errorf("Expected retries 3, got %d", srv.config.Retries)
	}
	if !srv.config.Overwrite {
		t.Error("Expected overwrite true")
	}
}

func TestAPI_UpdateSettings_CantChangeDataDir(t *testing.T) {
	srv := newTestServer(t)
	original := srv.config.DataDir

	// Try to inject a different output path (should be ignored)
	body := `{"dataDir": "/etc/passwd"}`
	req := httptest.NewRequest("POST", "/api/settings", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	srv.handleUpdateSettings(w, req)

	if srv.config.DataDir != original {
		t.Errorf("DataDir should not be changeable via API! Got %s", srv.config.DataDir)
	}
}

func TestAPI_StartFetch_Validates(t *testing.T) {
	srv := newTestServer(t)
	upstream := slowServer(t)

	tests := []struct {
		name     string
		body     string
		wantCode int
	}{
		{
			name:     "missing name and url",
			body:     `{}`,
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "both name and url",
			body:     fmt.Sprintf(`{"name": "c4-subset", "url": %q}`, upstream.URL),
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "unknown name",
			body:     `{"name": "no-such-asset"}`,
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "relative url",
			body:     `{"url": "not-a-url"}`,
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "unsupported scheme",
			body:     `{"url": "ftp://host/file"}`,
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "valid url",
			body:     fmt.Sprintf(`{"url": %q}`, upstream.URL+"/valid.bin"),
			wantCode: http.StatusAccepted,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/api/fetch", bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()

			srv.handleStartFetch(w, req)

			if w.Code != tt.wantCode {
				t.Errorf("Expected %d, got %d. Body: %s", tt.wantCode, w.Code, w.Body.String())
			}
		})
	}
}

func TestAPI_StartFetch_DestIgnored(t *testing.T) {
	srv := newTestServer(t)
	upstream := slowServer(t)

	// Try to specify a custom destination path
	body := fmt.Sprintf(`{"url": %q, "dest": "/etc/evil"}`, upstream.URL+"/payload.bin")
	req := httptest.NewRequest("POST", "/api/fetch", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	srv.handleStartFetch(w, req)

	if w.Code != http.StatusAccepted {
		t.Fatalf("Expected 202, got %d", w.Code)
	}

	var resp Job
	json.Unmarshal(w.Body.Bytes(), &resp)

	// Destination should be server-controlled, not from request
	if resp.Dest == "/etc/evil" {
		t.Error("Destination from request should be ignored!")
	}
	if filepath.Dir(resp.Dest) != srv.config.DataDir {
		t.Errorf("Expected server-controlled dest under %s, got %s", srv.config.DataDir, resp.Dest)
	}
}

func TestAPI_StartFetch_DuplicateReturnsExisting(t *testing.T) {
	srv := newTestServer(t)
	upstream := slowServer(t)

	body := fmt.Sprintf(`{"url": %q}`, upstream.URL+"/dup.bin")

	// First request
	req1 := httptest.NewRequest("POST", "/api/fetch", bytes.NewBufferString(body))
	req1.Header.Set("Content-Type", "application/json")
	w1 := httptest.NewRecorder()
	srv.handleStartFetch(w1, req1)

	if w1.Code != http.StatusAccepted {
		t.Fatalf("First request should return 202, got %d", w1.Code)
	}

	var job1 Job
	json.Unmarshal(w1.Body.Bytes(), &job1)

	// Second request (duplicate)
	req2 := httptest.NewRequest("POST", "/api/fetch", bytes.NewBufferString(body))
	req2.Header.Set("Content-Type", "application/json")
	w2 := httptest.NewRecorder()
	srv.handleStartFetch(w2, req2)

	if w2.Code != http.StatusOK {
		t.Fatalf("Duplicate request should return 200, got %d", w2.Code)
	}

	var resp map[string]any
	json.Unmarshal(w2.Body.Bytes(), &resp)

	if resp["message"] != "Fetch already in progress" {
		t.Errorf("Expected duplicate message, got %v", resp["message"])
	}

	jobMap := resp["job"].(map[string]any)
	if jobMap["id"] != job1.ID {
		t.Error("Duplicate should return same job ID")
	}
}

func TestAPI_CancelThenRemoveJob(t *testing.T) {
	srv := newTestServer(t)
	upstream := slowServer(t)

	body := fmt.Sprintf(`{"url": %q}`, upstream.URL+"/rm.bin")
	req := httptest.NewRequest("POST", "/api/fetch", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.handleStartFetch(w, req)

	var job Job
	json.Unmarshal(w.Body.Bytes(), &job)
	if job.ID == "" {
		t.Fatal("Expected a job ID")
	}

	// First DELETE cancels the active job.
	del1 := httptest.NewRequest("DELETE", "/api/jobs/"+job.ID, nil)
	del1.SetPathValue("id", job.ID)
	w1 := httptest.NewRecorder()
	srv.handleCancelJob(w1, del1)

	var resp1 SuccessResponse
	json.Unmarshal(w1.Body.Bytes(), &resp1)
	if resp1.Message != "Job cancelled" {
		t.Errorf("Expected cancel message, got %q", resp1.Message)
	}

	// Second DELETE removes the now-terminal job from the list.
	del2 := httptest.NewRequest("DELETE", "/api/jobs/"+job.ID, nil)
	del2.SetPathValue("id", job.ID)
	w2 := httptest.NewRecorder()
	srv.handleCancelJob(w2, del2)

	var resp2 SuccessResponse
	json.Unmarshal(w2.Body.Bytes(), &resp2)
	if resp2.Message != "Job removed" {
		t.Errorf("Expected removal message, got %q", resp2.Message)
	}

	// The job is gone.
	get := httptest.NewRequest("GET", "/api/jobs/"+job.ID, nil)
	get.SetPathValue("id", job.ID)
	w3 := httptest.NewRecorder()
	srv.handleGetJob(w3, get)
	if w3.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for removed job, got %d", w3.Code)
	}

	// A third DELETE has nothing left to act on.
	del3 := httptest.NewRequest("DELETE", "/api/jobs/"+job.ID, nil)
	del3.SetPathValue("id", job.ID)
	w4 := httptest.NewRecorder()
	srv.handleCancelJob(w4, del3)
	if w4.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown job, got %d", w4.Code)
	}
}

func TestAPI_ListJobs(t *testing.T) {
	srv := newTestServer(t)
	upstream := slowServer(t)

	body := fmt.Sprintf(`{"url": %q}`, upstream.URL+"/list.bin")
	req := httptest.NewRequest("POST", "/api/fetch", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.handleStartFetch(w, req)

	listReq := httptest.NewRequest("GET", "/api/jobs", nil)
	listW := httptest.NewRecorder()
	srv.handleListJobs(listW, listReq)

	if listW.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", listW.Code)
	}

	var resp map[string]any
	json.Unmarshal(listW.Body.Bytes(), &resp)

	count := int(resp["count"].(float64))
	if count < 1 {
		t.Error("Expected at least 1 job")
	}
}
