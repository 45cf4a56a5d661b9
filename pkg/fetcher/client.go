// Copyright 2025
// SPDX-License-Identifier: Apache-2.0

package fetcher

import (
	"net/http"
	"time"
)

// buildHTTPClient creates an HTTP client with sensible defaults.
// The client itself carries no overall timeout; the transfer deadline is
// applied through the request context.
func buildHTTPClient() *http.Client {
	tr := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          16,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	return &http.Client{Transport: tr}
}

// setHeaders adds the standard request headers.
func setHeaders(req *http.Request) {
	req.Header.Set("User-Agent", "assetfetch/1")
	req.Header.Set("Accept", "*/*")
}

// statusError classifies a non-2xx response into the error taxonomy.
func statusError(url string, resp *http.Response) error {
	return &TransferError{
		URL:        url,
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
	}
}
