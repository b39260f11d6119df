// Copyright 2025 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package httpx is the shared retrying HTTP client used by every enricher
// (spec §4.H, §6): it identifies itself with a product+version user-agent,
// retries failed requests with exponential backoff (1s, 2s, 4s, ...) up to
// a configured maximum, and honors a per-request timeout.
package httpx

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	retryablehttp "github.com/hashicorp/go-retryablehttp"

	"github.com/sbomlens/sbomlens/log"
)

// UserAgent is the identifying string sent with every request, per §6.
const UserAgent = "sbomlens/1.0"

// Client wraps a retrying HTTP client with the backoff schedule and
// timeout behavior the enrichers in §4.H require.
type Client struct {
	rc         *retryablehttp.Client
	timeout    time.Duration
	maxRetries int
}

// New returns a Client configured with the given per-request timeout and
// maximum retry count. Retries use exponential backoff starting at 1s and
// doubling each attempt (§4.H), honored strictly: no infinite loops (§5).
func New(timeout time.Duration, maxRetries int) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = maxRetries
	rc.Logger = nil
	rc.HTTPClient.Timeout = timeout
	rc.RequestLogHook = func(_ retryablehttp.Logger, req *http.Request, attempt int) {
		if attempt > 0 {
			log.Debugf("httpx: retrying %s %s (attempt %d)", req.Method, req.URL, attempt)
		}
	}
	rc.Backoff = func(minD, maxD time.Duration, attempt int, _ *http.Response) time.Duration {
		eb := backoff.NewExponentialBackOff()
		eb.InitialInterval = 1 * time.Second
		eb.Multiplier = 2
		eb.RandomizationFactor = 0
		eb.MaxInterval = maxD
		d := eb.InitialInterval
		for i := 0; i < attempt; i++ {
			d *= 2
		}
		if d > maxD {
			d = maxD
		}
		if d < minD {
			d = minD
		}
		return d
	}
	return &Client{rc: rc, timeout: timeout, maxRetries: maxRetries}
}

// Do issues a request, retrying transient failures, and returns the
// response body and status code. The body, if any, is read fully and
// closed before Do returns; callers receive only the bytes.
func (c *Client) Do(ctx context.Context, method, url string, body []byte, headers map[string]string) ([]byte, int, error) {
	var reqBody io.ReadSeeker
	if body != nil {
		reqBody = bytes.NewReader(body)
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return nil, 0, fmt.Errorf("httpx: building request: %w", err)
	}
	req.Header.Set("User-Agent", UserAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.rc.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("httpx: request failed after retries: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("httpx: reading response: %w", err)
	}
	return data, resp.StatusCode, nil
}

// GetJSON is a convenience wrapper around Do for GET requests.
func (c *Client) GetJSON(ctx context.Context, url string) ([]byte, int, error) {
	return c.Do(ctx, http.MethodGet, url, nil, nil)
}

// PostJSON is a convenience wrapper around Do for POST requests with a
// JSON body.
func (c *Client) PostJSON(ctx context.Context, url string, body []byte) ([]byte, int, error) {
	return c.Do(ctx, http.MethodPost, url, body, nil)
}
