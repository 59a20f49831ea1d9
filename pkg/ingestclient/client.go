/*
Copyright 2026 The OSS FE Proxy Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package ingestclient is the Watcher-side loopback client that pushes
// reflected cluster state to the Proxy's internal ingestion API (spec.md
// §6.3). Grounded almost verbatim on original_source/cmd/watcher/main.go's
// notifyOpenresty: single attempt, short timeout, API-key header; the
// reflector's caller decides whether a failed push is worth logging and
// counting, not this client (spec.md §4.1, "the reflector does not retry
// automatically").
package ingestclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const defaultTimeout = 5 * time.Second

// Client pushes serialized objects to the Proxy's loopback ingestion API.
type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

// New returns a Client posting to baseURL (e.g. "http://127.0.0.1:9180")
// with the given shared API key.
func New(baseURL, apiKey string) *Client {
	return &Client{
		BaseURL: baseURL,
		APIKey:  apiKey,
		HTTPClient: &http.Client{
			Timeout: defaultTimeout,
		},
	}
}

// Kind names the resource segment of the ingestion endpoints of spec.md
// §6.3; together with Action it selects one of the six endpoints.
type Kind string

const (
	KindRoute    Kind = "routes"
	KindUpstream Kind = "upstreams"
	KindSecret   Kind = "secrets"
)

// Action is update or delete.
type Action string

const (
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Push POSTs obj (already JSON-serialized) to /api/{kind}/{action}. A 200
// response is success; anything else is a retryable push failure that the
// caller logs and counts, per spec.md §4.1.
func (c *Client) Push(ctx context.Context, kind Kind, action Action, obj interface{}) error {
	data, err := json.Marshal(obj)
	if err != nil {
		return fmt.Errorf("marshal object: %w", err)
	}

	url := fmt.Sprintf("%s/api/%s/%s", c.BaseURL, kind, action)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", c.APIKey)

	client := c.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("push %s %s: %w", kind, action, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("push %s %s: status %d", kind, action, resp.StatusCode)
	}
	return nil
}
