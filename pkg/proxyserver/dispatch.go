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

package proxyserver

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/qwqVictor/oss-fe-proxy/pkg/routingcache"
	"github.com/qwqVictor/oss-fe-proxy/pkg/signer"
)

// upstreamResult is the outcome of one object fetch.
type upstreamResult struct {
	statusCode  int
	header      http.Header
	body        []byte
	transportErr error
}

// clientFor builds an *http.Client whose transport signs every request with
// the bundle's credentials. A fresh client is built per resolved bundle
// rather than shared across hosts, since the signing transport is keyed to
// one set of credentials and one region (spec.md §4.3(5)); see
// signer.Transport's doc comment for why a Director-only rewrite does not
// suffice here.
func (h *Handler) clientFor(bundle *routingcache.Bundle) *http.Client {
	connectTimeout := time.Duration(bundle.Upstream.ConnectTimeoutOrDefault()) * time.Second

	base := h.baseTransport
	if base == nil {
		base = http.DefaultTransport
	}

	return &http.Client{
		Timeout: connectTimeout,
		Transport: &signer.Transport{
			Region: bundle.Upstream.Spec.Region,
			Credentials: signer.Credentials{
				AccessKeyID:     bundle.Credentials.AccessKeyID,
				SecretAccessKey: bundle.Credentials.SecretAccessKey,
			},
			Next: base,
		},
	}
}

// fetchObject issues a signed GET for objectKey, making at most
// upstream.retry.maxAttempts attempts in all (P7: bounded upstream retry). Only
// transport errors are retried; a well-formed non-2xx response from the
// store is returned immediately, since it is the caller's job to apply
// SPA/error-page fallback, not this function's.
func (h *Handler) fetchObject(ctx context.Context, bundle *routingcache.Bundle, objectKey, rawQuery string) upstreamResult {
	client := h.clientFor(bundle)
	maxAttempts := bundle.Upstream.MaxAttemptsOrDefault()
	backoff := time.Duration(0)
	if r := bundle.Upstream.Spec.Retry; r != nil && r.BackoffMillis > 0 {
		backoff = time.Duration(r.BackoffMillis) * time.Millisecond
	}

	var last upstreamResult
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		result := h.fetchOnce(ctx, client, bundle, objectKey, rawQuery)
		if result.transportErr == nil {
			return result
		}
		last = result
		if attempt < maxAttempts && backoff > 0 {
			select {
			case <-ctx.Done():
				return upstreamResult{transportErr: ctx.Err()}
			case <-time.After(backoff):
			}
		}
	}
	return last
}

func (h *Handler) fetchOnce(ctx context.Context, client *http.Client, bundle *routingcache.Bundle, objectKey, rawQuery string) upstreamResult {
	scheme, host, requestURI := upstreamURL(bundle.Upstream, bundle.Route.Spec.Bucket, objectKey, rawQuery)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s://%s%s", scheme, host, requestURI), nil)
	if err != nil {
		return upstreamResult{transportErr: err}
	}
	req.Host = host

	resp, err := client.Do(req)
	if err != nil {
		return upstreamResult{transportErr: err}
	}
	defer resp.Body.Close()

	body, err := readAllLimited(resp.Body)
	if err != nil {
		return upstreamResult{transportErr: err}
	}
	return upstreamResult{statusCode: resp.StatusCode, header: resp.Header, body: body}
}
