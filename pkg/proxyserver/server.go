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

// Package proxyserver implements the client-facing request pipeline:
// readiness gate, host resolution, object-key synthesis, SigV4 dispatch, and
// SPA/error-page fallback. Grounded on kcp-dev-kcp's pkg/proxy
// shardHandler/handler.go for its shape (a plain http.HandlerFunc doing
// lookup-then-dispatch, klog.FromContext logging), not its
// httputil.ReverseProxy reuse — see dispatch.go for why SigV4 needs its own
// RoundTripper instead.
package proxyserver

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"k8s.io/klog/v2"

	"github.com/qwqVictor/oss-fe-proxy/pkg/apis/ossfe/v1alpha1"
	"github.com/qwqVictor/oss-fe-proxy/pkg/metrics"
	"github.com/qwqVictor/oss-fe-proxy/pkg/routingcache"
)

const maxUpstreamBodyBytes = 64 << 20 // 64MiB; static frontend assets, not arbitrary object storage

// hopByHopHeaders are stripped from the upstream response before it is
// copied to the client (spec.md §4.3(7)).
var hopByHopHeaders = []string{"Connection", "Transfer-Encoding", "Keep-Alive", "Proxy-Authenticate", "Proxy-Authorization", "Te", "Trailer", "Upgrade"}

// Handler is the client-facing HTTP handler.
type Handler struct {
	Cache   *routingcache.Cache
	Metrics *metrics.Store

	// baseTransport is the RoundTripper each request's signer.Transport
	// wraps; overridable in tests, defaults to http.DefaultTransport.
	baseTransport http.RoundTripper
}

// New returns a Handler ready to serve requests.
func New(cache *routingcache.Cache, store *metrics.Store) *Handler {
	return &Handler{Cache: cache, Metrics: store}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	logger := klog.FromContext(req.Context())
	start := time.Now()

	if !h.Cache.IsReady() {
		logger.V(4).Info("cache not ready, returning 503")
		http.Error(w, "cache not yet synchronized", http.StatusServiceUnavailable)
		return
	}

	host := req.Host
	if host == "" {
		host = req.URL.Host
	}
	host = stripPort(host)

	bundle, err := h.Cache.ResolveRouteByHost(host)
	if err != nil {
		h.respondResolveError(w, host, err, logger)
		return
	}

	requestPath := req.URL.Path
	if requestPath == "" {
		requestPath = "/"
	}
	objectKey := objectKeyForPath(bundle.Route, requestPath)

	result := h.fetchObject(req.Context(), bundle, objectKey, req.URL.RawQuery)
	h.dispatchResult(w, req, bundle, result, requestPath)

	h.recordMetrics(bundle, time.Since(start), result)
}

func (h *Handler) respondResolveError(w http.ResponseWriter, host string, err error, logger klog.Logger) {
	switch {
	case errors.Is(err, routingcache.ErrNotReady):
		http.Error(w, "cache not yet synchronized", http.StatusServiceUnavailable)
	case errors.Is(err, routingcache.ErrUnknownHost):
		logger.V(4).Info("unknown host", "host", host)
		http.Error(w, "no route configured for host: "+host, http.StatusNotFound)
	case errors.Is(err, routingcache.ErrUpstreamMissing), errors.Is(err, routingcache.ErrSecretMissing):
		logger.Error(err, "route misconfigured", "host", host)
		http.Error(w, "upstream misconfigured", http.StatusInternalServerError)
	default:
		logger.Error(err, "unexpected cache error", "host", host)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func (h *Handler) dispatchResult(w http.ResponseWriter, req *http.Request, bundle *routingcache.Bundle, result upstreamResult, requestPath string) {
	logger := klog.FromContext(req.Context())

	if result.transportErr != nil {
		logger.Error(result.transportErr, "upstream transport error", "route", bundle.Route.Name)
		http.Error(w, "upstream request failed", http.StatusInternalServerError)
		return
	}

	if result.statusCode >= 200 && result.statusCode < 300 {
		h.writeUpstreamResponse(w, bundle.Route, result, requestPath)
		return
	}

	if result.statusCode == http.StatusNotFound {
		h.handleNotFound(req, w, bundle, requestPath)
		return
	}

	h.writeUpstreamResponse(w, bundle.Route, result, requestPath)
}

func (h *Handler) handleNotFound(req *http.Request, w http.ResponseWriter, bundle *routingcache.Bundle, requestPath string) {
	route := bundle.Route

	if route.Spec.SpaApp {
		indexResult := h.fetchObject(req.Context(), bundle, objectKeyForIndex(route), "")
		if indexResult.transportErr == nil && indexResult.statusCode == http.StatusOK {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			if cc := htmlCacheControl(route.Spec.Cache); cc != "" {
				w.Header().Set("Cache-Control", cc)
			}
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write(indexResult.body)
			return
		}
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	if suffix, ok := route.Spec.ErrorPages["404"]; ok {
		pageResult := h.fetchObject(req.Context(), bundle, objectKeyForErrorPage(route, suffix), "")
		if pageResult.transportErr == nil && pageResult.statusCode == http.StatusOK {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			if cc := htmlCacheControl(route.Spec.Cache); cc != "" {
				w.Header().Set("Cache-Control", cc)
			}
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write(pageResult.body)
			return
		}
	}

	http.Error(w, "not found", http.StatusNotFound)
}

func (h *Handler) writeUpstreamResponse(w http.ResponseWriter, route *v1alpha1.Route, result upstreamResult, requestPath string) {
	for k, vv := range result.header {
		if isHopByHop(k) {
			continue
		}
		for _, v := range vv {
			w.Header().Add(k, v)
		}
	}

	contentType := result.header.Get("Content-Type")
	if cc, _ := cacheControl(route.Spec.Cache, contentType, requestPath); cc != "" {
		w.Header().Set("Cache-Control", cc)
	}

	w.WriteHeader(result.statusCode)
	_, _ = w.Write(result.body)
}

func (h *Handler) recordMetrics(bundle *routingcache.Bundle, latency time.Duration, result upstreamResult) {
	if h.Metrics == nil {
		return
	}
	isError := result.transportErr != nil || result.statusCode >= 400
	h.Metrics.Observe(
		bundle.Route.Namespace, bundle.Route.Name,
		bundle.Upstream.Namespace, bundle.Upstream.Name,
		latency, isError,
	)
}

func isHopByHop(header string) bool {
	for _, h := range hopByHopHeaders {
		if strings.EqualFold(h, header) {
			return true
		}
	}
	return false
}

func stripPort(host string) string {
	if idx := strings.LastIndex(host, ":"); idx != -1 && !strings.Contains(host[idx:], "]") {
		return host[:idx]
	}
	return host
}

func readAllLimited(r io.Reader) ([]byte, error) {
	return io.ReadAll(io.LimitReader(r, maxUpstreamBodyBytes))
}
