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

// Package ingestserver is the Proxy-side half of the internal ingestion API
// (spec.md §6.3): six loopback, API-key-gated POST endpoints that decode
// the Watcher's pushed objects and apply them to the shared routingcache.
// The six-endpoint surface itself, and the X-API-Key gate, are carried
// over unmodified from original_source's Lua ingestion handlers (described
// in spec.md §6.3); their wiring into net/http and klog here matches this
// repo's other HTTP servers.
package ingestserver

import (
	"encoding/json"
	"io"
	"net/http"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/klog/v2"

	"github.com/qwqVictor/oss-fe-proxy/pkg/apis/ossfe/v1alpha1"
	"github.com/qwqVictor/oss-fe-proxy/pkg/metrics"
	"github.com/qwqVictor/oss-fe-proxy/pkg/routingcache"
)

// Server is the loopback ingestion API.
type Server struct {
	Cache  *routingcache.Cache
	APIKey string

	mux *http.ServeMux
}

// New returns a Server ready to be wrapped in an http.Server.
func New(cache *routingcache.Cache, apiKey string) *Server {
	s := &Server{Cache: cache, APIKey: apiKey, mux: http.NewServeMux()}

	s.mux.HandleFunc("/api/routes/update", s.withAuth(s.handleRouteUpdate))
	s.mux.HandleFunc("/api/routes/delete", s.withAuth(s.handleRouteDelete))
	s.mux.HandleFunc("/api/upstreams/update", s.withAuth(s.handleUpstreamUpdate))
	s.mux.HandleFunc("/api/upstreams/delete", s.withAuth(s.handleUpstreamDelete))
	s.mux.HandleFunc("/api/secrets/update", s.withAuth(s.handleSecretUpdate))
	s.mux.HandleFunc("/api/secrets/delete", s.withAuth(s.handleSecretDelete))
	s.mux.HandleFunc("/health", s.handleHealth)

	return s
}

// Handler returns the latency-tracked http.Handler to mount under the
// ingestion listener.
func (s *Server) Handler() http.Handler {
	return metrics.WithIngestLatencyTracking(s.mux)
}

func (s *Server) withAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if r.Header.Get("X-API-Key") != s.APIKey || s.APIKey == "" {
			http.Error(w, "invalid api key", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

// handleHealth is unauthenticated: it only confirms the ingestion listener
// itself is accepting connections, the same liveness check original_source's
// waitForOpenResty performs against the Lua side before the first syncAll.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func readUnstructured(r *http.Request) (*unstructured.Unstructured, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}
	u := &unstructured.Unstructured{}
	if err := json.Unmarshal(body, &u.Object); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Server) handleRouteUpdate(w http.ResponseWriter, r *http.Request) {
	u, err := readUnstructured(r)
	if err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	route, err := v1alpha1.RouteFromUnstructured(u)
	if err != nil {
		http.Error(w, "invalid route: "+err.Error(), http.StatusBadRequest)
		return
	}
	s.Cache.UpdateRoute(route)
	klog.FromContext(r.Context()).V(4).Info("ingested route update", "namespace", route.Namespace, "name", route.Name)
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleRouteDelete(w http.ResponseWriter, r *http.Request) {
	u, err := readUnstructured(r)
	if err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	s.Cache.DeleteRoute(u.GetNamespace(), u.GetName())
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleUpstreamUpdate(w http.ResponseWriter, r *http.Request) {
	u, err := readUnstructured(r)
	if err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	upstream, err := v1alpha1.UpstreamFromUnstructured(u)
	if err != nil {
		http.Error(w, "invalid upstream: "+err.Error(), http.StatusBadRequest)
		return
	}
	s.Cache.UpdateUpstream(upstream)
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleUpstreamDelete(w http.ResponseWriter, r *http.Request) {
	u, err := readUnstructured(r)
	if err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	s.Cache.DeleteUpstream(u.GetNamespace(), u.GetName())
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleSecretUpdate(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	secret := &corev1.Secret{}
	if err := json.Unmarshal(body, secret); err != nil {
		http.Error(w, "invalid secret: "+err.Error(), http.StatusBadRequest)
		return
	}
	s.Cache.UpdateSecret(secret)
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleSecretDelete(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	secret := &corev1.Secret{}
	if err := json.Unmarshal(body, secret); err != nil {
		http.Error(w, "invalid secret: "+err.Error(), http.StatusBadRequest)
		return
	}
	s.Cache.DeleteSecret(secret.Namespace, secret.Name)
	w.WriteHeader(http.StatusOK)
}
