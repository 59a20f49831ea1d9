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
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/qwqVictor/oss-fe-proxy/pkg/apis/ossfe/v1alpha1"
	"github.com/qwqVictor/oss-fe-proxy/pkg/metrics"
	"github.com/qwqVictor/oss-fe-proxy/pkg/routingcache"
)

func TestRootHandlerHealthNotReady(t *testing.T) {
	cache := routingcache.New()
	store := metrics.New()
	root := NewRootHandler(http.NotFoundHandler(), cache, store)

	w := httptest.NewRecorder()
	root.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestRootHandlerHealthReady(t *testing.T) {
	cache := routingcache.New()
	cache.UpdateRoute(&v1alpha1.Route{
		ObjectMeta: metav1.ObjectMeta{Namespace: "ns", Name: "r1"},
		Spec:       v1alpha1.RouteSpec{Hosts: []string{"app.example.com"}},
	})
	store := metrics.New()
	root := NewRootHandler(http.NotFoundHandler(), cache, store)

	w := httptest.NewRecorder()
	root.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)
}

func TestRootHandlerMetrics(t *testing.T) {
	cache := routingcache.New()
	store := metrics.New()
	store.Observe("ns", "r1", "ns", "u1", 0, false)
	root := NewRootHandler(http.NotFoundHandler(), cache, store)

	w := httptest.NewRecorder()
	root.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "ossfe_requests_total")
}

func TestRootHandlerFallsThroughToDelegate(t *testing.T) {
	cache := routingcache.New()
	store := metrics.New()
	delegate := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	root := NewRootHandler(delegate, cache, store)

	w := httptest.NewRecorder()
	root.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/some/path", nil))
	require.Equal(t, http.StatusTeapot, w.Code)
}
