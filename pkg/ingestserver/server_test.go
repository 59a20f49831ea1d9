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

package ingestserver

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"

	"github.com/qwqVictor/oss-fe-proxy/pkg/routingcache"
)

const testKey = "test-api-key"

func routePayload(namespace, name string, hosts []string) []byte {
	hostIfaces := make([]interface{}, len(hosts))
	for i, h := range hosts {
		hostIfaces[i] = h
	}
	obj := map[string]interface{}{
		"apiVersion": "ossfe.imvictor.tech/v1",
		"kind":       "OSSProxyRoute",
		"metadata": map[string]interface{}{
			"namespace": namespace,
			"name":      name,
		},
		"spec": map[string]interface{}{
			"hosts": hostIfaces,
			"upstreamRef": map[string]interface{}{
				"name": "up1",
			},
			"bucket": "my-bucket",
			"prefix": "/",
		},
	}
	b, _ := json.Marshal(obj)
	return b
}

func upstreamPayload(namespace, name string) []byte {
	obj := map[string]interface{}{
		"apiVersion": "ossfe.imvictor.tech/v1",
		"kind":       "OSSProxyUpstream",
		"metadata": map[string]interface{}{
			"namespace": namespace,
			"name":      name,
		},
		"spec": map[string]interface{}{
			"provider": "aws",
			"endpoint": "s3.amazonaws.com",
			"region":   "us-east-1",
			"credentials": map[string]interface{}{
				"accessKeyId":     "AKID",
				"secretAccessKey": "SECRET",
			},
		},
	}
	b, _ := json.Marshal(obj)
	return b
}

func doPost(t *testing.T, handler http.Handler, path, apiKey string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func TestRouteUpdateAppliesToCache(t *testing.T) {
	cache := routingcache.New()
	s := New(cache, testKey)

	doPost(t, s.Handler(), "/api/upstreams/update", testKey, upstreamPayload("ns", "up1"))
	w := doPost(t, s.Handler(), "/api/routes/update", testKey, routePayload("ns", "r1", []string{"a.example.com"}))
	require.Equal(t, http.StatusOK, w.Code)

	bundle, err := cache.ResolveRouteByHost("a.example.com")
	require.NoError(t, err)
	require.Equal(t, "r1", bundle.Route.Name)
}

func TestRouteDeleteRemovesFromCache(t *testing.T) {
	cache := routingcache.New()
	s := New(cache, testKey)

	doPost(t, s.Handler(), "/api/routes/update", testKey, routePayload("ns", "r1", []string{"a.example.com"}))

	deletePayload, _ := json.Marshal(map[string]interface{}{
		"metadata": map[string]interface{}{"namespace": "ns", "name": "r1"},
	})
	w := doPost(t, s.Handler(), "/api/routes/delete", testKey, deletePayload)
	require.Equal(t, http.StatusOK, w.Code)

	_, err := cache.ResolveRouteByHost("a.example.com")
	require.ErrorIs(t, err, routingcache.ErrUnknownHost)
}

func TestUpstreamUpdateAppliesToCache(t *testing.T) {
	cache := routingcache.New()
	s := New(cache, testKey)

	w := doPost(t, s.Handler(), "/api/upstreams/update", testKey, upstreamPayload("ns", "up1"))
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, 1, cache.Status().UpstreamCount)
}

func TestSecretUpdateAndDelete(t *testing.T) {
	cache := routingcache.New()
	s := New(cache, testKey)

	secret := &corev1.Secret{}
	secret.Namespace = "ns"
	secret.Name = "creds"
	secret.Data = map[string][]byte{"accessKeyId": []byte("AKID"), "secretAccessKey": []byte("SECRET")}
	body, err := json.Marshal(secret)
	require.NoError(t, err)

	w := doPost(t, s.Handler(), "/api/secrets/update", testKey, body)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, 1, cache.Status().SecretCount)

	w = doPost(t, s.Handler(), "/api/secrets/delete", testKey, body)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, 0, cache.Status().SecretCount)
}

func TestRejectsMissingOrWrongAPIKey(t *testing.T) {
	cache := routingcache.New()
	s := New(cache, testKey)

	w := doPost(t, s.Handler(), "/api/routes/update", "", routePayload("ns", "r1", []string{"a.example.com"}))
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = doPost(t, s.Handler(), "/api/routes/update", "wrong-key", routePayload("ns", "r1", []string{"a.example.com"}))
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRejectsNonPostMethod(t *testing.T) {
	cache := routingcache.New()
	s := New(cache, testKey)

	req := httptest.NewRequest(http.MethodGet, "/api/routes/update", nil)
	req.Header.Set("X-API-Key", testKey)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	require.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestHealthIsUnauthenticated(t *testing.T) {
	cache := routingcache.New()
	s := New(cache, testKey)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestRejectsMalformedPayload(t *testing.T) {
	cache := routingcache.New()
	s := New(cache, testKey)

	w := doPost(t, s.Handler(), "/api/routes/update", testKey, []byte("not json"))
	require.Equal(t, http.StatusBadRequest, w.Code)
}
