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

package reflector

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/runtime/schema"
	dynamicfake "k8s.io/client-go/dynamic/fake"
	"k8s.io/client-go/kubernetes/fake"

	"github.com/qwqVictor/oss-fe-proxy/pkg/ingestclient"
)

func newRouteUnstructured(namespace, name string, hosts []string) *unstructured.Unstructured {
	return &unstructured.Unstructured{Object: map[string]interface{}{
		"apiVersion": "ossfe.imvictor.tech/v1",
		"kind":       "OSSProxyRoute",
		"metadata": map[string]interface{}{
			"namespace": namespace,
			"name":      name,
		},
		"spec": map[string]interface{}{
			"hosts":  toInterfaceSlice(hosts),
			"bucket": "b",
		},
	}}
}

func toInterfaceSlice(ss []string) []interface{} {
	out := make([]interface{}, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

type recordingPushServer struct {
	mu    sync.Mutex
	paths []string
}

func (s *recordingPushServer) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.paths = append(s.paths, r.URL.Path)
		s.mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}
}

func (s *recordingPushServer) Paths() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.paths))
	copy(out, s.paths)
	return out
}

func newDynamicClient(objects ...runtime.Object) *dynamicfake.FakeDynamicClient {
	scheme := runtime.NewScheme()
	gvrToListKind := map[schema.GroupVersionResource]string{
		routeGVR:    "OSSProxyRouteList",
		upstreamGVR: "OSSProxyUpstreamList",
	}
	return dynamicfake.NewSimpleDynamicClientWithCustomListKinds(scheme, gvrToListKind, objects...)
}

func TestSyncAllPushesRoutesAndUpstreams(t *testing.T) {
	recorder := &recordingPushServer{}
	srv := httptest.NewServer(recorder.handler())
	defer srv.Close()

	route := newRouteUnstructured("ns", "r1", []string{"a.example.com"})
	dyn := newDynamicClient(route)
	clientset := fake.NewSimpleClientset()

	r := New(dyn, clientset, ingestclient.New(srv.URL, "key"))
	require.NoError(t, r.syncAll(context.Background()))

	paths := recorder.Paths()
	require.Contains(t, paths, "/api/routes/update")
}

func TestSyncAllCascadesSecret(t *testing.T) {
	recorder := &recordingPushServer{}
	srv := httptest.NewServer(recorder.handler())
	defer srv.Close()

	upstream := &unstructured.Unstructured{Object: map[string]interface{}{
		"apiVersion": "ossfe.imvictor.tech/v1",
		"kind":       "OSSProxyUpstream",
		"metadata": map[string]interface{}{
			"namespace": "ns",
			"name":      "up1",
		},
		"spec": map[string]interface{}{
			"provider": "aws",
			"region":   "us-east-1",
			"endpoint": "s3.amazonaws.com",
			"credentials": map[string]interface{}{
				"secretRef": map[string]interface{}{
					"name": "creds",
				},
			},
		},
	}}
	dyn := newDynamicClient(upstream)
	clientset := fake.NewSimpleClientset(&corev1.Secret{
		ObjectMeta: metav1.ObjectMeta{Namespace: "ns", Name: "creds"},
		Data:       map[string][]byte{"accessKeyId": []byte("AKID")},
	})

	r := New(dyn, clientset, ingestclient.New(srv.URL, "key"))
	require.NoError(t, r.syncAll(context.Background()))

	paths := recorder.Paths()
	require.Contains(t, paths, "/api/upstreams/update")
	require.Contains(t, paths, "/api/secrets/update")
}

func TestSyncAllSucceedsOnEmptyState(t *testing.T) {
	recorder := &recordingPushServer{}
	srv := httptest.NewServer(recorder.handler())
	defer srv.Close()

	dyn := newDynamicClient()
	clientset := fake.NewSimpleClientset()

	r := New(dyn, clientset, ingestclient.New(srv.URL, "key"))
	require.NoError(t, r.syncAll(context.Background()), "empty lists are not an error")
}
