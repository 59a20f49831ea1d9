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

package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	admissionv1 "k8s.io/api/admission/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/runtime/schema"
	dynamicfake "k8s.io/client-go/dynamic/fake"

	"github.com/qwqVictor/oss-fe-proxy/pkg/apis/ossfe/v1alpha1"
)

func routeObj(namespace, name string, hosts []string) *unstructured.Unstructured {
	hostIfaces := make([]interface{}, len(hosts))
	for i, h := range hosts {
		hostIfaces[i] = h
	}
	return &unstructured.Unstructured{Object: map[string]interface{}{
		"apiVersion": "ossfe.imvictor.tech/v1",
		"kind":       "OSSProxyRoute",
		"metadata": map[string]interface{}{
			"namespace": namespace,
			"name":      name,
		},
		"spec": map[string]interface{}{
			"hosts": hostIfaces,
		},
	}}
}

func newDynamicClient(objects ...runtime.Object) *dynamicfake.FakeDynamicClient {
	scheme := runtime.NewScheme()
	gvrToListKind := map[schema.GroupVersionResource]string{
		routeGVR: "OSSProxyRouteList",
	}
	return dynamicfake.NewSimpleDynamicClientWithCustomListKinds(scheme, gvrToListKind, objects...)
}

func admissionRequestFor(t *testing.T, op admissionv1.Operation, route *unstructured.Unstructured) *admissionv1.AdmissionRequest {
	t.Helper()
	raw, err := json.Marshal(route.Object)
	require.NoError(t, err)
	return &admissionv1.AdmissionRequest{
		UID:       "test-uid",
		Operation: op,
		Name:      route.GetName(),
		Namespace: route.GetNamespace(),
		Kind:      metav1.GroupVersionKind{Group: v1alpha1.GroupName, Version: v1alpha1.Version, Kind: v1alpha1.RouteKind},
		Object:    runtime.RawExtension{Raw: raw},
	}
}

func TestValidateRejectsEmptyHosts(t *testing.T) {
	s := New(newDynamicClient(), 8443, "", "")
	req := admissionRequestFor(t, admissionv1.Create, routeObj("ns", "r1", nil))

	resp := s.validateRoute(context.Background(), req)
	require.False(t, resp.Allowed)
	require.Contains(t, resp.Result.Message, "at least one host")
}

func TestValidateRejectsDuplicateWithinRequest(t *testing.T) {
	s := New(newDynamicClient(), 8443, "", "")
	req := admissionRequestFor(t, admissionv1.Create, routeObj("ns", "r1", []string{"a.example.com", "a.example.com"}))

	resp := s.validateRoute(context.Background(), req)
	require.False(t, resp.Allowed)
	require.Contains(t, resp.Result.Message, "within the same route")
}

// S5: Route A owns a.example/b.example; Route B create with b.example/c.example
// is rejected naming the conflicting host and owning route.
func TestValidateRejectsConflictWithExistingRoute(t *testing.T) {
	existing := routeObj("ns", "A", []string{"a.example", "b.example"})
	s := New(newDynamicClient(existing), 8443, "", "")

	req := admissionRequestFor(t, admissionv1.Create, routeObj("ns", "B", []string{"b.example", "c.example"}))
	resp := s.validateRoute(context.Background(), req)

	require.False(t, resp.Allowed)
	require.Contains(t, resp.Result.Message, "b.example")
	require.Contains(t, resp.Result.Message, "A/ns")
}

func TestValidateAllowsUpdateExcludingSelf(t *testing.T) {
	existing := routeObj("ns", "A", []string{"a.example", "b.example"})
	s := New(newDynamicClient(existing), 8443, "", "")

	req := admissionRequestFor(t, admissionv1.Update, routeObj("ns", "A", []string{"a.example", "b.example", "c.example"}))
	resp := s.validateRoute(context.Background(), req)

	require.True(t, resp.Allowed)
}

func TestValidateAllowsNonRouteKind(t *testing.T) {
	s := New(newDynamicClient(), 8443, "", "")
	req := &admissionv1.AdmissionRequest{
		UID:  "x",
		Kind: metav1.GroupVersionKind{Group: "apps", Version: "v1", Kind: "Deployment"},
	}
	resp := s.validateRoute(context.Background(), req)
	require.True(t, resp.Allowed)
}

func TestHandleHealthReturns200(t *testing.T) {
	s := New(newDynamicClient(), 8443, "", "")
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	s.handleHealth(w, req)
	require.Equal(t, http.StatusOK, w.Code)
}
