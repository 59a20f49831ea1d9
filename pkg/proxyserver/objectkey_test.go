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
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/qwqVictor/oss-fe-proxy/pkg/apis/ossfe/v1alpha1"
)

func TestObjectKeyForRootPath(t *testing.T) {
	route := &v1alpha1.Route{Spec: v1alpha1.RouteSpec{Prefix: "app/"}}
	require.Equal(t, "app/index.html", objectKeyForPath(route, "/"))
}

func TestObjectKeyForNonRootPath(t *testing.T) {
	route := &v1alpha1.Route{Spec: v1alpha1.RouteSpec{Prefix: "app/"}}
	require.Equal(t, "app/assets/main.js", objectKeyForPath(route, "/assets/main.js"))
}

func TestObjectKeyWithoutPrefix(t *testing.T) {
	route := &v1alpha1.Route{}
	require.Equal(t, "index.html", objectKeyForPath(route, "/"))
}

// P4: pathStyle=true vs false address the same logical object, differing
// only in the documented host/URI transform.
func TestUpstreamURLPathStyle(t *testing.T) {
	upstream := &v1alpha1.Upstream{Spec: v1alpha1.UpstreamSpec{Endpoint: "s3.amazonaws.com", PathStyle: true}}
	scheme, host, uri := upstreamURL(upstream, "my-bucket", "index.html", "")
	require.Equal(t, "https", scheme)
	require.Equal(t, "s3.amazonaws.com", host)
	require.Equal(t, "/my-bucket/index.html", uri)
}

func TestUpstreamURLVirtualHostStyle(t *testing.T) {
	upstream := &v1alpha1.Upstream{Spec: v1alpha1.UpstreamSpec{Endpoint: "s3.amazonaws.com", PathStyle: false}}
	scheme, host, uri := upstreamURL(upstream, "my-bucket", "index.html", "")
	require.Equal(t, "https", scheme)
	require.Equal(t, "my-bucket.s3.amazonaws.com", host)
	require.Equal(t, "/index.html", uri)
}

func TestUpstreamURLHTTPWhenUseHTTPSFalse(t *testing.T) {
	useHTTPS := false
	upstream := &v1alpha1.Upstream{Spec: v1alpha1.UpstreamSpec{Endpoint: "minio.local:9000", UseHTTPS: &useHTTPS}}
	scheme, _, _ := upstreamURL(upstream, "b", "k", "")
	require.Equal(t, "http", scheme)
}

func TestUpstreamURLPreservesQuery(t *testing.T) {
	upstream := &v1alpha1.Upstream{Spec: v1alpha1.UpstreamSpec{Endpoint: "s3.amazonaws.com"}}
	_, _, uri := upstreamURL(upstream, "b", "x", "a=2&z=1")
	require.Equal(t, "/x?a=2&z=1", uri)
}
