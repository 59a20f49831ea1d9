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
	"fmt"
	"strings"

	"github.com/qwqVictor/oss-fe-proxy/pkg/apis/ossfe/v1alpha1"
)

// objectKeyForPath implements spec.md §4.3(3): replace "/" with the route's
// index file, then join the route's prefix.
func objectKeyForPath(route *v1alpha1.Route, requestPath string) string {
	if requestPath == "/" {
		requestPath = "/" + route.IndexFileOrDefault()
	}
	return route.Spec.Prefix + strings.TrimPrefix(requestPath, "/")
}

// objectKeyForIndex is the SPA-fallback / custom-error-page object key,
// independent of the original request path.
func objectKeyForIndex(route *v1alpha1.Route) string {
	return route.Spec.Prefix + route.IndexFileOrDefault()
}

func objectKeyForErrorPage(route *v1alpha1.Route, suffix string) string {
	return route.Spec.Prefix + suffix
}

// upstreamURL implements spec.md §4.3(4): path-style vs virtual-hosted-style
// addressing. rawQuery is the undecoded query string and may be empty.
func upstreamURL(upstream *v1alpha1.Upstream, bucket, objectKey, rawQuery string) (scheme, host, requestURI string) {
	if upstream.UseHTTPSOrDefault() {
		scheme = "https"
	} else {
		scheme = "http"
	}

	objectKey = strings.TrimPrefix(objectKey, "/")

	if upstream.Spec.PathStyle {
		host = upstream.Spec.Endpoint
		requestURI = "/" + bucket + "/" + objectKey
	} else {
		host = bucket + "." + upstream.Spec.Endpoint
		requestURI = "/" + objectKey
	}

	if rawQuery != "" {
		requestURI = fmt.Sprintf("%s?%s", requestURI, rawQuery)
	}
	return scheme, host, requestURI
}
