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
	"path"
	"strings"
	"time"

	"github.com/qwqVictor/oss-fe-proxy/pkg/apis/ossfe/v1alpha1"
)

const (
	defaultMaxAge       = 3600
	defaultHTMLMaxAge   = 300
	defaultStaticMaxAge = 86400
)

var staticExtensions = map[string]bool{
	".js": true, ".css": true, ".png": true, ".jpg": true, ".jpeg": true,
	".gif": true, ".ico": true, ".svg": true, ".woff": true, ".woff2": true,
	".ttf": true, ".eot": true,
}

// cacheControl implements spec.md §4.4. It returns the empty string when
// caching is disabled for the route.
func cacheControl(cache *v1alpha1.CacheSpec, contentType, requestPath string) (string, time.Duration) {
	if cache != nil && cache.Enabled != nil && !*cache.Enabled {
		return "", 0
	}

	maxAge := defaultMaxAge
	htmlMaxAge := defaultHTMLMaxAge
	staticMaxAge := defaultStaticMaxAge
	if cache != nil {
		if cache.MaxAge > 0 {
			maxAge = cache.MaxAge
		}
		if cache.HTMLMaxAge > 0 {
			htmlMaxAge = cache.HTMLMaxAge
		}
		if cache.StaticMaxAge > 0 {
			staticMaxAge = cache.StaticMaxAge
		}
	}

	seconds := maxAge
	switch {
	case strings.HasPrefix(contentType, "text/html"):
		seconds = htmlMaxAge
	case staticExtensions[strings.ToLower(path.Ext(requestPath))]:
		seconds = staticMaxAge
	}

	d := time.Duration(seconds) * time.Second
	return fmt.Sprintf("public, max-age=%d", seconds), d
}

// htmlCacheControl is used for SPA-fallback and custom-error-page responses,
// which always carry the HTML max-age regardless of the request path
// (spec.md §4.4, "The SPA-fallback and custom-error-page responses always
// use the HTML max-age").
func htmlCacheControl(cache *v1alpha1.CacheSpec) string {
	if cache != nil && cache.Enabled != nil && !*cache.Enabled {
		return ""
	}
	htmlMaxAge := defaultHTMLMaxAge
	if cache != nil && cache.HTMLMaxAge > 0 {
		htmlMaxAge = cache.HTMLMaxAge
	}
	return fmt.Sprintf("public, max-age=%d", htmlMaxAge)
}
