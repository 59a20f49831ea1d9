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
	"io"
	"net/http"
	"time"
)

type statusCapturingWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusCapturingWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// WithAccessLog writes one line per request to out, in the
// "time method host path status duration" shape (time is the request's
// start in RFC 3339, UTC); used when --access-log-file
// is set, whose default comes from the ACCESS_LOG_FILE environment
// variable (spec.md §6.5; see options.NewProxyOptions).
func WithAccessLog(delegate http.Handler, out io.Writer) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusCapturingWriter{ResponseWriter: w, status: http.StatusOK}
		delegate.ServeHTTP(sw, r)
		fmt.Fprintf(out, "%s %s %s %s %d %s\n",
			start.UTC().Format(time.RFC3339), r.Method, r.Host, r.URL.Path, sw.status, time.Since(start))
	})
}
