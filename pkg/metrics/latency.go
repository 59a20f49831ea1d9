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

package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	compbasemetrics "k8s.io/component-base/metrics"
	"k8s.io/component-base/metrics/legacyregistry"
)

// WithIngestLatencyTracking wraps the loopback ingestion API with request
// duration tracking. Its label set (method, code) is fixed at program
// start, unlike the per-resource store in store.go, so it uses
// component-base/metrics + promhttp unmodified, grounded directly on
// kcp-dev-kcp's pkg/proxy/metrics.WithLatencyTracking.
func WithIngestLatencyTracking(delegate http.Handler) http.Handler {
	return promhttp.InstrumentHandlerDuration(ingestLatencies.HistogramVec, delegate)
}

// WithWebhookLatencyTracking is the same wrapper for the admission webhook.
func WithWebhookLatencyTracking(delegate http.Handler) http.Handler {
	return promhttp.InstrumentHandlerDuration(webhookLatencies.HistogramVec, delegate)
}

var (
	ingestLatencies = compbasemetrics.NewHistogramVec(
		&compbasemetrics.HistogramOpts{
			Name:           "ossfe_ingest_request_duration_seconds",
			Help:           "Response latency distribution in seconds for the internal ingestion API.",
			Buckets:        []float64{0.001, 0.002, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			StabilityLevel: compbasemetrics.ALPHA,
		},
		[]string{"method", "code"},
	)

	webhookLatencies = compbasemetrics.NewHistogramVec(
		&compbasemetrics.HistogramOpts{
			Name:           "ossfe_webhook_request_duration_seconds",
			Help:           "Response latency distribution in seconds for the admission webhook.",
			Buckets:        []float64{0.001, 0.002, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			StabilityLevel: compbasemetrics.ALPHA,
		},
		[]string{"method", "code"},
	)
)

var registerMetrics sync.Once

// Register registers the standard-model histograms with the legacy
// registry. Safe to call more than once.
func Register() {
	registerMetrics.Do(func() {
		legacyregistry.MustRegister(ingestLatencies)
		legacyregistry.MustRegister(webhookLatencies)
	})
}

func init() {
	Register()
}
