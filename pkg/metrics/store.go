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

// Package metrics tracks per-route and per-upstream request outcomes and
// renders them as Prometheus text exposition.
//
// The model in spec.md §4.5 (requests-per-minute over rolling 1/5/15-minute
// windows, a log2-spaced latency histogram with percentile readout) keys its
// series by (resource type, namespace, name) discovered only at request
// time, which does not fit prometheus/client_golang's register-once
// Counter/Histogram model (see kcp-dev-kcp's pkg/proxy/metrics.go, whose
// requestLatencies HistogramVec has a label set fixed at program start).
// This store keeps the aggregate itself as plain Go state behind a mutex and
// writes the wire format by hand in text.go; the ingestion API and webhook's
// own latency tracking, by contrast, have a label set known at compile time
// and so use the standard client_golang/component-base machinery unmodified
// (see latency.go).
package metrics

import (
	"math"
	"sort"
	"sync"
	"time"
)

// ResourceKind identifies which half of a request's dual bookkeeping a
// Record belongs to.
type ResourceKind string

const (
	KindRoute    ResourceKind = "route"
	KindUpstream ResourceKind = "upstream"
)

const (
	bucketWidth         = 5 * time.Second
	ringCapacity        = int64((15 * time.Minute) / bucketWidth) // 180 buckets covers the widest window (§4.5)
	maxHistogramBuckets = 200
)

type resourceKey struct {
	kind      ResourceKind
	namespace string
	name      string
}

// bucket is one 5-second slot of the ring: request/error counts observed
// within it.
type bucket struct {
	startUnix int64
	requests  int64
	errors    int64
}

// record is the full per-resource state: monotonic counters, the ring, the
// log2 histogram, and lifetime min/mean/max.
type record struct {
	mu sync.Mutex

	requestsTotal int64
	errorsTotal   int64

	ring     [ringCapacity]bucket
	histogram [maxHistogramBuckets]int64

	count   int64
	minMs   float64
	maxMs   float64
	sumMs   float64
}

// Store is the process-wide metrics aggregate. Zero value is not usable;
// use New().
type Store struct {
	mu      sync.RWMutex
	records map[resourceKey]*record
	// now is overridable in tests.
	now func() time.Time
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		records: make(map[resourceKey]*record),
		now:     time.Now,
	}
}

// Observe records the outcome of one request against both its route and its
// upstream record, per spec.md §4.5 ("a single request updates both its
// route record and its upstream record").
func (s *Store) Observe(routeNamespace, routeName, upstreamNamespace, upstreamName string, latency time.Duration, isError bool) {
	now := s.now()
	s.observeOne(KindRoute, routeNamespace, routeName, now, latency, isError)
	s.observeOne(KindUpstream, upstreamNamespace, upstreamName, now, latency, isError)
}

func (s *Store) observeOne(kind ResourceKind, namespace, name string, now time.Time, latency time.Duration, isError bool) {
	r := s.recordFor(kind, namespace, name)

	latencyMs := float64(latency.Microseconds()) / 1000.0

	r.mu.Lock()
	defer r.mu.Unlock()

	r.requestsTotal++
	if isError {
		r.errorsTotal++
	}

	idx := bucketIndexForTime(now)
	b := &r.ring[idx%ringCapacity]
	startUnix := bucketStartUnix(now)
	if b.startUnix != startUnix {
		*b = bucket{startUnix: startUnix}
	}
	b.requests++
	if isError {
		b.errors++
	}

	hIdx := histogramIndex(latencyMs)
	r.histogram[hIdx]++

	r.count++
	r.sumMs += latencyMs
	if r.count == 1 || latencyMs < r.minMs {
		r.minMs = latencyMs
	}
	if latencyMs > r.maxMs {
		r.maxMs = latencyMs
	}
}

func (s *Store) recordFor(kind ResourceKind, namespace, name string) *record {
	key := resourceKey{kind: kind, namespace: namespace, name: name}

	s.mu.RLock()
	r, ok := s.records[key]
	s.mu.RUnlock()
	if ok {
		return r
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.records[key]; ok {
		return r
	}
	r = &record{}
	s.records[key] = r
	return r
}

func bucketStartUnix(t time.Time) int64 {
	return t.Unix() / int64(bucketWidth.Seconds()) * int64(bucketWidth.Seconds())
}

func bucketIndexForTime(t time.Time) int64 {
	return bucketStartUnix(t) / int64(bucketWidth.Seconds())
}

// histogramIndex implements spec.md §4.5's bucket function,
// floor(10*log2(max(ms,1))), capped at maxHistogramBuckets-1.
func histogramIndex(ms float64) int {
	if ms < 1 {
		ms = 1
	}
	idx := int(math.Floor(10 * math.Log2(ms)))
	if idx < 0 {
		idx = 0
	}
	if idx >= maxHistogramBuckets {
		idx = maxHistogramBuckets - 1
	}
	return idx
}

// histogramUpperBoundMs inverts histogramIndex: the latency (ms) at which
// bucket i ends and bucket i+1 begins to receive observations.
func histogramUpperBoundMs(i int) float64 {
	return math.Pow(2, float64(i+1)/10)
}

// windowAggregate is the requests-per-minute/errors-per-minute/error-percentage
// readout for one rolling window.
type windowAggregate struct {
	RequestsPerMinute float64
	ErrorsPerMinute   float64
	ErrorPercentage   float64
}

func (r *record) windowAggregateLocked(now time.Time, window time.Duration) windowAggregate {
	cutoff := now.Add(-window).Unix()
	var requests, errs int64
	for _, b := range r.ring {
		if b.startUnix == 0 || int64(b.startUnix) < cutoff {
			continue
		}
		requests += b.requests
		errs += b.errors
	}
	minutes := window.Minutes()
	agg := windowAggregate{}
	if minutes > 0 {
		agg.RequestsPerMinute = float64(requests) / minutes
		agg.ErrorsPerMinute = float64(errs) / minutes
	}
	if requests > 0 {
		agg.ErrorPercentage = float64(errs) / float64(requests) * 100
	}
	return agg
}

// percentiles derives p25/p50/p75/p95/p98/p99 from the histogram by
// cumulative counting, per spec.md §4.5.
func (r *record) percentilesLocked() map[string]float64 {
	total := int64(0)
	for _, c := range r.histogram {
		total += c
	}
	result := map[string]float64{"p25": 0, "p50": 0, "p75": 0, "p95": 0, "p98": 0, "p99": 0}
	if total == 0 {
		return result
	}

	targets := []struct {
		name string
		frac float64
	}{
		{"p25", 0.25}, {"p50", 0.50}, {"p75", 0.75},
		{"p95", 0.95}, {"p98", 0.98}, {"p99", 0.99},
	}

	var cumulative int64
	ti := 0
	for i, c := range r.histogram {
		cumulative += c
		for ti < len(targets) && float64(cumulative) >= targets[ti].frac*float64(total) {
			result[targets[ti].name] = histogramUpperBoundMs(i)
			ti++
		}
		if ti >= len(targets) {
			break
		}
	}
	return result
}

// Snapshot is the rendered view of one resource's record, used by text.go.
type Snapshot struct {
	Kind      ResourceKind
	Namespace string
	Name      string

	RequestsTotal int64
	ErrorsTotal   int64

	Window1m  windowAggregate
	Window5m  windowAggregate
	Window15m windowAggregate

	Percentiles map[string]float64

	MinMs  float64
	MeanMs float64
	MaxMs  float64
}

// Snapshots returns a stable-ordered view of every tracked resource,
// suitable for rendering.
func (s *Store) Snapshots() []Snapshot {
	now := s.now()

	s.mu.RLock()
	keys := make([]resourceKey, 0, len(s.records))
	records := make([]*record, 0, len(s.records))
	for k, r := range s.records {
		keys = append(keys, k)
		records = append(records, r)
	}
	s.mu.RUnlock()

	out := make([]Snapshot, 0, len(keys))
	for i, k := range keys {
		r := records[i]
		r.mu.Lock()
		snap := Snapshot{
			Kind:          k.kind,
			Namespace:     k.namespace,
			Name:          k.name,
			RequestsTotal: r.requestsTotal,
			ErrorsTotal:   r.errorsTotal,
			Window1m:      r.windowAggregateLocked(now, time.Minute),
			Window5m:      r.windowAggregateLocked(now, 5*time.Minute),
			Window15m:     r.windowAggregateLocked(now, 15*time.Minute),
			Percentiles:   r.percentilesLocked(),
			MinMs:         r.minMs,
			MaxMs:         r.maxMs,
		}
		if r.count > 0 {
			snap.MeanMs = r.sumMs / float64(r.count)
		}
		r.mu.Unlock()
		out = append(out, snap)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return out[i].Kind < out[j].Kind
		}
		if out[i].Namespace != out[j].Namespace {
			return out[i].Namespace < out[j].Namespace
		}
		return out[i].Name < out[j].Name
	})
	return out
}
