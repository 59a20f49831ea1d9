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
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestObserveUpdatesBothRouteAndUpstream(t *testing.T) {
	s := New()
	s.Observe("ns", "route-a", "ns", "up-a", 50*time.Millisecond, false)

	snaps := s.Snapshots()
	require.Len(t, snaps, 2)

	var sawRoute, sawUpstream bool
	for _, snap := range snaps {
		require.Equal(t, int64(1), snap.RequestsTotal)
		require.Equal(t, int64(0), snap.ErrorsTotal)
		if snap.Kind == KindRoute {
			sawRoute = true
		}
		if snap.Kind == KindUpstream {
			sawUpstream = true
		}
	}
	require.True(t, sawRoute)
	require.True(t, sawUpstream)
}

func TestObserveCountsErrors(t *testing.T) {
	s := New()
	s.Observe("ns", "r", "ns", "u", time.Millisecond, true)
	s.Observe("ns", "r", "ns", "u", time.Millisecond, false)

	snaps := s.Snapshots()
	for _, snap := range snaps {
		require.Equal(t, int64(2), snap.RequestsTotal)
		require.Equal(t, int64(1), snap.ErrorsTotal)
	}
}

func TestHistogramIndexMonotonic(t *testing.T) {
	require.Equal(t, histogramIndex(1), 0)
	require.Less(t, histogramIndex(10), histogramIndex(100))
	require.Less(t, histogramIndex(100), histogramIndex(1000))
}

func TestHistogramIndexCapped(t *testing.T) {
	require.Equal(t, maxHistogramBuckets-1, histogramIndex(1e12))
}

func TestPercentilesOrdering(t *testing.T) {
	s := New()
	for i := 1; i <= 100; i++ {
		s.Observe("ns", "r", "ns", "u", time.Duration(i)*time.Millisecond, false)
	}

	snaps := s.Snapshots()
	p := snaps[0].Percentiles
	require.LessOrEqual(t, p["p25"], p["p50"])
	require.LessOrEqual(t, p["p50"], p["p75"])
	require.LessOrEqual(t, p["p75"], p["p95"])
	require.LessOrEqual(t, p["p95"], p["p98"])
	require.LessOrEqual(t, p["p98"], p["p99"])
}

func TestMinMeanMaxLifetime(t *testing.T) {
	s := New()
	s.Observe("ns", "r", "ns", "u", 10*time.Millisecond, false)
	s.Observe("ns", "r", "ns", "u", 20*time.Millisecond, false)
	s.Observe("ns", "r", "ns", "u", 30*time.Millisecond, false)

	snaps := s.Snapshots()
	snap := snaps[0]
	require.InDelta(t, 10.0, snap.MinMs, 0.5)
	require.InDelta(t, 30.0, snap.MaxMs, 0.5)
	require.InDelta(t, 20.0, snap.MeanMs, 0.5)
}

func TestWriteProm(t *testing.T) {
	s := New()
	s.Observe("ns", "route-a", "ns", "up-a", 50*time.Millisecond, false)

	var sb strings.Builder
	require.NoError(t, s.WriteProm(&sb))

	out := sb.String()
	require.Contains(t, out, "# HELP ossfe_requests_total")
	require.Contains(t, out, "# TYPE ossfe_requests_total counter")
	require.Contains(t, out, `resource="route"`)
	require.Contains(t, out, `resource="upstream"`)
	require.Contains(t, out, `name="route-a"`)
	require.Contains(t, out, `name="up-a"`)
}

func TestWindowAggregateExcludesOldBuckets(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := New()
	s.now = func() time.Time { return base }
	s.Observe("ns", "r", "ns", "u", time.Millisecond, false)

	s.now = func() time.Time { return base.Add(20 * time.Minute) }
	snaps := s.Snapshots()
	for _, snap := range snaps {
		require.Equal(t, int64(1), snap.RequestsTotal, "lifetime counter is unaffected by window")
		require.Equal(t, float64(0), snap.Window15m.RequestsPerMinute, "request has aged out of the 15m window")
	}
}
