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
	"fmt"
	"io"
	"strings"
)

// family describes one metric name for the HELP/TYPE preamble.
type family struct {
	name       string
	help       string
	metricType string
}

var families = []family{
	{"ossfe_requests_total", "Total requests observed for this resource.", "counter"},
	{"ossfe_errors_total", "Total error responses observed for this resource.", "counter"},
	{"ossfe_requests_per_minute", "Requests per minute over a rolling window.", "gauge"},
	{"ossfe_errors_per_minute", "Errors per minute over a rolling window.", "gauge"},
	{"ossfe_error_percentage", "Error percentage over a rolling window.", "gauge"},
	{"ossfe_latency_milliseconds", "Latency percentile in milliseconds, lifetime.", "gauge"},
	{"ossfe_latency_min_milliseconds", "Minimum observed latency, lifetime.", "gauge"},
	{"ossfe_latency_mean_milliseconds", "Mean observed latency, lifetime.", "gauge"},
	{"ossfe_latency_max_milliseconds", "Maximum observed latency, lifetime.", "gauge"},
}

// WriteProm renders every tracked resource's Snapshot as Prometheus text
// exposition format, by hand: the values come from the custom Store, not a
// registered prometheus.Collector, so there is no Collector.Collect to
// delegate to (see the package doc in store.go).
func (s *Store) WriteProm(w io.Writer) error {
	snapshots := s.Snapshots()

	for _, f := range families {
		if _, err := fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n", f.name, f.help, f.name, f.metricType); err != nil {
			return err
		}
		for _, snap := range snapshots {
			if err := writeFamilyLines(w, f.name, snap); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeFamilyLines(w io.Writer, name string, snap Snapshot) error {
	base := fmt.Sprintf(`resource="%s",namespace="%s",name="%s"`, snap.Kind, escapeLabel(snap.Namespace), escapeLabel(snap.Name))

	switch name {
	case "ossfe_requests_total":
		return writeLine(w, name, base, float64(snap.RequestsTotal))
	case "ossfe_errors_total":
		return writeLine(w, name, base, float64(snap.ErrorsTotal))
	case "ossfe_requests_per_minute":
		return writeWindowed(w, name, base, snap.Window1m.RequestsPerMinute, snap.Window5m.RequestsPerMinute, snap.Window15m.RequestsPerMinute)
	case "ossfe_errors_per_minute":
		return writeWindowed(w, name, base, snap.Window1m.ErrorsPerMinute, snap.Window5m.ErrorsPerMinute, snap.Window15m.ErrorsPerMinute)
	case "ossfe_error_percentage":
		return writeWindowed(w, name, base, snap.Window1m.ErrorPercentage, snap.Window5m.ErrorPercentage, snap.Window15m.ErrorPercentage)
	case "ossfe_latency_milliseconds":
		for _, q := range []string{"p25", "p50", "p75", "p95", "p98", "p99"} {
			if err := writeLine(w, name, base+fmt.Sprintf(`,quantile="%s"`, q), snap.Percentiles[q]); err != nil {
				return err
			}
		}
		return nil
	case "ossfe_latency_min_milliseconds":
		return writeLine(w, name, base, snap.MinMs)
	case "ossfe_latency_mean_milliseconds":
		return writeLine(w, name, base, snap.MeanMs)
	case "ossfe_latency_max_milliseconds":
		return writeLine(w, name, base, snap.MaxMs)
	}
	return nil
}

func writeWindowed(w io.Writer, name, base string, m1, m5, m15 float64) error {
	windows := []struct {
		label string
		value float64
	}{{"1m", m1}, {"5m", m5}, {"15m", m15}}
	for _, win := range windows {
		if err := writeLine(w, name, base+fmt.Sprintf(`,window="%s"`, win.label), win.value); err != nil {
			return err
		}
	}
	return nil
}

func writeLine(w io.Writer, name, labels string, value float64) error {
	_, err := fmt.Fprintf(w, "%s{%s} %v\n", name, labels, value)
	return err
}

func escapeLabel(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `"`, `\"`)
	return v
}
