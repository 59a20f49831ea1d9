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

package options

import "strings"

// LogVerbosity translates the LOG_LEVEL/--log-level knob (spec.md §6.5)
// into the klog `-v` verbosity threshold the teacher's cmd/* binaries
// expose via klog.InitFlags, following the teacher's convention of V(2)
// for control-loop lifecycle events and V(4) for per-request/per-event
// chatter.
func LogVerbosity(level string) string {
	switch strings.ToLower(level) {
	case "debug":
		return "4"
	case "info":
		return "2"
	case "warn", "warning":
		return "1"
	case "error":
		return "0"
	default:
		return "2"
	}
}
