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

import (
	"os"
	"strconv"
)

// getEnvOrDefault reads key from the environment, falling back to
// defaultValue when unset or empty, grounded on
// original_source/cmd/watcher/main.go's helper of the same name
// (spec.md §6.5's env-var contract).
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBoolOrDefault parses key as a bool, falling back to defaultValue
// when unset or unparseable, matching original_source's
// `os.Getenv("WEBHOOK_ENABLED") == "true"` check.
func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

// getEnvIntOrDefault parses key as a base-10 int, falling back to
// defaultValue when unset or unparseable, matching original_source's
// `strconv.Atoi(getEnvOrDefault("WEBHOOK_PORT", "8443"))`.
func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}
