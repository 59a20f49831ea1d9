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
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGetEnvOrDefault(t *testing.T) {
	t.Setenv("OSSFE_TEST_STRING", "from-env")
	require.Equal(t, "from-env", getEnvOrDefault("OSSFE_TEST_STRING", "fallback"))
	require.Equal(t, "fallback", getEnvOrDefault("OSSFE_TEST_STRING_UNSET", "fallback"))
}

func TestGetEnvBoolOrDefault(t *testing.T) {
	t.Setenv("OSSFE_TEST_BOOL", "true")
	require.True(t, getEnvBoolOrDefault("OSSFE_TEST_BOOL", false))
	require.False(t, getEnvBoolOrDefault("OSSFE_TEST_BOOL_UNSET", false))
}

func TestGetEnvIntOrDefault(t *testing.T) {
	t.Setenv("OSSFE_TEST_INT", "9443")
	require.Equal(t, 9443, getEnvIntOrDefault("OSSFE_TEST_INT", 8443))
	require.Equal(t, 8443, getEnvIntOrDefault("OSSFE_TEST_INT_UNSET", 8443))
}
