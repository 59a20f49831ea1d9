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

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

func TestProxyOptionsDefaultsValidate(t *testing.T) {
	o := NewProxyOptions()
	require.Empty(t, o.Validate())
}

func TestProxyOptionsRequiresListenAddr(t *testing.T) {
	o := NewProxyOptions()
	o.ListenAddr = ""
	require.NotEmpty(t, o.Validate())
}

func TestProxyOptionsRequiresIngestListenAddr(t *testing.T) {
	o := NewProxyOptions()
	o.IngestListenAddr = ""
	require.NotEmpty(t, o.Validate())
}

func TestProxyOptionsDefaultsReadFromEnvironment(t *testing.T) {
	t.Setenv("ACCESS_LOG_FILE", "/var/log/ossfe/access.log")
	t.Setenv("LOG_LEVEL", "debug")

	o := NewProxyOptions()
	require.Equal(t, "/var/log/ossfe/access.log", o.AccessLogFile)
	require.Equal(t, "debug", o.LogLevel)
}

func TestProxyOptionsAddFlagsBindsAll(t *testing.T) {
	o := NewProxyOptions()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	o.AddFlags(fs)

	for _, name := range []string{
		"listen-addr", "ingest-listen-addr", "api-key-file", "access-log-file", "log-level",
	} {
		require.NotNil(t, fs.Lookup(name), "expected flag %q to be registered", name)
	}
}
