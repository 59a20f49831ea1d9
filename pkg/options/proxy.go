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
	"fmt"

	"github.com/spf13/pflag"
)

// ProxyOptions are the flags/environment for cmd/proxy.
type ProxyOptions struct {
	ListenAddr       string
	IngestListenAddr string
	APIKeyFile       string
	AccessLogFile    string
	LogLevel         string
}

// NewProxyOptions returns defaults matching spec.md §6.1/§6.3/§6.5: flag
// defaults are read from the environment first via getEnvOrDefault, grounded
// on original_source/cmd/watcher/main.go's helper of the same name, so the
// container's env-var contract and a flag-based override both work.
func NewProxyOptions() *ProxyOptions {
	return &ProxyOptions{
		ListenAddr:       ":80",
		IngestListenAddr: "127.0.0.1:9180",
		APIKeyFile:       "/tmp/api.key",
		AccessLogFile:    getEnvOrDefault("ACCESS_LOG_FILE", ""),
		LogLevel:         getEnvOrDefault("LOG_LEVEL", "info"),
	}
}

func (o *ProxyOptions) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.ListenAddr, "listen-addr", o.ListenAddr, "Client-facing HTTP listen address")
	fs.StringVar(&o.IngestListenAddr, "ingest-listen-addr", o.IngestListenAddr, "Internal ingestion API listen address (loopback only)")
	fs.StringVar(&o.APIKeyFile, "api-key-file", o.APIKeyFile, "Path to write the generated ingestion API key")
	fs.StringVar(&o.AccessLogFile, "access-log-file", o.AccessLogFile, "Optional access log file path")
	fs.StringVar(&o.LogLevel, "log-level", o.LogLevel, "Log verbosity")
}

func (o *ProxyOptions) Complete() error {
	return nil
}

func (o *ProxyOptions) Validate() []error {
	var errs []error
	if o.ListenAddr == "" {
		errs = append(errs, fmt.Errorf("--listen-addr is required"))
	}
	if o.IngestListenAddr == "" {
		errs = append(errs, fmt.Errorf("--ingest-listen-addr is required"))
	}
	return errs
}
