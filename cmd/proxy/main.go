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

// Command proxy serves client requests against the object store backends
// described in spec.md §5/§6.1, and hosts the loopback ingestion API the
// Watcher pushes CRD state into.
package main

import (
	"context"
	goflag "flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"k8s.io/klog/v2"

	"github.com/qwqVictor/oss-fe-proxy/pkg/apikey"
	"github.com/qwqVictor/oss-fe-proxy/pkg/ingestserver"
	"github.com/qwqVictor/oss-fe-proxy/pkg/metrics"
	"github.com/qwqVictor/oss-fe-proxy/pkg/options"
	"github.com/qwqVictor/oss-fe-proxy/pkg/proxyserver"
	"github.com/qwqVictor/oss-fe-proxy/pkg/routingcache"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if err := NewProxyCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// NewProxyCommand builds the proxy's cobra root command.
func NewProxyCommand() *cobra.Command {
	o := options.NewProxyOptions()

	cmd := &cobra.Command{
		Use:   "proxy",
		Short: "Serves client requests against S3-compatible object stores",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.Complete(); err != nil {
				return err
			}
			if errs := o.Validate(); len(errs) > 0 {
				return fmt.Errorf("invalid options: %v", errs)
			}
			if !cmd.Flags().Changed("v") {
				_ = cmd.Flags().Set("v", options.LogVerbosity(o.LogLevel))
			}
			return run(cmd.Context(), o)
		},
	}

	o.AddFlags(cmd.Flags())

	klogFlags := goflag.NewFlagSet("klog", goflag.PanicOnError)
	klog.InitFlags(klogFlags)
	cmd.PersistentFlags().AddGoFlagSet(klogFlags)

	return cmd
}

func run(parentCtx context.Context, o *options.ProxyOptions) error {
	ctx, cancel := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger := klog.Background()
	ctx = klog.NewContext(ctx, logger)

	key, err := apikey.Generate(o.APIKeyFile)
	if err != nil {
		return fmt.Errorf("generate API key: %w", err)
	}
	logger.Info("generated ingestion API key", "path", o.APIKeyFile)

	cache := routingcache.New()
	store := metrics.New()

	ingest := ingestserver.New(cache, key)
	ingestListener, err := net.Listen("tcp", o.IngestListenAddr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", o.IngestListenAddr, err)
	}
	ingestHTTPServer := &http.Server{Handler: ingest.Handler()}

	proxyHandler := proxyserver.New(cache, store)
	rootHandler := proxyserver.NewRootHandler(proxyHandler, cache, store)

	if o.AccessLogFile != "" {
		accessLog, err := os.OpenFile(o.AccessLogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("open access log %s: %w", o.AccessLogFile, err)
		}
		defer accessLog.Close()
		rootHandler = proxyserver.WithAccessLog(rootHandler, accessLog)
	}

	clientListener, err := net.Listen("tcp", o.ListenAddr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", o.ListenAddr, err)
	}
	clientHTTPServer := &http.Server{Handler: rootHandler}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("ingestion API listening", "addr", o.IngestListenAddr)
		if err := ingestHTTPServer.Serve(ingestListener); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("ingestion server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		logger.Info("client listener starting", "addr", o.ListenAddr)
		if err := clientHTTPServer.Serve(clientListener); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("client server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		_ = ingestHTTPServer.Shutdown(shutdownCtx)
		_ = clientHTTPServer.Shutdown(shutdownCtx)
		return nil
	})

	return g.Wait()
}
