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

// Command watcher runs the CRD reflector and, optionally, the admission
// webhook described in spec.md §5/§6.2. It watches OSSProxyRoute and
// OSSProxyUpstream objects cluster-wide and pushes their current state to
// the Proxy's internal ingestion API.
package main

import (
	"context"
	goflag "flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
	"k8s.io/klog/v2"

	"github.com/qwqVictor/oss-fe-proxy/pkg/apikey"
	"github.com/qwqVictor/oss-fe-proxy/pkg/ingestclient"
	"github.com/qwqVictor/oss-fe-proxy/pkg/options"
	"github.com/qwqVictor/oss-fe-proxy/pkg/reflector"
	"github.com/qwqVictor/oss-fe-proxy/pkg/webhook"
)

func main() {
	if err := NewWatcherCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// NewWatcherCommand builds the watcher's cobra root command, grounded on
// kcp-dev-kcp's cmd/cluster-controller flag/signal wiring.
func NewWatcherCommand() *cobra.Command {
	o := options.NewWatcherOptions()
	var kubeconfigPath string

	cmd := &cobra.Command{
		Use:   "watcher",
		Short: "Reflects OSSProxyRoute/OSSProxyUpstream objects into the Proxy's ingestion API",
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
			return run(cmd.Context(), o, kubeconfigPath)
		},
	}

	o.AddFlags(cmd.Flags())
	cmd.Flags().StringVar(&kubeconfigPath, "kubeconfig", "", "Path to kubeconfig; empty uses in-cluster config")

	klogFlags := goflag.NewFlagSet("klog", goflag.PanicOnError)
	klog.InitFlags(klogFlags)
	cmd.PersistentFlags().AddGoFlagSet(klogFlags)

	return cmd
}

func run(parentCtx context.Context, o *options.WatcherOptions, kubeconfigPath string) error {
	ctx, cancel := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger := klog.Background()
	if o.PodNamespace != "" {
		logger = logger.WithValues("podNamespace", o.PodNamespace)
	}
	ctx = klog.NewContext(ctx, logger)

	config, err := loadKubeConfig(kubeconfigPath)
	if err != nil {
		return fmt.Errorf("load kube config: %w", err)
	}

	dynClient, err := dynamic.NewForConfig(config)
	if err != nil {
		return fmt.Errorf("create dynamic client: %w", err)
	}
	clientset, err := kubernetes.NewForConfig(config)
	if err != nil {
		return fmt.Errorf("create kubernetes clientset: %w", err)
	}

	apiKey, err := apikey.Read(o.APIKeyFile)
	if err != nil {
		return fmt.Errorf("read API key: %w", err)
	}

	if err := waitForIngestAPI(ctx, o.IngestBaseURL); err != nil {
		return fmt.Errorf("wait for ingestion API: %w", err)
	}

	pusher := ingestclient.New(o.IngestBaseURL, apiKey)
	refl := reflector.New(dynClient, clientset, pusher)

	g, ctx := errgroup.WithContext(ctx)

	var webhookServer *webhook.Server
	if o.WebhookEnabled {
		webhookServer = webhook.New(dynClient, o.WebhookPort, o.WebhookCertPath, o.WebhookKeyPath)
		g.Go(func() error {
			if err := webhookServer.Start(); err != nil && err != http.ErrServerClosed {
				return fmt.Errorf("webhook server: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		return refl.Run(ctx)
	})

	g.Go(func() error {
		<-ctx.Done()
		if webhookServer != nil {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer shutdownCancel()
			if err := webhookServer.Stop(shutdownCtx); err != nil {
				logger.Error(err, "failed to gracefully stop webhook server")
			}
		}
		return nil
	})

	logger.Info("watcher started", "ingestBaseURL", o.IngestBaseURL, "webhookEnabled", o.WebhookEnabled)
	return g.Wait()
}

func loadKubeConfig(kubeconfigPath string) (*rest.Config, error) {
	if kubeconfigPath == "" {
		return rest.InClusterConfig()
	}
	return clientcmd.NewNonInteractiveDeferredLoadingClientConfig(
		&clientcmd.ClientConfigLoadingRules{ExplicitPath: kubeconfigPath},
		&clientcmd.ConfigOverrides{}).ClientConfig()
}

// waitForIngestAPI polls the Proxy's /health endpoint so the first syncAll
// isn't attempted before the Proxy has started listening, matching
// original_source's waitForOpenResty.
func waitForIngestAPI(ctx context.Context, baseURL string) error {
	client := &http.Client{Timeout: 2 * time.Second}
	deadline := time.Now().Add(30 * time.Second)
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		resp, err := client.Get(baseURL + "/health")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("timed out waiting for %s/health", baseURL)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
