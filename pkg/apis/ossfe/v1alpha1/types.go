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

// Package v1alpha1 holds the wire types for the two custom resources this
// system reads: OSSProxyRoute and OSSProxyUpstream (group
// ossfe.imvictor.tech, version v1). These are not code-generated from CRD
// manifests; the watcher talks to the API server through
// k8s.io/client-go/dynamic, so only the JSON shape of Spec/Status matters.
package v1alpha1

import (
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

const (
	GroupName = "ossfe.imvictor.tech"
	Version   = "v1"

	RouteResource    = "ossproxyroutes"
	UpstreamResource = "ossproxyupstreams"

	RouteKind    = "OSSProxyRoute"
	UpstreamKind = "OSSProxyUpstream"
)

// UpstreamRef points a Route at the Upstream that serves it.
type UpstreamRef struct {
	Name      string `json:"name"`
	Namespace string `json:"namespace,omitempty"`
}

// CacheSpec controls the Cache-Control header emitted for a Route's
// responses. See spec §4.4: first match wins, html beats static extension
// beats the catch-all.
type CacheSpec struct {
	// Enabled defaults to true; set false to suppress Cache-Control entirely.
	Enabled *bool `json:"enabled,omitempty"`
	// MaxAge is the catch-all max-age in seconds. Defaults to 3600.
	MaxAge int `json:"maxAge,omitempty"`
	// HTMLMaxAge applies when the upstream Content-Type is text/html.
	// Defaults to 300.
	HTMLMaxAge int `json:"htmlMaxAge,omitempty"`
	// StaticMaxAge applies to a fixed set of static asset extensions.
	// Defaults to 86400.
	StaticMaxAge int `json:"staticMaxAge,omitempty"`
}

// RouteSpec is the desired state of an OSSProxyRoute.
type RouteSpec struct {
	// Hosts is the non-empty set of DNS names this route answers for.
	// Globally unique across all routes; enforced by the admission webhook.
	Hosts []string `json:"hosts"`

	UpstreamRef UpstreamRef `json:"upstreamRef"`

	Bucket string `json:"bucket"`
	Prefix string `json:"prefix,omitempty"`

	// IndexFile is served for "/" and for SPA fallback. Defaults to index.html.
	IndexFile string `json:"indexFile,omitempty"`

	// SpaApp enables index.html fallback on any upstream 404.
	SpaApp bool `json:"spaApp,omitempty"`

	// ErrorPages maps a 3-digit status code to an object key suffix served
	// in place of the default error body.
	ErrorPages map[string]string `json:"errorPages,omitempty"`

	Cache *CacheSpec `json:"cache,omitempty"`
}

// RouteStatus is the observed state of an OSSProxyRoute, patched
// best-effort by the reflector after a successful cache push.
type RouteStatus struct {
	ObservedGeneration int64  `json:"observedGeneration,omitempty"`
	Condition          string `json:"condition,omitempty"`
}

// +kubebuilder:object:root=true
// +kubebuilder:subresource:status

// Route is the Schema for the ossproxyroutes API.
type Route struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec   RouteSpec   `json:"spec,omitempty"`
	Status RouteStatus `json:"status,omitempty"`
}

// +kubebuilder:object:root=true

// RouteList contains a list of Route.
type RouteList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitempty"`
	Items           []Route `json:"items"`
}

// SecretRef points credentials at a Secret holding the access key pair.
type SecretRef struct {
	Name               string `json:"name"`
	Namespace          string `json:"namespace,omitempty"`
	AccessKeyIDKey     string `json:"accessKeyIdKey,omitempty"`
	SecretAccessKeyKey string `json:"secretAccessKeyKey,omitempty"`
}

// Credentials holds either inline keys or a reference to a Secret. A
// SecretRef, when present, always wins over inline keys.
type Credentials struct {
	AccessKeyID     string     `json:"accessKeyId,omitempty"`
	SecretAccessKey string     `json:"secretAccessKey,omitempty"`
	SecretRef       *SecretRef `json:"secretRef,omitempty"`
}

// RetrySpec bounds retries of a transport-erroring upstream GET. Not
// present in the distilled spec's upstream table beyond being named
// "optional retry"; shape decided here (see SPEC_FULL.md §3).
type RetrySpec struct {
	MaxAttempts int `json:"maxAttempts,omitempty"`
	// BackoffMillis is the delay between attempts.
	BackoffMillis int `json:"backoffMillis,omitempty"`
}

// TimeoutSpec bounds the upstream GET.
type TimeoutSpec struct {
	// ConnectSeconds defaults to 10.
	ConnectSeconds int `json:"connectSeconds,omitempty"`
}

// UpstreamProvider enumerates the supported object store flavors.
type UpstreamProvider string

const (
	ProviderAWS     UpstreamProvider = "aws"
	ProviderAliyun  UpstreamProvider = "aliyun"
	ProviderTencent UpstreamProvider = "tencent"
	ProviderMinio   UpstreamProvider = "minio"
	ProviderGeneric UpstreamProvider = "generic"
)

// UpstreamSpec is the desired state of an OSSProxyUpstream.
type UpstreamSpec struct {
	// +kubebuilder:validation:Enum=aws;aliyun;tencent;minio;generic
	Provider UpstreamProvider `json:"provider"`
	Region   string           `json:"region"`
	Endpoint string           `json:"endpoint"`

	// UseHTTPS defaults to true.
	UseHTTPS *bool `json:"useHTTPS,omitempty"`
	// PathStyle defaults to false (virtual-hosted style).
	PathStyle bool `json:"pathStyle,omitempty"`

	Credentials Credentials `json:"credentials"`

	Timeout *TimeoutSpec `json:"timeout,omitempty"`
	Retry   *RetrySpec   `json:"retry,omitempty"`
}

// UpstreamStatus is the observed state of an OSSProxyUpstream.
type UpstreamStatus struct {
	ObservedGeneration int64  `json:"observedGeneration,omitempty"`
	Condition          string `json:"condition,omitempty"`
}

// +kubebuilder:object:root=true
// +kubebuilder:subresource:status

// Upstream is the Schema for the ossproxyupstreams API.
type Upstream struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec   UpstreamSpec   `json:"spec,omitempty"`
	Status UpstreamStatus `json:"status,omitempty"`
}

// +kubebuilder:object:root=true

// UpstreamList contains a list of Upstream.
type UpstreamList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitempty"`
	Items           []Upstream `json:"items"`
}

// IndexFileOrDefault returns route.Spec.IndexFile, defaulting to index.html.
func (r *Route) IndexFileOrDefault() string {
	if r.Spec.IndexFile == "" {
		return "index.html"
	}
	return r.Spec.IndexFile
}

// UseHTTPSOrDefault returns upstream.Spec.UseHTTPS, defaulting to true.
func (u *Upstream) UseHTTPSOrDefault() bool {
	if u.Spec.UseHTTPS == nil {
		return true
	}
	return *u.Spec.UseHTTPS
}

// ConnectTimeoutOrDefault returns the connect timeout in seconds, defaulting
// to 10.
func (u *Upstream) ConnectTimeoutOrDefault() int {
	if u.Spec.Timeout == nil || u.Spec.Timeout.ConnectSeconds <= 0 {
		return 10
	}
	return u.Spec.Timeout.ConnectSeconds
}

// MaxAttemptsOrDefault returns the retry attempt budget, defaulting to 1
// (no retry).
func (u *Upstream) MaxAttemptsOrDefault() int {
	if u.Spec.Retry == nil || u.Spec.Retry.MaxAttempts <= 0 {
		return 1
	}
	return u.Spec.Retry.MaxAttempts
}

// SecretNamespaceOrDefault returns the namespace the credentials' SecretRef
// resolves in, defaulting to the Upstream's own namespace.
func (u *Upstream) SecretNamespaceOrDefault() string {
	ref := u.Spec.Credentials.SecretRef
	if ref == nil {
		return ""
	}
	if ref.Namespace != "" {
		return ref.Namespace
	}
	return u.Namespace
}
