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

// Package routingcache holds the in-memory, eventually-consistent view of
// Routes, Upstreams, and Secrets that the request pipeline resolves against.
// It is read by every request-handling worker and written by the ingestion
// handlers that receive pushes from the reflector; the shape (one
// sync.RWMutex guarding a handful of maps, a lock released before any
// expensive decode) is grounded on
// kcp-dev-kcp's pkg/proxy/index.Controller, whose "shard name -> informer"
// maps are the same role this cache's "host -> route" / "namespace/name ->
// upstream|secret" maps play here.
package routingcache

import (
	"encoding/base64"
	"errors"
	"fmt"
	"sync"
	"time"

	corev1 "k8s.io/api/core/v1"

	"github.com/qwqVictor/oss-fe-proxy/pkg/apis/ossfe/v1alpha1"
)

// Errors returned by ResolveRouteByHost. Typed so the HTTP layer can
// errors.Is-switch them to status codes instead of matching strings,
// the way k8s.io/apimachinery/pkg/api/errors lets callers ask IsNotFound.
var (
	ErrNotReady        = errors.New("routingcache: cache not yet synchronized")
	ErrUnknownHost     = errors.New("routingcache: no route for host")
	ErrUpstreamMissing = errors.New("routingcache: route references an upstream not in cache")
	ErrSecretMissing   = errors.New("routingcache: upstream references a secret not in cache")
)

// Credentials are the decoded (not base64) access key pair used to sign
// requests.
type Credentials struct {
	AccessKeyID     string
	SecretAccessKey string
}

// Bundle is the complete, torn-free result of a host lookup.
type Bundle struct {
	Route       *v1alpha1.Route
	Upstream    *v1alpha1.Upstream
	Credentials Credentials
}

// Status is the snapshot returned by Status(), used by /health, /metrics,
// and diagnostics.
type Status struct {
	Ready           bool
	SyncedOnce      bool
	RouteCount      int
	UpstreamCount   int
	SecretCount     int
	LastSyncEpoch   int64
	ResourceVersion string
}

type namespacedName struct {
	namespace, name string
}

func nnOf(namespace, name string) namespacedName {
	return namespacedName{namespace: namespace, name: name}
}

// Cache is the shared routing cache. Zero value is not usable; use New().
type Cache struct {
	mu sync.RWMutex

	routesByHost map[string]*v1alpha1.Route
	// hostsByRouteKey is the inverse index used to clean up every host a
	// Route owned even if a DELETE event arrives with an empty spec (see
	// spec.md §9, "Open question — route deletion clearing all hosts").
	hostsByRouteKey map[namespacedName][]string

	upstreams map[namespacedName]*v1alpha1.Upstream
	secrets   map[namespacedName]*corev1.Secret

	ready         bool
	syncedOnce    bool
	lastSyncEpoch int64
	resourceVersion string
}

// New returns an empty, not-yet-ready Cache.
func New() *Cache {
	return &Cache{
		routesByHost:    make(map[string]*v1alpha1.Route),
		hostsByRouteKey: make(map[namespacedName][]string),
		upstreams:       make(map[namespacedName]*v1alpha1.Upstream),
		secrets:         make(map[namespacedName]*corev1.Secret),
	}
}

// nowEpoch is overridable in tests; production uses time.Now().Unix().
var nowEpoch = func() int64 { return time.Now().Unix() }

// UpdateRoute inserts or replaces a Route, rewriting the host index for
// every host in its current and previous spec. Mutates the host->route map
// atomically: readers never see a partially-applied set of hosts.
func (c *Cache) UpdateRoute(r *v1alpha1.Route) {
	key := nnOf(r.Namespace, r.Name)

	c.mu.Lock()
	defer c.mu.Unlock()

	for _, oldHost := range c.hostsByRouteKey[key] {
		if owner, ok := c.routesByHost[oldHost]; ok && owner.Namespace == r.Namespace && owner.Name == r.Name {
			delete(c.routesByHost, oldHost)
		}
	}

	hosts := append([]string(nil), r.Spec.Hosts...)
	for _, h := range hosts {
		c.routesByHost[h] = r
	}
	c.hostsByRouteKey[key] = hosts

	c.markReadyLocked()
}

// DeleteRoute removes a Route and every host it owned, using the inverse
// index rather than the (possibly stripped) object carried by the delete
// event.
func (c *Cache) DeleteRoute(namespace, name string) {
	key := nnOf(namespace, name)

	c.mu.Lock()
	defer c.mu.Unlock()

	for _, host := range c.hostsByRouteKey[key] {
		if owner, ok := c.routesByHost[host]; ok && owner.Namespace == namespace && owner.Name == name {
			delete(c.routesByHost, host)
		}
	}
	delete(c.hostsByRouteKey, key)
}

// UpdateUpstream inserts or replaces an Upstream.
func (c *Cache) UpdateUpstream(u *v1alpha1.Upstream) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.upstreams[nnOf(u.Namespace, u.Name)] = u
}

// DeleteUpstream removes an Upstream.
func (c *Cache) DeleteUpstream(namespace, name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.upstreams, nnOf(namespace, name))
}

// UpdateSecret inserts or replaces a Secret.
func (c *Cache) UpdateSecret(s *corev1.Secret) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.secrets[nnOf(s.Namespace, s.Name)] = s
}

// DeleteSecret removes a Secret.
func (c *Cache) DeleteSecret(namespace, name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.secrets, nnOf(namespace, name))
}

// markReadyLocked implements the monotonic readiness latch (spec §4.2):
// once the cache has ingested at least one route, ready stays true
// forever, even if the route set later empties out. Caller must hold mu.
func (c *Cache) markReadyLocked() {
	if c.syncedOnce {
		return
	}
	if len(c.routesByHost) == 0 {
		return
	}
	c.syncedOnce = true
	c.ready = true
	c.lastSyncEpoch = nowEpoch()
}

// IsReady reports the monotonic readiness latch.
func (c *Cache) IsReady() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ready
}

// Status returns a snapshot used by /health, /metrics, and diagnostics.
func (c *Cache) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Status{
		Ready:           c.ready,
		SyncedOnce:      c.syncedOnce,
		RouteCount:      len(c.routesByHost),
		UpstreamCount:   len(c.upstreams),
		SecretCount:     len(c.secrets),
		LastSyncEpoch:   c.lastSyncEpoch,
		ResourceVersion: c.resourceVersion,
	}
}

// SetResourceVersion records the last-observed resourceVersion for
// diagnostics; it does not gate readiness.
func (c *Cache) SetResourceVersion(rv string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resourceVersion = rv
}

// ResolveRouteByHost is the hot-path lookup: host -> complete bundle, or a
// distinct error. It copies out the three objects it needs under the read
// lock and releases it before decoding credentials, so the lock is never
// held across base64 decode or struct assembly (spec §4.2's no-torn-read
// contract).
func (c *Cache) ResolveRouteByHost(host string) (*Bundle, error) {
	c.mu.RLock()
	if !c.ready {
		c.mu.RUnlock()
		return nil, ErrNotReady
	}
	route, ok := c.routesByHost[host]
	if !ok {
		c.mu.RUnlock()
		return nil, fmt.Errorf("%w: %s", ErrUnknownHost, host)
	}

	upstreamKey := nnOf(route.Spec.UpstreamRef.Namespace, route.Spec.UpstreamRef.Name)
	if upstreamKey.namespace == "" {
		upstreamKey.namespace = route.Namespace
	}
	upstream, ok := c.upstreams[upstreamKey]
	if !ok {
		c.mu.RUnlock()
		return nil, fmt.Errorf("%w: %s/%s", ErrUpstreamMissing, upstreamKey.namespace, upstreamKey.name)
	}

	var secret *corev1.Secret
	if ref := upstream.Spec.Credentials.SecretRef; ref != nil {
		secretKey := nnOf(upstream.SecretNamespaceOrDefault(), ref.Name)
		secret, ok = c.secrets[secretKey]
		if !ok {
			c.mu.RUnlock()
			return nil, fmt.Errorf("%w: %s/%s", ErrSecretMissing, secretKey.namespace, secretKey.name)
		}
	}
	c.mu.RUnlock()

	creds, err := decodeCredentials(upstream, secret)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSecretMissing, err)
	}

	return &Bundle{Route: route, Upstream: upstream, Credentials: creds}, nil
}

func decodeCredentials(u *v1alpha1.Upstream, secret *corev1.Secret) (Credentials, error) {
	ref := u.Spec.Credentials.SecretRef
	if ref == nil {
		return Credentials{
			AccessKeyID:     u.Spec.Credentials.AccessKeyID,
			SecretAccessKey: u.Spec.Credentials.SecretAccessKey,
		}, nil
	}

	akIDKey := ref.AccessKeyIDKey
	if akIDKey == "" {
		akIDKey = "accessKeyId"
	}
	skKey := ref.SecretAccessKeyKey
	if skKey == "" {
		skKey = "secretAccessKey"
	}

	akID, err := decodeSecretValue(secret, akIDKey)
	if err != nil {
		return Credentials{}, err
	}
	sk, err := decodeSecretValue(secret, skKey)
	if err != nil {
		return Credentials{}, err
	}
	return Credentials{AccessKeyID: akID, SecretAccessKey: sk}, nil
}

// decodeSecretValue handles both the typed corev1.Secret.Data (already
// raw bytes once decoded by client-go/the apiserver) and, defensively, a
// base64 string the watcher may have forwarded verbatim from an
// unstructured object.
func decodeSecretValue(secret *corev1.Secret, key string) (string, error) {
	if secret == nil {
		return "", fmt.Errorf("secret is nil, cannot read key %q", key)
	}
	if raw, ok := secret.Data[key]; ok {
		return string(raw), nil
	}
	if str, ok := secret.StringData[key]; ok {
		if decoded, err := base64.StdEncoding.DecodeString(str); err == nil {
			return string(decoded), nil
		}
		return str, nil
	}
	return "", fmt.Errorf("secret %s/%s missing key %q", secret.Namespace, secret.Name, key)
}
