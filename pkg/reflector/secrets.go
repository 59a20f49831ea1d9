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

package reflector

import (
	"context"
	"fmt"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/klog/v2"

	"github.com/qwqVictor/oss-fe-proxy/pkg/ingestclient"
)

// syncUpstreamSecret resolves an Upstream's spec.credentials.secretRef
// (defaulting namespace to the Upstream's own) and pushes the referenced
// Secret, cascading per spec.md §4.1(1)/(3). A no-op when the Upstream
// carries inline credentials instead of a secretRef.
//
// Unlike original_source/cmd/watcher/main.go's syncUpstreamSecrets, which
// hand-builds an unstructured object with raw (non-base64) string values in
// its data map, this pushes the typed corev1.Secret as-is: encoding/json
// base64-encodes a []byte field automatically, and the ingestion handler on
// the Proxy side decodes it the same way, so the wire contract matches
// corev1.Secret's own JSON encoding instead of a hand-rolled one.
func (r *Reflector) syncUpstreamSecret(ctx context.Context, upstream *unstructured.Unstructured) error {
	credentials, found, err := unstructured.NestedMap(upstream.Object, "spec", "credentials")
	if err != nil {
		return fmt.Errorf("read spec.credentials: %w", err)
	}
	if !found {
		return nil
	}

	secretRef, found, err := unstructured.NestedMap(credentials, "secretRef")
	if err != nil {
		return fmt.Errorf("read spec.credentials.secretRef: %w", err)
	}
	if !found {
		return nil
	}

	secretName, found, err := unstructured.NestedString(secretRef, "name")
	if err != nil || !found {
		return fmt.Errorf("secretRef missing name")
	}

	secretNamespace, found, _ := unstructured.NestedString(secretRef, "namespace")
	if !found || secretNamespace == "" {
		secretNamespace = upstream.GetNamespace()
	}

	logger := klog.FromContext(ctx).WithValues("secretNamespace", secretNamespace, "secretName", secretName, "upstream", upstream.GetName())
	logger.V(4).Info("cascading secret sync")

	secret, err := r.Clientset.CoreV1().Secrets(secretNamespace).Get(ctx, secretName, metav1.GetOptions{})
	if err != nil {
		return fmt.Errorf("get secret %s/%s: %w", secretNamespace, secretName, err)
	}

	return r.Pusher.Push(ctx, ingestclient.KindSecret, ingestclient.ActionUpdate, secret)
}
