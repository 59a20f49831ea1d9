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

package webhook

import (
	"context"
	"fmt"
	"strings"

	admissionv1 "k8s.io/api/admission/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
)

// checkDuplicateHosts implements spec.md §4.6's two rejection rules that
// require listing the cluster: a host already owned by another Route, and
// a host repeated within the same request. On UPDATE, the route being
// updated is excluded from the conflict set.
func (s *Server) checkDuplicateHosts(ctx context.Context, hosts []string, routeName, routeNamespace string, operation admissionv1.Operation) error {
	existingRoutes, err := s.dynamic.Resource(routeGVR).List(ctx, metav1.ListOptions{})
	if err != nil {
		return fmt.Errorf("failed to list existing routes: %w", err)
	}

	existingHosts := make(map[string]string) // host -> "name/namespace"
	for i := range existingRoutes.Items {
		existing := &existingRoutes.Items[i]
		if operation == admissionv1.Update &&
			existing.GetName() == routeName &&
			existing.GetNamespace() == routeNamespace {
			continue
		}

		existingHostList, found, err := unstructured.NestedStringSlice(existing.Object, "spec", "hosts")
		if err != nil || !found {
			continue
		}

		key := fmt.Sprintf("%s/%s", existing.GetName(), existing.GetNamespace())
		for _, h := range existingHostList {
			existingHosts[h] = key
		}
	}

	var conflicts []string
	for _, h := range hosts {
		if owner, exists := existingHosts[h]; exists {
			conflicts = append(conflicts, fmt.Sprintf("host %q already used by route %s", h, owner))
		}
	}
	if len(conflicts) > 0 {
		return fmt.Errorf("duplicate hosts detected: %s", strings.Join(conflicts, "; "))
	}

	seen := make(map[string]bool, len(hosts))
	for _, h := range hosts {
		if seen[h] {
			return fmt.Errorf("duplicate host %q within the same route", h)
		}
		seen[h] = true
	}

	return nil
}
