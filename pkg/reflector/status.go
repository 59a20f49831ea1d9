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
	"encoding/json"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/klog/v2"
)

// statusPatch is the JSON merge-patch body written to a Route/Upstream's
// status subresource after a cache push, matching
// EdgeCDN-X-edgecdnx-controller's ServiceStatus pattern (SPEC_FULL.md §3):
// an observedGeneration and a short condition string.
type statusPatch struct {
	Status struct {
		ObservedGeneration int64  `json:"observedGeneration"`
		Condition          string `json:"condition"`
	} `json:"status"`
}

// patchStatus best-effort patches obj's status subresource to record the
// outcome of a cache push. It never returns an error: a failing patch is
// logged and dropped, since the status subresource is purely informational
// and P8 (SPEC_FULL.md §8) requires that a failing status patch never
// delay or drop the cache push it describes. Callers must invoke this only
// after the corresponding Pusher.Push call has already returned.
func (r *Reflector) patchStatus(ctx context.Context, gvr schema.GroupVersionResource, obj *unstructured.Unstructured, pushErr error) {
	logger := klog.FromContext(ctx).WithValues("namespace", obj.GetNamespace(), "name", obj.GetName())

	condition := "Synced"
	if pushErr != nil {
		condition = "PushFailed"
	}

	var patch statusPatch
	patch.Status.ObservedGeneration = obj.GetGeneration()
	patch.Status.Condition = condition

	data, err := json.Marshal(patch)
	if err != nil {
		logger.Error(err, "failed to marshal status patch")
		return
	}

	_, err = r.Dynamic.Resource(gvr).Namespace(obj.GetNamespace()).Patch(
		ctx, obj.GetName(), types.MergePatchType, data, metav1.PatchOptions{}, "status")
	if err != nil {
		logger.Error(err, "failed to patch status, will retry on next event", "condition", condition)
	}
}
