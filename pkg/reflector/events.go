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

	"k8s.io/apimachinery/pkg/watch"
	"k8s.io/klog/v2"

	"github.com/qwqVictor/oss-fe-proxy/pkg/ingestclient"
)

// handleEvent pushes one watch event to the Proxy, cascading to the
// referenced Secret on Upstream ADDED/MODIFIED (spec.md §4.1(3)).
func (r *Reflector) handleEvent(ctx context.Context, event watch.Event, resourceType string) error {
	obj, ok := unstructuredFromEvent(event.Object)
	if !ok {
		return fmt.Errorf("unexpected object type %T", event.Object)
	}

	logger := klog.FromContext(ctx).WithValues("resourceType", resourceType, "namespace", obj.GetNamespace(), "name", obj.GetName())
	logger.V(4).Info("received event", "type", event.Type)

	kind := ingestclient.KindRoute
	gvr := routeGVR
	if resourceType == "upstreams" {
		kind = ingestclient.KindUpstream
		gvr = upstreamGVR
	}

	switch event.Type {
	case watch.Added, watch.Modified:
		if resourceType == "upstreams" {
			if err := r.syncUpstreamSecret(ctx, obj); err != nil {
				logger.Error(err, "failed to cascade-sync secret")
			}
		}
		pushErr := r.Pusher.Push(ctx, kind, ingestclient.ActionUpdate, obj)
		r.patchStatus(ctx, gvr, obj, pushErr)
		return pushErr
	case watch.Deleted:
		return r.Pusher.Push(ctx, kind, ingestclient.ActionDelete, obj)
	default:
		logger.V(2).Info("ignoring event type", "type", event.Type)
		return nil
	}
}
