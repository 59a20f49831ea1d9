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

package v1alpha1

import (
	"fmt"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"sigs.k8s.io/yaml"
)

// RouteFromUnstructured decodes a Route out of the dynamic client's
// unstructured representation.
func RouteFromUnstructured(u *unstructured.Unstructured) (*Route, error) {
	r := &Route{}
	if err := fromUnstructured(u, r); err != nil {
		return nil, fmt.Errorf("decode Route %s/%s: %w", u.GetNamespace(), u.GetName(), err)
	}
	return r, nil
}

// UpstreamFromUnstructured decodes an Upstream out of the dynamic client's
// unstructured representation.
func UpstreamFromUnstructured(u *unstructured.Unstructured) (*Upstream, error) {
	up := &Upstream{}
	if err := fromUnstructured(u, up); err != nil {
		return nil, fmt.Errorf("decode Upstream %s/%s: %w", u.GetNamespace(), u.GetName(), err)
	}
	return up, nil
}

// fromUnstructured round-trips through sigs.k8s.io/yaml (which marshals to
// JSON under the hood) rather than runtime.DefaultUnstructuredConverter, so
// the target types need no DeepCopyObject/runtime.Object scaffolding, matching
// the teacher's pkg/proxy/mapping.go use of yaml.Unmarshal to decode external
// map data into JSON-tagged structs.
func fromUnstructured(u *unstructured.Unstructured, out interface{}) error {
	data, err := yaml.Marshal(u.Object)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, out)
}
