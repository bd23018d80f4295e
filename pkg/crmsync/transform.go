// SPDX-License-Identifier: AGPL-3.0
// Copyright 2025 Kadir Pekel
//
// Licensed under the GNU Affero General Public License v3.0 (AGPL-3.0) (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.gnu.org/licenses/agpl-3.0.en.html
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package crmsync

import (
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"

	"github.com/nordeim/convoengine/pkg/registry"
)

// TransformFunc converts one field's local value into its remote shape
// (or back, for PullFrom). Transforms are pure and side-effect free.
type TransformFunc func(any) (any, error)

// TransformRegistry looks transforms up by the name a FieldMapping
// declares; an unknown name fails the mapping, per spec §4.7 "Field
// mapping": "unknown transforms fail the mapping".
type TransformRegistry struct {
	base *registry.BaseRegistry[TransformFunc]
}

// NewTransformRegistry builds a registry pre-seeded with the built-in
// transforms every deployment is likely to need.
func NewTransformRegistry() *TransformRegistry {
	r := &TransformRegistry{base: registry.NewBaseRegistry[TransformFunc]()}
	_ = r.base.Register("uppercase", func(v any) (any, error) {
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("uppercase: expected string, got %T", v)
		}
		return strings.ToUpper(s), nil
	})
	_ = r.base.Register("lowercase", func(v any) (any, error) {
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("lowercase: expected string, got %T", v)
		}
		return strings.ToLower(s), nil
	})
	_ = r.base.Register("trim", func(v any) (any, error) {
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("trim: expected string, got %T", v)
		}
		return strings.TrimSpace(s), nil
	})
	_ = r.base.Register("stringify", func(v any) (any, error) {
		return fmt.Sprintf("%v", v), nil
	})
	return r
}

// Register adds or overrides a named transform.
func (r *TransformRegistry) Register(name string, fn TransformFunc) error {
	_ = r.base.Remove(name)
	return r.base.Register(name, fn)
}

// Apply looks up name and runs it against v. An empty name is the
// identity transform.
func (r *TransformRegistry) Apply(name string, v any) (any, error) {
	if name == "" {
		return v, nil
	}
	fn, ok := r.base.Get(name)
	if !ok {
		return nil, fmt.Errorf("crmsync: unknown transform %q", name)
	}
	return fn(v)
}

// DecodeObjectMapping decodes a loosely-typed configuration block (as
// produced by pkg/convoconfig's YAML loader) into an ObjectMapping,
// mirroring the mapstructure decode pattern pkg/convoconfig's loader uses
// for the configuration document.
func DecodeObjectMapping(raw map[string]any) (ObjectMapping, error) {
	var m ObjectMapping
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &m,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return ObjectMapping{}, err
	}
	if err := dec.Decode(raw); err != nil {
		return ObjectMapping{}, fmt.Errorf("crmsync: decode object mapping: %w", err)
	}
	return m, nil
}
