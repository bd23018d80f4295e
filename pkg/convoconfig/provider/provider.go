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

// Package provider defines the config source abstraction for convoengine:
// providers load raw configuration bytes from a source and may support
// watching for changes.
package provider

import (
	"context"
	"fmt"
)

// Type identifies the config source type.
type Type string

const (
	TypeFile      Type = "file"
	TypeConsul    Type = "consul"
	TypeEtcd      Type = "etcd"
	TypeZookeeper Type = "zookeeper"
)

// ParseType converts a string to a Type.
func ParseType(s string) (Type, error) {
	switch s {
	case "file", "":
		return TypeFile, nil
	case "consul":
		return TypeConsul, nil
	case "etcd":
		return TypeEtcd, nil
	case "zookeeper", "zk":
		return TypeZookeeper, nil
	default:
		return "", fmt.Errorf("unknown provider type: %s", s)
	}
}

// Provider abstracts config sources. Implementations must be safe for
// concurrent use.
type Provider interface {
	Type() Type
	Load(ctx context.Context) ([]byte, error)
	// Watch signals via the returned channel when the source changes.
	// Cancel ctx to stop watching. Returns a nil channel if unsupported.
	Watch(ctx context.Context) (<-chan struct{}, error)
	Close() error
}

// Config configures provider creation.
type Config struct {
	Type      Type
	Path      string
	Endpoints []string
}

// New creates a Provider from cfg.
func New(cfg Config) (Provider, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("config path is required")
	}

	switch cfg.Type {
	case TypeFile, "":
		return NewFileProvider(cfg.Path)
	case TypeConsul:
		return nil, fmt.Errorf("consul provider not yet implemented")
	case TypeEtcd:
		return nil, fmt.Errorf("etcd provider not yet implemented")
	case TypeZookeeper:
		return nil, fmt.Errorf("zookeeper provider not yet implemented")
	default:
		return nil, fmt.Errorf("unknown provider type: %s", cfg.Type)
	}
}
