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

package main

import (
	"context"
	"fmt"

	"github.com/nordeim/convoengine/pkg/convoconfig"
	"github.com/nordeim/convoengine/pkg/convoconfig/provider"
)

// loadConfig reads and validates a convoengine config document from path.
func loadConfig(ctx context.Context, path string) (*convoconfig.Config, error) {
	p, err := provider.New(provider.Config{Type: provider.TypeFile, Path: path})
	if err != nil {
		return nil, fmt.Errorf("open config %s: %w", path, err)
	}
	defer p.Close()

	cfg, err := convoconfig.NewLoader(p).Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, nil
}
