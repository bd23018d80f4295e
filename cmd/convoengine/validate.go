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
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ValidateCmd loads a configuration file, applies defaults, and validates
// it, the same shape as cmd/hector's validate command.
type ValidateCmd struct {
	PrintConfig bool   `short:"p" name:"print-config" help:"Print the expanded configuration (defaults applied)."`
	Format      string `short:"f" help:"Output format for --print-config: yaml, json." default:"yaml" enum:"yaml,json"`
}

func (c *ValidateCmd) Run(cli *CLI) error {
	path := cli.configPath()
	cfg, err := loadConfig(context.Background(), path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: invalid: %v\n", path, err)
		return fmt.Errorf("config validation failed")
	}

	if c.PrintConfig {
		switch c.Format {
		case "json":
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(cfg); err != nil {
				return fmt.Errorf("encode config as json: %w", err)
			}
		default:
			enc := yaml.NewEncoder(os.Stdout)
			enc.SetIndent(2)
			defer enc.Close()
			if err := enc.Encode(cfg); err != nil {
				return fmt.Errorf("encode config as yaml: %w", err)
			}
		}
		return nil
	}

	fmt.Printf("%s: valid\n", path)
	return nil
}
