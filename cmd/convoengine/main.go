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

// Command convoengine is the CLI for the conversation orchestrator.
//
// Usage:
//
//	convoengine chat --config convoengine.yaml
//	convoengine validate --config convoengine.yaml
//	convoengine schema > config.schema.json
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"

	"github.com/nordeim/convoengine"
	convolog "github.com/nordeim/convoengine/pkg/logger"
)

const defaultConfigFile = "convoengine.yaml"

// CLI defines the command-line interface.
type CLI struct {
	Chat     ChatCmd     `cmd:"" help:"Start an interactive conversation against a locally-wired engine."`
	Validate ValidateCmd `cmd:"" help:"Validate a configuration file."`
	Schema   SchemaCmd   `cmd:"" help:"Generate JSON Schema for the configuration document."`
	Version  VersionCmd  `cmd:"" help:"Show version information."`

	Config    string `short:"c" help:"Path to config file." type:"path"`
	LogLevel  string `help:"Log level (debug, info, warn, error)."`
	LogFile   string `help:"Log file path (empty = stderr)."`
	LogFormat string `help:"Log format (simple, verbose)."`
}

// configPath resolves the config file to load: the explicit flag, or
// else the default filename, whether or not that file exists.
func (c *CLI) configPath() string {
	if c.Config != "" {
		return c.Config
	}
	return defaultConfigFile
}

func loggerOrDefault() *slog.Logger {
	if l := convolog.GetLogger(); l != nil {
		return l
	}
	return slog.Default()
}

// VersionCmd shows version information.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Println(convoengine.GetVersion().String())
	return nil
}

func main() {
	_ = godotenv.Load()

	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("convoengine"),
		kong.Description("Multi-tenant conversation orchestrator CLI."),
		kong.UsageOnError(),
	)

	if err := ctx.Run(&cli); err != nil {
		fmt.Fprintf(os.Stderr, "convoengine: %v\n", err)
		os.Exit(1)
	}
}
