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
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/nordeim/convoengine/convo"
	"github.com/nordeim/convoengine/pkg/convotypes"
)

// ChatCmd starts an interactive conversation against a locally-wired
// Engine — no server, no client/server split, the same shape as
// cmd/hector's "direct mode" chat.
type ChatCmd struct {
	Tenant  string `default:"local-tenant" help:"Tenant id for the conversation."`
	User    string `default:"local-user" help:"End-user id for the conversation."`
	Channel string `default:"api" help:"Channel tag (web_chat, api, slack, ...)."`
}

func (c *ChatCmd) Run(cli *CLI) error {
	cfg, err := loadConfig(context.Background(), cli.configPath())
	if err != nil {
		return err
	}

	cleanup, err := initLoggerFromCLI(cli.LogLevel, cli.LogFile, cli.LogFormat)
	if err != nil {
		return err
	}
	if cleanup != nil {
		defer cleanup()
	}

	shutdownTracing, err := initTracing(context.Background(), cfg.Tracing)
	if err != nil {
		return err
	}
	defer shutdownTracing(context.Background())

	engine, err := buildEngine(cfg, loggerOrDefault())
	if err != nil {
		return fmt.Errorf("wire engine: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	conversationID, err := engine.CreateConversation(ctx, c.Tenant, c.User, convotypes.Channel(c.Channel), nil)
	if err != nil {
		return fmt.Errorf("create conversation: %w", err)
	}

	return runChatLoop(ctx, engine, conversationID)
}

func runChatLoop(ctx context.Context, engine *convo.Engine, conversationID string) error {
	reader := bufio.NewReader(os.Stdin)

	fmt.Printf("\nconversation %s started. Commands: /status /escalate <reason> /close /metrics /health /quit\n\n", conversationID)

	for {
		select {
		case <-ctx.Done():
			fmt.Println("\nsession ended")
			return nil
		default:
		}

		fmt.Print("you: ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return nil
		}
		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			if done := runChatCommand(ctx, engine, conversationID, input); done {
				return nil
			}
			continue
		}

		result, err := engine.PostUserMessage(ctx, conversationID, input)
		if err != nil {
			var degraded *convo.PipelineTimeoutError
			if errors.As(err, &degraded) || errors.Is(err, convotypes.ErrPipelineTimeout) {
				fmt.Printf("assistant (degraded, timed out): %s\n", result.ResponseText)
				continue
			}
			var allFailed *convotypes.AllProvidersFailedError
			if errors.As(err, &allFailed) {
				fmt.Printf("assistant (degraded, generation failed): %s\n", result.ResponseText)
				continue
			}
			fmt.Printf("error: %v\n", err)
			continue
		}

		fmt.Printf("assistant: %s\n", result.ResponseText)
		if result.Escalated {
			fmt.Println("(conversation escalated)")
		}
	}
}

// runChatCommand handles a "/"-prefixed REPL command, returning true when
// the session should end.
func runChatCommand(ctx context.Context, engine *convo.Engine, conversationID, input string) bool {
	fields := strings.SplitN(input, " ", 2)
	switch fields[0] {
	case "/quit", "/exit":
		fmt.Println("session ended")
		return true
	case "/status":
		status, err := engine.Status(ctx, conversationID)
		if err != nil {
			fmt.Printf("error: %v\n", err)
			return false
		}
		fmt.Printf("state=%s prev=%s messages=%v\n", status.State, status.PrevState, status.MessageCounts)
	case "/escalate":
		reason := "manual escalation from chat"
		if len(fields) > 1 {
			reason = fields[1]
		}
		if err := engine.Escalate(ctx, conversationID, reason, "cli-operator", ""); err != nil {
			fmt.Printf("error: %v\n", err)
			return false
		}
		fmt.Println("escalated")
	case "/close":
		if err := engine.Close(ctx, conversationID, "resolved", "cli-operator", "", nil, nil); err != nil {
			fmt.Printf("error: %v\n", err)
			return false
		}
		fmt.Println("closed")
		return true
	case "/metrics":
		metrics := engine.SystemMetrics(ctx)
		fmt.Printf("active=%d tracked=%d total_cost=%.4f\n",
			metrics.Metrics.ActiveConversations, metrics.Metrics.TotalConversationsTracked, metrics.Cost.TotalCost)
	case "/health":
		health := engine.Health(ctx)
		fmt.Printf("status=%s active_contexts=%d breakers=%v\n", health.Status, health.ActiveContexts, health.BreakerStates)
	default:
		fmt.Printf("unknown command: %s\n", fields[0])
	}
	return false
}
