// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - interactive chat against a store.
//
// USABILITY: on a terminal the prompt has readline-style editing and a
// persistent input history. Piped input is read line by line so chat can
// be scripted.

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"

	"github.com/jeranaias/storedesk/internal/config"
	"github.com/jeranaias/storedesk/internal/console"
	"github.com/jeranaias/storedesk/internal/model"
)

// historyFileName is the input history file inside the config directory.
const historyFileName = "chat_history"

// =============================================================================
// INPUT
// =============================================================================

// lineInput reads one line of user input per call.
type lineInput interface {
	ReadInput(prompt string) (string, error)
	Close()
}

// linerInput provides input history and line editing on a terminal.
type linerInput struct {
	line        *liner.State
	historyFile string
}

func newLinerInput() *linerInput {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	configDir, err := config.ConfigDir()
	if err != nil {
		configDir = os.TempDir()
	}
	in := &linerInput{line: line, historyFile: filepath.Join(configDir, historyFileName)}
	if f, err := os.Open(in.historyFile); err == nil {
		_, _ = in.line.ReadHistory(f)
		f.Close()
	}
	return in
}

func (c *linerInput) ReadInput(prompt string) (string, error) {
	input, err := c.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		c.line.AppendHistory(input)
	}
	return input, nil
}

// Close saves history with owner-only permissions and restores the terminal.
func (c *linerInput) Close() {
	if err := config.EnsureConfigDir(); err == nil {
		if f, err := os.OpenFile(c.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600); err == nil {
			_, _ = c.line.WriteHistory(f)
			f.Close()
		}
	}
	c.line.Close()
}

// plainInput reads lines from Env.In without a prompt.
type plainInput struct {
	env *Env
}

func (p plainInput) ReadInput(string) (string, error) { return p.env.readLine() }
func (p plainInput) Close()                           {}

// =============================================================================
// REPL
// =============================================================================

// HandleChat runs the chat loop until /exit, Ctrl+C or end of input.
func HandleChat(ctx context.Context, env *Env, args Args) error {
	storeID := args.Parser.Positional(0)
	if storeID == "" {
		return ErrMissingArgument("chat", "store", "storedesk chat <store>")
	}
	if args.JSON {
		return &UsageError{Command: "chat", Reason: "chat is interactive; use 'storedesk ask --json' for scripting"}
	}

	session := console.NewChatSession(env.Dispatcher, storeID,
		console.WithChatNotifier(notifier(env, Args{Quiet: true})),
		console.WithChatLogger(env.Logger),
	)

	var input lineInput = plainInput{env: env}
	if env.Interactive {
		input = newLinerInput()
	}
	defer input.Close()

	if env.Interactive && !args.Quiet {
		env.printf("%s %s\n", TitleStyle.Render("Chat"), DimStyle.Render(model.DisplaySuffix(storeID)))
		env.printf("%s\n\n", DimStyle.Render("Type /help for commands, /exit to leave."))
	}

	prompt := youStyle.Render("you> ")
	if !env.Interactive {
		prompt = ""
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		text, err := input.ReadInput(prompt)
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				if env.Interactive {
					env.printf("\n")
				}
				return nil
			}
			return err
		}

		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		if strings.HasPrefix(text, "/") {
			if !handleSlashCommand(env, session, text) {
				return nil
			}
			continue
		}

		if err := session.Send(ctx, text); err != nil && !errors.Is(err, console.ErrEmptyMessage) {
			// The failure turn is printed below; the cause goes to stderr.
			fmt.Fprintf(env.Err, "%s %v\n", ErrorStyle.Render("[ERROR]"), err)
		}
		turns := session.Turns()
		if len(turns) > 0 {
			printTurn(env, turns[len(turns)-1])
		}
	}
}

// handleSlashCommand runs a chat command and reports whether to keep going.
func handleSlashCommand(env *Env, session *console.ChatSession, input string) bool {
	cmd := strings.ToLower(strings.Fields(input)[0])
	switch cmd {
	case "/exit", "/quit", "/q":
		return false
	case "/clear":
		session.Reset()
		env.printf("%s\n", DimStyle.Render("Conversation cleared."))
	case "/history":
		turns := session.Turns()
		if len(turns) == 0 {
			env.printf("%s\n", DimStyle.Render("No messages yet."))
		}
		for _, t := range turns {
			printTurn(env, t)
		}
	case "/help", "/?":
		env.printf("%s\n", TitleStyle.Render("Commands"))
		env.printf("  %s  %s\n", InfoStyle.Render("/history"), "Show the conversation")
		env.printf("  %s    %s\n", InfoStyle.Render("/clear"), "Start a new conversation")
		env.printf("  %s     %s\n", InfoStyle.Render("/exit"), "Leave chat")
	default:
		fmt.Fprintf(env.Err, "%s Unknown command %s. Type /help.\n", WarningStyle.Render("[WARN]"), cmd)
	}
	return true
}

func printTurn(env *Env, t model.Turn) {
	if t.IsUser {
		env.printf("%s %s\n", youStyle.Render("you>"), t.Text)
		return
	}
	if t.Failed {
		env.printf("%s %s\n\n", ErrorStyle.Render("assistant>"), t.Text)
		return
	}
	env.printf("%s\n%s\n\n", answerStyle.Render("assistant>"), renderAnswer(env, t.Text))
}
