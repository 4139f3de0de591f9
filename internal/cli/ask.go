// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// ask.go - one-shot question against a store.
//
// Usage:
//
//	storedesk ask <store> "What does the contract say about renewals?"
//	echo "Summarize the handbook" | storedesk ask <store>

package cli

import (
	"context"
	"io"
	"strings"

	"github.com/jeranaias/storedesk/internal/console"
)

// AskData is the JSON shape of ask.
type AskData struct {
	Store    string `json:"store"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// HandleAsk sends one question and prints the answer.
func HandleAsk(ctx context.Context, env *Env, args Args) error {
	storeID := args.Parser.Positional(0)
	if storeID == "" {
		return ErrMissingArgument("ask", "store", `storedesk ask <store> "question"`)
	}

	question := JoinPositionalArgs(args.Parser, 1)
	if strings.TrimSpace(question) == "" && !env.Interactive {
		// Read the question from piped stdin.
		data, err := io.ReadAll(io.LimitReader(env.In, 64*1024))
		if err != nil {
			return err
		}
		question = string(data)
	}
	question = strings.TrimSpace(question)
	if question == "" {
		return ErrMissingArgument("ask", "question", `storedesk ask <store> "question"`)
	}

	answer, err := env.Dispatcher.Chat(ctx, storeID, question)
	if err != nil {
		return err
	}
	if strings.TrimSpace(answer) == "" {
		answer = console.NoAnswerText
	}

	if args.JSON {
		return NewJSONResponse("ask", AskData{Store: storeID, Question: question, Answer: answer}).Print(env.Out)
	}
	env.printf("%s\n", renderAnswer(env, answer))
	return nil
}

// renderAnswer formats markdown for the terminal, or returns it unchanged
// when output is not styled.
func renderAnswer(env *Env, answer string) string {
	if !env.Styled || env.Markdown == nil {
		return answer
	}
	return strings.TrimRight(env.Markdown.Render(answer, GetTerminalWidth()), "\n")
}
