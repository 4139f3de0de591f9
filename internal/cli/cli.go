// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - CLI parsing and command routing for storedesk.

package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"

	"go.uber.org/zap"

	"github.com/jeranaias/storedesk/internal/config"
	"github.com/jeranaias/storedesk/internal/credentials"
	"github.com/jeranaias/storedesk/internal/dispatch"
	"github.com/jeranaias/storedesk/internal/ui/styles"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdTUI Command = iota
	CmdLogin
	CmdLogout
	CmdEndpoint
	CmdStores
	CmdDocs
	CmdAsk
	CmdChat
	CmdConfig
	CmdLogs
	CmdVersion
	CmdHelp
	CmdUnknown
)

// NeedsBackend reports whether the command talks to the credential cell or
// the backend. Version, help and config work without either.
func (c Command) NeedsBackend() bool {
	switch c {
	case CmdConfig, CmdLogs, CmdVersion, CmdHelp, CmdUnknown:
		return false
	}
	return true
}

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	JSON    bool // Output in JSON format
	Confirm bool // Skip confirmation prompts for destructive commands
	Quiet   bool
	Verbose bool

	// Name is the command word as typed.
	Name string
	// Subcommand is the first positional argument after the command.
	Subcommand string
	// Parser holds the command's own flags and positionals.
	Parser *ArgParser
}

const usageText = `storedesk - document stores and grounded chat from the terminal

Usage:
  storedesk                          Start the TUI (default)
  storedesk login [--key KEY]        Save an API key (prompts when omitted)
  storedesk logout                   Remove the saved API key
  storedesk endpoint show            Show the endpoint and where it came from
  storedesk endpoint set <url>       Override the endpoint for this machine
  storedesk endpoint clear           Remove the override

Stores:
  storedesk stores list              List stores, newest first
  storedesk stores create <name>     Create a store
  storedesk stores delete <id>       Delete a store and its documents

Documents:
  storedesk docs list <store>        List documents in a store
  storedesk docs upload <store> <file>
                                     Upload a file
  storedesk docs delete <store> <doc>
                                     Delete a document

Chat:
  storedesk ask <store> "question"   Ask one question
  storedesk chat <store>             Interactive chat

Other:
  storedesk config show              Show the configuration
  storedesk config get <key>         Print one configuration value
  storedesk config set <key> <val>   Set a configuration value
  storedesk config path              Print the config file path
  storedesk logs [--lines N] [--level L]
                                     Show recent log entries
  storedesk version                  Show version
  storedesk help                     Show this help

Global flags:
  --json       Output in JSON format
  --confirm    Do not prompt before destructive commands
  -q, --quiet  Suppress notices
  -v, --verbose

Environment:
  STOREDESK_ENDPOINT    Default endpoint
  STOREDESK_TRANSPORT   json | multipart | base64 | direct
  STOREDESK_HOME        Config directory (default ~/.storedesk)
  STOREDESK_PASSPHRASE  Seal the saved API key with a passphrase

Version: %s
`

// PrintUsage prints the usage/help text.
func PrintUsage(w io.Writer) {
	fmt.Fprintf(w, usageText, Version)
}

// PrintVersion prints version information.
func PrintVersion(w io.Writer) {
	fmt.Fprintf(w, "storedesk version %s\n", Version)
	fmt.Fprintf(w, "  Git commit: %s\n", GitCommit)
	fmt.Fprintf(w, "  Build date: %s\n", BuildDate)
}

// =============================================================================
// PARSING
// =============================================================================

// Parse parses command-line arguments (without the program name) and
// returns the command and args.
func Parse(argv []string) (Command, Args) {
	remaining, parsedArgs := parseGlobalFlags(argv)

	if len(remaining) == 0 {
		parsedArgs.Parser = NewArgParser(nil)
		return CmdTUI, parsedArgs
	}

	cmd := strings.ToLower(remaining[0])
	parsedArgs.Name = cmd
	parsedArgs.Parser = NewArgParser(remaining[1:])
	parsedArgs.Subcommand = strings.ToLower(parsedArgs.Parser.Subcommand())

	switch cmd {
	case "tui":
		return CmdTUI, parsedArgs
	case "login":
		return CmdLogin, parsedArgs
	case "logout":
		return CmdLogout, parsedArgs
	case "endpoint":
		return CmdEndpoint, parsedArgs
	case "stores", "store":
		return CmdStores, parsedArgs
	case "docs", "doc", "documents":
		return CmdDocs, parsedArgs
	case "ask":
		return CmdAsk, parsedArgs
	case "chat":
		return CmdChat, parsedArgs
	case "config":
		return CmdConfig, parsedArgs
	case "logs", "log":
		return CmdLogs, parsedArgs
	case "version", "--version":
		return CmdVersion, parsedArgs
	case "help", "-h", "--help":
		return CmdHelp, parsedArgs
	default:
		return CmdUnknown, parsedArgs
	}
}

// parseGlobalFlags extracts global flags from args and returns remaining args.
func parseGlobalFlags(args []string) ([]string, Args) {
	var remaining []string
	var parsedArgs Args

	for _, arg := range args {
		switch arg {
		case "--json":
			parsedArgs.JSON = true
		case "--confirm", "--yes", "-y":
			parsedArgs.Confirm = true
		case "-q", "--quiet":
			parsedArgs.Quiet = true
		case "-v", "--verbose":
			parsedArgs.Verbose = true
		default:
			remaining = append(remaining, arg)
		}
	}

	return remaining, parsedArgs
}

// =============================================================================
// ENVIRONMENT
// =============================================================================

// Env carries what every command needs. Fields may be replaced in tests.
type Env struct {
	Config     *config.Config
	Resolver   *credentials.Resolver
	Dispatcher *dispatch.Dispatcher
	Logger     *zap.Logger
	Markdown   *styles.Markdown

	In  io.Reader
	Out io.Writer
	Err io.Writer

	// Interactive is true when prompts can be shown on In.
	Interactive bool
	// Styled is true when Out is a terminal and colors are enabled.
	Styled bool

	// readSecret reads a line without echo. Nil falls back to a plain line read.
	readSecret func() (string, error)
	lines      *bufio.Reader
}

// NewEnv returns an Env bound to the process streams.
func NewEnv(cfg *config.Config, res *credentials.Resolver, disp *dispatch.Dispatcher, logger *zap.Logger) *Env {
	if logger == nil {
		logger = zap.NewNop()
	}
	env := &Env{
		Config:      cfg,
		Resolver:    res,
		Dispatcher:  disp,
		Logger:      logger,
		Markdown:    styles.NewMarkdown(styles.MarkdownStyleFor(cfg.UI.Theme)),
		In:          os.Stdin,
		Out:         os.Stdout,
		Err:         os.Stderr,
		Interactive: IsTTY(),
		Styled:      ColorsEnabled(),
	}
	if env.Interactive {
		env.readSecret = readPasswordStdin
	}
	return env
}

// readLine reads one line from In without the trailing newline.
func (e *Env) readLine() (string, error) {
	if e.lines == nil {
		e.lines = bufio.NewReader(e.In)
	}
	line, err := e.lines.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// printf writes to Out.
func (e *Env) printf(format string, args ...interface{}) {
	fmt.Fprintf(e.Out, format, args...)
}

// =============================================================================
// ROUTING
// =============================================================================

// Run executes cmd. The TUI command is handled by the caller.
func Run(ctx context.Context, env *Env, cmd Command, args Args) error {
	if args.Parser != nil && (args.Parser.BoolFlag("help") || args.Parser.BoolFlag("h")) {
		PrintUsage(env.Out)
		return nil
	}
	switch cmd {
	case CmdLogin:
		return HandleLogin(env, args)
	case CmdLogout:
		return HandleLogout(env, args)
	case CmdEndpoint:
		return HandleEndpoint(env, args)
	case CmdStores:
		return HandleStores(ctx, env, args)
	case CmdDocs:
		return HandleDocs(ctx, env, args)
	case CmdAsk:
		return HandleAsk(ctx, env, args)
	case CmdChat:
		return HandleChat(ctx, env, args)
	case CmdConfig:
		return HandleConfig(env, args)
	case CmdLogs:
		return HandleLogs(env, args)
	case CmdVersion:
		return HandleVersion(env, args)
	case CmdHelp:
		PrintUsage(env.Out)
		return nil
	case CmdTUI:
		return fmt.Errorf("the TUI is started by the main program")
	}
	return &UsageError{Command: args.Name, Reason: "unknown command", Hint: "storedesk help"}
}

// VersionData is the JSON shape of the version command.
type VersionData struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
}

// HandleVersion handles the "version" command with JSON output support.
func HandleVersion(env *Env, args Args) error {
	if args.JSON {
		data := VersionData{
			Version:   Version,
			GitCommit: GitCommit,
			BuildDate: BuildDate,
			GoVersion: runtime.Version(),
		}
		return NewJSONResponse("version", data).Print(env.Out)
	}
	PrintVersion(env.Out)
	return nil
}
