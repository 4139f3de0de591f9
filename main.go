// storedesk - document stores and grounded chat from the terminal.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/jeranaias/storedesk/internal/cli"
	"github.com/jeranaias/storedesk/internal/config"
	"github.com/jeranaias/storedesk/internal/credentials"
	"github.com/jeranaias/storedesk/internal/dispatch"
	"github.com/jeranaias/storedesk/internal/logging"
	"github.com/jeranaias/storedesk/internal/transport"
	"github.com/jeranaias/storedesk/internal/ui"
	"github.com/jeranaias/storedesk/internal/ui/styles"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func init() {
	// Sync version info with cli package
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	os.Exit(run(os.Args[1:]))
}

// run executes one invocation and returns the process exit code.
func run(argv []string) int {
	cmd, args := cli.Parse(argv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.Global()

	logPath, err := cfg.LogPath()
	if err != nil {
		cli.DisplayError(os.Stderr, args.Name, err, args.JSON)
		return cli.ExitConfigError
	}
	logger, err := logging.New(logging.Options{Path: logPath, Level: cfg.Logging.Level})
	if err != nil {
		// Logging is best effort; the program still works without it.
		fmt.Fprintf(os.Stderr, "Warning: logging disabled: %v\n", err)
		logger = zap.NewNop()
	}
	defer func() { _ = logger.Sync() }()
	logger.Debug("starting", zap.String("version", Version), zap.String("command", args.Name))

	switch cmd {
	case cli.CmdHelp, cli.CmdVersion, cli.CmdConfig, cli.CmdLogs, cli.CmdUnknown:
		env := cli.NewEnv(cfg, nil, nil, logger)
		return finish(args, cli.Run(ctx, env, cmd, args))
	}

	stack, err := openStack(cfg, logger)
	if err != nil {
		cli.DisplayError(os.Stderr, args.Name, err, args.JSON)
		return cli.ExitConfigError
	}
	defer stack.Close()

	if cmd == cli.CmdTUI {
		if err := runTUI(ctx, cfg, stack, logger); err != nil {
			fmt.Fprintf(os.Stderr, "Error running storedesk: %v\n", err)
			return cli.ExitGeneralError
		}
		return cli.ExitSuccess
	}

	env := cli.NewEnv(cfg, stack.resolver, stack.dispatcher, logger)
	return finish(args, cli.Run(ctx, env, cmd, args))
}

// finish prints err once and maps it to an exit code.
func finish(args cli.Args, err error) int {
	if err != nil {
		cli.DisplayError(os.Stderr, args.Name, err, args.JSON)
	}
	return cli.GetExitCode(err)
}

// =============================================================================
// BACKEND STACK
// =============================================================================

// stack is the credential cell, resolver and dispatcher shared by the CLI
// and the TUI.
type stack struct {
	closer     io.Closer
	resolver   *credentials.Resolver
	dispatcher *dispatch.Dispatcher
}

func openStack(cfg *config.Config, logger *zap.Logger) (*stack, error) {
	cell, closer, err := credentials.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open credential store: %w", err)
	}

	// The fallback reads the live config so endpoint edits apply on reload.
	resolver := credentials.NewResolver(cell, func() string {
		return config.Global().FallbackEndpoint()
	})

	maxUpload, err := cfg.MaxUploadBytes()
	if err != nil {
		closer.Close()
		return nil, err
	}
	tr, err := transport.New(transport.Kind(cfg.Relay.Transport), transport.Options{
		RelayPath:         cfg.Relay.Path,
		RequestsPerSecond: cfg.Relay.RequestsPerSecond,
		MaxUploadBytes:    maxUpload,
		Model:             cfg.Direct.Model,
		TopK:              cfg.Direct.TopK,
		Logger:            logger.Named("transport"),
	})
	if err != nil {
		closer.Close()
		return nil, err
	}

	d := dispatch.New(resolver, tr,
		dispatch.WithLogger(logger.Named("dispatch")),
		dispatch.WithTimeout(cfg.RequestTimeout()),
	)
	return &stack{closer: closer, resolver: resolver, dispatcher: d}, nil
}

func (s *stack) Close() {
	if s.closer != nil {
		_ = s.closer.Close()
	}
}

// =============================================================================
// TUI
// =============================================================================

// runTUI starts the interactive console and a config watcher that feeds
// reloads into it.
func runTUI(ctx context.Context, cfg *config.Config, s *stack, logger *zap.Logger) error {
	app := ui.New(ctx, ui.Deps{
		Config:     cfg,
		Resolver:   s.resolver,
		Dispatcher: s.dispatcher,
		Logger:     logger.Named("ui"),
		Theme:      styles.NewTheme(cfg.UI.Theme),
		Markdown:   styles.NewMarkdown(styles.MarkdownStyleFor(cfg.UI.Theme)),
	})

	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx))

	watcher, err := config.NewWatcher(func(next *config.Config, err error) {
		if err == nil {
			config.SetGlobal(next)
			logger.Info("config reloaded")
		} else {
			logger.Warn("config reload failed", zap.Error(err))
		}
		p.Send(ui.ConfigReloadedMsg{Cfg: next, Err: err})
	})
	if err != nil {
		// The console works without live reload.
		logger.Warn("config watcher unavailable", zap.Error(err))
	} else {
		watcher.Start(ctx)
		defer watcher.Close()
	}

	_, err = p.Run()
	if err == tea.ErrProgramKilled && ctx.Err() != nil {
		return nil
	}
	return err
}
