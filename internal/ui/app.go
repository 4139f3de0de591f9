// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/jeranaias/storedesk/internal/config"
	"github.com/jeranaias/storedesk/internal/console"
	"github.com/jeranaias/storedesk/internal/credentials"
	"github.com/jeranaias/storedesk/internal/dispatch"
	"github.com/jeranaias/storedesk/internal/ui/chat"
	"github.com/jeranaias/storedesk/internal/ui/components"
	"github.com/jeranaias/storedesk/internal/ui/styles"
)

// =============================================================================
// APPLICATION STATE
// =============================================================================

// State represents the current screen.
type State int

const (
	// StateConfigError blocks the app until an endpoint is configured.
	StateConfigError State = iota
	// StateGate asks for the API key.
	StateGate
	// StateStores lists stores.
	StateStores
	// StateDetail shows one store's documents and upload controls.
	StateDetail
	// StateChat is the conversation screen for one store.
	StateChat
)

// String returns the screen name.
func (s State) String() string {
	switch s {
	case StateConfigError:
		return "Configuration"
	case StateGate:
		return "Login"
	case StateStores:
		return "Stores"
	case StateDetail:
		return "Documents"
	case StateChat:
		return "Chat"
	default:
		return "Unknown"
	}
}

// =============================================================================
// MESSAGES
// =============================================================================

// ConfigReloadedMsg is sent by the config watcher after the file changed.
type ConfigReloadedMsg struct {
	Cfg *config.Config
	Err error
}

// opDoneMsg reports that a controller operation finished. The controller
// already notified the user; the app only refreshes derived state.
type opDoneMsg struct {
	op  string
	err error
}

// =============================================================================
// DEPENDENCIES
// =============================================================================

// Deps are the collaborators the app needs. Scheduler and Logger may be nil.
type Deps struct {
	Config     *config.Config
	Resolver   *credentials.Resolver
	Dispatcher *dispatch.Dispatcher
	Logger     *zap.Logger
	Theme      *styles.Theme
	Markdown   *styles.Markdown
	Scheduler  console.Scheduler
}

// =============================================================================
// APPLICATION MODEL
// =============================================================================

// App is the root Bubble Tea model. It owns screen switching and routes
// keys to the active screen.
type App struct {
	ctx    context.Context
	cfg    *config.Config
	res    *credentials.Resolver
	disp   *dispatch.Dispatcher
	logger *zap.Logger
	theme  *styles.Theme
	md     *styles.Markdown

	state     State
	configErr error
	transport string

	toasts  *components.ToastManager
	confirm *components.ConfirmDialog
	header  *components.Header
	status  *components.StatusBar

	gate     textinput.Model
	stores   *storesScreen
	detail   *detailScreen
	chat     *chat.Model
	quitting bool

	width  int
	height int
}

// New creates the root model.
func New(ctx context.Context, deps Deps) *App {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	theme := deps.Theme
	if theme == nil {
		theme = styles.NewTheme(deps.Config.UI.Theme)
	}
	md := deps.Markdown
	if md == nil {
		md = styles.NewMarkdown(styles.MarkdownStyleFor(deps.Config.UI.Theme))
	}

	a := &App{
		ctx:       ctx,
		cfg:       deps.Config,
		res:       deps.Resolver,
		disp:      deps.Dispatcher,
		logger:    logger,
		theme:     theme,
		md:        md,
		transport: string(deps.Dispatcher.Transport().Kind()),
		toasts:    components.NewToastManager(deps.Config.ToastDuration()),
		confirm:   components.NewConfirmDialog(),
		header:    components.NewHeader(),
		status:    components.NewStatusBar(),
		gate:      newGateInput(),
		width:     80,
		height:    24,
	}
	a.header.Transport = a.transport

	scheduler := deps.Scheduler
	if scheduler == nil {
		scheduler = console.AfterFunc
	}
	list := console.NewStoreList(deps.Dispatcher,
		console.WithReconcile(console.Reconcile(deps.Config.Stores.Reconcile), deps.Config.ReloadDelay()),
		console.WithScheduler(scheduler),
		console.WithStoreNotifier(a.toasts),
		console.WithStoreLogger(logger),
	)
	a.stores = newStoresScreen(list)

	a.state = a.entryState()
	return a
}

// entryState picks the first screen from the endpoint and credential state.
func (a *App) entryState() State {
	if err := a.res.CheckEndpoint(); err != nil {
		a.configErr = err
		return StateConfigError
	}
	a.configErr = nil
	if a.res.HasCredential() {
		return StateStores
	}
	return StateGate
}

// State returns the active screen.
func (a *App) State() State {
	return a.state
}

// Toasts returns the notification manager.
func (a *App) Toasts() *components.ToastManager {
	return a.toasts
}

// Init starts the toast heartbeat and loads stores when the gate is skipped.
func (a *App) Init() tea.Cmd {
	cmds := []tea.Cmd{components.ToastTickCmd()}
	switch a.state {
	case StateStores:
		cmds = append(cmds, a.loadStores())
	case StateGate:
		cmds = append(cmds, textinput.Blink)
	}
	return tea.Batch(cmds...)
}

// =============================================================================
// UPDATE
// =============================================================================

// Update handles messages and updates the model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.resize(msg.Width, msg.Height)
		return a, nil

	case components.ToastTickMsg:
		// The tick doubles as the redraw heartbeat for controller changes
		// made off the UI goroutine.
		a.toasts.TickToasts()
		return a, components.ToastTickCmd()

	case ConfigReloadedMsg:
		return a.handleConfigReload(msg)

	case components.ConfirmResultMsg:
		return a, a.handleConfirm(msg)

	case opDoneMsg:
		return a.handleOpDone(msg)

	case chat.BackMsg:
		return a.leaveChat()

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			a.quitting = true
			return a, tea.Quit
		}
		if a.confirm.IsVisible() {
			cmd, _ := a.confirm.Update(msg)
			return a, cmd
		}
		return a.handleKey(msg)
	}

	return a.forward(msg)
}

// forward routes non-key messages (blink, spinner, picker reads) to the
// active screen.
func (a *App) forward(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch a.state {
	case StateGate:
		a.gate, cmd = a.gate.Update(msg)
	case StateStores:
		cmd = a.stores.update(msg)
	case StateDetail:
		if a.detail != nil {
			cmd = a.detail.update(msg)
		}
	case StateChat:
		if a.chat != nil {
			var m chat.Model
			m, cmd = a.chat.Update(msg)
			a.chat = &m
		}
	}
	return a, cmd
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch a.state {
	case StateConfigError:
		switch msg.String() {
		case "q", "esc":
			a.quitting = true
			return a, tea.Quit
		case "r":
			return a.recheck()
		}
		return a, nil
	case StateGate:
		return a.handleGateKey(msg)
	case StateStores:
		return a.handleStoresKey(msg)
	case StateDetail:
		return a.handleDetailKey(msg)
	case StateChat:
		if a.chat == nil {
			return a, nil
		}
		m, cmd := a.chat.Update(msg)
		a.chat = &m
		return a, cmd
	}
	return a, nil
}

func (a *App) resize(width, height int) {
	a.width = width
	a.height = height
	a.theme.SetSize(width, height)
	a.header.SetWidth(width)
	a.status.SetWidth(width)
	a.confirm.SetSize(width, height)
	a.gate.Width = clamp(width-20, 20, 60)
	a.stores.setSize(width, a.bodyHeight())
	if a.detail != nil {
		a.detail.setSize(width, a.bodyHeight())
	}
	if a.chat != nil {
		a.chat.SetSize(width, a.bodyHeight())
	}
}

// bodyHeight is the height left between the header and the status bar.
func (a *App) bodyHeight() int {
	return clamp(a.height-4, 5, a.height)
}

// =============================================================================
// CONFIG RELOAD
// =============================================================================

func (a *App) handleConfigReload(msg ConfigReloadedMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		a.toasts.Add("Config reload failed: "+msg.Err.Error(), components.ToastKindError)
		return a, nil
	}
	if msg.Cfg != nil {
		if msg.Cfg.Relay.Transport != a.transport {
			a.toasts.Add("Transport changes take effect after restart", components.ToastKindWarning)
		}
		a.cfg = msg.Cfg
	}
	if a.state == StateConfigError {
		return a.recheck()
	}
	if err := a.res.CheckEndpoint(); err != nil {
		a.toasts.Add(err.Error(), components.ToastKindWarning)
	}
	return a, nil
}

// recheck leaves the configuration screen once an endpoint resolves.
func (a *App) recheck() (tea.Model, tea.Cmd) {
	a.state = a.entryState()
	switch a.state {
	case StateStores:
		a.toasts.Add("Endpoint configured", components.ToastKindSuccess)
		return a, a.loadStores()
	case StateGate:
		a.toasts.Add("Endpoint configured", components.ToastKindSuccess)
		a.gate.Focus()
		return a, textinput.Blink
	}
	return a, nil
}

// =============================================================================
// ASYNC OPERATIONS
// =============================================================================

// run wraps a controller call as a command reporting opDoneMsg.
func (a *App) run(op string, fn func(ctx context.Context) error) tea.Cmd {
	ctx := a.ctx
	return func() tea.Msg {
		return opDoneMsg{op: op, err: fn(ctx)}
	}
}

func (a *App) loadStores() tea.Cmd {
	return a.run("stores.load", a.stores.list.Load)
}

func (a *App) handleOpDone(msg opDoneMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		a.logger.Debug("operation finished with error", zap.String("op", msg.op), zap.Error(msg.err))
	}
	switch msg.op {
	case "stores.load", "stores.create", "stores.delete":
		a.stores.clampCursor()
	case "docs.load", "docs.upload", "docs.delete":
		if a.detail != nil {
			a.detail.clampCursor()
		}
	}
	return a, nil
}

func (a *App) handleConfirm(msg components.ConfirmResultMsg) tea.Cmd {
	if !msg.Approved {
		return nil
	}
	kind, id, ok := strings.Cut(msg.Target, ":")
	if !ok {
		return nil
	}
	switch kind {
	case targetStore:
		return a.run("stores.delete", func(ctx context.Context) error {
			return a.stores.list.Delete(ctx, id)
		})
	case targetDocument:
		if a.detail == nil {
			return nil
		}
		docs := a.detail.list
		return a.run("docs.delete", func(ctx context.Context) error {
			return docs.Delete(ctx, id)
		})
	}
	return nil
}

const (
	targetStore    = "store"
	targetDocument = "doc"
)

// =============================================================================
// VIEW
// =============================================================================

// View renders the current state.
func (a *App) View() string {
	if a.quitting {
		return ""
	}
	if a.confirm.IsVisible() {
		return a.confirm.View()
	}

	var body string
	switch a.state {
	case StateConfigError:
		return a.viewConfigError()
	case StateGate:
		return a.viewGate()
	case StateStores:
		a.header.Breadcrumb = ""
		a.header.Title = "Stores"
		body = a.stores.view(a.theme)
		a.stores.fillStatus(a.status)
	case StateDetail:
		a.header.Breadcrumb = "Stores"
		a.header.Title = a.detail.list.Title()
		body = a.detail.view(a.theme)
		a.detail.fillStatus(a.status)
	case StateChat:
		a.header.Breadcrumb = a.detail.list.Title()
		a.header.Title = "Chat"
		body = a.chat.View()
		a.status.Status = components.StatusReady
		if a.chat.Pending() {
			a.status.Status = components.StatusBusy
		}
		a.status.Count = ""
		a.status.Policy = ""
		a.status.Shortcuts = chatShortcuts
	}
	if ep, _, err := a.res.Endpoint(); err == nil {
		a.header.Endpoint = ep
	}

	parts := []string{a.header.View(), body}
	if a.toasts.HasToasts() {
		parts = append(parts, components.RenderToastStack(a.toasts.GetToasts(), a.width))
	}
	parts = append(parts, a.status.View())
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

var chatShortcuts = []components.Shortcut{
	{Key: "enter", Desc: "send"},
	{Key: "alt+enter", Desc: "newline"},
	{Key: "esc", Desc: "back"},
}

func (a *App) viewConfigError() string {
	msg := "No endpoint configured."
	if a.configErr != nil && !errors.Is(a.configErr, credentials.ErrNoEndpoint) {
		msg = a.configErr.Error()
	}
	lines := []string{
		a.theme.ErrorStyle.Render("Configuration error"),
		"",
		msg,
		"",
		"Set one with:",
		"  storedesk endpoint set <url>",
		"  STOREDESK_ENDPOINT=<url>",
		"  relay.default_endpoint in " + configPathHint(),
		"",
		a.theme.Muted.Render("r recheck   q quit"),
	}
	banner := a.theme.Banner.Render(strings.Join(lines, "\n"))
	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, banner)
}

func configPathHint() string {
	path, err := config.ConfigPathTOML()
	if err != nil {
		return "config.toml"
	}
	return path
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		hi = lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
