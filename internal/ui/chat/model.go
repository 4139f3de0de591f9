// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/storedesk/internal/console"
	"github.com/jeranaias/storedesk/internal/model"
	"github.com/jeranaias/storedesk/internal/ui/styles"
)

// =============================================================================
// MESSAGES
// =============================================================================

// SentMsg reports that a send finished.
type SentMsg struct {
	Err error
}

// BackMsg asks the parent to leave the chat screen.
type BackMsg struct{}

// inputHeight is the composer height in lines.
const inputHeight = 3

// =============================================================================
// CHAT MODEL
// =============================================================================

// Model is the Bubble Tea model for the chat screen.
type Model struct {
	ctx     context.Context
	session *console.ChatSession
	theme   *styles.Theme
	md      *styles.Markdown
	keys    KeyMap
	title   string

	viewport viewport.Model
	input    textarea.Model
	spinner  spinner.Model

	width    int
	height   int
	pending  bool
	rendered int
}

// New creates the chat screen for session. title is the store label.
// Replies are requested under ctx.
func New(ctx context.Context, session *console.ChatSession, theme *styles.Theme, md *styles.Markdown, title string) Model {
	ta := textarea.New()
	ta.Placeholder = "Ask about the documents in this store..."
	ta.ShowLineNumbers = false
	ta.SetHeight(inputHeight)
	ta.CharLimit = 0
	// Newlines are inserted explicitly so plain enter can submit.
	ta.KeyMap.InsertNewline.SetEnabled(false)
	ta.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Line
	sp.Style = lipgloss.NewStyle().Foreground(styles.Amber)

	m := Model{
		ctx:      ctx,
		session:  session,
		theme:    theme,
		md:       md,
		keys:     DefaultKeyMap(),
		title:    title,
		viewport: viewport.New(80, 20),
		input:    ta,
		spinner:  sp,
		width:    80,
		height:   24,
		rendered: -1,
	}
	m.refresh()
	return m
}

// Init starts the cursor blink and the spinner.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.spinner.Tick)
}

// Pending reports whether a send is outstanding.
func (m Model) Pending() bool {
	return m.pending
}

// Input returns the composer text.
func (m Model) Input() string {
	return m.input.Value()
}

// SetSize sizes the screen to width x height.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.input.SetWidth(width - 4)
	vpHeight := height - inputHeight - 4
	if vpHeight < 3 {
		vpHeight = 3
	}
	m.viewport.Width = width
	m.viewport.Height = vpHeight
	m.rendered = -1
	m.refresh()
}

// Update handles messages for the chat screen.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case SentMsg:
		m.pending = false
		m.refresh()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		m.refresh()
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Back):
		return m, func() tea.Msg { return BackMsg{} }
	case key.Matches(msg, m.keys.Up):
		m.viewport.LineUp(1)
		return m, nil
	case key.Matches(msg, m.keys.Down):
		m.viewport.LineDown(1)
		return m, nil
	case key.Matches(msg, m.keys.PageUp):
		m.viewport.HalfViewUp()
		return m, nil
	case key.Matches(msg, m.keys.PageDown):
		m.viewport.HalfViewDown()
		return m, nil
	}

	switch console.KeyIntent(msg.String()) {
	case console.IntentSubmit:
		return m.submit()
	case console.IntentNewline:
		m.input.InsertString("\n")
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submit hands the composer text to the session. While a reply is pending
// the text stays in the composer.
func (m Model) submit() (Model, tea.Cmd) {
	text := m.input.Value()
	if strings.TrimSpace(text) == "" || m.pending || m.session.Busy() {
		return m, nil
	}
	m.pending = true
	m.input.Reset()
	m.session.SetDraft(text)

	ctx, session := m.ctx, m.session
	return m, func() tea.Msg {
		return SentMsg{Err: session.Submit(ctx)}
	}
}

// refresh re-renders the transcript when it changed.
func (m *Model) refresh() {
	turns := m.session.Turns()
	if len(turns) == m.rendered {
		return
	}
	m.rendered = len(turns)
	m.viewport.SetContent(m.renderTranscript(turns))
	m.viewport.GotoBottom()
}

// =============================================================================
// VIEW RENDERING
// =============================================================================

// View renders the transcript, the thinking line and the composer.
func (m Model) View() string {
	var b strings.Builder
	b.WriteString(m.viewport.View())
	b.WriteString("\n")

	if m.pending || m.session.Busy() {
		b.WriteString(m.spinner.View() + " " + m.theme.Muted.Render("Thinking..."))
	}
	b.WriteString("\n")

	b.WriteString(m.theme.InputContainer.Width(m.width - 2).Render(m.input.View()))
	return b.String()
}

// renderTranscript renders every turn, oldest first.
func (m Model) renderTranscript(turns []model.Turn) string {
	if len(turns) == 0 {
		hint := "Ask a question about the documents in " + m.title + "."
		return lipgloss.Place(m.viewport.Width, m.viewport.Height, lipgloss.Center, lipgloss.Center,
			m.theme.Muted.Render(hint))
	}

	bubbleWidth := m.width * 3 / 4
	if bubbleWidth < 30 {
		bubbleWidth = m.width - 4
	}

	blocks := make([]string, 0, len(turns))
	for _, t := range turns {
		blocks = append(blocks, m.renderTurn(t, bubbleWidth))
	}
	return strings.Join(blocks, "\n\n")
}

// renderTurn renders one turn: a speaker line then the bubble.
func (m Model) renderTurn(t model.Turn, width int) string {
	label := m.theme.Speaker.Render(t.Speaker())
	if ts := t.Time(); !ts.IsZero() {
		label += " " + m.theme.Timestamp.Render(ts.Local().Format("15:04"))
	}

	var bubble string
	switch {
	case t.IsUser:
		bubble = m.theme.UserBubble.Width(width).Render(t.Text)
	case t.Failed:
		bubble = m.theme.ErrorBubble.Width(width).Render(styles.StatusIndicators.Error + " " + t.Text)
	default:
		bubble = m.theme.AssistantBubble.Width(width).Render(m.md.Render(t.Text, width-4))
	}

	block := lipgloss.JoinVertical(lipgloss.Left, label, bubble)
	if t.IsUser {
		return lipgloss.PlaceHorizontal(m.width, lipgloss.Right, block)
	}
	return block
}
