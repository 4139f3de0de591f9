// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/jeranaias/storedesk/internal/ui/components"
)

// =============================================================================
// CREDENTIAL GATE
// =============================================================================

func newGateInput() textinput.Model {
	ti := textinput.New()
	ti.Placeholder = "API key"
	ti.EchoMode = textinput.EchoPassword
	ti.EchoCharacter = '*'
	ti.CharLimit = 512
	ti.Width = 40
	ti.Focus()
	return ti
}

func (a *App) handleGateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		a.quitting = true
		return a, tea.Quit
	case "enter":
		return a.login()
	}
	var cmd tea.Cmd
	a.gate, cmd = a.gate.Update(msg)
	return a, cmd
}

// login stores the entered key and moves to the store list.
func (a *App) login() (tea.Model, tea.Cmd) {
	key := strings.TrimSpace(a.gate.Value())
	if key == "" {
		a.toasts.Add("Please enter an API key", components.ToastKindWarning)
		return a, nil
	}
	if err := a.res.SetCredential(key); err != nil {
		a.logger.Error("store credential", zap.Error(err))
		a.toasts.Add("Could not save API key: "+err.Error(), components.ToastKindError)
		return a, nil
	}
	a.gate.Reset()
	a.state = StateStores
	return a, a.loadStores()
}

// logout clears the credential and returns to the gate. The endpoint
// override is kept.
func (a *App) logout() (tea.Model, tea.Cmd) {
	if err := a.res.ClearCredential(); err != nil {
		a.logger.Error("clear credential", zap.Error(err))
		a.toasts.Add("Could not clear API key: "+err.Error(), components.ToastKindError)
		return a, nil
	}
	a.detail = nil
	a.chat = nil
	a.state = StateGate
	a.gate.Reset()
	a.gate.Focus()
	a.toasts.Add("Logged out", components.ToastKindStatus)
	return a, textinput.Blink
}

func (a *App) viewGate() string {
	title := a.theme.HeaderTitle.Render("storedesk")
	lines := []string{
		title,
		a.theme.Muted.Render("Document stores and grounded chat"),
		"",
		a.theme.InputLabel.Render("Enter your API key"),
		a.theme.InputContainer.Render(a.gate.View()),
		"",
		a.theme.Muted.Render("enter continue   esc quit"),
	}
	box := a.theme.Dialog.Render(strings.Join(lines, "\n"))

	view := lipgloss.Place(a.width, a.height-2, lipgloss.Center, lipgloss.Center, box)
	if a.toasts.HasToasts() {
		view = lipgloss.JoinVertical(lipgloss.Left, view, components.RenderToastStack(a.toasts.GetToasts(), a.width))
	}
	return view
}
