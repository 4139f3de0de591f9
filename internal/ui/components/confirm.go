// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/storedesk/internal/ui/styles"
)

// =============================================================================
// CONFIRM DIALOG
// =============================================================================

// ConfirmResultMsg reports the user's answer. Target is the id passed to Show.
type ConfirmResultMsg struct {
	Target   string
	Approved bool
}

// ConfirmDialog is a modal yes/no prompt for destructive operations.
type ConfirmDialog struct {
	title  string
	prompt string
	target string

	visible  bool
	selected int // 0=Confirm, 1=Cancel
	width    int
	height   int
}

// Button options
const (
	ButtonConfirm = 0
	ButtonCancel  = 1
	ButtonCount   = 2
)

// NewConfirmDialog creates a hidden dialog.
func NewConfirmDialog() *ConfirmDialog {
	return &ConfirmDialog{selected: ButtonCancel}
}

// Show displays the dialog for target. Cancel is preselected.
func (d *ConfirmDialog) Show(title, prompt, target string) {
	d.title = title
	d.prompt = prompt
	d.target = target
	d.visible = true
	d.selected = ButtonCancel
}

// Hide hides the dialog.
func (d *ConfirmDialog) Hide() {
	d.visible = false
	d.target = ""
}

// IsVisible returns whether the dialog is visible.
func (d *ConfirmDialog) IsVisible() bool {
	return d.visible
}

// Target returns the id the dialog was shown for.
func (d *ConfirmDialog) Target() string {
	return d.target
}

// SetSize updates the dialog dimensions.
func (d *ConfirmDialog) SetSize(width, height int) {
	d.width = width
	d.height = height
}

// =============================================================================
// BUBBLE TEA METHODS
// =============================================================================

// Update handles key events. The bool reports whether the key was consumed.
func (d *ConfirmDialog) Update(msg tea.Msg) (tea.Cmd, bool) {
	if !d.visible {
		return nil, false
	}

	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return nil, false
	}

	switch keyMsg.String() {
	case "left", "h", "shift+tab":
		d.selected = (d.selected - 1 + ButtonCount) % ButtonCount
	case "right", "l", "tab":
		d.selected = (d.selected + 1) % ButtonCount
	case "enter", " ":
		return d.answer(d.selected == ButtonConfirm), true
	case "y", "Y":
		return d.answer(true), true
	case "n", "N", "esc":
		return d.answer(false), true
	}
	// Modal: swallow every other key.
	return nil, true
}

func (d *ConfirmDialog) answer(approved bool) tea.Cmd {
	target := d.target
	d.Hide()
	return func() tea.Msg {
		return ConfirmResultMsg{Target: target, Approved: approved}
	}
}

// =============================================================================
// VIEW RENDERING
// =============================================================================

// View renders the dialog centered in the terminal.
func (d *ConfirmDialog) View() string {
	if !d.visible {
		return ""
	}

	boxWidth := 60
	if d.width > 0 && d.width < 80 {
		boxWidth = d.width - 10
	}
	if boxWidth < 40 {
		boxWidth = 40
	}

	var content strings.Builder

	titleStyle := lipgloss.NewStyle().
		Foreground(styles.Rose).
		Bold(true)
	content.WriteString(titleStyle.Render(d.title))
	content.WriteString("\n\n")

	promptStyle := lipgloss.NewStyle().
		Foreground(styles.TextPrimary).
		Width(boxWidth - 6)
	content.WriteString(promptStyle.Render(d.prompt))
	content.WriteString("\n\n")

	content.WriteString(d.renderButtons())

	hintStyle := lipgloss.NewStyle().
		Foreground(styles.TextMuted).
		Italic(true)
	content.WriteString("\n\n")
	content.WriteString(hintStyle.Render("y=Delete  n/Esc=Cancel  Tab=Navigate"))

	box := lipgloss.NewStyle().
		BorderStyle(lipgloss.DoubleBorder()).
		BorderForeground(styles.Rose).
		Padding(1, 2).
		Width(boxWidth).
		Render(content.String())

	if d.width > 0 && d.height > 0 {
		return lipgloss.Place(d.width, d.height, lipgloss.Center, lipgloss.Center, box)
	}
	return box
}

// renderButtons renders the button row.
func (d *ConfirmDialog) renderButtons() string {
	buttonStyle := lipgloss.NewStyle().
		Foreground(styles.TextPrimary).
		Background(styles.Overlay).
		Padding(0, 2).
		MarginRight(1)

	activeStyle := lipgloss.NewStyle().
		Foreground(styles.TextInverse).
		Background(styles.Purple).
		Bold(true).
		Padding(0, 2).
		MarginRight(1)

	var buttons []string
	if d.selected == ButtonConfirm {
		buttons = append(buttons, activeStyle.Background(styles.Rose).Render("Delete"))
	} else {
		buttons = append(buttons, buttonStyle.Render("Delete"))
	}
	if d.selected == ButtonCancel {
		buttons = append(buttons, activeStyle.Render("Cancel"))
	} else {
		buttons = append(buttons, buttonStyle.Render("Cancel"))
	}
	return lipgloss.JoinHorizontal(lipgloss.Center, buttons...)
}
