// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/storedesk/internal/ui/styles"
	"github.com/jeranaias/storedesk/internal/util"
)

// =============================================================================
// HEADER COMPONENT
// =============================================================================

// Header is the title bar shown above every screen.
type Header struct {
	Title      string // Screen title, e.g. the store name
	Breadcrumb string // Parent screen, e.g. "Stores"
	Transport  string // Active transport kind
	Endpoint   string // Resolved endpoint, shown in wide layouts
	Width      int
}

// NewHeader creates a header with the brand title.
func NewHeader() *Header {
	return &Header{Title: "storedesk", Width: 80}
}

// SetWidth updates the available width.
func (h *Header) SetWidth(width int) {
	h.Width = width
}

// View renders the header as one line plus a rule.
func (h *Header) View() string {
	width := h.Width
	if width < 40 {
		width = 40
	}

	brandStyle := lipgloss.NewStyle().Bold(true).Foreground(styles.Cyan)
	accentStyle := lipgloss.NewStyle().Foreground(styles.Purple)
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(styles.TextPrimary)
	metaStyle := lipgloss.NewStyle().Foreground(styles.TextMuted)

	left := accentStyle.Render("< ") + brandStyle.Render("storedesk") + accentStyle.Render(" >")
	if h.Breadcrumb != "" {
		left += metaStyle.Render(" " + h.Breadcrumb + " /")
	}
	if h.Title != "" && h.Title != "storedesk" {
		left += " " + titleStyle.Render(h.Title)
	}

	var badges []string
	if h.Transport != "" {
		badges = append(badges, h.transportBadge())
	}
	if h.Endpoint != "" && width >= 100 {
		badges = append(badges, metaStyle.Render(util.TruncateWidth(h.Endpoint, 40)))
	}
	right := strings.Join(badges, " ")

	gap := width - 2 - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	line := left + strings.Repeat(" ", gap) + right

	return lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		BorderForeground(styles.Overlay).
		Padding(0, 1).
		Width(width).
		Render(line)
}

// transportBadge renders the transport kind with its color.
func (h *Header) transportBadge() string {
	color := styles.Cyan
	if h.Transport == "direct" {
		color = styles.Amber
	}
	return lipgloss.NewStyle().
		Foreground(color).
		Bold(true).
		Render("[" + strings.ToUpper(h.Transport) + "]")
}
