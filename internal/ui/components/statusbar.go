// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/storedesk/internal/ui/styles"
)

// =============================================================================
// STATUS BAR
// =============================================================================

// Status is the request state shown in the status bar.
type Status int

const (
	StatusReady Status = iota
	StatusLoading
	StatusBusy
	StatusError
)

// String returns the display label.
func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "Loading"
	case StatusBusy:
		return "Working"
	case StatusError:
		return "Error"
	default:
		return "Ready"
	}
}

// Icon returns the ASCII indicator for the status.
func (s Status) Icon() string {
	switch s {
	case StatusLoading, StatusBusy:
		return styles.StatusIndicators.Pending
	case StatusError:
		return styles.StatusIndicators.Error
	default:
		return styles.StatusIndicators.Active
	}
}

// Shortcut is one key hint.
type Shortcut struct {
	Key  string
	Desc string
}

// StatusBar is the footer line with status, policy and key hints.
type StatusBar struct {
	Status    Status
	Policy    string
	Count     string
	Shortcuts []Shortcut
	Width     int
}

// NewStatusBar creates an empty status bar.
func NewStatusBar() *StatusBar {
	return &StatusBar{Width: 80}
}

// SetWidth updates the available width.
func (s *StatusBar) SetWidth(width int) {
	s.Width = width
}

// View renders the status bar. Narrow terminals drop the key hints.
func (s *StatusBar) View() string {
	sep := lipgloss.NewStyle().Foreground(styles.Overlay).Render(" | ")

	parts := []string{s.getStatusStyle().Render(s.Status.Icon() + " " + s.Status.String())}
	if s.Count != "" {
		parts = append(parts, lipgloss.NewStyle().Foreground(styles.TextSecondary).Render(s.Count))
	}
	if s.Policy != "" && s.Width >= 60 {
		parts = append(parts, lipgloss.NewStyle().Foreground(styles.TextMuted).Render("reconcile: "+s.Policy))
	}
	left := strings.Join(parts, sep)

	right := ""
	if s.Width >= 60 {
		right = s.renderShortcuts()
	}

	gap := s.Width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		gap = 1
	}

	return lipgloss.NewStyle().
		Background(styles.SurfaceDim).
		Foreground(styles.TextSecondary).
		Padding(0, 1).
		Width(s.Width).
		Render(left + strings.Repeat(" ", gap) + right)
}

// renderShortcuts renders keyboard shortcut hints.
func (s *StatusBar) renderShortcuts() string {
	keyStyle := lipgloss.NewStyle().Foreground(styles.Cyan).Bold(true)
	descStyle := lipgloss.NewStyle().Foreground(styles.TextMuted)

	hints := make([]string, 0, len(s.Shortcuts))
	for _, sc := range s.Shortcuts {
		hints = append(hints, keyStyle.Render(sc.Key)+" "+descStyle.Render(sc.Desc))
	}
	return strings.Join(hints, "  ")
}

// getStatusStyle returns the style for the current status.
func (s *StatusBar) getStatusStyle() lipgloss.Style {
	switch s.Status {
	case StatusLoading, StatusBusy:
		return lipgloss.NewStyle().Foreground(styles.Amber).Bold(true)
	case StatusError:
		return lipgloss.NewStyle().Foreground(styles.ErrorHighContrast).Bold(true)
	default:
		return lipgloss.NewStyle().Foreground(styles.Emerald)
	}
}
