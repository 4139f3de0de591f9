// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
)

// Markdown renders assistant answers with glamour. Renderers are cached per
// wrap width; rendering falls back to the raw text on any error.
type Markdown struct {
	mu        sync.Mutex
	style     string
	renderers map[int]*glamour.TermRenderer
}

// NewMarkdown creates a renderer. style is a glamour standard style name
// ("dark", "light", "notty") or "" for auto detection.
func NewMarkdown(style string) *Markdown {
	return &Markdown{style: style, renderers: make(map[int]*glamour.TermRenderer)}
}

// MarkdownStyleFor maps a theme mode to a glamour style name.
func MarkdownStyleFor(mode string) string {
	switch mode {
	case ThemeDark:
		return "dark"
	case ThemeLight:
		return "light"
	default:
		return ""
	}
}

func (m *Markdown) renderer(width int) *glamour.TermRenderer {
	m.mu.Lock()
	defer m.mu.Unlock()

	if r, ok := m.renderers[width]; ok {
		return r
	}
	opts := []glamour.TermRendererOption{glamour.WithWordWrap(width)}
	if m.style == "" {
		opts = append(opts, glamour.WithAutoStyle())
	} else {
		opts = append(opts, glamour.WithStandardStyle(m.style))
	}
	r, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		r = nil
	}
	m.renderers[width] = r
	return r
}

// Render renders content wrapped at width.
func (m *Markdown) Render(content string, width int) string {
	if width < 20 {
		width = 20
	}
	r := m.renderer(width)
	if r == nil {
		return content
	}
	out, err := r.Render(content)
	if err != nil {
		return content
	}
	return strings.Trim(out, "\n")
}
