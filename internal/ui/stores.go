// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/storedesk/internal/console"
	"github.com/jeranaias/storedesk/internal/model"
	"github.com/jeranaias/storedesk/internal/ui/components"
	"github.com/jeranaias/storedesk/internal/ui/styles"
	"github.com/jeranaias/storedesk/internal/util"
)

// =============================================================================
// STORE LIST SCREEN
// =============================================================================

type storesScreen struct {
	list   *console.StoreList
	form   textinput.Model
	cursor int
	offset int
	width  int
	height int
}

func newStoresScreen(list *console.StoreList) *storesScreen {
	form := textinput.New()
	form.Placeholder = "Store name"
	form.CharLimit = 512
	form.Width = 40
	return &storesScreen{list: list, form: form, width: 80, height: 20}
}

func (s *storesScreen) setSize(width, height int) {
	s.width = width
	s.height = height
	s.form.Width = clamp(width-10, 20, 60)
}

func (s *storesScreen) update(msg tea.Msg) tea.Cmd {
	if !s.list.FormOpen() {
		return nil
	}
	var cmd tea.Cmd
	s.form, cmd = s.form.Update(msg)
	return cmd
}

// selected returns the store under the cursor.
func (s *storesScreen) selected() (model.Store, bool) {
	stores := s.list.Stores()
	if s.cursor < 0 || s.cursor >= len(stores) {
		return model.Store{}, false
	}
	return stores[s.cursor], true
}

func (s *storesScreen) move(delta int) {
	s.cursor += delta
	s.clampCursor()
}

func (s *storesScreen) clampCursor() {
	n := s.list.Len()
	if s.cursor >= n {
		s.cursor = n - 1
	}
	if s.cursor < 0 {
		s.cursor = 0
	}
}

// =============================================================================
// KEYS
// =============================================================================

func (a *App) handleStoresKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	s := a.stores
	if s.list.FormOpen() {
		switch msg.String() {
		case "esc":
			s.list.CloseForm()
			s.form.Blur()
			return a, nil
		case "enter":
			name := s.form.Value()
			return a, a.run("stores.create", func(ctx context.Context) error {
				return s.list.Create(ctx, name)
			})
		}
		return a, s.update(msg)
	}

	switch msg.String() {
	case "q":
		a.quitting = true
		return a, tea.Quit
	case "r":
		return a, a.loadStores()
	case "n":
		s.list.OpenForm()
		s.form.Reset()
		s.form.Focus()
		return a, textinput.Blink
	case "up", "k":
		s.move(-1)
	case "down", "j":
		s.move(1)
	case "home", "g":
		s.cursor = 0
	case "end", "G":
		s.cursor = s.list.Len() - 1
		s.clampCursor()
	case "enter":
		if store, ok := s.selected(); ok {
			return a.openStore(store)
		}
	case "d":
		if store, ok := s.selected(); ok {
			a.confirm.Show("Delete store",
				fmt.Sprintf("Delete store %q and all of its documents? This cannot be undone.", store.Title()),
				targetStore+":"+store.Name)
		}
	case "L":
		return a.logout()
	}
	return a, nil
}

// openStore switches to the detail screen for store.
func (a *App) openStore(store model.Store) (tea.Model, tea.Cmd) {
	list := console.NewDocumentList(a.disp, store.Name,
		console.WithDocumentNotifier(a.toasts),
		console.WithDocumentLogger(a.logger),
	)
	maxBytes, err := a.cfg.MaxUploadBytes()
	if err != nil {
		a.toasts.Add(err.Error(), components.ToastKindWarning)
	}
	a.detail = newDetailScreen(list, maxBytes)
	a.detail.setSize(a.width, a.bodyHeight())
	a.state = StateDetail
	return a, a.run("docs.load", list.Load)
}

// =============================================================================
// VIEW
// =============================================================================

func (s *storesScreen) fillStatus(bar *components.StatusBar) {
	bar.Status = statusFor(s.list.Phase(), s.list.Busy())
	bar.Policy = string(s.list.Policy())
	bar.Count = countLabel(s.list.Len(), "store", "stores")
	if s.list.FormOpen() {
		bar.Shortcuts = formShortcuts
		return
	}
	bar.Shortcuts = storeShortcuts
}

var storeShortcuts = []components.Shortcut{
	{Key: "enter", Desc: "open"},
	{Key: "n", Desc: "new"},
	{Key: "d", Desc: "delete"},
	{Key: "r", Desc: "refresh"},
	{Key: "L", Desc: "logout"},
	{Key: "q", Desc: "quit"},
}

var formShortcuts = []components.Shortcut{
	{Key: "enter", Desc: "create"},
	{Key: "esc", Desc: "cancel"},
}

func (s *storesScreen) view(theme *styles.Theme) string {
	var b strings.Builder

	if s.list.FormOpen() {
		b.WriteString(theme.InputLabel.Render("New store name"))
		b.WriteString("\n")
		b.WriteString(theme.InputContainer.Render(s.form.View()))
		b.WriteString("\n")
		if s.list.Busy() {
			b.WriteString(theme.Muted.Render("Creating..."))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	stores := s.list.Stores()
	switch {
	case len(stores) == 0 && s.list.Phase() == console.PhaseLoading:
		b.WriteString(theme.Muted.Render("Loading stores..."))
		return b.String()
	case len(stores) == 0 && s.list.Phase() == console.PhaseError:
		b.WriteString(theme.ErrorStyle.Render("Could not load stores."))
		b.WriteString("\n")
		b.WriteString(theme.Muted.Render("Press r to retry."))
		return b.String()
	case len(stores) == 0:
		b.WriteString(theme.Muted.Render("No stores yet. Press n to create one."))
		return b.String()
	}

	nameW := clamp(s.width-36, 16, 60)
	cols := []column{{"NAME", nameW}, {"DOCS", 6}, {"SIZE", 10}, {"CREATED", 16}}
	b.WriteString(theme.TableHeader.Render(headerRow(cols)))
	b.WriteString("\n")

	rows := s.visibleRows()
	s.scrollTo(rows)
	end := s.offset + rows
	if end > len(stores) {
		end = len(stores)
	}
	for i := s.offset; i < end; i++ {
		st := stores[i]
		line := row(cols, st.Title(), orDash(st.ActiveDocumentsCount), sizeLabel(st.SizeBytes), timeLabel(st.CreatedAt()))
		if i == s.cursor {
			b.WriteString(theme.RowSelected.Render(line))
		} else {
			b.WriteString(theme.Row.Render(line))
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func (s *storesScreen) visibleRows() int {
	rows := s.height - 2
	if s.list.FormOpen() {
		rows -= 5
	}
	return clamp(rows, 1, s.height)
}

func (s *storesScreen) scrollTo(rows int) {
	if s.cursor < s.offset {
		s.offset = s.cursor
	}
	if s.cursor >= s.offset+rows {
		s.offset = s.cursor - rows + 1
	}
}

// =============================================================================
// TABLE HELPERS
// =============================================================================

type column struct {
	title string
	width int
}

func headerRow(cols []column) string {
	cells := make([]string, len(cols))
	for i, c := range cols {
		cells[i] = util.PadWidth(c.title, c.width)
	}
	return strings.Join(cells, "  ")
}

func row(cols []column, values ...string) string {
	cells := make([]string, len(cols))
	for i, c := range cols {
		v := ""
		if i < len(values) {
			v = values[i]
		}
		cells[i] = util.PadWidth(util.TruncateWidth(v, c.width), c.width)
	}
	return strings.Join(cells, "  ")
}

func statusFor(phase console.Phase, busy bool) components.Status {
	switch {
	case busy:
		return components.StatusBusy
	case phase == console.PhaseLoading:
		return components.StatusLoading
	case phase == console.PhaseError:
		return components.StatusError
	default:
		return components.StatusReady
	}
}

func countLabel(n int, one, many string) string {
	if n == 1 {
		return "1 " + one
	}
	return fmt.Sprintf("%d %s", n, many)
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

func sizeLabel(raw string) string {
	n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return "-"
	}
	return util.HumanSize(n)
}
