// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/storedesk/internal/console"
	"github.com/jeranaias/storedesk/internal/model"
	"github.com/jeranaias/storedesk/internal/ui/chat"
	"github.com/jeranaias/storedesk/internal/ui/components"
	"github.com/jeranaias/storedesk/internal/ui/styles"
	"github.com/jeranaias/storedesk/internal/util"
)

// =============================================================================
// STORE DETAIL SCREEN
// =============================================================================

// detailMode is what the detail screen's keys currently drive.
type detailMode int

const (
	modeBrowse detailMode = iota
	modePath
	modePicker
)

type detailScreen struct {
	list     *console.DocumentList
	maxBytes int64

	mode   detailMode
	path   textinput.Model
	picker filepicker.Model

	cursor int
	offset int
	width  int
	height int
}

func newDetailScreen(list *console.DocumentList, maxBytes int64) *detailScreen {
	path := textinput.New()
	path.Placeholder = "/path/to/file.pdf"
	path.CharLimit = 4096
	path.Width = 50

	fp := filepicker.New()
	fp.ShowHidden = false
	fp.DirAllowed = false
	fp.FileAllowed = true
	fp.AutoHeight = false
	if wd, err := os.Getwd(); err == nil {
		fp.CurrentDirectory = wd
	}

	return &detailScreen{
		list:     list,
		maxBytes: maxBytes,
		path:     path,
		picker:   fp,
		width:    80,
		height:   20,
	}
}

func (d *detailScreen) setSize(width, height int) {
	d.width = width
	d.height = height
	d.path.Width = clamp(width-10, 20, 70)
	d.picker.Height = clamp(height-6, 3, height)
}

func (d *detailScreen) update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	switch d.mode {
	case modePath:
		d.path, cmd = d.path.Update(msg)
	case modePicker:
		d.picker, cmd = d.picker.Update(msg)
	}
	return cmd
}

func (d *detailScreen) selectedDoc() (model.Document, bool) {
	docs := d.list.Documents()
	if d.cursor < 0 || d.cursor >= len(docs) {
		return model.Document{}, false
	}
	return docs[d.cursor], true
}

func (d *detailScreen) clampCursor() {
	n := len(d.list.Documents())
	if d.cursor >= n {
		d.cursor = n - 1
	}
	if d.cursor < 0 {
		d.cursor = 0
	}
}

// choose stages path for upload, reporting failures to notify.
func (d *detailScreen) choose(path string, notify *components.ToastManager) bool {
	path = cleanPath(path)
	if path == "" {
		notify.Add("Please enter a file path", components.ToastKindWarning)
		return false
	}
	file, err := model.SelectFile(path, d.maxBytes)
	if err != nil {
		notify.Add(err.Error(), components.ToastKindError)
		return false
	}
	d.list.Select(file)
	notify.Add(fmt.Sprintf("Selected %s (%s)", file.Name, util.HumanSize(file.Size)), components.ToastKindStatus)
	return true
}

// cleanPath strips the quotes terminals add to dropped paths and expands ~.
func cleanPath(path string) string {
	path = strings.TrimSpace(path)
	path = strings.Trim(path, `"'`)
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}

// =============================================================================
// KEYS
// =============================================================================

func (a *App) handleDetailKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	d := a.detail
	if d == nil {
		a.state = StateStores
		return a, nil
	}

	switch d.mode {
	case modePath:
		switch msg.String() {
		case "esc":
			d.mode = modeBrowse
			d.path.Blur()
		case "enter":
			if d.choose(d.path.Value(), a.toasts) {
				d.mode = modeBrowse
				d.path.Blur()
			}
		default:
			return a, d.update(msg)
		}
		return a, nil

	case modePicker:
		if msg.String() == "esc" || msg.String() == "q" {
			d.mode = modeBrowse
			return a, nil
		}
		cmd := d.update(msg)
		if ok, path := d.picker.DidSelectFile(msg); ok {
			d.mode = modeBrowse
			d.choose(path, a.toasts)
		}
		return a, cmd
	}

	switch msg.String() {
	case "esc", "backspace":
		a.detail = nil
		a.state = StateStores
		return a, nil
	case "q":
		a.quitting = true
		return a, tea.Quit
	case "up", "k":
		d.cursor--
		d.clampCursor()
	case "down", "j":
		d.cursor++
		d.clampCursor()
	case "r":
		return a, a.run("docs.load", d.list.Load)
	case "p", "/":
		d.mode = modePath
		d.path.Reset()
		d.path.Focus()
		return a, textinput.Blink
	case "f":
		d.mode = modePicker
		return a, d.picker.Init()
	case "x":
		d.list.ClearSelection()
	case "u":
		return a, a.run("docs.upload", d.list.Upload)
	case "d":
		if doc, ok := d.selectedDoc(); ok {
			a.confirm.Show("Delete document",
				fmt.Sprintf("Delete document %q? This cannot be undone.", doc.Title()),
				targetDocument+":"+doc.Name)
		}
	case "c":
		return a.openChat()
	}
	return a, nil
}

// openChat starts a fresh conversation for the open store.
func (a *App) openChat() (tea.Model, tea.Cmd) {
	session := console.NewChatSession(a.disp, a.detail.list.StoreID(),
		console.WithChatNotifier(a.toasts),
		console.WithChatLogger(a.logger),
	)
	m := chat.New(a.ctx, session, a.theme, a.md, a.detail.list.Title())
	m.SetSize(a.width, a.bodyHeight())
	a.chat = &m
	a.state = StateChat
	return a, m.Init()
}

// leaveChat discards the conversation and returns to the store detail.
func (a *App) leaveChat() (tea.Model, tea.Cmd) {
	a.chat = nil
	if a.detail == nil {
		a.state = StateStores
		return a, nil
	}
	a.state = StateDetail
	return a, nil
}

// =============================================================================
// VIEW
// =============================================================================

func (d *detailScreen) fillStatus(bar *components.StatusBar) {
	bar.Status = statusFor(d.list.Phase(), d.list.Busy())
	bar.Policy = ""
	bar.Count = countLabel(len(d.list.Documents()), "document", "documents")
	switch d.mode {
	case modePath:
		bar.Shortcuts = pathShortcuts
	case modePicker:
		bar.Shortcuts = pickerShortcuts
	default:
		bar.Shortcuts = detailShortcuts
	}
}

var detailShortcuts = []components.Shortcut{
	{Key: "p", Desc: "path"},
	{Key: "f", Desc: "browse"},
	{Key: "u", Desc: "upload"},
	{Key: "d", Desc: "delete"},
	{Key: "c", Desc: "chat"},
	{Key: "r", Desc: "refresh"},
	{Key: "esc", Desc: "back"},
}

var pathShortcuts = []components.Shortcut{
	{Key: "enter", Desc: "select"},
	{Key: "esc", Desc: "cancel"},
}

var pickerShortcuts = []components.Shortcut{
	{Key: "enter", Desc: "select"},
	{Key: "esc", Desc: "cancel"},
}

func (d *detailScreen) view(theme *styles.Theme) string {
	if d.mode == modePicker {
		return theme.InputLabel.Render("Choose a file to upload") + "\n" + d.picker.View()
	}

	var b strings.Builder

	b.WriteString(theme.InputLabel.Render("File"))
	b.WriteString("  ")
	if sel := d.list.Selected(); sel != nil {
		b.WriteString(fmt.Sprintf("%s  %s  %s", sel.Name, theme.Muted.Render(util.HumanSize(sel.Size)), theme.Muted.Render(sel.MimeType)))
		b.WriteString(theme.Muted.Render("   u upload  x clear"))
	} else {
		b.WriteString(theme.Muted.Render("none selected (p enter path, f browse)"))
	}
	b.WriteString("\n")
	if d.mode == modePath {
		b.WriteString(theme.InputContainer.Render(d.path.View()))
		b.WriteString("\n")
	}
	if d.list.Busy() {
		b.WriteString(theme.InfoStyle.Render("Uploading..."))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	docs := d.list.Documents()
	switch {
	case len(docs) == 0 && d.list.Phase() == console.PhaseLoading:
		b.WriteString(theme.Muted.Render("Loading documents..."))
		return b.String()
	case len(docs) == 0 && d.list.Phase() == console.PhaseError:
		b.WriteString(theme.ErrorStyle.Render("Could not load documents."))
		b.WriteString("\n")
		b.WriteString(theme.Muted.Render("Press r to retry."))
		return b.String()
	case len(docs) == 0:
		b.WriteString(theme.Muted.Render("No documents yet. Select a file and press u to upload."))
		return b.String()
	}

	nameW := clamp(d.width-50, 16, 60)
	cols := []column{{"NAME", nameW}, {"TYPE", 16}, {"SIZE", 10}, {"CREATED", 16}}
	b.WriteString(theme.TableHeader.Render(headerRow(cols)))
	b.WriteString("\n")

	rows := clamp(d.height-6, 1, d.height)
	if d.cursor < d.offset {
		d.offset = d.cursor
	}
	if d.cursor >= d.offset+rows {
		d.offset = d.cursor - rows + 1
	}
	end := d.offset + rows
	if end > len(docs) {
		end = len(docs)
	}
	for i := d.offset; i < end; i++ {
		doc := docs[i]
		line := row(cols, doc.Title(), orDash(doc.MimeType), sizeLabel(doc.SizeBytes), timeLabel(doc.CreatedAt()))
		if i == d.cursor {
			b.WriteString(theme.RowSelected.Render(line))
		} else {
			b.WriteString(theme.Row.Render(line))
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// timeLabel formats a record time, or "-" for records without one.
func timeLabel(t time.Time) string {
	if t.Unix() <= 0 {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}
