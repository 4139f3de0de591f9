// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// stores_cmd.go - stores and docs commands.
//
// Both commands drive the same controllers as the TUI so the CLI gets the
// same ordering, validation and notification text.

package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jeranaias/storedesk/internal/console"
	"github.com/jeranaias/storedesk/internal/model"
	"github.com/jeranaias/storedesk/internal/util"
)

// =============================================================================
// STORES
// =============================================================================

// StoreData is the JSON shape of one store.
type StoreData struct {
	Name      string `json:"name"`
	Title     string `json:"title"`
	Documents int64  `json:"documents"`
	SizeBytes int64  `json:"size_bytes"`
	CreatedAt string `json:"created_at,omitempty"`
}

// HandleStores handles "stores list|create|delete".
func HandleStores(ctx context.Context, env *Env, args Args) error {
	confirmer := &promptConfirmer{env: env, opts: optionsFrom(args)}
	list := console.NewStoreList(env.Dispatcher,
		console.WithStoreNotifier(notifier(env, args)),
		console.WithStoreConfirmer(confirmer),
		console.WithStoreLogger(env.Logger),
	)

	switch args.Subcommand {
	case "", "list", "ls":
		if err := list.Load(ctx); err != nil {
			return err
		}
		return printStores(env, args, list.Stores())

	case "create", "new":
		name := JoinPositionalArgs(args.Parser, 1)
		if strings.TrimSpace(name) == "" {
			return ErrMissingArgument("stores create", "name", "storedesk stores create <name>")
		}
		if err := list.Create(ctx, name); err != nil {
			return err
		}
		stores := list.Stores()
		if args.JSON {
			var created interface{}
			if len(stores) > 0 {
				created = storeData(stores[0])
			}
			return NewJSONResponse("stores create", created).Print(env.Out)
		}
		if args.Quiet && len(stores) > 0 {
			env.printf("%s\n", stores[0].Name)
		}
		return nil

	case "delete", "rm":
		id := args.Parser.Positional(1)
		if id == "" {
			return ErrMissingArgument("stores delete", "store", "storedesk stores delete <store>")
		}
		// Load first so the prompt can show the display name.
		_ = list.Load(ctx)
		if err := list.Delete(ctx, id); err != nil {
			return confirmer.result(err)
		}
		if args.JSON {
			return NewJSONResponse("stores delete", map[string]string{"deleted": id}).Print(env.Out)
		}
		return nil
	}
	return &UsageError{Command: "stores", Reason: "unknown subcommand " + args.Subcommand, Hint: "storedesk stores list|create|delete"}
}

func storeData(s model.Store) StoreData {
	return StoreData{
		Name:      s.Name,
		Title:     s.Title(),
		Documents: parseCount(s.ActiveDocumentsCount),
		SizeBytes: parseCount(s.SizeBytes),
		CreatedAt: timeString(s.CreatedAt()),
	}
}

func printStores(env *Env, args Args, stores []model.Store) error {
	if args.JSON {
		data := make([]StoreData, 0, len(stores))
		for _, s := range stores {
			data = append(data, storeData(s))
		}
		return NewJSONResponse("stores list", data).Print(env.Out)
	}
	if len(stores) == 0 {
		env.printf("%s\n", DimStyle.Render("No stores yet. Create one with 'storedesk stores create <name>'."))
		return nil
	}

	widths := []int{28, 6, 10, 17}
	env.printf("%s\n", HeaderStyle.Render(tableRow(widths, "NAME", "DOCS", "SIZE", "CREATED")+"  ID"))
	for _, s := range stores {
		env.printf("%s  %s\n",
			tableRow(widths, s.Title(), dashIfEmpty(s.ActiveDocumentsCount), sizeText(s.SizeBytes), timeText(s.CreatedAt())),
			DimStyle.Render(s.Name))
	}
	env.printf("\n%s\n", DimStyle.Render(plural(len(stores), "store", "stores")))
	return nil
}

// =============================================================================
// DOCUMENTS
// =============================================================================

// DocumentData is the JSON shape of one document.
type DocumentData struct {
	Name      string `json:"name"`
	Title     string `json:"title"`
	MimeType  string `json:"mime_type,omitempty"`
	SizeBytes int64  `json:"size_bytes"`
	State     string `json:"state,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}

// HandleDocs handles "docs list|upload|delete".
func HandleDocs(ctx context.Context, env *Env, args Args) error {
	storeID := args.Parser.Positional(1)
	if storeID == "" && args.Subcommand != "" {
		return ErrMissingArgument("docs "+args.Subcommand, "store", "storedesk docs "+args.Subcommand+" <store> ...")
	}

	confirmer := &promptConfirmer{env: env, opts: optionsFrom(args)}
	list := console.NewDocumentList(env.Dispatcher, storeID,
		console.WithDocumentNotifier(notifier(env, args)),
		console.WithDocumentConfirmer(confirmer),
		console.WithDocumentLogger(env.Logger),
	)

	switch args.Subcommand {
	case "list", "ls":
		if err := list.Load(ctx); err != nil {
			return err
		}
		return printDocuments(env, args, list.Documents())

	case "upload", "add":
		path := args.Parser.Positional(2)
		if path == "" {
			return ErrMissingArgument("docs upload", "file", "storedesk docs upload <store> <file>")
		}
		maxBytes, err := env.Config.MaxUploadBytes()
		if err != nil {
			return err
		}
		file, err := model.SelectFile(path, maxBytes)
		if err != nil {
			return &UsageError{Command: "docs upload", Reason: err.Error()}
		}
		list.Select(file)
		if err := list.Upload(ctx); err != nil {
			return err
		}
		if args.JSON {
			return printDocuments(env, args, list.Documents())
		}
		return nil

	case "delete", "rm":
		docID := args.Parser.Positional(2)
		if docID == "" {
			return ErrMissingArgument("docs delete", "document", "storedesk docs delete <store> <doc>")
		}
		docID = documentName(storeID, docID)
		_ = list.Load(ctx)
		if err := list.Delete(ctx, docID); err != nil {
			return confirmer.result(err)
		}
		if args.JSON {
			return NewJSONResponse("docs delete", map[string]string{"deleted": docID}).Print(env.Out)
		}
		return nil
	}
	return &UsageError{Command: "docs", Reason: "unknown subcommand " + args.Subcommand, Hint: "storedesk docs list|upload|delete <store>"}
}

// documentName qualifies a bare document id with its store.
func documentName(storeID, docID string) string {
	if strings.Contains(docID, "/") {
		return docID
	}
	return strings.TrimRight(storeID, "/") + "/documents/" + docID
}

func printDocuments(env *Env, args Args, docs []model.Document) error {
	if args.JSON {
		data := make([]DocumentData, 0, len(docs))
		for _, d := range docs {
			data = append(data, DocumentData{
				Name:      d.Name,
				Title:     d.Title(),
				MimeType:  d.MimeType,
				SizeBytes: parseCount(d.SizeBytes),
				State:     d.State,
				CreatedAt: timeString(d.CreatedAt()),
			})
		}
		return NewJSONResponse("docs list", data).Print(env.Out)
	}
	if len(docs) == 0 {
		env.printf("%s\n", DimStyle.Render("No documents in this store."))
		return nil
	}

	widths := []int{32, 22, 10, 17}
	env.printf("%s\n", HeaderStyle.Render(tableRow(widths, "NAME", "TYPE", "SIZE", "CREATED")+"  ID"))
	for _, d := range docs {
		env.printf("%s  %s\n",
			tableRow(widths, d.Title(), dashIfEmpty(d.MimeType), sizeText(d.SizeBytes), timeText(d.CreatedAt())),
			DimStyle.Render(model.DisplaySuffix(d.Name)))
	}
	env.printf("\n%s\n", DimStyle.Render(plural(len(docs), "document", "documents")))
	return nil
}

// =============================================================================
// FORMATTING
// =============================================================================

// tableRow pads each value to its column width. Widths are terminal cells.
func tableRow(widths []int, values ...string) string {
	cells := make([]string, len(values))
	for i, v := range values {
		cells[i] = util.PadWidth(v, widths[i])
	}
	return strings.Join(cells, "  ")
}

func parseCount(raw string) int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0
	}
	return n
}

func sizeText(raw string) string {
	n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return "-"
	}
	return util.HumanSize(n)
}

func dashIfEmpty(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

func timeText(t time.Time) string {
	if t.Unix() <= 0 {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

func timeString(t time.Time) string {
	if t.Unix() <= 0 {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// plural is "1 store" or "N stores".
func plural(n int, one, many string) string {
	if n == 1 {
		return "1 " + one
	}
	return fmt.Sprintf("%d %s", n, many)
}
