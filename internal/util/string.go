// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"strings"

	"github.com/docker/go-units"
	"github.com/mattn/go-runewidth"
)

// UNICODE: Width-aware helpers. Store and document names are user supplied and
// frequently contain CJK or emoji, which occupy two terminal cells.

const ellipsis = "..."

// TruncateWidth truncates s so that it occupies at most maxWidth terminal
// cells, appending "..." when anything was cut and there is room for it.
func TruncateWidth(s string, maxWidth int) string {
	if maxWidth <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) <= maxWidth {
		return s
	}
	if maxWidth <= len(ellipsis) {
		return runewidth.Truncate(s, maxWidth, "")
	}
	return runewidth.Truncate(s, maxWidth, ellipsis)
}

// PadWidth right-pads s with spaces to exactly width cells. Strings that are
// already wider are truncated first.
func PadWidth(s string, width int) string {
	s = TruncateWidth(s, width)
	if gap := width - runewidth.StringWidth(s); gap > 0 {
		return s + strings.Repeat(" ", gap)
	}
	return s
}

// StringWidth returns the number of terminal cells s occupies.
func StringWidth(s string) int {
	return runewidth.StringWidth(s)
}

// HumanSize formats a byte count the way the size limits are written in
// config ("10MB", "1.5GB"). Negative values render as "-".
func HumanSize(n int64) string {
	if n < 0 {
		return "-"
	}
	return units.HumanSize(float64(n))
}
