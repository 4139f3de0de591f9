// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the visual styling system for the storedesk TUI.

# Color System (colors.go)

All colors use Lip Gloss AdaptiveColor for automatic light/dark terminal
detection:

  - Purple - Primary accent, selections, assistant turns
  - Cyan - Brand color, headers, user turns
  - Emerald - Success states
  - Amber - Warnings, pending requests
  - Rose - Errors and destructive prompts

Status indicators pair every color with an ASCII shape:

	theme.ErrorStyle.Render(styles.StatusIndicators.Error + " Upload failed")

# Theme System (theme.go)

	theme := styles.NewTheme("auto")
	header := theme.Header.Render("Stores")
*/
package styles
