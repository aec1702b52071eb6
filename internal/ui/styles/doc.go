// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the visual styling system for the agrichat TUI.

All colors use Lip Gloss AdaptiveColor. NewTheme resolves the session theme
preference (dark, light or auto) and tells Lip Gloss which side of each
adaptive pair to use, so toggling the theme restyles the whole program.

# Color System (colors.go)

  - Leaf - Brand color, headers, the active conversation
  - Soil - Assistant message accents
  - Sky - User message accents, links
  - Wheat - Warnings, the listening indicator
  - Rose - Errors

# Theme (theme.go)

Theme groups the Lip Gloss styles by screen area: header, sidebar, message
bubbles, input, forms, widgets and status bar.

# Usage

	theme := styles.NewTheme(session.ThemeAuto)
	fmt.Println(theme.UserBubble.Render("When should I sow wheat?"))
*/
package styles
