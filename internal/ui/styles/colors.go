// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import "github.com/charmbracelet/lipgloss"

// =============================================================================
// ACCENT COLORS
// =============================================================================

// Leaf - Brand color, headers, selection
var Leaf = lipgloss.AdaptiveColor{Light: "#2E7D32", Dark: "#81C784"}

// LeafDeep - Darker leaf for backgrounds
var LeafDeep = lipgloss.AdaptiveColor{Light: "#1B5E20", Dark: "#1F3A22"}

// Soil - Assistant accents
var Soil = lipgloss.AdaptiveColor{Light: "#795548", Dark: "#BCAAA4"}

// Sky - User accents, links
var Sky = lipgloss.AdaptiveColor{Light: "#0277BD", Dark: "#4FC3F7"}

// Wheat - Warnings, listening indicator
var Wheat = lipgloss.AdaptiveColor{Light: "#B7791F", Dark: "#F6C453"}

// Rose - Errors
var Rose = lipgloss.AdaptiveColor{Light: "#C62828", Dark: "#EF9A9A"}

// =============================================================================
// SURFACE COLORS
// =============================================================================

var Surface = lipgloss.AdaptiveColor{Light: "#FAFDF7", Dark: "#1A1F1A"}
var SurfaceDim = lipgloss.AdaptiveColor{Light: "#EEF4EA", Dark: "#141814"}
var SurfaceBright = lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#263026"}
var Overlay = lipgloss.AdaptiveColor{Light: "#D7E3D0", Dark: "#344034"}

// =============================================================================
// TEXT COLORS
// =============================================================================

var TextPrimary = lipgloss.AdaptiveColor{Light: "#1F2A1C", Dark: "#E3EBDF"}
var TextSecondary = lipgloss.AdaptiveColor{Light: "#4E5D4A", Dark: "#B4C2AE"}
var TextMuted = lipgloss.AdaptiveColor{Light: "#8A9885", Dark: "#6F7D6A"}
var TextInverse = lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#141814"}

// =============================================================================
// MESSAGE BUBBLE COLORS
// =============================================================================

var UserBubbleFg = lipgloss.AdaptiveColor{Light: "#01579B", Dark: "#E1F5FE"}
var UserBubbleBorder = Sky
var BotBubbleFg = lipgloss.AdaptiveColor{Light: "#3E2723", Dark: "#EFEBE9"}
var BotBubbleBorder = Leaf

// =============================================================================
// ACCESSIBILITY
// =============================================================================

// StatusIndicatorSet contains text indicators shown alongside colors.
type StatusIndicatorSet struct {
	Success string
	Error   string
	Warning string
	Info    string
	Active  string
}

// StatusIndicators are ASCII-only so they survive any terminal font.
var StatusIndicators = StatusIndicatorSet{
	Success: "[OK]",
	Error:   "[X]",
	Warning: "[!]",
	Info:    "[i]",
	Active:  "[*]",
}

// RenderSuccess renders a success message with its indicator.
func RenderSuccess(message string) string {
	return lipgloss.NewStyle().Foreground(Leaf).Bold(true).Render(StatusIndicators.Success + " " + message)
}

// RenderError renders an error message with its indicator.
func RenderError(message string) string {
	return lipgloss.NewStyle().Foreground(Rose).Bold(true).Render(StatusIndicators.Error + " " + message)
}

// RenderWarning renders a warning message with its indicator.
func RenderWarning(message string) string {
	return lipgloss.NewStyle().Foreground(Wheat).Bold(true).Render(StatusIndicators.Warning + " " + message)
}

// RenderInfo renders an info message with its indicator.
func RenderInfo(message string) string {
	return lipgloss.NewStyle().Foreground(Sky).Render(StatusIndicators.Info + " " + message)
}

// RenderStatus picks RenderSuccess or RenderError.
func RenderStatus(success bool, message string) string {
	if success {
		return RenderSuccess(message)
	}
	return RenderError(message)
}
