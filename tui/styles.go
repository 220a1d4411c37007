// Package tui renders analysis progress and results in the terminal using Charm libraries
package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Color palette
var (
	// Primary colors
	ColorPrimary   = lipgloss.AdaptiveColor{Light: "#0F766E", Dark: "#2DD4BF"} // Teal
	ColorSecondary = lipgloss.AdaptiveColor{Light: "#0EA5E9", Dark: "#38BDF8"} // Sky blue
	ColorAccent    = lipgloss.AdaptiveColor{Light: "#F59E0B", Dark: "#FBBF24"} // Amber

	// Semantic colors
	ColorSuccess = lipgloss.AdaptiveColor{Light: "#10B981", Dark: "#34D399"}
	ColorWarning = lipgloss.AdaptiveColor{Light: "#F59E0B", Dark: "#FBBF24"}
	ColorError   = lipgloss.AdaptiveColor{Light: "#EF4444", Dark: "#F87171"}
	ColorInfo    = lipgloss.AdaptiveColor{Light: "#6366F1", Dark: "#818CF8"}

	// Neutral colors
	ColorText   = lipgloss.AdaptiveColor{Light: "#1E293B", Dark: "#F1F5F9"}
	ColorSubtle = lipgloss.AdaptiveColor{Light: "#64748B", Dark: "#94A3B8"}
	ColorMuted  = lipgloss.AdaptiveColor{Light: "#94A3B8", Dark: "#64748B"}
	ColorBorder = lipgloss.AdaptiveColor{Light: "#CBD5E1", Dark: "#334155"}

	// ColorBrand is used for the header and spinner
	ColorBrand = lipgloss.AdaptiveColor{Light: "#B45309", Dark: "#F59E0B"}
)

// Bar colors per macro category
var macroColors = map[string]lipgloss.AdaptiveColor{
	"LIQUIDITY":  ColorSecondary,
	"INVESTMENT": ColorPrimary,
	"RISK":       ColorError,
	"STABLE":     ColorSuccess,
}

// Base styles
var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary).
			MarginBottom(1)

	SubtitleStyle = lipgloss.NewStyle().
			Foreground(ColorSecondary)

	BodyStyle = lipgloss.NewStyle().
			Foreground(ColorText)

	MutedStyle = lipgloss.NewStyle().
			Foreground(ColorMuted)

	SuccessStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorSuccess)

	ErrorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorError)

	WarningStyle = lipgloss.NewStyle().
			Foreground(ColorWarning)

	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder).
			Padding(1, 2).
			MarginTop(1)

	BadgeStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Background(ColorPrimary).
			Foreground(lipgloss.Color("#FFFFFF"))

	BadgeWarningStyle = lipgloss.NewStyle().
				Padding(0, 1).
				Background(ColorWarning).
				Foreground(lipgloss.Color("#000000"))
)

var headerASCII = `
    _   ___ ___ ___ _____ _    ___ _  _ ___
   /_\ / __/ __| __|_   _| |  | __| \| / __|
  / _ \\__ \__ \ _|  | | | |__| _|| .' \__ \
 /_/ \_\___/___/___| |_| |____|___|_|\_|___/
`

// Header returns the styled application header
func Header() string {
	return lipgloss.NewStyle().
		Foreground(ColorBrand).
		Bold(true).
		Render(headerASCII)
}

// SpinnerFrames contains frames for the progress spinner
var SpinnerFrames = []string{
	"[¥    ]",
	"[ ¥   ]",
	"[  $  ]",
	"[   € ]",
	"[    £]",
	"[   € ]",
	"[  $  ]",
	"[ ¥   ]",
}

// StepStatus is the visual state of a status card
type StepStatus int

const (
	StepPending StepStatus = iota
	StepActive
	StepCompleted
	StepError
)

// ProgressBar renders a fixed-width bar for fraction, clamped to [0,1]
func ProgressBar(fraction float64, width int, color lipgloss.TerminalColor) string {
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}
	filled := int(fraction*float64(width) + 0.5)

	bar := lipgloss.NewStyle().Foreground(color).Render(strings.Repeat("█", filled)) +
		lipgloss.NewStyle().Foreground(ColorBorder).Render(strings.Repeat("░", width-filled))

	percentText := lipgloss.NewStyle().
		Foreground(ColorSubtle).
		Render(fmt.Sprintf(" %5.1f%%", fraction*100))

	return bar + percentText
}

// Card renders a titled box
func Card(title, content string, width int) string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(ColorPrimary).
		MarginBottom(1)

	cardStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorBorder).
		Padding(0, 1).
		Width(width)

	return cardStyle.Render(titleStyle.Render(title) + "\n" + BodyStyle.Render(content))
}

// StatusCard renders a one-line status with an icon
func StatusCard(icon, title, subtitle string, status StepStatus, width int) string {
	var borderColor lipgloss.AdaptiveColor
	var iconStyle lipgloss.Style

	switch status {
	case StepCompleted:
		borderColor = ColorSuccess
		iconStyle = lipgloss.NewStyle().Foreground(ColorSuccess)
	case StepActive:
		borderColor = ColorPrimary
		iconStyle = lipgloss.NewStyle().Foreground(ColorPrimary)
	case StepError:
		borderColor = ColorError
		iconStyle = lipgloss.NewStyle().Foreground(ColorError)
	default:
		borderColor = ColorBorder
		iconStyle = lipgloss.NewStyle().Foreground(ColorMuted)
	}

	cardStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(borderColor).
		Padding(0, 2).
		Width(width)

	content := iconStyle.Render(icon) + " " + lipgloss.NewStyle().Bold(true).Foreground(ColorText).Render(title)
	if subtitle != "" {
		content += "\n   " + lipgloss.NewStyle().Foreground(ColorSubtle).Render(subtitle)
	}

	return cardStyle.Render(content)
}

// KeyHelp renders keyboard shortcut help, sorted by key
func KeyHelp(keys map[string]string) string {
	keyStyle := lipgloss.NewStyle().Foreground(ColorSubtle).Bold(true)
	descStyle := lipgloss.NewStyle().Foreground(ColorMuted)

	names := make([]string, 0, len(keys))
	for k := range keys {
		names = append(names, k)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, k := range names {
		parts = append(parts, keyStyle.Render(k)+descStyle.Render(" "+keys[k]))
	}

	sep := lipgloss.NewStyle().Foreground(ColorBorder).Render(" | ")
	return lipgloss.NewStyle().MarginTop(1).Render(strings.Join(parts, sep))
}
