// Package cli provides terminal styling for voicegate client commands.
package cli

import "github.com/charmbracelet/lipgloss"

// Theme defines the color scheme for terminal output.
type Theme struct {
	Primary lipgloss.Color // accent and success color
	Warn    lipgloss.Color // retryable conditions
	Fail    lipgloss.Color // security rejections
	Dim     lipgloss.Color // secondary text
}

// DefaultTheme is the default bright green theme.
var DefaultTheme = Theme{
	Primary: lipgloss.Color("#00ff9f"),
	Warn:    lipgloss.Color("#f0c674"),
	Fail:    lipgloss.Color("#ff5f5f"),
	Dim:     lipgloss.Color("#6e7681"),
}

// Styles holds all styles derived from a theme.
type Styles struct {
	Title  lipgloss.Style
	Prompt lipgloss.Style
	OK     lipgloss.Style
	Warn   lipgloss.Style
	Fail   lipgloss.Style
	Dim    lipgloss.Style
}

// NewStyles creates styles from a theme.
func NewStyles(t Theme) Styles {
	return Styles{
		Title:  lipgloss.NewStyle().Bold(true).Foreground(t.Primary),
		Prompt: lipgloss.NewStyle().Bold(true),
		OK:     lipgloss.NewStyle().Foreground(t.Primary),
		Warn:   lipgloss.NewStyle().Foreground(t.Warn),
		Fail:   lipgloss.NewStyle().Bold(true).Foreground(t.Fail),
		Dim:    lipgloss.NewStyle().Foreground(t.Dim),
	}
}
