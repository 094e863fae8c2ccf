package tui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

var (
	// Colors
	ColorNeonPurple = lipgloss.Color("#bd93f9") // Dracula Purple
	ColorNeonPink   = lipgloss.Color("#ff79c6") // Dracula Pink
	ColorNeonCyan   = lipgloss.Color("#8be9fd") // Dracula Cyan
	ColorLightGray  = lipgloss.Color("#f8f8f2") // Dracula Foreground
	ColorGray       = lipgloss.Color("#6272a4") // Dracula Comment
	ColorBorder     = lipgloss.Color("#44475a") // Dracula Selection

	// Item states
	ColorStatePending     = lipgloss.Color("#6272a4")
	ColorStateDownloading = lipgloss.Color("#8be9fd")
	ColorStateDone        = lipgloss.Color("#50fa7b")
	ColorStateCancelled   = lipgloss.Color("#ffb86c")
	ColorStateError       = lipgloss.Color("#ff5555")

	LogoStyle = lipgloss.NewStyle().
			Foreground(ColorNeonPink).
			Bold(true)

	// List Styles
	SelectedItemStyle = lipgloss.NewStyle().
				Foreground(ColorNeonPink).
				Bold(true)

	ItemStyle = lipgloss.NewStyle().
			Foreground(ColorLightGray)

	PhaseStyle = lipgloss.NewStyle().
			Foreground(ColorGray).
			Italic(true)

	StatusLineStyle = lipgloss.NewStyle().
			Foreground(ColorNeonCyan).
			Padding(DefaultPaddingY, DefaultPaddingX)

	FooterStyle = lipgloss.NewStyle().
			Foreground(ColorGray).
			Padding(0, 1)

	LabelStyle = lipgloss.NewStyle().
			Width(10).
			Foreground(ColorLightGray)
)

// ConfigureColors drops colors when the environment asks for it (NO_COLOR).
func ConfigureColors() {
	if termenv.EnvNoColor() {
		lipgloss.SetColorProfile(termenv.Ascii)
	}
}
