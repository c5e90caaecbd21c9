package render

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// Color palette for report rendering
var (
	// Primary colors
	PrimaryColor = lipgloss.Color("#7D56F4") // Purple - headers, borders
	SuccessColor = lipgloss.Color("#43BF6D") // Green - healthy utilization
	ErrorColor   = lipgloss.Color("#FF5555") // Red - regions near capacity
	WarningColor = lipgloss.Color("#FFA500") // Orange - warnings, high utilization
	MutedColor   = lipgloss.Color("#626262") // Gray - secondary info
	TextColor    = lipgloss.Color("#FFFFFF") // White - main content
)

// Layout constants
const (
	MinTerminalWidth = 60  // Minimum supported terminal width
	MaxContentWidth  = 100 // Maximum content width before capping
)

// Shared styles for report rendering
var (
	// TitleStyle is for the report header line
	TitleStyle = lipgloss.NewStyle().
			Foreground(TextColor).
			Bold(true)

	// SubtitleStyle is for the ELF path and architecture line
	SubtitleStyle = lipgloss.NewStyle().
			Foreground(MutedColor)

	// RegionNameStyle is for memory region names
	RegionNameStyle = lipgloss.NewStyle().
			Foreground(PrimaryColor).
			Bold(true)

	// HealthyStyle marks utilization below the warning threshold
	HealthyStyle = lipgloss.NewStyle().
			Foreground(SuccessColor)

	// NearCapacityStyle marks utilization in the warning band
	NearCapacityStyle = lipgloss.NewStyle().
				Foreground(WarningColor)

	// OverCapacityStyle marks utilization above the critical threshold
	OverCapacityStyle = lipgloss.NewStyle().
				Foreground(ErrorColor)

	// MutedStyle is for auxiliary detail
	MutedStyle = lipgloss.NewStyle().
			Foreground(MutedColor)

	// WarningStyle is for collected analysis warnings
	WarningStyle = lipgloss.NewStyle().
			Foreground(WarningColor)
)

// TerminalWidth returns the usable rendering width, capped to the content
// maximum and floored at the supported minimum.
func TerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return MaxContentWidth
	}
	if width > MaxContentWidth {
		return MaxContentWidth
	}
	if width < MinTerminalWidth {
		return MinTerminalWidth
	}
	return width
}

// UtilizationStyle picks the style for a utilization percentage.
func UtilizationStyle(percent float64) lipgloss.Style {
	switch {
	case percent >= 90:
		return OverCapacityStyle
	case percent >= 70:
		return NearCapacityStyle
	default:
		return HealthyStyle
	}
}
