package ui

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"

	"github.com/BioHazard786/posebridge/internal/app"
)

// Color palette
var (
	Primary    = lipgloss.Color("#22d3ee") // Cyan accent
	Secondary  = lipgloss.Color("#7C3AED") // Violet
	Success    = lipgloss.Color("#10B981") // Emerald
	Warning    = lipgloss.Color("#F59E0B") // Amber
	Error      = lipgloss.Color("#EF4444") // Red
	Muted      = lipgloss.Color("#6B7280") // Gray
	Foreground = lipgloss.Color("#F9FAFB") // Light gray
	Panel      = lipgloss.Color("#1F2937")
)

// Text styles
var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(Primary)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(Success).
			Bold(true)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(Error).
			Bold(true)

	WarningStyle = lipgloss.NewStyle().
			Foreground(Warning)

	MutedStyle = lipgloss.NewStyle().
			Foreground(Muted)

	BoldStyle = lipgloss.NewStyle().
			Bold(true)
)

// Layout styles
var (
	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(Primary).
			Background(Panel).
			Padding(0, 2).
			MarginBottom(1)

	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Primary).
			Padding(0, 1)

	ToastStyle = lipgloss.NewStyle().
			Foreground(Foreground).
			Background(Secondary).
			Padding(0, 1)

	FooterStyle = lipgloss.NewStyle().
			Foreground(Muted).
			MarginTop(1)

	SpinnerStyle = lipgloss.NewStyle().Foreground(Primary)
)

// Pill styles by mode
var (
	pillBase = lipgloss.NewStyle().Padding(0, 1).MarginRight(1)

	pillStyles = map[app.PillMode]lipgloss.Style{
		app.PillPlain: pillBase.Foreground(Foreground).Background(Panel),
		app.PillOK:    pillBase.Foreground(lipgloss.Color("#052e16")).Background(Success),
		app.PillWarn:  pillBase.Foreground(lipgloss.Color("#451a03")).Background(Warning),
		app.PillErr:   pillBase.Foreground(Foreground).Background(Error),
	}
)

const (
	IconSuccess = "✅"
	IconError   = "❌"
	IconWarning = "⚠️"
	IconInfo    = "ℹ️"
	IconRoom    = "🚪"
	IconPeer    = "👤"
	IconPhone   = "📱"
	IconTarget  = "🎯"
	IconCube    = "🧊"
)

// PillView renders one status pill.
func PillView(p app.Pill) string {
	style, ok := pillStyles[p.Mode]
	if !ok {
		style = pillStyles[app.PillPlain]
	}
	return style.Render(p.String())
}

// PillsView renders pills on one line.
func PillsView(pills []app.Pill) string {
	parts := make([]string, 0, len(pills))
	for _, p := range pills {
		parts = append(parts, PillView(p))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func PrintError(msg string) {
	fmt.Fprintf(os.Stderr, "%s %s\n", ErrorStyle.Render(IconError), ErrorStyle.Render(msg))
}

func PrintErrorf(format string, args ...any) {
	PrintError(fmt.Sprintf(format, args...))
}

func PrintWarning(msg string) {
	fmt.Printf("%s %s\n", WarningStyle.Render(IconWarning), WarningStyle.Render(msg))
}

func PrintSuccess(msg string) {
	fmt.Printf("%s %s\n", SuccessStyle.Render(IconSuccess), msg)
}

func PrintInfo(msg string) {
	fmt.Printf("%s %s\n", IconInfo, msg)
}

func PrintInfof(format string, args ...any) {
	PrintInfo(fmt.Sprintf(format, args...))
}
