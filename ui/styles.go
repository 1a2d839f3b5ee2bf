package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"blac/highlight"
)

var (
	dimColor       = lipgloss.Color("7")
	accentColor    = lipgloss.Color("12")
	successColor   = lipgloss.Color("10")
	warningColor   = lipgloss.Color("11")
	dangerColor    = lipgloss.Color("9")
	highlightColor = lipgloss.Color("13")

	UserStyle = lipgloss.NewStyle().
			Foreground(successColor).
			Bold(true)

	AssistantStyle = lipgloss.NewStyle().
			Foreground(accentColor)

	DimStyle = lipgloss.NewStyle().
			Foreground(dimColor)

	TitleStyle = lipgloss.NewStyle().
			Bold(true)

	StatusStyle = lipgloss.NewStyle().
			Foreground(dimColor)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(dangerColor).
			Bold(true)

	// Options bar: enabled toggles light up, disabled ones stay dim
	ToggleOnStyle = lipgloss.NewStyle().
			Foreground(warningColor).
			Bold(true)

	ToggleOffStyle = lipgloss.NewStyle().
			Foreground(dimColor)

	VoiceStyle = lipgloss.NewStyle().
			Foreground(highlightColor).
			Bold(true)

	CodeFrameStyle = lipgloss.NewStyle().
			Foreground(dimColor)
)

// codeStyles colours highlighter spans. Unstyled text keeps the terminal
// default.
var codeStyles = map[highlight.Style]lipgloss.Style{
	highlight.StyleKeyword:     lipgloss.NewStyle().Foreground(lipgloss.Color("5")).Bold(true),
	highlight.StyleString:      lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
	highlight.StyleComment:     lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Italic(true),
	highlight.StyleFunction:    lipgloss.NewStyle().Foreground(lipgloss.Color("4")),
	highlight.StyleNumber:      lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
	highlight.StylePunctuation: lipgloss.NewStyle().Foreground(lipgloss.Color("6")),
}

// FormatFooter formats alternating keys and descriptions.
// Usage: FormatFooter("Enter", "Send", "Esc", "Quit")
func FormatFooter(parts ...string) string {
	descStyle := lipgloss.NewStyle().Foreground(successColor).Bold(true)
	var result []string
	for i := 0; i+1 < len(parts); i += 2 {
		result = append(result, parts[i]+" "+descStyle.Render(parts[i+1]))
	}
	return strings.Join(result, "  ")
}

func toggleLabel(name string, on bool) string {
	if on {
		return ToggleOnStyle.Render("[x] " + name)
	}
	return ToggleOffStyle.Render("[ ] " + name)
}
