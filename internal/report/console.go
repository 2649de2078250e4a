package report

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	failStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	mutedStyle = lipgloss.NewStyle().Faint(true)
)

// Banner renders a boxed section title for --text output
func Banner(title string) string {
	return rule + "\n" + titleStyle.Render(title) + "\n" + rule
}

// Status renders a fixed-width [TAG] column coloured by outcome
func Status(tag string) string {
	label := fmt.Sprintf("%-15s", "["+tag+"]")
	switch strings.ToUpper(tag) {
	case "OK", "UPDATED", "INFERRED", "ARCHIVED":
		return okStyle.Render(label)
	case "FAIL", "ERROR":
		return failStyle.Render(label)
	case "WARNING", "SKIPPED", "DRY-RUN":
		return warnStyle.Render(label)
	}
	return label
}

// Muted renders secondary detail text
func Muted(s string) string {
	return mutedStyle.Render(s)
}

// Divider is the 80-column separator used between table sections
func Divider() string {
	return dash
}
