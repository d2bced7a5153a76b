package main

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	currentStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	addedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	removedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	hunkStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	errorStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	promptStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("63")).Bold(true)
	outputStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("212"))
)

// colorDiff styles a unified diff line by line.
func colorDiff(unified string) string {
	lines := strings.Split(strings.TrimSuffix(unified, "\n"), "\n")
	for i, line := range lines {
		switch {
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
			lines[i] = headerStyle.Render(line)
		case strings.HasPrefix(line, "@@"):
			lines[i] = hunkStyle.Render(line)
		case strings.HasPrefix(line, "+"):
			lines[i] = addedStyle.Render(line)
		case strings.HasPrefix(line, "-"):
			lines[i] = removedStyle.Render(line)
		}
	}
	return strings.Join(lines, "\n") + "\n"
}
