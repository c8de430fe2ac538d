package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Style definitions
var (
	primaryColor = lipgloss.Color("#8b5cf6")
	mutedColor   = lipgloss.Color("#94a3b8")
	errorColor   = lipgloss.Color("#ef4444")
	successColor = lipgloss.Color("#10b981")

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			MarginBottom(1)

	labelStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	selectedStyle = lipgloss.NewStyle().
			Foreground(primaryColor).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(errorColor).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(successColor).
			Bold(true)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(primaryColor).
			Padding(1, 2)

	helpStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			MarginTop(1)
)

// View renders the current wizard step.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var body string
	switch m.step {
	case StepBasics:
		body = m.viewBasics()
	case StepShadow:
		body = m.viewShadow()
	case StepSummary:
		body = m.viewSummary()
	}
	return boxStyle.Render(body) + "\n"
}

func (m Model) viewBasics() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("🧵 New Loom component"))
	b.WriteString("\n\n")
	b.WriteString(labelStyle.Render("Namespace"))
	b.WriteString("\n")
	b.WriteString(m.inputs[0].View())
	b.WriteString("\n\n")
	b.WriteString(labelStyle.Render("Component name"))
	b.WriteString("\n")
	b.WriteString(m.inputs[1].View())
	if m.errorMessage != "" {
		b.WriteString("\n\n")
		b.WriteString(errorStyle.Render("✗ " + m.errorMessage))
	}
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("tab next field • enter continue • ctrl+c quit"))
	return b.String()
}

func (m Model) viewShadow() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Style encapsulation"))
	b.WriteString("\n\n")
	for i, mode := range shadowModes {
		cursor := "  "
		line := fmt.Sprintf("%s scoping", mode)
		if i == m.selectedMode {
			cursor = selectedStyle.Render("> ")
			line = selectedStyle.Render(line)
		}
		b.WriteString(cursor + line + "\n")
	}
	b.WriteString("\n")
	check := "[ ]"
	if m.config.WithStyles {
		check = selectedStyle.Render("[x]")
	}
	b.WriteString(fmt.Sprintf("%s include a component stylesheet\n", check))
	b.WriteString(helpStyle.Render("↑/↓ select • space toggle • enter continue • esc back"))
	return b.String()
}

func (m Model) viewSummary() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Ready to scaffold"))
	b.WriteString("\n\n")
	b.WriteString(fmt.Sprintf("%s  <%s>\n", labelStyle.Render("Tag:      "), m.config.Tag()))
	b.WriteString(fmt.Sprintf("%s  %s\n", labelStyle.Render("Identity: "), m.config.Identity()))
	b.WriteString(fmt.Sprintf("%s  %s\n", labelStyle.Render("Shadow:   "), m.config.Shadow))
	styles := "no"
	if m.config.WithStyles {
		styles = "yes"
	}
	b.WriteString(fmt.Sprintf("%s  %s\n", labelStyle.Render("Styles:   "), styles))
	b.WriteString("\n")
	b.WriteString(successStyle.Render("enter") + " to create • esc back • q quit")
	return b.String()
}
