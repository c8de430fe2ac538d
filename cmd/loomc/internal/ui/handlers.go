package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// Update routes messages to the current step.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, DefaultKeyMap.Quit) {
			m.quitting = true
			return m, tea.Quit
		}

		switch m.step {
		case StepBasics:
			return m.updateBasics(msg)
		case StepShadow:
			return m.updateShadow(msg)
		case StepSummary:
			return m.updateSummary(msg)
		}
	}

	// Out-of-band messages (blink ticks) still reach the focused input.
	if m.step == StepBasics {
		var cmd tea.Cmd
		m.inputs[m.current], cmd = m.inputs[m.current].Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) updateBasics(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, DefaultKeyMap.Tab), key.Matches(msg, DefaultKeyMap.Down):
		m.focusInput((m.current + 1) % len(m.inputs))
		return m, nil

	case key.Matches(msg, DefaultKeyMap.Up):
		m.focusInput((m.current + len(m.inputs) - 1) % len(m.inputs))
		return m, nil

	case key.Matches(msg, DefaultKeyMap.Enter):
		if m.current < len(m.inputs)-1 {
			m.focusInput(m.current + 1)
			return m, nil
		}
		m.config.Namespace = strings.TrimSpace(m.inputs[0].Value())
		m.config.Name = strings.TrimSpace(m.inputs[1].Value())
		if err := m.config.Validate(); err != nil {
			m.errorMessage = err.Error()
			return m, nil
		}
		m.errorMessage = ""
		m.step = StepShadow
		return m, nil
	}

	var cmd tea.Cmd
	m.inputs[m.current], cmd = m.inputs[m.current].Update(msg)
	return m, cmd
}

func (m *Model) focusInput(i int) {
	m.inputs[m.current].Blur()
	m.current = i
	m.inputs[m.current].Focus()
}

func (m Model) updateShadow(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, DefaultKeyMap.Up):
		m.selectedMode = (m.selectedMode + len(shadowModes) - 1) % len(shadowModes)

	case key.Matches(msg, DefaultKeyMap.Down):
		m.selectedMode = (m.selectedMode + 1) % len(shadowModes)

	case key.Matches(msg, DefaultKeyMap.Space):
		m.config.WithStyles = !m.config.WithStyles

	case key.Matches(msg, DefaultKeyMap.Back):
		m.step = StepBasics

	case key.Matches(msg, DefaultKeyMap.Enter):
		m.config.Shadow = shadowModes[m.selectedMode]
		m.step = StepSummary
	}
	return m, nil
}

func (m Model) updateSummary(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, DefaultKeyMap.Back):
		m.step = StepShadow
		return m, nil

	case key.Matches(msg, DefaultKeyMap.Enter):
		m.confirmed = true
		return m, tea.Quit
	}

	if msg.String() == "q" {
		m.quitting = true
		return m, tea.Quit
	}
	return m, nil
}
