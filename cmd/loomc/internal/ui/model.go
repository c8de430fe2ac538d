// Package ui implements the interactive component wizard behind `loomc new`.
package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/loomkit/loom/pkg/compiler/parse"
)

// Step identifies the wizard screen currently shown.
type Step int

const (
	StepBasics Step = iota
	StepShadow
	StepSummary
)

// ComponentConfig is what the wizard collects.
type ComponentConfig struct {
	Namespace  string
	Name       string
	Shadow     string
	WithStyles bool
}

// Tag returns the component's custom-element tag, e.g. x-card.
func (c ComponentConfig) Tag() string {
	return c.Namespace + "-" + c.Name
}

// Identity returns the template identity used for scope tokens, e.g. x/card.
func (c ComponentConfig) Identity() string {
	return c.Namespace + "/" + c.Name
}

// Validate checks the collected namespace and name against the
// custom-element naming rules the compiler enforces.
func (c ComponentConfig) Validate() error {
	if c.Namespace == "" || c.Name == "" {
		return fmt.Errorf("namespace and name are required")
	}
	tag := c.Tag()
	if !parse.IsCustomElement(tag) {
		return fmt.Errorf("%q is not a valid component tag: lowercase letters, digits and hyphens only", tag)
	}
	if strings.Contains(tag, "--") || strings.HasSuffix(tag, "-") {
		return fmt.Errorf("%q is not a valid component tag: empty name segment", tag)
	}
	return nil
}

// KeyMap defines the wizard's keyboard shortcuts.
type KeyMap struct {
	Up    key.Binding
	Down  key.Binding
	Enter key.Binding
	Space key.Binding
	Tab   key.Binding
	Back  key.Binding
	Quit  key.Binding
}

var DefaultKeyMap = KeyMap{
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "down"),
	),
	Enter: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "confirm"),
	),
	Space: key.NewBinding(
		key.WithKeys(" "),
		key.WithHelp("space", "toggle"),
	),
	Tab: key.NewBinding(
		key.WithKeys("tab"),
		key.WithHelp("tab", "next field"),
	),
	Back: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "back"),
	),
	// Quit stays off plain letters so typing names never exits.
	Quit: key.NewBinding(
		key.WithKeys("ctrl+c"),
		key.WithHelp("ctrl+c", "quit"),
	),
}

// shadowModes is the selection order on the shadow step.
var shadowModes = []string{"synthetic", "native"}

// Model is the wizard's state machine.
type Model struct {
	width  int
	height int

	step   Step
	config ComponentConfig

	// namespace and name inputs, focused one at a time
	inputs  []textinput.Model
	current int

	selectedMode int

	confirmed    bool
	quitting     bool
	errorMessage string
}

// NewModel builds the wizard, pre-filling the namespace from project
// configuration when the caller knows it.
func NewModel(namespace string) Model {
	nsInput := textinput.New()
	nsInput.Placeholder = "x"
	nsInput.CharLimit = 20
	nsInput.Width = 30
	nsInput.Focus()
	if namespace != "" {
		nsInput.SetValue(namespace)
	}

	nameInput := textinput.New()
	nameInput.Placeholder = "card"
	nameInput.CharLimit = 50
	nameInput.Width = 30

	return Model{
		step:   StepBasics,
		inputs: []textinput.Model{nsInput, nameInput},
		config: ComponentConfig{
			Namespace:  namespace,
			Shadow:     "synthetic",
			WithStyles: true,
		},
	}
}

// GetConfig returns the collected configuration.
func (m Model) GetConfig() ComponentConfig {
	return m.config
}

// Confirmed reports whether the user accepted the summary screen.
func (m Model) Confirmed() bool {
	return m.confirmed
}

// Init starts cursor blinking.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}
