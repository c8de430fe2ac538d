package ui

import (
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
)

// RunNewTUI collects a component configuration interactively. It returns an
// error when the wizard is cancelled.
func RunNewTUI(namespace string) (ComponentConfig, error) {
	p := tea.NewProgram(NewModel(namespace))

	finalModel, err := p.Run()
	if err != nil {
		return ComponentConfig{}, fmt.Errorf("TUI error: %w", err)
	}

	m := finalModel.(Model)
	if !m.Confirmed() {
		return ComponentConfig{}, fmt.Errorf("component creation cancelled")
	}
	return m.GetConfig(), nil
}

// CreateComponent writes the component directory under templatesDir: the
// starter template and, when requested, a stylesheet stub. It returns the
// created paths.
func CreateComponent(cfg ComponentConfig, templatesDir string) ([]string, error) {
	dir := filepath.Join(templatesDir, cfg.Namespace, cfg.Name)
	if _, err := os.Stat(filepath.Join(dir, cfg.Name+".html")); err == nil {
		return nil, fmt.Errorf("component %s already exists at %s", cfg.Tag(), dir)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create component directory: %w", err)
	}

	var created []string

	htmlPath := filepath.Join(dir, cfg.Name+".html")
	if err := os.WriteFile(htmlPath, []byte(starterTemplate(cfg)), 0644); err != nil {
		return nil, fmt.Errorf("failed to write template: %w", err)
	}
	created = append(created, htmlPath)

	if cfg.WithStyles {
		cssPath := filepath.Join(dir, cfg.Name+".css")
		if err := os.WriteFile(cssPath, []byte(starterStylesheet()), 0644); err != nil {
			return nil, fmt.Errorf("failed to write stylesheet: %w", err)
		}
		created = append(created, cssPath)
	}

	return created, nil
}

func starterTemplate(cfg ComponentConfig) string {
	return fmt.Sprintf(`<div class="%s">
  <h1>Hello from &lt;%s&gt;</h1>
  <slot></slot>
</div>
`, cfg.Name, cfg.Tag())
}

func starterStylesheet() string {
	return `h1 {
  margin: 0;
  font-size: 1.25rem;
}
`
}
