package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/loomkit/loom/cmd/loomc/internal/ui"
	"github.com/loomkit/loom/internal/config"
)

func newNewCommand() *cobra.Command {
	var namespace string
	var shadow string
	var noStyles bool
	var noInteractive bool
	var cwd string

	cmd := &cobra.Command{
		Use:   "new [component-name]",
		Short: "Scaffold a new component template",
		Long: `Creates a component directory under the templates directory with a
starter template and optional stylesheet stub. Runs an interactive
wizard unless a component name is given or --no-interactive is set.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cwd != "" {
				if err := os.Chdir(cwd); err != nil {
					return fmt.Errorf("failed to change directory to %s: %w", cwd, err)
				}
			}
			name := ""
			if len(args) > 0 {
				name = args[0]
			}
			return runNew(name, namespace, shadow, noStyles, noInteractive)
		},
	}

	cmd.Flags().StringVarP(&namespace, "namespace", "n", "", "Component namespace (default: loom.yaml namespace)")
	cmd.Flags().StringVar(&shadow, "shadow", "", "Style encapsulation mode: synthetic or native (default: loom.yaml shadow)")
	cmd.Flags().BoolVar(&noStyles, "no-styles", false, "Skip the stylesheet stub")
	cmd.Flags().BoolVar(&noInteractive, "no-interactive", false, "Never start the wizard; require flags")
	cmd.Flags().StringVar(&cwd, "cwd", "", "Working directory of the project (defaults to current)")

	return cmd
}

func runNew(name, namespace, shadow string, noStyles, noInteractive bool) error {
	cfg := loadConfig(".")

	isTerminal := false
	if fileInfo, _ := os.Stdout.Stat(); (fileInfo.Mode() & os.ModeCharDevice) != 0 {
		isTerminal = true
	}

	var component ui.ComponentConfig
	if name == "" && !noInteractive {
		if !isTerminal {
			return fmt.Errorf("not running in a terminal; pass a component name")
		}
		var err error
		component, err = ui.RunNewTUI(cfg.Namespace)
		if err != nil {
			return err
		}
	} else {
		if name == "" {
			return fmt.Errorf("a component name is required with --no-interactive")
		}
		component = ui.ComponentConfig{
			Namespace:  namespace,
			Name:       name,
			Shadow:     shadow,
			WithStyles: !noStyles,
		}
		if component.Namespace == "" {
			component.Namespace = cfg.Namespace
		}
		if component.Shadow == "" {
			component.Shadow = cfg.Shadow
		}
		if err := component.Validate(); err != nil {
			return err
		}
	}

	created, err := ui.CreateComponent(component, cfg.TemplatesDir)
	if err != nil {
		return err
	}

	// A first component also seeds project configuration.
	if _, err := os.Stat("loom.yaml"); os.IsNotExist(err) {
		cfg.Namespace = component.Namespace
		cfg.Shadow = component.Shadow
		if err := config.Save(cfg, "."); err != nil {
			fmt.Fprintf(os.Stderr, "⚠️  Failed to write loom.yaml: %v\n", err)
		} else {
			created = append(created, "loom.yaml")
		}
	}

	fmt.Printf("\n✨ Component <%s> created!\n\n", component.Tag())
	for _, path := range created {
		fmt.Printf("   %s\n", path)
	}
	fmt.Printf("\n📚 Next steps:\n")
	fmt.Printf("   loomc build\n")
	fmt.Printf("   loomc dev\n")

	return nil
}
