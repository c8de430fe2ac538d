package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/loomkit/loom/internal/config"
	"github.com/loomkit/loom/pkg/compiler"
	"github.com/loomkit/loom/pkg/compiler/parse"
	"github.com/loomkit/loom/pkg/diag"
)

func newCompileCommand() *cobra.Command {
	var (
		output       string
		identity     string
		props        []string
		stylesheets  []string
		nativeShadow bool
		checkOnly    bool
	)

	cmd := &cobra.Command{
		Use:   "compile <template.html>",
		Short: "Compile a single template to a JavaScript module",
		Long: `Compiles one template file and writes the generated module to stdout
or to the file given with --out. Diagnostics go to stderr with source
positions.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(args[0], output, identity, props, stylesheets, nativeShadow, checkOnly)
		},
	}

	cmd.Flags().StringVarP(&output, "out", "o", "", "Output file (default: stdout)")
	cmd.Flags().StringVar(&identity, "identity", "", "Template identity, e.g. x/card (default: derived from filename)")
	cmd.Flags().StringSliceVar(&props, "props", nil, "Public property contract; references outside it are rejected")
	cmd.Flags().StringSliceVar(&stylesheets, "stylesheet", nil, "Companion stylesheet module specifiers to attach")
	cmd.Flags().BoolVar(&nativeShadow, "native-shadow", false, "Emit for native shadow DOM (no scope-token weaving)")
	cmd.Flags().BoolVar(&checkOnly, "check", false, "Parse and validate only, write nothing")

	return cmd
}

func runCompile(path, output, identity string, props, stylesheets []string, nativeShadow, checkOnly bool) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read template: %w", err)
	}

	opts := compiler.Options{
		Identity:     identity,
		NativeShadow: nativeShadow,
		Stylesheets:  stylesheets,
	}
	if props != nil {
		opts.PublicProperties = props
	}

	res := compiler.Compile(parse.Source{Name: path, Content: string(content)}, opts)
	if len(res.Diagnostics) > 0 {
		printDiagnostics(res.Diagnostics)
		return fmt.Errorf("%s: %d error(s)", path, len(res.Diagnostics))
	}
	if res.Err != nil {
		return res.Err
	}

	if checkOnly {
		fmt.Fprintf(os.Stderr, "✅ %s compiles cleanly\n", path)
		return nil
	}

	if output == "" {
		fmt.Print(res.Program.Code)
		return nil
	}
	if dir := filepath.Dir(output); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if err := os.WriteFile(output, []byte(res.Program.Code), 0644); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

var diagKindStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#ef4444")).Bold(true)

// printDiagnostics renders user-facing compile problems to stderr, one per
// line in file:line:col: kind: message form.
func printDiagnostics(diags []diag.Diagnostic) {
	for _, d := range diags {
		fmt.Fprintf(os.Stderr, "%s: %s: %s\n", d.Loc, diagKindStyle.Render(d.Kind.String()), d.Message)
	}
}

// loadConfig loads loom.yaml from dir, warning and falling back to defaults
// when it is missing or unreadable.
func loadConfig(dir string) *config.Config {
	cfg, err := config.Load(dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "⚠️  Failed to load loom.yaml: %v (using defaults)\n", err)
		cfg = config.DefaultConfig()
	}
	return cfg
}
