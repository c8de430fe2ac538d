package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/loomkit/loom/pkg/compiler"
)

var (
	commit = "dev"
	date   = "unknown"
)

func main() {
	var rootCmd = &cobra.Command{
		Use:   "loomc",
		Short: "Loom - template compiler for the Loom component framework",
		Long: `loomc compiles Loom HTML component templates into JavaScript render
functions targeting the Loom runtime. Templates are parsed, validated
against the component's public API, analyzed for static subtrees, and
emitted as deterministic ES modules.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", compiler.Version, commit, date),
	}

	// Add commands
	rootCmd.AddCommand(newCompileCommand())
	rootCmd.AddCommand(newBuildCommand())
	rootCmd.AddCommand(newDevCommand())
	rootCmd.AddCommand(newNewCommand())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
