package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var Version = "0.1.0-dev"

var rootCmd = &cobra.Command{
	Use:   "superscript",
	Short: "Parse, rewrite, and evaluate Superscript expressions",
	Long: `superscript is a CLI around the superscript embeddable evaluator:
a CEL-derived expression dialect for device/computed property rules.

  superscript parse  <expr>     parse an expression to ast_json
  superscript rewrite <expr>    parse, normalize, and print the null-safety-rewritten source
  superscript eval    [--file]  evaluate an execution-context envelope (stdin or --file)`,
	Version: Version,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func exitErrorf(format string, args ...any) error {
	return fmt.Errorf(format, args...)
}
