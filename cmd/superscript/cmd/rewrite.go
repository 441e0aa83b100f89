package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/superwallkit/superscript"
)

var rewriteCmd = &cobra.Command{
	Use:   "rewrite <expression>",
	Short: "Parse, normalize, and null-safety-rewrite an expression, printing the result as CEL source",
	Args:  cobra.ExactArgs(1),
	RunE:  runRewrite,
}

func init() {
	rootCmd.AddCommand(rewriteCmd)
}

func runRewrite(cmd *cobra.Command, args []string) error {
	rewritten, err := superscript.RewriteExpression(args[0])
	if err != nil {
		return exitErrorf("rewrite failed: %w", err)
	}
	fmt.Fprintln(os.Stdout, rewritten)
	return nil
}
