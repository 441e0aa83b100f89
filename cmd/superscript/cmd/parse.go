package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/superwallkit/superscript"
)

var parseCmd = &cobra.Command{
	Use:   "parse <expression>",
	Short: "Parse an expression and print its ast_json",
	Args:  cobra.ExactArgs(1),
	RunE:  runParse,
}

func init() {
	rootCmd.AddCommand(parseCmd)
}

func runParse(cmd *cobra.Command, args []string) error {
	astJSON, err := superscript.ParseToAST(args[0])
	if err != nil {
		return exitErrorf("parse failed: %w", err)
	}
	fmt.Fprintln(os.Stdout, string(astJSON))
	return nil
}
