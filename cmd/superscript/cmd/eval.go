package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/superwallkit/superscript"
)

var (
	evalFile     string
	evalBridge   string
	evalUseAST   bool
	evalNoBridge bool
)

var evalCmd = &cobra.Command{
	Use:   "eval",
	Short: "Evaluate an execution-context envelope",
	Long: `Evaluate an execution-context envelope (spec §4.2), read from --file or
stdin, and print the resulting {"Ok": ...} or {"Err": ...} envelope.

Use --bridge to supply a static bridge table: a JSON object mapping
"device.<name>" / "computed.<name>" dotted keys to wire-encoded Value
payloads, answered verbatim for any dynamic call the expression makes.
Without --bridge, dynamic calls are resolved as absent (the bridge is nil),
which is only distinguishable from a configured-but-empty bridge once the
expression actually attempts a call.`,
	RunE: runEval,
}

func init() {
	rootCmd.AddCommand(evalCmd)
	evalCmd.Flags().StringVarP(&evalFile, "file", "f", "", "read the envelope from this file instead of stdin")
	evalCmd.Flags().StringVar(&evalBridge, "bridge", "", "path to a JSON file of dotted name -> wire Value for a static bridge")
	evalCmd.Flags().BoolVar(&evalUseAST, "ast", false, "the envelope carries ast_json rather than expression text")
	evalCmd.Flags().BoolVar(&evalNoBridge, "no-bridge", false, "force a nil bridge even if --bridge is also given")
}

func runEval(cmd *cobra.Command, args []string) error {
	var input []byte
	var err error
	if evalFile != "" {
		input, err = os.ReadFile(evalFile)
	} else {
		input, err = io.ReadAll(os.Stdin)
	}
	if err != nil {
		return exitErrorf("reading envelope: %w", err)
	}

	bridge, err := loadBridge()
	if err != nil {
		return err
	}

	var out []byte
	if evalUseAST {
		out = superscript.EvaluateASTWithContext(input, bridge)
	} else {
		out = superscript.EvaluateWithContext(input, bridge)
	}

	fmt.Fprintln(os.Stdout, string(out))
	return nil
}

func loadBridge() (superscript.Bridge, error) {
	if evalNoBridge || evalBridge == "" {
		return nil, nil
	}
	data, err := os.ReadFile(evalBridge)
	if err != nil {
		return nil, exitErrorf("reading bridge table: %w", err)
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, exitErrorf("parsing bridge table: %w", err)
	}
	table := make(map[string]superscript.Value, len(raw))
	for k, v := range raw {
		var val superscript.Value
		if err := json.Unmarshal(v, &val); err != nil {
			return nil, exitErrorf("parsing bridge value for %q: %w", k, err)
		}
		table[k] = val
	}
	return superscript.NewStaticBridge(table), nil
}
