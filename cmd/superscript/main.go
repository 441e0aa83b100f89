// Command superscript is a small CLI around the superscript package, for
// exercising expression parsing, null-safety rewriting, and envelope
// evaluation from a shell without embedding the library in a host app.
package main

import (
	"fmt"
	"os"

	"github.com/superwallkit/superscript/cmd/superscript/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
