// Command bpstate inspects and edits the Blue Prince Archipelago mod's
// persisted state.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/BatmenzDW/BluePrinceArchipelago/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		// ExitErrors were already reported by the command.
		var exitErr *cli.ExitError
		if !errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, "Error:", err)
			os.Exit(cli.ExitCommandError)
		}
		os.Exit(cli.GetExitCode(err))
	}
}
