// Command studioctl is a direct command-line driver for the
// opencode-studio task database and execution engine.
package main

import (
	"fmt"
	"os"

	"github.com/souky-byte/opencode-studio/cmd/studioctl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
