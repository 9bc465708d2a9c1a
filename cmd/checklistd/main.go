// Command checklistd serves prioritized todo and player lists.
package main

import (
	"checklist/internal/cli"
	"fmt"
	"os"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(cli.ExitCode(err))
	}
}
