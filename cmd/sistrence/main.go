// Command sistrence runs queries against the links in a configuration file
// and replays query scenarios.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/sistrence/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
