// Command dagctl maintains and queries the transitive closure of a DAG.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/dagclosure/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
