// Command osmigrate reconciles historical service orders into the target
// store. See "osmigrate --help".
package main

import (
	"fmt"
	"os"

	"github.com/roach88/osmigrate/internal/cli"
)

func main() {
	err := cli.NewRootCommand().Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	os.Exit(cli.GetExitCode(err))
}
