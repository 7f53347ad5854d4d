// Sweepy - reachability and unused-export analysis for TypeScript and
// JavaScript projects.
//
// Sweepy builds the module graph of a source tree, walks it from the
// entrypoints, and reports unreachable files and exports nobody imports.
package main

import (
	"fmt"
	"os"

	"github.com/Benny93/sweepy-go/cmd"
)

func main() {
	cli := cmd.NewCLI()

	if err := cli.Execute(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
