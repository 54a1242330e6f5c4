// Command gir inspects typelib repositories and calls the functions they
// describe against WebAssembly libraries.
package main

import (
	"os"

	"github.com/fatih/color"
)

func main() {
	root := newRootCommand()
	if err := root.Execute(); err != nil {
		color.New(color.FgRed, color.Bold).Fprintf(root.ErrOrStderr(), "Error: %v\n", err)
		os.Exit(1)
	}
}
