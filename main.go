// The main package for the crypton executable.
package main

import (
	"os"

	"github.com/moltrus/Crypton/cmd"
)

// main is the entry point of the application.
// It defers all execution to the Cobra CLI library.
func main() {
	os.Exit(cmd.Execute())
}
