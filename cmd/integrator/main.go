package main

import (
	"fmt"
	"os"

	"github.com/danjilab/integration-engine/cmd/integrator/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
