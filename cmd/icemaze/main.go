// Command icemaze solves ice mazes and evolves wall placements that make
// them as long as possible.
package main

import (
	"errors"
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		if errors.Is(err, errNoSolution) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}
