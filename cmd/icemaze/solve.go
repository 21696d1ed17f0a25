package main

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/copyleftdev/icemaze/internal/maze"
	"github.com/copyleftdev/icemaze/internal/pathfind"
)

// solveCmd represents the solve command
var solveCmd = &cobra.Command{
	Use:   "solve MAP_FILE",
	Short: "Print the shortest route through a maze",
	Long: `Solve reads a maze map and prints it, then prints it again with the
shortest route from a start tile through every checkpoint to the exit
drawn as '*'. Exits with status 2 when no route exists.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSolve(cmd.OutOrStdout(), args[0])
	},
}

func init() {
	rootCmd.AddCommand(solveCmd)
}

func runSolve(out io.Writer, path string) error {
	grid, err := maze.LoadFile(path)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, maze.Render(grid))
	fmt.Fprintln(out)

	start := time.Now()
	route, err := pathfind.Solve(grid)
	if errors.Is(err, pathfind.ErrUnsolvable) {
		return errNoSolution
	}
	if err != nil {
		return err
	}
	logger.Info("maze solved", map[string]interface{}{
		"length":  len(route),
		"elapsed": time.Since(start).String(),
	})

	fmt.Fprintln(out, maze.Render(grid.Overlay(route)))
	fmt.Fprintf(out, "\nRoute length: %d\n", len(route))
	return nil
}
