package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/copyleftdev/icemaze/internal/maze"
	"github.com/copyleftdev/icemaze/internal/optimization"
	"github.com/copyleftdev/icemaze/internal/optimization/genetic"
)

type evolveOptions struct {
	population int
	elite      int
	mutation   float64
	epochs     int
	perEpoch   int
	workers    int
	seed       int64
}

var evolveOpts evolveOptions

// evolveCmd represents the evolve command
var evolveCmd = &cobra.Command{
	Use:   "evolve MAP_FILE WALLS",
	Short: "Evolve wall placements that maximise the shortest route",
	Long: `Evolve places WALLS walls on empty tiles of the map with a genetic
algorithm. It prints the map, the best fitness after every epoch, the map
with the best walls, and that map with its shortest route drawn as '*'.
Exits with status 2 when the best placement leaves the maze unsolvable.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		walls, err := strconv.Atoi(args[1])
		if err != nil || walls < 0 {
			return fmt.Errorf("WALLS must be a non-negative integer, got %q", args[1])
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()
		return runEvolve(ctx, cmd.OutOrStdout(), args[0], walls, evolveOpts)
	},
}

func init() {
	rootCmd.AddCommand(evolveCmd)

	defaults := optimization.DefaultConfig()
	evolveCmd.Flags().IntVarP(&evolveOpts.population, "population", "p", defaults.PopulationSize, "Population size")
	evolveCmd.Flags().IntVarP(&evolveOpts.elite, "elite", "e", defaults.EliteCount, "Solutions carried unchanged into the next generation")
	evolveCmd.Flags().Float64VarP(&evolveOpts.mutation, "mutation", "m", defaults.MutationRate, "Mutation rate in [0, 1)")
	evolveCmd.Flags().IntVar(&evolveOpts.epochs, "epochs", 25, "Number of epochs")
	evolveCmd.Flags().IntVar(&evolveOpts.perEpoch, "generations", 100, "Generations per epoch")
	evolveCmd.Flags().IntVarP(&evolveOpts.workers, "workers", "w", 0, "Parallel fitness evaluations (0 = OPT_WORKER_COUNT)")
	evolveCmd.Flags().Int64Var(&evolveOpts.seed, "seed", 0, "Random seed (0 = seed from the clock)")
}

func runEvolve(ctx context.Context, out io.Writer, path string, walls int, opts evolveOptions) error {
	grid, err := maze.LoadFile(path)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, maze.Render(grid))
	fmt.Fprintln(out)

	oc := cfg.OptimizerDefaults()
	oc.PopulationSize = opts.population
	oc.EliteCount = opts.elite
	oc.MutationRate = opts.mutation
	oc.Generations = opts.epochs * opts.perEpoch
	oc.WallCount = walls
	oc.RandomSeed = opts.seed
	if opts.workers > 0 {
		oc.Workers = opts.workers
	}
	if opts.perEpoch < 1 {
		return fmt.Errorf("generations per epoch must be positive, got %d", opts.perEpoch)
	}
	oc.OnGeneration = func(stats optimization.GenerationStats) {
		if stats.Generation%opts.perEpoch == 0 {
			fmt.Fprintf(out, "Epoch %d: %d\n", stats.Generation/opts.perEpoch, stats.Best)
		}
	}

	start := time.Now()
	result, err := genetic.NewGeneticOptimizer(zapLogger(), nil).Optimize(ctx, grid, oc)
	if err != nil {
		return err
	}
	logger.Info("evolution finished", map[string]interface{}{
		"evaluations": humanize.Comma(int64(result.Evaluations)),
		"elapsed":     time.Since(start).String(),
	})

	walled, err := genetic.ApplyWalls(grid, result.Best.Walls)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, maze.Render(walled))
	fmt.Fprintln(out)

	if !result.Solvable {
		return errNoSolution
	}
	fmt.Fprintln(out, maze.Render(walled.Overlay(result.Path)))
	fmt.Fprintf(out, "\nBest fitness %d after %s generations and %s fitness evaluations\n",
		result.Best.Fitness,
		humanize.Comma(int64(result.Generations)),
		humanize.Comma(int64(result.Evaluations)),
	)
	return nil
}
