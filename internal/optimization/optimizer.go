// Package optimization defines the contract shared by wall-placement
// optimizers and their hosts.
package optimization

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/copyleftdev/icemaze/internal/maze"
)

// Optimizer defines the interface for optimization algorithms
type Optimizer interface {
	// Optimize evolves wall placements for grid
	Optimize(ctx context.Context, grid *maze.Grid, config OptimizerConfig) (*OptimizationResult, error)

	// GetBestSolution returns the best candidate found so far
	GetBestSolution() *Candidate

	// GetHistory returns per-generation statistics
	GetHistory() []GenerationStats

	// Stop gracefully stops the optimization process
	Stop()
}

// Solution is a set of extra wall placements. Crossover may repeat a
// point, which lowers the effective wall count.
type Solution []maze.Point

// Clone returns an independent copy of s.
func (s Solution) Clone() Solution {
	return append(Solution(nil), s...)
}

// Key returns an order-independent identity for the wall set.
func (s Solution) Key() string {
	sorted := s.Clone()
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Y != sorted[j].Y {
			return sorted[i].Y < sorted[j].Y
		}
		return sorted[i].X < sorted[j].X
	})
	var b strings.Builder
	for _, p := range sorted {
		fmt.Fprintf(&b, "%d,%d;", p.X, p.Y)
	}
	return b.String()
}

// Population is an ordered collection of solutions. After a generation it
// is sorted by descending fitness.
type Population []Solution

// Candidate is a solution with its evaluated fitness.
type Candidate struct {
	Walls   Solution `json:"walls"`
	Fitness int      `json:"fitness"`
}

// GenerationStats summarises the fitness of one evaluated population.
type GenerationStats struct {
	Generation  int     `json:"generation"`
	Best        int     `json:"best"`
	Worst       int     `json:"worst"`
	Mean        float64 `json:"mean"`
	StdDev      float64 `json:"stddev"`
	Size        int     `json:"size"`
	Evaluations int     `json:"evaluations"`
}

// OptimizationResult contains the result of an optimization run
type OptimizationResult struct {
	Best        *Candidate
	// Path is the solve of the grid with Best's walls applied. It is nil
	// when Solvable is false.
	Path        maze.Route
	Solvable    bool
	History     []GenerationStats
	Generations int
	Evaluations int
}
