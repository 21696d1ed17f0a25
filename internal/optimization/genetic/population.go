// Package genetic evolves wall placements that lengthen a maze's solve route.
//
// Every stochastic function takes an explicit *rand.Rand, so a fixed seed
// replays a run exactly.
package genetic

import (
	"math/rand"

	"github.com/copyleftdev/icemaze/internal/maze"
	"github.com/copyleftdev/icemaze/internal/optimization"
)

// ValidPoints returns every Empty tile of grid in row-major order. Walls
// are only ever drawn from this set.
func ValidPoints(grid *maze.Grid) []maze.Point {
	return grid.Find(maze.EmptyTile)
}

// RandomSolution draws wallCount distinct points from valid.
func RandomSolution(rng *rand.Rand, valid []maze.Point, wallCount int) optimization.Solution {
	pool := append([]maze.Point(nil), valid...)
	rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	return optimization.Solution(pool[:wallCount:wallCount])
}

// InitPopulation creates size random solutions of wallCount walls each.
func InitPopulation(rng *rand.Rand, grid *maze.Grid, size, wallCount int) (optimization.Population, error) {
	valid := ValidPoints(grid)
	if wallCount < 0 || wallCount > len(valid) {
		return nil, optimization.WrapErrorf(optimization.ErrInvalidConfig,
			"wall count %d outside [0, %d]", wallCount, len(valid)).
			WithComponent("genetic").
			WithOperation("init_population")
	}
	if size < 0 {
		return nil, optimization.WrapErrorf(optimization.ErrInvalidConfig,
			"population size %d is negative", size).
			WithComponent("genetic").
			WithOperation("init_population")
	}

	population := make(optimization.Population, size)
	for i := range population {
		population[i] = RandomSolution(rng, valid, wallCount)
	}
	return population, nil
}

func shuffle(rng *rand.Rand, s optimization.Solution) {
	rng.Shuffle(len(s), func(i, j int) { s[i], s[j] = s[j], s[i] })
}
