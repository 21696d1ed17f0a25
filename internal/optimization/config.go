package optimization

import (
	"github.com/copyleftdev/icemaze/internal/maze"
)

// OptimizerConfig contains configuration for the optimizer
type OptimizerConfig struct {
	// Number of individuals per generation
	PopulationSize int

	// Walls placed by every solution
	WallCount int

	// Individuals carried unchanged into the next generation
	EliteCount int

	// Probability in [0, 1) that a child mutates, and that each further
	// point replacement happens
	MutationRate float64

	// Number of generations to run
	Generations int

	// Fill the unpaired slot left when PopulationSize-EliteCount is odd.
	// When false the population shrinks by one instead.
	PadOddRemainder bool

	// Concurrent fitness evaluations; values below 1 mean one
	Workers int

	// Fitness cache entries; 0 disables caching
	CacheSize int

	// Random seed for reproducibility; 0 seeds from the clock
	RandomSeed int64

	// Called after every generation
	OnGeneration func(GenerationStats)
}

// DefaultConfig returns the settings of the reference driver.
func DefaultConfig() OptimizerConfig {
	return OptimizerConfig{
		PopulationSize:  128,
		EliteCount:      24,
		MutationRate:    0.5,
		Generations:     2500,
		PadOddRemainder: true,
		Workers:         1,
		CacheSize:       8192,
	}
}

// Validate rejects settings that would index out of range or never
// terminate on grid.
func (c OptimizerConfig) Validate(grid *maze.Grid) error {
	if c.PopulationSize < 1 {
		return configErrorf("population size must be positive, got %d", c.PopulationSize)
	}
	if c.EliteCount < 0 || c.EliteCount > c.PopulationSize {
		return configErrorf("elite count %d outside [0, %d]", c.EliteCount, c.PopulationSize)
	}
	if c.MutationRate < 0 || c.MutationRate >= 1 {
		return configErrorf("mutation rate %v outside [0, 1)", c.MutationRate)
	}
	if c.Generations < 0 {
		return configErrorf("generations must not be negative, got %d", c.Generations)
	}
	if c.CacheSize < 0 {
		return configErrorf("cache size must not be negative, got %d", c.CacheSize)
	}
	if c.WallCount < 0 {
		return configErrorf("wall count must not be negative, got %d", c.WallCount)
	}
	if grid == nil {
		return configErrorf("grid is required")
	}
	if empty := len(grid.Find(maze.EmptyTile)); c.WallCount > empty {
		return configErrorf("wall count %d exceeds the %d empty tiles", c.WallCount, empty)
	}
	return nil
}
