package genetic

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/copyleftdev/icemaze/internal/maze"
	"github.com/copyleftdev/icemaze/internal/metrics"
	"github.com/copyleftdev/icemaze/internal/optimization"
	"github.com/copyleftdev/icemaze/internal/pathfind"
)

// GeneticOptimizer implements optimization.Optimizer with elitism,
// uniform parent selection, splice crossover and point mutation.
type GeneticOptimizer struct {
	logger  *zap.Logger
	metrics *metrics.Metrics

	mu      sync.RWMutex
	best    *optimization.Candidate
	history []optimization.GenerationStats
	cancel  context.CancelFunc
}

var _ optimization.Optimizer = (*GeneticOptimizer)(nil)

// NewGeneticOptimizer creates an optimizer. Both arguments may be nil.
func NewGeneticOptimizer(logger *zap.Logger, m *metrics.Metrics) *GeneticOptimizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GeneticOptimizer{
		logger:  logger.Named("genetic"),
		metrics: m,
	}
}

// Optimize evolves config.WallCount walls for grid over config.Generations
// generations. The returned result is not an error when the best walls
// leave the maze unsolvable; check Solvable.
func (o *GeneticOptimizer) Optimize(ctx context.Context, grid *maze.Grid, config optimization.OptimizerConfig) (*optimization.OptimizationResult, error) {
	if err := config.Validate(grid); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	o.reset(cancel, config.Generations)

	rng := newRand(config.RandomSeed)
	eval, err := NewEvaluator(grid,
		WithCache(config.CacheSize),
		WithWorkers(config.Workers),
		WithMetrics(o.metrics),
	)
	if err != nil {
		return nil, err
	}

	population, err := InitPopulation(rng, grid, config.PopulationSize, config.WallCount)
	if err != nil {
		return nil, err
	}

	params := Params{
		EliteCount:      config.EliteCount,
		MutationRate:    config.MutationRate,
		PadOddRemainder: config.PadOddRemainder,
	}
	o.logger.Info("optimization started",
		zap.Int("population", config.PopulationSize),
		zap.Int("walls", config.WallCount),
		zap.Int("elite", config.EliteCount),
		zap.Float64("mutation_rate", config.MutationRate),
		zap.Int("generations", config.Generations),
		zap.Int("empty_tiles", len(eval.ValidPoints())),
	)

	for gen := 1; gen <= config.Generations; gen++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		next, ranked, err := Generation(ctx, rng, eval, population, params)
		if err != nil {
			return nil, err
		}
		if len(next) == 0 {
			return nil, optimization.NewErrorf("population died out at generation %d", gen).
				WithComponent("genetic").
				WithOperation("optimize")
		}

		stats := Summarize(gen, ranked, eval.Evaluations())
		o.record(stats, ranked[0])
		o.metrics.ObserveGeneration(stats.Best)
		o.logger.Debug("generation complete",
			zap.Int("generation", gen),
			zap.Int("best", stats.Best),
			zap.Float64("mean", stats.Mean),
			zap.Int("size", len(next)),
		)
		if config.OnGeneration != nil {
			config.OnGeneration(stats)
		}
		population = next
	}

	ranked, err := Rank(ctx, eval, population)
	if err != nil {
		return nil, err
	}
	best := ranked[0]
	o.setBest(best)

	result := &optimization.OptimizationResult{
		Best:        &optimization.Candidate{Walls: best.Walls.Clone(), Fitness: best.Fitness},
		History:     o.GetHistory(),
		Generations: config.Generations,
		Evaluations: eval.Evaluations(),
	}

	walled, err := ApplyWalls(grid, best.Walls)
	if err != nil {
		return nil, err
	}
	route, err := pathfind.Solve(walled)
	switch {
	case err == nil:
		result.Path = route
		result.Solvable = true
	case errors.Is(err, pathfind.ErrUnsolvable):
		o.logger.Warn("best wall placement leaves the maze unsolvable", zap.Int("walls", len(best.Walls)))
	default:
		return nil, err
	}

	o.logger.Info("optimization complete",
		zap.Int("best_fitness", best.Fitness),
		zap.Bool("solvable", result.Solvable),
		zap.Int("evaluations", result.Evaluations),
	)
	return result, nil
}

// GetBestSolution returns the best candidate seen so far
func (o *GeneticOptimizer) GetBestSolution() *optimization.Candidate {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.best == nil {
		return nil
	}
	return &optimization.Candidate{Walls: o.best.Walls.Clone(), Fitness: o.best.Fitness}
}

// GetHistory returns the per-generation statistics recorded so far
func (o *GeneticOptimizer) GetHistory() []optimization.GenerationStats {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return append([]optimization.GenerationStats(nil), o.history...)
}

// Stop cancels a running optimization
func (o *GeneticOptimizer) Stop() {
	o.mu.RLock()
	cancel := o.cancel
	o.mu.RUnlock()
	if cancel != nil {
		cancel()
	}
}

func (o *GeneticOptimizer) reset(cancel context.CancelFunc, generations int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.cancel = cancel
	o.best = nil
	o.history = make([]optimization.GenerationStats, 0, generations)
}

func (o *GeneticOptimizer) record(stats optimization.GenerationStats, top optimization.Candidate) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.history = append(o.history, stats)
	if o.best == nil || top.Fitness > o.best.Fitness {
		o.best = &optimization.Candidate{Walls: top.Walls.Clone(), Fitness: top.Fitness}
	}
}

func (o *GeneticOptimizer) setBest(c optimization.Candidate) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.best = &optimization.Candidate{Walls: c.Walls.Clone(), Fitness: c.Fitness}
}

// Summarize computes fitness statistics for a ranked population.
func Summarize(generation int, ranked []optimization.Candidate, evaluations int) optimization.GenerationStats {
	stats := optimization.GenerationStats{
		Generation:  generation,
		Size:        len(ranked),
		Evaluations: evaluations,
	}
	if len(ranked) == 0 {
		return stats
	}

	values := make([]float64, len(ranked))
	for i, c := range ranked {
		values[i] = float64(c.Fitness)
	}
	stats.Best = int(floats.Max(values))
	stats.Worst = int(floats.Min(values))
	if len(values) > 1 {
		stats.Mean, stats.StdDev = stat.MeanStdDev(values, nil)
	} else {
		stats.Mean = values[0]
	}
	return stats
}

// newRand seeds from the clock when seed is zero
func newRand(seed int64) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}
