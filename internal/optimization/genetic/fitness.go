package genetic

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"

	"github.com/copyleftdev/icemaze/internal/maze"
	"github.com/copyleftdev/icemaze/internal/metrics"
	"github.com/copyleftdev/icemaze/internal/optimization"
	"github.com/copyleftdev/icemaze/internal/pathfind"
)

// Fitness places the solution's walls on a copy of grid and returns the
// length of the solved route, or 0 if the walls make the maze unsolvable.
// Every wall must sit on a tile that is Empty in grid.
func Fitness(grid *maze.Grid, solution optimization.Solution) (int, error) {
	walled, err := ApplyWalls(grid, solution)
	if err != nil {
		return 0, err
	}
	route, err := pathfind.Solve(walled)
	if errors.Is(err, pathfind.ErrUnsolvable) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return len(route), nil
}

// ApplyWalls returns a copy of grid with the solution's walls placed.
func ApplyWalls(grid *maze.Grid, solution optimization.Solution) (*maze.Grid, error) {
	walled, err := grid.WithWalls(solution)
	if err != nil {
		return nil, optimization.WrapErrorf(optimization.ErrInvalidWall, "%v", err).
			WithComponent("genetic").
			WithOperation("fitness")
	}
	return walled, nil
}

// Evaluator scores solutions against a fixed base grid. It is safe for
// concurrent use; each evaluation works on its own grid copy.
type Evaluator struct {
	grid    *maze.Grid
	valid   []maze.Point
	cache   *lru.Cache[string, int]
	workers int
	metrics *metrics.Metrics

	evaluations atomic.Int64
}

// EvaluatorOption configures an Evaluator.
type EvaluatorOption func(*Evaluator) error

// WithCache memoises up to size fitness values keyed by wall set.
func WithCache(size int) EvaluatorOption {
	return func(e *Evaluator) error {
		if size <= 0 {
			return nil
		}
		c, err := lru.New[string, int](size)
		if err != nil {
			return err
		}
		e.cache = c
		return nil
	}
}

// WithWorkers bounds the goroutines used by EvaluateAll.
func WithWorkers(n int) EvaluatorOption {
	return func(e *Evaluator) error {
		if n > 0 {
			e.workers = n
		}
		return nil
	}
}

// WithMetrics records solver timings and cache hits.
func WithMetrics(m *metrics.Metrics) EvaluatorOption {
	return func(e *Evaluator) error {
		e.metrics = m
		return nil
	}
}

// NewEvaluator creates an evaluator for grid.
func NewEvaluator(grid *maze.Grid, opts ...EvaluatorOption) (*Evaluator, error) {
	e := &Evaluator{
		grid:    grid,
		valid:   ValidPoints(grid),
		workers: 1,
	}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, optimization.WrapErrorf(err, "configuring evaluator").WithComponent("genetic")
		}
	}
	return e, nil
}

// Grid returns the base grid.
func (e *Evaluator) Grid() *maze.Grid { return e.grid }

// ValidPoints returns the empty tiles of the base grid.
func (e *Evaluator) ValidPoints() []maze.Point { return e.valid }

// Evaluations returns how many solver runs the evaluator has performed.
func (e *Evaluator) Evaluations() int { return int(e.evaluations.Load()) }

// Fitness scores one solution.
func (e *Evaluator) Fitness(solution optimization.Solution) (int, error) {
	var key string
	if e.cache != nil {
		key = solution.Key()
		if v, ok := e.cache.Get(key); ok {
			e.metrics.CacheHit()
			return v, nil
		}
	}

	start := time.Now()
	v, err := Fitness(e.grid, solution)
	if err != nil {
		return 0, err
	}
	e.evaluations.Add(1)
	e.metrics.ObserveEvaluation(time.Since(start))

	if e.cache != nil {
		e.cache.Add(key, v)
	}
	return v, nil
}

// EvaluateAll scores every solution, returning fitness values in
// population order. The first failing evaluation cancels the rest.
func (e *Evaluator) EvaluateAll(ctx context.Context, population optimization.Population) ([]int, error) {
	scores := make([]int, len(population))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, s := range population {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			v, err := e.Fitness(s)
			if err != nil {
				return err
			}
			scores[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return scores, nil
}
