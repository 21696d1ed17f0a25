package genetic

import (
	"context"
	"math"
	"math/rand"
	"sort"

	"github.com/copyleftdev/icemaze/internal/maze"
	"github.com/copyleftdev/icemaze/internal/optimization"
)

// Params controls a single generation step.
type Params struct {
	EliteCount   int
	MutationRate float64
	// PadOddRemainder adds one extra child when the non-elite slot count is
	// odd. Without it the next population is one smaller.
	PadOddRemainder bool
}

// mutationThreshold maps a rate in [0, 1) to a 32-bit cutoff. A uniform
// draw exceeds it with probability close to rate.
func mutationThreshold(rate float64) uint32 {
	return uint32((1 - rate) * math.MaxUint32)
}

// Rank evaluates population and returns it as candidates sorted by
// descending fitness. Equal fitness keeps population order.
func Rank(ctx context.Context, eval *Evaluator, population optimization.Population) ([]optimization.Candidate, error) {
	scores, err := eval.EvaluateAll(ctx, population)
	if err != nil {
		return nil, err
	}
	ranked := make([]optimization.Candidate, len(population))
	for i, s := range population {
		ranked[i] = optimization.Candidate{Walls: s, Fitness: scores[i]}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Fitness > ranked[j].Fitness })
	return ranked, nil
}

// Generation produces the next population: the top EliteCount solutions
// unchanged, then children bred from parents drawn uniformly from the whole
// ranked population. It also returns the ranked input.
func Generation(ctx context.Context, rng *rand.Rand, eval *Evaluator, population optimization.Population, params Params) (optimization.Population, []optimization.Candidate, error) {
	if err := validateGeneration(population, params); err != nil {
		return nil, nil, err
	}

	ranked, err := Rank(ctx, eval, population)
	if err != nil {
		return nil, nil, err
	}
	sorted := make(optimization.Population, len(ranked))
	for i, c := range ranked {
		sorted[i] = c.Walls
	}

	next := make(optimization.Population, 0, len(population))
	for _, elite := range sorted[:params.EliteCount] {
		next = append(next, elite.Clone())
	}

	threshold := mutationThreshold(params.MutationRate)
	valid := eval.ValidPoints()
	remainder := len(sorted) - params.EliteCount
	for i := 0; i < remainder/2; i++ {
		a := selectParent(rng, sorted)
		b := selectParent(rng, sorted)
		next = append(next,
			splice(rng, a, b, threshold, valid),
			splice(rng, b, a, threshold, valid),
		)
	}
	if remainder%2 == 1 && params.PadOddRemainder {
		a := selectParent(rng, sorted)
		b := selectParent(rng, sorted)
		next = append(next, splice(rng, a, b, threshold, valid))
	}
	return next, ranked, nil
}

func validateGeneration(population optimization.Population, params Params) error {
	fail := func(format string, args ...interface{}) error {
		return optimization.WrapErrorf(optimization.ErrInvalidConfig, format, args...).
			WithComponent("genetic").
			WithOperation("generation")
	}
	if params.EliteCount < 0 || params.EliteCount > len(population) {
		return fail("elite count %d outside [0, %d]", params.EliteCount, len(population))
	}
	if params.MutationRate < 0 || params.MutationRate >= 1 {
		return fail("mutation rate %v outside [0, 1)", params.MutationRate)
	}
	for i, s := range population {
		if len(s) != len(population[0]) {
			return fail("solution %d has %d walls, want %d", i, len(s), len(population[0]))
		}
	}
	return nil
}

// selectParent picks a solution uniformly and returns a reshuffled copy,
// which moves the crossover split across the parent's walls.
func selectParent(rng *rand.Rand, population optimization.Population) optimization.Solution {
	parent := population[rng.Intn(len(population))].Clone()
	shuffle(rng, parent)
	return parent
}

// splice joins the first half of a with the second half of b. Repeated
// points are kept. With a draw above threshold the child is shuffled and
// then loses its last wall to a random valid point for every further draw
// above threshold.
func splice(rng *rand.Rand, a, b optimization.Solution, threshold uint32, valid []maze.Point) optimization.Solution {
	half := len(a) / 2
	child := make(optimization.Solution, 0, len(b))
	child = append(child, a[:half]...)
	child = append(child, b[half:]...)

	if rng.Uint32() > threshold {
		shuffle(rng, child)
		for len(child) > 0 && rng.Uint32() > threshold {
			child[len(child)-1] = valid[rng.Intn(len(valid))]
		}
	}
	return child
}
