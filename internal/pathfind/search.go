// Package pathfind solves ice mazes with ordered checkpoints.
//
// The search is best-first on cost plus the Manhattan distance to the
// nearest target tile. Expanded points are never reopened. Forced slides
// make the heuristic inadmissible, so a returned route can be longer than
// the true optimum.
package pathfind

import (
	"errors"
	"fmt"

	"github.com/copyleftdev/icemaze/internal/maze"
)

// ErrUnsolvable is returned when no route reaches a required target.
var ErrUnsolvable = errors.New("pathfind: unsolvable")

// ShortestPath searches from any of starts to the nearest tile equal to
// target. The returned route begins at the start it was reached from.
func ShortestPath(g *maze.Grid, starts []maze.Point, target maze.Tile) (maze.Route, error) {
	goals := g.Find(target)
	if len(goals) == 0 {
		return nil, fmt.Errorf("%w: no %s tile on the grid", ErrUnsolvable, target)
	}

	heuristic := func(p maze.Point) int {
		best := p.Manhattan(goals[0])
		for _, q := range goals[1:] {
			if d := p.Manhattan(q); d < best {
				best = d
			}
		}
		return best
	}

	open := newFrontier()
	for _, s := range starts {
		if !g.InBounds(s) {
			continue
		}
		open.push(&node{point: s, h: heuristic(s)})
	}

	closed := make(map[maze.Point]bool)
	for open.Len() > 0 {
		current := open.pop()
		if closed[current.point] {
			// Stale duplicate of an already expanded point.
			continue
		}
		if g.At(current.point) == target {
			return current.route(), nil
		}
		closed[current.point] = true

		for _, d := range maze.Directions {
			next, ok := step(g, current, d)
			if !ok {
				continue
			}
			if closed[next.point] || g.At(next.point) == maze.WallTile || open.holds(next.point, next.cost) {
				continue
			}
			next.h = heuristic(next.point)
			open.push(next)
		}
	}
	return nil, fmt.Errorf("%w: %s unreachable", ErrUnsolvable, target)
}

// step moves one tile from n in direction d and keeps sliding while the
// tile underfoot is ice. A slide that leaves the grid or hits a wall
// abandons the direction.
func step(g *maze.Grid, from *node, d maze.Point) (*node, bool) {
	p := from.point.Add(d)
	if !g.InBounds(p) {
		return nil, false
	}
	n := &node{point: p, cost: from.cost + 1, parent: from}

	for g.At(n.point) == maze.IceTile {
		p = n.point.Add(d)
		if !g.InBounds(p) || g.At(p) == maze.WallTile {
			return nil, false
		}
		n = &node{point: p, cost: n.cost + 1, parent: n}
	}
	return n, true
}
