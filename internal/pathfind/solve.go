package pathfind

import (
	"fmt"

	"github.com/copyleftdev/icemaze/internal/maze"
)

// Targets lists the tiles a solve visits in order: each checkpoint id
// ascending, then the exit.
func Targets(g *maze.Grid) []maze.Tile {
	ids := g.CheckpointIDs()
	targets := make([]maze.Tile, 0, len(ids)+1)
	for _, id := range ids {
		targets = append(targets, maze.CheckpointTile(id))
	}
	return append(targets, maze.ExitTile)
}

// Solve finds a route from a start tile through every checkpoint in
// ascending id order to the exit. Each leg starts where the previous one
// ended, and the shared point appears once. If any leg fails the error
// wraps ErrUnsolvable and no partial route is returned.
func Solve(g *maze.Grid) (maze.Route, error) {
	starts := g.Find(maze.StartTile)
	if len(starts) == 0 {
		return nil, fmt.Errorf("%w: no start tile on the grid", ErrUnsolvable)
	}

	var route maze.Route
	for i, target := range Targets(g) {
		leg, err := ShortestPath(g, starts, target)
		if err != nil {
			return nil, fmt.Errorf("leg %d: %w", i+1, err)
		}
		if len(route) > 0 {
			route = route[:len(route)-1]
		}
		route = append(route, leg...)
		starts = []maze.Point{leg[len(leg)-1]}
	}
	return route, nil
}
