package pathfind

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copyleftdev/icemaze/internal/maze"
)

func mustGrid(t *testing.T, rows ...string) *maze.Grid {
	t.Helper()
	g, err := maze.ParseRows(rows)
	require.NoError(t, err)
	return g
}

// assertWellFormed checks the route invariants every solve must satisfy.
func assertWellFormed(t *testing.T, g *maze.Grid, route maze.Route) {
	t.Helper()
	require.NotEmpty(t, route)
	assert.Equal(t, maze.StartTile, g.At(route[0]), "route must begin on a start tile")
	assert.Equal(t, maze.ExitTile, g.At(route[len(route)-1]), "route must end on the exit")
	for i := 1; i < len(route); i++ {
		assert.Equal(t, 1, route[i-1].Manhattan(route[i]), "step %d: %v -> %v", i, route[i-1], route[i])
		assert.NotEqual(t, maze.WallTile, g.At(route[i]), "route crosses wall at %v", route[i])
	}
}

func TestSolveStraightIceSlide(t *testing.T) {
	g := mustGrid(t, "-__+")

	route, err := Solve(g)
	require.NoError(t, err)

	want := maze.Route{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 2, Y: 0}, {X: 3, Y: 0}}
	if diff := cmp.Diff(want, route); diff != "" {
		t.Errorf("route mismatch (-want +got):\n%s", diff)
	}
	assert.Len(t, route, 4)
}

func TestSolveSimpleDetour(t *testing.T) {
	g := mustGrid(t,
		"-  ",
		" # ",
		"  +",
	)

	route, err := Solve(g)
	require.NoError(t, err)
	assertWellFormed(t, g, route)
	assert.Len(t, route, 5)
	assert.False(t, route.Contains(maze.Point{X: 1, Y: 1}))
}

func TestSolveUnsolvable(t *testing.T) {
	tests := []struct {
		name string
		rows []string
	}{
		{name: "wall between start and exit", rows: []string{"-#+"}},
		{name: "slide into wall", rows: []string{"-_#+"}},
		{name: "slide off the grid", rows: []string{"+# ", "#  ", "-__"}},
		{name: "no exit", rows: []string{"-  "}},
		{name: "no start", rows: []string{"  +"}},
		{name: "unreachable checkpoint", rows: []string{"- +#A"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			route, err := Solve(mustGrid(t, tt.rows...))
			assert.Nil(t, route)
			assert.True(t, errors.Is(err, ErrUnsolvable), "got %v", err)
		})
	}
}

func TestSolveVisitsCheckpointsInOrder(t *testing.T) {
	g := mustGrid(t, "B-A+")

	route, err := Solve(g)
	require.NoError(t, err)
	assertWellFormed(t, g, route)

	want := maze.Route{
		{X: 1, Y: 0}, {X: 2, Y: 0}, // start -> A
		{X: 1, Y: 0}, {X: 0, Y: 0}, // A -> B
		{X: 1, Y: 0}, {X: 2, Y: 0}, {X: 3, Y: 0}, // B -> exit
	}
	if diff := cmp.Diff(want, route); diff != "" {
		t.Errorf("route mismatch (-want +got):\n%s", diff)
	}

	// Each checkpoint is first reached in ascending order.
	firstA, firstB := -1, -1
	for i, p := range route {
		switch g.At(p) {
		case maze.CheckpointTile(0):
			if firstA < 0 {
				firstA = i
			}
		case maze.CheckpointTile(1):
			if firstB < 0 {
				firstB = i
			}
		}
	}
	assert.True(t, firstA >= 0 && firstB > firstA)
}

func TestSolveSkippedCheckpointIDs(t *testing.T) {
	// Ids need not be contiguous: C (2) follows A (0).
	g := mustGrid(t,
		"-  C",
		"    ",
		"A  +",
	)

	route, err := Solve(g)
	require.NoError(t, err)
	assertWellFormed(t, g, route)

	idxA, idxC := -1, -1
	for i, p := range route {
		if p == (maze.Point{X: 0, Y: 2}) && idxA < 0 {
			idxA = i
		}
		if p == (maze.Point{X: 3, Y: 0}) && idxC < 0 {
			idxC = i
		}
	}
	require.True(t, idxA >= 0 && idxC >= 0)
	assert.Less(t, idxA, idxC)
}

func TestSolveIceMaze(t *testing.T) {
	g := mustGrid(t,
		"-___ ",
		"#__#_",
		"  _ +",
	)

	route, err := Solve(g)
	require.NoError(t, err)
	assertWellFormed(t, g, route)

	// A slide never stops on ice.
	for i := 1; i < len(route)-1; i++ {
		if g.At(route[i]) != maze.IceTile {
			continue
		}
		prev, next := route[i-1], route[i+1]
		assert.Equal(t, route[i].X-prev.X, next.X-route[i].X, "slide changed direction at %v", route[i])
		assert.Equal(t, route[i].Y-prev.Y, next.Y-route[i].Y, "slide changed direction at %v", route[i])
	}
}

func TestShortestPathFromNearestStart(t *testing.T) {
	g := mustGrid(t, "-  +-")

	route, err := ShortestPath(g, g.Find(maze.StartTile), maze.ExitTile)
	require.NoError(t, err)
	assert.Equal(t, maze.Route{{X: 4, Y: 0}, {X: 3, Y: 0}}, route)
}

func TestShortestPathNoStarts(t *testing.T) {
	g := mustGrid(t, "  +")
	_, err := ShortestPath(g, nil, maze.ExitTile)
	assert.ErrorIs(t, err, ErrUnsolvable)
}

func TestStepSlides(t *testing.T) {
	g := mustGrid(t, " __ ", "   #")

	n, ok := step(g, &node{point: maze.Point{X: 0, Y: 0}}, maze.Point{X: 1, Y: 0})
	require.True(t, ok)
	assert.Equal(t, maze.Point{X: 3, Y: 0}, n.point)
	assert.Equal(t, 3, n.cost)
	assert.Equal(t, maze.Route{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 2, Y: 0}, {X: 3, Y: 0}}, n.route())

	_, ok = step(g, &node{point: maze.Point{X: 0, Y: 0}}, maze.Point{X: 0, Y: -1})
	assert.False(t, ok, "stepping off the grid yields no neighbor")
}

func TestSlideOntoExpandedPoint(t *testing.T) {
	g := mustGrid(t,
		"-_ ",
		"##+",
	)

	// sliding back from (2,0) lands on the already expanded start
	back, ok := step(g, &node{point: maze.Point{X: 2, Y: 0}}, maze.Point{X: -1, Y: 0})
	require.True(t, ok)
	assert.Equal(t, maze.Point{X: 0, Y: 0}, back.point)

	route, err := Solve(g)
	require.NoError(t, err)
	assertWellFormed(t, g, route)

	want := maze.Route{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 2, Y: 0}, {X: 2, Y: 1}}
	if diff := cmp.Diff(want, route); diff != "" {
		t.Errorf("route mismatch (-want +got):\n%s", diff)
	}

	seen := make(map[maze.Point]bool)
	for _, p := range route {
		assert.False(t, seen[p], "route revisits %v", p)
		seen[p] = true
	}
}

func TestFrontierOrdering(t *testing.T) {
	f := newFrontier()
	f.push(&node{point: maze.Point{X: 0, Y: 0}, cost: 2, h: 2})
	f.push(&node{point: maze.Point{X: 1, Y: 0}, cost: 1, h: 1})
	f.push(&node{point: maze.Point{X: 2, Y: 0}, cost: 3, h: 1})
	f.push(&node{point: maze.Point{X: 3, Y: 0}, cost: 0, h: 2})

	assert.True(t, f.holds(maze.Point{X: 0, Y: 0}, 2))
	assert.False(t, f.holds(maze.Point{X: 0, Y: 0}, 1))

	var order []int
	for f.Len() > 0 {
		order = append(order, f.pop().point.X)
	}
	// Priority 2 nodes first, then priority 4; ties pop in insertion order.
	assert.Equal(t, []int{1, 3, 0, 2}, order)
}
