package maze

import (
	"fmt"
	"sort"
)

// Point is a cell coordinate. X is the column and Y the row, origin top-left.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Add returns p translated by d.
func (p Point) Add(d Point) Point {
	return Point{X: p.X + d.X, Y: p.Y + d.Y}
}

// Manhattan returns the L1 distance between p and q.
func (p Point) Manhattan(q Point) int {
	return abs(p.X-q.X) + abs(p.Y-q.Y)
}

func (p Point) String() string {
	return fmt.Sprintf("(%d,%d)", p.X, p.Y)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// Cardinal directions in expansion order: up, right, down, left.
var Directions = [4]Point{
	{X: 0, Y: -1},
	{X: 1, Y: 0},
	{X: 0, Y: 1},
	{X: -1, Y: 0},
}

// Route is an ordered sequence of points where consecutive points are one
// cardinal step apart.
type Route []Point

// Contains reports whether p lies on the route.
func (r Route) Contains(p Point) bool {
	for _, q := range r {
		if q == p {
			return true
		}
	}
	return false
}

// Grid is a rectangular tile matrix. Its shape is fixed at construction.
type Grid struct {
	width  int
	height int
	tiles  []Tile
}

// NewGrid returns a width × height grid filled with Empty tiles.
func NewGrid(width, height int) *Grid {
	return &Grid{
		width:  width,
		height: height,
		tiles:  make([]Tile, width*height),
	}
}

// FromRows builds a grid from equal-length rows.
func FromRows(rows [][]Tile) (*Grid, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, fmt.Errorf("maze: grid must have at least one row and column")
	}
	g := NewGrid(len(rows[0]), len(rows))
	for y, row := range rows {
		if len(row) != g.width {
			return nil, fmt.Errorf("maze: row %d has width %d, want %d", y, len(row), g.width)
		}
		copy(g.tiles[y*g.width:], row)
	}
	return g, nil
}

// Width returns the number of columns.
func (g *Grid) Width() int { return g.width }

// Height returns the number of rows.
func (g *Grid) Height() int { return g.height }

// InBounds reports whether p lies inside the grid.
func (g *Grid) InBounds(p Point) bool {
	return p.X >= 0 && p.X < g.width && p.Y >= 0 && p.Y < g.height
}

// At returns the tile at p. It panics if p is out of bounds.
func (g *Grid) At(p Point) Tile {
	if !g.InBounds(p) {
		panic(fmt.Sprintf("maze: point %v outside %dx%d grid", p, g.width, g.height))
	}
	return g.tiles[p.Y*g.width+p.X]
}

// Set replaces the tile at p. It panics if p is out of bounds.
func (g *Grid) Set(p Point, t Tile) {
	if !g.InBounds(p) {
		panic(fmt.Sprintf("maze: point %v outside %dx%d grid", p, g.width, g.height))
	}
	g.tiles[p.Y*g.width+p.X] = t
}

// Clone returns an independent copy of g.
func (g *Grid) Clone() *Grid {
	tiles := make([]Tile, len(g.tiles))
	copy(tiles, g.tiles)
	return &Grid{width: g.width, height: g.height, tiles: tiles}
}

// FindFunc returns every point whose tile satisfies match, in row-major order.
func (g *Grid) FindFunc(match func(Tile) bool) []Point {
	var points []Point
	for i, t := range g.tiles {
		if match(t) {
			points = append(points, Point{X: i % g.width, Y: i / g.width})
		}
	}
	return points
}

// Find returns every point holding tile t, in row-major order.
func (g *Grid) Find(t Tile) []Point {
	return g.FindFunc(func(other Tile) bool { return other == t })
}

// CheckpointIDs returns the distinct checkpoint ids present, ascending.
func (g *Grid) CheckpointIDs() []uint8 {
	seen := make(map[uint8]struct{})
	for _, t := range g.tiles {
		if t.IsCheckpoint() {
			seen[t.ID] = struct{}{}
		}
	}
	ids := make([]uint8, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// WithWalls returns a copy of g with every point in walls set to Wall.
// Each point must be in bounds and hold Empty in g.
func (g *Grid) WithWalls(walls []Point) (*Grid, error) {
	out := g.Clone()
	for _, p := range walls {
		if !g.InBounds(p) {
			return nil, fmt.Errorf("maze: wall %v outside %dx%d grid", p, g.width, g.height)
		}
		if t := g.At(p); t != EmptyTile {
			return nil, fmt.Errorf("maze: wall %v placed on %s tile", p, t)
		}
		out.Set(p, WallTile)
	}
	return out, nil
}

// Overlay returns a copy of g with every point of route marked as Path.
func (g *Grid) Overlay(route Route) *Grid {
	out := g.Clone()
	for _, p := range route {
		if out.InBounds(p) {
			out.Set(p, PathTile)
		}
	}
	return out
}
