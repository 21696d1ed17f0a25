// Package maze provides the grid model shared by the solver and the optimizer.
package maze

import "fmt"

// Kind is the terrain class of a tile.
type Kind uint8

const (
	Empty Kind = iota
	Ice
	Wall
	Start
	Exit
	Checkpoint
	In
	Out
	// Path marks a solved route for rendering. It is never read as terrain.
	Path
)

var kindNames = map[Kind]string{
	Empty:      "empty",
	Ice:        "ice",
	Wall:       "wall",
	Start:      "start",
	Exit:       "exit",
	Checkpoint: "checkpoint",
	In:         "in",
	Out:        "out",
	Path:       "path",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Tile is a single grid cell. ID distinguishes Checkpoint, In and Out
// instances and is zero for every other kind. Tiles compare by value.
type Tile struct {
	Kind Kind
	ID   uint8
}

// Common tiles.
var (
	EmptyTile = Tile{Kind: Empty}
	IceTile   = Tile{Kind: Ice}
	WallTile  = Tile{Kind: Wall}
	StartTile = Tile{Kind: Start}
	ExitTile  = Tile{Kind: Exit}
	PathTile  = Tile{Kind: Path}
)

// CheckpointTile returns the checkpoint tile with the given id.
func CheckpointTile(id uint8) Tile {
	return Tile{Kind: Checkpoint, ID: id}
}

// IsCheckpoint reports whether t is a checkpoint of any id.
func (t Tile) IsCheckpoint() bool {
	return t.Kind == Checkpoint
}

func (t Tile) String() string {
	switch t.Kind {
	case Checkpoint, In, Out:
		return fmt.Sprintf("%s(%d)", t.Kind, t.ID)
	default:
		return t.Kind.String()
	}
}

// charTiles is the text encoding of the tile vocabulary. '[' and '<' both
// decode to In(2), ']' and '>' both to Out(2).
var charTiles = map[rune]Tile{
	' ': EmptyTile,
	'_': IceTile,
	'#': WallTile,
	'-': StartTile,
	'+': ExitTile,
	'A': CheckpointTile(0),
	'B': CheckpointTile(1),
	'C': CheckpointTile(2),
	'D': CheckpointTile(3),
	'E': CheckpointTile(4),
	'(': {Kind: In, ID: 0},
	')': {Kind: Out, ID: 0},
	'{': {Kind: In, ID: 1},
	'}': {Kind: Out, ID: 1},
	'[': {Kind: In, ID: 2},
	']': {Kind: Out, ID: 2},
	'<': {Kind: In, ID: 2},
	'>': {Kind: Out, ID: 2},
}

var tileChars = func() map[Tile]rune {
	m := make(map[Tile]rune, len(charTiles)+1)
	for c, t := range charTiles {
		// Keep the bracket form for the duplicated In(2)/Out(2) symbols.
		if c == '<' || c == '>' {
			continue
		}
		m[t] = c
	}
	m[PathTile] = '*'
	return m
}()

// TileForRune decodes a map character.
func TileForRune(r rune) (Tile, bool) {
	t, ok := charTiles[r]
	return t, ok
}

// RuneForTile encodes a tile as a map character.
func RuneForTile(t Tile) (rune, bool) {
	r, ok := tileChars[t]
	return r, ok
}
