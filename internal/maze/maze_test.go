package maze

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePadsShortLines(t *testing.T) {
	g, err := ParseString("-_\n#\n__+")
	require.NoError(t, err)

	assert.Equal(t, 3, g.Width())
	assert.Equal(t, 3, g.Height())
	assert.Equal(t, StartTile, g.At(Point{0, 0}))
	assert.Equal(t, IceTile, g.At(Point{1, 0}))
	assert.Equal(t, EmptyTile, g.At(Point{2, 0}))
	assert.Equal(t, WallTile, g.At(Point{0, 1}))
	assert.Equal(t, EmptyTile, g.At(Point{2, 1}))
	assert.Equal(t, ExitTile, g.At(Point{2, 2}))
}

func TestParseTileVocabulary(t *testing.T) {
	g, err := ParseString("ABCDE(){}[]<>")
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		assert.Equal(t, CheckpointTile(uint8(i)), g.At(Point{i, 0}))
	}
	assert.Equal(t, Tile{Kind: In, ID: 0}, g.At(Point{5, 0}))
	assert.Equal(t, Tile{Kind: Out, ID: 1}, g.At(Point{8, 0}))
	// Both bracket styles decode to the same reserved pair.
	assert.Equal(t, g.At(Point{9, 0}), g.At(Point{11, 0}))
	assert.Equal(t, g.At(Point{10, 0}), g.At(Point{12, 0}))
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "empty input", input: ""},
		{name: "unknown tile", input: "- x +"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseString(tt.input)
			assert.ErrorIs(t, err, ErrInvalidMap)
		})
	}
}

func TestParseStripsCarriageReturn(t *testing.T) {
	g, err := ParseString("- \r\n +\r\n")
	require.NoError(t, err)
	assert.Equal(t, 2, g.Width())
	assert.Equal(t, 2, g.Height())
}

func TestRenderRoundTrip(t *testing.T) {
	src := "-  #\n_A_ \n # +"
	g, err := ParseString(src)
	require.NoError(t, err)
	assert.Equal(t, src, Render(g))
}

func TestRenderReservedDuplicates(t *testing.T) {
	g, err := ParseString("<>")
	require.NoError(t, err)
	assert.Equal(t, "[]", Render(g))
}

func TestOverlay(t *testing.T) {
	g, err := ParseString("- +")
	require.NoError(t, err)

	out := g.Overlay(Route{{0, 0}, {1, 0}, {2, 0}})
	assert.Equal(t, "***", Render(out))
	assert.Equal(t, "- +", Render(g), "overlay must not mutate the source grid")
}

func TestWithWalls(t *testing.T) {
	g, err := ParseString("-  \n   \n  +")
	require.NoError(t, err)

	walled, err := g.WithWalls([]Point{{1, 1}, {2, 0}})
	require.NoError(t, err)
	assert.Equal(t, WallTile, walled.At(Point{1, 1}))
	assert.Equal(t, EmptyTile, g.At(Point{1, 1}))

	_, err = g.WithWalls([]Point{{0, 0}})
	assert.Error(t, err, "walls may only replace empty tiles")

	_, err = g.WithWalls([]Point{{5, 5}})
	assert.Error(t, err)
}

func TestCheckpointIDs(t *testing.T) {
	g, err := ParseString("C A\nB A\n-+E")
	require.NoError(t, err)
	assert.Equal(t, []uint8{0, 1, 2, 4}, g.CheckpointIDs())
}

func TestFindRowMajor(t *testing.T) {
	g, err := ParseString("- -\n-  ")
	require.NoError(t, err)
	assert.Equal(t, []Point{{0, 0}, {2, 0}, {0, 1}}, g.Find(StartTile))
}

func TestAtPanicsOutOfBounds(t *testing.T) {
	g := NewGrid(2, 2)
	assert.Panics(t, func() { g.At(Point{2, 0}) })
	assert.Panics(t, func() { g.Set(Point{0, -1}, WallTile) })
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "level.txt")
	require.NoError(t, os.WriteFile(path, []byte("-_+\n"), 0o644))

	g, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "-_+", Render(g))

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.txt"))
	assert.ErrorIs(t, err, fs.ErrNotExist)

	bad := filepath.Join(t.TempDir(), "bad.txt")
	require.NoError(t, os.WriteFile(bad, []byte("-?+\n"), 0o644))
	_, err = LoadFile(bad)
	assert.ErrorIs(t, err, ErrInvalidMap)
	assert.Contains(t, err.Error(), "bad.txt")
}

func TestManhattan(t *testing.T) {
	assert.Equal(t, 5, Point{0, 0}.Manhattan(Point{2, -3}))
	assert.Equal(t, Point{1, 2}, Point{0, 3}.Add(Point{1, -1}))
}
