package maze

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	ierrors "github.com/copyleftdev/icemaze/internal/errors"
)

// ErrInvalidMap is wrapped by every parse failure caused by map content.
var ErrInvalidMap = errors.New("maze: invalid map")

// Parse reads a text map. Lines shorter than the longest line are padded
// with Empty tiles.
func Parse(r io.Reader) (*Grid, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lines = append(lines, strings.TrimRight(scanner.Text(), "\r"))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("maze: reading map: %w", err)
	}
	return parseLines(lines)
}

// ParseString parses a map held in memory.
func ParseString(s string) (*Grid, error) {
	return Parse(strings.NewReader(s))
}

// ParseRows parses a map given as one string per row.
func ParseRows(rows []string) (*Grid, error) {
	return parseLines(rows)
}

// LoadFile parses the map stored at path.
func LoadFile(path string) (*Grid, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, ierrors.Wrapf(err, "open map %s", path).WithComponent("maze").WithOperation("load")
	}
	defer f.Close()

	g, err := Parse(f)
	if err != nil {
		return nil, ierrors.Wrapf(err, "load map %s", path).WithComponent("maze").WithOperation("load")
	}
	return g, nil
}

func parseLines(lines []string) (*Grid, error) {
	width := 0
	for _, l := range lines {
		if n := utf8.RuneCountInString(l); n > width {
			width = n
		}
	}
	if len(lines) == 0 || width == 0 {
		return nil, fmt.Errorf("%w: map is empty", ErrInvalidMap)
	}

	g := NewGrid(width, len(lines))
	for y, l := range lines {
		x := 0
		for _, c := range l {
			t, ok := TileForRune(c)
			if !ok {
				return nil, fmt.Errorf("%w: unknown tile %q at line %d, column %d", ErrInvalidMap, c, y+1, x+1)
			}
			g.Set(Point{X: x, Y: y}, t)
			x++
		}
	}
	return g, nil
}

// Render encodes g as text, one line per row without a trailing newline.
func Render(g *Grid) string {
	var b strings.Builder
	b.Grow((g.width + 1) * g.height)
	for y := 0; y < g.height; y++ {
		if y > 0 {
			b.WriteByte('\n')
		}
		for x := 0; x < g.width; x++ {
			c, ok := RuneForTile(g.At(Point{X: x, Y: y}))
			if !ok {
				c = '?'
			}
			b.WriteRune(c)
		}
	}
	return b.String()
}
