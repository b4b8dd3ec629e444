package grid

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// ASCII map legend. The first text line is the top row (highest y).
const (
	glyphOccupied = '#'
	glyphFree     = '.'
	glyphUnknown  = '?'
	glyphStart    = 'S'
	glyphGoal     = 'G'
)

// ASCIIMap is a parsed text map with optional start and goal markers.
type ASCIIMap struct {
	Grid  *Grid
	Start *Cell
	Goal  *Cell
}

// ParseASCII reads a map drawn with '#' (occupied), '.' (free), '?' or ' '
// (unknown), 'S' (free start) and 'G' (free goal). Blank trailing lines are
// ignored; all rows must have the same width.
func ParseASCII(r io.Reader, resolution float64) (*ASCIIMap, error) {
	var rows []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		rows = append(rows, strings.TrimRight(sc.Text(), "\r"))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read map: %w", err)
	}
	for len(rows) > 0 && strings.TrimSpace(rows[len(rows)-1]) == "" {
		rows = rows[:len(rows)-1]
	}
	if len(rows) == 0 {
		return nil, ErrEmptyGrid
	}

	width := len(rows[0])
	g, err := New(width, len(rows), resolution)
	if err != nil {
		return nil, err
	}
	m := &ASCIIMap{Grid: g}

	for i, row := range rows {
		if len(row) != width {
			return nil, fmt.Errorf("%w: row %d has width %d, want %d", ErrMalformedMap, i, len(row), width)
		}
		y := len(rows) - 1 - i
		for x, ch := range row {
			switch ch {
			case glyphOccupied:
				g.Set(x, y, Occupied)
			case glyphFree:
				g.Set(x, y, Free)
			case glyphUnknown, ' ':
			case glyphStart:
				g.Set(x, y, Free)
				m.Start = &Cell{X: x, Y: y}
			case glyphGoal:
				g.Set(x, y, Free)
				m.Goal = &Cell{X: x, Y: y}
			default:
				return nil, fmt.Errorf("%w: unexpected %q at row %d col %d", ErrMalformedMap, ch, i, x)
			}
		}
	}
	return m, nil
}

// FormatASCII renders g in the ParseASCII legend.
func FormatASCII(g *Grid) string {
	var b strings.Builder
	for y := g.Height - 1; y >= 0; y-- {
		for x := 0; x < g.Width; x++ {
			switch g.At(x, y) {
			case Occupied:
				b.WriteByte(glyphOccupied)
			case Free:
				b.WriteByte(glyphFree)
			default:
				b.WriteByte(glyphUnknown)
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}
