package geometry_test

import (
	"bytes"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"exploration-planner/internal/geometry"
	"exploration-planner/internal/grid"
)

// freeGrid builds a w×h all-free grid with the listed cells occupied.
func freeGrid(t *testing.T, w, h int, res float64, occupied ...grid.Cell) *grid.Grid {
	t.Helper()
	g, err := grid.NewFilled(w, h, res, grid.Free)
	require.NoError(t, err)
	for _, c := range occupied {
		g.Set(c.X, c.Y, grid.Occupied)
	}
	return g
}

func block(x0, y0, x1, y1 int) []grid.Cell {
	var cells []grid.Cell
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			cells = append(cells, grid.Cell{X: x, Y: y})
		}
	}
	return cells
}

func TestExtract_Errors(t *testing.T) {
	full, err := grid.NewFilled(4, 4, 1, grid.Occupied)
	require.NoError(t, err)
	unknown, err := grid.New(4, 4, 1)
	require.NoError(t, err)

	cases := []struct {
		name string
		g    *grid.Grid
	}{
		{"Nil", nil},
		{"AllOccupied", full},
		{"AllUnknown", unknown},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := geometry.Extract(tc.g)
			assert.ErrorIs(t, err, geometry.ErrGeometry)
		})
	}
}

func TestExtract_CenterBlock(t *testing.T) {
	g := freeGrid(t, 10, 10, 1, block(3, 3, 5, 5)...)

	set, err := geometry.Extract(g)
	require.NoError(t, err)
	require.Len(t, set.Obstacles, 1)

	assert.InDelta(t, 100.0, planar.Area(set.Boundary), 0.1)
	assert.InDelta(t, 9.0, planar.Area(set.Obstacles[0]), 0.1)
	assert.Len(t, set.Boundary[0], 5)
	assert.Len(t, set.Obstacles[0][0], 5)
	assert.Equal(t, orb.CCW, set.Boundary[0].Orientation())
	assert.Equal(t, orb.CCW, set.Obstacles[0][0].Orientation())
	assert.False(t, geometry.HasCollinearVertex(set.Boundary[0], 1e-3))
	assert.NoError(t, set.Validate())

	// Buffering grows the obstacle and shrinks the boundary.
	assert.Greater(t, planar.Area(set.Obstacles[0]), 9.0)
	assert.Less(t, planar.Area(set.Boundary), 100.0)
}

func TestExtract_RoundTrip(t *testing.T) {
	lShape := orb.Polygon{orb.Ring{
		{2.5, 2.5}, {10.5, 2.5}, {10.5, 6.5}, {6.5, 6.5}, {6.5, 12.5}, {2.5, 12.5}, {2.5, 2.5},
	}}
	g := freeGrid(t, 16, 16, 1)
	require.Equal(t, 56, geometry.Rasterize(g, []orb.Polygon{lShape}))

	set, err := geometry.Extract(g)
	require.NoError(t, err)
	require.Len(t, set.Obstacles, 1)

	cellArea := g.Resolution * g.Resolution
	assert.InDelta(t, planar.Area(lShape), planar.Area(set.Obstacles[0]), cellArea)
	assert.Len(t, set.Obstacles[0][0], 7)
	assert.NoError(t, set.Validate())
}

func TestExtract_RoundTripScaled(t *testing.T) {
	// Edges on cell boundaries: cells 4..11 in both axes.
	square := orb.Polygon{orb.Ring{{0.875, 0.875}, {2.875, 0.875}, {2.875, 2.875}, {0.875, 2.875}, {0.875, 0.875}}}
	g := freeGrid(t, 20, 20, 0.25)
	require.Equal(t, 64, geometry.Rasterize(g, []orb.Polygon{square}))

	set, err := geometry.Extract(g)
	require.NoError(t, err)
	require.Len(t, set.Obstacles, 1)
	assert.InDelta(t, planar.Area(square), planar.Area(set.Obstacles[0]), 0.01)
}

func TestExtract_DiagonalCellsJoin(t *testing.T) {
	g := freeGrid(t, 6, 6, 1, grid.Cell{X: 2, Y: 2}, grid.Cell{X: 3, Y: 3})

	set, err := geometry.Extract(g)
	require.NoError(t, err)
	require.Len(t, set.Obstacles, 1)
	assert.InDelta(t, 2.0, planar.Area(set.Obstacles[0]), 0.05)
}

func TestExtract_NestedIslandDropped(t *testing.T) {
	var walls []grid.Cell
	for i := 2; i <= 8; i++ {
		walls = append(walls,
			grid.Cell{X: i, Y: 2}, grid.Cell{X: i, Y: 8},
			grid.Cell{X: 2, Y: i}, grid.Cell{X: 8, Y: i})
	}
	walls = append(walls, grid.Cell{X: 5, Y: 5})
	g := freeGrid(t, 11, 11, 1, walls...)

	set, err := geometry.Extract(g)
	require.NoError(t, err)
	require.Len(t, set.Obstacles, 1)
	assert.InDelta(t, 49.0, planar.Area(set.Obstacles[0]), 0.1)
	assert.InDelta(t, 121.0, planar.Area(set.Boundary), 0.1)
	assert.NoError(t, set.Validate())
}

func TestExtract_LargestRegionIsBoundary(t *testing.T) {
	// A full-height wall splits the map into a 2-wide and a 5-wide room.
	var wall []grid.Cell
	for y := 0; y < 6; y++ {
		wall = append(wall, grid.Cell{X: 2, Y: y})
	}
	g := freeGrid(t, 8, 6, 1, wall...)

	set, err := geometry.Extract(g)
	require.NoError(t, err)
	assert.InDelta(t, 30.0, planar.Area(set.Boundary), 0.1)
	assert.Empty(t, set.Obstacles)
}

func TestExtract_BoundaryHoldsFreeCells(t *testing.T) {
	// Two known free columns, a wall, then a larger unknown region.
	g, err := grid.New(10, 3, 1)
	require.NoError(t, err)
	for y := 0; y < 3; y++ {
		g.Set(0, y, grid.Free)
		g.Set(1, y, grid.Free)
		g.Set(2, y, grid.Occupied)
	}

	set, err := geometry.Extract(g)
	require.NoError(t, err)
	assert.InDelta(t, 6.0, planar.Area(set.Boundary), 0.1)
	for y := 0; y < 3; y++ {
		assert.True(t, planar.PolygonContains(set.Boundary, g.CellCenter(0, y)))
		assert.True(t, planar.PolygonContains(set.Boundary, g.CellCenter(1, y)))
	}
	assert.False(t, planar.PolygonContains(set.Boundary, g.CellCenter(6, 1)))
}

// twoRooms is a 20×9 map split by a wall at x=6, with a pillar at x=3 in the
// smaller room.
func twoRooms(t *testing.T) *grid.Grid {
	t.Helper()
	cells := block(6, 0, 6, 8)
	cells = append(cells, block(3, 3, 3, 5)...)
	return freeGrid(t, 20, 9, 1, cells...)
}

func TestOutlines_KeepsEveryRegion(t *testing.T) {
	g := twoRooms(t)

	set, err := geometry.Extract(g)
	require.NoError(t, err)
	assert.Empty(t, set.Obstacles, "the pillar is outside the boundary")

	rings, err := geometry.Outlines(g)
	require.NoError(t, err)
	assert.Len(t, rings, 3, "two room outlines and the pillar")

	from, to := g.CellCenter(1, 4), g.CellCenter(4, 4)
	assert.True(t, geometry.NewEdgeIndex(set).LineOfSight(from, to))
	assert.False(t, geometry.NewRingIndex(rings).LineOfSight(from, to), "pillar blocks the view")

	_, err = geometry.Outlines(nil)
	assert.ErrorIs(t, err, geometry.ErrGeometry)
}

func TestSimplifyRing_WrapAround(t *testing.T) {
	// (1,0) is the start vertex and sits on the bottom edge.
	r := orb.Ring{{1, 0}, {2, 0}, {2, 2}, {0, 2}, {0, 0}, {1, 0}}
	out := geometry.SimplifyRing(r, 1e-3)

	assert.Len(t, out, 5)
	assert.True(t, out.Closed())
	assert.False(t, geometry.HasCollinearVertex(out, 1e-3))
	assert.InDelta(t, 4.0, planar.Area(orb.Polygon{out}), 1e-12)
	assert.Len(t, r, 6, "input ring must not be modified")
}

func TestSegmentsIntersect(t *testing.T) {
	cases := []struct {
		name string
		a, b geometry.Segment
		want bool
	}{
		{"Crossing", geometry.Segment{P1: orb.Point{0, 0}, P2: orb.Point{2, 2}}, geometry.Segment{P1: orb.Point{0, 2}, P2: orb.Point{2, 0}}, true},
		{"Parallel", geometry.Segment{P1: orb.Point{0, 0}, P2: orb.Point{2, 0}}, geometry.Segment{P1: orb.Point{0, 1}, P2: orb.Point{2, 1}}, false},
		{"SharedEndpoint", geometry.Segment{P1: orb.Point{0, 0}, P2: orb.Point{1, 1}}, geometry.Segment{P1: orb.Point{1, 1}, P2: orb.Point{2, 0}}, false},
		{"CollinearOverlap", geometry.Segment{P1: orb.Point{0, 0}, P2: orb.Point{2, 0}}, geometry.Segment{P1: orb.Point{1, 0}, P2: orb.Point{3, 0}}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, geometry.SegmentsIntersect(tc.a, tc.b))
		})
	}
}

func TestEdgeIndex_LineOfSight(t *testing.T) {
	g := freeGrid(t, 10, 10, 1, block(3, 3, 5, 5)...)
	set, err := geometry.Extract(g)
	require.NoError(t, err)

	idx := geometry.NewEdgeIndex(set)
	assert.Equal(t, 8, idx.Size())

	assert.False(t, idx.LineOfSight(orb.Point{0, 0}, orb.Point{9, 9}), "through the block")
	assert.True(t, idx.LineOfSight(orb.Point{0, 0}, orb.Point{9, 0}), "along the bottom row")
	assert.True(t, idx.LineOfSight(orb.Point{0, 9}, orb.Point{0, 0}), "vertical, zero-width bounds")
	assert.False(t, idx.LineOfSight(orb.Point{0, 0}, orb.Point{20, 0}), "leaves the map")
}

func TestGeoJSON_KeepsRoles(t *testing.T) {
	g := freeGrid(t, 10, 10, 1, block(3, 3, 5, 5)...)
	set, err := geometry.Extract(g)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, geometry.WriteGeoJSON(&buf, set))

	back, err := geometry.ReadGeoJSON(buf.Bytes())
	require.NoError(t, err)
	assert.InDelta(t, planar.Area(set.Boundary), planar.Area(back.Boundary), 1e-9)
	require.Len(t, back.Obstacles, 1)
	assert.Equal(t, set.Obstacles[0][0].Orientation(), back.Obstacles[0][0].Orientation())
}
