package geometry

import (
	"math"

	"github.com/dhconnelly/rtreego"
	"github.com/paulmach/orb"
)

// rectPad keeps axis-aligned edges from producing zero-width rectangles.
const rectPad = 1e-9

// edgeEntry wraps a polygon edge for R-tree storage
type edgeEntry struct {
	seg  Segment
	bbox rtreego.Rect
}

// Bounds implements rtreego.Spatial interface
func (e *edgeEntry) Bounds() rtreego.Rect {
	return e.bbox
}

// EdgeIndex answers line-of-sight queries against polygon edges.
type EdgeIndex struct {
	tree *rtreego.Rtree
	size int
}

// NewEdgeIndex indexes every edge of the boundary and obstacle rings.
func NewEdgeIndex(set PolygonSet) *EdgeIndex {
	var rings []orb.Ring
	rings = append(rings, set.Boundary...)
	for _, obstacle := range set.Obstacles {
		rings = append(rings, obstacle...)
	}
	return NewRingIndex(rings)
}

// NewRingIndex indexes every edge of the given closed rings.
func NewRingIndex(rings []orb.Ring) *EdgeIndex {
	tree := rtreego.NewTree(2, 25, 50) // 2D, min 25, max 50 entries per node

	size := 0
	for _, ring := range rings {
		for _, seg := range ringSegments(ring) {
			bbox, err := segmentBounds(seg.P1, seg.P2)
			if err != nil {
				continue
			}
			tree.Insert(&edgeEntry{seg: seg, bbox: bbox})
			size++
		}
	}
	return &EdgeIndex{tree: tree, size: size}
}

// Size returns the number of indexed edges.
func (idx *EdgeIndex) Size() int {
	return idx.size
}

// QueryRegion returns the edges whose bounding boxes touch the given box.
func (idx *EdgeIndex) QueryRegion(minX, minY, maxX, maxY float64) []Segment {
	bbox, err := segmentBounds(orb.Point{minX, minY}, orb.Point{maxX, maxY})
	if err != nil {
		return nil
	}
	results := idx.tree.SearchIntersect(bbox)
	segs := make([]Segment, 0, len(results))
	for _, item := range results {
		segs = append(segs, item.(*edgeEntry).seg)
	}
	return segs
}

// LineOfSight reports whether the straight segment a→b crosses no indexed edge.
func (idx *EdgeIndex) LineOfSight(a, b orb.Point) bool {
	seg := Segment{P1: a, P2: b}
	for _, edge := range idx.QueryRegion(
		math.Min(a[0], b[0]), math.Min(a[1], b[1]),
		math.Max(a[0], b[0]), math.Max(a[1], b[1]),
	) {
		if SegmentsIntersect(seg, edge) {
			return false
		}
	}
	return true
}

// segmentBounds computes the padded axis-aligned bounding box of two points.
func segmentBounds(a, b orb.Point) (rtreego.Rect, error) {
	return rtreego.NewRectFromPoints(
		rtreego.Point{math.Min(a[0], b[0]) - rectPad, math.Min(a[1], b[1]) - rectPad},
		rtreego.Point{math.Max(a[0], b[0]) + rectPad, math.Max(a[1], b[1]) + rectPad},
	)
}
