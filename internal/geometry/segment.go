package geometry

import (
	"math"

	"github.com/paulmach/orb"
)

// Segment is a line segment between two points
type Segment struct {
	P1, P2 orb.Point
}

// SegmentsIntersect checks if two line segments intersect.
// Segments that only share an endpoint do not count as intersecting.
func SegmentsIntersect(seg1, seg2 Segment) bool {
	p1, p2 := seg1.P1, seg1.P2
	p3, p4 := seg2.P1, seg2.P2

	if p1 == p3 || p1 == p4 || p2 == p3 || p2 == p4 {
		return false
	}

	d1 := direction(p3, p4, p1)
	d2 := direction(p3, p4, p2)
	d3 := direction(p1, p2, p3)
	d4 := direction(p1, p2, p4)

	if ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0)) {
		return true
	}

	// Collinear cases
	if d1 == 0 && onSegment(p3, p4, p1) {
		return true
	}
	if d2 == 0 && onSegment(p3, p4, p2) {
		return true
	}
	if d3 == 0 && onSegment(p1, p2, p3) {
		return true
	}
	if d4 == 0 && onSegment(p1, p2, p4) {
		return true
	}

	return false
}

// direction calculates the cross product to determine orientation
func direction(p1, p2, p3 orb.Point) float64 {
	return (p3[0]-p1[0])*(p2[1]-p1[1]) - (p2[0]-p1[0])*(p3[1]-p1[1])
}

// onSegment checks if point q lies within the bounding box of segment pr
func onSegment(p, r, q orb.Point) bool {
	return q[0] <= math.Max(p[0], r[0]) && q[0] >= math.Min(p[0], r[0]) &&
		q[1] <= math.Max(p[1], r[1]) && q[1] >= math.Min(p[1], r[1])
}

// ringSegments returns the edges of a closed ring.
func ringSegments(r orb.Ring) []Segment {
	if len(r) < 2 {
		return nil
	}
	segs := make([]Segment, 0, len(r)-1)
	for i := 0; i < len(r)-1; i++ {
		segs = append(segs, Segment{P1: r[i], P2: r[i+1]})
	}
	if !r.Closed() {
		segs = append(segs, Segment{P1: r[len(r)-1], P2: r[0]})
	}
	return segs
}

// SegmentIntersectsRing checks if a segment crosses any edge of a ring
func SegmentIntersectsRing(seg Segment, r orb.Ring) bool {
	for _, edge := range ringSegments(r) {
		if SegmentsIntersect(seg, edge) {
			return true
		}
	}
	return false
}
