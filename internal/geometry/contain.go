package geometry

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// candidate is an obstacle ring with a point known to lie inside it.
type candidate struct {
	ring orb.Ring
	seed orb.Point
}

// removeContained drops candidates that sit inside another candidate,
// i.e. occupied islands within a hole of a larger obstacle.
func removeContained(cands []candidate) []candidate {
	if len(cands) <= 1 {
		return cands
	}

	contained := make([]bool, len(cands))
	for i := range cands {
		for j := range cands {
			if i == j || contained[j] {
				continue
			}
			if !cands[j].ring.Bound().Contains(cands[i].seed) {
				continue
			}
			if planar.RingContains(cands[j].ring, cands[i].seed) {
				contained[i] = true
				break
			}
		}
	}

	result := make([]candidate, 0, len(cands))
	for i, c := range cands {
		if !contained[i] {
			result = append(result, c)
		}
	}
	return result
}

// isRingContainedIn checks if ring a lies fully within ring b
func isRingContainedIn(a, b orb.Ring) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}

	// Quick bounding box check first
	ab, bb := a.Bound(), b.Bound()
	if !bb.Contains(ab.Min) || !bb.Contains(ab.Max) {
		return false
	}

	for _, vertex := range a {
		if !planar.RingContains(b, vertex) {
			return false
		}
	}
	return !ringsCross(a, b)
}

// ringsOverlap reports whether two rings share any interior area.
func ringsOverlap(a, b orb.Ring) bool {
	if !a.Bound().Intersects(b.Bound()) {
		return false
	}
	if ringsCross(a, b) {
		return true
	}
	return planar.RingContains(b, a[0]) || planar.RingContains(a, b[0])
}

func ringsCross(a, b orb.Ring) bool {
	for _, sa := range ringSegments(a) {
		if SegmentIntersectsRing(sa, b) {
			return true
		}
	}
	return false
}

// Validate checks that every obstacle is inside the boundary and that no
// two obstacles overlap.
func (s PolygonSet) Validate() error {
	if len(s.Boundary) == 0 || len(s.Boundary[0]) < 4 {
		return fmt.Errorf("%w: boundary has fewer than three vertices", ErrGeometry)
	}
	outer := s.Boundary[0]
	for i, o := range s.Obstacles {
		if len(o) == 0 {
			return fmt.Errorf("%w: obstacle %d is empty", ErrGeometry, i)
		}
		if !isRingContainedIn(o[0], outer) {
			return fmt.Errorf("%w: obstacle %d leaves the boundary", ErrGeometry, i)
		}
		for j := i + 1; j < len(s.Obstacles); j++ {
			if ringsOverlap(o[0], s.Obstacles[j][0]) {
				return fmt.Errorf("%w: obstacles %d and %d overlap", ErrGeometry, i, j)
			}
		}
	}
	return nil
}
