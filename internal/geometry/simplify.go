package geometry

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/simplify"
)

// SimplifyRing removes near-collinear vertices from a closed ring.
// Douglas-Peucker never drops the ring's start vertex, so the wrap-around
// vertex is rechecked against its two neighbours afterwards.
// tol is a distance; the wrap-around check uses the triangle area tol*tol*1e3,
// which is 1e-3·res² for the tolerance Extract passes in.
func SimplifyRing(r orb.Ring, tol float64) orb.Ring {
	if len(r) <= 4 {
		return r
	}
	out := simplify.DouglasPeucker(tol).Ring(r.Clone())
	if !out.Closed() {
		out = append(out, out[0])
	}

	areaTol := tol * tol * 1e3
	for len(out) > 4 {
		n := len(out) - 1 // distinct vertices
		if !isCollinear(out[n-1], out[0], out[1], areaTol) {
			break
		}
		// Drop the start vertex and re-close on the next one.
		out = append(out[1:n:n], out[1])
	}
	return out
}

// isCollinear checks if the area of the triangle made of the three points
// is below tol.
func isCollinear(p1, p2, p3 orb.Point, tol float64) bool {
	return math.Abs(p1[0]*(p2[1]-p3[1])+p2[0]*(p3[1]-p1[1])+p3[0]*(p1[1]-p2[1]))/2 < tol
}

// HasCollinearVertex reports whether any three consecutive vertices of the
// closed ring are collinear, including across the closing edge.
func HasCollinearVertex(r orb.Ring, tol float64) bool {
	if len(r) < 4 {
		return false
	}
	pts := r[:len(r)-1]
	n := len(pts)
	areaTol := tol * tol * 1e3
	for i := 0; i < n; i++ {
		if isCollinear(pts[(i-1+n)%n], pts[i], pts[(i+1)%n], areaTol) {
			return true
		}
	}
	return false
}
