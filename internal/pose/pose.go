// Package pose provides the planar pose primitive used throughout the planner.
package pose

import (
	"fmt"
	"math"
	"sync/atomic"

	"github.com/paulmach/orb"
)

const twoPi = 2 * math.Pi

// Pose is a 2D position plus heading. Yaw is kept in [0, 2π).
// Index is a diagnostic creation-order id and takes no part in equality.
type Pose struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Yaw   float64 `json:"yaw"`
	Index uint64  `json:"index,omitempty"`
}

// New creates a pose with a normalised yaw and no diagnostic index.
func New(x, y, yaw float64) Pose {
	return Pose{X: x, Y: y, Yaw: WrapYaw(yaw)}
}

// Sequence hands out creation-order ids for poses.
// A zero Sequence is ready to use and safe for concurrent use.
type Sequence struct {
	next atomic.Uint64
}

// New creates a pose stamped with the next id from the sequence.
func (s *Sequence) New(x, y, yaw float64) Pose {
	p := New(x, y, yaw)
	p.Index = s.next.Add(1)
	return p
}

// Stamp returns a copy of p carrying the next id from the sequence.
func (s *Sequence) Stamp(p Pose) Pose {
	p.Index = s.next.Add(1)
	return p
}

// WrapYaw maps any angle into [0, 2π).
func WrapYaw(yaw float64) float64 {
	w := math.Mod(yaw, twoPi)
	if w < 0 {
		w += twoPi
	}
	// Mod can return exactly 2π after adding to a tiny negative value
	if w >= twoPi {
		w = 0
	}
	return w
}

// Compose returns b ⊙ a: the transform a applied in the frame of b.
// a is rotated by b's heading and translated by b's position.
func Compose(b, a Pose) Pose {
	sin, cos := math.Sincos(b.Yaw)
	return Pose{
		X:   b.X + cos*a.X - sin*a.Y,
		Y:   b.Y + sin*a.X + cos*a.Y,
		Yaw: WrapYaw(b.Yaw + a.Yaw),
	}
}

// Then is shorthand for Compose(p, a).
func (p Pose) Then(a Pose) Pose {
	return Compose(p, a)
}

// Scale multiplies the position by k, leaving the heading untouched.
func (p Pose) Scale(k float64) Pose {
	return Pose{X: p.X * k, Y: p.Y * k, Yaw: p.Yaw, Index: p.Index}
}

// Distance calculates the Euclidean distance between two poses
func Distance(a, b Pose) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// Point returns the position as an orb point.
func (p Pose) Point() orb.Point {
	return orb.Point{p.X, p.Y}
}

// FromPoint creates a pose at pt facing along yaw.
func FromPoint(pt orb.Point, yaw float64) Pose {
	return New(pt[0], pt[1], yaw)
}

// Heading returns a pose at `to` facing away from `from`.
// When the two points coincide the heading of `from` is kept.
func Heading(from Pose, to orb.Point) Pose {
	dx, dy := to[0]-from.X, to[1]-from.Y
	if dx == 0 && dy == 0 {
		return Pose{X: to[0], Y: to[1], Yaw: from.Yaw}
	}
	return New(to[0], to[1], math.Atan2(dy, dx))
}

// Equal reports whether two poses match within tol, comparing yaw on the circle.
func Equal(a, b Pose, tol float64) bool {
	if math.Abs(a.X-b.X) > tol || math.Abs(a.Y-b.Y) > tol {
		return false
	}
	d := math.Abs(a.Yaw - b.Yaw)
	return math.Min(d, twoPi-d) <= tol
}

func (p Pose) String() string {
	return fmt.Sprintf("<Pose x:%4f, y:%4f, yaw:%4f>", p.X, p.Y, p.Yaw)
}
