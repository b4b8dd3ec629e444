package pose_test

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"exploration-planner/internal/pose"
)

func randomPose(rng *rand.Rand) pose.Pose {
	return pose.New(rng.Float64()*20-10, rng.Float64()*20-10, rng.Float64()*4*math.Pi-2*math.Pi)
}

func TestCompose_Associative(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 200; i++ {
		a, b, c := randomPose(rng), randomPose(rng), randomPose(rng)
		left := pose.Compose(pose.Compose(a, b), c)
		right := pose.Compose(a, pose.Compose(b, c))
		require.Truef(t, pose.Equal(left, right, 1e-9), "(a⊙b)⊙c=%v a⊙(b⊙c)=%v", left, right)
	}
}

func TestCompose_AppliesInFrameOfFirst(t *testing.T) {
	b := pose.New(1, 2, math.Pi/2)
	a := pose.New(3, 0, math.Pi)
	got := pose.Compose(b, a)

	assert.InDelta(t, 1.0, got.X, 1e-12)
	assert.InDelta(t, 5.0, got.Y, 1e-12)
	assert.InDelta(t, 3*math.Pi/2, got.Yaw, 1e-12)
}

func TestWrapYaw(t *testing.T) {
	cases := []struct {
		name string
		in   float64
		want float64
	}{
		{"Zero", 0, 0},
		{"FullTurn", 2 * math.Pi, 0},
		{"Negative", -math.Pi / 2, 3 * math.Pi / 2},
		{"Large", 5 * math.Pi, math.Pi},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := pose.WrapYaw(tc.in)
			assert.InDelta(t, tc.want, got, 1e-12)
			assert.GreaterOrEqual(t, got, 0.0)
			assert.Less(t, got, 2*math.Pi)
		})
	}
}

func TestSequence_IndexIsDiagnosticOnly(t *testing.T) {
	var seq pose.Sequence
	a := seq.New(1, 1, 0)
	b := seq.New(1, 1, 0)

	assert.Less(t, a.Index, b.Index)
	assert.True(t, pose.Equal(a, b, 0))
}

func TestHeading(t *testing.T) {
	from := pose.New(0, 0, 1)
	got := pose.Heading(from, [2]float64{0, 2})
	assert.InDelta(t, math.Pi/2, got.Yaw, 1e-12)

	same := pose.Heading(from, [2]float64{0, 0})
	assert.Equal(t, 1.0, same.Yaw)
}
