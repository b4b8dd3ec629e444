package sequencing_test

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats/scalar"

	"exploration-planner/internal/sequencing"
	"exploration-planner/internal/subgoal"
)

func sg(id int, p, ds, df float64) subgoal.Subgoal {
	return subgoal.Subgoal{
		ID:       id,
		Estimate: subgoal.Estimate{ProbFeasible: p, DeltaSuccessCost: ds, ExplorationCost: df},
	}
}

func TestCompute_ReferenceScenario(t *testing.T) {
	subgoals := []subgoal.Subgoal{
		sg(3, 0.1, 0, 1),
		sg(1, 0.9, 0, 5),
		sg(2, 0.5, 0, 2),
	}
	costs := map[int]float64{1: 1, 2: 2, 3: 0.5}

	for _, backup := range []float64{0, 10, 100} {
		plan := sequencing.Compute(costs, subgoals, backup)
		assert.Equal(t, []int{1, 2, 3}, plan.Order)
		assert.Equal(t, 1.0, plan.FirstCost)
		assert.InDelta(t, 1.87+0.045*backup, plan.ExpectedCost, 1e-12, "backup=%v", backup)
	}
}

func TestCompute_MatchesExhaustive(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for trial := 0; trial < 500; trial++ {
		n := 1 + rng.Intn(6)
		costs := make(map[int]float64, n)
		subgoals := make([]subgoal.Subgoal, n)
		for i := range subgoals {
			p := rng.Float64()
			switch rng.Intn(6) {
			case 0:
				p = 0
			case 1:
				p = 1
			}
			subgoals[i] = sg(i, p, 10*rng.Float64(), 10*rng.Float64())
			costs[i] = 10 * rng.Float64()
		}
		backup := 100 * rng.Float64()

		greedy := sequencing.Compute(costs, subgoals, backup)
		best, err := sequencing.Exhaustive(costs, subgoals, backup)
		require.NoError(t, err)

		require.Len(t, greedy.Order, n)
		assert.True(t,
			scalar.EqualWithinAbsOrRel(greedy.ExpectedCost, best.ExpectedCost, 1e-9, 1e-9),
			"trial %d: greedy %v (%v) exhaustive %v (%v)",
			trial, greedy.Order, greedy.ExpectedCost, best.Order, best.ExpectedCost)
	}
}

func TestCompute_AllInfeasible(t *testing.T) {
	subgoals := []subgoal.Subgoal{sg(1, 0, 3, 4), sg(2, 0, 1, 2)}
	costs := map[int]float64{1: 1, 2: 5}

	plan := sequencing.Compute(costs, subgoals, 50)
	// Equal infinite ratios fall back to the lower travel cost.
	assert.Equal(t, []int{1, 2}, plan.Order)
	assert.InDelta(t, (1+4)+(5+2)+50.0, plan.ExpectedCost, 1e-12)
}

func TestCompute_CertainSubgoal(t *testing.T) {
	plan := sequencing.Compute(map[int]float64{4: 2.5}, []subgoal.Subgoal{sg(4, 1, 3, 99)}, 1000)
	assert.Equal(t, []int{4}, plan.Order)
	assert.InDelta(t, 5.5, plan.ExpectedCost, 1e-12)
	assert.Equal(t, 5.5, sequencing.Ratio(2.5, sg(4, 1, 3, 99)))
}

func TestCompute_Empty(t *testing.T) {
	plan := sequencing.Compute(nil, nil, 42)
	assert.True(t, plan.Empty())
	assert.Equal(t, 42.0, plan.ExpectedCost)

	_, err := plan.First()
	assert.ErrorIs(t, err, sequencing.ErrDegenerate)
}

func TestCompute_DropsUnreachable(t *testing.T) {
	subgoals := []subgoal.Subgoal{sg(1, 0.5, 1, 1), sg(2, 0.5, 1, 1), sg(3, 0.5, 1, 1)}
	costs := map[int]float64{1: math.Inf(1), 3: 2}

	plan := sequencing.Compute(costs, subgoals, 10)
	assert.Equal(t, []int{3}, plan.Order)
	first, err := plan.First()
	require.NoError(t, err)
	assert.Equal(t, 3, first)
}

func TestCompute_TieBreaks(t *testing.T) {
	a, b, c := sg(5, 0.5, 0, 0), sg(2, 0.5, 0, 0), sg(9, 0.5, 0, 0)
	c.FromLastChosen = true
	costs := map[int]float64{5: 1, 2: 1, 9: 1}

	plan := sequencing.Compute(costs, []subgoal.Subgoal{a, b, c}, 0)
	assert.Equal(t, []int{9, 2, 5}, plan.Order, "previous choice, then lower id")
}

func TestCompute_NearTiesAreOrderIndependent(t *testing.T) {
	// Ratios 2, 2+eps and 2+2eps: each neighbour pair is within the tie
	// tolerance, the outer pair is not.
	eps := 1.5e-12
	subgoals := []subgoal.Subgoal{sg(1, 1, 2*eps, 0), sg(2, 1, 1+eps, 0), sg(3, 1, 0, 0)}
	costs := map[int]float64{1: 2, 2: 1, 3: 2}

	want := sequencing.Compute(costs, subgoals, 0).Order
	require.Len(t, want, 3)
	for _, perm := range [][]int{{0, 2, 1}, {1, 0, 2}, {1, 2, 0}, {2, 0, 1}, {2, 1, 0}} {
		shuffled := make([]subgoal.Subgoal, len(perm))
		for i, k := range perm {
			shuffled[i] = subgoals[k]
		}
		assert.Equal(t, want, sequencing.Compute(costs, shuffled, 0).Order, "input order %v", perm)
	}
	assert.Equal(t, []int{2, 3, 1}, want, "cheaper travel wins the tie with the lowest ratio")
}

func TestCompute_InfiniteBackup(t *testing.T) {
	plan := sequencing.Compute(map[int]float64{1: 2}, []subgoal.Subgoal{sg(1, 1, 3, 0)}, math.Inf(1))
	assert.Equal(t, []int{1}, plan.Order)
	assert.Equal(t, 5.0, plan.ExpectedCost)

	plan = sequencing.Compute(map[int]float64{1: 2}, []subgoal.Subgoal{sg(1, 0.5, 3, 0)}, math.Inf(1))
	assert.True(t, math.IsInf(plan.ExpectedCost, 1))
}

func TestExhaustive_InfiniteBackup(t *testing.T) {
	subgoals := []subgoal.Subgoal{sg(1, 0.5, 1, 1), sg(2, 0.2, 1, 1)}
	costs := map[int]float64{1: 1, 2: 1}

	plan, err := sequencing.Exhaustive(costs, subgoals, math.Inf(1))
	require.NoError(t, err)
	assert.Len(t, plan.Order, 2)
	assert.True(t, math.IsInf(plan.ExpectedCost, 1))

	subgoals = append(subgoals, sg(3, 1, 0, 0))
	costs[3] = 4
	plan, err = sequencing.Exhaustive(costs, subgoals, math.Inf(1))
	require.NoError(t, err)
	assert.Len(t, plan.Order, 3)
	assert.False(t, math.IsInf(plan.ExpectedCost, 1))
}

func TestCheckBackup(t *testing.T) {
	assert.NoError(t, sequencing.CheckBackup(0))
	assert.NoError(t, sequencing.CheckBackup(math.Inf(1)))
	assert.ErrorIs(t, sequencing.CheckBackup(-1), sequencing.ErrBadBackup)
	assert.ErrorIs(t, sequencing.CheckBackup(math.NaN()), sequencing.ErrBadBackup)
}

func TestExpectedCost(t *testing.T) {
	subgoals := []subgoal.Subgoal{sg(1, 0.9, 0, 5), sg(2, 0.5, 0, 2), sg(3, 0.1, 0, 1)}
	costs := map[int]float64{1: 1, 2: 2, 3: 0.5}

	e, err := sequencing.ExpectedCost([]int{3, 2, 1}, costs, subgoals, 100)
	require.NoError(t, err)
	// 1.4 + 0.9·3 + 0.45·1.5 + 0.045·100
	assert.InDelta(t, 9.275, e, 1e-12)

	_, err = sequencing.ExpectedCost([]int{7}, costs, subgoals, 100)
	assert.Error(t, err)
}

func TestExhaustive_TooMany(t *testing.T) {
	var subgoals []subgoal.Subgoal
	costs := map[int]float64{}
	for i := 0; i <= sequencing.MaxExhaustive; i++ {
		subgoals = append(subgoals, sg(i, 0.5, 1, 1))
		costs[i] = 1
	}
	_, err := sequencing.Exhaustive(costs, subgoals, 10)
	assert.ErrorIs(t, err, sequencing.ErrTooMany)
}
