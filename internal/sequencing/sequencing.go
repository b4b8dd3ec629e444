// Package sequencing orders subgoals to minimise the expected cost of
// reaching the goal.
//
// Visiting subgoals i1..ik from the current position costs, in expectation,
//
//	E = Σ_j Π_{m<j}(1−p_m)·(c_j + p_j·Δs_j + (1−p_j)·Δf_j) + Π_m(1−p_m)·B
//
// where c is the travel cost from the current position, p the probability
// the goal is reachable through the subgoal, Δs and Δf the extra cost on
// success and failure, and B the backup cost paid when every subgoal fails.
// Swapping two adjacent subgoals i, j changes E by a positive multiple of
// A_i·p_j − A_j·p_i with A = c + p·Δs + (1−p)·Δf, so sorting by A/p
// ascending is optimal.
package sequencing

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat/combin"

	"exploration-planner/internal/subgoal"
)

var (
	// ErrDegenerate indicates a plan has no subgoal to visit.
	ErrDegenerate = errors.New("sequencing: plan has no subgoals")

	// ErrTooMany indicates an exhaustive search was asked for too many subgoals.
	ErrTooMany = errors.New("sequencing: too many subgoals for exhaustive search")

	// ErrBadBackup indicates a negative or NaN backup cost.
	ErrBadBackup = errors.New("sequencing: backup cost must be non-negative")
)

// MaxExhaustive bounds Exhaustive; 8! orders are evaluated at most.
const MaxExhaustive = 8

// ratioTol is the relative tolerance under which two ratios tie.
const ratioTol = 1e-12

// Plan is an ordered visitation sequence.
type Plan struct {
	Order        []int   `json:"order" yaml:"order"`
	FirstCost    float64 `json:"first_cost" yaml:"first_cost"`
	ExpectedCost float64 `json:"expected_cost" yaml:"expected_cost"`
}

// First returns the subgoal to travel to next.
func (p Plan) First() (int, error) {
	if len(p.Order) == 0 {
		return 0, ErrDegenerate
	}
	return p.Order[0], nil
}

// Empty reports whether the plan visits no subgoal.
func (p Plan) Empty() bool {
	return len(p.Order) == 0
}

// Weight returns A = c + p·Δs + (1−p)·Δf, the expected cost of one attempt.
func Weight(c float64, s subgoal.Subgoal) float64 {
	return c + s.ProbFeasible*s.DeltaSuccessCost + (1-s.ProbFeasible)*s.ExplorationCost
}

// Ratio returns the sort key A/p; p = 0 gives +Inf.
func Ratio(c float64, s subgoal.Subgoal) float64 {
	if s.ProbFeasible <= 0 {
		return math.Inf(1)
	}
	return Weight(c, s) / s.ProbFeasible
}

// CheckBackup rejects backup costs that are negative or NaN. +Inf is allowed
// and means there is no fallback.
func CheckBackup(backup float64) error {
	if math.IsNaN(backup) || backup < 0 {
		return fmt.Errorf("%w: %v", ErrBadBackup, backup)
	}
	return nil
}

// candidate is a subgoal with a finite travel cost.
type candidate struct {
	s     subgoal.Subgoal
	c     float64
	ratio float64
}

func candidates(costs map[int]float64, subgoals []subgoal.Subgoal) []candidate {
	out := make([]candidate, 0, len(subgoals))
	for _, s := range subgoals {
		c, ok := costs[s.ID]
		if !ok || math.IsNaN(c) || math.IsInf(c, 0) || c < 0 {
			continue
		}
		out = append(out, candidate{s: s, c: c, ratio: Ratio(c, s)})
	}
	return out
}

func sameRatio(a, b float64) bool {
	if math.IsInf(a, 1) || math.IsInf(b, 1) {
		return math.IsInf(a, 1) && math.IsInf(b, 1)
	}
	return math.Abs(a-b) <= ratioTol*math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
}

// Compute orders the subgoals by ascending ratio. Subgoals without a finite,
// non-negative travel cost in costs are left out. Ratios within ratioTol of
// the first ratio of their run tie; ties break by lower travel cost, then the
// previously chosen subgoal, then lower ID. With nothing to visit the plan is
// empty and its expected cost is backup.
func Compute(costs map[int]float64, subgoals []subgoal.Subgoal, backup float64) Plan {
	cands := candidates(costs, subgoals)
	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].ratio != cands[j].ratio {
			return cands[i].ratio < cands[j].ratio
		}
		return tieLess(cands[i], cands[j])
	})
	for lo := 0; lo < len(cands); {
		hi := lo + 1
		for hi < len(cands) && sameRatio(cands[lo].ratio, cands[hi].ratio) {
			hi++
		}
		run := cands[lo:hi]
		sort.SliceStable(run, func(i, j int) bool { return tieLess(run[i], run[j]) })
		lo = hi
	}
	return newPlan(cands, backup)
}

func tieLess(a, b candidate) bool {
	if a.c != b.c {
		return a.c < b.c
	}
	if a.s.FromLastChosen != b.s.FromLastChosen {
		return a.s.FromLastChosen
	}
	return a.s.ID < b.s.ID
}

func newPlan(ordered []candidate, backup float64) Plan {
	p := Plan{Order: make([]int, len(ordered))}
	for i, c := range ordered {
		p.Order[i] = c.s.ID
	}
	if len(ordered) > 0 {
		p.FirstCost = ordered[0].c
	}
	p.ExpectedCost = expected(ordered, backup)
	return p
}

func expected(ordered []candidate, backup float64) float64 {
	total, fail := 0.0, 1.0
	for _, c := range ordered {
		total += fail * Weight(c.c, c.s)
		fail *= 1 - c.s.ProbFeasible
	}
	// A certain subgoal leaves nothing to fall back on, even with B = +Inf.
	if fail > 0 {
		total += fail * backup
	}
	return total
}

// ExpectedCost evaluates E for the given order of subgoal IDs.
func ExpectedCost(order []int, costs map[int]float64, subgoals []subgoal.Subgoal, backup float64) (float64, error) {
	byID := make(map[int]subgoal.Subgoal, len(subgoals))
	for _, s := range subgoals {
		byID[s.ID] = s
	}
	ordered := make([]candidate, 0, len(order))
	for _, id := range order {
		s, ok := byID[id]
		if !ok {
			return 0, fmt.Errorf("sequencing: unknown subgoal %d", id)
		}
		c, ok := costs[id]
		if !ok {
			return 0, fmt.Errorf("sequencing: no travel cost for subgoal %d", id)
		}
		ordered = append(ordered, candidate{s: s, c: c})
	}
	return expected(ordered, backup), nil
}

// Exhaustive evaluates every order of the plannable subgoals and returns the
// cheapest. It is a reference for Compute and is limited to MaxExhaustive
// subgoals.
func Exhaustive(costs map[int]float64, subgoals []subgoal.Subgoal, backup float64) (Plan, error) {
	cands := candidates(costs, subgoals)
	n := len(cands)
	if n > MaxExhaustive {
		return Plan{}, fmt.Errorf("%w: %d > %d", ErrTooMany, n, MaxExhaustive)
	}
	if n == 0 {
		return newPlan(nil, backup), nil
	}

	var best []candidate
	var bestCost float64
	ordered := make([]candidate, n)
	for _, perm := range combin.Permutations(n, n) {
		for i, k := range perm {
			ordered[i] = cands[k]
		}
		if e := expected(ordered, backup); best == nil || e < bestCost {
			bestCost = e
			best = append(best[:0], ordered...)
		}
	}
	return newPlan(best, backup), nil
}
