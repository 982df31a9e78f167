// Package solver defines the binary assignment model handed to an LP engine.
// The model is engine-agnostic; gonum-backed solving lives under infra.
package solver

import (
	"context"
	"time"
)

// Status describes the outcome of a solve.
type Status string

const (
	StatusUnknown    Status = "unknown"
	StatusOptimal    Status = "optimal"
	StatusFeasible   Status = "feasible"
	StatusInfeasible Status = "infeasible"
	StatusInvalid    Status = "invalid"
)

// Decodable reports whether the solution values may be read out.
func (s Status) Decodable() bool {
	return s == StatusOptimal || s == StatusFeasible
}

// rank orders statuses from worst to best for aggregation.
func (s Status) rank() int {
	switch s {
	case StatusInvalid:
		return 0
	case StatusInfeasible:
		return 1
	case StatusUnknown:
		return 2
	case StatusFeasible:
		return 3
	case StatusOptimal:
		return 4
	}
	return 2
}

// Worst returns the worse of two statuses. A run spanning several solves
// reports the weakest outcome among them.
func Worst(a, b Status) Status {
	if a.rank() <= b.rank() {
		return a
	}
	return b
}

// RangeConstraint bounds the number of selected variables in a group.
type RangeConstraint struct {
	Vars []int
	Min  int
	Max  int
}

// Model is a pure binary assignment problem: maximize the objective subject
// to selection constraints over variable groups.
type Model struct {
	NumVars   int
	Objective []int64

	// ExactlyOne groups require exactly one selected variable each.
	ExactlyOne [][]int
	// AtMostOne groups allow at most one selected variable each.
	AtMostOne [][]int
	// Bounds constrain group selection counts to [Min, Max].
	Bounds []RangeConstraint
	// Fixed variables are forced to zero.
	Fixed []int
}

// Solution is the solver's answer. Values is only meaningful when the
// status is decodable.
type Solution struct {
	Status    Status
	Values    []bool
	Objective int64
}

// Solver solves one model within the timeout.
type Solver interface {
	Solve(ctx context.Context, m *Model, timeout time.Duration) (Solution, error)
}

// Value reports whether variable i is selected.
func (s Solution) Value(i int) bool {
	return i >= 0 && i < len(s.Values) && s.Values[i]
}
