// Package solver provides the gonum simplex implementation of the core
// solver contract.
package solver

import (
	"context"
	"errors"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"

	"github.com/Dshy007/blockassign/core/logger"
	coresolver "github.com/Dshy007/blockassign/core/solver"
)

const (
	simplexTol = 1e-7
	// Values this close to an integer are treated as integral; the
	// constraint matrices produced by the optimizer have integral vertices
	// in the common case.
	integralityTol = 1e-6
)

// Simplex solves binary assignment models through the LP relaxation. When
// the relaxed optimum is integral the answer is exact; otherwise a greedy
// rounding pass produces a feasible (but possibly suboptimal) selection.
type Simplex struct {
	log logger.Logger
}

// New returns a simplex-backed solver.
func New(log logger.Logger) *Simplex {
	return &Simplex{log: log}
}

// lpSolve points to the function used to solve the relaxation. Overridable
// in tests to simulate solver failures.
var lpSolve = solveRelaxation

// Solve implements solver.Solver.
func (s *Simplex) Solve(ctx context.Context, m *coresolver.Model, timeout time.Duration) (coresolver.Solution, error) {
	if m.NumVars <= 0 || len(m.Objective) != m.NumVars {
		return coresolver.Solution{Status: coresolver.StatusInvalid}, nil
	}

	type outcome struct {
		sol coresolver.Solution
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		sol, err := s.solve(m)
		done <- outcome{sol, err}
	}()

	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case out := <-done:
		return out.sol, out.err
	case <-ctx.Done():
		return coresolver.Solution{Status: coresolver.StatusUnknown}, ctx.Err()
	case <-timer.C:
		s.log.Warnf("solver timed out after %s", timeout)
		return coresolver.Solution{Status: coresolver.StatusUnknown}, nil
	}
}

func (s *Simplex) solve(m *coresolver.Model) (coresolver.Solution, error) {
	frac, err := lpSolve(m)
	switch {
	case errors.Is(err, lp.ErrInfeasible):
		return coresolver.Solution{Status: coresolver.StatusInfeasible}, nil
	case errors.Is(err, lp.ErrUnbounded):
		return coresolver.Solution{Status: coresolver.StatusInvalid}, nil
	case err != nil:
		s.log.Errorf("simplex failed: %v", err)
		return coresolver.Solution{Status: coresolver.StatusUnknown}, err
	}

	values := make([]bool, m.NumVars)
	integral := true
	for i, v := range frac {
		if v > 0.5 {
			values[i] = true
		}
		if math.Min(math.Abs(v), math.Abs(v-1)) > integralityTol {
			integral = false
		}
	}

	if integral && satisfies(m, values) {
		return coresolver.Solution{
			Status:    coresolver.StatusOptimal,
			Values:    values,
			Objective: objective(m, values),
		}, nil
	}

	s.log.Debugf("fractional relaxation, repairing greedily")
	repaired, ok := repair(m, frac)
	if !ok {
		return coresolver.Solution{Status: coresolver.StatusInfeasible}, nil
	}
	return coresolver.Solution{
		Status:    coresolver.StatusFeasible,
		Values:    repaired,
		Objective: objective(m, repaired),
	}, nil
}

// solveRelaxation builds the LP relaxation in general form and solves it.
// Maximization becomes minimization of the negated objective; every variable
// is boxed into [0,1].
func solveRelaxation(m *coresolver.Model) ([]float64, error) {
	n := m.NumVars
	c := make([]float64, n)
	for i, w := range m.Objective {
		c[i] = -float64(w)
	}

	rows := 2*n + len(m.AtMostOne) + 2*len(m.Bounds) + len(m.Fixed)
	g := mat.NewDense(rows, n, nil)
	h := make([]float64, rows)
	r := 0
	for i := 0; i < n; i++ {
		g.Set(r, i, 1)
		h[r] = 1
		r++
		g.Set(r, i, -1)
		h[r] = 0
		r++
	}
	for _, group := range m.AtMostOne {
		for _, i := range group {
			g.Set(r, i, 1)
		}
		h[r] = 1
		r++
	}
	for _, b := range m.Bounds {
		for _, i := range b.Vars {
			g.Set(r, i, 1)
			g.Set(r+1, i, -1)
		}
		h[r] = float64(b.Max)
		h[r+1] = -float64(b.Min)
		r += 2
	}
	for _, i := range m.Fixed {
		g.Set(r, i, 1)
		h[r] = 0
		r++
	}

	// a stays a nil interface when there are no equality constraints;
	// lp.Convert accepts that.
	var a mat.Matrix
	var b []float64
	if len(m.ExactlyOne) > 0 {
		eq := mat.NewDense(len(m.ExactlyOne), n, nil)
		b = make([]float64, len(m.ExactlyOne))
		for row, group := range m.ExactlyOne {
			for _, i := range group {
				eq.Set(row, i, 1)
			}
			b[row] = 1
		}
		a = eq
	}

	cStd, aStd, bStd := lp.Convert(c, g, h, a, b)
	_, sol, err := lp.Simplex(cStd, aStd, bStd, simplexTol, nil)
	if err != nil {
		return nil, err
	}

	// Convert splits each free variable into a positive and negative part.
	x := make([]float64, n)
	for i := 0; i < n; i++ {
		x[i] = sol[i] - sol[n+i]
	}
	return x, nil
}

// repair builds an integral selection guided by the fractional solution:
// variables are taken in decreasing fractional weight as long as they keep
// every constraint satisfiable, then lower bounds are checked.
func repair(m *coresolver.Model, frac []float64) ([]bool, bool) {
	fixed := make([]bool, m.NumVars)
	for _, i := range m.Fixed {
		fixed[i] = true
	}

	order := make([]int, m.NumVars)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		if frac[order[a]] != frac[order[b]] {
			return frac[order[a]] > frac[order[b]]
		}
		return m.Objective[order[a]] > m.Objective[order[b]]
	})

	values := make([]bool, m.NumVars)
	oneCount := make([]int, len(m.ExactlyOne)+len(m.AtMostOne))
	boundCount := make([]int, len(m.Bounds))
	oneGroups := groupIndex(m.NumVars, append(append([][]int{}, m.ExactlyOne...), m.AtMostOne...))
	boundGroups := groupIndex(m.NumVars, boundVarGroups(m.Bounds))

	for _, i := range order {
		if fixed[i] || frac[i] <= 0 {
			continue
		}
		ok := true
		for _, gi := range oneGroups[i] {
			if oneCount[gi] >= 1 {
				ok = false
				break
			}
		}
		if ok {
			for _, bi := range boundGroups[i] {
				if boundCount[bi] >= m.Bounds[bi].Max {
					ok = false
					break
				}
			}
		}
		if !ok {
			continue
		}
		values[i] = true
		for _, gi := range oneGroups[i] {
			oneCount[gi]++
		}
		for _, bi := range boundGroups[i] {
			boundCount[bi]++
		}
	}

	if !satisfies(m, values) {
		return nil, false
	}
	return values, true
}

func boundVarGroups(bounds []coresolver.RangeConstraint) [][]int {
	groups := make([][]int, len(bounds))
	for i, b := range bounds {
		groups[i] = b.Vars
	}
	return groups
}

// groupIndex maps each variable to the indices of the groups containing it.
func groupIndex(numVars int, groups [][]int) [][]int {
	idx := make([][]int, numVars)
	for gi, group := range groups {
		for _, v := range group {
			idx[v] = append(idx[v], gi)
		}
	}
	return idx
}

// satisfies checks an integral selection against every model constraint.
func satisfies(m *coresolver.Model, values []bool) bool {
	count := func(group []int) int {
		n := 0
		for _, i := range group {
			if values[i] {
				n++
			}
		}
		return n
	}
	for _, group := range m.ExactlyOne {
		if count(group) != 1 {
			return false
		}
	}
	for _, group := range m.AtMostOne {
		if count(group) > 1 {
			return false
		}
	}
	for _, b := range m.Bounds {
		n := count(b.Vars)
		if n < b.Min || n > b.Max {
			return false
		}
	}
	for _, i := range m.Fixed {
		if values[i] {
			return false
		}
	}
	return true
}

func objective(m *coresolver.Model, values []bool) int64 {
	var total int64
	for i, v := range values {
		if v {
			total += m.Objective[i]
		}
	}
	return total
}
