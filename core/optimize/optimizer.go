// Package optimize assembles and solves the weekly block assignment problem.
// Blocks and drivers are partitioned by contract type and each partition is
// solved independently; the run reports the weakest partition status.
package optimize

import (
	"context"
	"math"
	"time"

	"github.com/Dshy007/blockassign/core/logger"
	"github.com/Dshy007/blockassign/core/model"
	"github.com/Dshy007/blockassign/core/solver"
)

// Fairness slider limits. minDays 5 demands an exact split; lower settings
// widen the band around it.
const (
	MinDaysFloor = 3
	MinDaysCeil  = 5

	// DefaultScoreScale converts fractional scores to integer objective
	// weights.
	DefaultScoreScale = 1000

	// DefaultTimeout bounds each partition solve.
	DefaultTimeout = 30 * time.Second
)

// Preference overrides the fairness band for one driver.
type Preference struct {
	MinDays     int      `json:"minDays,omitempty"`
	MaxDays     int      `json:"maxDays,omitempty"`
	AllowedDays []string `json:"allowedDays,omitempty"`
}

// Request is one optimization problem: pre-scored driver-block pairs plus
// the fairness settings.
type Request struct {
	Drivers     []model.Driver
	Blocks      []model.Block
	Scores      model.ScoreMatrix
	Matches     map[string]map[string]string
	MinDays     int
	Preferences map[string]Preference
	ScoreScale  int
	Timeout     time.Duration
}

// Stats summarizes one run for the caller.
type Stats struct {
	TotalBlocks  int    `json:"totalBlocks"`
	TotalDrivers int    `json:"totalDrivers"`
	Assigned     int    `json:"assigned"`
	Unassigned   int    `json:"unassigned"`
	SolverStatus string `json:"solverStatus"`
}

// Result is the outcome of one run. Every input block appears exactly once,
// either assigned or in the unassigned list.
type Result struct {
	Assignments []model.Assignment `json:"assignments"`
	Unassigned  []string           `json:"unassigned"`
	Stats       Stats              `json:"stats"`
}

// Optimizer solves assignment requests with a pluggable solver.
type Optimizer struct {
	solver solver.Solver
	log    logger.Logger
}

// New builds an optimizer.
func New(s solver.Solver, log logger.Logger) *Optimizer {
	return &Optimizer{solver: s, log: log}
}

// variable is one candidate pairing inside a partition.
type variable struct {
	block  model.Block
	driver model.Driver
	score  float64
	match  string
}

// Run solves the request. It only errors on context cancellation; domain
// outcomes, including infeasibility, are reported through the stats.
func (o *Optimizer) Run(ctx context.Context, req Request) (Result, error) {
	minDays := clampMinDays(req.MinDays)
	scale := req.ScoreScale
	if scale <= 0 {
		scale = DefaultScoreScale
	}
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	res := Result{
		Assignments: []model.Assignment{},
		Unassigned:  []string{},
		Stats: Stats{
			TotalBlocks:  len(req.Blocks),
			TotalDrivers: len(req.Drivers),
			SolverStatus: string(solver.StatusOptimal),
		},
	}
	if len(req.Blocks) == 0 {
		return res, nil
	}

	blocksByContract := make(map[string][]model.Block)
	var contracts []string
	for _, b := range req.Blocks {
		ct := b.Contract()
		if _, ok := blocksByContract[ct]; !ok {
			contracts = append(contracts, ct)
		}
		blocksByContract[ct] = append(blocksByContract[ct], b)
	}
	driversByContract := make(map[string][]model.Driver)
	for _, d := range req.Drivers {
		ct := d.Contract()
		driversByContract[ct] = append(driversByContract[ct], d)
	}

	overall := solver.StatusOptimal
	assignedBlocks := make(map[string]bool)
	for _, ct := range contracts {
		blocks := blocksByContract[ct]
		part := o.solvePartition(ctx, partitionInput{
			contract: ct,
			blocks:   blocks,
			drivers:  driversByContract[ct],
			scores:   req.Scores,
			matches:  req.Matches,
			minDays:  minDays,
			prefs:    req.Preferences,
			scale:    scale,
			timeout:  timeout,
		})
		if part.err != nil {
			return Result{}, part.err
		}
		overall = solver.Worst(overall, part.status)
		for _, a := range part.assignments {
			assignedBlocks[a.BlockID] = true
			res.Assignments = append(res.Assignments, a)
		}
	}

	for _, b := range req.Blocks {
		if !assignedBlocks[b.ID] {
			res.Unassigned = append(res.Unassigned, b.ID)
		}
	}
	res.Stats.Assigned = len(res.Assignments)
	res.Stats.Unassigned = len(res.Unassigned)
	res.Stats.SolverStatus = string(overall)
	return res, nil
}

type partitionInput struct {
	contract string
	blocks   []model.Block
	drivers  []model.Driver
	scores   model.ScoreMatrix
	matches  map[string]map[string]string
	minDays  int
	prefs    map[string]Preference
	scale    int
	timeout  time.Duration
}

type partitionResult struct {
	status      solver.Status
	assignments []model.Assignment
	err         error
}

func (o *Optimizer) solvePartition(ctx context.Context, in partitionInput) partitionResult {
	// Candidate variables: positive-score pairs only. Drivers with no
	// candidate pair drop out of the partition entirely.
	var vars []variable
	activeDrivers := make(map[string]bool)
	for _, b := range in.blocks {
		for _, d := range in.drivers {
			score := in.scores.Get(b.ID, d.ID)
			if score <= 0 {
				continue
			}
			vars = append(vars, variable{
				block:  b,
				driver: d,
				score:  score,
				match:  matchFor(in.matches, b.ID, d.ID),
			})
			activeDrivers[d.ID] = true
		}
	}
	if len(vars) == 0 {
		o.log.Warnf("contract %s: no scorable driver-block pairs for %d blocks", in.contract, len(in.blocks))
		return partitionResult{status: solver.StatusUnknown}
	}

	m := o.buildModel(in, vars, len(activeDrivers))
	sol, err := o.solver.Solve(ctx, m, in.timeout)
	if err != nil {
		if ctx.Err() != nil {
			return partitionResult{err: ctx.Err()}
		}
		o.log.Errorf("contract %s: solve failed: %v", in.contract, err)
		return partitionResult{status: solver.StatusUnknown}
	}
	o.log.Infof("contract %s: %s, objective %d", in.contract, sol.Status, sol.Objective)
	if !sol.Status.Decodable() {
		return partitionResult{status: sol.Status}
	}

	out := partitionResult{status: sol.Status}
	for i, v := range vars {
		if !sol.Value(i) {
			continue
		}
		out.assignments = append(out.assignments, model.Assignment{
			BlockID:      v.block.ID,
			DriverID:     v.driver.ID,
			DriverName:   v.driver.Name,
			ServiceDate:  v.block.ServiceDate,
			Day:          blockDay(v.block),
			Time:         v.block.Time,
			ContractType: in.contract,
			MatchType:    v.match,
			Score:        v.score,
		})
	}
	return out
}

func (o *Optimizer) buildModel(in partitionInput, vars []variable, numDrivers int) *solver.Model {
	m := &solver.Model{
		NumVars:   len(vars),
		Objective: make([]int64, len(vars)),
	}
	for i, v := range vars {
		m.Objective[i] = int64(math.Round(v.score * float64(in.scale)))
	}

	blockVars := make(map[string][]int)
	driverVars := make(map[string][]int)
	driverDateVars := make(map[string][]int)
	for i, v := range vars {
		blockVars[v.block.ID] = append(blockVars[v.block.ID], i)
		driverVars[v.driver.ID] = append(driverVars[v.driver.ID], i)
		// Undated blocks carry no calendar conflict, so they never share a
		// driver-day group.
		if v.block.ServiceDate != "" {
			dk := v.driver.ID + "@" + v.block.ServiceDate
			driverDateVars[dk] = append(driverDateVars[dk], i)
		}
	}

	for _, b := range in.blocks {
		if group := blockVars[b.ID]; len(group) > 1 {
			m.AtMostOne = append(m.AtMostOne, group)
		}
	}
	for _, group := range driverDateVars {
		if len(group) > 1 {
			m.AtMostOne = append(m.AtMostOne, group)
		}
	}

	// Fairness band around the even split, widened as the slider loosens.
	slack := MinDaysCeil - in.minDays
	base := len(in.blocks) / numDrivers
	lower := base - slack
	upper := (len(in.blocks)+numDrivers-1)/numDrivers + slack
	if lower < 0 {
		lower = 0
	}
	if upper > len(in.blocks) {
		upper = len(in.blocks)
	}

	for _, d := range in.drivers {
		group, ok := driverVars[d.ID]
		if !ok {
			continue
		}
		lo, hi := lower, upper
		if pref, ok := in.prefs[d.ID]; ok {
			if pref.MinDays > 0 {
				lo = pref.MinDays
			}
			if pref.MaxDays > 0 {
				hi = pref.MaxDays
			}
			if len(pref.AllowedDays) > 0 {
				allowed := make(map[string]bool, len(pref.AllowedDays))
				for _, day := range pref.AllowedDays {
					allowed[day] = true
				}
				for _, i := range group {
					if !allowed[blockDay(vars[i].block)] {
						m.Fixed = append(m.Fixed, i)
					}
				}
			}
		}
		if lo > hi {
			lo = hi
		}
		m.Bounds = append(m.Bounds, solver.RangeConstraint{Vars: group, Min: lo, Max: hi})
	}
	return m
}

func matchFor(matches map[string]map[string]string, blockID, driverID string) string {
	if matches == nil {
		return model.MatchPrecomputed
	}
	if mt := matches[blockID][driverID]; mt != "" {
		return mt
	}
	return model.MatchPrecomputed
}

func blockDay(b model.Block) string {
	if b.Day != "" {
		return b.Day
	}
	if wd, err := b.Weekday(); err == nil {
		return model.DayNames[wd]
	}
	return ""
}

func clampMinDays(v int) int {
	if v < MinDaysFloor {
		return MinDaysFloor
	}
	if v > MinDaysCeil {
		return MinDaysCeil
	}
	return v
}
