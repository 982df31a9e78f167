// Package engine orchestrates the actions exposed over the stdio protocol:
// weekly optimization, pattern clustering, prediction and slot ownership.
package engine

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Dshy007/blockassign/core/availability"
	"github.com/Dshy007/blockassign/core/logger"
	"github.com/Dshy007/blockassign/core/model"
	"github.com/Dshy007/blockassign/core/optimize"
	"github.com/Dshy007/blockassign/core/ownership"
	"github.com/Dshy007/blockassign/core/scoring"
	"github.com/Dshy007/blockassign/core/solver"
	"github.com/Dshy007/blockassign/internal/eventbus"
	"github.com/Dshy007/blockassign/internal/protocol"
)

// Config carries the engine's tunables.
type Config struct {
	// DefaultMinDays applies when a request leaves minDays unset.
	DefaultMinDays     int
	ScoreScale         int
	SolveTimeout       time.Duration
	OwnershipStatePath string
}

// Engine wires the scoring cascade, the optimizer and the ownership
// classifier behind a single action handler.
type Engine struct {
	log       logger.Logger
	solver    solver.Solver
	estimator func() availability.Estimator
	cfg       Config

	runs    *eventbus.Bus[eventbus.RunEvent]
	assigns *eventbus.Bus[eventbus.AssignmentEvent]

	newRunID func() string
	now      func() time.Time
}

// New builds an engine. The estimator factory is invoked once per run so
// each optimization trains on exactly the histories it was given.
func New(log logger.Logger, s solver.Solver, estimator func() availability.Estimator, cfg Config,
	runs *eventbus.Bus[eventbus.RunEvent], assigns *eventbus.Bus[eventbus.AssignmentEvent]) *Engine {
	return &Engine{
		log:       log,
		solver:    s,
		estimator: estimator,
		cfg:       cfg,
		runs:      runs,
		assigns:   assigns,
		newRunID:  uuid.NewString,
		now:       time.Now,
	}
}

// Handle dispatches one request. Domain failures come back as success:false
// payloads; the returned error is reserved for context cancellation.
func (e *Engine) Handle(ctx context.Context, req *protocol.Request) (any, error) {
	switch req.Action {
	case protocol.ActionOptimize:
		return e.Optimize(ctx, req)
	case protocol.ActionOptimizeWithScores:
		return e.OptimizeWithScores(ctx, req)
	case protocol.ActionCluster:
		return e.Cluster(req), nil
	case protocol.ActionPredict:
		// Histories select the pattern predictor; a bare slot key asks the
		// ownership classifier instead.
		if len(req.DriverHistories) > 0 {
			return e.PredictPatterns(req), nil
		}
		return e.PredictOwner(req), nil
	case protocol.ActionTrain:
		return e.TrainOwnership(req), nil
	case protocol.ActionGetDistribution:
		return e.Distribution(req), nil
	case protocol.ActionGetDriverPattern:
		return e.DriverPattern(req), nil
	case protocol.ActionGetAllPatterns:
		return e.AllPatterns(req), nil
	default:
		return protocol.Failf("unknown action: %q", req.Action), nil
	}
}

// OptimizeResponse is the result shape shared by both optimization actions.
type OptimizeResponse struct {
	Success     bool               `json:"success"`
	Assignments []model.Assignment `json:"assignments"`
	Unassigned  []string           `json:"unassigned"`
	Stats       optimize.Stats     `json:"stats"`
	Scorer      string             `json:"scorer,omitempty"`
}

// Optimize scores drivers against blocks and solves the assignment problem.
func (e *Engine) Optimize(ctx context.Context, req *protocol.Request) (any, error) {
	start := e.now()
	runID := e.newRunID()
	e.log.Infof("run %s: optimize, %d drivers, %d blocks, minDays=%d",
		runID, len(req.Drivers), len(req.Blocks), req.MinDays)

	histories := normalizeHistories(req.DriverHistories)
	sctx := scoring.NewContext(histories, req.SlotHistory)
	eligible := eligibleDrivers(req.Drivers, sctx)
	if dropped := len(req.Drivers) - len(eligible); dropped > 0 {
		e.log.Debugf("run %s: %d drivers excluded for empty history", runID, dropped)
	}

	cascade := scoring.NewCascade(e.log,
		scoring.NewModelScorer(e.estimator()),
		scoring.NewAffinityScorer(),
		scoring.NewRawHistoryScorer(),
	)
	if err := cascade.Init(sctx); err != nil {
		return protocol.Fail(err), nil
	}
	matrix := scoring.Build(cascade, eligible, req.Blocks)

	res, err := e.runOptimizer(ctx, optimize.Request{
		Drivers:     eligible,
		Blocks:      req.Blocks,
		Scores:      matrix.Scores,
		Matches:     matrix.Matches,
		MinDays:     req.MinDays,
		Preferences: req.DriverPreferences,
	}, runID, req.Action, matrix.Scorer, start)
	if err != nil {
		return nil, err
	}
	return OptimizeResponse{
		Success:     true,
		Assignments: res.Assignments,
		Unassigned:  res.Unassigned,
		Stats:       res.Stats,
		Scorer:      matrix.Scorer,
	}, nil
}

// OptimizeWithScores solves with a caller-supplied score matrix, skipping
// extraction and scoring entirely.
func (e *Engine) OptimizeWithScores(ctx context.Context, req *protocol.Request) (any, error) {
	start := e.now()
	runID := e.newRunID()
	e.log.Infof("run %s: optimize_with_scores, %d drivers, %d blocks",
		runID, len(req.Drivers), len(req.Blocks))

	scores := make(model.ScoreMatrix, len(req.ScoreMatrix))
	for blockID, row := range req.ScoreMatrix {
		for driverID, s := range row {
			scores.Set(blockID, driverID, s)
		}
	}

	res, err := e.runOptimizer(ctx, optimize.Request{
		Drivers:     req.Drivers,
		Blocks:      req.Blocks,
		Scores:      scores,
		MinDays:     req.MinDays,
		Preferences: req.DriverPreferences,
	}, runID, req.Action, model.MatchPrecomputed, start)
	if err != nil {
		return nil, err
	}
	return OptimizeResponse{
		Success:     true,
		Assignments: res.Assignments,
		Unassigned:  res.Unassigned,
		Stats:       res.Stats,
	}, nil
}

func (e *Engine) runOptimizer(ctx context.Context, oreq optimize.Request, runID, action, scorer string, start time.Time) (optimize.Result, error) {
	if oreq.MinDays == 0 && e.cfg.DefaultMinDays > 0 {
		oreq.MinDays = e.cfg.DefaultMinDays
	}
	oreq.ScoreScale = e.cfg.ScoreScale
	oreq.Timeout = e.cfg.SolveTimeout

	res, err := optimize.New(e.solver, e.log).Run(ctx, oreq)
	ev := eventbus.RunEvent{
		RunID:       runID,
		Action:      action,
		Scorer:      scorer,
		TotalBlocks: len(oreq.Blocks),
		Duration:    e.now().Sub(start),
		Err:         err,
	}
	if err == nil {
		ev.SolverStatus = res.Stats.SolverStatus
		ev.Assigned = res.Stats.Assigned
		ev.Unassigned = res.Stats.Unassigned
		for _, a := range res.Assignments {
			e.assigns.Publish(eventbus.AssignmentEvent{
				RunID:     runID,
				BlockID:   a.BlockID,
				DriverID:  a.DriverID,
				MatchType: a.MatchType,
				Score:     a.Score,
			})
		}
	}
	e.runs.Publish(ev)
	return res, err
}

// eligibleDrivers drops drivers with no historical signal at all: nothing
// to score means nothing to assign.
func eligibleDrivers(drivers []model.Driver, sctx *scoring.Context) []model.Driver {
	out := make([]model.Driver, 0, len(drivers))
	for _, d := range drivers {
		if sctx.StatsFor(d).Total > 0 || slotHistoryMentions(sctx.SlotHistory, d) {
			out = append(out, d)
		}
	}
	return out
}

func slotHistoryMentions(slotHistory map[string]map[string]int, d model.Driver) bool {
	for _, row := range slotHistory {
		if row[d.ID] > 0 || (d.Name != "" && row[d.Name] > 0) {
			return true
		}
	}
	return false
}

func normalizeHistories(raw map[string][]model.RawRecord) map[string][]model.AssignmentRecord {
	if len(raw) == 0 {
		return nil
	}
	out := make(map[string][]model.AssignmentRecord, len(raw))
	for key, raws := range raw {
		out[key] = model.NormalizeAll(raws)
	}
	return out
}

func slotKeyFromRequest(req *protocol.Request) model.SlotKey {
	wd := 0
	if req.DayOfWeek != nil && *req.DayOfWeek >= 0 && *req.DayOfWeek <= 6 {
		wd = *req.DayOfWeek
	}
	return model.SlotKey{
		ContractType: model.NormalizeContract(req.SoloType),
		TractorID:    req.TractorID,
		StartTime:    req.CanonicalTime,
		Weekday:      wd,
	}
}

func (e *Engine) loadClassifier() (*ownership.Classifier, error) {
	return ownership.LoadFile(e.cfg.OwnershipStatePath)
}
