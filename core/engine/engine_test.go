package engine

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/Dshy007/blockassign/core/availability"
	"github.com/Dshy007/blockassign/core/logger"
	"github.com/Dshy007/blockassign/core/model"
	infrasolver "github.com/Dshy007/blockassign/infra/solver"
	"github.com/Dshy007/blockassign/internal/eventbus"
	"github.com/Dshy007/blockassign/internal/protocol"
)

type stubEstimator struct {
	fitErr  error
	predict float64
}

func (s *stubEstimator) Fit(x [][]float64, y []float64) error { return s.fitErr }
func (s *stubEstimator) Predict(x []float64) float64          { return s.predict }

// failingEstimator keeps the cascade on the affinity scorer.
func failingEstimator() availability.Estimator {
	return &stubEstimator{fitErr: errors.New("unavailable")}
}

func newTestEngine(t *testing.T, est func() availability.Estimator) (*Engine, *eventbus.Bus[eventbus.RunEvent]) {
	t.Helper()
	runs := eventbus.New[eventbus.RunEvent]()
	assigns := eventbus.New[eventbus.AssignmentEvent]()
	cfg := Config{
		ScoreScale:         1000,
		SolveTimeout:       5 * time.Second,
		OwnershipStatePath: filepath.Join(t.TempDir(), "ownership.json"),
	}
	e := New(logger.Nop{}, infrasolver.New(logger.Nop{}), est, cfg, runs, assigns)
	return e, runs
}

func rawWeekly(dates []string, start, contract, tractor string) []model.RawRecord {
	recs := make([]model.RawRecord, 0, len(dates))
	for _, d := range dates {
		recs = append(recs, model.RawRecord{Date: d, StartTime: start, SoloType: contract, TractorID: tractor})
	}
	return recs
}

func TestOptimizeEndToEnd(t *testing.T) {
	e, runs := newTestEngine(t, failingEstimator)
	runCh := runs.Subscribe()

	// Two Sundays and two Mondays to fill. d1 historically works Sundays,
	// d2 Mondays. d3 has no history at all and must never be assigned.
	req := &protocol.Request{
		Action:  protocol.ActionOptimize,
		MinDays: 3,
		Drivers: []model.Driver{
			{ID: "d1", Name: "Alice", ContractType: "solo1"},
			{ID: "d2", Name: "Bob", ContractType: "solo1"},
			{ID: "d3", Name: "Carol", ContractType: "solo1"},
		},
		Blocks: []model.Block{
			{ID: "b1", ServiceDate: "2026-03-01", Day: "sunday", Time: "07:00", ContractType: "solo1"},
			{ID: "b2", ServiceDate: "2026-03-02", Day: "monday", Time: "07:00", ContractType: "solo1"},
			{ID: "b3", ServiceDate: "2026-03-08", Day: "sunday", Time: "07:00", ContractType: "solo1"},
			{ID: "b4", ServiceDate: "2026-03-09", Day: "monday", Time: "07:00", ContractType: "solo1"},
		},
		DriverHistories: map[string][]model.RawRecord{
			"d1": rawWeekly([]string{"2026-01-04", "2026-01-11", "2026-01-18", "2026-01-25"}, "07:00", "solo1", "T1"),
			"d2": rawWeekly([]string{"2026-01-05", "2026-01-12", "2026-01-19", "2026-01-26"}, "07:00", "solo1", "T1"),
		},
		SlotHistory: map[string]map[string]int{
			"sunday_07:00": {"d1": 4},
			"monday_07:00": {"d2": 4},
		},
	}

	out, err := e.Handle(context.Background(), req)
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	resp, ok := out.(OptimizeResponse)
	if !ok {
		t.Fatalf("response type %T: %+v", out, out)
	}
	if !resp.Success {
		t.Fatalf("response not successful: %+v", resp)
	}

	if len(resp.Assignments)+len(resp.Unassigned) != 4 {
		t.Fatalf("assigned %d + unassigned %d != 4 blocks", len(resp.Assignments), len(resp.Unassigned))
	}
	if resp.Stats.Assigned != len(resp.Assignments) || resp.Stats.Unassigned != len(resp.Unassigned) {
		t.Fatalf("stats disagree with lists: %+v", resp.Stats)
	}

	perDriverDate := make(map[string]bool)
	for _, a := range resp.Assignments {
		if a.DriverID == "d3" {
			t.Fatal("driver with no history was assigned")
		}
		if a.ContractType != "solo1" {
			t.Fatalf("contract mismatch on %+v", a)
		}
		k := a.DriverID + "@" + a.ServiceDate
		if perDriverDate[k] {
			t.Fatalf("driver %s assigned twice on %s", a.DriverID, a.ServiceDate)
		}
		perDriverDate[k] = true
		if a.MatchType == "" || a.Score <= 0 {
			t.Fatalf("assignment missing provenance: %+v", a)
		}
	}

	select {
	case ev := <-runCh:
		if ev.Action != protocol.ActionOptimize || ev.TotalBlocks != 4 {
			t.Fatalf("run event = %+v", ev)
		}
		if ev.Scorer != "affinity" {
			t.Fatalf("scorer = %s, want affinity", ev.Scorer)
		}
	default:
		t.Fatal("no run event published")
	}
}

func TestOptimizeWithScoresRoundTrip(t *testing.T) {
	e, _ := newTestEngine(t, failingEstimator)
	req := &protocol.Request{
		Action:  protocol.ActionOptimizeWithScores,
		MinDays: 3,
		Drivers: []model.Driver{{ID: "d1", ContractType: "solo1"}},
		Blocks: []model.Block{
			{ID: "b1", ServiceDate: "2026-03-01", Day: "sunday", Time: "07:00", ContractType: "solo1"},
		},
		ScoreMatrix: map[string]map[string]float64{
			"b1": {"d1": 1.0},
		},
	}
	out, err := e.Handle(context.Background(), req)
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	resp := out.(OptimizeResponse)
	if len(resp.Assignments) != 1 {
		t.Fatalf("assignments = %+v", resp.Assignments)
	}
	a := resp.Assignments[0]
	if a.BlockID != "b1" || a.DriverID != "d1" || a.Score != 1.0 {
		t.Fatalf("assignment = %+v", a)
	}
	if a.MatchType != model.MatchPrecomputed {
		t.Fatalf("match type = %s, want %s", a.MatchType, model.MatchPrecomputed)
	}
	if resp.Stats.SolverStatus != "optimal" {
		t.Fatalf("status = %s, want optimal", resp.Stats.SolverStatus)
	}
}

func TestHandleUnknownAction(t *testing.T) {
	e, _ := newTestEngine(t, failingEstimator)
	out, err := e.Handle(context.Background(), &protocol.Request{Action: "bogus"})
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	fail, ok := out.(protocol.ErrorResponse)
	if !ok || fail.Success {
		t.Fatalf("got %T %+v, want failure response", out, out)
	}
}

func TestClusterAction(t *testing.T) {
	e, _ := newTestEngine(t, failingEstimator)
	req := &protocol.Request{
		Action: protocol.ActionCluster,
		DriverHistories: map[string][]model.RawRecord{
			"d1": rawWeekly([]string{
				"2026-01-04", "2026-01-05", "2026-01-11", "2026-01-12",
				"2026-01-18", "2026-01-19", "2026-01-25", "2026-01-26",
			}, "07:00", "solo1", "T1"),
			"d2": rawWeekly([]string{"2026-01-08"}, "07:00", "solo1", "T1"),
		},
	}
	out, err := e.Handle(context.Background(), req)
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	resp := out.(ClusterResponse)
	if resp.Stats.DriversAnalyzed != 2 || resp.Stats.DriversWithInsufficientData != 1 {
		t.Fatalf("stats = %+v", resp.Stats)
	}
	if resp.Profiles["d1"].PatternGroup != model.PatternSunWed {
		t.Fatalf("d1 pattern = %s, want %s", resp.Profiles["d1"].PatternGroup, model.PatternSunWed)
	}
	if resp.Profiles["d2"].PatternGroup != model.PatternUnknown {
		t.Fatalf("d2 pattern = %s, want %s", resp.Profiles["d2"].PatternGroup, model.PatternUnknown)
	}
}

func TestOwnershipLifecycle(t *testing.T) {
	e, _ := newTestEngine(t, failingEstimator)

	var assignments []model.RawRecord
	for _, d := range []string{"2026-01-04", "2026-01-11", "2026-01-18", "2026-01-25", "2026-02-01", "2026-02-08", "2026-02-15"} {
		assignments = append(assignments, model.RawRecord{DriverName: "Alice", Date: d, StartTime: "07:00", SoloType: "solo1", TractorID: "T1"})
	}
	for _, d := range []string{"2026-01-04", "2026-01-11", "2026-01-18"} {
		assignments = append(assignments, model.RawRecord{DriverName: "Bob", Date: d, StartTime: "16:00", SoloType: "solo1", TractorID: "T2"})
	}

	out, err := e.Handle(context.Background(), &protocol.Request{Action: protocol.ActionTrain, Assignments: assignments})
	if err != nil {
		t.Fatalf("train: %v", err)
	}
	if tr := out.(TrainResponse); !tr.Success || tr.Drivers != 2 {
		t.Fatalf("train response = %+v", tr)
	}

	// Slot-key predict goes through the ownership classifier because no
	// histories accompany the request.
	dow := 0
	out, err = e.Handle(context.Background(), &protocol.Request{
		Action: protocol.ActionPredict, SoloType: "solo1", TractorID: "T1", DayOfWeek: &dow,
	})
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	owner := out.(OwnerResponse)
	if owner.Driver != "Alice" || owner.Confidence != 1.0 {
		t.Fatalf("owner = %+v", owner)
	}
	if owner.Slot != "solo1_T1_sunday" {
		t.Fatalf("slot label = %s", owner.Slot)
	}

	out, err = e.Handle(context.Background(), &protocol.Request{
		Action: protocol.ActionGetDistribution, SoloType: "solo1", TractorID: "T1", DayOfWeek: &dow,
	})
	if err != nil {
		t.Fatalf("distribution: %v", err)
	}
	dist := out.(DistributionResponse)
	if dist.SlotType != "owned" || dist.Owner != "Alice" || dist.TotalAssignments != 7 {
		t.Fatalf("distribution = %+v", dist)
	}

	out, err = e.Handle(context.Background(), &protocol.Request{
		Action: protocol.ActionGetDriverPattern, DriverName: "Alice",
	})
	if err != nil {
		t.Fatalf("pattern: %v", err)
	}
	pat := out.(PatternResponse)
	if pat.TypicalDays != 1 || pat.DayList[0] != "sunday" {
		t.Fatalf("pattern = %+v", pat)
	}

	out, err = e.Handle(context.Background(), &protocol.Request{Action: protocol.ActionGetAllPatterns})
	if err != nil {
		t.Fatalf("all patterns: %v", err)
	}
	all := out.(AllPatternsResponse)
	if all.Count != 2 {
		t.Fatalf("count = %d, want 2", all.Count)
	}
}

func TestPredictWithHistoriesScoresPairs(t *testing.T) {
	e, _ := newTestEngine(t, failingEstimator)
	req := &protocol.Request{
		Action: protocol.ActionPredict,
		Blocks: []model.Block{
			{ID: "b1", ServiceDate: "2026-03-01", Day: "sunday", Time: "07:00", ContractType: "solo1"},
		},
		DriverHistories: map[string][]model.RawRecord{
			"d1": rawWeekly([]string{"2026-01-04", "2026-01-11", "2026-01-18"}, "07:00", "solo1", "T1"),
		},
	}
	out, err := e.Handle(context.Background(), req)
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	resp := out.(PredictResponse)
	if !resp.Success || resp.Scorer != "affinity" {
		t.Fatalf("response = %+v", resp)
	}
	if _, ok := resp.Profiles["d1"]; !ok {
		t.Fatal("missing d1 profile")
	}
	if score := resp.Scores["d1|b1"]; score <= 0.5 {
		t.Fatalf("score for habitual slot = %v, want > 0.5", score)
	}
}

func TestOwnershipQueriesWithoutState(t *testing.T) {
	e, _ := newTestEngine(t, failingEstimator)
	dow := 0
	out, err := e.Handle(context.Background(), &protocol.Request{
		Action: protocol.ActionPredict, SoloType: "solo1", TractorID: "T1", DayOfWeek: &dow,
	})
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if fail, ok := out.(protocol.ErrorResponse); !ok || fail.Success {
		t.Fatalf("got %T %+v, want failure for missing state", out, out)
	}
}
