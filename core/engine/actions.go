package engine

import (
	"fmt"

	"github.com/Dshy007/blockassign/core/history"
	"github.com/Dshy007/blockassign/core/model"
	"github.com/Dshy007/blockassign/core/ownership"
	"github.com/Dshy007/blockassign/core/scoring"
	"github.com/Dshy007/blockassign/internal/protocol"
)

// ClusterStats summarizes one clustering pass.
type ClusterStats struct {
	DriversAnalyzed             int            `json:"driversAnalyzed"`
	DriversWithInsufficientData int            `json:"driversWithInsufficientData"`
	PatternGroups               map[string]int `json:"patternGroups"`
}

// ClusterResponse carries per-driver profiles.
type ClusterResponse struct {
	Success  bool                           `json:"success"`
	Profiles map[string]model.DriverProfile `json:"profiles"`
	Stats    ClusterStats                   `json:"stats"`
}

// Cluster derives a profile for every driver history supplied.
func (e *Engine) Cluster(req *protocol.Request) any {
	if len(req.DriverHistories) == 0 {
		return protocol.Failf("cluster requires driverHistories")
	}
	histories := normalizeHistories(req.DriverHistories)

	resp := ClusterResponse{
		Success:  true,
		Profiles: make(map[string]model.DriverProfile, len(histories)),
		Stats:    ClusterStats{PatternGroups: make(map[string]int)},
	}
	cache := history.NewCache()
	for key, recs := range histories {
		p := cache.Get(key, recs).Profile()
		resp.Profiles[key] = p
		resp.Stats.DriversAnalyzed++
		resp.Stats.PatternGroups[p.PatternGroup]++
		if p.AssignmentsAnalyzed < history.MinPatternAssignments {
			resp.Stats.DriversWithInsufficientData++
		}
	}
	e.log.Infof("clustered %d drivers (%d with thin history)",
		resp.Stats.DriversAnalyzed, resp.Stats.DriversWithInsufficientData)
	return resp
}

// PredictResponse pairs profiles with driver-block fit scores.
type PredictResponse struct {
	Success  bool                           `json:"success"`
	Scorer   string                         `json:"scorer"`
	Profiles map[string]model.DriverProfile `json:"profiles"`
	Scores   map[string]float64             `json:"scores"`
}

// PredictPatterns profiles the drivers and scores them against the supplied
// blocks without solving anything.
func (e *Engine) PredictPatterns(req *protocol.Request) any {
	histories := normalizeHistories(req.DriverHistories)
	sctx := scoring.NewContext(histories, req.SlotHistory)

	drivers := req.Drivers
	if len(drivers) == 0 {
		for key := range histories {
			drivers = append(drivers, model.Driver{ID: key})
		}
	}

	cascade := scoring.NewCascade(e.log,
		scoring.NewModelScorer(e.estimator()),
		scoring.NewAffinityScorer(),
		scoring.NewRawHistoryScorer(),
	)
	if err := cascade.Init(sctx); err != nil {
		return protocol.Fail(err)
	}

	resp := PredictResponse{
		Success:  true,
		Scorer:   cascade.Name(),
		Profiles: make(map[string]model.DriverProfile, len(histories)),
		Scores:   make(map[string]float64),
	}
	for key, recs := range histories {
		resp.Profiles[key] = sctx.Cache.Get(key, recs).Profile()
	}
	for _, b := range req.Blocks {
		for _, d := range drivers {
			score, _ := cascade.Score(d, b)
			resp.Scores[d.ID+"|"+b.ID] = score
		}
	}
	return resp
}

// TrainResponse acknowledges an ownership training run.
type TrainResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Drivers int    `json:"drivers"`
}

// TrainOwnership fits the slot ownership classifier and persists its state.
func (e *Engine) TrainOwnership(req *protocol.Request) any {
	recs := model.NormalizeAll(req.Assignments)
	c := ownership.New()
	if err := c.Train(recs); err != nil {
		return protocol.Fail(err)
	}
	if err := c.SaveFile(e.cfg.OwnershipStatePath); err != nil {
		e.log.Errorf("save ownership state: %v", err)
		return protocol.Fail(err)
	}
	e.log.Infof("ownership classifier trained on %d records, state saved to %s",
		len(recs), e.cfg.OwnershipStatePath)
	return TrainResponse{Success: true, Message: "ownership classifier trained and saved", Drivers: len(c.Drivers())}
}

// OwnerResponse names the predicted owner of one slot.
type OwnerResponse struct {
	Success    bool    `json:"success"`
	Driver     string  `json:"driver"`
	Confidence float64 `json:"confidence"`
	Slot       string  `json:"slot"`
}

// PredictOwner answers a slot-key ownership query.
func (e *Engine) PredictOwner(req *protocol.Request) any {
	c, err := e.loadClassifier()
	if err != nil {
		return protocol.Fail(err)
	}
	key := slotKeyFromRequest(req)
	driver, conf := c.PredictOwner(key)
	return OwnerResponse{
		Success:    true,
		Driver:     driver,
		Confidence: conf,
		Slot:       slotLabel(key),
	}
}

// DistributionResponse is the full ownership picture of one slot.
type DistributionResponse struct {
	Success bool `json:"success"`
	ownership.Distribution
	Slot string `json:"slot"`
}

// Distribution reports every driver's share of one slot.
func (e *Engine) Distribution(req *protocol.Request) any {
	c, err := e.loadClassifier()
	if err != nil {
		return protocol.Fail(err)
	}
	key := slotKeyFromRequest(req)
	return DistributionResponse{
		Success:      true,
		Distribution: c.Distribute(key),
		Slot:         slotLabel(key),
	}
}

// PatternResponse is one driver's typical work week.
type PatternResponse struct {
	Success bool `json:"success"`
	ownership.Pattern
}

// DriverPattern answers a typical-work-pattern query by driver id or name.
func (e *Engine) DriverPattern(req *protocol.Request) any {
	driver := req.DriverID
	if driver == "" {
		driver = req.DriverName
	}
	if driver == "" {
		return protocol.Failf("driverId or driverName is required")
	}
	c, err := e.loadClassifier()
	if err != nil {
		return protocol.Fail(err)
	}
	return PatternResponse{Success: true, Pattern: c.DriverPattern(driver)}
}

// AllPatternsResponse maps every trained driver to their pattern.
type AllPatternsResponse struct {
	Success  bool                         `json:"success"`
	Patterns map[string]ownership.Pattern `json:"patterns"`
	Count    int                          `json:"count"`
}

// AllPatterns returns the pattern of every driver seen during training.
func (e *Engine) AllPatterns(req *protocol.Request) any {
	c, err := e.loadClassifier()
	if err != nil {
		return protocol.Fail(err)
	}
	patterns := c.AllPatterns()
	return AllPatternsResponse{Success: true, Patterns: patterns, Count: len(patterns)}
}

func slotLabel(key model.SlotKey) string {
	return fmt.Sprintf("%s_%s_%s", key.ContractType, key.TractorID, model.DayNames[key.Weekday%7])
}
