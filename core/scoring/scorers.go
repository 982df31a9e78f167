package scoring

import (
	"errors"
	"math"
	"time"

	"github.com/Dshy007/blockassign/core/availability"
	"github.com/Dshy007/blockassign/core/history"
	"github.com/Dshy007/blockassign/core/model"
)

// ErrNoScorer means every scorer in the cascade failed to initialize.
var ErrNoScorer = errors.New("no scorer could initialize")

// Affinity weights. The base keeps any contract-compatible driver viable;
// the remaining terms reward observed habits without letting any single
// habit dominate.
const (
	baseScore          = 0.3
	dayMatchBonus      = 0.3
	primaryTimeBonus   = 0.2
	secondaryTimeBonus = 0.1
	slotBonusCap       = 0.2
	slotBonusFactor    = 0.05
	rollingBonusWeight = 0.15
)

// ModelScorer scores with a trained availability model. Its Init fails on
// thin history, dropping the cascade to the affinity scorer.
type ModelScorer struct {
	model *availability.Model
	ctx   *Context
}

// NewModelScorer wraps an estimator implementation.
func NewModelScorer(est availability.Estimator) *ModelScorer {
	return &ModelScorer{model: availability.NewModel(est)}
}

func (m *ModelScorer) Name() string { return "model" }

func (m *ModelScorer) Init(ctx *Context) error {
	m.ctx = ctx
	return m.model.Train(ctx.Histories, ctx.Cache)
}

func (m *ModelScorer) Score(d model.Driver, b model.Block) (float64, string) {
	if d.Contract() != b.Contract() {
		return 0, model.MatchContract
	}
	date, err := b.Date()
	if err != nil {
		return 0, model.MatchModel
	}
	return m.model.Score(m.ctx.StatsFor(d), date), model.MatchModel
}

// AffinityScorer scores from the driver's derived profile. It cannot fail
// to initialize and is the workhorse scorer in practice.
type AffinityScorer struct {
	ctx *Context
}

func NewAffinityScorer() *AffinityScorer { return &AffinityScorer{} }

func (a *AffinityScorer) Name() string { return "affinity" }

func (a *AffinityScorer) Init(ctx *Context) error {
	if len(ctx.Histories) == 0 {
		return errors.New("no driver histories provided")
	}
	a.ctx = ctx
	return nil
}

func (a *AffinityScorer) Score(d model.Driver, b model.Block) (float64, string) {
	if d.Contract() != b.Contract() {
		return 0, model.MatchContract
	}

	s := a.ctx.StatsFor(d)
	p := a.ctx.ProfileFor(d)
	score := baseScore

	if wd, err := b.Weekday(); err == nil {
		day := model.DayNames[wd]
		for _, pd := range p.PreferredDays {
			if pd == day {
				score += dayMatchBonus
				break
			}
		}
	}

	if b.Time != "" && len(p.PreferredTimes) > 0 {
		if p.PreferredTimes[0] == b.Time {
			score += primaryTimeBonus
		} else {
			for _, pt := range p.PreferredTimes[1:] {
				if pt == b.Time {
					score += secondaryTimeBonus
					break
				}
			}
		}
	}

	slotCount := a.ctx.SlotCount(d, b)
	score += math.Min(slotBonusCap, slotBonusFactor*math.Log(1+float64(slotCount)))

	if date, err := b.Date(); err == nil {
		score += a.rollingBonus(s, date)
	}

	if score > 1 {
		score = 1
	}
	match := model.MatchPattern
	if slotCount > 0 {
		match = model.MatchSlotHistory
	}
	return score, match
}

// rollingBonus rewards dates landing near the driver's projected next work
// dates. Deviation is measured to the nearest of the next four projected
// dates and decays linearly, vanishing at two days off.
func (a *AffinityScorer) rollingBonus(s *history.Stats, date time.Time) float64 {
	if !s.HasConfidentRollingPattern() || s.RollingInterval <= 0 {
		return 0
	}
	last, ok := s.LastWorkDate()
	if !ok {
		return 0
	}
	deviation := math.Inf(1)
	for k := 1; k <= 4; k++ {
		expected := last.Add(time.Duration(float64(k)*s.RollingInterval*24) * time.Hour)
		delta := math.Abs(date.Sub(expected).Hours() / 24)
		if delta < deviation {
			deviation = delta
		}
	}
	return rollingBonusWeight * s.RollingConfidence() * math.Max(0, 1-deviation/2)
}

// RawHistoryScorer falls back to raw occurrence counts. Scores are counts,
// not probabilities; the optimizer rescales them before solving.
type RawHistoryScorer struct {
	ctx *Context
}

func NewRawHistoryScorer() *RawHistoryScorer { return &RawHistoryScorer{} }

func (r *RawHistoryScorer) Name() string { return "rawHistory" }

func (r *RawHistoryScorer) Init(ctx *Context) error {
	r.ctx = ctx
	return nil
}

func (r *RawHistoryScorer) Score(d model.Driver, b model.Block) (float64, string) {
	if d.Contract() != b.Contract() {
		return 0, model.MatchContract
	}
	if n := r.ctx.SlotCount(d, b); n > 0 {
		return float64(n), model.MatchSlotHistory
	}
	if wd, err := b.Weekday(); err == nil {
		s := r.ctx.StatsFor(d)
		if n := s.WeekdayCounts[wd]; n > 0 {
			return float64(n), model.MatchPattern
		}
	}
	return 0, model.MatchContract
}
