// Package scoring turns driver history into driver-block fit scores. Scorers
// form a cascade; the first one that initializes successfully scores the
// whole run, so every score in a single optimization is comparable.
package scoring

import (
	"sync"

	"github.com/Dshy007/blockassign/core/history"
	"github.com/Dshy007/blockassign/core/logger"
	"github.com/Dshy007/blockassign/core/model"
)

// Context carries the run-scoped inputs every scorer reads. It is built once
// per optimization and shared.
type Context struct {
	Cache       *history.Cache
	Histories   map[string][]model.AssignmentRecord
	SlotHistory map[string]map[string]int // "day_time" -> driver key -> count

	mu       sync.Mutex
	profiles map[string]model.DriverProfile
}

// NewContext wraps the run inputs.
func NewContext(histories map[string][]model.AssignmentRecord, slotHistory map[string]map[string]int) *Context {
	return &Context{
		Cache:       history.NewCache(),
		Histories:   histories,
		SlotHistory: slotHistory,
		profiles:    make(map[string]model.DriverProfile),
	}
}

// StatsFor returns the extracted history for a driver, trying the id key
// first and the display name second.
func (c *Context) StatsFor(d model.Driver) *history.Stats {
	key := d.ID
	recs, ok := c.Histories[key]
	if !ok && d.Name != "" {
		if r, ok2 := c.Histories[d.Name]; ok2 {
			key, recs = d.Name, r
		}
	}
	return c.Cache.Get(key, recs)
}

// ProfileFor returns the driver's derived profile, memoized per run.
func (c *Context) ProfileFor(d model.Driver) model.DriverProfile {
	s := c.StatsFor(d)
	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok := c.profiles[s.DriverID]; ok {
		return p
	}
	p := s.Profile()
	c.profiles[s.DriverID] = p
	return p
}

// SlotCount returns how often the driver has worked the block's day and time.
func (c *Context) SlotCount(d model.Driver, b model.Block) int {
	row, ok := c.SlotHistory[b.Slot()]
	if !ok {
		return 0
	}
	if n, ok := row[d.ID]; ok {
		return n
	}
	return row[d.Name]
}

// Scorer scores one driver against one block and names the signal that
// produced the score.
type Scorer interface {
	Name() string
	Init(ctx *Context) error
	Score(d model.Driver, b model.Block) (float64, string)
}

// Cascade tries its scorers in order during Init and delegates all scoring
// to the first one that succeeded.
type Cascade struct {
	scorers []Scorer
	active  Scorer
	log     logger.Logger
}

// NewCascade builds a cascade. The last scorer should be one whose Init
// cannot fail.
func NewCascade(log logger.Logger, scorers ...Scorer) *Cascade {
	return &Cascade{scorers: scorers, log: log}
}

// Init selects the active scorer. It errors only when every scorer fails.
func (c *Cascade) Init(ctx *Context) error {
	for _, s := range c.scorers {
		if err := s.Init(ctx); err != nil {
			c.log.Debugf("scorer %s unavailable: %v", s.Name(), err)
			continue
		}
		c.active = s
		c.log.Infof("scoring with %s", s.Name())
		return nil
	}
	return ErrNoScorer
}

// Name returns the active scorer's name.
func (c *Cascade) Name() string {
	if c.active == nil {
		return "none"
	}
	return c.active.Name()
}

// Score delegates to the active scorer.
func (c *Cascade) Score(d model.Driver, b model.Block) (float64, string) {
	return c.active.Score(d, b)
}

// Matrix holds the scores and their provenance for one run.
type Matrix struct {
	Scores  model.ScoreMatrix
	Matches map[string]map[string]string
	Scorer  string
}

// Build scores every driver against every block with the given scorer.
func Build(scorer Scorer, drivers []model.Driver, blocks []model.Block) Matrix {
	m := Matrix{
		Scores:  make(model.ScoreMatrix, len(blocks)),
		Matches: make(map[string]map[string]string, len(blocks)),
		Scorer:  scorer.Name(),
	}
	for _, b := range blocks {
		m.Matches[b.ID] = make(map[string]string, len(drivers))
		for _, d := range drivers {
			score, match := scorer.Score(d, b)
			m.Scores.Set(b.ID, d.ID, score)
			m.Matches[b.ID][d.ID] = match
		}
	}
	return m
}
