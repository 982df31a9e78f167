// Package ownership classifies recurring slots as owned by a single driver
// or rotating among several, based purely on historical occupancy counts.
package ownership

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/Dshy007/blockassign/core/model"
)

const (
	// DefaultThreshold is the occupancy share above which a slot is owned.
	DefaultThreshold = 0.70

	// DefaultRecentWeeks bounds the recency window used to break count ties.
	DefaultRecentWeeks = 8

	// minTotalPerDay is the evidence floor for a typical work day. The total
	// is summed across all slots on that weekday, so a driver covering three
	// different slots once each still qualifies.
	minTotalPerDay = 2

	minTrainRecords = 10
	minTrainDrivers = 2
)

// Slot classifications.
const (
	SlotOwned    = "owned"
	SlotRotating = "rotating"
	SlotUnknown  = "unknown"
)

// Classifier holds per-slot occupancy history. It is trained once from
// assignment records and queried many times; queries never mutate it.
type Classifier struct {
	Threshold   float64
	RecentWeeks int

	slots   map[model.SlotKey]map[string][]time.Time
	drivers map[string]bool

	now func() time.Time
}

// New returns an untrained classifier with default thresholds.
func New() *Classifier {
	return &Classifier{
		Threshold:   DefaultThreshold,
		RecentWeeks: DefaultRecentWeeks,
		slots:       make(map[model.SlotKey]map[string][]time.Time),
		drivers:     make(map[string]bool),
		now:         time.Now,
	}
}

// Train builds the occupancy history from assignment records. It fails when
// the history is too thin to say anything about ownership.
func (c *Classifier) Train(recs []model.AssignmentRecord) error {
	if len(recs) < minTrainRecords {
		return fmt.Errorf("insufficient data: %d records, need at least %d", len(recs), minTrainRecords)
	}
	distinct := make(map[string]bool)
	for _, r := range recs {
		distinct[r.Key()] = true
	}
	if len(distinct) < minTrainDrivers {
		return fmt.Errorf("insufficient data: %d distinct drivers, need at least %d", len(distinct), minTrainDrivers)
	}

	c.slots = make(map[model.SlotKey]map[string][]time.Time)
	c.drivers = distinct
	for _, r := range recs {
		key := r.Slot()
		if c.slots[key] == nil {
			c.slots[key] = make(map[string][]time.Time)
		}
		if r.HasDate {
			c.slots[key][r.Key()] = append(c.slots[key][r.Key()], r.Date)
		} else {
			c.slots[key][r.Key()] = append(c.slots[key][r.Key()], time.Time{})
		}
	}
	return nil
}

// Trained reports whether the classifier holds any occupancy history.
func (c *Classifier) Trained() bool {
	return len(c.slots) > 0
}

// Drivers returns the sorted driver keys seen during training.
func (c *Classifier) Drivers() []string {
	out := make([]string, 0, len(c.drivers))
	for d := range c.drivers {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

// occupancy collects per-driver occurrence dates for all slots matching the
// query key. A query without a start time aggregates every start time seen
// for that contract, tractor and weekday; a query with one falls back to the
// aggregate when the exact time was never recorded.
func (c *Classifier) occupancy(key model.SlotKey) map[string][]time.Time {
	exact := make(map[string][]time.Time)
	aggregate := make(map[string][]time.Time)
	for slot, owners := range c.slots {
		if slot.ContractType != key.ContractType || slot.TractorID != key.TractorID || slot.Weekday != key.Weekday {
			continue
		}
		for d, dates := range owners {
			aggregate[d] = append(aggregate[d], dates...)
			if key.StartTime != "" && slot.StartTime == key.StartTime {
				exact[d] = append(exact[d], dates...)
			}
		}
	}
	if key.StartTime != "" && len(exact) > 0 {
		return exact
	}
	return aggregate
}

// PredictOwner returns the driver with the most historical occurrences of
// the slot and their share of the total. Ties on the raw count are broken by
// the count inside the recent window, then lexicographically by driver key
// so repeated runs never disagree.
func (c *Classifier) PredictOwner(key model.SlotKey) (string, float64) {
	owners := c.occupancy(key)
	if len(owners) == 0 {
		return "", 0
	}

	counts := make(map[string]int, len(owners))
	total := 0
	maxCount := 0
	for d, dates := range owners {
		counts[d] = len(dates)
		total += len(dates)
		if len(dates) > maxCount {
			maxCount = len(dates)
		}
	}

	var tied []string
	for d, n := range counts {
		if n == maxCount {
			tied = append(tied, d)
		}
	}
	winner := tied[0]
	if len(tied) > 1 {
		cutoff := c.now().AddDate(0, 0, -7*c.RecentWeeks)
		bestRecent := -1
		sort.Strings(tied)
		for _, d := range tied {
			recent := 0
			for _, dt := range owners[d] {
				if !dt.IsZero() && !dt.Before(cutoff) {
					recent++
				}
			}
			if recent > bestRecent {
				bestRecent = recent
				winner = d
			}
		}
	}
	return winner, float64(counts[winner]) / float64(total)
}

// Distribution is the full ownership picture of one slot.
type Distribution struct {
	SlotType         string             `json:"slotType"`
	Owner            string             `json:"owner,omitempty"`
	OwnerShare       float64            `json:"ownerShare"`
	Shares           map[string]float64 `json:"shares"`
	TotalAssignments int                `json:"totalAssignments"`
}

// Distribute classifies a slot as owned or rotating and reports every
// driver's share. Slots with no history come back unknown.
func (c *Classifier) Distribute(key model.SlotKey) Distribution {
	owners := c.occupancy(key)
	if len(owners) == 0 {
		return Distribution{SlotType: SlotUnknown, Shares: map[string]float64{}}
	}

	total := 0
	for _, dates := range owners {
		total += len(dates)
	}
	shares := make(map[string]float64, len(owners))
	for d, dates := range owners {
		shares[d] = float64(len(dates)) / float64(total)
	}

	top, topShare := c.PredictOwner(key)
	dist := Distribution{
		SlotType:         SlotRotating,
		OwnerShare:       topShare,
		Shares:           shares,
		TotalAssignments: total,
	}
	if topShare >= c.Threshold {
		dist.SlotType = SlotOwned
		dist.Owner = top
	}
	return dist
}

// Pattern is a driver's typical work week derived from slot occupancy.
type Pattern struct {
	Driver      string         `json:"driver"`
	TypicalDays int            `json:"typicalDays"`
	DayList     []string       `json:"dayList"`
	DayCounts   map[string]int `json:"dayCounts"`
	Confidence  float64        `json:"confidence"`
}

// DriverPattern sums the driver's occurrences per weekday across every slot
// and keeps the days that clear the evidence floor. Drivers with no
// qualifying day default to the six-day safety cap.
func (c *Classifier) DriverPattern(driver string) Pattern {
	dayTotals := make(map[int]int)
	for slot, owners := range c.slots {
		if dates, ok := owners[driver]; ok {
			dayTotals[slot.Weekday] += len(dates)
		}
	}

	dayCounts := make(map[int]int)
	for wd, n := range dayTotals {
		if n >= minTotalPerDay {
			dayCounts[wd] = n
		}
	}
	if len(dayCounts) == 0 {
		return Pattern{Driver: driver, TypicalDays: 6, DayList: []string{}, DayCounts: map[string]int{}}
	}

	days := make([]int, 0, len(dayCounts))
	for wd := range dayCounts {
		days = append(days, wd)
	}
	sort.Slice(days, func(i, j int) bool {
		if dayCounts[days[i]] != dayCounts[days[j]] {
			return dayCounts[days[i]] > dayCounts[days[j]]
		}
		return days[i] < days[j]
	})

	dayList := make([]string, len(days))
	named := make(map[string]int, len(days))
	var counts []float64
	for i, wd := range days {
		dayList[i] = model.DayNames[wd]
		named[model.DayNames[wd]] = dayCounts[wd]
		counts = append(counts, float64(dayCounts[wd]))
	}

	mean := 0.0
	for _, v := range counts {
		mean += v
	}
	mean /= float64(len(counts))
	variance := 0.0
	for _, v := range counts {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(len(counts))
	conf := 1 - math.Sqrt(variance)/(mean+1)
	if conf < 0 {
		conf = 0
	}
	if conf > 1 {
		conf = 1
	}

	return Pattern{
		Driver:      driver,
		TypicalDays: len(days),
		DayList:     dayList,
		DayCounts:   named,
		Confidence:  math.Round(conf*1000) / 1000,
	}
}

// AllPatterns returns the pattern of every trained driver.
func (c *Classifier) AllPatterns() map[string]Pattern {
	out := make(map[string]Pattern, len(c.drivers))
	for d := range c.drivers {
		out[d] = c.DriverPattern(d)
	}
	return out
}
