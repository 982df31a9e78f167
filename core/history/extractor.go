// Package history derives per-driver statistics from raw assignment records.
// Extraction is a pure function of the records; the same history always
// yields the same statistics.
package history

import (
	"fmt"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/Dshy007/blockassign/core/model"
)

const (
	// Gaps of this many days or more are treated as non-contiguous history
	// (onboarding breaks, long leave) and excluded from the rolling interval.
	maxUsableGapDays = 30

	// Defaults reported when fewer than two usable gaps exist.
	defaultInterval    = 3.0
	defaultIntervalStd = 1.0

	// Days-since-last-worked default and cap for drivers without a prior
	// work date before the candidate.
	defaultDaysSinceLast = 14
	maxDaysSinceLast     = 30

	// MinPatternAssignments is the evidence floor for a pattern group:
	// roughly one assignment per week over an eight-week observation window.
	MinPatternAssignments = 8

	// Ratio of the week-half day mass required to label a sunWed or wedSat
	// pattern; anything below is mixed.
	patternRatio = 0.65
)

// Stats holds everything the scoring and ownership layers need about one
// driver's history.
type Stats struct {
	DriverID        string
	WorkDates       []time.Time // sorted, distinct
	WeekdayCounts   [7]int
	TimeCounts      map[string]int
	SlotCounts      map[model.SlotKey]int
	Total           int // valid records analyzed
	RollingInterval float64
	IntervalStd     float64
	UsableGaps      int
	WeeksObserved   int
	weeksWithDay    [7]int
}

// Extract computes statistics from a driver's records. Records were already
// normalized; any number of them, including zero, is acceptable.
func Extract(driverID string, recs []model.AssignmentRecord) *Stats {
	s := &Stats{
		DriverID:        driverID,
		TimeCounts:      make(map[string]int),
		SlotCounts:      make(map[model.SlotKey]int),
		RollingInterval: defaultInterval,
		IntervalStd:     defaultIntervalStd,
	}

	dateSet := make(map[time.Time]bool)
	weekDays := make(map[string]map[int]bool)
	for _, r := range recs {
		s.Total++
		s.WeekdayCounts[r.Weekday]++
		if r.StartTime != "" {
			s.TimeCounts[r.StartTime]++
		}
		s.SlotCounts[r.Slot()]++
		if !r.HasDate {
			continue
		}
		day := r.Date.Truncate(24 * time.Hour)
		dateSet[day] = true
		y, w := r.Date.ISOWeek()
		wk := weekKey(y, w)
		if weekDays[wk] == nil {
			weekDays[wk] = make(map[int]bool)
		}
		weekDays[wk][r.Weekday] = true
	}

	s.WorkDates = make([]time.Time, 0, len(dateSet))
	for d := range dateSet {
		s.WorkDates = append(s.WorkDates, d)
	}
	sort.Slice(s.WorkDates, func(i, j int) bool { return s.WorkDates[i].Before(s.WorkDates[j]) })

	s.WeeksObserved = len(weekDays)
	for _, days := range weekDays {
		for wd := range days {
			s.weeksWithDay[wd]++
		}
	}

	var gaps []float64
	for i := 1; i < len(s.WorkDates); i++ {
		gap := s.WorkDates[i].Sub(s.WorkDates[i-1]).Hours() / 24
		if gap > 0 && gap < maxUsableGapDays {
			gaps = append(gaps, gap)
		}
	}
	s.UsableGaps = len(gaps)
	if len(gaps) >= 1 {
		s.RollingInterval = stat.Mean(gaps, nil)
		if len(gaps) >= 2 {
			s.IntervalStd = stat.PopStdDev(gaps, nil)
		}
	}
	return s
}

// DaysSinceLast returns the gap between the most recent work date strictly
// before the candidate date and the candidate, capped at 30 days.
func (s *Stats) DaysSinceLast(date time.Time) int {
	days := defaultDaysSinceLast
	for i := len(s.WorkDates) - 1; i >= 0; i-- {
		if s.WorkDates[i].Before(date) {
			days = int(date.Sub(s.WorkDates[i]).Hours() / 24)
			break
		}
	}
	if days > maxDaysSinceLast {
		days = maxDaysSinceLast
	}
	return days
}

// LastWorkDate returns the most recent work date, false when the driver has
// no dated history.
func (s *Stats) LastWorkDate() (time.Time, bool) {
	if len(s.WorkDates) == 0 {
		return time.Time{}, false
	}
	return s.WorkDates[len(s.WorkDates)-1], true
}

// IsRollingMatch reports whether the candidate date fits the driver's
// calendar-independent cadence: the gap since the last work date is within
// max(1, interval std-dev) of the rolling interval. Drivers without dated
// history return 0.5 (unknown).
func (s *Stats) IsRollingMatch(date time.Time) float64 {
	if len(s.WorkDates) == 0 || s.RollingInterval <= 0 {
		return 0.5
	}
	deviation := float64(s.DaysSinceLast(date)) - s.RollingInterval
	if deviation < 0 {
		deviation = -deviation
	}
	tolerance := s.IntervalStd
	if tolerance < 1 {
		tolerance = 1
	}
	if deviation <= tolerance {
		return 1
	}
	return 0
}

// WeekdayFrequency returns the share of the driver's records that fell on
// the given weekday.
func (s *Stats) WeekdayFrequency(weekday int) float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.WeekdayCounts[weekday]) / float64(s.Total)
}

// RollingConfidence expresses how trustworthy the rolling interval is:
// tight cadences score near 1, erratic ones near 0.
func (s *Stats) RollingConfidence() float64 {
	return 1 / (1 + s.IntervalStd)
}

// HasConfidentRollingPattern reports whether the driver's cadence is regular
// enough to justify a rolling-pattern bonus.
func (s *Stats) HasConfidentRollingPattern() bool {
	return s.UsableGaps >= 3 && s.IntervalStd <= 1.5
}

// Profile derives the driver's profile from the statistics. A driver with
// zero valid records yields an all-empty profile with an unknown pattern
// group, never an error.
func (s *Stats) Profile() model.DriverProfile {
	p := model.DriverProfile{
		DriverID:            s.DriverID,
		PatternGroup:        s.patternGroup(),
		PreferredDays:       s.preferredDays(),
		PreferredTimes:      s.PreferredTimes(3),
		RollingInterval:     s.RollingInterval,
		IntervalStd:         s.IntervalStd,
		ConsistencyScore:    s.consistency(),
		PatternConfidence:   s.RollingConfidence(),
		AssignmentsAnalyzed: s.Total,
	}
	return p
}

// preferredDays selects days present in at least half of the observed weeks,
// falling back to the four most frequent days when no day reaches that bar.
func (s *Stats) preferredDays() []string {
	var days []string
	if s.WeeksObserved > 0 {
		type cand struct {
			wd    int
			count int
		}
		var qualified []cand
		for wd := 0; wd < 7; wd++ {
			if float64(s.weeksWithDay[wd]) >= 0.5*float64(s.WeeksObserved) && s.WeekdayCounts[wd] > 0 {
				qualified = append(qualified, cand{wd, s.WeekdayCounts[wd]})
			}
		}
		sort.Slice(qualified, func(i, j int) bool {
			if qualified[i].count != qualified[j].count {
				return qualified[i].count > qualified[j].count
			}
			return qualified[i].wd < qualified[j].wd
		})
		for _, c := range qualified {
			days = append(days, model.DayNames[c.wd])
		}
	}
	if len(days) > 0 {
		return days
	}
	return s.topDays(4)
}

func (s *Stats) topDays(n int) []string {
	type cand struct {
		wd    int
		count int
	}
	var cands []cand
	for wd := 0; wd < 7; wd++ {
		if s.WeekdayCounts[wd] > 0 {
			cands = append(cands, cand{wd, s.WeekdayCounts[wd]})
		}
	}
	sort.Slice(cands, func(i, j int) bool {
		if cands[i].count != cands[j].count {
			return cands[i].count > cands[j].count
		}
		return cands[i].wd < cands[j].wd
	})
	if len(cands) > n {
		cands = cands[:n]
	}
	days := make([]string, 0, len(cands))
	for _, c := range cands {
		days = append(days, model.DayNames[c.wd])
	}
	return days
}

// PreferredTimes returns the n most frequent start times, ranked strictly by
// occurrence count. Frequency order is the signal the optimizer cares about;
// ties break toward the lexicographically earlier time for determinism.
func (s *Stats) PreferredTimes(n int) []string {
	type cand struct {
		t     string
		count int
	}
	cands := make([]cand, 0, len(s.TimeCounts))
	for t, c := range s.TimeCounts {
		cands = append(cands, cand{t, c})
	}
	sort.Slice(cands, func(i, j int) bool {
		if cands[i].count != cands[j].count {
			return cands[i].count > cands[j].count
		}
		return cands[i].t < cands[j].t
	})
	if len(cands) > n {
		cands = cands[:n]
	}
	times := make([]string, 0, len(cands))
	for _, c := range cands {
		times = append(times, c.t)
	}
	return times
}

// patternGroup labels which half of the week the driver's work concentrates
// in. Wednesday straddles both halves and contributes half its weight to
// each side.
func (s *Stats) patternGroup() string {
	if s.Total < MinPatternAssignments {
		return model.PatternUnknown
	}
	sunWed := s.WeekdayFrequency(0) + s.WeekdayFrequency(1) + s.WeekdayFrequency(2) + 0.5*s.WeekdayFrequency(3)
	wedSat := 0.5*s.WeekdayFrequency(3) + s.WeekdayFrequency(4) + s.WeekdayFrequency(5) + s.WeekdayFrequency(6)
	total := sunWed + wedSat
	if total <= 0 {
		return model.PatternMixed
	}
	switch {
	case sunWed/total >= patternRatio:
		return model.PatternSunWed
	case wedSat/total >= patternRatio:
		return model.PatternWedSat
	default:
		return model.PatternMixed
	}
}

// consistency measures how concentrated the driver's work is on specific
// days: 1 means the same days every week, 0 means scattered.
func (s *Stats) consistency() float64 {
	var counts []float64
	for wd := 0; wd < 7; wd++ {
		if s.WeekdayCounts[wd] > 0 {
			counts = append(counts, float64(s.WeekdayCounts[wd]))
		}
	}
	if len(counts) == 0 {
		return 0
	}
	mean := stat.Mean(counts, nil)
	std := stat.PopStdDev(counts, nil)
	c := 1 - std/(mean+0.01)
	if c < 0 {
		c = 0
	}
	if c > 1 {
		c = 1
	}
	return c
}

func weekKey(year, week int) string {
	return fmt.Sprintf("%04d-%02d", year, week)
}
