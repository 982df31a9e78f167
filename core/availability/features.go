// Package availability predicts how likely a driver is to work a given date,
// from a small feature vector over their extracted history.
package availability

import (
	"time"

	"github.com/Dshy007/blockassign/core/history"
)

// FeatureCount is the fixed width of the feature vector.
const FeatureCount = 6

// FeatureNames documents the vector layout, index for index.
var FeatureNames = [FeatureCount]string{
	"dayOfWeek",
	"weekOfMonth",
	"daysSinceLastWorked",
	"historicalFreqThisDay",
	"rollingInterval",
	"isRollingMatch",
}

// Features builds the vector for one driver and candidate date.
func Features(s *history.Stats, date time.Time) []float64 {
	weekday := int(date.Weekday())
	return []float64{
		float64(weekday),
		float64(weekOfMonth(date)),
		float64(s.DaysSinceLast(date)),
		s.WeekdayFrequency(weekday),
		s.RollingInterval,
		s.IsRollingMatch(date),
	}
}

// weekOfMonth returns which week of the month the date falls in, 1 through 4,
// with the fifth sliver of long months folded into week 4.
func weekOfMonth(date time.Time) int {
	first := time.Date(date.Year(), date.Month(), 1, 0, 0, 0, 0, date.Location())
	firstOffset := (int(first.Weekday()) + 6) % 7 // Monday-based offset of the 1st
	week := (date.Day() + firstOffset - 1) / 7
	if week > 3 {
		week = 3
	}
	return week + 1
}
