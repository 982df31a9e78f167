package model

// Pattern group labels. A driver's pattern group describes which half of the
// week their work concentrates in. Drivers with too little history report
// PatternUnknown; a pattern is never fabricated from insufficient evidence.
const (
	PatternSunWed  = "sunWed"
	PatternWedSat  = "wedSat"
	PatternMixed   = "mixed"
	PatternUnknown = "unknown"
)

// DriverProfile is the derived view of one driver's historical behaviour.
// It is recomputed on every run and never persisted unless explicitly saved.
type DriverProfile struct {
	DriverID            string   `json:"driverId"`
	PatternGroup        string   `json:"patternGroup"`
	PreferredDays       []string `json:"preferredDays"`
	PreferredTimes      []string `json:"preferredTimes"`
	RollingInterval     float64  `json:"rollingInterval"`
	IntervalStd         float64  `json:"intervalStd"`
	ConsistencyScore    float64  `json:"consistencyScore"`
	PatternConfidence   float64  `json:"patternConfidence"`
	AssignmentsAnalyzed int      `json:"assignmentsAnalyzed"`
}
