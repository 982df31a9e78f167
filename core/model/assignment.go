package model

// Match types attached to assignments. Every assignment must be explainable
// by the specific prior signal that produced its score.
const (
	MatchModel       = "model"
	MatchSlotHistory = "slotHistory"
	MatchPattern     = "pattern"
	MatchContract    = "contractOnly"
	MatchPrecomputed = "precomputed"
)

// Assignment pairs one block with one driver. It is produced exactly once
// per solved block and immutable once emitted.
type Assignment struct {
	BlockID      string  `json:"blockId"`
	DriverID     string  `json:"driverId"`
	DriverName   string  `json:"driverName,omitempty"`
	ServiceDate  string  `json:"serviceDate"`
	Day          string  `json:"day,omitempty"`
	Time         string  `json:"time,omitempty"`
	ContractType string  `json:"contractType"`
	MatchType    string  `json:"matchType"`
	Score        float64 `json:"score"`
}

// ScoreMatrix is a sparse blockID -> driverID -> score mapping. Scores live
// in [0,1] except under the raw-history fallback, where they are occurrence
// counts rescaled before solving. The matrix is transient and rebuilt for
// every optimization call.
type ScoreMatrix map[string]map[string]float64

// Set stores one score.
func (m ScoreMatrix) Set(blockID, driverID string, score float64) {
	row, ok := m[blockID]
	if !ok {
		row = make(map[string]float64)
		m[blockID] = row
	}
	row[driverID] = score
}

// Get returns the score for a pair, zero when absent.
func (m ScoreMatrix) Get(blockID, driverID string) float64 {
	return m[blockID][driverID]
}
