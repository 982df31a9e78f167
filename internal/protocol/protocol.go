// Package protocol defines the single-exchange stdio contract: one JSON
// request on stdin, one JSON response on stdout. Diagnostics never touch
// stdout; the response is the only thing written there.
package protocol

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/Dshy007/blockassign/core/model"
	"github.com/Dshy007/blockassign/core/optimize"
)

// Actions understood by the engine.
const (
	ActionOptimize           = "optimize"
	ActionOptimizeWithScores = "optimize_with_scores"
	ActionCluster            = "cluster"
	ActionPredict            = "predict"
	ActionTrain              = "train"
	ActionGetDistribution    = "get_distribution"
	ActionGetDriverPattern   = "get_driver_pattern"
	ActionGetAllPatterns     = "get_all_patterns"
)

// Request is the union of all action payloads. Each action reads the fields
// it needs and ignores the rest.
type Request struct {
	Action string `json:"action"`

	Drivers           []model.Driver                 `json:"drivers,omitempty"`
	Blocks            []model.Block                  `json:"blocks,omitempty"`
	SlotHistory       map[string]map[string]int      `json:"slotHistory,omitempty"`
	MinDays           int                            `json:"minDays,omitempty"`
	DriverHistories   map[string][]model.RawRecord   `json:"driverHistories,omitempty"`
	DriverPreferences map[string]optimize.Preference `json:"driverPreferences,omitempty"`
	ScoreMatrix       map[string]map[string]float64  `json:"scoreMatrix,omitempty"`

	Assignments []model.RawRecord `json:"assignments,omitempty"`

	SoloType      string `json:"soloType,omitempty"`
	TractorID     string `json:"tractorId,omitempty"`
	DayOfWeek     *int   `json:"dayOfWeek,omitempty"`
	CanonicalTime string `json:"canonicalTime,omitempty"`
	DriverID      string `json:"driverId,omitempty"`
	DriverName    string `json:"driverName,omitempty"`
}

// ErrorResponse is the uniform domain-failure shape. Domain failures are
// normal responses; only unparseable input is a process error.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// Fail wraps an error for the caller.
func Fail(err error) ErrorResponse {
	return ErrorResponse{Error: err.Error()}
}

// Failf wraps a formatted error for the caller.
func Failf(format string, args ...any) ErrorResponse {
	return ErrorResponse{Error: fmt.Sprintf(format, args...)}
}

// ReadRequest decodes exactly one request.
func ReadRequest(r io.Reader) (*Request, error) {
	var req Request
	dec := json.NewDecoder(r)
	if err := dec.Decode(&req); err != nil {
		return nil, fmt.Errorf("decode request: %w", err)
	}
	return &req, nil
}

// WriteResponse encodes the response followed by a newline.
func WriteResponse(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode response: %w", err)
	}
	return nil
}
