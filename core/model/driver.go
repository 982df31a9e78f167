package model

import "strings"

// Contract types supported by the engine. A driver may only cover blocks of
// the same contract type.
const (
	ContractSoloShort = "solo1"
	ContractSoloLong  = "solo2"
	ContractTeam      = "team"
)

// Driver represents a driver eligible for weekly block assignments.
// The record is immutable for the duration of a scheduling run.
type Driver struct {
	ID           string `json:"id"`
	Name         string `json:"name,omitempty"`
	ContractType string `json:"contractType,omitempty"`
}

// Contract returns the driver's normalized contract type.
func (d Driver) Contract() string {
	return NormalizeContract(d.ContractType)
}

// NormalizeContract lowercases a contract type and maps the empty value to
// the default solo-short contract.
func NormalizeContract(ct string) string {
	ct = strings.ToLower(strings.TrimSpace(ct))
	if ct == "" {
		return ContractSoloShort
	}
	return ct
}
