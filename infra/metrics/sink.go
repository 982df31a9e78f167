// Package metrics records optimization run outcomes in Prometheus and
// InfluxDB. Sinks are optional observers; a failing sink never fails a run.
package metrics

import "time"

// RunPoint is one completed engine run.
type RunPoint struct {
	RunID        string
	Action       string
	Scorer       string
	SolverStatus string
	TotalBlocks  int
	Assigned     int
	Unassigned   int
	Duration     time.Duration
	Time         time.Time
}

// AssignmentPoint is one emitted assignment.
type AssignmentPoint struct {
	RunID     string
	BlockID   string
	DriverID  string
	MatchType string
	Score     float64
	Time      time.Time
}

// Sink receives run and assignment records.
type Sink interface {
	RecordRun(RunPoint) error
	RecordAssignment(AssignmentPoint) error
	Close()
}

// NopSink drops everything.
type NopSink struct{}

func (NopSink) RecordRun(RunPoint) error               { return nil }
func (NopSink) RecordAssignment(AssignmentPoint) error { return nil }
func (NopSink) Close()                                 {}

// MultiSink fans records out to several sinks, returning the first error.
type MultiSink struct {
	Sinks []Sink
}

// NewMultiSink bundles sinks.
func NewMultiSink(sinks ...Sink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

func (m *MultiSink) RecordRun(p RunPoint) error {
	for _, s := range m.Sinks {
		if err := s.RecordRun(p); err != nil {
			return err
		}
	}
	return nil
}

func (m *MultiSink) RecordAssignment(p AssignmentPoint) error {
	for _, s := range m.Sinks {
		if err := s.RecordAssignment(p); err != nil {
			return err
		}
	}
	return nil
}

func (m *MultiSink) Close() {
	for _, s := range m.Sinks {
		s.Close()
	}
}
