package metrics

import "github.com/prometheus/client_golang/prometheus"

// PromSink exposes run outcomes as Prometheus metrics.
type PromSink struct {
	runs        *prometheus.CounterVec
	assignments *prometheus.CounterVec
	blocks      *prometheus.CounterVec
	duration    *prometheus.HistogramVec
}

// NewPromSink registers the metrics on the default registerer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers the metrics on the provided registerer.
// A nil registerer defaults to the global one.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "assignment_runs_total",
		Help: "Completed optimization runs",
	}, []string{"action", "solver_status"})
	assignments := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "assignments_total",
		Help: "Assignments emitted, by score provenance",
	}, []string{"match_type"})
	blocks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "blocks_total",
		Help: "Blocks processed, split by outcome",
	}, []string{"outcome"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "assignment_run_duration_seconds",
		Help:    "End-to-end duration of one engine run",
		Buckets: prometheus.DefBuckets,
	}, []string{"action"})

	if err := register(reg, &runs); err != nil {
		return nil, err
	}
	if err := register(reg, &assignments); err != nil {
		return nil, err
	}
	if err := register(reg, &blocks); err != nil {
		return nil, err
	}
	if err := reg.Register(duration); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			duration = are.ExistingCollector.(*prometheus.HistogramVec)
		} else {
			return nil, err
		}
	}

	return &PromSink{runs: runs, assignments: assignments, blocks: blocks, duration: duration}, nil
}

func register(reg prometheus.Registerer, vec **prometheus.CounterVec) error {
	if err := reg.Register(*vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			*vec = are.ExistingCollector.(*prometheus.CounterVec)
			return nil
		}
		return err
	}
	return nil
}

func (s *PromSink) RecordRun(p RunPoint) error {
	s.runs.WithLabelValues(p.Action, p.SolverStatus).Inc()
	s.blocks.WithLabelValues("assigned").Add(float64(p.Assigned))
	s.blocks.WithLabelValues("unassigned").Add(float64(p.Unassigned))
	s.duration.WithLabelValues(p.Action).Observe(p.Duration.Seconds())
	return nil
}

func (s *PromSink) RecordAssignment(p AssignmentPoint) error {
	s.assignments.WithLabelValues(p.MatchType).Inc()
	return nil
}

func (s *PromSink) Close() {}
