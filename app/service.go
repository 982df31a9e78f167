// Package app wires the engine, its solver and the observability stack into
// a runnable service.
package app

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/Dshy007/blockassign/config"
	"github.com/Dshy007/blockassign/core/availability"
	"github.com/Dshy007/blockassign/core/engine"
	"github.com/Dshy007/blockassign/infra/forecast"
	"github.com/Dshy007/blockassign/infra/logger"
	"github.com/Dshy007/blockassign/infra/metrics"
	infrasolver "github.com/Dshy007/blockassign/infra/solver"
	"github.com/Dshy007/blockassign/infra/store"
	"github.com/Dshy007/blockassign/internal/eventbus"
	"github.com/Dshy007/blockassign/internal/protocol"
)

// Service reads one request from stdin, runs it through the engine and
// writes the response to stdout. Diagnostics go to stderr only.
type Service struct {
	engine  *engine.Engine
	runs    *eventbus.Bus[eventbus.RunEvent]
	assigns *eventbus.Bus[eventbus.AssignmentEvent]
	sink    metrics.Sink
	store   *store.SQLiteStore
	log     logger.Logger

	in  io.Reader
	out io.Writer
}

// New creates a Service from the configuration.
func New(cfg *config.Config) (*Service, error) {
	logg := logger.New(cfg.Logging.Component, cfg.Logging.Level)

	sink, err := metrics.Build(cfg.Metrics, logg)
	if err != nil {
		return nil, fmt.Errorf("metrics sinks: %w", err)
	}

	runs := eventbus.New[eventbus.RunEvent]()
	assigns := eventbus.New[eventbus.AssignmentEvent]()

	var st *store.SQLiteStore
	if cfg.Store.SQLitePath != "" {
		st, err = store.NewSQLiteStore(cfg.Store.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("audit store: %w", err)
		}
	}

	eng := engine.New(
		logg,
		infrasolver.New(logg),
		func() availability.Estimator { return forecast.NewLogisticEstimator() },
		engine.Config{
			DefaultMinDays:     cfg.Engine.MinDays,
			ScoreScale:         int(cfg.Engine.ScoreScale),
			SolveTimeout:       cfg.Engine.SolveTimeout(),
			OwnershipStatePath: cfg.Engine.OwnershipStatePath,
		},
		runs, assigns,
	)

	return &Service{
		engine:  eng,
		runs:    runs,
		assigns: assigns,
		sink:    sink,
		store:   st,
		log:     logg,
		in:      os.Stdin,
		out:     os.Stdout,
	}, nil
}

// Run handles a single request and returns once the response is written.
// The returned error signals unparseable input; domain failures are written
// as success:false responses and return nil.
func (s *Service) Run(ctx context.Context) error {
	metrics.StartCollector(ctx, s.runs, s.assigns, s.sink)
	if s.store != nil {
		store.StartAuditor(ctx, s.runs, s.assigns, s.store, s.log)
	}

	req, err := protocol.ReadRequest(s.in)
	if err != nil {
		s.log.Errorf("read request: %v", err)
		return fmt.Errorf("read request: %w", err)
	}

	resp, err := s.engine.Handle(ctx, req)
	if err != nil {
		return err
	}
	return protocol.WriteResponse(s.out, resp)
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	s.runs.Close()
	s.assigns.Close()
	s.sink.Close()
	if s.store != nil {
		return s.store.Close()
	}
	return nil
}
