package metrics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	corelogger "github.com/Dshy007/blockassign/core/logger"
	"github.com/Dshy007/blockassign/internal/eventbus"
)

type recordSink struct {
	runs    int
	assigns int
	err     error
	done    chan struct{}
}

func (r *recordSink) RecordRun(RunPoint) error {
	r.runs++
	if r.done != nil {
		r.done <- struct{}{}
	}
	return r.err
}

func (r *recordSink) RecordAssignment(AssignmentPoint) error {
	r.assigns++
	if r.done != nil {
		r.done <- struct{}{}
	}
	return r.err
}

func (r *recordSink) Close() {}

func TestMultiSinkForwards(t *testing.T) {
	s1 := &recordSink{}
	s2 := &recordSink{}
	m := NewMultiSink(s1, s2)
	if err := m.RecordRun(RunPoint{}); err != nil {
		t.Fatalf("record run: %v", err)
	}
	if err := m.RecordAssignment(AssignmentPoint{}); err != nil {
		t.Fatalf("record assignment: %v", err)
	}
	if s1.runs != 1 || s2.runs != 1 || s1.assigns != 1 || s2.assigns != 1 {
		t.Fatalf("records not forwarded: %+v %+v", s1, s2)
	}
}

func TestMultiSinkReturnsFirstError(t *testing.T) {
	boom := errors.New("boom")
	s1 := &recordSink{err: boom}
	s2 := &recordSink{}
	m := NewMultiSink(s1, s2)
	if err := m.RecordRun(RunPoint{}); !errors.Is(err, boom) {
		t.Fatalf("expected first error, got %v", err)
	}
	if s2.runs != 0 {
		t.Fatalf("second sink should not run after error")
	}
}

func TestPromSinkCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPromSinkWithRegistry(reg)
	if err != nil {
		t.Fatalf("new prom sink: %v", err)
	}
	err = sink.RecordRun(RunPoint{
		Action:       "optimize",
		SolverStatus: "optimal",
		Assigned:     3,
		Unassigned:   1,
		Duration:     120 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("record run: %v", err)
	}
	if err := sink.RecordAssignment(AssignmentPoint{MatchType: "pattern"}); err != nil {
		t.Fatalf("record assignment: %v", err)
	}

	if got := testutil.ToFloat64(sink.runs.WithLabelValues("optimize", "optimal")); got != 1 {
		t.Fatalf("runs counter = %v", got)
	}
	if got := testutil.ToFloat64(sink.blocks.WithLabelValues("assigned")); got != 3 {
		t.Fatalf("assigned blocks = %v", got)
	}
	if got := testutil.ToFloat64(sink.blocks.WithLabelValues("unassigned")); got != 1 {
		t.Fatalf("unassigned blocks = %v", got)
	}
	if got := testutil.ToFloat64(sink.assignments.WithLabelValues("pattern")); got != 1 {
		t.Fatalf("assignments counter = %v", got)
	}
}

func TestPromSinkDoubleRegister(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := NewPromSinkWithRegistry(reg); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if _, err := NewPromSinkWithRegistry(reg); err != nil {
		t.Fatalf("second register should reuse collectors: %v", err)
	}
}

func TestBuildSinks(t *testing.T) {
	log := corelogger.Nop{}
	sink, err := Build(Settings{}, log)
	if err != nil {
		t.Fatalf("empty settings: %v", err)
	}
	if _, ok := sink.(NopSink); !ok {
		t.Fatalf("expected NopSink, got %T", sink)
	}

	sink, err = Build(Settings{Sinks: []string{"nop", "prometheus"}}, log)
	if err != nil {
		t.Fatalf("multi build: %v", err)
	}
	if _, ok := sink.(*MultiSink); !ok {
		t.Fatalf("expected MultiSink, got %T", sink)
	}

	if _, err := Build(Settings{Sinks: []string{"bogus"}}, log); err == nil {
		t.Fatalf("expected error for unknown sink")
	}
}

func TestCollectorForwardsEvents(t *testing.T) {
	runs := eventbus.New[eventbus.RunEvent]()
	assigns := eventbus.New[eventbus.AssignmentEvent]()
	defer runs.Close()
	defer assigns.Close()

	sink := &recordSink{done: make(chan struct{}, 4)}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	StartCollector(ctx, runs, assigns, sink)

	runs.Publish(eventbus.RunEvent{RunID: "r1", Action: "optimize"})
	assigns.Publish(eventbus.AssignmentEvent{RunID: "r1", BlockID: "b1"})

	for i := 0; i < 2; i++ {
		select {
		case <-sink.done:
		case <-time.After(2 * time.Second):
			t.Fatalf("collector did not forward event %d", i)
		}
	}
	if sink.runs != 1 || sink.assigns != 1 {
		t.Fatalf("unexpected counts: %+v", sink)
	}
}
