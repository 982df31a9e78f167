package metrics

import (
	"context"
	"time"

	"github.com/Dshy007/blockassign/internal/eventbus"
)

// StartCollector subscribes to the run and assignment buses and forwards
// events to the sink. It stops when the context is canceled.
func StartCollector(ctx context.Context, runs *eventbus.Bus[eventbus.RunEvent], assigns *eventbus.Bus[eventbus.AssignmentEvent], sink Sink) {
	if sink == nil {
		return
	}
	if runs != nil {
		sub := runs.Subscribe()
		go func() {
			defer runs.Unsubscribe(sub)
			for {
				select {
				case <-ctx.Done():
					return
				case ev, ok := <-sub:
					if !ok {
						return
					}
					_ = sink.RecordRun(RunPoint{
						RunID:        ev.RunID,
						Action:       ev.Action,
						Scorer:       ev.Scorer,
						SolverStatus: ev.SolverStatus,
						TotalBlocks:  ev.TotalBlocks,
						Assigned:     ev.Assigned,
						Unassigned:   ev.Unassigned,
						Duration:     ev.Duration,
						Time:         time.Now(),
					})
				}
			}
		}()
	}
	if assigns != nil {
		sub := assigns.Subscribe()
		go func() {
			defer assigns.Unsubscribe(sub)
			for {
				select {
				case <-ctx.Done():
					return
				case ev, ok := <-sub:
					if !ok {
						return
					}
					_ = sink.RecordAssignment(AssignmentPoint{
						RunID:     ev.RunID,
						BlockID:   ev.BlockID,
						DriverID:  ev.DriverID,
						MatchType: ev.MatchType,
						Score:     ev.Score,
						Time:      time.Now(),
					})
				}
			}
		}()
	}
}
