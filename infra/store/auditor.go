package store

import (
	"context"
	"time"

	"github.com/Dshy007/blockassign/core/logger"
	"github.com/Dshy007/blockassign/internal/eventbus"
)

// StartAuditor subscribes to the run and assignment buses and persists the
// events. It stops when the context is canceled.
func StartAuditor(ctx context.Context, runs *eventbus.Bus[eventbus.RunEvent], assigns *eventbus.Bus[eventbus.AssignmentEvent], st *SQLiteStore, log logger.Logger) {
	if st == nil {
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
					err := st.AddRun(RunRecord{
						RunID:        ev.RunID,
						Action:       ev.Action,
						Scorer:       ev.Scorer,
						SolverStatus: ev.SolverStatus,
						TotalBlocks:  ev.TotalBlocks,
						Assigned:     ev.Assigned,
						Unassigned:   ev.Unassigned,
						DurationMS:   ev.Duration.Milliseconds(),
						CreatedAt:    time.Now(),
					})
					if err != nil {
						log.Errorf("audit run %s: %v", ev.RunID, err)
					}
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
					err := st.AddAssignment(AssignmentRecord{
						RunID:     ev.RunID,
						BlockID:   ev.BlockID,
						DriverID:  ev.DriverID,
						MatchType: ev.MatchType,
						Score:     ev.Score,
					})
					if err != nil {
						log.Errorf("audit assignment %s/%s: %v", ev.RunID, ev.BlockID, err)
					}
				}
			}
		}()
	}
}
