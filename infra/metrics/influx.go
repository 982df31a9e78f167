package metrics

import (
	"context"
	"math"
	"net/http"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/Dshy007/blockassign/core/logger"
)

// InfluxSink writes run outcomes to an InfluxDB instance.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a sink for the given InfluxDB endpoint.
func NewInfluxSink(url, token, org, bucket string, log logger.Logger) *InfluxSink {
	base := strings.TrimSuffix(url, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      log,
	}
}

// NewInfluxSinkWithFallback pings the InfluxDB instance and falls back to a
// NopSink when the health check fails, so metrics never block a run.
func NewInfluxSinkWithFallback(url, token, org, bucket string, log logger.Logger) Sink {
	sink := NewInfluxSink(url, token, org, bucket, log)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			log.Errorf("influx health check error: %v", err)
		} else {
			log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return NopSink{}
	}
	return sink
}

func (s *InfluxSink) RecordRun(p RunPoint) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	pt := write.NewPointWithMeasurement("assignment_run").
		AddTag("run_id", p.RunID).
		AddTag("action", p.Action).
		AddTag("scorer", p.Scorer).
		AddTag("solver_status", p.SolverStatus).
		AddField("total_blocks", p.TotalBlocks).
		AddField("assigned", p.Assigned).
		AddField("unassigned", p.Unassigned).
		AddField("duration_ms", p.Duration.Milliseconds()).
		SetTime(p.Time)
	return s.writeAPI.WritePoint(ctx, pt)
}

func (s *InfluxSink) RecordAssignment(p AssignmentPoint) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	pt := write.NewPointWithMeasurement("assignment").
		AddTag("run_id", p.RunID).
		AddTag("block_id", p.BlockID).
		AddTag("driver_id", p.DriverID).
		AddTag("match_type", p.MatchType).
		AddField("score", round3(p.Score)).
		SetTime(p.Time)
	return s.writeAPI.WritePoint(ctx, pt)
}

func (s *InfluxSink) Close() {
	s.client.Close()
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
