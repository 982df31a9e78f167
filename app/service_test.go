package app

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Dshy007/blockassign/config"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	dir := t.TempDir()
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	cfg.Engine.OwnershipStatePath = filepath.Join(dir, "state.json")
	cfg.Store.SQLitePath = filepath.Join(dir, "audit.db")
	svc, err := New(cfg)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	t.Cleanup(func() { _ = svc.Close() })
	return svc
}

func TestRunWritesDomainFailureAsResponse(t *testing.T) {
	svc := newTestService(t)
	var out bytes.Buffer
	svc.in = strings.NewReader(`{"action":"cluster"}`)
	svc.out = &out

	if err := svc.Run(context.Background()); err != nil {
		t.Fatalf("domain failure should not error the process: %v", err)
	}
	var resp map[string]any
	if err := json.Unmarshal(out.Bytes(), &resp); err != nil {
		t.Fatalf("response not json: %v", err)
	}
	if success, _ := resp["success"].(bool); success {
		t.Fatalf("expected success:false, got %v", resp)
	}
	if resp["error"] == "" {
		t.Fatalf("expected error message")
	}
}

func TestRunFailsOnUnparseableInput(t *testing.T) {
	svc := newTestService(t)
	svc.in = strings.NewReader("not json at all")
	svc.out = &bytes.Buffer{}

	if err := svc.Run(context.Background()); err == nil {
		t.Fatalf("expected error for unparseable input")
	}
}

func TestRunOptimizeWithScores(t *testing.T) {
	svc := newTestService(t)
	req := `{
		"action": "optimize_with_scores",
		"drivers": [{"id": "d1", "name": "D One"}],
		"blocks": [{"id": "b1", "serviceDate": "2026-01-04", "time": "08:00", "contractType": "solo1", "tractorId": "T1"}],
		"scoreMatrix": {"b1": {"d1": 0.9}},
		"minDays": 3
	}`
	var out bytes.Buffer
	svc.in = strings.NewReader(req)
	svc.out = &out

	if err := svc.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	var resp struct {
		Success     bool `json:"success"`
		Assignments []struct {
			BlockID  string `json:"blockId"`
			DriverID string `json:"driverId"`
		} `json:"assignments"`
	}
	if err := json.Unmarshal(out.Bytes(), &resp); err != nil {
		t.Fatalf("response not json: %v", err)
	}
	if !resp.Success {
		t.Fatalf("expected success, got %s", out.String())
	}
	if len(resp.Assignments) != 1 || resp.Assignments[0].DriverID != "d1" {
		t.Fatalf("unexpected assignments: %+v", resp.Assignments)
	}
}
