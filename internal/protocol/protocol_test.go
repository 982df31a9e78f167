package protocol

import (
	"bytes"
	"strings"
	"testing"
)

func TestReadRequest(t *testing.T) {
	in := `{"action":"optimize","minDays":4,"drivers":[{"id":"d1","contractType":"solo1"}],
		"slotHistory":{"sunday_07:00":{"d1":5}}}`
	req, err := ReadRequest(strings.NewReader(in))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if req.Action != ActionOptimize || req.MinDays != 4 {
		t.Fatalf("got %+v", req)
	}
	if len(req.Drivers) != 1 || req.Drivers[0].ID != "d1" {
		t.Fatalf("drivers = %+v", req.Drivers)
	}
	if req.SlotHistory["sunday_07:00"]["d1"] != 5 {
		t.Fatalf("slot history = %+v", req.SlotHistory)
	}
}

func TestReadRequestMalformed(t *testing.T) {
	if _, err := ReadRequest(strings.NewReader("{not json")); err == nil {
		t.Fatal("expected error for malformed input")
	}
	if _, err := ReadRequest(strings.NewReader("")); err == nil {
		t.Fatal("expected error for empty input")
	}
}

func TestWriteResponse(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteResponse(&buf, Failf("unknown action: %s", "bogus")); err != nil {
		t.Fatalf("write: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, `"success":false`) || !strings.Contains(out, "unknown action: bogus") {
		t.Fatalf("output = %s", out)
	}
	if !strings.HasSuffix(out, "\n") {
		t.Fatal("response must be newline-terminated")
	}
}
