package model

import "testing"

func TestNormalizeContract(t *testing.T) {
	cases := map[string]string{
		"":       ContractSoloShort,
		"SOLO2":  ContractSoloLong,
		" Team ": ContractTeam,
		"solo1":  ContractSoloShort,
	}
	for in, want := range cases {
		if got := NormalizeContract(in); got != want {
			t.Errorf("NormalizeContract(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestParseDateToleratesTimestamps(t *testing.T) {
	d, err := ParseDate("2026-01-04T08:00:00Z")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if d.Format(DateLayout) != "2026-01-04" {
		t.Fatalf("got %v", d)
	}
	if _, err := ParseDate("not a date"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestBlockWeekdayPrefersServiceDate(t *testing.T) {
	// 2026-01-05 is a Monday even though the day field says friday.
	b := Block{ID: "b1", ServiceDate: "2026-01-05", Day: "friday"}
	wd, err := b.Weekday()
	if err != nil {
		t.Fatalf("weekday: %v", err)
	}
	if wd != 1 {
		t.Fatalf("weekday = %d, want 1", wd)
	}

	b = Block{ID: "b2", Day: "Friday"}
	wd, err = b.Weekday()
	if err != nil || wd != 5 {
		t.Fatalf("day-only weekday = %d, %v", wd, err)
	}

	if _, err := (Block{ID: "b3"}).Weekday(); err == nil {
		t.Fatalf("expected error without date or day")
	}
}

func TestBlockSlot(t *testing.T) {
	b := Block{ServiceDate: "2026-01-04", Time: "08:00"}
	if got := b.Slot(); got != "sunday_08:00" {
		t.Fatalf("slot = %q", got)
	}
}

func TestSlotKeyRoundTrip(t *testing.T) {
	k := SlotKey{ContractType: "solo1", TractorID: "T1", StartTime: "08:00", Weekday: 3}
	parsed, err := ParseSlotKey(k.String())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if parsed != k {
		t.Fatalf("round trip changed key: %+v", parsed)
	}
	for _, bad := range []string{"", "a|b|c", "a|b|c|9", "a|b|c|x"} {
		if _, err := ParseSlotKey(bad); err == nil {
			t.Errorf("ParseSlotKey(%q) should fail", bad)
		}
	}
}

func TestNormalizeRecordFieldFallbacks(t *testing.T) {
	rec, err := RawRecord{
		DriverName: "Alice",
		Date:       "2026-01-04",
		Time:       "08:00",
		SoloType:   "Solo2",
		TractorID:  "T9",
	}.Normalize()
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if rec.Key() != "Alice" {
		t.Fatalf("key = %q", rec.Key())
	}
	if !rec.HasDate || rec.Weekday != 0 {
		t.Fatalf("date not applied: %+v", rec)
	}
	if rec.StartTime != "08:00" || rec.ContractType != ContractSoloLong {
		t.Fatalf("fallback fields wrong: %+v", rec)
	}
}

func TestNormalizeRecordExplicitWeekdayWins(t *testing.T) {
	wd := 3
	rec, err := RawRecord{DriverID: "d1", ServiceDate: "2026-01-04", DayOfWeek: &wd}.Normalize()
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if rec.Weekday != 3 {
		t.Fatalf("weekday = %d, want explicit 3", rec.Weekday)
	}
}

func TestNormalizeAllSkipsUnusable(t *testing.T) {
	recs := NormalizeAll([]RawRecord{
		{DriverID: "d1", ServiceDate: "2026-01-04"},
		{DriverID: "d2"},
		{DriverID: "d3", Day: "monday"},
	})
	if len(recs) != 2 {
		t.Fatalf("expected 2 usable records, got %d", len(recs))
	}
}

func TestScoreMatrix(t *testing.T) {
	m := ScoreMatrix{}
	m.Set("b1", "d1", 0.8)
	if got := m.Get("b1", "d1"); got != 0.8 {
		t.Fatalf("get = %v", got)
	}
	if got := m.Get("b1", "d2"); got != 0 {
		t.Fatalf("missing driver = %v", got)
	}
	if got := m.Get("b2", "d1"); got != 0 {
		t.Fatalf("missing block = %v", got)
	}
}
