package model

import (
	"errors"
	"time"
)

// RawRecord is the permissive external shape of a historical assignment
// record. Upstream exports disagree on field names, so every accepted
// spelling is listed here and mapped onto the canonical AssignmentRecord
// before any derived computation runs.
type RawRecord struct {
	DriverID     string `json:"driverId,omitempty"`
	DriverName   string `json:"driverName,omitempty"`
	BlockID      string `json:"blockId,omitempty"`
	ServiceDate  string `json:"serviceDate,omitempty"`
	Date         string `json:"date,omitempty"`
	Day          string `json:"day,omitempty"`
	DayName      string `json:"dayName,omitempty"`
	DayOfWeek    *int   `json:"dayOfWeek,omitempty"`
	StartTime    string `json:"startTime,omitempty"`
	Time         string `json:"time,omitempty"`
	SoloType     string `json:"soloType,omitempty"`
	ContractType string `json:"contractType,omitempty"`
	TractorID    string `json:"tractorId,omitempty"`
}

// AssignmentRecord is the canonical internal form of one historical
// assignment. It is the sole input to all derived statistics.
type AssignmentRecord struct {
	DriverID     string
	DriverName   string
	BlockID      string
	Date         time.Time
	HasDate      bool
	Weekday      int
	StartTime    string
	ContractType string
	TractorID    string
}

// ErrNoDate marks a record that carries neither a parseable date nor an
// explicit weekday. Such records are skipped, not fatal.
var ErrNoDate = errors.New("record has no usable date or weekday")

// Normalize maps the external shape onto the canonical record. A record with
// no parseable date may still be usable when a weekday is given explicitly.
func (r RawRecord) Normalize() (AssignmentRecord, error) {
	rec := AssignmentRecord{
		DriverID:   r.DriverID,
		DriverName: r.DriverName,
		BlockID:    r.BlockID,
		TractorID:  r.TractorID,
	}

	dateStr := r.ServiceDate
	if dateStr == "" {
		dateStr = r.Date
	}
	if dateStr != "" {
		if d, err := ParseDate(dateStr); err == nil {
			rec.Date = d
			rec.HasDate = true
			rec.Weekday = int(d.Weekday())
		}
	}
	if !rec.HasDate {
		switch {
		case r.DayOfWeek != nil && *r.DayOfWeek >= 0 && *r.DayOfWeek <= 6:
			rec.Weekday = *r.DayOfWeek
		default:
			if wd, ok := ParseWeekday(firstNonEmpty(r.Day, r.DayName)); ok {
				rec.Weekday = wd
			} else {
				return AssignmentRecord{}, ErrNoDate
			}
		}
	} else if r.DayOfWeek != nil && *r.DayOfWeek >= 0 && *r.DayOfWeek <= 6 {
		// An explicit weekday overrides the one derived from the date; some
		// exports shift dates across midnight but keep the roster weekday.
		rec.Weekday = *r.DayOfWeek
	}

	rec.StartTime = firstNonEmpty(r.StartTime, r.Time)
	rec.ContractType = NormalizeContract(firstNonEmpty(r.SoloType, r.ContractType))
	return rec, nil
}

// Key returns the identifier the record is aggregated under: the driver id
// when present, the display name otherwise.
func (r AssignmentRecord) Key() string {
	if r.DriverID != "" {
		return r.DriverID
	}
	return r.DriverName
}

// Slot returns the record's SlotKey.
func (r AssignmentRecord) Slot() SlotKey {
	return SlotKey{
		ContractType: r.ContractType,
		TractorID:    r.TractorID,
		StartTime:    r.StartTime,
		Weekday:      r.Weekday,
	}
}

// NormalizeAll converts raw records, silently skipping the unusable ones.
// One malformed record among thousands must never fail the batch.
func NormalizeAll(raws []RawRecord) []AssignmentRecord {
	recs := make([]AssignmentRecord, 0, len(raws))
	for _, raw := range raws {
		rec, err := raw.Normalize()
		if err != nil {
			continue
		}
		recs = append(recs, rec)
	}
	return recs
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
