package model

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the canonical civil date format used on the wire.
const DateLayout = "2006-01-02"

// DayNames maps weekday indices (Sunday=0) to their canonical lowercase names.
var DayNames = [7]string{"sunday", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday"}

// Block is one unfilled shift to be staffed for a specific calendar date.
type Block struct {
	ID           string `json:"id"`
	ServiceDate  string `json:"serviceDate"`
	Day          string `json:"day,omitempty"`
	Time         string `json:"time,omitempty"`
	ContractType string `json:"contractType,omitempty"`
	TractorID    string `json:"tractorId,omitempty"`
}

// Contract returns the block's normalized contract type.
func (b Block) Contract() string {
	return NormalizeContract(b.ContractType)
}

// Date parses the block's service date.
func (b Block) Date() (time.Time, error) {
	return ParseDate(b.ServiceDate)
}

// Weekday returns the block's weekday index (Sunday=0). The service date wins
// over the textual day field when both are present.
func (b Block) Weekday() (int, error) {
	if d, err := b.Date(); err == nil {
		return int(d.Weekday()), nil
	}
	if wd, ok := ParseWeekday(b.Day); ok {
		return wd, nil
	}
	return 0, fmt.Errorf("block %s: no usable date or day", b.ID)
}

// Slot returns the "day_time" aggregation key used by slot history maps.
func (b Block) Slot() string {
	day := strings.ToLower(b.Day)
	if day == "" {
		if wd, err := b.Weekday(); err == nil {
			day = DayNames[wd]
		}
	}
	return day + "_" + b.Time
}

// SlotKey is the recurring category a block belongs to. Many assignment
// records on different dates map to the same SlotKey.
type SlotKey struct {
	ContractType string `json:"contractType"`
	TractorID    string `json:"tractorId"`
	StartTime    string `json:"startTime"`
	Weekday      int    `json:"dayOfWeek"`
}

// String renders the key in its stable pipe-separated form.
func (k SlotKey) String() string {
	return fmt.Sprintf("%s|%s|%s|%d", k.ContractType, k.TractorID, k.StartTime, k.Weekday)
}

// ParseSlotKey parses the pipe-separated form produced by String.
func ParseSlotKey(s string) (SlotKey, error) {
	parts := strings.Split(s, "|")
	if len(parts) != 4 {
		return SlotKey{}, fmt.Errorf("malformed slot key %q", s)
	}
	var wd int
	if _, err := fmt.Sscanf(parts[3], "%d", &wd); err != nil || wd < 0 || wd > 6 {
		return SlotKey{}, fmt.Errorf("malformed slot key weekday %q", parts[3])
	}
	return SlotKey{ContractType: parts[0], TractorID: parts[1], StartTime: parts[2], Weekday: wd}, nil
}

// ParseDate parses a civil date, tolerating RFC3339 timestamps by using their
// date part.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if len(s) > len(DateLayout) {
		s = s[:len(DateLayout)]
	}
	return time.Parse(DateLayout, s)
}

// ParseWeekday maps a day name to its index (Sunday=0).
func ParseWeekday(name string) (int, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range DayNames {
		if n == name {
			return i, true
		}
	}
	return 0, false
}
