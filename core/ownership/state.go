package ownership

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/Dshy007/blockassign/core/model"
)

// state is the serialized form of a trained classifier. Occurrence dates are
// kept so the recency tie-break survives a save/load cycle; undated
// occurrences serialize as empty strings.
type state struct {
	TrainedAt   string                         `json:"trainedAt"`
	Threshold   float64                        `json:"threshold"`
	RecentWeeks int                            `json:"recentWeeks"`
	Drivers     []string                       `json:"drivers"`
	Slots       map[string]map[string][]string `json:"slots"`
}

// SaveFile writes the trained classifier state as JSON.
func (c *Classifier) SaveFile(path string) error {
	st := state{
		TrainedAt:   c.now().Format(time.RFC3339),
		Threshold:   c.Threshold,
		RecentWeeks: c.RecentWeeks,
		Drivers:     c.Drivers(),
		Slots:       make(map[string]map[string][]string, len(c.slots)),
	}
	for key, owners := range c.slots {
		m := make(map[string][]string, len(owners))
		for d, dates := range owners {
			ds := make([]string, len(dates))
			for i, dt := range dates {
				if !dt.IsZero() {
					ds[i] = dt.Format(model.DateLayout)
				}
			}
			sort.Strings(ds)
			m[d] = ds
		}
		st.Slots[key.String()] = m
	}

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal ownership state: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write ownership state: %w", err)
	}
	return nil
}

// LoadFile restores a classifier from a saved state file.
func LoadFile(path string) (*Classifier, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read ownership state: %w", err)
	}
	var st state
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("parse ownership state: %w", err)
	}

	c := New()
	if st.Threshold > 0 {
		c.Threshold = st.Threshold
	}
	if st.RecentWeeks > 0 {
		c.RecentWeeks = st.RecentWeeks
	}
	for _, d := range st.Drivers {
		c.drivers[d] = true
	}
	for keyStr, owners := range st.Slots {
		key, err := model.ParseSlotKey(keyStr)
		if err != nil {
			return nil, err
		}
		m := make(map[string][]time.Time, len(owners))
		for d, dates := range owners {
			ts := make([]time.Time, len(dates))
			for i, ds := range dates {
				if ds == "" {
					continue
				}
				dt, err := model.ParseDate(ds)
				if err != nil {
					return nil, fmt.Errorf("ownership state date %q: %w", ds, err)
				}
				ts[i] = dt
			}
			m[d] = ts
			c.drivers[d] = true
		}
		c.slots[key] = m
	}
	return c, nil
}
