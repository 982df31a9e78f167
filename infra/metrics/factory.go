package metrics

import (
	"fmt"

	"github.com/Dshy007/blockassign/core/logger"
)

// Settings selects and configures the metrics sinks.
type Settings struct {
	Sinks        []string `json:"sinks"`
	InfluxURL    string   `json:"influx_url"`
	InfluxToken  string   `json:"influx_token"`
	InfluxOrg    string   `json:"influx_org"`
	InfluxBucket string   `json:"influx_bucket"`
}

// Build assembles the configured sinks. No sinks configured means NopSink.
// Several sinks are bundled into a MultiSink.
func Build(s Settings, log logger.Logger) (Sink, error) {
	var sinks []Sink
	for _, name := range s.Sinks {
		switch name {
		case "nop", "":
			sinks = append(sinks, NopSink{})
		case "prometheus":
			prom, err := NewPromSink()
			if err != nil {
				return nil, fmt.Errorf("prometheus sink: %w", err)
			}
			sinks = append(sinks, prom)
		case "influx":
			sinks = append(sinks, NewInfluxSinkWithFallback(s.InfluxURL, s.InfluxToken, s.InfluxOrg, s.InfluxBucket, log))
		default:
			return nil, fmt.Errorf("unknown metrics sink %q", name)
		}
	}
	switch len(sinks) {
	case 0:
		return NopSink{}, nil
	case 1:
		return sinks[0], nil
	default:
		return NewMultiSink(sinks...), nil
	}
}
