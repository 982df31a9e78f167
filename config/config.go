// Package config loads the engine configuration from YAML or JSON files with
// optional environment overrides.
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/Dshy007/blockassign/infra/metrics"
)

type Config struct {
	Engine  EngineConfig     `json:"engine"`
	Logging LoggingConfig    `json:"logging"`
	Metrics metrics.Settings `json:"metrics"`
	Store   StoreConfig      `json:"store"`
}

// EngineConfig tunes the assignment engine.
type EngineConfig struct {
	// MinDays is the default minimum working days per driver when the
	// request does not set one.
	MinDays int `json:"min_days"`
	// ScoreScale converts fractional scores to integer objective weights.
	ScoreScale int64 `json:"score_scale"`
	// SolveTimeoutSeconds bounds one solver invocation.
	SolveTimeoutSeconds int `json:"solve_timeout_seconds"`
	// OwnershipStatePath is where the trained ownership state is kept.
	OwnershipStatePath string `json:"ownership_state_path"`
}

// LoggingConfig configures the stderr diagnostic log.
type LoggingConfig struct {
	Level     string `json:"level"`
	Component string `json:"component"`
}

// StoreConfig configures the optional run audit store.
type StoreConfig struct {
	// SQLitePath enables audit persistence when set.
	SQLitePath string `json:"sqlite_path"`
}

// Load reads the config file at path. An empty path returns defaults.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	if path != "" {
		ext := strings.ToLower(filepath.Ext(path))
		var parser koanf.Parser
		switch ext {
		case ".yaml", ".yml":
			parser = yaml.Parser()
		case ".json":
			parser = json.Parser()
		default:
			return nil, fmt.Errorf("unsupported config format: %s", ext)
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return nil, err
		}
	}
	// Optional environment overrides. The callback rewrites BA_A__B to a.b,
	// so the provider splits on "." to nest the keys.
	if err := k.Load(env.Provider("BA_", ".", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "ba_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.Engine.SetDefaults()
	cfg.Logging.SetDefaults()
	if err := cfg.Engine.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Logging.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SetDefaults applies sane defaults.
func (c *EngineConfig) SetDefaults() {
	if c.MinDays == 0 {
		c.MinDays = 5
	}
	if c.ScoreScale == 0 {
		c.ScoreScale = 1000
	}
	if c.SolveTimeoutSeconds == 0 {
		c.SolveTimeoutSeconds = 30
	}
	if c.OwnershipStatePath == "" {
		c.OwnershipStatePath = "ownership_state.json"
	}
}

// Validate checks mandatory fields.
func (c EngineConfig) Validate() error {
	if c.MinDays < 3 || c.MinDays > 5 {
		return fmt.Errorf("min_days must be between 3 and 5, got %d", c.MinDays)
	}
	if c.ScoreScale <= 0 {
		return fmt.Errorf("score_scale must be positive")
	}
	if c.SolveTimeoutSeconds <= 0 {
		return fmt.Errorf("solve_timeout_seconds must be positive")
	}
	return nil
}

// SolveTimeout returns the configured timeout as a duration.
func (c EngineConfig) SolveTimeout() time.Duration {
	return time.Duration(c.SolveTimeoutSeconds) * time.Second
}

// SetDefaults applies sane defaults.
func (c *LoggingConfig) SetDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
	if c.Component == "" {
		c.Component = "blockassign"
	}
}

// Validate checks the configured level is known.
func (c LoggingConfig) Validate() error {
	switch c.Level {
	case "trace", "debug", "info", "warn", "error", "fatal", "panic":
		return nil
	}
	return fmt.Errorf("unknown log level %s", c.Level)
}
