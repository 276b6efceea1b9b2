// Package config resolves the scheduler's layered configuration: built-in
// defaults, then an optional YAML file. Policy mode is deliberately not
// part of this file; it is a build-time constant (see internal/policy).
package config

import (
	"os"
	"time"

	"bigsched/internal/logging"

	"gopkg.in/yaml.v3"
)

// ClusterMasks maps the three cluster states to taskset affinity strings.
type ClusterMasks struct {
	Little string `yaml:"little"`
	Big    string `yaml:"big"`
	Both   string `yaml:"both"`
}

// Config holds everything in the scheduler that the original design calls
// a "configuration constant": cluster masks, policy command lines, and the
// control loop's tick period.
type Config struct {
	ClusterMasks     ClusterMasks `yaml:"cluster_masks"`
	PredictorCommand string       `yaml:"predictor_command"`
	AgentCommand     string       `yaml:"agent_command"`
	TickPeriodMS     int          `yaml:"tick_period_ms"`
}

// Default returns the built-in configuration for an 8-core big.LITTLE
// host (cores 0-3 LITTLE, 4-7 BIG).
func Default() *Config {
	return &Config{
		ClusterMasks: ClusterMasks{
			Little: "0-3",
			Big:    "4-7",
			Both:   "0-7",
		},
		PredictorCommand: "python3 ./predictor.py",
		AgentCommand:     "python3 ./agent.py",
		TickPeriodMS:     20,
	}
}

// TickPeriod returns the configured loop period as a time.Duration.
func (c *Config) TickPeriod() time.Duration {
	return time.Duration(c.TickPeriodMS) * time.Millisecond
}

// Load resolves the configuration: defaults, then the YAML file at path if
// path is non-empty. A missing or malformed file is logged as a warning
// and the defaults are used for the whole file (fields are never partially
// applied from an unparseable document), matching P8.
func Load(path string) *Config {
	cfg := Default()
	if path == "" {
		return cfg
	}

	logger := logging.GetLogger()

	data, err := os.ReadFile(path)
	if err != nil {
		logger.WithField("path", path).WithError(err).Warn("Failed to read scheduler config file, using defaults")
		return cfg
	}

	overlay := *cfg
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		logger.WithField("path", path).WithError(err).Warn("Failed to parse scheduler config file, using defaults")
		return cfg
	}

	logger.WithField("path", path).Debug("Loaded scheduler configuration overrides")
	return &overlay
}
