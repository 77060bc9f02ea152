// Command powmesh runs an in-process mesh of simulated PoW nodes: a demo
// harness for the chain/miner/node packages, wired over internal/simnet
// instead of real sockets.
package main

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds everything needed to stand up a local mesh: flat,
// YAML/JSON/TOML-loadable, and validated before use.
type Config struct {
	NodeCount    int           `mapstructure:"node_count"`
	MiningNodes  int           `mapstructure:"mining_nodes"`  // first N nodes mine; rest only relay
	MiningDelay  time.Duration `mapstructure:"mining_delay"`
	RunFor       time.Duration `mapstructure:"run_for"`
	MetricsAddr  string        `mapstructure:"metrics_addr"`
}

// DefaultConfig returns a small single-process mesh suitable for a laptop
// demo run.
func DefaultConfig() *Config {
	return &Config{
		NodeCount:   5,
		MiningNodes: 2,
		MiningDelay: 50 * time.Millisecond,
		RunFor:      30 * time.Second,
		MetricsAddr: ":9090",
	}
}

// Validate checks that the configuration describes a runnable mesh.
func (c *Config) Validate() error {
	if c.NodeCount <= 0 {
		return fmt.Errorf("node_count must be positive, got %d", c.NodeCount)
	}
	if c.MiningNodes < 0 || c.MiningNodes > c.NodeCount {
		return fmt.Errorf("mining_nodes must be within [0, node_count], got %d", c.MiningNodes)
	}
	if c.MiningDelay < 0 {
		return fmt.Errorf("mining_delay must not be negative, got %s", c.MiningDelay)
	}
	if c.RunFor <= 0 {
		return fmt.Errorf("run_for must be positive, got %s", c.RunFor)
	}
	return nil
}

// loadConfig reads flags bound onto v, falling back to DefaultConfig for
// anything unset. A missing config file is not an error — viper simply
// has nothing further to merge in.
func loadConfig(v *viper.Viper) (*Config, error) {
	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}
