// Package config loads the engine's tenant-independent detection policy
// from YAML, with defaults matching the shipped product policy.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Thresholds map the aggregated score to verdict categories
type Thresholds struct {
	Suspicious int `yaml:"suspicious"`
	Quarantine int `yaml:"quarantine"`
	Block      int `yaml:"block"`
}

// Sandbox controls the attachment layer
type Sandbox struct {
	CheckSandbox        bool `yaml:"check_sandbox"`
	SkipDynamicAnalysis bool `yaml:"skip_dynamic_analysis"`
	ReputationTimeoutMs int  `yaml:"reputation_timeout_ms"`
	MaxParallel         int  `yaml:"max_parallel"`
}

// Config is the full engine configuration
type Config struct {
	Thresholds      Thresholds `yaml:"thresholds"`
	FreemailDomains []string   `yaml:"freemail_domains"`
	Sandbox         Sandbox    `yaml:"sandbox"`
}

// Default returns the shipped policy defaults
func Default() Config {
	return Config{
		Thresholds: Thresholds{Suspicious: 40, Quarantine: 60, Block: 80},
		Sandbox: Sandbox{
			CheckSandbox:        true,
			ReputationTimeoutMs: 3000,
			MaxParallel:         4,
		},
	}
}

// Load reads a YAML config file over the defaults. Absent keys keep their
// default values; an absent file is an error so a typoed path fails loudly.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	t := c.Thresholds
	if t.Suspicious < 0 || t.Suspicious > 100 || t.Quarantine < 0 || t.Quarantine > 100 || t.Block < 0 || t.Block > 100 {
		return fmt.Errorf("thresholds must be within [0,100]")
	}
	if !(t.Suspicious <= t.Quarantine && t.Quarantine <= t.Block) {
		return fmt.Errorf("thresholds must be ordered: suspicious <= quarantine <= block")
	}
	return nil
}
