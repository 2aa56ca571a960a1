package config

import (
	_ "embed"
	"runtime"

	"gopkg.in/yaml.v3"
)

// defaultConfigYAML contains the embedded default configuration file
//
//go:embed default_config.yaml
var defaultConfigYAML []byte

// DefaultConfigYAML returns the embedded default configuration
func DefaultConfigYAML() string {
	return string(defaultConfigYAML)
}

// LoadDefaultConfig parses the embedded default config and returns the full Config struct
func LoadDefaultConfig() (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(defaultConfigYAML, &cfg); err != nil {
		return nil, err
	}
	if cfg.Performance.MaxGoroutines <= 0 {
		cfg.Performance.MaxGoroutines = runtime.NumCPU()
	}
	return &cfg, nil
}
