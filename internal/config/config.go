package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/viper"

	"github.com/ludo-technologies/solscan/domain"
	"github.com/ludo-technologies/solscan/internal/constants"
	"github.com/ludo-technologies/solscan/internal/rules"
)

// Default analysis settings
const (
	// DefaultContextLines is the number of source lines shown around a finding
	DefaultContextLines = 2

	// DefaultQualityScore feeds the quality term of the confidence formula
	DefaultQualityScore = 0.5

	// DefaultMitigationWindow is the number of bytes searched around a match for mitigations
	DefaultMitigationWindow = 500

	// DefaultMaxFileSize is the largest contract file accepted (5 MiB)
	DefaultMaxFileSize = 5 * 1024 * 1024

	// DefaultMinFileSize rejects files too small to hold a contract
	DefaultMinFileSize = 10
)

// Default check and server settings
const (
	// DefaultMaxRiskScore is the security threshold; a contract passes when its risk is below it
	DefaultMaxRiskScore = 30.0

	// DefaultFailOn is the severity at or above which any finding fails a check
	DefaultFailOn = "CRITICAL"

	// DefaultServerPort is the port of the vulnerability detection service
	DefaultServerPort = 5000

	DefaultMaxBodyBytes       = 10 * 1024 * 1024
	DefaultRateLimitPerMinute = 120
	DefaultHistoryLimit       = 20
	DefaultTimeoutSeconds     = 300
)

// Config represents the main configuration structure
type Config struct {
	// Analysis holds scanner and file discovery configuration
	Analysis AnalysisConfig `json:"analysis" mapstructure:"analysis" yaml:"analysis"`

	// Output holds output formatting configuration
	Output OutputConfig `json:"output" mapstructure:"output" yaml:"output"`

	// Performance holds batch concurrency configuration
	Performance PerformanceConfig `json:"performance" mapstructure:"performance" yaml:"performance"`

	// Check holds CI gate thresholds
	Check CheckConfig `json:"check" mapstructure:"check" yaml:"check"`

	// Server holds HTTP service configuration
	Server ServerConfig `json:"server" mapstructure:"server" yaml:"server"`

	// Storage holds result persistence configuration
	Storage StorageConfig `json:"storage" mapstructure:"storage" yaml:"storage"`
}

// AnalysisConfig holds scanner tuning and file discovery settings
type AnalysisConfig struct {
	// ContextLines is the number of lines shown on each side of a finding
	ContextLines int `json:"context_lines" mapstructure:"context_lines" yaml:"context_lines"`

	// QualityScore is the code quality term of the confidence formula (0..1)
	QualityScore float64 `json:"quality_score" mapstructure:"quality_score" yaml:"quality_score"`

	// MitigationWindow is the number of bytes searched before and after a match
	MitigationWindow int `json:"mitigation_window" mapstructure:"mitigation_window" yaml:"mitigation_window"`

	// DisabledRules lists rule ids that never run
	DisabledRules []string `json:"disabled_rules" mapstructure:"disabled_rules" yaml:"disabled_rules"`

	// IncludePatterns specifies file patterns to include
	IncludePatterns []string `json:"include_patterns" mapstructure:"include_patterns" yaml:"include_patterns"`

	// ExcludePatterns specifies file patterns to exclude
	ExcludePatterns []string `json:"exclude_patterns" mapstructure:"exclude_patterns" yaml:"exclude_patterns"`

	// Recursive controls whether to analyze directories recursively
	Recursive bool `json:"recursive" mapstructure:"recursive" yaml:"recursive"`

	// RespectGitignore skips files ignored by .gitignore
	RespectGitignore bool `json:"respect_gitignore" mapstructure:"respect_gitignore" yaml:"respect_gitignore"`

	// MaxFileSize and MinFileSize bound accepted contract files in bytes
	MaxFileSize int64 `json:"max_file_size" mapstructure:"max_file_size" yaml:"max_file_size"`
	MinFileSize int64 `json:"min_file_size" mapstructure:"min_file_size" yaml:"min_file_size"`
}

// OutputConfig holds configuration for output formatting
type OutputConfig struct {
	// Format specifies the output format: text, json, yaml, csv, sarif
	Format string `json:"format" mapstructure:"format" yaml:"format"`

	// SortBy specifies how to sort findings: rule, line, severity
	SortBy string `json:"sort_by" mapstructure:"sort_by" yaml:"sort_by"`

	// MinSeverity hides findings below this severity
	MinSeverity string `json:"min_severity" mapstructure:"min_severity" yaml:"min_severity"`

	// ShowSnippets controls whether code snippets appear in text output
	ShowSnippets bool `json:"show_snippets" mapstructure:"show_snippets" yaml:"show_snippets"`
}

// PerformanceConfig holds concurrency limits for batch scans
type PerformanceConfig struct {
	// MaxGoroutines caps concurrent contract scans (0 = number of CPUs)
	MaxGoroutines int `json:"max_goroutines" mapstructure:"max_goroutines" yaml:"max_goroutines"`

	// TimeoutSeconds bounds a whole batch
	TimeoutSeconds int `json:"timeout_seconds" mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
}

// CheckConfig holds the thresholds used by the check command
type CheckConfig struct {
	// MaxRiskScore fails the check when any contract reaches it
	MaxRiskScore float64 `json:"max_risk_score" mapstructure:"max_risk_score" yaml:"max_risk_score"`

	// FailOn fails the check when a finding at or above this severity exists (empty = never)
	FailOn string `json:"fail_on" mapstructure:"fail_on" yaml:"fail_on"`
}

// ServerConfig holds HTTP service settings
type ServerConfig struct {
	Host               string   `json:"host" mapstructure:"host" yaml:"host"`
	Port               int      `json:"port" mapstructure:"port" yaml:"port"`
	Debug              bool     `json:"debug" mapstructure:"debug" yaml:"debug"`
	MaxBodyBytes       int64    `json:"max_body_bytes" mapstructure:"max_body_bytes" yaml:"max_body_bytes"`
	RateLimitPerMinute int      `json:"rate_limit_per_minute" mapstructure:"rate_limit_per_minute" yaml:"rate_limit_per_minute"`
	AllowedOrigins     []string `json:"allowed_origins" mapstructure:"allowed_origins" yaml:"allowed_origins"`
}

// Addr returns the listen address
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// StorageConfig holds result persistence settings
type StorageConfig struct {
	// Driver selects the database: "" (disabled), sqlite, mysql, pgx
	Driver string `json:"driver" mapstructure:"driver" yaml:"driver"`

	// DSN is the driver specific data source name
	DSN string `json:"dsn" mapstructure:"dsn" yaml:"dsn"`

	// HistoryLimit is the default number of records returned by history queries
	HistoryLimit int `json:"history_limit" mapstructure:"history_limit" yaml:"history_limit"`
}

// Enabled reports whether persistence is configured
func (s StorageConfig) Enabled() bool {
	return s.Driver != ""
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Analysis: AnalysisConfig{
			ContextLines:     DefaultContextLines,
			QualityScore:     DefaultQualityScore,
			MitigationWindow: DefaultMitigationWindow,
			DisabledRules:    []string{},
			IncludePatterns:  []string{"**/*.sol"},
			ExcludePatterns: []string{
				// Package managers and dependencies
				"node_modules",
				"lib",
				// Build outputs
				"out",
				"artifacts",
				"cache",
				"typechain-types",
				// Version control
				".git",
			},
			Recursive:        true,
			RespectGitignore: true,
			MaxFileSize:      DefaultMaxFileSize,
			MinFileSize:      DefaultMinFileSize,
		},
		Output: OutputConfig{
			Format:       string(domain.OutputFormatText),
			SortBy:       string(domain.SortByRule),
			MinSeverity:  string(domain.SeverityInfo),
			ShowSnippets: true,
		},
		Performance: PerformanceConfig{
			MaxGoroutines:  runtime.NumCPU(),
			TimeoutSeconds: DefaultTimeoutSeconds,
		},
		Check: CheckConfig{
			MaxRiskScore: DefaultMaxRiskScore,
			FailOn:       DefaultFailOn,
		},
		Server: ServerConfig{
			Host:               "0.0.0.0",
			Port:               DefaultServerPort,
			Debug:              false,
			MaxBodyBytes:       DefaultMaxBodyBytes,
			RateLimitPerMinute: DefaultRateLimitPerMinute,
			AllowedOrigins:     []string{"*"},
		},
		Storage: StorageConfig{
			HistoryLimit: DefaultHistoryLimit,
		},
	}
}

// LoadConfig loads configuration from file or returns default config
func LoadConfig(configPath string) (*Config, error) {
	return LoadConfigWithTarget(configPath, "")
}

// LoadConfigWithTarget loads configuration with target path context.
// An empty configPath triggers discovery starting from targetPath.
func LoadConfigWithTarget(configPath string, targetPath string) (*Config, error) {
	if configPath == "" {
		configPath = findDefaultConfig(targetPath)
	}
	return loadConfigFromFile(configPath)
}

// newViper creates an isolated viper instance seeded with the embedded defaults
// and wired to the environment
func newViper() (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(defaultConfigYAML)); err != nil {
		return nil, fmt.Errorf("failed to read embedded defaults: %w", err)
	}

	v.SetEnvPrefix(constants.EnvVarPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Legacy ML_SERVICE_* variables of existing deployments
	if err := v.BindEnv("server.port", constants.EnvVarPrefix+"_SERVER_PORT", "ML_SERVICE_PORT"); err != nil {
		return nil, err
	}
	if err := v.BindEnv("server.debug", constants.EnvVarPrefix+"_SERVER_DEBUG", "ML_SERVICE_DEBUG"); err != nil {
		return nil, err
	}
	return v, nil
}

// loadConfigFromFile reads and parses a configuration file on top of the defaults
func loadConfigFromFile(configPath string) (*Config, error) {
	v, err := newViper()
	if err != nil {
		return nil, err
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
		}
	}

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if config.Performance.MaxGoroutines <= 0 {
		config.Performance.MaxGoroutines = runtime.NumCPU()
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// ConfigFileCandidates lists the file names searched during discovery
var ConfigFileCandidates = []string{
	"solscan.yaml",
	"solscan.yml",
	".solscan.yaml",
	".solscan.yml",
	"solscan.json",
	".solscan.json",
}

// searchConfigInDirectory searches for configuration files in a specific directory
func searchConfigInDirectory(dir string, candidates []string) string {
	for _, candidate := range candidates {
		path := filepath.Join(dir, candidate)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// findDefaultConfig looks for default configuration files in common locations
func findDefaultConfig(targetPath string) string {
	candidates := ConfigFileCandidates

	// If targetPath is provided, search from there upward
	if targetPath != "" {
		absPath, err := filepath.Abs(targetPath)
		if err == nil {
			// If it's a file, start from its directory
			info, err := os.Stat(absPath)
			if err == nil && !info.IsDir() {
				absPath = filepath.Dir(absPath)
			}

			volume := filepath.VolumeName(absPath)
			for dir := absPath; ; dir = filepath.Dir(dir) {
				if config := searchConfigInDirectory(dir, candidates); config != "" {
					return config
				}

				parent := filepath.Dir(dir)
				if parent == dir ||
					dir == volume ||
					(volume != "" && dir == volume+string(filepath.Separator)) {
					break
				}
			}
		}
	}

	// Fallback to current directory
	if config := searchConfigInDirectory(".", candidates); config != "" {
		return config
	}

	// Check XDG config directory (Linux/Mac standard)
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		if config := searchConfigInDirectory(filepath.Join(xdgConfig, constants.ToolName), candidates); config != "" {
			return config
		}
	}

	if home, err := os.UserHomeDir(); err == nil {
		configDir := filepath.Join(home, ".config", constants.ToolName)
		if config := searchConfigInDirectory(configDir, candidates); config != "" {
			return config
		}

		if config := searchConfigInDirectory(home, candidates); config != "" {
			return config
		}
	}

	// SOLSCAN_CONFIG as a last resort
	if envConfig := os.Getenv(constants.EnvVarPrefix + "_CONFIG"); envConfig != "" {
		if _, err := os.Stat(envConfig); err == nil {
			return envConfig
		}
	}

	return ""
}

// Validate validates the configuration values
func (c *Config) Validate() error {
	if err := c.validateAnalysis(); err != nil {
		return err
	}

	validFormats := map[string]bool{"text": true, "json": true, "yaml": true, "csv": true, "sarif": true}
	if !validFormats[c.Output.Format] {
		return fmt.Errorf("invalid output.format '%s', must be one of: text, json, yaml, csv, sarif", c.Output.Format)
	}

	validSortBy := map[string]bool{"rule": true, "line": true, "severity": true}
	if !validSortBy[c.Output.SortBy] {
		return fmt.Errorf("invalid output.sort_by '%s', must be one of: rule, line, severity", c.Output.SortBy)
	}

	if _, err := domain.ParseSeverity(c.Output.MinSeverity); err != nil {
		return fmt.Errorf("invalid output.min_severity: %w", err)
	}

	if c.Performance.MaxGoroutines < 0 {
		return fmt.Errorf("performance.max_goroutines must be >= 0, got %d", c.Performance.MaxGoroutines)
	}
	if c.Performance.TimeoutSeconds < 0 {
		return fmt.Errorf("performance.timeout_seconds must be >= 0, got %d", c.Performance.TimeoutSeconds)
	}

	if c.Check.MaxRiskScore < 0 || c.Check.MaxRiskScore > 100 {
		return fmt.Errorf("check.max_risk_score must be between 0 and 100, got %v", c.Check.MaxRiskScore)
	}
	if c.Check.FailOn != "" {
		if _, err := domain.ParseSeverity(c.Check.FailOn); err != nil {
			return fmt.Errorf("invalid check.fail_on: %w", err)
		}
	}

	if err := c.validateServer(); err != nil {
		return err
	}

	return c.validateStorage()
}

func (c *Config) validateAnalysis() error {
	a := c.Analysis

	if a.ContextLines < 0 || a.ContextLines > 20 {
		return fmt.Errorf("analysis.context_lines must be between 0 and 20, got %d", a.ContextLines)
	}
	if a.QualityScore < 0 || a.QualityScore > 1 {
		return fmt.Errorf("analysis.quality_score must be between 0 and 1, got %v", a.QualityScore)
	}
	if a.MitigationWindow < 1 {
		return fmt.Errorf("analysis.mitigation_window must be >= 1, got %d", a.MitigationWindow)
	}
	for _, id := range a.DisabledRules {
		if _, ok := rules.Lookup(id); !ok {
			return fmt.Errorf("analysis.disabled_rules: unknown rule id '%s'", id)
		}
	}

	// At least one include pattern must be specified
	if len(a.IncludePatterns) == 0 {
		return fmt.Errorf("analysis.include_patterns cannot be empty")
	}

	if a.MinFileSize < 0 {
		return fmt.Errorf("analysis.min_file_size must be >= 0, got %d", a.MinFileSize)
	}
	if a.MaxFileSize > 0 && a.MaxFileSize < a.MinFileSize {
		return fmt.Errorf("analysis.max_file_size (%d) must be >= min_file_size (%d)", a.MaxFileSize, a.MinFileSize)
	}
	return nil
}

func (c *Config) validateServer() error {
	s := c.Server
	if s.Port < 1 || s.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", s.Port)
	}
	if s.MaxBodyBytes < 1 {
		return fmt.Errorf("server.max_body_bytes must be >= 1, got %d", s.MaxBodyBytes)
	}
	if s.RateLimitPerMinute < 0 {
		return fmt.Errorf("server.rate_limit_per_minute must be >= 0, got %d", s.RateLimitPerMinute)
	}
	return nil
}

func (c *Config) validateStorage() error {
	s := c.Storage
	switch s.Driver {
	case "":
		return nil
	case constants.DriverSQLite, constants.DriverMySQL, constants.DriverPostgres:
	default:
		return fmt.Errorf("invalid storage.driver '%s', must be one of: sqlite, mysql, pgx", s.Driver)
	}
	if s.DSN == "" {
		return fmt.Errorf("storage.dsn is required when storage.driver is set")
	}
	if s.HistoryLimit < 1 {
		return fmt.Errorf("storage.history_limit must be >= 1, got %d", s.HistoryLimit)
	}
	return nil
}

// MinSeverityLevel returns the configured minimum severity, INFO when unset or invalid
func (o *OutputConfig) MinSeverityLevel() domain.Severity {
	s, err := domain.ParseSeverity(o.MinSeverity)
	if err != nil {
		return domain.SeverityInfo
	}
	return s
}

// FailOnSeverity returns the failing severity and whether severity gating is on
func (c *CheckConfig) FailOnSeverity() (domain.Severity, bool) {
	if c.FailOn == "" {
		return "", false
	}
	s, err := domain.ParseSeverity(c.FailOn)
	if err != nil {
		return "", false
	}
	return s, true
}

// SaveConfig saves configuration to a YAML file
func SaveConfig(config *Config, path string) error {
	// Create a new viper instance to avoid race conditions
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("analysis", config.Analysis)
	v.Set("output", config.Output)
	v.Set("performance", config.Performance)
	v.Set("check", config.Check)
	v.Set("server", config.Server)
	v.Set("storage", config.Storage)

	return v.WriteConfig()
}
