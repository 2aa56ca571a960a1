package service

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ludo-technologies/solscan/domain"
	"github.com/ludo-technologies/solscan/internal/config"
)

// ConfigurationLoaderImpl turns configuration files into analyze requests
type ConfigurationLoaderImpl struct{}

// NewConfigurationLoader creates a new configuration loader service
func NewConfigurationLoader() *ConfigurationLoaderImpl {
	return &ConfigurationLoaderImpl{}
}

// LoadConfig loads configuration from the specified path
func (c *ConfigurationLoaderImpl) LoadConfig(path string) (*domain.AnalyzeRequest, error) {
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, domain.NewConfigError("failed to load configuration file", err)
	}
	return RequestFromConfig(cfg), nil
}

// LoadDefaultConfig loads the discovered configuration, falling back to defaults
func (c *ConfigurationLoaderImpl) LoadDefaultConfig() *domain.AnalyzeRequest {
	cfg, err := config.LoadConfigWithTarget("", "")
	if err != nil {
		cfg = config.DefaultConfig()
	}
	return RequestFromConfig(cfg)
}

// FindDefaultConfigFile searches the working directory and its parents
func (c *ConfigurationLoaderImpl) FindDefaultConfigFile() string {
	currentDir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		for _, file := range config.ConfigFileCandidates {
			configPath := filepath.Join(currentDir, file)
			if _, err := os.Stat(configPath); err == nil {
				return configPath
			}
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			break
		}
		currentDir = parentDir
	}

	return ""
}

// MergeConfig overlays the non-zero fields of override onto base
func (c *ConfigurationLoaderImpl) MergeConfig(base *domain.AnalyzeRequest, override *domain.AnalyzeRequest) *domain.AnalyzeRequest {
	merged := *base

	// Paths always come from command arguments
	if len(override.Paths) > 0 {
		merged.Paths = override.Paths
	}
	if override.OutputFormat != "" {
		merged.OutputFormat = override.OutputFormat
	}
	if override.OutputWriter != nil {
		merged.OutputWriter = override.OutputWriter
	}
	if override.MinSeverity != "" {
		merged.MinSeverity = override.MinSeverity
	}
	if override.SortBy != "" {
		merged.SortBy = override.SortBy
	}
	if len(override.IncludePatterns) > 0 {
		merged.IncludePatterns = override.IncludePatterns
	}
	if len(override.ExcludePatterns) > 0 {
		merged.ExcludePatterns = override.ExcludePatterns
	}
	if override.MaxFileSize > 0 {
		merged.MaxFileSize = override.MaxFileSize
	}
	if override.ConfigPath != "" {
		merged.ConfigPath = override.ConfigPath
	}

	return &merged
}

// ValidateConfig validates an analyze request
func (c *ConfigurationLoaderImpl) ValidateConfig(req *domain.AnalyzeRequest) error {
	validFormats := map[domain.OutputFormat]bool{
		domain.OutputFormatText:  true,
		domain.OutputFormatJSON:  true,
		domain.OutputFormatYAML:  true,
		domain.OutputFormatCSV:   true,
		domain.OutputFormatSARIF: true,
	}
	if !validFormats[req.OutputFormat] {
		return fmt.Errorf("invalid output format: %s (must be one of: text, json, yaml, csv, sarif)", req.OutputFormat)
	}

	switch req.SortBy {
	case domain.SortByRule, domain.SortByLine, domain.SortBySeverity:
	default:
		return fmt.Errorf("invalid sort criteria: %s (must be one of: rule, line, severity)", req.SortBy)
	}

	if req.MinSeverity != "" && !req.MinSeverity.Valid() {
		return fmt.Errorf("invalid minimum severity: %s", req.MinSeverity)
	}

	if req.MinFileSize < 0 {
		return fmt.Errorf("min_file_size cannot be negative, got %d", req.MinFileSize)
	}
	if req.MaxFileSize > 0 && req.MinFileSize > req.MaxFileSize {
		return fmt.Errorf("min_file_size (%d) cannot be greater than max_file_size (%d)", req.MinFileSize, req.MaxFileSize)
	}

	return nil
}

// RequestFromConfig converts a Config to an AnalyzeRequest
func RequestFromConfig(cfg *config.Config) *domain.AnalyzeRequest {
	return &domain.AnalyzeRequest{
		// Paths are set by the caller
		Paths: []string{},

		OutputFormat: domain.OutputFormat(cfg.Output.Format),
		ShowSnippets: cfg.Output.ShowSnippets,
		MinSeverity:  cfg.Output.MinSeverityLevel(),
		SortBy:       domain.SortCriteria(cfg.Output.SortBy),

		Recursive:        cfg.Analysis.Recursive,
		RespectGitignore: cfg.Analysis.RespectGitignore,
		IncludePatterns:  cfg.Analysis.IncludePatterns,
		ExcludePatterns:  cfg.Analysis.ExcludePatterns,
		MinFileSize:      cfg.Analysis.MinFileSize,
		MaxFileSize:      cfg.Analysis.MaxFileSize,
	}
}
