package config

import (
	"strconv"
	"strings"
)

// ProjectType represents the Solidity toolchain layout of a project
type ProjectType string

const (
	ProjectTypeGeneric ProjectType = "generic"
	ProjectTypeFoundry ProjectType = "foundry"
	ProjectTypeHardhat ProjectType = "hardhat"
	ProjectTypeTruffle ProjectType = "truffle"
)

// Strictness represents the check strictness level
type Strictness string

const (
	StrictnessRelaxed  Strictness = "relaxed"
	StrictnessStandard Strictness = "standard"
	StrictnessStrict   Strictness = "strict"
)

// ProjectPreset holds file discovery presets for different project types
type ProjectPreset struct {
	IncludePatterns []string
	ExcludePatterns []string
}

// StrictnessPreset holds check thresholds for different strictness levels
type StrictnessPreset struct {
	MaxRiskScore float64
	FailOn       string
	MinSeverity  string
}

// GetProjectPresets returns presets for different project types
func GetProjectPresets() map[ProjectType]ProjectPreset {
	return map[ProjectType]ProjectPreset{
		ProjectTypeGeneric: {
			IncludePatterns: []string{"**/*.sol"},
			ExcludePatterns: []string{"node_modules", ".git"},
		},
		ProjectTypeFoundry: {
			IncludePatterns: []string{"src/**/*.sol"},
			ExcludePatterns: []string{"lib", "out", "cache", "broadcast", "test", "script", ".git"},
		},
		ProjectTypeHardhat: {
			IncludePatterns: []string{"contracts/**/*.sol"},
			ExcludePatterns: []string{"node_modules", "artifacts", "cache", "typechain-types", "test", ".git"},
		},
		ProjectTypeTruffle: {
			IncludePatterns: []string{"contracts/**/*.sol"},
			ExcludePatterns: []string{"node_modules", "build", "migrations", "test", ".git"},
		},
	}
}

// GetStrictnessPresets returns presets for different strictness levels
func GetStrictnessPresets() map[Strictness]StrictnessPreset {
	return map[Strictness]StrictnessPreset{
		StrictnessRelaxed: {
			MaxRiskScore: 50,
			FailOn:       "CRITICAL",
			MinSeverity:  "LOW",
		},
		StrictnessStandard: {
			MaxRiskScore: DefaultMaxRiskScore,
			FailOn:       DefaultFailOn,
			MinSeverity:  "INFO",
		},
		StrictnessStrict: {
			MaxRiskScore: 10,
			FailOn:       "HIGH",
			MinSeverity:  "INFO",
		},
	}
}

// GetFullConfigTemplate returns the documented config template as YAML
func GetFullConfigTemplate(projectType ProjectType, strictness Strictness) string {
	return RenderConfigTemplate(projectType, strictness, "text")
}

// RenderConfigTemplate returns the documented config template with the given
// default output format
func RenderConfigTemplate(projectType ProjectType, strictness Strictness, outputFormat string) string {
	if outputFormat == "" {
		outputFormat = "text"
	}
	preset, ok := GetProjectPresets()[projectType]
	if !ok {
		preset = GetProjectPresets()[ProjectTypeGeneric]
	}
	strict, ok := GetStrictnessPresets()[strictness]
	if !ok {
		strict = GetStrictnessPresets()[StrictnessStandard]
	}

	return `# solscan Configuration
# Documentation: https://github.com/ludo-technologies/solscan

# ============================================================================
# ANALYSIS
# ============================================================================
analysis:
  # Lines of source shown around each finding
  context_lines: 2

  # Code quality term of the confidence formula (0.0 - 1.0)
  quality_score: 0.5

  # Bytes searched before/after a match for mitigations such as require()
  mitigation_window: 500

  # Rule ids to skip, see "solscan rules"
  disabled_rules: []

  # File patterns to include (glob patterns)
  include_patterns:
` + formatYAMLList(preset.IncludePatterns) + `

  # Directories and files to exclude
  exclude_patterns:
` + formatYAMLList(preset.ExcludePatterns) + `

  recursive: true
  respect_gitignore: true

  # Accepted contract file size in bytes
  max_file_size: ` + strconv.Itoa(DefaultMaxFileSize) + `
  min_file_size: ` + strconv.Itoa(DefaultMinFileSize) + `

# ============================================================================
# OUTPUT
# ============================================================================
output:
  # text, json, yaml, csv, sarif
  format: ` + outputFormat + `

  # rule (catalog order), line, severity
  sort_by: rule

  # Hide findings below this severity: CRITICAL, HIGH, MEDIUM, LOW, INFO
  min_severity: ` + strict.MinSeverity + `

  show_snippets: true

# ============================================================================
# CHECK (CI gate)
# ============================================================================
check:
  # Fail when any contract's risk score reaches this value (0 - 100)
  max_risk_score: ` + strconv.FormatFloat(strict.MaxRiskScore, 'f', 1, 64) + `

  # Fail when any finding is at or above this severity (empty = never)
  fail_on: ` + strict.FailOn + `

# ============================================================================
# SERVER ("solscan serve")
# ============================================================================
server:
  host: 0.0.0.0
  port: ` + strconv.Itoa(DefaultServerPort) + `
  debug: false
  rate_limit_per_minute: ` + strconv.Itoa(DefaultRateLimitPerMinute) + `

# ============================================================================
# STORAGE (scan history)
# ============================================================================
storage:
  # "" (disabled), sqlite, mysql, pgx
  driver: ""
  dsn: ""
`
}

// GetMinimalConfigTemplate returns a minimal config template
func GetMinimalConfigTemplate() string {
	return `# solscan Configuration (minimal)
# See full options: https://github.com/ludo-technologies/solscan

analysis:
  include_patterns:
    - "**/*.sol"
  exclude_patterns:
    - node_modules
    - lib

check:
  max_risk_score: 30.0
  fail_on: CRITICAL
`
}

// formatYAMLList formats a string slice as an indented YAML sequence
func formatYAMLList(items []string) string {
	if len(items) == 0 {
		return "    []"
	}

	lines := make([]string, 0, len(items))
	for _, item := range items {
		lines = append(lines, `    - "`+item+`"`)
	}
	return strings.Join(lines, "\n")
}
