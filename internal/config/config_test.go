package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/ludo-technologies/solscan/domain"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config == nil {
		t.Fatal("DefaultConfig should not return nil")
	}

	// Verify analysis defaults
	if config.Analysis.ContextLines != DefaultContextLines {
		t.Errorf("Expected ContextLines %d, got %d", DefaultContextLines, config.Analysis.ContextLines)
	}
	if config.Analysis.QualityScore != DefaultQualityScore {
		t.Errorf("Expected QualityScore %v, got %v", DefaultQualityScore, config.Analysis.QualityScore)
	}
	if config.Analysis.MitigationWindow != DefaultMitigationWindow {
		t.Errorf("Expected MitigationWindow %d, got %d", DefaultMitigationWindow, config.Analysis.MitigationWindow)
	}
	if !config.Analysis.Recursive {
		t.Error("Recursive should be true by default")
	}
	if len(config.Analysis.DisabledRules) != 0 {
		t.Error("No rule should be disabled by default")
	}

	// Verify output defaults
	if config.Output.Format != "text" {
		t.Errorf("Expected Format 'text', got '%s'", config.Output.Format)
	}
	if config.Output.SortBy != "rule" {
		t.Errorf("Expected SortBy 'rule', got '%s'", config.Output.SortBy)
	}

	// Verify check and server defaults
	if config.Check.MaxRiskScore != 30 {
		t.Errorf("Expected MaxRiskScore 30, got %v", config.Check.MaxRiskScore)
	}
	if config.Server.Port != 5000 {
		t.Errorf("Expected Port 5000, got %d", config.Server.Port)
	}
	if config.Storage.Enabled() {
		t.Error("Storage should be disabled by default")
	}
}

func TestConfig_Validate_Valid(t *testing.T) {
	config := DefaultConfig()

	if err := config.Validate(); err != nil {
		t.Errorf("Default config should be valid, got error: %v", err)
	}
}

func TestConfig_Validate_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"negative context lines", func(c *Config) { c.Analysis.ContextLines = -1 }},
		{"too many context lines", func(c *Config) { c.Analysis.ContextLines = 25 }},
		{"quality above 1", func(c *Config) { c.Analysis.QualityScore = 1.5 }},
		{"zero mitigation window", func(c *Config) { c.Analysis.MitigationWindow = 0 }},
		{"unknown disabled rule", func(c *Config) { c.Analysis.DisabledRules = []string{"nope"} }},
		{"empty include patterns", func(c *Config) { c.Analysis.IncludePatterns = []string{} }},
		{"max below min file size", func(c *Config) { c.Analysis.MaxFileSize = 5 }},
		{"invalid output format", func(c *Config) { c.Output.Format = "xml" }},
		{"invalid sort_by", func(c *Config) { c.Output.SortBy = "name" }},
		{"invalid min severity", func(c *Config) { c.Output.MinSeverity = "SEVERE" }},
		{"negative goroutines", func(c *Config) { c.Performance.MaxGoroutines = -1 }},
		{"risk above 100", func(c *Config) { c.Check.MaxRiskScore = 101 }},
		{"invalid fail_on", func(c *Config) { c.Check.FailOn = "BAD" }},
		{"port out of range", func(c *Config) { c.Server.Port = 70000 }},
		{"negative rate limit", func(c *Config) { c.Server.RateLimitPerMinute = -1 }},
		{"unknown storage driver", func(c *Config) { c.Storage.Driver = "oracle" }},
		{"storage without dsn", func(c *Config) { c.Storage.Driver = "sqlite" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.mutate(config)
			if err := config.Validate(); err == nil {
				t.Error("Expected validation error")
			}
		})
	}
}

func TestConfig_ValidOutputFormats(t *testing.T) {
	config := DefaultConfig()
	validFormats := []string{"text", "json", "yaml", "csv", "sarif"}

	for _, format := range validFormats {
		config.Output.Format = format
		if err := config.Validate(); err != nil {
			t.Errorf("Format '%s' should be valid, got error: %v", format, err)
		}
	}
}

func TestConfig_ValidStorageDrivers(t *testing.T) {
	config := DefaultConfig()
	config.Storage.DSN = "file::memory:"

	for _, driver := range []string{"sqlite", "mysql", "pgx"} {
		config.Storage.Driver = driver
		if err := config.Validate(); err != nil {
			t.Errorf("Driver '%s' should be valid, got error: %v", driver, err)
		}
	}
}

func TestConfig_DisabledRulesKnown(t *testing.T) {
	config := DefaultConfig()
	config.Analysis.DisabledRules = []string{"front_running", "assembly_usage"}

	if err := config.Validate(); err != nil {
		t.Errorf("Known rule ids should be accepted, got error: %v", err)
	}
}

func TestOutputConfig_MinSeverityLevel(t *testing.T) {
	o := &OutputConfig{MinSeverity: "high"}
	if o.MinSeverityLevel() != domain.SeverityHigh {
		t.Errorf("Expected HIGH, got %s", o.MinSeverityLevel())
	}

	o.MinSeverity = "garbage"
	if o.MinSeverityLevel() != domain.SeverityInfo {
		t.Errorf("Invalid severity should fall back to INFO, got %s", o.MinSeverityLevel())
	}
}

func TestCheckConfig_FailOnSeverity(t *testing.T) {
	c := &CheckConfig{FailOn: "CRITICAL"}
	sev, ok := c.FailOnSeverity()
	if !ok || sev != domain.SeverityCritical {
		t.Errorf("Expected CRITICAL gate, got %s (%v)", sev, ok)
	}

	c.FailOn = ""
	if _, ok := c.FailOnSeverity(); ok {
		t.Error("Empty fail_on should disable severity gating")
	}
}

func TestLoadConfig_Default(t *testing.T) {
	config, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig with empty path failed: %v", err)
	}

	defaultCfg := DefaultConfig()
	if config.Analysis.MitigationWindow != defaultCfg.Analysis.MitigationWindow {
		t.Error("Loaded config should match default")
	}
	if config.Output.Format != defaultCfg.Output.Format {
		t.Error("Loaded config should match default")
	}
	if config.Performance.MaxGoroutines != runtime.NumCPU() {
		t.Errorf("max_goroutines 0 should resolve to NumCPU, got %d", config.Performance.MaxGoroutines)
	}
}

func TestLoadConfig_NonExistent(t *testing.T) {
	_, err := LoadConfig("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Expected error for non-existent config file")
	}
}

func TestLoadConfig_FileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "solscan.yaml")
	content := "analysis:\n  exclude_patterns:\n    - vendor\n  disabled_rules:\n    - front_running\noutput:\n  format: json\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	config, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if config.Output.Format != "json" {
		t.Errorf("Expected format json, got %s", config.Output.Format)
	}
	if len(config.Analysis.ExcludePatterns) != 1 || config.Analysis.ExcludePatterns[0] != "vendor" {
		t.Errorf("Expected exclude patterns [vendor], got %v", config.Analysis.ExcludePatterns)
	}
	if len(config.Analysis.DisabledRules) != 1 {
		t.Errorf("Expected one disabled rule, got %v", config.Analysis.DisabledRules)
	}
	// untouched keys keep their defaults
	if config.Analysis.MitigationWindow != DefaultMitigationWindow {
		t.Errorf("Expected default mitigation window, got %d", config.Analysis.MitigationWindow)
	}
}

func TestLoadConfig_InvalidFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "solscan.yaml")
	if err := os.WriteFile(path, []byte("output:\n  format: xml\n"), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	if _, err := LoadConfig(path); err == nil {
		t.Error("Expected validation error for invalid format")
	}
}

func TestLoadConfig_EnvironmentOverrides(t *testing.T) {
	t.Setenv("ML_SERVICE_PORT", "6001")
	t.Setenv("ML_SERVICE_DEBUG", "true")
	t.Setenv("SOLSCAN_CHECK_MAX_RISK_SCORE", "55.5")

	config, err := LoadConfigWithTarget("", t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if config.Server.Port != 6001 {
		t.Errorf("Expected port 6001 from ML_SERVICE_PORT, got %d", config.Server.Port)
	}
	if !config.Server.Debug {
		t.Error("Expected debug from ML_SERVICE_DEBUG")
	}
	if config.Check.MaxRiskScore != 55.5 {
		t.Errorf("Expected max risk 55.5, got %v", config.Check.MaxRiskScore)
	}
}

func TestSearchConfigInDirectory(t *testing.T) {
	tempDir := t.TempDir()

	configPath := filepath.Join(tempDir, "solscan.yaml")
	if err := os.WriteFile(configPath, []byte("output:\n  format: json"), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	result := searchConfigInDirectory(tempDir, ConfigFileCandidates)
	if result != configPath {
		t.Errorf("Expected %s, got %s", configPath, result)
	}

	result = searchConfigInDirectory(t.TempDir(), ConfigFileCandidates)
	if result != "" {
		t.Error("Expected empty string for directory without config")
	}
}

func TestFindDefaultConfig_WalksUp(t *testing.T) {
	root := t.TempDir()
	configPath := filepath.Join(root, ".solscan.yaml")
	if err := os.WriteFile(configPath, []byte("output:\n  format: csv\n"), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	nested := filepath.Join(root, "contracts", "tokens")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatalf("Failed to create dir: %v", err)
	}

	if got := findDefaultConfig(nested); got != configPath {
		t.Errorf("Expected %s, got %s", configPath, got)
	}

	config, err := LoadConfigWithTarget("", nested)
	if err != nil {
		t.Fatalf("LoadConfigWithTarget failed: %v", err)
	}
	if config.Output.Format != "csv" {
		t.Errorf("Expected discovered format csv, got %s", config.Output.Format)
	}
}

func TestLoadDefaultConfig(t *testing.T) {
	embedded, err := LoadDefaultConfig()
	if err != nil {
		t.Fatalf("LoadDefaultConfig failed: %v", err)
	}
	if err := embedded.Validate(); err != nil {
		t.Fatalf("Embedded defaults should be valid: %v", err)
	}

	defaults := DefaultConfig()
	if embedded.Analysis.MaxFileSize != defaults.Analysis.MaxFileSize {
		t.Errorf("max_file_size mismatch: %d vs %d", embedded.Analysis.MaxFileSize, defaults.Analysis.MaxFileSize)
	}
	if embedded.Check.FailOn != defaults.Check.FailOn {
		t.Errorf("fail_on mismatch: %s vs %s", embedded.Check.FailOn, defaults.Check.FailOn)
	}
	if len(embedded.Analysis.ExcludePatterns) != len(defaults.Analysis.ExcludePatterns) {
		t.Errorf("exclude patterns mismatch: %v vs %v", embedded.Analysis.ExcludePatterns, defaults.Analysis.ExcludePatterns)
	}
}

func TestSaveConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "saved.yaml")
	config := DefaultConfig()
	config.Output.Format = "sarif"
	config.Check.MaxRiskScore = 42

	if err := SaveConfig(config, path); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}

	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig of saved file failed: %v", err)
	}
	if loaded.Output.Format != "sarif" || loaded.Check.MaxRiskScore != 42 {
		t.Errorf("Saved values not restored: %+v", loaded.Output)
	}
}

func TestTemplatesLoad(t *testing.T) {
	for projectType := range GetProjectPresets() {
		for strictness, preset := range GetStrictnessPresets() {
			path := filepath.Join(t.TempDir(), "solscan.yaml")
			template := GetFullConfigTemplate(projectType, strictness)
			if err := os.WriteFile(path, []byte(template), 0644); err != nil {
				t.Fatalf("Failed to write template: %v", err)
			}

			config, err := LoadConfig(path)
			if err != nil {
				t.Fatalf("%s/%s template should load: %v", projectType, strictness, err)
			}
			if config.Check.MaxRiskScore != preset.MaxRiskScore {
				t.Errorf("%s/%s: max risk %v, want %v", projectType, strictness, config.Check.MaxRiskScore, preset.MaxRiskScore)
			}
		}
	}

	path := filepath.Join(t.TempDir(), "minimal.yaml")
	if err := os.WriteFile(path, []byte(GetMinimalConfigTemplate()), 0644); err != nil {
		t.Fatalf("Failed to write template: %v", err)
	}
	if _, err := LoadConfig(path); err != nil {
		t.Errorf("minimal template should load: %v", err)
	}
}

func TestRenderConfigTemplate_OutputFormat(t *testing.T) {
	for _, format := range []string{"json", "sarif", ""} {
		path := filepath.Join(t.TempDir(), "solscan.yaml")
		template := RenderConfigTemplate(ProjectTypeFoundry, StrictnessStrict, format)
		if err := os.WriteFile(path, []byte(template), 0644); err != nil {
			t.Fatalf("Failed to write template: %v", err)
		}

		config, err := LoadConfig(path)
		if err != nil {
			t.Fatalf("template with format %q should load: %v", format, err)
		}
		want := format
		if want == "" {
			want = "text"
		}
		if config.Output.Format != want {
			t.Errorf("format = %q, want %q", config.Output.Format, want)
		}
		if len(config.Analysis.IncludePatterns) != 1 || config.Analysis.IncludePatterns[0] != "src/**/*.sol" {
			t.Errorf("foundry include patterns not applied: %v", config.Analysis.IncludePatterns)
		}
	}
}
