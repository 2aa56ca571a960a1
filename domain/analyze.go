package domain

import (
	"context"
	"io"
	"math"
)

// OutputFormat represents the supported output formats
type OutputFormat string

const (
	OutputFormatText  OutputFormat = "text"
	OutputFormatJSON  OutputFormat = "json"
	OutputFormatYAML  OutputFormat = "yaml"
	OutputFormatCSV   OutputFormat = "csv"
	OutputFormatSARIF OutputFormat = "sarif"
)

// SortCriteria represents the criteria for ordering findings in reports
type SortCriteria string

const (
	// SortByRule keeps catalog order, then match order
	SortByRule     SortCriteria = "rule"
	SortByLine     SortCriteria = "line"
	SortBySeverity SortCriteria = "severity"
)

// AnalyzeRequest represents a request to scan contract files
type AnalyzeRequest struct {
	// Input files or directories to analyze
	Paths []string

	// Output configuration
	OutputFormat OutputFormat
	OutputWriter io.Writer
	ShowSnippets bool

	// Filtering and sorting
	MinSeverity Severity
	SortBy      SortCriteria

	// Configuration
	ConfigPath string

	// File collection options
	Recursive        bool
	RespectGitignore bool
	IncludePatterns  []string
	ExcludePatterns  []string
	MinFileSize      int64
	MaxFileSize      int64
}

// ContractSource is a contract read from disk
type ContractSource struct {
	Name string
	Path string
	Code string
}

// ContractReport pairs a scanned file with its analysis result
type ContractReport struct {
	FilePath string          `json:"file_path" yaml:"file_path"`
	Result   *AnalysisResult `json:"result" yaml:"result"`
}

// AnalyzeSummary aggregates results over every scanned contract
type AnalyzeSummary struct {
	FilesAnalyzed    int              `json:"files_analyzed" yaml:"files_analyzed"`
	FailedContracts  int              `json:"failed_contracts" yaml:"failed_contracts"`
	TotalFindings    int              `json:"total_findings" yaml:"total_findings"`
	SeverityCount    map[Severity]int `json:"severity_count" yaml:"severity_count"`
	HighestRiskScore float64          `json:"highest_risk_score" yaml:"highest_risk_score"`
	AverageRiskScore float64          `json:"average_risk_score" yaml:"average_risk_score"`
	RiskiestContract string           `json:"riskiest_contract,omitempty" yaml:"riskiest_contract,omitempty"`
}

// Summarize computes an AnalyzeSummary from contract reports
func Summarize(reports []ContractReport) AnalyzeSummary {
	summary := AnalyzeSummary{
		FilesAnalyzed: len(reports),
		SeverityCount: make(map[Severity]int),
	}

	scored := 0
	totalRisk := 0.0
	for _, r := range reports {
		if r.Result == nil || !r.Result.Success {
			summary.FailedContracts++
			continue
		}
		summary.TotalFindings += len(r.Result.Vulnerabilities)
		for _, f := range r.Result.Vulnerabilities {
			summary.SeverityCount[f.Severity]++
		}
		if r.Result.Metrics == nil {
			continue
		}
		score := r.Result.Metrics.OverallRiskScore
		totalRisk += score
		scored++
		if score > summary.HighestRiskScore || summary.RiskiestContract == "" {
			summary.HighestRiskScore = score
			summary.RiskiestContract = r.Result.ContractName
		}
	}

	if scored > 0 {
		summary.AverageRiskScore = math.Round(totalRisk/float64(scored)*100) / 100
	}
	return summary
}

// AnalyzeResponse represents the complete result of a file scan
type AnalyzeResponse struct {
	Contracts []ContractReport `json:"contracts" yaml:"contracts"`
	Summary   AnalyzeSummary   `json:"summary" yaml:"summary"`

	// Warnings and issues
	Warnings []string `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	Errors   []string `json:"errors,omitempty" yaml:"errors,omitempty"`

	// Metadata
	GeneratedAt string `json:"generated_at" yaml:"generated_at"`
	Version     string `json:"version" yaml:"version"`
	DurationMs  int64  `json:"duration_ms" yaml:"duration_ms"`
}

// OutputFormatter defines the interface for formatting scan reports
type OutputFormatter interface {
	// Format renders the response in the requested format
	Format(response *AnalyzeResponse, format OutputFormat) (string, error)

	// Write writes the formatted output to the writer
	Write(response *AnalyzeResponse, format OutputFormat, writer io.Writer) error
}

// ProgressManager creates progress trackers for long running work
type ProgressManager interface {
	StartTask(description string, total int) TaskProgress
	IsInteractive() bool
	Close()
}

// TaskProgress tracks a single unit of work
type TaskProgress interface {
	Increment(n int)
	Describe(description string)
	Complete()
}

// ExecutableTask is a named unit of work for the parallel executor
type ExecutableTask interface {
	Name() string
	Execute(ctx context.Context) (interface{}, error)
	IsEnabled() bool
}

// ParallelExecutor runs tasks concurrently
type ParallelExecutor interface {
	Execute(ctx context.Context, tasks []ExecutableTask) error
}
