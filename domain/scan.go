package domain

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Severity is the impact class of a rule or finding
type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityHigh     Severity = "HIGH"
	SeverityMedium   Severity = "MEDIUM"
	SeverityLow      Severity = "LOW"
	SeverityInfo     Severity = "INFO"
)

// AllSeverities lists severities from most to least severe
var AllSeverities = []Severity{
	SeverityCritical,
	SeverityHigh,
	SeverityMedium,
	SeverityLow,
	SeverityInfo,
}

// Rank orders severities; unknown severities rank 0
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 5
	case SeverityHigh:
		return 4
	case SeverityMedium:
		return 3
	case SeverityLow:
		return 2
	case SeverityInfo:
		return 1
	default:
		return 0
	}
}

// Valid reports whether s is one of the known severities
func (s Severity) Valid() bool {
	return s.Rank() > 0
}

// AtLeast reports whether s is as severe as other or more
func (s Severity) AtLeast(other Severity) bool {
	return s.Rank() >= other.Rank()
}

// ParseSeverity parses a case-insensitive severity name
func ParseSeverity(value string) (Severity, error) {
	s := Severity(strings.ToUpper(strings.TrimSpace(value)))
	if !s.Valid() {
		return "", fmt.Errorf("unknown severity %q (must be one of: CRITICAL, HIGH, MEDIUM, LOW, INFO)", value)
	}
	return s, nil
}

// RiskLevel buckets an overall risk score
type RiskLevel string

const (
	RiskLevelCritical RiskLevel = "CRITICAL"
	RiskLevelHigh     RiskLevel = "HIGH"
	RiskLevelMedium   RiskLevel = "MEDIUM"
	RiskLevelLow      RiskLevel = "LOW"
	RiskLevelMinimal  RiskLevel = "MINIMAL"
)

// Finding is one occurrence of a rule in a contract
type Finding struct {
	ID             string   `json:"id" yaml:"id"`
	RuleID         string   `json:"-" yaml:"rule_id"`
	Name           string   `json:"name" yaml:"name"`
	Description    string   `json:"description" yaml:"description"`
	Severity       Severity `json:"severity" yaml:"severity"`
	Category       string   `json:"category" yaml:"category"`
	LineNumber     int      `json:"lineNumber" yaml:"line_number"`
	CodeSnippet    string   `json:"codeSnippet" yaml:"code_snippet"`
	Recommendation string   `json:"recommendation" yaml:"recommendation"`
	Confidence     float64  `json:"confidence" yaml:"confidence"`
	CWEID          string   `json:"cweId" yaml:"cwe_id"`
	SWCID          string   `json:"swcId" yaml:"swc_id"`

	// Downgraded is set when a possible mitigation lowered the declared severity
	Downgraded bool `json:"-" yaml:"downgraded,omitempty"`
}

// Metrics summarizes the findings of one contract
type Metrics struct {
	OverallRiskScore     float64          `json:"overallRiskScore" yaml:"overall_risk_score"`
	RiskLevel            RiskLevel        `json:"riskLevel" yaml:"risk_level"`
	TotalVulnerabilities int              `json:"totalVulnerabilities" yaml:"total_vulnerabilities"`
	SeverityCount        map[Severity]int `json:"severityCount" yaml:"severity_count"`
	CategoryCount        map[string]int   `json:"categoryCount" yaml:"category_count"`
	ModelConfidence      float64          `json:"modelConfidence" yaml:"model_confidence"`
}

// AnalysisResult is the outcome of scanning one contract
type AnalysisResult struct {
	Success          bool      `json:"success" yaml:"success"`
	Message          string    `json:"message" yaml:"message"`
	ContractName     string    `json:"contractName" yaml:"contract_name"`
	SourceHash       string    `json:"sourceHash,omitempty" yaml:"source_hash,omitempty"`
	Vulnerabilities  []Finding `json:"vulnerabilities" yaml:"vulnerabilities"`
	Metrics          *Metrics  `json:"metrics,omitempty" yaml:"metrics,omitempty"`
	ProcessingTimeMs int64     `json:"processingTimeMs" yaml:"processing_time_ms"`
}

// FailedResult builds an unsuccessful result with no findings
func FailedResult(contractName, message string) *AnalysisResult {
	return &AnalysisResult{
		Success:         false,
		Message:         message,
		ContractName:    contractName,
		Vulnerabilities: []Finding{},
	}
}

// RuleInfo is the public view of a catalog rule
type RuleInfo struct {
	ID          string   `json:"id" yaml:"id"`
	Name        string   `json:"name" yaml:"name"`
	Description string   `json:"description" yaml:"description"`
	Severity    Severity `json:"severity" yaml:"severity"`
	Category    string   `json:"category" yaml:"category"`
	CWEID       string   `json:"cweId" yaml:"cwe_id"`
	SWCID       string   `json:"swcId" yaml:"swc_id"`
}

// ScanService defines the scanning operations exposed to the boundary layers
type ScanService interface {
	// Analyze scans a single contract
	Analyze(ctx context.Context, contractCode, contractName string) (*AnalysisResult, error)

	// AnalyzeBatch scans independent contracts keyed by name
	AnalyzeBatch(ctx context.Context, contracts map[string]string) (map[string]*AnalysisResult, error)

	// ListRules returns the rule catalog in scan order
	ListRules() []RuleInfo
}

// ScanRecord is a persisted analysis result
type ScanRecord struct {
	ID            int64           `json:"id" yaml:"id"`
	ContractName  string          `json:"contractName" yaml:"contract_name"`
	SourceHash    string          `json:"sourceHash" yaml:"source_hash"`
	RiskScore     float64         `json:"riskScore" yaml:"risk_score"`
	RiskLevel     RiskLevel       `json:"riskLevel" yaml:"risk_level"`
	TotalFindings int             `json:"totalFindings" yaml:"total_findings"`
	Result        *AnalysisResult `json:"result" yaml:"result"`
	CreatedAt     time.Time       `json:"createdAt" yaml:"created_at"`
}

// ResultStore persists successful analysis results
type ResultStore interface {
	// Save stores a successful result
	Save(ctx context.Context, result *AnalysisResult) error

	// History returns the newest records first; an empty contract name matches all
	History(ctx context.Context, contractName string, limit int) ([]ScanRecord, error)

	Close() error
}
