package domain

// CheckResult represents the result of a CI gate run
type CheckResult struct {
	Passed      bool             `json:"passed"`
	ExitCode    int              `json:"exit_code"`
	Violations  []CheckViolation `json:"violations"`
	Summary     CheckSummary     `json:"summary"`
	Duration    int64            `json:"duration_ms"`
	GeneratedAt string           `json:"generated_at"`
	Version     string           `json:"version"`
}

// CheckViolation represents a single threshold violation
type CheckViolation struct {
	Category  string `json:"category"`
	Rule      string `json:"rule"`
	Severity  string `json:"severity"`
	Message   string `json:"message"`
	Location  string `json:"location,omitempty"`
	Actual    string `json:"actual,omitempty"`
	Threshold string `json:"threshold,omitempty"`
}

// CheckSummary provides summary statistics for a check run
type CheckSummary struct {
	FilesAnalyzed    int     `json:"files_analyzed"`
	FailedContracts  int     `json:"failed_contracts"`
	TotalFindings    int     `json:"total_findings"`
	HighestRiskScore float64 `json:"highest_risk_score"`
	TotalViolations  int     `json:"total_violations"`
}
