package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ludo-technologies/solscan/app"
	"github.com/ludo-technologies/solscan/domain"
	"github.com/ludo-technologies/solscan/internal/config"
	"github.com/ludo-technologies/solscan/internal/logging"
	"github.com/ludo-technologies/solscan/internal/version"
	"github.com/ludo-technologies/solscan/service"
)

// CheckExitError is a custom error type for check command exit codes
type CheckExitError struct {
	Code    int
	Message string
}

func (e *CheckExitError) Error() string {
	return e.Message
}

type checkOptions struct {
	maxRisk    float64
	failOn     string
	verbose    bool
	jsonOutput bool
	configPath string
}

func checkCmd() *cobra.Command {
	opts := &checkOptions{}

	cmd := &cobra.Command{
		Use:   "check [path...]",
		Short: "Security gate for CI/CD pipelines",
		Long: `Scan contracts and fail when risk or severity thresholds are violated.

A contract passes while its risk score stays below --max-risk.

Exit codes:
  0 - All checks pass
  1 - Security threshold(s) violated
  2 - Analysis error (file not found, unreadable contract, etc.)

Examples:
  # Basic check with defaults
  solscan check contracts/

  # Strict gate
  solscan check --max-risk 10 --fail-on HIGH contracts/

  # Only gate on risk score
  solscan check --fail-on none src/

  # JSON output for machine parsing
  solscan check --json src/`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, args, opts)
		},
		SilenceUsage:  true, // Don't print usage on errors (we handle our own output)
		SilenceErrors: true, // Don't print error messages (we handle our own output)
	}

	cmd.Flags().Float64Var(&opts.maxRisk, "max-risk", config.DefaultMaxRiskScore,
		"Fail when a contract's risk score reaches this value (0-100)")
	cmd.Flags().StringVar(&opts.failOn, "fail-on", config.DefaultFailOn,
		"Fail on any finding at or above this severity (none disables)")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false,
		"Show detailed output")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false,
		"Output results as JSON")
	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "",
		"Path to config file")

	return cmd
}

func runCheck(cmd *cobra.Command, args []string, opts *checkOptions) error {
	if len(args) == 0 {
		return &CheckExitError{Code: 2, Message: "no paths specified"}
	}

	startTime := time.Now()

	cfg, err := config.LoadConfigWithTarget(opts.configPath, args[0])
	if err != nil {
		return &CheckExitError{Code: 2, Message: fmt.Sprintf("failed to load configuration: %v", err)}
	}

	// Apply config values for flags not explicitly set on CLI
	if cmd.Flags().Changed("max-risk") {
		cfg.Check.MaxRiskScore = opts.maxRisk
	}
	if cmd.Flags().Changed("fail-on") {
		cfg.Check.FailOn = opts.failOn
		if strings.EqualFold(opts.failOn, "none") {
			cfg.Check.FailOn = ""
		}
	}
	if err := cfg.Validate(); err != nil {
		return &CheckExitError{Code: 2, Message: err.Error()}
	}

	logger, err := logging.New(opts.verbose)
	if err != nil {
		return &CheckExitError{Code: 2, Message: fmt.Sprintf("failed to initialize logger: %v", err)}
	}
	defer func() { _ = logger.Sync() }()

	// Create progress manager (auto-disabled for JSON output or non-TTY/CI)
	pm := service.NewProgressManager(!opts.jsonOutput)
	defer pm.Close()

	ctx := cmd.Context()
	svc, cleanup, err := newScanService(ctx, cfg, logger, pm)
	if err != nil {
		return &CheckExitError{Code: 2, Message: err.Error()}
	}
	defer cleanup()

	req := service.RequestFromConfig(cfg)
	req.Paths = args

	useCase, err := app.NewAnalyzeUseCaseBuilder().WithService(svc).Build()
	if err != nil {
		return &CheckExitError{Code: 2, Message: err.Error()}
	}
	response, err := useCase.Execute(ctx, *req)
	if err != nil {
		return &CheckExitError{Code: 2, Message: err.Error()}
	}

	result := evaluateCheck(response, &cfg.Check)
	return outputCheckResult(cmd.OutOrStdout(), result, startTime, opts)
}

// evaluateCheck applies the risk and severity thresholds to a scan response
func evaluateCheck(response *domain.AnalyzeResponse, check *config.CheckConfig) *domain.CheckResult {
	result := &domain.CheckResult{
		Passed:     true,
		Violations: []domain.CheckViolation{},
		Summary: domain.CheckSummary{
			FilesAnalyzed:    response.Summary.FilesAnalyzed,
			FailedContracts:  response.Summary.FailedContracts,
			TotalFindings:    response.Summary.TotalFindings,
			HighestRiskScore: response.Summary.HighestRiskScore,
		},
	}

	failOn, gateSeverity := check.FailOnSeverity()
	threshold := strconv.FormatFloat(check.MaxRiskScore, 'f', 2, 64)

	for _, report := range response.Contracts {
		r := report.Result
		if r == nil || !r.Success {
			result.Violations = append(result.Violations, domain.CheckViolation{
				Category: "analysis",
				Rule:     "analysis-failed",
				Severity: "error",
				Message:  fmt.Sprintf("Contract '%s' could not be analyzed: %s", contractLabel(report), failureMessage(r)),
				Location: report.FilePath,
			})
			continue
		}

		if r.Metrics != nil && r.Metrics.OverallRiskScore >= check.MaxRiskScore {
			result.Passed = false
			result.Violations = append(result.Violations, domain.CheckViolation{
				Category:  "risk",
				Rule:      "max-risk",
				Severity:  "error",
				Message:   fmt.Sprintf("Contract '%s' has risk score %.2f (%s)", r.ContractName, r.Metrics.OverallRiskScore, r.Metrics.RiskLevel),
				Location:  report.FilePath,
				Actual:    strconv.FormatFloat(r.Metrics.OverallRiskScore, 'f', 2, 64),
				Threshold: threshold,
			})
		}

		if !gateSeverity {
			continue
		}
		for _, f := range r.Vulnerabilities {
			if !f.Severity.AtLeast(failOn) {
				continue
			}
			result.Passed = false
			result.Violations = append(result.Violations, domain.CheckViolation{
				Category:  "severity",
				Rule:      f.RuleID,
				Severity:  "error",
				Message:   fmt.Sprintf("%s finding '%s' in '%s'", f.Severity, f.Name, r.ContractName),
				Location:  fmt.Sprintf("%s:%d", report.FilePath, f.LineNumber),
				Actual:    string(f.Severity),
				Threshold: string(failOn),
			})
		}
	}

	result.Summary.TotalViolations = len(result.Violations)
	switch {
	case result.Summary.FailedContracts > 0:
		result.Passed = false
		result.ExitCode = 2
	case !result.Passed:
		result.ExitCode = 1
	}
	return result
}

func contractLabel(report domain.ContractReport) string {
	if report.Result != nil && report.Result.ContractName != "" {
		return report.Result.ContractName
	}
	return report.FilePath
}

func failureMessage(r *domain.AnalysisResult) string {
	if r == nil {
		return "no result"
	}
	return r.Message
}

func outputCheckResult(w io.Writer, result *domain.CheckResult, startTime time.Time, opts *checkOptions) error {
	result.Duration = time.Since(startTime).Milliseconds()
	result.GeneratedAt = time.Now().Format(time.RFC3339)
	result.Version = version.Version

	if opts.jsonOutput {
		return outputCheckJSON(w, result)
	}
	return outputCheckText(w, result, opts.verbose)
}

func outputCheckText(w io.Writer, result *domain.CheckResult, verbose bool) error {
	if result.Passed {
		fmt.Fprintln(w, "PASS: All security checks passed")
		if verbose {
			fmt.Fprintf(w, "  Files analyzed: %d\n", result.Summary.FilesAnalyzed)
			fmt.Fprintf(w, "  Findings: %d\n", result.Summary.TotalFindings)
			fmt.Fprintf(w, "  Highest risk: %.2f\n", result.Summary.HighestRiskScore)
			fmt.Fprintf(w, "  Duration: %dms\n", result.Duration)
		}
		return nil
	}

	fmt.Fprintln(w, "FAIL: Security check failed")
	fmt.Fprintf(w, "  Violations: %d\n", result.Summary.TotalViolations)

	for _, v := range result.Violations {
		fmt.Fprintf(w, "  [ERROR] %s: %s\n", v.Category, v.Message)
		if verbose && v.Location != "" {
			fmt.Fprintf(w, "         at %s\n", v.Location)
		}
	}

	if verbose {
		fmt.Fprintf(w, "\nSummary:\n")
		fmt.Fprintf(w, "  Files: %d\n", result.Summary.FilesAnalyzed)
		fmt.Fprintf(w, "  Failed contracts: %d\n", result.Summary.FailedContracts)
		fmt.Fprintf(w, "  Findings: %d\n", result.Summary.TotalFindings)
		fmt.Fprintf(w, "  Highest risk: %.2f\n", result.Summary.HighestRiskScore)
		fmt.Fprintf(w, "  Duration: %dms\n", result.Duration)
	}

	return &CheckExitError{Code: result.ExitCode, Message: ""}
}

func outputCheckJSON(w io.Writer, result *domain.CheckResult) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(result); err != nil {
		return &CheckExitError{Code: 2, Message: fmt.Sprintf("failed to encode JSON: %v", err)}
	}

	if !result.Passed {
		return &CheckExitError{Code: result.ExitCode, Message: ""}
	}
	return nil
}
