package service

import (
	"sort"

	"github.com/ludo-technologies/solscan/domain"
)

// FilterFindings keeps findings at or above minSeverity. Metrics are left
// untouched, they always describe the full scan.
func FilterFindings(findings []domain.Finding, minSeverity domain.Severity) []domain.Finding {
	if minSeverity == "" || minSeverity == domain.SeverityInfo {
		return findings
	}
	filtered := make([]domain.Finding, 0, len(findings))
	for _, f := range findings {
		if f.Severity.AtLeast(minSeverity) {
			filtered = append(filtered, f)
		}
	}
	return filtered
}

// SortFindings orders findings in place. SortByRule keeps scan order.
func SortFindings(findings []domain.Finding, criteria domain.SortCriteria) {
	switch criteria {
	case domain.SortByLine:
		sort.SliceStable(findings, func(i, j int) bool {
			return findings[i].LineNumber < findings[j].LineNumber
		})
	case domain.SortBySeverity:
		sort.SliceStable(findings, func(i, j int) bool {
			ri, rj := findings[i].Severity.Rank(), findings[j].Severity.Rank()
			if ri != rj {
				return ri > rj
			}
			return findings[i].LineNumber < findings[j].LineNumber
		})
	}
}

// PrepareReports applies severity filtering and sorting to every successful
// result, returning copies so callers keep the original results intact
func PrepareReports(reports []domain.ContractReport, minSeverity domain.Severity, criteria domain.SortCriteria) []domain.ContractReport {
	prepared := make([]domain.ContractReport, 0, len(reports))
	for _, r := range reports {
		if r.Result == nil || !r.Result.Success {
			prepared = append(prepared, r)
			continue
		}
		result := *r.Result
		findings := FilterFindings(result.Vulnerabilities, minSeverity)
		findings = append([]domain.Finding{}, findings...)
		SortFindings(findings, criteria)
		result.Vulnerabilities = findings
		prepared = append(prepared, domain.ContractReport{FilePath: r.FilePath, Result: &result})
	}
	return prepared
}
