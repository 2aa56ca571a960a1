package analyzer

import (
	"math"

	"github.com/ludo-technologies/solscan/domain"
)

const (
	maxRiskScore   = 100.0
	riskMultiplier = 5.0
	unknownWeight  = 1.0
)

var severityWeights = map[domain.Severity]float64{
	domain.SeverityCritical: 10.0,
	domain.SeverityHigh:     7.0,
	domain.SeverityMedium:   4.0,
	domain.SeverityLow:      2.0,
	domain.SeverityInfo:     0.5,
}

// SeverityWeight returns the risk weight of a severity
func SeverityWeight(s domain.Severity) float64 {
	if w, ok := severityWeights[s]; ok {
		return w
	}
	return unknownWeight
}

// RiskScore is the confidence-weighted severity sum scaled to 0..100, rounded to 2 decimals
func RiskScore(findings []domain.Finding) float64 {
	if len(findings) == 0 {
		return 0
	}
	total := 0.0
	for _, f := range findings {
		total += SeverityWeight(f.Severity) * f.Confidence
	}
	return round2(math.Min(total*riskMultiplier, maxRiskScore))
}

// ClassifyRisk buckets a risk score
func ClassifyRisk(score float64) domain.RiskLevel {
	switch {
	case score >= 70:
		return domain.RiskLevelCritical
	case score >= 50:
		return domain.RiskLevelHigh
	case score >= 30:
		return domain.RiskLevelMedium
	case score >= 10:
		return domain.RiskLevelLow
	default:
		return domain.RiskLevelMinimal
	}
}

// Aggregate reduces findings to contract level metrics
func Aggregate(findings []domain.Finding) domain.Metrics {
	metrics := domain.Metrics{
		TotalVulnerabilities: len(findings),
		SeverityCount:        make(map[domain.Severity]int),
		CategoryCount:        make(map[string]int),
	}

	sum := 0.0
	for _, f := range findings {
		metrics.SeverityCount[f.Severity]++
		metrics.CategoryCount[f.Category]++
		sum += f.Confidence
	}
	if len(findings) > 0 {
		metrics.ModelConfidence = round2(sum / float64(len(findings)))
	}

	metrics.OverallRiskScore = RiskScore(findings)
	metrics.RiskLevel = ClassifyRisk(metrics.OverallRiskScore)
	return metrics
}
