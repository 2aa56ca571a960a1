package analyzer

import (
	"math"

	"github.com/ludo-technologies/solscan/domain"
)

const (
	// DefaultQualityScore is the code quality term of the confidence formula
	DefaultQualityScore = 0.5

	matchConfidence   = 0.7
	contextConfidence = 0.2
	qualityWeight     = 0.1
	downgradeFactor   = 0.8
)

// Confidence computes the heuristic confidence of a match, rounded to 2 decimals
func Confidence(matchFound, contextSatisfied bool, quality float64) float64 {
	return round2(rawConfidence(matchFound, contextSatisfied, quality))
}

// FindingConfidence is the confidence assigned to an emitted finding.
// Downgraded findings are scaled before rounding.
func FindingConfidence(contextSatisfied, downgraded bool, quality float64) float64 {
	c := rawConfidence(true, contextSatisfied, quality)
	if downgraded {
		c *= downgradeFactor
	}
	return round2(c)
}

func rawConfidence(matchFound, contextSatisfied bool, quality float64) float64 {
	c := 0.0
	if matchFound {
		c = matchConfidence
	}
	if contextSatisfied {
		c += contextConfidence
	}
	c += quality * qualityWeight
	return math.Min(c, 1.0)
}

func isHighImpact(s domain.Severity) bool {
	return s == domain.SeverityCritical || s == domain.SeverityHigh
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
