package analyzer

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ludo-technologies/solscan/domain"
	"github.com/ludo-technologies/solscan/internal/rules"
)

// ScannerOptions tunes a Scanner. Zero values fall back to the defaults.
type ScannerOptions struct {
	ContextLines     int
	QualityScore     float64
	MitigationWindow int
	DisabledRules    []string
}

// DefaultScannerOptions returns the options used when nothing is configured
func DefaultScannerOptions() ScannerOptions {
	return ScannerOptions{
		ContextLines:     DefaultContextLines,
		QualityScore:     DefaultQualityScore,
		MitigationWindow: DefaultMitigationWindow,
	}
}

// Scanner matches contract source against the rule catalog.
// A Scanner holds no per-scan state and is safe for concurrent use.
type Scanner struct {
	rules        []rules.Rule
	evaluator    *ContextEvaluator
	contextLines int
	quality      float64
}

// NewScanner creates a scanner over the catalog minus any disabled rules
func NewScanner(opts ScannerOptions) (*Scanner, error) {
	selected, unknown := rules.Select(opts.DisabledRules)
	if len(unknown) > 0 {
		return nil, fmt.Errorf("unknown rule ids: %s", strings.Join(unknown, ", "))
	}
	return newScanner(selected, opts)
}

func newScanner(selected []rules.Rule, opts ScannerOptions) (*Scanner, error) {
	if opts.QualityScore < 0 || opts.QualityScore > 1 {
		return nil, fmt.Errorf("quality score must be between 0 and 1, got %v", opts.QualityScore)
	}
	if opts.ContextLines < 0 {
		return nil, fmt.Errorf("context lines must be non-negative, got %d", opts.ContextLines)
	}

	return &Scanner{
		rules:        selected,
		evaluator:    NewContextEvaluator(opts.MitigationWindow),
		contextLines: opts.ContextLines,
		quality:      opts.QualityScore,
	}, nil
}

// NewDefaultScanner creates a scanner with the full catalog and default options
func NewDefaultScanner() *Scanner {
	s, err := NewScanner(DefaultScannerOptions())
	if err != nil {
		panic(err)
	}
	return s
}

// Rules returns the rules this scanner runs, in scan order
func (s *Scanner) Rules() []rules.Rule {
	out := make([]rules.Rule, len(s.rules))
	copy(out, s.rules)
	return out
}

// Scan returns the findings for one contract in rule order, then match order.
// Finding ids are "<contractName>-<ruleID>-<ordinal>" where the ordinal counts
// emitted findings across the whole scan starting at 1.
func (s *Scanner) Scan(source, contractName string) []domain.Finding {
	findings := []domain.Finding{}
	if source == "" {
		return findings
	}

	lines := newLineIndex(source)
	ordinal := 1

	for _, rule := range s.rules {
		matches := rule.Pattern.FindAllStringIndex(source, -1)
		if len(matches) == 0 {
			continue
		}
		if s.evaluator.Excluded(rule, source) {
			continue
		}

		for _, m := range matches {
			verdict := s.evaluator.Evaluate(rule, source, m[0], m[1])
			if verdict == VerdictSuppress {
				continue
			}

			severity := rule.Severity
			downgraded := verdict == VerdictDowngrade
			if downgraded {
				severity = domain.SeverityMedium
			}

			line := lines.line(m[0])
			findings = append(findings, domain.Finding{
				ID:             contractName + "-" + rule.ID + "-" + strconv.Itoa(ordinal),
				RuleID:         rule.ID,
				Name:           rule.Name,
				Description:    rule.Description,
				Severity:       severity,
				Category:       rule.Category,
				LineNumber:     line,
				CodeSnippet:    lines.snippet(line, s.contextLines),
				Recommendation: rule.Recommendation,
				Confidence:     FindingConfidence(!downgraded, downgraded, s.quality),
				CWEID:          rule.CWEID,
				SWCID:          rule.SWCID,
				Downgraded:     downgraded,
			})
			ordinal++
		}
	}

	return findings
}
