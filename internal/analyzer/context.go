package analyzer

import (
	"strings"
	"unicode/utf8"

	"github.com/ludo-technologies/solscan/internal/rules"
)

// DefaultMitigationWindow is the number of characters searched on each side
// of a match for mitigation patterns
const DefaultMitigationWindow = 500

// Verdict is the outcome of evaluating one match in its surroundings
type Verdict int

const (
	// VerdictReport keeps the finding at its declared severity
	VerdictReport Verdict = iota
	// VerdictDowngrade keeps a CRITICAL or HIGH finding as MEDIUM with reduced confidence
	VerdictDowngrade
	// VerdictSuppress drops the match
	VerdictSuppress
)

// ContextEvaluator applies the exclusion, mitigation and guard checks of a rule
type ContextEvaluator struct {
	window int
}

// NewContextEvaluator creates an evaluator; a non-positive window uses the default
func NewContextEvaluator(window int) *ContextEvaluator {
	if window <= 0 {
		window = DefaultMitigationWindow
	}
	return &ContextEvaluator{window: window}
}

// Excluded reports whether the rule's exclusion pattern occurs anywhere in source
func (e *ContextEvaluator) Excluded(rule rules.Rule, source string) bool {
	return rule.Exclude != nil && rule.Exclude.MatchString(source)
}

// Guarded reports whether the rule's guard rejects the match at [start, end)
func (e *ContextEvaluator) Guarded(rule rules.Rule, source string, start, end int) bool {
	if rule.Guard == nil || rule.Guard.Pattern == nil {
		return false
	}
	guard := rule.Guard.Pattern
	rest := source[end:]

	switch rule.Guard.Scope {
	case rules.GuardRestOfLine:
		if i := strings.IndexByte(rest, '\n'); i >= 0 {
			rest = rest[:i]
		}
		return guard.MatchString(rest)

	case rules.GuardStartsOnLine:
		loc := guard.FindStringIndex(rest)
		if loc == nil {
			return false
		}
		lineEnd := strings.IndexByte(rest, '\n')
		return lineEnd < 0 || loc[0] < lineEnd

	case rules.GuardBodyOrTrailer:
		stop := len(source)
		if i := strings.IndexByte(rest, '}'); i >= 0 {
			stop = end + i
		}
		return guard.MatchString(source[start:stop])
	}
	return false
}

// ContextSatisfied reports whether no mitigation pattern was found in the
// window before start or the window after end
func (e *ContextEvaluator) ContextSatisfied(rule rules.Rule, source string, start, end int) bool {
	if !rule.HasMitigation() {
		return true
	}
	if rule.CheckBefore != nil {
		from := runesBefore(source, start, e.window)
		if rule.CheckBefore.MatchString(source[from:start]) {
			return false
		}
	}
	if rule.CheckAfter != nil {
		to := runesAfter(source, end, e.window)
		if rule.CheckAfter.MatchString(source[end:to]) {
			return false
		}
	}
	return true
}

// runesBefore returns the byte offset n characters before offset, clipped at 0
func runesBefore(source string, offset, n int) int {
	for ; n > 0 && offset > 0; n-- {
		_, size := utf8.DecodeLastRuneInString(source[:offset])
		offset -= size
	}
	return offset
}

// runesAfter returns the byte offset n characters after offset, clipped at len(source)
func runesAfter(source string, offset, n int) int {
	for ; n > 0 && offset < len(source); n-- {
		_, size := utf8.DecodeRuneInString(source[offset:])
		offset += size
	}
	return offset
}

// Evaluate combines guard and mitigation checks for a single match.
// Exclusion is whole-source and is evaluated once per rule by the scanner.
func (e *ContextEvaluator) Evaluate(rule rules.Rule, source string, start, end int) Verdict {
	if e.Guarded(rule, source, start, end) {
		return VerdictSuppress
	}
	if e.ContextSatisfied(rule, source, start, end) {
		return VerdictReport
	}
	if isHighImpact(rule.Severity) {
		return VerdictDowngrade
	}
	return VerdictSuppress
}
