// Package rules holds the vulnerability rule catalog.
//
// The catalog is compiled once at package initialisation and is read-only
// afterwards, so it may be shared by any number of concurrent scans.
package rules

import (
	"fmt"
	"regexp"

	"github.com/ludo-technologies/solscan/domain"
)

// GuardScope selects where a two-phase guard looks for a disqualifying pattern
type GuardScope int

const (
	// GuardRestOfLine rejects a match when the guard occurs between the
	// match end and the next newline.
	GuardRestOfLine GuardScope = iota + 1

	// GuardStartsOnLine rejects a match when a guard match starts on the
	// rest of the line, even if it continues onto later lines.
	GuardStartsOnLine

	// GuardBodyOrTrailer rejects a match when the guard occurs inside the
	// matched span or in the text that follows it up to the next '}'.
	GuardBodyOrTrailer
)

// String returns a readable scope name
func (s GuardScope) String() string {
	switch s {
	case GuardRestOfLine:
		return "rest-of-line"
	case GuardStartsOnLine:
		return "starts-on-line"
	case GuardBodyOrTrailer:
		return "body-or-trailer"
	default:
		return "unknown"
	}
}

// Guard is a negative proximity check applied after the primary pattern matched
type Guard struct {
	Scope   GuardScope
	Pattern *regexp.Regexp
}

// Rule is a compiled vulnerability rule. Optional patterns are nil when unset.
type Rule struct {
	ID          string
	Name        string
	Description string
	Severity    domain.Severity
	Category    string

	// Pattern is the primary match pattern
	Pattern *regexp.Regexp

	// Exclude suppresses the rule for the whole source when it matches anywhere
	Exclude *regexp.Regexp

	// CheckBefore and CheckAfter are mitigation patterns searched in a
	// bounded window around each match
	CheckBefore *regexp.Regexp
	CheckAfter  *regexp.Regexp

	// Context is informational and does not gate findings
	Context *regexp.Regexp

	Guard *Guard

	Recommendation string
	CWEID          string
	SWCID          string
}

// Info returns the public catalog view of the rule
func (r Rule) Info() domain.RuleInfo {
	return domain.RuleInfo{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		Severity:    r.Severity,
		Category:    r.Category,
		CWEID:       r.CWEID,
		SWCID:       r.SWCID,
	}
}

// HasMitigation reports whether the rule defines a before or after mitigation pattern
func (r Rule) HasMitigation() bool {
	return r.CheckBefore != nil || r.CheckAfter != nil
}

// Definition is the uncompiled form of a rule
type Definition struct {
	ID             string
	Name           string
	Description    string
	Severity       domain.Severity
	Category       string
	Pattern        string
	Exclude        string
	CheckBefore    string
	CheckAfter     string
	Context        string
	Guard          string
	GuardScope     GuardScope
	Recommendation string
	CWEID          string
	SWCID          string
}

// matchFlags makes every pattern case-insensitive and multiline
const matchFlags = "(?im)"

// Compile validates definitions and compiles their patterns
func Compile(defs []Definition) ([]Rule, error) {
	seen := make(map[string]bool, len(defs))
	compiled := make([]Rule, 0, len(defs))

	for i, def := range defs {
		if def.ID == "" {
			return nil, fmt.Errorf("rule %d: id is required", i)
		}
		if seen[def.ID] {
			return nil, fmt.Errorf("rule %s: duplicate id", def.ID)
		}
		seen[def.ID] = true

		if !def.Severity.Valid() {
			return nil, fmt.Errorf("rule %s: invalid severity %q", def.ID, def.Severity)
		}
		if def.Name == "" || def.Category == "" {
			return nil, fmt.Errorf("rule %s: name and category are required", def.ID)
		}
		if def.Pattern == "" {
			return nil, fmt.Errorf("rule %s: pattern is required", def.ID)
		}

		rule := Rule{
			ID:             def.ID,
			Name:           def.Name,
			Description:    def.Description,
			Severity:       def.Severity,
			Category:       def.Category,
			Recommendation: def.Recommendation,
			CWEID:          def.CWEID,
			SWCID:          def.SWCID,
		}

		var err error
		if rule.Pattern, err = compileOptional(def.Pattern); err != nil {
			return nil, fmt.Errorf("rule %s: pattern: %w", def.ID, err)
		}
		if rule.Exclude, err = compileOptional(def.Exclude); err != nil {
			return nil, fmt.Errorf("rule %s: exclude: %w", def.ID, err)
		}
		if rule.CheckBefore, err = compileOptional(def.CheckBefore); err != nil {
			return nil, fmt.Errorf("rule %s: check_before: %w", def.ID, err)
		}
		if rule.CheckAfter, err = compileOptional(def.CheckAfter); err != nil {
			return nil, fmt.Errorf("rule %s: check_after: %w", def.ID, err)
		}
		if rule.Context, err = compileOptional(def.Context); err != nil {
			return nil, fmt.Errorf("rule %s: context: %w", def.ID, err)
		}

		if def.Guard != "" {
			if def.GuardScope < GuardRestOfLine || def.GuardScope > GuardBodyOrTrailer {
				return nil, fmt.Errorf("rule %s: guard requires a scope", def.ID)
			}
			pattern, err := compileOptional(def.Guard)
			if err != nil {
				return nil, fmt.Errorf("rule %s: guard: %w", def.ID, err)
			}
			rule.Guard = &Guard{Scope: def.GuardScope, Pattern: pattern}
		}

		compiled = append(compiled, rule)
	}

	return compiled, nil
}

func compileOptional(expr string) (*regexp.Regexp, error) {
	if expr == "" {
		return nil, nil
	}
	return regexp.Compile(matchFlags + expr)
}
