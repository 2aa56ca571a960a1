package service

import (
	"path/filepath"
	"strings"

	"github.com/ludo-technologies/solscan/domain"
	"github.com/ludo-technologies/solscan/internal/constants"
	"github.com/ludo-technologies/solscan/internal/rules"
	"github.com/ludo-technologies/solscan/internal/version"
)

const (
	sarifVersion = "2.1.0"
	sarifSchema  = "https://schemastore.azurewebsites.net/schemas/json/sarif-2.1.0-rtm.5.json"
)

// SarifLog is the root of a SARIF 2.1.0 document
type SarifLog struct {
	Version string     `json:"version"`
	Schema  string     `json:"$schema"`
	Runs    []SarifRun `json:"runs"`
}

type SarifRun struct {
	Tool    SarifTool     `json:"tool"`
	Results []SarifResult `json:"results"`
}

type SarifTool struct {
	Driver SarifDriver `json:"driver"`
}

type SarifDriver struct {
	Name           string      `json:"name"`
	Version        string      `json:"version"`
	InformationURI string      `json:"informationUri,omitempty"`
	Rules          []SarifRule `json:"rules,omitempty"`
}

type SarifRule struct {
	ID               string         `json:"id"`
	Name             string         `json:"name"`
	ShortDescription SarifMessage   `json:"shortDescription"`
	Help             SarifMessage   `json:"help"`
	Properties       map[string]any `json:"properties,omitempty"`
}

type SarifResult struct {
	RuleID     string          `json:"ruleId"`
	Message    SarifMessage    `json:"message"`
	Level      string          `json:"level"` // error, warning, note
	Locations  []SarifLocation `json:"locations"`
	Properties map[string]any  `json:"properties,omitempty"`
}

type SarifMessage struct {
	Text string `json:"text"`
}

type SarifLocation struct {
	PhysicalLocation SarifPhysicalLocation `json:"physicalLocation"`
}

type SarifPhysicalLocation struct {
	ArtifactLocation SarifArtifactLocation `json:"artifactLocation"`
	Region           SarifRegion           `json:"region"`
}

type SarifArtifactLocation struct {
	URI string `json:"uri"`
}

type SarifRegion struct {
	StartLine int `json:"startLine"`
}

// BuildSarif converts contract reports into a SARIF log
func BuildSarif(reports []domain.ContractReport) SarifLog {
	results := make([]SarifResult, 0)
	for _, r := range reports {
		if r.Result == nil || !r.Result.Success {
			continue
		}
		uri := toURI(r.FilePath)
		if strings.TrimSpace(uri) == "" {
			uri = r.Result.ContractName
		}
		for _, f := range r.Result.Vulnerabilities {
			start := f.LineNumber
			if start <= 0 {
				start = 1
			}
			results = append(results, SarifResult{
				RuleID:  f.RuleID,
				Level:   severityToLevel(f.Severity),
				Message: SarifMessage{Text: strings.TrimSpace(f.Name + ": " + f.Description)},
				Locations: []SarifLocation{{
					PhysicalLocation: SarifPhysicalLocation{
						ArtifactLocation: SarifArtifactLocation{URI: uri},
						Region:           SarifRegion{StartLine: start},
					},
				}},
				Properties: map[string]any{
					"severity":   string(f.Severity),
					"confidence": f.Confidence,
					"category":   f.Category,
				},
			})
		}
	}

	return SarifLog{
		Version: sarifVersion,
		Schema:  sarifSchema,
		Runs: []SarifRun{{
			Tool: SarifTool{Driver: SarifDriver{
				Name:           constants.ToolName,
				Version:        version.Version,
				InformationURI: "https://github.com/ludo-technologies/solscan",
				Rules:          sarifRules(),
			}},
			Results: results,
		}},
	}
}

func sarifRules() []SarifRule {
	catalog := rules.All()
	out := make([]SarifRule, 0, len(catalog))
	for _, r := range catalog {
		props := map[string]any{"category": r.Category, "severity": string(r.Severity)}
		if r.CWEID != "" {
			props["cwe"] = r.CWEID
		}
		if r.SWCID != "" {
			props["swc"] = r.SWCID
		}
		out = append(out, SarifRule{
			ID:               r.ID,
			Name:             r.Name,
			ShortDescription: SarifMessage{Text: r.Description},
			Help:             SarifMessage{Text: r.Recommendation},
			Properties:       props,
		})
	}
	return out
}

func severityToLevel(s domain.Severity) string {
	switch s {
	case domain.SeverityCritical, domain.SeverityHigh:
		return "error"
	case domain.SeverityMedium:
		return "warning"
	default:
		return "note"
	}
}

func toURI(path string) string {
	if path == "" {
		return ""
	}
	return filepath.ToSlash(filepath.Clean(path))
}
