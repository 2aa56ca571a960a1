package service

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ludo-technologies/solscan/domain"
)

// OutputFormatterImpl implements the OutputFormatter interface
type OutputFormatterImpl struct {
	showSnippets bool
}

// NewOutputFormatter creates a new output formatter that prints snippets
func NewOutputFormatter() *OutputFormatterImpl {
	return &OutputFormatterImpl{showSnippets: true}
}

// NewOutputFormatterWithOptions creates a formatter with snippet output toggled
func NewOutputFormatterWithOptions(showSnippets bool) *OutputFormatterImpl {
	return &OutputFormatterImpl{showSnippets: showSnippets}
}

// WriteJSON writes data as JSON to the writer
func WriteJSON(writer io.Writer, data interface{}) error {
	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// WriteYAML writes data as YAML to the writer
func WriteYAML(writer io.Writer, data interface{}) error {
	encoder := yaml.NewEncoder(writer)
	encoder.SetIndent(2)
	if err := encoder.Encode(data); err != nil {
		return err
	}
	return encoder.Close()
}

// Format renders the response to a string
func (f *OutputFormatterImpl) Format(response *domain.AnalyzeResponse, format domain.OutputFormat) (string, error) {
	var buf bytes.Buffer
	if err := f.Write(response, format, &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Write writes the response in the specified format
func (f *OutputFormatterImpl) Write(response *domain.AnalyzeResponse, format domain.OutputFormat, writer io.Writer) error {
	var err error
	switch format {
	case domain.OutputFormatText, "":
		err = f.writeText(response, writer)
	case domain.OutputFormatJSON:
		err = WriteJSON(writer, response)
	case domain.OutputFormatYAML:
		err = WriteYAML(writer, response)
	case domain.OutputFormatCSV:
		err = f.writeCSV(response, writer)
	case domain.OutputFormatSARIF:
		err = WriteJSON(writer, BuildSarif(response.Contracts))
	default:
		return domain.NewUnsupportedFormatError(string(format))
	}
	if err != nil {
		return domain.NewOutputError(fmt.Sprintf("failed to write %s output", format), err)
	}
	return nil
}

// csvHeader lists the CSV columns, one row per finding
var csvHeader = []string{
	"file", "contract", "id", "rule", "name", "severity", "category",
	"line", "confidence", "cwe", "swc", "contract_risk_score",
}

func (f *OutputFormatterImpl) writeCSV(response *domain.AnalyzeResponse, writer io.Writer) error {
	w := csv.NewWriter(writer)
	if err := w.Write(csvHeader); err != nil {
		return err
	}

	for _, report := range response.Contracts {
		r := report.Result
		if r == nil || !r.Success {
			continue
		}
		risk := ""
		if r.Metrics != nil {
			risk = strconv.FormatFloat(r.Metrics.OverallRiskScore, 'f', 2, 64)
		}
		for _, v := range r.Vulnerabilities {
			row := []string{
				report.FilePath,
				r.ContractName,
				v.ID,
				v.RuleID,
				v.Name,
				string(v.Severity),
				v.Category,
				strconv.Itoa(v.LineNumber),
				strconv.FormatFloat(v.Confidence, 'f', 2, 64),
				v.CWEID,
				v.SWCID,
				risk,
			}
			if err := w.Write(row); err != nil {
				return err
			}
		}
	}

	w.Flush()
	return w.Error()
}

// writeText writes the response as a human readable report
func (f *OutputFormatterImpl) writeText(response *domain.AnalyzeResponse, writer io.Writer) error {
	fmt.Fprintf(writer, "\n=== solscan Analysis Report ===\n")
	fmt.Fprintf(writer, "Generated: %s\n", response.GeneratedAt)
	fmt.Fprintf(writer, "Duration: %dms\n", response.DurationMs)
	fmt.Fprintf(writer, "Version: %s\n\n", response.Version)

	s := response.Summary
	fmt.Fprintf(writer, "Summary:\n")
	fmt.Fprintf(writer, "  Files analyzed: %d\n", s.FilesAnalyzed)
	if s.FailedContracts > 0 {
		fmt.Fprintf(writer, "  Failed: %d\n", s.FailedContracts)
	}
	fmt.Fprintf(writer, "  Total findings: %d\n", s.TotalFindings)
	if s.RiskiestContract != "" {
		fmt.Fprintf(writer, "  Highest risk: %.2f (%s)\n", s.HighestRiskScore, s.RiskiestContract)
		fmt.Fprintf(writer, "  Average risk: %.2f\n", s.AverageRiskScore)
	}
	fmt.Fprintf(writer, "\n")

	fmt.Fprintf(writer, "Severity Distribution:\n")
	for _, sev := range domain.AllSeverities {
		fmt.Fprintf(writer, "  %-8s %d\n", string(sev)+":", s.SeverityCount[sev])
	}

	for _, report := range response.Contracts {
		f.writeContractText(report, writer)
	}

	if s.TotalFindings == 0 && s.FailedContracts == 0 {
		fmt.Fprintf(writer, "\nNo vulnerabilities found.\n")
	}

	if len(response.Warnings) > 0 {
		fmt.Fprintf(writer, "\nWarnings:\n")
		for _, w := range response.Warnings {
			fmt.Fprintf(writer, "  - %s\n", w)
		}
	}

	if len(response.Errors) > 0 {
		fmt.Fprintf(writer, "\nErrors:\n")
		for _, e := range response.Errors {
			fmt.Fprintf(writer, "  - %s\n", e)
		}
	}

	return nil
}

func (f *OutputFormatterImpl) writeContractText(report domain.ContractReport, writer io.Writer) {
	r := report.Result
	if r == nil {
		return
	}

	fmt.Fprintf(writer, "\n%s (%s)\n", report.FilePath, r.ContractName)
	if !r.Success {
		fmt.Fprintf(writer, "  FAILED: %s\n", r.Message)
		return
	}
	if r.Metrics != nil {
		fmt.Fprintf(writer, "  Risk: %.2f [%s]  Confidence: %.2f\n",
			r.Metrics.OverallRiskScore, r.Metrics.RiskLevel, r.Metrics.ModelConfidence)
	}
	if len(r.Vulnerabilities) == 0 {
		fmt.Fprintf(writer, "  No findings.\n")
		return
	}

	for _, v := range r.Vulnerabilities {
		fmt.Fprintf(writer, "  [%s] %s (line %d, confidence %.2f)\n", v.Severity, v.Name, v.LineNumber, v.Confidence)
		fmt.Fprintf(writer, "    %s\n", v.Description)
		if refs := references(v); refs != "" {
			fmt.Fprintf(writer, "    %s\n", refs)
		}
		if f.showSnippets && v.CodeSnippet != "" {
			for _, line := range strings.Split(v.CodeSnippet, "\n") {
				fmt.Fprintf(writer, "      %s\n", line)
			}
		}
		fmt.Fprintf(writer, "    Fix: %s\n", v.Recommendation)
	}
}

func references(v domain.Finding) string {
	var refs []string
	if v.CWEID != "" {
		refs = append(refs, v.CWEID)
	}
	if v.SWCID != "" {
		refs = append(refs, v.SWCID)
	}
	return strings.Join(refs, " / ")
}
