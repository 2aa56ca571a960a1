package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ludo-technologies/solscan/domain"
	"github.com/ludo-technologies/solscan/internal/config"
	"github.com/ludo-technologies/solscan/internal/logging"
	"github.com/ludo-technologies/solscan/service"
)

func rulesCmd() *cobra.Command {
	var (
		format     string
		jsonOutput bool
		configPath string
	)

	cmd := &cobra.Command{
		Use:   "rules",
		Short: "List the vulnerability rules",
		Long: `List the rules that solscan runs, in scan order.

Rules disabled through analysis.disabled_rules are not listed.

Examples:
  solscan rules
  solscan rules --json
  solscan rules --format yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if jsonOutput {
				format = string(domain.OutputFormatJSON)
			}
			return runRules(cmd.OutOrStdout(), configPath, format)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "text",
		"Output format: text, json, yaml")
	cmd.Flags().BoolVar(&jsonOutput, "json", false,
		"Output rules as JSON (shorthand for --format json)")
	cmd.Flags().StringVarP(&configPath, "config", "c", "",
		"Path to config file")

	return cmd
}

func runRules(w io.Writer, configPath, format string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	svc, err := service.NewScanServiceFromConfig(cfg, service.WithLogger(logging.Nop()))
	if err != nil {
		return err
	}
	rules := svc.ListRules()

	switch domain.OutputFormat(format) {
	case domain.OutputFormatJSON:
		return service.WriteJSON(w, rules)
	case domain.OutputFormatYAML:
		return service.WriteYAML(w, rules)
	case domain.OutputFormatText, "":
		return writeRulesTable(w, rules)
	default:
		return domain.NewUnsupportedFormatError(format)
	}
}

func writeRulesTable(w io.Writer, rules []domain.RuleInfo) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSEVERITY\tCATEGORY\tCWE\tSWC\tNAME")
	for _, r := range rules {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", r.ID, r.Severity, r.Category, r.CWEID, r.SWCID, r.Name)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "\n%d rules\n", len(rules))
	return err
}
