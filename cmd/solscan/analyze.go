package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ludo-technologies/solscan/app"
	"github.com/ludo-technologies/solscan/domain"
	"github.com/ludo-technologies/solscan/internal/config"
	"github.com/ludo-technologies/solscan/internal/logging"
	"github.com/ludo-technologies/solscan/service"
)

type analyzeOptions struct {
	format      string
	jsonOutput  bool
	outputPath  string
	configPath  string
	minSeverity string
	sortBy      string
	noSnippets  bool
	verbose     bool
}

func analyzeCmd() *cobra.Command {
	opts := &analyzeOptions{}

	cmd := &cobra.Command{
		Use:   "analyze [path...]",
		Short: "Scan Solidity contracts for vulnerabilities",
		Long: `Scan Solidity files for known vulnerability patterns.

Each .sol file is analyzed as one contract named after the file.

Examples:
  solscan analyze contracts/
  solscan analyze --format sarif -o solscan.sarif .
  solscan analyze --min-severity HIGH --sort severity src/
  solscan analyze --json Token.sol`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.format, "format", "f", "text",
		"Output format: text, json, yaml, csv, sarif")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false,
		"Output results as JSON (shorthand for --format json)")
	cmd.Flags().StringVarP(&opts.outputPath, "output", "o", "",
		"Write the report to a file instead of stdout")
	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "",
		"Path to config file")
	cmd.Flags().StringVar(&opts.minSeverity, "min-severity", "INFO",
		"Hide findings below this severity: CRITICAL, HIGH, MEDIUM, LOW, INFO")
	cmd.Flags().StringVar(&opts.sortBy, "sort", "rule",
		"Finding order: rule, line, severity")
	cmd.Flags().BoolVar(&opts.noSnippets, "no-snippets", false,
		"Omit code snippets from text output")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false,
		"Enable debug logging")

	return cmd
}

func runAnalyze(cmd *cobra.Command, args []string, opts *analyzeOptions) error {
	if len(args) == 0 {
		return fmt.Errorf("no paths specified")
	}

	cfg, err := config.LoadConfigWithTarget(opts.configPath, args[0])
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := applyAnalyzeFlags(cmd, cfg, opts); err != nil {
		return err
	}

	logger, err := logging.New(opts.verbose)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	// Progress bars only make sense next to the human report
	pm := service.NewProgressManager(cfg.Output.Format == string(domain.OutputFormatText))
	defer pm.Close()

	ctx := cmd.Context()
	svc, cleanup, err := newScanService(ctx, cfg, logger, pm)
	if err != nil {
		return err
	}
	defer cleanup()

	req := service.RequestFromConfig(cfg)
	req.Paths = args
	req.ConfigPath = opts.configPath
	if err := service.NewConfigurationLoader().ValidateConfig(req); err != nil {
		return err
	}

	var out io.Writer = cmd.OutOrStdout()
	if opts.outputPath != "" {
		file, err := os.Create(opts.outputPath)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer file.Close()
		out = file
	}
	req.OutputWriter = out

	useCase, err := app.NewAnalyzeUseCaseBuilder().
		WithService(svc).
		WithFormatter(service.NewOutputFormatterWithOptions(cfg.Output.ShowSnippets)).
		Build()
	if err != nil {
		return err
	}

	response, err := useCase.Execute(ctx, *req)
	if err != nil {
		return err
	}

	logger.Debug("analysis finished",
		zap.Int("files", response.Summary.FilesAnalyzed),
		zap.Int("findings", response.Summary.TotalFindings),
		zap.Int64("duration_ms", response.DurationMs),
	)

	if opts.outputPath != "" {
		displayPath := opts.outputPath
		if absPath, err := filepath.Abs(opts.outputPath); err == nil {
			displayPath = absPath
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Report saved to: %s\n", displayPath)
	}

	return nil
}

// applyAnalyzeFlags overrides configuration values with flags set on the command line
func applyAnalyzeFlags(cmd *cobra.Command, cfg *config.Config, opts *analyzeOptions) error {
	flags := cmd.Flags()
	if flags.Changed("format") {
		cfg.Output.Format = opts.format
	}
	if opts.jsonOutput {
		cfg.Output.Format = string(domain.OutputFormatJSON)
	}
	if flags.Changed("min-severity") {
		severity, err := domain.ParseSeverity(opts.minSeverity)
		if err != nil {
			return err
		}
		cfg.Output.MinSeverity = string(severity)
	}
	if flags.Changed("sort") {
		cfg.Output.SortBy = opts.sortBy
	}
	if opts.noSnippets {
		cfg.Output.ShowSnippets = false
	}
	return cfg.Validate()
}
