package app

import (
	"context"
	"fmt"
	"time"

	"github.com/ludo-technologies/solscan/domain"
	"github.com/ludo-technologies/solscan/internal/version"
	servicepkg "github.com/ludo-technologies/solscan/service"
)

// AnalyzeUseCase orchestrates the scan of contract files on disk
type AnalyzeUseCase struct {
	service    domain.ScanService
	formatter  domain.OutputFormatter
	fileHelper *FileHelper
}

// NewAnalyzeUseCase creates a new analyze use case
func NewAnalyzeUseCase(service domain.ScanService, formatter domain.OutputFormatter) *AnalyzeUseCase {
	return &AnalyzeUseCase{
		service:    service,
		formatter:  formatter,
		fileHelper: NewFileHelper(),
	}
}

// Execute collects contract files, scans them and writes the report when an
// output writer is set. The returned response always describes the full scan.
func (uc *AnalyzeUseCase) Execute(ctx context.Context, req domain.AnalyzeRequest) (*domain.AnalyzeResponse, error) {
	if err := uc.validateRequest(req); err != nil {
		return nil, domain.NewInvalidInputError("invalid request", err)
	}

	start := time.Now()

	files, warnings, err := uc.fileHelper.CollectContractFiles(req.Paths, CollectOptions{
		Recursive:        req.Recursive,
		RespectGitignore: req.RespectGitignore,
		IncludePatterns:  req.IncludePatterns,
		ExcludePatterns:  req.ExcludePatterns,
		MinFileSize:      req.MinFileSize,
		MaxFileSize:      req.MaxFileSize,
	})
	if err != nil {
		return nil, domain.NewFileNotFoundError("failed to collect files", err)
	}
	if len(files) == 0 {
		return nil, domain.NewInvalidInputError("no Solidity files found in the specified paths", nil)
	}

	names := UniqueContractNames(files)
	contracts := make(map[string]string, len(files))
	var readErrors []string
	for _, path := range files {
		content, err := uc.fileHelper.ReadFile(path)
		if err != nil {
			readErrors = append(readErrors, fmt.Sprintf("%s: %v", path, err))
			continue
		}
		contracts[names[path]] = string(content)
	}

	results, err := uc.service.AnalyzeBatch(ctx, contracts)
	if err != nil {
		return nil, domain.NewAnalysisError("contract analysis failed", err)
	}

	reports := make([]domain.ContractReport, 0, len(files))
	for _, path := range files {
		result, ok := results[names[path]]
		if !ok {
			continue
		}
		reports = append(reports, domain.ContractReport{FilePath: path, Result: result})
	}

	response := &domain.AnalyzeResponse{
		Contracts:   reports,
		Summary:     domain.Summarize(reports),
		Warnings:    warnings,
		Errors:      readErrors,
		GeneratedAt: time.Now().Format(time.RFC3339),
		Version:     version.Version,
		DurationMs:  time.Since(start).Milliseconds(),
	}

	if req.OutputWriter != nil {
		if err := uc.Write(response, req); err != nil {
			return nil, err
		}
	}

	return response, nil
}

// Write renders response honoring the request's severity filter and sort order
func (uc *AnalyzeUseCase) Write(response *domain.AnalyzeResponse, req domain.AnalyzeRequest) error {
	view := *response
	view.Contracts = servicepkg.PrepareReports(response.Contracts, req.MinSeverity, req.SortBy)
	return uc.formatter.Write(&view, req.OutputFormat, req.OutputWriter)
}

// validateRequest validates the analyze request
func (uc *AnalyzeUseCase) validateRequest(req domain.AnalyzeRequest) error {
	if len(req.Paths) == 0 {
		return fmt.Errorf("no input paths specified")
	}
	if req.MinFileSize < 0 || req.MaxFileSize < 0 {
		return fmt.Errorf("file size bounds cannot be negative")
	}
	if req.MaxFileSize > 0 && req.MinFileSize > req.MaxFileSize {
		return fmt.Errorf("minimum file size cannot be greater than maximum file size")
	}
	return nil
}

// AnalyzeUseCaseBuilder builds an AnalyzeUseCase
type AnalyzeUseCaseBuilder struct {
	service    domain.ScanService
	formatter  domain.OutputFormatter
	fileHelper *FileHelper
}

// NewAnalyzeUseCaseBuilder creates a new builder
func NewAnalyzeUseCaseBuilder() *AnalyzeUseCaseBuilder {
	return &AnalyzeUseCaseBuilder{}
}

// WithService sets the scan service
func (b *AnalyzeUseCaseBuilder) WithService(service domain.ScanService) *AnalyzeUseCaseBuilder {
	b.service = service
	return b
}

// WithFormatter sets the output formatter
func (b *AnalyzeUseCaseBuilder) WithFormatter(formatter domain.OutputFormatter) *AnalyzeUseCaseBuilder {
	b.formatter = formatter
	return b
}

// WithFileHelper sets the file helper
func (b *AnalyzeUseCaseBuilder) WithFileHelper(fh *FileHelper) *AnalyzeUseCaseBuilder {
	b.fileHelper = fh
	return b
}

// Build creates the AnalyzeUseCase with the configured dependencies
func (b *AnalyzeUseCaseBuilder) Build() (*AnalyzeUseCase, error) {
	if b.service == nil {
		return nil, fmt.Errorf("scan service is required")
	}

	uc := &AnalyzeUseCase{
		service:    b.service,
		formatter:  b.formatter,
		fileHelper: b.fileHelper,
	}
	if uc.formatter == nil {
		uc.formatter = servicepkg.NewOutputFormatter()
	}
	if uc.fileHelper == nil {
		uc.fileHelper = NewFileHelper()
	}
	return uc, nil
}
