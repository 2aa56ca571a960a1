package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"

	"github.com/ludo-technologies/solscan/domain"
	"github.com/ludo-technologies/solscan/internal/analyzer"
	"github.com/ludo-technologies/solscan/internal/config"
	"github.com/ludo-technologies/solscan/internal/constants"
	"github.com/ludo-technologies/solscan/internal/logging"
)

// Batch entry messages
const (
	MsgNoContractCode   = "No contract code provided"
	MsgAnalysisComplete = "Analysis completed. Found %d potential vulnerabilities."
)

// ErrHistoryDisabled is returned by History when no result store is configured
var ErrHistoryDisabled = errors.New("history storage is not configured")

// ScanServiceImpl implements domain.ScanService
type ScanServiceImpl struct {
	scanner  *analyzer.Scanner
	perf     config.PerformanceConfig
	store    domain.ResultStore
	progress domain.ProgressManager
	logger   *zap.Logger
}

// ScanServiceOption customizes a ScanServiceImpl
type ScanServiceOption func(*ScanServiceImpl)

// WithStore persists every successful result
func WithStore(store domain.ResultStore) ScanServiceOption {
	return func(s *ScanServiceImpl) { s.store = store }
}

// WithLogger sets the service logger
func WithLogger(logger *zap.Logger) ScanServiceOption {
	return func(s *ScanServiceImpl) { s.logger = logging.OrNop(logger) }
}

// WithProgress reports batch progress
func WithProgress(pm domain.ProgressManager) ScanServiceOption {
	return func(s *ScanServiceImpl) { s.progress = pm }
}

// WithPerformance sets batch concurrency limits
func WithPerformance(perf config.PerformanceConfig) ScanServiceOption {
	return func(s *ScanServiceImpl) { s.perf = perf }
}

// NewScanService creates a scan service around a scanner
func NewScanService(scanner *analyzer.Scanner, opts ...ScanServiceOption) *ScanServiceImpl {
	s := &ScanServiceImpl{
		scanner: scanner,
		perf:    config.DefaultConfig().Performance,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewScanServiceFromConfig builds the scanner from the analysis section of cfg
func NewScanServiceFromConfig(cfg *config.Config, opts ...ScanServiceOption) (*ScanServiceImpl, error) {
	scanner, err := analyzer.NewScanner(ScannerOptionsFromConfig(&cfg.Analysis))
	if err != nil {
		return nil, domain.NewConfigError("invalid analysis configuration", err)
	}
	opts = append([]ScanServiceOption{WithPerformance(cfg.Performance)}, opts...)
	return NewScanService(scanner, opts...), nil
}

// ScannerOptionsFromConfig maps analysis configuration onto scanner options
func ScannerOptionsFromConfig(cfg *config.AnalysisConfig) analyzer.ScannerOptions {
	return analyzer.ScannerOptions{
		ContextLines:     cfg.ContextLines,
		QualityScore:     cfg.QualityScore,
		MitigationWindow: cfg.MitigationWindow,
		DisabledRules:    cfg.DisabledRules,
	}
}

// SourceHash returns the keccak-256 hash of contract source as 0x-prefixed hex
func SourceHash(contractCode string) string {
	return crypto.Keccak256Hash([]byte(contractCode)).Hex()
}

// Analyze scans a single contract
func (s *ScanServiceImpl) Analyze(ctx context.Context, contractCode, contractName string) (result *domain.AnalysisResult, err error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.NewAnalysisError("analysis cancelled", err)
	}
	if contractCode == "" {
		return nil, domain.NewInvalidInputError("contract code is required", nil)
	}
	if contractName == "" {
		contractName = constants.UnknownContractName
	}

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("scan panicked", zap.String("contract", contractName), zap.Any("panic", r))
			result = nil
			err = domain.NewAnalysisError(fmt.Sprintf("scan of %s panicked", contractName), PanicError{Value: r})
		}
	}()

	start := time.Now()
	findings := s.scanner.Scan(contractCode, contractName)
	metrics := analyzer.Aggregate(findings)
	elapsed := time.Since(start)

	result = &domain.AnalysisResult{
		Success:          true,
		Message:          fmt.Sprintf(MsgAnalysisComplete, len(findings)),
		ContractName:     contractName,
		SourceHash:       SourceHash(contractCode),
		Vulnerabilities:  findings,
		Metrics:          &metrics,
		ProcessingTimeMs: elapsed.Milliseconds(),
	}

	s.logger.Debug("contract analyzed",
		zap.String("contract", contractName),
		zap.Int("findings", len(findings)),
		zap.Float64("risk_score", metrics.OverallRiskScore),
		zap.Duration("duration", elapsed),
	)

	if s.store != nil {
		if err := s.store.Save(ctx, result); err != nil {
			// persistence is best effort; the scan itself succeeded
			s.logger.Warn("failed to store result", zap.String("contract", contractName), zap.Error(err))
		}
	}

	return result, nil
}

// AnalyzeBatch scans independent contracts concurrently. Every input name gets
// an entry; a failing contract never affects its siblings.
func (s *ScanServiceImpl) AnalyzeBatch(ctx context.Context, contracts map[string]string) (map[string]*domain.AnalysisResult, error) {
	results := make(map[string]*domain.AnalysisResult, len(contracts))
	var mu sync.Mutex

	names := make([]string, 0, len(contracts))
	for name := range contracts {
		names = append(names, name)
	}
	sort.Strings(names)

	tasks := make([]domain.ExecutableTask, 0, len(names))
	for _, name := range names {
		code := contracts[name]
		if code == "" {
			results[name] = domain.FailedResult(name, MsgNoContractCode)
			continue
		}
		tasks = append(tasks, &scanTask{
			name: name,
			code: code,
			run: func(ctx context.Context, code, name string) error {
				result, err := s.Analyze(ctx, code, name)
				if err != nil {
					return err
				}
				mu.Lock()
				results[name] = result
				mu.Unlock()
				return nil
			},
		})
	}

	executor := NewParallelExecutorFromConfig(&s.perf)
	if s.progress != nil {
		executor = NewParallelExecutorWithProgress(&s.perf, s.progress)
	}
	executor.SetLabel(fmt.Sprintf("Scanning %d contracts", len(tasks)))

	err := executor.Execute(ctx, tasks)

	var aggErr *AggregatedError
	if err != nil && !errors.As(err, &aggErr) {
		return nil, domain.NewAnalysisError("batch analysis failed", err)
	}
	if aggErr != nil {
		for _, te := range aggErr.Errors {
			s.logger.Warn("contract analysis failed", zap.String("contract", te.TaskName), zap.Error(te.Err))
			results[te.TaskName] = domain.FailedResult(te.TaskName, "Analysis failed: "+te.Err.Error())
		}
	}

	s.logger.Info("batch analyzed", zap.Int("contracts", len(contracts)), zap.Int("failed", countFailed(results)))
	return results, nil
}

// ListRules returns the rules this service runs, in scan order
func (s *ScanServiceImpl) ListRules() []domain.RuleInfo {
	active := s.scanner.Rules()
	infos := make([]domain.RuleInfo, 0, len(active))
	for _, r := range active {
		infos = append(infos, r.Info())
	}
	return infos
}

// HistoryEnabled reports whether results are persisted
func (s *ScanServiceImpl) HistoryEnabled() bool {
	return s.store != nil
}

// History returns stored results, newest first
func (s *ScanServiceImpl) History(ctx context.Context, contractName string, limit int) ([]domain.ScanRecord, error) {
	if s.store == nil {
		return nil, ErrHistoryDisabled
	}
	records, err := s.store.History(ctx, contractName, limit)
	if err != nil {
		return nil, domain.NewStorageError("failed to load history", err)
	}
	return records, nil
}

func countFailed(results map[string]*domain.AnalysisResult) int {
	n := 0
	for _, r := range results {
		if !r.Success {
			n++
		}
	}
	return n
}

// scanTask adapts one batch entry to the parallel executor
type scanTask struct {
	name string
	code string
	run  func(ctx context.Context, code, name string) error
}

func (t *scanTask) Name() string { return t.name }

func (t *scanTask) IsEnabled() bool { return true }

func (t *scanTask) Execute(ctx context.Context) (interface{}, error) {
	return nil, t.run(ctx, t.code, t.name)
}
