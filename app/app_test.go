package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ludo-technologies/solscan/domain"
	"github.com/ludo-technologies/solscan/internal/analyzer"
	"github.com/ludo-technologies/solscan/internal/testutil"
	"github.com/ludo-technologies/solscan/service"
)

func defaultCollectOptions() CollectOptions {
	return CollectOptions{
		Recursive:        true,
		RespectGitignore: true,
		IncludePatterns:  []string{"**/*.sol"},
		ExcludePatterns:  []string{"node_modules", "lib"},
		MinFileSize:      10,
		MaxFileSize:      1024,
	}
}

func TestFileHelperCollectContractFiles(t *testing.T) {
	tempDir := t.TempDir()

	testutil.WriteContract(t, tempDir, "Token.sol", testutil.CleanContract)
	testutil.WriteContract(t, tempDir, "nested/Vault.sol", testutil.CleanContract)
	testutil.WriteContract(t, tempDir, "README.md", "# contracts here")
	testutil.WriteContract(t, tempDir, "node_modules/dep/Dep.sol", testutil.CleanContract)
	testutil.WriteContract(t, tempDir, "lib/forge-std/Test.sol", testutil.CleanContract)

	files, warnings, err := NewFileHelper().CollectContractFiles([]string{tempDir}, defaultCollectOptions())
	if err != nil {
		t.Fatalf("CollectContractFiles failed: %v", err)
	}
	if len(warnings) != 0 {
		t.Errorf("unexpected warnings: %v", warnings)
	}

	want := []string{
		filepath.Join(tempDir, "Token.sol"),
		filepath.Join(tempDir, "nested", "Vault.sol"),
	}
	if strings.Join(files, ",") != strings.Join(want, ",") {
		t.Errorf("files = %v, want %v", files, want)
	}
}

func TestFileHelperNonRecursive(t *testing.T) {
	tempDir := t.TempDir()
	testutil.WriteContract(t, tempDir, "Token.sol", testutil.CleanContract)
	testutil.WriteContract(t, tempDir, "nested/Vault.sol", testutil.CleanContract)

	opts := defaultCollectOptions()
	opts.Recursive = false

	files, _, err := NewFileHelper().CollectContractFiles([]string{tempDir}, opts)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, 1, len(files))
}

func TestFileHelperRespectsGitignore(t *testing.T) {
	tempDir := t.TempDir()
	testutil.WriteContract(t, tempDir, ".gitignore", "generated/\nMock*.sol\n")
	testutil.WriteContract(t, tempDir, "Token.sol", testutil.CleanContract)
	testutil.WriteContract(t, tempDir, "MockToken.sol", testutil.CleanContract)
	testutil.WriteContract(t, tempDir, "generated/Out.sol", testutil.CleanContract)

	files, _, err := NewFileHelper().CollectContractFiles([]string{tempDir}, defaultCollectOptions())
	testutil.AssertNoError(t, err)
	if len(files) != 1 || filepath.Base(files[0]) != "Token.sol" {
		t.Errorf("expected only Token.sol, got %v", files)
	}

	opts := defaultCollectOptions()
	opts.RespectGitignore = false
	files, _, err = NewFileHelper().CollectContractFiles([]string{tempDir}, opts)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, 3, len(files))
}

func TestFileHelperSizeBounds(t *testing.T) {
	tempDir := t.TempDir()
	testutil.WriteContract(t, tempDir, "Tiny.sol", "x")
	testutil.WriteContract(t, tempDir, "Huge.sol", strings.Repeat("uint a;\n", 500))
	testutil.WriteContract(t, tempDir, "Ok.sol", testutil.CleanContract)

	files, warnings, err := NewFileHelper().CollectContractFiles([]string{tempDir}, defaultCollectOptions())
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, 1, len(files))
	testutil.AssertEqual(t, 2, len(warnings))
}

func TestFileHelperExplicitFiles(t *testing.T) {
	tempDir := t.TempDir()
	sol := testutil.WriteContract(t, tempDir, "lib/Direct.sol", testutil.CleanContract)
	txt := testutil.WriteContract(t, tempDir, "notes.txt", "not a contract")

	files, warnings, err := NewFileHelper().CollectContractFiles([]string{sol, txt, sol}, defaultCollectOptions())
	testutil.AssertNoError(t, err)

	// explicit files bypass exclude patterns and are deduplicated
	testutil.AssertEqual(t, 1, len(files))
	testutil.AssertEqual(t, 1, len(warnings))
}

func TestFileHelperMissingPath(t *testing.T) {
	_, _, err := NewFileHelper().CollectContractFiles([]string{"/nonexistent/contracts"}, defaultCollectOptions())
	testutil.AssertError(t, err)
}

func TestFileHelperIsContractFile(t *testing.T) {
	helper := NewFileHelper()

	tests := []struct {
		path     string
		expected bool
	}{
		{"Token.sol", true},
		{"Token.SOL", true},
		{"dir/Token.sol", true},
		{"Token.vy", false},
		{"Token.sol.bak", false},
		{"Token", false},
	}

	for _, tt := range tests {
		if got := helper.IsContractFile(tt.path); got != tt.expected {
			t.Errorf("IsContractFile(%s) = %v, expected %v", tt.path, got, tt.expected)
		}
	}
}

func TestFileHelperFileExists(t *testing.T) {
	helper := NewFileHelper()
	path := testutil.WriteContract(t, t.TempDir(), "A.sol", testutil.CleanContract)

	exists, err := helper.FileExists(path)
	testutil.AssertNoError(t, err)
	testutil.AssertTrue(t, exists, "expected file to exist")

	exists, err = helper.FileExists("/nonexistent/A.sol")
	testutil.AssertNoError(t, err)
	testutil.AssertFalse(t, exists, "expected file to not exist")

	exists, err = helper.FileExists(filepath.Dir(path))
	testutil.AssertNoError(t, err)
	testutil.AssertFalse(t, exists, "directories are not files")
}

func TestContractNames(t *testing.T) {
	testutil.AssertEqual(t, "Token", ContractName("contracts/Token.sol"))
	testutil.AssertEqual(t, "Unknown", ContractName(".sol"))

	names := UniqueContractNames([]string{"a/Token.sol", "b/Token.sol", "Vault.sol"})
	testutil.AssertEqual(t, "a/Token", names["a/Token.sol"])
	testutil.AssertEqual(t, "b/Token", names["b/Token.sol"])
	testutil.AssertEqual(t, "Vault", names["Vault.sol"])
}

func newUseCase(t *testing.T) *AnalyzeUseCase {
	t.Helper()
	uc, err := NewAnalyzeUseCaseBuilder().
		WithService(service.NewScanService(analyzer.NewDefaultScanner())).
		Build()
	testutil.AssertNoError(t, err)
	return uc
}

func analyzeRequest(paths ...string) domain.AnalyzeRequest {
	opts := defaultCollectOptions()
	return domain.AnalyzeRequest{
		Paths:            paths,
		OutputFormat:     domain.OutputFormatJSON,
		SortBy:           domain.SortByRule,
		MinSeverity:      domain.SeverityInfo,
		Recursive:        opts.Recursive,
		RespectGitignore: opts.RespectGitignore,
		IncludePatterns:  opts.IncludePatterns,
		ExcludePatterns:  opts.ExcludePatterns,
		MinFileSize:      opts.MinFileSize,
		MaxFileSize:      opts.MaxFileSize,
	}
}

func TestAnalyzeUseCase_Execute(t *testing.T) {
	tempDir := t.TempDir()
	testutil.WriteContract(t, tempDir, "VulnerableBank.sol", testutil.VulnerableBank)
	testutil.WriteContract(t, tempDir, "Clean.sol", testutil.CleanContract)

	var buf bytes.Buffer
	req := analyzeRequest(tempDir)
	req.OutputWriter = &buf

	response, err := newUseCase(t).Execute(context.Background(), req)
	testutil.AssertNoError(t, err)

	testutil.AssertEqual(t, 2, len(response.Contracts))
	testutil.AssertEqual(t, 2, response.Summary.FilesAnalyzed)
	testutil.AssertEqual(t, "VulnerableBank", response.Summary.RiskiestContract)

	// reports follow sorted file order
	testutil.AssertEqual(t, "Clean", response.Contracts[0].Result.ContractName)
	bank := response.Contracts[1].Result
	testutil.AssertTrue(t, testutil.HasRule(bank.Vulnerabilities, "tx_origin"), "expected tx_origin")
	testutil.AssertEqual(t, "VulnerableBank-reentrancy-1", bank.Vulnerabilities[0].ID)

	var decoded domain.AnalyzeResponse
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	testutil.AssertEqual(t, 2, len(decoded.Contracts))
}

func TestAnalyzeUseCase_FilterOnlyAffectsOutput(t *testing.T) {
	tempDir := t.TempDir()
	testutil.WriteContract(t, tempDir, "VulnerableBank.sol", testutil.VulnerableBank)

	var buf bytes.Buffer
	req := analyzeRequest(tempDir)
	req.OutputWriter = &buf
	req.MinSeverity = domain.SeverityCritical

	response, err := newUseCase(t).Execute(context.Background(), req)
	testutil.AssertNoError(t, err)

	full := response.Contracts[0].Result.Vulnerabilities
	testutil.AssertTrue(t, testutil.HasRule(full, "floating_pragma"), "response keeps every finding")

	var decoded domain.AnalyzeResponse
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	for _, f := range decoded.Contracts[0].Result.Vulnerabilities {
		if f.Severity != domain.SeverityCritical {
			t.Errorf("output should only contain CRITICAL findings, got %s", f.Severity)
		}
	}
}

func TestAnalyzeUseCase_NoFiles(t *testing.T) {
	tempDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(tempDir, "notes.txt"), []byte("nothing"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := newUseCase(t).Execute(context.Background(), analyzeRequest(tempDir))
	var domainErr domain.DomainError
	if !errors.As(err, &domainErr) || domainErr.Code != domain.ErrCodeInvalidInput {
		t.Errorf("expected invalid input error, got %v", err)
	}
}

func TestAnalyzeUseCase_NoPaths(t *testing.T) {
	_, err := newUseCase(t).Execute(context.Background(), analyzeRequest())
	testutil.AssertError(t, err)
}

func TestAnalyzeUseCaseBuilder_RequiresService(t *testing.T) {
	_, err := NewAnalyzeUseCaseBuilder().Build()
	testutil.AssertError(t, err)
}
