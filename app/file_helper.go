package app

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"

	"github.com/ludo-technologies/solscan/internal/constants"
)

// CollectOptions controls contract file discovery
type CollectOptions struct {
	Recursive        bool
	RespectGitignore bool
	IncludePatterns  []string
	ExcludePatterns  []string

	// MinFileSize and MaxFileSize bound accepted files in bytes (0 = unbounded)
	MinFileSize int64
	MaxFileSize int64
}

// FileHelper provides file operation utilities
type FileHelper struct{}

// NewFileHelper creates a new FileHelper
func NewFileHelper() *FileHelper {
	return &FileHelper{}
}

// CollectContractFiles collects Solidity files from paths. Files rejected by
// the size bounds are reported as warnings rather than errors.
func (h *FileHelper) CollectContractFiles(paths []string, opts CollectOptions) ([]string, []string, error) {
	var files, warnings []string
	seen := make(map[string]bool)

	var exclude, include *ignore.GitIgnore
	if len(opts.ExcludePatterns) > 0 {
		exclude = ignore.CompileIgnoreLines(opts.ExcludePatterns...)
	}
	if len(opts.IncludePatterns) > 0 {
		include = ignore.CompileIgnoreLines(opts.IncludePatterns...)
	}

	accept := func(path string, size int64) {
		if seen[path] {
			return
		}
		if msg := sizeViolation(path, size, opts); msg != "" {
			warnings = append(warnings, msg)
			return
		}
		seen[path] = true
		files = append(files, path)
	}

	for _, root := range paths {
		info, err := os.Stat(root)
		if err != nil {
			return nil, nil, err
		}

		// Explicit files skip pattern filters but must still be contracts
		if !info.IsDir() {
			if !h.IsContractFile(root) {
				warnings = append(warnings, fmt.Sprintf("skipping %s: not a Solidity file", root))
				continue
			}
			accept(root, info.Size())
			continue
		}

		var gitignore *ignore.GitIgnore
		if opts.RespectGitignore {
			gitignore = loadGitignore(root)
		}

		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if path == root {
				return nil
			}

			rel, relErr := filepath.Rel(root, path)
			if relErr != nil {
				rel = path
			}
			rel = filepath.ToSlash(rel)

			if d.IsDir() {
				if !opts.Recursive {
					return filepath.SkipDir
				}
				if matches(exclude, rel) || matches(gitignore, rel+"/") {
					return filepath.SkipDir
				}
				return nil
			}

			if !h.IsContractFile(path) {
				return nil
			}
			if matches(exclude, rel) || matches(gitignore, rel) {
				return nil
			}
			if include != nil && !include.MatchesPath(rel) {
				return nil
			}

			fi, err := d.Info()
			if err != nil {
				return err
			}
			accept(path, fi.Size())
			return nil
		})
		if err != nil {
			return nil, nil, err
		}
	}

	sort.Strings(files)
	return files, warnings, nil
}

// IsContractFile reports whether path has the Solidity extension
func (h *FileHelper) IsContractFile(path string) bool {
	return strings.EqualFold(filepath.Ext(path), constants.SolidityExtension)
}

// FileExists checks if a file exists
func (h *FileHelper) FileExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return !info.IsDir(), nil
}

// ReadFile reads file content
func (h *FileHelper) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// ContractName derives a contract name from a file path: the base name
// without its extension
func ContractName(path string) string {
	base := filepath.Base(path)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	if name == "" {
		return constants.UnknownContractName
	}
	return name
}

// UniqueContractNames maps every path to a contract name. Paths sharing a
// base name fall back to their slash separated path without extension.
func UniqueContractNames(paths []string) map[string]string {
	counts := make(map[string]int, len(paths))
	for _, p := range paths {
		counts[ContractName(p)]++
	}

	names := make(map[string]string, len(paths))
	for _, p := range paths {
		name := ContractName(p)
		if counts[name] > 1 {
			clean := filepath.ToSlash(filepath.Clean(p))
			name = strings.TrimSuffix(clean, filepath.Ext(clean))
		}
		names[p] = name
	}
	return names
}

func sizeViolation(path string, size int64, opts CollectOptions) string {
	if opts.MaxFileSize > 0 && size > opts.MaxFileSize {
		return fmt.Sprintf("skipping %s: file size %d exceeds limit %d", path, size, opts.MaxFileSize)
	}
	if opts.MinFileSize > 0 && size < opts.MinFileSize {
		return fmt.Sprintf("skipping %s: file size %d below minimum %d", path, size, opts.MinFileSize)
	}
	return ""
}

func matches(gi *ignore.GitIgnore, rel string) bool {
	return gi != nil && gi.MatchesPath(rel)
}

// loadGitignore compiles the .gitignore at the root of a scanned directory
func loadGitignore(dir string) *ignore.GitIgnore {
	gi, err := ignore.CompileIgnoreFile(filepath.Join(dir, ".gitignore"))
	if err != nil {
		return nil
	}
	return gi
}
