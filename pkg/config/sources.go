package config

import (
	"bufio"
	"os"
	"path/filepath"
	"sort"

	ignore "github.com/sabhiram/go-gitignore"

	"github.com/torchstack/torchlink/pkg/errors"
	"github.com/torchstack/torchlink/pkg/util/files"
)

const IgnoreFilename = ".torchlinkignore"

// ExpandSources resolves the sources globs against the project root,
// honoring .torchlinkignore. The result is sorted and deduplicated so
// a project always compiles in the same order.
func (c *Config) ExpandSources(rootDir string) ([]string, error) {
	return expandGlobs(rootDir, c.Sources)
}

// ExpandCUDASources resolves the cuda_sources globs.
func (c *Config) ExpandCUDASources(rootDir string) ([]string, error) {
	return expandGlobs(rootDir, c.CUDASources)
}

func expandGlobs(rootDir string, patterns []string) ([]string, error) {
	matcher, err := createIgnoreMatcher(rootDir)
	if err != nil {
		return nil, err
	}

	var sources []string
	seen := map[string]bool{}
	for _, pattern := range patterns {
		matches, err := filepath.Glob(filepath.Join(rootDir, pattern))
		if err != nil {
			return nil, errors.Configf("Invalid source pattern %q: %s", pattern, err)
		}
		if len(matches) == 0 {
			return nil, errors.Configf("Source pattern %q matched no files under %s", pattern, rootDir)
		}
		for _, match := range matches {
			rel, err := filepath.Rel(rootDir, match)
			if err != nil {
				return nil, err
			}
			if matcher != nil && matcher.MatchesPath(rel) {
				continue
			}
			info, err := os.Stat(match)
			if err != nil {
				return nil, err
			}
			if info.IsDir() || seen[match] {
				continue
			}
			seen[match] = true
			sources = append(sources, match)
		}
	}

	sort.Strings(sources)
	return sources, nil
}

func createIgnoreMatcher(dir string) (*ignore.GitIgnore, error) {
	ignorePath := filepath.Join(dir, IgnoreFilename)
	exists, err := files.Exists(ignorePath)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, nil
	}

	patterns, err := readIgnoreFile(ignorePath)
	if err != nil {
		return nil, err
	}
	return ignore.CompileIgnoreLines(patterns...), nil
}

func readIgnoreFile(ignorePath string) ([]string, error) {
	var patterns []string
	file, err := os.Open(ignorePath)
	if err != nil {
		return patterns, err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		patterns = append(patterns, scanner.Text())
	}
	return patterns, scanner.Err()
}
