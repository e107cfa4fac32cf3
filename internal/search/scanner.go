package search

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/gobwas/glob"
	lru "github.com/hashicorp/golang-lru/v2"

	"diffscope/internal/types"
)

// Directories never worth searching: build output, VCS metadata, vendored
// dependencies.
var ignoreDirs = []string{
	"node_modules", "__pycache__", ".git", ".venv", "venv", "env",
	"dist", "build", "out", ".next", ".nuxt", "target",
	"vendor", ".pytest_cache", ".mypy_cache", "coverage",
}

const maxSearchFileSize = 1_000_000 // 1MB

// scanBackend is the in-process fallback used when ripgrep is missing or
// failing. It walks the tree sequentially; the file-content cache may be
// shared across sessions because entries are immutable once inserted.
type scanBackend struct {
	root         string
	contextLines int
	maxCount     int
	includes     []glob.Glob
	cache        *lru.Cache[string, []string]
}

func newScanBackend(root string, contextLines, maxCount, cacheSize int, includeGlobs []string) (*scanBackend, error) {
	cache, err := lru.New[string, []string](cacheSize)
	if err != nil {
		return nil, err
	}

	var includes []glob.Glob
	for _, pattern := range includeGlobs {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, err
		}
		includes = append(includes, g)
	}

	return &scanBackend{
		root:         root,
		contextLines: contextLines,
		maxCount:     maxCount,
		includes:     includes,
		cache:        cache,
	}, nil
}

func (b *scanBackend) Name() string {
	return "scan"
}

func (b *scanBackend) Search(ctx context.Context, pattern string) (map[string][]types.SearchMatch, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}

	results := make(map[string][]types.SearchMatch)
	total := 0

	walkErr := filepath.WalkDir(b.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			for _, ignore := range ignoreDirs {
				if d.Name() == ignore {
					return filepath.SkipDir
				}
			}
			return nil
		}
		if total >= b.maxCount {
			return filepath.SkipAll
		}
		if !b.included(d.Name()) {
			return nil
		}
		if info, err := d.Info(); err != nil || info.Size() == 0 || info.Size() > maxSearchFileSize {
			return nil
		}

		lines := b.fileLines(path)
		if lines == nil {
			return nil
		}

		rel, err := filepath.Rel(b.root, path)
		if err != nil {
			rel = path
		}
		rel = filepath.ToSlash(rel)

		for i, line := range lines {
			if !re.MatchString(line) {
				continue
			}
			lo := max(0, i-b.contextLines)
			hi := min(len(lines), i+1+b.contextLines)
			results[rel] = append(results[rel], types.SearchMatch{
				FilePath:   rel,
				LineNumber: i + 1,
				LineText:   line,
				Before:     lines[lo:i],
				After:      lines[i+1 : hi],
			})
			total++
			if total >= b.maxCount {
				break
			}
		}
		return nil
	})
	if walkErr != nil && walkErr != filepath.SkipAll {
		return results, walkErr
	}

	return results, nil
}

func (b *scanBackend) included(name string) bool {
	if len(b.includes) == 0 {
		return true
	}
	for _, g := range b.includes {
		if g.Match(name) {
			return true
		}
	}
	return false
}

// fileLines reads a file through the shared LRU cache. Cached entries are
// never mutated.
func (b *scanBackend) fileLines(path string) []string {
	if lines, ok := b.cache.Get(path); ok {
		return lines
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil
	}

	lines := strings.Split(strings.ReplaceAll(string(content), "\r\n", "\n"), "\n")
	b.cache.Add(path, lines)
	return lines
}
