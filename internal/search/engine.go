package search

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"diffscope/internal/types"
)

// Backend is a line-oriented search over the working tree. Any backend
// honoring the ignore-directory list and the file-size ceiling is
// substitutable.
type Backend interface {
	Search(ctx context.Context, pattern string) (map[string][]types.SearchMatch, error)
	Name() string
}

// Options bound one engine's breadth and resource usage. The per-query
// caps come from the active size tier.
type Options struct {
	MaxFilesPerQuery  int
	MaxMatchesPerFile int
	MaxResults        int
	ContextLines      int
	Workers           int
	QueryTimeout      time.Duration
	CacheSize         int
	IncludeGlobs      []string
}

func (o *Options) applyDefaults() {
	if o.MaxFilesPerQuery <= 0 {
		o.MaxFilesPerQuery = 20
	}
	if o.MaxMatchesPerFile <= 0 {
		o.MaxMatchesPerFile = 4
	}
	if o.MaxResults <= 0 {
		o.MaxResults = 300
	}
	if o.ContextLines <= 0 {
		o.ContextLines = 2
	}
	if o.Workers <= 0 {
		o.Workers = 4
	}
	if o.QueryTimeout <= 0 {
		o.QueryTimeout = 30 * time.Second
	}
	if o.CacheSize <= 0 {
		o.CacheSize = 100
	}
	if len(o.IncludeGlobs) == 0 {
		o.IncludeGlobs = []string{
			"*.go", "*.py", "*.java", "*.ts", "*.tsx", "*.js",
			"*.c", "*.h", "*.cpp", "*.cs", "*.rb", "*.rs", "*.php",
		}
	}
}

// Engine generates per-kind search patterns and runs them against the
// preferred backend, falling back to the in-process scanner when ripgrep
// is unavailable or erroring.
type Engine struct {
	rg     Backend
	scan   Backend
	scanMu sync.Mutex
	opts   Options
	log    *slog.Logger
}

func NewEngine(root string, opts Options, log *slog.Logger) (*Engine, error) {
	opts.applyDefaults()
	if log == nil {
		log = slog.Default()
	}

	scan, err := newScanBackend(root, opts.ContextLines, opts.MaxResults, opts.CacheSize, opts.IncludeGlobs)
	if err != nil {
		return nil, err
	}

	engine := &Engine{
		scan: scan,
		opts: opts,
		log:  log,
	}
	if rgAvailable() {
		engine.rg = newRipgrepBackend(root, opts.ContextLines, opts.MaxResults, opts.IncludeGlobs)
	} else {
		log.Debug("ripgrep not found, using in-process scanner")
	}

	return engine, nil
}

// Search locates usages of one symbol. Results are capped by the
// configured breadth and ordered by file path then line number. Failures
// degrade to an empty result, never an error.
func (e *Engine) Search(ctx context.Context, query types.SymbolQuery) map[string][]types.SearchMatch {
	merged := make(map[string][]types.SearchMatch)

	for _, pattern := range Patterns(query) {
		results := e.runPattern(ctx, pattern)
		for file, matches := range results {
			merged[file] = append(merged[file], matches...)
		}
	}

	return e.cap(merged)
}

// Batch runs several independent queries. With the external backend each
// query may be dispatched concurrently up to the worker bound; the
// fallback scanner runs them sequentially to avoid duplicate concurrent
// reads of the same files. Each query writes a distinct key, so
// completion order never changes the resulting map.
func (e *Engine) Batch(ctx context.Context, queries []types.SymbolQuery) map[string]map[string][]types.SearchMatch {
	results := make(map[string]map[string][]types.SearchMatch, len(queries))

	if e.rg == nil {
		for _, q := range queries {
			results[q.Name] = e.Search(ctx, q)
		}
		return results
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := make(chan struct{}, e.opts.Workers)

	for _, q := range queries {
		wg.Add(1)
		go func(q types.SymbolQuery) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			found := e.Search(ctx, q)
			mu.Lock()
			results[q.Name] = found
			mu.Unlock()
		}(q)
	}
	wg.Wait()

	return results
}

func (e *Engine) runPattern(ctx context.Context, pattern string) map[string][]types.SearchMatch {
	queryCtx, cancel := context.WithTimeout(ctx, e.opts.QueryTimeout)
	defer cancel()

	if e.rg != nil {
		results, err := e.rg.Search(queryCtx, pattern)
		if err == nil {
			return results
		}
		e.log.Warn("ripgrep query failed, falling back to scanner",
			"pattern", pattern, "error", err)
	}

	// Scans are serialized even when reached from the Batch fan-out, so
	// two queries never walk the tree at the same time.
	e.scanMu.Lock()
	results, err := e.scan.Search(queryCtx, pattern)
	e.scanMu.Unlock()
	if err != nil {
		// A timed-out or failing query yields zero matches for that
		// query only.
		e.log.Warn("scan query abandoned", "pattern", pattern, "error", err)
		return nil
	}
	return results
}

// cap dedupes per-line matches and applies the breadth limits in
// deterministic path-then-line order.
func (e *Engine) cap(merged map[string][]types.SearchMatch) map[string][]types.SearchMatch {
	paths := make([]string, 0, len(merged))
	for path := range merged {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	capped := make(map[string][]types.SearchMatch)
	for _, path := range paths {
		if len(capped) >= e.opts.MaxFilesPerQuery {
			break
		}

		matches := merged[path]
		sort.SliceStable(matches, func(i, j int) bool {
			return matches[i].LineNumber < matches[j].LineNumber
		})

		seen := make(map[int]bool)
		var unique []types.SearchMatch
		for _, m := range matches {
			if seen[m.LineNumber] {
				continue
			}
			seen[m.LineNumber] = true
			unique = append(unique, m)
			if len(unique) >= e.opts.MaxMatchesPerFile {
				break
			}
		}
		capped[path] = unique
	}

	return capped
}
