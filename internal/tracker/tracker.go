package tracker

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"diffscope/internal/oracle"
	"diffscope/internal/parser"
	"diffscope/internal/types"
	"diffscope/pkg/config"
)

// Searcher locates usages for a batch of symbol queries. Results are
// keyed by symbol name, then file path.
type Searcher interface {
	Batch(ctx context.Context, queries []types.SymbolQuery) map[string]map[string][]types.SearchMatch
}

// Extractor returns the code block around one search match.
type Extractor interface {
	Extract(filePath string, lineNumber int, defs []types.Definition) *types.Snippet
}

const maxSnippetsPerSymbol = 3

// Session drives one review unit through the impact analysis loop: seed
// structural evidence, ask the oracle, gather what it requests, repeat
// until a conclusion or the iteration ceiling. All state is exclusively
// owned; the loop is strictly sequential.
type Session struct {
	unit      types.SubmissionUnit
	decider   oracle.Oracle
	searcher  Searcher
	extractor Extractor
	index     *parser.Index
	params    config.TierParams
	log       *slog.Logger

	iterationCount int
	impactChain    []types.ImpactChainEntry
	collected      types.CollectedContext
}

func NewSession(unit types.SubmissionUnit, decider oracle.Oracle, searcher Searcher, extractor Extractor, index *parser.Index, params config.TierParams, log *slog.Logger) *Session {
	if log == nil {
		log = slog.Default()
	}
	return &Session{
		unit:      unit,
		decider:   decider,
		searcher:  searcher,
		extractor: extractor,
		index:     index,
		params:    params,
		log:       log,
		collected: make(types.CollectedContext),
	}
}

// Run executes the session to completion. It always returns a
// conclusion; oracle failures and the iteration ceiling degrade to a
// synthesized non-blocking verdict instead of an error.
func (s *Session) Run(ctx context.Context) *types.Conclusion {
	summary := s.index.SummarizeFiles(s.unit.Files, s.params.MaxIndexFiles)
	s.log.Info("session started",
		"unit", s.unit.Title, "files", len(s.unit.Files), "ceiling", s.params.MaxIterations)

	for {
		if s.iterationCount >= s.params.MaxIterations {
			s.log.Warn("iteration ceiling reached", "iterations", s.iterationCount)
			return s.synthesize("depth limit reached, undiscovered impact possible",
				"analysis stopped at the iteration ceiling before the oracle concluded")
		}

		action, err := s.decider.Decide(ctx, oracle.Evidence{
			DiffText:          s.unit.DiffText,
			StructuralSummary: summary,
			Collected:         s.collected,
			Iteration:         s.iterationCount,
			MaxIterations:     s.params.MaxIterations,
		})
		if err != nil {
			s.log.Warn("oracle decision failed", "error", err)
			return s.synthesize(fmt.Sprintf("oracle decision failed: %v", err),
				"analysis ended without a full verdict")
		}

		switch act := action.(type) {
		case oracle.Verdict:
			result := act.Result
			result.TotalIterations = s.iterationCount
			result.ImpactChainDepth = len(s.impactChain)
			s.log.Info("session concluded",
				"iterations", result.TotalIterations, "critical", result.HasCriticalIssues)
			return &result

		case oracle.RequestContext:
			if !act.HasActionableItems() {
				s.log.Warn("degenerate oracle request", "items", len(act.Items))
				return s.synthesize("oracle issued no actionable search items",
					"analysis ended on a degenerate evidence request")
			}
			s.gather(ctx, act)
		}
	}
}

// gather runs one evidence-collection round. Symbols already collected
// are never re-fetched; their entries are served from the cache.
func (s *Session) gather(ctx context.Context, req oracle.RequestContext) {
	var fresh []types.SymbolQuery
	seen := make(map[string]bool)
	for _, item := range req.Items {
		name := strings.TrimSpace(item.Name)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		if _, ok := s.collected[name]; ok {
			s.log.Debug("symbol already collected, skipping", "symbol", name)
			continue
		}
		item.Name = name
		fresh = append(fresh, item)
	}

	if len(fresh) > 0 {
		results := s.searcher.Batch(ctx, fresh)
		for _, query := range fresh {
			s.collected[query.Name] = s.buildEntry(query, results[query.Name])
		}
	}

	s.iterationCount++
	s.impactChain = append(s.impactChain, types.ImpactChainEntry{
		Iteration: s.iterationCount,
		Requested: req.Items,
		Note:      req.Note,
	})
	s.log.Info("evidence round complete",
		"iteration", s.iterationCount, "requested", len(req.Items), "fetched", len(fresh))
}

func (s *Session) buildEntry(query types.SymbolQuery, byFile map[string][]types.SearchMatch) *types.EvidenceEntry {
	entry := &types.EvidenceEntry{
		Kind:          query.Kind,
		Reason:        query.Reason,
		SampleMatches: make(map[string][]string),
		Status:        "not_found",
	}
	if len(byFile) == 0 {
		return entry
	}
	entry.Status = "found"

	files := make([]string, 0, len(byFile))
	for f := range byFile {
		files = append(files, f)
	}
	sort.Strings(files)

	for _, f := range files {
		matches := byFile[f]
		entry.UsedInFiles = append(entry.UsedInFiles, f)
		entry.UsageCount += len(matches)
		for _, m := range matches {
			entry.SampleMatches[f] = append(entry.SampleMatches[f], m.LineText)
		}
		if len(entry.Snippets) < maxSnippetsPerSymbol && len(matches) > 0 {
			defs := s.index.ParseFile(f)
			if sn := s.extractor.Extract(f, matches[0].LineNumber, defs); sn != nil {
				entry.Snippets = append(entry.Snippets, *sn)
			}
		}
	}
	return entry
}

func (s *Session) synthesize(risk, summary string) *types.Conclusion {
	return &types.Conclusion{
		HasCriticalIssues: false,
		PotentialRisks:    []string{risk},
		Summary:           summary,
		TotalIterations:   s.iterationCount,
		ImpactChainDepth:  len(s.impactChain),
	}
}

// ImpactChain exposes the audit trail of evidence rounds.
func (s *Session) ImpactChain() []types.ImpactChainEntry {
	return s.impactChain
}

// Collected exposes the evidence cache, for reporting.
func (s *Session) Collected() types.CollectedContext {
	return s.collected
}
