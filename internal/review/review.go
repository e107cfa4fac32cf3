package review

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"diffscope/internal/extract"
	"diffscope/internal/gitops"
	"diffscope/internal/oracle"
	"diffscope/internal/parser"
	"diffscope/internal/partition"
	"diffscope/internal/search"
	"diffscope/internal/tracker"
	"diffscope/internal/types"
	"diffscope/pkg/config"
)

// UnitResult pairs one submission unit with its verdict.
type UnitResult struct {
	Unit       types.SubmissionUnit
	Conclusion types.Conclusion
}

// Report is the complete outcome of one review run.
type Report struct {
	Source  string
	Target  string
	Tier    config.SizeTier
	Stats   gitops.DiffStats
	Results []UnitResult
}

// Reviewer orchestrates a full review: fetch the diff, classify its
// size, partition it when large, and run one analysis session per unit.
type Reviewer struct {
	cfg      *config.Config
	git      *gitops.Git
	decider  oracle.Oracle
	registry *parser.Registry
	log      *slog.Logger
}

func New(cfg *config.Config, git *gitops.Git, decider oracle.Oracle, log *slog.Logger) (*Reviewer, error) {
	if log == nil {
		log = slog.Default()
	}
	registry, err := parser.NewRegistry()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize language parsers: %w", err)
	}
	return &Reviewer{
		cfg:      cfg,
		git:      git,
		decider:  decider,
		registry: registry,
		log:      log,
	}, nil
}

// ReviewBranches analyzes the changes of source relative to target.
func (r *Reviewer) ReviewBranches(ctx context.Context, source, target string) (*Report, error) {
	branchDiff, err := r.git.BranchDiff(ctx, source, target)
	if err != nil {
		return nil, err
	}
	report, err := r.run(ctx, branchDiff)
	if err != nil {
		return nil, err
	}
	report.Source = source
	report.Target = target
	return report, nil
}

// ReviewStaged analyzes the staged changes of the working tree.
func (r *Reviewer) ReviewStaged(ctx context.Context) (*Report, error) {
	branchDiff, err := r.git.StagedDiff(ctx)
	if err != nil {
		return nil, err
	}
	report, err := r.run(ctx, branchDiff)
	if err != nil {
		return nil, err
	}
	report.Source = "staged"
	report.Target = "HEAD"
	return report, nil
}

func (r *Reviewer) run(ctx context.Context, branchDiff *gitops.BranchDiff) (*Report, error) {
	report := &Report{Stats: branchDiff.Stats}
	if branchDiff.DiffText == "" {
		report.Tier = config.TierSmall
		return report, nil
	}

	tier := r.cfg.ClassifySize(config.ChangeStats{
		Files:        branchDiff.Stats.FilesChanged,
		LinesChanged: branchDiff.Stats.Additions + branchDiff.Stats.Deletions,
		DiffBytes:    branchDiff.Stats.ByteSize,
	})
	report.Tier = tier
	params := r.cfg.TierFor(tier)
	r.log.Info("change classified",
		"tier", tier, "files", branchDiff.Stats.FilesChanged, "bytes", branchDiff.Stats.ByteSize)

	units := r.split(branchDiff)

	engine, err := search.NewEngine(r.git.RepoPath(), search.Options{
		MaxFilesPerQuery:  params.MaxFilesPerQuery,
		MaxMatchesPerFile: params.MaxMatchesPerFile,
		MaxResults:        r.cfg.Search.MaxResults,
		ContextLines:      r.cfg.Search.ContextLines,
		Workers:           r.cfg.Search.Workers,
		QueryTimeout:      time.Duration(r.cfg.Search.QueryTimeoutSec) * time.Second,
		CacheSize:         r.cfg.Search.CacheSize,
	}, r.log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize search engine: %w", err)
	}

	extractor := extract.NewExtractor(r.git.RepoPath(), extract.Options{
		OversizeBlockLines: r.cfg.Extraction.OversizeBlockLines,
		FallbackRadius:     r.cfg.Extraction.FallbackRadius,
	})

	for _, unit := range units {
		index := parser.NewIndex(r.git.RepoPath(), r.registry)
		session := tracker.NewSession(unit, r.decider, engine, extractor, index, params, r.log)
		conclusion := session.Run(ctx)
		report.Results = append(report.Results, UnitResult{Unit: unit, Conclusion: *conclusion})
	}

	return report, nil
}

// split partitions the diff when it exceeds the split threshold;
// otherwise the whole change is reviewed as one unit.
func (r *Reviewer) split(branchDiff *gitops.BranchDiff) []types.SubmissionUnit {
	perFile := gitops.SplitDiffByFile(branchDiff.DiffText)

	if branchDiff.Stats.ByteSize <= r.cfg.Splitting.SplitThreshold {
		files := make([]string, 0, len(branchDiff.Files))
		for _, f := range branchDiff.Files {
			files = append(files, f.Path)
		}
		title := "Full change"
		if len(files) == 1 {
			title = files[0]
		}
		return []types.SubmissionUnit{{
			Title:    title,
			Files:    sorted(files),
			DiffText: branchDiff.DiffText,
			ByteSize: branchDiff.Stats.ByteSize,
		}}
	}

	p := partition.New(r.cfg.Splitting.TargetUnitSize, r.cfg.Splitting.ChunkSize, r.log)
	units := p.Partition(perFile)
	r.log.Info("change partitioned", "units", len(units))
	return units
}

// HasCriticalIssues reports whether any unit concluded critically.
func (rep *Report) HasCriticalIssues() bool {
	for _, res := range rep.Results {
		if res.Conclusion.HasCriticalIssues {
			return true
		}
	}
	return false
}
