package review

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"diffscope/internal/gitops"
	"diffscope/internal/types"
	"diffscope/pkg/config"
)

func TestReportMarkdownEmpty(t *testing.T) {
	rep := &Report{Source: "feature", Target: "main", Tier: config.TierSmall}

	out := rep.Markdown()

	assert.Contains(t, out, "# Impact Analysis: feature -> main")
	assert.Contains(t, out, "No changes to review.")
}

func TestReportMarkdownSingleUnit(t *testing.T) {
	rep := &Report{
		Source: "feature",
		Target: "main",
		Tier:   config.TierMedium,
		Stats:  gitops.DiffStats{FilesChanged: 2, Additions: 40, Deletions: 10, ByteSize: 2048},
		Results: []UnitResult{
			{
				Unit: types.SubmissionUnit{Title: "auth.go", Files: []string{"auth.go", "session.go"}, IsDependencyGroup: true},
				Conclusion: types.Conclusion{
					PotentialRisks:   []string{"token refresh callers not verified"},
					AffectedFeatures: []string{"login"},
					Summary:          "Low risk change.",
					TotalIterations:  2,
				},
			},
		},
	}

	out := rep.Markdown()

	assert.Contains(t, out, "**Size tier:** medium | **Files:** 2 | **+40/-10** | **2048 bytes**")
	assert.Contains(t, out, "## Verdict: no critical issues")
	assert.Contains(t, out, "## auth.go")
	assert.Contains(t, out, "reviewed together")
	assert.Contains(t, out, "- token refresh callers not verified")
	assert.Contains(t, out, "Affected features: login")
	assert.Contains(t, out, "_Analysis rounds: 2_")
	assert.NotContains(t, out, "## Unit 1")
}

func TestReportMarkdownCritical(t *testing.T) {
	rep := &Report{
		Source: "feature", Target: "main", Tier: config.TierLarge,
		Results: []UnitResult{
			{
				Unit:       types.SubmissionUnit{Title: "api"},
				Conclusion: types.Conclusion{Summary: "fine"},
			},
			{
				Unit: types.SubmissionUnit{Title: "storage"},
				Conclusion: types.Conclusion{
					HasCriticalIssues: true,
					CriticalIssues:    []string{"schema change breaks reader"},
					ImpactChains:      []string{"writeRow -> flush -> compact"},
				},
			},
		},
	}

	out := rep.Markdown()

	assert.True(t, rep.HasCriticalIssues())
	assert.Contains(t, out, "## Verdict: CRITICAL ISSUES FOUND")
	assert.Contains(t, out, "## Unit 1: api")
	assert.Contains(t, out, "## Unit 2: storage")
	assert.Contains(t, out, "- schema change breaks reader")
	assert.Contains(t, out, "- writeRow -> flush -> compact")
	assert.Equal(t, 1, strings.Count(out, "### Critical issues"))
}
