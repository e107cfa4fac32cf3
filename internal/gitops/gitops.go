package gitops

import (
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strings"

	"github.com/sourcegraph/go-diff/diff"
)

// FileChange summarizes one file in a branch diff.
type FileChange struct {
	Path      string
	Status    string // added, deleted, modified
	Additions int
	Deletions int
}

// DiffStats aggregates a branch diff.
type DiffStats struct {
	FilesChanged int
	Additions    int
	Deletions    int
	ByteSize     int
}

// BranchDiff is the full diff between two branches plus per-file metadata.
type BranchDiff struct {
	DiffText string
	Files    []FileChange
	Stats    DiffStats
}

// Git reads diffs from a local working tree.
type Git struct {
	repoPath string
}

// New validates that repoPath is inside a git working tree. An invalid
// tree is not recoverable and aborts the review.
func New(repoPath string) (*Git, error) {
	cmd := exec.Command("git", "rev-parse", "--show-toplevel")
	cmd.Dir = repoPath
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("not a git working tree: %s: %w", repoPath, err)
	}
	return &Git{repoPath: repoPath}, nil
}

func (g *Git) RepoPath() string {
	return g.repoPath
}

// BranchDiff returns the diff of source relative to the merge base with
// target, parsed into per-file changes and stats.
func (g *Git) BranchDiff(ctx context.Context, source, target string) (*BranchDiff, error) {
	cmd := exec.CommandContext(ctx, "git", "diff", target+"..."+source)
	cmd.Dir = g.repoPath
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("failed to diff %s...%s: %w", target, source, err)
	}

	return newBranchDiff(output), nil
}

// StagedDiff returns the diff of staged changes, parsed like BranchDiff.
func (g *Git) StagedDiff(ctx context.Context) (*BranchDiff, error) {
	cmd := exec.CommandContext(ctx, "git", "diff", "--staged")
	cmd.Dir = g.repoPath
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("failed to get staged diff: %w", err)
	}

	return newBranchDiff(output), nil
}

func newBranchDiff(output []byte) *BranchDiff {
	branchDiff := &BranchDiff{
		DiffText: string(output),
		Files:    parseFileChanges(output),
	}
	for _, f := range branchDiff.Files {
		branchDiff.Stats.Additions += f.Additions
		branchDiff.Stats.Deletions += f.Deletions
	}
	branchDiff.Stats.FilesChanged = len(branchDiff.Files)
	branchDiff.Stats.ByteSize = len(output)
	return branchDiff
}

// parseFileChanges extracts per-file changes from unified diff text,
// falling back to a line scan when the diff does not parse cleanly.
func parseFileChanges(diffText []byte) []FileChange {
	fileDiffs, err := diff.ParseMultiFileDiff(diffText)
	if err != nil {
		return scanFileChanges(string(diffText))
	}

	var changes []FileChange
	for _, fd := range fileDiffs {
		change := FileChange{
			Path:   strippedPath(fd.NewName),
			Status: "modified",
		}
		if fd.NewName == "/dev/null" {
			change.Path = strippedPath(fd.OrigName)
			change.Status = "deleted"
		} else if fd.OrigName == "/dev/null" {
			change.Status = "added"
		}

		stat := fd.Stat()
		change.Additions = int(stat.Added + stat.Changed)
		change.Deletions = int(stat.Deleted + stat.Changed)

		changes = append(changes, change)
	}
	return changes
}

func strippedPath(name string) string {
	name = strings.TrimPrefix(name, "a/")
	return strings.TrimPrefix(name, "b/")
}

var diffHeaderRe = regexp.MustCompile(`^diff --git a/.+ b/(.+)$`)

// scanFileChanges is the lenient fallback for diffs go-diff rejects.
func scanFileChanges(diffText string) []FileChange {
	var changes []FileChange
	var current *FileChange

	for _, line := range strings.Split(diffText, "\n") {
		if m := diffHeaderRe.FindStringSubmatch(line); m != nil {
			if current != nil {
				changes = append(changes, *current)
			}
			current = &FileChange{Path: m[1], Status: "modified"}
			continue
		}
		if current == nil {
			continue
		}
		switch {
		case strings.HasPrefix(line, "new file mode"):
			current.Status = "added"
		case strings.HasPrefix(line, "deleted file mode"):
			current.Status = "deleted"
		case strings.HasPrefix(line, "+") && !strings.HasPrefix(line, "+++"):
			current.Additions++
		case strings.HasPrefix(line, "-") && !strings.HasPrefix(line, "---"):
			current.Deletions++
		}
	}
	if current != nil {
		changes = append(changes, *current)
	}
	return changes
}

// SplitDiffByFile splits one unified diff into per-file diff texts keyed
// by the post-image path.
func SplitDiffByFile(diffText string) map[string]string {
	fileDiffs := make(map[string]string)
	currentFile := ""
	var currentLines []string

	flush := func() {
		if currentFile != "" {
			fileDiffs[currentFile] = strings.Join(currentLines, "\n")
		}
	}

	for _, line := range strings.Split(diffText, "\n") {
		if m := diffHeaderRe.FindStringSubmatch(line); m != nil {
			flush()
			currentFile = m[1]
			currentLines = []string{line}
			continue
		}
		if currentFile != "" {
			currentLines = append(currentLines, line)
		}
	}
	flush()

	return fileDiffs
}
