package search

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"diffscope/internal/types"
)

// ripgrepBackend shells out to rg for line search over the working tree.
type ripgrepBackend struct {
	root         string
	contextLines int
	maxCount     int
	includeGlobs []string
}

// rgAvailable probes for a usable rg binary.
func rgAvailable() bool {
	path, err := exec.LookPath("rg")
	if err != nil {
		return false
	}
	return exec.Command(path, "--version").Run() == nil
}

func newRipgrepBackend(root string, contextLines, maxCount int, includeGlobs []string) *ripgrepBackend {
	return &ripgrepBackend{
		root:         root,
		contextLines: contextLines,
		maxCount:     maxCount,
		includeGlobs: includeGlobs,
	}
}

func (b *ripgrepBackend) Name() string {
	return "ripgrep"
}

func (b *ripgrepBackend) args(pattern string) []string {
	args := []string{
		"--json",
		"-e", pattern,
		"--context", strconv.Itoa(b.contextLines),
		"--max-count", strconv.Itoa(b.maxCount),
		"--max-filesize", "1M",
	}

	for _, g := range b.includeGlobs {
		args = append(args, "--glob", g)
	}
	// A bare "dir/**" exclusion is anchored to the search root; the
	// leading ** skips ignored directories at any depth, matching the
	// scan backend's walk.
	for _, dir := range ignoreDirs {
		args = append(args, "--glob", "!**/"+dir+"/**")
	}

	return append(args, b.root)
}

func (b *ripgrepBackend) Search(ctx context.Context, pattern string) (map[string][]types.SearchMatch, error) {
	cmd := exec.CommandContext(ctx, "rg", b.args(pattern)...)
	output, err := cmd.Output()
	if err != nil {
		// Exit code 1 means no matches, which is a valid result.
		if exitErr, ok := err.(*exec.ExitError); ok && exitErr.ExitCode() == 1 {
			return map[string][]types.SearchMatch{}, nil
		}
		return nil, fmt.Errorf("ripgrep search failed: %w", err)
	}

	return b.parseJSONOutput(string(output)), nil
}

// Event stream per rg --json: begin, match, and context records per file,
// closed by an end record.
type rgEvent struct {
	Type string `json:"type"`
	Data struct {
		Path struct {
			Text string `json:"text"`
		} `json:"path"`
		Lines struct {
			Text string `json:"text"`
		} `json:"lines"`
		LineNumber int `json:"line_number"`
	} `json:"data"`
}

// contextLine is a context event buffered until the match it precedes
// arrives. rg emits a match's before-context ahead of the match record.
type contextLine struct {
	lineNumber int
	text       string
}

func (b *ripgrepBackend) parseJSONOutput(output string) map[string][]types.SearchMatch {
	results := make(map[string][]types.SearchMatch)
	currentFile := ""
	var currentMatches []types.SearchMatch
	var pending []contextLine

	flush := func() {
		if currentFile != "" && len(currentMatches) > 0 {
			results[currentFile] = append(results[currentFile], currentMatches...)
		}
		currentFile = ""
		currentMatches = nil
		pending = nil
	}

	for _, line := range strings.Split(strings.TrimSpace(output), "\n") {
		if line == "" {
			continue
		}
		var event rgEvent
		if err := json.Unmarshal([]byte(line), &event); err != nil {
			continue
		}

		switch event.Type {
		case "begin":
			flush()
			if rel, err := filepath.Rel(b.root, event.Data.Path.Text); err == nil {
				currentFile = filepath.ToSlash(rel)
			} else {
				currentFile = event.Data.Path.Text
			}
		case "match":
			if currentFile == "" {
				continue
			}
			match := types.SearchMatch{
				FilePath:   currentFile,
				LineNumber: event.Data.LineNumber,
				LineText:   strings.TrimRight(event.Data.Lines.Text, "\r\n"),
			}
			for _, p := range pending {
				if p.lineNumber < match.LineNumber {
					match.Before = append(match.Before, p.text)
				}
			}
			pending = nil
			currentMatches = append(currentMatches, match)
		case "context":
			if currentFile == "" {
				continue
			}
			text := strings.TrimRight(event.Data.Lines.Text, "\r\n")
			// Within the context window after the previous match it is
			// that match's after-context; otherwise it belongs to the
			// before-context of a match still to come.
			if len(currentMatches) > 0 {
				last := &currentMatches[len(currentMatches)-1]
				gap := event.Data.LineNumber - last.LineNumber
				if gap > 0 && gap <= b.contextLines {
					last.After = append(last.After, text)
					continue
				}
			}
			pending = append(pending, contextLine{event.Data.LineNumber, text})
		case "end":
			flush()
		}
	}
	flush()

	return results
}
