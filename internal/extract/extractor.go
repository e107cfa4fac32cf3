package extract

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"diffscope/internal/types"
)

// Options controls block sizing. Zero values take the defaults.
type Options struct {
	// OversizeBlockLines is the span above which a block is windowed
	// instead of returned whole.
	OversizeBlockLines int
	// FallbackRadius is the window radius used when no structure is known.
	FallbackRadius int
}

const (
	defaultOversizeBlockLines = 300
	defaultFallbackRadius     = 10

	// Window around the matched line inside an oversized block.
	oversizeBefore = 51
	oversizeAfter  = 50

	// How far up to look for a declaration when naming an unstructured
	// match.
	enclosingScanLines = 50
)

func (o Options) oversize() int {
	if o.OversizeBlockLines > 0 {
		return o.OversizeBlockLines
	}
	return defaultOversizeBlockLines
}

func (o Options) radius() int {
	if o.FallbackRadius > 0 {
		return o.FallbackRadius
	}
	return defaultFallbackRadius
}

// Extractor resolves a search match to the minimal code block around it.
type Extractor struct {
	root string
	opts Options
}

func NewExtractor(root string, opts Options) *Extractor {
	return &Extractor{root: root, opts: opts}
}

// Extract returns the smallest definition enclosing the matched line, the
// windowed excerpt of it when oversized, or a fixed-radius approximate
// window when the file has no known structure around that line. A nil
// result means the file could not be read.
func (e *Extractor) Extract(filePath string, lineNumber int, defs []types.Definition) *types.Snippet {
	content, err := os.ReadFile(filepath.Join(e.root, filePath))
	if err != nil {
		return nil
	}
	lines := strings.Split(strings.ReplaceAll(string(content), "\r\n", "\n"), "\n")

	if lineNumber < 1 || lineNumber > len(lines) {
		return nil
	}

	if node := smallestEnclosing(defs, lineNumber); node != nil {
		return e.extractBlock(filePath, lineNumber, lines, node)
	}
	return e.extractWindow(filePath, lineNumber, lines)
}

// smallestEnclosing picks the definition with the tightest span containing
// the line. Equal spans resolve to the later-declared node.
func smallestEnclosing(defs []types.Definition, line int) *types.Definition {
	var best *types.Definition
	for i := range defs {
		def := &defs[i]
		if line < def.StartLine || line > def.EndLine {
			continue
		}
		if best == nil || def.EndLine-def.StartLine <= best.EndLine-best.StartLine {
			best = def
		}
	}
	return best
}

func (e *Extractor) extractBlock(filePath string, lineNumber int, lines []string, node *types.Definition) *types.Snippet {
	start := node.StartLine
	end := min(node.EndLine, len(lines))

	method := types.ExtractionComplete
	if end-start+1 > e.opts.oversize() {
		// Window the excerpt around the match, clipped to the block.
		start = max(node.StartLine, lineNumber-oversizeBefore)
		end = min(end, lineNumber+oversizeAfter)
		method = types.ExtractionPartial
	}

	return &types.Snippet{
		File:        filePath,
		Line:        lineNumber,
		Enclosing:   node.Name,
		Kind:        string(node.Kind),
		StartLine:   start,
		EndLine:     end,
		Source:      strings.Join(lines[start-1:end], "\n"),
		MatchedLine: lines[lineNumber-1],
		Method:      method,
	}
}

func (e *Extractor) extractWindow(filePath string, lineNumber int, lines []string) *types.Snippet {
	radius := e.opts.radius()
	start := max(1, lineNumber-radius)
	end := min(len(lines), lineNumber+radius)

	return &types.Snippet{
		File:        filePath,
		Line:        lineNumber,
		Enclosing:   enclosingName(lines, lineNumber),
		Kind:        "unknown",
		StartLine:   start,
		EndLine:     end,
		Source:      strings.Join(lines[start-1:end], "\n"),
		MatchedLine: lines[lineNumber-1],
		Method:      types.ExtractionApproximate,
	}
}

var declarationPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^\s*(?:async\s+)?def\s+(\w+)`),
	regexp.MustCompile(`^\s*func\s+(?:\([^)]*\)\s*)?(\w+)`),
	regexp.MustCompile(`^\s*(?:export\s+)?function\s+(\w+)`),
	regexp.MustCompile(`^\s*class\s+(\w+)`),
	regexp.MustCompile(`^\s*(?:public\s+|private\s+|protected\s+)?(?:static\s+)?\w+\s+(\w+)\s*\([^)]*\)\s*\{`),
}

// enclosingName scans upward for a declaration line to name the scope of a
// match found without structural data.
func enclosingName(lines []string, lineNumber int) string {
	floor := max(0, lineNumber-1-enclosingScanLines)
	for i := lineNumber - 1; i >= floor; i-- {
		for _, pattern := range declarationPatterns {
			if m := pattern.FindStringSubmatch(lines[i]); m != nil {
				return m[1]
			}
		}
	}
	return "unknown"
}
