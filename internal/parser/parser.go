package parser

import (
	"path/filepath"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"diffscope/internal/types"
)

// LanguageParser extracts definition spans from one language's source files.
type LanguageParser interface {
	// ParseFile extracts all named definitions from a file. A nil or empty
	// result means the file contributed no structure; parsers never fail
	// the caller over malformed input.
	ParseFile(filePath string, content []byte) ([]types.Definition, error)

	// SupportedExtensions returns the file extensions this parser handles.
	SupportedExtensions() []string

	// Language returns the human-readable language name.
	Language() string
}

// Registry maps file extensions to language parsers. Files with no
// registered grammar are handled by the regex fallback, never both.
type Registry struct {
	parsers  map[string]LanguageParser
	fallback *RegexParser
}

func NewRegistry() (*Registry, error) {
	registry := &Registry{
		parsers:  make(map[string]LanguageParser),
		fallback: NewRegexParser(),
	}

	goParser, err := NewGoParser()
	if err != nil {
		return nil, err
	}
	registry.Register(goParser)

	pyParser, err := NewPythonParser()
	if err != nil {
		return nil, err
	}
	registry.Register(pyParser)

	javaParser, err := NewJavaParser()
	if err != nil {
		return nil, err
	}
	registry.Register(javaParser)

	tsParser, err := NewTypeScriptParser()
	if err != nil {
		return nil, err
	}
	registry.Register(tsParser)

	cParser, err := NewCParser()
	if err != nil {
		return nil, err
	}
	registry.Register(cParser)

	return registry, nil
}

func (r *Registry) Register(parser LanguageParser) {
	for _, ext := range parser.SupportedExtensions() {
		r.parsers[ext] = parser
	}
}

// ParserFor returns the grammar parser for a path, or nil when only the
// regex fallback applies.
func (r *Registry) ParserFor(filePath string) LanguageParser {
	ext := strings.ToLower(filepath.Ext(filePath))
	return r.parsers[ext]
}

// ParseFile parses with the extension's grammar, falling back to regex
// heuristics for unregistered extensions. Parse failures yield an empty
// list rather than an error.
func (r *Registry) ParseFile(filePath string, content []byte) []types.Definition {
	if parser := r.ParserFor(filePath); parser != nil {
		defs, err := parser.ParseFile(filePath, content)
		if err != nil {
			return nil
		}
		return defs
	}
	defs, err := r.fallback.ParseFile(filePath, content)
	if err != nil {
		return nil
	}
	return defs
}

func (r *Registry) SupportedLanguages() []string {
	seen := make(map[string]bool)
	var result []string
	for _, parser := range r.parsers {
		if !seen[parser.Language()] {
			seen[parser.Language()] = true
			result = append(result, parser.Language())
		}
	}
	return result
}

// nodeText returns the trimmed source text of a node, or "" for nil.
func nodeText(node *sitter.Node, src []byte) string {
	if node == nil {
		return ""
	}
	return strings.TrimSpace(node.Utf8Text(src))
}

// span converts a node's position to 1-based inclusive line numbers.
func span(node *sitter.Node) (int, int) {
	return int(node.StartPosition().Row) + 1, int(node.EndPosition().Row) + 1
}

// splitParams turns a parameter list's text into individual parameter
// names, stripping type annotations and default values.
func splitParams(raw string) []string {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "(")
	raw = strings.TrimSuffix(raw, ")")
	if raw == "" {
		return nil
	}

	var params []string
	depth := 0
	start := 0
	for i, r := range raw {
		switch r {
		case '(', '[', '{', '<':
			depth++
		case ')', ']', '}', '>':
			depth--
		case ',':
			if depth == 0 {
				params = append(params, cleanParam(raw[start:i]))
				start = i + 1
			}
		}
	}
	params = append(params, cleanParam(raw[start:]))

	var out []string
	for _, p := range params {
		if p != "" && p != "self" {
			out = append(out, p)
		}
	}
	return out
}

func cleanParam(p string) string {
	p = strings.TrimSpace(p)
	if idx := strings.Index(p, ":"); idx >= 0 {
		p = p[:idx]
	}
	if idx := strings.Index(p, "="); idx >= 0 {
		p = p[:idx]
	}
	return strings.TrimSpace(p)
}
