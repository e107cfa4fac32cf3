package parser

import (
	"path/filepath"
	"regexp"
	"strings"

	"diffscope/internal/types"
)

// RegexParser is the declaration-shape fallback for extensions with no
// registered grammar. It only knows declaration lines, so every definition
// it emits spans a single line; extraction over these files degrades to
// windowed context.
type RegexParser struct{}

func NewRegexParser() *RegexParser {
	return &RegexParser{}
}

type regexRule struct {
	pattern *regexp.Regexp
	kind    types.DefinitionKind
}

var regexRules = map[string][]regexRule{
	"javascript": {
		{regexp.MustCompile(`^\s*class\s+(\w+)`), types.KindClass},
		{regexp.MustCompile(`^\s*(?:export\s+)?function\s+(\w+)`), types.KindFunction},
		{regexp.MustCompile(`^\s*(?:export\s+)?const\s+(\w+)\s*=\s*(?:async\s+)?\(`), types.KindFunction},
		{regexp.MustCompile(`^\s*(?:export\s+)?(?:const|let|var)\s+(\w+)\s*=`), types.KindVariable},
	},
	"cpp": {
		{regexp.MustCompile(`^\s*template\s*<.*>\s*class\s+(\w+)`), types.KindClass},
		{regexp.MustCompile(`^\s*class\s+(\w+)`), types.KindClass},
		{regexp.MustCompile(`^\s*struct\s+(\w+)`), types.KindStruct},
		{regexp.MustCompile(`^\w+(?:\s+\w+)?\s+(\w+)\s*\([^)]*\)\s*\{`), types.KindFunction},
		{regexp.MustCompile(`^\s+\w+(?:\s+\w+)?\s+(\w+)\s*\([^)]*\)\s*(?:const)?\s*\{`), types.KindMethod},
	},
	"csharp": {
		{regexp.MustCompile(`^\s*(?:public\s+|private\s+|protected\s+|internal\s+)?class\s+(\w+)`), types.KindClass},
		{regexp.MustCompile(`^\s*(?:public\s+|private\s+|protected\s+|internal\s+)?interface\s+(\w+)`), types.KindInterface},
		{regexp.MustCompile(`^\s*(?:public\s+|private\s+|protected\s+|internal\s+)?struct\s+(\w+)`), types.KindStruct},
		{regexp.MustCompile(`^\s+(?:public\s+|private\s+|protected\s+|internal\s+)?(?:static\s+)?(?:async\s+)?\w+(?:<[\w,\s]+>)?\s+(\w+)\s*\(`), types.KindMethod},
	},
	"ruby": {
		{regexp.MustCompile(`^\s*class\s+(\w+)`), types.KindClass},
		{regexp.MustCompile(`^\s*module\s+(\w+)`), types.KindClass},
		{regexp.MustCompile(`^\s*def\s+(\w+)`), types.KindMethod},
	},
	"rust": {
		{regexp.MustCompile(`^\s*(?:pub\s+)?struct\s+(\w+)`), types.KindStruct},
		{regexp.MustCompile(`^\s*(?:pub\s+)?trait\s+(\w+)`), types.KindInterface},
		{regexp.MustCompile(`^\s*(?:pub\s+)?fn\s+(\w+)`), types.KindFunction},
	},
	"php": {
		{regexp.MustCompile(`^\s*class\s+(\w+)`), types.KindClass},
		{regexp.MustCompile(`^\s*interface\s+(\w+)`), types.KindInterface},
		{regexp.MustCompile(`^\s*(?:public\s+|private\s+|protected\s+)?(?:static\s+)?function\s+(\w+)`), types.KindFunction},
	},
}

var regexLanguages = map[string]string{
	".js":  "javascript",
	".jsx": "javascript",
	".mjs": "javascript",
	".cjs": "javascript",
	".cpp": "cpp",
	".cc":  "cpp",
	".cxx": "cpp",
	".hpp": "cpp",
	".hxx": "cpp",
	".cs":  "csharp",
	".rb":  "ruby",
	".rs":  "rust",
	".php": "php",
}

func (rp *RegexParser) Language() string {
	return "regex-fallback"
}

func (rp *RegexParser) SupportedExtensions() []string {
	exts := make([]string, 0, len(regexLanguages))
	for ext := range regexLanguages {
		exts = append(exts, ext)
	}
	return exts
}

func (rp *RegexParser) ParseFile(filePath string, content []byte) ([]types.Definition, error) {
	ext := strings.ToLower(filepath.Ext(filePath))
	language, ok := regexLanguages[ext]
	if !ok {
		return nil, nil
	}

	rules := regexRules[language]
	var defs []types.Definition

	for i, line := range strings.Split(string(content), "\n") {
		for _, rule := range rules {
			match := rule.pattern.FindStringSubmatch(line)
			if match == nil {
				continue
			}
			defs = append(defs, types.Definition{
				Name:      match[1],
				Kind:      rule.kind,
				FilePath:  filePath,
				StartLine: i + 1,
				EndLine:   i + 1,
			})
			break
		}
	}

	return defs, nil
}
