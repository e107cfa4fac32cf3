package search

import (
	"regexp"
	"strings"

	"diffscope/internal/types"
)

// Patterns builds the regex family used to locate usages of a symbol.
// Kind widens the net: functions match call syntax, types match
// instantiation and inheritance shapes, variables additionally match
// string literals and other naming conventions of the same logical name.
func Patterns(query types.SymbolQuery) []string {
	name := regexp.QuoteMeta(query.Name)
	var patterns []string

	switch query.Kind {
	case "function", "method":
		patterns = append(patterns,
			`\b`+name+`\s*\(`,
			`from\s+\S+\s+import\s+.*\b`+name+`\b`,
			`import\s+.*\b`+name+`\b`,
		)
	case "class", "interface", "struct":
		patterns = append(patterns,
			`\b`+name+`\b`,
			`\b`+name+`\s*\(`,
			`\b`+name+`\s*\*`,
			`\b`+name+`\s*&`,
			`:\s*(?:public|private|protected)?\s*`+name+`\b`,
			`new\s+`+name+`\b`,
			`from\s+\S+\s+import\s+.*\b`+name+`\b`,
			`isinstance\s*\([^,]+,\s*`+name+`\b`,
		)
	case "variable":
		patterns = append(patterns,
			`\b`+name+`\b`,
			`["'].*`+name+`.*["']`,
			`from\s+\S+\s+import\s+.*\b`+name+`\b`,
		)
		patterns = append(patterns, caseVariants(query.Name)...)
	default:
		patterns = append(patterns, `\b`+name+`\b`)
	}

	return patterns
}

// caseVariants expands a lowerCamel name to UpperCamel and
// SCREAMING_SNAKE forms, catching cross-convention references to the same
// logical name (config keys, constants).
func caseVariants(name string) []string {
	if name == "" || name[0] < 'a' || name[0] > 'z' {
		return nil
	}

	var patterns []string

	pascal := strings.ToUpper(name[:1]) + name[1:]
	patterns = append(patterns,
		`\b`+regexp.QuoteMeta(pascal)+`\b`,
		`["'].*`+regexp.QuoteMeta(pascal)+`.*["']`,
	)

	snake := screamingSnake(name)
	if snake != strings.ToUpper(name) {
		patterns = append(patterns, `\b`+regexp.QuoteMeta(snake)+`\b`)
	}

	return patterns
}

func screamingSnake(name string) string {
	var b strings.Builder
	for _, r := range name {
		if r >= 'A' && r <= 'Z' {
			b.WriteByte('_')
		}
		b.WriteRune(r)
	}
	return strings.ToUpper(b.String())
}
