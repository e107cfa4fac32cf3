package parser

import (
	"fmt"
	"path/filepath"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"

	"diffscope/internal/types"
)

// TypeScriptParser handles .ts sources and, through the TSX grammar, .tsx.
type TypeScriptParser struct {
	tsParser  *sitter.Parser
	tsxParser *sitter.Parser
	tsLang    *sitter.Language
	tsxLang   *sitter.Language
}

func NewTypeScriptParser() (*TypeScriptParser, error) {
	tsLang := sitter.NewLanguage(tree_sitter_typescript.LanguageTypescript())
	tsParser := sitter.NewParser()
	if err := tsParser.SetLanguage(tsLang); err != nil {
		return nil, fmt.Errorf("failed to set language for parser: %w", err)
	}

	tsxLang := sitter.NewLanguage(tree_sitter_typescript.LanguageTSX())
	tsxParser := sitter.NewParser()
	if err := tsxParser.SetLanguage(tsxLang); err != nil {
		return nil, fmt.Errorf("failed to set language for parser: %w", err)
	}

	return &TypeScriptParser{
		tsParser:  tsParser,
		tsxParser: tsxParser,
		tsLang:    tsLang,
		tsxLang:   tsxLang,
	}, nil
}

func (tp *TypeScriptParser) Language() string {
	return "TypeScript"
}

func (tp *TypeScriptParser) SupportedExtensions() []string {
	return []string{".ts", ".tsx"}
}

func (tp *TypeScriptParser) ParseFile(filePath string, content []byte) ([]types.Definition, error) {
	parser := tp.tsParser
	lang := tp.tsLang
	if strings.ToLower(filepath.Ext(filePath)) == ".tsx" {
		parser = tp.tsxParser
		lang = tp.tsxLang
	}

	tree := parser.Parse(content, nil)
	if tree == nil {
		return nil, fmt.Errorf("failed to parse TypeScript file: tree-sitter returned nil")
	}
	defer tree.Close()

	queryText := `
	(class_declaration) @class
	(interface_declaration) @interface
	(function_declaration) @function
	(method_definition) @method
	(program (lexical_declaration (variable_declarator) @variable))
	(program (export_statement (lexical_declaration (variable_declarator) @variable)))
	`

	q, err := sitter.NewQuery(lang, queryText)
	if err != nil {
		return nil, fmt.Errorf("failed to create query: %w", err)
	}
	defer q.Close()

	qc := sitter.NewQueryCursor()
	matches := qc.Matches(q, tree.RootNode(), content)

	var defs []types.Definition
	for {
		m := matches.Next()
		if m == nil {
			break
		}
		for _, c := range m.Captures {
			node := c.Node
			capture := q.CaptureNames()[c.Index]

			name := nodeText(node.ChildByFieldName("name"), content)
			if name == "" {
				continue
			}
			start, end := span(&node)

			switch capture {
			case "class":
				defs = append(defs, types.Definition{
					Name:      name,
					Kind:      types.KindClass,
					FilePath:  filePath,
					StartLine: start,
					EndLine:   end,
				})
			case "interface":
				defs = append(defs, types.Definition{
					Name:      name,
					Kind:      types.KindInterface,
					FilePath:  filePath,
					StartLine: start,
					EndLine:   end,
				})
			case "function":
				defs = append(defs, types.Definition{
					Name:       name,
					Kind:       types.KindFunction,
					FilePath:   filePath,
					StartLine:  start,
					EndLine:    end,
					Params:     splitParams(nodeText(node.ChildByFieldName("parameters"), content)),
					ReturnType: strings.TrimPrefix(nodeText(node.ChildByFieldName("return_type"), content), ": "),
				})
			case "method":
				defs = append(defs, types.Definition{
					Name:       name,
					Kind:       types.KindMethod,
					FilePath:   filePath,
					StartLine:  start,
					EndLine:    end,
					Params:     splitParams(nodeText(node.ChildByFieldName("parameters"), content)),
					ReturnType: strings.TrimPrefix(nodeText(node.ChildByFieldName("return_type"), content), ": "),
					Enclosing:  tsEnclosingType(&node, content),
				})
			case "variable":
				// Arrow functions assigned to a const count as functions.
				kind := types.KindVariable
				if value := node.ChildByFieldName("value"); value != nil && value.Kind() == "arrow_function" {
					kind = types.KindFunction
				}
				defs = append(defs, types.Definition{
					Name:      name,
					Kind:      kind,
					FilePath:  filePath,
					StartLine: start,
					EndLine:   end,
				})
			}
		}
	}

	return defs, nil
}

func tsEnclosingType(node *sitter.Node, src []byte) string {
	current := node.Parent()
	for current != nil {
		switch current.Kind() {
		case "class_declaration", "abstract_class_declaration", "interface_declaration":
			return nodeText(current.ChildByFieldName("name"), src)
		}
		current = current.Parent()
	}
	return ""
}
