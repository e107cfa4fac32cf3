package parser

import (
	"fmt"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"

	"diffscope/internal/types"
)

type PythonParser struct {
	parser   *sitter.Parser
	language *sitter.Language
}

func NewPythonParser() (*PythonParser, error) {
	lang := sitter.NewLanguage(tree_sitter_python.Language())
	parser := sitter.NewParser()
	if err := parser.SetLanguage(lang); err != nil {
		return nil, fmt.Errorf("failed to set language for parser: %w", err)
	}
	return &PythonParser{
		parser:   parser,
		language: lang,
	}, nil
}

func (pp *PythonParser) Language() string {
	return "Python"
}

func (pp *PythonParser) SupportedExtensions() []string {
	return []string{".py", ".pyw"}
}

func (pp *PythonParser) ParseFile(filePath string, content []byte) ([]types.Definition, error) {
	tree := pp.parser.Parse(content, nil)
	if tree == nil {
		return nil, fmt.Errorf("failed to parse Python file: tree-sitter returned nil")
	}
	defer tree.Close()

	queryText := `
	(class_definition) @class
	(function_definition) @function
	(module (expression_statement (assignment left: (identifier) @variable)))
	`

	q, err := sitter.NewQuery(pp.language, queryText)
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
			start, end := span(&node)

			switch capture {
			case "class":
				name := nodeText(node.ChildByFieldName("name"), content)
				if name == "" {
					continue
				}
				defs = append(defs, types.Definition{
					Name:      name,
					Kind:      types.KindClass,
					FilePath:  filePath,
					StartLine: start,
					EndLine:   end,
					Doc:       docstring(node.ChildByFieldName("body"), content),
				})
			case "function":
				name := nodeText(node.ChildByFieldName("name"), content)
				if name == "" {
					continue
				}
				kind := types.KindFunction
				enclosing := enclosingClass(&node, content)
				if enclosing != "" {
					kind = types.KindMethod
				}
				defs = append(defs, types.Definition{
					Name:       name,
					Kind:       kind,
					FilePath:   filePath,
					StartLine:  start,
					EndLine:    end,
					Params:     splitParams(nodeText(node.ChildByFieldName("parameters"), content)),
					ReturnType: nodeText(node.ChildByFieldName("return_type"), content),
					Doc:        docstring(node.ChildByFieldName("body"), content),
					Enclosing:  enclosing,
				})
			case "variable":
				name := nodeText(&node, content)
				if name == "" {
					continue
				}
				defs = append(defs, types.Definition{
					Name:      name,
					Kind:      types.KindVariable,
					FilePath:  filePath,
					StartLine: start,
					EndLine:   end,
				})
			}
		}
	}

	return defs, nil
}

// enclosingClass walks up from a definition to the nearest class, if any.
func enclosingClass(node *sitter.Node, src []byte) string {
	current := node.Parent()
	for current != nil {
		if current.Kind() == "class_definition" {
			return nodeText(current.ChildByFieldName("name"), src)
		}
		current = current.Parent()
	}
	return ""
}

// docstring returns the leading string literal of a definition body.
func docstring(body *sitter.Node, src []byte) string {
	if body == nil || body.ChildCount() == 0 {
		return ""
	}
	first := body.Child(0)
	if first == nil || first.Kind() != "expression_statement" || first.ChildCount() == 0 {
		return ""
	}
	expr := first.Child(0)
	if expr == nil || expr.Kind() != "string" {
		return ""
	}
	doc := nodeText(expr, src)
	doc = strings.Trim(doc, "\"' \n\t")
	doc = strings.Join(strings.Fields(doc), " ")
	return doc
}
