package parser

import (
	"fmt"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_java "github.com/tree-sitter/tree-sitter-java/bindings/go"

	"diffscope/internal/types"
)

type JavaParser struct {
	parser   *sitter.Parser
	language *sitter.Language
}

func NewJavaParser() (*JavaParser, error) {
	lang := sitter.NewLanguage(tree_sitter_java.Language())
	parser := sitter.NewParser()
	if err := parser.SetLanguage(lang); err != nil {
		return nil, fmt.Errorf("failed to set language for parser: %w", err)
	}
	return &JavaParser{
		parser:   parser,
		language: lang,
	}, nil
}

func (jp *JavaParser) Language() string {
	return "Java"
}

func (jp *JavaParser) SupportedExtensions() []string {
	return []string{".java"}
}

func (jp *JavaParser) ParseFile(filePath string, content []byte) ([]types.Definition, error) {
	tree := jp.parser.Parse(content, nil)
	if tree == nil {
		return nil, fmt.Errorf("failed to parse Java file: tree-sitter returned nil")
	}
	defer tree.Close()

	queryText := `
	(class_declaration) @class
	(interface_declaration) @interface
	(method_declaration) @method
	(constructor_declaration) @method
	`

	q, err := sitter.NewQuery(jp.language, queryText)
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
			case "method":
				defs = append(defs, types.Definition{
					Name:       name,
					Kind:       types.KindMethod,
					FilePath:   filePath,
					StartLine:  start,
					EndLine:    end,
					Params:     splitParams(nodeText(node.ChildByFieldName("parameters"), content)),
					ReturnType: nodeText(node.ChildByFieldName("type"), content),
					Enclosing:  javaEnclosingType(&node, content),
				})
			}
		}
	}

	return defs, nil
}

func javaEnclosingType(node *sitter.Node, src []byte) string {
	current := node.Parent()
	for current != nil {
		switch current.Kind() {
		case "class_declaration", "interface_declaration", "enum_declaration":
			return nodeText(current.ChildByFieldName("name"), src)
		}
		current = current.Parent()
	}
	return ""
}
