package parser

import (
	"fmt"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_c "github.com/tree-sitter/tree-sitter-c/bindings/go"

	"diffscope/internal/types"
)

type CParser struct {
	parser   *sitter.Parser
	language *sitter.Language
}

func NewCParser() (*CParser, error) {
	lang := sitter.NewLanguage(tree_sitter_c.Language())
	parser := sitter.NewParser()
	if err := parser.SetLanguage(lang); err != nil {
		return nil, fmt.Errorf("failed to set language for parser: %w", err)
	}
	return &CParser{
		parser:   parser,
		language: lang,
	}, nil
}

func (cp *CParser) Language() string {
	return "C"
}

func (cp *CParser) SupportedExtensions() []string {
	return []string{".c", ".h"}
}

func (cp *CParser) ParseFile(filePath string, content []byte) ([]types.Definition, error) {
	tree := cp.parser.Parse(content, nil)
	if tree == nil {
		return nil, fmt.Errorf("failed to parse C file: tree-sitter returned nil")
	}
	defer tree.Close()

	queryText := `
	(function_definition) @function
	(struct_specifier body: (field_declaration_list)) @struct
	`

	q, err := sitter.NewQuery(cp.language, queryText)
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
			case "function":
				declarator := node.ChildByFieldName("declarator")
				name := cFunctionName(declarator, content)
				if name == "" {
					continue
				}
				defs = append(defs, types.Definition{
					Name:       name,
					Kind:       types.KindFunction,
					FilePath:   filePath,
					StartLine:  start,
					EndLine:    end,
					Params:     splitParams(nodeText(declarator.ChildByFieldName("parameters"), content)),
					ReturnType: nodeText(node.ChildByFieldName("type"), content),
				})
			case "struct":
				name := nodeText(node.ChildByFieldName("name"), content)
				if name == "" {
					continue
				}
				defs = append(defs, types.Definition{
					Name:      name,
					Kind:      types.KindStruct,
					FilePath:  filePath,
					StartLine: start,
					EndLine:   end,
				})
			}
		}
	}

	return defs, nil
}

// cFunctionName digs through pointer declarators to the identifier.
func cFunctionName(declarator *sitter.Node, src []byte) string {
	for declarator != nil {
		switch declarator.Kind() {
		case "identifier":
			return nodeText(declarator, src)
		case "function_declarator":
			declarator = declarator.ChildByFieldName("declarator")
		case "pointer_declarator":
			declarator = declarator.ChildByFieldName("declarator")
		default:
			return ""
		}
	}
	return ""
}
