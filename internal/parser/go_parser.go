package parser

import (
	"fmt"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_go "github.com/tree-sitter/tree-sitter-go/bindings/go"

	"diffscope/internal/types"
)

type GoParser struct {
	parser   *sitter.Parser
	language *sitter.Language
}

func NewGoParser() (*GoParser, error) {
	lang := sitter.NewLanguage(tree_sitter_go.Language())
	parser := sitter.NewParser()
	if err := parser.SetLanguage(lang); err != nil {
		return nil, fmt.Errorf("failed to set language for parser: %w", err)
	}
	return &GoParser{
		parser:   parser,
		language: lang,
	}, nil
}

func (gp *GoParser) Language() string {
	return "Go"
}

func (gp *GoParser) SupportedExtensions() []string {
	return []string{".go"}
}

func (gp *GoParser) ParseFile(filePath string, content []byte) ([]types.Definition, error) {
	tree := gp.parser.Parse(content, nil)
	if tree == nil {
		return nil, fmt.Errorf("failed to parse Go file: tree-sitter returned nil")
	}
	defer tree.Close()

	queryText := `
	(function_declaration) @function
	(method_declaration) @method
	(type_declaration (type_spec) @type)
	(source_file (var_declaration (var_spec) @variable))
	(source_file (const_declaration (const_spec) @variable))
	`

	q, err := sitter.NewQuery(gp.language, queryText)
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

			switch capture {
			case "function":
				if def, ok := gp.functionDef(&node, content, filePath); ok {
					defs = append(defs, def)
				}
			case "method":
				if def, ok := gp.methodDef(&node, content, filePath); ok {
					defs = append(defs, def)
				}
			case "type":
				if def, ok := gp.typeDef(&node, content, filePath); ok {
					defs = append(defs, def)
				}
			case "variable":
				name := nodeText(node.ChildByFieldName("name"), content)
				if name == "" {
					continue
				}
				start, end := span(&node)
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

func (gp *GoParser) functionDef(node *sitter.Node, src []byte, filePath string) (types.Definition, bool) {
	name := nodeText(node.ChildByFieldName("name"), src)
	if name == "" {
		return types.Definition{}, false
	}
	start, end := span(node)
	return types.Definition{
		Name:       name,
		Kind:       types.KindFunction,
		FilePath:   filePath,
		StartLine:  start,
		EndLine:    end,
		Params:     splitParams(nodeText(node.ChildByFieldName("parameters"), src)),
		ReturnType: nodeText(node.ChildByFieldName("result"), src),
	}, true
}

func (gp *GoParser) methodDef(node *sitter.Node, src []byte, filePath string) (types.Definition, bool) {
	name := nodeText(node.ChildByFieldName("name"), src)
	if name == "" {
		return types.Definition{}, false
	}
	start, end := span(node)
	return types.Definition{
		Name:       name,
		Kind:       types.KindMethod,
		FilePath:   filePath,
		StartLine:  start,
		EndLine:    end,
		Params:     splitParams(nodeText(node.ChildByFieldName("parameters"), src)),
		ReturnType: nodeText(node.ChildByFieldName("result"), src),
		Enclosing:  receiverType(nodeText(node.ChildByFieldName("receiver"), src)),
	}, true
}

func (gp *GoParser) typeDef(node *sitter.Node, src []byte, filePath string) (types.Definition, bool) {
	name := nodeText(node.ChildByFieldName("name"), src)
	if name == "" {
		return types.Definition{}, false
	}

	typeNode := node.ChildByFieldName("type")
	if typeNode == nil {
		return types.Definition{}, false
	}

	var kind types.DefinitionKind
	switch typeNode.Kind() {
	case "struct_type":
		kind = types.KindStruct
	case "interface_type":
		kind = types.KindInterface
	default:
		return types.Definition{}, false
	}

	start, end := span(node)
	return types.Definition{
		Name:      name,
		Kind:      kind,
		FilePath:  filePath,
		StartLine: start,
		EndLine:   end,
	}, true
}

// receiverType extracts the bare type name from a receiver list such as
// "(s *Server)".
func receiverType(recv string) string {
	recv = strings.TrimPrefix(recv, "(")
	recv = strings.TrimSuffix(recv, ")")
	fields := strings.Fields(recv)
	if len(fields) == 0 {
		return ""
	}
	typ := fields[len(fields)-1]
	typ = strings.TrimPrefix(typ, "*")
	if idx := strings.Index(typ, "["); idx >= 0 {
		typ = typ[:idx]
	}
	return typ
}
