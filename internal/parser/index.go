package parser

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"diffscope/internal/types"
)

// Index is the per-session structural cache: file path to the ordered list
// of definitions parsed from it. It only grows; entries are never
// invalidated because a review works over an immutable snapshot.
type Index struct {
	root     string
	registry *Registry
	files    map[string][]types.Definition
}

func NewIndex(root string, registry *Registry) *Index {
	return &Index{
		root:     root,
		registry: registry,
		files:    make(map[string][]types.Definition),
	}
}

// ParseFile returns the definitions of a file, ordered by start line.
// Repeated calls for the same path return the cached result without
// re-invoking the grammar. Unreadable or unparseable files cache an empty
// list.
func (idx *Index) ParseFile(path string) []types.Definition {
	if defs, ok := idx.files[path]; ok {
		return defs
	}

	content, err := os.ReadFile(filepath.Join(idx.root, path))
	if err != nil {
		idx.files[path] = nil
		return nil
	}

	defs := idx.registry.ParseFile(path, content)
	sort.SliceStable(defs, func(i, j int) bool {
		return defs[i].StartLine < defs[j].StartLine
	})

	idx.files[path] = defs
	return defs
}

// Cached reports whether a path has already been parsed.
func (idx *Index) Cached(path string) bool {
	_, ok := idx.files[path]
	return ok
}

// Len returns the number of cached files.
func (idx *Index) Len() int {
	return len(idx.files)
}

// Summary renders a deterministic text view of a definition list: type
// headers with optional doc lines, and one-line signatures for functions
// and methods, indented under their enclosing type. Input order is
// preserved, so byte-identical output for unchanged input follows from
// ParseFile's ordering.
func Summary(defs []types.Definition) string {
	var b strings.Builder
	currentType := ""

	for _, def := range defs {
		switch def.Kind {
		case types.KindClass, types.KindInterface, types.KindStruct:
			currentType = def.Name
			fmt.Fprintf(&b, "\n%s %s:\n", strings.ToUpper(string(def.Kind)), def.Name)
			if def.Doc != "" {
				fmt.Fprintf(&b, "  Doc: %s\n", def.Doc)
			}
		case types.KindFunction, types.KindMethod:
			indent := ""
			if def.Enclosing != "" && def.Enclosing == currentType {
				indent = "  "
			}
			fmt.Fprintf(&b, "%s%s\n", indent, signature(def))
			if def.Doc != "" {
				fmt.Fprintf(&b, "%s  Doc: %s\n", indent, def.Doc)
			}
		case types.KindVariable:
			fmt.Fprintf(&b, "variable %s\n", def.Name)
		}
	}

	return b.String()
}

func signature(def types.Definition) string {
	s := fmt.Sprintf("%s %s(%s)", def.Kind, def.Name, strings.Join(def.Params, ", "))
	if def.ReturnType != "" {
		s += " -> " + def.ReturnType
	}
	if def.Enclosing != "" {
		s += fmt.Sprintf(" [in %s]", def.Enclosing)
	}
	return s
}

// SummarizeFiles parses up to maxFiles of the given paths and renders one
// combined summary, one section per file that produced structure. Every
// parsed file counts against maxFiles, structureless or not, so the cap
// bounds parsing work rather than output length.
func (idx *Index) SummarizeFiles(paths []string, maxFiles int) string {
	var b strings.Builder
	parsed := 0

	for _, path := range paths {
		if maxFiles > 0 && parsed >= maxFiles {
			break
		}
		parsed++
		defs := idx.ParseFile(path)
		if len(defs) == 0 {
			continue
		}
		fmt.Fprintf(&b, "### %s\n%s\n", path, Summary(defs))
	}

	return b.String()
}
