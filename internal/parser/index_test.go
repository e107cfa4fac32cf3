package parser

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"diffscope/internal/types"
)

const goSample = `package acct

type Ledger struct {
	rows []Row
}

// Append adds a row.
func (l *Ledger) Append(r Row) error {
	return nil
}

func Sum(rows []Row) int {
	return 0
}
`

func newFileIndex(t *testing.T, files map[string]string) *Index {
	t.Helper()
	root := t.TempDir()
	for path, content := range files {
		full := filepath.Join(root, path)
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0644))
	}
	registry, err := NewRegistry()
	require.NoError(t, err)
	return NewIndex(root, registry)
}

func TestIndexParseFileOrdersByStartLine(t *testing.T) {
	idx := newFileIndex(t, map[string]string{"ledger.go": goSample})

	defs := idx.ParseFile("ledger.go")
	require.NotEmpty(t, defs)
	for i := 1; i < len(defs); i++ {
		assert.LessOrEqual(t, defs[i-1].StartLine, defs[i].StartLine)
	}
}

func TestIndexCachesParsedFiles(t *testing.T) {
	idx := newFileIndex(t, map[string]string{"ledger.go": goSample})

	assert.False(t, idx.Cached("ledger.go"))
	first := idx.ParseFile("ledger.go")
	require.NotEmpty(t, first)
	assert.True(t, idx.Cached("ledger.go"))
	assert.Equal(t, 1, idx.Len())

	// The snapshot is immutable for the session: even if the file
	// disappears, the cached structure is served.
	require.NoError(t, os.Remove(filepath.Join(idxRoot(idx), "ledger.go")))
	second := idx.ParseFile("ledger.go")
	assert.Equal(t, first, second)
}

// idxRoot exposes the root for test file manipulation.
func idxRoot(idx *Index) string {
	return idx.root
}

func TestIndexUnreadableFileCachesEmpty(t *testing.T) {
	idx := newFileIndex(t, nil)

	defs := idx.ParseFile("missing.go")
	assert.Nil(t, defs)
	assert.True(t, idx.Cached("missing.go"))
}

func TestSummaryFormat(t *testing.T) {
	defs := []types.Definition{
		{Name: "Ledger", Kind: types.KindStruct, StartLine: 3, EndLine: 5},
		{Name: "Append", Kind: types.KindMethod, StartLine: 8, EndLine: 10, Params: []string{"r Row"}, ReturnType: "error", Enclosing: "Ledger", Doc: "Append adds a row."},
		{Name: "Sum", Kind: types.KindFunction, StartLine: 12, EndLine: 14, Params: []string{"rows []Row"}, ReturnType: "int"},
	}

	out := Summary(defs)

	assert.Contains(t, out, "STRUCT Ledger:")
	assert.Contains(t, out, "  method Append(r Row) -> error [in Ledger]")
	assert.Contains(t, out, "    Doc: Append adds a row.")
	assert.Contains(t, out, "function Sum(rows []Row) -> int")
}

func TestSummaryDeterministic(t *testing.T) {
	idx := newFileIndex(t, map[string]string{"ledger.go": goSample})

	defs := idx.ParseFile("ledger.go")
	assert.Equal(t, Summary(defs), Summary(defs))
}

func TestSummarizeFilesRespectsMaxFiles(t *testing.T) {
	idx := newFileIndex(t, map[string]string{
		"a.go": goSample,
		"b.go": goSample,
		"c.go": goSample,
	})

	out := idx.SummarizeFiles([]string{"a.go", "b.go", "c.go"}, 2)

	assert.Contains(t, out, "### a.go")
	assert.Contains(t, out, "### b.go")
	assert.NotContains(t, out, "### c.go")
}

func TestSummarizeFilesCountsEveryParsedFile(t *testing.T) {
	idx := newFileIndex(t, map[string]string{
		"notes.txt": "nothing structural here",
		"a.go":      goSample,
	})

	out := idx.SummarizeFiles([]string{"notes.txt", "a.go"}, 1)

	assert.Empty(t, out)
	assert.False(t, idx.Cached("a.go"),
		"files past the parse cap must not be parsed at all")
}

func TestSummarizeFilesSkipsStructurelessFiles(t *testing.T) {
	idx := newFileIndex(t, map[string]string{
		"readme.txt": "nothing structural here",
		"a.go":       goSample,
	})

	out := idx.SummarizeFiles([]string{"readme.txt", "a.go", "gone.go"}, 2)

	assert.NotContains(t, out, "readme.txt")
	assert.Contains(t, out, "### a.go")
}
