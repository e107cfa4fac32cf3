package partition

import (
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func diffFor(path string, lines ...string) string {
	text := "diff --git a/" + path + " b/" + path + "\n--- a/" + path + "\n+++ b/" + path + "\n@@ -1,5 +1,5 @@\n"
	for _, l := range lines {
		text += l + "\n"
	}
	return text
}

func collectFiles(t *testing.T, perFileDiff map[string]string) []string {
	t.Helper()
	files := make([]string, 0, len(perFileDiff))
	for f := range perFileDiff {
		files = append(files, f)
	}
	sort.Strings(files)
	return files
}

func TestPartitionSingleFile(t *testing.T) {
	p := New(0, 0, nil)
	diffs := map[string]string{
		"pkg/util.go": diffFor("pkg/util.go", "+func Helper() {}"),
	}

	units := p.Partition(diffs)

	require.Len(t, units, 1)
	assert.Equal(t, []string{"pkg/util.go"}, units[0].Files)
	assert.False(t, units[0].IsDependencyGroup)
	assert.Equal(t, len(units[0].DiffText), units[0].ByteSize)
}

func TestPartitionDependencyGroup(t *testing.T) {
	p := New(0, 0, nil)
	diffs := map[string]string{
		"billing/totals.py": diffFor("billing/totals.py",
			"-def compute_total(items):",
			"-    return sum(i.price for i in items)"),
		"billing/invoice.py": diffFor("billing/invoice.py",
			"+    total = compute_total(line_items)"),
	}

	units := p.Partition(diffs)

	require.Len(t, units, 1)
	assert.Equal(t, []string{"billing/invoice.py", "billing/totals.py"}, units[0].Files)
	assert.True(t, units[0].IsDependencyGroup)
}

func TestPartitionTransitiveClosure(t *testing.T) {
	p := New(0, 0, nil)
	diffs := map[string]string{
		"a.py": diffFor("a.py", "+def alpha_step(x):", "+    return x + 1"),
		"b.py": diffFor("b.py", "+def beta_step(x):", "+    return alpha_step(x) * 2"),
		"c.py": diffFor("c.py", "+result = beta_step(10)"),
		"d.py": diffFor("d.py", "+unrelated = 42"),
	}

	units := p.Partition(diffs)

	var group []string
	for _, u := range units {
		if u.IsDependencyGroup {
			group = u.Files
		}
	}
	assert.Equal(t, []string{"a.py", "b.py", "c.py"}, group)
}

func TestPartitionCoversAllFilesExactly(t *testing.T) {
	p := New(80, 2, nil)
	diffs := map[string]string{
		"one.txt":   diffFor("one.txt", "+first change to the file"),
		"two.txt":   diffFor("two.txt", "+second change, slightly longer text here"),
		"three.txt": diffFor("three.txt", "+third"),
		"four.txt":  diffFor("four.txt", "+fourth change with a long trailing comment to pad size"),
		"five.txt":  diffFor("five.txt", "+fifth"),
	}

	units := p.Partition(diffs)

	var got []string
	for _, u := range units {
		got = append(got, u.Files...)
	}
	sort.Strings(got)
	assert.Equal(t, collectFiles(t, diffs), got)
}

func TestPartitionBinPacking(t *testing.T) {
	big := diffFor("big.txt", "+"+strings.Repeat("x", 90))
	p := New(len(big)+10, 5, nil)
	diffs := map[string]string{
		"big.txt":    big,
		"small1.txt": diffFor("small1.txt", "+a"),
		"small2.txt": diffFor("small2.txt", "+b"),
	}

	units := p.Partition(diffs)

	require.Greater(t, len(units), 1)
	for _, u := range units {
		assert.False(t, u.IsDependencyGroup)
		assert.LessOrEqual(t, u.ByteSize, len(big)+10+1) // +1 per joined newline
	}
}

func TestPartitionDirectoryFallback(t *testing.T) {
	p := New(0, 0, nil) // default target merges all singletons into one unit
	diffs := map[string]string{
		"api/handler.txt":  diffFor("api/handler.txt", "+request plumbing"),
		"store/driver.txt": diffFor("store/driver.txt", "+storage plumbing"),
	}

	units := p.Partition(diffs)

	require.Len(t, units, 2)
	assert.Contains(t, units[0].Title, "Directory")
}

func TestPartitionChunkFallback(t *testing.T) {
	p := New(0, 2, nil)
	diffs := map[string]string{
		"pkg/a.txt": diffFor("pkg/a.txt", "+one"),
		"pkg/b.txt": diffFor("pkg/b.txt", "+two"),
		"pkg/c.txt": diffFor("pkg/c.txt", "+three"),
		"pkg/d.txt": diffFor("pkg/d.txt", "+four"),
	}

	units := p.Partition(diffs)

	require.Len(t, units, 2)
	for _, u := range units {
		assert.Len(t, u.Files, 2)
	}
}

func TestPartitionDeterminism(t *testing.T) {
	p := New(0, 0, nil)
	diffs := map[string]string{
		"x/a.txt": diffFor("x/a.txt", "+aa"),
		"y/b.txt": diffFor("y/b.txt", "+bb"),
		"z/c.txt": diffFor("z/c.txt", "+cc"),
	}

	first := p.Partition(diffs)
	second := p.Partition(diffs)
	assert.Equal(t, first, second)
}

func TestPartitionEmpty(t *testing.T) {
	p := New(0, 0, nil)
	assert.Nil(t, p.Partition(map[string]string{}))
}

func TestChangedDefinitions(t *testing.T) {
	tests := []struct {
		name     string
		diff     string
		expected []changedDef
	}{
		{
			name:     "go function added",
			diff:     "+func ParseHeader(b []byte) error {",
			expected: []changedDef{{Name: "ParseHeader", Kind: "function"}},
		},
		{
			name:     "go method added",
			diff:     "+func (s *Server) Start(ctx context.Context) error {",
			expected: []changedDef{{Name: "Start", Kind: "function"}},
		},
		{
			name:     "python def deleted",
			diff:     "-def compute_total(items):",
			expected: []changedDef{{Name: "compute_total", Kind: "function"}},
		},
		{
			name:     "typescript class",
			diff:     "+export class RetryPolicy {",
			expected: []changedDef{{Name: "RetryPolicy", Kind: "class"}},
		},
		{
			name:     "control flow keyword ignored",
			diff:     "+    if (ready) {",
			expected: nil,
		},
		{
			name:     "context line ignored",
			diff:     " def compute_total(items):",
			expected: nil,
		},
		{
			name:     "file header ignored",
			diff:     "+++ b/def.py",
			expected: nil,
		},
		{
			name:     "duplicate name reported once",
			diff:     "-def load(path):\n+def load(path, strict=False):",
			expected: []changedDef{{Name: "load", Kind: "function"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, changedDefinitions(tt.diff))
		})
	}
}

func TestUnionFind(t *testing.T) {
	uf := newUnionFind([]string{"a", "b", "c", "d", "e"})
	uf.Union("a", "b")
	uf.Union("b", "c")
	uf.Union("d", "e")

	assert.Equal(t, uf.Find("a"), uf.Find("c"))
	assert.NotEqual(t, uf.Find("a"), uf.Find("d"))

	groups := uf.Groups()
	require.Len(t, groups, 2)
	assert.Equal(t, []string{"a", "b", "c"}, groups[0])
	assert.Equal(t, []string{"d", "e"}, groups[1])
}
