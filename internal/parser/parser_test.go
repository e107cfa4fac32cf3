package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"diffscope/internal/types"
)

func testRegistry(t *testing.T) *Registry {
	t.Helper()
	registry, err := NewRegistry()
	require.NoError(t, err)
	return registry
}

func findDef(defs []types.Definition, name string) *types.Definition {
	for i := range defs {
		if defs[i].Name == name {
			return &defs[i]
		}
	}
	return nil
}

func TestParseGoFile(t *testing.T) {
	src := []byte(`package store

// Store persists rows.
type Store struct {
	path string
}

type Reader interface {
	Read(key string) ([]byte, error)
}

var DefaultLimit = 100

func Open(path string) (*Store, error) {
	return &Store{path: path}, nil
}

func (s *Store) Get(key string, strict bool) ([]byte, error) {
	return nil, nil
}
`)

	defs := testRegistry(t).ParseFile("store.go", src)

	store := findDef(defs, "Store")
	require.NotNil(t, store)
	assert.Equal(t, types.KindStruct, store.Kind)

	reader := findDef(defs, "Reader")
	require.NotNil(t, reader)
	assert.Equal(t, types.KindInterface, reader.Kind)

	limit := findDef(defs, "DefaultLimit")
	require.NotNil(t, limit)
	assert.Equal(t, types.KindVariable, limit.Kind)

	open := findDef(defs, "Open")
	require.NotNil(t, open)
	assert.Equal(t, types.KindFunction, open.Kind)
	assert.Equal(t, []string{"path string"}, open.Params)
	assert.Equal(t, "(*Store, error)", open.ReturnType)
	assert.Equal(t, 14, open.StartLine)
	assert.Equal(t, 16, open.EndLine)

	get := findDef(defs, "Get")
	require.NotNil(t, get)
	assert.Equal(t, types.KindMethod, get.Kind)
	assert.Equal(t, "Store", get.Enclosing)
}

func TestParsePythonFile(t *testing.T) {
	src := []byte(`MAX_RETRIES = 5


class Cache:
    """In-memory cache with eviction."""

    def get(self, key, default=None):
        """Look up a key."""
        return self._items.get(key, default)


def make_cache(size: int) -> Cache:
    return Cache(size)
`)

	defs := testRegistry(t).ParseFile("cache.py", src)

	retries := findDef(defs, "MAX_RETRIES")
	require.NotNil(t, retries)
	assert.Equal(t, types.KindVariable, retries.Kind)

	cache := findDef(defs, "Cache")
	require.NotNil(t, cache)
	assert.Equal(t, types.KindClass, cache.Kind)
	assert.Equal(t, "In-memory cache with eviction.", cache.Doc)

	get := findDef(defs, "get")
	require.NotNil(t, get)
	assert.Equal(t, types.KindMethod, get.Kind)
	assert.Equal(t, "Cache", get.Enclosing)
	assert.Equal(t, []string{"key", "default"}, get.Params)
	assert.Equal(t, "Look up a key.", get.Doc)

	mk := findDef(defs, "make_cache")
	require.NotNil(t, mk)
	assert.Equal(t, types.KindFunction, mk.Kind)
	assert.Empty(t, mk.Enclosing)
	assert.Equal(t, "Cache", mk.ReturnType)
}

func TestParseUnsupportedExtensionUsesRegexFallback(t *testing.T) {
	src := []byte(`function applyDiscount(order, rate) {
  return order.total * rate;
}
`)

	defs := testRegistry(t).ParseFile("checkout.js", src)

	fn := findDef(defs, "applyDiscount")
	require.NotNil(t, fn)
	assert.Equal(t, types.KindFunction, fn.Kind)
	// Regex parsing knows the declaration line, not the block extent.
	assert.Equal(t, fn.StartLine, fn.EndLine)
}

func TestParseMalformedInputDoesNotFail(t *testing.T) {
	defs := testRegistry(t).ParseFile("broken.go", []byte("func func func ((("))
	// Whatever the grammar salvages is acceptable; no panic, no error path.
	_ = defs
}

func TestSupportedLanguages(t *testing.T) {
	langs := testRegistry(t).SupportedLanguages()
	assert.ElementsMatch(t, []string{"Go", "Python", "Java", "TypeScript", "C"}, langs)
}

func TestSplitParams(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected []string
	}{
		{"empty", "()", nil},
		{"go pair", "(path string)", []string{"path string"}},
		{"nested generics", "(m map[string]int, fn func(a, b int) error)", []string{"m map[string]int", "fn func(a, b int) error"}},
		{"python defaults stripped", "(self, key, default=None)", []string{"key", "default"}},
		{"annotations stripped", "(size: int, strict: bool = False)", []string{"size", "strict"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, splitParams(tt.raw))
		})
	}
}

func TestReceiverType(t *testing.T) {
	tests := []struct {
		recv     string
		expected string
	}{
		{"(s *Server)", "Server"},
		{"(c Cache)", "Cache"},
		{"(q *Queue[T])", "Queue"},
		{"()", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, receiverType(tt.recv))
	}
}
