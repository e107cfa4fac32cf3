package partition

import "sort"

// unionFind is a disjoint-set over file paths with path compression.
type unionFind struct {
	parent map[string]string
	rank   map[string]int
}

func newUnionFind(items []string) *unionFind {
	uf := &unionFind{
		parent: make(map[string]string, len(items)),
		rank:   make(map[string]int, len(items)),
	}
	for _, item := range items {
		uf.parent[item] = item
	}
	return uf
}

func (uf *unionFind) Find(x string) string {
	root := x
	for uf.parent[root] != root {
		root = uf.parent[root]
	}
	for uf.parent[x] != root {
		uf.parent[x], x = root, uf.parent[x]
	}
	return root
}

func (uf *unionFind) Union(a, b string) {
	ra, rb := uf.Find(a), uf.Find(b)
	if ra == rb {
		return
	}
	if uf.rank[ra] < uf.rank[rb] {
		ra, rb = rb, ra
	}
	uf.parent[rb] = ra
	if uf.rank[ra] == uf.rank[rb] {
		uf.rank[ra]++
	}
}

// Groups returns the connected components, each sorted, ordered by their
// first member so output is deterministic.
func (uf *unionFind) Groups() [][]string {
	byRoot := make(map[string][]string)
	for item := range uf.parent {
		root := uf.Find(item)
		byRoot[root] = append(byRoot[root], item)
	}

	groups := make([][]string, 0, len(byRoot))
	for _, members := range byRoot {
		sort.Strings(members)
		groups = append(groups, members)
	}
	sort.Slice(groups, func(i, j int) bool {
		return groups[i][0] < groups[j][0]
	})
	return groups
}
