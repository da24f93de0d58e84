// Package cluster groups duplicate canonical employers into connected
// components from the active edges of the match ledger.
package cluster

import "sort"

// UnionFind is an array-backed disjoint-set over a fixed arena of employer
// IDs. IDs are mapped to contiguous indices up front so find/union work on
// plain int slices with path compression and union by size.
type UnionFind struct {
	ids    []int64
	index  map[int64]int
	parent []int
	size   []int
}

// NewUnionFind builds the arena for the given employer IDs. Duplicate IDs
// collapse to one slot.
func NewUnionFind(ids []int64) *UnionFind {
	u := &UnionFind{index: make(map[int64]int, len(ids))}
	for _, id := range ids {
		if _, ok := u.index[id]; ok {
			continue
		}
		u.index[id] = len(u.ids)
		u.ids = append(u.ids, id)
		u.parent = append(u.parent, len(u.parent))
		u.size = append(u.size, 1)
	}
	return u
}

func (u *UnionFind) find(i int) int {
	for u.parent[i] != i {
		u.parent[i] = u.parent[u.parent[i]] // path halving
		i = u.parent[i]
	}
	return i
}

// Union merges the sets containing a and b. It reports false when either ID
// is outside the arena or both are already in the same set.
func (u *UnionFind) Union(a, b int64) bool {
	ia, ok := u.index[a]
	if !ok {
		return false
	}
	ib, ok := u.index[b]
	if !ok {
		return false
	}

	ra, rb := u.find(ia), u.find(ib)
	if ra == rb {
		return false
	}
	if u.size[ra] < u.size[rb] {
		ra, rb = rb, ra
	}
	u.parent[rb] = ra
	u.size[ra] += u.size[rb]
	return true
}

// SameSet reports whether a and b are in the same component.
func (u *UnionFind) SameSet(a, b int64) bool {
	ia, ok := u.index[a]
	if !ok {
		return false
	}
	ib, ok := u.index[b]
	if !ok {
		return false
	}
	return u.find(ia) == u.find(ib)
}

// Components returns every component with at least minSize members. Members
// are sorted ascending and components are ordered by their smallest member,
// so the result is identical regardless of union order.
func (u *UnionFind) Components(minSize int) [][]int64 {
	byRoot := make(map[int][]int64)
	for i := range u.ids {
		root := u.find(i)
		byRoot[root] = append(byRoot[root], u.ids[i])
	}

	var out [][]int64
	for _, members := range byRoot {
		if len(members) < minSize {
			continue
		}
		sort.Slice(members, func(i, j int) bool { return members[i] < members[j] })
		out = append(out, members)
	}
	sort.Slice(out, func(i, j int) bool { return out[i][0] < out[j][0] })
	return out
}
