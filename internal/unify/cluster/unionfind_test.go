package cluster

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnionFind_Components(t *testing.T) {
	uf := NewUnionFind([]int64{1, 2, 3, 4, 5, 6})

	assert.True(t, uf.Union(1, 2))
	assert.True(t, uf.Union(2, 3))
	assert.False(t, uf.Union(3, 1)) // already connected
	assert.True(t, uf.Union(5, 4))

	got := uf.Components(2)
	require.Len(t, got, 2)
	assert.Equal(t, []int64{1, 2, 3}, got[0])
	assert.Equal(t, []int64{4, 5}, got[1])

	// 6 is a singleton and is not materialized.
	for _, members := range got {
		assert.NotContains(t, members, int64(6))
	}
}

func TestUnionFind_UnknownID(t *testing.T) {
	uf := NewUnionFind([]int64{1, 2})
	assert.False(t, uf.Union(1, 99))
	assert.False(t, uf.SameSet(1, 99))
}

func TestUnionFind_OrderIndependent(t *testing.T) {
	ids := []int64{10, 20, 30, 40, 50, 60, 70, 80}
	pairs := [][2]int64{{10, 20}, {20, 30}, {40, 50}, {60, 70}, {70, 80}, {30, 10}}

	baseline := func() [][]int64 {
		uf := NewUnionFind(ids)
		for _, p := range pairs {
			uf.Union(p[0], p[1])
		}
		return uf.Components(2)
	}()

	rng := rand.New(rand.NewSource(7))
	for trial := 0; trial < 25; trial++ {
		shuffled := make([][2]int64, len(pairs))
		copy(shuffled, pairs)
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

		uf := NewUnionFind(ids)
		for _, p := range shuffled {
			uf.Union(p[0], p[1])
		}
		assert.Equal(t, baseline, uf.Components(2), "trial %d", trial)
	}
}

func TestUnionFind_DuplicateIDsCollapse(t *testing.T) {
	uf := NewUnionFind([]int64{1, 1, 2})
	assert.True(t, uf.Union(1, 2))
	got := uf.Components(2)
	require.Len(t, got, 1)
	assert.Equal(t, []int64{1, 2}, got[0])
}
