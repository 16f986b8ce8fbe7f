package tree

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRBArena(t *testing.T) {
	arena := newRBArena[string](-1, -1)
	require.Len(t, arena.nodes, 1)
	require.Zero(t, arena.live())

	a, err := arena.allocate("a")
	require.NoError(t, err)
	b, err := arena.allocate("b")
	require.NoError(t, err)
	require.Equal(t, nodeIdx(1), a)
	require.Equal(t, nodeIdx(2), b)
	require.Equal(t, Red, arena.nodes[a].color)
	require.True(t, arena.nodes[a].inUse)
	require.Equal(t, int64(2), arena.live())

	arena.release(a)
	require.Equal(t, int64(1), arena.live())
	require.Empty(t, arena.nodes[a].val)
	require.Panics(t, func() {
		arena.release(a)
	})
	require.Panics(t, func() {
		arena.release(nilIdx)
	})

	c, err := arena.allocate("c")
	require.NoError(t, err)
	require.Equal(t, a, c)
	require.Equal(t, "c", arena.nodes[c].val)

	arena.maxNodes = 2
	_, err = arena.allocate("d")
	require.ErrorIs(t, err, ErrRBTreeArenaExhausted)
	require.Len(t, arena.nodes, 3)

	arena.reset()
	require.Len(t, arena.nodes, 1)
	require.Empty(t, arena.free)
	require.Zero(t, arena.live())
	// The sentinel slot is never written.
	require.Equal(t, rbNode[string]{}, arena.nodes[nilIdx])
}

func TestRBArena_Prealloc(t *testing.T) {
	testcases := []struct {
		name     string
		capacity int64
		maxNodes int64
		wantCap  int
	}{
		{name: "unbounded", capacity: 16, maxNodes: 0, wantCap: 17},
		{name: "bounded by max nodes", capacity: 1 << 40, maxNodes: 8, wantCap: 9},
		{name: "clamped", capacity: 1 << 40, maxNodes: 0, wantCap: maxPreallocNodes + 1},
		{name: "negative", capacity: -5, maxNodes: -5, wantCap: 1},
	}
	for _, tc := range testcases {
		t.Run(tc.name, func(tt *testing.T) {
			arena := newRBArena[int](tc.capacity, tc.maxNodes)
			require.Len(tt, arena.nodes, 1)
			require.Equal(tt, tc.wantCap, cap(arena.nodes))
			require.GreaterOrEqual(tt, arena.maxNodes, int64(0))
		})
	}
}
