package tree

import "math"

type nodeIdx uint32

// nilIdx is the empty link. Slot 0 of the arena is never handed out and
// never written, so it reads as a BLACK node without children.
const nilIdx nodeIdx = 0

type rbNode[T any] struct {
	parent nodeIdx
	left   nodeIdx
	right  nodeIdx
	color  RBColor
	inUse  bool
	val    T
}

// rbArena stores every node of one tree in a single slice. Links are slot
// indices, so growing the slice never leaves a dangling reference behind.
type rbArena[T any] struct {
	nodes    []rbNode[T]
	free     []nodeIdx
	maxNodes int64 // 0 means unbounded
}

// maxPreallocNodes caps the up-front slot reservation. The arena still
// grows past it on demand.
const maxPreallocNodes = 1 << 20

func newRBArena[T any](capacity, maxNodes int64) *rbArena[T] {
	if maxNodes < 0 {
		maxNodes = 0
	}
	if maxNodes > 0 && capacity > maxNodes {
		capacity = maxNodes
	}
	capacity = min(max(capacity, 0), maxPreallocNodes)
	return &rbArena[T]{
		nodes:    make([]rbNode[T], 1, capacity+1),
		maxNodes: maxNodes,
	}
}

func (arena *rbArena[T]) live() int64 {
	return int64(len(arena.nodes) - 1 - len(arena.free))
}

func (arena *rbArena[T]) allocate(val T) (nodeIdx, error) {
	if arena.maxNodes > 0 && arena.live() >= arena.maxNodes {
		return nilIdx, ErrRBTreeArenaExhausted
	}

	var idx nodeIdx
	if n := len(arena.free); n > 0 {
		idx = arena.free[n-1]
		arena.free = arena.free[:n-1]
	} else {
		if uint64(len(arena.nodes)) > math.MaxUint32 {
			return nilIdx, ErrRBTreeArenaExhausted
		}
		arena.nodes = append(arena.nodes, rbNode[T]{})
		idx = nodeIdx(len(arena.nodes) - 1)
	}
	arena.nodes[idx] = rbNode[T]{
		color: Red,
		inUse: true,
		val:   val,
	}
	return idx, nil
}

func (arena *rbArena[T]) release(idx nodeIdx) {
	if idx == nilIdx || !arena.nodes[idx].inUse {
		// impossible run to here
		panic( /* debug assertion */ "[rbtree] release a free arena slot")
	}
	// Zeroed to drop the value reference.
	arena.nodes[idx] = rbNode[T]{}
	arena.free = append(arena.free, idx)
}

func (arena *rbArena[T]) reset() {
	clear(arena.nodes)
	arena.nodes = make([]rbNode[T], 1)
	arena.free = nil
}
