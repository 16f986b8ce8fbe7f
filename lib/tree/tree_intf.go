package tree

import "errors"

// go install golang.org/x/tools/cmd/stringer@latest

//go:generate stringer -type=RBColor
type RBColor uint8

const (
	Black RBColor = iota
	Red
)

//go:generate stringer -type=RBDirection
type RBDirection int8

const (
	Left RBDirection = -1 + iota
	Root
	Right
)

var (
	ErrRBTreeNilComparator  = errors.New("[rbtree] comparator is required")
	ErrRBTreeNilDestructor  = errors.New("[rbtree] destructor is required")
	ErrRBTreeDuplicateVal   = errors.New("[rbtree] value already present")
	ErrRBTreeValNotFound    = errors.New("[rbtree] value not found")
	ErrRBTreeEmpty          = errors.New("[rbtree] empty element to remove")
	ErrRBTreeArenaExhausted = errors.New("[rbtree] node arena exhausted")
	ErrRBTreeReleased       = errors.New("[rbtree] tree has been released")
)

// Comparator returns negative, zero or positive when a is less than,
// equal to or greater than b. It must be a strict total order that never
// changes during the tree's lifetime.
type Comparator[T any] func(a, b T) int64

// Destructor releases whatever val owns. The tree invokes it exactly once
// per value it gives up, and it must not panic.
type Destructor[T any] func(val T)

// NopDestructor is for values that own no resources.
func NopDestructor[T any]() Destructor[T] {
	return func(T) {}
}

// Visitor returns false to stop the traversal.
type Visitor[T any] interface {
	Visit(idx int64, val T) bool
}

type VisitorFunc[T any] func(idx int64, val T) bool

func (fn VisitorFunc[T]) Visit(idx int64, val T) bool {
	return fn(idx, val)
}

// RBNode is a read-only view of a tree node. Views are invalidated by
// the next mutation of the tree.
type RBNode[T any] interface {
	Val() T
	Color() RBColor
	Left() RBNode[T]
	Right() RBNode[T]
	Parent() RBNode[T]
}

// OrderedTree is a red-black tree owning the values inserted into it.
// It is not safe for concurrent use; callers serialize every call,
// reads included.
type OrderedTree[T any] interface {
	Len() int64
	Root() RBNode[T]
	Insert(val T) error
	Remove(val T) error
	RemoveMin() (T, error)
	Contains(val T) bool
	Get(key T) (T, bool)
	Min() (T, bool)
	Max() (T, bool)
	Foreach(visitor Visitor[T]) bool
	Values() []T
	Release()
}
