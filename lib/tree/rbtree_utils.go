package tree

import (
	"errors"

	"go.uber.org/multierr"
)

// rbtree rule validation utilities.

// References:
// https://github1s.com/minghu6/rust-minghu6/blob/master/coll_st/src/bst/rb.rs

var (
	ErrRBTreeRedViolation   = errors.New("rbtree red violation")
	ErrRBTreeBlackViolation = errors.New("rbtree black violation")
	ErrRBTreeRootViolation  = errors.New("rbtree root is not black")
	ErrRBTreeOrderViolation = errors.New("rbtree order violation")
	ErrRBTreeLinkViolation  = errors.New("rbtree parent link violation")
	ErrRBTreeSizeViolation  = errors.New("rbtree size violation")
)

func isRedNode[T any](node RBNode[T]) bool {
	return node != nil && node.Color() == Red
}

// Inorder traversal to validate no red node has a red child.
func RedViolationValidate[T any](tree OrderedTree[T]) error {
	aux := tree.Root()
	if aux == nil {
		return nil
	}
	if aux.Color() != Black {
		return ErrRBTreeRootViolation
	}

	stack := make([]RBNode[T], 0, 64)
	for ; aux != nil; aux = aux.Left() {
		stack = append(stack, aux)
	}
	for size := len(stack); size > 0; size = len(stack) {
		aux = stack[size-1]
		stack = stack[:size-1]
		if isRedNode(aux) && (isRedNode(aux.Left()) || isRedNode(aux.Right())) {
			return ErrRBTreeRedViolation
		}
		for aux = aux.Right(); aux != nil; aux = aux.Left() {
			stack = append(stack, aux)
		}
	}
	return nil
}

/*
<X> is a RED node.
[X] is a BLACK node (or NIL).

	        [13]
			/  \
		 <8>    [15]
		 / \    /  \
	  [6] [11] [14] [17]
	  /              /
	<1>            [16]

Every path from a node down to a NIL leaf passes the same number of
black nodes.
*/
func BlackViolationValidate[T any](tree OrderedTree[T]) error {
	if _, err := blackHeight(tree.Root()); err != nil {
		return err
	}
	return nil
}

// blackHeight counts the NIL leaf as one black node.
func blackHeight[T any](node RBNode[T]) (int, error) {
	if node == nil {
		return 1, nil
	}
	l, err := blackHeight(node.Left())
	if err != nil {
		return 0, err
	}
	r, err := blackHeight(node.Right())
	if err != nil {
		return 0, err
	}
	if l != r {
		return 0, ErrRBTreeBlackViolation
	}
	if node.Color() == Black {
		l++
	}
	return l, nil
}

// OrderViolationValidate checks that the inorder sequence is strictly
// ascending and every child links back to its parent.
func OrderViolationValidate[T any](tree OrderedTree[T], cmp Comparator[T]) error {
	root := tree.Root()
	if root == nil {
		return nil
	}
	if root.Parent() != nil {
		return ErrRBTreeLinkViolation
	}

	var (
		prev    T
		hasPrev bool
	)
	stack := make([]RBNode[T], 0, 64)
	for aux := root; aux != nil; aux = aux.Left() {
		stack = append(stack, aux)
	}
	for size := len(stack); size > 0; size = len(stack) {
		aux := stack[size-1]
		stack = stack[:size-1]
		if hasPrev && cmp(prev, aux.Val()) >= 0 {
			return ErrRBTreeOrderViolation
		}
		prev, hasPrev = aux.Val(), true

		for _, c := range []RBNode[T]{aux.Left(), aux.Right()} {
			if c != nil && (c.Parent() == nil || cmp(c.Parent().Val(), aux.Val()) != 0) {
				return ErrRBTreeLinkViolation
			}
		}
		for aux = aux.Right(); aux != nil; aux = aux.Left() {
			stack = append(stack, aux)
		}
	}
	return nil
}

func SizeViolationValidate[T any](tree OrderedTree[T]) error {
	n := int64(0)
	stack := make([]RBNode[T], 0, 64)
	if root := tree.Root(); root != nil {
		stack = append(stack, root)
	}
	for size := len(stack); size > 0; size = len(stack) {
		aux := stack[size-1]
		stack = stack[:size-1]
		n++
		if l := aux.Left(); l != nil {
			stack = append(stack, l)
		}
		if r := aux.Right(); r != nil {
			stack = append(stack, r)
		}
	}
	if n != tree.Len() {
		return ErrRBTreeSizeViolation
	}
	return nil
}

// Validate checks every red-black tree invariant at once.
func Validate[T any](tree OrderedTree[T], cmp Comparator[T]) error {
	return multierr.Combine(
		RedViolationValidate(tree),
		BlackViolationValidate(tree),
		OrderViolationValidate(tree, cmp),
		SizeViolationValidate(tree),
	)
}
