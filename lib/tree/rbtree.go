package tree

import (
	"math/bits"

	"go.uber.org/zap"

	"github.com/benz9527/xordtree/lib/infra"
)

// Logger is satisfied by xlog.XLogger and *zap.Logger.
type Logger interface {
	Debug(msg string, fields ...zap.Field)
	Warn(msg string, fields ...zap.Field)
}

type rbNodeView[T any] struct {
	tree *orderedTree[T]
	idx  nodeIdx
}

func (v *rbNodeView[T]) Val() T {
	return v.tree.node(v.idx).val
}

func (v *rbNodeView[T]) Color() RBColor {
	return v.tree.node(v.idx).color
}

func (v *rbNodeView[T]) Left() RBNode[T] {
	return v.tree.view(v.tree.node(v.idx).left)
}

func (v *rbNodeView[T]) Right() RBNode[T] {
	return v.tree.view(v.tree.node(v.idx).right)
}

func (v *rbNodeView[T]) Parent() RBNode[T] {
	return v.tree.view(v.tree.node(v.idx).parent)
}

type orderedTree[T any] struct {
	arena          *rbArena[T]
	root           nodeIdx
	count          int64
	cmp            Comparator[T]
	destructor     Destructor[T]
	logger         Logger
	stats          *rbTreeStats
	statsName      string
	isStatsEnabled bool
	released       bool
	capacity       int64
	maxNodes       int64
}

func (tree *orderedTree[T]) node(idx nodeIdx) *rbNode[T] {
	return &tree.arena.nodes[idx]
}

func (tree *orderedTree[T]) view(idx nodeIdx) RBNode[T] {
	if idx == nilIdx {
		return nil
	}
	return &rbNodeView[T]{tree: tree, idx: idx}
}

func (tree *orderedTree[T]) isRed(idx nodeIdx) bool {
	return idx != nilIdx && tree.node(idx).color == Red
}

func (tree *orderedTree[T]) isBlack(idx nodeIdx) bool {
	return !tree.isRed(idx)
}

func (tree *orderedTree[T]) direction(idx nodeIdx) RBDirection {
	p := tree.node(idx).parent
	if p == nilIdx {
		return Root
	}
	if tree.node(p).left == idx {
		return Left
	}
	return Right
}

func (tree *orderedTree[T]) child(idx nodeIdx, dir RBDirection) nodeIdx {
	switch dir {
	case Left:
		return tree.node(idx).left
	case Right:
		return tree.node(idx).right
	default:
		// impossible run to here
		panic( /* debug assertion */ "[rbtree] root is not a child direction")
	}
}

func (tree *orderedTree[T]) minimum(idx nodeIdx) nodeIdx {
	for l := tree.node(idx).left; l != nilIdx; l = tree.node(idx).left {
		idx = l
	}
	return idx
}

func (tree *orderedTree[T]) maximum(idx nodeIdx) nodeIdx {
	for r := tree.node(idx).right; r != nilIdx; r = tree.node(idx).right {
		idx = r
	}
	return idx
}

// replaceChild points the parent slot that held old at n.
func (tree *orderedTree[T]) replaceChild(parent, old, n nodeIdx) {
	switch {
	case parent == nilIdx:
		tree.root = n
	case tree.node(parent).left == old:
		tree.node(parent).left = n
	default:
		tree.node(parent).right = n
	}
}

func (tree *orderedTree[T]) search(val T) nodeIdx {
	for x := tree.root; x != nilIdx; {
		res := tree.cmp(val, tree.node(x).val)
		if /* equal */ res == 0 {
			return x
		} else /* less */ if res < 0 {
			x = tree.node(x).left
		} else /* greater */ {
			x = tree.node(x).right
		}
	}
	return nilIdx
}

func (tree *orderedTree[T]) Len() int64 {
	return tree.count
}

func (tree *orderedTree[T]) Root() RBNode[T] {
	if tree.released {
		return nil
	}
	return tree.view(tree.root)
}

// References:
// https://elixir.bootlin.com/linux/latest/source/lib/rbtree.c
// rbtree properties:
// https://en.wikipedia.org/wiki/Red%E2%80%93black_tree#Properties
// p1. Every node is either red or black.
// p2. All NIL nodes are considered black.
// p3. A red node does not have a red child. (red-violation)
// p4. Every path from a given node to any of its descendant
//   NIL nodes goes through the same number of black nodes. (black-violation)
// p5. The root is black.

/*
		 |                         |
		 X                         S
		/ \     leftRotate(X)     / \
	   L   S    ============>    X   Sd
		  / \                   / \
		Sc   Sd                L   Sc
*/
func (tree *orderedTree[T]) leftRotate(x nodeIdx) {
	xn := tree.node(x)
	y := xn.right
	if x == nilIdx || y == nilIdx {
		// impossible run to here
		panic( /* debug assertion */ "[rbtree] left rotate node x is nil or x.right is nil")
	}

	yn := tree.node(y)
	xn.right = yn.left
	if yn.left != nilIdx {
		tree.node(yn.left).parent = x
	}
	yn.parent = xn.parent
	tree.replaceChild(xn.parent, x, y)
	yn.left = x
	xn.parent = y
	tree.stats.IncreaseRotateCount()
}

/*
			 |                         |
			 X                         L
			/ \     rightRotate(X)    / \
	       L   S    ============>   Lc   X
		  / \                           / \
		Lc   Ld                        Ld  S
*/
func (tree *orderedTree[T]) rightRotate(x nodeIdx) {
	xn := tree.node(x)
	y := xn.left
	if x == nilIdx || y == nilIdx {
		// impossible run to here
		panic( /* debug assertion */ "[rbtree] right rotate node x is nil or x.left is nil")
	}

	yn := tree.node(y)
	xn.left = yn.right
	if yn.right != nilIdx {
		tree.node(yn.right).parent = x
	}
	yn.parent = xn.parent
	tree.replaceChild(xn.parent, x, y)
	yn.right = x
	xn.parent = y
	tree.stats.IncreaseRotateCount()
}

// rotate moves x one level down on the dir side.
func (tree *orderedTree[T]) rotate(x nodeIdx, dir RBDirection) {
	switch dir {
	case Left:
		tree.leftRotate(x)
	case Right:
		tree.rightRotate(x)
	default:
		// impossible run to here
		panic( /* debug assertion */ "[rbtree] unknown direction to rotate")
	}
}

// Insert rejects a value that compares equal to a stored one with
// ErrRBTreeDuplicateVal. The tree owns val only when nil is returned.
func (tree *orderedTree[T]) Insert(val T) error {
	if tree.released {
		return ErrRBTreeReleased
	}

	var (
		y   = nilIdx
		res int64
	)
	for x := tree.root; x != nilIdx; {
		y = x
		if res = tree.cmp(val, tree.node(x).val); /* equal */ res == 0 {
			tree.debug("[rbtree] insert rejected, value already present", val)
			tree.stats.IncreaseInsertCount(opResultDuplicate)
			return ErrRBTreeDuplicateVal
		} else /* less */ if res < 0 {
			x = tree.node(x).left
		} else /* greater */ {
			x = tree.node(x).right
		}
	}

	// Nothing is linked before the slot is secured.
	z, err := tree.arena.allocate(val)
	if err != nil {
		if tree.logger != nil {
			tree.logger.Warn("[rbtree] insert failed",
				zap.Error(err),
				zap.Int64("len", tree.count),
				zap.Int64("maxNodes", tree.arena.maxNodes),
			)
		}
		tree.stats.IncreaseInsertCount(opResultExhausted)
		return err
	}

	tree.node(z).parent = y
	switch {
	case /* i1 */ y == nilIdx:
		tree.root = z
	case res < 0:
		tree.node(y).left = z
	default:
		tree.node(y).right = z
	}
	tree.count++
	tree.insertRebalance(z)

	tree.stats.IncreaseInsertCount(opResultOK)
	tree.stats.RecordNodeCount(1)
	return nil
}

/*
New node X is red by default.

<X> is a RED node.
[X] is a BLACK node (or NIL).

im1: Current node X's parent P is black. Nothing to fix.

im2: Current node X's parent P is red and P is root, repaint P into black.

im3: Both the parent P and the uncle U are red, grandpa G is black.
(red-violation)
After repainted G into red may be still red-violation.
Loop to fix grandpa.

	    [G]             <G>
	    / \             / \
	  <P> <U>  ====>  [P] [U]
	  /               /
	<X>             <X>

im4: The parent P is red but the uncle U is black. (red-violation)
X is the inner grandchild. Rotate P to straighten the shape,
then P and X swap roles and im5 fixes it.

	  [G]                 [G]
	  / \    rotate(P)    / \
	<P> [U]  ========>  <X> [U]
	  \                 /
	  <X>             <P>

im5: X is the outer grandchild.

	    [G]                 <P>               [P]
	    / \    rotate(G)    / \    repaint    / \
	  <P> [U]  ========>  <X> [G]  ======>  <X> <G>
	  /                         \                 \
	<X>                         [U]               [U]
*/
func (tree *orderedTree[T]) insertRebalance(x nodeIdx) {
	for /* im1 */ tree.isRed(tree.node(x).parent) {
		p := tree.node(x).parent
		if /* im2 */ p == tree.root {
			tree.node(p).color = Black
			break
		}

		gp := tree.node(p).parent
		dir := tree.direction(p)
		uncle := tree.child(gp, -dir)
		if /* im3 */ tree.isRed(uncle) {
			tree.node(p).color = Black
			tree.node(uncle).color = Black
			tree.node(gp).color = Red
			x = gp
			continue
		}

		if /* im4 */ tree.direction(x) != dir {
			tree.rotate(p, dir)
			x, p = p, x
		}

		/* im5 */
		tree.node(p).color = Black
		tree.node(gp).color = Red
		tree.rotate(gp, -dir)
		break
	}
	tree.node(tree.root).color = Black
}

// Remove destroys the stored value comparing equal to val.
func (tree *orderedTree[T]) Remove(val T) error {
	if tree.released {
		return ErrRBTreeReleased
	}

	z := tree.search(val)
	if z == nilIdx {
		tree.debug("[rbtree] remove missed, value not found", val)
		tree.stats.IncreaseRemoveCount(opResultNotFound)
		return ErrRBTreeValNotFound
	}

	removed := tree.removeNode(z)
	tree.destructor(removed)
	tree.stats.IncreaseRemoveCount(opResultOK)
	tree.stats.RecordNodeCount(-1)
	return nil
}

// RemoveMin detaches the smallest value and hands its ownership back to
// the caller, so the destructor is not invoked.
func (tree *orderedTree[T]) RemoveMin() (T, error) {
	var zero T
	if tree.released {
		return zero, ErrRBTreeReleased
	}
	if tree.count <= 0 {
		return zero, ErrRBTreeEmpty
	}

	val := tree.removeNode(tree.minimum(tree.root))
	tree.stats.IncreaseRemoveCount(opResultOK)
	tree.stats.RecordNodeCount(-1)
	return val, nil
}

/*
r1: Current node Z has left and right node.
Its succ S (leftmost node of the right subtree) has no left node.
Move S's value into Z, then physically remove S instead.
Z keeps its identity, S is removed by slot, never searched again.

	  |                    |
	  Z                    S
	 / \                  / \
	L  ..   copy(S, Z)   L  ..
		|   =========>       |
		P                    P
	   / \                  / \
	  S  ..                x  ..

r2: Current node Y is red with no child, remove directly.

r3: Current node Y is black with no child, the black depth of its
position drops by one. Rebalance from the empty position. (black-violation)

r4: Current node Y has one child. The child must be a red node.
(Otherwise, black-violation) Splice it and repaint it into black.
*/
func (tree *orderedTree[T]) removeNode(z nodeIdx) T {
	removed := tree.node(z).val

	y := z
	if /* r1 */ tree.node(z).left != nilIdx && tree.node(z).right != nilIdx {
		y = tree.minimum(tree.node(z).right)
		tree.node(z).val = tree.node(y).val
	}

	yn := tree.node(y)
	child := yn.left
	if child == nilIdx {
		child = yn.right
	}
	parent := yn.parent
	tree.replaceChild(parent, y, child)
	if child != nilIdx {
		tree.node(child).parent = parent
	}

	if yn.color == Black {
		if /* r4 */ tree.isRed(child) {
			tree.node(child).color = Black
		} else /* r3 */ {
			tree.removeRebalance(child, parent)
		}
	}

	tree.arena.release(y)
	tree.count--
	return removed
}

/*
<X> is a RED node.
[X] is a BLACK node (or NIL).
{X} is either a RED node or a BLACK node.

X is the deficient position (maybe NIL), P its parent and S its sibling.
Sc is S's child on X's side (closest nephew).
Sd is S's child on the opposite side (further nephew).
The cases are checked in order: rm2/rm3, rm1, rm4, rm5.

rm2: S, Sc and Sd are black, P is red.
Repaint S into red and P into black. Done.

	  <P>             [P]
	  / \             / \
	[X] [S]  ====>  [X] <S>
	    / \             / \
	 [Sc] [Sd]       [Sc] [Sd]

rm3: P, S, Sc and Sd are all black.
Repaint S into red, the deficiency moves up to P. Loop.

	  [P]             [P]
	  / \             / \
	[X] [S]  ====>  [X] <S>
	    / \             / \
	 [Sc] [Sd]       [Sc] [Sd]

rm1: S is red, so P, Sc and Sd are black.
Repaint S into black and P into red, rotate P to X's side.
X gets a black sibling. Loop.

	  [P]                   <S>               [S]
	  / \    l-rotate(P)    / \    repaint    / \
	[X] <S>  ==========>  [P] [Sd]  ======>  <P> [Sd]
	    / \               / \               / \
	 [Sc] [Sd]          [X] [Sc]          [X] [Sc]

rm4: S is black, Sc is red and Sd is black.
Repaint Sc into black and S into red, rotate S away from X. Loop, rm5 follows.

	  {P}                   {P}
	  / \    r-rotate(S)    / \
	[X] [S]  ==========>  [X] [Sc]
	    / \                     \
	  <Sc> [Sd]                 <S>
	                              \
	                              [Sd]

rm5: S is black and Sd is red.
Swap P and S's color, rotate P to X's side, repaint Sd into black. Done.

	  {P}                   {S}
	  / \    l-rotate(P)    / \
	[X] [S]  ==========>  [P] [Sd]
	    / \               / \
	 {Sc} <Sd>          [X] {Sc}
*/
func (tree *orderedTree[T]) removeRebalance(x, parent nodeIdx) {
	for x != tree.root && tree.isBlack(x) {
		dir := Left
		if tree.node(parent).left != x {
			dir = Right
		}
		sibling := tree.child(parent, -dir)
		if sibling == nilIdx {
			// impossible run to here
			panic( /* debug assertion */ "[rbtree] black deficient position without sibling")
		}
		sc, sd := tree.child(sibling, dir), tree.child(sibling, -dir)

		switch {
		case tree.isBlack(sibling) && tree.isBlack(sc) && tree.isBlack(sd):
			tree.node(sibling).color = Red
			if /* rm2 */ tree.isRed(parent) {
				tree.node(parent).color = Black
				return
			}
			/* rm3 */
			x, parent = parent, tree.node(parent).parent
		case /* rm1 */ tree.isRed(sibling):
			tree.node(sibling).color = Black
			tree.node(parent).color = Red
			tree.rotate(parent, dir)
		case /* rm4 */ tree.isRed(sc) && tree.isBlack(sd):
			tree.node(sc).color = Black
			tree.node(sibling).color = Red
			tree.rotate(sibling, -dir)
		default /* rm5 */ :
			tree.node(sibling).color = tree.node(parent).color
			tree.node(parent).color = Black
			tree.node(sd).color = Black
			tree.rotate(parent, dir)
			return
		}
	}
}

func (tree *orderedTree[T]) Contains(val T) bool {
	if tree.released {
		return false
	}
	return tree.search(val) != nilIdx
}

// Get returns the stored value comparing equal to key.
func (tree *orderedTree[T]) Get(key T) (T, bool) {
	var zero T
	if tree.released {
		return zero, false
	}
	if x := tree.search(key); x != nilIdx {
		return tree.node(x).val, true
	}
	return zero, false
}

func (tree *orderedTree[T]) Min() (T, bool) {
	var zero T
	if tree.released || tree.root == nilIdx {
		return zero, false
	}
	return tree.node(tree.minimum(tree.root)).val, true
}

func (tree *orderedTree[T]) Max() (T, bool) {
	var zero T
	if tree.released || tree.root == nilIdx {
		return zero, false
	}
	return tree.node(tree.maximum(tree.root)).val, true
}

// Foreach is an inorder traversal to implement the DFS.
// It reports whether every value was visited. The visitor must not
// mutate the tree.
func (tree *orderedTree[T]) Foreach(visitor Visitor[T]) bool {
	if tree.released || visitor == nil {
		return false
	}

	// The height of a red-black tree is at most 2*log2(n+1).
	stack := make([]nodeIdx, 0, 2*bits.Len64(uint64(tree.count))+1)
	for aux := tree.root; aux != nilIdx; aux = tree.node(aux).left {
		stack = append(stack, aux)
	}

	idx := int64(0)
	for size := len(stack); size > 0; size = len(stack) {
		aux := stack[size-1]
		stack = stack[:size-1]
		if !visitor.Visit(idx, tree.node(aux).val) {
			return false
		}
		idx++
		for aux = tree.node(aux).right; aux != nilIdx; aux = tree.node(aux).left {
			stack = append(stack, aux)
		}
	}
	return true
}

// Values exports an ascending snapshot of the stored values.
func (tree *orderedTree[T]) Values() []T {
	if tree.released {
		return nil
	}
	values := make([]T, 0, tree.count)
	tree.Foreach(VisitorFunc[T](func(_ int64, val T) bool {
		values = append(values, val)
		return true
	}))
	return values
}

// Release runs the destructor once per stored value in post-order and
// drops every node. The tree is unusable afterwards.
func (tree *orderedTree[T]) Release() {
	if tree.released {
		return
	}
	tree.released = true

	released := tree.count
	if tree.root != nilIdx {
		stack := make([]nodeIdx, 0, 2*bits.Len64(uint64(tree.count))+1)
		stack = append(stack, tree.root)
		for size := len(stack); size > 0; size = len(stack) {
			aux := stack[size-1]
			n := tree.node(aux)
			// Children are cut while descending, so each node is pushed once.
			if n.left != nilIdx {
				stack = append(stack, n.left)
				n.left = nilIdx
				continue
			}
			if n.right != nilIdx {
				stack = append(stack, n.right)
				n.right = nilIdx
				continue
			}
			stack = stack[:size-1]
			tree.destructor(n.val)
			tree.count--
		}
	}
	tree.root = nilIdx
	tree.count = 0
	tree.arena.reset()

	if tree.logger != nil {
		tree.logger.Debug("[rbtree] released", zap.Int64("values", released))
	}
	tree.stats.RecordNodeCount(-released)
}

func (tree *orderedTree[T]) debug(msg string, val T) {
	if tree.logger == nil {
		return
	}
	tree.logger.Debug(msg, zap.Any("val", val), zap.Int64("len", tree.count))
}

type OrderedTreeOption[T any] func(*orderedTree[T])

// WithOrderedTreeCapacity preallocates n node slots. n <= 0 is ignored.
// The reservation never exceeds the node bound, nor 1<<20 slots.
func WithOrderedTreeCapacity[T any](n int64) OrderedTreeOption[T] {
	return func(tree *orderedTree[T]) {
		if n <= 0 {
			return
		}
		tree.capacity = n
	}
}

// WithOrderedTreeMaxNodes bounds the number of live nodes. Inserts beyond
// the bound fail with ErrRBTreeArenaExhausted and leave the tree intact.
// n <= 0 is ignored and the tree stays unbounded.
func WithOrderedTreeMaxNodes[T any](n int64) OrderedTreeOption[T] {
	return func(tree *orderedTree[T]) {
		if n <= 0 {
			return
		}
		tree.maxNodes = n
	}
}

func WithOrderedTreeLogger[T any](logger Logger) OrderedTreeOption[T] {
	return func(tree *orderedTree[T]) {
		tree.logger = logger
	}
}

func WithOrderedTreeStats[T any](name string) OrderedTreeOption[T] {
	return func(tree *orderedTree[T]) {
		tree.isStatsEnabled = true
		tree.statsName = name
	}
}

func NewOrderedTree[T any](
	cmp Comparator[T],
	destructor Destructor[T],
	opts ...OrderedTreeOption[T],
) (OrderedTree[T], error) {
	if cmp == nil {
		return nil, infra.WrapErrorStack(ErrRBTreeNilComparator)
	}
	if destructor == nil {
		return nil, infra.WrapErrorStack(ErrRBTreeNilDestructor)
	}

	tree := &orderedTree[T]{
		root:       nilIdx,
		cmp:        cmp,
		destructor: destructor,
	}
	for _, o := range opts {
		if o == nil {
			continue
		}
		o(tree)
	}
	tree.arena = newRBArena[T](tree.capacity, tree.maxNodes)
	if tree.isStatsEnabled {
		tree.stats = newRBTreeStats(tree.statsName)
	}
	return tree, nil
}

// NewOrderedKeyTree stores primitive keys in their natural order.
func NewOrderedKeyTree[K infra.OrderedKey](opts ...OrderedTreeOption[K]) OrderedTree[K] {
	tree, _ := NewOrderedTree[K](
		Comparator[K](infra.OrderedComparator[K]()),
		NopDestructor[K](),
		opts...,
	)
	return tree
}
