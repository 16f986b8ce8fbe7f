package kv

import (
	"errors"
	"io"
	"reflect"
	"sync"

	"github.com/samber/lo"
	"go.uber.org/multierr"

	"github.com/benz9527/xordtree/lib/infra"
	"github.com/benz9527/xordtree/lib/tree"
)

var ErrThreadSafeMapKeyNotFound = errors.New("[kv] key not found")

type entry[K infra.OrderedKey, V any] struct {
	key K
	val V
}

// threadSafeMap serializes every access to the underlying rbtree,
// which is not safe for concurrent use on its own.
type threadSafeMap[K infra.OrderedKey, V any] struct {
	lock           sync.RWMutex
	items          tree.OrderedTree[*entry[K, V]]
	keyCmp         infra.OrderedKeyComparator[K]
	initCap        int64
	isClosableItem bool
	closeErr       error
	// kept holds the values carried over by Replace, which releasing
	// the previous items must not close.
	kept map[any]struct{}
}

func (t *threadSafeMap[K, V]) newItems() tree.OrderedTree[*entry[K, V]] {
	return lo.Must(tree.NewOrderedTree[*entry[K, V]](
		func(a, b *entry[K, V]) int64 {
			return t.keyCmp(a.key, b.key)
		},
		t.closeItem,
		tree.WithOrderedTreeCapacity[*entry[K, V]](t.initCap),
	))
}

// closeItem is the rbtree destructor. Close errors are kept until the
// running mutation returns them.
func (t *threadSafeMap[K, V]) closeItem(e *entry[K, V]) {
	if t.kept != nil && isComparableValue(e.val) {
		if _, ok := t.kept[any(e.val)]; ok {
			return
		}
	}
	t.closeErr = multierr.Append(t.closeErr, t.closeVal(e.val))
}

func (t *threadSafeMap[K, V]) closeVal(val V) error {
	if !t.isClosableItem || isNilValue(val) {
		return nil
	}
	if c, ok := any(val).(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (t *threadSafeMap[K, V]) takeCloseErr() error {
	err := t.closeErr
	t.closeErr = nil
	return err
}

func (t *threadSafeMap[K, V]) Len() int64 {
	t.lock.RLock()
	defer t.lock.RUnlock()
	return t.items.Len()
}

// AddOrUpdate closes the replaced value of a closable map, unless the
// same value is stored again.
func (t *threadSafeMap[K, V]) AddOrUpdate(key K, obj V) error {
	t.lock.Lock()
	defer t.lock.Unlock()

	lookup := &entry[K, V]{key: key}
	if e, ok := t.items.Get(lookup); ok {
		old := e.val
		e.val = obj
		if isSameValue(old, obj) {
			return nil
		}
		return t.closeVal(old)
	}
	lookup.val = obj
	return t.items.Insert(lookup)
}

// Replace swaps in a new item set. The previous items are released and
// only the values missing from the new set are closed.
func (t *threadSafeMap[K, V]) Replace(items map[K]V) error {
	t.lock.Lock()
	defer t.lock.Unlock()

	newItems := t.newItems()
	for key, val := range items {
		if err := newItems.Insert(&entry[K, V]{key: key, val: val}); err != nil {
			return err
		}
	}
	if t.isClosableItem {
		t.kept = make(map[any]struct{}, len(items))
		for _, val := range items {
			if isComparableValue(val) {
				t.kept[any(val)] = struct{}{}
			}
		}
	}
	t.items.Release()
	t.kept = nil
	t.items = newItems
	return t.takeCloseErr()
}

func (t *threadSafeMap[K, V]) Delete(key K) error {
	t.lock.Lock()
	defer t.lock.Unlock()

	if err := t.items.Remove(&entry[K, V]{key: key}); err != nil {
		if errors.Is(err, tree.ErrRBTreeValNotFound) {
			return ErrThreadSafeMapKeyNotFound
		}
		return err
	}
	return t.takeCloseErr()
}

func (t *threadSafeMap[K, V]) Get(key K) (item V, exists bool) {
	t.lock.RLock()
	defer t.lock.RUnlock()

	e, ok := t.items.Get(&entry[K, V]{key: key})
	if !ok {
		return item, false
	}
	return e.val, true
}

func (t *threadSafeMap[K, V]) ListKeys(filters ...SafeStoreKeyFilterFunc[K]) []K {
	realFilters := make([]SafeStoreKeyFilterFunc[K], 0, len(filters))
	for _, filter := range filters {
		if filter != nil {
			realFilters = append(realFilters, filter)
		}
	}
	if len(realFilters) == 0 {
		realFilters = append(realFilters, defaultAllKeysFilter[K])
	}

	t.lock.RLock()
	defer t.lock.RUnlock()

	keys := make([]K, 0, t.items.Len())
	t.items.Foreach(tree.VisitorFunc[*entry[K, V]](func(_ int64, e *entry[K, V]) bool {
		for _, filter := range realFilters {
			if filter(e.key) {
				keys = append(keys, e.key)
				break
			}
		}
		return true
	}))
	return keys
}

// ListValues returns every value in key order, or the values of the
// given keys in the given order. Missing keys are skipped.
func (t *threadSafeMap[K, V]) ListValues(keys ...K) (items []V) {
	t.lock.RLock()
	defer t.lock.RUnlock()

	if len(keys) == 0 {
		items = make([]V, 0, t.items.Len())
		t.items.Foreach(tree.VisitorFunc[*entry[K, V]](func(_ int64, e *entry[K, V]) bool {
			items = append(items, e.val)
			return true
		}))
		return items
	}

	items = make([]V, 0, len(keys))
	for _, key := range keys {
		if e, ok := t.items.Get(&entry[K, V]{key: key}); ok {
			items = append(items, e.val)
		}
	}
	return items
}

// Purge drops every item, closing closable ones.
func (t *threadSafeMap[K, V]) Purge() error {
	t.lock.Lock()
	defer t.lock.Unlock()

	t.items.Release()
	t.items = t.newItems()
	return t.takeCloseErr()
}

func isNilValue(val any) bool {
	if val == nil {
		return true
	}
	rv := reflect.ValueOf(val)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return rv.IsNil()
	default:
	}
	return false
}

// isComparableValue reports whether val can be used as a map key
// without panicking.
func isComparableValue(val any) bool {
	rv := reflect.ValueOf(val)
	return rv.IsValid() && rv.Comparable()
}

func isSameValue(a, b any) bool {
	return isComparableValue(a) && isComparableValue(b) && a == b
}

type ThreadSafeMapOption[K infra.OrderedKey, V any] func(*threadSafeMap[K, V])

func WithThreadSafeMapInitCap[K infra.OrderedKey, V any](n int64) ThreadSafeMapOption[K, V] {
	return func(t *threadSafeMap[K, V]) {
		t.initCap = n
	}
}

// WithThreadSafeMapCloseableItemCheck closes io.Closer values when they
// are deleted, replaced or purged.
func WithThreadSafeMapCloseableItemCheck[K infra.OrderedKey, V any]() ThreadSafeMapOption[K, V] {
	return func(t *threadSafeMap[K, V]) {
		t.isClosableItem = true
	}
}

func WithThreadSafeMapKeyDesc[K infra.OrderedKey, V any]() ThreadSafeMapOption[K, V] {
	return func(t *threadSafeMap[K, V]) {
		t.keyCmp = infra.ReversedComparator(t.keyCmp)
	}
}

func NewThreadSafeMap[K infra.OrderedKey, V any](opts ...ThreadSafeMapOption[K, V]) ThreadSafeStorer[K, V] {
	t := &threadSafeMap[K, V]{
		keyCmp: infra.OrderedComparator[K](),
	}
	for _, o := range opts {
		if o != nil {
			o(t)
		}
	}
	t.items = t.newItems()
	return t
}
