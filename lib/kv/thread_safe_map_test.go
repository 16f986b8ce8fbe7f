package kv

import (
	"errors"
	randv2 "math/rand/v2"
	"slices"
	"strconv"
	"sync"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
)

func genStrKeys(strLen, count int) []string {
	keys := make(map[string]struct{}, count)
	const chars = "abcdefghijklmnopqrstuvwxyz0123456789"
	for len(keys) < count {
		b := make([]byte, strLen)
		for i := range b {
			b[i] = chars[randv2.IntN(len(chars))]
		}
		keys[string(b)] = struct{}{}
	}
	return lo.Keys(keys)
}

func TestThreadSafeMap_SimpleCRUD(t *testing.T) {
	keys := genStrKeys(8, 10000)
	m := make(map[string]int, len(keys))
	for i, key := range keys {
		m[key] = i
	}
	_m := NewThreadSafeMap[string, int](WithThreadSafeMapInitCap[string, int](10_000))
	require.NoError(t, _m.Replace(m))
	require.Equal(t, int64(len(keys)), _m.Len())

	sorted := slices.Clone(keys)
	slices.Sort(sorted)
	require.Equal(t, sorted, _m.ListKeys())

	vals := _m.ListValues()
	require.Len(t, vals, len(keys))
	for i, key := range sorted {
		require.Equal(t, m[key], vals[i])
	}

	i := 1001
	res, exists := _m.Get(keys[i])
	require.True(t, exists)
	require.Equal(t, i, res)

	require.NoError(t, _m.Delete(keys[i]))
	_, exists = _m.Get(keys[i])
	require.False(t, exists)
	require.ErrorIs(t, _m.Delete(keys[i]), ErrThreadSafeMapKeyNotFound)

	require.NoError(t, _m.AddOrUpdate(keys[i], i))
	require.NoError(t, _m.AddOrUpdate(keys[i], -i))
	res, exists = _m.Get(keys[i])
	require.True(t, exists)
	require.Equal(t, -i, res)
	require.Equal(t, sorted, _m.ListKeys())

	require.Equal(t, []int{-i, m[keys[0]]}, _m.ListValues(keys[i], "missing-key", keys[0]))

	require.NoError(t, _m.Purge())
	require.Zero(t, _m.Len())
	require.Empty(t, _m.ListKeys())
}

func TestThreadSafeMap_ListKeysFilter(t *testing.T) {
	_m := NewThreadSafeMap[int, string](WithThreadSafeMapKeyDesc[int, string]())
	for i := 0; i < 10; i++ {
		require.NoError(t, _m.AddOrUpdate(i, strconv.Itoa(i)))
	}
	require.Equal(t, []int{9, 8, 7, 6, 5, 4, 3, 2, 1, 0}, _m.ListKeys())
	require.Equal(t, []int{8, 6, 4, 2, 0}, _m.ListKeys(nil, func(key int) bool {
		return key%2 == 0
	}))
}

type testClosable struct {
	id     int
	closed int
	err    error
}

func (c *testClosable) Close() error {
	c.closed++
	return c.err
}

func TestThreadSafeMap_ClosableItems(t *testing.T) {
	errClose := errors.New("close failed")
	items := make([]*testClosable, 0, 8)
	_m := NewThreadSafeMap[int, *testClosable](WithThreadSafeMapCloseableItemCheck[int, *testClosable]())
	for i := 0; i < 8; i++ {
		c := &testClosable{id: i}
		if i == 5 {
			c.err = errClose
		}
		items = append(items, c)
		require.NoError(t, _m.AddOrUpdate(i, c))
	}
	require.NoError(t, _m.AddOrUpdate(100, nil))

	require.NoError(t, _m.Delete(0))
	require.Equal(t, 1, items[0].closed)

	replacement := &testClosable{id: 1}
	require.NoError(t, _m.AddOrUpdate(1, replacement))
	require.Equal(t, 1, items[1].closed)
	require.Zero(t, replacement.closed)

	err := _m.Purge()
	require.ErrorIs(t, err, errClose)
	for _, c := range items[2:] {
		require.Equal(t, 1, c.closed)
	}
	require.Equal(t, 1, replacement.closed)
	require.Zero(t, _m.Len())

	require.NoError(t, _m.Purge())
}

func TestThreadSafeMap_ClosableItemsStoredAgain(t *testing.T) {
	t.Run("add same value", func(tt *testing.T) {
		_m := NewThreadSafeMap[string, *testClosable](WithThreadSafeMapCloseableItemCheck[string, *testClosable]())
		c := &testClosable{id: 1}
		require.NoError(tt, _m.AddOrUpdate("a", c))
		require.NoError(tt, _m.AddOrUpdate("a", c))
		stored, ok := _m.Get("a")
		require.True(tt, ok)
		require.Same(tt, c, stored)
		require.Zero(tt, c.closed)
	})

	t.Run("replace keeps carried values", func(tt *testing.T) {
		_m := NewThreadSafeMap[string, *testClosable](WithThreadSafeMapCloseableItemCheck[string, *testClosable]())
		kept, moved, dropped := &testClosable{id: 1}, &testClosable{id: 2}, &testClosable{id: 3}
		require.NoError(tt, _m.AddOrUpdate("a", kept))
		require.NoError(tt, _m.AddOrUpdate("b", moved))
		require.NoError(tt, _m.AddOrUpdate("c", dropped))

		require.NoError(tt, _m.Replace(map[string]*testClosable{
			"a": kept,
			"z": moved,
		}))
		require.Zero(tt, kept.closed)
		require.Zero(tt, moved.closed)
		require.Equal(tt, 1, dropped.closed)
		require.Equal(tt, []string{"a", "z"}, _m.ListKeys())

		require.NoError(tt, _m.Purge())
		require.Equal(tt, 1, kept.closed)
		require.Equal(tt, 1, moved.closed)
		require.Equal(tt, 1, dropped.closed)
	})

	t.Run("uncomparable values", func(tt *testing.T) {
		_m := NewThreadSafeMap[int, []int](WithThreadSafeMapCloseableItemCheck[int, []int]())
		require.NoError(tt, _m.AddOrUpdate(1, []int{1}))
		require.NotPanics(tt, func() {
			require.NoError(tt, _m.AddOrUpdate(1, []int{2}))
			require.NoError(tt, _m.Replace(map[int][]int{1: {3}}))
		})
		require.Equal(tt, [][]int{{3}}, _m.ListValues())
	})
}

func TestThreadSafeMap_Concurrent(t *testing.T) {
	_m := NewThreadSafeMap[int, int]()
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				key := w*1000 + i
				if err := _m.AddOrUpdate(key, key); err != nil {
					t.Error(err)
					return
				}
				_, _ = _m.Get(randv2.IntN(8000))
				if i%3 == 0 {
					if err := _m.Delete(key); err != nil {
						t.Error(err)
						return
					}
				}
			}
		}(w)
	}
	wg.Wait()

	keys := _m.ListKeys()
	require.True(t, slices.IsSorted(keys))
	require.Equal(t, int64(len(keys)), _m.Len())
	require.Equal(t, 8*(1000-334), len(keys))
}
