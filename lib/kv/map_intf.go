package kv

import "github.com/benz9527/xordtree/lib/infra"

type SafeStoreKeyFilterFunc[K infra.OrderedKey] func(key K) bool

func defaultAllKeysFilter[K infra.OrderedKey](key K) bool {
	return true
}

// ThreadSafeStorer lists keys and values in key order.
type ThreadSafeStorer[K infra.OrderedKey, V any] interface {
	Len() int64
	Purge() error
	AddOrUpdate(key K, obj V) error
	Replace(items map[K]V) error
	Delete(key K) error
	Get(key K) (item V, exists bool)
	ListKeys(filters ...SafeStoreKeyFilterFunc[K]) []K
	ListValues(keys ...K) (items []V)
}
