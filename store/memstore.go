package store

import (
	"bytes"
	"sync"

	"github.com/google/btree"
)

// MemStore is an in-memory KV implementation backed by a google/btree
// ordered tree, giving prefix range scans without a disk engine. It is
// the default store for tests and for standalone/edge nodes that cannot
// carry a disk-backed store.
type MemStore struct {
	mu   sync.RWMutex
	tree *btree.BTreeG[kvItem]
}

type kvItem struct {
	key, value []byte
}

func itemLess(a, b kvItem) bool {
	return bytes.Compare(a.key, b.key) < 0
}

func NewMemStore() *MemStore {
	return &MemStore{tree: btree.NewG(32, itemLess)}
}

func (m *MemStore) Get(key []byte) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	item, ok := m.tree.Get(kvItem{key: key})
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(item.value))
	copy(out, item.value)
	return out, nil
}

func (m *MemStore) Put(key, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := make([]byte, len(key))
	copy(k, key)
	v := make([]byte, len(value))
	copy(v, value)
	m.tree.ReplaceOrInsert(kvItem{key: k, value: v})
	return nil
}

func (m *MemStore) Delete(key []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tree.Delete(kvItem{key: key})
	return nil
}

func (m *MemStore) Close() error { return nil }

func (m *MemStore) NewIterator(prefix []byte) Iterator {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var items []kvItem
	m.tree.AscendGreaterOrEqual(kvItem{key: prefix}, func(it kvItem) bool {
		if !bytes.HasPrefix(it.key, prefix) {
			return false
		}
		k := make([]byte, len(it.key))
		copy(k, it.key)
		v := make([]byte, len(it.value))
		copy(v, it.value)
		items = append(items, kvItem{key: k, value: v})
		return true
	})
	return &memIterator{items: items, idx: -1}
}

type memIterator struct {
	items []kvItem
	idx   int
}

func (it *memIterator) Next() bool {
	it.idx++
	return it.idx < len(it.items)
}

func (it *memIterator) Key() []byte   { return it.items[it.idx].key }
func (it *memIterator) Value() []byte { return it.items[it.idx].value }
func (it *memIterator) Release()      {}
func (it *memIterator) Error() error  { return nil }
