package service

import (
	"hash/fnv"
	"sort"
	"sync"
)

const lockStripes = 64

// keyMutex provides mutual exclusion per logical key (a space, a plate)
// without a lock per key: keys hash onto a fixed set of stripes, so
// operations on unrelated spaces proceed concurrently while two operations
// touching the same key always serialize.
type keyMutex struct {
	stripes [lockStripes]sync.Mutex
}

func newKeyMutex() *keyMutex {
	return &keyMutex{}
}

func (m *keyMutex) stripe(key string) int {
	h := fnv.New32a()
	h.Write([]byte(key))
	return int(h.Sum32() % lockStripes)
}

// Lock acquires the stripes for all keys in ascending stripe order, which
// makes multi-key acquisition deadlock-free. The returned function releases
// them in reverse order.
func (m *keyMutex) Lock(keys ...string) func() {
	seen := make(map[int]bool, len(keys))
	var indexes []int
	for _, key := range keys {
		idx := m.stripe(key)
		if !seen[idx] {
			seen[idx] = true
			indexes = append(indexes, idx)
		}
	}
	sort.Ints(indexes)
	for _, idx := range indexes {
		m.stripes[idx].Lock()
	}
	return func() {
		for i := len(indexes) - 1; i >= 0; i-- {
			m.stripes[indexes[i]].Unlock()
		}
	}
}
