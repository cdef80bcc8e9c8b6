package slotmap

import "iter"

// Key identifies an entry in a Map.
type Key uint64

// makeKey packs an index and a generation into a Key.
func makeKey(index, generation uint32) Key {
	return Key(uint64(generation)<<32 | uint64(index))
}

// Index returns the slot index encoded in the key.
func (k Key) Index() uint32 { return uint32(k) }

// Generation returns the slot generation encoded in the key.
func (k Key) Generation() uint32 { return uint32(k >> 32) }

// slot holds one entry together with its generation.
type slot[V any] struct {
	generation uint32
	used       bool
	value      V
}

// Map is a dense slot array with a free list.
// Lookups, inserts and removals are O(1).
type Map[V any] struct {
	slots []slot[V]
	free  []uint32
	count int
}

// New creates a map with room for capacity entries before growing.
func New[V any](capacity int) *Map[V] {
	if capacity < 0 {
		capacity = 0
	}
	return &Map[V]{
		slots: make([]slot[V], 0, capacity),
	}
}

// Insert stores v in a free slot and returns its key.
// Slots freed by Remove are reused in LIFO order.
func (m *Map[V]) Insert(v V) Key {
	var index uint32
	if n := len(m.free); n > 0 {
		index = m.free[n-1]
		m.free = m.free[:n-1]
	} else {
		index = uint32(len(m.slots))
		m.slots = append(m.slots, slot[V]{generation: 1})
	}

	s := &m.slots[index]
	s.used = true
	s.value = v
	m.count++
	return makeKey(index, s.generation)
}

// lookup returns the slot for k, or nil if k is stale or unknown.
func (m *Map[V]) lookup(k Key) *slot[V] {
	index := k.Index()
	if k.Generation() == 0 || int(index) >= len(m.slots) {
		return nil
	}
	s := &m.slots[index]
	if !s.used || s.generation != k.Generation() {
		return nil
	}
	return s
}

// Get returns the value stored under k.
// Returns (zero, false) for stale or unknown keys.
func (m *Map[V]) Get(k Key) (V, bool) {
	s := m.lookup(k)
	if s == nil {
		var zero V
		return zero, false
	}
	return s.value, true
}

// Contains reports whether k refers to a stored entry.
func (m *Map[V]) Contains(k Key) bool {
	return m.lookup(k) != nil
}

// Remove deletes the entry under k and retires the key.
// Returns false if k is stale or unknown.
func (m *Map[V]) Remove(k Key) bool {
	s := m.lookup(k)
	if s == nil {
		return false
	}

	var zero V
	s.value = zero
	s.used = false
	s.generation++
	if s.generation == 0 {
		// Generation 0 is reserved for the zero Key.
		s.generation = 1
	}
	m.free = append(m.free, k.Index())
	m.count--
	return true
}

// Len returns the number of stored entries.
func (m *Map[V]) Len() int { return m.count }

// All iterates over the stored entries in slot order.
// The map must not be modified during iteration.
func (m *Map[V]) All() iter.Seq2[Key, V] {
	return func(yield func(Key, V) bool) {
		for i := range m.slots {
			s := &m.slots[i]
			if !s.used {
				continue
			}
			if !yield(makeKey(uint32(i), s.generation), s.value) {
				return
			}
		}
	}
}
