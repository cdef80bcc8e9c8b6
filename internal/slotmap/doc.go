// Package slotmap provides a generation-checked arena keyed by opaque
// 64-bit keys.
//
// A Key packs a slot index (low 32 bits) and the slot generation (high
// 32 bits). Removing an entry bumps the generation of its slot before the
// slot is reused, so a Key issued before the removal never resolves to the
// entry that later occupies the same slot.
//
//	m := slotmap.New[string](0)
//	k := m.Insert("a")
//	v, ok := m.Get(k) // "a", true
//	m.Remove(k)
//	_, ok = m.Get(k) // false, even after the slot is reused
//
// The zero Key is never issued and can be used as a sentinel.
//
// Map is not safe for concurrent use.
package slotmap
