// Copyright 2024 The Cockroach Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package openhash implements open-addressing hash tables for fixed-width
// scalar keys: Map[K,V] maps keys to values and Set[K] holds keys alone.
// Keys, values and per-slot states live in parallel slices, so neither keys
// nor values are ever boxed.
//
// # Probing
//
// The capacity of a table is always prime. A key's hash selects its first
// slot (hash mod capacity) and a step (1 + (hash/capacity) mod
// (capacity-1)). Lookups add the step until they find the key in a full slot
// or reach a free slot. Since the step is coprime with the prime capacity, the
// walk visits every slot once before repeating, and because the growth
// threshold is always below the capacity there is always a free slot to stop
// at.
//
// Deletion leaves a tombstone. Lookups walk over tombstones; insertions
// remember the first tombstone on their walk and reuse it once they have
// proven the key absent. Tombstones count toward the growth threshold. When
// the threshold is crossed the table either rehashes in place, if enough of
// the occupied slots are tombstones, or roughly doubles its capacity. Both
// paths copy only live entries.
//
// # Absence
//
// Get, Put and Remove report a missing key by returning the zero value,
// which is indistinguishable from a stored zero. Use Lookup or ContainsKey
// when the distinction matters.
//
// # Concurrency
//
// Maps and Sets are NOT goroutine-safe, and must not be mutated while a
// ForEach* traversal, All or an iterator is in progress, except through
// the iterator's own Remove and SetValue. Violations are not detected and
// the results are undefined.
//
// # Floating point keys
//
// Keys compare with ==. +0.0 and -0.0 are the same key. NaN is never equal to
// itself, so every Put of a NaN key adds a new entry that can only be reached
// by traversal, as with Go's builtin map.
package openhash

// Map is an unordered map from scalar keys to scalar values.
//
// A Map is NOT goroutine-safe.
type Map[K, V Scalar] struct {
	table[K]
	// values is indexed by slot, parallel to table.keys.
	values []V
}

// New constructs a new Map able to hold initialCapacity entries before its
// first rehash. If initialCapacity is <= 0, DefaultInitialCapacity is used.
// The zero value of a Map is not usable.
func New[K, V Scalar](initialCapacity int, options ...option[K]) *Map[K, V] {
	m := &Map[K, V]{}
	m.table.init(initialCapacity, options)
	m.values = make([]V, m.capacity())
	m.checkInvariants()
	return m
}

// Put inserts an entry into the map, overwriting the value if an entry with
// the same key already exists. It returns the previous value, or the zero
// value if the key was not present.
func (m *Map[K, V]) Put(key K, value V) (previous V) {
	i, found := m.insertionIndex(key)
	if found {
		previous = m.values[i]
		m.values[i] = value
		return previous
	}
	m.claim(i, key)
	m.values[i] = value
	m.growIfNeeded()
	m.checkInvariants()
	return previous
}

// Get retrieves the value for key, or the zero value if key is not present.
func (m *Map[K, V]) Get(key K) V {
	v, _ := m.Lookup(key)
	return v
}

// Lookup retrieves the value for key, returning ok=false if the key is not
// present.
func (m *Map[K, V]) Lookup(key K) (value V, ok bool) {
	if i, found := m.locate(key); found {
		return m.values[i], true
	}
	return value, false
}

// ContainsKey reports whether key is present.
func (m *Map[K, V]) ContainsKey(key K) bool {
	_, found := m.locate(key)
	return found
}

// ContainsValue reports whether any entry holds value. It scans the whole
// table.
func (m *Map[K, V]) ContainsValue(value V) bool {
	return !m.ForEachValue(func(v V) bool {
		return v != value
	})
}

// Remove deletes the entry for key and returns its value, or the zero value
// if the key was not present.
func (m *Map[K, V]) Remove(key K) (previous V) {
	i, found := m.locate(key)
	if !found {
		return previous
	}
	previous = m.values[i]
	m.removeAt(i)
	m.checkInvariants()
	return previous
}

// removeAt tombstones slot i and zeroes its value.
func (m *Map[K, V]) removeAt(i int) {
	m.table.removeAt(i)
	m.values[i] = 0
}

// Increment adds 1 to the value of key. It returns false, leaving the map
// unchanged, if the key is not present.
func (m *Map[K, V]) Increment(key K) bool {
	return m.AdjustValue(key, 1)
}

// AdjustValue adds delta to the value of key in place. It returns false,
// leaving the map unchanged, if the key is not present.
func (m *Map[K, V]) AdjustValue(key K, delta V) bool {
	i, found := m.locate(key)
	if !found {
		return false
	}
	m.values[i] += delta
	return true
}

// ForEachKey calls fn for each key in the map. It returns false if fn
// stopped the traversal.
func (m *Map[K, V]) ForEachKey(fn Procedure[K]) bool {
	for i := len(m.states) - 1; i >= 0; i-- {
		if m.states[i] == slotFull && !fn(m.keys[i]) {
			return false
		}
	}
	return true
}

// ForEachValue calls fn for each value in the map. It returns false if fn
// stopped the traversal.
func (m *Map[K, V]) ForEachValue(fn Procedure[V]) bool {
	for i := len(m.states) - 1; i >= 0; i-- {
		if m.states[i] == slotFull && !fn(m.values[i]) {
			return false
		}
	}
	return true
}

// ForEachEntry calls fn for each entry in the map. It returns false if fn
// stopped the traversal.
func (m *Map[K, V]) ForEachEntry(fn EntryProcedure[K, V]) bool {
	for i := len(m.states) - 1; i >= 0; i-- {
		if m.states[i] == slotFull && !fn(m.keys[i], m.values[i]) {
			return false
		}
	}
	return true
}

// All calls yield sequentially for each key and value present in the map. If
// yield returns false, iteration stops. All has the shape of a
// range-over-func iterator, so with Go 1.23 or later:
//
//	for k, v := range m.All {
//	  fmt.Printf("%v: %v\n", k, v)
//	}
func (m *Map[K, V]) All(yield func(key K, value V) bool) {
	m.ForEachEntry(yield)
}

// RetainEntries removes every entry for which keep returns false. It
// returns true if any entry was removed.
func (m *Map[K, V]) RetainEntries(keep EntryProcedure[K, V]) bool {
	// Tombstoning a slot never makes a slot not yet visited full, so the
	// single pass sees every live entry exactly once.
	modified := false
	for i := len(m.states) - 1; i >= 0; i-- {
		if m.states[i] == slotFull && !keep(m.keys[i], m.values[i]) {
			m.removeAt(i)
			modified = true
		}
	}
	m.checkInvariants()
	return modified
}

// TransformValues replaces every value v with fn(v).
func (m *Map[K, V]) TransformValues(fn Function[V]) {
	for i := len(m.states) - 1; i >= 0; i-- {
		if m.states[i] == slotFull {
			m.values[i] = fn(m.values[i])
		}
	}
}

// Keys returns a new slice holding every key, in no particular order.
func (m *Map[K, V]) Keys() []K {
	keys := make([]K, 0, m.size)
	m.ForEachKey(func(k K) bool {
		keys = append(keys, k)
		return true
	})
	return keys
}

// Values returns a new slice holding every value, in no particular order.
func (m *Map[K, V]) Values() []V {
	values := make([]V, 0, m.size)
	m.ForEachValue(func(v V) bool {
		values = append(values, v)
		return true
	})
	return values
}

// Equal reports whether other holds exactly the same entries. A nil other
// is never equal.
func (m *Map[K, V]) Equal(other *Map[K, V]) bool {
	if other == nil || other.Len() != m.Len() {
		return false
	}
	return m.ForEachEntry(func(k K, v V) bool {
		ov, ok := other.Lookup(k)
		return ok && ov == v
	})
}

// Clear removes every entry. The capacity is unchanged.
func (m *Map[K, V]) Clear() {
	m.table.clear()
	clear(m.values)
	m.checkInvariants()
}

// Len returns the number of entries in the map.
func (m *Map[K, V]) Len() int {
	return m.size
}

// Capacity returns the number of slots in the map. It is always prime.
func (m *Map[K, V]) Capacity() int {
	return m.capacity()
}

// Clone returns a deep copy of the map. Mutating either map is never
// visible through the other.
func (m *Map[K, V]) Clone() *Map[K, V] {
	c := &Map[K, V]{}
	c.table.cloneFrom(&m.table)
	c.values = append([]V(nil), m.values...)
	c.checkInvariants()
	return c
}

// EnsureCapacity grows the map, if necessary, so that n more entries can be
// inserted without a rehash.
func (m *Map[K, V]) EnsureCapacity(n int) {
	if c := m.reserveTarget(n); c > 0 {
		m.rehash(c)
	}
	m.checkInvariants()
}

// Compact rehashes the map into the smallest capacity that holds its current
// entries, dropping all tombstones. It is the only operation that shrinks a
// map.
func (m *Map[K, V]) Compact() {
	m.rehash(m.capacityFor(m.size))
	m.checkInvariants()
}

func (m *Map[K, V]) growIfNeeded() {
	if c := m.growTarget(); c > 0 {
		m.rehash(c)
	}
}

func (m *Map[K, V]) rehash(newCapacity int) {
	oldValues := m.values
	m.values = make([]V, newCapacity)
	m.table.rehash(newCapacity, func(from, to int) {
		m.values[to] = oldValues[from]
	})
}
