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

package openhash

import "slices"

// Set is an unordered set of scalar values. It shares its probing engine
// with Map but stores no values.
//
// A Set is NOT goroutine-safe.
type Set[K Scalar] struct {
	table[K]
}

// NewSet constructs a new Set able to hold initialCapacity members before
// its first rehash. If initialCapacity is <= 0, DefaultInitialCapacity is
// used.
func NewSet[K Scalar](initialCapacity int, options ...option[K]) *Set[K] {
	s := &Set[K]{}
	s.table.init(initialCapacity, options)
	s.checkInvariants()
	return s
}

// NewSetFrom constructs a new Set sized for and holding the members of
// values.
func NewSetFrom[K Scalar](values []K, options ...option[K]) *Set[K] {
	s := NewSet[K](len(values), options...)
	s.AddAll(values)
	return s
}

// Add inserts v. It returns false if v was already present.
func (s *Set[K]) Add(v K) bool {
	i, found := s.insertionIndex(v)
	if found {
		return false
	}
	s.claim(i, v)
	if c := s.growTarget(); c > 0 {
		s.table.rehash(c, nil)
	}
	s.checkInvariants()
	return true
}

// Remove deletes v. It returns false if v was not present.
func (s *Set[K]) Remove(v K) bool {
	i, found := s.locate(v)
	if !found {
		return false
	}
	s.removeAt(i)
	s.checkInvariants()
	return true
}

// Contains reports whether v is present.
func (s *Set[K]) Contains(v K) bool {
	_, found := s.locate(v)
	return found
}

// AddAll adds every element of values and reports whether the set changed.
func (s *Set[K]) AddAll(values []K) bool {
	changed := false
	for _, v := range values {
		if s.Add(v) {
			changed = true
		}
	}
	return changed
}

// RemoveAll removes every element of values and reports whether the set
// changed.
func (s *Set[K]) RemoveAll(values []K) bool {
	changed := false
	for _, v := range values {
		if s.Remove(v) {
			changed = true
		}
	}
	return changed
}

// RetainAll removes every member not present in values and reports whether
// the set changed. values is not modified.
func (s *Set[K]) RetainAll(values []K) bool {
	// Sorting a copy costs O(m log m) once and turns each membership test
	// into a binary search.
	sorted := slices.Clone(values)
	slices.Sort(sorted)

	changed := false
	for i := len(s.states) - 1; i >= 0; i-- {
		if s.states[i] != slotFull {
			continue
		}
		if _, ok := slices.BinarySearch(sorted, s.keys[i]); !ok {
			s.removeAt(i)
			changed = true
		}
	}
	s.checkInvariants()
	return changed
}

// ContainsAll reports whether every element of values is present.
func (s *Set[K]) ContainsAll(values []K) bool {
	for _, v := range values {
		if !s.Contains(v) {
			return false
		}
	}
	return true
}

// ForEach calls fn for each member. It returns false if fn stopped the
// traversal.
func (s *Set[K]) ForEach(fn Procedure[K]) bool {
	for i := len(s.states) - 1; i >= 0; i-- {
		if s.states[i] == slotFull && !fn(s.keys[i]) {
			return false
		}
	}
	return true
}

// All calls yield sequentially for each member. If yield returns false,
// iteration stops.
func (s *Set[K]) All(yield func(v K) bool) {
	s.ForEach(yield)
}

// ToSlice returns a new slice of length Len holding every member, in no
// particular order.
func (s *Set[K]) ToSlice() []K {
	result := make([]K, 0, s.size)
	s.ForEach(func(v K) bool {
		result = append(result, v)
		return true
	})
	return result
}

// Equal reports whether other holds exactly the same members. A nil other
// is never equal.
func (s *Set[K]) Equal(other *Set[K]) bool {
	if other == nil || other.Len() != s.Len() {
		return false
	}
	return s.ForEach(other.Contains)
}

// Clear removes every member. The capacity is unchanged.
func (s *Set[K]) Clear() {
	s.table.clear()
	s.checkInvariants()
}

// Len returns the number of members.
func (s *Set[K]) Len() int {
	return s.size
}

// Capacity returns the number of slots in the set. It is always prime.
func (s *Set[K]) Capacity() int {
	return s.capacity()
}

// Clone returns a deep copy of the set.
func (s *Set[K]) Clone() *Set[K] {
	c := &Set[K]{}
	c.table.cloneFrom(&s.table)
	c.checkInvariants()
	return c
}

// EnsureCapacity grows the set, if necessary, so that n more members can be
// added without a rehash.
func (s *Set[K]) EnsureCapacity(n int) {
	if c := s.reserveTarget(n); c > 0 {
		s.table.rehash(c, nil)
	}
	s.checkInvariants()
}

// Compact rehashes the set into the smallest capacity that holds its
// current members, dropping all tombstones.
func (s *Set[K]) Compact() {
	s.table.rehash(s.capacityFor(s.size), nil)
	s.checkInvariants()
}
