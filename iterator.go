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

// cursor walks the full slots of a table from the highest slot down. It is
// positioned on a slot only after the first advance.
type cursor[K Scalar] struct {
	t     *table[K]
	index int
}

// nextIndex returns the next full slot below the cursor, or -1.
func (c *cursor[K]) nextIndex() int {
	i := c.index
	for i--; i >= 0 && c.t.states[i] != slotFull; i-- {
	}
	return i
}

func (c *cursor[K]) HasNext() bool {
	return c.nextIndex() >= 0
}

func (c *cursor[K]) advance() {
	i := c.nextIndex()
	if i < 0 {
		panic("openhash: iterator advanced past the last entry")
	}
	c.index = i
}

func (c *cursor[K]) current() int {
	if c.index >= len(c.t.states) || c.t.states[c.index] != slotFull {
		panic("openhash: iterator is not positioned on an entry")
	}
	return c.index
}

// MapIterator is a forward-only cursor over the entries of a Map:
//
//	for it := m.Iterator(); it.HasNext(); {
//	  it.Advance()
//	  fmt.Println(it.Key(), it.Value())
//	}
//
// The map must not be structurally modified while the iterator is in use,
// except through the iterator's Remove and SetValue.
type MapIterator[K, V Scalar] struct {
	cursor[K]
	m *Map[K, V]
}

// Iterator returns a cursor positioned before the first entry.
func (m *Map[K, V]) Iterator() *MapIterator[K, V] {
	return &MapIterator[K, V]{
		cursor: cursor[K]{t: &m.table, index: m.capacity()},
		m:      m,
	}
}

// Advance moves to the next entry. It panics if HasNext is false.
func (it *MapIterator[K, V]) Advance() {
	it.advance()
}

// Key returns the key of the current entry.
func (it *MapIterator[K, V]) Key() K {
	return it.m.keys[it.current()]
}

// Value returns the value of the current entry.
func (it *MapIterator[K, V]) Value() V {
	return it.m.values[it.current()]
}

// SetValue replaces the value of the current entry and returns the old one.
func (it *MapIterator[K, V]) SetValue(v V) V {
	i := it.current()
	old := it.m.values[i]
	it.m.values[i] = v
	return old
}

// Remove deletes the current entry. The iterator stays valid and Advance
// moves to the entry that would have followed.
func (it *MapIterator[K, V]) Remove() {
	it.m.removeAt(it.current())
	it.m.checkInvariants()
}

// SetIterator is a forward-only cursor over the members of a Set:
//
//	for it := s.Iterator(); it.HasNext(); {
//	  fmt.Println(it.Next())
//	}
type SetIterator[K Scalar] struct {
	cursor[K]
	s *Set[K]
}

// Iterator returns a cursor positioned before the first member.
func (s *Set[K]) Iterator() *SetIterator[K] {
	return &SetIterator[K]{
		cursor: cursor[K]{t: &s.table, index: s.capacity()},
		s:      s,
	}
}

// Next advances to and returns the next member. It panics if HasNext is
// false.
func (it *SetIterator[K]) Next() K {
	it.advance()
	return it.s.keys[it.index]
}

// Remove deletes the member most recently returned by Next.
func (it *SetIterator[K]) Remove() {
	it.s.removeAt(it.current())
	it.s.checkInvariants()
}
