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

import (
	"fmt"
	"log/slog"
	"math"
	"strings"
)

const debug = false

// Each slot in the table carries one of three states. A slot starts out
// free, becomes full when an entry is written to it, and turns into a
// tombstone when that entry is removed. Tombstones are never turned back into
// free slots except by a rehash or Clear: a probe walk that passed over the
// slot while it was full must keep walking past it, or keys inserted further
// down the walk would become unreachable.
type slotState uint8

const (
	slotFree slotState = iota
	slotFull
	slotRemoved
)

func (s slotState) String() string {
	switch s {
	case slotFree:
		return "free"
	case slotFull:
		return "full"
	case slotRemoved:
		return "removed"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}

// table is the open-addressing engine shared by Map and Set. Keys and slot
// states live in parallel slices whose length (the capacity) is always
// prime. Collisions are resolved with double hashing: the primary hash picks
// the first slot and a secondary step, non-zero and smaller than the prime
// capacity, is added until the walk finds the key or a free slot. Because the
// step is coprime with the capacity the walk visits every slot exactly once
// before repeating.
//
// The owner of a table (Map or Set) stores any payload in slices indexed by
// the same slot numbers, and moves that payload when the table rehashes.
type table[K Scalar] struct {
	hash   HashFunc[K]
	logger *slog.Logger
	keys   []K
	states []slotState
	// The number of full slots.
	size int
	// The number of tombstones. Tombstones count toward the growth
	// threshold so that a table churned by put/remove cycles still rehashes
	// before its probe walks degenerate.
	removed int
	// The number of full+removed slots allowed before rehashing. Always
	// less than the capacity so that at least one slot is free and every
	// probe walk terminates.
	maxSize    int
	loadFactor float64
}

func (t *table[K]) init(initialCapacity int, options []option[K]) {
	t.hash = defaultHash[K]
	t.logger = discardLogger
	t.loadFactor = DefaultLoadFactor
	for _, op := range options {
		op.apply(t)
	}
	if initialCapacity <= 0 {
		initialCapacity = DefaultInitialCapacity
	}
	t.alloc(t.capacityFor(initialCapacity))
}

// alloc installs fresh, empty key and state slices of the given capacity.
// Counters other than maxSize are left for the caller to reset.
func (t *table[K]) alloc(capacity int) {
	t.keys = make([]K, capacity)
	t.states = make([]slotState, capacity)
	t.maxSize = t.maxSizeFor(capacity)
}

func (t *table[K]) capacity() int {
	return len(t.keys)
}

func (t *table[K]) maxSizeFor(capacity int) int {
	return min(capacity-1, int(math.Floor(float64(capacity)*t.loadFactor)))
}

// capacityFor returns the smallest prime capacity able to hold n entries
// under the configured load factor.
func (t *table[K]) capacityFor(n int) int {
	return t.primeFor(int(math.Ceil(float64(n)/t.loadFactor)), n)
}

// primeFor returns the smallest prime >= atLeast whose growth threshold
// admits n entries. The threshold check guards against float rounding in
// capacity*loadFactor.
func (t *table[K]) primeFor(atLeast, n int) int {
	c := nextPrime(max(atLeast, n+1))
	for t.maxSizeFor(c) < n {
		c = nextPrime(c + 1)
	}
	return c
}

// probe returns the first slot and the step of the probe walk for key.
func (t *table[K]) probe(key K) (index, step int) {
	h := t.hash(key)
	c := uint64(len(t.keys))
	return int(h % c), 1 + int((h/c)%(c-1))
}

func (t *table[K]) next(index, step int) int {
	index += step
	if index >= len(t.keys) {
		index -= len(t.keys)
	}
	return index
}

// locate returns the slot holding key, or found=false if key is absent.
func (t *table[K]) locate(key K) (index int, found bool) {
	index, step := t.probe(key)
	if debug {
		fmt.Printf("locate(%v): index=%d step=%d capacity=%d\n", key, index, step, len(t.keys))
	}
	for n := len(t.states); n > 0; n-- {
		switch t.states[index] {
		case slotFree:
			if debug {
				fmt.Printf("locate(not-found): index=%d\n", index)
			}
			return index, false
		case slotFull:
			if t.keys[index] == key {
				return index, true
			}
		}
		index = t.next(index, step)
	}
	return -1, false
}

// insertionIndex walks the same probe sequence as locate. If key is present
// it returns its slot with found=true. Otherwise it returns the slot a new
// entry should be written to: the first tombstone seen on the walk, or the
// free slot that ended the walk if there was none. The walk continues past
// the first tombstone because key may still be present further down.
func (t *table[K]) insertionIndex(key K) (index int, found bool) {
	index, step := t.probe(key)
	tombstone := -1
	for n := len(t.states); n > 0; n-- {
		switch t.states[index] {
		case slotFree:
			if tombstone >= 0 {
				if debug {
					fmt.Printf("insertionIndex(%v): reusing tombstone=%d\n", key, tombstone)
				}
				return tombstone, false
			}
			return index, false
		case slotFull:
			if t.keys[index] == key {
				return index, true
			}
		case slotRemoved:
			if tombstone < 0 {
				tombstone = index
			}
		}
		index = t.next(index, step)
	}
	if tombstone >= 0 {
		return tombstone, false
	}
	panic(fmt.Sprintf("openhash: probe walk for %v found no free slot\n%s", key, t.debugString()))
}

// claim writes key into the slot returned by insertionIndex and marks it
// full. The caller must follow up with growTarget.
func (t *table[K]) claim(index int, key K) {
	if t.states[index] == slotRemoved {
		t.removed--
	}
	t.keys[index] = key
	t.states[index] = slotFull
	t.size++
}

// removeAt turns a full slot into a tombstone.
func (t *table[K]) removeAt(index int) {
	t.keys[index] = 0
	t.states[index] = slotRemoved
	t.size--
	t.removed++
}

// growTarget returns the capacity the table must be rehashed to after an
// insertion, or 0 if the growth threshold has not been crossed.
func (t *table[K]) growTarget() int {
	if t.size+t.removed <= t.maxSize {
		return 0
	}
	// Rehash in place if dropping the tombstones recovers at least a third
	// of the threshold. Otherwise the table is genuinely full and doubles.
	if t.size <= t.maxSize && 3*t.removed >= t.maxSize {
		return len(t.keys)
	}
	return t.primeFor(max(2*len(t.keys), int(math.Ceil(float64(t.size)/t.loadFactor))), t.size)
}

// reserveTarget returns the capacity needed so that n more entries can be
// inserted without a rehash, or 0 if the current capacity suffices.
func (t *table[K]) reserveTarget(n int) int {
	if n <= 0 || t.size+t.removed+n <= t.maxSize {
		return 0
	}
	return max(t.capacityFor(t.size+n), len(t.keys))
}

// rehash reallocates the key and state slices at newCapacity and re-inserts
// every full slot, dropping all tombstones. relocate, if non-nil, is called
// with the old and new slot of each entry so the owner can move its payload.
func (t *table[K]) rehash(newCapacity int, relocate func(from, to int)) {
	oldKeys, oldStates := t.keys, t.states
	oldCapacity := len(oldKeys)
	t.alloc(newCapacity)

	for i := oldCapacity - 1; i >= 0; i-- {
		if oldStates[i] != slotFull {
			continue
		}
		key := oldKeys[i]
		j, _ := t.insertionIndex(key)
		t.keys[j] = key
		t.states[j] = slotFull
		if relocate != nil {
			relocate(i, j)
		}
	}

	t.logger.Debug("openhash: rehash",
		slog.Int("old-capacity", oldCapacity),
		slog.Int("capacity", newCapacity),
		slog.Int("size", t.size),
		slog.Int("dropped-tombstones", t.removed))
	t.removed = 0
}

// clear frees every slot without changing the capacity.
func (t *table[K]) clear() {
	clear(t.keys)
	clear(t.states)
	t.size = 0
	t.removed = 0
}

// cloneFrom deep-copies o into t.
func (t *table[K]) cloneFrom(o *table[K]) {
	*t = *o
	t.keys = append([]K(nil), o.keys...)
	t.states = append([]slotState(nil), o.states...)
}

func (t *table[K]) checkInvariants() {
	if invariants {
		capacity := len(t.keys)
		if !isPrime(capacity) {
			panic(fmt.Sprintf("invariant failed: capacity %d is not prime\n%s", capacity, t.debugString()))
		}
		if len(t.states) != capacity {
			panic(fmt.Sprintf("invariant failed: %d states for capacity %d", len(t.states), capacity))
		}
		if m := t.maxSizeFor(capacity); m != t.maxSize {
			panic(fmt.Sprintf("invariant failed: max size is %d, expected %d\n%s", t.maxSize, m, t.debugString()))
		}

		var full, removed int
		for i, s := range t.states {
			switch s {
			case slotFree:
			case slotRemoved:
				removed++
			case slotFull:
				full++
				key := t.keys[i]
				if key != key {
					// NaN is never found by locate.
					continue
				}
				if j, ok := t.locate(key); !ok || j != i {
					panic(fmt.Sprintf("invariant failed: slot(%d): %v located at %d (found=%t)\n%s",
						i, key, j, ok, t.debugString()))
				}
			default:
				panic(fmt.Sprintf("invariant failed: slot(%d): unexpected %s", i, s))
			}
		}
		if full != t.size {
			panic(fmt.Sprintf("invariant failed: found %d full slots, but size is %d\n%s",
				full, t.size, t.debugString()))
		}
		if removed != t.removed {
			panic(fmt.Sprintf("invariant failed: found %d tombstones, but removed count is %d\n%s",
				removed, t.removed, t.debugString()))
		}
		if t.size+t.removed > t.maxSize {
			panic(fmt.Sprintf("invariant failed: %d full + %d removed exceeds max size %d\n%s",
				t.size, t.removed, t.maxSize, t.debugString()))
		}
	}
}

func (t *table[K]) debugString() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "capacity=%d  size=%d  removed=%d  max-size=%d\n",
		len(t.keys), t.size, t.removed, t.maxSize)
	for i, s := range t.states {
		if s == slotFull {
			fmt.Fprintf(&buf, "  %4d: %v [h=%x]\n", i, t.keys[i], t.hash(t.keys[i]))
		} else {
			fmt.Fprintf(&buf, "  %4d: %s\n", i, s)
		}
	}
	return buf.String()
}
