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
	"encoding/binary"
	"math"
	"unsafe"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/exp/constraints"
)

// Scalar is the set of key and value types a Map or Set can hold: every
// integer and floating point kind, including named types derived from them.
// Values are stored unboxed in parallel slices.
type Scalar interface {
	constraints.Integer | constraints.Float
}

// HashFunc computes the hash of a key. Keys that compare equal with == must
// hash identically. The table reduces the result modulo its prime capacity,
// so the low bits need not be well mixed.
type HashFunc[K Scalar] func(key K) uint64

// defaultHash folds the bit pattern of key into 32 bits. With a prime
// capacity this spreads sequential and strided keys well and costs a couple
// of instructions.
func defaultHash[K Scalar](key K) uint64 {
	// -0.0 == +0.0, so they must land in the same probe sequence.
	if key == 0 {
		key = 0
	}
	b := scalarBits(key)
	return uint64(uint32(b ^ (b >> 32)))
}

// XXHash is a HashFunc that runs the key's 8-byte bit pattern through
// xxhash. It is slower than the default hash but much less sensitive to
// adversarial or highly regular key sets. Use it with WithHash:
//
//	m := openhash.New[uint64, int32](0, openhash.WithHash[uint64](openhash.XXHash[uint64]))
func XXHash[K Scalar](key K) uint64 {
	if key == 0 {
		key = 0
	}
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], scalarBits(key))
	return xxhash.Sum64(buf[:])
}

// isFloat reports whether T is a floating point type. Integer division
// truncates 1/2 to zero while float division does not.
func isFloat[T Scalar]() bool {
	var one T = 1
	return one/2 != 0
}

// scalarWidth returns the natural encoded width of T in bytes.
func scalarWidth[T Scalar]() int {
	var v T
	return int(unsafe.Sizeof(v))
}

// scalarBits returns the raw bit pattern of v, zero-extended (or
// sign-extended for signed integers) to 64 bits. Floats yield their IEEE-754
// representation.
func scalarBits[T Scalar](v T) uint64 {
	if !isFloat[T]() {
		return uint64(v)
	}
	if unsafe.Sizeof(v) == 4 {
		return uint64(math.Float32bits(float32(v)))
	}
	return math.Float64bits(float64(v))
}

// scalarFromBits is the inverse of scalarBits. Integer results are
// truncated to the width of T.
func scalarFromBits[T Scalar](b uint64) T {
	if !isFloat[T]() {
		return T(b)
	}
	if scalarWidth[T]() == 4 {
		return T(math.Float32frombits(uint32(b)))
	}
	return T(math.Float64frombits(b))
}
