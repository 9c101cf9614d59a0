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
	"io"
	"log/slog"
)

const (
	// DefaultInitialCapacity is the number of entries a table sized with a
	// non-positive initial capacity can hold before its first rehash. With
	// DefaultLoadFactor it yields a prime capacity of 11.
	DefaultInitialCapacity = 4
	// DefaultLoadFactor is the fraction of slots that may be FULL or REMOVED
	// before a table rehashes.
	DefaultLoadFactor = 0.5
)

// discardLogger is used when no logger is configured.
var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// option provide an interface to do work on a table while it is being
// created. The same options apply to Map[K,V] and Set[K].
type option[K Scalar] interface {
	apply(t *table[K])
}

type hashOption[K Scalar] struct {
	hash HashFunc[K]
}

func (op hashOption[K]) apply(t *table[K]) {
	if op.hash == nil {
		panic("openhash: nil hash function")
	}
	t.hash = op.hash
}

// WithHash is an option to specify the hash function to use for a Map[K,V]
// or Set[K]. Persisted tables do not record the hash function; the encoded
// form is independent of it.
func WithHash[K Scalar](hash HashFunc[K]) option[K] {
	return hashOption[K]{hash}
}

type loadFactorOption[K Scalar] struct {
	loadFactor float64
}

func (op loadFactorOption[K]) apply(t *table[K]) {
	if !(op.loadFactor > 0 && op.loadFactor <= 1) {
		panic(fmt.Sprintf("openhash: load factor %v outside (0, 1]", op.loadFactor))
	}
	t.loadFactor = op.loadFactor
}

// WithLoadFactor is an option to specify the maximum fraction of slots that
// may be occupied, by live entries or tombstones, before the table grows.
// The load factor must be in (0, 1].
func WithLoadFactor[K Scalar](loadFactor float64) option[K] {
	return loadFactorOption[K]{loadFactor}
}

type loggerOption[K Scalar] struct {
	logger *slog.Logger
}

func (op loggerOption[K]) apply(t *table[K]) {
	if op.logger == nil {
		op.logger = discardLogger
	}
	t.logger = op.logger
}

// WithLogger is an option to specify a logger that receives debug-level
// events when the table rehashes or compacts. By default nothing is logged.
func WithLogger[K Scalar](logger *slog.Logger) option[K] {
	return loggerOption[K]{logger}
}
