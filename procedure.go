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

// Procedure is called for each element of a traversal. Returning false stops
// the traversal.
type Procedure[T Scalar] func(v T) bool

// EntryProcedure is called for each key/value entry of a Map traversal.
// Returning false stops the traversal. RetainEntries uses the result as a
// keep/drop decision instead.
type EntryProcedure[K, V Scalar] func(key K, value V) bool

// Function maps a value to its replacement.
type Function[V Scalar] func(v V) V
