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
	"bytes"
	"encoding/binary"
	"io"
	"math"

	"github.com/pkg/errors"
)

// The encoded form of a table is
//
//	[count: int32][entry]*count
//
// where each entry is the key, followed for a Map by the value, each at the
// natural width of its type. All integers are big-endian and floats are
// written as their IEEE-754 bits. Entries appear in slot order, which depends
// on the capacity and on the insertion history, so two equal tables need not
// encode to the same bytes. There is no header, version or checksum; framing
// is up to the caller.

// ErrCorrupt is returned (possibly wrapped) when decoding input that is not a
// valid encoding.
var ErrCorrupt = errors.New("openhash: corrupt encoding")

const (
	// maxDecodePresize bounds the capacity reserved up front from an
	// untrusted entry count when the size of the input is unknown. Larger
	// tables still decode, growing as usual.
	maxDecodePresize = 1 << 16
	// encodeFlushSize is the buffered size at which WriteTo flushes.
	encodeFlushSize = 32 << 10
)

type encoder struct {
	w   io.Writer
	buf []byte
	n   int64
	err error
}

func newEncoder(w io.Writer, count int) (*encoder, error) {
	if count > math.MaxInt32 {
		return nil, errors.Errorf("openhash: %d entries exceed the encodable count", count)
	}
	e := &encoder{w: w, buf: make([]byte, 0, encodeFlushSize+16)}
	e.buf = binary.BigEndian.AppendUint32(e.buf, uint32(count))
	return e, nil
}

func (e *encoder) maybeFlush() {
	if len(e.buf) >= encodeFlushSize {
		e.flush()
	}
}

func (e *encoder) flush() {
	if e.err != nil || len(e.buf) == 0 {
		return
	}
	n, err := e.w.Write(e.buf)
	e.n += int64(n)
	e.err = err
	e.buf = e.buf[:0]
}

func appendScalar[T Scalar](buf []byte, v T) []byte {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], scalarBits(v))
	return append(buf, tmp[8-scalarWidth[T]():]...)
}

func readScalar[T Scalar](b []byte) T {
	var tmp [8]byte
	copy(tmp[8-len(b):], b)
	return scalarFromBits[T](binary.BigEndian.Uint64(tmp[:]))
}

// decodeEntries reads the entry count from r, calls presize with it, then
// calls insert once per entry with exactly entryWidth bytes.
func decodeEntries(
	r io.Reader, entryWidth int, presize func(n int), insert func(entry []byte),
) (n int, err error) {
	var hdr [4]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return 0, errors.Wrap(err, "openhash: reading entry count")
	}
	count := int32(binary.BigEndian.Uint32(hdr[:]))
	if count < 0 {
		return 0, errors.Wrapf(ErrCorrupt, "negative entry count %d", count)
	}
	n = int(count)
	presize(min(n, presizeLimit(r, entryWidth)))

	entry := make([]byte, entryWidth)
	for i := 0; i < n; i++ {
		if _, err := io.ReadFull(r, entry); err != nil {
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return 0, errors.Wrapf(err, "openhash: reading entry %d of %d", i, n)
		}
		insert(entry)
	}
	return n, nil
}

// presizeLimit returns the largest entry count worth reserving space for
// before any entry has been read. In-memory readers (*bytes.Reader,
// *bytes.Buffer, *strings.Reader) report their unread length, and cannot hold
// more entries than those bytes allow.
func presizeLimit(r io.Reader, entryWidth int) int {
	if l, ok := r.(interface{ Len() int }); ok {
		return min(l.Len()/entryWidth, maxDecodePresize)
	}
	return maxDecodePresize
}

// options reproduces the configuration of t so that a decoded table behaves
// like the one it replaces. A zero table yields the defaults.
func (t *table[K]) options() []option[K] {
	if t.hash == nil {
		return nil
	}
	return []option[K]{
		WithHash[K](t.hash),
		WithLoadFactor[K](t.loadFactor),
		WithLogger[K](t.logger),
	}
}

// WriteTo writes the encoded map to w. It implements io.WriterTo.
func (m *Map[K, V]) WriteTo(w io.Writer) (int64, error) {
	e, err := newEncoder(w, m.size)
	if err != nil {
		return 0, err
	}
	m.ForEachEntry(func(k K, v V) bool {
		e.buf = appendScalar(e.buf, k)
		e.buf = appendScalar(e.buf, v)
		e.maybeFlush()
		return e.err == nil
	})
	e.flush()
	return e.n, errors.Wrap(e.err, "openhash: writing map")
}

// ReadMap decodes a map written by Map.WriteTo, re-inserting every entry
// into a fresh map configured with options. The layout of the result may
// differ from the map that was written, but the two are Equal. On error no
// map is returned.
func ReadMap[K, V Scalar](r io.Reader, options ...option[K]) (*Map[K, V], error) {
	var m *Map[K, V]
	kw := scalarWidth[K]()
	n, err := decodeEntries(r, kw+scalarWidth[V](),
		func(n int) {
			m = New[K, V](n, options...)
		},
		func(entry []byte) {
			m.Put(readScalar[K](entry[:kw]), readScalar[V](entry[kw:]))
		})
	if err != nil {
		return nil, err
	}
	// Duplicate keys in the input collapse on re-insertion.
	if m.Len() != n {
		return nil, errors.Wrapf(ErrCorrupt, "%d entries decoded into %d distinct keys", n, m.Len())
	}
	return m, nil
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (m *Map[K, V]) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	if _, err := m.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler. The receiver keeps
// its hash function and load factor, and is left untouched on error.
func (m *Map[K, V]) UnmarshalBinary(data []byte) error {
	r := bytes.NewReader(data)
	decoded, err := ReadMap[K, V](r, m.options()...)
	if err != nil {
		return err
	}
	if r.Len() != 0 {
		return errors.Wrapf(ErrCorrupt, "%d trailing bytes", r.Len())
	}
	*m = *decoded
	return nil
}

// WriteTo writes the encoded set to w. It implements io.WriterTo.
func (s *Set[K]) WriteTo(w io.Writer) (int64, error) {
	e, err := newEncoder(w, s.size)
	if err != nil {
		return 0, err
	}
	s.ForEach(func(v K) bool {
		e.buf = appendScalar(e.buf, v)
		e.maybeFlush()
		return e.err == nil
	})
	e.flush()
	return e.n, errors.Wrap(e.err, "openhash: writing set")
}

// ReadSet decodes a set written by Set.WriteTo into a fresh set configured
// with options. On error no set is returned.
func ReadSet[K Scalar](r io.Reader, options ...option[K]) (*Set[K], error) {
	var s *Set[K]
	n, err := decodeEntries(r, scalarWidth[K](),
		func(n int) {
			s = NewSet[K](n, options...)
		},
		func(entry []byte) {
			s.Add(readScalar[K](entry))
		})
	if err != nil {
		return nil, err
	}
	if s.Len() != n {
		return nil, errors.Wrapf(ErrCorrupt, "%d members decoded into %d distinct values", n, s.Len())
	}
	return s, nil
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (s *Set[K]) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	if _, err := s.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler. The receiver is
// left untouched on error.
func (s *Set[K]) UnmarshalBinary(data []byte) error {
	r := bytes.NewReader(data)
	decoded, err := ReadSet[K](r, s.options()...)
	if err != nil {
		return err
	}
	if r.Len() != 0 {
		return errors.Wrapf(ErrCorrupt, "%d trailing bytes", r.Len())
	}
	*s = *decoded
	return nil
}
