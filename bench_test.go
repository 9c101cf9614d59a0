package openhash

import (
	"fmt"
	"io"
	"strconv"
	"testing"

	"github.com/aclements/go-perfevent/perfbench"
)

func BenchmarkMapIter(b *testing.B) {
	b.Run("impl=runtimeMap", func(b *testing.B) {
		b.Run("t=Int64", benchSizes(benchmarkRuntimeMapIter[int64]))
	})
	b.Run("impl=openhashMap", func(b *testing.B) {
		b.Run("t=Int64", benchSizes(benchmarkOpenhashMapIter[int64]))
	})
}

func BenchmarkMapGetHit(b *testing.B) {
	b.Run("impl=runtimeMap", func(b *testing.B) {
		b.Run("t=Int64", benchSizes(benchmarkRuntimeMapGetHit[int64]))
		b.Run("t=Int32", benchSizes(benchmarkRuntimeMapGetHit[int32]))
		b.Run("t=Float64", benchSizes(benchmarkRuntimeMapGetHit[float64]))
	})
	b.Run("impl=openhashMap", func(b *testing.B) {
		b.Run("t=Int64", benchSizes(benchmarkOpenhashMapGetHit[int64]))
		b.Run("t=Int32", benchSizes(benchmarkOpenhashMapGetHit[int32]))
		b.Run("t=Float64", benchSizes(benchmarkOpenhashMapGetHit[float64]))
	})
}

func BenchmarkMapGetMiss(b *testing.B) {
	b.Run("impl=runtimeMap", func(b *testing.B) {
		b.Run("t=Int64", benchSizes(benchmarkRuntimeMapGetMiss[int64]))
		b.Run("t=Int32", benchSizes(benchmarkRuntimeMapGetMiss[int32]))
		b.Run("t=Float64", benchSizes(benchmarkRuntimeMapGetMiss[float64]))
	})
	b.Run("impl=openhashMap", func(b *testing.B) {
		b.Run("t=Int64", benchSizes(benchmarkOpenhashMapGetMiss[int64]))
		b.Run("t=Int32", benchSizes(benchmarkOpenhashMapGetMiss[int32]))
		b.Run("t=Float64", benchSizes(benchmarkOpenhashMapGetMiss[float64]))
	})
}

func BenchmarkMapPutGrow(b *testing.B) {
	b.Run("impl=runtimeMap", func(b *testing.B) {
		b.Run("t=Int64", benchSizes(benchmarkRuntimeMapPutGrow[int64]))
		b.Run("t=Int32", benchSizes(benchmarkRuntimeMapPutGrow[int32]))
	})
	b.Run("impl=openhashMap", func(b *testing.B) {
		b.Run("t=Int64", benchSizes(benchmarkOpenhashMapPutGrow[int64]))
		b.Run("t=Int32", benchSizes(benchmarkOpenhashMapPutGrow[int32]))
	})
}

func BenchmarkMapPutPreAllocate(b *testing.B) {
	b.Run("impl=runtimeMap", func(b *testing.B) {
		b.Run("t=Int64", benchSizes(benchmarkRuntimeMapPutPreAllocate[int64]))
		b.Run("t=Int32", benchSizes(benchmarkRuntimeMapPutPreAllocate[int32]))
	})
	b.Run("impl=openhashMap", func(b *testing.B) {
		b.Run("t=Int64", benchSizes(benchmarkOpenhashMapPutPreAllocate[int64]))
		b.Run("t=Int32", benchSizes(benchmarkOpenhashMapPutPreAllocate[int32]))
	})
}

func BenchmarkMapPutReuse(b *testing.B) {
	b.Run("impl=runtimeMap", func(b *testing.B) {
		b.Run("t=Int64", benchSizes(benchmarkRuntimeMapPutReuse[int64]))
	})
	b.Run("impl=openhashMap", func(b *testing.B) {
		b.Run("t=Int64", benchSizes(benchmarkOpenhashMapPutReuse[int64]))
	})
}

func BenchmarkMapPutDelete(b *testing.B) {
	b.Run("impl=runtimeMap", func(b *testing.B) {
		b.Run("t=Int64", benchSizes(benchmarkRuntimeMapPutDelete[int64]))
		b.Run("t=Int32", benchSizes(benchmarkRuntimeMapPutDelete[int32]))
	})
	b.Run("impl=openhashMap", func(b *testing.B) {
		b.Run("t=Int64", benchSizes(benchmarkOpenhashMapPutDelete[int64]))
		b.Run("t=Int32", benchSizes(benchmarkOpenhashMapPutDelete[int32]))
	})
	b.Run("impl=openhashMapXXHash", func(b *testing.B) {
		b.Run("t=Int64", benchSizes(benchmarkOpenhashMapPutDelete[int64], WithHash[int64](XXHash[int64])))
	})
}

func BenchmarkSetContains(b *testing.B) {
	b.Run("impl=runtimeMap", func(b *testing.B) {
		b.Run("t=Int64", benchSizes(benchmarkRuntimeSetContains[int64]))
	})
	b.Run("impl=openhashSet", func(b *testing.B) {
		b.Run("t=Int64", benchSizes(benchmarkOpenhashSetContains[int64]))
	})
}

func BenchmarkMapEncode(b *testing.B) {
	b.Run("t=Int64", benchSizes(benchmarkOpenhashMapEncode[int64]))
}

func benchSizes[T Scalar](
	f func(b *testing.B, n int, options ...option[T]), options ...option[T],
) func(*testing.B) {
	var cases = []int{
		6, 12, 18, 24, 30,
		64,
		128,
		256,
		512,
		1024,
		2048,
		4096,
		8192,
		1 << 16,
	}

	return func(b *testing.B) {
		for _, n := range cases {
			b.Run("len="+strconv.Itoa(n), func(b *testing.B) { f(b, n, options...) })
		}
	}
}

// genKeys returns the keys start through end-1. Every scalar type can
// represent the small integers used here.
func genKeys[T Scalar](start, end int) []T {
	keys := make([]T, end-start)
	for i := range keys {
		keys[i] = T(start + i)
	}
	return keys
}

func benchmarkRuntimeMapIter[T Scalar](b *testing.B, n int, _ ...option[T]) {
	m := make(map[T]T, n)
	for _, k := range genKeys[T](0, n) {
		m[k] = k
	}
	cs := perfbench.Open(b)
	b.ResetTimer()
	cs.Reset()
	var tmp T
	for i := 0; i < b.N; i++ {
		for k, v := range m {
			tmp += k + v
		}
	}
	b.StopTimer()
	fmt.Fprint(io.Discard, tmp)
}

func benchmarkOpenhashMapIter[T Scalar](b *testing.B, n int, options ...option[T]) {
	m := New[T, T](n, options...)
	for _, k := range genKeys[T](0, n) {
		m.Put(k, k)
	}
	cs := perfbench.Open(b)
	b.ResetTimer()
	cs.Reset()
	var tmp T
	for i := 0; i < b.N; i++ {
		m.ForEachEntry(func(k, v T) bool {
			tmp += k + v
			return true
		})
	}
	b.StopTimer()
	fmt.Fprint(io.Discard, tmp)
}

func benchmarkRuntimeMapGetMiss[T Scalar](b *testing.B, n int, _ ...option[T]) {
	m := make(map[T]T)
	miss := genKeys[T](-n, 0)
	for _, k := range genKeys[T](0, n) {
		m[k] = k
	}
	cs := perfbench.Open(b)
	b.ResetTimer()
	cs.Reset()
	for i := 0; i < b.N; i++ {
		_ = m[miss[i%len(miss)]]
	}
}

func benchmarkOpenhashMapGetMiss[T Scalar](b *testing.B, n int, options ...option[T]) {
	m := New[T, T](0, options...)
	miss := genKeys[T](-n, 0)
	for _, k := range genKeys[T](0, n) {
		m.Put(k, k)
	}
	cs := perfbench.Open(b)
	b.ResetTimer()
	cs.Reset()
	var ok bool
	for i := 0; i < b.N; i++ {
		_, ok = m.Lookup(miss[i%len(miss)])
	}
	b.StopTimer()
	fmt.Fprint(io.Discard, ok)
}

func benchmarkRuntimeMapGetHit[T Scalar](b *testing.B, n int, _ ...option[T]) {
	m := make(map[T]T, n)
	keys := genKeys[T](0, n)
	for _, k := range keys {
		m[k] = k
	}
	cs := perfbench.Open(b)
	b.ResetTimer()
	cs.Reset()
	for i := 0; i < b.N; i++ {
		_ = m[keys[i%n]]
	}
}

func benchmarkOpenhashMapGetHit[T Scalar](b *testing.B, n int, options ...option[T]) {
	m := New[T, T](n, options...)
	keys := genKeys[T](0, n)
	for _, k := range keys {
		m.Put(k, k)
	}
	cs := perfbench.Open(b)
	b.ResetTimer()
	cs.Reset()
	var ok bool
	for i := 0; i < b.N; i++ {
		_, ok = m.Lookup(keys[i%n])
	}
	b.StopTimer()
	fmt.Fprint(io.Discard, ok)
}

func benchmarkRuntimeMapPutGrow[T Scalar](b *testing.B, n int, _ ...option[T]) {
	keys := genKeys[T](0, n)
	cs := perfbench.Open(b)
	b.ResetTimer()
	cs.Reset()
	for i := 0; i < b.N; i++ {
		m := make(map[T]T)
		for _, k := range keys {
			m[k] = k
		}
	}
}

func benchmarkOpenhashMapPutGrow[T Scalar](b *testing.B, n int, options ...option[T]) {
	keys := genKeys[T](0, n)
	cs := perfbench.Open(b)
	b.ResetTimer()
	cs.Reset()
	for i := 0; i < b.N; i++ {
		m := New[T, T](0, options...)
		for _, k := range keys {
			m.Put(k, k)
		}
	}
}

func benchmarkRuntimeMapPutPreAllocate[T Scalar](b *testing.B, n int, _ ...option[T]) {
	keys := genKeys[T](0, n)
	cs := perfbench.Open(b)
	b.ResetTimer()
	cs.Reset()
	for i := 0; i < b.N; i++ {
		m := make(map[T]T, n)
		for _, k := range keys {
			m[k] = k
		}
	}
}

func benchmarkOpenhashMapPutPreAllocate[T Scalar](b *testing.B, n int, options ...option[T]) {
	keys := genKeys[T](0, n)
	cs := perfbench.Open(b)
	b.ResetTimer()
	cs.Reset()
	for i := 0; i < b.N; i++ {
		m := New[T, T](n, options...)
		for _, k := range keys {
			m.Put(k, k)
		}
	}
}

func benchmarkRuntimeMapPutReuse[T Scalar](b *testing.B, n int, _ ...option[T]) {
	m := make(map[T]T, n)
	keys := genKeys[T](0, n)
	cs := perfbench.Open(b)
	b.ResetTimer()
	cs.Reset()
	for i := 0; i < b.N; i++ {
		for _, k := range keys {
			m[k] = k
		}
		clear(m)
	}
}

func benchmarkOpenhashMapPutReuse[T Scalar](b *testing.B, n int, options ...option[T]) {
	m := New[T, T](n, options...)
	keys := genKeys[T](0, n)
	cs := perfbench.Open(b)
	b.ResetTimer()
	cs.Reset()
	for i := 0; i < b.N; i++ {
		for _, k := range keys {
			m.Put(k, k)
		}
		m.Clear()
	}
}

func benchmarkRuntimeMapPutDelete[T Scalar](b *testing.B, n int, _ ...option[T]) {
	m := make(map[T]T, n)
	keys := genKeys[T](0, n)
	for _, k := range keys {
		m[k] = k
	}
	cs := perfbench.Open(b)
	b.ResetTimer()
	cs.Reset()
	for i := 0; i < b.N; i++ {
		j := i % n
		delete(m, keys[j])
		m[keys[j]] = keys[j]
	}
}

// The delete and re-insert pair leaves a tombstone behind on every
// iteration, so this also measures the cost of purging them.
func benchmarkOpenhashMapPutDelete[T Scalar](b *testing.B, n int, options ...option[T]) {
	m := New[T, T](n, options...)
	keys := genKeys[T](0, n)
	for _, k := range keys {
		m.Put(k, k)
	}
	cs := perfbench.Open(b)
	b.ResetTimer()
	cs.Reset()
	for i := 0; i < b.N; i++ {
		j := i % n
		m.Remove(keys[j])
		m.Put(keys[j], keys[j])
	}
}

func benchmarkRuntimeSetContains[T Scalar](b *testing.B, n int, _ ...option[T]) {
	s := make(map[T]struct{}, n)
	keys := genKeys[T](0, 2*n)
	for _, k := range keys[:n] {
		s[k] = struct{}{}
	}
	cs := perfbench.Open(b)
	b.ResetTimer()
	cs.Reset()
	var ok bool
	for i := 0; i < b.N; i++ {
		_, ok = s[keys[i%len(keys)]]
	}
	b.StopTimer()
	fmt.Fprint(io.Discard, ok)
}

func benchmarkOpenhashSetContains[T Scalar](b *testing.B, n int, options ...option[T]) {
	keys := genKeys[T](0, 2*n)
	s := NewSetFrom(keys[:n], options...)
	cs := perfbench.Open(b)
	b.ResetTimer()
	cs.Reset()
	var ok bool
	for i := 0; i < b.N; i++ {
		ok = s.Contains(keys[i%len(keys)])
	}
	b.StopTimer()
	fmt.Fprint(io.Discard, ok)
}

func benchmarkOpenhashMapEncode[T Scalar](b *testing.B, n int, options ...option[T]) {
	m := New[T, T](n, options...)
	for _, k := range genKeys[T](0, n) {
		m.Put(k, k)
	}
	cs := perfbench.Open(b)
	b.ResetTimer()
	cs.Reset()
	for i := 0; i < b.N; i++ {
		if _, err := m.WriteTo(io.Discard); err != nil {
			b.Fatal(err)
		}
	}
}
