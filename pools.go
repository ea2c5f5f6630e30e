package arcflate

import (
	"bytes"
	"strings"
	"sync"

	"github.com/chronos-tachyon/assert"
)

// freeList is a typed sync.Pool.  recycle readies an item for reuse and
// reports whether it should go back into the pool at all.
type freeList[T any] struct {
	pool    sync.Pool
	recycle func(T) bool
}

func newFreeList[T any](alloc func() T, recycle func(T) bool) *freeList[T] {
	fl := &freeList[T]{recycle: recycle}
	fl.pool.New = func() any { return alloc() }
	return fl
}

func (fl *freeList[T]) take() T {
	return fl.pool.Get().(T)
}

func (fl *freeList[T]) give(item T) {
	if fl.recycle(item) {
		fl.pool.Put(item)
	}
}

// maxPooledBytesBuffer bounds the capacity of a pooled buffer.  A buffer
// that grew to hold a large Zstandard frame is left to the garbage collector.
const maxPooledBytesBuffer = 1 << 20

var stringsBuilders = newFreeList(
	func() *strings.Builder {
		sb := new(strings.Builder)
		sb.Grow(256)
		return sb
	},
	func(sb *strings.Builder) bool {
		assert.NotNil(&sb)
		sb.Reset()
		return true
	})

var bytesBuffers = newFreeList(
	func() *bytes.Buffer {
		return bytes.NewBuffer(make([]byte, 0, 256))
	},
	func(bb *bytes.Buffer) bool {
		assert.NotNil(&bb)
		bb.Reset()
		return bb.Cap() <= maxPooledBytesBuffer
	})

var tokenSlices = newFreeList(
	func() *[]token {
		list := make([]token, 0, 256)
		return &list
	},
	func(ptr *[]token) bool {
		assert.NotNil(&ptr)
		*ptr = (*ptr)[:0]
		return true
	})
