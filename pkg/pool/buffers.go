// Package pool reuses the buffers pages are rendered into.
package pool

import (
	"bytes"
	"sync"
)

// DefaultMaxSize is the largest buffer capacity Pages keeps.
const DefaultMaxSize = 1 << 20

// Pages is the pool live routes render into.
var Pages = NewBufferPool(DefaultMaxSize)

// BufferPool is a sync.Pool of bytes.Buffer that drops oversized buffers
// instead of keeping them.
type BufferPool struct {
	pool    sync.Pool
	maxSize int
}

// NewBufferPool creates a pool that discards buffers that grew beyond
// maxSize bytes. A maxSize of zero or less keeps every buffer.
func NewBufferPool(maxSize int) *BufferPool {
	return &BufferPool{
		pool: sync.Pool{
			New: func() any { return new(bytes.Buffer) },
		},
		maxSize: maxSize,
	}
}

// Get returns an empty buffer.
func (p *BufferPool) Get() *bytes.Buffer {
	buf := p.pool.Get().(*bytes.Buffer)
	buf.Reset()
	return buf
}

// Put returns buf to the pool.
func (p *BufferPool) Put(buf *bytes.Buffer) {
	if buf == nil {
		return
	}
	if p.maxSize > 0 && buf.Cap() > p.maxSize {
		return
	}
	p.pool.Put(buf)
}

// GetBuffer takes a buffer from Pages.
func GetBuffer() *bytes.Buffer {
	return Pages.Get()
}

// PutBuffer returns a buffer to Pages.
func PutBuffer(buf *bytes.Buffer) {
	Pages.Put(buf)
}
