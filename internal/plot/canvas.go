package plot

import (
	"bytes"
	"sync"
	"sync/atomic"
)

// Canvas is the drawing surface of one render call.
type Canvas struct {
	buf      *bytes.Buffer
	owner    *canvasPool
	released bool
}

type canvasPool struct {
	pool sync.Pool
	open atomic.Int64
}

func newCanvasPool() *canvasPool {
	return &canvasPool{
		pool: sync.Pool{New: func() any { return new(bytes.Buffer) }},
	}
}

func (p *canvasPool) acquire() *Canvas {
	buf := p.pool.Get().(*bytes.Buffer)
	buf.Reset()
	p.open.Add(1)
	return &Canvas{buf: buf, owner: p}
}

// Bytes returns a copy of what has been drawn so far.
func (c *Canvas) Bytes() []byte {
	return bytes.Clone(c.buf.Bytes())
}

// Release returns the canvas to its pool. Calling it again is a no-op.
func (c *Canvas) Release() {
	if c.released {
		return
	}
	c.released = true
	c.buf.Reset()
	c.owner.pool.Put(c.buf)
	c.buf = nil
	c.owner.open.Add(-1)
}
