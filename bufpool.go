package web2rpc

import (
	"bytes"
	"context"
	"runtime"

	"github.com/jackc/puddle/v2"
)

// DefaultMaxRetainedBuffer is the largest body buffer kept for reuse. Larger
// buffers are dropped once released.
const DefaultMaxRetainedBuffer = 4 << 20

// bufferPool recycles response body buffers. It never blocks: when every buffer is
// in use a fresh one is allocated instead.
type bufferPool struct {
	pool      *puddle.Pool[*bytes.Buffer]
	maxRetain int
}

// pooledBuffer is a buffer on loan from a [bufferPool].
type pooledBuffer struct {
	buf *bytes.Buffer
	res *puddle.Resource[*bytes.Buffer] // Nil for buffers allocated outside the pool.
}

func newBufferPool(size int32) (*bufferPool, error) {
	if size <= 0 {
		//nolint:gosec,mnd //Puddle requires int32.
		size = int32(min(runtime.NumCPU(), runtime.GOMAXPROCS(-1)) * 2)
	}

	pool, err := puddle.NewPool(&puddle.Config[*bytes.Buffer]{
		Constructor: func(context.Context) (*bytes.Buffer, error) { return new(bytes.Buffer), nil },
		Destructor:  func(*bytes.Buffer) {},
		MaxSize:     size,
	})
	if err != nil {
		return nil, err
	}

	return &bufferPool{pool: pool, maxRetain: DefaultMaxRetainedBuffer}, nil
}

func (p *bufferPool) acquire() *pooledBuffer {
	res, err := p.pool.TryAcquire(context.Background())
	if err != nil {
		// Pool exhausted or closed.
		return &pooledBuffer{buf: new(bytes.Buffer)}
	}

	buf := res.Value()
	buf.Reset()

	return &pooledBuffer{buf: buf, res: res}
}

func (p *bufferPool) release(b *pooledBuffer) {
	if b.res == nil {
		return
	}

	if b.buf.Cap() > p.maxRetain {
		b.res.Destroy()
	} else {
		b.res.Release()
	}

	b.res = nil
}

func (p *bufferPool) close() {
	p.pool.Close()
}
