package gas

import "sync"

// buffer is one full set of cells. Published buffers are never written
// again; scratch buffers are recycled through bufferPool.
type buffer struct {
	cells []Cell
}

type bufferPool struct {
	pool sync.Pool
	size int
}

func newBufferPool(size int) *bufferPool {
	return &bufferPool{
		size: size,
		pool: sync.Pool{
			New: func() any {
				return &buffer{cells: make([]Cell, size)}
			},
		},
	}
}

// get returns a zeroed buffer.
func (p *bufferPool) get() *buffer {
	b := p.pool.Get().(*buffer)
	clear(b.cells)
	return b
}

func (p *bufferPool) put(b *buffer) {
	if b != nil && len(b.cells) == p.size {
		p.pool.Put(b)
	}
}

// getCopy returns a buffer holding a copy of src.
func (p *bufferPool) getCopy(src *buffer) *buffer {
	b := p.pool.Get().(*buffer)
	copy(b.cells, src.cells)
	return b
}
