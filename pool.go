package dominion

import (
	"sync"
	"sync/atomic"

	"golang.org/x/exp/constraints"
)

// ChunkedPool owns every chunk created across every tenant of a World, and
// the list of tenants it created. A handle's chunk never vanishes for the
// lifetime of the pool, so a handle's validity only ever depends on whether
// it has been freed, never on whether its chunk still exists.
type ChunkedPool struct {
	schema idSchema

	mu     sync.RWMutex
	chunks []*chunk

	tenantsMu sync.Mutex
	tenants   []*Tenant

	nextChunkID atomic.Int32
}

func newChunkedPool(schema idSchema) *ChunkedPool {
	return &ChunkedPool{schema: schema}
}

// newChunk allocates and registers a fresh chunk with dataLen columns,
// growing the pool's dense chunk index as needed.
func (p *ChunkedPool) newChunk(dataLen int) *chunk {
	id := p.nextChunkID.Add(1) - 1
	if id >= p.schema.chunkCount {
		panic(ErrCapacityExceeded)
	}
	c := newChunk(id, p.schema.chunkCapacity, dataLen)

	p.mu.Lock()
	for int32(len(p.chunks)) <= id {
		grown := make([]*chunk, max(1, int32(len(p.chunks))*2))
		copy(grown, p.chunks)
		p.chunks = grown
	}
	p.chunks[id] = c
	p.mu.Unlock()

	return c
}

// chunkOf returns the chunk that owns id's chunk component.
func (p *ChunkedPool) chunkOf(id int32) *chunk {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.chunks[p.schema.chunkOf(id)]
}

// entityOf resolves id to the entity that last registered it, in O(1).
func (p *ChunkedPool) entityOf(id int32) *Entity {
	return p.chunkOf(id).load(p.schema.objectOf(id))
}

// newTenant creates and registers a tenant for dataLen component columns.
func (p *ChunkedPool) newTenant(dataLen int, subject *Composition) *Tenant {
	t := newTenant(p, dataLen, subject)
	p.tenantsMu.Lock()
	p.tenants = append(p.tenants, t)
	p.tenantsMu.Unlock()
	return t
}

// allEntities returns an iterator over every live entity across every
// chunk, in reverse chunk-creation order.
func (p *ChunkedPool) allEntities() *poolEntityIterator {
	p.mu.RLock()
	chunks := make([]*chunk, len(p.chunks))
	copy(chunks, p.chunks)
	p.mu.RUnlock()
	return &poolEntityIterator{chunks: chunks, chunkIdx: len(chunks) - 1}
}

// close closes every tenant the pool created.
func (p *ChunkedPool) close() error {
	p.tenantsMu.Lock()
	tenants := p.tenants
	p.tenants = nil
	p.tenantsMu.Unlock()

	for _, t := range tenants {
		t.close()
	}
	return nil
}

// max returns the larger of a and b. Generic over constraints.Integer so the
// one helper serves both the chunk-index doubling here and any other
// integer-typed growth arithmetic in the package.
func max[T constraints.Integer](a, b T) T {
	if a > b {
		return a
	}
	return b
}

// poolEntityIterator walks every chunk from last-created to first, and
// within each chunk from high slot index down to 0, skipping nils.
type poolEntityIterator struct {
	chunks   []*chunk
	chunkIdx int
	slotIdx  int32
	started  bool
}

// Next advances the iterator and reports whether it produced a value.
func (it *poolEntityIterator) Next() (*Entity, bool) {
	for it.chunkIdx >= 0 {
		c := it.chunks[it.chunkIdx]
		if c == nil {
			it.chunkIdx--
			continue
		}
		if !it.started {
			it.slotIdx = c.capacity - 1
			it.started = true
		}
		for it.slotIdx >= 0 {
			e := c.items[it.slotIdx]
			it.slotIdx--
			if e != nil {
				return e, true
			}
		}
		it.chunkIdx--
		it.started = false
	}
	return nil, false
}
