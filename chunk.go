package dominion

import "sync/atomic"

// chunk is a fixed-capacity slab owned by exactly one tenant. It holds one
// entity back-reference per slot (items), plus either a single column
// (dataLen == 1) or a struct-of-arrays set of columns (dataLen >= 2),
// mirroring the two storage modes a composition's shape calls for.
//
// index and rm are atomic: slot acquisition is a plain fetch-and-add
// (grounded on the cache-line-padded atomic counter pattern used for task
// arenas elsewhere in the source pack), and removal bookkeeping races with
// concurrent frees from any thread holding a handle into this chunk.
type chunk struct {
	id       int32
	capacity int32

	items []*Entity

	index atomic.Int32
	rm    atomic.Int32

	previous *chunk
	next     *chunk

	dataLen int
	col     []any   // used when dataLen == 1
	cols    [][]any // used when dataLen >= 2; cols[column][slot]
}

func newChunk(id, capacity int32, dataLen int) *chunk {
	c := &chunk{
		id:       id,
		capacity: capacity,
		items:    make([]*Entity, capacity),
		dataLen:  dataLen,
	}
	switch {
	case dataLen == 1:
		c.col = make([]any, capacity)
	case dataLen >= 2:
		c.cols = make([][]any, dataLen)
		for i := range c.cols {
			c.cols[i] = make([]any, capacity)
		}
	}
	return c
}

// acquireSlot performs an atomic fetch-and-add of index and reports whether
// the resulting slot is within the chunk's usable range (objectID < capacity).
func (c *chunk) acquireSlot() (objectID int32, ok bool) {
	next := c.index.Add(1)
	objectID = next - 1
	ok = next <= c.capacity
	return
}

// hasCapacity reports whether the chunk can still service acquireSlot. Since
// Tenant.allocateId always holds one id's worth of lookahead (the cached
// nextID), a chunk whose index has reached capacity has already handed out
// its last objectID and needs a successor chunk for the next lookahead slot.
func (c *chunk) hasCapacity() bool {
	return c.index.Load() < c.capacity
}

// store publishes entity at objectID, populating component columns.
func (c *chunk) store(objectID int32, entity *Entity, components []any) {
	c.items[objectID] = entity
	switch c.dataLen {
	case 1:
		if len(components) > 0 {
			c.col[objectID] = components[0]
		}
	default:
		for i := 0; i < c.dataLen && i < len(components); i++ {
			c.cols[i][objectID] = components[i]
		}
	}
}

// load returns the entity occupying id's object slot, or nil.
func (c *chunk) load(objectID int32) *Entity {
	return c.items[objectID]
}

// free clears a slot and increments rm. Pushing the freed id onto the owning
// tenant's idStack is left to the caller (Tenant.freeId).
func (c *chunk) free(objectID int32) {
	c.items[objectID] = nil
	switch c.dataLen {
	case 1:
		c.col[objectID] = nil
	default:
		for i := range c.cols {
			c.cols[i][objectID] = nil
		}
	}
	c.rm.Add(1)
}

// decrementRm balances rm when a freed id is popped back off the idStack for
// reuse, since that slot is no longer "removed" once it's about to be
// restored.
func (c *chunk) decrementRm() {
	c.rm.Add(-1)
}

// size reports the number of live entities visible through this chunk,
// per the invariant size = index + (hasNext?1:0) - rm.
func (c *chunk) size() int32 {
	hasNext := int32(0)
	if c.next != nil {
		hasNext = 1
	}
	return c.index.Load() + hasNext - c.rm.Load()
}

// copyFrom copies component values from a (possibly differently shaped)
// source chunk's srcIdx slot into this chunk's dstIdx slot, following
// indexMapping: indexMapping[i] names the destination column for source
// column i, or -1 if that source column is dropped by the migration.
func (c *chunk) copyFrom(srcChunk *chunk, srcIdx, dstIdx int32, indexMapping []int) {
	for i, dst := range indexMapping {
		if dst < 0 {
			continue
		}
		c.writeColumn(dst, dstIdx, srcChunk.readColumn(i, srcIdx))
	}
}

// add writes newly attached component(s) into this chunk's destination
// columns at objectID, per addedMapping (parallel to a single added value,
// or addedMany for multiple added values in the same migration).
func (c *chunk) add(objectID int32, addedMapping []int, addedOne any, addedMany []any) {
	if addedMany != nil {
		for i, dst := range addedMapping {
			if dst < 0 || i >= len(addedMany) {
				continue
			}
			c.writeColumn(dst, objectID, addedMany[i])
		}
		return
	}
	for _, dst := range addedMapping {
		if dst < 0 {
			continue
		}
		c.writeColumn(dst, objectID, addedOne)
	}
}

func (c *chunk) readColumn(col int, idx int32) any {
	if c.dataLen == 1 {
		return c.col[idx]
	}
	return c.cols[col][idx]
}

func (c *chunk) writeColumn(col int, idx int32, v any) {
	if c.dataLen == 1 {
		c.col[idx] = v
		return
	}
	c.cols[col][idx] = v
}
