package dominion

import "sync"

// Tenant owns the chunk list for one composition, plus the id recycler and
// bootstrap cursor that let allocateId stay lock-free on its common path.
//
// Allocation protocol (allocateId): pop the idStack first, under the small
// stackMu that guards only the stack -- a non-empty pop bypasses the
// allocation critical section entirely. Only the "need a fresh id" path
// takes mu, and only to move the
// (current chunk, nextID) pair forward, mirroring the coarse
// compound-transition locking catrate.Limiter.cleanup uses for its own
// multi-field updates.
type Tenant struct {
	pool    *ChunkedPool
	subject *Composition

	dataLength int

	stackMu sync.Mutex
	idStack *idStack

	mu      sync.Mutex
	first   *chunk
	current *chunk
	nextID  int32
}

func newTenant(pool *ChunkedPool, dataLength int, subject *Composition) *Tenant {
	first := pool.newChunk(dataLength)
	objectID, _ := first.acquireSlot()

	t := &Tenant{
		pool:       pool,
		subject:    subject,
		dataLength: dataLength,
		idStack:    newIDStack(pool.schema.chunkCapacity),
		first:      first,
		current:    first,
		nextID:     pool.schema.pack(first.id, objectID),
	}
	return t
}

// allocateId returns a fresh or recycled id, per §4.4's allocation protocol.
func (t *Tenant) allocateId() int32 {
	t.stackMu.Lock()
	popped := t.idStack.pop()
	t.stackMu.Unlock()
	if id := popped; id != emptyID {
		t.pool.chunkOf(id).decrementRm()
		return id
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	id := t.nextID

	if !t.current.hasCapacity() {
		nc := t.pool.newChunk(t.dataLength)
		nc.previous = t.current
		t.current.next = nc
		t.current = nc
	}
	objectID, _ := t.current.acquireSlot()
	t.nextID = t.pool.schema.pack(t.current.id, objectID)

	return id
}

// register allocates an id for entity and stores its component tuple.
func (t *Tenant) register(entity *Entity, components []any) int32 {
	id := t.allocateId()
	entity.id.Store(id)
	t.pool.chunkOf(id).store(t.pool.schema.objectOf(id), entity, components)
	return id
}

// freeId marks id detached on the caller's entity record and releases its
// slot back to this tenant's idStack.
func (t *Tenant) freeId(id int32) {
	ch := t.pool.chunkOf(id)
	objectID := t.pool.schema.objectOf(id)
	if e := ch.load(objectID); e != nil {
		// only if e still holds id: a migrated entity already has its new one.
		e.id.CompareAndSwap(id, t.pool.schema.setDetached(id))
	}
	ch.free(objectID)
	t.stackMu.Lock()
	t.idStack.push(id)
	t.stackMu.Unlock()
}

// migrate copies component values from the entity's current slot into
// newId's slot (already allocated in this tenant by the caller), applying
// the type-remapping and newly-added component(s).
func (t *Tenant) migrate(srcChunk *chunk, srcObjectID int32, newID int32, mapping []int, addedMapping []int, addedOne any, addedMany []any) {
	dstChunk := t.pool.chunkOf(newID)
	dstObjectID := t.pool.schema.objectOf(newID)
	dstChunk.copyFrom(srcChunk, srcObjectID, dstObjectID, mapping)
	dstChunk.add(dstObjectID, addedMapping, addedOne, addedMany)
}

// size reports the tenant's total live-entity count, walking the chunk list.
func (t *Tenant) size() int32 {
	var n int32
	for c := t.first; c != nil; c = c.next {
		n += c.size()
	}
	return n
}

// close releases the idStack. Chunks themselves remain owned by the pool
// until the pool itself is closed.
func (t *Tenant) close() {
	t.stackMu.Lock()
	t.idStack = nil
	t.stackMu.Unlock()
}
