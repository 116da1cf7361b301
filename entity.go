package dominion

import "sync/atomic"

// entityData is the (composition, components, stateRoot) triple an Entity
// publishes atomically, so that a shape migration swaps the whole record in
// a single store and readers never observe a torn view.
type entityData struct {
	composition *Composition
	components  []any
	stateRoot   *IndexKey
	// stateOwner is the composition whose states map and stateMu actually
	// hold this entity's chain membership. It is set when the entity is
	// attached to a chain and is independent of composition: a migration
	// rebinds composition to the destination but carries stateOwner
	// forward unchanged, since the chain a chunk's entity was indexed
	// into does not move with it (§9 "the owner of a chain member is its
	// composition's tenant", not its current one).
	stateOwner *Composition
}

// Entity is a handle into the storage core plus the state-chain's intrusive
// pointers. Entities are never copied by value after creation: all package
// code works with *Entity, so the prev/next pointers remain valid links.
type Entity struct {
	id   atomic.Int32
	data atomic.Pointer[entityData]

	// prev/next are the state chain's intrusive doubly-linked pointers.
	// Both are nil when the entity isn't currently indexed by any state.
	// They are only ever mutated under the owning Composition's state lock.
	prev *Entity
	next *Entity
}

// ID returns the entity's packed handle. A migration rebinds this to a new
// handle; ID and Composition/Components are updated independently (a
// migration publishes the new entityData before the new id is visible via
// ID, which only matters to code peeking at both fields non-atomically
// together -- within this package, id is always read after data during
// migration so the two are never inconsistent from this package's own call
// sites).
func (e *Entity) ID() int32 {
	return e.id.Load()
}

// Composition returns the composition the entity currently belongs to, as
// of the last published migration. Reading this concurrently with a
// migration never yields a torn value: it is either the pre- or
// post-migration composition.
func (e *Entity) Composition() *Composition {
	if d := e.data.Load(); d != nil {
		return d.composition
	}
	return nil
}

// Components returns the entity's component tuple, ordered per its current
// composition's canonical component order.
func (e *Entity) Components() []any {
	if d := e.data.Load(); d != nil {
		return d.components
	}
	return nil
}

// StateRoot reports the IndexKey of the state chain this entity is the head
// of, or nil if it isn't a chain head (including when it isn't indexed at
// all, or is an interior/tail chain member).
func (e *Entity) StateRoot() *IndexKey {
	if d := e.data.Load(); d != nil {
		return d.stateRoot
	}
	return nil
}
