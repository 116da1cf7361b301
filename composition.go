package dominion

import (
	"reflect"
	"sync"
)

// IndexKey is the compact, hashable key a state value is indexed by:
// (classIndex of the state's type, its ordinal within that type).
type IndexKey struct {
	classIndex int
	ordinal    int
}

// State is implemented by enumerated state values that entities can be
// indexed by (Composition.SetState). StateOrdinal plays the role the
// source's enum ordinal() does.
type State interface {
	StateOrdinal() int
}

// Composition is the immutable set of component types, in canonical order,
// that a group of entities shares. It owns exactly one Tenant, a dense
// componentIndex table for O(1) column lookups, and the per-composition
// state index (a chain per enumerated state, rooted in a concurrent map).
type Composition struct {
	world *World

	types []reflect.Type
	// componentIndex[classIdx] = 1+ordinal in types, or 0 if absent.
	componentIndex []int

	tenant *Tenant

	// states maps IndexKey -> *Entity (chain head). Promotion on collision
	// and interior splice run under stateMu; a plain read of the map to
	// find the current head does not need it.
	states  sync.Map
	stateMu sync.Mutex
}

func newComposition(world *World, types []reflect.Type) *Composition {
	c := &Composition{world: world, types: types}

	maxClassIdx := -1
	classIdxOf := make([]int, len(types))
	for i, t := range types {
		classIdxOf[i] = world.classIndex.GetOrCreate(t)
		if classIdxOf[i] > maxClassIdx {
			maxClassIdx = classIdxOf[i]
		}
	}
	c.componentIndex = make([]int, maxClassIdx+1)
	for i, classIdx := range classIdxOf {
		c.componentIndex[classIdx] = i + 1
	}

	c.tenant = world.pool.newTenant(len(types), c)
	return c
}

// Types returns the composition's canonical component type order.
func (c *Composition) Types() []reflect.Type {
	return c.types
}

// containsAll reports whether every type in types has a column in c, the
// superset test World.Select narrows its composition set by.
func (c *Composition) containsAll(types []reflect.Type) bool {
	for _, t := range types {
		if c.positionOf(t) < 0 {
			return false
		}
	}
	return true
}

func (c *Composition) positionOf(t reflect.Type) int {
	classIdx := c.world.classIndex.GetIndex(t)
	if classIdx < 0 || classIdx >= len(c.componentIndex) {
		return -1
	}
	return c.componentIndex[classIdx] - 1
}

// reorder permutes components in place so components[i] is an instance of
// c.types[i] for every i, using componentIndex for O(k) target lookups. It
// is the standard in-place "place each element at its destination" swap
// loop: an index either already holds its target value and advances, or is
// swapped with its target and re-examined.
func (c *Composition) reorder(components []any) error {
	if len(components) != len(c.types) {
		return ErrTypeMismatch
	}
	for i := 0; i < len(components); {
		target := c.positionOf(reflect.TypeOf(components[i]))
		if target < 0 {
			return ErrTypeMismatch
		}
		if target == i {
			i++
			continue
		}
		if reflect.TypeOf(components[target]) == c.types[target] {
			// target already holds its type: components[i] is a duplicate.
			return ErrTypeMismatch
		}
		components[i], components[target] = components[target], components[i]
	}
	return nil
}

// CreateEntity allocates a new entity in this composition's tenant, with
// the given component tuple reordered into canonical order.
func (c *Composition) CreateEntity(components ...any) (*Entity, error) {
	if len(c.types) >= 2 {
		if err := c.reorder(components); err != nil {
			return nil, err
		}
	} else if len(c.types) == 1 {
		if len(components) != 1 || reflect.TypeOf(components[0]) != c.types[0] {
			return nil, ErrTypeMismatch
		}
	} else if len(components) != 0 {
		return nil, ErrTypeMismatch
	}

	e := &Entity{}
	e.data.Store(&entityData{composition: c, components: components})
	c.tenant.register(e, components)

	c.world.logf(LevelDebug, "entity created", Field{"composition", c}, Field{"id", e.ID()})
	return e, nil
}

// DeleteEntity detaches any state, frees the entity's id, and clears its
// data record. The freed components slice is returned to the world's
// component array pool.
func (c *Composition) DeleteEntity(e *Entity) {
	c.SetState(e, nil)

	id := e.ID()
	c.tenant.freeId(id)

	old := e.data.Swap(&entityData{})
	if c.world.arrayPool != nil && old != nil && old.components != nil {
		c.world.arrayPool.Put(old.components)
	}
}

// AttachEntity migrates e from this composition to dest, adding the given
// component value(s), which must correspond 1:1 to the types dest adds over
// this composition. It implements both attachEntity (typically one added
// type) and the general add-N-components case.
func (c *Composition) AttachEntity(e *Entity, dest *Composition, added ...any) (*Entity, error) {
	return c.migrateTo(e, dest, added)
}

// ReattachEntity migrates e from this composition to dest, where dest's
// type set is a subset of this composition's (component removal).
func (c *Composition) ReattachEntity(e *Entity, dest *Composition) (*Entity, error) {
	return c.migrateTo(e, dest, nil)
}

func (c *Composition) migrateTo(e *Entity, dest *Composition, added []any) (*Entity, error) {
	data := e.data.Load()
	if data.composition != c {
		// migrated out from under us already; let the caller's iterator
		// skip this the way §4.7/§4.8 describe, rather than erroring.
		return e, nil
	}

	oldID := e.ID()
	oldChunk := c.world.pool.chunkOf(oldID)
	srcObjectID := c.world.pool.schema.objectOf(oldID)

	mapping := make([]int, len(c.types))
	for i, t := range c.types {
		mapping[i] = dest.positionOf(t)
	}

	addedMapping := make([]int, len(added))
	for i, v := range added {
		pos := dest.positionOf(reflect.TypeOf(v))
		if pos < 0 {
			return nil, ErrTypeMismatch
		}
		addedMapping[i] = pos
	}

	var newComponents []any
	if dest.world.arrayPool != nil {
		newComponents = dest.world.arrayPool.Get(len(dest.types))
	} else {
		newComponents = make([]any, len(dest.types))
	}
	for i, dst := range mapping {
		if dst >= 0 {
			newComponents[dst] = data.components[i]
		}
	}
	for i, dst := range addedMapping {
		newComponents[dst] = added[i]
	}

	var addedOne any
	var addedMany []any
	switch len(added) {
	case 0:
	case 1:
		addedOne = added[0]
	default:
		addedMany = added
	}

	newID := dest.tenant.allocateId()
	dest.tenant.migrate(oldChunk, srcObjectID, newID, mapping, addedMapping, addedOne, addedMany)
	dest.world.pool.chunkOf(newID).store(dest.world.pool.schema.objectOf(newID), e, nil)
	// store() above only publishes the back-reference (items[]); the
	// column writes themselves were already performed by tenant.migrate.

	e.data.Store(&entityData{composition: dest, components: newComponents, stateRoot: data.stateRoot, stateOwner: data.stateOwner})
	e.id.Store(newID)

	c.tenant.freeId(oldID)
	if c.world.arrayPool != nil && data.components != nil {
		c.world.arrayPool.Put(data.components)
	}

	c.world.logf(LevelDebug, "entity migrated", Field{"from", c}, Field{"to", dest}, Field{"id", newID})
	return e, nil
}

func indexKeyOf(world *World, state State) IndexKey {
	return IndexKey{
		classIndex: world.classIndex.GetOrCreate(reflect.TypeOf(state)),
		ordinal:    state.StateOrdinal(),
	}
}

// SetState detaches e from whatever chain it currently heads or belongs to,
// then, if state is non-nil, attaches it to the chain for state's IndexKey.
func (c *Composition) SetState(e *Entity, state State) {
	c.detachState(e)
	if state == nil {
		return
	}
	c.attachState(e, indexKeyOf(c.world, state))
}

// attachState links e as the new head of key's chain, promoting any
// existing head to e.prev. This is a compound transition (map write plus
// two pointer writes plus two stateRoot publications), so it always runs
// under stateMu. The chain is always attached under the composition
// SetState was called through, recorded as e's stateOwner so a later
// detach finds the right map even if e has since migrated elsewhere.
func (c *Composition) attachState(e *Entity, key IndexKey) {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()

	actual, loaded := c.states.LoadOrStore(key, e)
	if !loaded {
		e.prev = nil
		e.next = nil
		setStateRoot(e, &key, c)
		return
	}

	oldHead := actual.(*Entity)
	if oldHead == e {
		return
	}

	e.prev = oldHead
	e.next = nil
	oldHead.next = e
	setStateRoot(e, &key, c)
	setStateRoot(oldHead, nil, c)
	c.states.Store(key, e)
}

// detachState removes e from whichever state chain it currently belongs to,
// if any. It covers all three cases from §4.7: e is a lone head, e is a
// head with predecessors, or e is an interior/tail member. The chain's
// owning composition (e.data.stateOwner) may differ from c when e has
// migrated since attaching; surgery always runs against the owner's map
// and lock, not c's, so a post-migration delete/reattach can't corrupt or
// leave a dangling entry in a different composition's state index.
func (c *Composition) detachState(e *Entity) {
	data := e.data.Load()
	owner := data.stateOwner
	if owner == nil {
		owner = c
	}

	if data.stateRoot == nil {
		if e.prev == nil && e.next == nil {
			return
		}
		// interior or tail member: splice out under the owner's lock.
		owner.stateMu.Lock()
		defer owner.stateMu.Unlock()
		if e.prev != nil {
			e.prev.next = e.next
		}
		if e.next != nil {
			e.next.prev = e.prev
		}
		e.prev, e.next = nil, nil
		setStateRoot(e, nil, nil)
		return
	}

	key := *data.stateRoot
	owner.stateMu.Lock()
	defer owner.stateMu.Unlock()

	if e.prev == nil {
		// head and alone.
		owner.states.CompareAndDelete(key, e)
		setStateRoot(e, nil, nil)
		return
	}

	// head with predecessors: promote prev to head.
	newHead := e.prev
	if owner.states.CompareAndSwap(key, e, newHead) {
		newHead.next = nil
		setStateRoot(newHead, &key, owner)
	}
	setStateRoot(e, nil, nil)
	e.prev, e.next = nil, nil
}

// setStateRoot publishes e's stateRoot/stateOwner, preserving its current
// composition/components. owner is nil only when e is leaving every chain.
func setStateRoot(e *Entity, root *IndexKey, owner *Composition) {
	old := e.data.Load()
	e.data.Store(&entityData{composition: old.composition, components: old.components, stateRoot: root, stateOwner: owner})
}

// StateChain returns an iterator over the entities currently in state's
// chain, walking from head toward tail: under no concurrent mutation that
// is the most recently attached entity first, i.e. reverse attach order.
func (c *Composition) StateChain(state State) *stateChainIterator {
	key := indexKeyOf(c.world, state)
	head, ok := c.states.Load(key)
	if !ok {
		return &stateChainIterator{}
	}
	return &stateChainIterator{cur: head.(*Entity)}
}

type stateChainIterator struct {
	cur *Entity
}

// Next returns the current entity and advances toward the tail.
func (it *stateChainIterator) Next() (*Entity, bool) {
	if it.cur == nil {
		return nil, false
	}
	e := it.cur
	it.cur = e.prev
	return e, true
}
