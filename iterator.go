package dominion

import "reflect"

// tenantIterator performs the canonical forward scan described in §4.8:
// chunks are visited first-to-last, and within each chunk, slots are walked
// from the highest index down to 0, skipping nils.
type tenantIterator struct {
	chunk   *chunk
	slot    int32
	started bool
}

func newTenantIterator(t *Tenant) *tenantIterator {
	return &tenantIterator{chunk: t.first}
}

// Next returns the next live entity in scan order.
func (it *tenantIterator) Next() (*Entity, bool) {
	for it.chunk != nil {
		if !it.started {
			it.slot = it.chunk.capacity - 1
			it.started = true
		}
		for it.slot >= 0 {
			e := it.chunk.items[it.slot]
			it.slot--
			if e != nil {
				return e, true
			}
		}
		it.chunk = it.chunk.next
		it.started = false
	}
	return nil, false
}

// entitySource is the "column-reader strategy" seam the per-arity typed
// iterators below are built on: a plain composition scan (tenantIterator)
// and a state-chain walk (stateChainIterator) both reduce to "give me the
// next entity"; the typed iterator itself always resolves that entity's
// own current chunk to read columns from, which is what makes it correct
// for both axes without duplicating eight iterator shapes (§4.8, Design
// Notes §9): a state chain's members may span chunks the scan never
// visited, and a plain scan's members may have migrated to a different
// *chunk* of the same composition between the scan starting and reaching
// them (chunks are only ever appended to a tenant, never removed, so an
// entity never becomes unreachable -- it is simply read from wherever it
// now actually lives).
type entitySource func() (*Entity, bool)

// requireIndex resolves the dense column index for component type t within
// comp, or ErrTypeMismatch if comp does not carry that type.
func (c *Composition) requireIndex(t reflect.Type) (int, error) {
	idx := c.positionOf(t)
	if idx < 0 {
		return 0, ErrTypeMismatch
	}
	return idx, nil
}

// columnOf reads entity e's value in column idx, resolving e's own chunk
// (not necessarily the iterator's last-visited chunk). Returns ok=false if
// e has migrated out of comp since the source yielded it, per §4.7's
// composition-identity skip rule.
func columnOf[A any](comp *Composition, e *Entity, idx int) (a A, ok bool) {
	data := e.data.Load()
	if data.composition != comp {
		return a, false
	}
	id := e.ID()
	ch := comp.world.pool.chunkOf(id)
	slot := comp.world.pool.schema.objectOf(id)
	v := ch.readColumn(idx, slot)
	a, _ = v.(A)
	return a, true
}

// Iter1 yields (component, entity) tuples for a single-component Select.
type Iter1[A any] struct {
	comp *Composition
	src  entitySource
	idx0 int
}

func newIter1[A any](comp *Composition, src entitySource) (*Iter1[A], error) {
	idx0, err := comp.requireIndex(reflect.TypeFor[A]())
	if err != nil {
		return nil, err
	}
	return &Iter1[A]{comp: comp, src: src, idx0: idx0}, nil
}

// Next advances the iterator, skipping entities that migrated away.
func (it *Iter1[A]) Next() (a A, e *Entity, ok bool) {
	for {
		cand, has := it.src()
		if !has {
			return a, nil, false
		}
		if a, ok = columnOf[A](it.comp, cand, it.idx0); ok {
			return a, cand, true
		}
	}
}

// Iter2 yields (c1, c2, entity) tuples.
type Iter2[A, B any] struct {
	comp       *Composition
	src        entitySource
	idx0, idx1 int
}

func newIter2[A, B any](comp *Composition, src entitySource) (*Iter2[A, B], error) {
	idx0, err := comp.requireIndex(reflect.TypeFor[A]())
	if err != nil {
		return nil, err
	}
	idx1, err := comp.requireIndex(reflect.TypeFor[B]())
	if err != nil {
		return nil, err
	}
	return &Iter2[A, B]{comp: comp, src: src, idx0: idx0, idx1: idx1}, nil
}

func (it *Iter2[A, B]) Next() (a A, b B, e *Entity, ok bool) {
	for {
		cand, has := it.src()
		if !has {
			return a, b, nil, false
		}
		data := cand.data.Load()
		if data.composition != it.comp {
			continue
		}
		a, _ = columnOf[A](it.comp, cand, it.idx0)
		b, _ = columnOf[B](it.comp, cand, it.idx1)
		return a, b, cand, true
	}
}

// Iter3 yields (c1, c2, c3, entity) tuples.
type Iter3[A, B, C any] struct {
	comp             *Composition
	src              entitySource
	idx0, idx1, idx2 int
}

func newIter3[A, B, C any](comp *Composition, src entitySource) (*Iter3[A, B, C], error) {
	idx0, err := comp.requireIndex(reflect.TypeFor[A]())
	if err != nil {
		return nil, err
	}
	idx1, err := comp.requireIndex(reflect.TypeFor[B]())
	if err != nil {
		return nil, err
	}
	idx2, err := comp.requireIndex(reflect.TypeFor[C]())
	if err != nil {
		return nil, err
	}
	return &Iter3[A, B, C]{comp: comp, src: src, idx0: idx0, idx1: idx1, idx2: idx2}, nil
}

func (it *Iter3[A, B, C]) Next() (a A, b B, c C, e *Entity, ok bool) {
	for {
		cand, has := it.src()
		if !has {
			return a, b, c, nil, false
		}
		if cand.data.Load().composition != it.comp {
			continue
		}
		a, _ = columnOf[A](it.comp, cand, it.idx0)
		b, _ = columnOf[B](it.comp, cand, it.idx1)
		c, _ = columnOf[C](it.comp, cand, it.idx2)
		return a, b, c, cand, true
	}
}

// Iter4 yields (c1, c2, c3, c4, entity) tuples.
type Iter4[A, B, C, D any] struct {
	comp                   *Composition
	src                    entitySource
	idx0, idx1, idx2, idx3 int
}

func newIter4[A, B, C, D any](comp *Composition, src entitySource) (*Iter4[A, B, C, D], error) {
	idxs, err := comp.requireIndices(reflect.TypeFor[A](), reflect.TypeFor[B](), reflect.TypeFor[C](), reflect.TypeFor[D]())
	if err != nil {
		return nil, err
	}
	return &Iter4[A, B, C, D]{comp: comp, src: src, idx0: idxs[0], idx1: idxs[1], idx2: idxs[2], idx3: idxs[3]}, nil
}

func (it *Iter4[A, B, C, D]) Next() (a A, b B, c C, d D, e *Entity, ok bool) {
	for {
		cand, has := it.src()
		if !has {
			return a, b, c, d, nil, false
		}
		if cand.data.Load().composition != it.comp {
			continue
		}
		a, _ = columnOf[A](it.comp, cand, it.idx0)
		b, _ = columnOf[B](it.comp, cand, it.idx1)
		c, _ = columnOf[C](it.comp, cand, it.idx2)
		d, _ = columnOf[D](it.comp, cand, it.idx3)
		return a, b, c, d, cand, true
	}
}

// Iter5 yields (c1..c5, entity) tuples.
type Iter5[A, B, C, D, E any] struct {
	comp                         *Composition
	src                          entitySource
	idx0, idx1, idx2, idx3, idx4 int
}

func newIter5[A, B, C, D, E any](comp *Composition, src entitySource) (*Iter5[A, B, C, D, E], error) {
	idxs, err := comp.requireIndices(reflect.TypeFor[A](), reflect.TypeFor[B](), reflect.TypeFor[C](), reflect.TypeFor[D](), reflect.TypeFor[E]())
	if err != nil {
		return nil, err
	}
	return &Iter5[A, B, C, D, E]{comp: comp, src: src, idx0: idxs[0], idx1: idxs[1], idx2: idxs[2], idx3: idxs[3], idx4: idxs[4]}, nil
}

func (it *Iter5[A, B, C, D, E]) Next() (a A, b B, c C, d D, e5 E, e *Entity, ok bool) {
	for {
		cand, has := it.src()
		if !has {
			return a, b, c, d, e5, nil, false
		}
		if cand.data.Load().composition != it.comp {
			continue
		}
		a, _ = columnOf[A](it.comp, cand, it.idx0)
		b, _ = columnOf[B](it.comp, cand, it.idx1)
		c, _ = columnOf[C](it.comp, cand, it.idx2)
		d, _ = columnOf[D](it.comp, cand, it.idx3)
		e5, _ = columnOf[E](it.comp, cand, it.idx4)
		return a, b, c, d, e5, cand, true
	}
}

// Iter6 yields (c1..c6, entity) tuples -- the widest shape per §2's row for
// Composition ("one to six typed component columns").
type Iter6[A, B, C, D, E, F any] struct {
	comp                               *Composition
	src                                entitySource
	idx0, idx1, idx2, idx3, idx4, idx5 int
}

func newIter6[A, B, C, D, E, F any](comp *Composition, src entitySource) (*Iter6[A, B, C, D, E, F], error) {
	idxs, err := comp.requireIndices(reflect.TypeFor[A](), reflect.TypeFor[B](), reflect.TypeFor[C](), reflect.TypeFor[D](), reflect.TypeFor[E](), reflect.TypeFor[F]())
	if err != nil {
		return nil, err
	}
	return &Iter6[A, B, C, D, E, F]{comp: comp, src: src, idx0: idxs[0], idx1: idxs[1], idx2: idxs[2], idx3: idxs[3], idx4: idxs[4], idx5: idxs[5]}, nil
}

func (it *Iter6[A, B, C, D, E, F]) Next() (a A, b B, c C, d D, e5 E, f F, e *Entity, ok bool) {
	for {
		cand, has := it.src()
		if !has {
			return a, b, c, d, e5, f, nil, false
		}
		if cand.data.Load().composition != it.comp {
			continue
		}
		a, _ = columnOf[A](it.comp, cand, it.idx0)
		b, _ = columnOf[B](it.comp, cand, it.idx1)
		c, _ = columnOf[C](it.comp, cand, it.idx2)
		d, _ = columnOf[D](it.comp, cand, it.idx3)
		e5, _ = columnOf[E](it.comp, cand, it.idx4)
		f, _ = columnOf[F](it.comp, cand, it.idx5)
		return a, b, c, d, e5, f, cand, true
	}
}

func (c *Composition) requireIndices(types ...reflect.Type) ([]int, error) {
	idxs := make([]int, len(types))
	for i, t := range types {
		idx, err := c.requireIndex(t)
		if err != nil {
			return nil, err
		}
		idxs[i] = idx
	}
	return idxs, nil
}

// Select1 scans comp in chunk order, yielding (A, entity) tuples.
func Select1[A any](comp *Composition) (*Iter1[A], error) {
	base := newTenantIterator(comp.tenant)
	return newIter1[A](comp, base.Next)
}

// Select2 scans comp in chunk order, yielding (A, B, entity) tuples.
func Select2[A, B any](comp *Composition) (*Iter2[A, B], error) {
	base := newTenantIterator(comp.tenant)
	return newIter2[A, B](comp, base.Next)
}

// Select3 scans comp in chunk order, yielding (A, B, C, entity) tuples.
func Select3[A, B, C any](comp *Composition) (*Iter3[A, B, C], error) {
	base := newTenantIterator(comp.tenant)
	return newIter3[A, B, C](comp, base.Next)
}

// Select4 scans comp in chunk order, yielding (A, B, C, D, entity) tuples.
func Select4[A, B, C, D any](comp *Composition) (*Iter4[A, B, C, D], error) {
	base := newTenantIterator(comp.tenant)
	return newIter4[A, B, C, D](comp, base.Next)
}

// Select5 scans comp in chunk order, yielding (A, B, C, D, E, entity) tuples.
func Select5[A, B, C, D, E any](comp *Composition) (*Iter5[A, B, C, D, E], error) {
	base := newTenantIterator(comp.tenant)
	return newIter5[A, B, C, D, E](comp, base.Next)
}

// Select6 scans comp in chunk order, yielding (A..F, entity) tuples.
func Select6[A, B, C, D, E, F any](comp *Composition) (*Iter6[A, B, C, D, E, F], error) {
	base := newTenantIterator(comp.tenant)
	return newIter6[A, B, C, D, E, F](comp, base.Next)
}

// SelectState1 walks state's chain (head toward tail), yielding
// (A, entity) tuples -- the "with-state" axis of §4.8, where each item's
// own chunk is resolved independently because chain members can span
// chunks the underlying scan never visits.
func SelectState1[A any](comp *Composition, state State) (*Iter1[A], error) {
	return newIter1[A](comp, comp.StateChain(state).Next)
}

// SelectState2 is SelectState1's two-component counterpart.
func SelectState2[A, B any](comp *Composition, state State) (*Iter2[A, B], error) {
	return newIter2[A, B](comp, comp.StateChain(state).Next)
}

// SelectState3 is SelectState1's three-component counterpart.
func SelectState3[A, B, C any](comp *Composition, state State) (*Iter3[A, B, C], error) {
	return newIter3[A, B, C](comp, comp.StateChain(state).Next)
}
