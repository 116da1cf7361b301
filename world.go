package dominion

import (
	"fmt"
	"reflect"
	"sync"

	"golang.org/x/exp/slices"

	"github.com/joeycumines/dominion/internal/arraypool"
)

// World is the process- (or test-) scoped owner of everything the core
// needs that isn't per-composition: the chunk pool, the class index, the
// logger, the component-array pool, and the interned compositions. There
// are no package-level mutable globals: class index assignment lives in the
// World's ClassIndex and chunk id assignment in its pool. Tenants carry no
// numeric id, so there is no tenant-id sequence.
type World struct {
	schema    idSchema
	pool      *ChunkedPool
	classIndex *ClassIndex
	logger    Logger
	arrayPool *arraypool.Pool

	mu           sync.Mutex
	compositions map[string]*Composition
}

// config is populated by Option functions, then consumed by New.
type config struct {
	chunkBit             int
	logger               Logger
	classIndexCapacity   int
	arrayPool            *arraypool.Pool
}

// Option configures a World at construction time.
type Option func(*config)

// WithChunkBit overrides the default chunk-bit (b in the handle layout
// |DETACHED(1)|CHUNK_ID(31-b)|OBJECT_ID(b)|). Must be in [8,16].
func WithChunkBit(b int) Option {
	return func(c *config) { c.chunkBit = b }
}

// WithLogger installs a Logger. The default is a no-op logger.
func WithLogger(logger Logger) Option {
	return func(c *config) { c.logger = logger }
}

// WithClassIndexCapacity overrides the default ClassIndex capacity (1024).
func WithClassIndexCapacity(n int) Option {
	return func(c *config) { c.classIndexCapacity = n }
}

// WithComponentArrayPool installs a pre-built component-array pool, e.g. to
// share one across multiple Worlds in tests.
func WithComponentArrayPool(pool *arraypool.Pool) Option {
	return func(c *config) { c.arrayPool = pool }
}

// New constructs a World. Panics if chunkBit (default 10) is outside
// [8,16], mirroring catrate.NewLimiter's "panic on programmer error for an
// unrecoverable construction-time invariant" behavior.
func New(opts ...Option) *World {
	c := config{chunkBit: 10, classIndexCapacity: 1024}
	for _, opt := range opts {
		opt(&c)
	}

	logger := c.logger
	if logger == nil {
		logger = noopLogger{}
	}

	pool := c.arrayPool
	if pool == nil {
		pool = arraypool.New()
	}

	schema := newIDSchema(uint(c.chunkBit))

	return &World{
		schema:       schema,
		pool:         newChunkedPool(schema),
		classIndex:   NewClassIndex(c.classIndexCapacity),
		logger:       logger,
		arrayPool:    pool,
		compositions: make(map[string]*Composition),
	}
}

// compositionKey derives a stable map key from a canonical type order. Two
// calls to Compose with the same set of types, regardless of the order
// they're passed in, resolve the same Composition, because Compose sorts
// the types (typeLess) before deriving the key.
func compositionKey(types []reflect.Type) string {
	var b []byte
	for _, t := range types {
		b = append(b, []byte(t.PkgPath()+"."+t.Name()+";")...)
	}
	return string(b)
}

// Compose interns (or returns the existing) Composition for the given
// component types. The first call for a given type set fixes that
// composition's canonical column order, sorted here to make repeated calls
// with types in a different argument order resolve to the same
// Composition (a convenience beyond the spec's literal "first seen order",
// chosen because nothing should depend on call-site argument order for
// what is, from the caller's perspective, an unordered set of types).
func (w *World) Compose(types ...reflect.Type) *Composition {
	sorted := make([]reflect.Type, len(types))
	copy(sorted, types)
	slices.SortFunc(sorted, func(a, b reflect.Type) int {
		if typeLess(a, b) {
			return -1
		}
		if typeLess(b, a) {
			return 1
		}
		return 0
	})

	key := compositionKey(sorted)

	w.mu.Lock()
	defer w.mu.Unlock()
	if c, ok := w.compositions[key]; ok {
		return c
	}
	c := newComposition(w, sorted)
	w.compositions[key] = c
	return c
}

// typeLess orders types by package path then name, giving a deterministic
// canonical order independent of call-site argument order.
func typeLess(a, b reflect.Type) bool {
	ap, bp := a.PkgPath(), b.PkgPath()
	if ap != bp {
		return ap < bp
	}
	return a.Name() < b.Name()
}

// SelectIterator unions the per-composition scans of every composition
// matched by a World.Select call, presenting them as a single forward walk.
type SelectIterator struct {
	comps []*Composition
	idx   int
	cur   entitySource
}

// Next advances the union, exhausting each matched composition's scan in
// turn before moving to the next.
func (it *SelectIterator) Next() (*Entity, bool) {
	for {
		if it.cur == nil {
			if it.idx >= len(it.comps) {
				return nil, false
			}
			it.cur = newTenantIterator(it.comps[it.idx].tenant).Next
			it.idx++
		}
		if e, ok := it.cur(); ok {
			return e, true
		}
		it.cur = nil
	}
}

// Select returns an iterator over every live entity belonging to any
// composition that carries all of types (a superset match), unioning one
// composition-scan per match. This is the bounded, linear-scan "find
// components across compositions" operation the excluded public façade's
// query builder sits in front of (§6's findComponents/filter); it does no
// query planning beyond the linear union.
func (w *World) Select(types ...reflect.Type) *SelectIterator {
	w.mu.Lock()
	defer w.mu.Unlock()
	it := &SelectIterator{}
	for _, c := range w.compositions {
		if c.containsAll(types) {
			it.comps = append(it.comps, c)
		}
	}
	return it
}

// EntityOf resolves a handle to its entity, returning ErrDetachedHandle if
// the handle's detached bit is set (§7: reading a detached handle is
// undefined at this layer in general, but this accessor chooses to
// surface it rather than silently return a stale entity).
func (w *World) EntityOf(id int32) (*Entity, error) {
	if w.schema.isDetached(id) {
		return nil, fmt.Errorf("%w: id=%d", ErrDetachedHandle, id)
	}
	return w.pool.entityOf(id), nil
}

// AllEntities returns an iterator over every live entity in the World, in
// reverse chunk-creation order (§4.5).
func (w *World) AllEntities() *poolEntityIterator {
	return w.pool.allEntities()
}

// Close closes the pool (which closes every tenant), releasing their
// idStacks. Safe to call once; callers owning a World through a defer
// should do so unconditionally on every return path, including panics,
// per §9's resource-scoping note.
func (w *World) Close() error {
	return w.pool.close()
}
