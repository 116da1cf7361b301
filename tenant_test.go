package dominion

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTenant_AllocateId_RecycleAndRealloc(t *testing.T) {
	schema := newIDSchema(8)
	p := newChunkedPool(schema)
	tenant := p.newTenant(1, nil)

	a := tenant.allocateId()
	b := tenant.allocateId()
	assert.Equal(t, int32(0), a)
	assert.Equal(t, int32(1), b)

	tenant.freeId(a)
	c := tenant.allocateId()
	assert.Equal(t, int32(0), c)
}

func TestTenant_AllocateId_ChunkRollover(t *testing.T) {
	schema := newIDSchema(8) // chunkCapacity = 256
	p := newChunkedPool(schema)
	tenant := p.newTenant(1, nil)

	var last int32
	for i := 0; i < 256; i++ {
		last = tenant.allocateId()
	}
	require.Equal(t, schema.pack(0, 255), last, "the 256th id is chunk 0's last slot")

	next := tenant.allocateId()
	assert.Equal(t, schema.pack(1, 0), next, "the 257th id is chunk 1's first slot")
}

func TestTenant_Register_StoresComponents(t *testing.T) {
	schema := newIDSchema(8)
	p := newChunkedPool(schema)
	tenant := p.newTenant(1, nil)

	e := &Entity{}
	id := tenant.register(e, []any{"payload"})

	assert.Equal(t, id, e.ID())
	got := p.chunkOf(id).readColumn(0, schema.objectOf(id))
	assert.Equal(t, "payload", got)
}

func TestTenant_Size(t *testing.T) {
	// size = index + hasNext?1:0 - rm (§4.3): the bootstrap and every
	// subsequent allocateId call advances index by one ahead of the ids it
	// has handed out, as the one-id lookahead cursor. So size tracks
	// registrations + 1 until the chunk rolls over.
	schema := newIDSchema(8)
	p := newChunkedPool(schema)
	tenant := p.newTenant(1, nil)

	assert.Equal(t, int32(1), tenant.size(), "bootstrap pre-acquires one lookahead slot")

	tenant.register(&Entity{}, []any{"a"})
	assert.Equal(t, int32(2), tenant.size())

	tenant.register(&Entity{}, []any{"b"})
	assert.Equal(t, int32(3), tenant.size())
}
