package dominion

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIDSchema_PanicsOutsideRange(t *testing.T) {
	assert.Panics(t, func() { newIDSchema(7) })
	assert.Panics(t, func() { newIDSchema(17) })
}

func TestNewIDSchema_Bounds(t *testing.T) {
	tests := []struct {
		name          string
		bit           uint
		chunkCapacity int32
		chunkCount    int32
	}{
		{"min", 8, 256, 1 << 23},
		{"mid", 10, 1024, 1 << 21},
		{"max", 16, 1 << 16, 1 << 15},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newIDSchema(tt.bit)
			assert.Equal(t, tt.chunkCapacity, s.chunkCapacity)
			assert.Equal(t, tt.chunkCount, s.chunkCount)
		})
	}
}

func TestIDSchema_PackUnpack(t *testing.T) {
	s := newIDSchema(8)

	id := s.pack(3, 17)
	require.Equal(t, int32(785), id)
	assert.Equal(t, int32(3), s.chunkOf(id))
	assert.Equal(t, int32(17), s.objectOf(id))
	assert.False(t, s.isDetached(id))

	detached := s.setDetached(id)
	assert.True(t, s.isDetached(detached))
	// detached bit doesn't disturb the chunk/object components.
	assert.Equal(t, int32(3), s.chunkOf(detached))
	assert.Equal(t, int32(17), s.objectOf(detached))
}

func TestIDSchema_PackUnpack_roundtrip(t *testing.T) {
	s := newIDSchema(10)
	for chunkID := int32(0); chunkID < 5; chunkID++ {
		for objectID := int32(0); objectID < 5; objectID++ {
			id := s.pack(chunkID, objectID)
			assert.Equal(t, chunkID, s.chunkOf(id))
			assert.Equal(t, objectID, s.objectOf(id))
		}
	}
}
