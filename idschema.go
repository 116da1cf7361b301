package dominion

import "fmt"

// idSchema packs and unpacks a 32-bit entity handle laid out as
// |DETACHED(1)|CHUNK_ID(31-chunkBit)|OBJECT_ID(chunkBit)|.
//
// A schema is a pure value, derived once from chunkBit and reused for every
// pack/unpack call against ids it produced; it allocates nothing.
type idSchema struct {
	chunkBit      uint
	objectMask    int32
	chunkMask     int32
	chunkCount    int32
	chunkCapacity int32
}

const detachedBit = int32(-1 << 31)

// newIDSchema derives masks and counts from chunkBit, which must be in
// [8,16] per the handle layout.
func newIDSchema(chunkBit uint) idSchema {
	if chunkBit < 8 || chunkBit > 16 {
		panic(fmt.Errorf("dominion: chunk bit must be in [8,16], got %d", chunkBit))
	}
	return idSchema{
		chunkBit:      chunkBit,
		objectMask:    int32(1)<<chunkBit - 1,
		chunkMask:     int32(1)<<(31-chunkBit) - 1,
		chunkCount:    int32(1) << (31 - chunkBit),
		chunkCapacity: int32(1) << chunkBit,
	}
}

// pack combines a chunk id and an object id into a live (non-detached) handle.
func (s idSchema) pack(chunkID, objectID int32) int32 {
	return (chunkID << s.chunkBit) | objectID
}

// chunkOf extracts the chunk id component of id, ignoring the detached bit.
func (s idSchema) chunkOf(id int32) int32 {
	return (id &^ detachedBit) >> s.chunkBit
}

// objectOf extracts the object id (slot index) component of id.
func (s idSchema) objectOf(id int32) int32 {
	return id & s.objectMask
}

// isDetached reports whether id's detached flag is set.
func (s idSchema) isDetached(id int32) bool {
	return id&detachedBit != 0
}

// setDetached returns id with the detached flag set.
func (s idSchema) setDetached(id int32) int32 {
	return id | detachedBit
}
