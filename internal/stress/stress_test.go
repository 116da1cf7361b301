package stress

import (
	"reflect"
	"testing"

	"github.com/joeycumines/dominion"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_NoWorkerPanics(t *testing.T) {
	w := dominion.New(dominion.WithChunkBit(8))
	defer w.Close()

	comp := w.Compose(reflect.TypeOf(position{}))
	dest := w.Compose(reflect.TypeOf(position{}), reflect.TypeOf(extra{}))

	results := Run(comp, dest, 16, 200)
	require.Len(t, results, 16)

	var created, deleted, migrated int
	for _, r := range results {
		assert.Nil(t, r.Panicked, "worker panicked: %v", r.Panicked)
		created += r.Created
		deleted += r.Deleted
		migrated += r.Migrated
	}

	assert.Equal(t, created, deleted, "every created entity is eventually deleted, from whichever composition it ended up in")
	assert.Greater(t, migrated, 0, "the n%2==0 branch should have migrated at least one entity across 16*200 iterations")

	var remaining int
	it := w.AllEntities()
	for {
		_, ok := it.Next()
		if !ok {
			break
		}
		remaining++
	}
	assert.Equal(t, 0, remaining, "every worker deletes what it creates, so no entities survive Run")
}

func TestRun_SurvivesConcurrentMigrationAndStateChurn(t *testing.T) {
	w := dominion.New(dominion.WithChunkBit(8))
	defer w.Close()

	comp := w.Compose(reflect.TypeOf(position{}))
	dest := w.Compose(reflect.TypeOf(position{}), reflect.TypeOf(extra{}))

	// Run twice against the same compositions: id recycling and state-chain
	// reattachment from the first pass must not corrupt the second.
	for pass := 0; pass < 2; pass++ {
		results := Run(comp, dest, 8, 100)
		for _, r := range results {
			assert.Nil(t, r.Panicked)
		}
	}
}
