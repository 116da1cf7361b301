package dominion

import (
	"reflect"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type classIndexFoo struct{}
type classIndexBar struct{}

func TestClassIndex_DefaultCapacity(t *testing.T) {
	ci := NewClassIndex(0)
	assert.Equal(t, 1024, ci.capacity)
}

func TestClassIndex_GetIndex_Unseen(t *testing.T) {
	ci := NewClassIndex(8)
	assert.Equal(t, -1, ci.GetIndex(reflect.TypeOf(classIndexFoo{})))
}

func TestClassIndex_GetOrCreate_Dense(t *testing.T) {
	ci := NewClassIndex(8)

	foo := ci.GetOrCreate(reflect.TypeOf(classIndexFoo{}))
	bar := ci.GetOrCreate(reflect.TypeOf(classIndexBar{}))
	assert.Equal(t, 0, foo)
	assert.Equal(t, 1, bar)

	// repeat lookups are stable and don't consume another slot.
	assert.Equal(t, foo, ci.GetOrCreate(reflect.TypeOf(classIndexFoo{})))
	assert.Equal(t, foo, ci.GetIndex(reflect.TypeOf(classIndexFoo{})))
}

func TestClassIndex_GetOrCreate_PanicsPastCapacity(t *testing.T) {
	ci := NewClassIndex(1)
	ci.GetOrCreate(reflect.TypeOf(classIndexFoo{}))
	require.Panics(t, func() {
		ci.GetOrCreate(reflect.TypeOf(classIndexBar{}))
	})
}

func TestClassIndex_Concurrent_GetOrCreate(t *testing.T) {
	t.Parallel()
	ci := NewClassIndex(8)

	types := []reflect.Type{
		reflect.TypeOf(classIndexFoo{}),
		reflect.TypeOf(classIndexBar{}),
	}

	var wg sync.WaitGroup
	results := make([]int, 64)
	for i := range results {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = ci.GetOrCreate(types[i%2])
		}()
	}
	wg.Wait()

	for i, idx := range results {
		if i%2 == 0 {
			assert.Equal(t, results[0], idx)
		} else {
			assert.Equal(t, results[1], idx)
		}
	}
}
