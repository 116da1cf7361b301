package arraypool

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPool_Get_PooledArities(t *testing.T) {
	p := New()
	for n := 1; n <= maxArity; n++ {
		s := p.Get(n)
		assert.Len(t, s, n)
		for _, v := range s {
			assert.Nil(t, v)
		}
	}
}

func TestPool_Get_UnpooledArity(t *testing.T) {
	p := New()
	s := p.Get(7)
	assert.Len(t, s, 7)
}

func TestPool_PutClearsBeforeReuse(t *testing.T) {
	p := New()
	s := p.Get(2)
	s[0] = "a"
	s[1] = "b"
	p.Put(s)

	got := p.Get(2)
	for _, v := range got {
		assert.Nil(t, v)
	}
}

func TestPool_Put_IgnoresOutOfRangeArity(t *testing.T) {
	p := New()
	assert.NotPanics(t, func() { p.Put(make([]any, 0)) })
	assert.NotPanics(t, func() { p.Put(make([]any, maxArity+1)) })
}
