package clock

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNextIsMonotonic(t *testing.T) {
	v := Initial
	for i := 0; i < 5; i++ {
		next := v.Next()
		assert.True(t, v.Before(next))
		assert.True(t, next.After(v))
		v = next
	}
	assert.Equal(t, Value(6), v)
}

func TestCurrentOutdated(t *testing.T) {
	cases := []struct {
		name string
		c    Current
		want bool
	}{
		{"never embedded", Current{Shadow: 1, Chunk: 0}, true},
		{"up to date", Current{Shadow: 3, Chunk: 3}, false},
		{"behind", Current{Shadow: 5, Chunk: 2}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.c.Outdated())
		})
	}
}

func TestStalenessOrdering(t *testing.T) {
	a := Current{Shadow: 10, Chunk: 9}
	b := Current{Shadow: 10, Chunk: 2}
	assert.Less(t, a.Staleness(), b.Staleness())
}
