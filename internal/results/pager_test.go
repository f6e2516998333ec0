package results

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPager_TotalPagesIsCeiling(t *testing.T) {
	cases := []struct{ n, size, want int }{
		{0, 50, 0},
		{1, 50, 1},
		{50, 50, 1},
		{51, 50, 2},
		{120, 50, 3},
		{10, 3, 4},
	}
	for _, tc := range cases {
		labels := make([]int, tc.n)
		p := NewPager(NewBatch(1, records(labels...)), tc.size)
		assert.Equal(t, tc.want, p.TotalPages(), "n=%d size=%d", tc.n, tc.size)
	}
}

func TestPager_ClampsAtBoundaries(t *testing.T) {
	p := NewPager(NewBatch(1, records(make([]int, 120)...)), 50)

	assert.Equal(t, 1, p.Prev(), "previous on page 1 is a no-op")
	assert.False(t, p.HasPrev())

	assert.Equal(t, 2, p.Next())
	assert.Equal(t, 3, p.Next())
	assert.Equal(t, 3, p.Next(), "next on the last page is a no-op")
	assert.False(t, p.HasNext())
	assert.Len(t, p.Window(), 20)

	assert.Equal(t, 3, p.Goto(99))
	assert.Equal(t, 1, p.Goto(-4))
	assert.Len(t, p.Window(), 50)
}

func TestPager_WindowKeepsInvalidLabels(t *testing.T) {
	p := NewPager(NewBatch(1, records(5, 1, 9)), 2)
	assert.Equal(t, 5, p.Window()[0].ClassLabel)
	p.Next()
	assert.Equal(t, 9, p.Window()[0].ClassLabel)
}

func TestPager_EmptyBatch(t *testing.T) {
	p := NewPager(nil, 0)
	assert.Equal(t, 1, p.Next())
	assert.Nil(t, p.Window())
	assert.Equal(t, 1, p.Page())
}
