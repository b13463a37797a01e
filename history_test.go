package ecard

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHistoryEmpty(t *testing.T) {

	history := NewHistory(4)

	assert.Equal(t, 0, history.Len())
	assert.Empty(t, history.Entries())

}

func TestHistoryReverseChronologicalOrder(t *testing.T) {

	history := NewHistory(4)

	history.Write(1)
	history.Write(-2)
	history.Write(3)

	assert.Equal(t, []int64{3, -2, 1}, history.Entries())
	assert.Equal(t, 3, history.Len())
	assert.Equal(t, uint64(3), history.Total())

}

func TestHistoryOverwritesOldestFirst(t *testing.T) {

	history := NewHistory(4)

	for delta := int64(1); delta <= 10; delta++ {
		history.Write(delta)
	}

	// Only the most recent 4 of 10 writes survive.
	assert.Equal(t, []int64{10, 9, 8, 7}, history.Entries())
	assert.Equal(t, 4, history.Len())
	assert.Equal(t, uint64(10), history.Total())

}

func TestHistoryExactlyFull(t *testing.T) {

	history := NewHistory(3)

	history.Write(1)
	history.Write(2)
	history.Write(3)

	assert.Equal(t, []int64{3, 2, 1}, history.Entries())

	history.Write(4)

	assert.Equal(t, []int64{4, 3, 2}, history.Entries())

}

func TestHistoryMinimumCapacity(t *testing.T) {

	history := NewHistory(0)

	history.Write(7)
	history.Write(8)

	assert.Equal(t, []int64{8}, history.Entries())

}
