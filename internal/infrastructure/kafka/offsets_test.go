package kafka

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOffsetTrackerCommitsContiguousPrefix(t *testing.T) {
	tr := newOffsetTracker()
	for _, off := range []int64{10, 11, 12, 13} {
		tr.track(0, off)
	}
	tr.track(1, 5)

	_, ok := tr.done(0, 12)
	assert.False(t, ok, "offset 10 is still in flight")

	off, ok := tr.done(0, 10)
	assert.True(t, ok)
	assert.Equal(t, int64(10), off)

	off, ok = tr.done(0, 11)
	assert.True(t, ok)
	assert.Equal(t, int64(12), off, "11 and the already finished 12 are committed together")

	off, ok = tr.done(1, 5)
	assert.True(t, ok)
	assert.Equal(t, int64(5), off)

	off, ok = tr.done(0, 13)
	assert.True(t, ok)
	assert.Equal(t, int64(13), off)
}

func TestOffsetTrackerUnknownPartition(t *testing.T) {
	_, ok := newOffsetTracker().done(3, 1)
	assert.False(t, ok)
}
