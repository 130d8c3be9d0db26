package closer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCloserRunsInReverseOrder(t *testing.T) {
	c := NewCloser()
	var order []string
	c.AddSimple("first", func() { order = append(order, "first") })
	c.AddSimple("second", func() { order = append(order, "second") })

	require.NoError(t, c.Close(context.Background()))
	assert.Equal(t, []string{"second", "first"}, order)
}

func TestCloserCollectsErrorsAndRunsOnce(t *testing.T) {
	c := NewCloser()
	calls := 0
	c.Add("db", func(context.Context) error {
		calls++
		return errors.New("boom")
	})

	err := c.Close(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db")
	assert.NoError(t, c.Close(context.Background()))
	assert.Equal(t, 1, calls)
}

func TestCloserTimeout(t *testing.T) {
	c := NewCloser()
	c.Add("stuck", func(ctx context.Context) error {
		time.Sleep(time.Second)
		return nil
	})
	closedAfter := false
	c.AddSimple("fast", func() { closedAfter = true })

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := c.Close(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TIMEOUT")
	assert.True(t, closedAfter)
}
