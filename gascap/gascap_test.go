package gascap

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCheckAllowsUnderLimit(t *testing.T) {
	c := New(1000)
	require.NoError(t, c.Check())
}

func TestUpdateAccumulatesAndCapsAdmission(t *testing.T) {
	c := New(1000)
	require.NoError(t, c.Check())

	usage := c.Update(600)
	require.EqualValues(t, 600, usage)
	require.NoError(t, c.Check())

	usage = c.Update(500)
	require.EqualValues(t, 1100, usage)
	require.ErrorIs(t, c.Check(), ErrCapExceeded)
}

func TestUpdateAllowsNegativeRefund(t *testing.T) {
	c := New(1000)
	c.Update(1000)
	require.ErrorIs(t, c.Check(), ErrCapExceeded)

	usage := c.Update(-200)
	require.EqualValues(t, 800, usage)
	require.NoError(t, c.Check())
}

func TestConcurrentUpdatesAreSerialized(t *testing.T) {
	c := New(1_000_000)
	const goroutines = 50
	done := make(chan struct{})
	for i := 0; i < goroutines; i++ {
		go func() {
			c.Update(10)
			done <- struct{}{}
		}()
	}
	for i := 0; i < goroutines; i++ {
		<-done
	}
	require.EqualValues(t, goroutines*10, c.Update(0))
}
