package players

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTryAdmitRespectsMax(t *testing.T) {
	c := NewCounter(2)
	require.True(t, c.TryAdmit())
	require.True(t, c.TryAdmit())
	require.False(t, c.TryAdmit())
	require.Equal(t, 2, c.Count())
}

func TestUnlimitedNeverRejects(t *testing.T) {
	c := NewCounter(-1)
	for i := 0; i < 1000; i++ {
		require.True(t, c.TryAdmit())
	}
}

func TestReleaseUnderflowSafe(t *testing.T) {
	c := NewCounter(5)
	c.Release()
	c.Release()
	require.Equal(t, 0, c.Count())
}

func TestAdmitReleaseConcurrent(t *testing.T) {
	c := NewCounter(50)
	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if c.TryAdmit() {
				c.Release()
			}
		}()
	}
	wg.Wait()
	require.Equal(t, 0, c.Count())
}
