package engine

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClock_NewClock(t *testing.T) {
	c := NewClock()
	assert.Equal(t, int64(0), c.Current())
}

func TestClock_NewClockAt(t *testing.T) {
	c := NewClockAt(41)
	assert.Equal(t, int64(42), c.Next())
}

func TestClock_Next_Incrementing(t *testing.T) {
	c := NewClock()
	for i := int64(1); i <= 5; i++ {
		assert.Equal(t, i, c.Next())
	}
}

func TestClock_ThreadSafe(t *testing.T) {
	c := NewClock()

	var mu sync.Mutex
	seen := make(map[int64]bool)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				v := c.Next()
				mu.Lock()
				seen[v] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, 1000, "every Next must be unique")
	assert.Equal(t, int64(1000), c.Current())
}

func TestClock_Current_DoesNotIncrement(t *testing.T) {
	c := NewClock()
	c.Next()
	assert.Equal(t, int64(1), c.Current())
	assert.Equal(t, int64(1), c.Current())
}
