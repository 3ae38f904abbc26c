package stats

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCountersConcurrentIncrements(t *testing.T) {
	c := New()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.IncConversions()
			c.IncConversions()
			c.IncMerges()
		}()
	}
	wg.Wait()

	s := c.Snapshot()
	assert.Equal(t, int64(100), s.ConversionsCompleted)
	assert.Equal(t, int64(50), s.MergesCompleted)
	assert.False(t, s.Since.IsZero())
}

func TestZeroValueCounters(t *testing.T) {
	var c Counters
	c.IncMerges()
	assert.Equal(t, int64(1), c.Snapshot().MergesCompleted)
}
