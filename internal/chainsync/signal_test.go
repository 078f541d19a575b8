package chainsync

import (
	"sync"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignal_Monotonic(t *testing.T) {
	s := NewSignal()

	assert.True(t, s.Publish(10))
	assert.False(t, s.Publish(10))
	assert.False(t, s.Publish(5))
	assert.True(t, s.Publish(11))
	assert.Equal(t, int64(11), s.Last())
}

func TestSignal_SubscribeReceives(t *testing.T) {
	s := NewSignal()
	ch, unsubscribe := s.Subscribe()
	defer unsubscribe()

	s.Publish(42)

	select {
	case slot := <-ch:
		assert.Equal(t, int64(42), slot)
	case <-time.After(time.Second):
		t.Fatal("no slot delivered")
	}
}

func TestSignal_Coalesces(t *testing.T) {
	s := NewSignal()
	ch, unsubscribe := s.Subscribe()
	defer unsubscribe()

	for slot := int64(1); slot <= 100; slot++ {
		s.Publish(slot)
	}

	require.Len(t, ch, 1)
	assert.Equal(t, int64(100), <-ch)
}

func TestSignal_Unsubscribe(t *testing.T) {
	s := NewSignal()
	ch, unsubscribe := s.Subscribe()
	assert.Equal(t, 1, s.Subscribers())

	unsubscribe()
	unsubscribe()
	assert.Equal(t, 0, s.Subscribers())

	_, open := <-ch
	assert.False(t, open)

	// publishing after unsubscribe must not panic
	s.Publish(1)
}

func TestSignal_ConcurrentPublish(t *testing.T) {
	s := NewSignal()
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(offset int64) {
			defer wg.Done()
			for i := int64(0); i < 500; i++ {
				s.Publish(i*8 + offset)
			}
		}(int64(w))
	}
	wg.Wait()
	assert.Equal(t, int64(499*8+7), s.Last())
}

func TestSignalProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("last equals the maximum published slot", prop.ForAll(
		func(slots []int64) bool {
			s := NewSignal()
			var want int64
			for _, slot := range slots {
				s.Publish(slot)
				if slot > want {
					want = slot
				}
			}
			return s.Last() == want
		},
		gen.SliceOf(gen.Int64Range(-100, 1_000_000)),
	))

	properties.TestingRun(t)
}
