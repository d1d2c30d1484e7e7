package messagestore

import (
	"context"
	"sync"
	"testing"

	aif "github.com/goliatone/go-aif"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocatorStartsAtOneAndIncrements(t *testing.T) {
	a := NewAllocator()
	assert.Equal(t, aif.Channel(1), a.Allocate())
	assert.Equal(t, aif.Channel(2), a.Allocate())
	assert.Equal(t, aif.Channel(3), a.Allocate())
	assert.Equal(t, 3, a.Allocated())
}

func TestAllocatorReturnsSentinelOnContention(t *testing.T) {
	a := NewAllocator()
	a.mu.Lock()
	assert.Equal(t, aif.NoChannel, a.Allocate())
	a.mu.Unlock()
	assert.Equal(t, aif.Channel(1), a.Allocate())
}

func TestAllocatorConcurrentIDsAreUnique(t *testing.T) {
	a := NewAllocator()
	const workers = 32

	var wg sync.WaitGroup
	ids := make(chan aif.Channel, workers)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ch, err := a.AllocateContext(context.Background())
			assert.NoError(t, err)
			ids <- ch
		}()
	}
	wg.Wait()
	close(ids)

	seen := map[aif.Channel]bool{}
	for ch := range ids {
		require.True(t, ch.Valid())
		require.False(t, seen[ch], "channel %d allocated twice", ch)
		seen[ch] = true
	}
	assert.Len(t, seen, workers)
	for i := 1; i <= workers; i++ {
		assert.True(t, seen[aif.Channel(i)])
	}
}

func TestAllocateContextStopsOnCancel(t *testing.T) {
	a := NewAllocator()
	a.mu.Lock()
	defer a.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ch, err := a.AllocateContext(ctx)
	assert.Equal(t, aif.NoChannel, ch)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNilAllocator(t *testing.T) {
	var a *Allocator
	assert.Equal(t, aif.NoChannel, a.Allocate())
	assert.Zero(t, a.Allocated())
}

func TestChannelMapNamesOrderedByChannel(t *testing.T) {
	m := ChannelMap{"b": 2, "a": 3, "c": 1}
	assert.Equal(t, []string{"c", "b", "a"}, m.Names())

	ch, ok := m.Lookup("a")
	assert.True(t, ok)
	assert.Equal(t, aif.Channel(3), ch)

	_, ok = m.Lookup("missing")
	assert.False(t, ok)
}
