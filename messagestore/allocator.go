package messagestore

import (
	"context"
	"runtime"
	"sync"

	aif "github.com/goliatone/go-aif"
)

// Allocator hands out channel identifiers. Allocation never blocks: a
// concurrent caller gets aif.NoChannel and is expected to retry.
type Allocator struct {
	mu   sync.Mutex
	next aif.Channel
}

func NewAllocator() *Allocator {
	return &Allocator{next: 1}
}

// Allocate returns the next channel id, or aif.NoChannel on contention.
func (a *Allocator) Allocate() aif.Channel {
	if a == nil {
		return aif.NoChannel
	}
	if !a.mu.TryLock() {
		return aif.NoChannel
	}
	defer a.mu.Unlock()
	if a.next < 1 {
		a.next = 1
	}
	ch := a.next
	a.next++
	return ch
}

// AllocateContext retries Allocate until it succeeds or ctx ends.
func (a *Allocator) AllocateContext(ctx context.Context) (aif.Channel, error) {
	if a == nil {
		return aif.NoChannel, aif.ErrNilStore
	}
	for {
		if ch := a.Allocate(); ch.Valid() {
			return ch, nil
		}
		if err := ctx.Err(); err != nil {
			return aif.NoChannel, err
		}
		runtime.Gosched()
	}
}

// Allocated reports how many channels have been handed out.
func (a *Allocator) Allocated() int {
	if a == nil {
		return 0
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.next < 1 {
		return 0
	}
	return int(a.next - 1)
}
