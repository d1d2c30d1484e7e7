package messagestore

import (
	"context"
	"sync"
	"time"

	aif "github.com/goliatone/go-aif"
)

// mailbox holds the latest message delivered to one registration.
// Newer deliveries overwrite unread ones.
type mailbox struct {
	mu      sync.Mutex
	msg     aif.Message
	pending bool
	notify  chan struct{}
	closed  chan struct{}
	once    sync.Once
}

func newMailbox() *mailbox {
	return &mailbox{
		notify: make(chan struct{}, 1),
		closed: make(chan struct{}),
	}
}

func (m *mailbox) deliver(msg aif.Message) {
	m.mu.Lock()
	m.msg = msg
	m.pending = true
	m.mu.Unlock()

	select {
	case m.notify <- struct{}{}:
	default:
	}
}

func (m *mailbox) ready() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pending
}

// wait blocks until a message is pending, the timeout elapses, ctx ends or
// the mailbox is closed. A negative timeout waits without bound.
func (m *mailbox) wait(ctx context.Context, timeout time.Duration) PollStatus {
	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}

	for {
		if m.isClosed() {
			return PollError
		}
		if m.ready() {
			return PollReady
		}
		if timeout == 0 {
			return PollTimedOut
		}

		select {
		case <-ctx.Done():
			return PollError
		case <-m.closed:
			return PollError
		case <-expired:
			if m.ready() {
				return PollReady
			}
			return PollTimedOut
		case <-m.notify:
			// tokens left by messages copied without polling wake us with
			// nothing pending; the loop re-checks
		}
	}
}

func (m *mailbox) take() (aif.Message, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.pending {
		return aif.Message{}, false
	}
	m.pending = false
	return m.msg.Clone(), true
}

func (m *mailbox) close() {
	m.once.Do(func() { close(m.closed) })
}

func (m *mailbox) isClosed() bool {
	select {
	case <-m.closed:
		return true
	default:
		return false
	}
}
