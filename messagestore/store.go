// Package messagestore is the per-workflow message bus AIMs publish to and
// poll from. Each registration keeps only the latest unread message.
package messagestore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	aif "github.com/goliatone/go-aif"
)

// DefaultCapacity bounds the subscriber table of a store.
const DefaultCapacity = 20

// PollStatus is the outcome of Poll: positive when ready, zero on timeout,
// negative on error.
type PollStatus int

const (
	PollError    PollStatus = -1
	PollTimedOut PollStatus = 0
	PollReady    PollStatus = 1
)

func (p PollStatus) String() string {
	switch p {
	case PollReady:
		return "ready"
	case PollTimedOut:
		return "timeout"
	default:
		return "error"
	}
}

type subscriberKey struct {
	identity string
	channel  aif.Channel
}

// Registration binds one subscriber identity to one channel.
type Registration struct {
	store    *Store
	Identity string
	Channel  aif.Channel
	box      *mailbox
}

// Unsubscribe removes the registration and wakes any poller with an error.
func (r *Registration) Unsubscribe() {
	if r == nil || r.store == nil {
		return
	}
	r.store.remove(r)
}

// Store is one workflow's bus: a topic, its channel allocator and a bounded
// subscriber table.
type Store struct {
	mu sync.RWMutex

	workflowID  int
	topic       string
	messageSize int
	capacity    int
	allocator   *Allocator
	channels    map[aif.Channel][]*Registration
	index       map[subscriberKey]*Registration
	closed      bool

	observer Observer
	logger   aif.Logger
}

// New creates a store for workflowID with an empty subscriber table. A
// messageSize of zero leaves payload size unchecked.
func New(workflowID int, topic string, messageSize int, opts ...Option) (*Store, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, aif.CloneError(aif.ErrInvalidIdentity, "topic name is required", nil, map[string]any{
			"workflow_id": workflowID,
		})
	}
	if messageSize < 0 {
		messageSize = 0
	}

	s := &Store{
		workflowID:  workflowID,
		topic:       topic,
		messageSize: messageSize,
		capacity:    DefaultCapacity,
		allocator:   NewAllocator(),
		channels:    make(map[aif.Channel][]*Registration),
		index:       make(map[subscriberKey]*Registration),
		observer:    NopObserver{},
		logger:      aif.NewFmtLogger(nil),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	s.logger = aif.WithFields(s.logger, map[string]any{
		"workflow_id": workflowID,
		"topic":       topic,
	})
	return s, nil
}

func (s *Store) WorkflowID() int {
	if s == nil {
		return 0
	}
	return s.workflowID
}

func (s *Store) Topic() string {
	if s == nil {
		return ""
	}
	return s.topic
}

func (s *Store) MessageSize() int {
	if s == nil {
		return 0
	}
	return s.messageSize
}

func (s *Store) Capacity() int {
	if s == nil {
		return 0
	}
	return s.capacity
}

// Len returns the number of registrations.
func (s *Store) Len() int {
	if s == nil {
		return 0
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.index)
}

// AllocateChannel returns a fresh channel id or aif.NoChannel when another
// caller holds the allocator.
func (s *Store) AllocateChannel() aif.Channel {
	if s == nil {
		return aif.NoChannel
	}
	return s.allocator.Allocate()
}

// AllocateChannelContext retries AllocateChannel until it succeeds.
func (s *Store) AllocateChannelContext(ctx context.Context) (aif.Channel, error) {
	if s == nil {
		return aif.NoChannel, aif.ErrNilStore
	}
	return s.allocator.AllocateContext(ctx)
}

// Register subscribes identity to channel.
func (s *Store) Register(identity string, channel aif.Channel) (*Registration, error) {
	if s == nil {
		return nil, aif.ErrNilStore
	}
	if strings.TrimSpace(identity) == "" {
		s.logger.Error("register rejected: empty identity on channel %d", channel)
		return nil, aif.CloneError(aif.ErrInvalidIdentity, "", nil, map[string]any{"channel": int(channel)})
	}
	if !channel.Valid() {
		return nil, aif.CloneError(aif.ErrInvalidChannel, "", nil, map[string]any{
			"identity": identity,
			"channel":  int(channel),
		})
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, aif.ErrStoreClosed
	}
	key := subscriberKey{identity: identity, channel: channel}
	if _, exists := s.index[key]; exists {
		s.mu.Unlock()
		return nil, aif.CloneError(aif.ErrDuplicateRegistration, "", nil, map[string]any{
			"identity": identity,
			"channel":  int(channel),
		})
	}
	if len(s.index) >= s.capacity {
		s.mu.Unlock()
		s.logger.Error("register rejected: subscriber table full (%d)", s.capacity)
		return nil, aif.CloneError(aif.ErrCapacityExceeded, "", nil, map[string]any{
			"identity": identity,
			"channel":  int(channel),
			"capacity": s.capacity,
		})
	}

	reg := &Registration{
		store:    s,
		Identity: identity,
		Channel:  channel,
		box:      newMailbox(),
	}
	s.index[key] = reg
	s.channels[channel] = append(s.channels[channel], reg)
	count := len(s.index)
	s.mu.Unlock()

	s.logger.Debug("registered %s on channel %d", identity, channel)
	s.observer.Registered(s.workflowID, count)
	return reg, nil
}

// Publish delivers msg to every registration on channel and returns how
// many received it. Publishing with no subscribers is not an error.
func (s *Store) Publish(msg aif.Message, channel aif.Channel) (int, error) {
	if s == nil {
		return 0, aif.ErrNilStore
	}
	if !channel.Valid() {
		return 0, aif.CloneError(aif.ErrInvalidChannel, "", nil, map[string]any{"channel": int(channel)})
	}
	if s.messageSize > 0 && len(msg.Data) > s.messageSize {
		return 0, aif.CloneError(aif.ErrMessageTooLarge, "", nil, map[string]any{
			"channel": int(channel),
			"size":    len(msg.Data),
			"limit":   s.messageSize,
		})
	}

	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return 0, aif.ErrStoreClosed
	}
	regs := s.channels[channel]
	for _, reg := range regs {
		reg.box.deliver(msg.Clone())
	}
	delivered := len(regs)
	s.mu.RUnlock()

	s.observer.Published(s.workflowID, channel, delivered)
	return delivered, nil
}

// Poll waits up to timeout for a message addressed to (identity, channel).
// A negative timeout waits until ctx ends. Unregistered pairs never report
// ready.
func (s *Store) Poll(ctx context.Context, identity string, timeout time.Duration, channel aif.Channel) (PollStatus, error) {
	if s == nil {
		return PollError, aif.ErrNilStore
	}
	if ctx == nil {
		ctx = context.Background()
	}

	reg, err := s.lookup(identity, channel)
	if err != nil {
		s.observer.Polled(s.workflowID, channel, PollError)
		return PollError, err
	}

	status := reg.box.wait(ctx, timeout)
	s.observer.Polled(s.workflowID, channel, status)
	if status != PollError {
		return status, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return PollError, ctxErr
	}
	if s.Closed() {
		return PollError, aif.ErrStoreClosed
	}
	return PollError, aif.CloneError(aif.ErrNotRegistered, "registration removed while polling", nil, map[string]any{
		"identity": identity,
		"channel":  int(channel),
	})
}

// Copy returns the pending message for (identity, channel) and clears it.
// Call it from the goroutine that polled.
func (s *Store) Copy(identity string, channel aif.Channel) (aif.Message, error) {
	if s == nil {
		return aif.Message{}, aif.ErrNilStore
	}
	reg, err := s.lookup(identity, channel)
	if err != nil {
		return aif.Message{}, err
	}
	msg, ok := reg.box.take()
	if !ok {
		return aif.Message{}, aif.CloneError(aif.ErrNoMessage, "", nil, map[string]any{
			"identity": identity,
			"channel":  int(channel),
		})
	}
	return msg, nil
}

// Subscribers lists identities registered on channel.
func (s *Store) Subscribers(channel aif.Channel) []string {
	if s == nil {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.channels[channel]))
	for _, reg := range s.channels[channel] {
		out = append(out, reg.Identity)
	}
	sort.Strings(out)
	return out
}

// Destroy releases the topic and subscriber table and wakes pending
// pollers with an error. AIMs are not touched. Safe to call twice.
func (s *Store) Destroy() {
	if s == nil {
		return
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	for _, reg := range s.index {
		reg.box.close()
	}
	s.index = make(map[subscriberKey]*Registration)
	s.channels = make(map[aif.Channel][]*Registration)
	s.mu.Unlock()

	s.logger.Info("message store destroyed")
	s.observer.Registered(s.workflowID, 0)
}

func (s *Store) Closed() bool {
	if s == nil {
		return true
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

func (s *Store) lookup(identity string, channel aif.Channel) (*Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, aif.ErrStoreClosed
	}
	reg, ok := s.index[subscriberKey{identity: identity, channel: channel}]
	if !ok {
		return nil, aif.CloneError(aif.ErrNotRegistered, "", nil, map[string]any{
			"identity": identity,
			"channel":  int(channel),
		})
	}
	return reg, nil
}

func (s *Store) remove(reg *Registration) {
	s.mu.Lock()
	key := subscriberKey{identity: reg.Identity, channel: reg.Channel}
	current, ok := s.index[key]
	if !ok || current != reg {
		s.mu.Unlock()
		return
	}
	delete(s.index, key)

	old := s.channels[reg.Channel]
	kept := make([]*Registration, 0, len(old))
	for _, x := range old {
		if x != reg {
			kept = append(kept, x)
		}
	}
	if len(kept) == 0 {
		delete(s.channels, reg.Channel)
	} else {
		s.channels[reg.Channel] = kept
	}
	count := len(s.index)
	s.mu.Unlock()

	reg.box.close()
	s.observer.Registered(s.workflowID, count)
}
