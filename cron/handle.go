package cron

import (
	"sync"

	rcron "github.com/robfig/cron/v3"
)

// ScheduleStatus reports a schedule handle state.
type ScheduleStatus string

const (
	ScheduleStatusScheduled ScheduleStatus = "scheduled"
	ScheduleStatusRunning   ScheduleStatus = "running"
	ScheduleStatusIdle      ScheduleStatus = "idle"
	ScheduleStatusCanceled  ScheduleStatus = "canceled"
	ScheduleStatusFailed    ScheduleStatus = "failed"
	ScheduleStatusStopped   ScheduleStatus = "stopped"
)

// Handle controls one scheduled job.
type Handle interface {
	Cancel()
	Status() ScheduleStatus
	Err() error
	Done() <-chan struct{}
	ID() int64
	Name() string
}

type jobHandle struct {
	scheduler *Scheduler
	id        int64
	name      string
	entryID   rcron.EntryID
	done      chan struct{}

	mu     sync.RWMutex
	status ScheduleStatus
	err    error
	once   sync.Once
}

func (h *jobHandle) Cancel() {
	if h == nil {
		return
	}
	h.once.Do(func() {
		if h.scheduler != nil {
			h.scheduler.remove(h.id)
		}
		h.setTerminal(ScheduleStatusCanceled, nil)
	})
}

// Status is the last recorded state. A failed run leaves the handle
// scheduled for the next tick with status failed.
func (h *jobHandle) Status() ScheduleStatus {
	if h == nil {
		return ScheduleStatusStopped
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.status
}

func (h *jobHandle) Err() error {
	if h == nil {
		return nil
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.err
}

// Done is closed once the handle is canceled or its scheduler stops.
func (h *jobHandle) Done() <-chan struct{} {
	if h == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return h.done
}

func (h *jobHandle) ID() int64 {
	if h == nil {
		return 0
	}
	return h.id
}

func (h *jobHandle) Name() string {
	if h == nil {
		return ""
	}
	return h.name
}

func (h *jobHandle) setStatus(status ScheduleStatus, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.status = status
	h.err = err
}

func (h *jobHandle) setTerminal(status ScheduleStatus, err error) {
	h.setStatus(status, err)
	select {
	case <-h.done:
	default:
		close(h.done)
	}
}

func isTerminalStatus(status ScheduleStatus) bool {
	switch status {
	case ScheduleStatusCanceled, ScheduleStatusStopped:
		return true
	default:
		return false
	}
}
