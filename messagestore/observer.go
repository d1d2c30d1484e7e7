package messagestore

import aif "github.com/goliatone/go-aif"

// Observer receives bus activity, typically to export metrics.
type Observer interface {
	Published(workflowID int, channel aif.Channel, deliveries int)
	Polled(workflowID int, channel aif.Channel, status PollStatus)
	Registered(workflowID int, subscribers int)
}

type NopObserver struct{}

func (NopObserver) Published(int, aif.Channel, int)     {}
func (NopObserver) Polled(int, aif.Channel, PollStatus) {}
func (NopObserver) Registered(int, int)                 {}
