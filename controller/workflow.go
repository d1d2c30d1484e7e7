package controller

import (
	"sync"

	aif "github.com/goliatone/go-aif"
	"github.com/goliatone/go-aif/aim"
	"github.com/goliatone/go-aif/catalog"
	"github.com/goliatone/go-aif/messagestore"
)

// Instance is one AIM wired into a workflow.
type Instance struct {
	Entry         catalog.Entry
	InputChannels []aif.Channel
	AIM           *aim.AIM

	registrations []*messagestore.Registration
}

func (i *Instance) unsubscribe() {
	for _, reg := range i.registrations {
		reg.Unsubscribe()
	}
	i.registrations = nil
}

// Workflow is a running AIW: its bus, channel map and AIMs in start order.
type Workflow struct {
	ID       int
	Name     string
	RunID    string
	Store    *messagestore.Store
	Channels messagestore.ChannelMap

	mu        sync.RWMutex
	instances []*Instance
	skipped   []string
}

func (w *Workflow) add(inst *Instance) {
	w.mu.Lock()
	w.instances = append(w.instances, inst)
	w.mu.Unlock()
}

func (w *Workflow) skip(name string) {
	w.mu.Lock()
	w.skipped = append(w.skipped, name)
	w.mu.Unlock()
}

// Instances returns the AIMs in start order.
func (w *Workflow) Instances() []*Instance {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return append([]*Instance(nil), w.instances...)
}

// Skipped lists AIMs whose catalog entry vetoed creation.
func (w *Workflow) Skipped() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return append([]string(nil), w.skipped...)
}

func (w *Workflow) instance(name string) (*Instance, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	for _, inst := range w.instances {
		if inst.AIM.Name() == name {
			return inst, true
		}
	}
	return nil, false
}

func (w *Workflow) reversed() []*Instance {
	list := w.Instances()
	for i, j := 0, len(list)-1; i < j; i, j = i+1, j-1 {
		list[i], list[j] = list[j], list[i]
	}
	return list
}

// AIMStatus is a point-in-time view of one AIM.
type AIMStatus struct {
	Name   string
	State  aim.State
	Status aif.ResultCode
	Inputs []aif.Channel
}

// WorkflowInfo is a point-in-time view of one workflow.
type WorkflowInfo struct {
	ID       int
	Name     string
	RunID    string
	Channels messagestore.ChannelMap
	AIMs     []AIMStatus
	Skipped  []string
}

func (w *Workflow) statuses() []AIMStatus {
	list := w.Instances()
	out := make([]AIMStatus, 0, len(list))
	for _, inst := range list {
		out = append(out, AIMStatus{
			Name:   inst.AIM.Name(),
			State:  inst.AIM.State(),
			Status: inst.AIM.Status(),
			Inputs: append([]aif.Channel(nil), inst.InputChannels...),
		})
	}
	return out
}

func (w *Workflow) info() WorkflowInfo {
	channels := make(messagestore.ChannelMap, len(w.Channels))
	for k, v := range w.Channels {
		channels[k] = v
	}
	return WorkflowInfo{
		ID:       w.ID,
		Name:     w.Name,
		RunID:    w.RunID,
		Channels: channels,
		AIMs:     w.statuses(),
		Skipped:  w.Skipped(),
	}
}
