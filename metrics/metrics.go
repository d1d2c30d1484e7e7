// Package metrics exports bus and AIM lifecycle activity to prometheus.
package metrics

import (
	"context"
	"net/http"
	"strconv"

	aif "github.com/goliatone/go-aif"
	"github.com/goliatone/go-aif/aim"
	"github.com/goliatone/go-aif/messagestore"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "aif"

// Metrics holds the runtime collectors. It implements messagestore.Observer
// and aim.Hook so it can be handed directly to stores and AIMs.
type Metrics struct {
	// Bus metrics
	published     *prometheus.CounterVec
	deliveries    *prometheus.CounterVec
	polls         *prometheus.CounterVec
	registrations *prometheus.GaugeVec

	// AIM metrics
	transitions *prometheus.CounterVec
	alive       *prometheus.GaugeVec

	gatherer prometheus.Gatherer
}

var (
	_ messagestore.Observer = (*Metrics)(nil)
	_ aim.Hook              = (*Metrics)(nil)
)

func newMetrics() *Metrics {
	return &Metrics{
		published: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "bus",
				Name:      "published_total",
				Help:      "Total number of messages published",
			},
			[]string{"workflow", "channel"},
		),
		deliveries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "bus",
				Name:      "deliveries_total",
				Help:      "Total number of mailbox deliveries",
			},
			[]string{"workflow", "channel"},
		),
		polls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "bus",
				Name:      "polls_total",
				Help:      "Total number of polls by outcome",
			},
			[]string{"workflow", "status"},
		),
		registrations: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "bus",
				Name:      "registrations",
				Help:      "Current number of subscriber registrations",
			},
			[]string{"workflow"},
		),
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "aim",
				Name:      "transitions_total",
				Help:      "Total number of AIM lifecycle verbs by outcome",
			},
			[]string{"workflow", "aim", "verb", "outcome"},
		),
		alive: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "aim",
				Name:      "alive",
				Help:      "AIM liveness (1=alive, 0=dead)",
			},
			[]string{"workflow", "aim"},
		),
	}
}

// New creates the collectors and registers them on reg.
// A nil reg uses a private registry.
func New(reg *prometheus.Registry) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := newMetrics()
	for _, c := range m.collectors() {
		if err := reg.Register(c); err != nil {
			return nil, aif.CloneError(aif.ErrInvalidConfig, "register metrics collector", err, nil)
		}
	}
	m.gatherer = reg
	return m, nil
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.published,
		m.deliveries,
		m.polls,
		m.registrations,
		m.transitions,
		m.alive,
	}
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

func (m *Metrics) Published(workflowID int, channel aif.Channel, deliveries int) {
	wf, ch := label(workflowID), strconv.Itoa(int(channel))
	m.published.WithLabelValues(wf, ch).Inc()
	if deliveries > 0 {
		m.deliveries.WithLabelValues(wf, ch).Add(float64(deliveries))
	}
}

func (m *Metrics) Polled(workflowID int, _ aif.Channel, status messagestore.PollStatus) {
	m.polls.WithLabelValues(label(workflowID), status.String()).Inc()
}

func (m *Metrics) Registered(workflowID int, subscribers int) {
	m.registrations.WithLabelValues(label(workflowID)).Set(float64(subscribers))
}

// Notify records a lifecycle event. Destroyed AIMs drop their liveness series.
func (m *Metrics) Notify(_ context.Context, evt aim.Event) error {
	wf := label(evt.WorkflowID)
	m.transitions.WithLabelValues(wf, evt.AIM, string(evt.Verb), string(evt.Phase)).Inc()
	if evt.Phase != aim.PhaseCommitted {
		return nil
	}
	if evt.To == aim.StateDestroyed {
		m.alive.DeleteLabelValues(wf, evt.AIM)
		return nil
	}
	m.SetAlive(evt.WorkflowID, evt.AIM, evt.Alive)
	return nil
}

// SetAlive records an AIM liveness sample.
func (m *Metrics) SetAlive(workflowID int, name string, alive bool) {
	v := 0.0
	if alive {
		v = 1
	}
	m.alive.WithLabelValues(label(workflowID), name).Set(v)
}

// ForgetWorkflow drops every series labelled with workflowID.
func (m *Metrics) ForgetWorkflow(workflowID int) {
	labels := prometheus.Labels{"workflow": label(workflowID)}
	m.published.DeletePartialMatch(labels)
	m.deliveries.DeletePartialMatch(labels)
	m.polls.DeletePartialMatch(labels)
	m.registrations.DeletePartialMatch(labels)
	m.transitions.DeletePartialMatch(labels)
	m.alive.DeletePartialMatch(labels)
}

func label(workflowID int) string { return strconv.Itoa(workflowID) }
