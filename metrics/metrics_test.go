package metrics

import (
	"context"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goliatone/go-aif/aim"
	"github.com/goliatone/go-aif/messagestore"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBusCounters(t *testing.T) {
	m, err := New(nil)
	require.NoError(t, err)

	m.Published(1, 2, 3)
	m.Published(1, 2, 0)
	m.Polled(1, 2, messagestore.PollReady)
	m.Polled(1, 2, messagestore.PollTimedOut)
	m.Polled(1, 2, messagestore.PollTimedOut)
	m.Registered(1, 4)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.published.WithLabelValues("1", "2")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.deliveries.WithLabelValues("1", "2")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.polls.WithLabelValues("1", "ready")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.polls.WithLabelValues("1", "timeout")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.registrations.WithLabelValues("1")))
}

func TestNotifyTracksLiveness(t *testing.T) {
	m, err := New(nil)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, m.Notify(ctx, aim.Event{
		Phase: aim.PhaseCommitted, WorkflowID: 7, AIM: "temp", Verb: aim.VerbStart,
		To: aim.StateStarted, Alive: true, OccurredAt: time.Now(),
	}))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.alive.WithLabelValues("7", "temp")))

	require.NoError(t, m.Notify(ctx, aim.Event{
		Phase: aim.PhaseRejected, WorkflowID: 7, AIM: "temp", Verb: aim.VerbPause,
		To: aim.StateStarted, Alive: true,
	}))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.transitions.WithLabelValues("7", "temp", "pause", "rejected")))

	require.NoError(t, m.Notify(ctx, aim.Event{
		Phase: aim.PhaseCommitted, WorkflowID: 7, AIM: "temp", Verb: aim.VerbStop,
		To: aim.StateStopped, Alive: false,
	}))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.alive.WithLabelValues("7", "temp")))

	require.NoError(t, m.Notify(ctx, aim.Event{
		Phase: aim.PhaseCommitted, WorkflowID: 7, AIM: "temp", Verb: aim.VerbDestroy,
		To: aim.StateDestroyed,
	}))
	assert.Equal(t, 0, testutil.CollectAndCount(m.alive))
}

func TestForgetWorkflow(t *testing.T) {
	m, err := New(nil)
	require.NoError(t, err)

	m.Published(1, 1, 1)
	m.Published(2, 1, 1)
	m.SetAlive(1, "a", true)
	m.ForgetWorkflow(1)

	assert.Equal(t, 1, testutil.CollectAndCount(m.published))
	assert.Equal(t, 0, testutil.CollectAndCount(m.alive))
}

func TestDuplicateRegistrationFails(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := New(reg)
	require.NoError(t, err)

	_, err = New(reg)
	assert.Error(t, err)
}

func TestHandlerServesMetrics(t *testing.T) {
	m, err := New(nil)
	require.NoError(t, err)
	m.Registered(3, 2)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `aif_bus_registrations{workflow="3"} 2`)
}
