package events_test

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	intEvents "github.com/gxo-labs/trialkit/internal/events"
	"github.com/gxo-labs/trialkit/internal/logger"
	"github.com/gxo-labs/trialkit/pkg/trialkit/v1/events"
	"github.com/gxo-labs/trialkit/pkg/trialkit/v1/trial"
)

func TestChannelEventBus_DropsWhenFull(t *testing.T) {
	bus := intEvents.NewChannelEventBus(2, logger.NewDiscardLogger())
	for i := 0; i < 5; i++ {
		bus.Emit(events.Event{Type: events.TrialStart})
	}
	assert.Len(t, bus.GetChannel(), 2)
	bus.Close()

	n := 0
	for range bus.GetChannel() {
		n++
	}
	assert.Equal(t, 2, n)
}

func TestFanoutBus(t *testing.T) {
	a := intEvents.NewChannelEventBus(4, logger.NewDiscardLogger())
	b := intEvents.NewChannelEventBus(4, logger.NewDiscardLogger())
	fan := intEvents.NewFanoutBus(a, nil, intEvents.NewNoOpEventBus(), b)

	fan.Emit(events.Event{Type: events.ProbeOnset, TrialID: "t1"})
	require.Len(t, a.GetChannel(), 1)
	require.Len(t, b.GetChannel(), 1)
	assert.Equal(t, "t1", (<-a.GetChannel()).TrialID)
	assert.Equal(t, events.ProbeOnset, (<-b.GetChannel()).Type)
}

func counterValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
	metrics:
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if labels[lp.GetName()] != lp.GetValue() {
					continue metrics
				}
			}
			return m.GetCounter().GetValue()
		}
	}
	return 0
}

func TestMetricsEventListener(t *testing.T) {
	reg := prometheus.NewRegistry()
	bus := intEvents.NewChannelEventBus(10, logger.NewDiscardLogger())
	l, err := intEvents.NewMetricsEventListener(bus, reg, logger.NewDiscardLogger())
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		l.Start(context.Background())
		close(done)
	}()

	rec := trial.Record{
		trial.FieldPluginType: "sart-trial",
		trial.FieldTrialID:    "t1",
		trial.FieldEndReason:  "deadline",
	}
	bus.Emit(events.Event{Type: events.TrialStart, PluginType: "sart-trial"})
	bus.Emit(events.Event{Type: events.TrialEnd, PluginType: "sart-trial", Payload: map[string]interface{}{"record": rec}})
	bus.Emit(events.Event{Type: events.TrialEnd, PluginType: "sart-trial"})
	bus.Close()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("listener did not stop after the bus closed")
	}

	assert.Equal(t, 1.0, counterValue(t, reg, "trialkit_events_total", map[string]string{"type": "TrialStart", "plugin_type": "sart-trial"}))
	assert.Equal(t, 2.0, counterValue(t, reg, "trialkit_events_total", map[string]string{"type": "TrialEnd", "plugin_type": "sart-trial"}))
	assert.Equal(t, 1.0, counterValue(t, reg, "trialkit_event_records_total", map[string]string{"plugin_type": "sart-trial", "end_reason": "deadline"}))
}

func TestMetricsEventListener_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	bus := intEvents.NewChannelEventBus(1, logger.NewDiscardLogger())
	_, err := intEvents.NewMetricsEventListener(bus, reg, logger.NewDiscardLogger())
	require.NoError(t, err)
	_, err = intEvents.NewMetricsEventListener(bus, reg, logger.NewDiscardLogger())
	assert.Error(t, err)
}

func TestMetricsEventListener_StopsOnContext(t *testing.T) {
	bus := intEvents.NewChannelEventBus(1, logger.NewDiscardLogger())
	l, err := intEvents.NewMetricsEventListener(bus, prometheus.NewRegistry(), logger.NewDiscardLogger())
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		l.Start(ctx)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("listener ignored cancellation")
	}
}
