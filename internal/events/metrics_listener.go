package events

import (
	"context"

	"github.com/gxo-labs/trialkit/pkg/trialkit/v1/events"
	gxolog "github.com/gxo-labs/trialkit/pkg/trialkit/v1/log"
	"github.com/gxo-labs/trialkit/pkg/trialkit/v1/trial"
	"github.com/prometheus/client_golang/prometheus"
)

// MetricsEventListener consumes a ChannelEventBus and keeps Prometheus
// counters of the events it sees.
type MetricsEventListener struct {
	bus          *ChannelEventBus
	log          gxolog.Logger
	eventsTotal  *prometheus.CounterVec
	recordsTotal *prometheus.CounterVec
}

// NewMetricsEventListener creates a listener and registers its collectors
// with registerer. Panics on nil dependencies.
func NewMetricsEventListener(bus *ChannelEventBus, registerer prometheus.Registerer, log gxolog.Logger) (*MetricsEventListener, error) {
	if bus == nil || registerer == nil || log == nil {
		panic("MetricsEventListener requires a non-nil ChannelEventBus, Prometheus Registerer, and Logger")
	}
	l := &MetricsEventListener{
		bus: bus,
		log: log.With("component", "MetricsEventListener"),
		eventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trialkit_events_total",
			Help: "Total number of engine events observed on the event bus.",
		}, []string{"type", "plugin_type"}),
		recordsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trialkit_event_records_total",
			Help: "Total number of result records observed on the event bus, by end reason.",
		}, []string{"plugin_type", "end_reason"}),
	}
	if err := registerer.Register(l.eventsTotal); err != nil {
		return nil, err
	}
	if err := registerer.Register(l.recordsTotal); err != nil {
		return nil, err
	}
	return l, nil
}

// Start consumes events until the bus channel is closed or ctx is done.
// It blocks; run it in its own goroutine.
func (l *MetricsEventListener) Start(ctx context.Context) {
	l.log.Debugf("Starting metrics event listener...")
	for {
		select {
		case event, ok := <-l.bus.GetChannel():
			if !ok {
				l.log.Debugf("Event bus channel closed, stopping listener.")
				return
			}
			l.handleEvent(event)
		case <-ctx.Done():
			l.log.Debugf("Context cancelled, stopping metrics event listener.")
			return
		}
	}
}

func (l *MetricsEventListener) handleEvent(event events.Event) {
	l.eventsTotal.WithLabelValues(string(event.Type), event.PluginType).Inc()
	if event.Type != events.TrialEnd {
		return
	}
	rec, ok := event.Payload["record"].(trial.Record)
	if !ok {
		l.log.Warnf("TrialEnd event for trial %s carries no record", event.TrialID)
		return
	}
	l.recordsTotal.WithLabelValues(rec.PluginType(), string(rec.EndReason())).Inc()
}
