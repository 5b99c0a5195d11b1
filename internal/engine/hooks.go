package engine

import (
	"github.com/gxo-labs/trialkit/internal/module"
	intTracing "github.com/gxo-labs/trialkit/internal/tracing"
	"github.com/gxo-labs/trialkit/pkg/trialkit/v1/trial"

	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// metricsHook feeds the engine's Prometheus collectors.
type metricsHook struct {
	e *Engine
}

func (h *metricsHook) BeforeTrial(tc module.TrialContext) error {
	if h.e.trialsStarted != nil {
		h.e.trialsStarted.WithLabelValues(tc.PluginType()).Inc()
	}
	return nil
}

func (h *metricsHook) AfterTrial(tc module.TrialContext, rec trial.Record) {
	pt := rec.PluginType()
	if h.e.trialCounter != nil {
		h.e.trialCounter.WithLabelValues(pt, string(rec.EndReason())).Inc()
	}
	if rt, ok := rec.RTMillis(); ok && h.e.reactionTime != nil {
		h.e.reactionTime.WithLabelValues(pt).Observe(rt / 1000)
	}
	if !rec.HasProbe() {
		return
	}
	if shown, _ := rec[trial.FieldDRTShown].(bool); shown && h.e.probeOnsets != nil {
		h.e.probeOnsets.WithLabelValues(pt).Inc()
	}
	if _, ok := rec[trial.FieldDRTRT].(float64); ok && h.e.probeResponses != nil {
		h.e.probeResponses.WithLabelValues(pt).Inc()
	}
}

type spanKey struct{}

// tracingHook wraps every trial in a span parented on the trial's context.
type tracingHook struct {
	e *Engine
}

func (h *tracingHook) BeforeTrial(tc module.TrialContext) error {
	tracer := h.e.tracerProvider.GetTracer(intTracing.TracerName)
	_, span := tracer.Start(tc.Context(), "trialkit.trial",
		oteltrace.WithAttributes(
			intTracing.AttrPluginType.String(tc.PluginType()),
			intTracing.AttrTrialID.String(tc.TrialID()),
		),
	)
	tc.Set(spanKey{}, span)
	return nil
}

func (h *tracingHook) AfterTrial(tc module.TrialContext, rec trial.Record) {
	span, ok := tc.Get(spanKey{}).(oteltrace.Span)
	if !ok {
		return
	}
	span.SetAttributes(intTracing.RecordAttributes(rec)...)
	span.SetStatus(codes.Ok, "")
	span.End()
}

var (
	_ module.TrialHook = (*metricsHook)(nil)
	_ module.TrialHook = (*tracingHook)(nil)
)
