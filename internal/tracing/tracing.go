package tracing

import (
	"github.com/gxo-labs/trialkit/pkg/trialkit/v1/trial"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation name of every engine span.
const TracerName = "github.com/gxo-labs/trialkit"

// Span attribute keys.
const (
	AttrPluginType = attribute.Key("trialkit.plugin_type")
	AttrTrialID    = attribute.Key("trialkit.trial_id")
	AttrEndReason  = attribute.Key("trialkit.end_reason")
	AttrRTMillis   = attribute.Key("trialkit.rt_ms")
	AttrProbeShown = attribute.Key("trialkit.drt_shown")
	AttrSession    = attribute.Key("trialkit.session")
)

// RecordAttributes derives span attributes from an emitted record. The rt
// attribute is only present when a primary response was recorded.
func RecordAttributes(rec trial.Record) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		AttrPluginType.String(rec.PluginType()),
		AttrTrialID.String(rec.TrialID()),
		AttrEndReason.String(string(rec.EndReason())),
	}
	if rt, ok := rec.RTMillis(); ok {
		attrs = append(attrs, AttrRTMillis.Float64(rt))
	}
	if rec.HasProbe() {
		shown, _ := rec[trial.FieldDRTShown].(bool)
		attrs = append(attrs, AttrProbeShown.Bool(shown))
	}
	return attrs
}

// RecordError records err on span and marks it failed. Nil errors and
// non-recording spans are ignored.
func RecordError(span oteltrace.Span, err error) {
	if err == nil || span == nil || !span.IsRecording() {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
