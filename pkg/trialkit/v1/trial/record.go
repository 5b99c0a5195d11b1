// Package trial defines the values exchanged between the engine and its host:
// the per-trial specification going in and the result record coming out.
package trial

import "maps"

// Spec is one finished trial specification as produced by the host's timeline
// compiler. Values are decoded by each task with independent per-field
// defaults, so a Spec never has to be complete.
type Spec map[string]interface{}

// EndReason records which of the two terminating sources ended a trial.
type EndReason string

const (
	EndResponse EndReason = "response"
	EndDeadline EndReason = "deadline"
)

// Record field names shared by every task.
const (
	FieldPluginType   = "plugin_type"
	FieldTrialID      = "trial_id"
	FieldEndReason    = "end_reason"
	FieldResponseKey  = "response_key"
	FieldResponseSide = "response_side"
	FieldRT           = "rt_ms"
	FieldDRTEnabled   = "drt_enabled"
	FieldDRTShown     = "drt_shown"
	FieldDRTRT        = "drt_rt_ms"
)

// Response is the primary-response state handed to a task's classifier.
type Response struct {
	// Responded is false when the trial ended on its deadline.
	Responded bool
	// Key is the canonical key of the accepted response, "" for clicks or omissions.
	Key string
	// Side is the side derived from the key or click target, "" when the task
	// has no sides or nothing was pressed.
	Side string
	// RTMillis is the latency from stimulus onset; nil for omissions.
	RTMillis *float64
}

// Record is the immutable result of one trial. Task-specific echo fields sit
// next to the shared fields named by the Field* constants.
type Record map[string]interface{}

// PluginType returns the task discriminator of the record.
func (r Record) PluginType() string {
	s, _ := r[FieldPluginType].(string)
	return s
}

// TrialID returns the id assigned by the engine.
func (r Record) TrialID() string {
	s, _ := r[FieldTrialID].(string)
	return s
}

// EndReason returns why the trial ended.
func (r Record) EndReason() EndReason {
	switch v := r[FieldEndReason].(type) {
	case EndReason:
		return v
	case string:
		return EndReason(v)
	}
	return ""
}

// RTMillis returns the primary reaction time and whether one was recorded.
func (r Record) RTMillis() (float64, bool) {
	v, ok := r[FieldRT].(float64)
	return v, ok
}

// HasProbe reports whether the record carries detection-response fields.
func (r Record) HasProbe() bool {
	_, ok := r[FieldDRTEnabled]
	return ok
}

// Clone returns a shallow copy. Record values are scalars or nil, so a
// shallow copy is a full copy.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	return maps.Clone(r)
}

// Millis converts a nullable latency into the value stored under rt fields.
func Millis(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}
