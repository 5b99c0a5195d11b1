package events

import "time"

// EventType represents the type of a trialkit engine event.
type EventType string

// Standard trialkit event types.
const (
	SessionStart     EventType = "SessionStart"
	SessionEnd       EventType = "SessionEnd"
	TrialStart       EventType = "TrialStart"       // Initial view rendered, listeners armed
	StimulusChanged  EventType = "StimulusChanged"  // A scheduled presenter mutation ran
	ProbeOnset       EventType = "ProbeOnset"       // Detection-response marker shown
	ProbeResponse    EventType = "ProbeResponse"    // First probe-key press after onset
	ResponseAccepted EventType = "ResponseAccepted" // Primary response recorded
	TrialEnd         EventType = "TrialEnd"         // Result record assembled and emitted
)

// Event represents a significant occurrence within a trial or session.
type Event struct {
	// Type categorizes the event.
	Type EventType `json:"type"`
	// Timestamp marks when the event occurred on the engine's scheduler clock.
	Timestamp time.Time `json:"timestamp"`
	// SessionName identifies the session context, if applicable.
	SessionName string `json:"session_name,omitempty"`
	// TrialID is the uuid assigned to the trial, if applicable.
	TrialID string `json:"trial_id,omitempty"`
	// PluginType identifies the task that produced the event.
	PluginType string `json:"plugin_type,omitempty"`
	// Payload contains event-specific data. For TrialEnd it carries the
	// complete result record under the "record" key.
	Payload map[string]interface{} `json:"payload,omitempty"`
}

// Bus defines the interface for publishing engine events.
type Bus interface {
	// Emit publishes an event to the bus. Implementations must not block the
	// engine's scheduler for long; it runs every trial callback.
	Emit(event Event)
}
