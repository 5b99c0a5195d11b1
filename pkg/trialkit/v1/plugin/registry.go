package plugin

import (
	"time"

	"github.com/gxo-labs/trialkit/pkg/trialkit/v1/surface"
	"github.com/gxo-labs/trialkit/pkg/trialkit/v1/trial"
)

// Device selects how a task collects its primary response.
type Device string

const (
	DeviceKeyboard Device = "keyboard"
	DeviceMouse    Device = "mouse"
)

// Bindings describes which inputs count as primary responses for one trial.
type Bindings struct {
	// Device is keyboard or mouse.
	Device Device
	// AnyKey makes every key a primary response (go/no-go). Keys is ignored.
	AnyKey bool
	// Keys maps each canonical primary key to its response side. Tasks without
	// sides map keys to "".
	Keys map[string]string
	// Targets maps each clickable element id to its response side. Only used
	// when Device is DeviceMouse.
	Targets map[string]string
}

// IsPrimaryKey reports whether a canonical key is a primary response key.
func (b Bindings) IsPrimaryKey(key string) bool {
	if b.Device != DeviceKeyboard {
		return false
	}
	if b.AnyKey {
		return true
	}
	_, ok := b.Keys[key]
	return ok
}

// IsBoundKey reports whether a canonical key is listed in Keys, regardless of
// AnyKey.
func (b Bindings) IsBoundKey(key string) bool {
	if b.Device != DeviceKeyboard {
		return false
	}
	_, ok := b.Keys[key]
	return ok
}

// Sided reports whether responses map onto left/right sides.
func (b Bindings) Sided() bool {
	if b.Device == DeviceMouse {
		return true
	}
	for _, side := range b.Keys {
		if side != "" {
			return true
		}
	}
	return false
}

// Timing carries the decoded timing fields every engine component needs.
// A zero duration means the corresponding timer is disabled.
type Timing struct {
	StimulusDuration time.Duration
	TrialDuration    time.Duration
}

// Stage is what a task sees while presenting. Mutations scheduled through
// After run on the trial's scheduler, never after the trial ended, and are
// cancelled when it terminates.
type Stage interface {
	// Surface returns the presentation surface owned by the trial.
	Surface() surface.Surface
	// After schedules fn to run d after stimulus onset. Non-positive d is ignored.
	After(d time.Duration, label string, fn func())
}

// Task is one decoded trial of a specific type. It bundles the three
// per-task strategies the engine is parameterized with: presenting, input
// bindings, and outcome classification.
type Task interface {
	// PluginType returns the record discriminator, e.g. "flanker-trial".
	PluginType() string
	// Timing returns the decoded stimulus and deadline durations.
	Timing() Timing
	// ProbeEnabled reports whether the detection-response probe runs.
	ProbeEnabled() bool
	// Bindings returns the primary-response input bindings.
	Bindings() Bindings
	// Present renders the initial view and schedules offset mutations.
	Present(stage Stage)
	// Score returns the task echo fields plus the correctness field for the
	// given primary response. It is called exactly once per trial.
	Score(resp trial.Response) map[string]interface{}
}

// TaskFactory decodes a trial specification into a Task. Decoding never
// fails: absent or malformed fields take their documented defaults.
type TaskFactory func(spec trial.Spec) Task

// Registry maps plugin types to task factories.
type Registry interface {
	// Get returns the factory for a plugin type or a TaskNotFoundError.
	Get(pluginType string) (TaskFactory, error)
	// Register associates a plugin type with its factory. It returns an error
	// if the name is empty, the factory is nil, or the name is taken.
	Register(pluginType string, factory TaskFactory) error
	// List returns the registered plugin types in no particular order.
	List() []string
}
