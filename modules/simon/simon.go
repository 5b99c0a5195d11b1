// Package simon implements the Simon spatial-conflict trial: one of two
// side targets lights up and the participant answers with the side named by
// the trial, regardless of where the light appeared.
package simon

import (
	"time"

	"github.com/gxo-labs/trialkit/internal/module"
	"github.com/gxo-labs/trialkit/internal/paramutil"
	"github.com/gxo-labs/trialkit/pkg/trialkit/v1/plugin"
	"github.com/gxo-labs/trialkit/pkg/trialkit/v1/surface"
	"github.com/gxo-labs/trialkit/pkg/trialkit/v1/trial"
)

const (
	PluginType = "simon-trial"

	LeftTargetID  = "simon-left"
	RightTargetID = "simon-right"
	// ColorProperty is the style property that carries a target's fill.
	ColorProperty = "background-color"

	SideLeft  = "left"
	SideRight = "right"

	defaultStimulusColor    = "#d32f2f"
	defaultInactiveColor    = "#9e9e9e"
	defaultStimulusDuration = 800 * time.Millisecond
	defaultTrialDuration    = 1500 * time.Millisecond
)

func init() {
	module.Register(PluginType, New)
}

type Task struct {
	stimulusSide  string
	correctSide   string
	stimulusColor string
	inactiveColor string
	device        plugin.Device
	leftKey       string
	rightKey      string
	timing        plugin.Timing
	drt           bool
}

func New(spec trial.Spec) plugin.Task {
	return &Task{
		stimulusSide:  paramutil.GetEnum(spec, "stimulus_side", SideLeft, SideLeft, SideRight),
		correctSide:   paramutil.GetEnum(spec, "correct_response_side", SideLeft, SideLeft, SideRight),
		stimulusColor: paramutil.GetString(spec, "stimulus_color", defaultStimulusColor),
		inactiveColor: paramutil.GetString(spec, "inactive_color", defaultInactiveColor),
		device: plugin.Device(paramutil.GetEnum(spec, "response_device",
			string(plugin.DeviceKeyboard), string(plugin.DeviceKeyboard), string(plugin.DeviceMouse))),
		leftKey:  paramutil.GetKey(spec, "left_key", "f"),
		rightKey: paramutil.GetKey(spec, "right_key", "j"),
		timing: plugin.Timing{
			StimulusDuration: paramutil.GetMillis(spec, "stimulus_duration_ms", defaultStimulusDuration),
			TrialDuration:    paramutil.GetMillis(spec, "trial_duration_ms", defaultTrialDuration),
		},
		drt: paramutil.GetBool(spec, "drt_enabled", false),
	}
}

func (t *Task) PluginType() string    { return PluginType }
func (t *Task) Timing() plugin.Timing { return t.timing }
func (t *Task) ProbeEnabled() bool    { return t.drt }

// Congruency is "congruent" when the lit side matches the required answer.
func (t *Task) Congruency() string {
	if t.stimulusSide == t.correctSide {
		return "congruent"
	}
	return "incongruent"
}

func (t *Task) Bindings() plugin.Bindings {
	if t.device == plugin.DeviceMouse {
		return plugin.Bindings{
			Device:  plugin.DeviceMouse,
			Targets: map[string]string{LeftTargetID: SideLeft, RightTargetID: SideRight},
		}
	}
	return plugin.Bindings{
		Device: plugin.DeviceKeyboard,
		Keys:   map[string]string{t.leftKey: SideLeft, t.rightKey: SideRight},
	}
}

func (t *Task) target(id, side string) surface.Element {
	color := t.inactiveColor
	if side == t.stimulusSide {
		color = t.stimulusColor
	}
	return surface.Element{
		ID:    id,
		Kind:  surface.KindTarget,
		Style: map[string]string{ColorProperty: color},
	}
}

// Present lights the stimulus side. Offset darkens both targets whether or
// not a response has arrived.
func (t *Task) Present(stage plugin.Stage) {
	s := stage.Surface()
	s.Render(surface.View{Elements: []surface.Element{
		t.target(LeftTargetID, SideLeft),
		t.target(RightTargetID, SideRight),
	}})
	stage.After(t.timing.StimulusDuration, "stimulus_offset", func() {
		s.SetStyle(LeftTargetID, ColorProperty, t.inactiveColor)
		s.SetStyle(RightTargetID, ColorProperty, t.inactiveColor)
	})
}

func (t *Task) Score(resp trial.Response) map[string]interface{} {
	var correctness interface{}
	if resp.Responded {
		correctness = resp.Side == t.correctSide
	}
	return map[string]interface{}{
		"stimulus_side":         t.stimulusSide,
		"correct_response_side": t.correctSide,
		"congruency":            t.Congruency(),
		"stimulus_color":        t.stimulusColor,
		"inactive_color":        t.inactiveColor,
		"response_device":       string(t.device),
		"left_key":              t.leftKey,
		"right_key":             t.rightKey,
		"stimulus_duration_ms":  paramutil.Millis(t.timing.StimulusDuration),
		"trial_duration_ms":     paramutil.Millis(t.timing.TrialDuration),
		"correctness":           correctness,
	}
}

var _ plugin.Task = (*Task)(nil)
