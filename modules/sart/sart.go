// Package sart implements the go/no-go sustained attention trial. A digit is
// shown, masked, then cleared; every key counts as a response so that wrong
// keys on go trials are told apart from omissions.
package sart

import (
	"strconv"
	"time"

	"github.com/gxo-labs/trialkit/internal/keys"
	"github.com/gxo-labs/trialkit/internal/module"
	"github.com/gxo-labs/trialkit/internal/paramutil"
	"github.com/gxo-labs/trialkit/pkg/trialkit/v1/plugin"
	"github.com/gxo-labs/trialkit/pkg/trialkit/v1/surface"
	"github.com/gxo-labs/trialkit/pkg/trialkit/v1/trial"
)

const (
	PluginType = "sart-trial"
	StimulusID = "sart-stimulus"
	MaskGlyph  = "⊗"

	defaultDigit            = 1
	defaultNoGoDigit        = 3
	defaultStimulusDuration = 250 * time.Millisecond
	defaultMaskDuration     = 900 * time.Millisecond
	defaultTrialDuration    = 1150 * time.Millisecond
)

func init() {
	module.Register(PluginType, New)
}

type Task struct {
	digit     int
	noGoDigit int
	goKey     string
	mask      time.Duration
	timing    plugin.Timing
	drt       bool
}

func New(spec trial.Spec) plugin.Task {
	return &Task{
		digit:     paramutil.GetInt(spec, "digit", defaultDigit),
		noGoDigit: paramutil.GetInt(spec, "nogo_digit", defaultNoGoDigit),
		goKey:     paramutil.GetKey(spec, "go_key", keys.Space),
		mask:      paramutil.GetMillis(spec, "mask_duration_ms", defaultMaskDuration),
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

// NoGo reports whether this trial's digit must be withheld.
func (t *Task) NoGo() bool { return t.digit == t.noGoDigit }

func (t *Task) Bindings() plugin.Bindings {
	return plugin.Bindings{
		Device: plugin.DeviceKeyboard,
		AnyKey: true,
		Keys:   map[string]string{t.goKey: ""},
	}
}

func (t *Task) Present(stage plugin.Stage) {
	s := stage.Surface()
	s.Render(surface.View{Elements: []surface.Element{
		{ID: StimulusID, Kind: surface.KindText, Text: strconv.Itoa(t.digit)},
	}})
	if t.timing.StimulusDuration <= 0 {
		return
	}
	stage.After(t.timing.StimulusDuration, "mask_onset", func() {
		s.SetText(StimulusID, MaskGlyph)
	})
	if t.mask > 0 {
		stage.After(t.timing.StimulusDuration+t.mask, "mask_offset", func() {
			s.SetText(StimulusID, "")
		})
	}
}

// Score applies go/no-go correctness. Any response on a no-go trial is an
// error, the go key included.
func (t *Task) Score(resp trial.Response) map[string]interface{} {
	var correct bool
	if t.NoGo() {
		correct = !resp.Responded
	} else {
		correct = resp.Responded && resp.Key == t.goKey
	}
	return map[string]interface{}{
		"digit":                t.digit,
		"nogo_digit":           t.noGoDigit,
		"is_nogo":              t.NoGo(),
		"go_key":               t.goKey,
		"stimulus_duration_ms": paramutil.Millis(t.timing.StimulusDuration),
		"mask_duration_ms":     paramutil.Millis(t.mask),
		"trial_duration_ms":    paramutil.Millis(t.timing.TrialDuration),
		"correct":              correct,
	}
}

var _ plugin.Task = (*Task)(nil)
