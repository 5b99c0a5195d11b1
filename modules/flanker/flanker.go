// Package flanker implements the flanker interference trial: a centered
// target flanked by two glyphs on each side that agree with it, contradict
// it, or are neutral.
package flanker

import (
	"strings"
	"time"

	"github.com/gxo-labs/trialkit/internal/module"
	"github.com/gxo-labs/trialkit/internal/paramutil"
	"github.com/gxo-labs/trialkit/pkg/trialkit/v1/plugin"
	"github.com/gxo-labs/trialkit/pkg/trialkit/v1/surface"
	"github.com/gxo-labs/trialkit/pkg/trialkit/v1/trial"
)

const (
	PluginType = "flanker-trial"
	// StimulusID is the element holding the five-glyph string.
	StimulusID = "flanker-stimulus"

	arrowRight   = "→"
	arrowLeft    = "←"
	neutralArrow = "-"

	defaultStimulusDuration = 0
	defaultTrialDuration    = 1500 * time.Millisecond
)

func init() {
	module.Register(PluginType, New)
}

// Task is a decoded flanker trial.
type Task struct {
	stimulusType    string
	targetDirection string
	congruency      string
	target          string
	distractor      string
	neutral         string
	leftKey         string
	rightKey        string
	timing          plugin.Timing
	drt             bool
}

// New decodes spec. Every field has its own default.
func New(spec trial.Spec) plugin.Task {
	return &Task{
		stimulusType:    paramutil.GetEnum(spec, "stimulus_type", "arrow", "arrow", "letter"),
		targetDirection: paramutil.GetEnum(spec, "target_direction", "left", "left", "right"),
		congruency:      paramutil.GetEnum(spec, "congruency", "congruent", "congruent", "incongruent", "neutral"),
		target:          paramutil.GetString(spec, "target_stimulus", "H"),
		distractor:      paramutil.GetString(spec, "distractor_stimulus", "S"),
		neutral:         paramutil.GetString(spec, "neutral_stimulus", "X"),
		leftKey:         paramutil.GetKey(spec, "left_key", "f"),
		rightKey:        paramutil.GetKey(spec, "right_key", "j"),
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

func (t *Task) Bindings() plugin.Bindings {
	return plugin.Bindings{
		Device: plugin.DeviceKeyboard,
		Keys:   map[string]string{t.leftKey: "left", t.rightKey: "right"},
	}
}

// Stimulus returns the rendered string: flank flank target flank flank.
func (t *Task) Stimulus() string {
	var center, flank string
	if t.stimulusType == "letter" {
		center = t.target
		switch t.congruency {
		case "incongruent":
			flank = t.distractor
		case "neutral":
			flank = t.neutral
		default:
			flank = t.target
		}
	} else {
		center, flank = arrowLeft, arrowRight
		if t.targetDirection == "right" {
			center, flank = arrowRight, arrowLeft
		}
		switch t.congruency {
		case "congruent":
			flank = center
		case "neutral":
			flank = neutralArrow
		}
	}
	return strings.Repeat(flank, 2) + center + strings.Repeat(flank, 2)
}

func (t *Task) Present(stage plugin.Stage) {
	s := stage.Surface()
	s.Render(surface.View{Elements: []surface.Element{
		{ID: StimulusID, Kind: surface.KindText, Text: t.Stimulus()},
	}})
	stage.After(t.timing.StimulusDuration, "stimulus_offset", func() {
		s.SetText(StimulusID, "")
	})
}

func (t *Task) correctKey() string {
	if t.targetDirection == "right" {
		return t.rightKey
	}
	return t.leftKey
}

// Score reports accuracy against the key selected by target_direction.
// Omissions score nil.
func (t *Task) Score(resp trial.Response) map[string]interface{} {
	var accuracy interface{}
	if resp.Responded {
		accuracy = resp.Key == t.correctKey()
	}
	return map[string]interface{}{
		"stimulus_type":        t.stimulusType,
		"target_direction":     t.targetDirection,
		"congruency":           t.congruency,
		"stimulus":             t.Stimulus(),
		"left_key":             t.leftKey,
		"right_key":            t.rightKey,
		"correct_key":          t.correctKey(),
		"stimulus_duration_ms": paramutil.Millis(t.timing.StimulusDuration),
		"trial_duration_ms":    paramutil.Millis(t.timing.TrialDuration),
		"accuracy":             accuracy,
	}
}

var _ plugin.Task = (*Task)(nil)
