package flanker_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gxo-labs/trialkit/internal/enginetest"
	"github.com/gxo-labs/trialkit/modules/flanker"
	"github.com/gxo-labs/trialkit/pkg/trialkit/v1/plugin"
	"github.com/gxo-labs/trialkit/pkg/trialkit/v1/trial"
)

func newHarness(t *testing.T) *enginetest.Harness {
	return enginetest.New(t, map[string]plugin.TaskFactory{flanker.PluginType: flanker.New})
}

func rightCongruent() trial.Spec {
	return trial.Spec{
		"target_direction":  "right",
		"congruency":        "congruent",
		"left_key":          "f",
		"right_key":         "j",
		"trial_duration_ms": 1500,
	}
}

func TestStimulus(t *testing.T) {
	cases := []struct {
		name string
		spec trial.Spec
		want string
	}{
		{"right congruent", trial.Spec{"target_direction": "right", "congruency": "congruent"}, "→→→→→"},
		{"right incongruent", trial.Spec{"target_direction": "right", "congruency": "incongruent"}, "←←→←←"},
		{"left neutral", trial.Spec{"target_direction": "left", "congruency": "neutral"}, "--←--"},
		{"defaults", trial.Spec{}, "←←←←←"},
		{"letter incongruent", trial.Spec{"stimulus_type": "letter", "congruency": "incongruent", "target_stimulus": "H", "distractor_stimulus": "S"}, "SSHSS"},
		{"letter neutral", trial.Spec{"stimulus_type": "letter", "congruency": "neutral", "neutral_stimulus": "X"}, "XXHXX"},
		{"letter congruent", trial.Spec{"stimulus_type": "letter", "target_stimulus": "C"}, "CCCCC"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			task := flanker.New(tc.spec).(*flanker.Task)
			assert.Equal(t, tc.want, task.Stimulus())
		})
	}
}

func TestRendersStimulus(t *testing.T) {
	h := newHarness(t)
	h.Start(flanker.PluginType, rightCongruent())
	assert.Equal(t, "→→→→→", h.Surface.Text(flanker.StimulusID))
}

func TestCorrectKey(t *testing.T) {
	h := newHarness(t)
	h.Start(flanker.PluginType, rightCongruent())
	h.Advance(420)
	require.Equal(t, 1, h.Surface.Press("j"))

	rec := h.Last()
	assert.Equal(t, true, rec["accuracy"])
	assert.Equal(t, "response", rec[trial.FieldEndReason])
	assert.Equal(t, "j", rec[trial.FieldResponseKey])
	assert.Equal(t, "right", rec[trial.FieldResponseSide])
	assert.Equal(t, "j", rec["correct_key"])
	assert.Equal(t, flanker.PluginType, rec.PluginType())
	rt, ok := rec.RTMillis()
	require.True(t, ok)
	assert.InDelta(t, 420, rt, 0.001)
}

func TestWrongKey(t *testing.T) {
	h := newHarness(t)
	h.Start(flanker.PluginType, rightCongruent())
	h.Advance(300)
	h.Surface.Press("f")

	rec := h.Last()
	assert.Equal(t, false, rec["accuracy"])
	assert.Equal(t, "left", rec[trial.FieldResponseSide])
}

func TestUppercaseKeyIsAccepted(t *testing.T) {
	h := newHarness(t)
	h.Start(flanker.PluginType, rightCongruent())
	h.Surface.Press("J")
	assert.Equal(t, true, h.Last()["accuracy"])
	assert.Equal(t, "j", h.Last()[trial.FieldResponseKey])
}

func TestUnboundKeysAreInert(t *testing.T) {
	h := newHarness(t)
	h.Start(flanker.PluginType, rightCongruent())
	assert.Equal(t, 0, h.Surface.Press("k"))
	assert.Equal(t, 0, h.Surface.Press(" "))
	assert.Equal(t, 0, h.Finished())
}

func TestOmission(t *testing.T) {
	h := newHarness(t)
	h.Start(flanker.PluginType, rightCongruent())
	h.Advance(1499)
	assert.Equal(t, 0, h.Finished())
	h.Advance(1)

	rec := h.Last()
	assert.Nil(t, rec["accuracy"])
	assert.Contains(t, rec, "accuracy")
	assert.Equal(t, "deadline", rec[trial.FieldEndReason])
	assert.Nil(t, rec[trial.FieldResponseKey])
	assert.Nil(t, rec[trial.FieldRT])
	assert.NotContains(t, rec, trial.FieldDRTEnabled)
}

func TestStimulusOffsetBlanksText(t *testing.T) {
	h := newHarness(t)
	spec := rightCongruent()
	spec["stimulus_duration_ms"] = 200
	h.Start(flanker.PluginType, spec)
	h.Advance(199)
	assert.Equal(t, "→→→→→", h.Surface.Text(flanker.StimulusID))
	h.Advance(1)
	assert.Equal(t, "", h.Surface.Text(flanker.StimulusID))
}

func TestLateInputAfterEndIsIgnored(t *testing.T) {
	h := newHarness(t)
	h.Start(flanker.PluginType, rightCongruent())
	h.Surface.Press("j")
	assert.Equal(t, 0, h.Surface.Press("f"))
	assert.Equal(t, 1, h.Finished())
	assert.Equal(t, 0, h.Surface.ListenerCount())
}

func TestEchoFields(t *testing.T) {
	task := flanker.New(trial.Spec{"trial_duration_ms": "900", "left_key": "A"})
	fields := task.Score(trial.Response{})
	assert.Equal(t, "arrow", fields["stimulus_type"])
	assert.Equal(t, "left", fields["target_direction"])
	assert.Equal(t, "a", fields["left_key"])
	assert.Equal(t, "a", fields["correct_key"])
	assert.Equal(t, 900.0, fields["trial_duration_ms"])
	assert.Equal(t, 0.0, fields["stimulus_duration_ms"])
}

func TestSpaceBoundAsResponseKeyAlsoAnswersDRT(t *testing.T) {
	h := newHarness(t)
	h.Start(flanker.PluginType, trial.Spec{
		"target_direction":  "left",
		"left_key":          "space",
		"drt_enabled":       true,
		"trial_duration_ms": 400,
	})
	h.Advance(340)
	h.Surface.Press(" ")

	rec := h.Last()
	assert.Equal(t, " ", rec[trial.FieldResponseKey])
	assert.Equal(t, "left", rec[trial.FieldResponseSide])
	assert.Equal(t, true, rec["accuracy"])
	assert.InDelta(t, 40, rec[trial.FieldDRTRT], 0.001)
	assert.InDelta(t, 340, rec[trial.FieldRT], 0.001)
}

func TestUnboundSpaceOnlyAnswersDRT(t *testing.T) {
	h := newHarness(t)
	h.Start(flanker.PluginType, trial.Spec{"target_direction": "right", "drt_enabled": true, "trial_duration_ms": 400})
	h.Advance(320)
	h.Surface.Press(" ")
	assert.Equal(t, 0, h.Finished())

	h.Advance(10)
	h.Surface.Press("j")
	rec := h.Last()
	assert.Equal(t, "j", rec[trial.FieldResponseKey])
	assert.Equal(t, true, rec["accuracy"])
	assert.InDelta(t, 20, rec[trial.FieldDRTRT], 0.001)
}
