package sart_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gxo-labs/trialkit/internal/engine"
	"github.com/gxo-labs/trialkit/internal/enginetest"
	"github.com/gxo-labs/trialkit/modules/sart"
	"github.com/gxo-labs/trialkit/pkg/trialkit/v1/plugin"
	"github.com/gxo-labs/trialkit/pkg/trialkit/v1/trial"
)

func newHarness(t *testing.T) *enginetest.Harness {
	return enginetest.New(t, map[string]plugin.TaskFactory{sart.PluginType: sart.New})
}

func TestNoGo(t *testing.T) {
	spec := trial.Spec{"digit": 3, "nogo_digit": 3}

	t.Run("withheld", func(t *testing.T) {
		h := newHarness(t)
		h.Start(sart.PluginType, spec)
		h.Advance(1150)
		rec := h.Last()
		assert.Equal(t, true, rec["correct"])
		assert.Equal(t, "deadline", rec[trial.FieldEndReason])
		assert.Equal(t, true, rec["is_nogo"])
	})

	t.Run("go key pressed", func(t *testing.T) {
		h := newHarness(t)
		h.Start(sart.PluginType, spec)
		h.Advance(300)
		h.Surface.Press(" ")
		rec := h.Last()
		assert.Equal(t, false, rec["correct"])
		assert.Equal(t, " ", rec[trial.FieldResponseKey])
	})
}

func TestGo(t *testing.T) {
	spec := func() trial.Spec { return trial.Spec{"digit": 1, "nogo_digit": 3, "go_key": "space"} }

	t.Run("go key", func(t *testing.T) {
		h := newHarness(t)
		h.Start(sart.PluginType, spec())
		h.Advance(350)
		h.Surface.Press(" ")
		rec := h.Last()
		assert.Equal(t, true, rec["correct"])
		assert.Equal(t, "response", rec[trial.FieldEndReason])
		rt, ok := rec.RTMillis()
		require.True(t, ok)
		assert.InDelta(t, 350, rt, 0.001)
	})

	t.Run("other key", func(t *testing.T) {
		h := newHarness(t)
		h.Start(sart.PluginType, spec())
		require.Equal(t, 1, h.Surface.Press("x"))
		rec := h.Last()
		assert.Equal(t, false, rec["correct"])
		assert.Equal(t, "x", rec[trial.FieldResponseKey])
	})

	t.Run("omission", func(t *testing.T) {
		h := newHarness(t)
		h.Start(sart.PluginType, spec())
		h.Advance(1150)
		rec := h.Last()
		assert.Equal(t, false, rec["correct"])
		assert.Nil(t, rec[trial.FieldRT])
	})
}

func TestRecordHasNoSide(t *testing.T) {
	h := newHarness(t)
	h.Start(sart.PluginType, trial.Spec{})
	h.Surface.Press(" ")
	assert.NotContains(t, h.Last(), trial.FieldResponseSide)
}

func TestMaskSequence(t *testing.T) {
	h := newHarness(t)
	h.Start(sart.PluginType, trial.Spec{"digit": 7, "trial_duration_ms": 2000})
	assert.Equal(t, "7", h.Surface.Text(sart.StimulusID))
	h.Advance(250)
	assert.Equal(t, sart.MaskGlyph, h.Surface.Text(sart.StimulusID))
	h.Advance(900)
	assert.Equal(t, "", h.Surface.Text(sart.StimulusID))
	assert.Equal(t, 0, h.Finished())
}

func TestDisabledStimulusDurationKeepsDigit(t *testing.T) {
	h := newHarness(t)
	h.Start(sart.PluginType, trial.Spec{"digit": 5, "stimulus_duration_ms": 0, "trial_duration_ms": 0})
	h.Advance(10000)
	assert.Equal(t, "5", h.Surface.Text(sart.StimulusID))
	assert.Equal(t, 0, h.Finished())
	assert.Equal(t, 0, h.Clock.Pending())
}

func TestZeroMaskSkipsBlank(t *testing.T) {
	h := newHarness(t)
	h.Start(sart.PluginType, trial.Spec{"digit": 2, "mask_duration_ms": 0, "trial_duration_ms": 3000})
	h.Advance(2000)
	assert.Equal(t, sart.MaskGlyph, h.Surface.Text(sart.StimulusID))
}

func TestMutationsStopAfterResponse(t *testing.T) {
	h := newHarness(t)
	h.Start(sart.PluginType, trial.Spec{"digit": 4})
	h.Surface.Press(" ")
	h.Advance(250)
	assert.Equal(t, "4", h.Surface.Text(sart.StimulusID))
}

func TestProbeSharesGoKey(t *testing.T) {
	h := newHarness(t)
	h.Start(sart.PluginType, trial.Spec{"digit": 1, "drt_enabled": true, "trial_duration_ms": 400})
	// 0.75*400 < 300, so the probe window collapses to exactly 300ms.
	h.Advance(300)
	_, shown := h.Surface.Element(engine.ProbeMarkerID)
	require.True(t, shown)
	h.Advance(40)
	h.Surface.Press(" ")

	rec := h.Last()
	assert.Equal(t, true, rec[trial.FieldDRTEnabled])
	assert.Equal(t, true, rec[trial.FieldDRTShown])
	assert.InDelta(t, 40, rec[trial.FieldDRTRT], 0.001)
	assert.Equal(t, true, rec["correct"])
	assert.InDelta(t, 340, rec[trial.FieldRT], 0.001)
}

func TestDecodesStringDigits(t *testing.T) {
	task := sart.New(trial.Spec{"digit": "3", "nogo_digit": 3.0}).(*sart.Task)
	assert.True(t, task.NoGo())
	fields := task.Score(trial.Response{})
	assert.Equal(t, 3, fields["digit"])
	assert.Equal(t, 250.0, fields["stimulus_duration_ms"])
	assert.Equal(t, 900.0, fields["mask_duration_ms"])
	assert.Equal(t, 1150.0, fields["trial_duration_ms"])
}

func TestSpaceOnlyAnswersDRTWhenGoKeyDiffers(t *testing.T) {
	h := newHarness(t)
	h.Start(sart.PluginType, trial.Spec{"digit": 1, "go_key": "j", "drt_enabled": true, "trial_duration_ms": 400})
	h.Advance(340)
	h.Surface.Press(" ")
	assert.Equal(t, 0, h.Finished(), "space only answers the probe")

	h.Advance(10)
	h.Surface.Press("j")
	rec := h.Last()
	assert.Equal(t, "response", rec[trial.FieldEndReason])
	assert.Equal(t, "j", rec[trial.FieldResponseKey])
	assert.Equal(t, true, rec["correct"])
	assert.InDelta(t, 40, rec[trial.FieldDRTRT], 0.001)
	assert.InDelta(t, 350, rec[trial.FieldRT], 0.001)
}

func TestSpaceBeforeDRTOnsetIsIgnoredWhenGoKeyDiffers(t *testing.T) {
	h := newHarness(t)
	h.Start(sart.PluginType, trial.Spec{"digit": 1, "go_key": "j", "drt_enabled": true, "trial_duration_ms": 400})
	h.Advance(100)
	h.Surface.Press(" ")
	h.Advance(300)

	rec := h.Last()
	assert.Equal(t, "deadline", rec[trial.FieldEndReason])
	assert.Equal(t, false, rec["correct"])
	assert.Nil(t, rec[trial.FieldDRTRT])
}

func TestOtherKeysStillRespondWithDRTEnabled(t *testing.T) {
	h := newHarness(t)
	h.Start(sart.PluginType, trial.Spec{"digit": 1, "go_key": "j", "drt_enabled": true, "trial_duration_ms": 400})
	h.Advance(50)
	h.Surface.Press("k")

	rec := h.Last()
	assert.Equal(t, "k", rec[trial.FieldResponseKey])
	assert.Equal(t, false, rec["correct"])
}

func TestHugeTrialDurationKeepsDeadline(t *testing.T) {
	task := sart.New(trial.Spec{"trial_duration_ms": 1e13}).(*sart.Task)
	assert.Positive(t, int64(task.Timing().TrialDuration))
}
