package engine_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gxo-labs/trialkit/internal/engine"
	"github.com/gxo-labs/trialkit/internal/logger"
	"github.com/gxo-labs/trialkit/internal/module"
	intState "github.com/gxo-labs/trialkit/internal/state"
	trialkit "github.com/gxo-labs/trialkit/pkg/trialkit/v1"
	gxoerrors "github.com/gxo-labs/trialkit/pkg/trialkit/v1/errors"
	"github.com/gxo-labs/trialkit/pkg/trialkit/v1/events"
	"github.com/gxo-labs/trialkit/pkg/trialkit/v1/trial"
)

// newLoopEngine returns an engine on its own real-time loop.
func newLoopEngine(t *testing.T, opts ...trialkit.EngineOption) *engine.Engine {
	t.Helper()
	reg := module.NewStaticRegistry()
	require.NoError(t, reg.Register(stubType, newStubTask))
	e, err := engine.NewEngine(logger.NewDiscardLogger(), append([]trialkit.EngineOption{trialkit.WithTaskRegistry(reg)}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	return e
}

func TestNewEngine_RequiresLogger(t *testing.T) {
	_, err := engine.NewEngine(nil)
	require.Error(t, err)
	var cfgErr *gxoerrors.ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestNewEngine_RejectsNilOption(t *testing.T) {
	_, err := engine.NewEngine(logger.NewDiscardLogger(), trialkit.WithSurface(nil))
	assert.Error(t, err)
	_, err = engine.NewEngine(logger.NewDiscardLogger(), trialkit.WithInterTrialInterval(-time.Second))
	assert.Error(t, err)
}

func TestRunTrial_Deadline(t *testing.T) {
	e := newLoopEngine(t)
	start := time.Now()
	rec, err := e.RunTrial(context.Background(), stubType, trial.Spec{"trial_duration_ms": 30})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
	assert.Equal(t, "deadline", rec[trial.FieldEndReason])
	assert.Nil(t, rec["correct"])
}

func TestRunTrial_UnknownType(t *testing.T) {
	e := newLoopEngine(t)
	_, err := e.RunTrial(context.Background(), "missing", trial.Spec{})
	assert.True(t, gxoerrors.IsTaskNotFound(err))
}

func TestRunTrial_ContextCancelled(t *testing.T) {
	store := intState.NewMemoryResultStore()
	e := newLoopEngine(t, trialkit.WithResultStore(store))
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := e.RunTrial(ctx, stubType, trial.Spec{"trial_duration_ms": 80})
	require.Error(t, err)
	var trialErr *gxoerrors.TrialError
	require.ErrorAs(t, err, &trialErr)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	assert.Eventually(t, func() bool { return store.Len() == 1 }, time.Second, 5*time.Millisecond,
		"the abandoned trial still finishes and is stored")
}

const stubSession = `
schemaVersion: "1.0.0"
name: engine-test
seed: 3
pacing:
  inter_trial_interval_ms: 5
defaults:
  trial_duration_ms: 20
trials:
  - type: stub-trial
    name: first
  - type: stub-trial
    params:
      drt_enabled: true
  - type: stub-trial
    name: last
    params:
      trial_duration_ms: 10
`

func TestRunSession(t *testing.T) {
	bus := &recordingBus{}
	e := newLoopEngine(t, trialkit.WithEventBus(bus))

	report, err := e.RunSession(context.Background(), []byte(stubSession))
	require.NoError(t, err)
	assert.Equal(t, "engine-test", report.SessionName)
	assert.Equal(t, 3, report.TotalTrials)
	assert.Equal(t, 3, report.CompletedCount)
	assert.Equal(t, 3, report.DeadlineCount)
	assert.Empty(t, report.Error)
	require.Len(t, report.Records, 3)
	assert.False(t, report.Records[0].HasProbe())
	assert.True(t, report.Records[1].HasProbe())

	types := bus.types()
	assert.Equal(t, events.SessionStart, types[0])
	assert.Equal(t, events.SessionEnd, types[len(types)-1])
	assert.Equal(t, 3, bus.count(events.TrialEnd))

	bus.mu.Lock()
	defer bus.mu.Unlock()
	var indexes []interface{}
	for _, ev := range bus.events {
		if ev.Type == events.TrialStart {
			indexes = append(indexes, ev.Payload[engine.PayloadTrialIndex])
			assert.Equal(t, "engine-test", ev.SessionName)
		}
	}
	assert.Equal(t, []interface{}{0, 1, 2}, indexes)
}

func TestRunSession_InvalidDocument(t *testing.T) {
	e := newLoopEngine(t)
	report, err := e.RunSession(context.Background(), []byte("schemaVersion: \"1.0.0\"\nname: x\ntrials: []\n"))
	require.Error(t, err)
	assert.NotEmpty(t, report.Error)
	assert.Zero(t, report.CompletedCount)
}

func TestRunSession_Cancelled(t *testing.T) {
	e := newLoopEngine(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	doc := `
schemaVersion: "1.0.0"
name: slow
trials:
  - type: stub-trial
    params: {trial_duration_ms: 20}
  - type: stub-trial
    params: {trial_duration_ms: 20}
  - type: stub-trial
    params: {trial_duration_ms: 20}
`
	report, err := e.RunSession(ctx, []byte(doc))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, report.CompletedCount, 3)
}
