package engine

import (
	"context"
	"maps"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/gxo-labs/trialkit/internal/module"
	"github.com/gxo-labs/trialkit/pkg/trialkit/v1/clock"
	"github.com/gxo-labs/trialkit/pkg/trialkit/v1/events"
	gxolog "github.com/gxo-labs/trialkit/pkg/trialkit/v1/log"
	"github.com/gxo-labs/trialkit/pkg/trialkit/v1/plugin"
	"github.com/gxo-labs/trialkit/pkg/trialkit/v1/surface"
	"github.com/gxo-labs/trialkit/pkg/trialkit/v1/trial"
)

// Event payload keys set by the engine.
const (
	PayloadTrialIndex = "trial_index"
	PayloadTrialName  = "trial_name"
	PayloadLabel      = "label"
	PayloadRecord     = "record"
	PayloadRTMillis   = "rt_ms"
)

// runtimeState is the mutable bookkeeping of one trial. Only the arbiter, the
// probe scheduler and terminate touch it, always on the scheduler.
type runtimeState struct {
	responded    bool
	responseKey  string
	responseSide string
	rt           *float64

	probeArmed bool
	probeFired bool
	probeOnset time.Time
	probeRT    *float64
}

// trialMeta carries what the caller knows about a trial beyond its spec.
type trialMeta struct {
	ctx     context.Context
	session string
	// index is the position inside a session, -1 outside one.
	index int
	name  string
	rnd   *rand.Rand
}

// trialRun is one active trial. It implements plugin.Stage for its task and
// module.TrialContext for hooks.
type trialRun struct {
	id    string
	task  plugin.Task
	spec  trial.Spec
	meta  trialMeta
	sched clock.Scheduler
	surf  surface.Surface
	bus   events.Bus
	log   gxolog.Logger
	hooks []module.TrialHook

	life   *lifecycleRun
	state  runtimeState
	onset  time.Time
	subs   []surface.Subscription
	timers []clock.Timer

	hookData map[interface{}]interface{}
	onFinish func(trial.Record)
}

func newTrialRun(task plugin.Task, spec trial.Spec, meta trialMeta, e *Engine, sched clock.Scheduler, onFinish func(trial.Record)) *trialRun {
	if meta.ctx == nil {
		meta.ctx = context.Background()
	}
	if meta.rnd == nil {
		meta.rnd = e.rnd
	}
	id := uuid.New().String()
	return &trialRun{
		id:       id,
		task:     task,
		spec:     spec,
		meta:     meta,
		sched:    sched,
		surf:     e.surface,
		bus:      e.eventBus,
		log:      e.log.With("trial_id", id, "plugin_type", task.PluginType()),
		hooks:    e.hooks,
		hookData: make(map[interface{}]interface{}),
		onFinish: onFinish,
	}
}

// start runs hooks, presents the stimulus and arms the arbiter, the probe and
// the deadline. It must run on the scheduler.
func (t *trialRun) start() error {
	life, err := startLifecycle()
	if err != nil {
		return err
	}
	t.life = life

	for _, h := range t.hooks {
		if err := h.BeforeTrial(t); err != nil {
			t.life.stop()
			return err
		}
	}

	timing := t.task.Timing()
	t.onset = t.sched.Now()
	t.task.Present(t)
	t.armProbe()
	t.armDeadline()
	t.armArbiter()

	t.log.Debugf("Trial started (stimulus %v, deadline %v, probe %t)", timing.StimulusDuration, timing.TrialDuration, t.task.ProbeEnabled())
	t.emit(events.TrialStart, map[string]interface{}{
		"stimulus_duration_ms": millis(timing.StimulusDuration),
		"trial_duration_ms":    millis(timing.TrialDuration),
		trial.FieldDRTEnabled:  t.task.ProbeEnabled(),
	})
	return nil
}

// Surface implements plugin.Stage.
func (t *trialRun) Surface() surface.Surface { return t.surf }

// After implements plugin.Stage. The mutation is dropped once the trial ended.
func (t *trialRun) After(d time.Duration, label string, fn func()) {
	if d <= 0 {
		return
	}
	timer := t.sched.AfterFunc(d, func() {
		if t.life.ended() {
			return
		}
		fn()
		t.emit(events.StimulusChanged, map[string]interface{}{PayloadLabel: label})
	})
	t.timers = append(t.timers, timer)
}

// terminate is the single exit point of a trial. Only the first call has an
// effect; its first action after winning the lifecycle transition is to
// unregister every input listener.
func (t *trialRun) terminate(reason trial.EndReason) {
	if !t.life.end(reason) {
		return
	}
	for _, sub := range t.subs {
		sub.Cancel()
	}
	t.subs = nil
	for _, timer := range t.timers {
		timer.Stop()
	}
	t.timers = nil

	resp := trial.Response{
		Responded: t.state.responded,
		Key:       t.state.responseKey,
		Side:      t.state.responseSide,
		RTMillis:  t.state.rt,
	}
	rec := t.assemble(reason, t.task.Score(resp))

	t.log.Debugf("Trial ended (%s, state %s)", reason, t.life.state())
	t.emit(events.TrialEnd, map[string]interface{}{PayloadRecord: rec.Clone()})
	for _, h := range t.hooks {
		h.AfterTrial(t, rec.Clone())
	}
	t.life.stop()

	if t.onFinish != nil {
		t.onFinish(rec)
	}
}

func (t *trialRun) assemble(reason trial.EndReason, fields map[string]interface{}) trial.Record {
	rec := make(trial.Record, len(fields)+10)
	maps.Copy(rec, fields)
	rec[trial.FieldPluginType] = t.task.PluginType()
	rec[trial.FieldTrialID] = t.id
	rec[trial.FieldEndReason] = string(reason)
	rec[trial.FieldResponseKey] = nullable(t.state.responseKey)
	if t.task.Bindings().Sided() {
		rec[trial.FieldResponseSide] = nullable(t.state.responseSide)
	}
	rec[trial.FieldRT] = trial.Millis(t.state.rt)
	if t.task.ProbeEnabled() {
		rec[trial.FieldDRTEnabled] = true
		rec[trial.FieldDRTShown] = t.state.probeFired
		rec[trial.FieldDRTRT] = trial.Millis(t.state.probeRT)
	}
	return rec
}

func (t *trialRun) emit(typ events.EventType, payload map[string]interface{}) {
	if payload == nil {
		payload = make(map[string]interface{})
	}
	if t.meta.index >= 0 {
		payload[PayloadTrialIndex] = t.meta.index
		if t.meta.name != "" {
			payload[PayloadTrialName] = t.meta.name
		}
	}
	t.bus.Emit(events.Event{
		Type:        typ,
		Timestamp:   t.sched.Now(),
		SessionName: t.meta.session,
		TrialID:     t.id,
		PluginType:  t.task.PluginType(),
		Payload:     payload,
	})
}

// elapsed returns the milliseconds since since on the scheduler clock.
func (t *trialRun) elapsed(since time.Time) float64 {
	return millis(t.sched.Now().Sub(since))
}

func (t *trialRun) TrialID() string                        { return t.id }
func (t *trialRun) PluginType() string                     { return t.task.PluginType() }
func (t *trialRun) Spec() trial.Spec                       { return t.spec }
func (t *trialRun) Context() context.Context               { return t.meta.ctx }
func (t *trialRun) Logger() gxolog.Logger                  { return t.log }
func (t *trialRun) Get(key interface{}) interface{}        { return t.hookData[key] }
func (t *trialRun) Set(key interface{}, value interface{}) { t.hookData[key] = value }

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

var (
	_ plugin.Stage        = (*trialRun)(nil)
	_ module.TrialContext = (*trialRun)(nil)
)
