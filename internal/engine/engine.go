package engine

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	trialkit "github.com/gxo-labs/trialkit/pkg/trialkit/v1"
	"github.com/gxo-labs/trialkit/pkg/trialkit/v1/clock"
	gxoerrors "github.com/gxo-labs/trialkit/pkg/trialkit/v1/errors"
	"github.com/gxo-labs/trialkit/pkg/trialkit/v1/events"
	gxolog "github.com/gxo-labs/trialkit/pkg/trialkit/v1/log"
	"github.com/gxo-labs/trialkit/pkg/trialkit/v1/metrics"
	"github.com/gxo-labs/trialkit/pkg/trialkit/v1/plugin"
	gxostate "github.com/gxo-labs/trialkit/pkg/trialkit/v1/state"
	"github.com/gxo-labs/trialkit/pkg/trialkit/v1/surface"
	gxotracing "github.com/gxo-labs/trialkit/pkg/trialkit/v1/tracing"
	"github.com/gxo-labs/trialkit/pkg/trialkit/v1/trial"

	intEvents "github.com/gxo-labs/trialkit/internal/events"
	"github.com/gxo-labs/trialkit/internal/loop"
	intMetrics "github.com/gxo-labs/trialkit/internal/metrics"
	"github.com/gxo-labs/trialkit/internal/module"
	intState "github.com/gxo-labs/trialkit/internal/state"
	intSurface "github.com/gxo-labs/trialkit/internal/surface"
	intTracing "github.com/gxo-labs/trialkit/internal/tracing"

	"github.com/prometheus/client_golang/prometheus"
)

// Engine runs trials and sessions on a single-threaded scheduler.
type Engine struct {
	// Core Services & Providers
	eventBus        events.Bus
	resultStore     gxostate.ResultStore
	registry        plugin.Registry
	metricsProvider metrics.RegistryProvider
	tracerProvider  gxotracing.TracerProvider
	surface         surface.Surface
	log             gxolog.Logger
	hooks           []module.TrialHook

	// Scheduling
	scheduler          clock.Scheduler
	ownedLoop          *loop.Loop
	loopOnce           sync.Once
	loopCancel         context.CancelFunc
	rnd                *rand.Rand
	interTrialInterval time.Duration

	// Metrics Collectors
	trialsStarted   *prometheus.CounterVec
	trialCounter    *prometheus.CounterVec
	reactionTime    *prometheus.HistogramVec
	probeOnsets     *prometheus.CounterVec
	probeResponses  *prometheus.CounterVec
	sessionCounter  *prometheus.CounterVec
	sessionDuration prometheus.Histogram
}

var _ trialkit.EngineV1 = (*Engine)(nil)

// NewEngine creates an engine. Components not supplied through options get
// defaults: a NoOp event bus, an in-memory result store, the global task
// registry, a fresh Prometheus registry, a NoOp tracer, a headless surface
// and an engine-owned scheduler loop.
func NewEngine(log gxolog.Logger, opts ...trialkit.EngineOption) (*Engine, error) {
	if log == nil {
		return nil, gxoerrors.NewConfigError("logger cannot be nil", nil)
	}

	e := &Engine{log: log}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, gxoerrors.NewConfigError(fmt.Sprintf("failed to apply engine option: %v", err), err)
		}
	}

	if e.eventBus == nil {
		e.log.Debugf("No event bus provided, using default NoOp bus.")
		e.eventBus = intEvents.NewNoOpEventBus()
	}
	if e.resultStore == nil {
		e.log.Debugf("No result store provided, using default in-memory store.")
		e.resultStore = intState.NewMemoryResultStore()
	}
	if e.registry == nil {
		e.log.Debugf("No task registry provided, using default static registry.")
		e.registry = module.DefaultStaticRegistryGetter
	}
	if e.metricsProvider == nil {
		e.log.Debugf("No metrics provider provided, using default Prometheus provider.")
		e.metricsProvider = intMetrics.NewPrometheusRegistryProvider()
	}
	if e.tracerProvider == nil {
		e.log.Debugf("No tracer provider provided, using default NoOp provider.")
		e.tracerProvider = intTracing.NewNoOpProvider()
	}
	if e.surface == nil {
		e.log.Warnf("No surface provided, trials render to a headless surface.")
		e.surface = intSurface.NewHeadless()
	}
	if e.rnd == nil {
		e.rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	e.initMetrics()
	e.hooks = append([]module.TrialHook{&metricsHook{e: e}, &tracingHook{e: e}}, e.hooks...)
	return e, nil
}

// AddHook appends a hook that observes every subsequent trial.
func (e *Engine) AddHook(h module.TrialHook) {
	if h != nil {
		e.hooks = append(e.hooks, h)
	}
}

// ResultStore returns the sink records are appended to.
func (e *Engine) ResultStore() gxostate.ResultReader { return e.resultStore }

func (e *Engine) initMetrics() {
	reg := e.metricsProvider.Registry()
	if reg == nil {
		e.log.Errorf("Metrics provider returned a nil registry, cannot initialize metrics.")
		return
	}

	e.trialsStarted = registerCollector(e, reg, prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "trialkit_trials_started_total", Help: "Total number of trials presented."},
		[]string{"plugin_type"},
	))
	e.trialCounter = registerCollector(e, reg, prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "trialkit_trials_total", Help: "Total number of trials finished, by end reason."},
		[]string{"plugin_type", "end_reason"},
	))
	e.reactionTime = registerCollector(e, reg, prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "trialkit_reaction_time_seconds",
			Help:    "Primary response latency from stimulus onset.",
			Buckets: []float64{.1, .2, .3, .4, .5, .6, .8, 1, 1.5, 2, 3},
		},
		[]string{"plugin_type"},
	))
	e.probeOnsets = registerCollector(e, reg, prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "trialkit_probe_onsets_total", Help: "Total number of detection-response probes shown."},
		[]string{"plugin_type"},
	))
	e.probeResponses = registerCollector(e, reg, prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "trialkit_probe_responses_total", Help: "Total number of detection-response probes answered."},
		[]string{"plugin_type"},
	))
	e.sessionCounter = registerCollector(e, reg, prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "trialkit_sessions_total", Help: "Total number of sessions run, by final status."},
		[]string{"status"},
	))
	e.sessionDuration = registerCollector(e, reg, prometheus.NewHistogram(
		prometheus.HistogramOpts{Name: "trialkit_session_duration_seconds", Help: "Duration of session runs in seconds.", Buckets: prometheus.ExponentialBuckets(1, 2, 12)},
	))

	e.log.Debugf("Prometheus metrics initialized and registered.")
}

// registerCollector registers c, reusing the existing collector when an
// engine sharing the registry registered it first.
func registerCollector[T prometheus.Collector](e *Engine, reg prometheus.Registerer, c T) T {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing
			}
		}
		e.log.Warnf("Failed to register metric collector: %v", err)
	}
	return c
}

// sched returns the configured scheduler, starting the engine-owned loop on
// first use.
func (e *Engine) sched() clock.Scheduler {
	if e.scheduler != nil {
		return e.scheduler
	}
	e.loopOnce.Do(func() {
		ctx, cancel := context.WithCancel(context.Background())
		e.ownedLoop = loop.New(e.log)
		e.loopCancel = cancel
		go func() {
			_ = e.ownedLoop.Run(ctx)
		}()
	})
	return e.ownedLoop
}

// StartTrial presents a trial without blocking. It must be called on the
// engine's scheduler: from a scheduler callback, or from the goroutine that
// drives a caller-owned scheduler.
func (e *Engine) StartTrial(pluginType string, spec trial.Spec, onFinish func(trial.Record)) (string, error) {
	return e.startTrial(pluginType, spec, trialMeta{index: -1}, onFinish)
}

func (e *Engine) startTrial(pluginType string, spec trial.Spec, meta trialMeta, onFinish func(trial.Record)) (string, error) {
	factory, err := e.registry.Get(pluginType)
	if err != nil {
		return "", err
	}
	task := factory(spec)
	if task == nil {
		return "", gxoerrors.NewConfigError(fmt.Sprintf("task factory for '%s' returned nil", pluginType), nil)
	}

	run := newTrialRun(task, spec, meta, e, e.sched(), func(rec trial.Record) {
		if err := e.resultStore.Append(rec); err != nil {
			e.log.Warnf("Failed to store record for trial %s: %v", rec.TrialID(), err)
		}
		if onFinish != nil {
			onFinish(rec)
		}
	})
	if err := run.start(); err != nil {
		return "", gxoerrors.NewTrialError(task.PluginType(), run.id, err)
	}
	return run.id, nil
}

type startResult struct {
	id  string
	err error
}

// RunTrial presents one trial and waits for its record. Cancelling ctx stops
// the wait only; the trial still runs to its natural end and its record is
// still stored.
func (e *Engine) RunTrial(ctx context.Context, pluginType string, spec trial.Spec) (trial.Record, error) {
	return e.runTrial(ctx, pluginType, spec, trialMeta{ctx: ctx, index: -1})
}

func (e *Engine) runTrial(ctx context.Context, pluginType string, spec trial.Spec, meta trialMeta) (trial.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, gxoerrors.NewTrialError(pluginType, "", err)
	}
	done := make(chan trial.Record, 1)
	started := make(chan startResult, 1)
	e.sched().Post(func() {
		id, err := e.startTrial(pluginType, spec, meta, func(rec trial.Record) { done <- rec })
		started <- startResult{id: id, err: err}
	})

	var id string
	select {
	case res := <-started:
		if res.err != nil {
			return nil, res.err
		}
		id = res.id
	case <-ctx.Done():
		return nil, gxoerrors.NewTrialError(pluginType, "", ctx.Err())
	}

	select {
	case rec := <-done:
		return rec, nil
	case <-ctx.Done():
		err := gxoerrors.NewTrialError(pluginType, id, ctx.Err())
		e.log.Errorf("Stopped waiting for trial: %v", err)
		return nil, err
	}
}

// Close stops the engine-owned loop. It is a no-op with a caller-owned scheduler.
func (e *Engine) Close() error {
	if e.loopCancel != nil {
		e.loopCancel()
		<-e.ownedLoop.Done()
	}
	return nil
}

func (e *Engine) MetricsRegistryProvider() metrics.RegistryProvider { return e.metricsProvider }
func (e *Engine) TracerProvider() gxotracing.TracerProvider         { return e.tracerProvider }

func (e *Engine) SetEventBus(bus events.Bus) error {
	if bus == nil {
		return gxoerrors.NewConfigError("event bus cannot be nil", nil)
	}
	e.eventBus = bus
	return nil
}

func (e *Engine) SetResultStore(store gxostate.ResultStore) error {
	if store == nil {
		return gxoerrors.NewConfigError("result store cannot be nil", nil)
	}
	e.resultStore = store
	return nil
}

func (e *Engine) SetTaskRegistry(registry plugin.Registry) error {
	if registry == nil {
		return gxoerrors.NewConfigError("task registry cannot be nil", nil)
	}
	e.registry = registry
	return nil
}

func (e *Engine) SetMetricsRegistryProvider(provider metrics.RegistryProvider) error {
	if provider == nil {
		return gxoerrors.NewConfigError("metrics registry provider cannot be nil", nil)
	}
	e.metricsProvider = provider
	return nil
}

func (e *Engine) SetTracerProvider(provider gxotracing.TracerProvider) error {
	if provider == nil {
		return gxoerrors.NewConfigError("tracer provider cannot be nil", nil)
	}
	e.tracerProvider = provider
	return nil
}

func (e *Engine) SetSurface(s surface.Surface) error {
	if s == nil {
		return gxoerrors.NewConfigError("surface cannot be nil", nil)
	}
	e.surface = s
	return nil
}

func (e *Engine) SetScheduler(s clock.Scheduler) error {
	if s == nil {
		return gxoerrors.NewConfigError("scheduler cannot be nil", nil)
	}
	if e.ownedLoop != nil {
		return gxoerrors.NewConfigError("scheduler cannot be replaced after the engine started its own loop", nil)
	}
	e.scheduler = s
	return nil
}

func (e *Engine) SetRandSource(r *rand.Rand) error {
	if r == nil {
		return gxoerrors.NewConfigError("rand source cannot be nil", nil)
	}
	e.rnd = r
	return nil
}

func (e *Engine) SetInterTrialInterval(d time.Duration) error {
	if d < 0 {
		return gxoerrors.NewConfigError("inter-trial interval cannot be negative", nil)
	}
	e.interTrialInterval = d
	return nil
}
