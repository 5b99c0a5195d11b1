package v1

import (
	"context"
	"math/rand"
	"time"

	"github.com/gxo-labs/trialkit/pkg/trialkit/v1/clock"
	gxoerrors "github.com/gxo-labs/trialkit/pkg/trialkit/v1/errors"
	"github.com/gxo-labs/trialkit/pkg/trialkit/v1/events"
	"github.com/gxo-labs/trialkit/pkg/trialkit/v1/metrics"
	"github.com/gxo-labs/trialkit/pkg/trialkit/v1/plugin"
	"github.com/gxo-labs/trialkit/pkg/trialkit/v1/state"
	"github.com/gxo-labs/trialkit/pkg/trialkit/v1/surface"
	"github.com/gxo-labs/trialkit/pkg/trialkit/v1/tracing"
	"github.com/gxo-labs/trialkit/pkg/trialkit/v1/trial"
)

// EngineV1 defines the public interface for the trialkit response-capture engine.
type EngineV1 interface {
	// RunTrial presents one trial and blocks until its result record is emitted.
	RunTrial(ctx context.Context, pluginType string, spec trial.Spec) (trial.Record, error)
	// StartTrial presents one trial without blocking. onFinish is invoked on
	// the scheduler exactly once with the result record. It returns the trial id.
	StartTrial(pluginType string, spec trial.Spec, onFinish func(trial.Record)) (string, error)
	// RunSession runs every trial of a session document in order.
	RunSession(ctx context.Context, sessionYAML []byte) (*SessionReport, error)

	// MetricsRegistryProvider returns the underlying metrics provider.
	MetricsRegistryProvider() metrics.RegistryProvider
	// TracerProvider returns the underlying tracing provider.
	TracerProvider() tracing.TracerProvider
	// Close stops the engine-owned scheduler, if any. Trials still running
	// never finish afterwards.
	Close() error

	// Setter methods for configuring engine components programmatically.
	SetEventBus(bus events.Bus) error
	SetResultStore(store state.ResultStore) error
	SetTaskRegistry(registry plugin.Registry) error
	SetMetricsRegistryProvider(provider metrics.RegistryProvider) error
	SetTracerProvider(provider tracing.TracerProvider) error
	SetSurface(s surface.Surface) error
	SetScheduler(s clock.Scheduler) error
	SetRandSource(r *rand.Rand) error
	SetInterTrialInterval(d time.Duration) error
}

// EngineOption is a function type used to configure the engine at creation.
type EngineOption func(EngineV1) error

// SessionReport summarizes one completed session run.
type SessionReport struct {
	SessionName    string         `json:"session_name" yaml:"session_name"`
	StartTime      time.Time      `json:"start_time" yaml:"start_time"`
	EndTime        time.Time      `json:"end_time" yaml:"end_time"`
	Duration       time.Duration  `json:"duration" yaml:"duration"`
	TotalTrials    int            `json:"total_trials" yaml:"total_trials"`
	CompletedCount int            `json:"completed_trials" yaml:"completed_trials"`
	ResponseCount  int            `json:"response_trials" yaml:"response_trials"`
	DeadlineCount  int            `json:"deadline_trials" yaml:"deadline_trials"`
	Error          string         `json:"error,omitempty" yaml:"error,omitempty"`
	Records        []trial.Record `json:"records" yaml:"records"`
}

// WithEventBus is an engine option to provide a custom event bus.
func WithEventBus(bus events.Bus) EngineOption {
	return func(e EngineV1) error {
		if bus == nil {
			return gxoerrors.NewConfigError("event bus cannot be nil", nil)
		}
		return e.SetEventBus(bus)
	}
}

// WithResultStore is an engine option to provide the sink for result records.
func WithResultStore(store state.ResultStore) EngineOption {
	return func(e EngineV1) error {
		if store == nil {
			return gxoerrors.NewConfigError("result store cannot be nil", nil)
		}
		return e.SetResultStore(store)
	}
}

// WithTaskRegistry is an engine option to provide a custom task registry.
func WithTaskRegistry(registry plugin.Registry) EngineOption {
	return func(e EngineV1) error {
		if registry == nil {
			return gxoerrors.NewConfigError("task registry cannot be nil", nil)
		}
		return e.SetTaskRegistry(registry)
	}
}

// WithMetricsRegistryProvider is an engine option to provide a custom metrics provider.
func WithMetricsRegistryProvider(provider metrics.RegistryProvider) EngineOption {
	return func(e EngineV1) error {
		if provider == nil {
			return gxoerrors.NewConfigError("metrics registry provider cannot be nil", nil)
		}
		return e.SetMetricsRegistryProvider(provider)
	}
}

// WithTracerProvider is an engine option to provide a custom tracing provider.
func WithTracerProvider(provider tracing.TracerProvider) EngineOption {
	return func(e EngineV1) error {
		if provider == nil {
			return gxoerrors.NewConfigError("tracer provider cannot be nil", nil)
		}
		return e.SetTracerProvider(provider)
	}
}

// WithSurface is an engine option to provide the presentation surface.
func WithSurface(s surface.Surface) EngineOption {
	return func(e EngineV1) error {
		if s == nil {
			return gxoerrors.NewConfigError("surface cannot be nil", nil)
		}
		return e.SetSurface(s)
	}
}

// WithScheduler is an engine option to run trials on a caller-owned scheduler.
// The caller is then responsible for driving it.
func WithScheduler(s clock.Scheduler) EngineOption {
	return func(e EngineV1) error {
		if s == nil {
			return gxoerrors.NewConfigError("scheduler cannot be nil", nil)
		}
		return e.SetScheduler(s)
	}
}

// WithRandSource is an engine option to seed probe-onset jitter.
func WithRandSource(r *rand.Rand) EngineOption {
	return func(e EngineV1) error {
		if r == nil {
			return gxoerrors.NewConfigError("rand source cannot be nil", nil)
		}
		return e.SetRandSource(r)
	}
}

// WithInterTrialInterval is an engine option to pause between session trials.
func WithInterTrialInterval(d time.Duration) EngineOption {
	return func(e EngineV1) error {
		if d < 0 {
			return gxoerrors.NewConfigError("inter-trial interval cannot be negative", nil)
		}
		return e.SetInterTrialInterval(d)
	}
}
