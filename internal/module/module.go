package module

import (
	"context"

	gxolog "github.com/gxo-labs/trialkit/pkg/trialkit/v1/log"
	"github.com/gxo-labs/trialkit/pkg/trialkit/v1/trial"
)

// TrialContext describes one running trial to a TrialHook.
type TrialContext interface {
	// TrialID returns the uuid assigned to the trial.
	TrialID() string
	// PluginType returns the task discriminator.
	PluginType() string
	// Spec returns the trial specification. Hooks must not modify it.
	Spec() trial.Spec
	// Context returns the context the trial was started under. It carries
	// the session span, if any.
	Context() context.Context
	// Logger returns the trial-scoped logger.
	Logger() gxolog.Logger

	// Get and Set carry hook data from BeforeTrial to AfterTrial, e.g. a span.
	Get(key interface{}) interface{}
	Set(key interface{}, value interface{})
}

// TrialHook observes the trial lifecycle. Hooks run on the scheduler and
// must not block.
type TrialHook interface {
	// BeforeTrial runs after the trial id is assigned and before the initial
	// render. An error aborts the trial before anything is shown.
	BeforeTrial(tc TrialContext) error
	// AfterTrial runs once with the emitted record, before the finish callback.
	AfterTrial(tc TrialContext, record trial.Record)
}
