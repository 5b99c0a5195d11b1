// Package enginetest runs trials against a virtual clock and a headless
// surface so task behaviour can be asserted deterministically.
package enginetest

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gxo-labs/trialkit/internal/engine"
	"github.com/gxo-labs/trialkit/internal/logger"
	"github.com/gxo-labs/trialkit/internal/loop"
	"github.com/gxo-labs/trialkit/internal/module"
	intSurface "github.com/gxo-labs/trialkit/internal/surface"
	trialkit "github.com/gxo-labs/trialkit/pkg/trialkit/v1"
	"github.com/gxo-labs/trialkit/pkg/trialkit/v1/plugin"
	"github.com/gxo-labs/trialkit/pkg/trialkit/v1/trial"
)

// Epoch is the virtual clock start used by every harness.
var Epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// Harness owns one engine wired to a virtual scheduler.
type Harness struct {
	t        testing.TB
	Engine   *engine.Engine
	Clock    *loop.Virtual
	Surface  *intSurface.Headless
	Registry *module.StaticRegistry
	Records  []trial.Record
}

// New builds a harness with the given task factories registered. Extra
// engine options are applied after the harness defaults.
func New(t testing.TB, factories map[string]plugin.TaskFactory, opts ...trialkit.EngineOption) *Harness {
	t.Helper()
	reg := module.NewStaticRegistry()
	for name, f := range factories {
		require.NoError(t, reg.Register(name, f))
	}
	h := &Harness{
		t:        t,
		Clock:    loop.NewVirtual(Epoch),
		Surface:  intSurface.NewHeadless(),
		Registry: reg,
	}
	all := append([]trialkit.EngineOption{
		trialkit.WithScheduler(h.Clock),
		trialkit.WithSurface(h.Surface),
		trialkit.WithTaskRegistry(reg),
		trialkit.WithRandSource(rand.New(rand.NewSource(1))),
	}, opts...)
	e, err := engine.NewEngine(logger.NewDiscardLogger(), all...)
	require.NoError(t, err)
	h.Engine = e
	return h
}

// Start presents a trial and returns its id. Finished records are collected
// in Records.
func (h *Harness) Start(pluginType string, spec trial.Spec) string {
	h.t.Helper()
	id, err := h.Engine.StartTrial(pluginType, spec, func(rec trial.Record) {
		h.Records = append(h.Records, rec)
	})
	require.NoError(h.t, err)
	return id
}

// Advance moves the virtual clock forward by ms milliseconds.
func (h *Harness) Advance(ms int) {
	h.Clock.Advance(time.Duration(ms) * time.Millisecond)
}

// Last returns the most recent record, failing the test if there is none.
func (h *Harness) Last() trial.Record {
	h.t.Helper()
	require.NotEmpty(h.t, h.Records, "no trial finished")
	return h.Records[len(h.Records)-1]
}

// Finished reports how many trials emitted a record.
func (h *Harness) Finished() int { return len(h.Records) }
