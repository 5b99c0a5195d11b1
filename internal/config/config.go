// Package config loads session files: an ordered list of trial
// specifications plus session-level pacing, optionally carrying scripted
// input for piloting without a participant.
package config

import (
	"maps"

	"github.com/gxo-labs/trialkit/pkg/trialkit/v1/trial"
)

// Session is the root of a session file.
type Session struct {
	// SchemaVersion must have major version v1.
	SchemaVersion string `yaml:"schemaVersion" json:"schemaVersion"`
	Name          string `yaml:"name" json:"name"`
	Description   string `yaml:"description,omitempty" json:"description,omitempty"`
	// Seed fixes the probe-onset jitter for the whole session.
	Seed   *int64  `yaml:"seed,omitempty" json:"seed,omitempty"`
	Pacing *Pacing `yaml:"pacing,omitempty" json:"pacing,omitempty"`
	// Defaults are merged under every trial's params; trial params win.
	Defaults map[string]interface{} `yaml:"defaults,omitempty" json:"defaults,omitempty"`
	Trials   []TrialEntry           `yaml:"trials" json:"trials"`

	FilePath string `yaml:"-" json:"-"`
}

// TrialEntry is one trial of a session.
type TrialEntry struct {
	// Type is the plugin type, e.g. "flanker-trial".
	Type   string                 `yaml:"type" json:"type"`
	Name   string                 `yaml:"name,omitempty" json:"name,omitempty"`
	Params map[string]interface{} `yaml:"params,omitempty" json:"params,omitempty"`
	// Script lists simulated inputs, used by the simulate command only.
	Script []ScriptedInput `yaml:"script,omitempty" json:"script,omitempty"`
}

// ScriptedInput is one simulated key press or click, relative to stimulus onset.
type ScriptedInput struct {
	AtMs  int    `yaml:"at_ms" json:"at_ms"`
	Key   string `yaml:"key,omitempty" json:"key,omitempty"`
	Click string `yaml:"click,omitempty" json:"click,omitempty"`
}

// TrialSpec returns the specification of trial i with session defaults merged in.
func (s *Session) TrialSpec(i int) trial.Spec {
	spec := make(trial.Spec, len(s.Defaults)+len(s.Trials[i].Params))
	maps.Copy(spec, s.Defaults)
	maps.Copy(spec, s.Trials[i].Params)
	return spec
}

// HasScripts reports whether any trial carries scripted input.
func (s *Session) HasScripts() bool {
	for _, t := range s.Trials {
		if len(t.Script) > 0 {
			return true
		}
	}
	return false
}
