package config

import "time"

// Pacing controls the gaps between trials of a session.
type Pacing struct {
	// InterTrialIntervalMs is the blank pause after each trial. Unset means
	// the engine's configured interval.
	InterTrialIntervalMs *int `yaml:"inter_trial_interval_ms,omitempty" json:"inter_trial_interval_ms,omitempty"`
}

// InterTrialInterval returns the configured pause and whether one was set.
func (p *Pacing) InterTrialInterval() (time.Duration, bool) {
	if p == nil || p.InterTrialIntervalMs == nil {
		return 0, false
	}
	return time.Duration(*p.InterTrialIntervalMs) * time.Millisecond, true
}
