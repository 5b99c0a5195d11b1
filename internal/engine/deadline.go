package engine

import "github.com/gxo-labs/trialkit/pkg/trialkit/v1/trial"

// armDeadline arms the single deadline timer. A disabled deadline (0) means
// the trial only ends on a response.
func (t *trialRun) armDeadline() {
	d := t.task.Timing().TrialDuration
	if d <= 0 {
		return
	}
	t.timers = append(t.timers, t.sched.AfterFunc(d, func() {
		t.terminate(trial.EndDeadline)
	}))
}
