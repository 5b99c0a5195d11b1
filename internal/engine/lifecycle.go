package engine

import (
	"github.com/felixgeelhaar/statekit"

	"github.com/gxo-labs/trialkit/pkg/trialkit/v1/trial"
)

// lifecycle is the statechart context of one trial. The machine has a single
// non-final state, so reaching either final state is the "ended" guard: the
// first terminating source to send its event wins and later sends are
// rejected before they reach the interpreter.
type lifecycle struct {
	reason trial.EndReason
}

const (
	statePresenting statekit.StateID = "presenting"
	stateResponded  statekit.StateID = "responded"
	stateTimedOut   statekit.StateID = "timed_out"
)

const (
	eventResponse statekit.EventType = "RESPONSE"
	eventDeadline statekit.EventType = "DEADLINE"
)

func newLifecycleMachine(lc *lifecycle) (*statekit.MachineConfig[*lifecycle], error) {
	return statekit.NewMachine[*lifecycle]("trial").
		WithInitial(statePresenting).
		WithContext(lc).
		WithAction("recordEnd", recordEnd).
		State(statePresenting).
		On(eventResponse).Target(stateResponded).Do("recordEnd").
		On(eventDeadline).Target(stateTimedOut).Do("recordEnd").
		Done().
		State(stateResponded).
		Final().
		Done().
		State(stateTimedOut).
		Final().
		Done().
		Build()
}

func recordEnd(ctx **lifecycle, event statekit.Event) {
	if reason, ok := event.Payload.(trial.EndReason); ok {
		(*ctx).reason = reason
	}
}

// lifecycleRun wraps the interpreter of one trial.
type lifecycleRun struct {
	ctx    *lifecycle
	interp *statekit.Interpreter[*lifecycle]
	// final latches once a final state is reached so the guard survives stop.
	final bool
}

func startLifecycle() (*lifecycleRun, error) {
	lc := &lifecycle{}
	machine, err := newLifecycleMachine(lc)
	if err != nil {
		return nil, err
	}
	interp := statekit.NewInterpreter(machine)
	interp.Start()
	return &lifecycleRun{ctx: lc, interp: interp}, nil
}

// ended reports whether the trial reached a final state.
func (l *lifecycleRun) ended() bool {
	return l.final
}

// end transitions to the final state for reason. It returns false when the
// trial had already ended, which makes termination idempotent.
func (l *lifecycleRun) end(reason trial.EndReason) bool {
	if l.final || l.interp.Done() {
		return false
	}
	event := eventDeadline
	if reason == trial.EndResponse {
		event = eventResponse
	}
	l.interp.Send(statekit.Event{Type: event, Payload: reason})
	l.final = l.interp.Done()
	return l.final
}

func (l *lifecycleRun) state() statekit.StateID {
	return l.interp.State().Value
}

func (l *lifecycleRun) stop() {
	l.interp.Stop()
}
