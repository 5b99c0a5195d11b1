package events

import "github.com/gxo-labs/trialkit/pkg/trialkit/v1/events"

// FanoutBus forwards every event to each wrapped bus in order. Nil entries
// are skipped.
type FanoutBus struct {
	buses []events.Bus
}

// NewFanoutBus returns a bus that emits to all of buses.
func NewFanoutBus(buses ...events.Bus) *FanoutBus {
	kept := make([]events.Bus, 0, len(buses))
	for _, b := range buses {
		if b != nil {
			kept = append(kept, b)
		}
	}
	return &FanoutBus{buses: kept}
}

func (f *FanoutBus) Emit(event events.Event) {
	for _, b := range f.buses {
		b.Emit(event)
	}
}

var _ events.Bus = (*FanoutBus)(nil)
