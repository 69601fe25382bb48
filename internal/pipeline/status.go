package pipeline

import (
	"pixelbridge/internal/ingest"
)

// Status is a point in time copy of the pipeline state.
type Status struct {
	Source         string                 `json:"source"`
	Effect         string                 `json:"effect,omitempty"`
	Universes      []ingest.UniverseState `json:"universes"`
	SequenceErrors uint64                 `json:"sequence_errors"`
	Protocol       ingest.Stats           `json:"protocol"`
	Raw            ingest.Stats           `json:"raw"`
	Control        ingest.Stats           `json:"control"`
	ListenerDrops  uint64                 `json:"listener_drops"`
	Transitions    map[string]uint64      `json:"transitions"`
}

// Status returns the current status.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := Status{
		Source:         e.arb.Active().String(),
		Universes:      e.universe.UniverseStates(),
		SequenceErrors: e.universe.SequenceErrors(),
		Protocol:       e.universe.Stats(),
		Raw:            e.raw.Stats(),
		Control:        e.control,
		Transitions:    map[string]uint64{},
	}
	if e.arb.Active().Effect() {
		s.Effect, _ = e.fx.Current()
	}
	for _, l := range e.listeners {
		s.ListenerDrops += l.Dropped()
	}
	for src, n := range e.arb.Transitions() {
		s.Transitions[src.String()] = n
	}
	return s
}
