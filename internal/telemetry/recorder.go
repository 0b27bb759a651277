package telemetry

import (
	"context"
	"sync"

	"journal-identity/internal/telemetry/domain"
)

// Recorder keeps emitted events in memory. Used by tests and local development.
type Recorder struct {
	mu     sync.Mutex
	events []domain.Event
}

func (r *Recorder) Emit(_ context.Context, event *domain.Event) error {
	if event == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, *event)
	return nil
}

// Events returns a copy of the recorded events in emit order.
func (r *Recorder) Events() []domain.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Event, len(r.events))
	copy(out, r.events)
	return out
}

// Has reports whether an event of type t was recorded.
func (r *Recorder) Has(t domain.EventType) bool {
	for _, e := range r.Events() {
		if e.Type == t {
			return true
		}
	}
	return false
}
