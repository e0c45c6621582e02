package focus

import (
	"fmt"

	"github.com/audioscope/audioscope/internal/event"
	"github.com/audioscope/audioscope/internal/logger"
)

// Tracker turns a backend's focus observations into envelopes on the
// reconciler's queue. The backend callback only constructs and pushes —
// it never blocks — so the observer loop is never stalled by the
// consumer.
type Tracker struct {
	backend Backend
	queue   *event.Queue
}

// NewTracker wires a backend to a delivery queue.
func NewTracker(backend Backend, q *event.Queue) *Tracker {
	return &Tracker{backend: backend, queue: q}
}

// Start begins observation. The backend emits one eager event for the
// currently focused window, then one per change.
func (t *Tracker) Start() error {
	log := logger.WithComponent("focus-tracker")
	if err := t.backend.Watch(func(pid int32) {
		t.queue.Push(event.Envelope{Payload: event.FocusChanged{PID: pid}})
	}); err != nil {
		return fmt.Errorf("starting %s focus watch: %w", t.backend.Name(), err)
	}
	log.Info().Str("backend", t.backend.Name()).Msg("focus tracking started")
	return nil
}

// Stop halts observation and releases the backend.
func (t *Tracker) Stop() {
	t.backend.StopWatching()
	_ = t.backend.Close()
}
