package trigger

import (
	"fmt"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"

	"github.com/audioscope/audioscope/internal/logger"
)

// Controller is the slice of the reconciler the dispatcher drives.
type Controller interface {
	// SetFocusedMute mutes or unmutes every session owned by the focused
	// process tree and reports how many sessions it touched.
	SetFocusedMute(mute bool) int

	// ToggleFocusedMute flips the mute of every focused session.
	ToggleFocusedMute() int
}

// Listener attaches a trigger table to a MIDI input port and runs the
// matched actions against a controller.
type Listener struct {
	table      *Table
	controller Controller
	stop       func()
}

// NewListener wires a table to a controller. Call Start to open the
// port and begin dispatching.
func NewListener(table *Table, controller Controller) *Listener {
	return &Listener{table: table, controller: controller}
}

// Start opens the named input port ("" picks the first available) and
// begins listening. The driver's receive goroutine only performs hash
// lookups and registry mutations, so it keeps pace with any device.
func (l *Listener) Start(portName string) error {
	log := logger.WithComponent("midi")

	in, err := FindInPort(portName)
	if err != nil {
		return err
	}

	stop, err := midi.ListenTo(in, func(msg midi.Message, timestampms int32) {
		for _, b := range l.table.Match(msg) {
			l.dispatch(b)
		}
	})
	if err != nil {
		return fmt.Errorf("listening on %q: %w", in.String(), err)
	}
	l.stop = stop

	log.Info().
		Str("port", in.String()).
		Int("bindings", l.table.Len()).
		Msg("midi listener started")
	return nil
}

// Stop detaches from the input port.
func (l *Listener) Stop() {
	if l.stop != nil {
		l.stop()
		l.stop = nil
	}
}

func (l *Listener) dispatch(b Binding) {
	log := logger.WithComponent("midi")
	switch b.Action {
	case ActionToggleFocusedMute:
		n := l.controller.ToggleFocusedMute()
		log.Info().Str("binding", b.String()).Int("sessions", n).Msg("toggled focused mute")
	case ActionMuteFocused:
		n := l.controller.SetFocusedMute(true)
		log.Info().Str("binding", b.String()).Int("sessions", n).Msg("muted focused sessions")
	case ActionUnmuteFocused:
		n := l.controller.SetFocusedMute(false)
		log.Info().Str("binding", b.String()).Int("sessions", n).Msg("unmuted focused sessions")
	case ActionLog:
		log.Info().Str("binding", b.String()).Msg("trigger fired")
	default:
		log.Warn().Str("binding", b.String()).Msg("binding has no runnable action")
	}
}

// FindInPort resolves a MIDI input port by name; "" picks the first
// available port.
func FindInPort(name string) (drivers.In, error) {
	if name == "" {
		ins := midi.GetInPorts()
		if len(ins) == 0 {
			return nil, fmt.Errorf("no MIDI input ports available")
		}
		return ins[0], nil
	}
	in, err := midi.FindInPort(name)
	if err != nil {
		return nil, fmt.Errorf("finding MIDI input %q: %w", name, err)
	}
	return in, nil
}
