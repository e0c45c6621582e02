// Package trigger maps incoming MIDI messages to control actions. A
// table holds two indexes: one keyed on the full message bytes for
// exact-value bindings, and one keyed on the message with its value
// byte zeroed for threshold bindings. Each incoming message costs two
// hash lookups regardless of how many bindings are registered.
package trigger

import (
	"fmt"

	"gitlab.com/gomidi/midi/v2"
)

// MatchType says how a binding's reference value relates to the value
// byte of an incoming message.
type MatchType int

const (
	MatchExact MatchType = iota
	MatchAtLeast
	MatchAtMost
)

func (m MatchType) String() string {
	switch m {
	case MatchExact:
		return "exact"
	case MatchAtLeast:
		return "at-least"
	case MatchAtMost:
		return "at-most"
	default:
		return fmt.Sprintf("match-type(%d)", int(m))
	}
}

// ParseMatchType parses the config spelling of a match type.
func ParseMatchType(raw string) (MatchType, error) {
	switch raw {
	case "exact", "":
		return MatchExact, nil
	case "at-least", "at_least":
		return MatchAtLeast, nil
	case "at-most", "at_most":
		return MatchAtMost, nil
	default:
		return 0, fmt.Errorf("unknown match type %q", raw)
	}
}

// Kind is the MIDI channel-message family a binding listens for.
type Kind int

const (
	KindNoteOn Kind = iota
	KindNoteOff
	KindControlChange
	KindPolyAftertouch
)

func (k Kind) String() string {
	switch k {
	case KindNoteOn:
		return "note-on"
	case KindNoteOff:
		return "note-off"
	case KindControlChange:
		return "control-change"
	case KindPolyAftertouch:
		return "poly-aftertouch"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ParseKind parses the config spelling of a message kind.
func ParseKind(raw string) (Kind, error) {
	switch raw {
	case "note-on", "note_on":
		return KindNoteOn, nil
	case "note-off", "note_off":
		return KindNoteOff, nil
	case "control-change", "control_change", "cc":
		return KindControlChange, nil
	case "poly-aftertouch", "poly_aftertouch":
		return KindPolyAftertouch, nil
	default:
		return 0, fmt.Errorf("unknown trigger kind %q", raw)
	}
}

func (k Kind) status() byte {
	switch k {
	case KindNoteOn:
		return 0x90
	case KindNoteOff:
		return 0x80
	case KindControlChange:
		return 0xB0
	case KindPolyAftertouch:
		return 0xA0
	default:
		panic(fmt.Sprintf("trigger: no status byte for %v", k))
	}
}

// Action names what a binding does when it fires.
type Action string

const (
	ActionToggleFocusedMute Action = "toggle-focused-mute"
	ActionMuteFocused       Action = "mute-focused"
	ActionUnmuteFocused     Action = "unmute-focused"
	ActionLog               Action = "log"
)

// ParseAction validates the config spelling of an action.
func ParseAction(raw string) (Action, error) {
	switch a := Action(raw); a {
	case ActionToggleFocusedMute, ActionMuteFocused, ActionUnmuteFocused, ActionLog:
		return a, nil
	default:
		return "", fmt.Errorf("unknown trigger action %q", raw)
	}
}

// Binding is one trigger rule: a channel message shape, a reference
// value, how to compare it, and the action to run on a match.
type Binding struct {
	Kind    Kind
	Channel uint8 // 0-15
	Key     uint8 // note or controller number, 0-127
	Value   uint8 // reference velocity/value/pressure, 0-127
	Match   MatchType
	Action  Action
}

func (b Binding) String() string {
	return fmt.Sprintf("%v ch=%d key=%d value=%d (%v) -> %s",
		b.Kind, b.Channel, b.Key, b.Value, b.Match, b.Action)
}

// message builds the raw three-byte channel message for this binding
// with the given value byte.
func (b Binding) message(value uint8) string {
	return string([]byte{b.Kind.status() | (b.Channel & 0x0F), b.Key & 0x7F, value & 0x7F})
}

// exactKey is the index key for exact bindings: the full message.
func (b Binding) exactKey() string { return b.message(b.Value) }

// thresholdKey is the index key for threshold bindings: the message
// with its value byte zeroed, so any value of the same shape hits it.
func (b Binding) thresholdKey() string { return b.message(0) }

// Table indexes bindings for constant-time dispatch.
type Table struct {
	exact     map[string][]Binding
	threshold map[string][]Binding
}

// NewTable builds a table from bindings.
func NewTable(bindings []Binding) *Table {
	t := &Table{
		exact:     make(map[string][]Binding),
		threshold: make(map[string][]Binding),
	}
	for _, b := range bindings {
		if b.Match == MatchExact {
			t.exact[b.exactKey()] = append(t.exact[b.exactKey()], b)
		} else {
			t.threshold[b.thresholdKey()] = append(t.threshold[b.thresholdKey()], b)
		}
	}
	return t
}

// Len reports the number of registered bindings.
func (t *Table) Len() int {
	n := 0
	for _, bs := range t.exact {
		n += len(bs)
	}
	for _, bs := range t.threshold {
		n += len(bs)
	}
	return n
}

// maskValue returns msg with the value byte zeroed, or "" when msg is
// not a three-byte channel message.
func maskValue(msg []byte) string {
	if len(msg) != 3 {
		return ""
	}
	return string([]byte{msg[0], msg[1], 0})
}

// Match returns the bindings fired by msg. Exact bindings match on the
// literal bytes; threshold bindings match on the masked bytes and then
// compare the live value byte against the binding's reference.
func (t *Table) Match(msg midi.Message) []Binding {
	raw := []byte(msg)
	if len(raw) != 3 {
		return nil
	}

	var fired []Binding
	fired = append(fired, t.exact[string(raw)]...)

	value := raw[2] & 0x7F
	for _, b := range t.threshold[maskValue(raw)] {
		switch b.Match {
		case MatchAtLeast:
			if value >= b.Value {
				fired = append(fired, b)
			}
		case MatchAtMost:
			if value <= b.Value {
				fired = append(fired, b)
			}
		}
	}
	return fired
}
