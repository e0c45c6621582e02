package registry

import "sync"

// FocusedSession identifies one session owned by the focused process
// tree.
type FocusedSession struct {
	DeviceID    string `json:"device_id"`
	InstanceID  string `json:"instance_id"`
	DisplayName string `json:"display_name,omitempty"`
	PID         uint32 `json:"pid"`
}

// Update is one reconciled event published to presentation-layer
// subscribers.
type Update struct {
	Kind        string           `json:"kind"`
	DeviceID    string           `json:"device_id,omitempty"`
	DeviceName  string           `json:"device_name,omitempty"`
	SessionID   string           `json:"session_id,omitempty"`
	SessionName string           `json:"session_name,omitempty"`
	State       string           `json:"state,omitempty"`
	Reason      string           `json:"reason,omitempty"`
	Flow        string           `json:"flow,omitempty"`
	Role        string           `json:"role,omitempty"`
	Volume      *float32         `json:"volume,omitempty"`
	Mute        *bool            `json:"mute,omitempty"`
	PID         int32            `json:"pid,omitempty"`
	Focused     []FocusedSession `json:"focused,omitempty"`
}

// updateHub fans reconciled updates out to subscribers. Slow consumers
// are skipped rather than blocking the reconciler.
type updateHub struct {
	mu        sync.Mutex
	listeners []chan Update
}

func (h *updateHub) subscribe() chan Update {
	ch := make(chan Update, 64)
	h.mu.Lock()
	h.listeners = append(h.listeners, ch)
	h.mu.Unlock()
	return ch
}

func (h *updateHub) unsubscribe(ch chan Update) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i, listener := range h.listeners {
		if listener == ch {
			h.listeners = append(h.listeners[:i], h.listeners[i+1:]...)
			close(ch)
			break
		}
	}
}

func (h *updateHub) publish(u Update) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, listener := range h.listeners {
		select {
		case listener <- u:
		default:
		}
	}
}

func (h *updateHub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, listener := range h.listeners {
		close(listener)
	}
	h.listeners = nil
}
