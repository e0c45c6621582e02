package registry

import (
	"sort"

	"github.com/audioscope/audioscope/internal/audiosys"
)

// SessionSnapshot is a read-only copy of a session entry.
type SessionSnapshot struct {
	InstanceID  string  `json:"instance_id"`
	SessionID   string  `json:"session_id"`
	PID         uint32  `json:"pid"`
	DisplayName string  `json:"display_name,omitempty"`
	State       string  `json:"state"`
	Volume      float32 `json:"volume"`
	Mute        bool    `json:"mute"`
}

// DeviceSnapshot is a read-only copy of a device entry.
type DeviceSnapshot struct {
	ID       string            `json:"id"`
	Name     string            `json:"name"`
	State    string            `json:"state"`
	Sessions []SessionSnapshot `json:"sessions"`
}

// DefaultSnapshot is one cell of the default-device matrix.
type DefaultSnapshot struct {
	Flow     string `json:"flow"`
	Role     string `json:"role"`
	DeviceID string `json:"device_id"`
	// Known is false when the cell references a device not present in
	// the map (dangling) — treated as unknown, never as an error.
	Known      bool   `json:"known"`
	DeviceName string `json:"device_name,omitempty"`
}

// Snapshot returns a deep copy of the device map, sorted by id.
func (r *Registry) Snapshot() []DeviceSnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]DeviceSnapshot, 0, len(r.devices))
	for _, d := range r.devices {
		out = append(out, snapshotDeviceLocked(d))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// SnapshotDevice returns a deep copy of one device entry.
func (r *Registry) SnapshotDevice(id string) (DeviceSnapshot, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.devices[id]
	if !ok {
		return DeviceSnapshot{}, false
	}
	return snapshotDeviceLocked(d), true
}

// SnapshotDefaults returns the full default matrix with dangling
// references flagged.
func (r *Registry) SnapshotDefaults() []DefaultSnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]DefaultSnapshot, 0, audiosys.NumRoles*audiosys.NumFlows)
	for _, role := range audiosys.Roles() {
		for _, flow := range audiosys.Flows() {
			cell := DefaultSnapshot{Flow: flow.String(), Role: role.String()}
			if id := r.defaults[role][flow]; id != "" {
				cell.DeviceID = id
				if d, ok := r.devices[id]; ok {
					cell.Known = true
					cell.DeviceName = d.Name
				}
			}
			out = append(out, cell)
		}
	}
	return out
}

func snapshotDeviceLocked(d *Device) DeviceSnapshot {
	snap := DeviceSnapshot{
		ID:       d.ID,
		Name:     d.Name,
		State:    d.State.String(),
		Sessions: make([]SessionSnapshot, 0, len(d.Sessions)),
	}
	for _, s := range d.Sessions {
		snap.Sessions = append(snap.Sessions, SessionSnapshot{
			InstanceID:  s.InstanceID,
			SessionID:   s.SessionID,
			PID:         s.PID,
			DisplayName: s.DisplayName,
			State:       s.State.String(),
			Volume:      s.Volume,
			Mute:        s.Mute,
		})
	}
	sort.Slice(snap.Sessions, func(i, j int) bool {
		return snap.Sessions[i].InstanceID < snap.Sessions[j].InstanceID
	})
	return snap
}
