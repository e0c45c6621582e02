// Package registry maintains the live model of audio endpoints, their
// per-process sessions, and the default-device assignment matrix. All
// mutation flows through the single-threaded Reconciler; other
// goroutines read via lock snapshots.
package registry

import (
	"sync"

	"github.com/audioscope/audioscope/internal/audiosys"
)

// Registry is the authoritative shared state: the device map plus the
// 3×2 default-device matrix. The Reconciler is the sole writer.
type Registry struct {
	mu       sync.RWMutex
	devices  map[string]*Device
	defaults [audiosys.NumRoles][audiosys.NumFlows]string
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{devices: make(map[string]*Device)}
}

// UpsertDevice inserts or replaces a device entry.
func (r *Registry) UpsertDevice(d *Device) {
	r.mu.Lock()
	r.devices[d.ID] = d
	r.mu.Unlock()
}

// RemoveDevice deletes and returns the entry for id. The caller is
// responsible for releasing the removed entry's subscriptions. Absence
// is not an error.
func (r *Registry) RemoveDevice(id string) (*Device, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.devices[id]
	if ok {
		delete(r.devices, id)
	}
	return d, ok
}

// Device returns the entry for id.
func (r *Registry) Device(id string) (*Device, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.devices[id]
	return d, ok
}

// SetDefault records the default device id for a (flow, role) cell.
// flow must not be FlowAll; callers fan the wildcard out first.
func (r *Registry) SetDefault(flow audiosys.Flow, role audiosys.Role, deviceID string) {
	if flow == audiosys.FlowAll {
		panic("registry: FlowAll is not a matrix index")
	}
	r.mu.Lock()
	r.defaults[role][flow] = deviceID
	r.mu.Unlock()
}

// DefaultDevice resolves the default device entry for a (flow, role)
// cell. A cell may hold an id not (yet) present in the device map — the
// default-changed notification can race ahead of device-added — and
// such a dangling reference reads as unknown, not as an error.
func (r *Registry) DefaultDevice(flow audiosys.Flow, role audiosys.Role) (*Device, bool) {
	if flow == audiosys.FlowAll {
		panic("registry: FlowAll is not a matrix index")
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	id := r.defaults[role][flow]
	if id == "" {
		return nil, false
	}
	d, ok := r.devices[id]
	return d, ok
}

// DefaultID returns the raw cell value, which may dangle.
func (r *Registry) DefaultID(flow audiosys.Flow, role audiosys.Role) (string, bool) {
	if flow == audiosys.FlowAll {
		panic("registry: FlowAll is not a matrix index")
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	id := r.defaults[role][flow]
	return id, id != ""
}

// DeviceCount reports the number of tracked devices.
func (r *Registry) DeviceCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.devices)
}
