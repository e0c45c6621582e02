package registry

import (
	"fmt"

	"github.com/audioscope/audioscope/internal/audiosys"
	"github.com/audioscope/audioscope/internal/proctree"
)

// Device is the registry entry for one audio endpoint. The entry holds
// a session-management capability and a session-created subscription if
// and only if its state is active.
type Device struct {
	ID    string
	Name  string
	State audiosys.DeviceState

	// Sessions maps session-instance-id to entries. Populated only
	// through the activation path; cleared on deactivation.
	Sessions map[string]*Session

	handle audiosys.Device
	mgr    audiosys.SessionManager
	mgrSub audiosys.Subscription
}

// newDevice materializes a registry entry from a platform device
// handle, querying its initial state and activating it if the platform
// reports it active. Name resolution failures degrade to "Unknown".
func newDevice(handle audiosys.Device, adapters *adapterSet, procs proctree.Inspector) (*Device, error) {
	state, err := handle.State()
	if err != nil {
		return nil, fmt.Errorf("querying device state: %w", err)
	}

	d := &Device{
		ID:       handle.ID(),
		State:    state,
		Sessions: make(map[string]*Session),
		handle:   handle,
	}
	if name, err := handle.Name(); err == nil && name != "" {
		d.Name = name
	} else {
		d.Name = "Unknown"
	}

	if state == audiosys.DeviceActive {
		act, err := d.acquireActivation(adapters, procs)
		if err != nil {
			return nil, err
		}
		d.installActivation(act)
	}
	return d, nil
}

// activation bundles the resources acquired for an active device. The
// platform calls that build it can block, so the bundle is acquired
// before the registry lock is taken and installed (or discarded) under
// it.
type activation struct {
	mgr      audiosys.SessionManager
	sub      audiosys.Subscription
	sessions map[string]*Session
}

// acquireActivation obtains the session-management capability,
// subscribes to session-created notifications, and bulk-enumerates the
// existing sessions. Registration happens before the enumeration call
// that arms notification delivery, so sessions created in the race
// window still announce themselves. Any failure rolls back what was
// acquired and leaves the entry untouched.
func (d *Device) acquireActivation(adapters *adapterSet, procs proctree.Inspector) (*activation, error) {
	mgr, err := d.handle.SessionManager()
	if err != nil {
		return nil, fmt.Errorf("activating session manager for %s: %w", d.ID, err)
	}
	sub, err := mgr.RegisterSessionCallbacks(adapters.sessionCreated(d.ID))
	if err != nil {
		_ = mgr.Release()
		return nil, fmt.Errorf("registering session-created notifications for %s: %w", d.ID, err)
	}
	controls, err := mgr.Sessions()
	if err != nil {
		_ = sub.Release()
		_ = mgr.Release()
		return nil, fmt.Errorf("enumerating sessions for %s: %w", d.ID, err)
	}

	act := &activation{mgr: mgr, sub: sub, sessions: make(map[string]*Session, len(controls))}
	for _, ctl := range controls {
		sess, err := newSession(d.ID, ctl, adapters, procs)
		if err != nil {
			act.discard()
			return nil, fmt.Errorf("materializing session %s on %s: %w", ctl.InstanceID(), d.ID, err)
		}
		act.sessions[sess.InstanceID] = sess
	}
	return act, nil
}

func (a *activation) discard() {
	for _, s := range a.sessions {
		s.release()
	}
	if a.sub != nil {
		_ = a.sub.Release()
	}
	if a.mgr != nil {
		_ = a.mgr.Release()
	}
}

// installActivation commits an acquired bundle. Caller holds the
// registry write lock when the entry is already published.
func (d *Device) installActivation(act *activation) {
	d.mgr = act.mgr
	d.mgrSub = act.sub
	d.Sessions = act.sessions
	d.State = audiosys.DeviceActive
}

// active reports whether the entry currently holds a session-management
// capability.
func (d *Device) active() bool {
	return d.mgr != nil
}

// detachLocked strips the activation resources from the entry, setting
// the new state and emptying the session map. Sessions left in the map
// are orphaned at this point: the platform emits no disconnects for a
// deactivated device, so they must be cleared here or the registry
// serves stale data forever. Caller holds the registry write lock; the
// returned bundle is released after the lock is dropped.
func (d *Device) detachLocked(newState audiosys.DeviceState) *activation {
	act := &activation{mgr: d.mgr, sub: d.mgrSub, sessions: d.Sessions}
	d.mgr = nil
	d.mgrSub = nil
	d.Sessions = make(map[string]*Session)
	d.State = newState
	return act
}

// Manager exposes the session-management capability for re-enumeration
// on session-created events. Nil unless active.
func (d *Device) Manager() audiosys.SessionManager {
	return d.mgr
}
