package registry

import (
	"fmt"

	"github.com/audioscope/audioscope/internal/audiosys"
	"github.com/audioscope/audioscope/internal/proctree"
)

// Session is the registry entry for one audio session. It belongs to
// exactly one device for its lifetime and owns a live notification
// subscription that must be released when the entry is destroyed.
type Session struct {
	InstanceID string
	SessionID  string
	PID        uint32

	// DisplayName is never the empty string: an empty platform-reported
	// name is replaced by the owning process's executable name, or left
	// unresolved ("" is stored, rendered as unknown) when that fails too.
	DisplayName string

	State  audiosys.SessionState
	Volume float32
	Mute   bool

	control audiosys.SessionControl
	sub     audiosys.Subscription
}

// newSession materializes a registry entry from a platform session
// handle. The notification subscription is registered before any state
// is read so nothing is missed between snapshot and delivery.
func newSession(deviceID string, ctl audiosys.SessionControl, adapters *adapterSet, procs proctree.Inspector) (*Session, error) {
	sub, err := ctl.RegisterCallbacks(adapters.sessionCallbacks(deviceID, ctl.InstanceID()))
	if err != nil {
		return nil, fmt.Errorf("registering session notifications: %w", err)
	}

	s := &Session{
		InstanceID: ctl.InstanceID(),
		SessionID:  ctl.SessionID(),
		control:    ctl,
		sub:        sub,
	}

	if s.State, err = ctl.State(); err != nil {
		_ = sub.Release()
		return nil, fmt.Errorf("reading session state: %w", err)
	}
	if s.PID, err = ctl.ProcessID(); err != nil {
		_ = sub.Release()
		return nil, fmt.Errorf("reading session pid: %w", err)
	}
	if v, m, err := ctl.Volume(); err == nil {
		s.Volume, s.Mute = v, m
	}

	name, err := ctl.DisplayName()
	if err != nil {
		name = ""
	}
	s.setDisplayName(name, procs)
	return s, nil
}

// setDisplayName applies the empty-name normalization: an empty
// platform name falls back to the owning process's executable name,
// resolved from a fresh snapshot. The snapshot is deliberately not
// cached across sessions so a recycled pid cannot yield a stale name;
// this path is not hot.
func (s *Session) setDisplayName(name string, procs proctree.Inspector) {
	if name != "" {
		s.DisplayName = name
		return
	}
	s.DisplayName = ""
	if procs == nil {
		return
	}
	snap, err := procs.Snapshot()
	if err != nil {
		return
	}
	if proc, ok := snap[int32(s.PID)]; ok {
		s.DisplayName = proc.Name
	}
}

// release drops the notification subscription. Called on every removal
// path: explicit disconnect, device deactivation, device removal, and
// shutdown.
func (s *Session) release() {
	if s.sub != nil {
		_ = s.sub.Release()
		s.sub = nil
	}
}

// Control exposes the platform handle for volume/mute writes.
func (s *Session) Control() audiosys.SessionControl {
	return s.control
}
