// Package sim is an in-memory implementation of the audiosys boundary.
// It delivers the same seven notification kinds a real platform does and
// is scriptable from tests and from the demo backend of the serve
// command. Mutators fire callbacks synchronously on the calling
// goroutine, which stands in for the platform's own callback threads.
package sim

import (
	"fmt"
	"sync"

	"github.com/audioscope/audioscope/internal/audiosys"
)

// System is a scriptable audio subsystem.
type System struct {
	mu       sync.Mutex
	devices  map[string]*simDevice
	defaults map[[2]int]string // [role][flow] -> device id
	endpoint []*endpointSub
}

// New creates an empty simulated system.
func New() *System {
	return &System{
		devices:  make(map[string]*simDevice),
		defaults: make(map[[2]int]string),
	}
}

type simDevice struct {
	sys      *System
	id       string
	name     string
	state    audiosys.DeviceState
	sessions map[string]*simSession
	order    []string

	activeMgr *simManager
}

type simSession struct {
	dev        *simDevice
	instanceID string
	sessionID  string
	pid        uint32
	name       string
	state      audiosys.SessionState
	volume     float32
	mute       bool

	subs []*sessionSub
}

type endpointSub struct {
	sys      *System
	cb       audiosys.EndpointCallbacks
	released bool
}

func (s *endpointSub) Release() error {
	s.sys.mu.Lock()
	defer s.sys.mu.Unlock()
	s.released = true
	return nil
}

type sessionSub struct {
	sess     *simSession
	cb       audiosys.SessionCallbacks
	released bool
}

func (s *sessionSub) Release() error {
	s.sess.dev.sys.mu.Lock()
	defer s.sess.dev.sys.mu.Unlock()
	s.released = true
	return nil
}

type managerSub struct {
	mgr      *simManager
	released bool
}

func (s *managerSub) Release() error {
	s.mgr.dev.sys.mu.Lock()
	defer s.mgr.dev.sys.mu.Unlock()
	s.released = true
	return nil
}

// --- audiosys.System ---

func (s *System) Devices() ([]audiosys.Device, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]audiosys.Device, 0, len(s.devices))
	for _, d := range s.devices {
		out = append(out, d)
	}
	return out, nil
}

func (s *System) Device(id string) (audiosys.Device, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.devices[id]
	if !ok {
		return nil, fmt.Errorf("sim: no such device %q", id)
	}
	return d, nil
}

func (s *System) DefaultDeviceID(flow audiosys.Flow, role audiosys.Role) (string, error) {
	if flow == audiosys.FlowAll {
		return "", fmt.Errorf("sim: %w: default lookup with flow all", audiosys.ErrUnknownFlow)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.defaults[[2]int{int(role), int(flow)}]
	if !ok {
		return "", fmt.Errorf("sim: no default for %s/%s", flow, role)
	}
	return id, nil
}

func (s *System) RegisterEndpointCallbacks(cb audiosys.EndpointCallbacks) (audiosys.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub := &endpointSub{sys: s, cb: cb}
	s.endpoint = append(s.endpoint, sub)
	return sub, nil
}

// --- audiosys.Device ---

func (d *simDevice) ID() string { return d.id }

func (d *simDevice) Name() (string, error) {
	d.sys.mu.Lock()
	defer d.sys.mu.Unlock()
	return d.name, nil
}

func (d *simDevice) State() (audiosys.DeviceState, error) {
	d.sys.mu.Lock()
	defer d.sys.mu.Unlock()
	return d.state, nil
}

func (d *simDevice) SessionManager() (audiosys.SessionManager, error) {
	d.sys.mu.Lock()
	defer d.sys.mu.Unlock()
	if d.state != audiosys.DeviceActive {
		return nil, fmt.Errorf("sim: device %q is %s, cannot activate", d.id, d.state)
	}
	mgr := &simManager{dev: d}
	d.activeMgr = mgr
	return mgr, nil
}

// simManager models the activated session-management capability. Session
// created notifications are armed by the first Sessions call, matching
// the platform contract the registry relies on.
type simManager struct {
	dev       *simDevice
	onCreated func(string)
	sub       *managerSub
	armed     bool
	released  bool
}

func (m *simManager) RegisterSessionCallbacks(onCreated func(string)) (audiosys.Subscription, error) {
	m.dev.sys.mu.Lock()
	defer m.dev.sys.mu.Unlock()
	if m.released {
		return nil, fmt.Errorf("sim: manager for %q released", m.dev.id)
	}
	m.onCreated = onCreated
	m.sub = &managerSub{mgr: m}
	return m.sub, nil
}

func (m *simManager) Sessions() ([]audiosys.SessionControl, error) {
	m.dev.sys.mu.Lock()
	defer m.dev.sys.mu.Unlock()
	if m.released {
		return nil, fmt.Errorf("sim: manager for %q released", m.dev.id)
	}
	m.armed = true
	out := make([]audiosys.SessionControl, 0, len(m.dev.order))
	for _, id := range m.dev.order {
		if sess, ok := m.dev.sessions[id]; ok {
			out = append(out, sess)
		}
	}
	return out, nil
}

func (m *simManager) Release() error {
	m.dev.sys.mu.Lock()
	defer m.dev.sys.mu.Unlock()
	m.released = true
	if m.dev.activeMgr == m {
		m.dev.activeMgr = nil
	}
	return nil
}

// --- audiosys.SessionControl ---

func (c *simSession) InstanceID() string { return c.instanceID }
func (c *simSession) SessionID() string  { return c.sessionID }

func (c *simSession) ProcessID() (uint32, error) {
	c.dev.sys.mu.Lock()
	defer c.dev.sys.mu.Unlock()
	return c.pid, nil
}

func (c *simSession) State() (audiosys.SessionState, error) {
	c.dev.sys.mu.Lock()
	defer c.dev.sys.mu.Unlock()
	return c.state, nil
}

func (c *simSession) DisplayName() (string, error) {
	c.dev.sys.mu.Lock()
	defer c.dev.sys.mu.Unlock()
	return c.name, nil
}

func (c *simSession) Volume() (float32, bool, error) {
	c.dev.sys.mu.Lock()
	defer c.dev.sys.mu.Unlock()
	return c.volume, c.mute, nil
}

func (c *simSession) SetVolume(volume float32) error {
	c.dev.sys.mu.Lock()
	c.volume = volume
	v, m := c.volume, c.mute
	cbs := c.volumeCallbacksLocked()
	c.dev.sys.mu.Unlock()
	for _, cb := range cbs {
		cb(v, m)
	}
	return nil
}

func (c *simSession) SetMute(mute bool) error {
	c.dev.sys.mu.Lock()
	c.mute = mute
	v, m := c.volume, c.mute
	cbs := c.volumeCallbacksLocked()
	c.dev.sys.mu.Unlock()
	for _, cb := range cbs {
		cb(v, m)
	}
	return nil
}

func (c *simSession) volumeCallbacksLocked() []func(float32, bool) {
	var out []func(float32, bool)
	for _, sub := range c.subs {
		if !sub.released && sub.cb.VolumeChanged != nil {
			out = append(out, sub.cb.VolumeChanged)
		}
	}
	return out
}

func (c *simSession) RegisterCallbacks(cb audiosys.SessionCallbacks) (audiosys.Subscription, error) {
	c.dev.sys.mu.Lock()
	defer c.dev.sys.mu.Unlock()
	sub := &sessionSub{sess: c, cb: cb}
	c.subs = append(c.subs, sub)
	return sub, nil
}

// SubscriptionCount reports live notification registrations for a
// session. Used by tests to verify release-on-removal.
func (s *System) SubscriptionCount(deviceID, instanceID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.devices[deviceID]
	if !ok {
		return 0
	}
	sess, ok := d.sessions[instanceID]
	if !ok {
		return 0
	}
	n := 0
	for _, sub := range sess.subs {
		if !sub.released {
			n++
		}
	}
	return n
}

// --- script surface: mutators that fire notifications ---

// AddDevice creates a device and fires DeviceAdded.
func (s *System) AddDevice(id, name string, state audiosys.DeviceState) {
	s.mu.Lock()
	if _, exists := s.devices[id]; !exists {
		s.devices[id] = &simDevice{
			sys:      s,
			id:       id,
			name:     name,
			state:    state,
			sessions: make(map[string]*simSession),
		}
	}
	cbs := s.endpointCallbacksLocked()
	s.mu.Unlock()
	for _, cb := range cbs {
		if cb.DeviceAdded != nil {
			cb.DeviceAdded(id)
		}
	}
}

// RemoveDevice deletes a device and fires DeviceRemoved.
func (s *System) RemoveDevice(id string) {
	s.mu.Lock()
	delete(s.devices, id)
	cbs := s.endpointCallbacksLocked()
	s.mu.Unlock()
	for _, cb := range cbs {
		if cb.DeviceRemoved != nil {
			cb.DeviceRemoved(id)
		}
	}
}

// SetDeviceState changes a device's state and fires DeviceStateChanged.
func (s *System) SetDeviceState(id string, state audiosys.DeviceState) {
	s.mu.Lock()
	if d, ok := s.devices[id]; ok {
		d.state = state
		if state != audiosys.DeviceActive && d.activeMgr != nil {
			d.activeMgr.released = true
			d.activeMgr = nil
		}
	}
	cbs := s.endpointCallbacksLocked()
	s.mu.Unlock()
	for _, cb := range cbs {
		if cb.DeviceStateChanged != nil {
			cb.DeviceStateChanged(id, state)
		}
	}
}

// SetDefault records a default assignment and fires DefaultDeviceChanged.
// flow may be FlowAll, which is delivered as-is; fan-out is the
// consumer's responsibility.
func (s *System) SetDefault(flow audiosys.Flow, role audiosys.Role, deviceID string) {
	s.mu.Lock()
	if flow == audiosys.FlowAll {
		s.defaults[[2]int{int(role), int(audiosys.FlowRender)}] = deviceID
		s.defaults[[2]int{int(role), int(audiosys.FlowCapture)}] = deviceID
	} else {
		s.defaults[[2]int{int(role), int(flow)}] = deviceID
	}
	cbs := s.endpointCallbacksLocked()
	s.mu.Unlock()
	for _, cb := range cbs {
		if cb.DefaultDeviceChanged != nil {
			cb.DefaultDeviceChanged(deviceID, flow, role)
		}
	}
}

// SessionSpec seeds a simulated session.
type SessionSpec struct {
	InstanceID  string
	SessionID   string
	PID         uint32
	DisplayName string
	State       audiosys.SessionState
	Volume      float32
	Mute        bool
}

// AddSession creates a session on a device. If the device's manager has
// armed session notifications, SessionCreated fires.
func (s *System) AddSession(deviceID string, spec SessionSpec) {
	s.mu.Lock()
	d, ok := s.devices[deviceID]
	if !ok {
		s.mu.Unlock()
		return
	}
	if _, exists := d.sessions[spec.InstanceID]; !exists {
		d.sessions[spec.InstanceID] = &simSession{
			dev:        d,
			instanceID: spec.InstanceID,
			sessionID:  spec.SessionID,
			pid:        spec.PID,
			name:       spec.DisplayName,
			state:      spec.State,
			volume:     spec.Volume,
			mute:       spec.Mute,
		}
		d.order = append(d.order, spec.InstanceID)
	}
	var onCreated func(string)
	if d.activeMgr != nil && d.activeMgr.armed && !d.activeMgr.released &&
		d.activeMgr.sub != nil && !d.activeMgr.sub.released {
		onCreated = d.activeMgr.onCreated
	}
	s.mu.Unlock()
	if onCreated != nil {
		onCreated(spec.InstanceID)
	}
}

// AnnouncePhantomSession fires SessionCreated for an instance id that no
// enumeration will find, reproducing the notification/enumeration race.
func (s *System) AnnouncePhantomSession(deviceID, instanceID string) {
	s.mu.Lock()
	d, ok := s.devices[deviceID]
	var onCreated func(string)
	if ok && d.activeMgr != nil && d.activeMgr.armed && !d.activeMgr.released {
		onCreated = d.activeMgr.onCreated
	}
	s.mu.Unlock()
	if onCreated != nil {
		onCreated(instanceID)
	}
}

// SetSessionState changes a session's state and fires StateChanged.
func (s *System) SetSessionState(deviceID, instanceID string, state audiosys.SessionState) {
	s.mu.Lock()
	sess := s.lookupSessionLocked(deviceID, instanceID)
	var cbs []func(audiosys.SessionState)
	if sess != nil {
		sess.state = state
		for _, sub := range sess.subs {
			if !sub.released && sub.cb.StateChanged != nil {
				cbs = append(cbs, sub.cb.StateChanged)
			}
		}
	}
	s.mu.Unlock()
	for _, cb := range cbs {
		cb(state)
	}
}

// RenameSession changes a session's display name and fires
// DisplayNameChanged.
func (s *System) RenameSession(deviceID, instanceID, name string) {
	s.mu.Lock()
	sess := s.lookupSessionLocked(deviceID, instanceID)
	var cbs []func(string)
	if sess != nil {
		sess.name = name
		for _, sub := range sess.subs {
			if !sub.released && sub.cb.DisplayNameChanged != nil {
				cbs = append(cbs, sub.cb.DisplayNameChanged)
			}
		}
	}
	s.mu.Unlock()
	for _, cb := range cbs {
		cb(name)
	}
}

// DisconnectSession removes a session and fires Disconnected.
func (s *System) DisconnectSession(deviceID, instanceID string, reason audiosys.DisconnectReason) {
	s.mu.Lock()
	sess := s.lookupSessionLocked(deviceID, instanceID)
	var cbs []func(audiosys.DisconnectReason)
	if sess != nil {
		delete(sess.dev.sessions, instanceID)
		for _, sub := range sess.subs {
			if !sub.released && sub.cb.Disconnected != nil {
				cbs = append(cbs, sub.cb.Disconnected)
			}
		}
	}
	s.mu.Unlock()
	for _, cb := range cbs {
		cb(reason)
	}
}

func (s *System) lookupSessionLocked(deviceID, instanceID string) *simSession {
	d, ok := s.devices[deviceID]
	if !ok {
		return nil
	}
	return d.sessions[instanceID]
}

func (s *System) endpointCallbacksLocked() []audiosys.EndpointCallbacks {
	var out []audiosys.EndpointCallbacks
	for _, sub := range s.endpoint {
		if !sub.released {
			out = append(out, sub.cb)
		}
	}
	return out
}
