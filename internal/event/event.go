// Package event defines the envelope carried from notification adapters
// and the focus tracker to the reconciler, and the ordered
// multi-producer/single-consumer queue that delivers it.
package event

import "github.com/audioscope/audioscope/internal/audiosys"

// Envelope is one notification in flight. DeviceID is set for device and
// session scoped payloads; SessionID is set only for session scoped
// payloads. Focus payloads carry neither.
type Envelope struct {
	DeviceID  string
	SessionID string
	Payload   Payload
}

// Payload is the closed set of notification kinds.
type Payload interface {
	Kind() string
}

// DefaultDeviceChanged reports a new default endpoint assignment.
// Flow may be FlowAll; the reconciler fans it out to both matrix cells.
type DefaultDeviceChanged struct {
	Flow audiosys.Flow
	Role audiosys.Role
}

// DeviceAdded reports a newly attached endpoint.
type DeviceAdded struct{}

// DeviceRemoved reports a detached endpoint.
type DeviceRemoved struct{}

// DeviceStateChanged reports an endpoint lifecycle transition.
type DeviceStateChanged struct {
	State audiosys.DeviceState
}

// SessionCreated announces a new session on the enveloped device.
type SessionCreated struct {
	SessionInstanceID string
}

// VolumeChanged reports a session's simple volume/mute change.
type VolumeChanged struct {
	Volume float32
	Mute   bool
}

// DisplayNameChanged reports a session display-name change.
type DisplayNameChanged struct {
	Name string
}

// IconPathChanged reports a session icon-path change.
type IconPathChanged struct {
	Path string
}

// GroupingParamChanged reports a session grouping-parameter change.
type GroupingParamChanged struct {
	Param string
}

// SessionStateChanged reports a session lifecycle transition.
type SessionStateChanged struct {
	State audiosys.SessionState
}

// SessionDisconnected reports a session teardown.
type SessionDisconnected struct {
	Reason audiosys.DisconnectReason
}

// FocusChanged reports that keyboard focus moved to a window owned by
// the given process.
type FocusChanged struct {
	PID int32
}

func (DefaultDeviceChanged) Kind() string { return "default-device-changed" }
func (DeviceAdded) Kind() string          { return "device-added" }
func (DeviceRemoved) Kind() string        { return "device-removed" }
func (DeviceStateChanged) Kind() string   { return "device-state-changed" }
func (SessionCreated) Kind() string       { return "session-created" }
func (VolumeChanged) Kind() string        { return "volume-changed" }
func (DisplayNameChanged) Kind() string   { return "display-name-changed" }
func (IconPathChanged) Kind() string      { return "icon-path-changed" }
func (GroupingParamChanged) Kind() string { return "grouping-param-changed" }
func (SessionStateChanged) Kind() string  { return "session-state-changed" }
func (SessionDisconnected) Kind() string  { return "session-disconnected" }
func (FocusChanged) Kind() string         { return "focus-changed" }
