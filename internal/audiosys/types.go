// Package audiosys defines the boundary to the platform audio subsystem:
// the value types carried by its notifications and the handle interfaces
// the registry consumes. Implementations live in subpackages; the registry
// never talks to a platform API directly.
package audiosys

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownFlow is returned when the platform reports a data-flow
	// value outside the known set.
	ErrUnknownFlow = errors.New("unrecognized data flow value")
	// ErrUnknownRole is returned for an unrecognized device role value.
	ErrUnknownRole = errors.New("unrecognized device role value")
	// ErrUnknownDeviceState is returned for an unrecognized device state.
	ErrUnknownDeviceState = errors.New("unrecognized device state value")
	// ErrUnknownSessionState is returned for an unrecognized session state.
	ErrUnknownSessionState = errors.New("unrecognized session state value")
	// ErrUnknownDisconnectReason is returned for an unrecognized
	// session disconnect reason.
	ErrUnknownDisconnectReason = errors.New("unrecognized disconnect reason value")
)

// Flow is the direction of audio data relative to a device.
type Flow int

const (
	FlowRender Flow = iota
	FlowCapture
	// FlowAll is a notification-only wildcard. It is never a valid index
	// into the default-device matrix; handlers fan it out to FlowRender
	// and FlowCapture.
	FlowAll
)

func (f Flow) String() string {
	switch f {
	case FlowRender:
		return "render"
	case FlowCapture:
		return "capture"
	case FlowAll:
		return "all"
	}
	return fmt.Sprintf("flow(%d)", int(f))
}

// ParseFlow maps a raw platform data-flow value to a Flow.
func ParseFlow(raw int) (Flow, error) {
	switch Flow(raw) {
	case FlowRender, FlowCapture, FlowAll:
		return Flow(raw), nil
	}
	return 0, fmt.Errorf("%w: %d", ErrUnknownFlow, raw)
}

// Role is the usage category a default device is chosen for.
type Role int

const (
	RoleConsole Role = iota
	RoleMultimedia
	RoleCommunications

	// NumRoles and NumFlows size the default-device matrix.
	NumRoles = 3
	NumFlows = 2
)

func (r Role) String() string {
	switch r {
	case RoleConsole:
		return "console"
	case RoleMultimedia:
		return "multimedia"
	case RoleCommunications:
		return "communications"
	}
	return fmt.Sprintf("role(%d)", int(r))
}

// ParseRole maps a raw platform role value to a Role.
func ParseRole(raw int) (Role, error) {
	switch Role(raw) {
	case RoleConsole, RoleMultimedia, RoleCommunications:
		return Role(raw), nil
	}
	return 0, fmt.Errorf("%w: %d", ErrUnknownRole, raw)
}

// Roles lists every role, in matrix order.
func Roles() [NumRoles]Role {
	return [NumRoles]Role{RoleConsole, RoleMultimedia, RoleCommunications}
}

// Flows lists the matrix-indexable flows.
func Flows() [NumFlows]Flow {
	return [NumFlows]Flow{FlowRender, FlowCapture}
}

// DeviceState is the lifecycle state of an audio endpoint.
type DeviceState int

const (
	DeviceActive DeviceState = iota
	DeviceDisabled
	DeviceNotPresent
	DeviceUnplugged
)

func (s DeviceState) String() string {
	switch s {
	case DeviceActive:
		return "active"
	case DeviceDisabled:
		return "disabled"
	case DeviceNotPresent:
		return "not-present"
	case DeviceUnplugged:
		return "unplugged"
	}
	return fmt.Sprintf("device-state(%d)", int(s))
}

// ParseDeviceState maps a raw platform device state to a DeviceState.
func ParseDeviceState(raw int) (DeviceState, error) {
	switch DeviceState(raw) {
	case DeviceActive, DeviceDisabled, DeviceNotPresent, DeviceUnplugged:
		return DeviceState(raw), nil
	}
	return 0, fmt.Errorf("%w: %d", ErrUnknownDeviceState, raw)
}

// SessionState is the lifecycle state of an audio session.
type SessionState int

const (
	SessionInactive SessionState = iota
	SessionActive
	SessionExpired
)

func (s SessionState) String() string {
	switch s {
	case SessionInactive:
		return "inactive"
	case SessionActive:
		return "active"
	case SessionExpired:
		return "expired"
	}
	return fmt.Sprintf("session-state(%d)", int(s))
}

// ParseSessionState maps a raw platform session state to a SessionState.
func ParseSessionState(raw int) (SessionState, error) {
	switch SessionState(raw) {
	case SessionInactive, SessionActive, SessionExpired:
		return SessionState(raw), nil
	}
	return 0, fmt.Errorf("%w: %d", ErrUnknownSessionState, raw)
}

// DisconnectReason explains why a session was disconnected.
type DisconnectReason int

const (
	DisconnectDeviceRemoval DisconnectReason = iota
	DisconnectServerShutdown
	DisconnectFormatChanged
	DisconnectSessionLogoff
	DisconnectSessionDisconnected
	DisconnectExclusiveModeOverride
	// DisconnectExpired is synthesized by the reconciler when a session
	// transitions to SessionExpired without an explicit disconnect from
	// the platform.
	DisconnectExpired
)

func (r DisconnectReason) String() string {
	switch r {
	case DisconnectDeviceRemoval:
		return "device-removal"
	case DisconnectServerShutdown:
		return "server-shutdown"
	case DisconnectFormatChanged:
		return "format-changed"
	case DisconnectSessionLogoff:
		return "session-logoff"
	case DisconnectSessionDisconnected:
		return "session-disconnected"
	case DisconnectExclusiveModeOverride:
		return "exclusive-mode-override"
	case DisconnectExpired:
		return "expired"
	}
	return fmt.Sprintf("disconnect-reason(%d)", int(r))
}

// ParseDisconnectReason maps a raw platform disconnect reason.
func ParseDisconnectReason(raw int) (DisconnectReason, error) {
	switch DisconnectReason(raw) {
	case DisconnectDeviceRemoval, DisconnectServerShutdown,
		DisconnectFormatChanged, DisconnectSessionLogoff,
		DisconnectSessionDisconnected, DisconnectExclusiveModeOverride:
		return DisconnectReason(raw), nil
	}
	return 0, fmt.Errorf("%w: %d", ErrUnknownDisconnectReason, raw)
}
