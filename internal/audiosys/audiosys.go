package audiosys

// Subscription is a live notification registration. Release must be
// called exactly once when the owning entry is destroyed; afterwards no
// further callbacks are delivered.
type Subscription interface {
	Release() error
}

// EndpointCallbacks receives device-scoped notifications. Callbacks run
// on platform-managed threads and must not block; their only job is to
// hand the values off (the registry's adapters push queue envelopes).
type EndpointCallbacks struct {
	DefaultDeviceChanged func(deviceID string, flow Flow, role Role)
	DeviceAdded          func(deviceID string)
	DeviceRemoved        func(deviceID string)
	DeviceStateChanged   func(deviceID string, state DeviceState)
}

// SessionCallbacks receives notifications for a single session.
type SessionCallbacks struct {
	VolumeChanged        func(volume float32, mute bool)
	DisplayNameChanged   func(name string)
	IconPathChanged      func(path string)
	GroupingParamChanged func(param string)
	StateChanged         func(state SessionState)
	Disconnected         func(reason DisconnectReason)
}

// System is the platform audio subsystem.
type System interface {
	// Devices enumerates all endpoints regardless of state.
	Devices() ([]Device, error)

	// Device resolves an endpoint by its stable id.
	Device(id string) (Device, error)

	// DefaultDeviceID reports the current default endpoint id for a
	// (flow, role) pair. Flow must not be FlowAll.
	DefaultDeviceID(flow Flow, role Role) (string, error)

	// RegisterEndpointCallbacks subscribes to endpoint notifications.
	RegisterEndpointCallbacks(cb EndpointCallbacks) (Subscription, error)
}

// Device is a handle to a single audio endpoint.
type Device interface {
	ID() string

	// Name resolves the human-readable device name from the platform
	// property store. Failures degrade to "Unknown" at the caller.
	Name() (string, error)

	// State queries the current lifecycle state.
	State() (DeviceState, error)

	// SessionManager activates the device's session-management
	// capability. Only valid while the device is active; the returned
	// manager is exclusively owned by the caller.
	SessionManager() (SessionManager, error)
}

// SessionManager is a device's activated session-management capability.
type SessionManager interface {
	// RegisterSessionCallbacks subscribes to session-created
	// notifications. Delivery is armed only once Sessions is called, so
	// registration must precede enumeration or sessions created in the
	// race window are lost.
	RegisterSessionCallbacks(onCreated func(sessionInstanceID string)) (Subscription, error)

	// Sessions enumerates the sessions currently hosted on the device
	// and arms notification delivery.
	Sessions() ([]SessionControl, error)

	// Release drops the capability and its resources.
	Release() error
}

// SessionControl is a handle to a single audio session.
type SessionControl interface {
	// InstanceID is the per-activation identifier, unique within the
	// owning device. It is the lookup key everywhere.
	InstanceID() string

	// SessionID is the secondary session identifier. Informational only.
	SessionID() string

	ProcessID() (uint32, error)
	State() (SessionState, error)

	// DisplayName reports the platform display name, which may be empty.
	DisplayName() (string, error)

	Volume() (volume float32, mute bool, err error)
	SetVolume(volume float32) error
	SetMute(mute bool) error

	// RegisterCallbacks subscribes to this session's notifications.
	RegisterCallbacks(cb SessionCallbacks) (Subscription, error)
}
