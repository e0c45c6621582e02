package registry

import (
	"github.com/audioscope/audioscope/internal/audiosys"
	"github.com/audioscope/audioscope/internal/event"
)

// adapterSet builds the notification callbacks handed to the platform.
// Each callback runs on an arbitrary platform-managed thread; its only
// job is to wrap the values in an envelope and push it, then return. A
// callback that blocked could stall the platform's delivery thread.
type adapterSet struct {
	queue *event.Queue
}

func newAdapterSet(q *event.Queue) *adapterSet {
	return &adapterSet{queue: q}
}

// endpointCallbacks adapts device-scoped notifications.
func (a *adapterSet) endpointCallbacks() audiosys.EndpointCallbacks {
	return audiosys.EndpointCallbacks{
		DefaultDeviceChanged: func(deviceID string, flow audiosys.Flow, role audiosys.Role) {
			a.queue.Push(event.Envelope{
				DeviceID: deviceID,
				Payload:  event.DefaultDeviceChanged{Flow: flow, Role: role},
			})
		},
		DeviceAdded: func(deviceID string) {
			a.queue.Push(event.Envelope{DeviceID: deviceID, Payload: event.DeviceAdded{}})
		},
		DeviceRemoved: func(deviceID string) {
			a.queue.Push(event.Envelope{DeviceID: deviceID, Payload: event.DeviceRemoved{}})
		},
		DeviceStateChanged: func(deviceID string, state audiosys.DeviceState) {
			a.queue.Push(event.Envelope{
				DeviceID: deviceID,
				Payload:  event.DeviceStateChanged{State: state},
			})
		},
	}
}

// sessionCreated adapts the session-created notification of one device.
func (a *adapterSet) sessionCreated(deviceID string) func(string) {
	return func(sessionInstanceID string) {
		a.queue.Push(event.Envelope{
			DeviceID: deviceID,
			Payload:  event.SessionCreated{SessionInstanceID: sessionInstanceID},
		})
	}
}

// sessionCallbacks adapts the notifications of one session. A state
// change to expired additionally synthesizes a disconnect with a
// distinguished reason ahead of the state-changed envelope: the
// platform does not always emit an explicit disconnect for expiry.
func (a *adapterSet) sessionCallbacks(deviceID, sessionInstanceID string) audiosys.SessionCallbacks {
	push := func(p event.Payload) {
		a.queue.Push(event.Envelope{
			DeviceID:  deviceID,
			SessionID: sessionInstanceID,
			Payload:   p,
		})
	}
	return audiosys.SessionCallbacks{
		VolumeChanged: func(volume float32, mute bool) {
			push(event.VolumeChanged{Volume: volume, Mute: mute})
		},
		DisplayNameChanged: func(name string) {
			push(event.DisplayNameChanged{Name: name})
		},
		IconPathChanged: func(path string) {
			push(event.IconPathChanged{Path: path})
		},
		GroupingParamChanged: func(param string) {
			push(event.GroupingParamChanged{Param: param})
		},
		StateChanged: func(state audiosys.SessionState) {
			if state == audiosys.SessionExpired {
				push(event.SessionDisconnected{Reason: audiosys.DisconnectExpired})
			}
			push(event.SessionStateChanged{State: state})
		},
		Disconnected: func(reason audiosys.DisconnectReason) {
			push(event.SessionDisconnected{Reason: reason})
		},
	}
}
