package registry

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/audioscope/audioscope/internal/audiosys"
	"github.com/audioscope/audioscope/internal/event"
	"github.com/audioscope/audioscope/internal/logger"
	"github.com/audioscope/audioscope/internal/proctree"
)

// Reconciler is the single-threaded consumer that drains the event
// queue and applies every envelope to the registry. It is the only
// writer; notification adapters and the focus tracker are producers.
type Reconciler struct {
	sys      audiosys.System
	reg      *Registry
	queue    *event.Queue
	procs    proctree.Inspector
	adapters *adapterSet
	log      zerolog.Logger
	hub      updateHub
	focus    focusState

	endpointSub audiosys.Subscription
}

// NewReconciler wires a reconciler to an audio system and a process
// inspector.
func NewReconciler(sys audiosys.System, reg *Registry, q *event.Queue, procs proctree.Inspector) *Reconciler {
	return &Reconciler{
		sys:      sys,
		reg:      reg,
		queue:    q,
		procs:    procs,
		adapters: newAdapterSet(q),
		log:      *logger.WithComponent("reconciler"),
	}
}

// Queue returns the delivery queue. Producers push envelopes here.
func (rc *Reconciler) Queue() *event.Queue {
	return rc.queue
}

// Bootstrap registers for endpoint notifications, enumerates all
// devices into the registry, and primes the default matrix. The
// notification registration happens before the enumeration so devices
// appearing in the race window still announce themselves; a redundant
// DeviceAdded for an already-enumerated device is a harmless upsert.
func (rc *Reconciler) Bootstrap() error {
	sub, err := rc.sys.RegisterEndpointCallbacks(rc.adapters.endpointCallbacks())
	if err != nil {
		return fmt.Errorf("registering endpoint notifications: %w", err)
	}
	rc.endpointSub = sub

	devices, err := rc.sys.Devices()
	if err != nil {
		return fmt.Errorf("enumerating devices: %w", err)
	}
	for _, handle := range devices {
		entry, err := newDevice(handle, rc.adapters, rc.procs)
		if err != nil {
			rc.log.Warn().Err(err).Str("device", handle.ID()).
				Msg("skipping device at startup")
			continue
		}
		rc.reg.UpsertDevice(entry)
	}

	for _, role := range audiosys.Roles() {
		for _, flow := range audiosys.Flows() {
			id, err := rc.sys.DefaultDeviceID(flow, role)
			if err != nil {
				rc.log.Debug().Err(err).
					Stringer("flow", flow).Stringer("role", role).
					Msg("no default device at startup")
				continue
			}
			rc.reg.SetDefault(flow, role, id)
		}
	}

	rc.log.Info().Int("devices", rc.reg.DeviceCount()).Msg("registry bootstrapped")
	return nil
}

// Run drains the queue in delivery order until the queue is closed,
// then releases every outstanding subscription. One bad event never
// terminates the loop: handler errors are logged and the next envelope
// is processed.
func (rc *Reconciler) Run() {
	for {
		env, ok := rc.queue.Pop()
		if !ok {
			break
		}
		if err := rc.apply(env); err != nil {
			rc.log.Error().Err(err).
				Str("kind", env.Payload.Kind()).
				Str("device", env.DeviceID).
				Str("session", env.SessionID).
				Msg("event handling failed")
		}
	}
	rc.cleanup()
}

// Drain applies every envelope currently queued and returns. Callers
// driving the reconciler without a Run loop use this to process a
// known backlog synchronously.
func (rc *Reconciler) Drain() {
	for {
		env, ok := rc.queue.TryPop()
		if !ok {
			return
		}
		if err := rc.apply(env); err != nil {
			rc.log.Error().Err(err).
				Str("kind", env.Payload.Kind()).
				Str("device", env.DeviceID).
				Str("session", env.SessionID).
				Msg("event handling failed")
		}
	}
}

// Shutdown stops the loop after the backlog drains.
func (rc *Reconciler) Shutdown() {
	rc.queue.Close()
}

// Subscribe returns a channel of reconciled updates for a presentation
// consumer. Slow consumers miss updates rather than stalling the loop.
func (rc *Reconciler) Subscribe() chan Update {
	return rc.hub.subscribe()
}

// Unsubscribe removes and closes a subscriber channel.
func (rc *Reconciler) Unsubscribe(ch chan Update) {
	rc.hub.unsubscribe(ch)
}

func (rc *Reconciler) cleanup() {
	if rc.endpointSub != nil {
		_ = rc.endpointSub.Release()
		rc.endpointSub = nil
	}
	rc.reg.mu.Lock()
	var bundles []*activation
	for _, d := range rc.reg.devices {
		bundles = append(bundles, d.detachLocked(d.State))
	}
	rc.reg.mu.Unlock()
	for _, b := range bundles {
		b.discard()
	}
	rc.hub.closeAll()
}

func (rc *Reconciler) apply(env event.Envelope) error {
	switch p := env.Payload.(type) {
	case event.DefaultDeviceChanged:
		return rc.applyDefaultDeviceChanged(env.DeviceID, p)
	case event.DeviceAdded:
		return rc.applyDeviceAdded(env.DeviceID)
	case event.DeviceRemoved:
		return rc.applyDeviceRemoved(env.DeviceID)
	case event.DeviceStateChanged:
		return rc.applyDeviceStateChanged(env.DeviceID, p.State)
	case event.SessionCreated:
		return rc.applySessionCreated(env.DeviceID, p.SessionInstanceID)
	case event.VolumeChanged, event.DisplayNameChanged, event.IconPathChanged,
		event.GroupingParamChanged, event.SessionStateChanged, event.SessionDisconnected:
		return rc.applySessionEvent(env.DeviceID, env.SessionID, env.Payload)
	case event.FocusChanged:
		return rc.applyFocusChanged(p.PID)
	default:
		return fmt.Errorf("unhandled event kind %q", env.Payload.Kind())
	}
}

func (rc *Reconciler) applyDefaultDeviceChanged(deviceID string, p event.DefaultDeviceChanged) error {
	// All is a wire-level wildcard, never a matrix index.
	flows := []audiosys.Flow{p.Flow}
	if p.Flow == audiosys.FlowAll {
		flows = []audiosys.Flow{audiosys.FlowRender, audiosys.FlowCapture}
	}
	for _, flow := range flows {
		rc.reg.SetDefault(flow, p.Role, deviceID)
	}

	name := ""
	if d, ok := rc.reg.Device(deviceID); ok {
		name = d.Name
	}
	rc.log.Info().Str("device", deviceID).Str("name", name).
		Stringer("flow", p.Flow).Stringer("role", p.Role).
		Msg("default device changed")
	rc.hub.publish(Update{
		Kind: "default-device-changed", DeviceID: deviceID, DeviceName: name,
		Flow: p.Flow.String(), Role: p.Role.String(),
	})
	return nil
}

func (rc *Reconciler) applyDeviceAdded(deviceID string) error {
	handle, err := rc.sys.Device(deviceID)
	if err != nil {
		return fmt.Errorf("resolving added device %s: %w", deviceID, err)
	}
	entry, err := newDevice(handle, rc.adapters, rc.procs)
	if err != nil {
		return err
	}
	rc.reg.UpsertDevice(entry)

	rc.log.Info().Str("device", deviceID).Str("name", entry.Name).
		Stringer("state", entry.State).Msg("device added")
	rc.hub.publish(Update{
		Kind: "device-added", DeviceID: deviceID, DeviceName: entry.Name,
		State: entry.State.String(),
	})
	return nil
}

func (rc *Reconciler) applyDeviceRemoved(deviceID string) error {
	removed, ok := rc.reg.RemoveDevice(deviceID)
	if !ok {
		rc.log.Warn().Str("device", deviceID).Msg("removal for unknown device dropped")
		return nil
	}
	// The entry is out of the map; releasing its subscriptions can no
	// longer race a reader.
	removed.detachLocked(removed.State).discard()

	rc.log.Info().Str("device", deviceID).Str("name", removed.Name).Msg("device removed")
	rc.hub.publish(Update{Kind: "device-removed", DeviceID: deviceID, DeviceName: removed.Name})
	return nil
}

func (rc *Reconciler) applyDeviceStateChanged(deviceID string, state audiosys.DeviceState) error {
	d, ok := rc.reg.Device(deviceID)
	if !ok {
		rc.log.Warn().Str("device", deviceID).Msg("state change for unknown device dropped")
		return nil
	}
	oldState := d.State

	if state == audiosys.DeviceActive {
		if d.active() {
			// Redundant notification; already holding the capability.
			return nil
		}
		// Platform calls happen before the lock; failure leaves the
		// entry in its prior, consistent state and surfaces the error.
		act, err := d.acquireActivation(rc.adapters, rc.procs)
		if err != nil {
			return err
		}
		rc.reg.mu.Lock()
		if d.active() {
			rc.reg.mu.Unlock()
			act.discard()
			return nil
		}
		d.installActivation(act)
		rc.reg.mu.Unlock()
	} else {
		rc.reg.mu.Lock()
		act := d.detachLocked(state)
		rc.reg.mu.Unlock()
		act.discard()
	}

	rc.log.Info().Str("device", deviceID).Str("name", d.Name).
		Stringer("old", oldState).Stringer("new", state).
		Msg("device state changed")
	rc.hub.publish(Update{
		Kind: "device-state-changed", DeviceID: deviceID, DeviceName: d.Name,
		State: state.String(),
	})
	return nil
}

func (rc *Reconciler) applySessionCreated(deviceID, instanceID string) error {
	d, ok := rc.reg.Device(deviceID)
	if !ok {
		rc.log.Warn().Str("device", deviceID).Msg("session created on unknown device dropped")
		return nil
	}
	mgr := d.Manager()
	if mgr == nil {
		rc.log.Warn().Str("device", deviceID).Str("session", instanceID).
			Msg("session created on inactive device dropped")
		return nil
	}

	controls, err := mgr.Sessions()
	if err != nil {
		return fmt.Errorf("re-enumerating sessions on %s: %w", deviceID, err)
	}
	var ctl audiosys.SessionControl
	for _, c := range controls {
		if c.InstanceID() == instanceID {
			ctl = c
			break
		}
	}
	if ctl == nil {
		// Notification raced ahead of enumeration. No retry.
		rc.log.Warn().Str("device", deviceID).Str("session", instanceID).
			Msg("announced session not found in enumeration, dropped")
		return nil
	}

	sess, err := newSession(deviceID, ctl, rc.adapters, rc.procs)
	if err != nil {
		return err
	}

	rc.reg.mu.Lock()
	if prev, exists := d.Sessions[instanceID]; exists {
		prev.release()
	}
	d.Sessions[instanceID] = sess
	rc.reg.mu.Unlock()

	rc.log.Info().Str("device", deviceID).Str("session", instanceID).
		Str("name", sess.DisplayName).Uint32("pid", sess.PID).
		Msg("session created")
	rc.hub.publish(Update{
		Kind: "session-created", DeviceID: deviceID, DeviceName: d.Name,
		SessionID: instanceID, SessionName: sess.DisplayName,
		State: sess.State.String(),
	})
	return nil
}

func (rc *Reconciler) applySessionEvent(deviceID, instanceID string, payload event.Payload) error {
	d, ok := rc.reg.Device(deviceID)
	if !ok {
		rc.log.Warn().Str("device", deviceID).Str("kind", payload.Kind()).
			Msg("session event for unknown device dropped")
		return nil
	}

	rc.reg.mu.RLock()
	sess, ok := d.Sessions[instanceID]
	rc.reg.mu.RUnlock()
	if !ok {
		rc.log.Warn().Str("device", deviceID).Str("session", instanceID).
			Str("kind", payload.Kind()).Msg("event for unknown session dropped")
		return nil
	}

	update := Update{
		DeviceID: deviceID, DeviceName: d.Name,
		SessionID: instanceID, SessionName: sess.DisplayName,
	}

	switch p := payload.(type) {
	case event.VolumeChanged:
		rc.reg.mu.Lock()
		sess.Volume, sess.Mute = p.Volume, p.Mute
		rc.reg.mu.Unlock()
		update.Kind = "volume-changed"
		update.Volume = &p.Volume
		update.Mute = &p.Mute
		rc.log.Info().Str("session", instanceID).Str("name", sess.DisplayName).
			Float32("volume", p.Volume).Bool("mute", p.Mute).Msg("session volume changed")

	case event.DisplayNameChanged:
		// Resolve the fallback before taking the write lock; the
		// process snapshot is a blocking call.
		resolved := resolveDisplayName(p.Name, sess.PID, rc.procs)
		rc.reg.mu.Lock()
		sess.DisplayName = resolved
		rc.reg.mu.Unlock()
		update.Kind = "display-name-changed"
		update.SessionName = resolved
		rc.log.Info().Str("session", instanceID).Str("name", resolved).
			Msg("session display name changed")

	case event.IconPathChanged:
		update.Kind = "icon-path-changed"
		rc.log.Debug().Str("session", instanceID).Str("path", p.Path).
			Msg("session icon path changed")

	case event.GroupingParamChanged:
		update.Kind = "grouping-param-changed"
		rc.log.Debug().Str("session", instanceID).Str("param", p.Param).
			Msg("session grouping param changed")

	case event.SessionStateChanged:
		rc.reg.mu.Lock()
		sess.State = p.State
		rc.reg.mu.Unlock()
		update.Kind = "session-state-changed"
		update.State = p.State.String()
		rc.log.Info().Str("session", instanceID).Str("name", sess.DisplayName).
			Stringer("state", p.State).Msg("session state changed")

	case event.SessionDisconnected:
		rc.reg.mu.Lock()
		delete(d.Sessions, instanceID)
		rc.reg.mu.Unlock()
		sess.release()
		update.Kind = "session-disconnected"
		update.Reason = p.Reason.String()
		rc.log.Info().Str("session", instanceID).Str("name", sess.DisplayName).
			Stringer("reason", p.Reason).Msg("session disconnected")

	default:
		return fmt.Errorf("unhandled session event kind %q", payload.Kind())
	}

	rc.hub.publish(update)
	return nil
}

func resolveDisplayName(name string, pid uint32, procs proctree.Inspector) string {
	if name != "" || procs == nil {
		return name
	}
	snap, err := procs.Snapshot()
	if err != nil {
		return ""
	}
	if proc, ok := snap[int32(pid)]; ok {
		return proc.Name
	}
	return ""
}
