package registry_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/audioscope/audioscope/internal/audiosys"
	"github.com/audioscope/audioscope/internal/audiosys/sim"
	"github.com/audioscope/audioscope/internal/event"
	"github.com/audioscope/audioscope/internal/proctree"
	"github.com/audioscope/audioscope/internal/registry"
)

type fakeInspector struct {
	snap proctree.Snapshot
	err  error
}

func (f fakeInspector) Snapshot() (proctree.Snapshot, error) {
	return f.snap, f.err
}

type harness struct {
	t   *testing.T
	sys *sim.System
	reg *registry.Registry
	rc  *registry.Reconciler
}

func newHarness(t *testing.T, procs proctree.Inspector) *harness {
	t.Helper()
	sys := sim.New()
	reg := registry.New()
	rc := registry.NewReconciler(sys, reg, event.NewQueue(), procs)
	return &harness{t: t, sys: sys, reg: reg, rc: rc}
}

func (h *harness) bootstrap() {
	h.t.Helper()
	require.NoError(h.t, h.rc.Bootstrap())
}

// settle applies everything the last scripted action queued.
func (h *harness) settle() {
	h.rc.Drain()
}

func (h *harness) session(deviceID, instanceID string) (registry.SessionSnapshot, bool) {
	h.t.Helper()
	snap, ok := h.reg.SnapshotDevice(deviceID)
	if !ok {
		return registry.SessionSnapshot{}, false
	}
	for _, s := range snap.Sessions {
		if s.InstanceID == instanceID {
			return s, true
		}
	}
	return registry.SessionSnapshot{}, false
}

func seedDeviceWithSession(h *harness) {
	h.sys.AddDevice("speakers", "Speakers", audiosys.DeviceActive)
	h.sys.AddSession("speakers", sim.SessionSpec{
		InstanceID:  "speakers/app",
		SessionID:   "app",
		PID:         200,
		DisplayName: "App",
		State:       audiosys.SessionActive,
		Volume:      0.5,
	})
}

func TestBootstrapEnumeratesDevicesSessionsAndDefaults(t *testing.T) {
	h := newHarness(t, nil)
	seedDeviceWithSession(h)
	h.sys.AddDevice("mic", "Microphone", audiosys.DeviceActive)
	h.sys.AddDevice("dock", "Dock Output", audiosys.DeviceUnplugged)
	h.sys.SetDefault(audiosys.FlowRender, audiosys.RoleConsole, "speakers")
	h.sys.SetDefault(audiosys.FlowCapture, audiosys.RoleCommunications, "mic")

	h.bootstrap()

	require.Equal(t, 3, h.reg.DeviceCount())

	snap, ok := h.reg.SnapshotDevice("speakers")
	require.True(t, ok)
	require.Equal(t, "Speakers", snap.Name)
	require.Len(t, snap.Sessions, 1)
	require.Equal(t, "App", snap.Sessions[0].DisplayName)
	require.Equal(t, uint32(200), snap.Sessions[0].PID)

	// A non-active device is tracked but holds no sessions.
	dock, ok := h.reg.SnapshotDevice("dock")
	require.True(t, ok)
	require.Equal(t, "unplugged", dock.State)
	require.Empty(t, dock.Sessions)

	id, ok := h.reg.DefaultID(audiosys.FlowRender, audiosys.RoleConsole)
	require.True(t, ok)
	require.Equal(t, "speakers", id)
	id, ok = h.reg.DefaultID(audiosys.FlowCapture, audiosys.RoleCommunications)
	require.True(t, ok)
	require.Equal(t, "mic", id)
	_, ok = h.reg.DefaultID(audiosys.FlowRender, audiosys.RoleMultimedia)
	require.False(t, ok)
}

func TestDeviceAddedMaterializesSessions(t *testing.T) {
	h := newHarness(t, nil)
	h.bootstrap()

	h.sys.AddDevice("headset", "Headset", audiosys.DeviceActive)
	h.sys.AddSession("headset", sim.SessionSpec{
		InstanceID: "headset/voice", SessionID: "voice", PID: 300,
		DisplayName: "Voice", State: audiosys.SessionActive,
	})
	h.settle()

	snap, ok := h.reg.SnapshotDevice("headset")
	require.True(t, ok)
	require.Equal(t, "active", snap.State)
	require.Len(t, snap.Sessions, 1)
	require.Equal(t, "headset/voice", snap.Sessions[0].InstanceID)
}

func TestDeviceRemoved(t *testing.T) {
	h := newHarness(t, nil)
	seedDeviceWithSession(h)
	h.bootstrap()

	h.sys.RemoveDevice("speakers")
	h.settle()

	require.Zero(t, h.reg.DeviceCount())
	_, ok := h.reg.SnapshotDevice("speakers")
	require.False(t, ok)
}

func TestRemovalForUnknownDeviceDropped(t *testing.T) {
	h := newHarness(t, nil)
	h.bootstrap()

	h.sys.RemoveDevice("never-seen")
	h.settle()

	require.Zero(t, h.reg.DeviceCount())
}

func TestDeactivationClearsSessionsAndSubscriptions(t *testing.T) {
	h := newHarness(t, nil)
	seedDeviceWithSession(h)
	h.bootstrap()
	require.Equal(t, 1, h.sys.SubscriptionCount("speakers", "speakers/app"))

	h.sys.SetDeviceState("speakers", audiosys.DeviceDisabled)
	h.settle()

	snap, ok := h.reg.SnapshotDevice("speakers")
	require.True(t, ok)
	require.Equal(t, "disabled", snap.State)
	require.Empty(t, snap.Sessions, "deactivation must clear the session map")
	require.Zero(t, h.sys.SubscriptionCount("speakers", "speakers/app"),
		"session notification subscriptions must be released")
}

func TestReactivationRebuildsSessions(t *testing.T) {
	h := newHarness(t, nil)
	seedDeviceWithSession(h)
	h.bootstrap()

	h.sys.SetDeviceState("speakers", audiosys.DeviceDisabled)
	h.settle()
	h.sys.SetDeviceState("speakers", audiosys.DeviceActive)
	h.settle()

	snap, ok := h.reg.SnapshotDevice("speakers")
	require.True(t, ok)
	require.Equal(t, "active", snap.State)
	require.Len(t, snap.Sessions, 1)
	require.Equal(t, 1, h.sys.SubscriptionCount("speakers", "speakers/app"))
}

func TestRedundantActiveNotificationIsNoop(t *testing.T) {
	h := newHarness(t, nil)
	seedDeviceWithSession(h)
	h.bootstrap()

	h.sys.SetDeviceState("speakers", audiosys.DeviceActive)
	h.settle()

	snap, ok := h.reg.SnapshotDevice("speakers")
	require.True(t, ok)
	require.Len(t, snap.Sessions, 1)
	require.Equal(t, 1, h.sys.SubscriptionCount("speakers", "speakers/app"),
		"a redundant active notification must not stack subscriptions")
}

func TestSessionCreatedNotification(t *testing.T) {
	h := newHarness(t, nil)
	seedDeviceWithSession(h)
	h.bootstrap()

	h.sys.AddSession("speakers", sim.SessionSpec{
		InstanceID: "speakers/game", SessionID: "game", PID: 201,
		DisplayName: "Game", State: audiosys.SessionActive, Volume: 1.0,
	})
	h.settle()

	sess, ok := h.session("speakers", "speakers/game")
	require.True(t, ok)
	require.Equal(t, "Game", sess.DisplayName)
	require.Equal(t, uint32(201), sess.PID)
	require.Equal(t, float32(1.0), sess.Volume)
}

func TestPhantomSessionCreatedDropped(t *testing.T) {
	h := newHarness(t, nil)
	seedDeviceWithSession(h)
	h.bootstrap()

	h.sys.AnnouncePhantomSession("speakers", "speakers/ghost")
	h.settle()

	_, ok := h.session("speakers", "speakers/ghost")
	require.False(t, ok, "a session absent from re-enumeration must not be registered")
	snap, _ := h.reg.SnapshotDevice("speakers")
	require.Len(t, snap.Sessions, 1)
}

func TestSessionDisconnectRemovesEntry(t *testing.T) {
	h := newHarness(t, nil)
	seedDeviceWithSession(h)
	h.bootstrap()

	h.sys.DisconnectSession("speakers", "speakers/app", audiosys.DisconnectDeviceRemoval)
	h.settle()

	_, ok := h.session("speakers", "speakers/app")
	require.False(t, ok)
}

func TestEventForUnknownSessionDropped(t *testing.T) {
	h := newHarness(t, nil)
	seedDeviceWithSession(h)
	h.bootstrap()

	// Delivered directly: the entity is gone but a late notification for
	// it is still possible.
	h.rc.Queue().Push(event.Envelope{
		DeviceID:  "speakers",
		SessionID: "speakers/ghost",
		Payload:   event.VolumeChanged{Volume: 0.1},
	})
	h.rc.Queue().Push(event.Envelope{
		DeviceID:  "no-such-device",
		SessionID: "whatever",
		Payload:   event.SessionStateChanged{State: audiosys.SessionInactive},
	})
	h.settle()

	snap, _ := h.reg.SnapshotDevice("speakers")
	require.Len(t, snap.Sessions, 1)
	require.Equal(t, float32(0.5), snap.Sessions[0].Volume)
}

func TestExpirySynthesizesDisconnect(t *testing.T) {
	h := newHarness(t, nil)
	seedDeviceWithSession(h)
	h.bootstrap()

	updates := h.rc.Subscribe()
	defer h.rc.Unsubscribe(updates)

	h.sys.SetSessionState("speakers", "speakers/app", audiosys.SessionExpired)
	h.settle()

	_, ok := h.session("speakers", "speakers/app")
	require.False(t, ok, "expiry must remove the session")

	var kinds []string
	var reason string
	for {
		select {
		case u := <-updates:
			kinds = append(kinds, u.Kind)
			if u.Kind == "session-disconnected" {
				reason = u.Reason
			}
			continue
		default:
		}
		break
	}
	require.Contains(t, kinds, "session-disconnected")
	require.Equal(t, "expired", reason)
	// The trailing state-changed envelope targets an already-removed
	// session and is dropped, not published.
	require.NotContains(t, kinds, "session-state-changed")
}

func TestVolumeNotificationUpdatesEntry(t *testing.T) {
	h := newHarness(t, nil)
	seedDeviceWithSession(h)
	h.bootstrap()

	d, ok := h.reg.Device("speakers")
	require.True(t, ok)
	require.NoError(t, d.Sessions["speakers/app"].Control().SetVolume(0.25))
	h.settle()

	sess, ok := h.session("speakers", "speakers/app")
	require.True(t, ok)
	require.Equal(t, float32(0.25), sess.Volume)
}

func TestEmptyDisplayNameFallsBackToProcessName(t *testing.T) {
	procs := fakeInspector{snap: proctree.Snapshot{
		4242: {PID: 4242, PPID: 1, Name: "music.exe"},
	}}
	h := newHarness(t, procs)
	h.sys.AddDevice("speakers", "Speakers", audiosys.DeviceActive)
	h.sys.AddSession("speakers", sim.SessionSpec{
		InstanceID: "speakers/music", SessionID: "music", PID: 4242,
		State: audiosys.SessionActive,
	})
	h.bootstrap()

	sess, ok := h.session("speakers", "speakers/music")
	require.True(t, ok)
	require.Equal(t, "music.exe", sess.DisplayName)
}

func TestRenameToEmptyResolvesFreshName(t *testing.T) {
	procs := fakeInspector{snap: proctree.Snapshot{
		200: {PID: 200, PPID: 1, Name: "app-binary"},
	}}
	h := newHarness(t, procs)
	seedDeviceWithSession(h)
	h.bootstrap()

	h.sys.RenameSession("speakers", "speakers/app", "")
	h.settle()

	sess, ok := h.session("speakers", "speakers/app")
	require.True(t, ok)
	require.Equal(t, "app-binary", sess.DisplayName)
}

func TestRenameUnresolvablePIDStoresEmpty(t *testing.T) {
	h := newHarness(t, fakeInspector{snap: proctree.Snapshot{}})
	seedDeviceWithSession(h)
	h.bootstrap()

	h.sys.RenameSession("speakers", "speakers/app", "")
	h.settle()

	sess, ok := h.session("speakers", "speakers/app")
	require.True(t, ok)
	require.Empty(t, sess.DisplayName)
}

func TestDefaultChangeWithFlowAllFansOut(t *testing.T) {
	h := newHarness(t, nil)
	seedDeviceWithSession(h)
	h.bootstrap()

	h.sys.SetDefault(audiosys.FlowAll, audiosys.RoleMultimedia, "speakers")
	h.settle()

	id, ok := h.reg.DefaultID(audiosys.FlowRender, audiosys.RoleMultimedia)
	require.True(t, ok)
	require.Equal(t, "speakers", id)
	id, ok = h.reg.DefaultID(audiosys.FlowCapture, audiosys.RoleMultimedia)
	require.True(t, ok)
	require.Equal(t, "speakers", id)
	// Other roles untouched.
	_, ok = h.reg.DefaultID(audiosys.FlowRender, audiosys.RoleConsole)
	require.False(t, ok)
}

func TestDanglingDefaultReadsAsUnknown(t *testing.T) {
	h := newHarness(t, nil)
	h.bootstrap()

	h.reg.SetDefault(audiosys.FlowRender, audiosys.RoleConsole, "not-yet-added")

	_, ok := h.reg.DefaultDevice(audiosys.FlowRender, audiosys.RoleConsole)
	require.False(t, ok)
	id, ok := h.reg.DefaultID(audiosys.FlowRender, audiosys.RoleConsole)
	require.True(t, ok)
	require.Equal(t, "not-yet-added", id)

	var cell registry.DefaultSnapshot
	for _, c := range h.reg.SnapshotDefaults() {
		if c.Flow == "render" && c.Role == "console" {
			cell = c
		}
	}
	require.Equal(t, "not-yet-added", cell.DeviceID)
	require.False(t, cell.Known)
}

func TestFlowAllIsNotAMatrixIndex(t *testing.T) {
	reg := registry.New()
	require.Panics(t, func() {
		reg.SetDefault(audiosys.FlowAll, audiosys.RoleConsole, "x")
	})
	require.Panics(t, func() {
		reg.DefaultDevice(audiosys.FlowAll, audiosys.RoleConsole)
	})
}

func TestFocusCorrelation(t *testing.T) {
	procs := fakeInspector{snap: proctree.Snapshot{
		100: {PID: 100, PPID: 1, Name: "launcher"},
		200: {PID: 200, PPID: 100, Name: "app"},
		201: {PID: 201, PPID: 200, Name: "app-audio"},
		999: {PID: 999, PPID: 1, Name: "background"},
	}}
	h := newHarness(t, procs)
	seedDeviceWithSession(h) // pid 200
	h.sys.AddSession("speakers", sim.SessionSpec{
		InstanceID: "speakers/child", SessionID: "child", PID: 201,
		DisplayName: "App Audio", State: audiosys.SessionActive,
	})
	h.sys.AddDevice("mic", "Microphone", audiosys.DeviceActive)
	h.sys.AddSession("mic", sim.SessionSpec{
		InstanceID: "mic/background", SessionID: "bg", PID: 999,
		DisplayName: "Background", State: audiosys.SessionActive,
	})
	h.bootstrap()

	h.rc.Queue().Push(event.Envelope{Payload: event.FocusChanged{PID: 100}})
	h.settle()

	pid, focused, ok := h.rc.Focused()
	require.True(t, ok)
	require.Equal(t, int32(100), pid)
	require.Len(t, focused, 2)
	require.Equal(t, "speakers/app", focused[0].InstanceID)
	require.Equal(t, "speakers/child", focused[1].InstanceID)
}

func TestFocusBeforeAnyObservation(t *testing.T) {
	h := newHarness(t, nil)
	h.bootstrap()
	_, _, ok := h.rc.Focused()
	require.False(t, ok)
}

func TestSetFocusedMute(t *testing.T) {
	procs := fakeInspector{snap: proctree.Snapshot{
		200: {PID: 200, PPID: 1, Name: "app"},
	}}
	h := newHarness(t, procs)
	seedDeviceWithSession(h)
	h.bootstrap()

	h.rc.Queue().Push(event.Envelope{Payload: event.FocusChanged{PID: 200}})
	h.settle()

	require.Equal(t, 1, h.rc.SetFocusedMute(true))
	// The write comes back as a platform notification; the registry
	// updates when it is reconciled.
	h.settle()
	sess, _ := h.session("speakers", "speakers/app")
	require.True(t, sess.Mute)

	require.Equal(t, 1, h.rc.ToggleFocusedMute())
	h.settle()
	sess, _ = h.session("speakers", "speakers/app")
	require.False(t, sess.Mute)
}

func TestShutdownReleasesEverything(t *testing.T) {
	h := newHarness(t, nil)
	seedDeviceWithSession(h)
	h.bootstrap()

	updates := h.rc.Subscribe()
	h.rc.Shutdown()
	h.rc.Run() // drains nothing, then cleans up

	require.Zero(t, h.sys.SubscriptionCount("speakers", "speakers/app"))
	_, open := <-updates
	require.False(t, open, "subscribers are closed on shutdown")
}
