package registry

import (
	"fmt"
	"sort"
	"sync"
)

// focusState is the most recent focus correlation result.
type focusState struct {
	mu      sync.RWMutex
	pid     int32
	focused []FocusedSession
	valid   bool
}

// Focused returns the pid that last took focus and the sessions owned
// by its process tree.
func (rc *Reconciler) Focused() (int32, []FocusedSession, bool) {
	rc.focus.mu.RLock()
	defer rc.focus.mu.RUnlock()
	out := make([]FocusedSession, len(rc.focus.focused))
	copy(out, rc.focus.focused)
	return rc.focus.pid, out, rc.focus.valid
}

// applyFocusChanged correlates the newly focused process with the live
// session population: the focused pid is expanded to its full
// descendant set and every device's session map is scanned for owners
// in that set. The full scan is fine — session counts are tens, focus
// changes are human-paced.
func (rc *Reconciler) applyFocusChanged(pid int32) error {
	snap, err := rc.procs.Snapshot()
	if err != nil {
		return fmt.Errorf("snapshotting processes for focus pid %d: %w", pid, err)
	}
	tree := snap.Descendants(pid)

	var focused []FocusedSession
	rc.reg.mu.RLock()
	for _, d := range rc.reg.devices {
		for _, s := range d.Sessions {
			if _, ok := tree[int32(s.PID)]; ok {
				focused = append(focused, FocusedSession{
					DeviceID:    d.ID,
					InstanceID:  s.InstanceID,
					DisplayName: s.DisplayName,
					PID:         s.PID,
				})
			}
		}
	}
	rc.reg.mu.RUnlock()

	sort.Slice(focused, func(i, j int) bool {
		if focused[i].DeviceID != focused[j].DeviceID {
			return focused[i].DeviceID < focused[j].DeviceID
		}
		return focused[i].InstanceID < focused[j].InstanceID
	})

	rc.focus.mu.Lock()
	rc.focus.pid = pid
	rc.focus.focused = focused
	rc.focus.valid = true
	rc.focus.mu.Unlock()

	rc.log.Info().Int32("pid", pid).Int("sessions", len(focused)).
		Msg("focus changed")
	rc.hub.publish(Update{Kind: "focus-changed", PID: pid, Focused: focused})
	return nil
}

// SetFocusedMute applies a mute state to every focus-correlated
// session. Returns the number of sessions written. The platform echoes
// each write back as a volume-changed notification, which is what
// updates the registry.
func (rc *Reconciler) SetFocusedMute(mute bool) int {
	_, focused, ok := rc.Focused()
	if !ok {
		return 0
	}
	n := 0
	for _, f := range focused {
		d, ok := rc.reg.Device(f.DeviceID)
		if !ok {
			continue
		}
		rc.reg.mu.RLock()
		sess, ok := d.Sessions[f.InstanceID]
		rc.reg.mu.RUnlock()
		if !ok {
			continue
		}
		if err := sess.Control().SetMute(mute); err != nil {
			rc.log.Warn().Err(err).Str("session", f.InstanceID).Msg("mute write failed")
			continue
		}
		n++
	}
	return n
}

// ToggleFocusedMute flips each focus-correlated session's mute state.
func (rc *Reconciler) ToggleFocusedMute() int {
	_, focused, ok := rc.Focused()
	if !ok {
		return 0
	}
	n := 0
	for _, f := range focused {
		d, ok := rc.reg.Device(f.DeviceID)
		if !ok {
			continue
		}
		rc.reg.mu.RLock()
		sess, ok := d.Sessions[f.InstanceID]
		muted := false
		if ok {
			muted = sess.Mute
		}
		rc.reg.mu.RUnlock()
		if !ok {
			continue
		}
		if err := sess.Control().SetMute(!muted); err != nil {
			rc.log.Warn().Err(err).Str("session", f.InstanceID).Msg("mute toggle failed")
			continue
		}
		n++
	}
	return n
}
