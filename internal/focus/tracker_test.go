package focus

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/audioscope/audioscope/internal/event"
)

type fakeBackend struct {
	callback func(pid int32)
	watchErr error
	stopped  bool
	closed   bool
}

func (b *fakeBackend) Name() string               { return "fake" }
func (b *fakeBackend) FocusedPID() (int32, error) { return 42, nil }
func (b *fakeBackend) StopWatching()              { b.stopped = true }
func (b *fakeBackend) Close() error               { b.closed = true; return nil }

func (b *fakeBackend) Watch(cb func(pid int32)) error {
	if b.watchErr != nil {
		return b.watchErr
	}
	b.callback = cb
	return nil
}

func TestTrackerPushesFocusEvents(t *testing.T) {
	backend := &fakeBackend{}
	q := event.NewQueue()
	tracker := NewTracker(backend, q)
	require.NoError(t, tracker.Start())

	backend.callback(42)
	backend.callback(43)

	env, ok := q.TryPop()
	require.True(t, ok)
	require.Equal(t, event.FocusChanged{PID: 42}, env.Payload)
	env, ok = q.TryPop()
	require.True(t, ok)
	require.Equal(t, event.FocusChanged{PID: 43}, env.Payload)
	_, ok = q.TryPop()
	require.False(t, ok)
}

func TestTrackerStartError(t *testing.T) {
	backend := &fakeBackend{watchErr: errors.New("no display")}
	tracker := NewTracker(backend, event.NewQueue())
	require.Error(t, tracker.Start())
}

func TestTrackerStopReleasesBackend(t *testing.T) {
	backend := &fakeBackend{}
	tracker := NewTracker(backend, event.NewQueue())
	require.NoError(t, tracker.Start())

	tracker.Stop()
	require.True(t, backend.stopped)
	require.True(t, backend.closed)
}

func TestStaticBackendEmitsOnce(t *testing.T) {
	b := NewStaticBackend(7)
	var pids []int32
	require.NoError(t, b.Watch(func(pid int32) { pids = append(pids, pid) }))
	require.Equal(t, []int32{7}, pids)

	pid, err := b.FocusedPID()
	require.NoError(t, err)
	require.Equal(t, int32(7), pid)
}
