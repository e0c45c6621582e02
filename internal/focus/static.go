package focus

// StaticBackend reports a fixed pid once and never again. It stands in
// for a real display server in demo mode and on hosts without one.
type StaticBackend struct {
	pid     int32
	stopped bool
}

// NewStaticBackend creates a backend pinned to pid.
func NewStaticBackend(pid int32) *StaticBackend {
	return &StaticBackend{pid: pid}
}

func (b *StaticBackend) Name() string { return "static" }

func (b *StaticBackend) FocusedPID() (int32, error) { return b.pid, nil }

func (b *StaticBackend) Watch(callback func(pid int32)) error {
	callback(b.pid)
	return nil
}

func (b *StaticBackend) StopWatching() { b.stopped = true }

func (b *StaticBackend) Close() error { return nil }
