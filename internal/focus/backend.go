// Package focus observes which process owns the foreground window and
// feeds focus-change events into the reconciler's queue.
package focus

// Backend is a display-server-specific focus observer.
type Backend interface {
	// FocusedPID returns the pid owning the currently focused window.
	FocusedPID() (int32, error)

	// Watch starts observing focus changes. The callback fires once
	// eagerly for the window focused at registration time, then once
	// per actual change. Watch returns after starting its observer
	// loop; it must not be called twice.
	Watch(callback func(pid int32)) error

	// StopWatching halts the observer loop.
	StopWatching()

	// Close releases the display-server connection.
	Close() error

	// Name returns the backend name (e.g., "x11", "sim").
	Name() string
}
