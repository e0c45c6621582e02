package focus

import (
	"fmt"
	"sync"
	"time"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/xproto"

	"github.com/audioscope/audioscope/internal/logger"
)

// X11Backend resolves the focused window's owning pid through the
// _NET_WM_PID property. X11 offers no ownership-change callback that is
// reliable across window managers, so the observer loop polls; the
// human-paced consumer downstream only sees actual changes.
type X11Backend struct {
	conn    *xgb.Conn
	root    xproto.Window
	pidAtom xproto.Atom

	mu       sync.Mutex
	watching bool
	stopChan chan struct{}

	interval time.Duration
	lastPID  int32
	hasLast  bool
}

// NewX11Backend connects to the X server.
func NewX11Backend(pollInterval time.Duration) (*X11Backend, error) {
	conn, err := xgb.NewConn()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X server: %w", err)
	}

	setup := xproto.Setup(conn)
	root := setup.DefaultScreen(conn).Root

	const atomName = "_NET_WM_PID"
	atomReply, err := xproto.InternAtom(conn, false, uint16(len(atomName)), atomName).Reply()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to intern %s: %w", atomName, err)
	}

	if pollInterval <= 0 {
		pollInterval = 500 * time.Millisecond
	}
	return &X11Backend{
		conn:     conn,
		root:     root,
		pidAtom:  atomReply.Atom,
		interval: pollInterval,
	}, nil
}

// Name returns the backend name
func (b *X11Backend) Name() string { return "x11" }

// Close closes the X11 connection
func (b *X11Backend) Close() error {
	b.StopWatching()
	b.conn.Close()
	return nil
}

// FocusedPID returns the pid owning the currently focused window
func (b *X11Backend) FocusedPID() (int32, error) {
	focusReply, err := xproto.GetInputFocus(b.conn).Reply()
	if err != nil {
		return 0, err
	}
	return b.windowPID(focusReply.Focus)
}

// windowPID reads _NET_WM_PID, walking up to the parent when a window
// (e.g. an input proxy) does not carry the property itself.
func (b *X11Backend) windowPID(win xproto.Window) (int32, error) {
	for depth := 0; depth < 8 && win != 0; depth++ {
		reply, err := xproto.GetProperty(
			b.conn,
			false,
			win,
			b.pidAtom,
			xproto.AtomCardinal,
			0,
			1,
		).Reply()
		if err == nil && len(reply.Value) >= 4 {
			return int32(uint32(reply.Value[0]) |
				uint32(reply.Value[1])<<8 |
				uint32(reply.Value[2])<<16 |
				uint32(reply.Value[3])<<24), nil
		}

		tree, err := xproto.QueryTree(b.conn, win).Reply()
		if err != nil {
			return 0, err
		}
		if tree.Parent == win || tree.Parent == b.root {
			break
		}
		win = tree.Parent
	}
	return 0, fmt.Errorf("no _NET_WM_PID on focused window or its ancestors")
}

// Watch starts the polling observer loop.
func (b *X11Backend) Watch(callback func(pid int32)) error {
	b.mu.Lock()
	if b.watching {
		b.mu.Unlock()
		return fmt.Errorf("already watching")
	}
	b.watching = true
	b.stopChan = make(chan struct{})
	b.mu.Unlock()

	go b.watchLoop(callback)
	return nil
}

func (b *X11Backend) watchLoop(callback func(pid int32)) {
	log := logger.WithComponent("x11-focus")
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	// Eager initial emission for the window focused at registration.
	if pid, err := b.FocusedPID(); err == nil {
		b.lastPID = pid
		b.hasLast = true
		callback(pid)
	} else {
		log.Debug().Err(err).Msg("initial focus resolution failed")
	}

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			pid, err := b.FocusedPID()
			if err != nil {
				log.Debug().Err(err).Msg("focus poll failed")
				continue
			}
			if b.hasLast && pid == b.lastPID {
				continue
			}
			b.lastPID = pid
			b.hasLast = true
			callback(pid)
		}
	}
}

// StopWatching stops the observer loop
func (b *X11Backend) StopWatching() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.watching {
		close(b.stopChan)
		b.watching = false
	}
}
