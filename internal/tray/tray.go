// Package tray provides the system tray interface for AirCut.
package tray

import (
	"sync"

	"github.com/getlantern/systray"
)

// Tray is the system tray menu. It reflects pipeline state (tracking,
// backend connection, last gesture) and forwards user actions via callbacks.
type Tray struct {
	onTracking  func(enabled bool)
	onReconnect func()
	onQuit      func()
	tracking    bool
	mu          sync.RWMutex

	menuTracking *systray.MenuItem
	menuBackend  *systray.MenuItem
	menuGesture  *systray.MenuItem
}

// New creates a Tray with tracking off.
func New() *Tray {
	return &Tray{}
}

// OnTracking sets the callback invoked when tracking is toggled.
func (t *Tray) OnTracking(fn func(enabled bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onTracking = fn
}

// OnReconnect sets the callback invoked when the reconnect item is clicked.
func (t *Tray) OnReconnect(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onReconnect = fn
}

// OnQuit sets the callback invoked when the quit item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the tray loop. Blocks until systray.Quit is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

func (t *Tray) onReady() {
	systray.SetTitle("AirCut")
	systray.SetTooltip("AirCut Gesture Recognition")

	t.menuTracking = systray.AddMenuItem("Start Tracking", "Toggle hand tracking")
	systray.AddSeparator()

	t.menuBackend = systray.AddMenuItem("Backend: Disconnected", "Detection backend connection state")
	t.menuBackend.Disable()
	menuReconnect := systray.AddMenuItem("Reconnect", "Reconnect to the detection backend")
	systray.AddSeparator()

	t.menuGesture = systray.AddMenuItem("Last: none", "Last recognized gesture")
	t.menuGesture.Disable()
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit AirCut")

	go func() {
		for {
			select {
			case <-t.menuTracking.ClickedCh:
				t.handleTracking()
			case <-menuReconnect.ClickedCh:
				t.handleReconnect()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

func (t *Tray) onExit() {
}

func (t *Tray) handleTracking() {
	t.mu.Lock()
	t.tracking = !t.tracking
	tracking := t.tracking

	if tracking {
		t.menuTracking.SetTitle("Stop Tracking")
	} else {
		t.menuTracking.SetTitle("Start Tracking")
	}

	callback := t.onTracking
	t.mu.Unlock()

	// Invoke outside the lock to prevent deadlocks.
	if callback != nil {
		callback(tracking)
	}
}

func (t *Tray) handleReconnect() {
	t.mu.RLock()
	callback := t.onReconnect
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}

	systray.Quit()
}

// SetBackendState updates the connection state display.
func (t *Tray) SetBackendState(state string) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.menuBackend != nil {
		t.menuBackend.SetTitle("Backend: " + state)
	}
}

// SetLastGesture updates the last gesture display.
func (t *Tray) SetLastGesture(name string) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.menuGesture != nil {
		if name == "" {
			t.menuGesture.SetTitle("Last: none")
		} else {
			t.menuGesture.SetTitle("Last: " + name)
		}
	}
}

// IsTracking returns the tray's tracking toggle state.
func (t *Tray) IsTracking() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.tracking
}
