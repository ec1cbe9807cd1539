// Package tray provides a desktop system tray menu for the capture session.
package tray

import (
	"sync"

	"github.com/getlantern/systray"
)

// Tray represents the system tray application.
type Tray struct {
	onStart func()
	onStop  func()
	onReset func()
	onQuit  func()
	mu      sync.RWMutex

	state string
	text  string

	// Menu items stored for later updates
	menuStart *systray.MenuItem
	menuStop  *systray.MenuItem
	menuState *systray.MenuItem
	menuText  *systray.MenuItem
}

// New creates a new Tray in the idle state.
func New() *Tray {
	return &Tray{state: "idle"}
}

// OnStart sets the callback for the Start capture item.
func (t *Tray) OnStart(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onStart = fn
}

// OnStop sets the callback for the Stop capture item.
func (t *Tray) OnStop(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onStop = fn
}

// OnReset sets the callback for the Reset text item.
func (t *Tray) OnReset(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onReset = fn
}

// OnQuit sets the callback function to be called when the quit menu item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application.
// This function blocks until systray.Quit() is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// Quit closes the tray from outside the menu.
func (t *Tray) Quit() {
	systray.Quit()
}

// onReady is called when the system tray is ready.
// It sets up the menu structure.
func (t *Tray) onReady() {
	systray.SetTitle("Handsign")
	systray.SetTooltip("Handsign gesture capture")

	t.mu.Lock()
	t.menuState = systray.AddMenuItem(stateTitle(t.state), "Capture state")
	t.menuState.Disable()
	systray.AddSeparator()

	t.menuStart = systray.AddMenuItem("Start capture", "Open the camera and start recognizing")
	t.menuStop = systray.AddMenuItem("Stop capture", "Release the camera")
	menuReset := systray.AddMenuItem("Reset text", "Clear the recognized text")
	systray.AddSeparator()

	t.menuText = systray.AddMenuItem(textTitle(t.text), "Last recognized text")
	t.menuText.Disable()
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit Handsign")
	t.updateItems()
	t.mu.Unlock()

	// Handle menu item clicks in a separate goroutine
	go func() {
		for {
			select {
			case <-t.menuStart.ClickedCh:
				t.dispatch(func() func() { return t.onStart })
			case <-t.menuStop.ClickedCh:
				t.dispatch(func() func() { return t.onStop })
			case <-menuReset.ClickedCh:
				t.dispatch(func() func() { return t.onReset })
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

// onExit is called when the system tray is about to exit.
func (t *Tray) onExit() {}

// dispatch runs the callback chosen by pick outside the lock.
func (t *Tray) dispatch(pick func() func()) {
	t.mu.RLock()
	callback := pick()
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

// handleQuit handles the quit menu item click.
func (t *Tray) handleQuit() {
	t.dispatch(func() func() { return t.onQuit })
	systray.Quit()
}

// SetState updates the state line and which of Start/Stop is clickable.
func (t *Tray) SetState(state string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.state = state
	t.updateItems()
}

// SetText updates the last recognized text display in the menu.
func (t *Tray) SetText(text string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.text = text
	if t.menuText != nil {
		t.menuText.SetTitle(textTitle(text))
	}
}

// State returns the state last shown.
func (t *Tray) State() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.state
}

// Text returns the text last shown.
func (t *Tray) Text() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.text
}

// updateItems must be called with t.mu held.
func (t *Tray) updateItems() {
	if t.menuState == nil {
		return
	}
	t.menuState.SetTitle(stateTitle(t.state))

	if active(t.state) {
		t.menuStart.Disable()
		t.menuStop.Enable()
	} else {
		t.menuStart.Enable()
		t.menuStop.Disable()
	}
}

func active(state string) bool {
	return state == "streaming" || state == "acquiring_camera"
}

func stateTitle(state string) string {
	switch state {
	case "streaming":
		return "● Capturing"
	case "acquiring_camera":
		return "◌ Opening camera..."
	case "error":
		return "✕ Camera error"
	default:
		return "○ Not capturing"
	}
}

func textTitle(text string) string {
	if text == "" {
		return "Text: none"
	}
	return "Text: " + text
}
