// Package tray provides a system tray surface showing detection status.
package tray

import (
	"fmt"
	"sync"

	"github.com/getlantern/systray"

	"github.com/ayusman/firewatch/internal/alarm"
	"github.com/ayusman/firewatch/internal/detector"
)

// Title is the tray title.
const Title = "Firewatch"

// Tray represents the system tray application.
type Tray struct {
	onQuit func()
	mu     sync.RWMutex

	// latest values, applied to the menu once it exists
	source     string
	fireEvents uint64
	active     bool

	// Menu items stored for later updates
	menuSource *systray.MenuItem
	menuEvents *systray.MenuItem
	menuAlarm  *systray.MenuItem
}

// New creates a new Tray instance.
func New() *Tray {
	return &Tray{}
}

// OnQuit sets the callback function to be called when the quit menu item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application. It must be called from the main
// goroutine and blocks until Quit.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// Quit closes the tray and makes Run return.
func (t *Tray) Quit() {
	systray.Quit()
}

// onReady is called when the system tray is ready.
// It sets up the menu structure.
func (t *Tray) onReady() {
	systray.SetTitle(Title)
	systray.SetTooltip("Firewatch fire detection")

	t.mu.Lock()
	t.menuSource = systray.AddMenuItem(sourceLabel(t.source), "Current frame source")
	t.menuSource.Disable()
	t.menuEvents = systray.AddMenuItem(eventsLabel(t.fireEvents), "Frames classified as fire")
	t.menuEvents.Disable()
	t.menuAlarm = systray.AddMenuItem(alarmLabel(t.active), "Alarm state")
	t.menuAlarm.Disable()
	t.mu.Unlock()
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit Firewatch")

	go func() {
		<-menuQuit.ClickedCh
		t.handleQuit()
	}()
}

// onExit is called when the system tray is about to exit.
func (t *Tray) onExit() {}

// handleQuit handles the quit menu item click.
func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	// Call the callback outside the lock to prevent deadlocks
	if callback != nil {
		callback()
	}

	systray.Quit()
}

// Observe updates the menu from the latest processed frame. It satisfies
// app.Observer.
func (t *Tray) Observe(source string, result *detector.Result, state alarm.State) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if source != t.source {
		t.source = source
		if t.menuSource != nil {
			t.menuSource.SetTitle(sourceLabel(source))
		}
	}
	if state.FireEvents != t.fireEvents {
		t.fireEvents = state.FireEvents
		if t.menuEvents != nil {
			t.menuEvents.SetTitle(eventsLabel(state.FireEvents))
		}
	}
	if state.Active != t.active {
		t.active = state.Active
		if t.menuAlarm != nil {
			t.menuAlarm.SetTitle(alarmLabel(state.Active))
		}
	}
}

// Status returns the values currently shown in the menu.
func (t *Tray) Status() (source string, fireEvents uint64, active bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.source, t.fireEvents, t.active
}

func sourceLabel(source string) string {
	if source == "" {
		return "Watching: none"
	}
	return "Watching: " + source
}

func eventsLabel(n uint64) string {
	return fmt.Sprintf("Fire events: %d", n)
}

func alarmLabel(active bool) string {
	if active {
		return "🔥 Alarm: ACTIVE"
	}
	return "Alarm: idle"
}
