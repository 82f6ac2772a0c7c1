// Package display shows masked frames and polls for key presses.
package display

import (
	"sync"

	"gocv.io/x/gocv"
)

// WindowTitle is the title of the detection window.
const WindowTitle = "Fire Detection"

// NoKey is returned by WaitKey when no key was pressed.
const NoKey = -1

// Display is a surface that shows frames and reports key presses.
type Display interface {
	Show(frame gocv.Mat)
	// WaitKey waits up to delay milliseconds and returns the pressed key code,
	// or NoKey.
	WaitKey(delay int) int
	Close() error
}

// Factory creates a Display. The loop calls it only after its source opened.
type Factory func() Display

// Window is a HighGUI window backed Display.
type Window struct {
	window *gocv.Window
}

// NewWindow opens a window with the given title.
func NewWindow(title string) *Window {
	return &Window{window: gocv.NewWindow(title)}
}

// WindowFactory returns a Factory that opens a window titled WindowTitle.
func WindowFactory() Factory {
	return func() Display { return NewWindow(WindowTitle) }
}

// Show draws frame in the window.
func (w *Window) Show(frame gocv.Mat) {
	w.window.IMShow(frame)
}

// WaitKey polls the window for a key press.
func (w *Window) WaitKey(delay int) int {
	key := w.window.WaitKey(delay)
	if key < 0 {
		return NoKey
	}
	return key & 0xFF
}

// Close destroys the window.
func (w *Window) Close() error {
	return w.window.Close()
}

// Headless discards frames and plays back scripted key presses.
// It is used when running without a screen and in tests.
type Headless struct {
	mu     sync.Mutex
	keys   []int
	shown  int
	closed bool
}

// NewHeadless creates a Headless display that returns keys in order from
// WaitKey, then NoKey.
func NewHeadless(keys ...int) *Headless {
	return &Headless{keys: keys}
}

// HeadlessFactory returns a Factory that creates a fresh Headless display.
func HeadlessFactory() Factory {
	return func() Display { return NewHeadless() }
}

func (h *Headless) Show(frame gocv.Mat) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.shown++
}

func (h *Headless) WaitKey(delay int) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.keys) == 0 {
		return NoKey
	}
	key := h.keys[0]
	h.keys = h.keys[1:]
	return key
}

func (h *Headless) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	return nil
}

// Shown returns how many frames were shown.
func (h *Headless) Shown() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.shown
}

// Closed reports whether Close was called.
func (h *Headless) Closed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed
}
