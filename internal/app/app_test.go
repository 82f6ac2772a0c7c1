package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/firewatch/internal/alarm"
	"github.com/ayusman/firewatch/internal/capture"
	"github.com/ayusman/firewatch/internal/detector"
	"github.com/ayusman/firewatch/internal/display"
)

// harness wires an App to mocks.
type harness struct {
	app      *App
	det      *detector.MockDetector
	disp     *display.Headless
	displays atomic.Int32
	plays    atomic.Int32
}

func newHarness(t *testing.T, cfg Config, counts []int, keys ...int) *harness {
	t.Helper()

	h := &harness{
		det:  detector.NewMockDetector(counts...),
		disp: display.NewHeadless(keys...),
	}

	cfg.Alarm = alarm.NewController(alarm.PlayerFunc(func(ctx context.Context) error {
		h.plays.Add(1)
		return nil
	}))
	cfg.Display = func() display.Display {
		h.displays.Add(1)
		return h.disp
	}

	h.app = New(cfg)
	h.app.SetDetector(h.det)
	return h
}

func newFrames(t *testing.T, n int) []*gocv.Mat {
	t.Helper()

	frames := make([]*gocv.Mat, n)
	for i := range frames {
		m := gocv.NewMatWithSize(48, 64, gocv.MatTypeCV8UC3)
		frames[i] = &m
		t.Cleanup(func() { m.Close() })
	}
	return frames
}

func TestApp_RunCamera_OpenFailure(t *testing.T) {
	h := newHarness(t, Config{CameraIndex: 1}, nil)

	src := capture.NewMockSource("camera:1", nil, false)
	src.SetOpenError(errors.New("no such device"))
	var gotIndex int
	h.app.openCamera = func(index int) capture.Source {
		gotIndex = index
		return src
	}

	err := h.app.RunCamera(context.Background())
	if !errors.Is(err, ErrCameraOpen) {
		t.Fatalf("RunCamera() error = %v, want ErrCameraOpen", err)
	}
	if gotIndex != 1 {
		t.Errorf("camera index = %d, want 1", gotIndex)
	}
	if h.displays.Load() != 0 {
		t.Error("no display should be created when the camera fails to open")
	}
	if h.det.Calls() != 0 {
		t.Error("detector should not run")
	}
}

func TestApp_RunCamera_EndOfStream(t *testing.T) {
	h := newHarness(t, Config{CameraIndex: 1}, []int{0, 20000, 30000, 100})

	src := capture.NewMockSource("camera:1", newFrames(t, 4), false)
	h.app.openCamera = func(int) capture.Source { return src }

	if err := h.app.RunCamera(context.Background()); err != nil {
		t.Fatalf("RunCamera() error = %v", err)
	}
	h.app.Alarm().Wait()

	if h.det.Calls() != 4 {
		t.Errorf("detector calls = %d, want 4", h.det.Calls())
	}
	if h.disp.Shown() != 4 {
		t.Errorf("frames shown = %d, want 4", h.disp.Shown())
	}

	state := h.app.Alarm().Snapshot()
	if state.FireEvents != 2 {
		t.Errorf("FireEvents = %d, want 2", state.FireEvents)
	}
	if !state.Active {
		t.Error("alarm should be latched")
	}
	if h.plays.Load() != 1 {
		t.Errorf("playback started %d times, want 1", h.plays.Load())
	}

	if src.IsOpen() {
		t.Error("source should be released at end of stream")
	}
	if !h.disp.Closed() {
		t.Error("display should be closed at end of stream")
	}
	if h.app.Source() != "camera:1" {
		t.Errorf("Source() = %q", h.app.Source())
	}
}

func TestApp_RunCamera_QuitKey(t *testing.T) {
	for _, key := range []int{KeySwitch, KeyStop} {
		h := newHarness(t, Config{}, []int{0}, display.NoKey, key)

		src := capture.NewMockSource("camera:1", newFrames(t, 1), true)
		h.app.openCamera = func(int) capture.Source { return src }

		if err := h.app.RunCamera(context.Background()); err != nil {
			t.Fatalf("RunCamera() error = %v", err)
		}
		if h.det.Calls() != 2 {
			t.Errorf("key %d: detector calls = %d, want 2", key, h.det.Calls())
		}
		if src.IsOpen() || !h.disp.Closed() {
			t.Errorf("key %d: resources should be released", key)
		}
	}
}

func TestApp_Watch_MissingDir(t *testing.T) {
	h := newHarness(t, Config{WatchDir: filepath.Join(t.TempDir(), "DroneFeed")}, nil)

	err := h.app.Watch(context.Background())
	if !errors.Is(err, ErrWatchDirMissing) {
		t.Fatalf("Watch() error = %v, want ErrWatchDirMissing", err)
	}
	if h.displays.Load() != 0 {
		t.Error("no display should be created for a missing folder")
	}
}

func TestApp_Watch_WaitsForFirstFile(t *testing.T) {
	dir := t.TempDir()
	h := newHarness(t, Config{WatchDir: dir}, []int{20000}, KeyStop)

	var (
		mu     sync.Mutex
		opened []string
	)
	h.app.openFile = func(path string) capture.Source {
		mu.Lock()
		opened = append(opened, path)
		mu.Unlock()
		return capture.NewMockSource(path, newFrames(t, 1), false)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- h.app.Watch(ctx) }()

	// Let the watcher find the empty folder first.
	time.Sleep(100 * time.Millisecond)
	if h.displays.Load() != 0 {
		t.Error("display should not open before a video exists")
	}

	want := filepath.Join(dir, "flight.mp4")
	if err := os.WriteFile(want, []byte("x"), 0644); err != nil {
		t.Fatalf("write video: %v", err)
	}

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Watch() error = %v", err)
		}
	case <-ctx.Done():
		t.Fatal("Watch() did not pick up the new file")
	}
	h.app.Alarm().Wait()

	mu.Lock()
	defer mu.Unlock()
	if len(opened) != 1 || opened[0] != want {
		t.Errorf("opened = %v, want [%s]", opened, want)
	}
	if !h.app.Alarm().Active() {
		t.Error("fire frame should latch the alarm")
	}
}

func TestApp_Watch_RetriesOnGap(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "live.avi"), []byte("x"), 0644)

	// gap poll, then the key after the real frame
	h := newHarness(t, Config{WatchDir: dir}, []int{0}, display.NoKey, KeyStop)

	frames := newFrames(t, 1)
	src := capture.NewMockSource("live.avi", []*gocv.Mat{nil, frames[0]}, false)
	h.app.openFile = func(string) capture.Source { return src }

	start := time.Now()
	if err := h.app.Watch(context.Background()); err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	if elapsed := time.Since(start); elapsed < FileRetryDelay {
		t.Errorf("Watch() returned after %v, want at least one %v retry delay", elapsed, FileRetryDelay)
	}
	if src.Reads() != 2 {
		t.Errorf("reads = %d, want 2 (gap then frame on the same handle)", src.Reads())
	}
	if src.Opens() != 1 {
		t.Errorf("opens = %d, want 1", src.Opens())
	}
	if h.det.Calls() != 1 {
		t.Errorf("detector calls = %d, want 1", h.det.Calls())
	}
}

func TestApp_Watch_SwitchKeyReselectsNewest(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "a.mp4")
	newer := filepath.Join(dir, "b.mp4")

	os.WriteFile(old, []byte("x"), 0644)
	past := time.Now().Add(-time.Hour)
	os.Chtimes(old, past, past)

	h := newHarness(t, Config{WatchDir: dir}, []int{0}, KeySwitch, KeyStop)

	var opened []string
	h.app.openFile = func(path string) capture.Source {
		opened = append(opened, path)
		if path == old {
			// a newer recording shows up while the old one is being read
			os.WriteFile(newer, []byte("x"), 0644)
		}
		return capture.NewMockSource(path, newFrames(t, 1), true)
	}

	if err := h.app.Watch(context.Background()); err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	if len(opened) != 2 || opened[0] != old || opened[1] != newer {
		t.Errorf("opened = %v, want [%s %s]", opened, old, newer)
	}
	if h.displays.Load() != 1 {
		t.Errorf("displays created = %d, want 1 shared across files", h.displays.Load())
	}
	if !h.disp.Closed() {
		t.Error("display should be closed when watching stops")
	}
}

func TestApp_Watch_CancelDuringGap(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "live.mp4"), []byte("x"), 0644)

	h := newHarness(t, Config{WatchDir: dir}, nil)

	src := capture.NewMockSource("live.mp4", nil, false)
	h.app.openFile = func(string) capture.Source { return src }

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	if err := h.app.Watch(ctx); err != nil {
		t.Fatalf("Watch() error = %v", err)
	}
	if src.IsOpen() {
		t.Error("source should be closed after cancellation")
	}
}

type recordingObserver struct {
	mu      sync.Mutex
	sources []string
	counts  []int
	events  []uint64
}

func (o *recordingObserver) Observe(source string, result *detector.Result, state alarm.State) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sources = append(o.sources, source)
	o.counts = append(o.counts, result.PixelCount)
	o.events = append(o.events, state.FireEvents)
}

func TestApp_PublishesToObservers(t *testing.T) {
	obs := &recordingObserver{}
	h := newHarness(t, Config{Observers: []Observer{obs}}, []int{15001, 10})

	src := capture.NewMockSource("camera:1", newFrames(t, 2), false)
	h.app.openCamera = func(int) capture.Source { return src }

	if err := h.app.RunCamera(context.Background()); err != nil {
		t.Fatalf("RunCamera() error = %v", err)
	}
	h.app.Alarm().Wait()

	obs.mu.Lock()
	defer obs.mu.Unlock()
	if len(obs.counts) != 2 || obs.counts[0] != 15001 || obs.counts[1] != 10 {
		t.Errorf("observed counts = %v, want [15001 10]", obs.counts)
	}
	if obs.events[0] != 1 || obs.events[1] != 1 {
		t.Errorf("observed fire events = %v, want [1 1]", obs.events)
	}
	if obs.sources[0] != "camera:1" {
		t.Errorf("observed source = %q", obs.sources[0])
	}
}

func TestNew_Defaults(t *testing.T) {
	a := New(Config{})

	if a.Alarm() == nil {
		t.Error("default alarm controller should be set")
	}
	if a.display == nil {
		t.Error("default display factory should be set")
	}
	if a.Session() == "" {
		t.Error("session id should be set")
	}
	if _, ok := a.detectorFor(detector.WatchConfig()).(*detector.FireDetector); !ok {
		t.Error("default detector should be a FireDetector")
	}
}
