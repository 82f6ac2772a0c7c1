// Package app drives the read-detect-alarm-display loop for both frame sources.
package app

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ayusman/firewatch/internal/alarm"
	"github.com/ayusman/firewatch/internal/capture"
	"github.com/ayusman/firewatch/internal/detector"
	"github.com/ayusman/firewatch/internal/display"
	"github.com/ayusman/firewatch/internal/logger"
)

// Loop timing constants.
const (
	// FileRetryDelay is the wait after an empty read from a growing file.
	FileRetryDelay = 500 * time.Millisecond
	// KeyPollDelay is the WaitKey timeout in milliseconds.
	KeyPollDelay = 1
	// DirPollInterval is the wait between scans of an empty watch directory.
	DirPollInterval = 2 * time.Second
)

// Keys handled by the loop.
const (
	// KeySwitch ends the current file so the watcher re-selects the newest one.
	// For the camera it stops the run.
	KeySwitch = 'q'
	// KeyStop stops the run.
	KeyStop = 27
)

var (
	// ErrWatchDirMissing is returned when the watch directory does not exist.
	ErrWatchDirMissing = errors.New("video folder not found")
	// ErrCameraOpen is returned when the camera device cannot be opened.
	ErrCameraOpen = errors.New("cannot open camera")
)

// Observer receives every processed frame. The masked frame is only valid for
// the duration of the call.
type Observer interface {
	Observe(source string, result *detector.Result, state alarm.State)
}

// Config holds configuration options for the application.
type Config struct {
	WatchDir    string
	CameraIndex int
	// Alarm defaults to a controller playing alarm.DefaultSoundPath.
	Alarm *alarm.Controller
	// Display defaults to a HighGUI window.
	Display   display.Factory
	Observers []Observer
}

// App runs fire detection over a watched folder or a camera.
type App struct {
	config     Config
	alarm      *alarm.Controller
	detector   detector.Detector
	display    display.Factory
	openFile   func(path string) capture.Source
	openCamera func(index int) capture.Source
	// pollInterval is the wait between scans of an empty or unopenable folder.
	pollInterval time.Duration
	log          *zerolog.Logger
	session      string
	mu           sync.RWMutex
	source       string
}

// New creates a new App instance with the given configuration.
func New(config Config) *App {
	a := &App{
		config:  config,
		alarm:   config.Alarm,
		display: config.Display,
		openFile: func(path string) capture.Source {
			return capture.NewFileSource(path)
		},
		openCamera: func(index int) capture.Source {
			return capture.NewCameraSource(index)
		},
		pollInterval: DirPollInterval,
		session:      uuid.NewString(),
	}

	if a.alarm == nil {
		a.alarm = alarm.NewController(alarm.NewCommandPlayer(alarm.DefaultSoundPath))
	}
	if a.display == nil {
		a.display = display.WindowFactory()
	}

	l := logger.WithComponent("app").With().Str("session", a.session).Logger()
	a.log = &l

	return a
}

// SetDetector overrides the per-source fire detector.
func (a *App) SetDetector(d detector.Detector) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.detector = d
}

// detectorFor returns the override detector or a FireDetector for cfg.
func (a *App) detectorFor(cfg detector.Config) detector.Detector {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.detector != nil {
		return a.detector
	}
	return detector.NewFireDetector(cfg)
}

// AddObserver registers o for every processed frame. It must be called before
// Watch or RunCamera.
func (a *App) AddObserver(o Observer) {
	a.config.Observers = append(a.config.Observers, o)
}

// Alarm returns the alarm controller.
func (a *App) Alarm() *alarm.Controller {
	return a.alarm
}

// Session returns the id of this run.
func (a *App) Session() string {
	return a.session
}

// Source returns the name of the source currently being read.
func (a *App) Source() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.source
}

func (a *App) setSource(name string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.source = name
}
