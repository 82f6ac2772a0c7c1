package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"go.uber.org/multierr"

	"github.com/ayusman/firewatch/internal/capture"
	"github.com/ayusman/firewatch/internal/detector"
	"github.com/ayusman/firewatch/internal/display"
)

// Watch analyzes the newest recording in the watch directory.
//
// The newest file is selected at start and again whenever the loop hands
// control back with KeySwitch. There is no re-scan while a file is being
// read. Watch returns nil on KeyStop or when ctx is cancelled.
func (a *App) Watch(ctx context.Context) (err error) {
	dir := a.config.WatchDir

	info, statErr := os.Stat(dir)
	if statErr != nil || !info.IsDir() {
		a.log.Error().Str("dir", dir).Msg("Video folder not found")
		return fmt.Errorf("%w: %s", ErrWatchDirMissing, dir)
	}

	a.log.Info().Str("dir", dir).Msg("Monitoring folder for live video...")

	det := a.detectorFor(detector.WatchConfig())

	var (
		disp   display.Display
		waiter *dirWaiter
	)
	defer func() {
		if waiter != nil {
			waiter.Close()
		}
		if disp != nil {
			err = multierr.Append(err, disp.Close())
		}
	}()

	for {
		if ctx.Err() != nil {
			return nil
		}

		path, scanErr := capture.LatestVideoFile(dir)
		if errors.Is(scanErr, capture.ErrNoVideo) {
			a.log.Info().Msg("No video found. Waiting...")
			if waiter == nil {
				waiter = newDirWaiter(dir, a.log)
			}
			if !waiter.Wait(ctx, a.pollInterval) {
				return nil
			}
			continue
		}
		if scanErr != nil {
			return fmt.Errorf("scan %s: %w", dir, scanErr)
		}

		if waiter != nil {
			waiter.Close()
			waiter = nil
		}

		a.log.Info().Str("file", path).Msg("Analyzing")

		src := a.openFile(path)
		if openErr := src.Open(); openErr != nil {
			a.log.Warn().Err(openErr).Str("file", path).Msg("Cannot open video, rescanning")
			if !sleepContext(ctx, a.pollInterval) {
				return nil
			}
			continue
		}

		if disp == nil {
			disp = a.display()
		}

		a.setSource(path)
		reason, loopErr := a.runLoop(ctx, src, det, disp, retryOnGap)
		if loopErr != nil {
			return loopErr
		}
		if reason != exitSwitch {
			return nil
		}
	}
}

// RunCamera analyzes the live camera until the stream ends, a quit key is
// pressed or ctx is cancelled. A camera that cannot be opened is fatal and no
// display is created.
func (a *App) RunCamera(ctx context.Context) (err error) {
	src := a.openCamera(a.config.CameraIndex)
	if openErr := src.Open(); openErr != nil {
		a.log.Error().Err(openErr).Int("camera", a.config.CameraIndex).Msg("Cannot open camera")
		return fmt.Errorf("%w: %v", ErrCameraOpen, openErr)
	}

	disp := a.display()
	defer func() {
		err = multierr.Append(err, disp.Close())
	}()

	a.setSource(src.Name())
	_, err = a.runLoop(ctx, src, a.detectorFor(detector.CameraConfig()), disp, stopOnGap)
	return err
}

// dirWaiter sleeps between directory scans and wakes early when a video file
// is created. Without a working fsnotify watcher it only sleeps.
type dirWaiter struct {
	watcher *fsnotify.Watcher
}

func newDirWaiter(dir string, log *zerolog.Logger) *dirWaiter {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Debug().Err(err).Msg("fsnotify unavailable, polling only")
		return &dirWaiter{}
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		log.Debug().Err(err).Str("dir", dir).Msg("Cannot watch folder, polling only")
		return &dirWaiter{}
	}
	return &dirWaiter{watcher: watcher}
}

// Wait blocks until timeout passes or a video file appears. It reports false
// if ctx was cancelled.
func (w *dirWaiter) Wait(ctx context.Context, timeout time.Duration) bool {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var (
		events <-chan fsnotify.Event
		errs   <-chan error
	)
	if w.watcher != nil {
		events = w.watcher.Events
		errs = w.watcher.Errors
	}

	for {
		select {
		case <-ctx.Done():
			return false
		case <-timer.C:
			return true
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if ev.Has(fsnotify.Create) && capture.IsVideoFile(ev.Name) {
				return true
			}
		case _, ok := <-errs:
			if !ok {
				errs = nil
			}
		}
	}
}

func (w *dirWaiter) Close() {
	if w.watcher != nil {
		w.watcher.Close()
	}
}
