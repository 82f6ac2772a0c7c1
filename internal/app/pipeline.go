package app

import (
	"context"
	"errors"
	"time"

	"github.com/ayusman/firewatch/internal/capture"
	"github.com/ayusman/firewatch/internal/detector"
	"github.com/ayusman/firewatch/internal/display"
)

// gapPolicy decides what an empty read means.
type gapPolicy int

const (
	// retryOnGap waits and reads the same handle again (growing file).
	retryOnGap gapPolicy = iota
	// stopOnGap ends the stream (live camera).
	stopOnGap
)

// exitReason tells the caller why runLoop returned.
type exitReason int

const (
	exitStop   exitReason = iota // stop key, cancellation or error
	exitSwitch                   // switch key: hand back to the folder watcher
	exitEnd                      // end of stream
)

// runLoop is the main detection loop over one open source.
//
// Loop logic:
// 1. Read a frame; on a gap retry after FileRetryDelay or end the stream
// 2. Detect fire on the frame
// 3. On fire, notify the alarm controller
// 4. Show the masked frame and publish it to observers
// 5. Poll for a key press
//
// The source is closed before returning. The display belongs to the caller.
func (a *App) runLoop(ctx context.Context, src capture.Source, det detector.Detector, disp display.Display, policy gapPolicy) (exitReason, error) {
	defer func() {
		if err := src.Close(); err != nil {
			a.log.Warn().Err(err).Str("source", src.Name()).Msg("Error closing source")
		}
	}()

	for {
		if ctx.Err() != nil {
			return exitStop, nil
		}

		frame, err := src.Read()
		if err != nil {
			if !errors.Is(err, capture.ErrNoFrame) {
				return exitStop, err
			}
			if policy == stopOnGap {
				a.log.Info().Str("source", src.Name()).Msg("End of stream")
				return exitEnd, nil
			}

			// Writer has not flushed yet; keep the window responsive while waiting
			if reason, done := a.pollKey(disp, policy); done {
				return reason, nil
			}
			if !sleepContext(ctx, FileRetryDelay) {
				return exitStop, nil
			}
			continue
		}

		result, err := det.Detect(frame)
		frame.Close()
		if err != nil {
			a.log.Warn().Err(err).Msg("Error detecting fire")
			continue
		}

		if result.Fire {
			a.alarm.OnDetection(ctx, result.PixelCount)
		}

		disp.Show(result.Masked)
		a.publish(src.Name(), &result)
		result.Close()

		if reason, done := a.pollKey(disp, policy); done {
			return reason, nil
		}
	}
}

// pollKey checks the display for a quit key.
func (a *App) pollKey(disp display.Display, policy gapPolicy) (exitReason, bool) {
	switch disp.WaitKey(KeyPollDelay) {
	case KeySwitch:
		if policy == retryOnGap {
			return exitSwitch, true
		}
		return exitStop, true
	case KeyStop:
		return exitStop, true
	}
	return exitStop, false
}

func (a *App) publish(source string, result *detector.Result) {
	if len(a.config.Observers) == 0 {
		return
	}

	state := a.alarm.Snapshot()
	for _, o := range a.config.Observers {
		o.Observe(source, result, state)
	}
}

// sleepContext waits for d and reports false if ctx was cancelled first.
func sleepContext(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
