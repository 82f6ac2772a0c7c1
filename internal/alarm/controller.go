// Package alarm tracks the latched fire alarm and starts the alert sound.
package alarm

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ayusman/firewatch/internal/logger"
)

// Player plays the alert sound once. Play blocks until playback ends.
type Player interface {
	Play(ctx context.Context) error
}

// PlayerFunc adapts a function to Player.
type PlayerFunc func(ctx context.Context) error

// Play calls f(ctx).
func (f PlayerFunc) Play(ctx context.Context) error {
	return f(ctx)
}

// State is a point-in-time copy of the alarm.
type State struct {
	// Active latches on the first detection and is never cleared.
	Active bool `json:"active"`
	// FireEvents counts every frame that was classified as fire.
	FireEvents uint64 `json:"fire_events"`
	// Activation identifies the latched alarm; empty while inactive.
	Activation  string    `json:"activation,omitempty"`
	ActivatedAt time.Time `json:"activated_at,omitempty"`
}

// Controller owns the alarm state. OnDetection must only be called from the
// detection loop; Snapshot is safe from any goroutine.
type Controller struct {
	player Player
	log    *zerolog.Logger
	now    func() time.Time
	mu     sync.Mutex
	state  State
	wg     sync.WaitGroup
}

// Option configures a Controller.
type Option func(*Controller)

// WithClock overrides the time source for State.ActivatedAt. Log lines keep
// their own timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// NewController creates an inactive Controller that plays alerts with player.
func NewController(player Player, opts ...Option) *Controller {
	c := &Controller{
		player: player,
		log:    logger.WithComponent("alarm"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// OnDetection records one fire-positive frame. The first call starts the alert
// sound in the background and latches the alarm; later calls only count.
// It reports whether playback was started.
func (c *Controller) OnDetection(ctx context.Context, pixels int) bool {
	c.mu.Lock()
	c.state.FireEvents++
	events := c.state.FireEvents
	now := c.now()

	c.log.Warn().
		Uint64("event", events).
		Int("pixels", pixels).
		Msg("Fire detected!")

	if c.state.Active {
		c.mu.Unlock()
		return false
	}

	c.state.Active = true
	c.state.Activation = uuid.NewString()
	c.state.ActivatedAt = now
	activation := c.state.Activation
	c.mu.Unlock()

	c.wg.Add(1)
	go c.play(context.WithoutCancel(ctx), activation)

	return true
}

// play runs one alert. Failures stay inside this goroutine.
func (c *Controller) play(ctx context.Context, activation string) {
	defer c.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			c.log.Warn().
				Str("activation", activation).
				Err(fmt.Errorf("panic: %v", r)).
				Msg("Alarm playback crashed")
		}
	}()

	c.log.Info().Str("activation", activation).Msg("Alarm raised")

	if c.player == nil {
		return
	}

	if err := c.player.Play(ctx); err != nil {
		c.log.Warn().
			Str("activation", activation).
			Err(err).
			Msg("Alarm playback failed")
	}
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Active reports whether the alarm has latched.
func (c *Controller) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Active
}

// Wait blocks until any started playback has finished.
func (c *Controller) Wait() {
	c.wg.Wait()
}
