package alarm

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"
)

// Playback defaults.
const (
	DefaultSoundPath = "alarm-sound.mp3"
	// DefaultPlaybackTimeout bounds a single playback run.
	DefaultPlaybackTimeout = 30 * time.Second
)

// ErrNoPlayer is returned when none of the candidate audio players is installed.
var ErrNoPlayer = errors.New("no audio player found")

// PlayerCommand is an external audio player invocation. The sound path is
// appended after Args.
type PlayerCommand struct {
	Name string
	Args []string
}

// DefaultPlayers lists the audio players tried in order.
func DefaultPlayers() []PlayerCommand {
	return []PlayerCommand{
		{Name: "ffplay", Args: []string{"-nodisp", "-autoexit", "-loglevel", "quiet"}},
		{Name: "mpg123", Args: []string{"-q"}},
		{Name: "afplay"},
		{Name: "paplay"},
	}
}

// CommandPlayer plays a sound file through the first available system player.
type CommandPlayer struct {
	soundPath string
	timeout   time.Duration
	players   []PlayerCommand
}

// NewCommandPlayer creates a CommandPlayer for soundPath with the default
// players and timeout.
func NewCommandPlayer(soundPath string) *CommandPlayer {
	return &CommandPlayer{
		soundPath: soundPath,
		timeout:   DefaultPlaybackTimeout,
		players:   DefaultPlayers(),
	}
}

// SetPlayers replaces the candidate players.
func (p *CommandPlayer) SetPlayers(players []PlayerCommand) {
	p.players = players
}

// SetTimeout sets the playback timeout. Values less than or equal to 0 are ignored.
func (p *CommandPlayer) SetTimeout(timeout time.Duration) {
	if timeout <= 0 {
		return
	}
	p.timeout = timeout
}

// SoundPath returns the sound file path.
func (p *CommandPlayer) SoundPath() string {
	return p.soundPath
}

// Play runs the player on the sound file and waits for it to exit.
func (p *CommandPlayer) Play(ctx context.Context) error {
	if _, err := os.Stat(p.soundPath); err != nil {
		return fmt.Errorf("alarm sound: %w", err)
	}

	player, err := p.lookup()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	args := append(append([]string{}, player.Args...), p.soundPath)
	cmd := exec.CommandContext(ctx, player.Name, args...)

	cmd.WaitDelay = time.Second

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err = cmd.Run()

	if ctx.Err() == context.DeadlineExceeded {
		return fmt.Errorf("%s: playback timeout after %s", player.Name, p.timeout)
	}

	if err != nil {
		if s := stderr.String(); s != "" {
			return fmt.Errorf("%s failed: %w, stderr: %s", player.Name, err, s)
		}
		return fmt.Errorf("%s failed: %w", player.Name, err)
	}

	return nil
}

func (p *CommandPlayer) lookup() (PlayerCommand, error) {
	for _, candidate := range p.players {
		path, err := exec.LookPath(candidate.Name)
		if err != nil {
			continue
		}
		candidate.Name = path
		return candidate, nil
	}
	return PlayerCommand{}, ErrNoPlayer
}
