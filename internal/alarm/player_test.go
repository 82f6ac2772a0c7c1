package alarm

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0755); err != nil {
		t.Fatalf("failed to write script: %v", err)
	}
	return path
}

func writeSound(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, DefaultSoundPath)
	if err := os.WriteFile(path, []byte("ID3"), 0644); err != nil {
		t.Fatalf("failed to write sound: %v", err)
	}
	return path
}

func TestCommandPlayer_Play(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("skipping test on Windows")
	}

	tmpDir := t.TempDir()
	sound := writeSound(t, tmpDir)
	marker := filepath.Join(tmpDir, "played")

	// The script records the argument it was given.
	script := writeScript(t, tmpDir, "fake-player", `echo "$@" > `+marker+"\n")

	p := NewCommandPlayer(sound)
	p.SetPlayers([]PlayerCommand{
		{Name: "definitely-not-installed-player"},
		{Name: script, Args: []string{"--quiet"}},
	})

	if err := p.Play(context.Background()); err != nil {
		t.Fatalf("Play() error = %v", err)
	}

	data, err := os.ReadFile(marker)
	if err != nil {
		t.Fatalf("player did not run: %v", err)
	}
	if got := strings.TrimSpace(string(data)); got != "--quiet "+sound {
		t.Errorf("player args = %q, want %q", got, "--quiet "+sound)
	}
}

func TestCommandPlayer_MissingSound(t *testing.T) {
	p := NewCommandPlayer(filepath.Join(t.TempDir(), "nope.mp3"))

	err := p.Play(context.Background())
	if err == nil {
		t.Fatal("expected error for missing sound file")
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("error = %v, want os.ErrNotExist", err)
	}
}

func TestCommandPlayer_NoPlayer(t *testing.T) {
	p := NewCommandPlayer(writeSound(t, t.TempDir()))
	p.SetPlayers([]PlayerCommand{{Name: "definitely-not-installed-player"}})

	if err := p.Play(context.Background()); !errors.Is(err, ErrNoPlayer) {
		t.Errorf("Play() error = %v, want ErrNoPlayer", err)
	}
}

func TestCommandPlayer_FailureIncludesStderr(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("skipping test on Windows")
	}

	tmpDir := t.TempDir()
	script := writeScript(t, tmpDir, "broken-player", "echo 'no audio device' >&2\nexit 1\n")

	p := NewCommandPlayer(writeSound(t, tmpDir))
	p.SetPlayers([]PlayerCommand{{Name: script}})

	err := p.Play(context.Background())
	if err == nil {
		t.Fatal("expected error from failing player")
	}
	if !strings.Contains(err.Error(), "no audio device") {
		t.Errorf("error = %v, want stderr included", err)
	}
}

func TestCommandPlayer_Timeout(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("skipping test on Windows")
	}

	tmpDir := t.TempDir()
	script := writeScript(t, tmpDir, "slow-player", "exec sleep 5\n")

	p := NewCommandPlayer(writeSound(t, tmpDir))
	p.SetPlayers([]PlayerCommand{{Name: script}})
	p.SetTimeout(100 * time.Millisecond)

	err := p.Play(context.Background())
	if err == nil || !strings.Contains(err.Error(), "timeout") {
		t.Errorf("Play() error = %v, want timeout", err)
	}
}

func TestCommandPlayer_SetTimeout_IgnoresNonPositive(t *testing.T) {
	p := NewCommandPlayer(DefaultSoundPath)
	p.SetTimeout(0)
	p.SetTimeout(-time.Second)

	if p.timeout != DefaultPlaybackTimeout {
		t.Errorf("timeout = %v, want %v", p.timeout, DefaultPlaybackTimeout)
	}
	if p.SoundPath() != DefaultSoundPath {
		t.Errorf("SoundPath() = %q", p.SoundPath())
	}
}
