package capture

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gocv.io/x/gocv"
)

// VideoExtensions lists the recording suffixes the folder watcher picks up.
var VideoExtensions = []string{".mp4", ".avi"}

// ErrNoVideo is returned when a directory holds no recognized video file.
var ErrNoVideo = errors.New("no video file found")

// FileSource reads frames from a video file that may still be growing.
type FileSource struct {
	videoCapture
	path string
}

// NewFileSource creates a FileSource for path. The file is opened on Open.
func NewFileSource(path string) *FileSource {
	return &FileSource{
		videoCapture: videoCapture{target: path},
		path:         path,
	}
}

// Open opens the video file.
func (f *FileSource) Open() error {
	if err := f.open(); err != nil {
		return fmt.Errorf("open video %s: %w", f.path, err)
	}
	return nil
}

// Close releases the file handle.
func (f *FileSource) Close() error { return f.close() }

// Read reads the next frame. ErrNoFrame means the writer has not flushed more
// data yet; the handle stays valid for another attempt.
func (f *FileSource) Read() (*gocv.Mat, error) { return f.read() }

// IsOpen returns true if the file is currently open.
func (f *FileSource) IsOpen() bool { return f.isOpen() }

// Name returns the file path.
func (f *FileSource) Name() string { return f.path }

// IsVideoFile reports whether name ends in one of VideoExtensions.
func IsVideoFile(name string) bool {
	for _, ext := range VideoExtensions {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}

// LatestVideoFile returns the most recently modified video file in dir.
// Returns ErrNoVideo if there is none.
func LatestVideoFile(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}

	var (
		latest  string
		modTime time.Time
	)
	for _, entry := range entries {
		if entry.IsDir() || !IsVideoFile(entry.Name()) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue // removed between ReadDir and Info
		}

		if latest == "" || info.ModTime().After(modTime) {
			latest = filepath.Join(dir, entry.Name())
			modTime = info.ModTime()
		}
	}

	if latest == "" {
		return "", ErrNoVideo
	}

	return latest, nil
}
