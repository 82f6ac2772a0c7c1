package server

import (
	"fmt"
	"net/http"
	"time"
)

// StreamInterval is the MJPEG frame interval (~15 FPS).
const StreamInterval = 66 * time.Millisecond

// StreamHandler serves the latest masked frame as MJPEG.
type StreamHandler struct {
	monitor *Monitor
}

// NewStreamHandler creates a new StreamHandler over monitor.
func NewStreamHandler(monitor *Monitor) *StreamHandler {
	return &StreamHandler{monitor: monitor}
}

// ServeHTTP streams MJPEG frames to connected clients. A frame is written only
// when the monitor has a newer one than the last sent.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	detach := h.monitor.AttachViewer()
	defer detach()

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}

	ticker := time.NewTicker(StreamInterval)
	defer ticker.Stop()

	var sent uint64
	for {
		if jpeg, seq := h.monitor.Frame(); seq != sent {
			if err := writePart(w, jpeg); err != nil {
				return
			}
			sent = seq
		}

		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}
	}
}

func writePart(w http.ResponseWriter, jpeg []byte) error {
	if _, err := fmt.Fprintf(w, "--frame\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", len(jpeg)); err != nil {
		return err
	}
	if _, err := w.Write(jpeg); err != nil {
		return err
	}
	if _, err := fmt.Fprint(w, "\r\n"); err != nil {
		return err
	}
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
	return nil
}
