package server

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gocv.io/x/gocv"

	"github.com/ayusman/firewatch/internal/alarm"
	"github.com/ayusman/firewatch/internal/detector"
	"github.com/ayusman/firewatch/internal/logger"
)

// subscriberBuffer is the number of events queued per slow client before
// events are dropped.
const subscriberBuffer = 16

// Event is one processed frame as sent to WebSocket clients.
type Event struct {
	Source     string      `json:"source"`
	Fire       bool        `json:"fire"`
	PixelCount int         `json:"pixel_count"`
	Alarm      alarm.State `json:"alarm"`
	Timestamp  int64       `json:"timestamp"`
}

// Status is the body of GET /api/status.
type Status struct {
	Session string      `json:"session"`
	Source  string      `json:"source"`
	Frames  uint64      `json:"frames"`
	Last    *Event      `json:"last,omitempty"`
	Alarm   alarm.State `json:"alarm"`
}

// Monitor collects the latest detection result for the HTTP surfaces. It
// satisfies app.Observer.
type Monitor struct {
	session string
	log     *zerolog.Logger

	mu      sync.RWMutex
	last    *Event
	frames  uint64
	jpeg    []byte
	seq     uint64
	viewers int
	subs    map[chan Event]struct{}
}

// NewMonitor creates a Monitor for the run identified by session.
func NewMonitor(session string) *Monitor {
	return &Monitor{
		session: session,
		log:     logger.WithComponent("server"),
		subs:    make(map[chan Event]struct{}),
	}
}

// Observe records result. While a stream viewer is attached the masked frame
// is encoded to JPEG before returning, since the caller closes it afterwards.
func (m *Monitor) Observe(source string, result *detector.Result, state alarm.State) {
	ev := Event{
		Source:     source,
		Fire:       result.Fire,
		PixelCount: result.PixelCount,
		Alarm:      state,
		Timestamp:  time.Now().UnixMilli(),
	}

	m.mu.RLock()
	watched := m.viewers > 0
	m.mu.RUnlock()

	var jpeg []byte
	if watched && !result.Masked.Empty() {
		buf, err := gocv.IMEncode(gocv.JPEGFileExt, result.Masked)
		if err != nil {
			m.log.Debug().Err(err).Msg("Cannot encode frame")
		} else {
			jpeg = append([]byte(nil), buf.GetBytes()...)
			buf.Close()
		}
	}

	m.mu.Lock()
	m.last = &ev
	m.frames++
	if jpeg != nil {
		m.jpeg = jpeg
		m.seq++
	}
	for ch := range m.subs {
		select {
		case ch <- ev:
		default:
			// slow client, drop
		}
	}
	m.mu.Unlock()
}

// Status returns a snapshot for GET /api/status. Alarm reflects the state seen
// with the latest frame.
func (m *Monitor) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()

	st := Status{
		Session: m.session,
		Frames:  m.frames,
	}
	if m.last != nil {
		last := *m.last
		st.Last = &last
		st.Source = last.Source
		st.Alarm = last.Alarm
	}
	return st
}

// Frame returns the latest JPEG and its sequence number. The sequence is zero
// until a frame arrives with a viewer attached.
func (m *Monitor) Frame() ([]byte, uint64) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.jpeg, m.seq
}

// AttachViewer marks a stream client as connected so frames get encoded. The
// returned func detaches it.
func (m *Monitor) AttachViewer() func() {
	m.mu.Lock()
	m.viewers++
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			m.viewers--
			m.mu.Unlock()
		})
	}
}

// Viewers returns the number of attached stream clients.
func (m *Monitor) Viewers() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.viewers
}

// Subscribe registers for events. The returned func unsubscribes and closes
// the channel.
func (m *Monitor) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)

	m.mu.Lock()
	m.subs[ch] = struct{}{}
	m.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.subs, ch)
			m.mu.Unlock()
			close(ch)
		})
	}
}

// Subscribers returns the number of registered subscribers.
func (m *Monitor) Subscribers() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.subs)
}
