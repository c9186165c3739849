// internal/serialport/session.go
package serialport

import (
	"context"
	"sync"
	"sync/atomic"
)

// session is the process-owned record of one opened serial port. The manager
// owns the session exclusively; exactly one session may exist per port name.
type session struct {
	name     string
	port     Port
	baudRate int
	dataBits int

	// failed is set when the read loop hits a fatal transport error. The
	// registry entry is then stale and IsOpen reconciles it away.
	failed atomic.Bool

	// mu guards the framer and the listener state. The framer is only
	// ever touched by this session's read loop, but the guard protects
	// against a racing StopListening/Close shrinking the buffer mid-scan.
	mu        sync.Mutex
	framer    Framer
	listening bool
	cancel    context.CancelFunc
	done      chan struct{}
}

func newSession(name string, port Port, mode Mode) *session {
	return &session{
		name:     name,
		port:     port,
		baudRate: mode.BaudRate,
		dataBits: mode.DataBits,
	}
}

// beginListening flips the session into listening state and returns the
// context the read loop runs under together with the channel the loop must
// close on exit. The last return is false when a listener is already
// installed, which callers treat as a no-op.
func (s *session) beginListening() (context.Context, chan struct{}, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listening {
		return nil, nil, false
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.listening = true
	s.cancel = cancel
	s.done = make(chan struct{})
	return ctx, s.done, true
}

// endListening cancels the read loop if one is installed and returns the
// channel that closes once the loop has fully exited. The second return is
// false when there was no active listener.
func (s *session) endListening() (<-chan struct{}, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.listening || s.cancel == nil {
		return nil, false
	}

	s.cancel()
	s.listening = false
	s.cancel = nil
	return s.done, true
}

// markStopped records that the read loop exited on its own, without an
// explicit StopListening.
func (s *session) markStopped() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listening = false
	s.cancel = nil
}

// isListening reports whether a read loop is currently installed.
func (s *session) isListening() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listening
}

// feed hands a freshly-read chunk to the session's framer under its buffer
// lock and returns the extracted messages.
func (s *session) feed(chunk []byte) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.framer.Feed(chunk)
}
