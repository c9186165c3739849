// internal/serialport/manager.go
package serialport

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Manager is the session lifecycle controller and port registry. It owns
// every open session, the read loops that feed the framers, and the
// broadcast hub the framed messages are published into.
//
// All methods are safe for concurrent use from request-handling goroutines
// and from the per-session read loops.
type Manager struct {
	transport Transport
	hub       *Hub
	cfg       Config
	logger    *zap.Logger

	mu       sync.Mutex
	sessions map[string]*session
}

// SessionInfo is the externally-visible snapshot of a registered session.
type SessionInfo struct {
	PortName  string `json:"port_name"`
	BaudRate  int    `json:"baud_rate"`
	DataBits  int    `json:"data_bits"`
	Listening bool   `json:"listening"`
}

// NewManager creates a manager publishing into the given hub and opening
// ports through the given transport.
func NewManager(transport Transport, hub *Hub, cfg Config, logger *zap.Logger) *Manager {
	return &Manager{
		transport: transport,
		hub:       hub,
		cfg:       cfg.withDefaults(),
		logger:    logger.With(zap.String("component", "serial-manager")),
		sessions:  make(map[string]*session),
	}
}

// Hub returns the broadcast hub consumers subscribe to.
func (m *Manager) Hub() *Hub {
	return m.hub
}

// ListPorts enumerates the serial ports visible to the system. Zero attached
// devices is a valid state, not an error; enumeration failures are logged
// and reported as an empty list.
func (m *Manager) ListPorts() []PortDescriptor {
	descriptors, err := m.transport.ListPorts()
	if err != nil {
		m.logger.Warn("Serial port enumeration failed", zap.Error(err))
		return []PortDescriptor{}
	}
	if len(descriptors) == 0 {
		m.logger.Warn("No serial ports found on the system")
		return []PortDescriptor{}
	}

	m.logger.Info("Serial ports found", zap.Int("count", len(descriptors)))
	return descriptors
}

// FindSession returns the registered session for the port name, if this
// process holds it open.
func (m *Manager) FindSession(name string) (SessionInfo, bool) {
	m.mu.Lock()
	s, ok := m.sessions[name]
	m.mu.Unlock()
	if !ok {
		return SessionInfo{}, false
	}

	return SessionInfo{
		PortName:  s.name,
		BaudRate:  s.baudRate,
		DataBits:  s.dataBits,
		Listening: s.isListening(),
	}, true
}

// Open acquires a transport handle for the named port, configures it with
// the given baud rate and data bits (one stop bit, no parity, semi-blocking
// reads), and registers the session. Opening an already-open name fails with
// ErrAlreadyOpen; the existing session is left untouched. It does not start
// listening.
func (m *Manager) Open(name string, baudRate, dataBits int) error {
	if strings.TrimSpace(name) == "" {
		return ErrEmptyPortName
	}
	if baudRate <= 0 || dataBits <= 0 {
		return ErrInvalidMode
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[name]; exists {
		m.logger.Warn("Port already open", zap.String("port", name))
		return ErrAlreadyOpen
	}

	m.logger.Info("Opening serial port",
		zap.String("port", name),
		zap.Int("baud_rate", baudRate),
		zap.Int("data_bits", dataBits),
	)

	mode := Mode{BaudRate: baudRate, DataBits: dataBits}
	port, err := m.transport.Open(name, mode)
	if err != nil {
		m.logger.Error("Failed to open serial port",
			zap.String("port", name),
			zap.Error(err),
		)
		return &TransportError{Op: "open", Port: name, Err: err}
	}

	m.sessions[name] = newSession(name, port, mode)
	m.logger.Info("Serial port opened successfully", zap.String("port", name))
	return nil
}

// StartListening installs the read loop for an open session exactly once.
// Calling it again while a listener is running is a logged no-op. It fails
// with ErrNotOpen when no session is registered for the name.
func (m *Manager) StartListening(name string) error {
	m.mu.Lock()
	s, ok := m.sessions[name]
	m.mu.Unlock()
	if !ok {
		m.logger.Error("Cannot start listening: port not open", zap.String("port", name))
		return ErrNotOpen
	}

	ctx, done, started := s.beginListening()
	if !started {
		m.logger.Info("Listener already running, ignoring duplicate start",
			zap.String("port", name),
		)
		return nil
	}

	go m.readLoop(ctx, s, done)
	m.logger.Info("Started listener", zap.String("port", name))
	return nil
}

// StopListening removes the session's read loop and waits for it to exit.
// It is a no-op, not an error, when the session does not exist or has no
// active listener.
func (m *Manager) StopListening(name string) {
	m.mu.Lock()
	s, ok := m.sessions[name]
	m.mu.Unlock()
	if !ok {
		m.logger.Debug("No session to stop listening on", zap.String("port", name))
		return
	}

	done, stopped := s.endListening()
	if !stopped {
		m.logger.Debug("No active listener to stop", zap.String("port", name))
		return
	}

	// The in-flight read is allowed to finish naturally against a handle
	// that is still valid; only then may the caller release it.
	<-done
	m.logger.Info("Stopped listening", zap.String("port", name))
}

// Close stops the session's listener, releases the transport handle, and
// removes the session from the registry, in that order, so no read can fire
// against a released handle. It returns false only when the name is not a
// registered session. Transport-level close errors are logged and swallowed;
// the caller cannot meaningfully recover from them.
func (m *Manager) Close(name string) bool {
	m.mu.Lock()
	s, ok := m.sessions[name]
	m.mu.Unlock()
	if !ok {
		m.logger.Warn("Port not registered, nothing to close", zap.String("port", name))
		return false
	}

	m.StopListening(name)

	if err := s.port.Close(); err != nil {
		m.logger.Error("Failed to close serial port",
			zap.String("port", name),
			zap.Error(err),
		)
	}

	m.mu.Lock()
	delete(m.sessions, name)
	m.mu.Unlock()

	m.logger.Info("Serial port closed", zap.String("port", name))
	return true
}

// IsOpen reconciles the registry's belief with the transport's live state.
// A session whose read loop died on a transport error is stale: IsOpen
// deregisters it and reports false. The lazy reconciliation avoids a
// background poller.
func (m *Manager) IsOpen(name string) bool {
	m.mu.Lock()
	s, ok := m.sessions[name]
	m.mu.Unlock()
	if !ok {
		return false
	}

	if s.failed.Load() {
		m.logger.Warn("Registered port is no longer open, removing stale session",
			zap.String("port", name),
		)
		m.mu.Lock()
		delete(m.sessions, name)
		m.mu.Unlock()
		return false
	}
	return true
}

// Sessions returns a snapshot of every registered session.
func (m *Manager) Sessions() []SessionInfo {
	m.mu.Lock()
	sessions := make([]*session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.Unlock()

	infos := make([]SessionInfo, 0, len(sessions))
	for _, s := range sessions {
		infos = append(infos, SessionInfo{
			PortName:  s.name,
			BaudRate:  s.baudRate,
			DataBits:  s.dataBits,
			Listening: s.isListening(),
		})
	}
	return infos
}

// Shutdown closes every open session and shuts the hub down. Used on
// graceful process exit.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	names := make([]string, 0, len(m.sessions))
	for name := range m.sessions {
		names = append(names, name)
	}
	m.mu.Unlock()

	for _, name := range names {
		m.Close(name)
	}
	m.hub.Close()
}

// readLoop reads from the session's port until cancelled or until the
// transport reports a fatal error. Extracted messages go to the hub; a
// timed-out read delivers zero bytes and simply loops.
func (m *Manager) readLoop(ctx context.Context, s *session, done chan struct{}) {
	defer close(done)

	buf := make([]byte, m.cfg.ReadBufferSize)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		n, err := s.port.Read(buf)
		if n > 0 {
			for _, message := range s.feed(buf[:n]) {
				m.hub.Publish(message)
			}
		}
		if err != nil {
			if ctx.Err() != nil {
				// Cancelled by StopListening/Close; the handle is
				// released by the caller, not here.
				return
			}
			m.logger.Error("Serial read failed, terminating session",
				zap.String("port", s.name),
				zap.Error(err),
			)
			m.failSession(s)
			return
		}
	}
}

// failSession tears down a session whose read loop hit a fatal transport
// error: the session is marked failed, deregistered, and its handle
// released. Other sessions and the hub are unaffected.
func (m *Manager) failSession(s *session) {
	s.failed.Store(true)
	s.markStopped()

	m.mu.Lock()
	delete(m.sessions, s.name)
	m.mu.Unlock()

	if err := s.port.Close(); err != nil {
		m.logger.Error("Failed to close serial port after read error",
			zap.String("port", s.name),
			zap.Error(err),
		)
	}
}
