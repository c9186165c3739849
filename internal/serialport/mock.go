// internal/serialport/mock.go
package serialport

import (
	"bytes"
	"errors"
	"sync"
	"time"
)

// ErrMockPortClosed is returned by MockPort reads and writes after Close.
var ErrMockPortClosed = errors.New("mock port closed")

// MockPort is an in-memory Port for tests and hardware-free development. It
// mimics semi-blocking reads: when no data is pending, Read waits briefly
// and returns zero bytes, like a real port with a read timeout.
type MockPort struct {
	mu          sync.Mutex
	readBuf     bytes.Buffer
	writeBuf    bytes.Buffer
	readErr     error
	closed      bool
	readTimeout time.Duration
	closeErr    error
	readCalls   int
}

// NewMockPort creates an open MockPort with a short simulated read timeout.
func NewMockPort() *MockPort {
	return &MockPort{readTimeout: 5 * time.Millisecond}
}

// Push makes bytes available to subsequent reads, simulating data arriving
// from the device.
func (p *MockPort) Push(data []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.readBuf.Write(data)
}

// PushString is Push for string payloads.
func (p *MockPort) PushString(data string) {
	p.Push([]byte(data))
}

// FailNextRead makes the next Read return the given error, simulating a
// fatal transport-level read failure.
func (p *MockPort) FailNextRead(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.readErr = err
}

func (p *MockPort) Read(buf []byte) (int, error) {
	p.mu.Lock()

	p.readCalls++
	if p.closed {
		p.mu.Unlock()
		return 0, ErrMockPortClosed
	}
	if p.readErr != nil {
		err := p.readErr
		p.readErr = nil
		p.mu.Unlock()
		return 0, err
	}
	if p.readBuf.Len() == 0 {
		timeout := p.readTimeout
		p.mu.Unlock()
		// Semi-blocking: wait out the timeout, then report no data.
		time.Sleep(timeout)
		return 0, nil
	}

	n, err := p.readBuf.Read(buf)
	p.mu.Unlock()
	return n, err
}

func (p *MockPort) Write(data []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return 0, ErrMockPortClosed
	}
	return p.writeBuf.Write(data)
}

func (p *MockPort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	return p.closeErr
}

// SetReadTimeout records the semi-blocking read timeout.
func (p *MockPort) SetReadTimeout(timeout time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if timeout > 0 {
		p.readTimeout = timeout
	}
	return nil
}

// Closed reports whether Close has been called.
func (p *MockPort) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// Written returns everything written to the port.
func (p *MockPort) Written() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.writeBuf.String()
}

// MockTransport is an in-memory Transport. Tests seed it with descriptors
// and retrieve the MockPort backing each opened name to feed it data.
type MockTransport struct {
	mu          sync.Mutex
	Descriptors []PortDescriptor
	ListErr     error
	OpenErr     error
	ports       map[string]*MockPort
	lastMode    Mode
}

// NewMockTransport creates an empty mock transport.
func NewMockTransport(descriptors ...PortDescriptor) *MockTransport {
	return &MockTransport{
		Descriptors: descriptors,
		ports:       make(map[string]*MockPort),
	}
}

func (t *MockTransport) ListPorts() ([]PortDescriptor, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.ListErr != nil {
		return nil, t.ListErr
	}
	return append([]PortDescriptor(nil), t.Descriptors...), nil
}

func (t *MockTransport) Open(name string, mode Mode) (Port, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.OpenErr != nil {
		return nil, t.OpenErr
	}

	// Keep the short mock timeout so read loops stay responsive in tests.
	port := NewMockPort()
	t.ports[name] = port
	t.lastMode = mode
	return port, nil
}

// Port returns the MockPort behind an opened name, or nil if the name was
// never opened.
func (t *MockTransport) Port(name string) *MockPort {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ports[name]
}

// LastMode returns the mode most recently passed to Open.
func (t *MockTransport) LastMode() Mode {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastMode
}
