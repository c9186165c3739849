// internal/serialport/transport.go

// Package serialport manages the lifecycle of serial-line connections and
// converts the raw byte stream arriving from each open port into discrete,
// delimiter-framed messages, which it fans out to any number of concurrent
// subscribers through a broadcast hub.
package serialport

import (
	"io"
	"time"
)

// PortDescriptor describes one system-visible serial port. Descriptors are
// produced fresh on every enumeration and are never cached.
type PortDescriptor struct {
	SystemName      string `json:"system_name"`
	DescriptiveName string `json:"descriptive_name"`
}

// Mode holds the caller-configurable communication parameters. Stop bits and
// parity are fixed policy (one stop bit, no parity) and are applied by the
// transport itself.
type Mode struct {
	BaudRate int
	DataBits int
}

// Port is the handle the manager holds for one opened serial device.
type Port interface {
	io.ReadWriteCloser

	// SetReadTimeout switches the port into semi-blocking reads: Read
	// returns promptly with whatever bytes are available instead of
	// blocking indefinitely.
	SetReadTimeout(timeout time.Duration) error
}

// Transport abstracts the device-enumeration and port-opening facility so
// the manager can be exercised without real hardware.
type Transport interface {
	// ListPorts enumerates the serial ports currently visible to the
	// system. Zero attached devices yields an empty slice, not an error.
	ListPorts() ([]PortDescriptor, error)

	// Open acquires a handle for the named port configured with the given
	// mode plus the fixed stop-bit/parity policy and a semi-blocking read
	// timeout.
	Open(name string, mode Mode) (Port, error)
}

// Config carries the tunables of the serial core.
type Config struct {
	// ReadTimeout is the semi-blocking read timeout applied to every
	// opened port.
	ReadTimeout time.Duration

	// ReadBufferSize is the size of the chunk buffer used by each
	// session's read loop.
	ReadBufferSize int

	// SubscriberBuffer is the per-subscriber delivery buffer of the
	// broadcast hub. A subscriber that falls further behind than this
	// misses messages rather than stalling the read loops.
	SubscriberBuffer int
}

// DefaultConfig returns the tunables used when no configuration is supplied.
func DefaultConfig() Config {
	return Config{
		ReadTimeout:      100 * time.Millisecond,
		ReadBufferSize:   4096,
		SubscriberBuffer: 64,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = def.ReadTimeout
	}
	if c.ReadBufferSize <= 0 {
		c.ReadBufferSize = def.ReadBufferSize
	}
	if c.SubscriberBuffer <= 0 {
		c.SubscriberBuffer = def.SubscriberBuffer
	}
	return c
}
