// internal/serialport/errors.go
package serialport

import (
	"errors"
	"fmt"
)

var (
	// ErrAlreadyOpen is returned by Open when a session for the port name
	// is already registered. Re-opening is an explicit conflict, not a
	// silent replace.
	ErrAlreadyOpen = errors.New("port already open")

	// ErrNotOpen is returned by StartListening when no session is
	// registered for the port name.
	ErrNotOpen = errors.New("port not open")

	// ErrEmptyPortName is returned when a port name is empty or blank.
	ErrEmptyPortName = errors.New("port name cannot be empty")

	// ErrInvalidMode is returned when baud rate or data bits are not positive.
	ErrInvalidMode = errors.New("invalid port mode")
)

// TransportError wraps a failure reported by the underlying serial driver.
type TransportError struct {
	Op   string
	Port string
	Err  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("serial transport %s %s: %v", e.Op, e.Port, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
