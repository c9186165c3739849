// internal/serialport/factory.go
package serialport

import (
	"fmt"

	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

// serialTransport is the production Transport backed by go.bug.st/serial.
type serialTransport struct {
	cfg Config
}

// NewSerialTransport creates a Transport backed by the host's real serial
// ports.
func NewSerialTransport(cfg Config) Transport {
	return &serialTransport{cfg: cfg.withDefaults()}
}

// ListPorts enumerates the serial ports attached to the system, including a
// human-readable description where the driver exposes one.
func (t *serialTransport) ListPorts() ([]PortDescriptor, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, err
	}

	descriptors := make([]PortDescriptor, 0, len(details))
	for _, detail := range details {
		descriptors = append(descriptors, PortDescriptor{
			SystemName:      detail.Name,
			DescriptiveName: describePort(detail),
		})
	}
	return descriptors, nil
}

// Open opens the named port with the requested baud rate and data bits, one
// stop bit, no parity, and a semi-blocking read timeout.
func (t *serialTransport) Open(name string, mode Mode) (Port, error) {
	serialMode := &serial.Mode{
		BaudRate: mode.BaudRate,
		DataBits: mode.DataBits,
		StopBits: serial.OneStopBit,
		Parity:   serial.NoParity,
	}

	port, err := serial.Open(name, serialMode)
	if err != nil {
		return nil, err
	}

	if err := port.SetReadTimeout(t.cfg.ReadTimeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("failed to set read timeout: %w", err)
	}

	return port, nil
}

// describePort builds the descriptive name for an enumerated port, preferring
// the USB product string when the driver provides one.
func describePort(detail *enumerator.PortDetails) string {
	if detail.IsUSB && detail.Product != "" {
		if detail.SerialNumber != "" {
			return fmt.Sprintf("%s (S/N %s)", detail.Product, detail.SerialNumber)
		}
		return detail.Product
	}
	return detail.Name
}
