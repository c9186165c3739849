// internal/model/serial.go
package model

// OpenPortRequest is the payload for opening a serial port. Stop bits and
// parity are fixed service policy and deliberately not configurable.
type OpenPortRequest struct {
	PortName string `json:"port_name" binding:"required" example:"/dev/ttyUSB0"`
	BaudRate int    `json:"baud_rate" binding:"required,gt=0" example:"9600"`
	DataBits int    `json:"data_bits" binding:"required,gt=0" example:"8"`
}

// PortRequest addresses an already-known port by its system name.
type PortRequest struct {
	PortName string `json:"port_name" binding:"required" example:"/dev/ttyUSB0"`
}

// PortStatusResponse reports whether this process holds a port open.
type PortStatusResponse struct {
	PortName string `json:"port_name"`
	Open     bool   `json:"open"`
}

// ClosePortResponse reports the outcome of a close request. Closed is false
// only when the port was not a registered session.
type ClosePortResponse struct {
	PortName string `json:"port_name"`
	Closed   bool   `json:"closed"`
}
