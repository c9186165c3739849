// internal/handler/serial_handler.go
package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-contrib/sse"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"serial-service/internal/model"
	"serial-service/internal/serialport"
	"serial-service/internal/utils"
)

// SerialHandler handles serial port lifecycle and streaming HTTP requests
type SerialHandler struct {
	manager *serialport.Manager
	logger  *utils.ServiceLogger
}

// NewSerialHandler creates a new serial handler
func NewSerialHandler(manager *serialport.Manager, logger *zap.Logger) *SerialHandler {
	return &SerialHandler{
		manager: manager,
		logger:  utils.NewServiceLogger(logger, "serial-handler"),
	}
}

// ListPorts lists available serial ports
// @Summary List available serial ports
// @Description Enumerate the serial ports currently visible to the system
// @Tags Serial
// @Produce json
// @Success 200 {object} utils.APIResponse{data=[]serialport.PortDescriptor} "Ports retrieved successfully"
// @Router /serial/ports [get]
func (h *SerialHandler) ListPorts(c *gin.Context) {
	ports := h.manager.ListPorts()
	utils.SuccessResponse(c, http.StatusOK, "Ports retrieved successfully", ports)
}

// OpenPort opens a serial port without starting to stream
// @Summary Open a serial port
// @Description Open a serial port with the given baud rate and data bits (one stop bit, no parity). Listening is a separate step.
// @Tags Serial
// @Accept json
// @Produce json
// @Param request body model.OpenPortRequest true "Port configuration"
// @Success 201 {object} utils.APIResponse{data=model.PortStatusResponse} "Port opened successfully"
// @Failure 400 {object} utils.APIResponse "Invalid request"
// @Failure 409 {object} utils.APIResponse "Port already open"
// @Failure 502 {object} utils.APIResponse "Serial transport failure"
// @Router /serial/open [post]
func (h *SerialHandler) OpenPort(c *gin.Context) {
	var req model.OpenPortRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if err := h.manager.Open(req.PortName, req.BaudRate, req.DataBits); err != nil {
		h.respondSerialError(c, req.PortName, err)
		return
	}

	h.logger.Info("Port opened via API", zap.String("port", req.PortName))
	utils.SuccessResponse(c, http.StatusCreated, "Port opened successfully",
		model.PortStatusResponse{PortName: req.PortName, Open: true})
}

// OpenAndStream opens a port, starts listening, and streams framed messages
// over Server-Sent Events on the same response.
// @Summary Open a serial port and stream its data
// @Description Open the port, start the listener, and stream framed messages as Server-Sent Events (event: serialData)
// @Tags Serial
// @Accept json
// @Produce text/event-stream
// @Param request body model.OpenPortRequest true "Port configuration"
// @Success 200 {string} string "SSE stream"
// @Failure 400 {object} utils.APIResponse "Invalid request"
// @Failure 409 {object} utils.APIResponse "Port already open"
// @Failure 502 {object} utils.APIResponse "Serial transport failure"
// @Router /serial/open-and-stream [post]
func (h *SerialHandler) OpenAndStream(c *gin.Context) {
	var req model.OpenPortRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if err := h.manager.Open(req.PortName, req.BaudRate, req.DataBits); err != nil {
		h.respondSerialError(c, req.PortName, err)
		return
	}

	if err := h.manager.StartListening(req.PortName); err != nil {
		h.respondSerialError(c, req.PortName, err)
		return
	}

	h.logger.Info("Port opened for streaming", zap.String("port", req.PortName))
	h.streamMessages(c)
}

// PortStatus reports whether a port is held open by this process
// @Summary Check whether a port is open
// @Description Report whether this process holds the named port open, reconciling stale registry entries
// @Tags Serial
// @Produce json
// @Param port query string true "System port name" example:"/dev/ttyUSB0"
// @Success 200 {object} utils.APIResponse{data=model.PortStatusResponse} "Port status retrieved"
// @Failure 400 {object} utils.APIResponse "Missing port parameter"
// @Router /serial/status [get]
func (h *SerialHandler) PortStatus(c *gin.Context) {
	name := c.Query("port")
	if name == "" {
		utils.ErrorResponse(c, http.StatusBadRequest, "Query parameter 'port' is required", nil)
		return
	}

	open := h.manager.IsOpen(name)
	utils.SuccessResponse(c, http.StatusOK, "Port status retrieved",
		model.PortStatusResponse{PortName: name, Open: open})
}

// ClosePort closes a serial port
// @Summary Close a serial port
// @Description Stop the port's listener, release the handle, and deregister the session. Closing an unregistered port is reported, not an error.
// @Tags Serial
// @Accept json
// @Produce json
// @Param request body model.PortRequest true "Port to close"
// @Success 200 {object} utils.APIResponse{data=model.ClosePortResponse} "Close processed"
// @Failure 400 {object} utils.APIResponse "Invalid request"
// @Router /serial/close [post]
func (h *SerialHandler) ClosePort(c *gin.Context) {
	var req model.PortRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	closed := h.manager.Close(req.PortName)
	message := "Port closed successfully"
	if !closed {
		message = "Port was not open, nothing to close"
	}

	utils.SuccessResponse(c, http.StatusOK, message,
		model.ClosePortResponse{PortName: req.PortName, Closed: closed})
}

// StartListening starts the read loop for an open port
// @Summary Start listening on an open port
// @Description Install the port's read loop. Duplicate starts are no-ops.
// @Tags Serial
// @Accept json
// @Produce json
// @Param request body model.PortRequest true "Port to listen on"
// @Success 200 {object} utils.APIResponse "Listening started"
// @Failure 400 {object} utils.APIResponse "Invalid request"
// @Failure 404 {object} utils.APIResponse "Port not open"
// @Router /serial/listen [post]
func (h *SerialHandler) StartListening(c *gin.Context) {
	var req model.PortRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if err := h.manager.StartListening(req.PortName); err != nil {
		h.respondSerialError(c, req.PortName, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Listening started", nil)
}

// StopListening stops the read loop for a port
// @Summary Stop listening on a port
// @Description Remove the port's read loop. A port without an active listener is a no-op.
// @Tags Serial
// @Accept json
// @Produce json
// @Param request body model.PortRequest true "Port to stop listening on"
// @Success 200 {object} utils.APIResponse "Listening stopped"
// @Failure 400 {object} utils.APIResponse "Invalid request"
// @Router /serial/listen/stop [post]
func (h *SerialHandler) StopListening(c *gin.Context) {
	var req model.PortRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	h.manager.StopListening(req.PortName)
	utils.SuccessResponse(c, http.StatusOK, "Listening stopped", nil)
}

// Stream subscribes the caller to the framed message stream over SSE
// @Summary Stream framed serial messages
// @Description Subscribe to the broadcast hub and receive framed messages from every listening port as Server-Sent Events
// @Tags Serial
// @Produce text/event-stream
// @Success 200 {string} string "SSE stream"
// @Router /serial/stream [get]
func (h *SerialHandler) Stream(c *gin.Context) {
	h.streamMessages(c)
}

// streamMessages pumps hub messages to the client as Server-Sent Events
// until the client disconnects or the hub shuts down. Each event carries the
// serialData event name and a monotonically increasing id.
func (h *SerialHandler) streamMessages(c *gin.Context) {
	hub := h.manager.Hub()
	id, messages := hub.Subscribe()
	defer hub.Unsubscribe(id)

	h.logger.Info("Stream subscriber connected",
		zap.String("subscriber_id", id),
		zap.String("client_ip", c.ClientIP()),
	)

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	var eventID uint64
	c.Stream(func(w io.Writer) bool {
		select {
		case message, ok := <-messages:
			if !ok {
				return false
			}
			eventID++
			c.Render(-1, sse.Event{
				Id:    strconv.FormatUint(eventID, 10),
				Event: "serialData",
				Data:  message,
			})
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})

	h.logger.Info("Stream subscriber disconnected", zap.String("subscriber_id", id))
}

// respondSerialError maps core errors onto HTTP status codes.
func (h *SerialHandler) respondSerialError(c *gin.Context, port string, err error) {
	var transportErr *serialport.TransportError

	switch {
	case errors.Is(err, serialport.ErrAlreadyOpen):
		utils.ErrorResponse(c, http.StatusConflict, "Port already open", err)
	case errors.Is(err, serialport.ErrNotOpen):
		utils.ErrorResponse(c, http.StatusNotFound, "Port not open", err)
	case errors.Is(err, serialport.ErrEmptyPortName), errors.Is(err, serialport.ErrInvalidMode):
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid port parameters", err)
	case errors.As(err, &transportErr):
		utils.ErrorResponse(c, http.StatusBadGateway, "Serial transport failure", err)
	default:
		h.logger.Error("Unexpected serial error", zap.String("port", port), zap.Error(err))
		utils.ErrorResponse(c, http.StatusInternalServerError, "Serial operation failed", err)
	}
}
