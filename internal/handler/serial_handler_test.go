// internal/handler/serial_handler_test.go
package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"serial-service/internal/serialport"
)

// apiEnvelope mirrors utils.APIResponse for decoding test responses.
type apiEnvelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Details string `json:"details"`
	} `json:"error"`
}

// closeNotifyRecorder adds the CloseNotifier interface gin's streaming
// helpers require on top of the plain httptest recorder.
type closeNotifyRecorder struct {
	*httptest.ResponseRecorder
	closed chan bool
}

func newCloseNotifyRecorder() *closeNotifyRecorder {
	return &closeNotifyRecorder{httptest.NewRecorder(), make(chan bool, 1)}
}

func (r *closeNotifyRecorder) CloseNotify() <-chan bool {
	return r.closed
}

func newTestRouter(t *testing.T) (*gin.Engine, *serialport.MockTransport, *serialport.Manager) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	transport := serialport.NewMockTransport(
		serialport.PortDescriptor{SystemName: "/dev/ttyUSB0", DescriptiveName: "FTDI USB Serial"},
	)
	cfg := serialport.Config{
		ReadTimeout:      5 * time.Millisecond,
		ReadBufferSize:   256,
		SubscriberBuffer: 16,
	}
	logger := zap.NewNop()
	manager := serialport.NewManager(transport, serialport.NewHub(16, logger), cfg, logger)
	t.Cleanup(manager.Shutdown)

	router := gin.New()
	h := NewSerialHandler(manager, logger)
	api := router.Group("/api/v1/serial")
	api.GET("/ports", h.ListPorts)
	api.GET("/status", h.PortStatus)
	api.POST("/open", h.OpenPort)
	api.POST("/close", h.ClosePort)
	api.POST("/listen", h.StartListening)
	api.POST("/listen/stop", h.StopListening)
	api.POST("/open-and-stream", h.OpenAndStream)
	api.GET("/stream", h.Stream)

	return router, transport, manager
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body string) (*httptest.ResponseRecorder, apiEnvelope) {
	t.Helper()

	var reader *bytes.Reader
	if body == "" {
		reader = bytes.NewReader(nil)
	} else {
		reader = bytes.NewReader([]byte(body))
	}

	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var envelope apiEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	return rec, envelope
}

func TestListPortsEndpoint(t *testing.T) {
	router, _, _ := newTestRouter(t)

	rec, envelope := doJSON(t, router, http.MethodGet, "/api/v1/serial/ports", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, envelope.Success)

	var ports []serialport.PortDescriptor
	require.NoError(t, json.Unmarshal(envelope.Data, &ports))
	require.Len(t, ports, 1)
	assert.Equal(t, "/dev/ttyUSB0", ports[0].SystemName)
	assert.Equal(t, "FTDI USB Serial", ports[0].DescriptiveName)
}

func TestOpenEndpoint(t *testing.T) {
	router, _, manager := newTestRouter(t)

	rec, envelope := doJSON(t, router, http.MethodPost, "/api/v1/serial/open",
		`{"port_name":"/dev/ttyUSB0","baud_rate":9600,"data_bits":8}`)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.True(t, envelope.Success)
	assert.True(t, manager.IsOpen("/dev/ttyUSB0"))

	// Second open of the same port is a conflict
	rec, envelope = doJSON(t, router, http.MethodPost, "/api/v1/serial/open",
		`{"port_name":"/dev/ttyUSB0","baud_rate":9600,"data_bits":8}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "CONFLICT", envelope.Error.Code)
}

func TestOpenEndpointRejectsInvalidBody(t *testing.T) {
	router, _, _ := newTestRouter(t)

	rec, envelope := doJSON(t, router, http.MethodPost, "/api/v1/serial/open",
		`{"port_name":"/dev/ttyUSB0"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, envelope.Success)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "BAD_REQUEST", envelope.Error.Code)
}

func TestOpenEndpointTransportFailure(t *testing.T) {
	router, transport, manager := newTestRouter(t)
	transport.OpenErr = errors.New("device disappeared")

	rec, envelope := doJSON(t, router, http.MethodPost, "/api/v1/serial/open",
		`{"port_name":"/dev/ttyUSB0","baud_rate":9600,"data_bits":8}`)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "TRANSPORT_ERROR", envelope.Error.Code)
	assert.False(t, manager.IsOpen("/dev/ttyUSB0"))
}

func TestStatusEndpoint(t *testing.T) {
	router, _, manager := newTestRouter(t)

	rec, _ := doJSON(t, router, http.MethodGet, "/api/v1/serial/status", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, envelope := doJSON(t, router, http.MethodGet, "/api/v1/serial/status?port=/dev/ttyUSB0", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(envelope.Data), `"open":false`)

	require.NoError(t, manager.Open("/dev/ttyUSB0", 9600, 8))

	rec, envelope = doJSON(t, router, http.MethodGet, "/api/v1/serial/status?port=/dev/ttyUSB0", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(envelope.Data), `"open":true`)
}

func TestCloseEndpoint(t *testing.T) {
	router, _, manager := newTestRouter(t)

	// Closing a port that was never opened is reported, not rejected
	rec, envelope := doJSON(t, router, http.MethodPost, "/api/v1/serial/close",
		`{"port_name":"/dev/ttyUSB0"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(envelope.Data), `"closed":false`)

	require.NoError(t, manager.Open("/dev/ttyUSB0", 9600, 8))

	rec, envelope = doJSON(t, router, http.MethodPost, "/api/v1/serial/close",
		`{"port_name":"/dev/ttyUSB0"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(envelope.Data), `"closed":true`)
	assert.False(t, manager.IsOpen("/dev/ttyUSB0"))
}

func TestListenEndpoints(t *testing.T) {
	router, _, manager := newTestRouter(t)

	rec, envelope := doJSON(t, router, http.MethodPost, "/api/v1/serial/listen",
		`{"port_name":"/dev/ttyUSB0"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "NOT_FOUND", envelope.Error.Code)

	require.NoError(t, manager.Open("/dev/ttyUSB0", 9600, 8))

	rec, _ = doJSON(t, router, http.MethodPost, "/api/v1/serial/listen",
		`{"port_name":"/dev/ttyUSB0"}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	info, ok := manager.FindSession("/dev/ttyUSB0")
	require.True(t, ok)
	assert.True(t, info.Listening)

	rec, _ = doJSON(t, router, http.MethodPost, "/api/v1/serial/listen/stop",
		`{"port_name":"/dev/ttyUSB0"}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	info, ok = manager.FindSession("/dev/ttyUSB0")
	require.True(t, ok)
	assert.False(t, info.Listening)

	// Stopping again is a no-op
	rec, _ = doJSON(t, router, http.MethodPost, "/api/v1/serial/listen/stop",
		`{"port_name":"/dev/ttyUSB0"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestStreamDeliversSerialDataEvents(t *testing.T) {
	router, transport, manager := newTestRouter(t)

	require.NoError(t, manager.Open("/dev/ttyUSB0", 9600, 8))
	require.NoError(t, manager.StartListening("/dev/ttyUSB0"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/serial/stream", nil).WithContext(ctx)
	rec := newCloseNotifyRecorder()

	served := make(chan struct{})
	go func() {
		defer close(served)
		router.ServeHTTP(rec, req)
	}()

	// The handler must be subscribed before data is pushed; the hub does
	// not replay.
	require.Eventually(t, func() bool {
		return manager.Hub().SubscriberCount() == 1
	}, time.Second, 5*time.Millisecond)

	// Watch delivery through a second subscriber so the test knows when
	// the hub has published.
	watchID, watch := manager.Hub().Subscribe()
	defer manager.Hub().Unsubscribe(watchID)

	port := transport.Port("/dev/ttyUSB0")
	require.NotNil(t, port)
	port.PushString("hello,world\n")

	for i := 0; i < 2; i++ {
		select {
		case <-watch:
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for published messages")
		}
	}

	// Give the stream loop a moment to flush the buffered events before
	// tearing the request down.
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-served:
	case <-time.After(time.Second):
		t.Fatal("stream handler did not return after context cancellation")
	}

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))

	body := rec.Body.String()
	assert.Contains(t, body, "event:serialData")
	assert.Contains(t, body, "data:hello")
	assert.Contains(t, body, "data:world")
	assert.Contains(t, body, "id:1")
	assert.Contains(t, body, "id:2")
}

func TestOpenAndStreamEndpoint(t *testing.T) {
	router, transport, manager := newTestRouter(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	body := strings.NewReader(`{"port_name":"/dev/ttyUSB0","baud_rate":115200,"data_bits":8}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/serial/open-and-stream", body).WithContext(ctx)
	req.Header.Set("Content-Type", "application/json")
	rec := newCloseNotifyRecorder()

	served := make(chan struct{})
	go func() {
		defer close(served)
		router.ServeHTTP(rec, req)
	}()

	require.Eventually(t, func() bool {
		info, ok := manager.FindSession("/dev/ttyUSB0")
		return ok && info.Listening && manager.Hub().SubscriberCount() == 1
	}, time.Second, 5*time.Millisecond)

	watchID, watch := manager.Hub().Subscribe()
	defer manager.Hub().Unsubscribe(watchID)

	port := transport.Port("/dev/ttyUSB0")
	require.NotNil(t, port)
	port.PushString("telemetry,")

	select {
	case <-watch:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for published message")
	}

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-served:
	case <-time.After(time.Second):
		t.Fatal("stream handler did not return after context cancellation")
	}

	assert.Contains(t, rec.Body.String(), "data:telemetry")

	// The client going away ends the stream but leaves the session open
	assert.True(t, manager.IsOpen("/dev/ttyUSB0"))
}

func TestOpenAndStreamConflict(t *testing.T) {
	router, _, manager := newTestRouter(t)

	require.NoError(t, manager.Open("/dev/ttyUSB0", 9600, 8))

	rec, envelope := doJSON(t, router, http.MethodPost, "/api/v1/serial/open-and-stream",
		`{"port_name":"/dev/ttyUSB0","baud_rate":9600,"data_bits":8}`)

	assert.Equal(t, http.StatusConflict, rec.Code)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "CONFLICT", envelope.Error.Code)
}
