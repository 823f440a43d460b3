package httpserver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/semboot/capability"
	"github.com/c360/semboot/condition"
	"github.com/c360/semboot/engine"
	"github.com/c360/semboot/property"
	"github.com/c360/semboot/registry"
)

type staticSource struct {
	report *engine.Report
}

func (s *staticSource) Report() *engine.Report { return s.report }

func testServer() *Server {
	cfg := DefaultConfig()
	cfg.Bind = "127.0.0.1"
	cfg.StreamInterval = 10 * time.Millisecond
	return New(cfg, nil, nil)
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "0.0.0.0", cfg.Bind)
	assert.Equal(t, 8090, cfg.Port)
	assert.Equal(t, 5*time.Second, cfg.ShutdownTimeout)
	assert.NoError(t, cfg.Validate())
}

func TestConfig_Validate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Port = 0
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Port = 70000
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.ShutdownTimeout = 0
	assert.Error(t, cfg.Validate())
}

func TestHandleHealth(t *testing.T) {
	s := testServer()
	rec := httptest.NewRecorder()
	s.srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestHandleReport(t *testing.T) {
	s := testServer()

	// No source attached yet.
	rec := httptest.NewRecorder()
	s.srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/autoconfig", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	s.SetReportSource(&staticSource{report: &engine.Report{BootID: "boot-123"}})
	rec = httptest.NewRecorder()
	s.srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/autoconfig", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	var report engine.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, "boot-123", report.BootID)
}

func TestReportStream(t *testing.T) {
	s := testServer()
	s.SetReportSource(&staticSource{report: &engine.Report{BootID: "boot-ws"}})

	ts := httptest.NewServer(s.srv.Handler)
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/autoconfig/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()

	var report engine.Report
	require.NoError(t, conn.ReadJSON(&report))
	assert.Equal(t, "boot-ws", report.BootID)

	// The stream repeats on the configured interval.
	require.NoError(t, conn.ReadJSON(&report))
	assert.Equal(t, "boot-ws", report.BootID)
}

func TestServeAndClose(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Bind = "127.0.0.1"
	cfg.Port = 0 // ephemeral
	s := New(cfg, nil, nil)

	require.NoError(t, s.Serve())
	resp, err := http.Get("http://" + s.Addr() + "/healthz")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, s.Close())
	// Close is idempotent.
	require.NoError(t, s.Close())
}

func TestSet_Gate(t *testing.T) {
	set := Set()
	assert.Equal(t, CandidateName, set.Candidate.Name)
	require.Len(t, set.Factories, 1)
	assert.Equal(t, Role, set.Factories[0].Role)

	loader := property.NewLoader()
	require.NoError(t, loader.AddYAML(strings.NewReader("http:\n  enabled: false\n")))
	env := condition.Environment{
		Capabilities: capability.NewIndex(nil),
		Properties:   loader.Load(),
		Registry:     registry.New(),
	}
	assert.False(t, set.Factories[0].Gate()(env).Match)

	env.Properties = property.Empty()
	assert.True(t, set.Factories[0].Gate()(env).Match)
}
