package heartbeat

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/transcribersofreddit/torcore/pkg/storage"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	return NewServer(Config{
		Name:        "u/transcribersofreddit",
		Version:     "3.0.0",
		Environment: "testing",
	}, storage.NewMemoryStore(), nil, nil)
}

func TestHealthz(t *testing.T) {
	ts := httptest.NewServer(newTestServer(t).Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", string(body))
}

func TestStatus(t *testing.T) {
	s := newTestServer(t)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/status")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var status Status
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	assert.Equal(t, "u/transcribersofreddit", status.Name)
	assert.Equal(t, "3.0.0", status.Version)
	assert.Equal(t, "testing", status.Environment)
	assert.Equal(t, s.InstanceID(), status.InstanceID)
	_, err = uuid.Parse(status.InstanceID)
	assert.NoError(t, err)
	assert.GreaterOrEqual(t, status.UptimeSeconds, 0.0)
}

func TestMetricsEndpoint(t *testing.T) {
	metrics := NewMetrics()
	metrics.RecordCommand("ping", "allow")
	metrics.RecordPost("pics", "deny")
	metrics.RecordPollError("transient")
	metrics.RecordReload("success")

	s := NewServer(Config{Name: "bot"}, storage.NewMemoryStore(), metrics, nil)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	text := string(body)
	assert.Contains(t, text, `tor_admin_commands_total{command="ping",outcome="allow"} 1`)
	assert.Contains(t, text, `tor_post_decisions_total{outcome="deny",subreddit="pics"} 1`)
	assert.Contains(t, text, `tor_poll_errors_total{kind="transient"} 1`)
	assert.Contains(t, text, `tor_settings_reloads_total{status="success"} 1`)
}

func TestUnknownRoute(t *testing.T) {
	ts := httptest.NewServer(newTestServer(t).Handler())
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/healthz", "text/plain", strings.NewReader(""))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())
	return port
}

func TestStartStop(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	port := freePort(t)

	s := NewServer(Config{Name: "bot", PortStart: port, PortEnd: port}, store, nil, nil)
	require.NoError(t, s.Start(ctx))
	assert.Equal(t, port, s.Port())
	assert.Error(t, s.Start(ctx))

	resp, err := http.Get("http://" + s.Addr().String() + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	reserved, err := store.SIsMember(ctx, ActivePortsKey, strconv.Itoa(port))
	require.NoError(t, err)
	assert.True(t, reserved)

	// A second bot on the same range finds it taken.
	other := NewServer(Config{Name: "other", PortStart: port, PortEnd: port}, store, nil, nil)
	assert.ErrorIs(t, other.Start(ctx), ErrNoFreePort)

	require.NoError(t, s.Stop(ctx))
	assert.Nil(t, s.Addr())

	reserved, err = store.SIsMember(ctx, ActivePortsKey, strconv.Itoa(port))
	require.NoError(t, err)
	assert.False(t, reserved)

	assert.NoError(t, s.Stop(ctx))
}

func TestStartReleasesPortOnBindFailure(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	port := l.Addr().(*net.TCPAddr).Port

	s := NewServer(Config{Name: "bot", PortStart: port, PortEnd: port}, store, nil, nil)
	require.Error(t, s.Start(ctx))

	reserved, err := store.SIsMember(ctx, ActivePortsKey, strconv.Itoa(port))
	require.NoError(t, err)
	assert.False(t, reserved)
}
