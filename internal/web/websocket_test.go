package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"favgrab/internal/favicon"
	"favgrab/internal/metrics"
)

type wireMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type wsSession struct {
	t    *testing.T
	conn *websocket.Conn
	base string
}

func dialSession(t *testing.T, env *testEnv) *wsSession {
	t.Helper()
	srv := httptest.NewServer(env.server.Handler())
	t.Cleanup(srv.Close)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	s := &wsSession{t: t, conn: conn, base: srv.URL}
	initial := s.nextState(func(favicon.Snapshot) bool { return true })
	assert.Empty(t, initial.Links)
	return s
}

func (s *wsSession) send(msg ClientMessage) {
	s.t.Helper()
	require.NoError(s.t, s.conn.WriteJSON(msg))
}

func (s *wsSession) next(wantType string) json.RawMessage {
	s.t.Helper()
	for {
		require.NoError(s.t, s.conn.SetReadDeadline(time.Now().Add(5*time.Second)))
		var msg wireMessage
		require.NoError(s.t, s.conn.ReadJSON(&msg))
		if msg.Type == wantType {
			return msg.Data
		}
	}
}

func (s *wsSession) nextState(match func(favicon.Snapshot) bool) favicon.Snapshot {
	s.t.Helper()
	for {
		var snap favicon.Snapshot
		require.NoError(s.t, json.Unmarshal(s.next("state"), &snap))
		if match(snap) {
			return snap
		}
	}
}

func settled(snap favicon.Snapshot) bool { return !snap.Loading }

func TestWebSocket_LookupAndExport(t *testing.T) {
	env := newTestEnv(t)
	s := dialSession(t, env)

	s.send(ClientMessage{Type: "submit", URL: "example.com"})
	snap := s.nextState(func(snap favicon.Snapshot) bool { return settled(snap) && len(snap.Links) > 0 })
	assert.Equal(t, "https://example.com/", snap.Target)
	assert.Empty(t, snap.Error)
	require.Len(t, snap.Links, len(favicon.Sizes))

	s.send(ClientMessage{Type: "export", URL: snap.Links[32], Size: 32})
	var ready ExportReady
	require.NoError(t, json.Unmarshal(s.next("export"), &ready))
	assert.Equal(t, "favicon-32.png", ready.FileName)
	assert.Equal(t, 32, ready.Width)
	assert.True(t, ready.ExpiresAt.After(time.Now()))

	resp, err := http.Get(s.base + ready.DownloadURL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, `attachment; filename="favicon-32.png"`, resp.Header.Get("Content-Disposition"))
}

func TestWebSocket_FailedLookupKeepsLinks(t *testing.T) {
	env := newTestEnv(t)
	s := dialSession(t, env)

	s.send(ClientMessage{Type: "submit", URL: "example.com"})
	first := s.nextState(func(snap favicon.Snapshot) bool { return settled(snap) && len(snap.Links) > 0 })

	s.send(ClientMessage{Type: "submit", URL: "exa mple.com"})
	failed := s.nextState(func(snap favicon.Snapshot) bool { return settled(snap) && snap.Code != "" })
	assert.Equal(t, "invalid_url", failed.Code)
	assert.Equal(t, "올바른 URL을 입력해주세요", failed.Error)
	assert.Equal(t, first.Links, failed.Links)
	assert.Equal(t, "exa mple.com", failed.Input)

	s.send(ClientMessage{Type: "dismiss"})
	dismissed := s.nextState(settled)
	assert.Empty(t, dismissed.Error)
	assert.Equal(t, first.Links, dismissed.Links)
}

func TestWebSocket_EmptySubmit(t *testing.T) {
	env := newTestEnv(t)
	s := dialSession(t, env)

	s.send(ClientMessage{Type: "submit"})
	snap := s.nextState(settled)
	assert.Equal(t, "missing_input", snap.Code)
	assert.Equal(t, "URL을 입력해주세요", snap.Error)
}

func TestWebSocket_RejectsForeignExport(t *testing.T) {
	env := newTestEnv(t)
	s := dialSession(t, env)

	s.send(ClientMessage{Type: "submit", URL: "example.com"})
	s.nextState(func(snap favicon.Snapshot) bool { return settled(snap) && len(snap.Links) > 0 })

	s.send(ClientMessage{Type: "export", URL: "http://169.254.169.254/latest", Size: 32})
	snap := s.nextState(func(snap favicon.Snapshot) bool { return snap.Code != "" })
	assert.Equal(t, "export_failed", snap.Code)
	assert.Equal(t, "다운로드 중 오류가 발생했습니다", snap.Error)
	assert.Len(t, snap.Links, len(favicon.Sizes))
}

func TestWebSocket_ExportFailureSurfacesError(t *testing.T) {
	env := newTestEnv(t)
	s := dialSession(t, env)

	s.send(ClientMessage{Type: "submit", URL: "broken.example"})
	snap := s.nextState(func(snap favicon.Snapshot) bool { return settled(snap) && len(snap.Links) > 0 })

	s.send(ClientMessage{Type: "export", URL: snap.Links[16], Size: 16})
	failed := s.nextState(func(snap favicon.Snapshot) bool { return snap.Code != "" })
	assert.Equal(t, "export_failed", failed.Code)
	assert.Equal(t, snap.Links, failed.Links)
}

func TestWebSocket_ClientRegistry(t *testing.T) {
	env := newTestEnv(t)
	dialSession(t, env)

	assert.Eventually(t, func() bool { return env.server.clientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	env.server.closeClients()
	assert.Eventually(t, func() bool { return env.server.clientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestWebSocket_EmptySubmitAfterLookup(t *testing.T) {
	env := newTestEnv(t)
	s := dialSession(t, env)

	s.send(ClientMessage{Type: "submit", URL: "example.com"})
	first := s.nextState(func(snap favicon.Snapshot) bool { return settled(snap) && len(snap.Links) > 0 })

	s.send(ClientMessage{Type: "submit", URL: ""})
	snap := s.nextState(func(snap favicon.Snapshot) bool { return snap.Code != "" })
	assert.Equal(t, "missing_input", snap.Code)
	assert.Empty(t, snap.Input)
	assert.Equal(t, first.Links, snap.Links)
}

func TestWebSocket_UnsupportedExportSizesDoNotAddSeries(t *testing.T) {
	env := newTestEnv(t)
	s := dialSession(t, env)

	s.send(ClientMessage{Type: "submit", URL: "example.com"})
	snap := s.nextState(func(snap favicon.Snapshot) bool { return settled(snap) && len(snap.Links) > 0 })

	// Make sure the shared label exists before counting series.
	s.send(ClientMessage{Type: "export", URL: snap.Links[32], Size: 99999})
	s.nextState(func(snap favicon.Snapshot) bool { return snap.Code == "export_failed" })
	before := testutil.CollectAndCount(metrics.ExportTotal)

	for size := 100001; size <= 100050; size++ {
		s.send(ClientMessage{Type: "export", URL: snap.Links[32], Size: size})
	}
	for i := 0; i < 50; i++ {
		failed := s.nextState(func(snap favicon.Snapshot) bool { return snap.Code != "" })
		assert.Equal(t, "export_failed", failed.Code)
	}

	assert.Equal(t, before, testutil.CollectAndCount(metrics.ExportTotal))
}
