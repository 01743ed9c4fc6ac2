package websocket

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

	"epicli/internal/config"
)

func testConfig() config.WebSocketConfig {
	return config.WebSocketConfig{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		PingPeriod:      50 * time.Millisecond,
		PongWait:        time.Second,
	}
}

func newTestServer(t *testing.T, hub *Hub) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		client := NewClient(hub, conn, testConfig(), nil)
		go client.WritePump()
		go client.ReadPump()
	}))
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) Event {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var ev Event
	require.NoError(t, json.Unmarshal(data, &ev))
	return ev
}

func TestHubGreetsNewClients(t *testing.T) {
	hub := NewHub(nil)
	hub.Start()
	defer hub.Stop()
	srv := newTestServer(t, hub)

	conn := dial(t, srv)
	ev := readEvent(t, conn)
	assert.Equal(t, TypeConnected, ev.Type)
	assert.NotEmpty(t, ev.ID)
	assert.False(t, ev.Timestamp.IsZero())
}

func TestHubBroadcastsToEveryClient(t *testing.T) {
	hub := NewHub(nil)
	hub.Start()
	defer hub.Stop()
	srv := newTestServer(t, hub)

	first := dial(t, srv)
	second := dial(t, srv)
	readEvent(t, first)
	readEvent(t, second)

	require.Eventually(t, func() bool { return hub.ClientCount() == 2 },
		time.Second, 10*time.Millisecond)

	hub.Broadcast(NewEvent(TypeDatasetRefreshed, RefreshPayload{
		Rows:     42,
		Columns:  7,
		LastDate: "2021-09-10",
	}))

	for _, conn := range []*websocket.Conn{first, second} {
		ev := readEvent(t, conn)
		assert.Equal(t, TypeDatasetRefreshed, ev.Type)
		payload, err := json.Marshal(ev.Payload)
		require.NoError(t, err)
		var got RefreshPayload
		require.NoError(t, json.Unmarshal(payload, &got))
		assert.Equal(t, 42, got.Rows)
		assert.Equal(t, "2021-09-10", got.LastDate)
	}
}

func TestHubDropsDisconnectedClients(t *testing.T) {
	hub := NewHub(nil)
	hub.Start()
	defer hub.Stop()
	srv := newTestServer(t, hub)

	conn := dial(t, srv)
	readEvent(t, conn)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 },
		time.Second, 10*time.Millisecond)

	conn.Close()
	require.Eventually(t, func() bool { return hub.ClientCount() == 0 },
		2*time.Second, 10*time.Millisecond)
}

func TestHubStopDisconnectsClients(t *testing.T) {
	hub := NewHub(nil)
	hub.Start()
	srv := newTestServer(t, hub)

	conn := dial(t, srv)
	readEvent(t, conn)
	hub.Stop()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
