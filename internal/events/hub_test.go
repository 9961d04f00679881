package events

import (
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestUpgradeRejectsPlainHTTP(t *testing.T) {
	app := fiber.New()
	hub := NewHub(zerolog.Nop())
	app.Use("/events", Upgrade)
	app.Get("/events", hub.Handler())

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/events", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusUpgradeRequired, resp.StatusCode)
}

func startEventsServer(t *testing.T, hub *Hub) (string, func()) {
	t.Helper()

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Use("/events", Upgrade)
	app.Get("/events", hub.Handler())

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		if err := app.Listener(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			t.Logf("fiber listener stopped: %v", err)
		}
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)

	shutdown := func() {
		_ = app.Shutdown()
		_ = listener.Close()
		select {
		case <-done:
		case <-time.After(100 * time.Millisecond):
		}
	}

	return "http://" + listener.Addr().String(), shutdown
}

func TestHubBroadcastsAndDropsClosedClients(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	baseURL, shutdown := startEventsServer(t, hub)
	defer shutdown()

	url := "ws" + strings.TrimPrefix(baseURL, "http") + "/events"
	dialer := websocket.Dialer{HandshakeTimeout: 3 * time.Second}

	conn, resp, err := dialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil {
		_ = resp.Body.Close()
	}

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	hub.PermissionsUpdated("page", 7)

	var event Event
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	require.NoError(t, conn.ReadJSON(&event))
	require.Equal(t, "permissions-updated", event.Type)
	require.Equal(t, "page", event.Resource)
	require.Equal(t, uint(7), event.ID)

	require.NoError(t, conn.Close())

	// Writes to the closed connection fail within the write deadline, and
	// the hub evicts the client rather than stalling future broadcasts.
	require.Eventually(t, func() bool {
		hub.PermissionsUpdated("page", 8)
		return hub.ClientCount() == 0
	}, 2*time.Second, 50*time.Millisecond)
}

func TestHubBroadcastWithoutClients(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	require.Zero(t, hub.ClientCount())

	// Broadcasting with nobody connected is a no-op, not a panic.
	hub.PermissionsUpdated("page", 3)
	require.Zero(t, hub.ClientCount())
}
