package wsbroadcast

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHubRegisterUnregisterTracksClientCount(t *testing.T) {
	h := NewHub(zerolog.Nop())
	assert.False(t, h.HasClients("front-door"))
	assert.Equal(t, 0, h.ClientCount())

	h.Register("front-door", nil)
	assert.True(t, h.HasClients("front-door"))
	assert.Equal(t, 1, h.ClientCount())

	h.Unregister("front-door", nil)
	assert.False(t, h.HasClients("front-door"))
	assert.Equal(t, 0, h.ClientCount())
}

func TestHubDispatchDropsUndecodableBody(t *testing.T) {
	h := NewHub(zerolog.Nop())
	h.Register("front-door", nil)
	h.Dispatch([]byte("not json"))
}

func TestHubDispatchSkipsWhenNoSubscribers(t *testing.T) {
	h := NewHub(zerolog.Nop())
	h.Dispatch([]byte(`{"camera_name":"front-door"}`))
}

func dialHub(t *testing.T, h *Hub, camera string) (*websocket.Conn, func()) {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		h.Register(camera, conn)
	}))

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/events/" + camera
	client, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)

	return client, func() {
		client.Close()
		server.Close()
	}
}

func TestHubBroadcastToCameraDeliversRawBodyVerbatim(t *testing.T) {
	h := NewHub(zerolog.Nop())
	client, cleanup := dialHub(t, h, "front-door")
	defer cleanup()

	// Give the server goroutine a moment to register the connection.
	require.Eventually(t, func() bool { return h.HasClients("front-door") }, time.Second, 10*time.Millisecond)

	payload := []byte(`{"camera_name":"front-door","event_type":"motion"}`)
	h.BroadcastToCamera("front-door", payload)

	client.SetReadDeadline(time.Now().Add(time.Second))
	_, msg, err := client.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, payload, msg)
}

func TestHubDispatchDeliversToMatchingCamera(t *testing.T) {
	h := NewHub(zerolog.Nop())
	client, cleanup := dialHub(t, h, "front-door")
	defer cleanup()

	require.Eventually(t, func() bool { return h.HasClients("front-door") }, time.Second, 10*time.Millisecond)

	payload := []byte(`{"camera_name":"front-door","event_type":"motion"}`)
	h.Dispatch(payload)

	client.SetReadDeadline(time.Now().Add(time.Second))
	_, msg, err := client.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, payload, msg)
}
