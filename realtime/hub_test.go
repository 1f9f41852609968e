package realtime

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// dial connects a fake user to a hub behind a test server and returns
// the client websocket end.
func dial(t *testing.T, hub *Hub, server *httptest.Server, userID int64) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "?userId=" + strconv.FormatInt(userID, 10)
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func newHubServer(t *testing.T, hub *Hub) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := strconv.ParseInt(r.URL.Query().Get("userId"), 10, 64)
		if err != nil {
			http.Error(w, "bad userId", http.StatusBadRequest)
			return
		}
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		client := hub.Add(userID, conn)
		defer hub.Remove(client)
		hub.Join(client, "conv:1")
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func readEvent(t *testing.T, conn *websocket.Conn) Event {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ev Event
	require.NoError(t, conn.ReadJSON(&ev))
	return ev
}

func TestPresenceTracking(t *testing.T) {
	hub := NewHub()
	server := newHubServer(t, hub)

	first := dial(t, hub, server, 1)
	ev := readEvent(t, first)
	assert.Equal(t, "onlineUsersUpdate", ev.Type)

	dial(t, hub, server, 2)

	// The existing connection hears about the newcomer.
	ev = readEvent(t, first)
	assert.Equal(t, "onlineUsersUpdate", ev.Type)

	require.Eventually(t, func() bool {
		return hub.IsUserOnline(1) && hub.IsUserOnline(2)
	}, 2*time.Second, 10*time.Millisecond)
	assert.ElementsMatch(t, []int64{1, 2}, hub.OnlineIDs())
	assert.False(t, hub.IsUserOnline(3))
}

func TestToUserAndToRoomDelivery(t *testing.T) {
	hub := NewHub()
	server := newHubServer(t, hub)

	alice := dial(t, hub, server, 1)
	readEvent(t, alice) // presence

	bob := dial(t, hub, server, 2)
	readEvent(t, alice) // presence for bob
	readEvent(t, bob)   // presence

	require.Eventually(t, func() bool {
		return hub.IsUserOnline(1) && hub.IsUserOnline(2)
	}, 2*time.Second, 10*time.Millisecond)

	hub.ToUser(1, "ping", map[string]string{"to": "alice"})
	ev := readEvent(t, alice)
	assert.Equal(t, "ping", ev.Type)

	hub.ToUsers([]int64{1, 2, 99}, "fanout", nil)
	assert.Equal(t, "fanout", readEvent(t, alice).Type)
	assert.Equal(t, "fanout", readEvent(t, bob).Type)

	hub.ToRoom("conv:1", "roomEvent", nil)
	assert.Equal(t, "roomEvent", readEvent(t, alice).Type)
	assert.Equal(t, "roomEvent", readEvent(t, bob).Type)

	hub.ToRoom("conv:999", "nobodyHome", nil)
	hub.ToUser(42, "offline", nil) // no-op
}

func TestDisconnectDropsPresence(t *testing.T) {
	hub := NewHub()
	server := newHubServer(t, hub)

	conn := dial(t, hub, server, 5)
	readEvent(t, conn)
	require.Eventually(t, func() bool { return hub.IsUserOnline(5) },
		2*time.Second, 10*time.Millisecond)

	conn.Close()
	require.Eventually(t, func() bool { return !hub.IsUserOnline(5) },
		2*time.Second, 10*time.Millisecond)
	assert.Empty(t, hub.OnlineIDs())
}
