package gateway

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dustforce-relay/internal/router"
	"dustforce-relay/internal/shared/logger"
)

type fakeDispatcher struct {
	mu     sync.Mutex
	frames []string
	reg    *router.Registry
}

func newFakeDispatcher() *fakeDispatcher {
	return &fakeDispatcher{reg: router.NewRegistry()}
}

func (f *fakeDispatcher) HandleClientFrame(identity string, payload []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames = append(f.frames, string(payload))
}

func (f *fakeDispatcher) Router() *router.Registry {
	return f.reg
}

func (f *fakeDispatcher) receivedTypes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var types []string
	for _, frame := range f.frames {
		var msg clientMessage
		if json.Unmarshal([]byte(frame), &msg) == nil {
			types = append(types, msg.Type)
		}
	}
	return types
}

func newTestServer(t *testing.T, d *fakeDispatcher) *httptest.Server {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHandler(d, logger.New("error", false)).Register(r)
	return httptest.NewServer(r)
}

func dialWS(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/lobby" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	return conn
}

func TestGateway_Connect_SendsSyntheticJoin(t *testing.T) {
	d := newFakeDispatcher()
	srv := newTestServer(t, d)
	defer srv.Close()

	conn := dialWS(t, srv, "?lobby=3")
	defer conn.Close()

	require.Eventually(t, func() bool {
		types := d.receivedTypes()
		return len(types) == 1 && types[0] == "join"
	}, time.Second, 10*time.Millisecond)
}

func TestGateway_MissingLobbyQueryRejected(t *testing.T) {
	d := newFakeDispatcher()
	srv := newTestServer(t, d)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/ws/lobby")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGateway_PingIsAnsweredLocallyWithoutReachingBroker(t *testing.T) {
	d := newFakeDispatcher()
	srv := newTestServer(t, d)
	defer srv.Close()

	conn := dialWS(t, srv, "?lobby=1")
	defer conn.Close()

	require.Eventually(t, func() bool { return len(d.receivedTypes()) == 1 }, time.Second, 10*time.Millisecond)

	ping, _ := json.Marshal(clientMessage{Type: "ping"})
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, ping))

	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)

	var pong pongFrame
	require.NoError(t, json.Unmarshal(payload, &pong))
	assert.Equal(t, "pong", pong.Type)

	// The ping itself must never be forwarded to the broker.
	assert.Equal(t, []string{"join"}, d.receivedTypes())
}

func TestGateway_CloseSendsLeave(t *testing.T) {
	d := newFakeDispatcher()
	srv := newTestServer(t, d)
	defer srv.Close()

	conn := dialWS(t, srv, "?lobby=1")
	require.Eventually(t, func() bool { return len(d.receivedTypes()) == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())

	require.Eventually(t, func() bool {
		types := d.receivedTypes()
		return len(types) == 2 && types[1] == "leave"
	}, time.Second, 10*time.Millisecond)
}
