// Package gateway implements the WebSocket Gateway: one goroutine pair
// per external client, bridging a WebSocket connection to the Broker's
// router socket via a per-connection identity. There is no Hub here,
// since fan-out ownership belongs to the Broker/Lobby goroutines; the
// Gateway only registers an outbound channel with broker.Router() and
// relays frames in both directions.
package gateway

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"dustforce-relay/internal/router"
	"dustforce-relay/internal/shared/logger"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Dispatcher is the subset of the Broker a Gateway connection needs.
type Dispatcher interface {
	HandleClientFrame(identity string, payload []byte)
	Router() *router.Registry
}

// clientMessage mirrors the client->broker envelope enough to let the
// Gateway special-case ping locally without having to import the
// broker package's private wire types.
type clientMessage struct {
	Type    string `json:"type"`
	LobbyID int    `json:"lobby_id"`
}

// pongFrame is the Gateway-local answer to a client ping.
type pongFrame struct {
	Type string `json:"type"`
}

// Handler upgrades incoming connections and bridges them to the Broker.
type Handler struct {
	broker Dispatcher
	logger *logger.Logger
}

// NewHandler builds a Gateway handler bound to broker.
func NewHandler(broker Dispatcher, l *logger.Logger) *Handler {
	return &Handler{broker: broker, logger: l}
}

// Register mounts GET /ws/lobby.
func (h *Handler) Register(rg gin.IRouter) {
	rg.GET("/ws/lobby", h.serve)
}

func (h *Handler) serve(c *gin.Context) {
	lobbyID, ok := parseLobbyID(c.Query("lobby"))
	if !ok {
		c.Status(http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warnf(c.Request.Context(), "websocket upgrade failed: %v", err)
		return
	}

	identity := newIdentity()
	send := make(chan []byte, sendBuffer)
	h.broker.Router().Register(identity, send)

	if payload, err := json.Marshal(clientMessage{Type: "join", LobbyID: lobbyID}); err == nil {
		h.broker.HandleClientFrame(identity, payload)
	}

	cxn := &connection{
		identity: identity,
		conn:     conn,
		send:     send,
		broker:   h.broker,
		logger:   h.logger,
	}

	go cxn.writePump()
	go cxn.readPump()
}

// connection is one attached client's half of the bridge: readPump
// forwards inbound WebSocket frames to the Broker (short-circuiting
// ping locally); writePump drains the outbound channel the Broker's
// router delivers snapshots and replies on.
type connection struct {
	identity string
	conn     *websocket.Conn
	send     chan []byte
	broker   Dispatcher
	logger   *logger.Logger
}

func (conn *connection) readPump() {
	defer func() {
		leave, _ := json.Marshal(clientMessage{Type: "leave"})
		conn.broker.HandleClientFrame(conn.identity, leave)
		conn.broker.Router().Unregister(conn.identity)
		conn.conn.Close()
	}()

	conn.conn.SetReadLimit(maxMessageSize)
	conn.conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.conn.SetPongHandler(func(string) error {
		conn.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, payload, err := conn.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				conn.logger.Warnf(context.Background(), "websocket read error for %s: %v", conn.identity, err)
			}
			return
		}

		var msg clientMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			conn.logger.Warnf(context.Background(), "dropping malformed frame from %s: %v", conn.identity, err)
			continue
		}

		if msg.Type == "ping" {
			pong, _ := json.Marshal(pongFrame{Type: "pong"})
			select {
			case conn.send <- pong:
			default:
			}
			continue
		}

		conn.broker.HandleClientFrame(conn.identity, payload)
	}
}

func (conn *connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-conn.send:
			conn.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}

		case <-ticker.C:
			conn.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func parseLobbyID(raw string) (int, bool) {
	if raw == "" {
		return 0, false
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return n, true
}

func newIdentity() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return hex.EncodeToString([]byte(time.Now().String()))
	}
	return hex.EncodeToString(buf)
}
