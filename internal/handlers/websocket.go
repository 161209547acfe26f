package handlers

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"coinflip-backend/internal/middleware"
	"coinflip-backend/internal/services"
)

const (
	MessageStateUpdate = "STATE_UPDATE"
	MessagePing        = "PING"
	MessagePong        = "PONG"
	MessageGetState    = "GET_STATE"

	sendBuffer = 16
	writeWait  = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type Message struct {
	Type     string      `json:"type"`
	ClientID string      `json:"client_id,omitempty"`
	Data     interface{} `json:"data"`
}

// Client is one websocket connection. All writes go through send so only
// writePump touches the connection.
type Client struct {
	ClientID string
	Conn     *websocket.Conn
	send     chan *Message
}

// WebSocketHub fans play session state out to every connection of a client.
// It implements services.Broadcaster.
type WebSocketHub struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]struct{}
	logger  *zap.Logger
}

func NewWebSocketHub(logger *zap.Logger) *WebSocketHub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebSocketHub{
		clients: make(map[string]map[*Client]struct{}),
		logger:  logger,
	}
}

func (hub *WebSocketHub) register(client *Client) {
	hub.mu.Lock()
	defer hub.mu.Unlock()

	conns, ok := hub.clients[client.ClientID]
	if !ok {
		conns = make(map[*Client]struct{})
		hub.clients[client.ClientID] = conns
	}
	conns[client] = struct{}{}
	hub.logger.Debug("websocket registered", zap.String("client_id", client.ClientID))
}

func (hub *WebSocketHub) unregister(client *Client) {
	hub.mu.Lock()
	defer hub.mu.Unlock()

	conns, ok := hub.clients[client.ClientID]
	if !ok {
		return
	}
	if _, ok := conns[client]; ok {
		delete(conns, client)
		close(client.send)
	}
	if len(conns) == 0 {
		delete(hub.clients, client.ClientID)
	}
	hub.logger.Debug("websocket unregistered", zap.String("client_id", client.ClientID))
}

// Connections reports how many sockets are open for clientID.
func (hub *WebSocketHub) Connections(clientID string) int {
	hub.mu.RLock()
	defer hub.mu.RUnlock()
	return len(hub.clients[clientID])
}

// HasConnections is the registry keep-alive check: a client with an open
// socket is still viewing its play session.
func (hub *WebSocketHub) HasConnections(clientID string) bool {
	return hub.Connections(clientID) > 0
}

// BroadcastState never blocks: a connection whose buffer is full misses the
// update and catches up on the next one.
func (hub *WebSocketHub) BroadcastState(clientID string, state services.State) {
	msg := &Message{
		Type:     MessageStateUpdate,
		ClientID: clientID,
		Data:     state,
	}

	hub.mu.RLock()
	defer hub.mu.RUnlock()

	for client := range hub.clients[clientID] {
		select {
		case client.send <- msg:
		default:
			hub.logger.Warn("dropped state update for slow websocket", zap.String("client_id", clientID))
		}
	}
}

type WebSocketHandler struct {
	registry *services.Registry
	hub      *WebSocketHub
	logger   *zap.Logger
}

func NewWebSocketHandler(registry *services.Registry, hub *WebSocketHub, logger *zap.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		registry: registry,
		hub:      hub,
		logger:   logger,
	}
}

func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	clientID := c.GetString(middleware.ClientIDKey)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("failed to upgrade to websocket", zap.Error(err))
		return
	}

	client := &Client{
		ClientID: clientID,
		Conn:     conn,
		send:     make(chan *Message, sendBuffer),
	}

	h.hub.register(client)
	go client.writePump()

	defer func() {
		h.hub.unregister(client)
		conn.Close()
	}()

	h.sendState(client)

	for {
		var msg Message
		err := conn.ReadJSON(&msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Info("websocket closed", zap.String("client_id", clientID), zap.Error(err))
			}
			break
		}

		h.handleMessage(client, &msg)
	}
}

// handleMessage looks the App up again on every message so a socket never
// holds on to a closed play session.
func (h *WebSocketHandler) handleMessage(client *Client, msg *Message) {
	app := h.registry.GetOrCreate(client.ClientID)
	app.Touch()

	switch msg.Type {
	case MessagePing:
		h.sendPong(client)
	case MessageGetState:
		h.sendState(client)
	}
}

func (h *WebSocketHandler) sendState(client *Client) {
	state, err := h.registry.GetOrCreate(client.ClientID).State()
	if err != nil {
		h.logger.Warn("failed to get state for websocket", zap.Error(err))
		return
	}

	h.enqueue(client, &Message{
		Type:     MessageStateUpdate,
		ClientID: client.ClientID,
		Data:     state,
	})
}

func (h *WebSocketHandler) sendPong(client *Client) {
	h.enqueue(client, &Message{
		Type: MessagePong,
		Data: gin.H{
			"timestamp": time.Now().Unix(),
		},
	})
}

func (h *WebSocketHandler) enqueue(client *Client, msg *Message) {
	select {
	case client.send <- msg:
	default:
		h.logger.Warn("websocket send buffer full", zap.String("client_id", client.ClientID))
	}
}

func (client *Client) writePump() {
	for msg := range client.send {
		client.Conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := client.Conn.WriteJSON(msg); err != nil {
			client.Conn.Close()
			return
		}
	}
	client.Conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}
