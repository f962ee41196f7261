package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/rzzdr/swap-aad-risk/pkg/models"
	"github.com/rzzdr/swap-aad-risk/pkg/utils/logger"
)

// AllSwaps subscribes a client to the reports of every swap
const AllSwaps = "*"

// Message represents a WebSocket message
type Message struct {
	Type   string      `json:"type"`
	SwapID string      `json:"swap_id,omitempty"`
	Data   interface{} `json:"data,omitempty"`
	Error  string      `json:"error,omitempty"`
	ID     string      `json:"id,omitempty"`
}

// SubscriptionMessage is sent by clients to (un)subscribe from swaps
type SubscriptionMessage struct {
	Type    string   `json:"type"`
	SwapIDs []string `json:"swap_ids"`
	ID      string   `json:"id,omitempty"`
}

// SnapshotFunc returns the latest report of a swap, sent right after a subscription
type SnapshotFunc func(swapID string) (*models.RiskReport, error)

// ClientRecorder records the number of connected clients
type ClientRecorder interface {
	RecordWebsocketClients(n int)
}

// Hub maintains the set of active clients and streams risk reports to them.
// Only the Run loop touches clients and subscriptions.
type Hub struct {
	clients       map[*Client]bool
	subscriptions map[string]map[*Client]bool // swap ID -> clients
	broadcast     chan outbound
	register      chan *Client
	unregister    chan *Client
	subscribe     chan subscription
	direct        chan outbound
	done          chan struct{}
	clientCount   atomic.Int64
	snapshot      SnapshotFunc
	recorder      ClientRecorder
	upgrader      websocket.Upgrader
	log           *logger.Logger
}

// Client is a middleman between the websocket connection and the hub
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	id   string
}

type outbound struct {
	swapID string
	client *Client // set for messages to a single client
	data   []byte
}

type subscription struct {
	client  *Client
	swapIDs []string
	add     bool
	id      string
}

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 4096
)

// NewHub creates a new WebSocket hub. snapshot and recorder may be nil; an
// empty allowedOrigins accepts every origin.
func NewHub(snapshot SnapshotFunc, recorder ClientRecorder, allowedOrigins []string) *Hub {
	h := &Hub{
		clients:       make(map[*Client]bool),
		subscriptions: make(map[string]map[*Client]bool),
		broadcast:     make(chan outbound, 256),
		register:      make(chan *Client),
		unregister:    make(chan *Client),
		subscribe:     make(chan subscription),
		direct:        make(chan outbound, 64),
		done:          make(chan struct{}),
		snapshot:      snapshot,
		recorder:      recorder,
		log:           logger.GetLogger("websocket.hub"),
	}

	origins := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		origins[o] = true
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			if len(origins) == 0 {
				return true
			}
			return origins[r.Header.Get("Origin")]
		},
	}
	return h
}

// Run starts the WebSocket hub and blocks until ctx is cancelled
func (h *Hub) Run(ctx context.Context) {
	h.log.Info("Starting WebSocket hub")
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.log.Info("WebSocket hub shutting down")
			for client := range h.clients {
				h.drop(client)
			}
			return

		case client := <-h.register:
			h.clients[client] = true
			h.countClients()
			h.log.Infof("Client %s registered", client.id)

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				h.drop(client)
				h.log.Infof("Client %s unregistered", client.id)
			}

		case sub := <-h.subscribe:
			h.applySubscription(sub)

		case msg := <-h.direct:
			h.deliver(msg.client, msg.data)

		case msg := <-h.broadcast:
			h.broadcastReport(msg)
		}
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	return int(h.clientCount.Load())
}

// Publish streams a report to clients subscribed to its swap or to all swaps.
// It never blocks the caller; reports are dropped while the hub is saturated.
func (h *Hub) Publish(report *models.RiskReport) {
	data, err := json.Marshal(Message{Type: "risk_report", SwapID: report.SwapID, Data: report})
	if err != nil {
		h.log.Errorf("Failed to marshal risk report: %v", err)
		return
	}

	select {
	case h.broadcast <- outbound{swapID: report.SwapID, data: data}:
	default:
		h.log.Warnf("Broadcast queue full, dropping report for swap %s", report.SwapID)
	}
}

// HandleWebSocket handles WebSocket upgrade and client management
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Errorf("WebSocket upgrade failed: %v", err)
		return
	}

	client := &Client{
		hub:  h,
		conn: conn,
		send: make(chan []byte, 256),
		id:   generateClientID(),
	}

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

func (h *Hub) drop(client *Client) {
	delete(h.clients, client)
	for swapID, clients := range h.subscriptions {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.subscriptions, swapID)
		}
	}
	close(client.send)
	h.countClients()
}

func (h *Hub) countClients() {
	h.clientCount.Store(int64(len(h.clients)))
	if h.recorder != nil {
		h.recorder.RecordWebsocketClients(len(h.clients))
	}
}

// deliver queues data for one client, dropping clients that cannot keep up
func (h *Hub) deliver(client *Client, data []byte) {
	if !h.clients[client] {
		return
	}
	select {
	case client.send <- data:
	default:
		h.log.Warnf("Client %s is too slow, disconnecting", client.id)
		h.drop(client)
	}
}

func (h *Hub) broadcastReport(msg outbound) {
	targets := make(map[*Client]bool)
	for client := range h.subscriptions[msg.swapID] {
		targets[client] = true
	}
	for client := range h.subscriptions[AllSwaps] {
		targets[client] = true
	}
	for client := range targets {
		h.deliver(client, msg.data)
	}
}

func (h *Hub) applySubscription(sub subscription) {
	if !h.clients[sub.client] {
		return
	}

	for _, swapID := range sub.swapIDs {
		if sub.add {
			if h.subscriptions[swapID] == nil {
				h.subscriptions[swapID] = make(map[*Client]bool)
			}
			h.subscriptions[swapID][sub.client] = true
			continue
		}
		if clients, ok := h.subscriptions[swapID]; ok {
			delete(clients, sub.client)
			if len(clients) == 0 {
				delete(h.subscriptions, swapID)
			}
		}
	}

	confirmation := "unsubscription_confirmed"
	if sub.add {
		confirmation = "subscription_confirmed"
	}
	h.deliver(sub.client, mustMarshal(Message{
		Type: confirmation,
		Data: map[string]interface{}{"swap_ids": sub.swapIDs},
		ID:   sub.id,
	}))

	if !sub.add || h.snapshot == nil {
		return
	}
	for _, swapID := range sub.swapIDs {
		if swapID == AllSwaps {
			continue
		}
		if report, err := h.snapshot(swapID); err == nil {
			h.deliver(sub.client, mustMarshal(Message{Type: "risk_snapshot", SwapID: swapID, Data: report, ID: sub.id}))
		}
	}
}

// readPump pumps messages from the websocket connection to the hub
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, messageData, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Errorf("WebSocket error: %v", err)
			}
			return
		}

		c.handleMessage(messageData)
	}
}

// writePump pumps messages from the hub to the websocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage handles incoming messages from the client
func (c *Client) handleMessage(messageData []byte) {
	var msg SubscriptionMessage
	if err := json.Unmarshal(messageData, &msg); err != nil {
		c.reply(Message{Type: "error", Error: "Invalid message format"})
		return
	}

	switch msg.Type {
	case "subscribe", "unsubscribe":
		if len(msg.SwapIDs) == 0 {
			c.reply(Message{Type: "error", Error: "swap_ids is required", ID: msg.ID})
			return
		}
		sub := subscription{client: c, swapIDs: msg.SwapIDs, add: msg.Type == "subscribe", id: msg.ID}
		select {
		case c.hub.subscribe <- sub:
		case <-c.hub.done:
		}
	case "ping":
		c.reply(Message{Type: "pong", ID: msg.ID})
	default:
		c.reply(Message{Type: "error", Error: "Unknown message type", ID: msg.ID})
	}
}

// reply routes a message to this client through the hub, which owns the send channel
func (c *Client) reply(msg Message) {
	select {
	case c.hub.direct <- outbound{client: c, data: mustMarshal(msg)}:
	case <-c.hub.done:
	}
}

func mustMarshal(msg Message) []byte {
	data, err := json.Marshal(msg)
	if err != nil {
		data, _ = json.Marshal(Message{Type: "error", Error: err.Error(), ID: msg.ID})
	}
	return data
}

func generateClientID() string {
	return "client_" + uuid.New().String()
}
