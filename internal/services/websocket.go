package services

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/parkspot-ke/parkspot-backend/internal/models"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for development
	},
}

// Client represents a WebSocket client
type Client struct {
	ID       uint
	UserKind models.ParticipantKind
	Conn     *websocket.Conn
	Send     chan []byte
	Hub      *Hub
	rooms    map[uint]bool
}

// Hub maintains the set of active clients and the per-booking chat rooms
type Hub struct {
	clients    map[*Client]bool
	rooms      map[uint]map[*Client]bool // keyed by booking id
	register   chan *Client
	unregister chan *Client
	mutex      sync.RWMutex
}

// NewHub creates a new WebSocket hub
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		rooms:      make(map[uint]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run starts the hub
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true
			h.mutex.Unlock()
			log.Printf("Client %s:%d connected", client.UserKind, client.ID)

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				for bookingID := range client.rooms {
					delete(h.rooms[bookingID], client)
				}
				close(client.Send)
			}
			h.mutex.Unlock()
			log.Printf("Client %s:%d disconnected", client.UserKind, client.ID)
		}
	}
}

// JoinRoom subscribes a client to a booking's chat room
func (h *Hub) JoinRoom(client *Client, bookingID uint) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if h.rooms[bookingID] == nil {
		h.rooms[bookingID] = make(map[*Client]bool)
	}
	h.rooms[bookingID][client] = true
	client.rooms[bookingID] = true
}

// LeaveRoom unsubscribes a client from a booking's chat room
func (h *Hub) LeaveRoom(client *Client, bookingID uint) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if room, ok := h.rooms[bookingID]; ok {
		delete(room, client)
	}
	delete(client.rooms, bookingID)
}

// BroadcastToBooking sends a message to every client in a booking's room
func (h *Hub) BroadcastToBooking(bookingID uint, message []byte) {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	for client := range h.rooms[bookingID] {
		select {
		case client.Send <- message:
		default:
			log.Printf("Warning: could not send to client %s:%d (channel full)", client.UserKind, client.ID)
		}
	}
}

// BroadcastToUser sends a message to a specific participant
func (h *Hub) BroadcastToUser(kind models.ParticipantKind, userID uint, message []byte) {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	for client := range h.clients {
		if client.ID == userID && client.UserKind == kind {
			select {
			case client.Send <- message:
			default:
				log.Printf("Warning: could not send to client %s:%d (channel full)", client.UserKind, client.ID)
			}
		}
	}
}

// GetConnectedClients returns the number of connected clients
func (h *Hub) GetConnectedClients() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// WebSocket message types
type WebSocketMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// RoomRequest is the payload of join_room/leave_room client messages
type RoomRequest struct {
	BookingID uint `json:"bookingId"`
}

// NewChatMessage notifies room members of a persisted chat message
type NewChatMessage struct {
	MessageID    uint   `json:"messageId"`
	BookingID    uint   `json:"bookingId"`
	SenderID     uint   `json:"senderId"`
	SenderKind   string `json:"senderKind"`
	ReceiverID   uint   `json:"receiverId"`
	ReceiverKind string `json:"receiverKind"`
	Content      string `json:"content"`
	Timestamp    string `json:"timestamp"`
}

// BookingApproved notifies both parties of an approval
type BookingApproved struct {
	BookingID    uint   `json:"bookingId"`
	LocationID   uint   `json:"locationId,omitempty"`
	LocationName string `json:"locationName,omitempty"`
	Date         string `json:"date"`
}

// BookingRejected notifies the owner of a rejection
type BookingRejected struct {
	BookingID uint   `json:"bookingId"`
	Status    string `json:"status"`
}

// PaymentReceived notifies the renter that a booking was paid
type PaymentReceived struct {
	BookingID uint    `json:"bookingId"`
	Method    string  `json:"method"`
	Amount    float64 `json:"amount"`
}

// AvailabilityChanged notifies listeners of a manual availability flip
type AvailabilityChanged struct {
	LocationID uint `json:"locationId"`
	Available  bool `json:"available"`
}

// HandleWebSocket upgrades the connection and registers the client
func HandleWebSocket(hub *Hub, w http.ResponseWriter, r *http.Request, userID uint, userKind models.ParticipantKind) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	client := &Client{
		ID:       userID,
		UserKind: userKind,
		Conn:     conn,
		Send:     make(chan []byte, 256),
		Hub:      hub,
		rooms:    make(map[uint]bool),
	}

	client.Hub.register <- client

	// Start goroutines for reading and writing
	go client.writePump()
	go client.readPump()
}

// readPump pumps messages from the websocket connection to the hub
func (c *Client) readPump() {
	defer func() {
		c.Hub.unregister <- c
		c.Conn.Close()
	}()

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}

		var wsMessage WebSocketMessage
		if err := json.Unmarshal(message, &wsMessage); err != nil {
			log.Printf("Error unmarshaling WebSocket message: %v", err)
			continue
		}

		switch wsMessage.Type {
		case "join_room":
			if req, ok := parseRoomRequest(wsMessage.Data); ok {
				c.Hub.JoinRoom(c, req.BookingID)
			}
		case "leave_room":
			if req, ok := parseRoomRequest(wsMessage.Data); ok {
				c.Hub.LeaveRoom(c, req.BookingID)
			}
		}
	}
}

func parseRoomRequest(data interface{}) (RoomRequest, bool) {
	raw, err := json.Marshal(data)
	if err != nil {
		return RoomRequest{}, false
	}
	var req RoomRequest
	if err := json.Unmarshal(raw, &req); err != nil || req.BookingID == 0 {
		return RoomRequest{}, false
	}
	return req, true
}

// writePump pumps messages from the hub to the websocket connection
func (c *Client) writePump() {
	defer c.Conn.Close()

	for message := range c.Send {
		if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
			log.Printf("WebSocket write error: %v", err)
			return
		}
	}
	c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
}

// SendToBooking marshals a typed event and fans it out to the booking room
func (h *Hub) SendToBooking(bookingID uint, msgType string, data interface{}) {
	message := WebSocketMessage{Type: msgType, Data: data}

	payload, err := json.Marshal(message)
	if err != nil {
		log.Printf("Error marshaling %s event: %v", msgType, err)
		return
	}

	h.BroadcastToBooking(bookingID, payload)
}

// SendToUser marshals a typed event and sends it to one participant
func (h *Hub) SendToUser(kind models.ParticipantKind, userID uint, msgType string, data interface{}) {
	message := WebSocketMessage{Type: msgType, Data: data}

	payload, err := json.Marshal(message)
	if err != nil {
		log.Printf("Error marshaling %s event: %v", msgType, err)
		return
	}

	h.BroadcastToUser(kind, userID, payload)
}
