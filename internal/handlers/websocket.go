package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/ritz541/iamwheel/internal/logger"
	"github.com/ritz541/iamwheel/internal/models"
	"github.com/ritz541/iamwheel/internal/services"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Message is the wire envelope for every gateway event.
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

type Client struct {
	UserID   string
	Username string
	conn     *websocket.Conn
	send     chan []byte
	once     sync.Once
}

func (c *Client) Close() {
	c.once.Do(func() {
		close(c.send)
		c.conn.Close()
	})
}

func (c *Client) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			logger.Debugf("write to %s failed: %v", c.Username, err)
			return
		}
	}
}

// Hub tracks live observer connections and fans round events out to all
// of them. A consumer that cannot keep up gets messages dropped rather
// than stalling anyone else.
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan *Message
}

func NewHub() *Hub {
	hub := &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *Message, 256),
	}
	go hub.run()
	return hub
}

func (h *Hub) run() {
	for {
		select {
		case client := <-h.register:
			h.clients[client] = true
			logger.Infof("client connected: %s (total=%d)", client.Username, len(h.clients))

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.Close()
				logger.Infof("client disconnected: %s (total=%d)", client.Username, len(h.clients))
			}

		case msg := <-h.broadcast:
			data, err := json.Marshal(msg)
			if err != nil {
				logger.Errorf("failed to marshal %s event: %v", msg.Type, err)
				continue
			}
			for client := range h.clients {
				select {
				case client.send <- data:
				default:
					logger.Warnf("dropping %s event for slow client %s", msg.Type, client.Username)
				}
			}
		}
	}
}

// publish never blocks: the driver tick must not wait on the gateway.
func (h *Hub) publish(msg *Message) {
	select {
	case h.broadcast <- msg:
	default:
		logger.Warnf("broadcast queue full, dropping %s event", msg.Type)
	}
}

func roundStatusPayload(r *models.Round) gin.H {
	return gin.H{
		"status":  r.Phase,
		"players": r.Participants,
		"timer":   r.Timer(),
		"isBreak": r.Phase == models.PhaseBreak,
	}
}

func (h *Hub) RoundState(r *models.Round) {
	h.publish(&Message{Type: "game_status", Data: roundStatusPayload(r)})
}

func (h *Hub) Tick(timeLeft int, isBreak bool) {
	h.publish(&Message{Type: "timer", Data: gin.H{
		"time":    timeLeft,
		"isBreak": isBreak,
	}})
}

func (h *Hub) PlayerJoined(r *models.Round, newPlayer models.Participant) {
	h.publish(&Message{Type: "player_joined", Data: gin.H{
		"players":      r.Participants,
		"player_count": len(r.Participants),
		"new_player":   newPlayer,
		"success":      true,
		"message":      fmt.Sprintf("%s joined the game", newPlayer.Username),
	}})
}

func (h *Hub) BreakStarted(duration int) {
	h.publish(&Message{Type: "break_timer", Data: gin.H{"duration": duration}})
}

// RoundCancelled announces a round that expired with nobody in it. The
// empty winner tells observers apart from a real outcome.
func (h *Hub) RoundCancelled(message string) {
	h.publish(&Message{Type: "game_end", Data: gin.H{
		"winner":  "",
		"prize":   0,
		"message": message,
	}})
}

func (h *Hub) ShowWheel() {
	h.publish(&Message{Type: "show_wheel"})
}

func (h *Hub) WinnerSelected(winner models.Participant, prize, walletBalance int64) {
	h.publish(&Message{Type: "winner_selected", Data: gin.H{
		"winner": gin.H{
			"username":       winner.Username,
			"emoji":          winner.Emoji,
			"prize":          prize,
			"wallet_balance": walletBalance,
		},
	}})
}

func (h *Hub) GameEnd(winnerName string, prize int64) {
	h.publish(&Message{Type: "game_end", Data: gin.H{
		"winner": winnerName,
		"prize":  prize,
	}})
}

type WebSocketHandler struct {
	engine *services.Engine
	hub    *Hub
}

func NewWebSocketHandler(engine *services.Engine, hub *Hub) *WebSocketHandler {
	return &WebSocketHandler{
		engine: engine,
		hub:    hub,
	}
}

func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	userID := c.GetString("user_id")
	username := c.GetString("username")

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Errorf("failed to upgrade to websocket: %v", err)
		return
	}

	client := &Client{
		UserID:   userID,
		Username: username,
		conn:     conn,
		send:     make(chan []byte, 32),
	}

	go client.writePump()

	// New connections get the current round once; everything after that
	// arrives via broadcast. The snapshot is queued before registration
	// so no broadcast can land ahead of it.
	h.sendSnapshot(client)
	h.hub.register <- client
	h.readPump(client)
}

func (h *WebSocketHandler) sendSnapshot(client *Client) {
	round, err := h.engine.CurrentRound(context.Background())
	if err != nil {
		logger.Errorf("failed to load round for snapshot: %v", err)
		h.sendTo(client, &Message{Type: "error", Data: gin.H{"message": "game state unavailable"}})
		return
	}
	h.sendTo(client, &Message{Type: "game_status", Data: roundStatusPayload(round)})
}

func (h *WebSocketHandler) sendTo(client *Client, msg *Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		logger.Errorf("failed to marshal %s event: %v", msg.Type, err)
		return
	}
	select {
	case client.send <- data:
	default:
		logger.Warnf("dropping %s event for slow client %s", msg.Type, client.Username)
	}
}

func (h *WebSocketHandler) readPump(client *Client) {
	defer func() {
		h.hub.unregister <- client
	}()

	for {
		var msg Message
		if err := client.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warnf("websocket error for %s: %v", client.Username, err)
			}
			return
		}
		h.handleMessage(client, &msg)
	}
}

func (h *WebSocketHandler) handleMessage(client *Client, msg *Message) {
	switch msg.Type {
	case "join_game":
		h.handleJoin(client)
	default:
		h.sendTo(client, &Message{Type: "error", Data: gin.H{
			"message": fmt.Sprintf("unknown message type %q", msg.Type),
		}})
	}
}

func (h *WebSocketHandler) handleJoin(client *Client) {
	_, _, err := h.engine.Join(context.Background(), client.UserID)
	if err != nil {
		h.sendTo(client, &Message{Type: "join_game_response", Data: gin.H{
			"success": false,
			"message": joinErrorMessage(err),
		}})
		return
	}

	h.sendTo(client, &Message{Type: "join_game_response", Data: gin.H{
		"success": true,
		"message": "You're in! Good luck.",
	}})
}

func joinErrorMessage(err error) string {
	switch {
	case errorsIsAny(err,
		services.ErrRoundNotJoinable,
		services.ErrAlreadyJoined,
		services.ErrInsufficientFunds,
		services.ErrRateLimited,
		services.ErrAccountBlocked):
		return err.Error()
	default:
		logger.Errorf("join failed: %v", err)
		return "could not join the game, please try again"
	}
}

func errorsIsAny(err error, targets ...error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
