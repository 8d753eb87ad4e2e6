package network

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second
	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second
	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
	// Maximum message size allowed from peer.
	maxMessageSize = 512
)

// Client action types.
const (
	ActionToggleFarm    = "TOGGLE_FARM"
	ActionSetIgnoreRest = "SET_IGNORE_REST"
)

// Errors reported back to a client.
var (
	ErrRateLimited   = errors.New("rate limit exceeded")
	ErrUnknownAction = errors.New("unknown action")
)

// PlayerAction represents an incoming command from the frontend.
type PlayerAction struct {
	Type       string `json:"type"`                  // "TOGGLE_FARM", "SET_IGNORE_REST"
	ColonistID string `json:"colonist_id,omitempty"` // Target of TOGGLE_FARM
	Value      *bool  `json:"value,omitempty"`       // New SET_IGNORE_REST value
}

// ActionReply is sent only to the client that sent the action.
type ActionReply struct {
	Type   string `json:"type"` // "ACK" or "ERROR"
	Action string `json:"action"`
	Error  string `json:"error,omitempty"`
}

// Client is one WebSocket connection.
type Client struct {
	hub            *Hub
	conn           *websocket.Conn
	send           chan []byte
	lastActionTime time.Time
}

// NewClient creates a new WebSocket client and returns it.
func NewClient(hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		hub:  hub,
		conn: conn,
		send: make(chan []byte, hub.opts.ClientSendBuffer),
	}
}

// Register adds the client to the hub. It reports false once the hub has stopped.
func (c *Client) Register() bool {
	select {
	case c.hub.register <- c:
		return true
	case <-c.hub.done:
		return false
	}
}

func (c *Client) unregister() {
	select {
	case c.hub.unregister <- c:
	case <-c.hub.done:
	}
}

// ReadPump pumps messages from the websocket connection to the hub.
func (c *Client) ReadPump() {
	defer func() {
		c.unregister()
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.metrics.RecordWSError()
				c.hub.logger.Warn("websocket read failed", zap.Error(err))
			}
			break
		}
		c.hub.metrics.RecordWSMessage(true)

		var action PlayerAction
		if err := json.Unmarshal(message, &action); err != nil {
			c.hub.logger.Warn("Failed to parse PlayerAction from WebSocket", zap.Error(err))
			c.reply(ActionReply{Type: "ERROR", Error: "invalid json"})
			continue
		}

		err = c.handlePlayerAction(action)
		reply := ActionReply{Type: "ACK", Action: action.Type}
		if err != nil {
			reply = ActionReply{Type: "ERROR", Action: action.Type, Error: err.Error()}
		}
		c.reply(reply)
	}
}

func (c *Client) handlePlayerAction(action PlayerAction) error {
	if interval := c.hub.opts.ActionInterval; interval > 0 && time.Since(c.lastActionTime) < interval {
		c.hub.logger.Warn("Rate limit exceeded for client action", zap.String("action", action.Type))
		return ErrRateLimited
	}
	c.lastActionTime = time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), writeWait)
	defer cancel()

	switch action.Type {
	case ActionToggleFarm:
		enabled, err := c.hub.colony.ToggleFarm(ctx, action.ColonistID)
		if err != nil {
			return err
		}
		c.hub.logger.Event("PLAYER_ACTION_TOGGLE", action.ColonistID, "toggled automatic extraction", zap.Bool("enabled", enabled))
		return nil
	case ActionSetIgnoreRest:
		if action.Value == nil {
			return errors.New("value is required")
		}
		_, err := c.hub.colony.SetIgnoreRestCondition(ctx, *action.Value)
		return err
	default:
		c.hub.logger.Warn("Unknown PlayerAction type", zap.String("type", action.Type))
		return ErrUnknownAction
	}
}

// reply queues a message for this client only. Dropped if the buffer is full.
func (c *Client) reply(r ActionReply) {
	data, err := json.Marshal(r)
	if err != nil {
		return
	}
	select {
	case c.hub.direct <- directMessage{client: c, data: data}:
	case <-c.hub.done:
	}
}

// WritePump pumps messages from the hub to the websocket connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Add queued messages to the current websocket message.
			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
				c.hub.metrics.RecordWSError()
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
