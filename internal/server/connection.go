package server

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/feltengine/felt/internal/broadcast"
	"github.com/feltengine/felt/internal/game"
)

// Role says who is on the other end of a connection.
type Role string

const (
	RoleBot    Role = "bot"
	RoleViewer Role = "viewer"
	RoleAdmin  Role = "admin"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 8192
)

// Connection wraps one WebSocket client. Outbound envelopes go through a
// buffered channel; a full buffer drops the connection rather than
// blocking game logic.
type Connection struct {
	conn      *websocket.Conn
	send      chan broadcast.Envelope
	role      Role
	playerID  string // set for bots
	logger    *log.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
	server    *Server
}

func newConnection(conn *websocket.Conn, role Role, playerID string, srv *Server) *Connection {
	ctx, cancel := context.WithCancel(context.Background())
	return &Connection{
		conn:     conn,
		send:     make(chan broadcast.Envelope, 256),
		role:     role,
		playerID: playerID,
		logger:   srv.logger.WithPrefix("conn").With("role", role),
		ctx:      ctx,
		cancel:   cancel,
		server:   srv,
	}
}

// start begins the read and write pumps.
func (c *Connection) start() {
	go c.writePump()
	go c.readPump()
}

// Close tears the connection down. Safe to call more than once.
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()
		close(c.send)
		err = c.conn.Close()
	})
	return err
}

// Send queues an envelope for delivery. A full buffer or closed
// connection drops the client.
func (c *Connection) Send(env broadcast.Envelope) {
	defer func() {
		if r := recover(); r != nil {
			// Channel closed during shutdown.
			c.logger.Debug("send on closed connection", "error", r)
		}
	}()

	select {
	case c.send <- env:
	case <-c.ctx.Done():
	default:
		c.logger.Warn("send buffer full, dropping connection", "player", c.playerID)
		c.server.hub.unregister(c)
		_ = c.Close()
	}
}

func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case env, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(env); err != nil {
				c.logger.Error("failed to write message", "error", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.ctx.Done():
			return
		}
	}
}

func (c *Connection) readPump() {
	defer func() {
		c.server.hub.unregister(c)
		_ = c.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		var msg inboundMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("websocket error", "error", err)
			}
			return
		}
		c.handleMessage(msg)
	}
}

// inboundMessage is a client-to-server frame.
type inboundMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

func (c *Connection) handleMessage(msg inboundMessage) {
	switch msg.Type {
	case "ping":
		c.Send(broadcast.NewEnvelope("pong", nil))

	case "action":
		if c.role != RoleBot {
			c.sendError("forbidden", "only bots submit actions")
			return
		}
		var data struct {
			ActionType string `json:"action_type"`
			Amount     int    `json:"amount"`
		}
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "failed to parse action data")
			return
		}
		actionType, err := game.ParseActionType(data.ActionType)
		if err != nil {
			c.sendError("invalid_action", err.Error())
			return
		}
		action := game.Action{Type: actionType, Amount: data.Amount}
		if _, err := c.server.coordinator.SubmitAction(c.playerID, action); err != nil {
			c.sendError("action_rejected", err.Error())
		}
		// Results and fresh state arrive through the sink.

	default:
		c.sendError("unknown_message_type", "unknown message type: "+msg.Type)
	}
}

func (c *Connection) sendError(code, message string) {
	c.Send(broadcast.NewEnvelope("error", map[string]string{
		"code":    code,
		"message": message,
	}))
}
