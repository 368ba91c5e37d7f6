package main

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jbantin/multiplayer-proto/protocol"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBufSize    = 256
)

var (
	errUnknownType = errors.New("unknown message type")
	errBadAngle    = errors.New("angle is not a finite number")
)

func errUnknownDirection(dir string) error {
	return fmt.Errorf("unknown direction %q", dir)
}

// Client represents a WebSocket connection
type Client struct {
	hub        *Hub
	conn       *websocket.Conn
	id         string
	enc        protocol.Encoding
	remoteAddr string

	mu     sync.Mutex // guards send against close
	send   chan []byte
	closed bool
}

// NewClient creates a new Client with a bounded outbound queue
func NewClient(hub *Hub, conn *websocket.Conn, remoteAddr string, enc protocol.Encoding, queue int) *Client {
	if queue < 1 {
		queue = sendBufSize
	}
	return &Client{
		hub:        hub,
		conn:       conn,
		id:         NewSessionID(),
		enc:        enc,
		remoteAddr: remoteAddr,
		send:       make(chan []byte, queue),
	}
}

// ID returns the session id
func (c *Client) ID() string { return c.id }

// Encoding implements Session
func (c *Client) Encoding() protocol.Encoding { return c.enc }

// Enqueue implements Session. When the queue is full the oldest frame is
// discarded to make room.
func (c *Client) Enqueue(frame []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	for {
		select {
		case c.send <- frame:
			return
		default:
		}
		select {
		case <-c.send:
			c.hub.metrics.IncDropped()
		default:
		}
	}
}

// close stops further sends and lets WritePump finish
func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// ReadPump reads messages from the WebSocket connection
func (c *Client) ReadPump() {
	defer func() {
		c.hub.TrackDisconnect(c.remoteAddr)
		c.hub.Remove(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		msgType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				Log.Warnw("ws read error", "session", c.id, "err", err)
			}
			break
		}
		enc := protocol.JSON
		if msgType == websocket.BinaryMessage {
			enc = protocol.MsgPack
		}
		c.handleMessage(enc, message)
	}
}

// WritePump writes messages to the WebSocket connection
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	msgType := websocket.TextMessage
	if c.enc.Binary() {
		msgType = websocket.BinaryMessage
	}

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(msgType, message); err != nil {
				Log.Debugw("ws write error", "session", c.id, "err", err)
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

// handleMessage routes incoming commands. Malformed messages are dropped
// with a diagnostic; the connection stays open.
func (c *Client) handleMessage(enc protocol.Encoding, raw []byte) {
	f, err := protocol.Unmarshal(enc, raw)
	if err != nil {
		c.malformed("", err)
		return
	}

	game := c.hub.game
	switch f.T {
	case protocol.MsgJoin:
		msg, err := protocol.DecodePayload[protocol.JoinMsg](f)
		if err != nil {
			c.malformed(f.T, err)
			return
		}
		game.Join(c.id, msg.Username)

	case protocol.MsgMove:
		msg, err := protocol.DecodePayload[protocol.MoveMsg](f)
		if err != nil {
			c.malformed(f.T, err)
			return
		}
		dir, ok := protocol.ParseDirection(msg.Dir)
		if !ok {
			c.malformed(f.T, errUnknownDirection(msg.Dir))
			return
		}
		game.Move(c.id, dir, msg.Seq)

	case protocol.MsgAim:
		msg, err := protocol.DecodePayload[protocol.AimMsg](f)
		if err != nil {
			c.malformed(f.T, err)
			return
		}
		if !Finite(msg.Angle) {
			c.malformed(f.T, errBadAngle)
			return
		}
		game.Aim(c.id, msg.Angle)

	case protocol.MsgFire:
		msg, err := protocol.DecodePayload[protocol.FireMsg](f)
		if err != nil {
			c.malformed(f.T, err)
			return
		}
		if !Finite(msg.Angle) {
			c.malformed(f.T, errBadAngle)
			return
		}
		game.Fire(c.id, msg.Angle)

	default:
		c.malformed(f.T, errUnknownType)
	}
}

func (c *Client) malformed(t string, err error) {
	c.hub.metrics.IncMalformed()
	Log.Debugw("dropped malformed message", "session", c.id, "type", t, "err", err)
}
