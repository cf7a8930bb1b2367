package service

import (
	"context"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"

	"github.com/noah-isme/gema-chat-service/internal/dto"
)

const (
	clientSendBufferSize = 32
	keepAliveInterval    = 30 * time.Second
)

// wsConn is the subset of *websocket.Conn the gateway relies on, split out so
// tests can substitute an in-memory transport.
type wsConn interface {
	ReadJSON(v interface{}) error
	WriteJSON(v interface{}) error
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// chatClient owns one live connection: its session identity, the rooms it has
// joined, and the buffered outbound queue drained by the writer pump.
type chatClient struct {
	id      string
	userID  string
	conn    wsConn
	send    chan dto.ServerEvent
	service *chatService
	baseCtx context.Context

	closed chan struct{}
	once   sync.Once

	mu    sync.Mutex
	rooms map[string]struct{}
}

// addRoom records the membership locally and reports whether it is new.
// Returns false for repeat joins and for clients already disconnected.
func (c *chatClient) addRoom(room string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.rooms == nil {
		return false
	}
	if _, exists := c.rooms[room]; exists {
		return false
	}
	c.rooms[room] = struct{}{}
	return true
}

// detachRooms hands back every joined room exactly once; later calls return nil.
func (c *chatClient) detachRooms() map[string]struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	rooms := c.rooms
	c.rooms = nil
	return rooms
}

func (c *chatClient) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

func (c *chatClient) reader() {
	defer c.close()

	ctx := c.baseCtx
	if ctx == nil {
		ctx = context.Background()
	}

	for {
		var event dto.ClientEvent
		if err := c.conn.ReadJSON(&event); err != nil {
			c.service.logger.Debug().Err(err).Str("connection_id", c.id).Msg("chat read loop ended")
			return
		}

		switch event.Event {
		case dto.EventJoinRoom:
			if err := c.service.Join(ctx, c, event.Room); err != nil {
				c.reject(err)
			}
		case dto.EventChatMessage:
			if event.Message == nil {
				c.reject(ErrInvalidMessage)
				continue
			}
			if _, err := c.service.Dispatch(ctx, c, *event.Message); err != nil {
				c.reject(err)
			}
		default:
			c.service.logger.Warn().Str("event", event.Event).Str("connection_id", c.id).Msg("unknown client event")
		}
	}
}

// reject reports a validation failure back to the offending sender only.
func (c *chatClient) reject(err error) {
	select {
	case c.send <- dto.NewErrorServerEvent(err):
	default:
		c.service.logger.Warn().Str("connection_id", c.id).Msg("sender queue full, dropping error event")
	}
}

func (c *chatClient) writer() {
	defer c.close()

	for {
		select {
		case event, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.WriteJSON(event); err != nil {
				c.service.logger.Debug().Err(err).Str("connection_id", c.id).Msg("chat write loop terminated")
				return
			}
		case <-time.After(keepAliveInterval):
			if err := c.conn.WriteMessage(websocket.PingMessage, []byte("keepalive")); err != nil {
				c.service.logger.Debug().Err(err).Str("connection_id", c.id).Msg("chat ping failed")
				return
			}
		case <-c.closed:
			return
		}
	}
}

func (c *chatClient) close() {
	c.once.Do(func() {
		close(c.closed)
		c.service.Disconnect(c)
		_ = c.conn.Close()
	})
}
