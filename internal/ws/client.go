package ws

import (
	"encoding/json"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"rps_arena/internal/logger"
	"rps_arena/internal/session"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 30 * time.Second
	pingPeriod = 25 * time.Second
)

// Client — одно ws-подключение игрока. Реализует game.Session:
// движок шлет события через SendEvent, не зная о транспорте.
type Client struct {
	UserID int64

	conn     *websocket.Conn
	Send     chan []byte
	registry *session.Registry

	alive     atomic.Bool
	closeOnce sync.Once
	Done      chan struct{}
}

func NewClient(userID int64, conn *websocket.Conn, registry *session.Registry) *Client {
	c := &Client{
		UserID:   userID,
		conn:     conn,
		Send:     make(chan []byte, 256),
		registry: registry,
		Done:     make(chan struct{}),
	}
	c.alive.Store(true)
	return c
}

// ID — идентификатор игрока в движке (десятичный id пользователя)
func (c *Client) ID() string {
	return strconv.FormatInt(c.UserID, 10)
}

// Alive сообщает, живо ли подключение; движок смотрит сюда при
// проверке грейс-окна реконнекта
func (c *Client) Alive() bool {
	return c.alive.Load()
}

// SendEvent сериализует событие движка и ставит его в очередь отправки.
// Переполненный буфер мертвого клиента не должен блокировать движок -
// сообщение просто отбрасывается.
func (c *Client) SendEvent(typ string, payload map[string]any) {
	env := map[string]any{"type": typ}
	for k, v := range payload {
		env[k] = v
	}
	data, err := json.Marshal(env)
	if err != nil {
		logger.Error("ws marshal failed", "type", typ, "error", err)
		return
	}
	select {
	case c.Send <- data:
	default:
		logger.Warn("ws send buffer full, dropping event", "user_id", c.UserID, "type", typ)
	}
}

// Run запускает оба пампа и сообщает движку о реконнекте,
// чтобы тот перепривязал сессию и снял назревающий форфейт
func (c *Client) Run() {
	go c.writePump()

	if m := c.registry.HandleReconnect(c.ID(), c); m != nil {
		// ресинк состояния после реконнекта
		c.SendEvent(session.EvMatchJoined, map[string]any{"match": m.View(), "resync": true})
	} else {
		c.SendEvent("ready", nil)
	}

	c.readPump()
}

// read
func (c *Client) readPump() {
	defer func() {
		c.disconnect()
		close(c.Done)
	}()

	c.conn.SetReadLimit(4096)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug("ws read error", "user_id", c.UserID, "error", err)
			}
			break
		}
		c.handleInbound(msg)
	}
}

// write
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.Send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
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

// disconnect помечает сессию мертвой и уведомляет движок;
// форфейт наступит только если игрок не вернется за грейс-окно
func (c *Client) disconnect() {
	c.closeOnce.Do(func() {
		c.alive.Store(false)
		c.registry.HandleDisconnect(c.ID())
		_ = c.conn.Close()
	})
}
