package websocket

import (
	"bytes"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

const (
	// Время, которое разрешено писать сообщение клиенту.
	writeWait = 10 * time.Second

	// Время ожидания следующего pong от клиента.
	pongWait = 30 * time.Second

	// Периодичность отправки ping-сообщений клиенту.
	pingPeriod = (pongWait * 9) / 10

	// Максимальный размер входящего сообщения
	maxMessageSize = 512

	// Размер буфера по умолчанию для каналов отправки сообщений клиенту
	defaultClientBufferSize = 64

	// Максимальное количество переполнений буфера до отключения
	maxBufferWarnings = 3
)

var (
	newline = []byte{'\n'}
	space   = []byte{' '}
)

// ClientConfig содержит настройки для клиента
type ClientConfig struct {
	// BufferSize определяет размер буфера канала отправки сообщений
	BufferSize int

	// PingInterval определяет интервал между ping-сообщениями
	PingInterval time.Duration

	// PongWait определяет время ожидания pong-ответа
	PongWait time.Duration

	// WriteWait определяет тайм-аут для записи сообщений
	WriteWait time.Duration

	// MaxMessageSize определяет максимальный размер сообщения
	MaxMessageSize int64
}

// DefaultClientConfig возвращает конфигурацию клиента по умолчанию
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		BufferSize:     defaultClientBufferSize,
		PingInterval:   pingPeriod,
		PongWait:       pongWait,
		WriteWait:      writeWait,
		MaxMessageSize: maxMessageSize,
	}
}

func (cfg ClientConfig) withDefaults() ClientConfig {
	def := DefaultClientConfig()
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = def.BufferSize
	}
	if cfg.PongWait <= 0 {
		cfg.PongWait = def.PongWait
	}
	if cfg.PingInterval <= 0 || cfg.PingInterval >= cfg.PongWait {
		cfg.PingInterval = (cfg.PongWait * 9) / 10
	}
	if cfg.WriteWait <= 0 {
		cfg.WriteWait = def.WriteWait
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = def.MaxMessageSize
	}
	return cfg
}

// Client является посредником между WebSocket соединением и хабом.
type Client struct {
	// Уникальный ID соединения
	ConnectionID string

	// Комната (имя сессии), к которой подключен клиент
	Room string

	hub  *Hub
	conn *websocket.Conn

	// Буферизованный канал для исходящих сообщений
	send chan []byte

	// Флаг, указывающий что канал send закрыт (для предотвращения panic)
	sendClosed atomic.Bool

	config ClientConfig

	// Счетчик переполнений буфера подряд
	bufferWarningCount atomic.Int32
}

// NewClient создает нового клиента комнаты
func NewClient(hub *Hub, conn *websocket.Conn, room string, config ClientConfig) *Client {
	config = config.withDefaults()
	return &Client{
		ConnectionID: uuid.NewString(),
		Room:         room,
		hub:          hub,
		conn:         conn,
		send:         make(chan []byte, config.BufferSize),
		config:       config,
	}
}

// enqueue ставит сообщение в очередь без блокировки.
// Вызывается под блокировкой хаба, поэтому канал не может быть закрыт одновременно.
func (c *Client) enqueue(message []byte) bool {
	if c.sendClosed.Load() {
		return false
	}
	select {
	case c.send <- message:
		c.bufferWarningCount.Store(0)
		return true
	default:
		return false
	}
}

// readPump читает сообщения от клиента и передает их обработчику
func (c *Client) readPump(messageHandler func(message []byte, client *Client) error) {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(c.config.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.config.PongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.config.PongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				log.WithError(err).WithField("connection_id", c.ConnectionID).Warn("[WebSocketClient] Ошибка чтения")
			}
			break
		}

		if handlerErr := safeHandleMessage(message, c, messageHandler); handlerErr != nil {
			log.WithError(handlerErr).WithField("connection_id", c.ConnectionID).
				Warn("[WebSocketClient] Ошибка обработчика, соединение закрывается")
			break
		}
	}
}

// safeHandleMessage вызывает обработчик с recover
func safeHandleMessage(message []byte, client *Client, messageHandler func(message []byte, client *Client) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("[WebSocketClient] PANIC в обработчике сообщения (conn %s): %v\n%s", client.ConnectionID, r, string(debug.Stack()))
			err = fmt.Errorf("panic recovered: %v", r)
		}
	}()
	message = bytes.TrimSpace(bytes.Replace(message, newline, space, -1))
	if messageHandler != nil {
		err = messageHandler(message, client)
	}
	return err
}

// writePump отправляет сообщения клиенту из канала send
func (c *Client) writePump() {
	ticker := time.NewTicker(c.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteWait)); err != nil {
				return
			}
			if !ok {
				// Хаб закрыл канал клиента
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.WithError(err).WithField("connection_id", c.ConnectionID).Debug("[WebSocketClient] Ошибка записи")
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// StartPumps регистрирует клиента в хабе и запускает горутины чтения и записи
func (c *Client) StartPumps(messageHandler func(message []byte, client *Client) error) {
	c.hub.Register(c)
	go c.writePump()
	go c.readPump(messageHandler)
}

func (c *Client) incrementBufferWarningCount() int32 {
	return c.bufferWarningCount.Add(1)
}

// CloseSend безопасно закрывает канал send (только один раз).
// Возвращает true, если канал был закрыт этим вызовом.
func (c *Client) CloseSend() bool {
	if c.sendClosed.CompareAndSwap(false, true) {
		close(c.send)
		return true
	}
	return false
}

// IsSendClosed проверяет, закрыт ли канал send
func (c *Client) IsSendClosed() bool {
	return c.sendClosed.Load()
}

// messageTypeFromBytes пытается извлечь тип сообщения из JSON
func messageTypeFromBytes(message []byte) string {
	var event struct {
		Type string `json:"type"`
	}
	if json.Unmarshal(message, &event) == nil && event.Type != "" {
		return event.Type
	}
	return "unknown"
}
