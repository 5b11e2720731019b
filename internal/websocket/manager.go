package websocket

import (
	"encoding/json"
	"fmt"

	log "github.com/sirupsen/logrus"
)

// Event представляет структуру WebSocket-сообщения
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Manager обрабатывает WebSocket сообщения и рассылает события сессий
type Manager struct {
	hub            *Hub
	messageHandler map[string]func(data json.RawMessage, client *Client) error
}

// NewManager создает новый менеджер WebSocket
func NewManager(hub *Hub) *Manager {
	m := &Manager{
		hub:            hub,
		messageHandler: make(map[string]func(data json.RawMessage, client *Client) error),
	}
	m.RegisterHandler(CLIENT_PING, func(data json.RawMessage, client *Client) error {
		return m.SendEventToClient(client, SERVER_PONG, nil)
	})
	return m
}

// RegisterHandler регистрирует обработчик для определенного типа сообщений
func (m *Manager) RegisterHandler(eventType string, handler func(data json.RawMessage, client *Client) error) {
	m.messageHandler[eventType] = handler
	log.Debugf("[WebSocketManager] Зарегистрирован обработчик для сообщений типа: %s", eventType)
}

// HandleMessage обрабатывает входящее сообщение от клиента.
// Возвращает error, если соединение нужно закрыть.
func (m *Manager) HandleMessage(message []byte, client *Client) error {
	var event struct {
		Type string          `json:"type"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(message, &event); err != nil {
		m.SendErrorToClient(client, "invalid_message_format", "Invalid JSON format")
		return err
	}

	handler, ok := m.messageHandler[event.Type]
	if !ok {
		m.SendErrorToClient(client, "unknown_message_type", fmt.Sprintf("Unknown message type: %s", event.Type))
		return nil
	}

	return handler(event.Data, client)
}

// SendErrorToClient отправляет стандартизированное сообщение об ошибке клиенту.
// Этот метод НЕ закрывает соединение.
func (m *Manager) SendErrorToClient(client *Client, code string, message string) {
	err := m.SendEventToClient(client, SERVER_ERROR, map[string]string{
		"code":    code,
		"message": message,
	})
	if err != nil {
		log.WithError(err).WithField("connection_id", client.ConnectionID).Warn("[WebSocketManager] Не удалось отправить ошибку клиенту")
	}
}

// SendEventToClient отправляет событие одному клиенту
func (m *Manager) SendEventToClient(client *Client, eventType string, data interface{}) error {
	payload, err := json.Marshal(Event{Type: eventType, Data: data})
	if err != nil {
		return fmt.Errorf("failed to marshal event %s: %w", eventType, err)
	}
	if !m.hub.SendToClient(client, payload) {
		return fmt.Errorf("client %s send buffer is full or closed", client.ConnectionID)
	}
	return nil
}

// BroadcastEventToSession отправляет событие всем клиентам, подключенным к сессии
func (m *Manager) BroadcastEventToSession(sessionName string, eventType string, data interface{}) error {
	payload, err := json.Marshal(Event{Type: eventType, Data: data})
	if err != nil {
		return fmt.Errorf("failed to marshal event %s for session %s: %w", eventType, sessionName, err)
	}
	return m.hub.BroadcastToRoom(sessionName, payload)
}

// GetMetrics возвращает текущие метрики WebSocket-системы
func (m *Manager) GetMetrics() map[string]interface{} {
	return m.hub.GetMetrics()
}
