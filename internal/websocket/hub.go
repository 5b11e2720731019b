package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// HubConfig содержит настройки хаба
type HubConfig struct {
	// ClusterEnabled включает рассылку событий между экземплярами через Pub/Sub
	ClusterEnabled bool
	// ClusterChannel — канал Pub/Sub для событий комнат
	ClusterChannel string
	// InstanceID — идентификатор экземпляра, генерируется, если пуст
	InstanceID string
}

// ClusterMessage — событие комнаты, передаваемое между экземплярами
type ClusterMessage struct {
	InstanceID string          `json:"instance_id"`
	Room       string          `json:"room"`
	Payload    json.RawMessage `json:"payload"`
	Timestamp  time.Time       `json:"timestamp"`
}

// Hub хранит подключения, сгруппированные по комнатам (имя сессии → клиенты)
type Hub struct {
	config   HubConfig
	provider PubSubProvider
	metrics  *HubMetrics

	mu    sync.RWMutex
	rooms map[string]map[*Client]struct{}
}

// NewHub создает новый хаб. Без провайдера используется NoOpPubSub.
func NewHub(cfg HubConfig, provider PubSubProvider) *Hub {
	if cfg.InstanceID == "" {
		cfg.InstanceID = "instance_" + uuid.NewString()
	}
	if cfg.ClusterChannel == "" {
		cfg.ClusterChannel = "livequiz:ws:rooms"
	}
	if provider == nil {
		provider = &NoOpPubSub{}
	}
	return &Hub{
		config:   cfg,
		provider: provider,
		metrics:  NewHubMetrics(),
		rooms:    make(map[string]map[*Client]struct{}),
	}
}

// Register добавляет клиента в комнату
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	room, ok := h.rooms[client.Room]
	if !ok {
		room = make(map[*Client]struct{})
		h.rooms[client.Room] = room
	}
	room[client] = struct{}{}
	h.mu.Unlock()

	h.metrics.IncrementTotalConnections()
	log.WithFields(log.Fields{
		"room":          client.Room,
		"connection_id": client.ConnectionID,
	}).Debug("[WebSocketHub] Клиент подключен")
}

// Unregister удаляет клиента из комнаты и закрывает его канал отправки.
// Повторный вызов безопасен.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	room, ok := h.rooms[client.Room]
	if ok {
		if _, exists := room[client]; exists {
			delete(room, client)
			if len(room) == 0 {
				delete(h.rooms, client.Room)
			}
		} else {
			ok = false
		}
	}
	// Канал закрывается под блокировкой, чтобы рассылка не писала в закрытый канал
	client.CloseSend()
	h.mu.Unlock()

	if ok {
		h.metrics.DecrementActiveConnections()
		log.WithFields(log.Fields{
			"room":          client.Room,
			"connection_id": client.ConnectionID,
		}).Debug("[WebSocketHub] Клиент отключен")
	}
}

// BroadcastToRoom рассылает сообщение локальным клиентам комнаты и,
// в кластерном режиме, остальным экземплярам
func (h *Hub) BroadcastToRoom(room string, message []byte) error {
	h.BroadcastToRoomLocal(room, message)

	if !h.config.ClusterEnabled {
		return nil
	}
	data, err := json.Marshal(ClusterMessage{
		InstanceID: h.config.InstanceID,
		Room:       room,
		Payload:    message,
		Timestamp:  time.Now(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal cluster message for room %s: %w", room, err)
	}
	return h.provider.Publish(h.config.ClusterChannel, data)
}

// BroadcastToRoomLocal рассылает сообщение только клиентам этого экземпляра.
// Возвращает количество клиентов, которым сообщение поставлено в очередь.
func (h *Hub) BroadcastToRoomLocal(room string, message []byte) int {
	var slow []*Client
	delivered := 0

	h.mu.RLock()
	for client := range h.rooms[room] {
		if client.enqueue(message) {
			delivered++
			continue
		}
		h.metrics.AddMessageDropped()
		if client.incrementBufferWarningCount() >= maxBufferWarnings {
			slow = append(slow, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range slow {
		log.WithField("connection_id", client.ConnectionID).
			Warn("[WebSocketHub] Буфер клиента переполнен, соединение закрывается")
		h.Unregister(client)
	}

	h.metrics.AddMessageSent(messageTypeFromBytes(message), int64(delivered))
	return delivered
}

// SendToClient отправляет сообщение одному клиенту
func (h *Hub) SendToClient(client *Client, message []byte) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if client.enqueue(message) {
		h.metrics.AddMessageSent(messageTypeFromBytes(message), 1)
		return true
	}
	h.metrics.AddMessageDropped()
	return false
}

// Run слушает события других экземпляров до отмены контекста
func (h *Hub) Run(ctx context.Context) error {
	if !h.config.ClusterEnabled {
		log.Info("[WebSocketHub] Кластерный режим отключен, работаем в автономном режиме")
		<-ctx.Done()
		return nil
	}

	messages, err := h.provider.Subscribe(ctx, h.config.ClusterChannel)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", h.config.ClusterChannel, err)
	}
	log.WithFields(log.Fields{
		"instance_id": h.config.InstanceID,
		"channel":     h.config.ClusterChannel,
	}).Info("[WebSocketHub] Запущен кластерный режим")

	for {
		select {
		case <-ctx.Done():
			return nil
		case data, ok := <-messages:
			if !ok {
				log.Warn("[WebSocketHub] Канал кластерных сообщений закрыт")
				return nil
			}
			h.handleClusterMessage(data)
		}
	}
}

func (h *Hub) handleClusterMessage(data []byte) {
	var msg ClusterMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		log.WithError(err).Warn("[WebSocketHub] Некорректное кластерное сообщение")
		return
	}
	// Свои сообщения уже доставлены локально
	if msg.InstanceID == h.config.InstanceID {
		return
	}
	h.metrics.AddClusterReceived()
	h.BroadcastToRoomLocal(msg.Room, msg.Payload)
}

// Close отключает всех клиентов и закрывает провайдера Pub/Sub
func (h *Hub) Close() error {
	h.mu.Lock()
	var clients []*Client
	for _, room := range h.rooms {
		for client := range room {
			clients = append(clients, client)
		}
	}
	h.mu.Unlock()

	for _, client := range clients {
		h.Unregister(client)
	}
	return h.provider.Close()
}

// ClientCount возвращает количество подключенных клиентов
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	count := 0
	for _, room := range h.rooms {
		count += len(room)
	}
	return count
}

// RoomClientCount возвращает количество клиентов в комнате
func (h *Hub) RoomClientCount(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// GetMetrics возвращает метрики хаба
func (h *Hub) GetMetrics() map[string]interface{} {
	metrics := h.metrics.Snapshot()
	h.mu.RLock()
	metrics["rooms"] = len(h.rooms)
	h.mu.RUnlock()
	metrics["instance_id"] = h.config.InstanceID
	metrics["cluster_enabled"] = h.config.ClusterEnabled
	return metrics
}
