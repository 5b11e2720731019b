package websocket

import (
	"sync"
	"time"
)

// HubMetrics содержит счетчики хаба
type HubMetrics struct {
	totalConnections  int64
	activeConnections int64
	messagesSent      int64
	messagesDropped   int64
	clusterReceived   int64
	startTime         time.Time

	// Счетчики разосланных событий по типам
	messageTypeCounts map[string]int64

	mu sync.RWMutex
}

// NewHubMetrics создает новый экземпляр метрик
func NewHubMetrics() *HubMetrics {
	return &HubMetrics{
		startTime:         time.Now(),
		messageTypeCounts: make(map[string]int64),
	}
}

// IncrementTotalConnections учитывает новое подключение
func (m *HubMetrics) IncrementTotalConnections() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.totalConnections++
	m.activeConnections++
}

// DecrementActiveConnections учитывает отключение клиента
func (m *HubMetrics) DecrementActiveConnections() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.activeConnections > 0 {
		m.activeConnections--
	}
}

// AddMessageSent учитывает сообщения, поставленные в очередь клиентам
func (m *HubMetrics) AddMessageSent(messageType string, count int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messagesSent += count
	if messageType != "" {
		m.messageTypeCounts[messageType]++
	}
}

// AddMessageDropped учитывает сообщение, не доставленное из-за переполненного буфера
func (m *HubMetrics) AddMessageDropped() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messagesDropped++
}

// AddClusterReceived учитывает сообщение, пришедшее от другого экземпляра
func (m *HubMetrics) AddClusterReceived() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clusterReceived++
}

// Snapshot возвращает копию метрик
func (m *HubMetrics) Snapshot() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	byType := make(map[string]int64, len(m.messageTypeCounts))
	for k, v := range m.messageTypeCounts {
		byType[k] = v
	}

	return map[string]interface{}{
		"total_connections":  m.totalConnections,
		"active_connections": m.activeConnections,
		"messages_sent":      m.messagesSent,
		"messages_dropped":   m.messagesDropped,
		"cluster_received":   m.clusterReceived,
		"message_types":      byType,
		"uptime_seconds":     int64(time.Since(m.startTime).Seconds()),
	}
}
