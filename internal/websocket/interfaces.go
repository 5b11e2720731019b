package websocket

// MetricsProvider определяет метод для получения метрик хаба
type MetricsProvider interface {
	GetMetrics() map[string]interface{}
	ClientCount() int
}
