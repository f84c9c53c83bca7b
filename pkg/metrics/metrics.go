package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// 数据库查询延迟（秒）
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"operation", "table"},
	)

	// 慢查询计数
	SlowQueryCount = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "db_slow_query_count",
			Help: "Total number of queries slower than the configured threshold",
		},
	)

	// HTTP 请求延迟（秒）
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"method", "path", "status"},
	)

	// 待办操作计数
	TodoOperationCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "todo_operation_count",
			Help: "Total number of todo operations",
		},
		[]string{"operation", "result"}, // result: ok, invalid, forbidden, not_found, error
	)

	// 认证计数
	AuthAttemptCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_attempt_count",
			Help: "Total number of signup and login attempts",
		},
		[]string{"kind", "result"},
	)

	// 事件发布计数
	EventPublishCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "todo_event_publish_count",
			Help: "Total number of todo event publish attempts",
		},
		[]string{"routing_key", "result"}, // result: ok, error, skipped
	)
)

// RecordDBQueryDuration 记录数据库查询延迟
func RecordDBQueryDuration(operation, table string, duration time.Duration) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
}

// IncrementSlowQuery 增加慢查询计数
func IncrementSlowQuery() {
	SlowQueryCount.Inc()
}

// RecordHTTPRequestDuration 记录 HTTP 请求延迟
func RecordHTTPRequestDuration(method, path, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// IncrementTodoOperation 增加待办操作计数
func IncrementTodoOperation(operation, result string) {
	TodoOperationCount.WithLabelValues(operation, result).Inc()
}

// IncrementAuthAttempt 增加认证计数
func IncrementAuthAttempt(kind, result string) {
	AuthAttemptCount.WithLabelValues(kind, result).Inc()
}

// IncrementEventPublish 增加事件发布计数
func IncrementEventPublish(routingKey, result string) {
	EventPublishCount.WithLabelValues(routingKey, result).Inc()
}
