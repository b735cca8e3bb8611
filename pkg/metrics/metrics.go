package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MQ 消费延迟（毫秒）
	MQConsumeLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mq_consume_latency_ms",
			Help:    "MQ message consumption latency in milliseconds",
			Buckets: prometheus.ExponentialBuckets(10, 2, 10), // 10ms to ~10s
		},
		[]string{"routing_key", "queue"},
	)

	// Agent（语言模型）调用延迟（毫秒）
	AgentCallLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "agent_call_latency_ms",
			Help:    "Language model call latency in milliseconds",
			Buckets: prometheus.ExponentialBuckets(100, 2, 10), // 100ms to ~100s
		},
		[]string{"operation", "status"},
	)

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
			Help: "Total number of slow database queries",
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

	// 提取出的待办事项数
	ActionItemCount = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "action_item_extracted_count",
			Help: "Total number of action items extracted from emails",
		},
	)

	// 邮件处理计数
	EmailProcessedCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "email_processed_count",
			Help: "Total number of emails processed",
		},
		[]string{"status"}, // status: success, failed
	)

	// 分类结果计数
	CategoryCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "email_category_count",
			Help: "Total number of categorization results",
		},
		[]string{"category", "recognized"},
	)

	// 批量处理耗时（秒）
	BatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "inbox_batch_duration_seconds",
			Help:    "Whole-inbox processing duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10), // 0.5s to ~4min
		},
	)

	// 快照写入计数
	SnapshotWriteCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "store_snapshot_write_count",
			Help: "Total number of store snapshot writes",
		},
		[]string{"driver", "status"},
	)
)

// RecordMQConsumeLatency 记录 MQ 消费延迟
func RecordMQConsumeLatency(routingKey, queue string, duration time.Duration) {
	MQConsumeLatency.WithLabelValues(routingKey, queue).Observe(float64(duration.Milliseconds()))
}

// RecordAgentCallLatency 记录 Agent 调用延迟
func RecordAgentCallLatency(operation, status string, duration time.Duration) {
	AgentCallLatency.WithLabelValues(operation, status).Observe(float64(duration.Milliseconds()))
}

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

// AddActionItems 增加待办事项计数
func AddActionItems(n int) {
	ActionItemCount.Add(float64(n))
}

// IncrementEmailProcessed 增加邮件处理计数
func IncrementEmailProcessed(status string) {
	EmailProcessedCount.WithLabelValues(status).Inc()
}

// IncrementCategory 记录一次分类结果
func IncrementCategory(category string, recognized bool) {
	label := "false"
	if recognized {
		label = "true"
	} else {
		// 未识别标签是任意文本，统一归为 other，避免 label 基数爆炸
		category = "other"
	}
	CategoryCount.WithLabelValues(category, label).Inc()
}

// RecordBatchDuration 记录批量处理耗时
func RecordBatchDuration(duration time.Duration) {
	BatchDuration.Observe(duration.Seconds())
}

// IncrementSnapshotWrite 记录一次快照写入
func IncrementSnapshotWrite(driver, status string) {
	SnapshotWriteCount.WithLabelValues(driver, status).Inc()
}
