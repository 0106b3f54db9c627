// Package metrics Prometheus指标
//
// 三类指标：
//   - Counter：只增不减，如事件发布总数、版本冲突次数
//   - Gauge：瞬时值，如熔断器状态、各状态失败事件数
//   - Histogram：分布，如库存操作耗时、中心入库耗时
//
// 命名规范：Counter以_total结尾，Histogram以单位结尾(_seconds)。
// 标签只使用有限取值（operation、result、status），不要把sku、门店编号放进标签。
//
// 使用：
//
//	metrics.InitMetrics()
//	router.GET("/metrics", gin.WrapH(metrics.Handler()))
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	initOnce sync.Once

	// HTTP请求相关指标

	// HTTPRequestsTotal HTTP请求总数
	// 标签：method、path（路由模板）、status
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTPRequestDuration HTTP请求耗时
	HTTPRequestDuration *prometheus.HistogramVec

	// HTTPRequestsInProgress 正在处理的HTTP请求数
	HTTPRequestsInProgress prometheus.Gauge

	// RateLimitedTotal 被限流拒绝的请求数
	RateLimitedTotal prometheus.Counter

	// 库存业务指标

	// InventoryOperationsTotal 库存操作总数
	// 标签：operation（reserve/commit/cancel/update/restock/create）、result（success/rejected/error）
	InventoryOperationsTotal *prometheus.CounterVec

	// InventoryOperationDuration 库存操作耗时（含乐观锁重试）
	InventoryOperationDuration *prometheus.HistogramVec

	// VersionConflictsTotal 乐观锁版本冲突次数
	// 标签：component（store/central）
	VersionConflictsTotal *prometheus.CounterVec

	// 熔断器指标

	// CircuitBreakerState 熔断器状态（0=CLOSED, 1=OPEN, 2=HALF_OPEN）
	CircuitBreakerState *prometheus.GaugeVec

	// CircuitBreakerRequests 熔断器请求总数
	// 标签：name、result（success/failure/rejected）
	CircuitBreakerRequests *prometheus.CounterVec

	// 事件发布指标

	// EventsPublishedTotal 事件发布结果
	// 标签：outcome（delivered/queued/lost）
	EventsPublishedTotal *prometheus.CounterVec

	// EventPublishDuration 同步发布耗时（含内联重试）
	EventPublishDuration prometheus.Histogram

	// FailedEventRetriesTotal 补偿重发结果
	// 标签：result（succeeded/rescheduled/failed）
	FailedEventRetriesTotal *prometheus.CounterVec

	// FailedEvents 各状态失败事件数
	FailedEvents *prometheus.GaugeVec

	// 中心节点指标

	// EventsIngestedTotal 中心入库结果
	// 标签：outcome（processed/ignored/rejected/failed）
	EventsIngestedTotal *prometheus.CounterVec

	// EventIngestDuration 单条事件入库耗时
	EventIngestDuration prometheus.Histogram
)

// InitMetrics 注册所有指标到默认Registry，重复调用无副作用
func InitMetrics() {
	initOnce.Do(register)
}

func register() {
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP请求总数",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP请求耗时（秒）",
			Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 10},
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInProgress = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_progress",
			Help: "正在处理的HTTP请求数",
		},
	)

	RateLimitedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "http_rate_limited_total",
			Help: "被限流拒绝的请求数",
		},
	)

	InventoryOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inventory_operations_total",
			Help: "库存操作总数",
		},
		[]string{"operation", "result"},
	)

	// 乐观锁重试最多5次、单次等待上限2s，桶覆盖到10s
	InventoryOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "inventory_operation_duration_seconds",
			Help:    "库存操作耗时（秒）",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10},
		},
		[]string{"operation"},
	)

	VersionConflictsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inventory_version_conflicts_total",
			Help: "乐观锁版本冲突次数",
		},
		[]string{"component"},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "熔断器状态（0=CLOSED, 1=OPEN, 2=HALF_OPEN）",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "熔断器请求总数",
		},
		[]string{"name", "result"},
	)

	EventsPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inventory_events_published_total",
			Help: "库存事件发布结果",
		},
		[]string{"outcome"},
	)

	// 内联重试预算约1+2+4+8秒
	EventPublishDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "inventory_event_publish_duration_seconds",
			Help:    "库存事件同步发布耗时（秒）",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 15, 30, 60},
		},
	)

	FailedEventRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "failed_event_retries_total",
			Help: "失败事件补偿重发结果",
		},
		[]string{"result"},
	)

	FailedEvents = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "failed_events",
			Help: "各状态失败事件数",
		},
		[]string{"status"},
	)

	EventsIngestedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "central_events_ingested_total",
			Help: "中心节点事件入库结果",
		},
		[]string{"outcome"},
	)

	EventIngestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "central_event_ingest_duration_seconds",
			Help:    "中心节点单条事件入库耗时（秒）",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
	)
}

// Handler /metrics端点
func Handler() http.Handler {
	return promhttp.Handler()
}

// IncCounter 递增Counter
func IncCounter(counter prometheus.Counter) {
	counter.Inc()
}

// IncCounterVec 递增CounterVec（带标签）
func IncCounterVec(counter *prometheus.CounterVec, labels map[string]string) {
	counter.With(labels).Inc()
}

// IncGauge 递增Gauge
func IncGauge(gauge prometheus.Gauge) {
	gauge.Inc()
}

// DecGauge 递减Gauge
func DecGauge(gauge prometheus.Gauge) {
	gauge.Dec()
}

// SetGaugeVec 设置GaugeVec值（带标签）
func SetGaugeVec(gauge *prometheus.GaugeVec, labels map[string]string, value float64) {
	gauge.With(labels).Set(value)
}

// ObserveHistogram 记录Histogram观测值
func ObserveHistogram(histogram prometheus.Histogram, value float64) {
	histogram.Observe(value)
}

// ObserveHistogramVec 记录HistogramVec观测值（带标签）
func ObserveHistogramVec(histogram *prometheus.HistogramVec, labels map[string]string, value float64) {
	histogram.With(labels).Observe(value)
}
