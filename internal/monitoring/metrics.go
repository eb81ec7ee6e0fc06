package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 监控指标
type Metrics struct {
	// HTTP 请求指标
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// 邮件指标
	MessagesStored  prometheus.Counter
	MessagesDeduped prometheus.Counter

	// 投递指标
	DispatchTotal    *prometheus.CounterVec
	DispatchDuration prometheus.Histogram

	// 签名指标
	SignatureResolves  prometheus.Counter
	SignatureCacheHits prometheus.Counter

	// 日志指标
	LogEntriesAppended prometheus.Counter
	LogEntriesEvicted  prometheus.Counter

	// 错误指标
	ErrorsTotal *prometheus.CounterVec
	PanicsTotal prometheus.Counter
}

// NewMetrics 创建监控指标
func NewMetrics() *Metrics {
	return &Metrics{
		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "maildispatch_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status_code"},
		),

		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "maildispatch_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),

		MessagesStored: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "maildispatch_messages_stored_total",
				Help: "Total number of messages stored",
			},
		),

		MessagesDeduped: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "maildispatch_messages_deduped_total",
				Help: "Total number of store requests resolved to an existing message",
			},
		),

		DispatchTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "maildispatch_dispatch_total",
				Help: "Total number of dispatch attempts by outcome",
			},
			[]string{"outcome"},
		),

		DispatchDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "maildispatch_dispatch_duration_seconds",
				Help:    "Dispatch duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),

		SignatureResolves: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "maildispatch_signature_resolves_total",
				Help: "Total number of signature resolutions from the filesystem",
			},
		),

		SignatureCacheHits: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "maildispatch_signature_cache_hits_total",
				Help: "Total number of signature resolutions served from cache",
			},
		),

		LogEntriesAppended: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "maildispatch_log_entries_appended_total",
				Help: "Total number of attempt log entries appended",
			},
		),

		LogEntriesEvicted: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "maildispatch_log_entries_evicted_total",
				Help: "Total number of attempt log entries evicted by the history cap",
			},
		),

		ErrorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "maildispatch_errors_total",
				Help: "Total number of errors",
			},
			[]string{"type", "component"},
		),

		PanicsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "maildispatch_panics_total",
				Help: "Total number of panics",
			},
		),
	}
}

// RecordHTTPRequest 记录 HTTP 请求指标
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordMessageStored 记录新邮件入库
func (m *Metrics) RecordMessageStored() {
	m.MessagesStored.Inc()
}

// RecordMessageDeduped 记录去重命中
func (m *Metrics) RecordMessageDeduped() {
	m.MessagesDeduped.Inc()
}

// RecordDispatch 记录一次投递结果与耗时
func (m *Metrics) RecordDispatch(outcome string, duration time.Duration) {
	m.DispatchTotal.WithLabelValues(outcome).Inc()
	m.DispatchDuration.Observe(duration.Seconds())
}

// RecordSignatureResolve 记录一次文件系统签名解析
func (m *Metrics) RecordSignatureResolve() {
	m.SignatureResolves.Inc()
}

// RecordSignatureCacheHit 记录一次签名缓存命中
func (m *Metrics) RecordSignatureCacheHit() {
	m.SignatureCacheHits.Inc()
}

// RecordLogAppended 记录日志追加
func (m *Metrics) RecordLogAppended() {
	m.LogEntriesAppended.Inc()
}

// RecordError 记录错误
func (m *Metrics) RecordError(errorType, component string) {
	m.ErrorsTotal.WithLabelValues(errorType, component).Inc()
}

// RecordPanic 记录 panic
func (m *Metrics) RecordPanic() {
	m.PanicsTotal.Inc()
}

// HTTPHandler 返回 Prometheus HTTP 处理器
func (m *Metrics) HTTPHandler() http.Handler {
	return promhttp.Handler()
}
