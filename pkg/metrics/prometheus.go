package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests served by the worker.",
		},
		[]string{"method", "endpoint", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request durations.",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
		},
		[]string{"method", "endpoint", "status"},
	)
	fetchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crawler_fetch_total",
			Help: "Total number of marketplace page fetches.",
		},
		[]string{"source", "status"},
	)
	fetchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "crawler_fetch_duration_seconds",
			Help:    "Histogram of marketplace page fetch durations.",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"source"},
	)
	messagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "queue_messages_total",
			Help: "Total number of handled queue messages by outcome.",
		},
		[]string{"topic", "outcome"},
	)
	handleDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "queue_handle_duration_seconds",
			Help:    "Histogram of queue message handler durations.",
			Buckets: []float64{0.05, 0.25, 1, 5, 15, 60, 300},
		},
		[]string{"topic"},
	)
	productsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crawler_products_total",
			Help: "Total number of persisted listing records by action.",
		},
		[]string{"source", "action"},
	)
	telemetryTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crawler_telemetry_events_total",
			Help: "Total number of reported anomalies by level and kind.",
		},
		[]string{"level", "kind"},
	)
	telemetryDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "crawler_telemetry_events_dropped_total",
			Help: "Total number of anomalies dropped because the reporter buffer was full.",
		},
	)
)

// Исходы обработки сообщения очереди.
const (
	OutcomeAck   = "ack"
	OutcomeRetry = "retry"
	OutcomeDLQ   = "dlq"
	OutcomeFatal = "fatal"
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		fetchTotal,
		fetchDuration,
		messagesTotal,
		handleDuration,
		productsTotal,
		telemetryTotal,
		telemetryDropped,
	)
}

// RecordRequest записывает метрики для HTTP-запроса.
func RecordRequest(method, endpoint string, statusCode int, duration time.Duration) {
	status := classifyStatus(statusCode)
	httpRequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	httpRequestDuration.WithLabelValues(method, endpoint, status).Observe(duration.Seconds())
}

// RecordFetch записывает метрики скачивания страницы маркетплейса.
// statusCode == 0 означает сетевую ошибку.
func RecordFetch(source string, statusCode int, duration time.Duration) {
	status := "error"
	if statusCode > 0 {
		status = strconv.Itoa(statusCode)
	}
	fetchTotal.WithLabelValues(source, status).Inc()
	fetchDuration.WithLabelValues(source).Observe(duration.Seconds())
}

func RecordMessage(topic, outcome string) {
	messagesTotal.WithLabelValues(topic, outcome).Inc()
}

func RecordHandle(topic string, duration time.Duration) {
	handleDuration.WithLabelValues(topic).Observe(duration.Seconds())
}

func RecordProduct(source, action string) {
	productsTotal.WithLabelValues(source, action).Inc()
}

func RecordTelemetry(level, kind string) {
	telemetryTotal.WithLabelValues(level, kind).Inc()
}

func RecordTelemetryDropped() {
	telemetryDropped.Inc()
}

// classifyStatus классифицирует HTTP-статус код в строку.
func classifyStatus(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return "2xx"
	case statusCode >= 300 && statusCode < 400:
		return "3xx"
	case statusCode >= 400 && statusCode < 500:
		return "4xx"
	case statusCode >= 500 && statusCode < 600:
		return "5xx"
	}
	return "unknown"
}

// Handler возвращает HTTP-обработчик для экспорта метрик Prometheus.
func Handler() http.Handler {
	return promhttp.Handler()
}
