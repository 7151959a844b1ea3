// Package metrics регистрирует метрики Prometheus сервиса.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Результаты отправки сообщения в LINE.
const (
	ResultSent   = "sent"
	ResultFailed = "failed"
)

// Metrics хранит коллекторы HTTP-запросов, отправок в LINE и новых заявок.
type Metrics struct {
	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
	linePushes    *prometheus.CounterVec
	requestsTotal *prometheus.CounterVec
}

// New создаёт коллекторы и регистрирует их в reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Количество HTTP-запросов.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Длительность обработки HTTP-запросов.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		linePushes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "line_push_total",
			Help: "Отправки сообщений в LINE по результату.",
		}, []string{"result"}),
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "requests_submitted_total",
			Help: "Созданные заявки по виду.",
		}, []string{"kind"}),
	}
	reg.MustRegister(m.httpRequests, m.httpDuration, m.linePushes, m.requestsTotal)
	return m
}

// ObserveHTTP учитывает завершённый HTTP-запрос.
func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// LinePush учитывает отправку сообщения в LINE.
func (m *Metrics) LinePush(ok bool) {
	result := ResultSent
	if !ok {
		result = ResultFailed
	}
	m.linePushes.WithLabelValues(result).Inc()
}

// RequestSubmitted учитывает новую заявку вида kind.
func (m *Metrics) RequestSubmitted(kind string) {
	m.requestsTotal.WithLabelValues(kind).Inc()
}
