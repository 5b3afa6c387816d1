package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// Счётчик HTTP-запросов
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)
	// Гистограмма времени обработки запросов
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)
	// Счётчик результатов проверки токенов в гейте
	TokenChecks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_token_checks_total",
			Help: "Total number of bearer token checks by outcome",
		},
		[]string{"outcome"},
	)
)

func InitMetrics() {
	prometheus.MustRegister(RequestCounter, RequestDuration, TokenChecks)
}
