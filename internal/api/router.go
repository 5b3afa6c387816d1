package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/honeynil/auth-service/internal/auth"
	"github.com/honeynil/auth-service/internal/handler"
	"github.com/honeynil/auth-service/internal/infrastructure/observability"
	"github.com/honeynil/auth-service/internal/infrastructure/redis"
	appmiddleware "github.com/honeynil/auth-service/internal/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRouter wires the full request pipeline: metrics on everything,
// the flow limiter and authentication gate on /api, and explicit
// enforcement only on protected subtrees.
func SetupRouter(
	h *handler.Handler,
	redisClient redis.RedisClient,
	tokens *auth.TokenManager,
	revocations *auth.RevocationManager,
) *mux.Router {
	r := mux.NewRouter()
	r.Use(metricsMiddleware)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(appmiddleware.FlowLimit(redisClient))
	// The gate runs on every /api request exactly once and never
	// rejects; it only attaches identity when the bearer token holds.
	api.Use(auth.Authenticate(tokens, revocations))

	authRoutes := api.PathPrefix("/auth").Subrouter()
	h.RegisterPublicRoutes(authRoutes)

	userRoutes := api.PathPrefix("/user").Subrouter()
	userRoutes.Use(auth.RequireAuthenticated)
	h.RegisterProtectedRoutes(userRoutes)

	r.Handle("/metrics", promhttp.Handler())
	return r
}

// metricsMiddleware записывает счётчик и длительность запросов
func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		endpoint := r.URL.Path
		method := r.Method

		recorder := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(recorder, r)

		status := fmt.Sprintf("%d", recorder.status)
		observability.RequestCounter.WithLabelValues(method, endpoint, status).Inc()
		observability.RequestDuration.WithLabelValues(method, endpoint).Observe(time.Since(start).Seconds())
	})
}

// statusRecorder для захвата статуса ответа
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}
