package middleware

import (
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/honeynil/auth-service/internal/infrastructure/redis"
	pkgerrors "github.com/honeynil/auth-service/pkg/errors"
)

const (
	flowCounterPrefix = "flow:counter:"
	flowBlockPrefix   = "flow:block:"

	flowWindow   = 3 * time.Second
	flowLimit    = 10
	flowBlockFor = 30 * time.Second
)

// FlowLimit throttles requests per client IP: more than flowLimit
// requests inside flowWindow puts the address on a block key for
// flowBlockFor and answers 429 until it lapses. Unlike the revocation
// check this fails open: a broken throttle must not take down login.
func FlowLimit(store redis.RedisClient) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r)

			blocked, err := store.Exists(r.Context(), flowBlockPrefix+ip)
			if err != nil {
				slog.Error("flow limiter unavailable, passing request through", "error", err)
				next.ServeHTTP(w, r)
				return
			}
			if blocked {
				writeTooManyRequests(w)
				return
			}

			count, err := store.Incr(r.Context(), flowCounterPrefix+ip)
			if err != nil {
				slog.Error("flow limiter unavailable, passing request through", "error", err)
				next.ServeHTTP(w, r)
				return
			}
			if count == 1 {
				if err := store.Expire(r.Context(), flowCounterPrefix+ip, flowWindow); err != nil {
					slog.Error("failed to set flow counter TTL", "ip", ip, "error", err)
				}
			}
			if count > flowLimit {
				if err := store.Set(r.Context(), flowBlockPrefix+ip, "", flowBlockFor); err != nil {
					slog.Error("failed to set flow block key", "ip", ip, "error", err)
				}
				slog.Warn("client blocked by flow limiter", "ip", ip, "count", count)
				writeTooManyRequests(w)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeTooManyRequests(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)
	json.NewEncoder(w).Encode(map[string]string{"error": pkgerrors.ErrTooManyRequests.Error()})
}
