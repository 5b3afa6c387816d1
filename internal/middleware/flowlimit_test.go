package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/honeynil/auth-service/internal/infrastructure/redis"
	"github.com/stretchr/testify/assert"
)

func doRequest(handler http.Handler, remoteAddr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/auth/login", nil)
	req.RemoteAddr = remoteAddr
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestFlowLimit(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(mr.Addr())
	t.Cleanup(func() { client.Close() })

	handler := FlowLimit(client)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("within limit", func(t *testing.T) {
		for i := 0; i < flowLimit; i++ {
			rec := doRequest(handler, "10.0.0.1:1234")
			assert.Equal(t, http.StatusOK, rec.Code)
		}
	})

	t.Run("over limit blocks the address", func(t *testing.T) {
		rec := doRequest(handler, "10.0.0.1:1234")
		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.True(t, mr.Exists(flowBlockPrefix+"10.0.0.1"))

		// Still blocked after the counter window lapses.
		mr.FastForward(flowWindow + time.Second)
		rec = doRequest(handler, "10.0.0.1:1234")
		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	})

	t.Run("block lapses", func(t *testing.T) {
		mr.FastForward(flowBlockFor)
		rec := doRequest(handler, "10.0.0.1:1234")
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("other clients unaffected", func(t *testing.T) {
		rec := doRequest(handler, "10.0.0.2:1234")
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("fails open when store is down", func(t *testing.T) {
		mr.SetError("store down")
		rec := doRequest(handler, "10.0.0.3:1234")
		assert.Equal(t, http.StatusOK, rec.Code)
		mr.SetError("")
	})
}
