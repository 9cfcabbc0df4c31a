package ratelimit

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeLimiter struct {
	keys []string
	res  Result
	err  error
}

func (f *fakeLimiter) Allow(_ context.Context, key string) (Result, error) {
	f.keys = append(f.keys, key)
	return f.res, f.err
}

func serve(l Limiter) *httptest.ResponseRecorder {
	h := Middleware(l, "login")(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	req.RemoteAddr = "10.0.0.7:5123"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestMiddlewareAllows(t *testing.T) {
	l := &fakeLimiter{res: Result{Allowed: true, Remaining: 4}}
	rec := serve(l)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "4", rec.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, []string{"login:10.0.0.7"}, l.keys)
}

func TestMiddlewareRejects(t *testing.T) {
	rec := serve(&fakeLimiter{res: Result{Allowed: false, RetryAfter: 1500 * time.Millisecond}})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "2", rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), `"success":false`)
}

func TestMiddlewareFailsOpen(t *testing.T) {
	rec := serve(&fakeLimiter{err: errors.New("redis: connection refused")})
	assert.Equal(t, http.StatusOK, rec.Code)
}
