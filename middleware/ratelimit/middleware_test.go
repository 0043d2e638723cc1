package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"sector-gateway/middleware/ratelimit/domain"
	"sector-gateway/middleware/ratelimit/infra"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loginRequest(remote string) *http.Request {
	r := httptest.NewRequest(http.MethodPost, "http://example/login?user_id=alice", nil)
	r.RemoteAddr = remote
	return r
}

func TestMiddleware_AllowsThenRejectsSameKey(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	store := infra.NewStore(2, time.Minute, infra.WithClock(func() time.Time { return now }))

	calls := 0
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	})
	h := Middleware(Options{Store: store, AddRateLimitHeaders: true})(next)

	w1 := httptest.NewRecorder()
	h.ServeHTTP(w1, loginRequest("10.0.0.1:1234"))
	require.Equal(t, http.StatusOK, w1.Code)
	assert.Equal(t, "10.0.0.1", w1.Header().Get("X-RateLimit-Key"))
	assert.Equal(t, "2", w1.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "60", w1.Header().Get("X-RateLimit-Window"))
	assert.Equal(t, "1", w1.Header().Get("X-RateLimit-Remaining"))

	w2 := httptest.NewRecorder()
	h.ServeHTTP(w2, loginRequest("10.0.0.1:9999"))
	require.Equal(t, http.StatusOK, w2.Code)

	w3 := httptest.NewRecorder()
	h.ServeHTTP(w3, loginRequest("10.0.0.1:1234"))
	assert.Equal(t, http.StatusTooManyRequests, w3.Code)
	assert.Equal(t, "60", w3.Header().Get("Retry-After"))
	assert.Equal(t, "0", w3.Header().Get("X-RateLimit-Remaining"))

	assert.Equal(t, 2, calls)
}

func TestMiddleware_KeyByHeader(t *testing.T) {
	store := infra.NewStore(1, time.Minute)
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	h := Middleware(Options{Store: store, KeyHeader: "X-Api-Key"})(next)

	// mesmo IP, chaves diferentes => cada chave tem seu próprio bucket
	for _, key := range []string{"k1", "k2"} {
		r := loginRequest("10.0.0.1:1234")
		r.Header.Set("X-Api-Key", key)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		assert.Equal(t, http.StatusOK, w.Code, "key %s", key)
	}
}

func TestMiddleware_RetryAfterRoundsUp(t *testing.T) {
	clock := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	store := infra.NewStore(1, 3*time.Second, infra.WithClock(func() time.Time { return clock }))
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	h := Middleware(Options{Store: store})(next)

	h.ServeHTTP(httptest.NewRecorder(), loginRequest("10.0.0.1:1"))

	// restam 2.5s de janela: o header arredonda para 3
	clock = clock.Add(500 * time.Millisecond)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, loginRequest("10.0.0.1:1"))
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "3", w.Header().Get("Retry-After"))
}

func TestMiddleware_OnRejectAndStats(t *testing.T) {
	store := infra.NewStore(1, time.Minute)
	stats := infra.NewMemoryStatsStore(infra.WithTrackKeys(true))

	var rejected *domain.LimitError
	h := Middleware(Options{
		Store: store,
		Stats: stats,
		Route: "login",
		OnReject: func(w http.ResponseWriter, _ *http.Request, err *domain.LimitError) {
			rejected = err
			w.WriteHeader(http.StatusTeapot)
		},
	})(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) }))

	h.ServeHTTP(httptest.NewRecorder(), loginRequest("10.0.0.7:1"))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, loginRequest("10.0.0.7:1"))

	assert.Equal(t, http.StatusTeapot, w.Code)
	require.NotNil(t, rejected)
	assert.Equal(t, domain.Key("10.0.0.7"), rejected.Key)
	assert.Equal(t, infra.Counters{Allowed: 1, Denied: 1}, stats.ByRoute()["login"])
	assert.Equal(t, infra.Counters{Allowed: 1, Denied: 1}, stats.ByKey()["10.0.0.7"])
}
