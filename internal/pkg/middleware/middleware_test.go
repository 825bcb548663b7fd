package middleware_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pololo/internal/domain"
	"pololo/internal/pkg/cache"
	"pololo/internal/pkg/logger"
	"pololo/internal/pkg/middleware"
	"pololo/internal/pkg/token"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) domain.ErrorResponse {
	var body domain.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func adminChain(tokens *token.Service) http.Handler {
	return middleware.NewAuthMiddleware(tokens)(
		middleware.PermissionMiddleware(domain.RoleAdmin)(okHandler))
}

func TestAuth_MissingToken(t *testing.T) {
	h := adminChain(token.NewService("segredo", time.Hour))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/products", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "UNAUTHORIZED", decodeError(t, rec).Category)
}

func TestAuth_InvalidToken(t *testing.T) {
	h := adminChain(token.NewService("segredo", time.Hour))
	other, err := token.NewService("outro-segredo", time.Hour).GenerateToken("1", "a@pololo.com", "admin")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/products", nil)
	req.Header.Set("Authorization", "Bearer "+other)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuth_RoleCheck(t *testing.T) {
	tokens := token.NewService("segredo", time.Hour)
	h := adminChain(tokens)

	cases := []struct {
		role   string
		status int
	}{
		{"admin", http.StatusOK},
		{"user", http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.role, func(t *testing.T) {
			tok, err := tokens.GenerateToken("7", "x@pololo.com", tc.role)
			require.NoError(t, err)

			req := httptest.NewRequest(http.MethodDelete, "/api/products/1", nil)
			req.Header.Set("Authorization", "Bearer "+tok)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tc.status, rec.Code)
		})
	}
}

func TestAuth_ClaimsInContext(t *testing.T) {
	tokens := token.NewService("segredo", time.Hour)
	tok, err := tokens.GenerateToken("7", "x@pololo.com", "admin")
	require.NoError(t, err)

	var got middleware.UserClaims
	h := middleware.NewAuthMiddleware(tokens)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = middleware.GetUserClaimsFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	h.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, "7", got.UserID)
	assert.Equal(t, domain.RoleAdmin, got.Role)
}

// counterCache implementa apenas o necessário para o rate limit.
type counterCache struct {
	mu   sync.Mutex
	data map[string]int
}

func (c *counterCache) Get(ctx context.Context, key string) (string, error) {
	return "", cache.ErrCacheMiss
}

func (c *counterCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value.(int)
	return nil
}

func (c *counterCache) Delete(ctx context.Context, keys ...string) error { return nil }

func (c *counterCache) GetInt(ctx context.Context, key string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	if !ok {
		return 0, cache.ErrCacheMiss
	}
	return v, nil
}

func (c *counterCache) Incr(ctx context.Context, key string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key]++
	return int64(c.data[key]), nil
}

func TestRateLimiter_BlocksAfterLimit(t *testing.T) {
	h := middleware.RateLimiter(&counterCache{data: map[string]int{}}, 2, time.Minute, logger.Nop())(okHandler)

	statuses := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
		req.RemoteAddr = "10.0.0.1:5555"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		statuses = append(statuses, rec.Code)
		if i == 0 {
			assert.Equal(t, strconv.Itoa(1), rec.Header().Get("X-RateLimit-Remaining"))
		}
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, statuses)

	// outro IP tem contador próprio
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
	req.RemoteAddr = "10.0.0.2:5555"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimiter_NilCachePassesThrough(t *testing.T) {
	h := middleware.RateLimiter(nil, 1, time.Minute, logger.Nop())(okHandler)

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/auth/login", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestRequestLogger_RecoversPanic(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf)
	h := middleware.RequestID(middleware.RequestLogger(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/home", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	assert.Contains(t, buf.String(), "boom")
	assert.Contains(t, buf.String(), `"status":500`)
}

func TestRequestID_KeepsIncomingHeader(t *testing.T) {
	var seen string
	h := middleware.RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = middleware.GetRequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	h.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, "abc-123", seen)
}

func TestCORS_Preflight(t *testing.T) {
	h := middleware.CORS("https://pololo.com")(okHandler)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/products", nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://pololo.com", rec.Header().Get("Access-Control-Allow-Origin"))
}
