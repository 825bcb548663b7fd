package middleware

import (
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"pololo/internal/pkg/cache"
	"pololo/internal/pkg/logger"
)

// TooManyRequestsError é devolvido quando o cliente excede o limite da janela.
type TooManyRequestsError struct{}

func (e *TooManyRequestsError) Error() string    { return "Limite de requisições excedido. Tente novamente mais tarde." }
func (e *TooManyRequestsError) Category() string { return "RATE_LIMITED" }
func (e *TooManyRequestsError) HTTPStatus() int  { return http.StatusTooManyRequests } // 429
func (e *TooManyRequestsError) Unwrap() error    { return nil }

// RateLimiter conta requisições por IP numa janela fixa guardada no cache.
// Com client nil, ou se o cache falhar, a requisição segue sem limite.
func RateLimiter(client cache.Client, limit int, duration time.Duration, log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if client == nil || limit <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				ip = r.RemoteAddr
			}
			key := "rate-limit:" + r.URL.Path + ":" + ip
			ctx := r.Context()

			count, err := client.GetInt(ctx, key)
			if errors.Is(err, cache.ErrCacheMiss) {
				if err := client.Set(ctx, key, 1, duration); err != nil {
					log.Warn("Falha ao iniciar contador de rate limit.", map[string]interface{}{"error": err.Error()})
				}
				w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(limit-1))
				next.ServeHTTP(w, r)
				return
			} else if err != nil {
				log.Warn("Rate limit indisponível; requisição liberada.", map[string]interface{}{"error": err.Error()})
				next.ServeHTTP(w, r)
				return
			}

			if count >= limit {
				w.Header().Set("Retry-After", strconv.Itoa(int(duration.Seconds())))
				writeError(w, &TooManyRequestsError{})
				return
			}

			if _, err := client.Incr(ctx, key); err != nil {
				log.Warn("Falha ao incrementar contador de rate limit.", map[string]interface{}{"error": err.Error()})
			}
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(limit-count-1))
			next.ServeHTTP(w, r)
		})
	}
}
