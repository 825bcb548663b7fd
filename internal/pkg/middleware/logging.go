package middleware

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	apperror "pololo/internal/errors"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (w *statusRecorder) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// RequestID reaproveita o X-Request-ID recebido ou gera um novo.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), RequestIDKey, id)))
	})
}

// GetRequestID devolve o ID da requisição, ou "unknown".
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return "unknown"
}

// RequestLogger registra cada requisição e converte panics em 500.
func RequestLogger(log zerolog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			defer func() {
				if p := recover(); p != nil {
					log.Error().
						Str("request_id", GetRequestID(r.Context())).
						Str("method", r.Method).
						Str("url", r.URL.String()).
						Str("panic", fmt.Sprintf("%v", p)).
						Msg("panic ao processar requisição")
					writeError(rec, apperror.NewInternalError("panic", fmt.Errorf("%v", p)))
				}

				event := log.Info()
				if rec.status >= http.StatusInternalServerError {
					event = log.Error()
				}
				event.
					Str("request_id", GetRequestID(r.Context())).
					Str("method", r.Method).
					Str("url", r.URL.String()).
					Int("status", rec.status).
					Dur("duration", time.Since(start)).
					Msg("request completed")
			}()

			next.ServeHTTP(rec, r)
		})
	}
}
