package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"pololo/internal/domain"
	apperror "pololo/internal/errors"
	"pololo/internal/pkg/token"
)

// ContextKey é o tipo das chaves que os middlewares anexam ao contexto.
type ContextKey int

const (
	UserClaimsKey ContextKey = iota
	RequestIDKey
)

// UserClaims representa os dados do usuário extraídos do token JWT,
// que serão anexados ao contexto.
type UserClaims struct {
	UserID string
	Email  string
	Role   domain.UserRole
}

// TokenService define o contrato de validação necessário para o middleware.
type TokenService interface {
	ValidateToken(tokenString string) (*token.CustomClaims, error)
}

// writeError responde no mesmo formato {code, category, message} dos handlers.
func writeError(w http.ResponseWriter, err error) {
	status, category, message := apperror.MapToHTTPStatus(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(domain.ErrorResponse{
		Code:     status,
		Category: category,
		Message:  message,
	})
}

// NewAuthMiddleware valida o JWT do header Authorization e anexa as claims ao contexto.
func NewAuthMiddleware(tokenSvc TokenService) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			tokenString, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok || strings.TrimSpace(tokenString) == "" {
				writeError(w, apperror.NewUnauthorizedError("Token de autorização ausente ou malformado."))
				return
			}

			claims, err := tokenSvc.ValidateToken(strings.TrimSpace(tokenString))
			if err != nil {
				writeError(w, apperror.NewUnauthorizedError("Token inválido ou expirado."))
				return
			}

			ctx := context.WithValue(r.Context(), UserClaimsKey, UserClaims{
				UserID: claims.UserID,
				Email:  claims.Email,
				Role:   domain.UserRole(claims.Role),
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetUserClaimsFromContext é uma função utilitária para extrair as claims no handler.
func GetUserClaimsFromContext(ctx context.Context) (UserClaims, bool) {
	claims, ok := ctx.Value(UserClaimsKey).(UserClaims)
	return claims, ok
}

// PermissionMiddleware só deixa passar as roles informadas. Deve vir depois do NewAuthMiddleware.
func PermissionMiddleware(requiredRoles ...domain.UserRole) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := GetUserClaimsFromContext(r.Context())
			if !ok {
				writeError(w, apperror.NewUnauthorizedError("Autorização necessária. Token não processado."))
				return
			}

			for _, requiredRole := range requiredRoles {
				if claims.Role == requiredRole {
					next.ServeHTTP(w, r)
					return
				}
			}

			writeError(w, apperror.NewForbiddenError("Você não tem a permissão necessária."))
		})
	}
}
