package user

import (
	"context"
	"net/http"

	"pololo/internal/api/httpio"
	"pololo/internal/domain"
	"pololo/internal/pkg/logger"
)

// UserService define o contrato para a operação de login.
type UserService interface {
	Login(ctx context.Context, email string, password string) (string, error)
}

// LoginResponse é o corpo de sucesso do login.
type LoginResponse struct {
	Token string `json:"token"`
}

// Handler agrupa todos os métodos de Handler do usuário.
type Handler struct {
	Service UserService
	Logger  logger.Logger
}

// NewHandler cria uma nova instância do Handler, injetando o Service e o Logger.
func NewHandler(svc UserService, log logger.Logger) *Handler {
	return &Handler{
		Service: svc,
		Logger:  log,
	}
}

// LoginUserHandler lida com a requisição POST /api/auth/login.
// @Summary Autentica um administrador e retorna um JWT
// @Description Recebe email/senha, verifica a validade e emite um JSON Web Token.
// @Tags auth
// @Accept json
// @Produce json
// @Param login body domain.LoginRequest true "Credenciais do usuário (email e senha)"
// @Success 200 {object} LoginResponse "Token JWT emitido"
// @Failure 400 {object} domain.ErrorResponse "Payload inválido"
// @Failure 401 {object} domain.ErrorResponse "Credenciais inválidas"
// @Failure 500 {object} domain.ErrorResponse "Erro interno do servidor"
// @Router /api/auth/login [post]
func (h *Handler) LoginUserHandler(w http.ResponseWriter, r *http.Request) {
	var loginReq domain.LoginRequest
	if err := httpio.DecodeJSON(r, &loginReq); err != nil {
		httpio.Error(w, r, h.Logger, err)
		return
	}

	token, err := h.Service.Login(r.Context(), loginReq.Email, loginReq.Password)
	if err != nil {
		httpio.Error(w, r, h.Logger, err)
		return
	}

	httpio.Respond(w, r, h.Logger, LoginResponse{Token: token}, nil, http.StatusOK)
}
