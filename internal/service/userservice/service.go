package userservice

import (
	"context"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"pololo/internal/domain"
	apperror "pololo/internal/errors"
	"pololo/internal/pkg/logger"
)

// UserRepository é o contrato de persistência de usuários.
type UserRepository interface {
	Save(ctx context.Context, user domain.User) (domain.User, error)
	FindByEmail(ctx context.Context, email string) (domain.User, error)
	UpdatePassword(ctx context.Context, id int64, passwordHash string, role domain.UserRole) error
}

// TokenService é o contrato da camada de token (internal/pkg/token)
type TokenService interface {
	GenerateToken(userID string, email string, userRole string) (string, error)
}

// UserService autentica os administradores da loja.
type UserService struct {
	UserRepo UserRepository
	TokenSvc TokenService
	logger   logger.Logger
	cost     int
}

// NewService cria uma nova instância do UserService, injetando o Repositório.
func NewService(repo UserRepository, tokenSvc TokenService, logger logger.Logger) *UserService {
	return &UserService{
		UserRepo: repo,
		TokenSvc: tokenSvc,
		logger:   logger,
		cost:     bcrypt.DefaultCost,
	}
}

// WithCost ajusta o custo do bcrypt (testes usam bcrypt.MinCost).
func (s *UserService) WithCost(cost int) *UserService {
	s.cost = cost
	return s
}

// Login autentica um usuário, verifica a senha e gera um JWT.
func (s *UserService) Login(ctx context.Context, email string, password string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return "", apperror.NewUnauthorizedError("Email e senha são obrigatórios.")
	}

	user, err := s.UserRepo.FindByEmail(ctx, email)
	if err != nil {
		// NotFound vira 401 para não dar dicas sobre e-mails cadastrados.
		if apperror.IsNotFound(err) {
			return "", apperror.NewUnauthorizedError("Credenciais inválidas.")
		}
		return "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.logger.Warn("Tentativa de login com senha inválida.", map[string]interface{}{"user_id": user.ID})
		return "", apperror.NewUnauthorizedError("Credenciais inválidas.")
	}

	tokenString, err := s.TokenSvc.GenerateToken(strconv.FormatInt(user.ID, 10), user.Email, string(user.Role))
	if err != nil {
		return "", apperror.NewInternalError("Falha ao gerar token de autenticação.", err)
	}

	s.logger.Info("Login realizado.", map[string]interface{}{"user_id": user.ID, "role": user.Role})
	return tokenString, nil
}

// EnsureAdmin cria o administrador ou, se o e-mail já existe, redefine sua senha e role.
// Retorna true quando o usuário foi criado.
func (s *UserService) EnsureAdmin(ctx context.Context, email, password string) (domain.User, bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return domain.User{}, false, apperror.NewFieldError("email", "o email é obrigatório")
	}
	if len(password) < 8 {
		return domain.User{}, false, apperror.NewFieldError("password", "a senha deve ter ao menos 8 caracteres")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return domain.User{}, false, apperror.NewInternalError("Falha ao gerar hash da senha.", err)
	}

	existing, err := s.UserRepo.FindByEmail(ctx, email)
	switch {
	case err == nil:
		if err := s.UserRepo.UpdatePassword(ctx, existing.ID, string(hash), domain.RoleAdmin); err != nil {
			return domain.User{}, false, err
		}
		existing.Role = domain.RoleAdmin
		s.logger.Info("Administrador existente atualizado.", map[string]interface{}{"user_id": existing.ID})
		return existing, false, nil
	case !apperror.IsNotFound(err):
		return domain.User{}, false, err
	}

	user, err := s.UserRepo.Save(ctx, domain.User{
		Email:        email,
		PasswordHash: string(hash),
		Role:         domain.RoleAdmin,
	})
	if err != nil {
		return domain.User{}, false, err
	}
	s.logger.Info("Administrador criado.", map[string]interface{}{"user_id": user.ID})
	return user, true, nil
}
