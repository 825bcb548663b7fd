package userrepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"pololo/internal/domain"
	apperror "pololo/internal/errors"
	"pololo/internal/pkg/database"
	"pololo/internal/pkg/logger"
)

// UserRepository acessa a tabela de usuários administrativos.
type UserRepository struct {
	DB        *sql.DB
	DBTimeout time.Duration
	logger    logger.Logger
}

// NewUserRepository cria uma nova instância do UserRepository, injetando o DB.
func NewUserRepository(db *sql.DB, dbTimeout time.Duration, logger logger.Logger) *UserRepository {
	return &UserRepository{
		DB:        db,
		DBTimeout: dbTimeout,
		logger:    logger,
	}
}

// Save insere um novo usuário. E-mail duplicado é Conflict.
func (r *UserRepository) Save(ctx context.Context, user domain.User) (domain.User, error) {
	r.logger.Debug("Iniciando Save de usuário no repositório.", map[string]interface{}{"email": user.Email})

	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	const insertSQL = `
        INSERT INTO users (email, password_hash, role)
        VALUES ($1, $2, $3)
        RETURNING id, created_at, updated_at`

	err := r.DB.QueryRowContext(ctxTimeout, insertSQL, user.Email, user.PasswordHash, string(user.Role)).
		Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)

	if database.IsUniqueViolation(err) {
		return domain.User{}, apperror.NewConflictError(fmt.Sprintf("O email '%s' já está em uso.", user.Email), err)
	}
	if err != nil {
		r.logger.Error("Falha ao inserir usuário no DB.", err)
		return domain.User{}, apperror.NewDBError("Falha ao inserir usuário", err)
	}

	r.logger.Info("Usuário salvo com sucesso no repositório.", map[string]interface{}{"user_id": user.ID, "email": user.Email})
	return user, nil
}

// UpdatePassword troca o hash e a role de um usuário existente.
func (r *UserRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string, role domain.UserRole) error {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	res, err := r.DB.ExecContext(ctxTimeout,
		`UPDATE users SET password_hash = $2, role = $3, updated_at = NOW() WHERE id = $1`,
		id, passwordHash, string(role))
	if err != nil {
		r.logger.Error("Falha ao atualizar senha do usuário.", err)
		return apperror.NewDBError("Falha ao atualizar usuário", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperror.NewNotFoundError(fmt.Sprintf("Usuário com ID %d não existe.", id))
	}
	return nil
}

// FindByEmail busca um usuário pelo endereço de e-mail.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (domain.User, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	query := `SELECT id, email, password_hash, role, created_at, updated_at FROM users WHERE LOWER(email) = LOWER($1)`

	var user domain.User
	err := r.DB.QueryRowContext(ctxTimeout, query, email).Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.Role,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.logger.Info("Usuário não encontrado no DB por email.", map[string]interface{}{"email": email})
			return domain.User{}, apperror.NewNotFoundError(fmt.Sprintf("Usuário com email '%s' não encontrado", email))
		}
		r.logger.Error("Falha ao buscar usuário por email no DB.", err)
		return domain.User{}, apperror.NewDBError("Falha ao buscar usuário por email", err)
	}

	return user, nil
}
