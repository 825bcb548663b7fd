package sizerepo

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

// SizeRepository acessa os dados de referência de talles (size_types e sizes).
type SizeRepository struct {
	DB        *sql.DB
	DBTimeout time.Duration
	logger    logger.Logger
}

// NewSizeRepository cria e retorna uma nova instância do Repositório de Talles.
func NewSizeRepository(db *sql.DB, dbTimeout time.Duration, logger logger.Logger) *SizeRepository {
	return &SizeRepository{
		DB:        db,
		DBTimeout: dbTimeout,
		logger:    logger,
	}
}

const sizeColumns = `s.id, s.size_type_id, st.name, s.value`

func scanSize(row interface{ Scan(...interface{}) error }) (domain.Size, error) {
	var s domain.Size
	err := row.Scan(&s.ID, &s.SizeTypeID, &s.TypeName, &s.Value)
	return s, err
}

// FindTypeByName busca um tipo de talle pelo nome (case-insensitive).
func (r *SizeRepository) FindTypeByName(ctx context.Context, name domain.SizeTypeName) (domain.SizeType, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	var st domain.SizeType
	err := r.DB.QueryRowContext(ctxTimeout,
		`SELECT id, name FROM size_types WHERE LOWER(name) = LOWER($1)`, string(name),
	).Scan(&st.ID, &st.Name)

	if errors.Is(err, sql.ErrNoRows) {
		return domain.SizeType{}, apperror.NewNotFoundError(fmt.Sprintf("Tipo de talle '%s' não existe.", name))
	}
	if err != nil {
		r.logger.Error("Falha ao buscar tipo de talle no DB.", err)
		return domain.SizeType{}, apperror.NewDBError("Falha ao buscar tipo de talle", err)
	}
	return st, nil
}

// ListByType retorna todos os talles de um tipo, sem ordenação de domínio.
func (r *SizeRepository) ListByType(ctx context.Context, name domain.SizeTypeName) ([]domain.Size, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	query := `
        SELECT ` + sizeColumns + `
        FROM sizes s
        JOIN size_types st ON st.id = s.size_type_id
        WHERE LOWER(st.name) = LOWER($1)
        ORDER BY s.id`

	rows, err := r.DB.QueryContext(ctxTimeout, query, string(name))
	if err != nil {
		r.logger.Error("Falha ao listar talles por tipo.", err)
		return nil, apperror.NewDBError("Falha ao listar talles", err)
	}
	defer rows.Close()

	sizes := []domain.Size{}
	for rows.Next() {
		s, err := scanSize(rows)
		if err != nil {
			return nil, apperror.NewDBError("Falha ao mapear talles do DB", err)
		}
		sizes = append(sizes, s)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.NewDBError("Erro após iteração de talles", err)
	}
	return sizes, nil
}

// FindByID busca um talle com o nome do seu tipo.
func (r *SizeRepository) FindByID(ctx context.Context, id int64) (domain.Size, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	query := `
        SELECT ` + sizeColumns + `
        FROM sizes s
        JOIN size_types st ON st.id = s.size_type_id
        WHERE s.id = $1`

	s, err := scanSize(r.DB.QueryRowContext(ctxTimeout, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Size{}, apperror.NewNotFoundError(fmt.Sprintf("Talle com ID %d não existe.", id))
	}
	if err != nil {
		r.logger.Error("Falha ao buscar talle por ID.", err)
		return domain.Size{}, apperror.NewDBError("Falha ao buscar talle", err)
	}
	return s, nil
}

// FindByTypeAndValue busca um talle pelo par (tipo, valor), sem diferenciar maiúsculas.
func (r *SizeRepository) FindByTypeAndValue(ctx context.Context, typeName domain.SizeTypeName, value string) (domain.Size, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	query := `
        SELECT ` + sizeColumns + `
        FROM sizes s
        JOIN size_types st ON st.id = s.size_type_id
        WHERE LOWER(st.name) = LOWER($1) AND LOWER(s.value) = LOWER($2)`

	s, err := scanSize(r.DB.QueryRowContext(ctxTimeout, query, string(typeName), value))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Size{}, apperror.NewNotFoundError(fmt.Sprintf("Talle '%s' do tipo '%s' não existe.", value, typeName))
	}
	if err != nil {
		r.logger.Error("Falha ao buscar talle por tipo e valor.", err)
		return domain.Size{}, apperror.NewDBError("Falha ao buscar talle", err)
	}
	return s, nil
}

// EnsureSize é o get-or-create idempotente de um talle (e do seu tipo).
// A unicidade de size_types.name e de (size_type_id, value) garante que corridas
// entre primeiros chamadores não duplicam linhas: o INSERT perdedor recebe
// unique_violation, tratado como conflito e resolvido relendo a linha vencedora.
func (r *SizeRepository) EnsureSize(ctx context.Context, typeName domain.SizeTypeName, value string) (domain.Size, error) {
	typeID, err := r.ensureType(ctx, typeName)
	if err != nil {
		return domain.Size{}, err
	}

	size, err := r.FindByTypeAndValue(ctx, typeName, value)
	if err == nil {
		return size, nil
	}
	if !apperror.IsNotFound(err) {
		return domain.Size{}, err
	}

	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	var id int64
	err = r.DB.QueryRowContext(ctxTimeout,
		`INSERT INTO sizes (size_type_id, value) VALUES ($1, $2) RETURNING id`, typeID, value,
	).Scan(&id)
	if database.IsUniqueViolation(err) {
		r.logger.Warn("Conflito ao criar talle, relendo a linha existente.", map[string]interface{}{"size_type": typeName, "value": value})
		return r.FindByTypeAndValue(ctx, typeName, value)
	}
	if err != nil {
		r.logger.Error("Falha ao inserir talle.", err)
		return domain.Size{}, apperror.NewDBError("Falha ao criar talle", err)
	}

	r.logger.Info("Talle criado sob demanda.", map[string]interface{}{"size_id": id, "size_type": typeName, "value": value})
	return domain.Size{ID: id, SizeTypeID: typeID, TypeName: typeName, Value: value}, nil
}

func (r *SizeRepository) ensureType(ctx context.Context, name domain.SizeTypeName) (int64, error) {
	st, err := r.FindTypeByName(ctx, name)
	if err == nil {
		return st.ID, nil
	}
	if !apperror.IsNotFound(err) {
		return 0, err
	}

	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	var id int64
	err = r.DB.QueryRowContext(ctxTimeout,
		`INSERT INTO size_types (name) VALUES ($1) RETURNING id`, string(name),
	).Scan(&id)
	if database.IsUniqueViolation(err) {
		r.logger.Warn("Conflito ao criar tipo de talle, relendo a linha existente.", map[string]interface{}{"size_type": name})
		st, err = r.FindTypeByName(ctx, name)
		if err != nil {
			return 0, err
		}
		return st.ID, nil
	}
	if err != nil {
		r.logger.Error("Falha ao inserir tipo de talle.", err)
		return 0, apperror.NewDBError("Falha ao criar tipo de talle", err)
	}
	return id, nil
}
