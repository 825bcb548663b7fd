package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// Códigos SQLSTATE do PostgreSQL tratados pela aplicação.
const (
	uniqueViolation     = pq.ErrorCode("23505")
	foreignKeyViolation = pq.ErrorCode("23503")
)

// TxFunc é o corpo de uma transação. Qualquer erro retornado provoca rollback.
type TxFunc func(tx *sql.Tx) error

// WithTransaction abre uma transação, executa fn e faz commit.
// Em caso de erro ou panic dentro de fn, a transação é desfeita antes de retornar.
func WithTransaction(ctx context.Context, db *sql.DB, fn TxFunc) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("falha ao iniciar transação: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				err = fmt.Errorf("%w (rollback: %v)", err, rbErr)
			}
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("falha ao commitar transação: %w", err)
	}
	return nil
}

// IsUniqueViolation informa se o erro do driver é uma violação de UNIQUE.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == uniqueViolation
	}
	return false
}

// IsForeignKeyViolation informa se o erro do driver é uma violação de FK.
func IsForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == foreignKeyViolation
	}
	return false
}
