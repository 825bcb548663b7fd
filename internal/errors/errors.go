package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError é a interface central para todos os erros customizados do Pololo.
// Ela permite que o código externo (Handler) acesse a Categoria e a Mensagem do erro.
type AppError interface {
	Error() string    // Implementa a interface error padrão do Go
	Category() string // Categoria do erro (e.g., "VALIDATION_ERROR", "NOT_FOUND", "STORAGE_FAILURE")
	HTTPStatus() int  // Código HTTP sugerido para o Handler
	Unwrap() error    // Permite encapsular erros subjacentes (original error)
}

// --- Tipos de Erro Específicos (Erros de Domínio) ---

// ValidationError representa falhas de validação de dados de entrada (InvalidArgument).
// Field é opcional e identifica o campo rejeitado.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("Erro de Validação (%s): %s", e.Field, e.Msg)
	}
	return fmt.Sprintf("Erro de Validação: %s", e.Msg)
}
func (e *ValidationError) Category() string { return "VALIDATION_ERROR" }
func (e *ValidationError) HTTPStatus() int  { return http.StatusBadRequest } // 400
func (e *ValidationError) Unwrap() error    { return nil }

// NewValidationError cria um novo erro de validação.
func NewValidationError(msg string) AppError {
	return &ValidationError{Msg: msg}
}

// NewFieldError cria um erro de validação associado a um campo do payload.
func NewFieldError(field, msg string) AppError {
	return &ValidationError{Field: field, Msg: msg}
}

// InvalidSizeForCategoryError indica que um talle não pertence ao tipo de talle
// permitido pela categoria do produto. A escrita inteira é rejeitada.
type InvalidSizeForCategoryError struct {
	CategoryName string
	SizeRef  string
	Reason   string
}

func (e *InvalidSizeForCategoryError) Error() string {
	return fmt.Sprintf("Talle inválido para a categoria %s (%s): %s", e.CategoryName, e.SizeRef, e.Reason)
}
func (e *InvalidSizeForCategoryError) Category() string { return "INVALID_SIZE_FOR_CATEGORY" }
func (e *InvalidSizeForCategoryError) HTTPStatus() int  { return http.StatusUnprocessableEntity } // 422
func (e *InvalidSizeForCategoryError) Unwrap() error    { return nil }

// NewInvalidSizeForCategoryError cria o erro de talle incompatível.
func NewInvalidSizeForCategoryError(category, sizeRef, reason string) AppError {
	return &InvalidSizeForCategoryError{CategoryName: category, SizeRef: sizeRef, Reason: reason}
}

// NotFoundError representa a ausência de um recurso solicitado.
type NotFoundError struct {
	Msg string
}

func (e *NotFoundError) Error() string    { return fmt.Sprintf("Recurso não encontrado: %s", e.Msg) }
func (e *NotFoundError) Category() string { return "NOT_FOUND" }
func (e *NotFoundError) HTTPStatus() int  { return http.StatusNotFound } // 404
func (e *NotFoundError) Unwrap() error    { return nil }

// NewNotFoundError cria um novo erro de recurso não encontrado.
func NewNotFoundError(msg string) AppError {
	return &NotFoundError{Msg: msg}
}

// ConflictError representa um conflito de estado (e.g., inserção concorrente de dado de referência).
type ConflictError struct {
	Msg string
	Err error
}

func (e *ConflictError) Error() string    { return fmt.Sprintf("Conflito de estado: %s", e.Msg) }
func (e *ConflictError) Category() string { return "CONFLICT" }
func (e *ConflictError) HTTPStatus() int  { return http.StatusConflict } // 409
func (e *ConflictError) Unwrap() error    { return e.Err }

// NewConflictError cria um novo erro de conflito.
func NewConflictError(msg string, err error) AppError {
	return &ConflictError{Msg: msg, Err: err}
}

// UnauthorizedError representa credenciais ausentes ou inválidas.
type UnauthorizedError struct {
	Msg string
}

func (e *UnauthorizedError) Error() string    { return fmt.Sprintf("Não autorizado: %s", e.Msg) }
func (e *UnauthorizedError) Category() string { return "UNAUTHORIZED" }
func (e *UnauthorizedError) HTTPStatus() int  { return http.StatusUnauthorized } // 401
func (e *UnauthorizedError) Unwrap() error    { return nil }

// NewUnauthorizedError cria um erro 401.
func NewUnauthorizedError(msg string) AppError {
	return &UnauthorizedError{Msg: msg}
}

// ForbiddenError representa um usuário autenticado sem a role necessária.
type ForbiddenError struct {
	Msg string
}

func (e *ForbiddenError) Error() string    { return fmt.Sprintf("Acesso negado: %s", e.Msg) }
func (e *ForbiddenError) Category() string { return "FORBIDDEN" }
func (e *ForbiddenError) HTTPStatus() int  { return http.StatusForbidden } // 403
func (e *ForbiddenError) Unwrap() error    { return nil }

// NewForbiddenError cria um erro 403.
func NewForbiddenError(msg string) AppError {
	return &ForbiddenError{Msg: msg}
}

// PayloadTooLargeError indica um corpo de requisição acima do limite aceito.
type PayloadTooLargeError struct {
	Limit int64
}

func (e *PayloadTooLargeError) Error() string {
	return fmt.Sprintf("Corpo da requisição excede o limite de %d bytes.", e.Limit)
}
func (e *PayloadTooLargeError) Category() string { return "PAYLOAD_TOO_LARGE" }
func (e *PayloadTooLargeError) HTTPStatus() int  { return http.StatusRequestEntityTooLarge } // 413
func (e *PayloadTooLargeError) Unwrap() error    { return nil }

// NewPayloadTooLargeError cria um erro 413.
func NewPayloadTooLargeError(limit int64) AppError {
	return &PayloadTooLargeError{Limit: limit}
}

// --- Tipos de Erro de Infraestrutura (Encapsulamento) ---

// InternalError representa falhas inesperadas no servidor, no banco ou no armazenamento de imagens.
type InternalError struct {
	Msg      string
	Err      error // Erro original subjacente (e.g., erro do driver SQL)
	category string
}

func (e *InternalError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("Erro Interno: %s: %v", e.Msg, e.Err)
	}
	return fmt.Sprintf("Erro Interno: %s", e.Msg)
}
func (e *InternalError) Category() string {
	if e.category != "" {
		return e.category
	}
	return "INTERNAL_ERROR"
}
func (e *InternalError) HTTPStatus() int { return http.StatusInternalServerError } // 500
func (e *InternalError) Unwrap() error   { return e.Err }

// NewInternalError cria um erro de servidor (para falhas de lógica ou código não esperado).
func NewInternalError(msg string, err error) AppError {
	return &InternalError{Msg: msg, Err: err}
}

// NewDBError é um atalho para falhas de transação ou consulta no DB (StorageFailure).
func NewDBError(msg string, err error) AppError {
	return &InternalError{Msg: msg + " (DB)", Err: err, category: "STORAGE_FAILURE"}
}

// NewStorageError é usado para falhas do armazenamento de imagens.
func NewStorageError(msg string, err error) AppError {
	return &InternalError{Msg: msg + " (storage)", Err: err, category: "STORAGE_FAILURE"}
}

// --- Helpers de Classificação ---

// IsNotFound informa se algum erro da cadeia é um NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsInvalidSize informa se algum erro da cadeia é um InvalidSizeForCategoryError.
func IsInvalidSize(err error) bool {
	var is *InvalidSizeForCategoryError
	return errors.As(err, &is)
}

// --- Helper para o Handler (Tradução Final) ---

// MapToHTTPStatus recebe um erro e o traduz para o código HTTP e corpo de resposta.
// Erros 5xx nunca expõem a mensagem interna ao cliente.
func MapToHTTPStatus(err error) (int, string, string) {
	var appErr AppError
	if errors.As(err, &appErr) {
		if appErr.HTTPStatus() >= http.StatusInternalServerError {
			return appErr.HTTPStatus(), appErr.Category(), "Ocorreu um erro interno. Tente novamente mais tarde."
		}
		return appErr.HTTPStatus(), appErr.Category(), appErr.Error()
	}

	return http.StatusInternalServerError, "UNKNOWN_ERROR", "Ocorreu um erro inesperado."
}
