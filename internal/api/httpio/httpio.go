// Package httpio reúne o tratamento de entrada e saída comum a todos os handlers.
package httpio

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"pololo/internal/domain"
	apperror "pololo/internal/errors"
	"pololo/internal/pkg/logger"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Reporta o nome do campo JSON, não o do struct.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Respond envia data com successStatus, ou o erro no formato {code, category, message}.
func Respond(w http.ResponseWriter, r *http.Request, log logger.Logger, data interface{}, err error, successStatus int) {
	if err == nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(successStatus)
		if data != nil {
			if jsonErr := json.NewEncoder(w).Encode(data); jsonErr != nil {
				log.Error("Falha ao codificar JSON de resposta", jsonErr)
			}
		}
		return
	}

	status, category, message := apperror.MapToHTTPStatus(err)

	if status >= 500 {
		log.Error(fmt.Sprintf("Erro de Servidor: %s", category), err)
	} else {
		log.Debug(fmt.Sprintf("Requisição rejeitada com status %d. Categoria: %s", status, category), map[string]interface{}{"path": r.URL.Path})
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(domain.ErrorResponse{
		Code:     status,
		Category: category,
		Message:  message,
	})
}

// Error é um atalho de Respond para caminhos sem dados.
func Error(w http.ResponseWriter, r *http.Request, log logger.Logger, err error) {
	Respond(w, r, log, nil, err, 0)
}

// DecodeJSON decodifica o corpo em dst e aplica as tags `validate`.
func DecodeJSON(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperror.NewValidationError("Payload inválido. Verifique o formato JSON.")
	}
	return Validate(dst)
}

// Validate converte o primeiro erro do validator num ValidationError com o nome do campo.
func Validate(v interface{}) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return apperror.NewFieldError(fe.Field(), describe(fe))
	}
	return apperror.NewValidationError(err.Error())
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "campo obrigatório"
	case "email":
		return "email inválido"
	case "gt", "min":
		return fmt.Sprintf("deve ser no mínimo %s", fe.Param())
	default:
		return fmt.Sprintf("falhou na regra '%s'", fe.Tag())
	}
}

// PathID lê um parâmetro de rota inteiro e positivo.
func PathID(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperror.NewFieldError(name, fmt.Sprintf("'%s' não é um ID válido", raw))
	}
	return id, nil
}
