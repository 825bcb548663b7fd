package size

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"pololo/internal/api/httpio"
	"pololo/internal/domain"
	"pololo/internal/pkg/logger"
)

// SizeService define o contrato que o Handler espera da camada de Serviço.
type SizeService interface {
	SizesByType(ctx context.Context, typeName string) ([]domain.Size, error)
	ProductSizes(ctx context.Context, id int64) ([]domain.SizeGroup, error)
}

// Handler agrupa as leituras de talles e estoque.
type Handler struct {
	Service SizeService
	Logger  logger.Logger
}

// NewHandler cria uma nova instância do Handler, injetando o Service e o Logger.
func NewHandler(svc SizeService, log logger.Logger) *Handler {
	return &Handler{
		Service: svc,
		Logger:  log,
	}
}

// SizesByTypeHandler lida com a requisição GET /api/products/sizes/type/{type}.
// @Summary Lista os talles de um tipo
// @Description Tipo desconhecido devolve lista vazia.
// @Tags sizes
// @Produce json
// @Param type path string true "Tipo de talle (ropa, pantalon, marroquineria)"
// @Success 200 {array} domain.Size
// @Router /api/products/sizes/type/{type} [get]
func (h *Handler) SizesByTypeHandler(w http.ResponseWriter, r *http.Request) {
	sizes, err := h.Service.SizesByType(r.Context(), chi.URLParam(r, "type"))
	httpio.Respond(w, r, h.Logger, sizes, err, http.StatusOK)
}

// ProductSizesHandler lida com a requisição GET /api/products/{id}/sizes.
// @Summary Estoque por talle de um produto
// @Tags sizes
// @Produce json
// @Param id path int true "ID do produto"
// @Success 200 {array} domain.SizeGroup
// @Failure 404 {object} domain.ErrorResponse
// @Router /api/products/{id}/sizes [get]
func (h *Handler) ProductSizesHandler(w http.ResponseWriter, r *http.Request) {
	id, err := httpio.PathID(r, "id")
	if err != nil {
		httpio.Error(w, r, h.Logger, err)
		return
	}

	groups, err := h.Service.ProductSizes(r.Context(), id)
	httpio.Respond(w, r, h.Logger, groups, err, http.StatusOK)
}
