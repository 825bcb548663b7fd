package catalog

import (
	"context"
	"net/http"
	"strconv"

	"pololo/internal/api/httpio"
	"pololo/internal/domain"
	"pololo/internal/pkg/logger"
)

// CatalogService define o contrato de leitura que o Handler espera.
type CatalogService interface {
	List(ctx context.Context, f domain.ProductFilter) ([]domain.ProductSummary, error)
	GetByID(ctx context.Context, id int64) (domain.ProductDetail, error)
	SearchByName(ctx context.Context, q string) ([]domain.SearchResult, error)
}

// Handler expõe as leituras públicas do catálogo.
type Handler struct {
	Service CatalogService
	Logger  logger.Logger
}

// NewHandler cria uma nova instância do Handler, injetando o Service e o Logger.
func NewHandler(svc CatalogService, log logger.Logger) *Handler {
	return &Handler{
		Service: svc,
		Logger:  log,
	}
}

// ListProductsHandler lida com a requisição GET /api/products.
// @Summary Lista produtos
// @Description Filtros opcionais compostos com AND. Por padrão apenas produtos ativos.
// @Tags catalog
// @Produce json
// @Param category query string false "Categoria"
// @Param subcategory query string false "Subcategoria"
// @Param search query string false "Busca em nome e descrição"
// @Param size query string false "Talle com estoque"
// @Param include_inactive query boolean false "Inclui inativos"
// @Success 200 {array} domain.ProductSummary
// @Failure 500 {object} domain.ErrorResponse
// @Router /api/products [get]
func (h *Handler) ListProductsHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	includeInactive, _ := strconv.ParseBool(q.Get("include_inactive"))

	products, err := h.Service.List(r.Context(), domain.ProductFilter{
		Category:        q.Get("category"),
		Subcategory:     q.Get("subcategory"),
		Search:          q.Get("search"),
		Size:            q.Get("size"),
		IncludeInactive: includeInactive,
	})
	httpio.Respond(w, r, h.Logger, products, err, http.StatusOK)
}

// SearchHandler lida com a requisição GET /api/products/search.
// @Summary Autocomplete por nome
// @Tags catalog
// @Produce json
// @Param q query string true "Termo"
// @Success 200 {array} domain.SearchResult
// @Router /api/products/search [get]
func (h *Handler) SearchHandler(w http.ResponseWriter, r *http.Request) {
	results, err := h.Service.SearchByName(r.Context(), r.URL.Query().Get("q"))
	httpio.Respond(w, r, h.Logger, results, err, http.StatusOK)
}

// GetProductHandler lida com a requisição GET /api/products/{id}.
// @Summary Detalhe do produto
// @Tags catalog
// @Produce json
// @Param id path int true "ID do produto"
// @Success 200 {object} domain.ProductDetail
// @Failure 400 {object} domain.ErrorResponse
// @Failure 404 {object} domain.ErrorResponse
// @Router /api/products/{id} [get]
func (h *Handler) GetProductHandler(w http.ResponseWriter, r *http.Request) {
	id, err := httpio.PathID(r, "id")
	if err != nil {
		httpio.Error(w, r, h.Logger, err)
		return
	}

	detail, err := h.Service.GetByID(r.Context(), id)
	httpio.Respond(w, r, h.Logger, detail, err, http.StatusOK)
}
