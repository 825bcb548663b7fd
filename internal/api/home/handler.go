package home

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"pololo/internal/api/httpio"
	"pololo/internal/domain"
	apperror "pololo/internal/errors"
	"pololo/internal/pkg/logger"
)

// HomeService define o contrato que o Handler espera da camada de Serviço.
type HomeService interface {
	Home(ctx context.Context) (domain.HomePage, error)

	ListCarousel(ctx context.Context) ([]domain.CarouselItem, error)
	CreateCarousel(ctx context.Context, in domain.CarouselInput) (domain.CarouselItem, error)
	UpdateCarousel(ctx context.Context, id int64, patch domain.CarouselPatch) (domain.CarouselItem, error)
	ToggleCarousel(ctx context.Context, id int64) (domain.CarouselItem, error)
	DeleteCarousel(ctx context.Context, id int64) error

	ListFeatured(ctx context.Context) ([]domain.FeaturedProduct, error)
	CreateFeatured(ctx context.Context, in domain.FeaturedInput) (domain.FeaturedProduct, error)
	UpdateFeatured(ctx context.Context, id int64, patch domain.FeaturedPatch) (domain.FeaturedProduct, error)
	ToggleFeatured(ctx context.Context, id int64) (domain.FeaturedProduct, error)
	DeleteFeatured(ctx context.Context, id int64) error
}

// Handler agrupa a home pública e a curadoria administrativa.
type Handler struct {
	Service       HomeService
	Logger        logger.Logger
	MaxImageBytes int64
}

// NewHandler cria uma nova instância do Handler, injetando o Service e o Logger.
func NewHandler(svc HomeService, log logger.Logger, maxImageBytes int64) *Handler {
	return &Handler{
		Service:       svc,
		Logger:        log,
		MaxImageBytes: maxImageBytes,
	}
}

// GetHomeHandler lida com a requisição GET /api/home.
// @Summary Página inicial
// @Description Carrossel e produtos em destaque ativos, ordenados por posição.
// @Tags home
// @Produce json
// @Success 200 {object} domain.HomePage
// @Router /api/home [get]
func (h *Handler) GetHomeHandler(w http.ResponseWriter, r *http.Request) {
	page, err := h.Service.Home(r.Context())
	httpio.Respond(w, r, h.Logger, page, err, http.StatusOK)
}

// ListCarouselHandler lida com a requisição GET /api/admin/home/carousel.
// @Summary Lista todos os slides
// @Tags home-admin
// @Produce json
// @Success 200 {array} domain.CarouselItem
// @Security ApiKeyAuth
// @Router /api/admin/home/carousel [get]
func (h *Handler) ListCarouselHandler(w http.ResponseWriter, r *http.Request) {
	items, err := h.Service.ListCarousel(r.Context())
	httpio.Respond(w, r, h.Logger, items, err, http.StatusOK)
}

// CreateCarouselHandler lida com a requisição POST /api/admin/home/carousel.
// @Summary Cria um slide
// @Tags home-admin
// @Accept multipart/form-data
// @Produce json
// @Param image formData file true "Imagem desktop"
// @Param image_mobile formData file false "Imagem mobile"
// @Param title formData string false "Título"
// @Param position formData int false "Posição"
// @Success 201 {object} domain.CarouselItem
// @Failure 400 {object} domain.ErrorResponse
// @Security ApiKeyAuth
// @Router /api/admin/home/carousel [post]
func (h *Handler) CreateCarouselHandler(w http.ResponseWriter, r *http.Request) {
	// imagem desktop e mobile
	if err := httpio.ParseMultipart(w, r, 2, h.MaxImageBytes); err != nil {
		httpio.Error(w, r, h.Logger, err)
		return
	}

	in := domain.CarouselInput{Title: r.FormValue("title")}
	if raw := strings.TrimSpace(r.FormValue("position")); raw != "" {
		pos, err := strconv.Atoi(raw)
		if err != nil {
			httpio.Error(w, r, h.Logger, apperror.NewFieldError("position", "posição inválida"))
			return
		}
		in.Position = pos
	}

	image, err := httpio.File(r, h.MaxImageBytes, "image")
	if err != nil {
		httpio.Error(w, r, h.Logger, err)
		return
	}
	if image != nil {
		in.Image = *image
	}
	if in.MobileImage, err = httpio.File(r, h.MaxImageBytes, "image_mobile"); err != nil {
		httpio.Error(w, r, h.Logger, err)
		return
	}

	item, err := h.Service.CreateCarousel(r.Context(), in)
	httpio.Respond(w, r, h.Logger, item, err, http.StatusCreated)
}

// UpdateCarouselHandler lida com a requisição PUT /api/admin/home/carousel/{id}.
// @Summary Atualiza um slide (parcial)
// @Tags home-admin
// @Accept json
// @Produce json
// @Param id path int true "ID do slide"
// @Param body body domain.CarouselPatch true "Campos a alterar"
// @Success 200 {object} domain.CarouselItem
// @Failure 404 {object} domain.ErrorResponse
// @Security ApiKeyAuth
// @Router /api/admin/home/carousel/{id} [put]
func (h *Handler) UpdateCarouselHandler(w http.ResponseWriter, r *http.Request) {
	id, err := httpio.PathID(r, "id")
	if err != nil {
		httpio.Error(w, r, h.Logger, err)
		return
	}
	var patch domain.CarouselPatch
	if err := httpio.DecodeJSON(r, &patch); err != nil {
		httpio.Error(w, r, h.Logger, err)
		return
	}

	item, err := h.Service.UpdateCarousel(r.Context(), id, patch)
	httpio.Respond(w, r, h.Logger, item, err, http.StatusOK)
}

// ToggleCarouselHandler lida com a requisição PATCH /api/admin/home/carousel/{id}/toggle.
// @Summary Ativa/desativa um slide
// @Tags home-admin
// @Produce json
// @Param id path int true "ID do slide"
// @Success 200 {object} domain.CarouselItem
// @Security ApiKeyAuth
// @Router /api/admin/home/carousel/{id}/toggle [patch]
func (h *Handler) ToggleCarouselHandler(w http.ResponseWriter, r *http.Request) {
	id, err := httpio.PathID(r, "id")
	if err != nil {
		httpio.Error(w, r, h.Logger, err)
		return
	}
	item, err := h.Service.ToggleCarousel(r.Context(), id)
	httpio.Respond(w, r, h.Logger, item, err, http.StatusOK)
}

// DeleteCarouselHandler lida com a requisição DELETE /api/admin/home/carousel/{id}.
// @Summary Remove um slide
// @Tags home-admin
// @Param id path int true "ID do slide"
// @Success 204 "No Content"
// @Security ApiKeyAuth
// @Router /api/admin/home/carousel/{id} [delete]
func (h *Handler) DeleteCarouselHandler(w http.ResponseWriter, r *http.Request) {
	id, err := httpio.PathID(r, "id")
	if err != nil {
		httpio.Error(w, r, h.Logger, err)
		return
	}
	err = h.Service.DeleteCarousel(r.Context(), id)
	httpio.Respond(w, r, h.Logger, nil, err, http.StatusNoContent)
}

// ListFeaturedHandler lida com a requisição GET /api/admin/home/products.
// @Summary Lista os destaques
// @Tags home-admin
// @Produce json
// @Success 200 {array} domain.FeaturedProduct
// @Security ApiKeyAuth
// @Router /api/admin/home/products [get]
func (h *Handler) ListFeaturedHandler(w http.ResponseWriter, r *http.Request) {
	featured, err := h.Service.ListFeatured(r.Context())
	httpio.Respond(w, r, h.Logger, featured, err, http.StatusOK)
}

// CreateFeaturedHandler lida com a requisição POST /api/admin/home/products.
// @Summary Adiciona um produto aos destaques
// @Tags home-admin
// @Accept json
// @Produce json
// @Param body body domain.FeaturedInput true "Produto e posição"
// @Success 201 {object} domain.FeaturedProduct
// @Failure 404 {object} domain.ErrorResponse
// @Security ApiKeyAuth
// @Router /api/admin/home/products [post]
func (h *Handler) CreateFeaturedHandler(w http.ResponseWriter, r *http.Request) {
	var in domain.FeaturedInput
	if err := httpio.DecodeJSON(r, &in); err != nil {
		httpio.Error(w, r, h.Logger, err)
		return
	}
	f, err := h.Service.CreateFeatured(r.Context(), in)
	httpio.Respond(w, r, h.Logger, f, err, http.StatusCreated)
}

// UpdateFeaturedHandler lida com a requisição PUT /api/admin/home/products/{id}.
// @Summary Atualiza um destaque (parcial)
// @Tags home-admin
// @Accept json
// @Produce json
// @Param id path int true "ID do destaque"
// @Param body body domain.FeaturedPatch true "Campos a alterar"
// @Success 200 {object} domain.FeaturedProduct
// @Security ApiKeyAuth
// @Router /api/admin/home/products/{id} [put]
func (h *Handler) UpdateFeaturedHandler(w http.ResponseWriter, r *http.Request) {
	id, err := httpio.PathID(r, "id")
	if err != nil {
		httpio.Error(w, r, h.Logger, err)
		return
	}
	var patch domain.FeaturedPatch
	if err := httpio.DecodeJSON(r, &patch); err != nil {
		httpio.Error(w, r, h.Logger, err)
		return
	}
	f, err := h.Service.UpdateFeatured(r.Context(), id, patch)
	httpio.Respond(w, r, h.Logger, f, err, http.StatusOK)
}

// ToggleFeaturedHandler lida com a requisição PATCH /api/admin/home/products/{id}/toggle.
// @Summary Ativa/desativa um destaque
// @Tags home-admin
// @Param id path int true "ID do destaque"
// @Success 200 {object} domain.FeaturedProduct
// @Security ApiKeyAuth
// @Router /api/admin/home/products/{id}/toggle [patch]
func (h *Handler) ToggleFeaturedHandler(w http.ResponseWriter, r *http.Request) {
	id, err := httpio.PathID(r, "id")
	if err != nil {
		httpio.Error(w, r, h.Logger, err)
		return
	}
	f, err := h.Service.ToggleFeatured(r.Context(), id)
	httpio.Respond(w, r, h.Logger, f, err, http.StatusOK)
}

// DeleteFeaturedHandler lida com a requisição DELETE /api/admin/home/products/{id}.
// @Summary Remove um destaque
// @Tags home-admin
// @Param id path int true "ID do destaque"
// @Success 204 "No Content"
// @Security ApiKeyAuth
// @Router /api/admin/home/products/{id} [delete]
func (h *Handler) DeleteFeaturedHandler(w http.ResponseWriter, r *http.Request) {
	id, err := httpio.PathID(r, "id")
	if err != nil {
		httpio.Error(w, r, h.Logger, err)
		return
	}
	err = h.Service.DeleteFeatured(r.Context(), id)
	httpio.Respond(w, r, h.Logger, nil, err, http.StatusNoContent)
}
