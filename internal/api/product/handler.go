package product

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"pololo/internal/api/httpio"
	"pololo/internal/domain"
	apperror "pololo/internal/errors"
	"pololo/internal/pkg/logger"
	"pololo/internal/pkg/middleware"
)

// ProductService define o contrato que o Handler espera da camada de Serviço.
type ProductService interface {
	CreateProduct(ctx context.Context, in domain.ProductInput) (domain.ProductDetail, error)
	UpdateProduct(ctx context.Context, id int64, in domain.ProductInput) (domain.ProductDetail, error)
	UpdateSizes(ctx context.Context, id int64, entries []domain.SizeEntry) ([]domain.SizeGroup, error)
	DeleteImage(ctx context.Context, productID, imageID int64) (domain.ProductDetail, error)
	DeleteProduct(ctx context.Context, id int64) error
}

// Handler agrupa os métodos de escrita de produto (rotas de admin).
type Handler struct {
	Service       ProductService
	Logger        logger.Logger
	MaxImageBytes int64
}

// NewHandler cria uma nova instância do Handler, injetando o Service e o Logger.
func NewHandler(svc ProductService, log logger.Logger, maxImageBytes int64) *Handler {
	return &Handler{
		Service:       svc,
		Logger:        log,
		MaxImageBytes: maxImageBytes,
	}
}

// SizesRequest é o corpo de PUT /api/products/{id}/sizes.
type SizesRequest struct {
	Sizes []domain.SizeEntry `json:"sizes" validate:"required"`
}

// parseProductForm converte o multipart do painel em ProductInput.
func (h *Handler) parseProductForm(w http.ResponseWriter, r *http.Request) (domain.ProductInput, error) {
	if err := httpio.ParseMultipart(w, r, domain.MaxImagesPerWrite, h.MaxImageBytes); err != nil {
		return domain.ProductInput{}, err
	}

	in := domain.ProductInput{
		Name:        r.FormValue("name"),
		Category:    r.FormValue("category"),
		Subcategory: r.FormValue("subcategory"),
		Description: r.FormValue("description"),
	}

	if raw := strings.TrimSpace(r.FormValue("price")); raw != "" {
		price, err := decimal.NewFromString(raw)
		if err != nil {
			return domain.ProductInput{}, apperror.NewFieldError("price", "preço inválido")
		}
		in.Price = price
	}

	if raw := strings.TrimSpace(r.FormValue("active")); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			return domain.ProductInput{}, apperror.NewFieldError("active", "use true ou false")
		}
		in.Active = &active
	}

	if raw := strings.TrimSpace(r.FormValue("main_image_index")); raw != "" {
		idx, err := strconv.Atoi(raw)
		if err != nil {
			return domain.ProductInput{}, apperror.NewFieldError("main_image_index", "índice inválido")
		}
		in.MainImageIndex = &idx
	}

	if raw := strings.TrimSpace(r.FormValue("main_image_id")); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return domain.ProductInput{}, apperror.NewFieldError("main_image_id", "ID inválido")
		}
		in.MainImageID = &id
	}

	// "sizes" presente (mesmo vazio) substitui os talles atuais.
	if httpio.HasField(r, "sizes") {
		in.ReplaceSizes = true
		if raw := strings.TrimSpace(r.FormValue("sizes")); raw != "" {
			if err := json.Unmarshal([]byte(raw), &in.Sizes); err != nil {
				return domain.ProductInput{}, apperror.NewFieldError("sizes", "JSON de talles inválido")
			}
		}
	}

	images, err := httpio.Files(r, h.MaxImageBytes, "images", "images[]")
	if err != nil {
		return domain.ProductInput{}, err
	}
	in.Images = images

	return in, nil
}

func (h *Handler) logActor(r *http.Request, action string, fields map[string]interface{}) {
	if claims, ok := middleware.GetUserClaimsFromContext(r.Context()); ok {
		fields["user_id"] = claims.UserID
	}
	h.Logger.Info(action, fields)
}

// CreateProductHandler lida com a requisição POST /api/products.
// @Summary Cria um novo produto
// @Description Cria o produto com imagens (até 5) e talles numa única transação.
// @Tags products
// @Accept multipart/form-data
// @Produce json
// @Param name formData string true "Nome"
// @Param category formData string true "Categoria (marroquineria, remeras, pantalones, buzos)"
// @Param subcategory formData string false "Subcategoria"
// @Param description formData string false "Descrição"
// @Param price formData string true "Preço"
// @Param active formData boolean false "Ativo (padrão true)"
// @Param main_image_index formData int false "Índice da imagem principal"
// @Param sizes formData string false "Talles em JSON: [{size_id|size_type+size_value, stock}]"
// @Param images formData file false "Imagens (jpeg, png, webp)"
// @Success 201 {object} domain.ProductDetail
// @Failure 400 {object} domain.ErrorResponse
// @Failure 422 {object} domain.ErrorResponse
// @Failure 500 {object} domain.ErrorResponse
// @Security ApiKeyAuth
// @Router /api/products [post]
func (h *Handler) CreateProductHandler(w http.ResponseWriter, r *http.Request) {
	in, err := h.parseProductForm(w, r)
	if err != nil {
		httpio.Error(w, r, h.Logger, err)
		return
	}

	detail, err := h.Service.CreateProduct(r.Context(), in)
	if err == nil {
		h.logActor(r, "Produto criado via API.", map[string]interface{}{"product_id": detail.ID})
	}
	httpio.Respond(w, r, h.Logger, detail, err, http.StatusCreated)
}

// UpdateProductHandler lida com a requisição PUT /api/products/{id}.
// @Summary Atualiza um produto
// @Description Atualiza campos, adiciona imagens e escolhe a principal. Talles só mudam se "sizes" for enviado.
// @Tags products
// @Accept multipart/form-data
// @Produce json
// @Param id path int true "ID do produto"
// @Param main_image_id formData int false "ID de imagem existente a ser principal"
// @Param main_image_index formData int false "Índice nas novas imagens"
// @Param sizes formData string false "Talles em JSON; enviado vazio remove todos"
// @Param images formData file false "Novas imagens"
// @Success 200 {object} domain.ProductDetail
// @Failure 400 {object} domain.ErrorResponse
// @Failure 404 {object} domain.ErrorResponse
// @Failure 422 {object} domain.ErrorResponse
// @Security ApiKeyAuth
// @Router /api/products/{id} [put]
func (h *Handler) UpdateProductHandler(w http.ResponseWriter, r *http.Request) {
	id, err := httpio.PathID(r, "id")
	if err != nil {
		httpio.Error(w, r, h.Logger, err)
		return
	}

	in, err := h.parseProductForm(w, r)
	if err != nil {
		httpio.Error(w, r, h.Logger, err)
		return
	}

	detail, err := h.Service.UpdateProduct(r.Context(), id, in)
	if err == nil {
		h.logActor(r, "Produto atualizado via API.", map[string]interface{}{"product_id": id})
	}
	httpio.Respond(w, r, h.Logger, detail, err, http.StatusOK)
}

// UpdateSizesHandler lida com a requisição PUT /api/products/{id}/sizes.
// @Summary Substitui os talles de um produto
// @Tags products
// @Accept json
// @Produce json
// @Param id path int true "ID do produto"
// @Param body body SizesRequest true "Talles e estoque"
// @Success 200 {array} domain.SizeGroup
// @Failure 400 {object} domain.ErrorResponse
// @Failure 404 {object} domain.ErrorResponse
// @Failure 422 {object} domain.ErrorResponse
// @Security ApiKeyAuth
// @Router /api/products/{id}/sizes [put]
func (h *Handler) UpdateSizesHandler(w http.ResponseWriter, r *http.Request) {
	id, err := httpio.PathID(r, "id")
	if err != nil {
		httpio.Error(w, r, h.Logger, err)
		return
	}

	var req SizesRequest
	if err := httpio.DecodeJSON(r, &req); err != nil {
		httpio.Error(w, r, h.Logger, err)
		return
	}

	groups, err := h.Service.UpdateSizes(r.Context(), id, req.Sizes)
	httpio.Respond(w, r, h.Logger, groups, err, http.StatusOK)
}

// DeleteImageHandler lida com a requisição DELETE /api/products/{id}/images/{imageId}.
// @Summary Remove uma imagem do produto
// @Description Se a imagem era a principal, a de menor ID restante é promovida.
// @Tags products
// @Produce json
// @Param id path int true "ID do produto"
// @Param imageId path int true "ID da imagem"
// @Success 200 {object} domain.ProductDetail
// @Failure 404 {object} domain.ErrorResponse
// @Security ApiKeyAuth
// @Router /api/products/{id}/images/{imageId} [delete]
func (h *Handler) DeleteImageHandler(w http.ResponseWriter, r *http.Request) {
	productID, err := httpio.PathID(r, "id")
	if err != nil {
		httpio.Error(w, r, h.Logger, err)
		return
	}
	imageID, err := httpio.PathID(r, "imageId")
	if err != nil {
		httpio.Error(w, r, h.Logger, err)
		return
	}

	detail, err := h.Service.DeleteImage(r.Context(), productID, imageID)
	httpio.Respond(w, r, h.Logger, detail, err, http.StatusOK)
}

// DeleteProductHandler lida com a requisição DELETE /api/products/{id}.
// @Summary Remove um produto
// @Tags products
// @Param id path int true "ID do produto"
// @Success 204 "No Content"
// @Failure 404 {object} domain.ErrorResponse
// @Security ApiKeyAuth
// @Router /api/products/{id} [delete]
func (h *Handler) DeleteProductHandler(w http.ResponseWriter, r *http.Request) {
	id, err := httpio.PathID(r, "id")
	if err != nil {
		httpio.Error(w, r, h.Logger, err)
		return
	}

	err = h.Service.DeleteProduct(r.Context(), id)
	if err == nil {
		h.logActor(r, "Produto removido via API.", map[string]interface{}{"product_id": id})
	}
	httpio.Respond(w, r, h.Logger, nil, err, http.StatusNoContent)
}
