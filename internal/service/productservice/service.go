package productservice

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"pololo/internal/domain"
	apperror "pololo/internal/errors"
	"pololo/internal/pkg/logger"
	"pololo/internal/pkg/storage"
)

// MaxImages é o limite de imagens por requisição de escrita.
const MaxImages = domain.MaxImagesPerWrite

// ProductRepository define o contrato (interface) que este Serviço espera
// da camada de Persistência.
type ProductRepository interface {
	Create(ctx context.Context, w domain.ProductWrite) (int64, error)
	Update(ctx context.Context, id int64, w domain.ProductWrite) error
	ReplaceSizes(ctx context.Context, id int64, category domain.Category, sizes []domain.SizeStock) error
	DeleteImage(ctx context.Context, productID, imageID int64) (string, error)
	Delete(ctx context.Context, id int64) ([]string, error)
}

// VariantCatalog resolve as linhas de talle contra a categoria.
type VariantCatalog interface {
	ResolveSizeEntries(ctx context.Context, category domain.Category, entries []domain.SizeEntry) ([]domain.SizeStock, error)
}

// CatalogReader devolve o produto como visto pelo lado de leitura.
type CatalogReader interface {
	GetByID(ctx context.Context, id int64) (domain.ProductDetail, error)
	Invalidate(ctx context.Context, ids ...int64)
}

// Service orquestra as escritas do agregado Produto.
type Service struct {
	repo          ProductRepository
	variants      VariantCatalog
	images        storage.ImageStore
	catalog       CatalogReader
	logger        logger.Logger
	maxImageBytes int64
}

// NewService cria e retorna uma nova instância do Serviço de Produto.
func NewService(repo ProductRepository, variants VariantCatalog, images storage.ImageStore, catalog CatalogReader, logger logger.Logger, maxImageBytes int64) *Service {
	return &Service{
		repo:          repo,
		variants:      variants,
		images:        images,
		catalog:       catalog,
		logger:        logger,
		maxImageBytes: maxImageBytes,
	}
}

// validate aplica as regras de campo antes de qualquer acesso ao armazenamento.
// A primeira violação é retornada.
func (s *Service) validate(in domain.ProductInput) (domain.Product, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return domain.Product{}, apperror.NewFieldError("name", "o nome é obrigatório")
	}

	category, ok := domain.ParseCategory(in.Category)
	if !ok {
		return domain.Product{}, apperror.NewFieldError("category",
			fmt.Sprintf("categoria '%s' inválida; use uma de %v", in.Category, domain.Categories))
	}

	if !in.Price.GreaterThan(decimal.Zero) {
		return domain.Product{}, apperror.NewFieldError("price", "o preço deve ser maior que zero")
	}

	if len(in.Images) > MaxImages {
		return domain.Product{}, apperror.NewFieldError("images", fmt.Sprintf("no máximo %d imagens por requisição", MaxImages))
	}
	for _, img := range in.Images {
		if err := storage.CheckImage(img, s.maxImageBytes); err != nil {
			return domain.Product{}, err
		}
	}

	return domain.Product{
		Name:        name,
		Category:    category,
		Subcategory: strings.TrimSpace(in.Subcategory),
		Description: strings.TrimSpace(in.Description),
		Price:       in.Price,
		Active:      in.Active == nil || *in.Active,
	}, nil
}

// storeImages grava os blobs na ordem recebida. Se algum falhar, os já gravados são removidos.
func (s *Service) storeImages(ctx context.Context, images []domain.ImageUpload) ([]string, error) {
	refs := make([]string, 0, len(images))
	for _, img := range images {
		ref, err := s.images.Save(ctx, img)
		if err != nil {
			s.compensate(ctx, refs)
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

// compensate remove blobs gravados por uma escrita que não foi confirmada.
func (s *Service) compensate(ctx context.Context, refs []string) {
	if len(refs) == 0 {
		return
	}
	s.logger.Warn("Removendo imagens de escrita não confirmada.", map[string]interface{}{"refs": refs})
	storage.DeleteAll(context.WithoutCancel(ctx), s.images, refs, s.logger)
}

// CreateProduct valida, resolve talles, grava imagens e persiste o agregado.
func (s *Service) CreateProduct(ctx context.Context, in domain.ProductInput) (domain.ProductDetail, error) {
	product, err := s.validate(in)
	if err != nil {
		return domain.ProductDetail{}, err
	}

	sizes, err := s.variants.ResolveSizeEntries(ctx, product.Category, in.Sizes)
	if err != nil {
		return domain.ProductDetail{}, err
	}

	refs, err := s.storeImages(ctx, in.Images)
	if err != nil {
		return domain.ProductDetail{}, err
	}

	id, err := s.repo.Create(ctx, domain.ProductWrite{
		Product:        product,
		NewImageURLs:   refs,
		MainImageIndex: in.MainImageIndex,
		Sizes:          sizes,
	})
	if err != nil {
		s.compensate(ctx, refs)
		return domain.ProductDetail{}, err
	}

	s.logger.Info("Produto criado com sucesso.", map[string]interface{}{"product_id": id, "category": product.Category})
	return s.catalog.GetByID(ctx, id)
}

// UpdateProduct altera o produto. Talles só são substituídos quando enviados.
func (s *Service) UpdateProduct(ctx context.Context, id int64, in domain.ProductInput) (domain.ProductDetail, error) {
	product, err := s.validate(in)
	if err != nil {
		return domain.ProductDetail{}, err
	}

	var sizes []domain.SizeStock
	if in.ReplaceSizes {
		sizes, err = s.variants.ResolveSizeEntries(ctx, product.Category, in.Sizes)
		if err != nil {
			return domain.ProductDetail{}, err
		}
	}

	refs, err := s.storeImages(ctx, in.Images)
	if err != nil {
		return domain.ProductDetail{}, err
	}

	err = s.repo.Update(ctx, id, domain.ProductWrite{
		Product:        product,
		NewImageURLs:   refs,
		MainImageIndex: in.MainImageIndex,
		MainImageID:    in.MainImageID,
		Sizes:          sizes,
		ReplaceSizes:   in.ReplaceSizes,
		KeepActive:     in.Active == nil,
	})
	if err != nil {
		s.compensate(ctx, refs)
		return domain.ProductDetail{}, err
	}

	s.catalog.Invalidate(ctx, id)
	return s.catalog.GetByID(ctx, id)
}

// UpdateSizes substitui os talles do produto, validados contra a categoria atual.
func (s *Service) UpdateSizes(ctx context.Context, id int64, entries []domain.SizeEntry) ([]domain.SizeGroup, error) {
	current, err := s.catalog.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	sizes, err := s.variants.ResolveSizeEntries(ctx, current.Category, entries)
	if err != nil {
		return nil, err
	}

	if err := s.repo.ReplaceSizes(ctx, id, current.Category, sizes); err != nil {
		return nil, err
	}

	s.catalog.Invalidate(ctx, id)
	detail, err := s.catalog.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return detail.Sizes, nil
}

// DeleteImage remove uma imagem; o arquivo é apagado depois do commit.
func (s *Service) DeleteImage(ctx context.Context, productID, imageID int64) (domain.ProductDetail, error) {
	ref, err := s.repo.DeleteImage(ctx, productID, imageID)
	if err != nil {
		return domain.ProductDetail{}, err
	}

	s.catalog.Invalidate(ctx, productID)
	storage.DeleteAll(context.WithoutCancel(ctx), s.images, []string{ref}, s.logger)

	return s.catalog.GetByID(ctx, productID)
}

// DeleteProduct remove o produto e, após o commit, seus arquivos de imagem.
func (s *Service) DeleteProduct(ctx context.Context, id int64) error {
	refs, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}

	s.catalog.Invalidate(ctx, id)
	storage.DeleteAll(context.WithoutCancel(ctx), s.images, refs, s.logger)
	return nil
}
