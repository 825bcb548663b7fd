package homeservice

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"pololo/internal/domain"
	apperror "pololo/internal/errors"
	"pololo/internal/pkg/cache"
	"pololo/internal/pkg/logger"
	"pololo/internal/pkg/storage"
)

const homeCacheKey = "home:page"

// HomeRepository define o contrato que o Serviço da Home espera da camada de Persistência.
type HomeRepository interface {
	ListCarousel(ctx context.Context, onlyActive bool) ([]domain.CarouselItem, error)
	CreateCarousel(ctx context.Context, item domain.CarouselItem) (domain.CarouselItem, error)
	UpdateCarousel(ctx context.Context, id int64, patch domain.CarouselPatch) (domain.CarouselItem, error)
	ToggleCarousel(ctx context.Context, id int64) (domain.CarouselItem, error)
	DeleteCarousel(ctx context.Context, id int64) ([]string, error)

	ListFeatured(ctx context.Context, onlyActive bool) ([]domain.FeaturedProduct, error)
	ImagesByProducts(ctx context.Context, productIDs []int64) (map[int64][]domain.ProductImage, error)
	CreateFeatured(ctx context.Context, in domain.FeaturedInput) (domain.FeaturedProduct, error)
	UpdateFeatured(ctx context.Context, id int64, patch domain.FeaturedPatch) (domain.FeaturedProduct, error)
	ToggleFeatured(ctx context.Context, id int64) (domain.FeaturedProduct, error)
	DeleteFeatured(ctx context.Context, id int64) error
}

// Service é a curadoria da home: carrossel e produtos em destaque.
type Service struct {
	repo          HomeRepository
	images        storage.ImageStore
	cache         cache.Client
	cacheTTL      time.Duration
	logger        logger.Logger
	maxImageBytes int64
}

// NewService cria e retorna uma nova instância do Serviço da Home. cacheClient pode ser nil.
func NewService(repo HomeRepository, images storage.ImageStore, cacheClient cache.Client, cacheTTL time.Duration, logger logger.Logger, maxImageBytes int64) *Service {
	return &Service{
		repo:          repo,
		images:        images,
		cache:         cacheClient,
		cacheTTL:      cacheTTL,
		logger:        logger,
		maxImageBytes: maxImageBytes,
	}
}

// Home monta a página pública. Carrossel e destaques são carregados em paralelo.
func (s *Service) Home(ctx context.Context) (domain.HomePage, error) {
	if page, ok := s.cachedPage(ctx); ok {
		return page, nil
	}

	var page domain.HomePage
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		items, err := s.repo.ListCarousel(gctx, true)
		page.Carousel = items
		return err
	})
	g.Go(func() error {
		featured, err := s.featuredWithImages(gctx, true)
		page.FeaturedProducts = featured
		return err
	})
	if err := g.Wait(); err != nil {
		return domain.HomePage{}, err
	}

	s.storePage(ctx, page)
	return page, nil
}

func (s *Service) cachedPage(ctx context.Context) (domain.HomePage, bool) {
	if s.cache == nil {
		return domain.HomePage{}, false
	}
	raw, err := s.cache.Get(ctx, homeCacheKey)
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.logger.Warn("Falha ao ler home do cache.", map[string]interface{}{"error": err.Error()})
		}
		return domain.HomePage{}, false
	}
	var page domain.HomePage
	if err := json.Unmarshal([]byte(raw), &page); err != nil {
		s.logger.Warn("Entrada de cache da home inválida.", map[string]interface{}{"error": err.Error()})
		return domain.HomePage{}, false
	}
	return page, true
}

func (s *Service) storePage(ctx context.Context, page domain.HomePage) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(page)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, homeCacheKey, string(raw), s.cacheTTL); err != nil {
		s.logger.Warn("Falha ao gravar home no cache.", map[string]interface{}{"error": err.Error()})
	}
}

// invalidate descarta a home em cache após qualquer escrita administrativa.
func (s *Service) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, homeCacheKey); err != nil {
		s.logger.Warn("Falha ao invalidar home no cache.", map[string]interface{}{"error": err.Error()})
	}
}

func (s *Service) featuredWithImages(ctx context.Context, onlyActive bool) ([]domain.FeaturedProduct, error) {
	featured, err := s.repo.ListFeatured(ctx, onlyActive)
	if err != nil || len(featured) == 0 {
		return featured, err
	}

	ids := make([]int64, 0, len(featured))
	for _, f := range featured {
		ids = append(ids, f.ProductID)
	}
	images, err := s.repo.ImagesByProducts(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range featured {
		featured[i].Images = images[featured[i].ProductID]
		if featured[i].Images == nil {
			featured[i].Images = []domain.ProductImage{}
		}
	}
	return featured, nil
}

// ListCarousel devolve todos os slides (inclusive inativos) para o painel.
func (s *Service) ListCarousel(ctx context.Context) ([]domain.CarouselItem, error) {
	return s.repo.ListCarousel(ctx, false)
}

// CreateCarousel grava as imagens e insere o slide. Se o insert falhar, as imagens são removidas.
func (s *Service) CreateCarousel(ctx context.Context, in domain.CarouselInput) (domain.CarouselItem, error) {
	if len(in.Image.Data) == 0 {
		return domain.CarouselItem{}, apperror.NewFieldError("image", "a imagem é obrigatória")
	}
	if in.Position < 0 {
		return domain.CarouselItem{}, apperror.NewFieldError("position", "a posição não pode ser negativa")
	}
	uploads := []domain.ImageUpload{in.Image}
	if in.MobileImage != nil {
		uploads = append(uploads, *in.MobileImage)
	}
	for _, img := range uploads {
		if err := storage.CheckImage(img, s.maxImageBytes); err != nil {
			return domain.CarouselItem{}, err
		}
	}

	var refs []string
	for _, img := range uploads {
		ref, err := s.images.Save(ctx, img)
		if err != nil {
			storage.DeleteAll(context.WithoutCancel(ctx), s.images, refs, s.logger)
			return domain.CarouselItem{}, err
		}
		refs = append(refs, ref)
	}

	item := domain.CarouselItem{
		ImageURL: refs[0],
		Title:    strings.TrimSpace(in.Title),
		Position: in.Position,
	}
	if len(refs) > 1 {
		item.MobileImageURL = refs[1]
	}

	created, err := s.repo.CreateCarousel(ctx, item)
	if err != nil {
		storage.DeleteAll(context.WithoutCancel(ctx), s.images, refs, s.logger)
		return domain.CarouselItem{}, err
	}

	s.invalidate(ctx)
	return created, nil
}

// UpdateCarousel aplica uma atualização parcial no slide.
func (s *Service) UpdateCarousel(ctx context.Context, id int64, patch domain.CarouselPatch) (domain.CarouselItem, error) {
	if patch.Title != nil {
		t := strings.TrimSpace(*patch.Title)
		patch.Title = &t
	}
	item, err := s.repo.UpdateCarousel(ctx, id, patch)
	if err != nil {
		return domain.CarouselItem{}, err
	}
	s.invalidate(ctx)
	return item, nil
}

// ToggleCarousel ativa ou desativa o slide.
func (s *Service) ToggleCarousel(ctx context.Context, id int64) (domain.CarouselItem, error) {
	item, err := s.repo.ToggleCarousel(ctx, id)
	if err != nil {
		return domain.CarouselItem{}, err
	}
	s.invalidate(ctx)
	return item, nil
}

// DeleteCarousel remove o slide e, depois, seus arquivos.
func (s *Service) DeleteCarousel(ctx context.Context, id int64) error {
	refs, err := s.repo.DeleteCarousel(ctx, id)
	if err != nil {
		return err
	}
	s.invalidate(ctx)
	storage.DeleteAll(context.WithoutCancel(ctx), s.images, refs, s.logger)
	return nil
}

// ListFeatured devolve todos os destaques com produto e imagens.
func (s *Service) ListFeatured(ctx context.Context) ([]domain.FeaturedProduct, error) {
	return s.featuredWithImages(ctx, false)
}

func (s *Service) CreateFeatured(ctx context.Context, in domain.FeaturedInput) (domain.FeaturedProduct, error) {
	if in.ProductID <= 0 {
		return domain.FeaturedProduct{}, apperror.NewFieldError("product_id", "o produto é obrigatório")
	}
	if in.Position < 0 {
		return domain.FeaturedProduct{}, apperror.NewFieldError("position", "a posição não pode ser negativa")
	}
	f, err := s.repo.CreateFeatured(ctx, in)
	if err != nil {
		return domain.FeaturedProduct{}, err
	}
	s.invalidate(ctx)
	return f, nil
}

func (s *Service) UpdateFeatured(ctx context.Context, id int64, patch domain.FeaturedPatch) (domain.FeaturedProduct, error) {
	f, err := s.repo.UpdateFeatured(ctx, id, patch)
	if err != nil {
		return domain.FeaturedProduct{}, err
	}
	s.invalidate(ctx)
	return f, nil
}

func (s *Service) ToggleFeatured(ctx context.Context, id int64) (domain.FeaturedProduct, error) {
	f, err := s.repo.ToggleFeatured(ctx, id)
	if err != nil {
		return domain.FeaturedProduct{}, err
	}
	s.invalidate(ctx)
	return f, nil
}

func (s *Service) DeleteFeatured(ctx context.Context, id int64) error {
	if err := s.repo.DeleteFeatured(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}
