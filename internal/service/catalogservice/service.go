package catalogservice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"pololo/internal/domain"
	"pololo/internal/pkg/cache"
	"pololo/internal/pkg/logger"
	"pololo/internal/service/variantservice"
)

// SearchLimit é o máximo de resultados do autocomplete.
const SearchLimit = 10

const detailCacheKey = "product:detail:%d"

// CatalogRepository define as leituras que o serviço espera da persistência.
type CatalogRepository interface {
	List(ctx context.Context, f domain.ProductFilter) ([]domain.ProductSummary, error)
	FindProduct(ctx context.Context, id int64) (domain.Product, error)
	FindImages(ctx context.Context, productID int64) ([]domain.ProductImage, error)
	FindSizes(ctx context.Context, productID int64) ([]domain.SizeGroup, error)
	SearchByName(ctx context.Context, q string, limit int) ([]domain.SearchResult, error)
}

// SizeCatalog é a leitura tolerante do Catálogo de Variantes.
type SizeCatalog interface {
	SizesByType(ctx context.Context, typeName string) ([]domain.Size, error)
}

// Service é o lado de leitura do catálogo, com cache-aside do detalhe de produto.
type Service struct {
	repo     CatalogRepository
	sizes    SizeCatalog
	cache    cache.Client
	cacheTTL time.Duration
	logger   logger.Logger
}

// NewService cria o serviço. cacheClient pode ser nil: as leituras vão direto ao DB.
func NewService(repo CatalogRepository, sizes SizeCatalog, cacheClient cache.Client, cacheTTL time.Duration, logger logger.Logger) *Service {
	return &Service{
		repo:     repo,
		sizes:    sizes,
		cache:    cacheClient,
		cacheTTL: cacheTTL,
		logger:   logger,
	}
}

// List retorna os produtos que atendem a todos os filtros.
func (s *Service) List(ctx context.Context, f domain.ProductFilter) ([]domain.ProductSummary, error) {
	return s.repo.List(ctx, f)
}

// GetByID retorna o detalhe completo do produto.
// Falhas de cache nunca derrubam a leitura.
func (s *Service) GetByID(ctx context.Context, id int64) (domain.ProductDetail, error) {
	key := fmt.Sprintf(detailCacheKey, id)

	// --- Cache-Aside (READ) ---
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, key)
		if err == nil {
			var detail domain.ProductDetail
			if json.Unmarshal([]byte(cached), &detail) == nil {
				return detail, nil
			}
			s.logger.Warn("Detalhe em cache corrompido, relendo do DB.", map[string]interface{}{"key": key})
		} else if !errors.Is(err, cache.ErrCacheMiss) {
			s.logger.Warn("Falha ao ler do cache.", map[string]interface{}{"key": key, "error": err.Error()})
		}
	}

	detail, err := s.loadDetail(ctx, id)
	if err != nil {
		return domain.ProductDetail{}, err
	}

	// --- Cache-Aside (WRITE) ---
	if s.cache != nil {
		if data, err := json.Marshal(detail); err == nil {
			if err := s.cache.Set(ctx, key, data, s.cacheTTL); err != nil {
				s.logger.Warn("Falha ao gravar no cache.", map[string]interface{}{"key": key, "error": err.Error()})
			}
		}
	}
	return detail, nil
}

// Invalidate descarta o detalhe em cache após uma escrita.
func (s *Service) Invalidate(ctx context.Context, ids ...int64) {
	if s.cache == nil || len(ids) == 0 {
		return
	}
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, fmt.Sprintf(detailCacheKey, id))
	}
	if err := s.cache.Delete(ctx, keys...); err != nil {
		s.logger.Warn("Falha ao invalidar cache.", map[string]interface{}{"keys": keys, "error": err.Error()})
	}
}

func (s *Service) loadDetail(ctx context.Context, id int64) (domain.ProductDetail, error) {
	product, err := s.repo.FindProduct(ctx, id)
	if err != nil {
		return domain.ProductDetail{}, err
	}
	images, err := s.repo.FindImages(ctx, id)
	if err != nil {
		return domain.ProductDetail{}, err
	}
	groups, err := s.sortedSizes(ctx, id)
	if err != nil {
		return domain.ProductDetail{}, err
	}

	detail := domain.ProductDetail{Product: product, Images: images, Sizes: groups}
	for _, g := range groups {
		for _, item := range g.Items {
			detail.StockTotal += item.Stock
		}
	}
	return detail, nil
}

func (s *Service) sortedSizes(ctx context.Context, id int64) ([]domain.SizeGroup, error) {
	groups, err := s.repo.FindSizes(ctx, id)
	if err != nil {
		return nil, err
	}
	for i := range groups {
		variantservice.SortStockItems(groups[i].Type, groups[i].Items)
	}
	return groups, nil
}

// ProductSizes retorna os grupos de talle de um produto existente.
func (s *Service) ProductSizes(ctx context.Context, id int64) ([]domain.SizeGroup, error) {
	if _, err := s.repo.FindProduct(ctx, id); err != nil {
		return nil, err
	}
	return s.sortedSizes(ctx, id)
}

// SizesByType lista os talles de um tipo; tipo desconhecido resulta em lista vazia.
func (s *Service) SizesByType(ctx context.Context, typeName string) ([]domain.Size, error) {
	return s.sizes.SizesByType(ctx, typeName)
}

// SearchByName é o autocomplete; consulta vazia não toca o banco.
func (s *Service) SearchByName(ctx context.Context, q string) ([]domain.SearchResult, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return []domain.SearchResult{}, nil
	}
	return s.repo.SearchByName(ctx, q, SearchLimit)
}
