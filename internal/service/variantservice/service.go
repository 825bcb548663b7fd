package variantservice

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/sync/singleflight"

	"pololo/internal/domain"
	apperror "pololo/internal/errors"
	"pololo/internal/pkg/logger"
)

// SizeRepository define o contrato que o Catálogo de Variantes espera da camada de Persistência.
type SizeRepository interface {
	FindTypeByName(ctx context.Context, name domain.SizeTypeName) (domain.SizeType, error)
	ListByType(ctx context.Context, name domain.SizeTypeName) ([]domain.Size, error)
	FindByID(ctx context.Context, id int64) (domain.Size, error)
	FindByTypeAndValue(ctx context.Context, typeName domain.SizeTypeName, value string) (domain.Size, error)
	EnsureSize(ctx context.Context, typeName domain.SizeTypeName, value string) (domain.Size, error)
}

// Service resolve e valida referências de talle por categoria.
type Service struct {
	repo   SizeRepository
	logger logger.Logger
	group  singleflight.Group
}

// NewService cria e retorna uma nova instância do Catálogo de Variantes.
func NewService(repo SizeRepository, logger logger.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// clothingOrder é a ordem fixa dos talles de roupa.
var clothingOrder = map[string]int{"XS": 0, "S": 1, "M": 2, "L": 3, "XL": 4, "XXL": 5}

// SizesForType lista os talles de um tipo na ordem de domínio.
// Tipo desconhecido é NotFound.
func (s *Service) SizesForType(ctx context.Context, typeName string) ([]domain.Size, error) {
	name := domain.NormalizeSizeType(typeName)
	if _, err := s.repo.FindTypeByName(ctx, name); err != nil {
		return nil, err
	}

	sizes, err := s.repo.ListByType(ctx, name)
	if err != nil {
		return nil, err
	}
	SortSizes(name, sizes)
	return sizes, nil
}

// SizesByType é a leitura pública: tipo desconhecido retorna lista vazia.
func (s *Service) SizesByType(ctx context.Context, typeName string) ([]domain.Size, error) {
	sizes, err := s.SizesForType(ctx, typeName)
	if apperror.IsNotFound(err) {
		s.logger.Debug("Tipo de talle desconhecido na leitura pública.", map[string]interface{}{"size_type": typeName})
		return []domain.Size{}, nil
	}
	return sizes, err
}

// SortSizes ordena in-place: ropa por XS<S<M<L<XL<XXL, pantalon numericamente,
// demais tipos lexicograficamente. Valores fora da tabela vão para o final.
func SortSizes(typeName domain.SizeTypeName, sizes []domain.Size) {
	sort.SliceStable(sizes, func(i, j int) bool { return sizeLess(typeName, sizes[i].Value, sizes[j].Value) })
}

// SortStockItems aplica a mesma ordem às linhas de estoque de um grupo.
func SortStockItems(typeName domain.SizeTypeName, items []domain.SizeStockItem) {
	sort.SliceStable(items, func(i, j int) bool { return sizeLess(typeName, items[i].Value, items[j].Value) })
}

func sizeLess(typeName domain.SizeTypeName, a, b string) bool {
	switch typeName {
	case domain.SizeTypeClothing:
		ra, oka := clothingOrder[strings.ToUpper(a)]
		rb, okb := clothingOrder[strings.ToUpper(b)]
		switch {
		case oka && okb:
			return ra < rb
		case oka != okb:
			return oka
		}
	case domain.SizeTypePants:
		na, erra := strconv.ParseFloat(a, 64)
		nb, errb := strconv.ParseFloat(b, 64)
		switch {
		case erra == nil && errb == nil:
			return na < nb
		case (erra == nil) != (errb == nil):
			return erra == nil
		}
	}
	return a < b
}

// ResolveUnicoSize devolve o ID do talle "Único" de marroquinaria, criando tipo e talle se
// necessário. Chamadores concorrentes no mesmo processo compartilham uma única ida ao banco;
// entre processos a corrida é resolvida pela unicidade no repositório.
// A ida compartilhada não herda o cancelamento de quem a iniciou; cada chamador
// abandona a espera apenas pelo próprio ctx.
func (s *Service) ResolveUnicoSize(ctx context.Context) (int64, error) {
	flightCtx := context.WithoutCancel(ctx)
	ch := s.group.DoChan("size:unico", func() (interface{}, error) {
		size, err := s.repo.EnsureSize(flightCtx, domain.SizeTypeLeather, domain.UniqueSizeValue)
		if err != nil {
			return int64(0), err
		}
		return size.ID, nil
	})

	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			s.logger.Error("Falha ao resolver o talle Único.", res.Err)
			return 0, res.Err
		}
		if res.Shared {
			s.logger.Debug("Resolução do talle Único compartilhada entre chamadores.", nil)
		}
		return res.Val.(int64), nil
	}
}

// ValidateSizeForCategory verifica se o talle pertence ao tipo mapeado pela categoria.
func (s *Service) ValidateSizeForCategory(ctx context.Context, category domain.Category, sizeID int64) error {
	size, err := s.repo.FindByID(ctx, sizeID)
	if apperror.IsNotFound(err) {
		return apperror.NewInvalidSizeForCategoryError(string(category), fmt.Sprintf("size_id=%d", sizeID), "talle inexistente")
	}
	if err != nil {
		return err
	}
	return checkCompatible(category, size)
}

// ResolveSizeEntries resolve e valida todas as linhas de talle de uma escrita.
// A primeira falha interrompe tudo; linhas com estoque <= 0 são descartadas.
func (s *Service) ResolveSizeEntries(ctx context.Context, category domain.Category, entries []domain.SizeEntry) ([]domain.SizeStock, error) {
	seen := make(map[int64]bool, len(entries))
	resolved := make([]domain.SizeStock, 0, len(entries))

	for i, entry := range entries {
		size, err := s.resolveEntry(ctx, category, i, entry)
		if err != nil {
			s.logger.Warn("Linha de talle rejeitada.", map[string]interface{}{"index": i, "category": category, "error": err.Error()})
			return nil, err
		}
		if seen[size.ID] {
			return nil, apperror.NewFieldError(fmt.Sprintf("sizes[%d]", i), fmt.Sprintf("talle '%s' informado mais de uma vez", size.Value))
		}
		seen[size.ID] = true

		if entry.Stock <= 0 {
			continue
		}
		resolved = append(resolved, domain.SizeStock{SizeID: size.ID, Stock: entry.Stock})
	}

	return resolved, nil
}

func (s *Service) resolveEntry(ctx context.Context, category domain.Category, idx int, entry domain.SizeEntry) (domain.Size, error) {
	expected, ok := domain.SizeTypeFor(category)
	if !ok {
		return domain.Size{}, apperror.NewFieldError("category", "categoria inválida")
	}

	switch {
	case entry.SizeID > 0:
		size, err := s.repo.FindByID(ctx, entry.SizeID)
		if apperror.IsNotFound(err) {
			return domain.Size{}, apperror.NewInvalidSizeForCategoryError(string(category), fmt.Sprintf("size_id=%d", entry.SizeID), "talle inexistente")
		}
		if err != nil {
			return domain.Size{}, err
		}
		return size, checkCompatible(category, size)

	case strings.TrimSpace(entry.SizeValue) != "":
		value := strings.TrimSpace(entry.SizeValue)
		typeName := expected
		if entry.SizeType != "" {
			typeName = domain.NormalizeSizeType(entry.SizeType)
		}
		ref := fmt.Sprintf("%s/%s", typeName, value)
		if typeName != expected {
			return domain.Size{}, apperror.NewInvalidSizeForCategoryError(string(category), ref,
				fmt.Sprintf("a categoria aceita apenas talles do tipo '%s'", expected))
		}

		if typeName == domain.SizeTypeLeather {
			if !isUniqueValue(value) {
				return domain.Size{}, apperror.NewInvalidSizeForCategoryError(string(category), ref, "marroquinaria aceita apenas o talle Único")
			}
			id, err := s.ResolveUnicoSize(ctx)
			if err != nil {
				return domain.Size{}, err
			}
			return domain.Size{ID: id, TypeName: domain.SizeTypeLeather, Value: domain.UniqueSizeValue}, nil
		}

		size, err := s.repo.FindByTypeAndValue(ctx, typeName, value)
		if apperror.IsNotFound(err) {
			return domain.Size{}, apperror.NewInvalidSizeForCategoryError(string(category), ref, "talle inexistente")
		}
		if err != nil {
			return domain.Size{}, err
		}
		return size, checkCompatible(category, size)

	default:
		return domain.Size{}, apperror.NewFieldError(fmt.Sprintf("sizes[%d]", idx), "informe size_id ou size_value")
	}
}

func checkCompatible(category domain.Category, size domain.Size) error {
	expected, ok := domain.SizeTypeFor(category)
	if !ok {
		return apperror.NewFieldError("category", "categoria inválida")
	}
	ref := fmt.Sprintf("%s/%s", size.TypeName, size.Value)
	if domain.NormalizeSizeType(string(size.TypeName)) != expected {
		return apperror.NewInvalidSizeForCategoryError(string(category), ref,
			fmt.Sprintf("a categoria aceita apenas talles do tipo '%s'", expected))
	}
	if expected == domain.SizeTypeLeather && size.Value != domain.UniqueSizeValue {
		return apperror.NewInvalidSizeForCategoryError(string(category), ref, "marroquinaria aceita apenas o talle Único")
	}
	return nil
}

func isUniqueValue(v string) bool {
	return strings.EqualFold(v, domain.UniqueSizeValue) || strings.EqualFold(v, "Unico")
}
