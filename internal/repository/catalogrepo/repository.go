package catalogrepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"pololo/internal/domain"
	apperror "pololo/internal/errors"
	"pololo/internal/pkg/logger"
)

// CatalogRepository implementa as leituras públicas do catálogo.
type CatalogRepository struct {
	DB        *sql.DB
	DBTimeout time.Duration
	logger    logger.Logger
}

// NewCatalogRepository cria e retorna uma nova instância do Repositório de Catálogo.
func NewCatalogRepository(db *sql.DB, dbTimeout time.Duration, logger logger.Logger) *CatalogRepository {
	return &CatalogRepository{
		DB:        db,
		DBTimeout: dbTimeout,
		logger:    logger,
	}
}

const summaryColumns = `
        p.id, p.name, p.category, p.subcategory, p.description, p.price, p.image_url, p.active,
        COALESCE((SELECT SUM(ps.stock) FROM product_sizes ps WHERE ps.product_id = p.id), 0) AS stock_total`

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern monta o padrão ILIKE "%termo%" escapando curingas do usuário.
func containsPattern(term string) string {
	return "%" + likeEscaper.Replace(term) + "%"
}

// buildListQuery compõe os filtros com AND, na ordem: ativo, categoria, subcategoria, busca, talle.
func buildListQuery(f domain.ProductFilter) (string, []interface{}) {
	var (
		conds []string
		args  []interface{}
	)
	add := func(format string, arg interface{}) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(format, len(args)))
	}

	if !f.IncludeInactive {
		conds = append(conds, "p.active = true")
	}
	if c := strings.TrimSpace(f.Category); c != "" {
		add("LOWER(p.category) = LOWER($%d)", c)
	}
	if sc := strings.TrimSpace(f.Subcategory); sc != "" {
		add("LOWER(p.subcategory) = LOWER($%d)", sc)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		add("(p.name ILIKE $%[1]d OR p.description ILIKE $%[1]d)", containsPattern(s))
	}
	if sz := strings.TrimSpace(f.Size); sz != "" {
		add(`EXISTS (
            SELECT 1 FROM product_sizes ps
            JOIN sizes s ON s.id = ps.size_id
            WHERE ps.product_id = p.id AND ps.stock > 0 AND LOWER(s.value) = LOWER($%d))`, sz)
	}

	query := "SELECT " + summaryColumns + "\n        FROM products p"
	if len(conds) > 0 {
		query += "\n        WHERE " + strings.Join(conds, " AND ")
	}
	query += "\n        ORDER BY p.id"
	return query, args
}

// List retorna os resumos dos produtos que atendem a todos os filtros, ordenados por ID.
func (r *CatalogRepository) List(ctx context.Context, f domain.ProductFilter) ([]domain.ProductSummary, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	query, args := buildListQuery(f)
	rows, err := r.DB.QueryContext(ctxTimeout, query, args...)
	if err != nil {
		r.logger.Error("Falha ao listar produtos.", err)
		return nil, apperror.NewDBError("Falha ao listar produtos", err)
	}
	defer rows.Close()

	products := []domain.ProductSummary{}
	for rows.Next() {
		var p domain.ProductSummary
		if err := rows.Scan(&p.ID, &p.Name, &p.Category, &p.Subcategory, &p.Description,
			&p.Price, &p.ImageURL, &p.Active, &p.StockTotal); err != nil {
			return nil, apperror.NewDBError("Falha ao mapear produto", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.NewDBError("Erro após iteração de produtos", err)
	}
	return products, nil
}

// FindProduct busca apenas a linha do produto.
func (r *CatalogRepository) FindProduct(ctx context.Context, id int64) (domain.Product, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	const query = `
        SELECT id, name, category, subcategory, description, price, active, image_url, created_at, updated_at
        FROM products
        WHERE id = $1`

	var p domain.Product
	err := r.DB.QueryRowContext(ctxTimeout, query, id).Scan(
		&p.ID, &p.Name, &p.Category, &p.Subcategory, &p.Description,
		&p.Price, &p.Active, &p.ImageURL, &p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Product{}, apperror.NewNotFoundError(fmt.Sprintf("Produto com ID %d não existe.", id))
	}
	if err != nil {
		r.logger.Error("Falha ao buscar produto no DB.", err)
		return domain.Product{}, apperror.NewDBError("Falha ao buscar produto", err)
	}
	return p, nil
}

// FindImages lista as imagens de um produto: a principal primeiro, depois por ID.
func (r *CatalogRepository) FindImages(ctx context.Context, productID int64) ([]domain.ProductImage, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	rows, err := r.DB.QueryContext(ctxTimeout, `
        SELECT id, product_id, image_url, is_main
        FROM product_images
        WHERE product_id = $1
        ORDER BY is_main DESC, id`, productID)
	if err != nil {
		return nil, apperror.NewDBError("Falha ao listar imagens", err)
	}
	defer rows.Close()

	images := []domain.ProductImage{}
	for rows.Next() {
		var img domain.ProductImage
		if err := rows.Scan(&img.ID, &img.ProductID, &img.URL, &img.IsMain); err != nil {
			return nil, apperror.NewDBError("Falha ao mapear imagem", err)
		}
		images = append(images, img)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.NewDBError("Erro após iteração de imagens", err)
	}
	return images, nil
}

// FindSizes devolve as linhas de estoque agrupadas por tipo de talle, na ordem de chegada.
// A ordenação de domínio dentro de cada grupo fica com o serviço.
func (r *CatalogRepository) FindSizes(ctx context.Context, productID int64) ([]domain.SizeGroup, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	rows, err := r.DB.QueryContext(ctxTimeout, `
        SELECT st.name, s.id, s.value, ps.stock
        FROM product_sizes ps
        JOIN sizes s ON s.id = ps.size_id
        JOIN size_types st ON st.id = s.size_type_id
        WHERE ps.product_id = $1
        ORDER BY st.name, s.id`, productID)
	if err != nil {
		return nil, apperror.NewDBError("Falha ao listar talles do produto", err)
	}
	defer rows.Close()

	groups := []domain.SizeGroup{}
	index := map[domain.SizeTypeName]int{}
	for rows.Next() {
		var (
			typeName domain.SizeTypeName
			item     domain.SizeStockItem
		)
		if err := rows.Scan(&typeName, &item.SizeID, &item.Value, &item.Stock); err != nil {
			return nil, apperror.NewDBError("Falha ao mapear talle", err)
		}
		i, ok := index[typeName]
		if !ok {
			i = len(groups)
			index[typeName] = i
			groups = append(groups, domain.SizeGroup{Type: typeName})
		}
		groups[i].Items = append(groups[i].Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.NewDBError("Erro após iteração de talles", err)
	}
	return groups, nil
}

// SearchByName retorna até limit produtos ativos cujo nome contém q, ordenados por nome.
func (r *CatalogRepository) SearchByName(ctx context.Context, q string, limit int) ([]domain.SearchResult, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	rows, err := r.DB.QueryContext(ctxTimeout, `
        SELECT id, name, price
        FROM products
        WHERE active = true AND name ILIKE $1
        ORDER BY name
        LIMIT $2`, containsPattern(q), limit)
	if err != nil {
		r.logger.Error("Falha na busca por nome.", err)
		return nil, apperror.NewDBError("Falha na busca de produtos", err)
	}
	defer rows.Close()

	results := []domain.SearchResult{}
	for rows.Next() {
		var sr domain.SearchResult
		if err := rows.Scan(&sr.ID, &sr.Name, &sr.Price); err != nil {
			return nil, apperror.NewDBError("Falha ao mapear resultado de busca", err)
		}
		results = append(results, sr)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.NewDBError("Erro após iteração da busca", err)
	}
	return results, nil
}
