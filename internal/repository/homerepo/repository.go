package homerepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"pololo/internal/domain"
	apperror "pololo/internal/errors"
	"pololo/internal/pkg/database"
	"pololo/internal/pkg/logger"
)

// HomeRepository implementa as operações de curadoria da home (carrossel e destaques).
type HomeRepository struct {
	DB        *sql.DB
	DBTimeout time.Duration
	logger    logger.Logger
}

// NewHomeRepository cria e retorna uma nova instância do Repositório da Home.
func NewHomeRepository(db *sql.DB, dbTimeout time.Duration, logger logger.Logger) *HomeRepository {
	return &HomeRepository{
		DB:        db,
		DBTimeout: dbTimeout,
		logger:    logger,
	}
}

const carouselColumns = `id, image_url, mobile_image_url, title, position, active`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanCarousel(row rowScanner) (domain.CarouselItem, error) {
	var c domain.CarouselItem
	err := row.Scan(&c.ID, &c.ImageURL, &c.MobileImageURL, &c.Title, &c.Position, &c.Active)
	return c, err
}

func carouselNotFound(id int64) error {
	return apperror.NewNotFoundError(fmt.Sprintf("Slide do carrossel com ID %d não encontrado.", id))
}

// ListCarousel retorna os slides ordenados por posição e ID.
func (r *HomeRepository) ListCarousel(ctx context.Context, onlyActive bool) ([]domain.CarouselItem, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	query := `SELECT ` + carouselColumns + ` FROM home_carousel`
	if onlyActive {
		query += ` WHERE active = true`
	}
	query += ` ORDER BY position, id`

	rows, err := r.DB.QueryContext(ctxTimeout, query)
	if err != nil {
		r.logger.Error("Falha ao listar carrossel.", err)
		return nil, apperror.NewDBError("Falha ao listar carrossel", err)
	}
	defer rows.Close()

	items := []domain.CarouselItem{}
	for rows.Next() {
		c, err := scanCarousel(rows)
		if err != nil {
			return nil, apperror.NewDBError("Falha ao mapear slide", err)
		}
		items = append(items, c)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.NewDBError("Erro após iteração do carrossel", err)
	}
	return items, nil
}

// CreateCarousel insere um slide já com as URLs das imagens gravadas.
func (r *HomeRepository) CreateCarousel(ctx context.Context, item domain.CarouselItem) (domain.CarouselItem, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	query := `
        INSERT INTO home_carousel (image_url, mobile_image_url, title, position, active)
        VALUES ($1, $2, $3, $4, true)
        RETURNING ` + carouselColumns

	created, err := scanCarousel(r.DB.QueryRowContext(ctxTimeout, query,
		item.ImageURL, item.MobileImageURL, item.Title, item.Position))
	if err != nil {
		r.logger.Error("Falha ao inserir slide no DB.", err)
		return domain.CarouselItem{}, apperror.NewDBError("Falha ao criar slide", err)
	}

	r.logger.Info("Slide criado.", map[string]interface{}{"id": created.ID})
	return created, nil
}

// UpdateCarousel aplica uma atualização parcial; campos nil mantêm o valor atual.
func (r *HomeRepository) UpdateCarousel(ctx context.Context, id int64, patch domain.CarouselPatch) (domain.CarouselItem, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	query := `
        UPDATE home_carousel
        SET title = COALESCE($2, title),
            position = COALESCE($3, position),
            active = COALESCE($4, active)
        WHERE id = $1
        RETURNING ` + carouselColumns

	updated, err := scanCarousel(r.DB.QueryRowContext(ctxTimeout, query, id,
		nullString(patch.Title), nullInt(patch.Position), nullBool(patch.Active)))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.CarouselItem{}, carouselNotFound(id)
	}
	if err != nil {
		r.logger.Error("Falha ao atualizar slide.", err)
		return domain.CarouselItem{}, apperror.NewDBError("Falha ao atualizar slide", err)
	}
	return updated, nil
}

// ToggleCarousel inverte o campo active do slide.
func (r *HomeRepository) ToggleCarousel(ctx context.Context, id int64) (domain.CarouselItem, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	query := `UPDATE home_carousel SET active = NOT active WHERE id = $1 RETURNING ` + carouselColumns

	item, err := scanCarousel(r.DB.QueryRowContext(ctxTimeout, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.CarouselItem{}, carouselNotFound(id)
	}
	if err != nil {
		return domain.CarouselItem{}, apperror.NewDBError("Falha ao alternar slide", err)
	}
	return item, nil
}

// DeleteCarousel remove o slide e devolve as referências das imagens para limpeza.
func (r *HomeRepository) DeleteCarousel(ctx context.Context, id int64) ([]string, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	var imageURL, mobileURL string
	err := r.DB.QueryRowContext(ctxTimeout,
		`DELETE FROM home_carousel WHERE id = $1 RETURNING image_url, mobile_image_url`, id).
		Scan(&imageURL, &mobileURL)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, carouselNotFound(id)
	}
	if err != nil {
		r.logger.Error("Falha ao deletar slide.", err)
		return nil, apperror.NewDBError("Falha ao deletar slide", err)
	}

	refs := []string{imageURL}
	if mobileURL != "" {
		refs = append(refs, mobileURL)
	}
	r.logger.Info("Slide deletado.", map[string]interface{}{"id": id})
	return refs, nil
}

func featuredNotFound(id int64) error {
	return apperror.NewNotFoundError(fmt.Sprintf("Destaque com ID %d não encontrado.", id))
}

func productNotFound(id int64) error {
	return apperror.NewNotFoundError(fmt.Sprintf("Produto com ID %d não encontrado.", id))
}

// ListFeatured retorna os destaques com o produto associado, ordenados por posição e ID.
// Com onlyActive, destaques de produtos inativos também ficam de fora.
func (r *HomeRepository) ListFeatured(ctx context.Context, onlyActive bool) ([]domain.FeaturedProduct, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	query := `
        SELECT hp.id, hp.product_id, hp.position, hp.active,
               p.name, p.category, p.subcategory, p.description, p.price, p.active, p.image_url, p.created_at, p.updated_at
        FROM home_products hp
        JOIN products p ON p.id = hp.product_id`
	if onlyActive {
		query += `
        WHERE hp.active = true AND p.active = true`
	}
	query += `
        ORDER BY hp.position, hp.id`

	rows, err := r.DB.QueryContext(ctxTimeout, query)
	if err != nil {
		r.logger.Error("Falha ao listar destaques.", err)
		return nil, apperror.NewDBError("Falha ao listar destaques", err)
	}
	defer rows.Close()

	featured := []domain.FeaturedProduct{}
	for rows.Next() {
		var (
			f domain.FeaturedProduct
			p domain.Product
		)
		if err := rows.Scan(&f.ID, &f.ProductID, &f.Position, &f.Active,
			&p.Name, &p.Category, &p.Subcategory, &p.Description, &p.Price, &p.Active,
			&p.ImageURL, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, apperror.NewDBError("Falha ao mapear destaque", err)
		}
		p.ID = f.ProductID
		f.Product = &p
		featured = append(featured, f)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.NewDBError("Erro após iteração de destaques", err)
	}
	return featured, nil
}

// ImagesByProducts carrega as imagens de vários produtos numa única consulta.
func (r *HomeRepository) ImagesByProducts(ctx context.Context, productIDs []int64) (map[int64][]domain.ProductImage, error) {
	images := make(map[int64][]domain.ProductImage, len(productIDs))
	if len(productIDs) == 0 {
		return images, nil
	}

	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	const query = `
        SELECT id, product_id, image_url, is_main
        FROM product_images
        WHERE product_id = ANY($1)
        ORDER BY product_id, is_main DESC, id`

	rows, err := r.DB.QueryContext(ctxTimeout, query, pq.Array(productIDs))
	if err != nil {
		r.logger.Error("Falha ao buscar imagens dos destaques.", err)
		return nil, apperror.NewDBError("Falha ao buscar imagens", err)
	}
	defer rows.Close()

	for rows.Next() {
		var img domain.ProductImage
		if err := rows.Scan(&img.ID, &img.ProductID, &img.URL, &img.IsMain); err != nil {
			return nil, apperror.NewDBError("Falha ao mapear imagem", err)
		}
		images[img.ProductID] = append(images[img.ProductID], img)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.NewDBError("Erro após iteração de imagens", err)
	}
	return images, nil
}

// CreateFeatured insere um destaque. Produto inexistente é NotFound.
func (r *HomeRepository) CreateFeatured(ctx context.Context, in domain.FeaturedInput) (domain.FeaturedProduct, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	const query = `
        INSERT INTO home_products (product_id, position, active)
        SELECT p.id, $2, true FROM products p WHERE p.id = $1
        RETURNING id, product_id, position, active`

	var f domain.FeaturedProduct
	err := r.DB.QueryRowContext(ctxTimeout, query, in.ProductID, in.Position).
		Scan(&f.ID, &f.ProductID, &f.Position, &f.Active)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.FeaturedProduct{}, productNotFound(in.ProductID)
	}
	if err != nil {
		r.logger.Error("Falha ao inserir destaque.", err)
		return domain.FeaturedProduct{}, apperror.NewDBError("Falha ao criar destaque", err)
	}

	r.logger.Info("Destaque criado.", map[string]interface{}{"id": f.ID, "product_id": f.ProductID})
	return f, nil
}

// UpdateFeatured aplica uma atualização parcial no destaque.
func (r *HomeRepository) UpdateFeatured(ctx context.Context, id int64, patch domain.FeaturedPatch) (domain.FeaturedProduct, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	const query = `
        UPDATE home_products
        SET product_id = COALESCE($2, product_id),
            position = COALESCE($3, position),
            active = COALESCE($4, active)
        WHERE id = $1
        RETURNING id, product_id, position, active`

	var f domain.FeaturedProduct
	err := r.DB.QueryRowContext(ctxTimeout, query, id,
		nullInt64(patch.ProductID), nullInt(patch.Position), nullBool(patch.Active)).
		Scan(&f.ID, &f.ProductID, &f.Position, &f.Active)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return domain.FeaturedProduct{}, featuredNotFound(id)
	case database.IsForeignKeyViolation(err):
		return domain.FeaturedProduct{}, productNotFound(*patch.ProductID)
	case err != nil:
		r.logger.Error("Falha ao atualizar destaque.", err)
		return domain.FeaturedProduct{}, apperror.NewDBError("Falha ao atualizar destaque", err)
	}
	return f, nil
}

// ToggleFeatured inverte o campo active do destaque.
func (r *HomeRepository) ToggleFeatured(ctx context.Context, id int64) (domain.FeaturedProduct, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	var f domain.FeaturedProduct
	err := r.DB.QueryRowContext(ctxTimeout,
		`UPDATE home_products SET active = NOT active WHERE id = $1 RETURNING id, product_id, position, active`, id).
		Scan(&f.ID, &f.ProductID, &f.Position, &f.Active)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.FeaturedProduct{}, featuredNotFound(id)
	}
	if err != nil {
		return domain.FeaturedProduct{}, apperror.NewDBError("Falha ao alternar destaque", err)
	}
	return f, nil
}

// DeleteFeatured remove o destaque (o produto não é afetado).
func (r *HomeRepository) DeleteFeatured(ctx context.Context, id int64) error {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	res, err := r.DB.ExecContext(ctxTimeout, `DELETE FROM home_products WHERE id = $1`, id)
	if err != nil {
		r.logger.Error("Falha ao deletar destaque.", err)
		return apperror.NewDBError("Falha ao deletar destaque", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return featuredNotFound(id)
	}
	return nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullInt(i *int) sql.NullInt64 {
	if i == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*i), Valid: true}
}

func nullInt64(i *int64) sql.NullInt64 {
	if i == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *i, Valid: true}
}

func nullBool(b *bool) sql.NullBool {
	if b == nil {
		return sql.NullBool{}
	}
	return sql.NullBool{Bool: *b, Valid: true}
}
