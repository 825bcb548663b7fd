package productrepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"pololo/internal/domain"
	apperror "pololo/internal/errors"
	"pololo/internal/pkg/database"
	"pololo/internal/pkg/logger"
)

// ProductRepository é o repositório do agregado Produto (produto, imagens e talles).
// Toda escrita acontece dentro de uma única transação.
type ProductRepository struct {
	DB        *sql.DB // Conexão principal com o banco de dados (PostgreSQL)
	DBTimeout time.Duration
	logger    logger.Logger
}

// NewProductRepository cria e retorna uma nova instância do Repositório.
func NewProductRepository(db *sql.DB, dbTimeout time.Duration, logger logger.Logger) *ProductRepository {
	return &ProductRepository{
		DB:        db,
		DBTimeout: dbTimeout,
		logger:    logger,
	}
}

// execer é o subconjunto comum de *sql.Tx usado pelos helpers.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Create insere o produto, suas imagens e linhas de talle e define a imagem principal.
func (r *ProductRepository) Create(ctx context.Context, w domain.ProductWrite) (int64, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	var id int64
	err := database.WithTransaction(ctxTimeout, r.DB, func(tx *sql.Tx) error {
		p := w.Product
		const productSQL = `
            INSERT INTO products (name, category, subcategory, description, price, active)
            VALUES ($1, $2, $3, $4, $5, $6)
            RETURNING id`

		if err := tx.QueryRowContext(ctxTimeout, productSQL,
			p.Name, string(p.Category), p.Subcategory, p.Description, p.Price, p.Active,
		).Scan(&id); err != nil {
			return apperror.NewDBError("Falha ao inserir produto", err)
		}

		newIDs, err := insertImages(ctxTimeout, tx, id, w.NewImageURLs)
		if err != nil {
			return err
		}

		if err := applyMainImage(ctxTimeout, tx, id, domain.MainImageRequest{
			NewIDs:      newIDs,
			ExplicitIdx: w.MainImageIndex,
		}); err != nil {
			return err
		}

		return insertSizes(ctxTimeout, tx, id, w.Sizes)
	})
	if err != nil {
		r.logger.Error("Falha ao criar produto.", err)
		return 0, txError("Falha ao criar produto", err)
	}

	r.logger.Info("Produto criado.", map[string]interface{}{"product_id": id, "images": len(w.NewImageURLs), "sizes": len(w.Sizes)})
	return id, nil
}

// Update altera os campos do produto, anexa novas imagens, recalcula a principal e,
// se ReplaceSizes, substitui todas as linhas de talle.
func (r *ProductRepository) Update(ctx context.Context, id int64, w domain.ProductWrite) error {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	err := database.WithTransaction(ctxTimeout, r.DB, func(tx *sql.Tx) error {
		var (
			currentCategory domain.Category
			currentActive   bool
		)
		err := tx.QueryRowContext(ctxTimeout,
			`SELECT category, active FROM products WHERE id = $1 FOR UPDATE`, id,
		).Scan(&currentCategory, &currentActive)
		if errors.Is(err, sql.ErrNoRows) {
			return apperror.NewNotFoundError(fmt.Sprintf("Produto com ID %d não existe.", id))
		}
		if err != nil {
			return apperror.NewDBError("Falha ao bloquear produto", err)
		}

		p := w.Product
		if !w.ReplaceSizes && p.Category != currentCategory {
			if err := checkSizesCompatible(ctxTimeout, tx, id, p.Category); err != nil {
				return err
			}
		}

		active := p.Active
		if w.KeepActive {
			active = currentActive
		}

		const updateSQL = `
            UPDATE products
            SET name = $2, category = $3, subcategory = $4, description = $5, price = $6,
                active = $7, updated_at = NOW()
            WHERE id = $1`

		if _, err := tx.ExecContext(ctxTimeout, updateSQL,
			id, p.Name, string(p.Category), p.Subcategory, p.Description, p.Price, active,
		); err != nil {
			return apperror.NewDBError("Falha ao atualizar produto", err)
		}

		existing, err := loadImages(ctxTimeout, tx, id)
		if err != nil {
			return err
		}

		newIDs, err := insertImages(ctxTimeout, tx, id, w.NewImageURLs)
		if err != nil {
			return err
		}

		if err := applyMainImage(ctxTimeout, tx, id, domain.MainImageRequest{
			Existing:    existing,
			NewIDs:      newIDs,
			ExplicitID:  w.MainImageID,
			ExplicitIdx: w.MainImageIndex,
		}); err != nil {
			return err
		}

		if w.ReplaceSizes {
			return replaceSizes(ctxTimeout, tx, id, w.Sizes)
		}
		return nil
	})
	if err != nil {
		return txError("Falha ao atualizar produto", err)
	}

	r.logger.Info("Produto atualizado.", map[string]interface{}{"product_id": id, "new_images": len(w.NewImageURLs), "replace_sizes": w.ReplaceSizes})
	return nil
}

// ReplaceSizes substitui todas as linhas de talle de um produto.
// category é a categoria contra a qual as linhas foram validadas; se o produto
// mudou de categoria nesse meio tempo a escrita é recusada com Conflict.
func (r *ProductRepository) ReplaceSizes(ctx context.Context, id int64, category domain.Category, sizes []domain.SizeStock) error {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	err := database.WithTransaction(ctxTimeout, r.DB, func(tx *sql.Tx) error {
		var current domain.Category
		err := tx.QueryRowContext(ctxTimeout,
			`SELECT category FROM products WHERE id = $1 FOR UPDATE`, id,
		).Scan(&current)
		if errors.Is(err, sql.ErrNoRows) {
			return apperror.NewNotFoundError(fmt.Sprintf("Produto com ID %d não existe.", id))
		}
		if err != nil {
			return apperror.NewDBError("Falha ao bloquear produto", err)
		}
		if current != category {
			return apperror.NewConflictError(
				fmt.Sprintf("a categoria do produto %d mudou de '%s' para '%s' durante a operação", id, category, current), nil)
		}

		if err := replaceSizes(ctxTimeout, tx, id, sizes); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctxTimeout, `UPDATE products SET updated_at = NOW() WHERE id = $1`, id)
		if err != nil {
			return apperror.NewDBError("Falha ao atualizar produto", err)
		}
		return nil
	})
	if err != nil {
		return txError("Falha ao substituir talles", err)
	}

	r.logger.Info("Talles do produto substituídos.", map[string]interface{}{"product_id": id, "sizes": len(sizes)})
	return nil
}

// DeleteImage remove uma imagem do produto. Se era a principal, a de menor ID
// restante é promovida. Retorna a referência da imagem removida.
func (r *ProductRepository) DeleteImage(ctx context.Context, productID, imageID int64) (string, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	var removedURL string
	err := database.WithTransaction(ctxTimeout, r.DB, func(tx *sql.Tx) error {
		var wasMain bool
		err := tx.QueryRowContext(ctxTimeout,
			`SELECT image_url, is_main FROM product_images WHERE id = $1 AND product_id = $2 FOR UPDATE`,
			imageID, productID,
		).Scan(&removedURL, &wasMain)
		if errors.Is(err, sql.ErrNoRows) {
			return apperror.NewNotFoundError(fmt.Sprintf("Imagem %d não pertence ao produto %d.", imageID, productID))
		}
		if err != nil {
			return apperror.NewDBError("Falha ao buscar imagem", err)
		}

		if _, err := tx.ExecContext(ctxTimeout, `DELETE FROM product_images WHERE id = $1`, imageID); err != nil {
			return apperror.NewDBError("Falha ao remover imagem", err)
		}

		if !wasMain {
			return nil
		}

		// promove a imagem restante de menor ID
		var (
			nextID  int64
			nextURL string
		)
		err = tx.QueryRowContext(ctxTimeout,
			`SELECT id, image_url FROM product_images WHERE product_id = $1 ORDER BY id LIMIT 1`, productID,
		).Scan(&nextID, &nextURL)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			nextURL = ""
		case err != nil:
			return apperror.NewDBError("Falha ao buscar imagem restante", err)
		default:
			if _, err := tx.ExecContext(ctxTimeout, `UPDATE product_images SET is_main = true WHERE id = $1`, nextID); err != nil {
				return apperror.NewDBError("Falha ao promover imagem principal", err)
			}
		}

		_, err = tx.ExecContext(ctxTimeout,
			`UPDATE products SET image_url = $2, updated_at = NOW() WHERE id = $1`, productID, nextURL)
		if err != nil {
			return apperror.NewDBError("Falha ao atualizar imagem do produto", err)
		}
		return nil
	})
	if err != nil {
		return "", txError("Falha ao remover imagem", err)
	}
	return removedURL, nil
}

// Delete remove o produto (imagens e talles em cascata) e devolve as referências
// das imagens para limpeza posterior.
func (r *ProductRepository) Delete(ctx context.Context, id int64) ([]string, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	var refs []string
	err := database.WithTransaction(ctxTimeout, r.DB, func(tx *sql.Tx) error {
		if err := lockProduct(ctxTimeout, tx, id); err != nil {
			return err
		}

		images, err := loadImages(ctxTimeout, tx, id)
		if err != nil {
			return err
		}
		for _, img := range images {
			refs = append(refs, img.URL)
		}

		if _, err := tx.ExecContext(ctxTimeout, `DELETE FROM products WHERE id = $1`, id); err != nil {
			return apperror.NewDBError("Falha ao remover produto", err)
		}
		return nil
	})
	if err != nil {
		return nil, txError("Falha ao remover produto", err)
	}

	r.logger.Info("Produto removido.", map[string]interface{}{"product_id": id, "images": len(refs)})
	return refs, nil
}

// --- helpers de transação ---

func lockProduct(ctx context.Context, tx execer, id int64) error {
	var locked int64
	err := tx.QueryRowContext(ctx, `SELECT id FROM products WHERE id = $1 FOR UPDATE`, id).Scan(&locked)
	if errors.Is(err, sql.ErrNoRows) {
		return apperror.NewNotFoundError(fmt.Sprintf("Produto com ID %d não existe.", id))
	}
	if err != nil {
		return apperror.NewDBError("Falha ao bloquear produto", err)
	}
	return nil
}

func loadImages(ctx context.Context, tx execer, productID int64) ([]domain.ProductImage, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT id, product_id, image_url, is_main FROM product_images WHERE product_id = $1 ORDER BY id`, productID)
	if err != nil {
		return nil, apperror.NewDBError("Falha ao listar imagens", err)
	}
	defer rows.Close()

	var images []domain.ProductImage
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

func insertImages(ctx context.Context, tx execer, productID int64, urls []string) ([]int64, error) {
	ids := make([]int64, 0, len(urls))
	for _, url := range urls {
		var id int64
		err := tx.QueryRowContext(ctx,
			`INSERT INTO product_images (product_id, image_url, is_main) VALUES ($1, $2, false) RETURNING id`,
			productID, url,
		).Scan(&id)
		if err != nil {
			return nil, apperror.NewDBError("Falha ao inserir imagem", err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// applyMainImage grava a decisão da tabela de imagem principal: no máximo uma
// is_main por produto e products.image_url sempre igual à URL dela (ou vazio).
func applyMainImage(ctx context.Context, tx execer, productID int64, req domain.MainImageRequest) error {
	source, mainID := domain.ResolveMainImage(req)

	// o índice parcial único exige limpar antes de marcar
	if _, err := tx.ExecContext(ctx,
		`UPDATE product_images SET is_main = false WHERE product_id = $1 AND is_main`, productID,
	); err != nil {
		return apperror.NewDBError("Falha ao limpar imagem principal", err)
	}

	var url string
	if source != domain.MainImageNone {
		err := tx.QueryRowContext(ctx,
			`UPDATE product_images SET is_main = true WHERE id = $1 AND product_id = $2 RETURNING image_url`,
			mainID, productID,
		).Scan(&url)
		if err != nil {
			return apperror.NewDBError("Falha ao marcar imagem principal", err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE products SET image_url = $2 WHERE id = $1`, productID, url,
	); err != nil {
		return apperror.NewDBError("Falha ao atualizar imagem do produto", err)
	}
	return nil
}

func insertSizes(ctx context.Context, tx execer, productID int64, sizes []domain.SizeStock) error {
	for _, s := range sizes {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO product_sizes (product_id, size_id, stock) VALUES ($1, $2, $3)`,
			productID, s.SizeID, s.Stock,
		); err != nil {
			return apperror.NewDBError(fmt.Sprintf("Falha ao inserir talle %d", s.SizeID), err)
		}
	}
	return nil
}

func replaceSizes(ctx context.Context, tx execer, productID int64, sizes []domain.SizeStock) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM product_sizes WHERE product_id = $1`, productID); err != nil {
		return apperror.NewDBError("Falha ao limpar talles", err)
	}
	return insertSizes(ctx, tx, productID, sizes)
}

// checkSizesCompatible rejeita a troca de categoria quando há linhas de talle
// de outro tipo (ou, em marroquinaria, diferentes de Único).
func checkSizesCompatible(ctx context.Context, tx execer, productID int64, category domain.Category) error {
	expected, ok := domain.SizeTypeFor(category)
	if !ok {
		return apperror.NewFieldError("category", "categoria inválida")
	}

	const query = `
        SELECT COUNT(*)
        FROM product_sizes ps
        JOIN sizes s ON s.id = ps.size_id
        JOIN size_types st ON st.id = s.size_type_id
        WHERE ps.product_id = $1
          AND (LOWER(st.name) <> $2 OR ($2 = 'marroquineria' AND s.value <> $3))`

	var incompatible int
	if err := tx.QueryRowContext(ctx, query, productID, string(expected), domain.UniqueSizeValue).Scan(&incompatible); err != nil {
		return apperror.NewDBError("Falha ao verificar talles do produto", err)
	}
	if incompatible > 0 {
		return apperror.NewInvalidSizeForCategoryError(string(category), fmt.Sprintf("product_id=%d", productID),
			fmt.Sprintf("%d talle(s) existente(s) incompatível(is); envie sizes para substituí-los", incompatible))
	}
	return nil
}

// txError preserva erros de domínio e converte o resto (begin/commit) em falha de armazenamento.
func txError(msg string, err error) error {
	var appErr apperror.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return apperror.NewDBError(msg, err)
}
