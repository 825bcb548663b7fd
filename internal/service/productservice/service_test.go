package productservice_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"pololo/internal/domain"
	apperror "pololo/internal/errors"
	"pololo/internal/pkg/logger"
	"pololo/internal/service/productservice"
)

// MockProductRepository é uma implementação mock da interface ProductRepository
type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) Create(ctx context.Context, w domain.ProductWrite) (int64, error) {
	args := m.Called(ctx, w)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockProductRepository) Update(ctx context.Context, id int64, w domain.ProductWrite) error {
	args := m.Called(ctx, id, w)
	return args.Error(0)
}

func (m *MockProductRepository) ReplaceSizes(ctx context.Context, id int64, category domain.Category, sizes []domain.SizeStock) error {
	args := m.Called(ctx, id, category, sizes)
	return args.Error(0)
}

func (m *MockProductRepository) DeleteImage(ctx context.Context, productID, imageID int64) (string, error) {
	args := m.Called(ctx, productID, imageID)
	return args.String(0), args.Error(1)
}

func (m *MockProductRepository) Delete(ctx context.Context, id int64) ([]string, error) {
	args := m.Called(ctx, id)
	return args.Get(0).([]string), args.Error(1)
}

// MockVariantCatalog é uma implementação mock da interface VariantCatalog
type MockVariantCatalog struct {
	mock.Mock
}

func (m *MockVariantCatalog) ResolveSizeEntries(ctx context.Context, category domain.Category, entries []domain.SizeEntry) ([]domain.SizeStock, error) {
	args := m.Called(ctx, category, entries)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.SizeStock), args.Error(1)
}

// MockImageStore é uma implementação mock da interface storage.ImageStore
type MockImageStore struct {
	mock.Mock
}

func (m *MockImageStore) Save(ctx context.Context, img domain.ImageUpload) (string, error) {
	args := m.Called(ctx, img)
	return args.String(0), args.Error(1)
}

func (m *MockImageStore) Delete(ctx context.Context, ref string) error {
	args := m.Called(ctx, ref)
	return args.Error(0)
}

// MockCatalogReader é uma implementação mock da interface CatalogReader
type MockCatalogReader struct {
	mock.Mock
}

func (m *MockCatalogReader) GetByID(ctx context.Context, id int64) (domain.ProductDetail, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.ProductDetail), args.Error(1)
}

func (m *MockCatalogReader) Invalidate(ctx context.Context, ids ...int64) {
	m.Called(ctx, ids)
}

type fixture struct {
	repo     *MockProductRepository
	variants *MockVariantCatalog
	images   *MockImageStore
	catalog  *MockCatalogReader
	svc      *productservice.Service
}

func newFixture() *fixture {
	f := &fixture{
		repo:     new(MockProductRepository),
		variants: new(MockVariantCatalog),
		images:   new(MockImageStore),
		catalog:  new(MockCatalogReader),
	}
	f.svc = productservice.NewService(f.repo, f.variants, f.images, f.catalog, logger.Nop(), 1<<20)
	return f
}

func (f *fixture) assertNoStorageAccess(t *testing.T) {
	f.images.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	f.repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	f.repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}

func pngUpload(name string) domain.ImageUpload {
	return domain.ImageUpload{Filename: name, Data: []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")}
}

func validInput() domain.ProductInput {
	return domain.ProductInput{
		Name:     "Jean recto",
		Category: "Pantalones",
		Price:    decimal.NewFromInt(45),
	}
}

func TestCreateProduct_ValidationFailsFast(t *testing.T) {
	tooMany := make([]domain.ImageUpload, productservice.MaxImages+1)
	for i := range tooMany {
		tooMany[i] = pngUpload("x.png")
	}

	cases := []struct {
		name   string
		mutate func(in *domain.ProductInput)
		field  string
	}{
		{"nome vazio", func(in *domain.ProductInput) { in.Name = "   " }, "name"},
		{"categoria inválida", func(in *domain.ProductInput) { in.Category = "zapatos" }, "category"},
		{"preço zero", func(in *domain.ProductInput) { in.Price = decimal.Zero }, "price"},
		{"preço negativo", func(in *domain.ProductInput) { in.Price = decimal.NewFromInt(-1) }, "price"},
		{"imagens demais", func(in *domain.ProductInput) { in.Images = tooMany }, "images"},
		{"arquivo não é imagem", func(in *domain.ProductInput) {
			in.Images = []domain.ImageUpload{{Filename: "a.txt", Data: []byte("texto")}}
		}, "images"},
		// nome vazio vence categoria inválida
		{"ordem de validação", func(in *domain.ProductInput) { in.Name = ""; in.Category = "zapatos" }, "name"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture()
			in := validInput()
			tc.mutate(&in)

			_, err := f.svc.CreateProduct(context.Background(), in)

			var vErr *apperror.ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tc.field, vErr.Field)
			f.variants.AssertNotCalled(t, "ResolveSizeEntries", mock.Anything, mock.Anything, mock.Anything)
			f.assertNoStorageAccess(t)
		})
	}
}

// Cenário A: só o talle com estoque chega ao repositório.
func TestCreateProduct_PersistsResolvedSizes(t *testing.T) {
	f := newFixture()
	in := validInput()
	in.Sizes = []domain.SizeEntry{{SizeValue: "40", Stock: 5}, {SizeValue: "38", Stock: 0}}
	in.Images = []domain.ImageUpload{pngUpload("a.png")}

	f.variants.On("ResolveSizeEntries", mock.Anything, domain.CategoryPants, in.Sizes).
		Return([]domain.SizeStock{{SizeID: 40, Stock: 5}}, nil)
	f.images.On("Save", mock.Anything, in.Images[0]).Return("/uploads/a.png", nil)
	f.repo.On("Create", mock.Anything, mock.MatchedBy(func(w domain.ProductWrite) bool {
		return w.Product.Category == domain.CategoryPants &&
			w.Product.Name == "Jean recto" &&
			w.Product.Active &&
			len(w.Sizes) == 1 && w.Sizes[0].SizeID == 40 &&
			len(w.NewImageURLs) == 1 && w.NewImageURLs[0] == "/uploads/a.png"
	})).Return(int64(11), nil)
	f.catalog.On("GetByID", mock.Anything, int64(11)).
		Return(domain.ProductDetail{Product: domain.Product{ID: 11}, StockTotal: 5}, nil)

	detail, err := f.svc.CreateProduct(context.Background(), in)

	require.NoError(t, err)
	assert.Equal(t, int64(11), detail.ID)
	assert.Equal(t, 5, detail.StockTotal)
	f.repo.AssertExpectations(t)
	f.images.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

// Cenário C: talle incompatível aborta antes de gravar qualquer coisa.
func TestCreateProduct_InvalidSizeForCategory(t *testing.T) {
	f := newFixture()
	in := validInput()
	in.Category = "remeras"
	in.Sizes = []domain.SizeEntry{{SizeID: 40, Stock: 1}}
	in.Images = []domain.ImageUpload{pngUpload("a.png")}

	f.variants.On("ResolveSizeEntries", mock.Anything, domain.CategoryTShirts, in.Sizes).
		Return(nil, apperror.NewInvalidSizeForCategoryError("remeras", "size_id=40", "a categoria aceita apenas talles do tipo 'ropa'"))

	_, err := f.svc.CreateProduct(context.Background(), in)

	assert.True(t, apperror.IsInvalidSize(err))
	f.assertNoStorageAccess(t)
}

// Falha da transação remove os blobs já gravados.
func TestCreateProduct_CompensatesBlobsOnRepositoryFailure(t *testing.T) {
	f := newFixture()
	in := validInput()
	in.Images = []domain.ImageUpload{pngUpload("a.png"), pngUpload("b.png")}

	f.variants.On("ResolveSizeEntries", mock.Anything, domain.CategoryPants, mock.Anything).Return([]domain.SizeStock{}, nil)
	f.images.On("Save", mock.Anything, in.Images[0]).Return("/uploads/a.png", nil).Once()
	f.images.On("Save", mock.Anything, in.Images[1]).Return("/uploads/b.png", nil).Once()
	f.repo.On("Create", mock.Anything, mock.Anything).Return(int64(0), apperror.NewDBError("Falha ao criar produto", errors.New("deadlock")))
	f.images.On("Delete", mock.Anything, "/uploads/a.png").Return(nil).Once()
	f.images.On("Delete", mock.Anything, "/uploads/b.png").Return(nil).Once()

	_, err := f.svc.CreateProduct(context.Background(), in)

	require.Error(t, err)
	f.images.AssertExpectations(t)
	f.catalog.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestCreateProduct_PartialUploadIsRolledBack(t *testing.T) {
	f := newFixture()
	in := validInput()
	first, second := pngUpload("a.png"), pngUpload("b.png")
	in.Images = []domain.ImageUpload{first, second}

	f.variants.On("ResolveSizeEntries", mock.Anything, mock.Anything, mock.Anything).Return([]domain.SizeStock{}, nil)
	f.images.On("Save", mock.Anything, first).Return("/uploads/a.png", nil).Once()
	f.images.On("Save", mock.Anything, second).Return("", apperror.NewStorageError("disco cheio", errors.New("ENOSPC"))).Once()
	f.images.On("Delete", mock.Anything, "/uploads/a.png").Return(nil).Once()

	_, err := f.svc.CreateProduct(context.Background(), in)

	require.Error(t, err)
	f.images.AssertExpectations(t)
	f.repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestUpdateProduct_OmittedFieldsKeepCurrentState(t *testing.T) {
	f := newFixture()
	in := validInput()
	mainID := int64(21)
	in.MainImageID = &mainID

	f.repo.On("Update", mock.Anything, int64(7), mock.MatchedBy(func(w domain.ProductWrite) bool {
		return w.KeepActive && !w.ReplaceSizes && w.Sizes == nil &&
			w.MainImageID != nil && *w.MainImageID == 21
	})).Return(nil)
	f.catalog.On("Invalidate", mock.Anything, []int64{7}).Return()
	f.catalog.On("GetByID", mock.Anything, int64(7)).Return(domain.ProductDetail{Product: domain.Product{ID: 7}}, nil)

	_, err := f.svc.UpdateProduct(context.Background(), 7, in)

	require.NoError(t, err)
	f.variants.AssertNotCalled(t, "ResolveSizeEntries", mock.Anything, mock.Anything, mock.Anything)
	f.repo.AssertExpectations(t)
	f.catalog.AssertExpectations(t)
}

func TestUpdateProduct_EmptySizesReplaceAll(t *testing.T) {
	f := newFixture()
	in := validInput()
	active := false
	in.Active = &active
	in.ReplaceSizes = true

	f.variants.On("ResolveSizeEntries", mock.Anything, domain.CategoryPants, []domain.SizeEntry(nil)).Return([]domain.SizeStock{}, nil)
	f.repo.On("Update", mock.Anything, int64(7), mock.MatchedBy(func(w domain.ProductWrite) bool {
		return w.ReplaceSizes && len(w.Sizes) == 0 && !w.KeepActive && !w.Product.Active
	})).Return(nil)
	f.catalog.On("Invalidate", mock.Anything, mock.Anything).Return()
	f.catalog.On("GetByID", mock.Anything, int64(7)).Return(domain.ProductDetail{}, nil)

	_, err := f.svc.UpdateProduct(context.Background(), 7, in)

	require.NoError(t, err)
	f.repo.AssertExpectations(t)
}

// Uma linha incompatível rejeita a atualização inteira; os talles atuais ficam intactos.
func TestUpdateProduct_InvalidSizeKeepsExistingSizes(t *testing.T) {
	f := newFixture()
	in := validInput()
	in.ReplaceSizes = true
	in.Sizes = []domain.SizeEntry{
		{SizeType: "pantalon", SizeValue: "40", Stock: 2},
		{SizeType: "ropa", SizeValue: "M", Stock: 1},
	}
	in.Images = []domain.ImageUpload{pngUpload("a.png")}

	f.variants.On("ResolveSizeEntries", mock.Anything, domain.CategoryPants, in.Sizes).
		Return(nil, apperror.NewInvalidSizeForCategoryError("pantalones", "ropa/M", "a categoria aceita apenas talles do tipo 'pantalon'"))

	_, err := f.svc.UpdateProduct(context.Background(), 7, in)

	assert.True(t, apperror.IsInvalidSize(err))
	f.assertNoStorageAccess(t)
	f.repo.AssertNotCalled(t, "ReplaceSizes", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.catalog.AssertNotCalled(t, "Invalidate", mock.Anything, mock.Anything)
}

func TestUpdateProduct_NotFoundCompensates(t *testing.T) {
	f := newFixture()
	in := validInput()
	in.Images = []domain.ImageUpload{pngUpload("a.png")}

	f.images.On("Save", mock.Anything, mock.Anything).Return("/uploads/a.png", nil)
	f.repo.On("Update", mock.Anything, int64(404), mock.Anything).Return(apperror.NewNotFoundError("Produto com ID 404 não existe."))
	f.images.On("Delete", mock.Anything, "/uploads/a.png").Return(nil).Once()

	_, err := f.svc.UpdateProduct(context.Background(), 404, in)

	assert.True(t, apperror.IsNotFound(err))
	f.images.AssertExpectations(t)
	f.catalog.AssertNotCalled(t, "Invalidate", mock.Anything, mock.Anything)
}

func TestUpdateSizes_UsesCurrentCategory(t *testing.T) {
	f := newFixture()
	entries := []domain.SizeEntry{{SizeValue: "M", Stock: 2}}

	f.catalog.On("GetByID", mock.Anything, int64(3)).Return(domain.ProductDetail{
		Product: domain.Product{ID: 3, Category: domain.CategorySweatshirts},
		Sizes:   []domain.SizeGroup{{Type: domain.SizeTypeClothing, Items: []domain.SizeStockItem{{SizeID: 3, Value: "M", Stock: 2}}}},
	}, nil)
	f.variants.On("ResolveSizeEntries", mock.Anything, domain.CategorySweatshirts, entries).
		Return([]domain.SizeStock{{SizeID: 3, Stock: 2}}, nil)
	f.repo.On("ReplaceSizes", mock.Anything, int64(3), domain.CategorySweatshirts, []domain.SizeStock{{SizeID: 3, Stock: 2}}).Return(nil)
	f.catalog.On("Invalidate", mock.Anything, []int64{3}).Return()

	groups, err := f.svc.UpdateSizes(context.Background(), 3, entries)

	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "M", groups[0].Items[0].Value)
	f.repo.AssertExpectations(t)
}

func TestDeleteImage_RemovesBlobAfterCommit(t *testing.T) {
	f := newFixture()

	f.repo.On("DeleteImage", mock.Anything, int64(1), int64(10)).Return("/uploads/a.png", nil)
	f.catalog.On("Invalidate", mock.Anything, []int64{1}).Return()
	f.images.On("Delete", mock.Anything, "/uploads/a.png").Return(errors.New("permissão negada"))
	f.catalog.On("GetByID", mock.Anything, int64(1)).Return(domain.ProductDetail{Product: domain.Product{ID: 1}}, nil)

	// falha na remoção do arquivo não desfaz a operação
	detail, err := f.svc.DeleteImage(context.Background(), 1, 10)

	require.NoError(t, err)
	assert.Equal(t, int64(1), detail.ID)
	f.images.AssertExpectations(t)
}

func TestDeleteProduct(t *testing.T) {
	f := newFixture()

	f.repo.On("Delete", mock.Anything, int64(4)).Return([]string{"/uploads/a.png", "/uploads/b.png"}, nil)
	f.catalog.On("Invalidate", mock.Anything, []int64{4}).Return()
	f.images.On("Delete", mock.Anything, "/uploads/a.png").Return(nil).Once()
	f.images.On("Delete", mock.Anything, "/uploads/b.png").Return(nil).Once()

	require.NoError(t, f.svc.DeleteProduct(context.Background(), 4))
	f.images.AssertExpectations(t)
}

func TestDeleteProduct_NotFound(t *testing.T) {
	f := newFixture()

	f.repo.On("Delete", mock.Anything, int64(4)).Return([]string(nil), apperror.NewNotFoundError("Produto com ID 4 não existe."))

	err := f.svc.DeleteProduct(context.Background(), 4)

	assert.True(t, apperror.IsNotFound(err))
	f.images.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}
