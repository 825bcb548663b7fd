package homeservice_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"pololo/internal/domain"
	apperror "pololo/internal/errors"
	"pololo/internal/pkg/cache"
	"pololo/internal/pkg/logger"
	"pololo/internal/service/homeservice"
)

type MockHomeRepository struct {
	mock.Mock
}

func (m *MockHomeRepository) ListCarousel(ctx context.Context, onlyActive bool) ([]domain.CarouselItem, error) {
	args := m.Called(ctx, onlyActive)
	return args.Get(0).([]domain.CarouselItem), args.Error(1)
}

func (m *MockHomeRepository) CreateCarousel(ctx context.Context, item domain.CarouselItem) (domain.CarouselItem, error) {
	args := m.Called(ctx, item)
	return args.Get(0).(domain.CarouselItem), args.Error(1)
}

func (m *MockHomeRepository) UpdateCarousel(ctx context.Context, id int64, patch domain.CarouselPatch) (domain.CarouselItem, error) {
	args := m.Called(ctx, id, patch)
	return args.Get(0).(domain.CarouselItem), args.Error(1)
}

func (m *MockHomeRepository) ToggleCarousel(ctx context.Context, id int64) (domain.CarouselItem, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.CarouselItem), args.Error(1)
}

func (m *MockHomeRepository) DeleteCarousel(ctx context.Context, id int64) ([]string, error) {
	args := m.Called(ctx, id)
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockHomeRepository) ListFeatured(ctx context.Context, onlyActive bool) ([]domain.FeaturedProduct, error) {
	args := m.Called(ctx, onlyActive)
	return args.Get(0).([]domain.FeaturedProduct), args.Error(1)
}

func (m *MockHomeRepository) ImagesByProducts(ctx context.Context, productIDs []int64) (map[int64][]domain.ProductImage, error) {
	args := m.Called(ctx, productIDs)
	return args.Get(0).(map[int64][]domain.ProductImage), args.Error(1)
}

func (m *MockHomeRepository) CreateFeatured(ctx context.Context, in domain.FeaturedInput) (domain.FeaturedProduct, error) {
	args := m.Called(ctx, in)
	return args.Get(0).(domain.FeaturedProduct), args.Error(1)
}

func (m *MockHomeRepository) UpdateFeatured(ctx context.Context, id int64, patch domain.FeaturedPatch) (domain.FeaturedProduct, error) {
	args := m.Called(ctx, id, patch)
	return args.Get(0).(domain.FeaturedProduct), args.Error(1)
}

func (m *MockHomeRepository) ToggleFeatured(ctx context.Context, id int64) (domain.FeaturedProduct, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.FeaturedProduct), args.Error(1)
}

func (m *MockHomeRepository) DeleteFeatured(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

type MockImageStore struct {
	mock.Mock
}

func (m *MockImageStore) Save(ctx context.Context, img domain.ImageUpload) (string, error) {
	args := m.Called(ctx, img)
	return args.String(0), args.Error(1)
}

func (m *MockImageStore) Delete(ctx context.Context, ref string) error {
	return m.Called(ctx, ref).Error(0)
}

type memCache struct {
	mu   sync.Mutex
	data map[string]string
}

func (c *memCache) Get(ctx context.Context, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	if !ok {
		return "", cache.ErrCacheMiss
	}
	return v, nil
}

func (c *memCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value.(string)
	return nil
}

func (c *memCache) Delete(ctx context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.data, k)
	}
	return nil
}

func (c *memCache) GetInt(ctx context.Context, key string) (int, error) { return 0, cache.ErrCacheMiss }
func (c *memCache) Incr(ctx context.Context, key string) (int64, error) { return 1, nil }

var png = []byte("\x89PNG\r\n\x1a\n0000000000")

func newService(repo *MockHomeRepository, store *MockImageStore, c cache.Client) *homeservice.Service {
	return homeservice.NewService(repo, store, c, time.Minute, logger.Nop(), 1<<20)
}

func TestHome_LoadsAndCaches(t *testing.T) {
	repo := new(MockHomeRepository)
	c := &memCache{data: map[string]string{}}
	svc := newService(repo, new(MockImageStore), c)

	repo.On("ListCarousel", mock.Anything, true).Return([]domain.CarouselItem{{ID: 1, ImageURL: "/uploads/a.png", Active: true}}, nil).Once()
	repo.On("ListFeatured", mock.Anything, true).Return([]domain.FeaturedProduct{
		{ID: 1, ProductID: 10, Active: true, Product: &domain.Product{ID: 10, Name: "Remera"}},
		{ID: 2, ProductID: 11, Active: true, Product: &domain.Product{ID: 11, Name: "Buzo"}},
	}, nil).Once()
	repo.On("ImagesByProducts", mock.Anything, []int64{10, 11}).Return(map[int64][]domain.ProductImage{
		10: {{ID: 3, ProductID: 10, URL: "/uploads/r.png", IsMain: true}},
	}, nil).Once()

	page, err := svc.Home(context.Background())
	require.NoError(t, err)
	require.Len(t, page.FeaturedProducts, 2)
	assert.Len(t, page.FeaturedProducts[0].Images, 1)
	assert.NotNil(t, page.FeaturedProducts[1].Images)
	assert.Empty(t, page.FeaturedProducts[1].Images)

	cached, err := svc.Home(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Remera", cached.FeaturedProducts[0].Product.Name)
	repo.AssertExpectations(t)
}

func TestHome_RepositoryFailure(t *testing.T) {
	repo := new(MockHomeRepository)
	svc := newService(repo, new(MockImageStore), nil)

	repo.On("ListCarousel", mock.Anything, true).Return([]domain.CarouselItem(nil), apperror.NewDBError("falha", errors.New("down")))
	repo.On("ListFeatured", mock.Anything, true).Return([]domain.FeaturedProduct{}, nil)

	_, err := svc.Home(context.Background())

	assert.IsType(t, &apperror.InternalError{}, err)
}

func TestCreateCarousel_StoresImagesAndInvalidates(t *testing.T) {
	repo := new(MockHomeRepository)
	store := new(MockImageStore)
	c := &memCache{data: map[string]string{"home:page": "{}"}}
	svc := newService(repo, store, c)

	desktop := domain.ImageUpload{Filename: "d.png", Data: png}
	mobile := domain.ImageUpload{Filename: "m.png", Data: png}
	store.On("Save", mock.Anything, desktop).Return("/uploads/d.png", nil)
	store.On("Save", mock.Anything, mobile).Return("/uploads/m.png", nil)
	repo.On("CreateCarousel", mock.Anything, domain.CarouselItem{
		ImageURL: "/uploads/d.png", MobileImageURL: "/uploads/m.png", Title: "Verano", Position: 2,
	}).Return(domain.CarouselItem{ID: 1, ImageURL: "/uploads/d.png", MobileImageURL: "/uploads/m.png", Title: "Verano", Position: 2, Active: true}, nil)

	item, err := svc.CreateCarousel(context.Background(), domain.CarouselInput{
		Image: desktop, MobileImage: &mobile, Title: " Verano ", Position: 2,
	})

	require.NoError(t, err)
	assert.True(t, item.Active)
	_, err = c.Get(context.Background(), "home:page")
	assert.ErrorIs(t, err, cache.ErrCacheMiss)
}

func TestCreateCarousel_CompensatesOnInsertFailure(t *testing.T) {
	repo := new(MockHomeRepository)
	store := new(MockImageStore)
	svc := newService(repo, store, nil)

	store.On("Save", mock.Anything, mock.Anything).Return("/uploads/d.png", nil)
	store.On("Delete", mock.Anything, "/uploads/d.png").Return(nil)
	repo.On("CreateCarousel", mock.Anything, mock.Anything).Return(domain.CarouselItem{}, apperror.NewDBError("falha", errors.New("down")))

	_, err := svc.CreateCarousel(context.Background(), domain.CarouselInput{Image: domain.ImageUpload{Filename: "d.png", Data: png}})

	require.Error(t, err)
	store.AssertCalled(t, "Delete", mock.Anything, "/uploads/d.png")
}

func TestCreateCarousel_RequiresImage(t *testing.T) {
	store := new(MockImageStore)
	svc := newService(new(MockHomeRepository), store, nil)

	_, err := svc.CreateCarousel(context.Background(), domain.CarouselInput{Title: "sem imagem"})

	var verr *apperror.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "image", verr.Field)
	store.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestDeleteCarousel_RemovesBlobs(t *testing.T) {
	repo := new(MockHomeRepository)
	store := new(MockImageStore)
	svc := newService(repo, store, nil)

	repo.On("DeleteCarousel", mock.Anything, int64(4)).Return([]string{"/uploads/a.png", "/uploads/a-m.png"}, nil)
	store.On("Delete", mock.Anything, mock.Anything).Return(nil)

	require.NoError(t, svc.DeleteCarousel(context.Background(), 4))
	store.AssertNumberOfCalls(t, "Delete", 2)
}

func TestCreateFeatured_ProductNotFound(t *testing.T) {
	repo := new(MockHomeRepository)
	svc := newService(repo, new(MockImageStore), nil)

	repo.On("CreateFeatured", mock.Anything, domain.FeaturedInput{ProductID: 99}).
		Return(domain.FeaturedProduct{}, apperror.NewNotFoundError("Produto com ID 99 não encontrado."))

	_, err := svc.CreateFeatured(context.Background(), domain.FeaturedInput{ProductID: 99})
	assert.True(t, apperror.IsNotFound(err))

	_, err = svc.CreateFeatured(context.Background(), domain.FeaturedInput{ProductID: 0})
	assert.IsType(t, &apperror.ValidationError{}, err)
}

func TestToggleFeatured(t *testing.T) {
	repo := new(MockHomeRepository)
	svc := newService(repo, new(MockImageStore), nil)

	repo.On("ToggleFeatured", mock.Anything, int64(2)).Return(domain.FeaturedProduct{ID: 2, Active: false}, nil)

	f, err := svc.ToggleFeatured(context.Background(), 2)

	require.NoError(t, err)
	assert.False(t, f.Active)
}
