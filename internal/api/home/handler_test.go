package home_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"pololo/internal/api/home"
	"pololo/internal/domain"
	apperror "pololo/internal/errors"
	"pololo/internal/pkg/logger"
)

type MockHomeService struct {
	mock.Mock
}

func (m *MockHomeService) Home(ctx context.Context) (domain.HomePage, error) {
	args := m.Called(ctx)
	return args.Get(0).(domain.HomePage), args.Error(1)
}

func (m *MockHomeService) ListCarousel(ctx context.Context) ([]domain.CarouselItem, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.CarouselItem), args.Error(1)
}

func (m *MockHomeService) CreateCarousel(ctx context.Context, in domain.CarouselInput) (domain.CarouselItem, error) {
	args := m.Called(ctx, in)
	return args.Get(0).(domain.CarouselItem), args.Error(1)
}

func (m *MockHomeService) UpdateCarousel(ctx context.Context, id int64, patch domain.CarouselPatch) (domain.CarouselItem, error) {
	args := m.Called(ctx, id, patch)
	return args.Get(0).(domain.CarouselItem), args.Error(1)
}

func (m *MockHomeService) ToggleCarousel(ctx context.Context, id int64) (domain.CarouselItem, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.CarouselItem), args.Error(1)
}

func (m *MockHomeService) DeleteCarousel(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockHomeService) ListFeatured(ctx context.Context) ([]domain.FeaturedProduct, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.FeaturedProduct), args.Error(1)
}

func (m *MockHomeService) CreateFeatured(ctx context.Context, in domain.FeaturedInput) (domain.FeaturedProduct, error) {
	args := m.Called(ctx, in)
	return args.Get(0).(domain.FeaturedProduct), args.Error(1)
}

func (m *MockHomeService) UpdateFeatured(ctx context.Context, id int64, patch domain.FeaturedPatch) (domain.FeaturedProduct, error) {
	args := m.Called(ctx, id, patch)
	return args.Get(0).(domain.FeaturedProduct), args.Error(1)
}

func (m *MockHomeService) ToggleFeatured(ctx context.Context, id int64) (domain.FeaturedProduct, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.FeaturedProduct), args.Error(1)
}

func (m *MockHomeService) DeleteFeatured(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func newRouter(svc *MockHomeService) http.Handler {
	h := home.NewHandler(svc, logger.Nop(), 1<<20)
	r := chi.NewRouter()
	r.Get("/api/home", h.GetHomeHandler)
	r.Post("/api/admin/home/carousel", h.CreateCarouselHandler)
	r.Put("/api/admin/home/carousel/{id}", h.UpdateCarouselHandler)
	r.Patch("/api/admin/home/carousel/{id}/toggle", h.ToggleCarouselHandler)
	r.Delete("/api/admin/home/carousel/{id}", h.DeleteCarouselHandler)
	r.Post("/api/admin/home/products", h.CreateFeaturedHandler)
	r.Delete("/api/admin/home/products/{id}", h.DeleteFeaturedHandler)
	return r
}

func TestGetHomeHandler(t *testing.T) {
	svc := new(MockHomeService)
	svc.On("Home", mock.Anything).Return(domain.HomePage{
		Carousel:         []domain.CarouselItem{{ID: 1, ImageURL: "/uploads/a.png", Active: true}},
		FeaturedProducts: []domain.FeaturedProduct{},
	}, nil)

	rec := httptest.NewRecorder()
	newRouter(svc).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/home", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var page domain.HomePage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Len(t, page.Carousel, 1)
	assert.NotNil(t, page.FeaturedProducts)
}

func TestCreateCarouselHandler_Multipart(t *testing.T) {
	svc := new(MockHomeService)
	svc.On("CreateCarousel", mock.Anything, mock.MatchedBy(func(in domain.CarouselInput) bool {
		return in.Title == "Verão" && in.Position == 2 &&
			in.Image.Filename == "desk.png" &&
			in.MobileImage != nil && in.MobileImage.Filename == "mob.png"
	})).Return(domain.CarouselItem{ID: 7}, nil)

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	require.NoError(t, w.WriteField("title", "Verão"))
	require.NoError(t, w.WriteField("position", "2"))
	for field, name := range map[string]string{"image": "desk.png", "image_mobile": "mob.png"} {
		hdr := make(textproto.MIMEHeader)
		hdr.Set("Content-Disposition", `form-data; name="`+field+`"; filename="`+name+`"`)
		hdr.Set("Content-Type", "image/png")
		part, err := w.CreatePart(hdr)
		require.NoError(t, err)
		_, err = part.Write([]byte("\x89PNG\r\n\x1a\n0000"))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/admin/home/carousel", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	rec := httptest.NewRecorder()
	newRouter(svc).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	svc.AssertExpectations(t)
}

func TestCreateCarouselHandler_InvalidPosition(t *testing.T) {
	svc := new(MockHomeService)

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	require.NoError(t, w.WriteField("position", "primeiro"))
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/admin/home/carousel", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	rec := httptest.NewRecorder()
	newRouter(svc).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	svc.AssertNotCalled(t, "CreateCarousel", mock.Anything, mock.Anything)
}

func TestUpdateCarouselHandler_NegativePosition(t *testing.T) {
	svc := new(MockHomeService)

	req := httptest.NewRequest(http.MethodPut, "/api/admin/home/carousel/3", strings.NewReader(`{"position":-1}`))
	rec := httptest.NewRecorder()
	newRouter(svc).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	svc.AssertNotCalled(t, "UpdateCarousel", mock.Anything, mock.Anything, mock.Anything)
}

func TestToggleCarouselHandler_NotFound(t *testing.T) {
	svc := new(MockHomeService)
	svc.On("ToggleCarousel", mock.Anything, int64(9)).
		Return(domain.CarouselItem{}, apperror.NewNotFoundError("Slide não encontrado."))

	rec := httptest.NewRecorder()
	newRouter(svc).ServeHTTP(rec, httptest.NewRequest(http.MethodPatch, "/api/admin/home/carousel/9/toggle", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateFeaturedHandler_RequiresProductID(t *testing.T) {
	svc := new(MockHomeService)

	req := httptest.NewRequest(http.MethodPost, "/api/admin/home/products", strings.NewReader(`{"position":1}`))
	rec := httptest.NewRecorder()
	newRouter(svc).ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var resp domain.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp.Message, "product_id")
}

func TestCreateFeaturedHandler_Created(t *testing.T) {
	svc := new(MockHomeService)
	svc.On("CreateFeatured", mock.Anything, domain.FeaturedInput{ProductID: 4, Position: 1}).
		Return(domain.FeaturedProduct{ID: 1, ProductID: 4, Position: 1, Active: true}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/admin/home/products", strings.NewReader(`{"product_id":4,"position":1}`))
	rec := httptest.NewRecorder()
	newRouter(svc).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	svc.AssertExpectations(t)
}

func TestDeleteHandlers_NoContent(t *testing.T) {
	svc := new(MockHomeService)
	svc.On("DeleteCarousel", mock.Anything, int64(2)).Return(nil)
	svc.On("DeleteFeatured", mock.Anything, int64(5)).Return(nil)

	for _, target := range []string{"/api/admin/home/carousel/2", "/api/admin/home/products/5"} {
		rec := httptest.NewRecorder()
		newRouter(svc).ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, target, nil))
		assert.Equal(t, http.StatusNoContent, rec.Code, target)
	}
	svc.AssertExpectations(t)
}
