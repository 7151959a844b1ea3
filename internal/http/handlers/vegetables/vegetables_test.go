package vegetables

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/harvest-tracker/internal/lib/apperr"
	"github.com/magabrotheeeer/harvest-tracker/internal/models"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) ListActive(ctx context.Context) ([]models.Vegetable, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Vegetable), args.Error(1)
}

func (m *MockService) List(ctx context.Context, includeInactive bool) ([]models.Vegetable, error) {
	args := m.Called(ctx, includeInactive)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Vegetable), args.Error(1)
}

func (m *MockService) Create(ctx context.Context, req models.VegetableRequest) (*models.Vegetable, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Vegetable), args.Error(1)
}

func (m *MockService) Rename(ctx context.Context, id int64, req models.VegetableRequest) (*models.Vegetable, error) {
	args := m.Called(ctx, id, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Vegetable), args.Error(1)
}

func (m *MockService) Delete(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func newRouter(svc Service) http.Handler {
	h := New(slog.New(slog.NewTextHandler(io.Discard, nil)), svc)
	r := chi.NewRouter()
	r.Get("/vegetables", h.ListActive)
	r.Get("/admin/vegetables", h.List)
	r.Post("/admin/vegetables", h.Create)
	r.Put("/admin/vegetables/{id}", h.Rename)
	r.Delete("/admin/vegetables/{id}", h.Delete)
	return r
}

func TestHandler(t *testing.T) {
	tests := []struct {
		name           string
		method         string
		url            string
		body           string
		setupMocks     func(m *MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:   "active list",
			method: http.MethodGet,
			url:    "/vegetables",
			setupMocks: func(m *MockService) {
				m.On("ListActive", mock.Anything).Return([]models.Vegetable{{ID: 1, ItemName: "トマト", Active: true}}, nil).Once()
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"item_name":"トマト"`,
		},
		{
			name:   "admin list with inactive",
			method: http.MethodGet,
			url:    "/admin/vegetables?include_inactive=true",
			setupMocks: func(m *MockService) {
				m.On("List", mock.Anything, true).Return([]models.Vegetable{}, nil).Once()
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "bad flag",
			method:         http.MethodGet,
			url:            "/admin/vegetables?include_inactive=maybe",
			setupMocks:     func(*MockService) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:   "create duplicate",
			method: http.MethodPost,
			url:    "/admin/vegetables",
			body:   `{"item_name":"とまと"}`,
			setupMocks: func(m *MockService) {
				m.On("Create", mock.Anything, models.VegetableRequest{ItemName: "とまと"}).Return(nil, apperr.ErrDuplicateVegetable).Once()
			},
			expectedStatus: http.StatusConflict,
			expectedBody:   `"code":"DUPLICATE_VEGETABLE"`,
		},
		{
			name:   "create",
			method: http.MethodPost,
			url:    "/admin/vegetables",
			body:   `{"item_name":"なす"}`,
			setupMocks: func(m *MockService) {
				m.On("Create", mock.Anything, models.VegetableRequest{ItemName: "なす"}).Return(&models.Vegetable{ID: 3, ItemName: "なす"}, nil).Once()
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name:   "rename missing",
			method: http.MethodPut,
			url:    "/admin/vegetables/404",
			body:   `{"item_name":"なす"}`,
			setupMocks: func(m *MockService) {
				m.On("Rename", mock.Anything, int64(404), mock.Anything).Return(nil, apperr.ErrVegetableNotFound).Once()
			},
			expectedStatus: http.StatusNotFound,
		},
		{
			name:   "delete in use",
			method: http.MethodDelete,
			url:    "/admin/vegetables/2",
			setupMocks: func(m *MockService) {
				m.On("Delete", mock.Anything, int64(2)).Return(apperr.ErrVegetableInUse).Once()
			},
			expectedStatus: http.StatusConflict,
			expectedBody:   `"code":"VEGETABLE_IN_USE"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			tt.setupMocks(svc)

			rec := httptest.NewRecorder()
			newRouter(svc).ServeHTTP(rec, httptest.NewRequest(tt.method, tt.url, strings.NewReader(tt.body)))

			assert.Equal(t, tt.expectedStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.expectedBody)
			svc.AssertExpectations(t)
		})
	}
}
