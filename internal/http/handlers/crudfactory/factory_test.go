package crudfactory

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/account-service/internal/entity"
	"github.com/magabrotheeeer/account-service/internal/models"
	"github.com/magabrotheeeer/account-service/internal/query"
	crudservices "github.com/magabrotheeeer/account-service/internal/services/crud"
)

// MockStore реализует интерфейс crudservices.Store
type MockStore struct {
	mock.Mock
}

func (m *MockStore) Insert(ctx context.Context, desc *entity.Descriptor, rec entity.Record) (entity.Record, error) {
	args := m.Called(ctx, desc, rec)
	if res := args.Get(0); res != nil {
		return res.(entity.Record), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockStore) FindByID(ctx context.Context, desc *entity.Descriptor, id string, f *query.Features) (entity.Record, error) {
	args := m.Called(ctx, desc, id, f)
	if res := args.Get(0); res != nil {
		return res.(entity.Record), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockStore) Find(ctx context.Context, desc *entity.Descriptor, f *query.Features) ([]entity.Record, error) {
	args := m.Called(ctx, desc, f)
	if res := args.Get(0); res != nil {
		return res.([]entity.Record), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockStore) Count(ctx context.Context, desc *entity.Descriptor, f *query.Features) (int, error) {
	args := m.Called(ctx, desc, f)
	return args.Int(0), args.Error(1)
}

func (m *MockStore) UpdateByID(ctx context.Context, desc *entity.Descriptor, id string, rec entity.Record) (entity.Record, error) {
	args := m.Called(ctx, desc, id, rec)
	if res := args.Get(0); res != nil {
		return res.(entity.Record), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockStore) DeleteByID(ctx context.Context, desc *entity.Descriptor, id string) (entity.Record, error) {
	args := m.Called(ctx, desc, id)
	if res := args.Get(0); res != nil {
		return res.(entity.Record), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockCache реализует интерфейс crudservices.Cache
type MockCache struct {
	mock.Mock
}

func (m *MockCache) Get(key string, result any) (bool, error) {
	args := m.Called(key, result)
	return args.Bool(0), args.Error(1)
}

func (m *MockCache) Set(key string, value any, expiration time.Duration) error {
	args := m.Called(key, value, expiration)
	return args.Error(0)
}

func (m *MockCache) Invalidate(key string) error {
	args := m.Called(key)
	return args.Error(0)
}

const productID = "3f2c9b7e-1111-4222-8333-444455556666"

func newFactory(store *MockStore, cache *MockCache, opts Options) *Factory {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	service := crudservices.NewCrudService(models.ProductDescriptor, store, cache, logger)
	return New(service, opts, logger)
}

func withURLParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestCreate_Validation(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		expectedStatus int
		expectedBody   string
	}{
		{
			name:           "отсутствуют обязательные поля",
			body:           `{"description":"no name or price"}`,
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   "field name is a required field",
		},
		{
			name:           "отрицательная цена",
			body:           `{"name":"Widget","price":-5}`,
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   "field price must be greater than 0",
		},
		{
			name:           "некорректный JSON",
			body:           `{"name":`,
			expectedStatus: http.StatusBadRequest,
			expectedBody:   "invalid request body",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			factory := newFactory(new(MockStore), new(MockCache), Options{})

			req := httptest.NewRequest(http.MethodPost, "/products", strings.NewReader(tt.body))
			w := httptest.NewRecorder()
			factory.Create(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.expectedBody)
		})
	}
}

func TestCreate_StripsProtectedFields(t *testing.T) {
	store := new(MockStore)
	store.On("Insert", mock.Anything, models.ProductDescriptor, mock.MatchedBy(func(rec entity.Record) bool {
		_, hasID := rec["id"]
		_, hasSlug := rec["slug"]
		return !hasID && !hasSlug && rec["name"] == "Widget"
	})).Return(entity.Record{"id": productID, "name": "Widget"}, nil)

	factory := newFactory(store, new(MockCache), Options{})

	body := `{"name":"Widget","price":10,"id":"hacker-id","slug":"hacker-slug"}`
	req := httptest.NewRequest(http.MethodPost, "/products", strings.NewReader(body))
	w := httptest.NewRecorder()
	factory.Create(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"success"`)
	store.AssertExpectations(t)
}

func TestCreate_AppliesTransform(t *testing.T) {
	store := new(MockStore)
	store.On("Insert", mock.Anything, models.ProductDescriptor, mock.MatchedBy(func(rec entity.Record) bool {
		return rec["name"] == "WIDGET"
	})).Return(entity.Record{"id": productID, "name": "WIDGET"}, nil)

	factory := newFactory(store, new(MockCache), Options{
		TransformCreate: func(_ context.Context, body entity.Record) error {
			if name, ok := body["name"].(string); ok {
				body["name"] = strings.ToUpper(name)
			}
			return nil
		},
	})

	req := httptest.NewRequest(http.MethodPost, "/products", strings.NewReader(`{"name":"Widget","price":10}`))
	w := httptest.NewRecorder()
	factory.Create(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	store.AssertExpectations(t)
}

func TestGetOne_InvalidID(t *testing.T) {
	factory := newFactory(new(MockStore), new(MockCache), Options{})

	req := httptest.NewRequest(http.MethodGet, "/products/abc", nil)
	req = withURLParam(req, "id", "abc")
	w := httptest.NewRecorder()
	factory.GetOne(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "id must be a valid uuid")
}

func TestGetAll_PaginationEnvelope(t *testing.T) {
	store := new(MockStore)
	store.On("Count", mock.Anything, models.ProductDescriptor, mock.Anything).Return(25, nil)
	store.On("Find", mock.Anything, models.ProductDescriptor, mock.Anything).
		Return([]entity.Record{{"id": "p1"}, {"id": "p2"}}, nil)

	factory := newFactory(store, new(MockCache), Options{})

	req := httptest.NewRequest(http.MethodGet, "/products?page=2&limit=10", nil)
	w := httptest.NewRecorder()
	factory.GetAll(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total_pages":3`)
	assert.Contains(t, w.Body.String(), `"next":3`)
	assert.Contains(t, w.Body.String(), `"prev":1`)
}

func TestUpdate_RequiresUpdatableField(t *testing.T) {
	factory := newFactory(new(MockStore), new(MockCache), Options{})

	req := httptest.NewRequest(http.MethodPatch, "/products/"+productID,
		strings.NewReader(`{"id":"whatever","slug":"nope"}`))
	req = withURLParam(req, "id", productID)
	w := httptest.NewRecorder()
	factory.Update(w, req)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "at least one of the fields")
}

func TestUpdate_Success(t *testing.T) {
	store := new(MockStore)
	cache := new(MockCache)
	store.On("UpdateByID", mock.Anything, models.ProductDescriptor, productID, mock.Anything).
		Return(entity.Record{"id": productID, "name": "Renamed"}, nil)
	cache.On("Invalidate", "product:"+productID).Return(nil)

	factory := newFactory(store, cache, Options{})

	req := httptest.NewRequest(http.MethodPatch, "/products/"+productID,
		strings.NewReader(`{"name":"Renamed"}`))
	req = withURLParam(req, "id", productID)
	w := httptest.NewRecorder()
	factory.Update(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "product updated successfully")
	cache.AssertCalled(t, "Invalidate", "product:"+productID)
}

func TestDelete_Success(t *testing.T) {
	store := new(MockStore)
	cache := new(MockCache)
	store.On("DeleteByID", mock.Anything, models.ProductDescriptor, productID).
		Return(entity.Record{"id": productID}, nil)
	cache.On("Invalidate", "product:"+productID).Return(nil)

	factory := newFactory(store, cache, Options{})

	req := httptest.NewRequest(http.MethodDelete, "/products/"+productID, nil)
	req = withURLParam(req, "id", productID)
	w := httptest.NewRecorder()
	factory.Delete(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "product deleted successfully")
}
