package services_test

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/account-service/internal/apperror"
	"github.com/magabrotheeeer/account-service/internal/entity"
	"github.com/magabrotheeeer/account-service/internal/models"
	"github.com/magabrotheeeer/account-service/internal/query"
	services "github.com/magabrotheeeer/account-service/internal/services/crud"
)

// MockStore реализует интерфейс services.Store
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

// MockCache реализует интерфейс services.Cache
type MockCache struct {
	mock.Mock
}

func (m *MockCache) Get(key string, result any) (bool, error) {
	args := m.Called(key, result)
	if args.Bool(0) {
		if target, ok := result.(*entity.Record); ok {
			*target = entity.Record{"id": "cached"}
		}
	}
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

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func TestGetOne_CacheHit(t *testing.T) {
	store := new(MockStore)
	cache := new(MockCache)
	cache.On("Get", "product:p1", mock.Anything).Return(true, nil)

	svc := services.NewCrudService(models.ProductDescriptor, store, cache, newTestLogger())
	rec, err := svc.GetOne(context.Background(), "p1", query.Parse(map[string]string{}))

	assert.NoError(t, err)
	assert.Equal(t, "cached", rec["id"])
	store.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestGetOne_CacheMissThenSet(t *testing.T) {
	store := new(MockStore)
	cache := new(MockCache)
	cache.On("Get", "product:p1", mock.Anything).Return(false, nil)
	store.On("FindByID", mock.Anything, models.ProductDescriptor, "p1", mock.Anything).
		Return(entity.Record{"id": "p1", "name": "Widget"}, nil)
	cache.On("Set", "product:p1", mock.Anything, mock.Anything).Return(nil)

	svc := services.NewCrudService(models.ProductDescriptor, store, cache, newTestLogger())
	rec, err := svc.GetOne(context.Background(), "p1", query.Parse(map[string]string{}))

	assert.NoError(t, err)
	assert.Equal(t, "Widget", rec["name"])
	cache.AssertCalled(t, "Set", "product:p1", mock.Anything, mock.Anything)
}

func TestGetOne_ProjectionBypassesCache(t *testing.T) {
	store := new(MockStore)
	cache := new(MockCache)
	store.On("FindByID", mock.Anything, models.ProductDescriptor, "p1", mock.Anything).
		Return(entity.Record{"id": "p1"}, nil)

	svc := services.NewCrudService(models.ProductDescriptor, store, cache, newTestLogger())
	_, err := svc.GetOne(context.Background(), "p1", query.Parse(map[string]string{"fields": "name,price"}))

	assert.NoError(t, err)
	cache.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
	cache.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything)
}

func TestGetOne_NotFound(t *testing.T) {
	store := new(MockStore)
	cache := new(MockCache)
	cache.On("Get", mock.Anything, mock.Anything).Return(false, nil)
	store.On("FindByID", mock.Anything, models.ProductDescriptor, "missing", mock.Anything).
		Return(nil, sql.ErrNoRows)

	svc := services.NewCrudService(models.ProductDescriptor, store, cache, newTestLogger())
	_, err := svc.GetOne(context.Background(), "missing", query.Parse(map[string]string{}))

	assert.Error(t, err)
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))
}

func TestGetAll_ReturnsMeta(t *testing.T) {
	store := new(MockStore)
	cache := new(MockCache)
	f := query.Parse(map[string]string{"page": "2", "limit": "10"})
	store.On("Count", mock.Anything, models.ProductDescriptor, f).Return(25, nil)
	store.On("Find", mock.Anything, models.ProductDescriptor, f).
		Return([]entity.Record{{"id": "p1"}, {"id": "p2"}}, nil)

	svc := services.NewCrudService(models.ProductDescriptor, store, cache, newTestLogger())
	records, meta, err := svc.GetAll(context.Background(), f)

	assert.NoError(t, err)
	assert.Len(t, records, 2)
	assert.Equal(t, 3, meta.TotalPages)
	assert.Equal(t, 25, meta.TotalCount)
	assert.Equal(t, 3, *meta.Next)
	assert.Equal(t, 1, *meta.Prev)
}

func TestUpdate_InvalidatesCache(t *testing.T) {
	store := new(MockStore)
	cache := new(MockCache)
	store.On("UpdateByID", mock.Anything, models.ProductDescriptor, "p1", mock.Anything).
		Return(entity.Record{"id": "p1", "name": "Renamed"}, nil)
	cache.On("Invalidate", "product:p1").Return(nil)

	svc := services.NewCrudService(models.ProductDescriptor, store, cache, newTestLogger())
	rec, err := svc.Update(context.Background(), "p1", entity.Record{"name": "Renamed"}, nil)

	assert.NoError(t, err)
	assert.Equal(t, "Renamed", rec["name"])
	cache.AssertCalled(t, "Invalidate", "product:p1")
}

func TestDelete_NotFound(t *testing.T) {
	store := new(MockStore)
	cache := new(MockCache)
	store.On("DeleteByID", mock.Anything, models.ProductDescriptor, "missing").
		Return(nil, sql.ErrNoRows)

	svc := services.NewCrudService(models.ProductDescriptor, store, cache, newTestLogger())
	_, err := svc.Delete(context.Background(), "missing")

	assert.Error(t, err)
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))
}
