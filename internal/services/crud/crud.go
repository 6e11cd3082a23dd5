// Package services содержит обобщенный CRUD-сервис, работающий поверх
// дескриптора сущности. Один и тот же сервис обслуживает любую коллекцию:
// пользователей, товары и все, что описано дескриптором.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/account-service/internal/apperror"
	"github.com/magabrotheeeer/account-service/internal/entity"
	"github.com/magabrotheeeer/account-service/internal/lib/fieldfilter"
	"github.com/magabrotheeeer/account-service/internal/query"
)

// cacheTTL время жизни кэшированной записи.
const cacheTTL = 5 * time.Minute

// Store описывает контракт хранилища записей.
type Store interface {
	Insert(ctx context.Context, desc *entity.Descriptor, rec entity.Record) (entity.Record, error)
	FindByID(ctx context.Context, desc *entity.Descriptor, id string, f *query.Features) (entity.Record, error)
	Find(ctx context.Context, desc *entity.Descriptor, f *query.Features) ([]entity.Record, error)
	Count(ctx context.Context, desc *entity.Descriptor, f *query.Features) (int, error)
	UpdateByID(ctx context.Context, desc *entity.Descriptor, id string, rec entity.Record) (entity.Record, error)
	DeleteByID(ctx context.Context, desc *entity.Descriptor, id string) (entity.Record, error)
}

// Cache описывает интерфейс кэша записей.
type Cache interface {
	Get(key string, result any) (bool, error)
	Set(key string, value any, expiration time.Duration) error
	Invalidate(key string) error
}

// CrudService обобщенные операции над одной коллекцией.
type CrudService struct {
	desc  *entity.Descriptor
	store Store
	cache Cache
	log   *slog.Logger
}

// NewCrudService создает сервис для коллекции, описанной дескриптором.
func NewCrudService(desc *entity.Descriptor, store Store, cache Cache, log *slog.Logger) *CrudService {
	return &CrudService{
		desc:  desc,
		store: store,
		cache: cache,
		log:   log,
	}
}

// Descriptor возвращает дескриптор обслуживаемой коллекции.
func (s *CrudService) Descriptor() *entity.Descriptor {
	return s.desc
}

// Create сохраняет новую запись, предварительно убрав запрещенные к
// установке поля.
func (s *CrudService) Create(ctx context.Context, rec entity.Record, excluded []string) (entity.Record, error) {
	created, err := s.store.Insert(ctx, s.desc, fieldfilter.Filter(rec, excluded))
	if err != nil {
		return nil, err
	}
	s.log.Info("record created",
		slog.String("entity", s.desc.Name),
		slog.Any("id", created[s.desc.IDColumn]))
	return created, nil
}

// GetOne возвращает одну запись по идентификатору. Запросы без параметров
// проекции обслуживаются через кэш.
func (s *CrudService) GetOne(ctx context.Context, id string, f *query.Features) (entity.Record, error) {
	plain := f == nil || len(f.Fields) == 0

	key := s.cacheKey(id)
	if plain {
		var cached entity.Record
		found, err := s.cache.Get(key, &cached)
		if err != nil {
			s.log.Error("failed to read cache", slog.String("key", key))
		}
		if found {
			return cached, nil
		}
	}

	rec, err := s.store.FindByID(ctx, s.desc, id, f)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.New(apperror.KindNotFound, fmt.Sprintf("%s not found", s.desc.Name))
		}
		return nil, err
	}

	if plain {
		if err := s.cache.Set(key, rec, cacheTTL); err != nil {
			s.log.Error("failed to write cache", slog.String("key", key))
		}
	}
	return rec, nil
}

// GetAll возвращает страницу записей вместе с метаданными пагинации.
func (s *CrudService) GetAll(ctx context.Context, f *query.Features) ([]entity.Record, *query.Meta, error) {
	total, err := s.store.Count(ctx, s.desc, f)
	if err != nil {
		return nil, nil, err
	}
	records, err := s.store.Find(ctx, s.desc, f)
	if err != nil {
		return nil, nil, err
	}
	meta := f.Pagination(total)
	return records, &meta, nil
}

// Update меняет существующую запись. Запрещенные к изменению поля
// отбрасываются до обращения к хранилищу.
func (s *CrudService) Update(ctx context.Context, id string, rec entity.Record, excluded []string) (entity.Record, error) {
	updated, err := s.store.UpdateByID(ctx, s.desc, id, fieldfilter.Filter(rec, excluded))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.New(apperror.KindNotFound, fmt.Sprintf("%s not found", s.desc.Name))
		}
		return nil, err
	}
	if err := s.cache.Invalidate(s.cacheKey(id)); err != nil {
		s.log.Error("failed to invalidate cache", slog.String("id", id))
	}
	return updated, nil
}

// Delete удаляет запись и возвращает ее последнее состояние.
func (s *CrudService) Delete(ctx context.Context, id string) (entity.Record, error) {
	deleted, err := s.store.DeleteByID(ctx, s.desc, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.New(apperror.KindNotFound, fmt.Sprintf("%s not found", s.desc.Name))
		}
		return nil, err
	}
	if err := s.cache.Invalidate(s.cacheKey(id)); err != nil {
		s.log.Error("failed to invalidate cache", slog.String("id", id))
	}
	return deleted, nil
}

func (s *CrudService) cacheKey(id string) string {
	return fmt.Sprintf("%s:%s", s.desc.Name, id)
}
