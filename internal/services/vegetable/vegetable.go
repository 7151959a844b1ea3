// Package vegetable содержит бизнес-логику справочника овощей и кеширование
// списка активных позиций.
package vegetable

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/magabrotheeeer/harvest-tracker/internal/cache"
	"github.com/magabrotheeeer/harvest-tracker/internal/lib/apperr"
	"github.com/magabrotheeeer/harvest-tracker/internal/lib/sl"
	"github.com/magabrotheeeer/harvest-tracker/internal/models"
)

const cacheTTL = 10 * time.Minute

// Repository определяет методы для работы со справочником в хранилище.
type Repository interface {
	// ListVegetables возвращает позиции справочника, при activeOnly только активные.
	ListVegetables(ctx context.Context, activeOnly bool) ([]models.Vegetable, error)
	// GetVegetable возвращает активную позицию по ID.
	GetVegetable(ctx context.Context, id int64) (*models.Vegetable, error)
	// CreateVegetable добавляет позицию.
	CreateVegetable(ctx context.Context, name string) (*models.Vegetable, error)
	// UpdateVegetable переименовывает позицию.
	UpdateVegetable(ctx context.Context, id int64, name string) (*models.Vegetable, error)
	// DeactivateVegetable мягко удаляет позицию.
	DeactivateVegetable(ctx context.Context, id int64) error
	// CountHarvestForVegetable считает неудалённые заявки с этим овощем.
	CountHarvestForVegetable(ctx context.Context, name string) (int, error)
}

// Cache описывает методы для кэширования данных.
type Cache interface {
	// Get пытается получить значение из кеша по ключу.
	Get(ctx context.Context, key string, result any) (bool, error)
	// Set сохраняет значение в кеш с временем жизни.
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	// Invalidate удаляет значение из кеша по ключу.
	Invalidate(ctx context.Context, key string) error
}

// Service реализует справочник овощей с кешированием активного списка.
type Service struct {
	repo  Repository
	cache Cache
	log   *slog.Logger
}

// NewVegetableService создает новый экземпляр Service.
func NewVegetableService(repo Repository, cache Cache, log *slog.Logger) *Service {
	return &Service{
		repo:  repo,
		cache: cache,
		log:   log,
	}
}

// ListActive возвращает активные позиции, используя кеш или репозиторий.
func (s *Service) ListActive(ctx context.Context) ([]models.Vegetable, error) {
	const op = "services.vegetable.ListActive"

	var cached []models.Vegetable
	found, err := s.cache.Get(ctx, cache.KeyActiveVegetables, &cached)
	if err != nil {
		s.log.Warn("failed to read vegetables from cache", sl.Err(err))
	}
	if found {
		return cached, nil
	}

	items, err := s.repo.ListVegetables(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = s.cache.Set(ctx, cache.KeyActiveVegetables, items, cacheTTL); err != nil {
		s.log.Warn("failed to cache vegetables", sl.Err(err))
	}
	return items, nil
}

// List возвращает справочник. Неактивные позиции включаются по запросу администратора.
func (s *Service) List(ctx context.Context, includeInactive bool) ([]models.Vegetable, error) {
	if !includeInactive {
		return s.ListActive(ctx)
	}
	items, err := s.repo.ListVegetables(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("services.vegetable.List: %w", err)
	}
	return items, nil
}

// ResolveActive находит активную позицию по имени без учёта регистра.
func (s *Service) ResolveActive(ctx context.Context, name string) (*models.Vegetable, error) {
	const op = "services.vegetable.ResolveActive"

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.Validation("vegetable_item is required")
	}
	items, err := s.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	for i := range items {
		if strings.EqualFold(items[i].ItemName, name) {
			return &items[i], nil
		}
	}
	return nil, apperr.ErrUnknownVegetable
}

// Create добавляет позицию и сбрасывает кеш.
func (s *Service) Create(ctx context.Context, req models.VegetableRequest) (*models.Vegetable, error) {
	const op = "services.vegetable.Create"

	name, err := normalizeName(req.ItemName)
	if err != nil {
		return nil, err
	}
	v, err := s.repo.CreateVegetable(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.invalidate(ctx)
	s.log.Info("vegetable created", slog.Int64("id", v.ID), slog.String("item_name", v.ItemName))
	return v, nil
}

// Rename переименовывает позицию и сбрасывает кеш.
func (s *Service) Rename(ctx context.Context, id int64, req models.VegetableRequest) (*models.Vegetable, error) {
	const op = "services.vegetable.Rename"

	name, err := normalizeName(req.ItemName)
	if err != nil {
		return nil, err
	}
	v, err := s.repo.UpdateVegetable(ctx, id, name)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.invalidate(ctx)
	return v, nil
}

// Delete мягко удаляет позицию, если на неё не ссылаются неудалённые заявки.
func (s *Service) Delete(ctx context.Context, id int64) error {
	const op = "services.vegetable.Delete"

	v, err := s.repo.GetVegetable(ctx, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	used, err := s.repo.CountHarvestForVegetable(ctx, v.ItemName)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if used > 0 {
		return fmt.Errorf("%s: %d requests: %w", op, used, apperr.ErrVegetableInUse)
	}
	if err = s.repo.DeactivateVegetable(ctx, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.invalidate(ctx)
	s.log.Info("vegetable deactivated", slog.Int64("id", id))
	return nil
}

func (s *Service) invalidate(ctx context.Context) {
	if err := s.cache.Invalidate(ctx, cache.KeyActiveVegetables); err != nil {
		s.log.Warn("failed to invalidate vegetables cache", sl.Err(err))
	}
}

func normalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", apperr.Validation("item_name is required")
	}
	if len([]rune(name)) > 50 {
		return "", apperr.Validation("item_name must be 50 characters or less")
	}
	return name, nil
}
