// Package harvest содержит бизнес-логику заявок на сбор урожая.
package harvest

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/magabrotheeeer/harvest-tracker/internal/lib/apperr"
	"github.com/magabrotheeeer/harvest-tracker/internal/lib/day"
	"github.com/magabrotheeeer/harvest-tracker/internal/models"
	"github.com/magabrotheeeer/harvest-tracker/internal/services/lifecycle"
)

// Repository определяет методы для работы с заявками в хранилище.
type Repository interface {
	// CreateHarvest сохраняет заявку и возвращает её с присвоенным ID.
	CreateHarvest(ctx context.Context, req models.HarvestRequest) (*models.HarvestRequest, error)
	// GetHarvest возвращает неудалённую заявку.
	GetHarvest(ctx context.Context, id int64) (*models.HarvestRequest, error)
	// ListHarvest возвращает страницу заявок и общее количество.
	ListHarvest(ctx context.Context, f models.ListFilter) ([]models.HarvestRequest, int, error)
	// UpdateHarvest сохраняет поля заявки.
	UpdateHarvest(ctx context.Context, req models.HarvestRequest) (*models.HarvestRequest, error)
	// SetHarvestStatus переводит заявку из статуса from в to.
	SetHarvestStatus(ctx context.Context, id int64, from, to models.Status) error
	// FindDuplicateHarvest ищет другую неудалённую заявку на тот же овощ и дату.
	FindDuplicateHarvest(ctx context.Context, userID int64, item string, date day.Date, excludeID int64) (bool, error)
}

// Catalog проверяет овощ по активному справочнику.
type Catalog interface {
	ResolveActive(ctx context.Context, name string) (*models.Vegetable, error)
}

// Recorder учитывает созданные заявки.
type Recorder interface {
	RequestSubmitted(kind string)
}

// Service реализует жизненный цикл заявок на сбор урожая.
type Service struct {
	repo    Repository
	catalog Catalog
	metrics Recorder
	now     day.Clock
	log     *slog.Logger
}

// NewHarvestService создает новый экземпляр Service. clock может быть nil.
func NewHarvestService(repo Repository, catalog Catalog, metrics Recorder, clock day.Clock, log *slog.Logger) *Service {
	return &Service{
		repo:    repo,
		catalog: catalog,
		metrics: metrics,
		now:     clock,
		log:     log,
	}
}

// Submit создаёт заявку вызывающего в статусе pending.
func (s *Service) Submit(ctx context.Context, caller models.Caller, req models.HarvestSubmit) (*models.HarvestRequest, error) {
	const op = "services.harvest.Submit"

	date, err := lifecycle.ParseDate("delivery_date", req.DeliveryDate)
	if err != nil {
		return nil, err
	}
	if err = lifecycle.CheckDeliveryDate(date, day.Today(s.now)); err != nil {
		return nil, err
	}
	qty, err := lifecycle.ParseQuantity(req.Quantity, lifecycle.MaxHarvestQuantity)
	if err != nil {
		return nil, err
	}
	veg, err := s.catalog.ResolveActive(ctx, req.VegetableItem)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	dup, err := s.repo.FindDuplicateHarvest(ctx, caller.UserID, veg.ItemName, date, 0)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if dup {
		return nil, fmt.Errorf("%s: %w", op, apperr.ErrDuplicateRequest)
	}

	created, err := s.repo.CreateHarvest(ctx, models.HarvestRequest{
		UserID:        caller.UserID,
		VegetableItem: veg.ItemName,
		DeliveryDate:  date,
		Quantity:      qty,
		Status:        models.StatusPending,
		Notes:         trimmed(req.Notes),
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.metrics.RequestSubmitted(string(models.KindHarvest))
	s.log.Info("harvest request submitted",
		slog.Int64("id", created.ID),
		slog.Int64("user_id", caller.UserID),
		slog.String("vegetable_item", created.VegetableItem),
		slog.String("delivery_date", created.DeliveryDate.String()),
	)
	return created, nil
}

// List возвращает страницу заявок. Обычный пользователь видит только свои.
func (s *Service) List(ctx context.Context, caller models.Caller, f models.ListFilter) (*models.Page[models.HarvestRequest], error) {
	const op = "services.harvest.List"

	f, err := lifecycle.ScopeFilter(caller, f)
	if err != nil {
		return nil, err
	}
	items, total, err := s.repo.ListHarvest(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &models.Page[models.HarvestRequest]{Items: items, Total: total, Limit: f.Limit, Offset: f.Offset}, nil
}

// Update изменяет заявку. Поля status и notes учитываются только для администратора.
func (s *Service) Update(ctx context.Context, caller models.Caller, id int64, patch models.HarvestPatch) (*models.HarvestRequest, error) {
	const op = "services.harvest.Update"

	cur, err := s.repo.GetHarvest(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = lifecycle.CheckMutable(caller, cur.UserID, cur.Status); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	upd := *cur
	keyChanged := false
	if patch.VegetableItem != nil {
		veg, err := s.catalog.ResolveActive(ctx, *patch.VegetableItem)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		keyChanged = keyChanged || !strings.EqualFold(veg.ItemName, cur.VegetableItem)
		upd.VegetableItem = veg.ItemName
	}
	if patch.DeliveryDate != nil {
		date, err := lifecycle.ParseDate("delivery_date", *patch.DeliveryDate)
		if err != nil {
			return nil, err
		}
		if err = lifecycle.CheckDeliveryDate(date, day.Today(s.now)); err != nil {
			return nil, err
		}
		keyChanged = keyChanged || !date.Equal(cur.DeliveryDate)
		upd.DeliveryDate = date
	}
	if patch.Quantity != nil {
		qty, err := lifecycle.ParseQuantity(*patch.Quantity, lifecycle.MaxHarvestQuantity)
		if err != nil {
			return nil, err
		}
		upd.Quantity = qty
	}

	var target *models.Status
	if caller.IsAdmin() {
		if patch.Notes != nil {
			upd.Notes = trimmed(patch.Notes)
		}
		if patch.Status != nil && *patch.Status != cur.Status {
			if err = lifecycle.CheckTransition(cur.Status, *patch.Status); err != nil {
				return nil, fmt.Errorf("%s: %w", op, err)
			}
			target = patch.Status
		}
	}

	if keyChanged {
		dup, err := s.repo.FindDuplicateHarvest(ctx, cur.UserID, upd.VegetableItem, upd.DeliveryDate, cur.ID)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if dup {
			return nil, fmt.Errorf("%s: %w", op, apperr.ErrDuplicateRequest)
		}
	}

	updated, err := s.repo.UpdateHarvest(ctx, upd)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if target != nil {
		if err = s.repo.SetHarvestStatus(ctx, id, cur.Status, *target); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		updated.Status = *target
	}

	s.log.Info("harvest request updated", slog.Int64("id", id), slog.Int64("by", caller.UserID))
	return updated, nil
}

// SoftDelete переводит заявку в deleted. Владелец может удалить только pending.
func (s *Service) SoftDelete(ctx context.Context, caller models.Caller, id int64) error {
	const op = "services.harvest.SoftDelete"

	cur, err := s.repo.GetHarvest(ctx, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err = lifecycle.CheckMutable(caller, cur.UserID, cur.Status); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err = s.repo.SetHarvestStatus(ctx, id, cur.Status, models.StatusDeleted); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("harvest request deleted", slog.Int64("id", id), slog.Int64("by", caller.UserID))
	return nil
}

// SetStatus меняет статус заявки по таблице переходов. Только для администратора.
func (s *Service) SetStatus(ctx context.Context, caller models.Caller, id int64, to models.Status) (*models.HarvestRequest, error) {
	const op = "services.harvest.SetStatus"

	if !caller.IsAdmin() {
		return nil, apperr.ErrInsufficientRole
	}
	cur, err := s.repo.GetHarvest(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = lifecycle.CheckTransition(cur.Status, to); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = s.repo.SetHarvestStatus(ctx, id, cur.Status, to); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	cur.Status = to

	s.log.Info("harvest status changed", slog.Int64("id", id), slog.String("status", string(to)))
	return cur, nil
}

func trimmed(p *string) *string {
	if p == nil {
		return nil
	}
	v := strings.TrimSpace(*p)
	if v == "" {
		return nil
	}
	return &v
}
