// Package rental содержит бизнес-логику заявок на аренду контейнеров (オリコン).
package rental

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

// Repository определяет методы для работы с заявками на аренду в хранилище.
type Repository interface {
	// CreateRental сохраняет заявку и возвращает её с присвоенным ID.
	CreateRental(ctx context.Context, req models.RentalRequest) (*models.RentalRequest, error)
	// GetRental возвращает неудалённую заявку.
	GetRental(ctx context.Context, id int64) (*models.RentalRequest, error)
	// ListRentals возвращает страницу заявок и общее количество.
	ListRentals(ctx context.Context, f models.ListFilter) ([]models.RentalRequest, int, error)
	// UpdateRental сохраняет поля заявки.
	UpdateRental(ctx context.Context, req models.RentalRequest) (*models.RentalRequest, error)
	// SetRentalStatus переводит заявку из статуса from в to.
	SetRentalStatus(ctx context.Context, id int64, from, to models.Status) error
	// FindDuplicateRental ищет другую неудалённую заявку пользователя на ту же дату выдачи.
	FindDuplicateRental(ctx context.Context, userID int64, pickup day.Date, excludeID int64) (bool, error)
}

// Recorder учитывает созданные заявки.
type Recorder interface {
	RequestSubmitted(kind string)
}

// Service реализует жизненный цикл заявок на аренду.
type Service struct {
	repo    Repository
	metrics Recorder
	now     day.Clock
	log     *slog.Logger
}

// NewRentalService создает новый экземпляр Service. clock может быть nil.
func NewRentalService(repo Repository, metrics Recorder, clock day.Clock, log *slog.Logger) *Service {
	return &Service{
		repo:    repo,
		metrics: metrics,
		now:     clock,
		log:     log,
	}
}

// Submit создаёт заявку на аренду в статусе pending.
func (s *Service) Submit(ctx context.Context, caller models.Caller, req models.RentalSubmit) (*models.RentalRequest, error) {
	const op = "services.rental.Submit"

	pickup, err := lifecycle.ParseDate("pickup_date", req.PickupDate)
	if err != nil {
		return nil, err
	}
	ret, err := lifecycle.ParseDate("return_date", req.ReturnDate)
	if err != nil {
		return nil, err
	}
	if err = lifecycle.CheckRentalDates(pickup, ret, day.Today(s.now)); err != nil {
		return nil, err
	}
	qty, err := lifecycle.ParseQuantity(req.Quantity, lifecycle.MaxRentalQuantity)
	if err != nil {
		return nil, err
	}

	dup, err := s.repo.FindDuplicateRental(ctx, caller.UserID, pickup, 0)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if dup {
		return nil, fmt.Errorf("%s: %w", op, apperr.ErrDuplicateRequest)
	}

	created, err := s.repo.CreateRental(ctx, models.RentalRequest{
		UserID:     caller.UserID,
		PickupDate: pickup,
		ReturnDate: ret,
		Quantity:   qty,
		Status:     models.StatusPending,
		Notes:      trimmed(req.Notes),
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.metrics.RequestSubmitted(string(models.KindRental))
	s.log.Info("oricon rental submitted",
		slog.Int64("id", created.ID),
		slog.Int64("user_id", caller.UserID),
		slog.String("pickup_date", created.PickupDate.String()),
		slog.Int("quantity", created.Quantity),
	)
	return created, nil
}

// List возвращает страницу заявок. Обычный пользователь видит только свои.
func (s *Service) List(ctx context.Context, caller models.Caller, f models.ListFilter) (*models.Page[models.RentalRequest], error) {
	const op = "services.rental.List"

	f, err := lifecycle.ScopeFilter(caller, f)
	if err != nil {
		return nil, err
	}
	items, total, err := s.repo.ListRentals(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &models.Page[models.RentalRequest]{Items: items, Total: total, Limit: f.Limit, Offset: f.Offset}, nil
}

// Update изменяет заявку. Поля status и notes учитываются только для администратора.
func (s *Service) Update(ctx context.Context, caller models.Caller, id int64, patch models.RentalPatch) (*models.RentalRequest, error) {
	const op = "services.rental.Update"

	cur, err := s.repo.GetRental(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = lifecycle.CheckMutable(caller, cur.UserID, cur.Status); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	upd := *cur
	datesChanged := false
	if patch.PickupDate != nil {
		if upd.PickupDate, err = lifecycle.ParseDate("pickup_date", *patch.PickupDate); err != nil {
			return nil, err
		}
		datesChanged = true
	}
	if patch.ReturnDate != nil {
		if upd.ReturnDate, err = lifecycle.ParseDate("return_date", *patch.ReturnDate); err != nil {
			return nil, err
		}
		datesChanged = true
	}
	if datesChanged {
		if err = lifecycle.CheckRentalDates(upd.PickupDate, upd.ReturnDate, day.Today(s.now)); err != nil {
			return nil, err
		}
	}
	if patch.Quantity != nil {
		if upd.Quantity, err = lifecycle.ParseQuantity(*patch.Quantity, lifecycle.MaxRentalQuantity); err != nil {
			return nil, err
		}
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

	if !upd.PickupDate.Equal(cur.PickupDate) {
		dup, err := s.repo.FindDuplicateRental(ctx, cur.UserID, upd.PickupDate, cur.ID)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if dup {
			return nil, fmt.Errorf("%s: %w", op, apperr.ErrDuplicateRequest)
		}
	}

	updated, err := s.repo.UpdateRental(ctx, upd)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if target != nil {
		if err = s.repo.SetRentalStatus(ctx, id, cur.Status, *target); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		updated.Status = *target
	}

	s.log.Info("oricon rental updated", slog.Int64("id", id), slog.Int64("by", caller.UserID))
	return updated, nil
}

// SoftDelete переводит заявку в deleted. Владелец может удалить только pending.
func (s *Service) SoftDelete(ctx context.Context, caller models.Caller, id int64) error {
	const op = "services.rental.SoftDelete"

	cur, err := s.repo.GetRental(ctx, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err = lifecycle.CheckMutable(caller, cur.UserID, cur.Status); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err = s.repo.SetRentalStatus(ctx, id, cur.Status, models.StatusDeleted); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("oricon rental deleted", slog.Int64("id", id), slog.Int64("by", caller.UserID))
	return nil
}

// SetStatus меняет статус заявки по таблице переходов. Только для администратора.
func (s *Service) SetStatus(ctx context.Context, caller models.Caller, id int64, to models.Status) (*models.RentalRequest, error) {
	const op = "services.rental.SetStatus"

	if !caller.IsAdmin() {
		return nil, apperr.ErrInsufficientRole
	}
	cur, err := s.repo.GetRental(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = lifecycle.CheckTransition(cur.Status, to); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = s.repo.SetRentalStatus(ctx, id, cur.Status, to); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	cur.Status = to

	s.log.Info("oricon rental status changed", slog.Int64("id", id), slog.String("status", string(to)))
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
