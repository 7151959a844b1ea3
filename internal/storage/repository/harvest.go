package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/magabrotheeeer/harvest-tracker/internal/lib/apperr"
	"github.com/magabrotheeeer/harvest-tracker/internal/lib/day"
	"github.com/magabrotheeeer/harvest-tracker/internal/models"
)

const harvestColumns = `h.id, h.user_id, COALESCE(u.display_name, ''), h.vegetable_item,
	h.delivery_date, h.quantity, h.status, h.notes, h.created_at, h.updated_at`

const harvestFrom = ` FROM harvest_requests h LEFT JOIN users u ON u.id = h.user_id`

func scanHarvest(row scanner) (*models.HarvestRequest, error) {
	var (
		r     models.HarvestRequest
		notes sql.NullString
	)
	if err := row.Scan(&r.ID, &r.UserID, &r.UserName, &r.VegetableItem, &r.DeliveryDate,
		&r.Quantity, &r.Status, &notes, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	r.Notes = stringPtr(notes)
	return &r, nil
}

func (s *Storage) queryHarvest(ctx context.Context, op, query string, args ...any) ([]models.HarvestRequest, error) {
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(op, err, nil, nil)
	}
	defer func() {
		_ = rows.Close()
	}()

	result := make([]models.HarvestRequest, 0)
	for rows.Next() {
		r, err := scanHarvest(rows)
		if err != nil {
			return nil, mapError(op, err, nil, nil)
		}
		result = append(result, *r)
	}
	if err = rows.Err(); err != nil {
		return nil, mapError(op, err, nil, nil)
	}
	return result, nil
}

// CreateHarvest сохраняет заявку на сбор урожая.
// Нарушение уникальности (пользователь, овощ, дата) возвращает ErrDuplicateRequest.
func (s *Storage) CreateHarvest(ctx context.Context, req models.HarvestRequest) (*models.HarvestRequest, error) {
	const op = "storage.CreateHarvest"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	query := `INSERT INTO harvest_requests (user_id, vegetable_item, delivery_date, quantity, status, notes)
			  VALUES ($1, $2, $3, $4, $5, $6)
			  RETURNING id`
	var id int64
	if err := s.DB.QueryRowContext(ctx, query,
		req.UserID, strings.TrimSpace(req.VegetableItem), req.DeliveryDate, req.Quantity,
		string(req.Status), nullString(req.Notes)).Scan(&id); err != nil {
		return nil, mapError(op, err, nil, apperr.ErrDuplicateRequest)
	}
	return s.GetHarvest(ctx, id)
}

// GetHarvest возвращает неудалённую заявку по идентификатору.
func (s *Storage) GetHarvest(ctx context.Context, id int64) (*models.HarvestRequest, error) {
	const op = "storage.GetHarvest"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	query := `SELECT ` + harvestColumns + harvestFrom + ` WHERE h.id = $1 AND h.status <> 'deleted'`
	r, err := scanHarvest(s.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, mapError(op, err, apperr.ErrRequestNotFound, nil)
	}
	return r, nil
}

// ListHarvest возвращает страницу заявок и общее количество по фильтру.
// Порядок: дата сбора по убыванию.
func (s *Storage) ListHarvest(ctx context.Context, f models.ListFilter) ([]models.HarvestRequest, int, error) {
	const op = "storage.ListHarvest"
	if err := checkCtx(ctx, op); err != nil {
		return nil, 0, err
	}

	w := requestWhere(f, "h", "delivery_date")

	var total int
	if err := s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM harvest_requests h`+w.String(), w.args...).
		Scan(&total); err != nil {
		return nil, 0, mapError(op, err, nil, nil)
	}

	args := append(w.args, f.Limit, f.Offset)
	query := fmt.Sprintf(`SELECT %s%s%s ORDER BY h.delivery_date DESC, h.id DESC LIMIT $%d OFFSET $%d`,
		harvestColumns, harvestFrom, w.String(), len(args)-1, len(args))
	items, err := s.queryHarvest(ctx, op, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// HarvestInRange возвращает неудалённые заявки с датой сбора в [from, to]
// по возрастанию даты. nil-граница означает отсутствие ограничения.
func (s *Storage) HarvestInRange(ctx context.Context, from, to *day.Date) ([]models.HarvestRequest, error) {
	const op = "storage.HarvestInRange"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	w := rangeWhere("h", "delivery_date", from, to)
	query := `SELECT ` + harvestColumns + harvestFrom + w.String() + ` ORDER BY h.delivery_date, h.id`
	return s.queryHarvest(ctx, op, query, w.args...)
}

// UpdateHarvest сохраняет изменённые поля заявки.
func (s *Storage) UpdateHarvest(ctx context.Context, req models.HarvestRequest) (*models.HarvestRequest, error) {
	const op = "storage.UpdateHarvest"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	query := `UPDATE harvest_requests
			  SET vegetable_item = $2,
			      delivery_date  = $3,
			      quantity       = $4,
			      status         = $5,
			      notes          = $6,
			      updated_at     = NOW()
			  WHERE id = $1 AND status <> 'deleted'`
	res, err := s.DB.ExecContext(ctx, query, req.ID, strings.TrimSpace(req.VegetableItem),
		req.DeliveryDate, req.Quantity, string(req.Status), nullString(req.Notes))
	if err != nil {
		return nil, mapError(op, err, nil, apperr.ErrDuplicateRequest)
	}
	if err = expectOne(op, res, apperr.ErrRequestNotFound); err != nil {
		return nil, err
	}
	return s.GetHarvest(ctx, req.ID)
}

// SetHarvestStatus переводит заявку из статуса from в to.
// Если статус успел измениться, возвращается ErrInvalidTransition.
func (s *Storage) SetHarvestStatus(ctx context.Context, id int64, from, to models.Status) error {
	const op = "storage.SetHarvestStatus"
	if err := checkCtx(ctx, op); err != nil {
		return err
	}

	query := `UPDATE harvest_requests SET status = $3, updated_at = NOW()
			  WHERE id = $1 AND status = $2`
	res, err := s.DB.ExecContext(ctx, query, id, string(from), string(to))
	if err != nil {
		return mapError(op, err, nil, nil)
	}
	return expectOne(op, res, apperr.ErrInvalidTransition)
}

// FindDuplicateHarvest проверяет наличие другой неудалённой заявки
// того же пользователя на тот же овощ и дату. excludeID исключает саму заявку.
func (s *Storage) FindDuplicateHarvest(ctx context.Context, userID int64, item string, date day.Date, excludeID int64) (bool, error) {
	const op = "storage.FindDuplicateHarvest"
	if err := checkCtx(ctx, op); err != nil {
		return false, err
	}

	query := `SELECT EXISTS (
			      SELECT 1 FROM harvest_requests
			      WHERE user_id = $1
			        AND LOWER(vegetable_item) = LOWER($2)
			        AND delivery_date = $3
			        AND status <> 'deleted'
			        AND id <> $4
			  )`
	var exists bool
	if err := s.DB.QueryRowContext(ctx, query, userID, strings.TrimSpace(item), date, excludeID).
		Scan(&exists); err != nil {
		return false, mapError(op, err, nil, nil)
	}
	return exists, nil
}

func expectOne(op string, res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return mapError(op, err, nil, nil)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, notFound)
	}
	return nil
}
