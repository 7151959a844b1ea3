package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/magabrotheeeer/harvest-tracker/internal/lib/apperr"
	"github.com/magabrotheeeer/harvest-tracker/internal/lib/day"
	"github.com/magabrotheeeer/harvest-tracker/internal/models"
)

const rentalColumns = `o.id, o.user_id, COALESCE(u.display_name, ''), o.pickup_date, o.return_date,
	o.quantity, o.status, o.notes, o.created_at, o.updated_at`

const rentalFrom = ` FROM oricon_rentals o LEFT JOIN users u ON u.id = o.user_id`

func scanRental(row scanner) (*models.RentalRequest, error) {
	var (
		r     models.RentalRequest
		notes sql.NullString
	)
	if err := row.Scan(&r.ID, &r.UserID, &r.UserName, &r.PickupDate, &r.ReturnDate,
		&r.Quantity, &r.Status, &notes, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	r.Notes = stringPtr(notes)
	return &r, nil
}

func (s *Storage) queryRentals(ctx context.Context, op, query string, args ...any) ([]models.RentalRequest, error) {
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(op, err, nil, nil)
	}
	defer func() {
		_ = rows.Close()
	}()

	result := make([]models.RentalRequest, 0)
	for rows.Next() {
		r, err := scanRental(rows)
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

// CreateRental сохраняет заявку на аренду контейнеров.
// Повтор даты выдачи у того же пользователя возвращает ErrDuplicateRequest.
func (s *Storage) CreateRental(ctx context.Context, req models.RentalRequest) (*models.RentalRequest, error) {
	const op = "storage.CreateRental"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	query := `INSERT INTO oricon_rentals (user_id, pickup_date, return_date, quantity, status, notes)
			  VALUES ($1, $2, $3, $4, $5, $6)
			  RETURNING id`
	var id int64
	if err := s.DB.QueryRowContext(ctx, query,
		req.UserID, req.PickupDate, req.ReturnDate, req.Quantity,
		string(req.Status), nullString(req.Notes)).Scan(&id); err != nil {
		return nil, mapError(op, err, nil, apperr.ErrDuplicateRequest)
	}
	return s.GetRental(ctx, id)
}

// GetRental возвращает неудалённую заявку по идентификатору.
func (s *Storage) GetRental(ctx context.Context, id int64) (*models.RentalRequest, error) {
	const op = "storage.GetRental"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	query := `SELECT ` + rentalColumns + rentalFrom + ` WHERE o.id = $1 AND o.status <> 'deleted'`
	r, err := scanRental(s.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, mapError(op, err, apperr.ErrRequestNotFound, nil)
	}
	return r, nil
}

// ListRentals возвращает страницу заявок и общее количество по фильтру.
// Порядок: дата выдачи по убыванию.
func (s *Storage) ListRentals(ctx context.Context, f models.ListFilter) ([]models.RentalRequest, int, error) {
	const op = "storage.ListRentals"
	if err := checkCtx(ctx, op); err != nil {
		return nil, 0, err
	}

	w := requestWhere(f, "o", "pickup_date")

	var total int
	if err := s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM oricon_rentals o`+w.String(), w.args...).
		Scan(&total); err != nil {
		return nil, 0, mapError(op, err, nil, nil)
	}

	args := append(w.args, f.Limit, f.Offset)
	query := fmt.Sprintf(`SELECT %s%s%s ORDER BY o.pickup_date DESC, o.id DESC LIMIT $%d OFFSET $%d`,
		rentalColumns, rentalFrom, w.String(), len(args)-1, len(args))
	items, err := s.queryRentals(ctx, op, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// RentalsInRange возвращает неудалённые заявки с датой выдачи в [from, to]
// по возрастанию даты.
func (s *Storage) RentalsInRange(ctx context.Context, from, to *day.Date) ([]models.RentalRequest, error) {
	const op = "storage.RentalsInRange"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	w := rangeWhere("o", "pickup_date", from, to)
	query := `SELECT ` + rentalColumns + rentalFrom + w.String() + ` ORDER BY o.pickup_date, o.id`
	return s.queryRentals(ctx, op, query, w.args...)
}

// UpdateRental сохраняет изменённые поля заявки.
func (s *Storage) UpdateRental(ctx context.Context, req models.RentalRequest) (*models.RentalRequest, error) {
	const op = "storage.UpdateRental"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	query := `UPDATE oricon_rentals
			  SET pickup_date = $2,
			      return_date = $3,
			      quantity    = $4,
			      status      = $5,
			      notes       = $6,
			      updated_at  = NOW()
			  WHERE id = $1 AND status <> 'deleted'`
	res, err := s.DB.ExecContext(ctx, query, req.ID, req.PickupDate, req.ReturnDate,
		req.Quantity, string(req.Status), nullString(req.Notes))
	if err != nil {
		return nil, mapError(op, err, nil, apperr.ErrDuplicateRequest)
	}
	if err = expectOne(op, res, apperr.ErrRequestNotFound); err != nil {
		return nil, err
	}
	return s.GetRental(ctx, req.ID)
}

// SetRentalStatus переводит заявку из статуса from в to.
func (s *Storage) SetRentalStatus(ctx context.Context, id int64, from, to models.Status) error {
	const op = "storage.SetRentalStatus"
	if err := checkCtx(ctx, op); err != nil {
		return err
	}

	query := `UPDATE oricon_rentals SET status = $3, updated_at = NOW()
			  WHERE id = $1 AND status = $2`
	res, err := s.DB.ExecContext(ctx, query, id, string(from), string(to))
	if err != nil {
		return mapError(op, err, nil, nil)
	}
	return expectOne(op, res, apperr.ErrInvalidTransition)
}

// FindDuplicateRental проверяет наличие другой неудалённой заявки
// того же пользователя с той же датой выдачи.
func (s *Storage) FindDuplicateRental(ctx context.Context, userID int64, pickup day.Date, excludeID int64) (bool, error) {
	const op = "storage.FindDuplicateRental"
	if err := checkCtx(ctx, op); err != nil {
		return false, err
	}

	query := `SELECT EXISTS (
			      SELECT 1 FROM oricon_rentals
			      WHERE user_id = $1 AND pickup_date = $2 AND status <> 'deleted' AND id <> $3
			  )`
	var exists bool
	if err := s.DB.QueryRowContext(ctx, query, userID, pickup, excludeID).Scan(&exists); err != nil {
		return false, mapError(op, err, nil, nil)
	}
	return exists, nil
}
