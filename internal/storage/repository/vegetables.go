package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/magabrotheeeer/harvest-tracker/internal/lib/apperr"
	"github.com/magabrotheeeer/harvest-tracker/internal/models"
)

const vegetableColumns = `id, item_name, active, created_at, updated_at, deleted_at`

func scanVegetable(row scanner) (*models.Vegetable, error) {
	var (
		v       models.Vegetable
		deleted sql.NullTime
	)
	if err := row.Scan(&v.ID, &v.ItemName, &v.Active, &v.CreatedAt, &v.UpdatedAt, &deleted); err != nil {
		return nil, err
	}
	if deleted.Valid {
		v.DeletedAt = &deleted.Time
	}
	return &v, nil
}

// ListVegetables возвращает справочник, упорядоченный по названию.
// При activeOnly скрываются деактивированные позиции.
func (s *Storage) ListVegetables(ctx context.Context, activeOnly bool) ([]models.Vegetable, error) {
	const op = "storage.ListVegetables"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	query := `SELECT ` + vegetableColumns + ` FROM vegetable_master`
	if activeOnly {
		query += ` WHERE active`
	}
	query += ` ORDER BY item_name`

	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, mapError(op, err, nil, nil)
	}
	defer func() {
		_ = rows.Close()
	}()

	result := make([]models.Vegetable, 0)
	for rows.Next() {
		v, err := scanVegetable(rows)
		if err != nil {
			return nil, mapError(op, err, nil, nil)
		}
		result = append(result, *v)
	}
	if err = rows.Err(); err != nil {
		return nil, mapError(op, err, nil, nil)
	}
	return result, nil
}

// GetVegetable возвращает активную позицию справочника по идентификатору.
func (s *Storage) GetVegetable(ctx context.Context, id int64) (*models.Vegetable, error) {
	const op = "storage.GetVegetable"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	query := `SELECT ` + vegetableColumns + ` FROM vegetable_master WHERE id = $1 AND active`
	v, err := scanVegetable(s.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, mapError(op, err, apperr.ErrVegetableNotFound, nil)
	}
	return v, nil
}

// GetActiveVegetableByName ищет активную позицию без учёта регистра.
func (s *Storage) GetActiveVegetableByName(ctx context.Context, name string) (*models.Vegetable, error) {
	const op = "storage.GetActiveVegetableByName"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	query := `SELECT ` + vegetableColumns + ` FROM vegetable_master
			  WHERE LOWER(item_name) = LOWER($1) AND active`
	v, err := scanVegetable(s.DB.QueryRowContext(ctx, query, strings.TrimSpace(name)))
	if err != nil {
		return nil, mapError(op, err, apperr.ErrVegetableNotFound, nil)
	}
	return v, nil
}

// CreateVegetable добавляет позицию в справочник.
// Совпадение с активной позицией без учёта регистра возвращает ErrDuplicateVegetable.
func (s *Storage) CreateVegetable(ctx context.Context, name string) (*models.Vegetable, error) {
	const op = "storage.CreateVegetable"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	query := `INSERT INTO vegetable_master (item_name) VALUES ($1) RETURNING ` + vegetableColumns
	v, err := scanVegetable(s.DB.QueryRowContext(ctx, query, strings.TrimSpace(name)))
	if err != nil {
		return nil, mapError(op, err, nil, apperr.ErrDuplicateVegetable)
	}
	return v, nil
}

// UpdateVegetable переименовывает активную позицию справочника.
func (s *Storage) UpdateVegetable(ctx context.Context, id int64, name string) (*models.Vegetable, error) {
	const op = "storage.UpdateVegetable"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	query := `UPDATE vegetable_master
			  SET item_name = $2, updated_at = NOW()
			  WHERE id = $1 AND active
			  RETURNING ` + vegetableColumns
	v, err := scanVegetable(s.DB.QueryRowContext(ctx, query, id, strings.TrimSpace(name)))
	if err != nil {
		return nil, mapError(op, err, apperr.ErrVegetableNotFound, apperr.ErrDuplicateVegetable)
	}
	return v, nil
}

// DeactivateVegetable мягко удаляет позицию: active=false и отметка deleted_at.
func (s *Storage) DeactivateVegetable(ctx context.Context, id int64) error {
	const op = "storage.DeactivateVegetable"
	if err := checkCtx(ctx, op); err != nil {
		return err
	}

	query := `UPDATE vegetable_master
			  SET active = FALSE, deleted_at = NOW(), updated_at = NOW()
			  WHERE id = $1 AND active`
	res, err := s.DB.ExecContext(ctx, query, id)
	if err != nil {
		return mapError(op, err, nil, nil)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return mapError(op, err, nil, nil)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, apperr.ErrVegetableNotFound)
	}
	return nil
}

// CountHarvestForVegetable считает неудалённые заявки, ссылающиеся на название.
func (s *Storage) CountHarvestForVegetable(ctx context.Context, name string) (int, error) {
	const op = "storage.CountHarvestForVegetable"
	if err := checkCtx(ctx, op); err != nil {
		return 0, err
	}

	query := `SELECT COUNT(*) FROM harvest_requests
			  WHERE LOWER(vegetable_item) = LOWER($1) AND status <> 'deleted'`
	var count int
	if err := s.DB.QueryRowContext(ctx, query, name).Scan(&count); err != nil {
		return 0, mapError(op, err, nil, nil)
	}
	return count, nil
}
