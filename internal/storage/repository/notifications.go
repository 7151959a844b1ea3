package repository

import (
	"context"
	"database/sql"

	"github.com/magabrotheeeer/harvest-tracker/internal/lib/apperr"
	"github.com/magabrotheeeer/harvest-tracker/internal/models"
)

const notificationColumns = `id, title, message, recipients, recipient_user_ids, sent_at,
	sent_count, failed_count, total_count, created_by, deleted_at`

func (s *Storage) scanNotification(row scanner) (*models.Notification, error) {
	var (
		n         models.Notification
		createdBy sql.NullInt64
		deleted   sql.NullTime
	)
	if err := row.Scan(&n.ID, &n.Title, &n.Message, &n.Recipients, s.types.SQLScanner(&n.RecipientUserIDs),
		&n.SentAt, &n.SentCount, &n.FailedCount, &n.TotalCount, &createdBy, &deleted); err != nil {
		return nil, err
	}
	if createdBy.Valid {
		n.CreatedBy = &createdBy.Int64
	}
	if deleted.Valid {
		n.DeletedAt = &deleted.Time
	}
	return &n, nil
}

// CreateNotification сохраняет отправленное уведомление со счётчиками доставки.
func (s *Storage) CreateNotification(ctx context.Context, n models.Notification) (*models.Notification, error) {
	const op = "storage.CreateNotification"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	var createdBy sql.NullInt64
	if n.CreatedBy != nil {
		createdBy = sql.NullInt64{Int64: *n.CreatedBy, Valid: true}
	}
	var recipientIDs any
	if len(n.RecipientUserIDs) > 0 {
		recipientIDs = n.RecipientUserIDs
	}

	query := `INSERT INTO notifications (title, message, recipients, recipient_user_ids,
			      sent_count, failed_count, total_count, created_by)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			  RETURNING ` + notificationColumns
	created, err := s.scanNotification(s.DB.QueryRowContext(ctx, query,
		n.Title, n.Message, n.Recipients, recipientIDs,
		n.SentCount, n.FailedCount, n.TotalCount, createdBy))
	if err != nil {
		return nil, mapError(op, err, nil, nil)
	}
	return created, nil
}

// ListNotifications возвращает неудалённые уведомления, новые первыми.
func (s *Storage) ListNotifications(ctx context.Context, limit, offset int) ([]models.Notification, int, error) {
	const op = "storage.ListNotifications"
	if err := checkCtx(ctx, op); err != nil {
		return nil, 0, err
	}

	var total int
	if err := s.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notifications WHERE deleted_at IS NULL`).Scan(&total); err != nil {
		return nil, 0, mapError(op, err, nil, nil)
	}

	rows, err := s.DB.QueryContext(ctx, `SELECT `+notificationColumns+` FROM notifications
		WHERE deleted_at IS NULL
		ORDER BY sent_at DESC, id DESC
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, mapError(op, err, nil, nil)
	}
	defer func() {
		_ = rows.Close()
	}()

	result := make([]models.Notification, 0)
	for rows.Next() {
		n, err := s.scanNotification(rows)
		if err != nil {
			return nil, 0, mapError(op, err, nil, nil)
		}
		result = append(result, *n)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, mapError(op, err, nil, nil)
	}
	return result, total, nil
}

// DeleteNotification мягко удаляет уведомление.
func (s *Storage) DeleteNotification(ctx context.Context, id int64) error {
	const op = "storage.DeleteNotification"
	if err := checkCtx(ctx, op); err != nil {
		return err
	}

	res, err := s.DB.ExecContext(ctx,
		`UPDATE notifications SET deleted_at = NOW() WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return mapError(op, err, nil, nil)
	}
	if err = expectOne(op, res, apperr.ErrNotFound); err != nil {
		return err
	}
	return nil
}

// CountNotifications возвращает число неудалённых уведомлений.
func (s *Storage) CountNotifications(ctx context.Context) (int, error) {
	const op = "storage.CountNotifications"
	if err := checkCtx(ctx, op); err != nil {
		return 0, err
	}

	var total int
	if err := s.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notifications WHERE deleted_at IS NULL`).Scan(&total); err != nil {
		return 0, mapError(op, err, nil, nil)
	}
	return total, nil
}
