package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/magabrotheeeer/harvest-tracker/internal/lib/apperr"
	"github.com/magabrotheeeer/harvest-tracker/internal/models"
)

const userColumns = `id, line_id, display_name, avatar_url, role, status,
	created_at, updated_at, last_login_at, blocked_at`

func scanUser(row scanner) (*models.User, error) {
	var (
		u                  models.User
		avatar             sql.NullString
		lastLogin, blocked sql.NullTime
	)
	if err := row.Scan(&u.ID, &u.LineID, &u.DisplayName, &avatar, &u.Role, &u.Status,
		&u.CreatedAt, &u.UpdatedAt, &lastLogin, &blocked); err != nil {
		return nil, err
	}
	u.AvatarURL = stringPtr(avatar)
	if lastLogin.Valid {
		u.LastLoginAt = &lastLogin.Time
	}
	if blocked.Valid {
		u.BlockedAt = &blocked.Time
	}
	return &u, nil
}

func (s *Storage) queryUsers(ctx context.Context, op, query string, args ...any) ([]models.User, error) {
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(op, err, nil, nil)
	}
	defer func() {
		_ = rows.Close()
	}()

	result := make([]models.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, mapError(op, err, nil, nil)
		}
		result = append(result, *u)
	}
	if err = rows.Err(); err != nil {
		return nil, mapError(op, err, nil, nil)
	}
	return result, nil
}

// GetUserByID возвращает пользователя по идентификатору.
func (s *Storage) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	const op = "storage.GetUserByID"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	u, err := scanUser(s.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, mapError(op, err, apperr.ErrUserNotFound, nil)
	}
	return u, nil
}

// GetUserByLineID возвращает пользователя по LINE ID.
func (s *Storage) GetUserByLineID(ctx context.Context, lineID string) (*models.User, error) {
	const op = "storage.GetUserByLineID"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	query := `SELECT ` + userColumns + ` FROM users WHERE line_id = $1`
	u, err := scanUser(s.DB.QueryRowContext(ctx, query, lineID))
	if err != nil {
		return nil, mapError(op, err, apperr.ErrUserNotFound, nil)
	}
	return u, nil
}

// CreateUser создаёт пользователя. Повтор LINE ID возвращает ErrDuplicateUser.
func (s *Storage) CreateUser(ctx context.Context, user models.User) (*models.User, error) {
	const op = "storage.CreateUser"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	query := `INSERT INTO users (line_id, display_name, avatar_url, role, status)
			  VALUES ($1, $2, $3, $4, $5)
			  RETURNING ` + userColumns
	u, err := scanUser(s.DB.QueryRowContext(ctx, query,
		user.LineID, user.DisplayName, nullString(user.AvatarURL), string(user.Role), string(user.Status)))
	if err != nil {
		return nil, mapError(op, err, nil, apperr.ErrDuplicateUser)
	}
	return u, nil
}

// UpsertUserByLineID находит пользователя по LINE ID или создаёт активного
// пользователя с ролью user. У найденного обновляются имя, аватар и время входа.
// Выполняется одним запросом, поэтому параллельный первый вход не создаёт дубликат.
func (s *Storage) UpsertUserByLineID(ctx context.Context, lineID, displayName string, avatarURL *string) (*models.User, error) {
	const op = "storage.UpsertUserByLineID"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	query := `INSERT INTO users (line_id, display_name, avatar_url, role, status, last_login_at)
			  VALUES ($1, $2, $3, 'user', 'active', NOW())
			  ON CONFLICT (line_id) DO UPDATE
			  SET display_name  = EXCLUDED.display_name,
			      avatar_url    = COALESCE(EXCLUDED.avatar_url, users.avatar_url),
			      last_login_at = NOW(),
			      updated_at    = NOW()
			  RETURNING ` + userColumns
	u, err := scanUser(s.DB.QueryRowContext(ctx, query, lineID, displayName, nullString(avatarURL)))
	if err != nil {
		return nil, mapError(op, err, nil, nil)
	}
	return u, nil
}

// UpdateUser применяет частичное изменение пользователя, nil-поля не меняются.
// Переход в blocked фиксирует blocked_at, любой другой статус его сбрасывает.
func (s *Storage) UpdateUser(ctx context.Context, id int64, upd models.UserPatch) (*models.User, error) {
	const op = "storage.UpdateUser"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	var role, status sql.NullString
	if upd.Role != nil {
		role = sql.NullString{String: string(*upd.Role), Valid: true}
	}
	if upd.Status != nil {
		status = sql.NullString{String: string(*upd.Status), Valid: true}
	}

	query := `UPDATE users
			  SET display_name = COALESCE($2::text, display_name),
			      role         = COALESCE($3::text, role),
			      status       = COALESCE($4::text, status),
			      blocked_at   = CASE
			                         WHEN $4::text = 'blocked' AND status <> 'blocked' THEN NOW()
			                         WHEN $4::text IS NOT NULL AND $4::text <> 'blocked' THEN NULL
			                         ELSE blocked_at
			                     END,
			      updated_at   = NOW()
			  WHERE id = $1
			  RETURNING ` + userColumns
	u, err := scanUser(s.DB.QueryRowContext(ctx, query, id, nullString(upd.DisplayName), role, status))
	if err != nil {
		return nil, mapError(op, err, apperr.ErrUserNotFound, nil)
	}
	return u, nil
}

// SetUserStatusByLineID меняет статус пользователя по LINE ID.
// Возвращает ErrUserNotFound, если такого пользователя нет.
func (s *Storage) SetUserStatusByLineID(ctx context.Context, lineID string, status models.UserStatus) error {
	const op = "storage.SetUserStatusByLineID"
	if err := checkCtx(ctx, op); err != nil {
		return err
	}

	query := `UPDATE users
			  SET status     = $2::text,
			      blocked_at = CASE WHEN $2::text = 'blocked' THEN NOW() ELSE NULL END,
			      updated_at = NOW()
			  WHERE line_id = $1`
	res, err := s.DB.ExecContext(ctx, query, lineID, string(status))
	if err != nil {
		return mapError(op, err, nil, nil)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return mapError(op, err, nil, nil)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, apperr.ErrUserNotFound)
	}
	return nil
}

// ListUsers возвращает всех пользователей, новые первыми.
func (s *Storage) ListUsers(ctx context.Context) ([]models.User, error) {
	const op = "storage.ListUsers"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}
	return s.queryUsers(ctx, op, `SELECT `+userColumns+` FROM users ORDER BY created_at DESC, id DESC`)
}

// ListActiveUsers возвращает активных пользователей для рассылки.
func (s *Storage) ListActiveUsers(ctx context.Context) ([]models.User, error) {
	const op = "storage.ListActiveUsers"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}
	return s.queryUsers(ctx, op,
		`SELECT `+userColumns+` FROM users WHERE status = 'active' AND line_id <> '' ORDER BY id`)
}

// UsersByIDs возвращает активных пользователей из списка идентификаторов.
func (s *Storage) UsersByIDs(ctx context.Context, ids []int64) ([]models.User, error) {
	const op = "storage.UsersByIDs"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []models.User{}, nil
	}
	return s.queryUsers(ctx, op,
		`SELECT `+userColumns+` FROM users WHERE id = ANY($1) AND status = 'active' ORDER BY id`, ids)
}
