package admin

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/magabrotheeeer/harvest-tracker/internal/lib/apperr"
	"github.com/magabrotheeeer/harvest-tracker/internal/models"
)

const (
	maxLineIDLength      = 50
	maxDisplayNameLength = 100
)

// ListUsers возвращает всех пользователей.
func (s *Service) ListUsers(ctx context.Context) ([]models.User, error) {
	const op = "services.admin.ListUsers"

	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return users, nil
}

// CreateUser создаёт активного пользователя. Роль по умолчанию user.
func (s *Service) CreateUser(ctx context.Context, req models.UserCreate) (*models.User, error) {
	const op = "services.admin.CreateUser"

	lineID := strings.TrimSpace(req.LineID)
	if lineID == "" {
		return nil, apperr.Validation("line_id is required")
	}
	if utf8.RuneCountInString(lineID) > maxLineIDLength {
		return nil, apperr.Validation(fmt.Sprintf("line_id must be at most %d characters", maxLineIDLength))
	}
	name, err := normalizeDisplayName(req.DisplayName)
	if err != nil {
		return nil, err
	}
	role := req.Role
	if role == "" {
		role = models.RoleUser
	}
	if role != models.RoleUser && role != models.RoleAdmin {
		return nil, apperr.Validation("role must be one of: user, admin")
	}

	created, err := s.users.CreateUser(ctx, models.User{
		LineID:      lineID,
		DisplayName: name,
		Role:        role,
		Status:      models.UserActive,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("user created", slog.Int64("id", created.ID), slog.String("role", string(created.Role)))
	return created, nil
}

// UpdateUser изменяет пользователя. Пользователь может менять только своё имя,
// администратор может менять роль и статус, но не свои собственные.
func (s *Service) UpdateUser(ctx context.Context, caller models.Caller, id int64, patch models.UserPatch) (*models.User, error) {
	const op = "services.admin.UpdateUser"

	self := caller.UserID == id
	if !caller.IsAdmin() {
		if !self {
			return nil, fmt.Errorf("%s: %w", op, apperr.ErrForbidden)
		}
		if patch.Role != nil || patch.Status != nil {
			return nil, fmt.Errorf("%s: %w", op, apperr.ErrInsufficientRole)
		}
	}

	upd := models.UserPatch{}
	if patch.DisplayName != nil {
		name, err := normalizeDisplayName(*patch.DisplayName)
		if err != nil {
			return nil, err
		}
		upd.DisplayName = &name
	}
	if patch.Role != nil {
		if *patch.Role != models.RoleUser && *patch.Role != models.RoleAdmin {
			return nil, apperr.Validation("role must be one of: user, admin")
		}
		if self && *patch.Role != caller.Role {
			return nil, apperr.Validation("you cannot change your own role")
		}
		upd.Role = patch.Role
	}
	if patch.Status != nil {
		if !patch.Status.Valid() {
			return nil, apperr.Validation("status must be one of: active, inactive, blocked")
		}
		if self && *patch.Status != models.UserActive {
			return nil, apperr.Validation("you cannot deactivate your own account")
		}
		upd.Status = patch.Status
	}
	if upd.DisplayName == nil && upd.Role == nil && upd.Status == nil {
		return nil, apperr.Validation("no fields to update")
	}

	updated, err := s.users.UpdateUser(ctx, id, upd)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("user updated", slog.Int64("id", id), slog.Int64("by", caller.UserID))
	return updated, nil
}

func normalizeDisplayName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", apperr.Validation("display_name is required")
	}
	if utf8.RuneCountInString(name) > maxDisplayNameLength {
		return "", apperr.Validation(fmt.Sprintf("display_name must be at most %d characters", maxDisplayNameLength))
	}
	return name, nil
}
