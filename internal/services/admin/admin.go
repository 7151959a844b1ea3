// Package admin содержит сводку для панели администратора, календарный
// отчёт за месяц и управление пользователями.
package admin

import (
	"context"
	"log/slog"

	"github.com/magabrotheeeer/harvest-tracker/internal/lib/day"
	"github.com/magabrotheeeer/harvest-tracker/internal/models"
)

// UserRepository определяет операции с пользователями.
type UserRepository interface {
	// ListUsers возвращает всех пользователей.
	ListUsers(ctx context.Context) ([]models.User, error)
	// CreateUser создаёт пользователя или возвращает ErrDuplicateUser.
	CreateUser(ctx context.Context, user models.User) (*models.User, error)
	// UpdateUser применяет частичное изменение.
	UpdateUser(ctx context.Context, id int64, patch models.UserPatch) (*models.User, error)
}

// RequestSource читает заявки за период.
type RequestSource interface {
	HarvestInRange(ctx context.Context, from, to *day.Date) ([]models.HarvestRequest, error)
	RentalsInRange(ctx context.Context, from, to *day.Date) ([]models.RentalRequest, error)
}

// VegetableSource читает справочник овощей.
type VegetableSource interface {
	ListVegetables(ctx context.Context, activeOnly bool) ([]models.Vegetable, error)
}

// NotificationCounter считает неудалённые уведомления.
type NotificationCounter interface {
	CountNotifications(ctx context.Context) (int, error)
}

// Service реализует операции панели администратора.
type Service struct {
	users         UserRepository
	requests      RequestSource
	vegetables    VegetableSource
	notifications NotificationCounter
	now           day.Clock
	log           *slog.Logger
}

// NewAdminService создает новый экземпляр Service. clock может быть nil.
func NewAdminService(users UserRepository, requests RequestSource, vegetables VegetableSource,
	notifications NotificationCounter, clock day.Clock, log *slog.Logger) *Service {
	return &Service{
		users:         users,
		requests:      requests,
		vegetables:    vegetables,
		notifications: notifications,
		now:           clock,
		log:           log,
	}
}
