// Package notification реализует объявления администратора и напоминания
// о предстоящих сборах и выдаче контейнеров с рассылкой через LINE.
package notification

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/magabrotheeeer/harvest-tracker/internal/lib/apperr"
	"github.com/magabrotheeeer/harvest-tracker/internal/lib/day"
	"github.com/magabrotheeeer/harvest-tracker/internal/models"
	"github.com/magabrotheeeer/harvest-tracker/internal/services/lifecycle"
)

const (
	maxTitleLength   = 100
	maxMessageLength = 1000
)

// Repository хранит отправленные уведомления.
type Repository interface {
	// CreateNotification сохраняет уведомление со счётчиками доставки.
	CreateNotification(ctx context.Context, n models.Notification) (*models.Notification, error)
	// ListNotifications возвращает страницу неудалённых уведомлений и их общее число.
	ListNotifications(ctx context.Context, limit, offset int) ([]models.Notification, int, error)
	// DeleteNotification мягко удаляет уведомление.
	DeleteNotification(ctx context.Context, id int64) error
}

// UserSource выбирает получателей рассылки.
type UserSource interface {
	// ListActiveUsers возвращает активных пользователей с LINE ID.
	ListActiveUsers(ctx context.Context) ([]models.User, error)
	// UsersByIDs возвращает активных пользователей из списка.
	UsersByIDs(ctx context.Context, ids []int64) ([]models.User, error)
}

// RequestSource читает заявки на заданную дату.
type RequestSource interface {
	HarvestInRange(ctx context.Context, from, to *day.Date) ([]models.HarvestRequest, error)
	RentalsInRange(ctx context.Context, from, to *day.Date) ([]models.RentalRequest, error)
}

// Broadcaster выполняет массовую рассылку текста в LINE.
type Broadcaster interface {
	PushBulk(ctx context.Context, lineIDs []string, text string) []models.DeliveryResult
}

// Result: сохранённое уведомление и итог рассылки, если она выполнялась.
type Result struct {
	Notification *models.Notification `json:"notification"`
	Delivery     *models.DeliveryStats `json:"line_delivery,omitempty"`
}

// Service реализует объявления и напоминания.
type Service struct {
	repo     Repository
	users    UserSource
	requests RequestSource
	line     Broadcaster
	log      *slog.Logger
}

// NewNotificationService создает новый экземпляр Service.
func NewNotificationService(repo Repository, users UserSource, requests RequestSource, line Broadcaster, log *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		users:    users,
		requests: requests,
		line:     line,
		log:      log,
	}
}

// CreateAnnouncement сохраняет объявление и при SendLine рассылает его получателям.
// Частичные ошибки доставки отражаются только в счётчиках.
func (s *Service) CreateAnnouncement(ctx context.Context, caller models.Caller, req models.AnnouncementRequest) (*Result, error) {
	const op = "services.notification.CreateAnnouncement"

	title, message, err := normalizeText(req.Title, req.Message)
	if err != nil {
		return nil, err
	}
	recipients := req.Recipients
	if recipients == "" {
		recipients = models.RecipientsAll
	}
	if recipients != models.RecipientsAll && recipients != models.RecipientsSelected {
		return nil, apperr.Validation("recipients must be one of: all, selected")
	}
	if recipients == models.RecipientsSelected && len(req.UserIDs) == 0 {
		return nil, apperr.Validation("user_ids are required for selected recipients")
	}

	n := models.Notification{
		Title:      title,
		Message:    message,
		Recipients: recipients,
		CreatedBy:  &caller.UserID,
	}
	if recipients == models.RecipientsSelected {
		n.RecipientUserIDs = req.UserIDs
	}

	var stats *models.DeliveryStats
	if req.SendLine {
		var users []models.User
		if recipients == models.RecipientsSelected {
			users, err = s.users.UsersByIDs(ctx, req.UserIDs)
		} else {
			users, err = s.users.ListActiveUsers(ctx)
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		st := s.broadcast(ctx, users, "📢 "+title+"\n\n"+message)
		n.SentCount, n.FailedCount, n.TotalCount = st.Sent, st.Failed, st.Total
		stats = &st
	}

	saved, err := s.repo.CreateNotification(ctx, n)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("announcement created",
		slog.Int64("id", saved.ID),
		slog.String("recipients", recipients),
		slog.Bool("send_line", req.SendLine),
		slog.Int("sent", saved.SentCount),
		slog.Int("failed", saved.FailedCount),
	)
	return &Result{Notification: saved, Delivery: stats}, nil
}

// List возвращает страницу уведомлений, новые первыми.
func (s *Service) List(ctx context.Context, limit, offset int) (*models.Page[models.Notification], error) {
	const op = "services.notification.List"

	if limit == 0 {
		limit = lifecycle.DefaultLimit
	}
	if limit < 1 || limit > lifecycle.MaxLimit {
		return nil, apperr.Validation(fmt.Sprintf("limit must be between 1 and %d", lifecycle.MaxLimit))
	}
	if offset < 0 {
		return nil, apperr.Validation("offset must be non-negative")
	}

	items, total, err := s.repo.ListNotifications(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &models.Page[models.Notification]{Items: items, Total: total, Limit: limit, Offset: offset}, nil
}

// Delete мягко удаляет уведомление.
func (s *Service) Delete(ctx context.Context, id int64) error {
	const op = "services.notification.Delete"

	if err := s.repo.DeleteNotification(ctx, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("notification deleted", slog.Int64("id", id))
	return nil
}

func (s *Service) broadcast(ctx context.Context, users []models.User, text string) models.DeliveryStats {
	ids := make([]string, 0, len(users))
	for _, u := range users {
		if u.LineID != "" && u.IsActive() {
			ids = append(ids, u.LineID)
		}
	}
	if len(ids) == 0 {
		return models.DeliveryStats{}
	}
	return models.Stats(s.line.PushBulk(ctx, ids, text))
}

func normalizeText(title, message string) (string, string, error) {
	title = strings.TrimSpace(title)
	message = strings.TrimSpace(message)
	if title == "" || message == "" {
		return "", "", apperr.Validation("title and message are required")
	}
	if utf8.RuneCountInString(title) > maxTitleLength {
		return "", "", apperr.Validation(fmt.Sprintf("title must be at most %d characters", maxTitleLength))
	}
	if utf8.RuneCountInString(message) > maxMessageLength {
		return "", "", apperr.Validation(fmt.Sprintf("message must be at most %d characters", maxMessageLength))
	}
	return title, message, nil
}
