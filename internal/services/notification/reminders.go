package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/harvest-tracker/internal/lib/apperr"
	"github.com/magabrotheeeer/harvest-tracker/internal/lib/day"
	"github.com/magabrotheeeer/harvest-tracker/internal/lib/sl"
	"github.com/magabrotheeeer/harvest-tracker/internal/models"
)

const (
	titleHarvestReminder = "集荷予定のお知らせ"
	titleOriconReminder  = "オリコン受取予定のお知らせ"
	titleCustomReminder  = "お知らせ"

	harvestReminderFormat = "%sに集荷予定の申請があります。\n準備をお願いいたします。"
	oriconReminderFormat  = "%sにオリコン受取予定の申請があります。\nお忘れなくお越しください。"
)

// Remind выполняет ручной запуск напоминания администратором.
func (s *Service) Remind(ctx context.Context, caller models.Caller, req models.ReminderRequest) (*Result, error) {
	return s.SendReminder(ctx, models.ReminderJob{
		ID:            uuid.NewString(),
		Type:          req.Type,
		TargetDate:    req.TargetDate,
		CustomMessage: req.CustomMessage,
		RequestedBy:   &caller.UserID,
	})
}

// SendReminder рассылает напоминание. Для harvest и oricon получатели это
// владельцы заявок pending и approved на дату задания, для custom все
// активные пользователи. Уведомление сохраняется со счётчиками доставки.
func (s *Service) SendReminder(ctx context.Context, job models.ReminderJob) (*Result, error) {
	const op = "services.notification.SendReminder"
	log := s.log.With(slog.String("op", op), slog.String("job_id", job.ID), slog.String("type", job.Type))

	date, err := day.Parse(job.TargetDate)
	if err != nil {
		return nil, apperr.Validation(err.Error())
	}

	var (
		title, message string
		userIDs        []int64
		recipients     = job.Type + "_" + date.String()
	)
	switch job.Type {
	case models.ReminderHarvest:
		items, err := s.requests.HarvestInRange(ctx, &date, &date)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		for _, r := range items {
			if isUpcoming(r.Status) {
				userIDs = append(userIDs, r.UserID)
			}
		}
		title, message = titleHarvestReminder, fmt.Sprintf(harvestReminderFormat, date)
	case models.ReminderOricon:
		items, err := s.requests.RentalsInRange(ctx, &date, &date)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		for _, r := range items {
			if isUpcoming(r.Status) && r.PickupDate.Equal(date) {
				userIDs = append(userIDs, r.UserID)
			}
		}
		title, message = titleOriconReminder, fmt.Sprintf(oriconReminderFormat, date)
	case models.ReminderCustom:
		message = strings.TrimSpace(job.CustomMessage)
		if message == "" {
			return nil, apperr.Validation("custom_message is required for custom reminders")
		}
		title, recipients = titleCustomReminder, models.RecipientsAll
	default:
		return nil, apperr.Validation("type must be one of: harvest, oricon, custom")
	}

	var users []models.User
	if job.Type == models.ReminderCustom {
		users, err = s.users.ListActiveUsers(ctx)
	} else {
		if len(userIDs) == 0 {
			log.Info("no requests scheduled for reminder date", slog.String("date", date.String()))
			return nil, fmt.Errorf("%s: %w", op, apperr.ErrNoRecipients)
		}
		slices.Sort(userIDs)
		userIDs = slices.Compact(userIDs)
		users, err = s.users.UsersByIDs(ctx, userIDs)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	targets := make([]models.User, 0, len(users))
	for _, u := range users {
		if u.LineID != "" && u.IsActive() {
			targets = append(targets, u)
		}
	}
	if len(targets) == 0 {
		return nil, fmt.Errorf("%s: %w", op, apperr.ErrNoRecipients)
	}

	st := s.broadcast(ctx, targets, "⏰ "+title+"\n\n"+message)
	n := models.Notification{
		Title:       title,
		Message:     message,
		Recipients:  recipients,
		SentCount:   st.Sent,
		FailedCount: st.Failed,
		TotalCount:  st.Total,
		CreatedBy:   job.RequestedBy,
	}
	if job.Type != models.ReminderCustom {
		n.RecipientUserIDs = userIDs
	}
	saved, err := s.repo.CreateNotification(ctx, n)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("reminder sent",
		slog.String("recipients", recipients),
		slog.Int("sent", st.Sent),
		slog.Int("failed", st.Failed),
		slog.Int("total", st.Total),
	)
	return &Result{Notification: saved, Delivery: &st}, nil
}

// HandleReminderMessage обрабатывает задание из очереди. Некорректные задания
// и задания без получателей подтверждаются, чтобы не зацикливать повторную доставку.
func (s *Service) HandleReminderMessage(ctx context.Context, body []byte) error {
	const op = "services.notification.HandleReminderMessage"

	var job models.ReminderJob
	if err := json.Unmarshal(body, &job); err != nil {
		s.log.Error("failed to unmarshal reminder job", slog.String("op", op), sl.Err(err))
		return nil
	}

	_, err := s.SendReminder(ctx, job)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, apperr.ErrNoRecipients):
		s.log.Info("reminder skipped, no recipients", slog.String("job_id", job.ID), slog.String("target_date", job.TargetDate))
		return nil
	case apperr.KindOf(err) == apperr.KindValidation:
		s.log.Error("invalid reminder job dropped", slog.String("job_id", job.ID), sl.Err(err))
		return nil
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

func isUpcoming(s models.Status) bool {
	return s == models.StatusPending || s == models.StatusApproved
}
