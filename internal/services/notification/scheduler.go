package notification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/harvest-tracker/internal/lib/day"
	"github.com/magabrotheeeer/harvest-tracker/internal/lib/sl"
	"github.com/magabrotheeeer/harvest-tracker/internal/models"
)

// Publisher ставит задания напоминаний в очередь.
type Publisher interface {
	PublishReminder(ctx context.Context, job models.ReminderJob) error
}

// SchedulerOptions задаёт период запуска и упреждение в днях.
type SchedulerOptions struct {
	Interval time.Duration
	LeadDays int
}

// Scheduler периодически публикует задания напоминаний о сборах и выдаче
// контейнеров на дату today+LeadDays.
type Scheduler struct {
	publisher Publisher
	interval  time.Duration
	leadDays  int
	now       day.Clock
	log       *slog.Logger
}

// NewScheduler создает планировщик. clock может быть nil.
func NewScheduler(publisher Publisher, opts SchedulerOptions, clock day.Clock, log *slog.Logger) *Scheduler {
	if opts.Interval <= 0 {
		opts.Interval = 24 * time.Hour
	}
	if opts.LeadDays < 0 {
		opts.LeadDays = 0
	}
	return &Scheduler{
		publisher: publisher,
		interval:  opts.Interval,
		leadDays:  opts.LeadDays,
		now:       clock,
		log:       log,
	}
}

// Run публикует задания сразу и далее раз в interval до отмены ctx.
func (s *Scheduler) Run(ctx context.Context) {
	s.runOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("reminder scheduler stopped")
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	if _, err := s.Publish(ctx); err != nil {
		s.log.Error("failed to publish reminder jobs", sl.Err(err))
	}
}

// Publish ставит в очередь задания harvest и oricon на целевую дату.
// Ошибка одного задания не мешает публикации другого.
func (s *Scheduler) Publish(ctx context.Context) ([]models.ReminderJob, error) {
	const op = "services.notification.Scheduler.Publish"

	target := day.Today(s.now).AddDays(s.leadDays).String()
	s.log.Info("publishing reminder jobs", slog.String("target_date", target))

	published := make([]models.ReminderJob, 0, 2)
	var errs []error
	for _, typ := range []string{models.ReminderHarvest, models.ReminderOricon} {
		job := models.ReminderJob{
			ID:         uuid.NewString(),
			Type:       typ,
			TargetDate: target,
		}
		if err := s.publisher.PublishReminder(ctx, job); err != nil {
			errs = append(errs, fmt.Errorf("%s: %s: %w", op, typ, err))
			continue
		}
		published = append(published, job)
	}
	return published, errors.Join(errs...)
}
