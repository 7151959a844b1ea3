// Package reminderscheduler содержит приложение, которое по расписанию
// ставит задания напоминаний в очередь RabbitMQ.
package reminderscheduler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/harvest-tracker/internal/config"
	"github.com/magabrotheeeer/harvest-tracker/internal/lib/sl"
	"github.com/magabrotheeeer/harvest-tracker/internal/rabbitmq"
	"github.com/magabrotheeeer/harvest-tracker/internal/services/notification"
)

// App представляет приложение планировщика.
type App struct {
	scheduler *notification.Scheduler
	conn      *amqp.Connection
	ch        *amqp.Channel
	logger    *slog.Logger
}

// New подключается к брокеру и создает планировщик.
func New(_ context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	conn, err := rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("failed to connect RabbitMQ: %w", err)
	}

	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.ReminderQueues())
	if err != nil {
		closeResources(nil, conn, logger)
		return nil, fmt.Errorf("failed to setup RabbitMQ channel: %w", err)
	}

	scheduler := notification.NewScheduler(rabbitmq.NewReminderPublisher(ch), notification.SchedulerOptions{
		Interval: cfg.Interval,
		LeadDays: cfg.LeadDays,
	}, nil, logger)

	return &App{
		scheduler: scheduler,
		conn:      conn,
		ch:        ch,
		logger:    logger,
	}, nil
}

func closeResources(ch *amqp.Channel, conn *amqp.Connection, logger *slog.Logger) {
	if ch != nil {
		if err := ch.Close(); err != nil {
			logger.Error("failed to close channel", sl.Err(err))
		}
	}
	if conn != nil {
		if err := conn.Close(); err != nil {
			logger.Error("failed to close connection", sl.Err(err))
		}
	}
}

// Run запускает планировщик и блокируется до отмены ctx.
func (a *App) Run(ctx context.Context) error {
	a.logger.Info("reminder scheduler started")
	a.scheduler.Run(ctx)

	a.logger.Info("shutting down reminder scheduler")
	closeResources(a.ch, a.conn, a.logger)
	return nil
}
