// Package notificationsender содержит приложение, которое читает задания
// напоминаний из RabbitMQ и рассылает их через LINE.
package notificationsender

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/harvest-tracker/internal/config"
	"github.com/magabrotheeeer/harvest-tracker/internal/lib/jwt"
	"github.com/magabrotheeeer/harvest-tracker/internal/lib/sl"
	"github.com/magabrotheeeer/harvest-tracker/internal/line"
	"github.com/magabrotheeeer/harvest-tracker/internal/metrics"
	"github.com/magabrotheeeer/harvest-tracker/internal/rabbitmq"
	authservice "github.com/magabrotheeeer/harvest-tracker/internal/services/auth"
	"github.com/magabrotheeeer/harvest-tracker/internal/services/messaging"
	"github.com/magabrotheeeer/harvest-tracker/internal/services/notification"
	"github.com/magabrotheeeer/harvest-tracker/internal/storage/repository"
)

const (
	dbReadyAttempts = 10
	dbReadyDelay    = 3 * time.Second
	shutdownTimeout = 5 * time.Second
	drainTimeout    = 2 * time.Minute
)

// App представляет приложение рассылки напоминаний.
type App struct {
	conn          *amqp.Connection
	ch            *amqp.Channel
	db            *repository.Storage
	notifications *notification.Service
	metricsServer *http.Server
	logger        *slog.Logger
}

func waitForDB(ctx context.Context, db *repository.Storage) error {
	for range dbReadyAttempts {
		if err := repository.CheckDatabaseReady(ctx, db); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(dbReadyDelay):
		}
	}
	return fmt.Errorf("database not ready after retries")
}

// New подключает базу и брокер и собирает сервис рассылки.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect storage: %w", err)
	}
	if err = waitForDB(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	conn, err := rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect RabbitMQ: %w", err)
	}
	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.ReminderQueues())
	if err != nil {
		closeResources(nil, conn, db, logger)
		return nil, fmt.Errorf("failed to setup RabbitMQ channel: %w", err)
	}

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	lineClient, err := line.NewClient(cfg.Line)
	if err != nil {
		closeResources(ch, conn, db, logger)
		return nil, fmt.Errorf("line client not initialized: %w", err)
	}
	jwtMaker := jwt.NewJWTMaker(cfg.JWTSecretKey, cfg.TokenTTL,
		jwt.WithIssuer(cfg.Issuer),
		jwt.WithAudience(cfg.Audience),
	)
	// Вход через LINE Login воркеру не нужен: хранилище state не передаётся.
	authService := authservice.NewAuthService(db, jwtMaker, nil, lineClient, authservice.Options{
		AdminLineIDs: cfg.AdminLineIDs,
	}, logger)
	messagingService := messaging.NewMessagingService(lineClient, authService, db, m, messaging.Options{
		ChannelSecret: cfg.ChannelSecret,
		BaseURL:       cfg.BaseURL,
		BulkDelay:     cfg.BulkPushDelay,
	}, logger)
	notificationService := notification.NewNotificationService(db, db, db, messagingService, logger)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	return &App{
		conn:          conn,
		ch:            ch,
		db:            db,
		notifications: notificationService,
		metricsServer: &http.Server{
			Addr:              cfg.MetricsAddress,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: logger,
	}, nil
}

// Run подписывается на очередь напоминаний и блокируется до отмены ctx.
func (a *App) Run(ctx context.Context) error {
	consumer, err := rabbitmq.ConsumerMessage(ctx, a.ch, rabbitmq.ReminderQueue, a.notifications.HandleReminderMessage, a.logger)
	if err != nil {
		a.logger.Error("failed to start reminder consumer", sl.Err(err))
		closeResources(a.ch, a.conn, a.db, a.logger)
		return err
	}

	go func() {
		a.logger.Info("metrics server starting on", slog.String("address", a.metricsServer.Addr))
		if err := a.metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("metrics server stopped", sl.Err(err))
		}
	}()

	<-ctx.Done()
	a.logger.Info("notification sender shutting down gracefully")

	timeoutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.metricsServer.Shutdown(timeoutCtx); err != nil {
		a.logger.Error("failed to stop metrics server", sl.Err(err))
	}

	// Рассылки, начатые до остановки, доводятся до конца и подтверждаются.
	drainCtx, drainCancel := context.WithTimeout(context.Background(), drainTimeout)
	defer drainCancel()
	if err := consumer.Wait(drainCtx); err != nil {
		a.logger.Warn("reminder handlers did not finish before shutdown", sl.Err(err))
	}
	closeResources(a.ch, a.conn, a.db, a.logger)
	return nil
}

func closeResources(ch *amqp.Channel, conn *amqp.Connection, db *repository.Storage, logger *slog.Logger) {
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
	if db != nil {
		if err := db.Close(); err != nil {
			logger.Error("failed to close storage", sl.Err(err))
		}
	}
}
