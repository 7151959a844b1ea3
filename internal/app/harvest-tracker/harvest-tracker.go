package harvesttracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/magabrotheeeer/harvest-tracker/internal/cache"
	"github.com/magabrotheeeer/harvest-tracker/internal/config"
	adminhandler "github.com/magabrotheeeer/harvest-tracker/internal/http/handlers/admin"
	authhandler "github.com/magabrotheeeer/harvest-tracker/internal/http/handlers/auth"
	harvesthandler "github.com/magabrotheeeer/harvest-tracker/internal/http/handlers/harvest"
	"github.com/magabrotheeeer/harvest-tracker/internal/http/handlers/health"
	rentalhandler "github.com/magabrotheeeer/harvest-tracker/internal/http/handlers/rental"
	usershandler "github.com/magabrotheeeer/harvest-tracker/internal/http/handlers/users"
	vegetableshandler "github.com/magabrotheeeer/harvest-tracker/internal/http/handlers/vegetables"
	"github.com/magabrotheeeer/harvest-tracker/internal/http/handlers/webhook"
	"github.com/magabrotheeeer/harvest-tracker/internal/http/middlewarectx"
	"github.com/magabrotheeeer/harvest-tracker/internal/lib/jwt"
	"github.com/magabrotheeeer/harvest-tracker/internal/lib/sl"
	"github.com/magabrotheeeer/harvest-tracker/internal/line"
	"github.com/magabrotheeeer/harvest-tracker/internal/metrics"
	"github.com/magabrotheeeer/harvest-tracker/internal/migrations"
	adminservice "github.com/magabrotheeeer/harvest-tracker/internal/services/admin"
	authservice "github.com/magabrotheeeer/harvest-tracker/internal/services/auth"
	harvestservice "github.com/magabrotheeeer/harvest-tracker/internal/services/harvest"
	"github.com/magabrotheeeer/harvest-tracker/internal/services/messaging"
	"github.com/magabrotheeeer/harvest-tracker/internal/services/notification"
	rentalservice "github.com/magabrotheeeer/harvest-tracker/internal/services/rental"
	vegetableservice "github.com/magabrotheeeer/harvest-tracker/internal/services/vegetable"
	"github.com/magabrotheeeer/harvest-tracker/internal/storage/repository"
)

const shutdownTimeout = 15 * time.Second

// App: HTTP API трекера заявок.
type App struct {
	server *http.Server
	logger *slog.Logger
	db     *repository.Storage
	cache  *cache.Cache
}

// New подключает хранилища, применяет миграции и собирает сервисы и маршруты.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect storage: %w", err)
	}
	if err = migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		closeResources(db, nil, logger)
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		closeResources(db, nil, logger)
		return nil, fmt.Errorf("cache not initialized: %w", err)
	}

	lineClient, err := line.NewClient(cfg.Line)
	if err != nil {
		closeResources(db, cacheRedis, logger)
		return nil, fmt.Errorf("line client not initialized: %w", err)
	}
	m := metrics.New(prometheus.DefaultRegisterer)
	jwtMaker := jwt.NewJWTMaker(cfg.JWTSecretKey, cfg.TokenTTL,
		jwt.WithIssuer(cfg.Issuer),
		jwt.WithAudience(cfg.Audience),
	)

	authService := authservice.NewAuthService(db, jwtMaker, cacheRedis, lineClient, authservice.Options{
		AdminLineIDs:     cfg.AdminLineIDs,
		StateTTL:         cfg.StateTTL,
		TestLoginEnabled: cfg.TestLoginEnabled,
	}, logger)
	vegetableService := vegetableservice.NewVegetableService(db, cacheRedis, logger)
	harvestService := harvestservice.NewHarvestService(db, vegetableService, m, nil, logger)
	rentalService := rentalservice.NewRentalService(db, m, nil, logger)
	messagingService := messaging.NewMessagingService(lineClient, authService, db, m, messaging.Options{
		ChannelSecret: cfg.ChannelSecret,
		BaseURL:       cfg.BaseURL,
		BulkDelay:     cfg.BulkPushDelay,
	}, logger)
	notificationService := notification.NewNotificationService(db, db, db, messagingService, logger)
	adminService := adminservice.NewAdminService(db, db, db, db, nil, logger)

	router := chi.NewRouter()
	RegisterRoutes(router, logger, authService, Handlers{
		Auth:       authhandler.New(logger, authService),
		Harvest:    harvesthandler.New(logger, harvestService),
		Rental:     rentalhandler.New(logger, rentalService),
		Vegetables: vegetableshandler.New(logger, vegetableService),
		Users:      usershandler.New(logger, adminService),
		Admin:      adminhandler.New(logger, adminService, notificationService),
		Webhook:    webhook.New(logger, messagingService),
		Health:     health.New(logger, db),
	}, RouterOptions{
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		ExposeErrorDetail:  cfg.IsDevelopment(),
		Limiter:            middlewarectx.NewIPLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst),
		Metrics:            m,
	})

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server: srv,
		logger: logger,
		db:     db,
		cache:  cacheRedis,
	}, nil
}

// Run обслуживает запросы до отмены ctx, затем останавливает сервер
// и закрывает соединения.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		closeResources(a.db, a.cache, a.logger)
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		closeResources(a.db, a.cache, a.logger)
		return err
	}
}

func closeResources(db *repository.Storage, c *cache.Cache, logger *slog.Logger) {
	if c != nil {
		if err := c.Close(); err != nil {
			logger.Error("failed to close cache", sl.Err(err))
		}
	}
	if db != nil {
		if err := db.Close(); err != nil {
			logger.Error("failed to close storage", sl.Err(err))
		}
	}
}
