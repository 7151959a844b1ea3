// Package main Harvest Tracker API
//
// @title           Harvest Tracker API
// @version         1.0
// @description     API для заявок на сбор урожая и аренду контейнеров (オリコン)

// @license.name  MIT
// @license.url   https://opensource.org/licenses/MIT

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	harvesttracker "github.com/magabrotheeeer/harvest-tracker/internal/app/harvest-tracker"
	"github.com/magabrotheeeer/harvest-tracker/internal/config"
	"github.com/magabrotheeeer/harvest-tracker/internal/lib/sl"
)

func main() {
	cfg := config.MustLoad()
	logger := sl.New(os.Stdout, cfg.Log.Level, cfg.Log.Format)

	logger.Info("starting harvest-tracker", slog.String("env", cfg.Env))
	logger.Debug("config loaded", slog.String("config", cfg.String()))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := harvesttracker.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize app", sl.Err(err))
		os.Exit(1)
	}

	if err := app.Run(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("app stopped with error", sl.Err(err))
		os.Exit(1)
	}

	logger.Info("harvest-tracker stopped gracefully")
}
