package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	reminderscheduler "github.com/magabrotheeeer/harvest-tracker/internal/app/reminder-scheduler"
	"github.com/magabrotheeeer/harvest-tracker/internal/config"
	"github.com/magabrotheeeer/harvest-tracker/internal/lib/sl"
)

func main() {
	cfg := config.MustLoad()
	logger := sl.New(os.Stdout, cfg.Log.Level, cfg.Log.Format)

	logger.Info("starting reminder scheduler", slog.String("env", cfg.Env))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := reminderscheduler.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize scheduler app", sl.Err(err))
		os.Exit(1)
	}

	if err := app.Run(ctx); err != nil {
		logger.Error("scheduler app stopped with error", sl.Err(err))
		os.Exit(1)
	}

	logger.Info("scheduler app stopped gracefully")
}
