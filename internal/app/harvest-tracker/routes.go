// Package harvesttracker собирает HTTP API: маршруты, middleware и зависимости.
package harvesttracker

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	// Регистрация swagger-документа.
	_ "github.com/magabrotheeeer/harvest-tracker/docs"
	adminhandler "github.com/magabrotheeeer/harvest-tracker/internal/http/handlers/admin"
	authhandler "github.com/magabrotheeeer/harvest-tracker/internal/http/handlers/auth"
	harvesthandler "github.com/magabrotheeeer/harvest-tracker/internal/http/handlers/harvest"
	"github.com/magabrotheeeer/harvest-tracker/internal/http/handlers/health"
	rentalhandler "github.com/magabrotheeeer/harvest-tracker/internal/http/handlers/rental"
	usershandler "github.com/magabrotheeeer/harvest-tracker/internal/http/handlers/users"
	vegetableshandler "github.com/magabrotheeeer/harvest-tracker/internal/http/handlers/vegetables"
	"github.com/magabrotheeeer/harvest-tracker/internal/http/handlers/webhook"
	"github.com/magabrotheeeer/harvest-tracker/internal/http/middlewarectx"
	"github.com/magabrotheeeer/harvest-tracker/internal/http/response"
	"github.com/magabrotheeeer/harvest-tracker/internal/models"
)

// Auth проверяет токены и права вызывающего.
type Auth interface {
	middlewarectx.TokenVerifier
	middlewarectx.Authorizer
}

// Handlers: обработчики, которые подключает RegisterRoutes.
type Handlers struct {
	Auth       *authhandler.Handler
	Harvest    *harvesthandler.Handler
	Rental     *rentalhandler.Handler
	Vegetables *vegetableshandler.Handler
	Users      *usershandler.Handler
	Admin      *adminhandler.Handler
	Webhook    *webhook.Handler
	Health     *health.Handler
}

// RouterOptions: настройки уровня маршрутизатора.
type RouterOptions struct {
	CORSAllowedOrigins []string
	ExposeErrorDetail  bool
	Limiter            *middlewarectx.IPLimiter
	Metrics            middlewarectx.HTTPObserver
}

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, log *slog.Logger, auth Auth, h Handlers, opts RouterOptions) {
	origins := opts.CORSAllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
		cors.Handler(cors.Options{
			AllowedOrigins: origins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", webhook.SignatureHeader},
			ExposedHeaders: []string{"Content-Disposition"},
			MaxAge:         300,
		}),
		response.WithDetail(opts.ExposeErrorDetail),
	)
	if opts.Metrics != nil {
		r.Use(middlewarectx.Metrics(opts.Metrics))
	}

	r.Route("/api/v1", func(r chi.Router) {
		// Webhook LINE приходит с адресов платформы и не ограничивается по IP.
		r.Post("/webhook/line", h.Webhook.ServeHTTP)

		r.Group(func(r chi.Router) {
			if opts.Limiter != nil {
				r.Use(middlewarectx.RateLimitMiddleware(log, opts.Limiter))
			}

			// Открытые конечные точки
			r.Get("/health", h.Health.ServeHTTP)
			r.Post("/auth/login", h.Auth.Login)
			r.Get("/auth/line", h.Auth.LoginURL)
			r.Post("/auth/callback", h.Auth.Callback)

			// Группа с JWT аутентификацией
			r.Group(func(r chi.Router) {
				r.Use(middlewarectx.JWTMiddleware(auth, log))
				r.Use(middlewarectx.UserStatusMiddleware(log, auth))

				r.Get("/auth/me", h.Auth.Me)

				r.Post("/harvest/submit", h.Harvest.Submit)
				r.Get("/harvest/list", h.Harvest.List)
				r.Put("/harvest/{id}", h.Harvest.Update)
				r.Delete("/harvest/{id}", h.Harvest.Delete)

				r.Post("/oricon/submit", h.Rental.Submit)
				r.Get("/oricon/list", h.Rental.List)
				r.Put("/oricon/{id}", h.Rental.Update)
				r.Delete("/oricon/{id}", h.Rental.Delete)

				r.Get("/vegetables", h.Vegetables.ListActive)
				r.Put("/users/{id}", h.Users.Update)

				// Только администраторы
				r.Route("/admin", func(r chi.Router) {
					r.Use(middlewarectx.RequireRole(log, auth, models.RoleAdmin))

					r.Get("/dashboard", h.Admin.Dashboard)
					r.Get("/reports/calendar", h.Admin.CalendarReport)

					r.Get("/users", h.Users.List)
					r.Post("/users", h.Users.Create)
					r.Put("/users/{id}", h.Users.Update)

					r.Get("/vegetables", h.Vegetables.List)
					r.Post("/vegetables", h.Vegetables.Create)
					r.Put("/vegetables/{id}", h.Vegetables.Rename)
					r.Delete("/vegetables/{id}", h.Vegetables.Delete)

					r.Get("/announcements", h.Admin.ListAnnouncements)
					r.Post("/announcements", h.Admin.CreateAnnouncement)
					r.Delete("/announcements/{id}", h.Admin.DeleteAnnouncement)
					r.Post("/reminders", h.Admin.SendReminder)

					r.Put("/harvest/{id}/status", h.Harvest.SetStatus)
					r.Put("/oricon/{id}/status", h.Rental.SetStatus)
				})
			})
		})
	})

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
