package middlewarectx

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"

	"github.com/magabrotheeeer/harvest-tracker/internal/http/response"
	"github.com/magabrotheeeer/harvest-tracker/internal/lib/apperr"
	"github.com/magabrotheeeer/harvest-tracker/internal/lib/sl"
	"github.com/magabrotheeeer/harvest-tracker/internal/models"
)

// Authorizer перечитывает пользователя и проверяет его права.
type Authorizer interface {
	// Resolve возвращает актуальные роль и статус вызывающего.
	Resolve(ctx context.Context, caller models.Caller) (models.Caller, error)
	// Authorize проверяет статус и требуемую роль.
	Authorize(caller models.Caller, required models.Role) error
}

// UserStatusMiddleware создает middleware, который перечитывает пользователя из
// базы: заблокированный или отключённый пользователь теряет доступ сразу,
// не дожидаясь истечения токена.
func UserStatusMiddleware(log *slog.Logger, authz Authorizer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.UserStatusMiddleware"

			log := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			caller, ok := CallerFrom(r.Context())
			if !ok {
				log.Error("user identification missing")
				response.Fail(w, r, apperr.ErrMissingCredentials)
				return
			}

			current, err := authz.Resolve(r.Context(), caller)
			if err != nil {
				log.Error("failed to resolve user", sl.Err(err))
				response.Fail(w, r, err)
				return
			}

			if err = authz.Authorize(current, ""); err != nil {
				log.Warn("access denied", slog.Int64("user_id", current.UserID), sl.Err(err))
				response.Fail(w, r, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithCaller(r.Context(), current)))
		})
	}
}

// RequireRole создает middleware, пропускающий только вызывающих с ролью role.
func RequireRole(log *slog.Logger, authz Authorizer, role models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			caller, ok := CallerFrom(r.Context())
			if !ok {
				response.Fail(w, r, apperr.ErrMissingCredentials)
				return
			}
			if err := authz.Authorize(caller, role); err != nil {
				log.Warn("role check failed",
					slog.Int64("user_id", caller.UserID),
					slog.String("required", string(role)),
					slog.String("request_id", middleware.GetReqID(r.Context())),
				)
				response.Fail(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
