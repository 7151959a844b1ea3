// Package middlewarectx содержит HTTP middleware для аутентификации,
// проверки статуса и роли пользователя, ограничения частоты запросов и
// учёта метрик.
//
// JWTMiddleware извлекает токен из заголовка Authorization или параметра
// ?token=, проверяет его и кладёт в контекст личность вызывающего
// (models.Caller). Остальные middleware читают её через CallerFrom.
package middlewarectx

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/middleware"

	"github.com/magabrotheeeer/harvest-tracker/internal/http/response"
	"github.com/magabrotheeeer/harvest-tracker/internal/lib/apperr"
	"github.com/magabrotheeeer/harvest-tracker/internal/lib/sl"
	"github.com/magabrotheeeer/harvest-tracker/internal/models"
)

// Key тип для ключей контекста HTTP-запроса.
type Key string

// CallerKey: ключ личности вызывающего в контексте.
const CallerKey Key = "caller"

// TokenVerifier описывает проверку JWT токена.
type TokenVerifier interface {
	VerifyToken(token string) (models.Caller, error)
}

// WithCaller возвращает контекст с личностью вызывающего.
func WithCaller(ctx context.Context, caller models.Caller) context.Context {
	return context.WithValue(ctx, CallerKey, caller)
}

// CallerFrom извлекает личность вызывающего из контекста.
func CallerFrom(ctx context.Context) (models.Caller, bool) {
	caller, ok := ctx.Value(CallerKey).(models.Caller)
	return caller, ok && caller.UserID != 0
}

// ExtractToken возвращает токен из заголовка Authorization или параметра token.
func ExtractToken(r *http.Request) string {
	if h := strings.TrimSpace(r.Header.Get("Authorization")); h != "" {
		return h
	}
	return strings.TrimSpace(r.URL.Query().Get("token"))
}

// JWTMiddleware возвращает HTTP middleware, который проверяет JWT токен.
//
// Если токен валиден, добавляет личность вызывающего в контекст запроса,
// иначе возвращает ошибку с HTTP статусом 401 Unauthorized.
func JWTMiddleware(verifier TokenVerifier, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.JWTMiddleware"

			log := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			token := ExtractToken(r)
			if token == "" {
				log.Warn("missing credentials")
				response.Fail(w, r, apperr.ErrMissingCredentials)
				return
			}

			caller, err := verifier.VerifyToken(token)
			if err != nil {
				log.Warn("invalid token", sl.Err(err))
				response.Fail(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithCaller(r.Context(), caller)))
		})
	}
}
