// Package auth реализует HTTP-обработчики входа: тестовый вход по LINE ID,
// ссылку и callback LINE Login, а также профиль текущего пользователя.
//
// При успешном входе возвращается JSON вида {success, user, token, expiresIn};
// в случае ошибок формируется унифицированный ответ с кодом ошибки.
package auth

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/harvest-tracker/internal/http/middlewarectx"
	"github.com/magabrotheeeer/harvest-tracker/internal/http/request"
	"github.com/magabrotheeeer/harvest-tracker/internal/http/response"
	"github.com/magabrotheeeer/harvest-tracker/internal/lib/apperr"
	"github.com/magabrotheeeer/harvest-tracker/internal/lib/sl"
	"github.com/magabrotheeeer/harvest-tracker/internal/models"
	authsvc "github.com/magabrotheeeer/harvest-tracker/internal/services/auth"
)

// Service описывает интерфейс бизнес-логики аутентификации.
type Service interface {
	TestLogin(ctx context.Context, req models.LoginRequest) (*authsvc.Session, error)
	LoginURL(ctx context.Context) (string, string, error)
	Callback(ctx context.Context, req models.CallbackRequest) (*authsvc.Session, error)
	Me(ctx context.Context, caller models.Caller) (*models.User, error)
}

// SessionResponse: ответ на успешный вход.
type SessionResponse struct {
	Success bool `json:"success"`
	*authsvc.Session
}

// Handler обрабатывает HTTP-запросы входа.
type Handler struct {
	log      *slog.Logger        // Логгер для записи операций и ошибок
	service  Service             // Сервис аутентификации
	validate *validator.Validate // Валидатор для проверки входных данных
}

// New создает новый экземпляр Handler с указанными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: request.NewValidator(),
	}
}

// Login godoc
// @Summary Тестовый вход
// @Description Вход по LINE ID и имени без OAuth. Доступен, только если включён в конфигурации.
// @Tags Auth
// @Accept  json
// @Produce  json
// @Param request body models.LoginRequest true "LINE ID и имя"
// @Success 200 {object} SessionResponse
// @Failure 400 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 403 {object} response.ErrorResponse "Вход отключён или пользователь неактивен"
// @Router /auth/login [post]
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.Login"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.LoginRequest
	if err := request.DecodeJSON(w, r, h.validate, &req); err != nil {
		log.Error("invalid request", sl.Err(err))
		response.Fail(w, r, err)
		return
	}

	session, err := h.service.TestLogin(r.Context(), req)
	if err != nil {
		log.Error("login failed", sl.Err(err))
		response.Fail(w, r, err)
		return
	}

	log.Info("login success", slog.Int64("user_id", session.User.ID))
	render.JSON(w, r, SessionResponse{Success: true, Session: session})
}

// LoginURL godoc
// @Summary Ссылка LINE Login
// @Description Создаёт одноразовый state и возвращает ссылку авторизации LINE Login.
// @Tags Auth
// @Produce  json
// @Success 200 {object} response.Response
// @Failure 502 {object} response.ErrorResponse "Хранилище state недоступно"
// @Router /auth/line [get]
func (h *Handler) LoginURL(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.LoginURL"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	url, state, err := h.service.LoginURL(r.Context())
	if err != nil {
		log.Error("failed to create login url", sl.Err(err))
		response.Fail(w, r, err)
		return
	}

	render.JSON(w, r, response.OK(map[string]any{
		"url":   url,
		"state": state,
	}))
}

// Callback godoc
// @Summary Завершение LINE Login
// @Description Проверяет state, обменивает код на токен LINE, находит или создаёт пользователя и выпускает JWT.
// @Tags Auth
// @Accept  json
// @Produce  json
// @Param request body models.CallbackRequest true "Код и state"
// @Success 200 {object} SessionResponse
// @Failure 400 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 401 {object} response.ErrorResponse "Неизвестный или просроченный state"
// @Failure 502 {object} response.ErrorResponse "Ошибка LINE"
// @Router /auth/callback [post]
func (h *Handler) Callback(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.Callback"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.CallbackRequest
	if err := request.DecodeJSON(w, r, h.validate, &req); err != nil {
		log.Error("invalid request", sl.Err(err))
		response.Fail(w, r, err)
		return
	}

	session, err := h.service.Callback(r.Context(), req)
	if err != nil {
		log.Error("callback failed", sl.Err(err))
		response.Fail(w, r, err)
		return
	}

	log.Info("line login success", slog.Int64("user_id", session.User.ID))
	render.JSON(w, r, SessionResponse{Success: true, Session: session})
}

// Me godoc
// @Summary Текущий пользователь
// @Tags Auth
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Failure 401 {object} response.ErrorResponse "Нет токена"
// @Router /auth/me [get]
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.Me"

	caller, ok := middlewarectx.CallerFrom(r.Context())
	if !ok {
		h.log.Error("caller not found in context", slog.String("op", op))
		response.Fail(w, r, apperr.ErrMissingCredentials)
		return
	}

	user, err := h.service.Me(r.Context(), caller)
	if err != nil {
		h.log.Error("failed to load user", slog.String("op", op), sl.Err(err))
		response.Fail(w, r, err)
		return
	}
	render.JSON(w, r, response.OK(user))
}
