// Package users реализует HTTP-обработчики управления пользователями.
package users

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
)

// Service описывает операции с пользователями.
type Service interface {
	ListUsers(ctx context.Context) ([]models.User, error)
	CreateUser(ctx context.Context, req models.UserCreate) (*models.User, error)
	UpdateUser(ctx context.Context, caller models.Caller, id int64, patch models.UserPatch) (*models.User, error)
}

// Handler обрабатывает запросы управления пользователями.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: request.NewValidator(),
	}
}

// List godoc
// @Summary Список пользователей
// @Tags Users
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Failure 403 {object} response.ErrorResponse "Требуются права администратора"
// @Router /admin/users [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.users.List"

	list, err := h.service.ListUsers(r.Context())
	if err != nil {
		h.log.Error("failed to list users", slog.String("op", op), sl.Err(err))
		response.Fail(w, r, err)
		return
	}
	render.JSON(w, r, response.OK(map[string]any{
		"users": list,
		"total": len(list),
	}))
}

// Create godoc
// @Summary Создать пользователя
// @Tags Users
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param request body models.UserCreate true "Пользователь"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 409 {object} response.ErrorResponse "LINE ID уже зарегистрирован"
// @Router /admin/users [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.users.Create"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.UserCreate
	if err := request.DecodeJSON(w, r, h.validate, &req); err != nil {
		log.Error("invalid request", sl.Err(err))
		response.Fail(w, r, err)
		return
	}

	created, err := h.service.CreateUser(r.Context(), req)
	if err != nil {
		log.Error("failed to create user", sl.Err(err))
		response.Fail(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response.OKWithMessage(created, "user created"))
}

// Update godoc
// @Summary Изменить пользователя
// @Description Пользователь может менять своё имя. Роль и статус меняет только администратор, но не себе.
// @Tags Users
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param id path int true "ID пользователя"
// @Param request body models.UserPatch true "Изменяемые поля"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 403 {object} response.ErrorResponse "Недостаточно прав"
// @Failure 404 {object} response.ErrorResponse "Пользователь не найден"
// @Router /users/{id} [put]
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.users.Update"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	caller, ok := middlewarectx.CallerFrom(r.Context())
	if !ok {
		response.Fail(w, r, apperr.ErrMissingCredentials)
		return
	}

	id, err := request.ID(r, "id")
	if err != nil {
		response.Fail(w, r, err)
		return
	}

	var patch models.UserPatch
	if err = request.DecodeJSON(w, r, h.validate, &patch); err != nil {
		log.Error("invalid request", sl.Err(err))
		response.Fail(w, r, err)
		return
	}

	updated, err := h.service.UpdateUser(r.Context(), caller, id, patch)
	if err != nil {
		log.Error("failed to update user", slog.Int64("id", id), sl.Err(err))
		response.Fail(w, r, err)
		return
	}
	render.JSON(w, r, response.OKWithMessage(updated, "user updated"))
}
