// Package vegetables реализует HTTP-обработчики справочника овощей.
package vegetables

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/harvest-tracker/internal/http/request"
	"github.com/magabrotheeeer/harvest-tracker/internal/http/response"
	"github.com/magabrotheeeer/harvest-tracker/internal/lib/apperr"
	"github.com/magabrotheeeer/harvest-tracker/internal/lib/sl"
	"github.com/magabrotheeeer/harvest-tracker/internal/models"
)

// Service описывает операции справочника.
type Service interface {
	ListActive(ctx context.Context) ([]models.Vegetable, error)
	List(ctx context.Context, includeInactive bool) ([]models.Vegetable, error)
	Create(ctx context.Context, req models.VegetableRequest) (*models.Vegetable, error)
	Rename(ctx context.Context, id int64, req models.VegetableRequest) (*models.Vegetable, error)
	Delete(ctx context.Context, id int64) error
}

// Handler обрабатывает запросы справочника овощей.
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

func (h *Handler) logger(r *http.Request, op string) *slog.Logger {
	return h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)
}

// ListActive godoc
// @Summary Активные овощи
// @Description Список для формы заявки.
// @Tags Vegetables
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /vegetables [get]
func (h *Handler) ListActive(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListActive(r.Context())
	if err != nil {
		h.logger(r, "handlers.vegetables.ListActive").Error("failed to list vegetables", sl.Err(err))
		response.Fail(w, r, err)
		return
	}
	render.JSON(w, r, response.OK(list))
}

// List godoc
// @Summary Справочник овощей
// @Tags Vegetables
// @Produce  json
// @Security BearerAuth
// @Param include_inactive query bool false "Включая отключённые"
// @Success 200 {object} response.Response
// @Router /admin/vegetables [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.vegetables.List")

	var includeInactive bool
	if v := r.URL.Query().Get("include_inactive"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			log.Error("invalid include_inactive", sl.Err(err))
			response.Fail(w, r, apperr.Validation("include_inactive must be a boolean"))
			return
		}
		includeInactive = b
	}

	list, err := h.service.List(r.Context(), includeInactive)
	if err != nil {
		log.Error("failed to list vegetables", sl.Err(err))
		response.Fail(w, r, err)
		return
	}
	render.JSON(w, r, response.OK(list))
}

// Create godoc
// @Summary Добавить овощ
// @Tags Vegetables
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param request body models.VegetableRequest true "Название"
// @Success 201 {object} response.Response
// @Failure 409 {object} response.ErrorResponse "Такой овощ уже есть"
// @Router /admin/vegetables [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.vegetables.Create")

	var req models.VegetableRequest
	if err := request.DecodeJSON(w, r, h.validate, &req); err != nil {
		log.Error("invalid request", sl.Err(err))
		response.Fail(w, r, err)
		return
	}

	created, err := h.service.Create(r.Context(), req)
	if err != nil {
		log.Error("failed to create vegetable", sl.Err(err))
		response.Fail(w, r, err)
		return
	}

	log.Info("vegetable created", slog.Int64("id", created.ID))
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response.OKWithMessage(created, "vegetable created"))
}

// Rename godoc
// @Summary Переименовать овощ
// @Tags Vegetables
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param id path int true "ID овоща"
// @Param request body models.VegetableRequest true "Новое название"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.ErrorResponse "Не найден"
// @Failure 409 {object} response.ErrorResponse "Такой овощ уже есть"
// @Router /admin/vegetables/{id} [put]
func (h *Handler) Rename(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.vegetables.Rename")

	id, err := request.ID(r, "id")
	if err != nil {
		response.Fail(w, r, err)
		return
	}

	var req models.VegetableRequest
	if err = request.DecodeJSON(w, r, h.validate, &req); err != nil {
		log.Error("invalid request", sl.Err(err))
		response.Fail(w, r, err)
		return
	}

	updated, err := h.service.Rename(r.Context(), id, req)
	if err != nil {
		log.Error("failed to rename vegetable", slog.Int64("id", id), sl.Err(err))
		response.Fail(w, r, err)
		return
	}
	render.JSON(w, r, response.OKWithMessage(updated, "vegetable updated"))
}

// Delete godoc
// @Summary Отключить овощ
// @Description Мягкое удаление. Овощ, на который ссылаются заявки, удалить нельзя.
// @Tags Vegetables
// @Produce  json
// @Security BearerAuth
// @Param id path int true "ID овоща"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.ErrorResponse "Не найден"
// @Failure 409 {object} response.ErrorResponse "Используется в заявках"
// @Router /admin/vegetables/{id} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.vegetables.Delete")

	id, err := request.ID(r, "id")
	if err != nil {
		response.Fail(w, r, err)
		return
	}
	if err = h.service.Delete(r.Context(), id); err != nil {
		log.Error("failed to delete vegetable", slog.Int64("id", id), sl.Err(err))
		response.Fail(w, r, err)
		return
	}

	log.Info("vegetable deactivated", slog.Int64("id", id))
	render.JSON(w, r, response.OKWithMessage(map[string]any{"id": id}, "vegetable deleted"))
}
