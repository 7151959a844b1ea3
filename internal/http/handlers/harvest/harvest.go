// Package harvest реализует HTTP-обработчики заявок на сбор урожая:
// создание, список, изменение, удаление и смену статуса администратором.
package harvest

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
	"github.com/magabrotheeeer/harvest-tracker/internal/services/lifecycle"
)

// Service описывает интерфейс бизнес-логики заявок на сбор урожая.
type Service interface {
	Submit(ctx context.Context, caller models.Caller, req models.HarvestSubmit) (*models.HarvestRequest, error)
	List(ctx context.Context, caller models.Caller, f models.ListFilter) (*models.Page[models.HarvestRequest], error)
	Update(ctx context.Context, caller models.Caller, id int64, patch models.HarvestPatch) (*models.HarvestRequest, error)
	SoftDelete(ctx context.Context, caller models.Caller, id int64) error
	SetStatus(ctx context.Context, caller models.Caller, id int64, to models.Status) (*models.HarvestRequest, error)
}

// Handler управляет HTTP-запросами заявок на сбор урожая.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// New создает новый Handler с переданными логгером и сервисом.
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

// Submit godoc
// @Summary Создать заявку на сбор урожая
// @Description Овощ должен быть в активном справочнике, дата не раньше сегодняшней, количество от 1 до 9999.
// @Tags Harvest
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param request body models.HarvestSubmit true "Данные заявки"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 409 {object} response.ErrorResponse "Такая заявка уже есть"
// @Router /harvest/submit [post]
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.harvest.Submit")

	caller, ok := middlewarectx.CallerFrom(r.Context())
	if !ok {
		log.Error("caller not found in context")
		response.Fail(w, r, apperr.ErrMissingCredentials)
		return
	}

	var req models.HarvestSubmit
	if err := request.DecodeJSON(w, r, h.validate, &req); err != nil {
		log.Error("invalid request", sl.Err(err))
		response.Fail(w, r, err)
		return
	}

	created, err := h.service.Submit(r.Context(), caller, req)
	if err != nil {
		log.Error("failed to submit harvest request", sl.Err(err))
		response.Fail(w, r, err)
		return
	}

	log.Info("harvest request submitted", slog.Int64("id", created.ID))
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response.OKWithMessage(created, "harvest request submitted"))
}

// List godoc
// @Summary Список заявок на сбор урожая
// @Description Пользователь видит только свои заявки, администратор может фильтровать по user_id.
// @Tags Harvest
// @Produce  json
// @Security BearerAuth
// @Param user_id query int false "Владелец (только администратор)"
// @Param start_date query string false "Дата с (YYYY-MM-DD)"
// @Param end_date query string false "Дата по (YYYY-MM-DD)"
// @Param status query string false "Статус"
// @Param limit query int false "Размер страницы (1..1000, по умолчанию 50)"
// @Param offset query int false "Смещение"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.ErrorResponse "Некорректные параметры"
// @Router /harvest/list [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.harvest.List")

	caller, ok := middlewarectx.CallerFrom(r.Context())
	if !ok {
		log.Error("caller not found in context")
		response.Fail(w, r, apperr.ErrMissingCredentials)
		return
	}

	f, err := lifecycle.FilterFromQuery(r.URL.Query())
	if err != nil {
		log.Error("invalid query", sl.Err(err))
		response.Fail(w, r, err)
		return
	}

	page, err := h.service.List(r.Context(), caller, f)
	if err != nil {
		log.Error("failed to list harvest requests", sl.Err(err))
		response.Fail(w, r, err)
		return
	}

	log.Debug("harvest requests listed", slog.Int("count", len(page.Items)), slog.Int("total", page.Total))
	render.JSON(w, r, response.OK(page))
}

// Update godoc
// @Summary Изменить заявку на сбор урожая
// @Description Владелец может менять только заявку в статусе pending. Поля status и notes учитываются только для администратора.
// @Tags Harvest
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param id path int true "ID заявки"
// @Param request body models.HarvestPatch true "Изменяемые поля"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.ErrorResponse "Ошибка валидации или заявка уже обработана"
// @Failure 403 {object} response.ErrorResponse "Чужая заявка"
// @Failure 404 {object} response.ErrorResponse "Заявка не найдена"
// @Failure 409 {object} response.ErrorResponse "Такая заявка уже есть"
// @Router /harvest/{id} [put]
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.harvest.Update")

	caller, ok := middlewarectx.CallerFrom(r.Context())
	if !ok {
		log.Error("caller not found in context")
		response.Fail(w, r, apperr.ErrMissingCredentials)
		return
	}

	id, err := request.ID(r, "id")
	if err != nil {
		log.Error("invalid id", sl.Err(err))
		response.Fail(w, r, err)
		return
	}

	var patch models.HarvestPatch
	if err = request.DecodeJSON(w, r, h.validate, &patch); err != nil {
		log.Error("invalid request", sl.Err(err))
		response.Fail(w, r, err)
		return
	}

	updated, err := h.service.Update(r.Context(), caller, id, patch)
	if err != nil {
		log.Error("failed to update harvest request", slog.Int64("id", id), sl.Err(err))
		response.Fail(w, r, err)
		return
	}

	log.Info("harvest request updated", slog.Int64("id", id))
	render.JSON(w, r, response.OKWithMessage(updated, "harvest request updated"))
}

// Delete godoc
// @Summary Удалить заявку на сбор урожая
// @Description Мягкое удаление: статус меняется на deleted.
// @Tags Harvest
// @Produce  json
// @Security BearerAuth
// @Param id path int true "ID заявки"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.ErrorResponse "Чужая заявка"
// @Failure 404 {object} response.ErrorResponse "Заявка не найдена"
// @Router /harvest/{id} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.harvest.Delete")

	caller, ok := middlewarectx.CallerFrom(r.Context())
	if !ok {
		log.Error("caller not found in context")
		response.Fail(w, r, apperr.ErrMissingCredentials)
		return
	}

	id, err := request.ID(r, "id")
	if err != nil {
		log.Error("invalid id", sl.Err(err))
		response.Fail(w, r, err)
		return
	}

	if err = h.service.SoftDelete(r.Context(), caller, id); err != nil {
		log.Error("failed to delete harvest request", slog.Int64("id", id), sl.Err(err))
		response.Fail(w, r, err)
		return
	}

	log.Info("harvest request deleted", slog.Int64("id", id))
	render.JSON(w, r, response.OKWithMessage(map[string]any{"id": id}, "harvest request deleted"))
}

// SetStatus godoc
// @Summary Сменить статус заявки на сбор урожая
// @Description Допустимые переходы: pending → approved|rejected, approved → completed.
// @Tags Admin
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param id path int true "ID заявки"
// @Param request body models.StatusRequest true "Новый статус"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.ErrorResponse "Недопустимый переход"
// @Failure 403 {object} response.ErrorResponse "Требуются права администратора"
// @Failure 404 {object} response.ErrorResponse "Заявка не найдена"
// @Router /admin/harvest/{id}/status [put]
func (h *Handler) SetStatus(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.harvest.SetStatus")

	caller, ok := middlewarectx.CallerFrom(r.Context())
	if !ok {
		log.Error("caller not found in context")
		response.Fail(w, r, apperr.ErrMissingCredentials)
		return
	}

	id, err := request.ID(r, "id")
	if err != nil {
		log.Error("invalid id", sl.Err(err))
		response.Fail(w, r, err)
		return
	}

	var req models.StatusRequest
	if err = request.DecodeJSON(w, r, h.validate, &req); err != nil {
		log.Error("invalid request", sl.Err(err))
		response.Fail(w, r, err)
		return
	}

	updated, err := h.service.SetStatus(r.Context(), caller, id, req.Status)
	if err != nil {
		log.Error("failed to change status", slog.Int64("id", id), sl.Err(err))
		response.Fail(w, r, err)
		return
	}

	log.Info("harvest status changed", slog.Int64("id", id), slog.String("status", string(updated.Status)))
	render.JSON(w, r, response.OK(updated))
}
