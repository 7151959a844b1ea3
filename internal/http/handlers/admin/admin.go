// Package admin реализует HTTP-обработчики панели администратора: сводку,
// календарный отчёт, объявления и напоминания.
package admin

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/harvest-tracker/internal/http/middlewarectx"
	"github.com/magabrotheeeer/harvest-tracker/internal/http/request"
	"github.com/magabrotheeeer/harvest-tracker/internal/http/response"
	"github.com/magabrotheeeer/harvest-tracker/internal/lib/apperr"
	"github.com/magabrotheeeer/harvest-tracker/internal/lib/sl"
	"github.com/magabrotheeeer/harvest-tracker/internal/models"
	adminsvc "github.com/magabrotheeeer/harvest-tracker/internal/services/admin"
	"github.com/magabrotheeeer/harvest-tracker/internal/services/notification"
)

// ReportService строит сводку и отчёты.
type ReportService interface {
	Dashboard(ctx context.Context) (*models.DashboardSummary, error)
	ExportCalendar(ctx context.Context, monthKey, format string) (*adminsvc.Report, error)
}

// NotificationService управляет объявлениями и напоминаниями.
type NotificationService interface {
	CreateAnnouncement(ctx context.Context, caller models.Caller, req models.AnnouncementRequest) (*notification.Result, error)
	List(ctx context.Context, limit, offset int) (*models.Page[models.Notification], error)
	Delete(ctx context.Context, id int64) error
	Remind(ctx context.Context, caller models.Caller, req models.ReminderRequest) (*notification.Result, error)
}

// Handler обрабатывает запросы панели администратора.
type Handler struct {
	log           *slog.Logger
	reports       ReportService
	notifications NotificationService
	validate      *validator.Validate
}

// New создает новый Handler.
func New(log *slog.Logger, reports ReportService, notifications NotificationService) *Handler {
	return &Handler{
		log:           log,
		reports:       reports,
		notifications: notifications,
		validate:      request.NewValidator(),
	}
}

func (h *Handler) logger(r *http.Request, op string) *slog.Logger {
	return h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)
}

// Dashboard godoc
// @Summary Сводка для панели администратора
// @Description Счётчики пользователей и заявок, активность за 7 дней, расписание на сегодня и топ-10 овощей.
// @Tags Admin
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Failure 403 {object} response.ErrorResponse "Требуются права администратора"
// @Router /admin/dashboard [get]
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.admin.Dashboard")

	summary, err := h.reports.Dashboard(r.Context())
	if err != nil {
		log.Error("failed to build dashboard", sl.Err(err))
		response.Fail(w, r, err)
		return
	}
	render.JSON(w, r, response.OK(summary))
}

// CalendarReport godoc
// @Summary Календарный отчёт за месяц
// @Description Заявки на сбор и аренду за месяц, упорядоченные по дате. Поддерживается только csv.
// @Tags Admin
// @Produce  text/csv
// @Security BearerAuth
// @Param month query string true "Месяц (YYYY-MM)"
// @Param format query string false "Формат (csv)"
// @Success 200 {file} file
// @Failure 400 {object} response.ErrorResponse "Некорректный месяц или формат"
// @Router /admin/reports/calendar [get]
func (h *Handler) CalendarReport(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.admin.CalendarReport")

	q := r.URL.Query()
	report, err := h.reports.ExportCalendar(r.Context(), q.Get("month"), q.Get("format"))
	if err != nil {
		log.Error("failed to export calendar", sl.Err(err))
		response.Fail(w, r, err)
		return
	}

	w.Header().Set("Content-Type", report.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+report.Filename+`"`)
	w.WriteHeader(http.StatusOK)
	if _, err = w.Write(report.Body); err != nil {
		log.Error("failed to write report", sl.Err(err))
	}
}

// CreateAnnouncement godoc
// @Summary Создать объявление
// @Description Сохраняет объявление и при send_line=true рассылает его в LINE всем или выбранным пользователям.
// @Tags Admin
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param request body models.AnnouncementRequest true "Объявление"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.ErrorResponse "Ошибка валидации"
// @Router /admin/announcements [post]
func (h *Handler) CreateAnnouncement(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.admin.CreateAnnouncement")

	caller, ok := middlewarectx.CallerFrom(r.Context())
	if !ok {
		response.Fail(w, r, apperr.ErrMissingCredentials)
		return
	}

	var req models.AnnouncementRequest
	if err := request.DecodeJSON(w, r, h.validate, &req); err != nil {
		log.Error("invalid request", sl.Err(err))
		response.Fail(w, r, err)
		return
	}

	res, err := h.notifications.CreateAnnouncement(r.Context(), caller, req)
	if err != nil {
		log.Error("failed to create announcement", sl.Err(err))
		response.Fail(w, r, err)
		return
	}

	log.Info("announcement created", slog.Int64("id", res.Notification.ID))
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response.OKWithMessage(res, "announcement created"))
}

// ListAnnouncements godoc
// @Summary Список уведомлений
// @Tags Admin
// @Produce  json
// @Security BearerAuth
// @Param limit query int false "Размер страницы (1..1000, по умолчанию 50)"
// @Param offset query int false "Смещение"
// @Success 200 {object} response.Response
// @Router /admin/announcements [get]
func (h *Handler) ListAnnouncements(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.admin.ListAnnouncements")

	limit, offset, err := pagination(r)
	if err != nil {
		response.Fail(w, r, err)
		return
	}

	page, err := h.notifications.List(r.Context(), limit, offset)
	if err != nil {
		log.Error("failed to list notifications", sl.Err(err))
		response.Fail(w, r, err)
		return
	}
	render.JSON(w, r, response.OK(page))
}

// DeleteAnnouncement godoc
// @Summary Удалить уведомление
// @Tags Admin
// @Produce  json
// @Security BearerAuth
// @Param id path int true "ID уведомления"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.ErrorResponse "Не найдено"
// @Router /admin/announcements/{id} [delete]
func (h *Handler) DeleteAnnouncement(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.admin.DeleteAnnouncement")

	id, err := request.ID(r, "id")
	if err != nil {
		response.Fail(w, r, err)
		return
	}
	if err = h.notifications.Delete(r.Context(), id); err != nil {
		log.Error("failed to delete notification", slog.Int64("id", id), sl.Err(err))
		response.Fail(w, r, err)
		return
	}

	log.Info("notification deleted", slog.Int64("id", id))
	render.JSON(w, r, response.OKWithMessage(map[string]any{"id": id}, "notification deleted"))
}

// SendReminder godoc
// @Summary Отправить напоминание
// @Description Напоминание о сборе (harvest) или выдаче контейнеров (oricon) на дату либо произвольное сообщение (custom).
// @Tags Admin
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param request body models.ReminderRequest true "Напоминание"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 404 {object} response.ErrorResponse "Нет получателей"
// @Router /admin/reminders [post]
func (h *Handler) SendReminder(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.admin.SendReminder")

	caller, ok := middlewarectx.CallerFrom(r.Context())
	if !ok {
		response.Fail(w, r, apperr.ErrMissingCredentials)
		return
	}

	var req models.ReminderRequest
	if err := request.DecodeJSON(w, r, h.validate, &req); err != nil {
		log.Error("invalid request", sl.Err(err))
		response.Fail(w, r, err)
		return
	}

	res, err := h.notifications.Remind(r.Context(), caller, req)
	if err != nil {
		log.Error("failed to send reminder", sl.Err(err))
		response.Fail(w, r, err)
		return
	}

	log.Info("reminder sent", slog.String("type", req.Type), slog.String("date", req.TargetDate))
	render.JSON(w, r, response.OKWithMessage(res, "reminder sent"))
}

func pagination(r *http.Request) (int, int, error) {
	q := r.URL.Query()
	var limit, offset int
	var err error
	if v := q.Get("limit"); v != "" {
		if limit, err = strconv.Atoi(v); err != nil {
			return 0, 0, apperr.Validation("limit must be a number")
		}
	}
	if v := q.Get("offset"); v != "" {
		if offset, err = strconv.Atoi(v); err != nil {
			return 0, 0, apperr.Validation("offset must be a number")
		}
	}
	return limit, offset, nil
}
