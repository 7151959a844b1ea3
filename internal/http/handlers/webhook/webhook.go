// Package webhook реализует приём событий LINE Messaging API.
//
// Подпись x-line-signature проверяется по сырому телу до разбора JSON.
// Неверная подпись даёт 401, любые ошибки обработки событий только
// логируются: LINE всегда получает 200.
package webhook

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/harvest-tracker/internal/http/response"
	"github.com/magabrotheeeer/harvest-tracker/internal/lib/apperr"
	"github.com/magabrotheeeer/harvest-tracker/internal/lib/sl"
	"github.com/magabrotheeeer/harvest-tracker/internal/line"
)

// SignatureHeader: заголовок с подписью тела запроса.
const SignatureHeader = "X-Line-Signature"

const (
	maxBodyBytes   = 1 << 20
	processTimeout = 30 * time.Second
)

// Service проверяет подпись и обрабатывает события.
type Service interface {
	VerifyInboundSignature(body []byte, signature string) bool
	HandleEvents(ctx context.Context, events []line.Event)
}

// Handler обрабатывает webhook LINE.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary LINE webhook
// @Description Принимает события LINE. Подпись проверяется по сырому телу запроса.
// @Tags Webhook
// @Accept  json
// @Produce  json
// @Param X-Line-Signature header string true "HMAC-SHA256 тела в base64"
// @Success 200 {object} response.Response
// @Failure 401 {object} response.ErrorResponse "Неверная подпись"
// @Router /webhook/line [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.webhook.line"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		log.Error("failed to read body", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body", apperr.CodeValidation))
		return
	}

	if !h.service.VerifyInboundSignature(body, r.Header.Get(SignatureHeader)) {
		log.Warn("invalid webhook signature")
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.Error("invalid signature", apperr.CodeInvalidSignature))
		return
	}

	events, err := line.ParseEvents(body)
	if err != nil {
		log.Error("failed to decode webhook payload", sl.Err(err))
		render.JSON(w, r, response.OK(nil))
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), processTimeout)
	defer cancel()
	h.service.HandleEvents(ctx, events)

	log.Debug("webhook processed", slog.Int("events", len(events)))
	render.JSON(w, r, response.OK(nil))
}
