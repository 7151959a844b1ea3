// Package messaging реализует мост к LINE: прямые и массовые push-сообщения,
// проверку подписи webhook и обработку входящих событий чат-бота.
package messaging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/magabrotheeeer/harvest-tracker/internal/lib/apperr"
	"github.com/magabrotheeeer/harvest-tracker/internal/lib/sl"
	"github.com/magabrotheeeer/harvest-tracker/internal/line"
	"github.com/magabrotheeeer/harvest-tracker/internal/models"
)

// maxParallelEvents ограничивает число одновременно обрабатываемых событий одного webhook.
const maxParallelEvents = 4

// Pusher отправляет сообщения через LINE Messaging API.
type Pusher interface {
	// PushText отправляет текстовое сообщение.
	PushText(ctx context.Context, to, text string) error
	// PushButtons отправляет шаблон с кнопкой-ссылкой.
	PushButtons(ctx context.Context, to, text, label, uri string) error
	// GetBotProfile возвращает профиль друга бота.
	GetBotProfile(ctx context.Context, userID string) (*line.Profile, error)
}

// Identity находит пользователей и выпускает для них токены.
type Identity interface {
	FindOrCreateUserByExternalID(ctx context.Context, externalID, displayName string, avatarURL *string) (*models.User, error)
	IssueToken(u models.User) (string, error)
	EffectiveRole(u models.User) models.Role
}

// UserRepository читает и блокирует пользователей по LINE ID.
type UserRepository interface {
	// GetUserByLineID возвращает пользователя или ErrUserNotFound.
	GetUserByLineID(ctx context.Context, lineID string) (*models.User, error)
	// SetUserStatusByLineID меняет статус пользователя.
	SetUserStatusByLineID(ctx context.Context, lineID string, status models.UserStatus) error
}

// Recorder учитывает результаты отправки.
type Recorder interface {
	LinePush(ok bool)
}

// Options задаёт параметры моста из конфигурации.
type Options struct {
	ChannelSecret string
	BaseURL       string
	BulkDelay     time.Duration
}

// Service реализует исходящие сообщения и обработку событий LINE.
type Service struct {
	pusher   Pusher
	identity Identity
	users    UserRepository
	metrics  Recorder
	secret   string
	baseURL  string
	delay    time.Duration
	sleep    func(ctx context.Context, d time.Duration) error
	log      *slog.Logger
}

// NewMessagingService создает новый экземпляр Service.
func NewMessagingService(pusher Pusher, identity Identity, users UserRepository, metrics Recorder, opts Options, log *slog.Logger) *Service {
	return &Service{
		pusher:   pusher,
		identity: identity,
		users:    users,
		metrics:  metrics,
		secret:   opts.ChannelSecret,
		baseURL:  strings.TrimRight(opts.BaseURL, "/"),
		delay:    opts.BulkDelay,
		sleep:    sleepCtx,
		log:      log,
	}
}

// PushText отправляет текст одному получателю. Повторов нет.
func (s *Service) PushText(ctx context.Context, lineID, text string) (models.DeliveryResult, error) {
	err := s.pusher.PushText(ctx, lineID, text)
	return s.result(lineID, err), err
}

// PushBulk отправляет текст получателям последовательно с паузой между отправками.
// Ошибка отдельного получателя не прерывает рассылку. Отмена ctx помечает
// оставшихся получателей как неуспешных.
func (s *Service) PushBulk(ctx context.Context, lineIDs []string, text string) []models.DeliveryResult {
	results := make([]models.DeliveryResult, 0, len(lineIDs))
	for i, id := range lineIDs {
		if i > 0 && s.delay > 0 {
			if err := s.sleep(ctx, s.delay); err != nil {
				for _, rest := range lineIDs[i:] {
					results = append(results, models.DeliveryResult{LineID: rest, Error: err.Error()})
				}
				break
			}
		}
		err := s.pusher.PushText(ctx, id, text)
		if err != nil {
			s.log.Warn("bulk push failed", slog.String("line_id", id), sl.Err(err))
		}
		results = append(results, s.result(id, err))
	}

	st := models.Stats(results)
	s.log.Info("bulk push finished", slog.Int("sent", st.Sent), slog.Int("failed", st.Failed), slog.Int("total", st.Total))
	return results
}

// VerifyInboundSignature проверяет подпись исходных байтов тела webhook.
func (s *Service) VerifyInboundSignature(body []byte, signature string) bool {
	return line.VerifySignature(s.secret, body, signature)
}

// HandleEvents обрабатывает события webhook параллельно. Ошибки событий
// только логируются: ответ LINE не должен от них зависеть.
func (s *Service) HandleEvents(ctx context.Context, events []line.Event) {
	var g errgroup.Group
	g.SetLimit(maxParallelEvents)
	for _, ev := range events {
		g.Go(func() error {
			if err := s.HandleEvent(ctx, ev); err != nil {
				s.log.Error("failed to handle line event",
					slog.String("type", ev.Type),
					slog.String("line_id", ev.Source.UserID),
					sl.Err(err),
				)
			}
			return nil
		})
	}
	_ = g.Wait()
}

// HandleEvent обрабатывает одно событие: message, follow, unfollow или postback.
func (s *Service) HandleEvent(ctx context.Context, ev line.Event) error {
	const op = "services.messaging.HandleEvent"

	lineID := ev.Source.UserID
	if lineID == "" {
		s.log.Debug("line event without user id ignored", slog.String("type", ev.Type))
		return nil
	}

	var err error
	switch ev.Type {
	case line.EventTypeMessage:
		if ev.Message == nil || ev.Message.Type != "text" {
			return nil
		}
		err = s.handleText(ctx, lineID, ev.Message.Text)
	case line.EventTypeFollow:
		err = s.handleFollow(ctx, lineID)
	case line.EventTypeUnfollow:
		err = s.users.SetUserStatusByLineID(ctx, lineID, models.UserBlocked)
		if err == nil {
			s.log.Info("user blocked the bot", slog.String("line_id", lineID))
		}
	case line.EventTypePostback:
		if ev.Postback != nil {
			err = s.handlePostback(ctx, lineID, ev.Postback.Data)
		}
	default:
		s.log.Info("unhandled line event", slog.String("type", ev.Type))
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *Service) handleText(ctx context.Context, lineID, text string) error {
	// Любое текстовое сообщение регистрирует нового пользователя.
	u, err := s.ensureUser(ctx, lineID)
	if err != nil {
		return err
	}
	if !u.IsActive() {
		return s.push(ctx, lineID, textInactive)
	}

	switch ParseCommand(text) {
	case CommandHelp:
		return s.push(ctx, lineID, textHelp)
	case CommandUnknown:
		return s.push(ctx, lineID, textDefault)
	case CommandSubmit:
		return s.pushLink(ctx, *u, textSubmission, labelSubmission, "/main")
	case CommandHistory:
		return s.pushLink(ctx, *u, textHistory, labelHistory, "/history")
	case CommandAdmin:
		if s.identity.EffectiveRole(*u) != models.RoleAdmin {
			return s.push(ctx, lineID, textAdminDenied)
		}
		return s.pushLink(ctx, *u, textAdmin, labelAdmin, "/admin")
	}
	return nil
}

func (s *Service) handleFollow(ctx context.Context, lineID string) error {
	name := fallbackUserName
	var avatar *string

	profile, err := s.pusher.GetBotProfile(ctx, lineID)
	if err != nil {
		s.log.Warn("failed to get line profile", slog.String("line_id", lineID), sl.Err(err))
	} else {
		if profile.DisplayName != "" {
			name = profile.DisplayName
		}
		if profile.PictureURL != "" {
			avatar = &profile.PictureURL
		}
	}

	if _, err = s.identity.FindOrCreateUserByExternalID(ctx, lineID, name, avatar); err != nil {
		s.log.Error("failed to register follower", slog.String("line_id", lineID), sl.Err(err))
		name = fallbackUserName
	}
	return s.push(ctx, lineID, fmt.Sprintf(textWelcomeFormat, name))
}

func (s *Service) handlePostback(ctx context.Context, lineID, data string) error {
	params, err := url.ParseQuery(data)
	if err != nil {
		s.log.Info("malformed postback data", slog.String("data", data))
		return nil
	}
	switch params.Get("action") {
	case "yes":
		return s.push(ctx, lineID, textPostbackYes)
	case "no":
		return s.push(ctx, lineID, textPostbackNo)
	default:
		s.log.Info("unhandled postback action", slog.String("action", params.Get("action")))
		return nil
	}
}

// ensureUser находит пользователя по LINE ID, а при первом контакте создаёт его
// с именем из профиля LINE.
func (s *Service) ensureUser(ctx context.Context, lineID string) (*models.User, error) {
	u, err := s.users.GetUserByLineID(ctx, lineID)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, apperr.ErrUserNotFound) {
		return nil, err
	}

	name := fallbackUserName
	var avatar *string
	if profile, perr := s.pusher.GetBotProfile(ctx, lineID); perr == nil {
		if profile.DisplayName != "" {
			name = profile.DisplayName
		}
		if profile.PictureURL != "" {
			avatar = &profile.PictureURL
		}
	}
	return s.identity.FindOrCreateUserByExternalID(ctx, lineID, name, avatar)
}

func (s *Service) pushLink(ctx context.Context, u models.User, text, label, path string) error {
	token, err := s.identity.IssueToken(u)
	if err != nil {
		return err
	}
	link := s.baseURL + path + "?token=" + url.QueryEscape(token)
	err = s.pusher.PushButtons(ctx, u.LineID, text, label, link)
	s.metrics.LinePush(err == nil)
	return err
}

func (s *Service) push(ctx context.Context, lineID, text string) error {
	err := s.pusher.PushText(ctx, lineID, text)
	s.metrics.LinePush(err == nil)
	return err
}

func (s *Service) result(lineID string, err error) models.DeliveryResult {
	s.metrics.LinePush(err == nil)
	if err == nil {
		return models.DeliveryResult{LineID: lineID, Success: true}
	}
	res := models.DeliveryResult{LineID: lineID, Error: err.Error()}
	var de *line.DeliveryError
	if errors.As(err, &de) {
		res.StatusCode = de.StatusCode
	}
	return res
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
