// Package auth содержит логику идентификации и доступа: выпуск и проверку
// сессионных токенов, вход через LINE Login и тестовый вход, определение роли
// вызывающего и проверку прав.
package auth

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/harvest-tracker/internal/lib/apperr"
	"github.com/magabrotheeeer/harvest-tracker/internal/lib/jwt"
	"github.com/magabrotheeeer/harvest-tracker/internal/lib/sl"
	"github.com/magabrotheeeer/harvest-tracker/internal/line"
	"github.com/magabrotheeeer/harvest-tracker/internal/models"
)

// ErrTestLoginDisabled возвращается, когда тестовый вход выключен в конфигурации.
var ErrTestLoginDisabled = apperr.New(apperr.KindAuthorization, apperr.CodeAccessDenied, "test login is disabled")

// UserRepository описывает контракт для работы с пользователями в базе данных.
type UserRepository interface {
	// GetUserByID возвращает пользователя по ID или ErrUserNotFound.
	GetUserByID(ctx context.Context, id int64) (*models.User, error)

	// UpsertUserByLineID создаёт пользователя или обновляет имя и время входа существующего.
	UpsertUserByLineID(ctx context.Context, lineID, displayName string, avatarURL *string) (*models.User, error)
}

// StateStore хранит одноразовые значения state для OAuth.
type StateStore interface {
	// SaveState сохраняет state на время ttl.
	SaveState(ctx context.Context, state string, ttl time.Duration) error

	// ConsumeState удаляет state и сообщает, существовал ли он.
	ConsumeState(ctx context.Context, state string) (bool, error)
}

// LoginProvider: внешний OAuth-провайдер (LINE Login).
type LoginProvider interface {
	AuthURL(state string) string
	ExchangeCode(ctx context.Context, code string) (*line.TokenResponse, error)
	GetLoginProfile(ctx context.Context, accessToken string) (*line.Profile, error)
}

// Options задаёт поведение сервиса из конфигурации.
type Options struct {
	AdminLineIDs     []string
	StateTTL         time.Duration
	TestLoginEnabled bool
}

// Session: результат успешного входа.
type Session struct {
	User      models.User   `json:"user"`
	Token     string        `json:"token"`
	ExpiresIn int64         `json:"expiresIn"`
	Profile   *line.Profile `json:"profile,omitempty"`
}

// Service отвечает за вход пользователей, выпуск и проверку JWT.
type Service struct {
	users     UserRepository
	tokens    jwt.Maker
	states    StateStore
	login     LoginProvider
	admins    map[string]struct{}
	stateTTL  time.Duration
	testLogin bool
	log       *slog.Logger
}

// NewAuthService создает новый экземпляр Service.
func NewAuthService(users UserRepository, tokens jwt.Maker, states StateStore, login LoginProvider, opts Options, log *slog.Logger) *Service {
	admins := make(map[string]struct{}, len(opts.AdminLineIDs))
	for _, id := range opts.AdminLineIDs {
		if id = strings.TrimSpace(id); id != "" {
			admins[id] = struct{}{}
		}
	}
	ttl := opts.StateTTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Service{
		users:     users,
		tokens:    tokens,
		states:    states,
		login:     login,
		admins:    admins,
		stateTTL:  ttl,
		testLogin: opts.TestLoginEnabled,
		log:       log,
	}
}

// EffectiveRole возвращает admin для администратора в базе или для LINE ID из списка.
func (s *Service) EffectiveRole(u models.User) models.Role {
	if u.Role == models.RoleAdmin {
		return models.RoleAdmin
	}
	if _, ok := s.admins[u.LineID]; ok {
		return models.RoleAdmin
	}
	return models.RoleUser
}

// IssueToken выпускает токен с эффективной ролью пользователя.
func (s *Service) IssueToken(u models.User) (string, error) {
	u.Role = s.EffectiveRole(u)
	return s.tokens.GenerateToken(u)
}

// VerifyToken проверяет токен и возвращает личность вызывающего.
func (s *Service) VerifyToken(token string) (models.Caller, error) {
	claims, err := s.tokens.ParseToken(token)
	if err != nil {
		return models.Caller{}, err
	}
	return claims.Caller(), nil
}

// Authorize проверяет статус вызывающего и требуемую роль.
// Пустая required означает любую роль.
func (s *Service) Authorize(caller models.Caller, required models.Role) error {
	if caller.Status != models.UserActive {
		return apperr.ErrInactiveAccount
	}
	if required == models.RoleAdmin && !caller.IsAdmin() {
		return apperr.ErrInsufficientRole
	}
	return nil
}

// Resolve перечитывает пользователя из базы, чтобы смена статуса или роли
// действовала сразу, а не после истечения токена.
func (s *Service) Resolve(ctx context.Context, caller models.Caller) (models.Caller, error) {
	const op = "services.auth.Resolve"

	u, err := s.users.GetUserByID(ctx, caller.UserID)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			return models.Caller{}, fmt.Errorf("%s: %w", op, apperr.ErrMalformedToken)
		}
		return models.Caller{}, fmt.Errorf("%s: %w", op, err)
	}
	return models.Caller{
		UserID:      u.ID,
		LineID:      u.LineID,
		DisplayName: u.DisplayName,
		Role:        s.EffectiveRole(*u),
		Status:      u.Status,
	}, nil
}

// FindOrCreateUserByExternalID находит пользователя по LINE ID или создаёт активного user.
// Для существующего обновляются имя и время последнего входа.
func (s *Service) FindOrCreateUserByExternalID(ctx context.Context, externalID, displayName string, avatarURL *string) (*models.User, error) {
	const op = "services.auth.FindOrCreateUserByExternalID"

	externalID = strings.TrimSpace(externalID)
	if externalID == "" {
		return nil, fmt.Errorf("%s: %w", op, apperr.Validation("external id is required"))
	}
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		displayName = externalID
	}
	u, err := s.users.UpsertUserByLineID(ctx, externalID, displayName, avatarURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// TestLogin выполняет вход по LINE ID и имени без OAuth. Доступен только при включённой настройке.
func (s *Service) TestLogin(ctx context.Context, req models.LoginRequest) (*Session, error) {
	const op = "services.auth.TestLogin"

	if !s.testLogin {
		return nil, fmt.Errorf("%s: %w", op, ErrTestLoginDisabled)
	}
	u, err := s.FindOrCreateUserByExternalID(ctx, req.ExternalLoginID, req.DisplayName, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	session, err := s.newSession(*u)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("test login", slog.Int64("user_id", u.ID), slog.String("role", string(session.User.Role)))
	return session, nil
}

// LoginURL создаёт state, сохраняет его и возвращает ссылку авторизации LINE Login.
func (s *Service) LoginURL(ctx context.Context) (string, string, error) {
	const op = "services.auth.LoginURL"

	state := uuid.NewString()
	if err := s.states.SaveState(ctx, state, s.stateTTL); err != nil {
		return "", "", fmt.Errorf("%s: %w", op, err)
	}
	return s.login.AuthURL(state), state, nil
}

// Callback завершает вход через LINE Login: проверяет state, обменивает код,
// получает профиль и выпускает токен.
func (s *Service) Callback(ctx context.Context, req models.CallbackRequest) (*Session, error) {
	const op = "services.auth.Callback"

	ok, err := s.states.ConsumeState(ctx, req.State)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, apperr.ErrInvalidState)
	}

	tok, err := s.login.ExchangeCode(ctx, req.Code)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	profile, err := s.login.GetLoginProfile(ctx, tok.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var avatar *string
	if profile.PictureURL != "" {
		avatar = &profile.PictureURL
	}
	u, err := s.FindOrCreateUserByExternalID(ctx, profile.UserID, profile.DisplayName, avatar)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	session, err := s.newSession(*u)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	session.Profile = profile

	s.log.Info("line login", slog.Int64("user_id", u.ID), slog.String("role", string(session.User.Role)))
	return session, nil
}

// Me возвращает актуальную запись вызывающего.
func (s *Service) Me(ctx context.Context, caller models.Caller) (*models.User, error) {
	const op = "services.auth.Me"

	u, err := s.users.GetUserByID(ctx, caller.UserID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	u.Role = s.EffectiveRole(*u)
	return u, nil
}

func (s *Service) newSession(u models.User) (*Session, error) {
	if !u.IsActive() {
		s.log.Warn("login rejected for inactive user", slog.Int64("user_id", u.ID), slog.String("status", string(u.Status)))
		return nil, apperr.ErrInactiveAccount
	}
	u.Role = s.EffectiveRole(u)
	token, err := s.tokens.GenerateToken(u)
	if err != nil {
		s.log.Error("failed to issue token", sl.Err(err))
		return nil, err
	}
	return &Session{
		User:      u,
		Token:     token,
		ExpiresIn: int64(s.tokens.TTL() / time.Second),
	}, nil
}
