// Package jwt реализует выпуск и проверку сессионных токенов пользователей.
//
// Токен подписывается HS256 и несёт идентификатор пользователя, LINE ID,
// отображаемое имя, роль и статус. Сервер не хранит токены: отзыв происходит
// только через смену статуса пользователя в базе.
package jwt

import (
	"time"

	"github.com/magabrotheeeer/harvest-tracker/internal/models"
)

// Maker описывает интерфейс для генерации и парсинга JWT токенов.
type Maker interface {
	GenerateToken(user models.User) (string, error)
	ParseToken(tokenStr string) (*CustomClaims, error)
	TTL() time.Duration
}

// MakerImpl реализует Maker с использованием секретного ключа,
// времени жизни токена, издателя и аудитории.
type MakerImpl struct {
	secretKey string
	tokenTTL  time.Duration
	issuer    string
	audience  string
	now       func() time.Time
}

// Option настраивает MakerImpl.
type Option func(*MakerImpl)

// WithIssuer задаёт поле iss.
func WithIssuer(issuer string) Option {
	return func(m *MakerImpl) { m.issuer = issuer }
}

// WithAudience задаёт поле aud.
func WithAudience(audience string) Option {
	return func(m *MakerImpl) { m.audience = audience }
}

// WithClock подменяет источник времени. Используется в тестах.
func WithClock(now func() time.Time) Option {
	return func(m *MakerImpl) { m.now = now }
}

// Значения по умолчанию для iss и aud.
const (
	DefaultIssuer   = "vegetable-harvest-system"
	DefaultAudience = "harvest-users"
)

// NewJWTMaker создаёт новый экземпляр MakerImpl на основе секретного ключа и TTL.
func NewJWTMaker(secretKey string, ttl time.Duration, opts ...Option) *MakerImpl {
	m := &MakerImpl{
		secretKey: secretKey,
		tokenTTL:  ttl,
		issuer:    DefaultIssuer,
		audience:  DefaultAudience,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// TTL возвращает время жизни выпускаемых токенов.
func (j *MakerImpl) TTL() time.Duration {
	return j.tokenTTL
}
