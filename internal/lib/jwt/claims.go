package jwt

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/magabrotheeeer/harvest-tracker/internal/lib/apperr"
	"github.com/magabrotheeeer/harvest-tracker/internal/models"
)

// CustomClaims описывает пользовательские данные, хранящиеся в JWT.
type CustomClaims struct {
	UserID      int64             `json:"user_id"`
	LineID      string            `json:"line_id"`
	DisplayName string            `json:"display_name"`
	Role        models.Role       `json:"role"`
	Status      models.UserStatus `json:"status"`
	jwt.RegisteredClaims
}

// Caller переводит claims в личность вызывающего.
func (c *CustomClaims) Caller() models.Caller {
	return models.Caller{
		UserID:      c.UserID,
		LineID:      c.LineID,
		DisplayName: c.DisplayName,
		Role:        c.Role,
		Status:      c.Status,
	}
}

// GenerateToken создает JWT токен для пользователя, подписывая его секретным ключом.
func (j *MakerImpl) GenerateToken(user models.User) (string, error) {
	const op = "jwt.GenerateToken"
	if j.secretKey == "" {
		return "", fmt.Errorf("%s: %w", op, apperr.ErrConfiguration)
	}
	now := j.now()
	claims := CustomClaims{
		UserID:      user.ID,
		LineID:      user.LineID,
		DisplayName: user.DisplayName,
		Role:        user.Role,
		Status:      user.Status,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(user.ID, 10),
			Issuer:    j.issuer,
			Audience:  jwt.ClaimStrings{j.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.tokenTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(j.secretKey))
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return signed, nil
}

// ParseToken парсит JWT токен, проверяет подпись, срок действия, издателя и аудиторию.
// Необязательный префикс "Bearer " отбрасывается.
func (j *MakerImpl) ParseToken(tokenStr string) (*CustomClaims, error) {
	const op = "jwt.ParseToken"

	tokenStr = StripBearer(tokenStr)
	if tokenStr == "" {
		return nil, fmt.Errorf("%s: %w", op, apperr.ErrMissingCredentials)
	}

	token, err := jwt.ParseWithClaims(tokenStr, &CustomClaims{}, func(_ *jwt.Token) (any, error) {
		return []byte(j.secretKey), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(j.issuer),
		jwt.WithAudience(j.audience),
		jwt.WithTimeFunc(j.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, classify(err), err)
	}
	claims, ok := token.Claims.(*CustomClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("%s: %w", op, apperr.ErrMalformedToken)
	}
	return claims, nil
}

// StripBearer убирает необязательный префикс схемы Bearer.
func StripBearer(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 7 && strings.EqualFold(s[:7], "bearer ") {
		return strings.TrimSpace(s[7:])
	}
	return s
}

func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return apperr.ErrExpiredToken
	case errors.Is(err, jwt.ErrTokenNotValidYet), errors.Is(err, jwt.ErrTokenUsedBeforeIssued):
		return apperr.ErrNotYetValid
	default:
		return apperr.ErrMalformedToken
	}
}
