package jwt

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/harvest-tracker/internal/lib/apperr"
	"github.com/magabrotheeeer/harvest-tracker/internal/models"
)

func testUser(id int64, role models.Role) models.User {
	return models.User{
		ID:          id,
		LineID:      "U1234567890abcdef",
		DisplayName: "山田 太郎",
		Role:        role,
		Status:      models.UserActive,
	}
}

func TestJWTMaker_GenerateAndParseToken_ValidCases(t *testing.T) {
	secretKey := "test_secret_key_1234567890"
	tokenTTL := 24 * time.Hour
	maker := NewJWTMaker(secretKey, tokenTTL)

	tests := []struct {
		name string
		user models.User
	}{
		{
			name: "admin user",
			user: testUser(1, models.RoleAdmin),
		},
		{
			name: "regular user",
			user: testUser(42, models.RoleUser),
		},
		{
			name: "inactive user keeps status in claims",
			user: models.User{ID: 7, LineID: "U7", DisplayName: "x", Role: models.RoleUser, Status: models.UserInactive},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := maker.GenerateToken(tt.user)
			require.NoError(t, err)
			assert.NotEmpty(t, token)

			claims, err := maker.ParseToken(token)
			require.NoError(t, err)

			assert.Equal(t, tt.user.ID, claims.UserID)
			assert.Equal(t, tt.user.LineID, claims.LineID)
			assert.Equal(t, tt.user.DisplayName, claims.DisplayName)
			assert.Equal(t, tt.user.Role, claims.Role)
			assert.Equal(t, tt.user.Status, claims.Status)
			assert.Equal(t, DefaultIssuer, claims.Issuer)
			assert.WithinDuration(t, time.Now(), claims.IssuedAt.Time, time.Second)
			assert.WithinDuration(t, time.Now().Add(tokenTTL), claims.ExpiresAt.Time, time.Second)
		})
	}
}

func TestJWTMaker_ParseToken_BearerPrefix(t *testing.T) {
	maker := NewJWTMaker("secret", time.Hour)
	token, err := maker.GenerateToken(testUser(5, models.RoleUser))
	require.NoError(t, err)

	for _, raw := range []string{"Bearer " + token, "bearer " + token, "  " + token + "  "} {
		claims, err := maker.ParseToken(raw)
		require.NoError(t, err)
		assert.Equal(t, int64(5), claims.UserID)
	}
}

func TestJWTMaker_ParseToken_InvalidTokens(t *testing.T) {
	secretKey := "test_secret_key_1234567890"
	maker := NewJWTMaker(secretKey, 15*time.Minute)

	validToken, err := maker.GenerateToken(testUser(1, models.RoleUser))
	require.NoError(t, err)

	// Меняем один символ в подписи.
	tampered := []byte(validToken)
	last := len(tampered) - 2
	if tampered[last] == 'A' {
		tampered[last] = 'B'
	} else {
		tampered[last] = 'A'
	}

	tests := []struct {
		name    string
		token   string
		wantErr error
	}{
		{
			name:    "empty token",
			token:   "",
			wantErr: apperr.ErrMissingCredentials,
		},
		{
			name:    "bearer without token",
			token:   "Bearer ",
			wantErr: apperr.ErrMissingCredentials,
		},
		{
			name:    "malformed token",
			token:   "invalid.token.here",
			wantErr: apperr.ErrMalformedToken,
		},
		{
			name:    "expired token",
			token:   createExpiredToken(t, secretKey),
			wantErr: apperr.ErrExpiredToken,
		},
		{
			name:    "not yet valid token",
			token:   createFutureToken(t, secretKey),
			wantErr: apperr.ErrNotYetValid,
		},
		{
			name:    "wrong secret key",
			token:   createTokenWithWrongSecret(t),
			wantErr: apperr.ErrMalformedToken,
		},
		{
			name:    "tampered signature",
			token:   string(tampered),
			wantErr: apperr.ErrMalformedToken,
		},
		{
			name:    "foreign audience",
			token:   createTokenWithAudience(t, secretKey, "someone-else"),
			wantErr: apperr.ErrMalformedToken,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := maker.ParseToken(tt.token)
			require.Error(t, err)
			assert.Nil(t, claims)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, apperr.KindAuthentication, apperr.KindOf(err))
		})
	}
}

func TestJWTMaker_RejectsOtherSigningMethods(t *testing.T) {
	maker := NewJWTMaker("secret", time.Hour)
	claims := CustomClaims{
		UserID: 1,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    DefaultIssuer,
			Audience:  jwt.ClaimStrings{DefaultAudience},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodNone, claims)
	signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = maker.ParseToken(signed)
	assert.ErrorIs(t, err, apperr.ErrMalformedToken)
}

func TestJWTMaker_EmptySecret(t *testing.T) {
	maker := NewJWTMaker("", time.Hour)
	_, err := maker.GenerateToken(testUser(1, models.RoleUser))
	assert.ErrorIs(t, err, apperr.ErrConfiguration)
}

func TestJWTMaker_DifferentSecretKeys(t *testing.T) {
	maker1 := NewJWTMaker("first_secret_key", 15*time.Minute)
	maker2 := NewJWTMaker("different_secret_key", 15*time.Minute)

	token, err := maker1.GenerateToken(testUser(1, models.RoleAdmin))
	require.NoError(t, err)

	claims, err := maker2.ParseToken(token)
	assert.Error(t, err)
	assert.Nil(t, claims)

	claims, err = maker1.ParseToken(token)
	assert.NoError(t, err)
	assert.NotNil(t, claims)
}

func TestJWTMaker_TokenExpiration(t *testing.T) {
	now := time.Date(2025, 6, 9, 10, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	maker := NewJWTMaker("test_secret_key", 24*time.Hour, WithClock(clock))

	token, err := maker.GenerateToken(testUser(1, models.RoleUser))
	require.NoError(t, err)

	_, err = maker.ParseToken(token)
	require.NoError(t, err)

	now = now.Add(24*time.Hour + time.Second)

	_, err = maker.ParseToken(token)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expired")
	assert.ErrorIs(t, err, apperr.ErrExpiredToken)
}

func TestStripBearer(t *testing.T) {
	assert.Equal(t, "abc", StripBearer("Bearer abc"))
	assert.Equal(t, "abc", StripBearer("BEARER abc"))
	assert.Equal(t, "abc", StripBearer("abc"))
	assert.Equal(t, "", StripBearer("Bearer"))
	assert.Equal(t, "", StripBearer(""))
}

func createExpiredToken(t *testing.T, secretKey string) string {
	maker := NewJWTMaker(secretKey, -time.Hour)
	token, err := maker.GenerateToken(testUser(1, models.RoleUser))
	require.NoError(t, err)
	return token
}

func createFutureToken(t *testing.T, secretKey string) string {
	future := func() time.Time { return time.Now().Add(time.Hour) }
	maker := NewJWTMaker(secretKey, 24*time.Hour, WithClock(future))
	token, err := maker.GenerateToken(testUser(1, models.RoleUser))
	require.NoError(t, err)
	return token
}

func createTokenWithWrongSecret(t *testing.T) string {
	wrongMaker := NewJWTMaker("wrong_secret_key", 15*time.Minute)
	token, err := wrongMaker.GenerateToken(testUser(1, models.RoleUser))
	require.NoError(t, err)
	return token
}

func createTokenWithAudience(t *testing.T, secretKey, aud string) string {
	maker := NewJWTMaker(secretKey, time.Hour, WithAudience(aud))
	token, err := maker.GenerateToken(testUser(1, models.RoleUser))
	require.NoError(t, err)
	return token
}
