package middlewarectx_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/harvest-tracker/internal/http/middlewarectx"
	"github.com/magabrotheeeer/harvest-tracker/internal/lib/apperr"
	"github.com/magabrotheeeer/harvest-tracker/internal/models"
)

type VerifierMock struct {
	mock.Mock
}

func (m *VerifierMock) VerifyToken(token string) (models.Caller, error) {
	args := m.Called(token)
	return args.Get(0).(models.Caller), args.Error(1)
}

type AuthorizerMock struct {
	mock.Mock
}

func (m *AuthorizerMock) Resolve(ctx context.Context, caller models.Caller) (models.Caller, error) {
	args := m.Called(ctx, caller)
	return args.Get(0).(models.Caller), args.Error(1)
}

func (m *AuthorizerMock) Authorize(caller models.Caller, required models.Role) error {
	args := m.Called(caller, required)
	return args.Error(0)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

var (
	activeUser  = models.Caller{UserID: 7, LineID: "U7", Role: models.RoleUser, Status: models.UserActive}
	activeAdmin = models.Caller{UserID: 1, LineID: "U1", Role: models.RoleAdmin, Status: models.UserActive}
)

func TestJWTMiddleware(t *testing.T) {
	tests := []struct {
		name           string
		url            string
		authHeader     string
		setupMocks     func(*VerifierMock)
		wantStatusCode int
		wantCalled     bool
	}{
		{
			name:           "missing credentials",
			url:            "/somepath",
			setupMocks:     func(*VerifierMock) {},
			wantStatusCode: http.StatusUnauthorized,
		},
		{
			name:       "expired token",
			url:        "/somepath",
			authHeader: "Bearer old",
			setupMocks: func(m *VerifierMock) {
				m.On("VerifyToken", "Bearer old").Return(models.Caller{}, apperr.ErrExpiredToken).Once()
			},
			wantStatusCode: http.StatusUnauthorized,
		},
		{
			name:       "valid header token",
			url:        "/somepath",
			authHeader: "Bearer good",
			setupMocks: func(m *VerifierMock) {
				m.On("VerifyToken", "Bearer good").Return(activeUser, nil).Once()
			},
			wantStatusCode: http.StatusOK,
			wantCalled:     true,
		},
		{
			name: "query token fallback",
			url:  "/somepath?token=fromlink",
			setupMocks: func(m *VerifierMock) {
				m.On("VerifyToken", "fromlink").Return(activeUser, nil).Once()
			},
			wantStatusCode: http.StatusOK,
			wantCalled:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verifier := new(VerifierMock)
			tt.setupMocks(verifier)

			handlerCalled := false
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				handlerCalled = true
				caller, ok := middlewarectx.CallerFrom(r.Context())
				assert.True(t, ok)
				assert.Equal(t, activeUser, caller)
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, tt.url, nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			rec := httptest.NewRecorder()

			middlewarectx.JWTMiddleware(verifier, newNoopLogger())(next).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatusCode, rec.Code)
			assert.Equal(t, tt.wantCalled, handlerCalled)
			verifier.AssertExpectations(t)
		})
	}
}

func TestUserStatusMiddleware(t *testing.T) {
	blocked := activeUser
	blocked.Status = models.UserBlocked
	promoted := activeUser
	promoted.Role = models.RoleAdmin

	tests := []struct {
		name           string
		caller         *models.Caller
		setupMocks     func(*AuthorizerMock)
		wantStatusCode int
		wantCaller     models.Caller
	}{
		{
			name:           "no caller in context",
			setupMocks:     func(*AuthorizerMock) {},
			wantStatusCode: http.StatusUnauthorized,
		},
		{
			name:   "blocked user loses access at once",
			caller: &activeUser,
			setupMocks: func(m *AuthorizerMock) {
				m.On("Resolve", mock.Anything, activeUser).Return(blocked, nil).Once()
				m.On("Authorize", blocked, models.Role("")).Return(apperr.ErrInactiveAccount).Once()
			},
			wantStatusCode: http.StatusForbidden,
		},
		{
			name:   "deleted user",
			caller: &activeUser,
			setupMocks: func(m *AuthorizerMock) {
				m.On("Resolve", mock.Anything, activeUser).Return(models.Caller{}, apperr.ErrMalformedToken).Once()
			},
			wantStatusCode: http.StatusUnauthorized,
		},
		{
			name:   "refreshed role is passed on",
			caller: &activeUser,
			setupMocks: func(m *AuthorizerMock) {
				m.On("Resolve", mock.Anything, activeUser).Return(promoted, nil).Once()
				m.On("Authorize", promoted, models.Role("")).Return(nil).Once()
			},
			wantStatusCode: http.StatusOK,
			wantCaller:     promoted,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			authz := new(AuthorizerMock)
			tt.setupMocks(authz)

			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				caller, _ := middlewarectx.CallerFrom(r.Context())
				assert.Equal(t, tt.wantCaller, caller)
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.caller != nil {
				req = req.WithContext(middlewarectx.WithCaller(req.Context(), *tt.caller))
			}
			rec := httptest.NewRecorder()

			middlewarectx.UserStatusMiddleware(newNoopLogger(), authz)(next).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatusCode, rec.Code)
			authz.AssertExpectations(t)
		})
	}
}

func TestRequireRole(t *testing.T) {
	authz := new(AuthorizerMock)
	authz.On("Authorize", activeAdmin, models.RoleAdmin).Return(nil)
	authz.On("Authorize", activeUser, models.RoleAdmin).Return(apperr.ErrInsufficientRole)

	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	h := middlewarectx.RequireRole(newNoopLogger(), authz, models.RoleAdmin)(next)

	for caller, want := range map[models.Caller]int{
		activeAdmin: http.StatusNoContent,
		activeUser:  http.StatusForbidden,
	} {
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		req = req.WithContext(middlewarectx.WithCaller(req.Context(), caller))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, want, rec.Code, "caller %d", caller.UserID)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
