package auth_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/harvest-tracker/internal/lib/apperr"
	"github.com/magabrotheeeer/harvest-tracker/internal/lib/jwt"
	"github.com/magabrotheeeer/harvest-tracker/internal/line"
	"github.com/magabrotheeeer/harvest-tracker/internal/models"
	"github.com/magabrotheeeer/harvest-tracker/internal/services/auth"
)

// Мок для UserRepository
type UserRepoMock struct {
	mock.Mock
}

func (m *UserRepoMock) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *UserRepoMock) UpsertUserByLineID(ctx context.Context, lineID, displayName string, avatarURL *string) (*models.User, error) {
	args := m.Called(ctx, lineID, displayName, avatarURL)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

// Мок для StateStore
type StateStoreMock struct {
	mock.Mock
}

func (m *StateStoreMock) SaveState(ctx context.Context, state string, ttl time.Duration) error {
	args := m.Called(ctx, state, ttl)
	return args.Error(0)
}

func (m *StateStoreMock) ConsumeState(ctx context.Context, state string) (bool, error) {
	args := m.Called(ctx, state)
	return args.Bool(0), args.Error(1)
}

// Мок для LoginProvider
type LoginMock struct {
	mock.Mock
}

func (m *LoginMock) AuthURL(state string) string {
	return "https://access.line.me/oauth2/v2.1/authorize?state=" + url.QueryEscape(state)
}

func (m *LoginMock) ExchangeCode(ctx context.Context, code string) (*line.TokenResponse, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*line.TokenResponse), args.Error(1)
}

func (m *LoginMock) GetLoginProfile(ctx context.Context, accessToken string) (*line.Profile, error) {
	args := m.Called(ctx, accessToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*line.Profile), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

type fixture struct {
	repo   *UserRepoMock
	states *StateStoreMock
	login  *LoginMock
	svc    *auth.Service
}

func newFixture(opts auth.Options) *fixture {
	f := &fixture{
		repo:   new(UserRepoMock),
		states: new(StateStoreMock),
		login:  new(LoginMock),
	}
	maker := jwt.NewJWTMaker("test-secret", 24*time.Hour)
	f.svc = auth.NewAuthService(f.repo, maker, f.states, f.login, opts, newNoopLogger())
	return f
}

func activeUser(id int64, lineID string) *models.User {
	return &models.User{
		ID:          id,
		LineID:      lineID,
		DisplayName: "田中",
		Role:        models.RoleUser,
		Status:      models.UserActive,
	}
}

func TestService_TokenRoundTrip(t *testing.T) {
	f := newFixture(auth.Options{})
	u := activeUser(42, "U-farmer")

	token, err := f.svc.IssueToken(*u)
	require.NoError(t, err)

	caller, err := f.svc.VerifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), caller.UserID)
	assert.Equal(t, "U-farmer", caller.LineID)
	assert.Equal(t, models.RoleUser, caller.Role)
	assert.Equal(t, models.UserActive, caller.Status)

	caller, err = f.svc.VerifyToken("Bearer " + token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), caller.UserID)

	// замена одного символа подписи делает токен невалидным
	tampered := []byte(token)
	pos := len(tampered) - 5
	if tampered[pos] == 'A' {
		tampered[pos] = 'B'
	} else {
		tampered[pos] = 'A'
	}
	_, err = f.svc.VerifyToken(string(tampered))
	assert.ErrorIs(t, err, apperr.ErrMalformedToken)
}

func TestService_EffectiveRole(t *testing.T) {
	f := newFixture(auth.Options{AdminLineIDs: []string{" U-boss ", ""}})

	assert.Equal(t, models.RoleAdmin, f.svc.EffectiveRole(models.User{LineID: "U-boss", Role: models.RoleUser}))
	assert.Equal(t, models.RoleAdmin, f.svc.EffectiveRole(models.User{LineID: "U-x", Role: models.RoleAdmin}))
	assert.Equal(t, models.RoleUser, f.svc.EffectiveRole(models.User{LineID: "U-x", Role: models.RoleUser}))

	token, err := f.svc.IssueToken(models.User{ID: 1, LineID: "U-boss", Role: models.RoleUser, Status: models.UserActive})
	require.NoError(t, err)
	caller, err := f.svc.VerifyToken(token)
	require.NoError(t, err)
	assert.True(t, caller.IsAdmin())
}

func TestService_Authorize(t *testing.T) {
	f := newFixture(auth.Options{})

	tests := []struct {
		name     string
		caller   models.Caller
		required models.Role
		wantErr  error
	}{
		{name: "active user any role", caller: models.Caller{Role: models.RoleUser, Status: models.UserActive}},
		{name: "active admin admin route", caller: models.Caller{Role: models.RoleAdmin, Status: models.UserActive}, required: models.RoleAdmin},
		{name: "user on admin route", caller: models.Caller{Role: models.RoleUser, Status: models.UserActive}, required: models.RoleAdmin, wantErr: apperr.ErrInsufficientRole},
		{name: "inactive user", caller: models.Caller{Role: models.RoleUser, Status: models.UserInactive}, wantErr: apperr.ErrInactiveAccount},
		{name: "blocked admin", caller: models.Caller{Role: models.RoleAdmin, Status: models.UserBlocked}, required: models.RoleAdmin, wantErr: apperr.ErrInactiveAccount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := f.svc.Authorize(tt.caller, tt.required)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestService_TestLogin(t *testing.T) {
	tests := []struct {
		name       string
		enabled    bool
		req        models.LoginRequest
		setupMocks func(r *UserRepoMock)
		wantErr    error
	}{
		{
			name:    "creates or refreshes user",
			enabled: true,
			req:     models.LoginRequest{ExternalLoginID: "U-farmer", DisplayName: " 田中 "},
			setupMocks: func(r *UserRepoMock) {
				r.On("UpsertUserByLineID", mock.Anything, "U-farmer", "田中", (*string)(nil)).
					Return(activeUser(7, "U-farmer"), nil).Once()
			},
		},
		{
			name:       "disabled",
			enabled:    false,
			req:        models.LoginRequest{ExternalLoginID: "U-farmer", DisplayName: "田中"},
			setupMocks: func(_ *UserRepoMock) {},
			wantErr:    auth.ErrTestLoginDisabled,
		},
		{
			name:    "blocked user",
			enabled: true,
			req:     models.LoginRequest{ExternalLoginID: "U-gone", DisplayName: "鈴木"},
			setupMocks: func(r *UserRepoMock) {
				u := activeUser(8, "U-gone")
				u.Status = models.UserBlocked
				r.On("UpsertUserByLineID", mock.Anything, "U-gone", "鈴木", (*string)(nil)).Return(u, nil).Once()
			},
			wantErr: apperr.ErrInactiveAccount,
		},
		{
			name:    "repository error",
			enabled: true,
			req:     models.LoginRequest{ExternalLoginID: "U-farmer", DisplayName: "田中"},
			setupMocks: func(r *UserRepoMock) {
				r.On("UpsertUserByLineID", mock.Anything, "U-farmer", "田中", (*string)(nil)).
					Return(nil, apperr.ErrDatabase).Once()
			},
			wantErr: apperr.ErrDatabase,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(auth.Options{TestLoginEnabled: tt.enabled})
			tt.setupMocks(f.repo)

			session, err := f.svc.TestLogin(context.Background(), tt.req)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, session)
			} else {
				require.NoError(t, err)
				assert.NotEmpty(t, session.Token)
				assert.Equal(t, int64(24*60*60), session.ExpiresIn)
				assert.Equal(t, int64(7), session.User.ID)
			}
			f.repo.AssertExpectations(t)
		})
	}
}

func TestService_LoginURLAndCallback(t *testing.T) {
	f := newFixture(auth.Options{StateTTL: 5 * time.Minute})

	var saved string
	f.states.On("SaveState", mock.Anything, mock.AnythingOfType("string"), 5*time.Minute).
		Run(func(args mock.Arguments) { saved = args.String(1) }).
		Return(nil).Once()

	link, state, err := f.svc.LoginURL(context.Background())
	require.NoError(t, err)
	assert.Equal(t, saved, state)
	assert.True(t, strings.Contains(link, url.QueryEscape(state)))

	picture := "https://profile.line-scdn.net/p.png"
	f.states.On("ConsumeState", mock.Anything, state).Return(true, nil).Once()
	f.login.On("ExchangeCode", mock.Anything, "auth-code").
		Return(&line.TokenResponse{AccessToken: "user-access"}, nil).Once()
	f.login.On("GetLoginProfile", mock.Anything, "user-access").
		Return(&line.Profile{UserID: "U-line", DisplayName: "佐藤", PictureURL: picture}, nil).Once()
	f.repo.On("UpsertUserByLineID", mock.Anything, "U-line", "佐藤", mock.MatchedBy(func(p *string) bool {
		return p != nil && *p == picture
	})).Return(activeUser(11, "U-line"), nil).Once()

	session, err := f.svc.Callback(context.Background(), models.CallbackRequest{Code: "auth-code", State: state})
	require.NoError(t, err)
	assert.Equal(t, int64(11), session.User.ID)
	require.NotNil(t, session.Profile)
	assert.Equal(t, "U-line", session.Profile.UserID)

	caller, err := f.svc.VerifyToken(session.Token)
	require.NoError(t, err)
	assert.Equal(t, int64(11), caller.UserID)

	f.states.AssertExpectations(t)
	f.login.AssertExpectations(t)
	f.repo.AssertExpectations(t)
}

func TestService_CallbackErrors(t *testing.T) {
	tests := []struct {
		name       string
		setupMocks func(f *fixture)
		wantErr    error
	}{
		{
			name: "unknown state",
			setupMocks: func(f *fixture) {
				f.states.On("ConsumeState", mock.Anything, "state-123").Return(false, nil).Once()
			},
			wantErr: apperr.ErrInvalidState,
		},
		{
			name: "code exchange fails",
			setupMocks: func(f *fixture) {
				f.states.On("ConsumeState", mock.Anything, "state-123").Return(true, nil).Once()
				f.login.On("ExchangeCode", mock.Anything, "bad-code").
					Return(nil, &line.DeliveryError{StatusCode: 400, Body: "invalid_grant"}).Once()
			},
			wantErr: apperr.ErrDelivery,
		},
		{
			name: "state store unavailable",
			setupMocks: func(f *fixture) {
				f.states.On("ConsumeState", mock.Anything, "state-123").Return(false, errors.New("redis down")).Once()
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(auth.Options{})
			tt.setupMocks(f)

			session, err := f.svc.Callback(context.Background(), models.CallbackRequest{Code: "bad-code", State: "state-123"})
			require.Error(t, err)
			assert.Nil(t, session)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			f.states.AssertExpectations(t)
			f.login.AssertExpectations(t)
		})
	}
}

func TestService_Resolve(t *testing.T) {
	f := newFixture(auth.Options{AdminLineIDs: []string{"U-boss"}})

	inactive := activeUser(5, "U-boss")
	inactive.Status = models.UserInactive
	f.repo.On("GetUserByID", mock.Anything, int64(5)).Return(inactive, nil).Once()
	f.repo.On("GetUserByID", mock.Anything, int64(6)).Return(nil, apperr.ErrUserNotFound).Once()

	caller, err := f.svc.Resolve(context.Background(), models.Caller{UserID: 5, Status: models.UserActive})
	require.NoError(t, err)
	assert.Equal(t, models.UserInactive, caller.Status)
	assert.Equal(t, models.RoleAdmin, caller.Role)
	assert.ErrorIs(t, f.svc.Authorize(caller, ""), apperr.ErrInactiveAccount)

	_, err = f.svc.Resolve(context.Background(), models.Caller{UserID: 6})
	assert.ErrorIs(t, err, apperr.ErrMalformedToken)
}

func TestService_FindOrCreateRequiresExternalID(t *testing.T) {
	f := newFixture(auth.Options{})

	_, err := f.svc.FindOrCreateUserByExternalID(context.Background(), "  ", "name", nil)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	f.repo.On("UpsertUserByLineID", mock.Anything, "U-1", "U-1", (*string)(nil)).Return(activeUser(1, "U-1"), nil).Once()
	u, err := f.svc.FindOrCreateUserByExternalID(context.Background(), "U-1", "", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), u.ID)
	f.repo.AssertExpectations(t)
}
