package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "github.com/streamgate/gate-server-go/internal/errors"
	"github.com/streamgate/gate-server-go/internal/model"
	"github.com/streamgate/gate-server-go/internal/util"
)

type mockUserRepo struct {
	mock.Mock
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	args := m.Called(ctx, id)
	if u := args.Get(0); u != nil {
		return u.(*model.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	if u := args.Get(0); u != nil {
		return u.(*model.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockUserRepo) Create(ctx context.Context, params model.CreateUserParams) (*model.User, error) {
	args := m.Called(ctx, params)
	if u := args.Get(0); u != nil {
		return u.(*model.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockUserRepo) List(ctx context.Context, limit, offset int) ([]model.User, error) {
	args := m.Called(ctx, limit, offset)
	if u := args.Get(0); u != nil {
		return u.([]model.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockUserRepo) Count(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *mockUserRepo) UpdateLastLogin(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

type mockMagicLinkRepo struct {
	mock.Mock
}

func (m *mockMagicLinkRepo) Create(ctx context.Context, params model.CreateMagicLinkParams) (*model.MagicLink, error) {
	args := m.Called(ctx, params)
	if l := args.Get(0); l != nil {
		return l.(*model.MagicLink), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockMagicLinkRepo) FindActiveByTokenHash(ctx context.Context, tokenHash string) (*model.MagicLink, error) {
	args := m.Called(ctx, tokenHash)
	if l := args.Get(0); l != nil {
		return l.(*model.MagicLink), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockMagicLinkRepo) MarkUsed(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockMagicLinkRepo) DeleteExpired(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func authFixture(users *mockUserRepo, links *mockMagicLinkRepo, sessions *mockSessionRepo) *AuthService {
	sessionSvc := NewSessionService(sessions)
	return NewAuthService(
		users, links, sessionSvc, sessions,
		nil, nil,
		"test-secret", "https://gate.example", 15*time.Minute,
	)
}

func TestVerifyLink_InvalidToken(t *testing.T) {
	users := new(mockUserRepo)
	links := new(mockMagicLinkRepo)
	sessions := new(mockSessionRepo)
	links.On("FindActiveByTokenHash", mock.Anything, mock.Anything).Return(nil, nil)

	svc := authFixture(users, links, sessions)
	_, err := svc.VerifyLink(context.Background(), "bogus", "fp-a", model.DeviceInfo{}, "ua", "1.2.3.4")

	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeInvalidMagicLink, apperrors.GetCode(err))
}

func TestVerifyLink_Expired(t *testing.T) {
	users := new(mockUserRepo)
	links := new(mockMagicLinkRepo)
	sessions := new(mockSessionRepo)
	links.On("FindActiveByTokenHash", mock.Anything, mock.Anything).Return(&model.MagicLink{
		ID:        "link-1",
		Email:     "a@example.com",
		ExpiresAt: time.Now().Add(-time.Minute),
	}, nil)

	svc := authFixture(users, links, sessions)
	_, err := svc.VerifyLink(context.Background(), "token", "fp-a", model.DeviceInfo{}, "ua", "1.2.3.4")

	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeMagicLinkExpired, apperrors.GetCode(err))
	links.AssertNotCalled(t, "MarkUsed", mock.Anything, mock.Anything)
}

func TestVerifyLink_CreatesUserAndSession(t *testing.T) {
	users := new(mockUserRepo)
	links := new(mockMagicLinkRepo)
	sessions := new(mockSessionRepo)

	links.On("FindActiveByTokenHash", mock.Anything, mock.Anything).Return(&model.MagicLink{
		ID:        "link-1",
		Email:     "new@example.com",
		ExpiresAt: time.Now().Add(10 * time.Minute),
	}, nil)
	links.On("MarkUsed", mock.Anything, "link-1").Return(nil)
	users.On("FindByEmail", mock.Anything, "new@example.com").Return(nil, nil)
	users.On("Create", mock.Anything, model.CreateUserParams{Email: "new@example.com"}).
		Return(&model.User{ID: "user-1", Email: "new@example.com"}, nil)
	users.On("UpdateLastLogin", mock.Anything, "user-1").Return(nil)
	sessions.On("Create", mock.Anything, mock.MatchedBy(func(p model.CreateSessionParams) bool {
		return p.UserID == "user-1" && p.FingerprintID == "fp-a" && p.TokenHash != ""
	})).Return(&model.Session{ID: "sess-1", UserID: "user-1", FingerprintID: "fp-a"}, nil)

	svc := authFixture(users, links, sessions)
	result, err := svc.VerifyLink(context.Background(), "token", "fp-a", model.DeviceInfo{Browser: "Firefox"}, "ua", "1.2.3.4")

	require.NoError(t, err)
	assert.Equal(t, "user-1", result.User.ID)
	assert.Equal(t, "sess-1", result.Session.ID)
	assert.NotEmpty(t, result.SessionToken)
	users.AssertExpectations(t)
	sessions.AssertExpectations(t)
}

func TestVerifyLink_EmptyFingerprintGetsFallback(t *testing.T) {
	users := new(mockUserRepo)
	links := new(mockMagicLinkRepo)
	sessions := new(mockSessionRepo)

	links.On("FindActiveByTokenHash", mock.Anything, mock.Anything).Return(&model.MagicLink{
		ID:        "link-1",
		Email:     "a@example.com",
		ExpiresAt: time.Now().Add(10 * time.Minute),
	}, nil)
	links.On("MarkUsed", mock.Anything, "link-1").Return(nil)
	users.On("FindByEmail", mock.Anything, "a@example.com").
		Return(&model.User{ID: "user-1", Email: "a@example.com"}, nil)
	users.On("UpdateLastLogin", mock.Anything, "user-1").Return(nil)

	expected := util.FingerprintFallback("ua", "1.2.3.4")
	sessions.On("Create", mock.Anything, mock.MatchedBy(func(p model.CreateSessionParams) bool {
		return p.FingerprintID == expected
	})).Return(&model.Session{ID: "sess-1", FingerprintID: expected}, nil)

	svc := authFixture(users, links, sessions)
	result, err := svc.VerifyLink(context.Background(), "token", "", model.DeviceInfo{}, "ua", "1.2.3.4")

	require.NoError(t, err)
	assert.Equal(t, expected, result.Session.FingerprintID)
}

func TestValidateSession_TouchesOnHit(t *testing.T) {
	users := new(mockUserRepo)
	links := new(mockMagicLinkRepo)
	sessions := new(mockSessionRepo)

	svc := authFixture(users, links, sessions)

	tokenHash := util.HmacSHA256("test-secret", "token")
	sessions.On("FindActiveByTokenHash", mock.Anything, tokenHash).
		Return(&model.Session{ID: "sess-1", UserID: "user-1", IsActive: true}, nil)
	users.On("FindByID", mock.Anything, "user-1").
		Return(&model.User{ID: "user-1"}, nil)
	sessions.On("Touch", mock.Anything, "sess-1").Return(nil)

	user, session, err := svc.ValidateSession(context.Background(), "token")

	require.NoError(t, err)
	require.NotNil(t, user)
	require.NotNil(t, session)
	sessions.AssertCalled(t, "Touch", mock.Anything, "sess-1")
}

func TestValidateSession_DisabledUser(t *testing.T) {
	users := new(mockUserRepo)
	links := new(mockMagicLinkRepo)
	sessions := new(mockSessionRepo)

	svc := authFixture(users, links, sessions)

	disabledAt := time.Now()
	sessions.On("FindActiveByTokenHash", mock.Anything, mock.Anything).
		Return(&model.Session{ID: "sess-1", UserID: "user-1", IsActive: true}, nil)
	users.On("FindByID", mock.Anything, "user-1").
		Return(&model.User{ID: "user-1", DisabledAt: &disabledAt}, nil)

	user, session, err := svc.ValidateSession(context.Background(), "token")

	require.NoError(t, err)
	assert.Nil(t, user)
	assert.Nil(t, session)
}

func TestLogout_Idempotent(t *testing.T) {
	users := new(mockUserRepo)
	links := new(mockMagicLinkRepo)
	sessions := new(mockSessionRepo)

	svc := authFixture(users, links, sessions)

	sessions.On("FindActiveByTokenHash", mock.Anything, mock.Anything).Return(nil, nil)

	err := svc.Logout(context.Background(), "token")
	require.NoError(t, err)
	sessions.AssertNotCalled(t, "CloseByIDs", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestLogout_ClosesSession(t *testing.T) {
	users := new(mockUserRepo)
	links := new(mockMagicLinkRepo)
	sessions := new(mockSessionRepo)

	svc := authFixture(users, links, sessions)

	sessions.On("FindActiveByTokenHash", mock.Anything, mock.Anything).
		Return(&model.Session{ID: "sess-1", UserID: "user-1", IsActive: true}, nil)
	sessions.On("CloseByIDs", mock.Anything, "user-1", []string{"sess-1"}, model.CloseReasonUserRequest).
		Return(int64(1), nil)

	err := svc.Logout(context.Background(), "token")
	require.NoError(t, err)
	sessions.AssertExpectations(t)
}
