package service

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "github.com/streamgate/gate-server-go/internal/errors"
	"github.com/streamgate/gate-server-go/internal/model"
	"github.com/streamgate/gate-server-go/internal/repository"
)

type mockSessionRepo struct {
	mock.Mock
}

func (m *mockSessionRepo) FindByID(ctx context.Context, id string) (*model.Session, error) {
	args := m.Called(ctx, id)
	if s := args.Get(0); s != nil {
		return s.(*model.Session), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockSessionRepo) FindActiveByTokenHash(ctx context.Context, tokenHash string) (*model.Session, error) {
	args := m.Called(ctx, tokenHash)
	if s := args.Get(0); s != nil {
		return s.(*model.Session), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockSessionRepo) FindActiveByUserID(ctx context.Context, userID string) ([]model.Session, error) {
	args := m.Called(ctx, userID)
	if s := args.Get(0); s != nil {
		return s.([]model.Session), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockSessionRepo) Create(ctx context.Context, params model.CreateSessionParams) (*model.Session, error) {
	args := m.Called(ctx, params)
	if s := args.Get(0); s != nil {
		return s.(*model.Session), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockSessionRepo) Touch(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockSessionRepo) SetActiveStream(ctx context.Context, id string, streamID *string) error {
	return m.Called(ctx, id, streamID).Error(0)
}

func (m *mockSessionRepo) CloseByIDs(ctx context.Context, userID string, ids []string, reason model.CloseReason) (int64, error) {
	args := m.Called(ctx, userID, ids, reason)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockSessionRepo) CloseStale(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockSessionRepo) CountActiveByUserID(ctx context.Context, userID string) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func (m *mockSessionRepo) CountActive(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *mockSessionRepo) CountStreaming(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *mockSessionRepo) WithTx(tx *sqlx.Tx) repository.SessionRepository {
	return m
}

func strPtr(s string) *string { return &s }

func streamingSession(id, fingerprint, streamID string) model.Session {
	return model.Session{
		ID:            id,
		UserID:        "user-1",
		FingerprintID: fingerprint,
		DeviceInfo:    model.DeviceInfo{ActiveStreamID: strPtr(streamID), Browser: "Firefox"},
		IsActive:      true,
		LastActivity:  time.Now(),
	}
}

func idleSession(id, fingerprint string) model.Session {
	return model.Session{
		ID:            id,
		UserID:        "user-1",
		FingerprintID: fingerprint,
		IsActive:      true,
		LastActivity:  time.Now(),
	}
}

func TestCheckSession_NoSessions(t *testing.T) {
	repo := new(mockSessionRepo)
	repo.On("FindActiveByUserID", mock.Anything, "user-1").Return([]model.Session{}, nil)

	svc := NewSessionService(repo)
	result, err := svc.CheckSession(context.Background(), "user-1", "fp-a")

	require.NoError(t, err)
	assert.True(t, result.CanStream)
	assert.False(t, result.HasActiveSession)
	assert.Empty(t, result.ActiveDevices)
}

func TestCheckSession_OwnDeviceStreaming(t *testing.T) {
	repo := new(mockSessionRepo)
	repo.On("FindActiveByUserID", mock.Anything, "user-1").Return([]model.Session{
		streamingSession("sess-1", "fp-a", "stream-1"),
	}, nil)

	svc := NewSessionService(repo)
	result, err := svc.CheckSession(context.Background(), "user-1", "fp-a")

	require.NoError(t, err)
	assert.True(t, result.CanStream, "own device never blocks itself")
	assert.True(t, result.HasActiveSession)
	assert.Empty(t, result.ActiveDevices)
}

func TestCheckSession_ForeignDeviceBlocks(t *testing.T) {
	repo := new(mockSessionRepo)
	repo.On("FindActiveByUserID", mock.Anything, "user-1").Return([]model.Session{
		streamingSession("sess-1", "fp-other", "stream-1"),
	}, nil)

	svc := NewSessionService(repo)
	result, err := svc.CheckSession(context.Background(), "user-1", "fp-a")

	require.NoError(t, err)
	assert.False(t, result.CanStream)
	require.Len(t, result.ActiveDevices, 1)
	assert.Equal(t, "sess-1", result.ActiveDevices[0].SessionID)
	assert.Equal(t, "stream-1", result.ActiveDevices[0].StreamID)
	assert.Equal(t, "Firefox", result.ActiveDevices[0].Browser)
}

func TestCheckSession_IdleSessionsNeverBlock(t *testing.T) {
	repo := new(mockSessionRepo)
	repo.On("FindActiveByUserID", mock.Anything, "user-1").Return([]model.Session{
		idleSession("sess-1", "fp-other"),
		idleSession("sess-2", "fp-third"),
	}, nil)

	svc := NewSessionService(repo)
	result, err := svc.CheckSession(context.Background(), "user-1", "fp-a")

	require.NoError(t, err)
	assert.True(t, result.CanStream)
	assert.True(t, result.HasActiveSession)
	assert.Empty(t, result.ActiveDevices)
}

func TestCheckSession_EmptyFingerprintTreatsAllAsForeign(t *testing.T) {
	repo := new(mockSessionRepo)
	repo.On("FindActiveByUserID", mock.Anything, "user-1").Return([]model.Session{
		streamingSession("sess-1", "fp-a", "stream-1"),
	}, nil)

	svc := NewSessionService(repo)
	result, err := svc.CheckSession(context.Background(), "user-1", "")

	require.NoError(t, err)
	assert.False(t, result.CanStream, "without a fingerprint nothing can match as own")
	require.Len(t, result.ActiveDevices, 1)
}

func TestListSessions_Counts(t *testing.T) {
	repo := new(mockSessionRepo)
	repo.On("FindActiveByUserID", mock.Anything, "user-1").Return([]model.Session{
		streamingSession("sess-1", "fp-a", "stream-1"),
		idleSession("sess-2", "fp-b"),
		idleSession("sess-3", "fp-c"),
	}, nil)

	svc := NewSessionService(repo)
	list, err := svc.ListSessions(context.Background(), "user-1")

	require.NoError(t, err)
	assert.Equal(t, 3, list.TotalSessions)
	assert.Equal(t, 1, list.StreamSessions)
	assert.Len(t, list.Sessions, 3)
}

func TestCloseSessions_All(t *testing.T) {
	repo := new(mockSessionRepo)
	repo.On("FindActiveByUserID", mock.Anything, "user-1").Return([]model.Session{
		streamingSession("sess-1", "fp-a", "stream-1"),
		idleSession("sess-2", "fp-b"),
	}, nil)
	repo.On("CloseByIDs", mock.Anything, "user-1", []string{"sess-1", "sess-2"}, model.CloseReasonUserRequest).
		Return(int64(2), nil)

	svc := NewSessionService(repo)
	closed, err := svc.CloseSessions(context.Background(), "user-1", CloseParams{
		Reason: model.CloseReasonUserRequest,
	})

	require.NoError(t, err)
	assert.Equal(t, int64(2), closed)
	repo.AssertExpectations(t)
}

func TestCloseSessions_SessionIDWinsOverStreamID(t *testing.T) {
	repo := new(mockSessionRepo)
	repo.On("FindActiveByUserID", mock.Anything, "user-1").Return([]model.Session{
		streamingSession("sess-1", "fp-a", "stream-1"),
		streamingSession("sess-2", "fp-b", "stream-1"),
	}, nil)
	repo.On("CloseByIDs", mock.Anything, "user-1", []string{"sess-2"}, model.CloseReasonUserRequest).
		Return(int64(1), nil)

	svc := NewSessionService(repo)
	closed, err := svc.CloseSessions(context.Background(), "user-1", CloseParams{
		SessionID: strPtr("sess-2"),
		StreamID:  strPtr("stream-1"),
		Reason:    model.CloseReasonUserRequest,
	})

	require.NoError(t, err)
	assert.Equal(t, int64(1), closed)
	repo.AssertExpectations(t)
}

func TestCloseSessions_ByStreamID(t *testing.T) {
	repo := new(mockSessionRepo)
	repo.On("FindActiveByUserID", mock.Anything, "user-1").Return([]model.Session{
		streamingSession("sess-1", "fp-a", "stream-1"),
		streamingSession("sess-2", "fp-b", "stream-2"),
		idleSession("sess-3", "fp-c"),
	}, nil)
	repo.On("CloseByIDs", mock.Anything, "user-1", []string{"sess-1"}, model.CloseReasonDeviceLimit).
		Return(int64(1), nil)

	svc := NewSessionService(repo)
	closed, err := svc.CloseSessions(context.Background(), "user-1", CloseParams{
		StreamID: strPtr("stream-1"),
		Reason:   model.CloseReasonDeviceLimit,
	})

	require.NoError(t, err)
	assert.Equal(t, int64(1), closed)
}

func TestCloseSessions_NoActiveSessions(t *testing.T) {
	repo := new(mockSessionRepo)
	repo.On("FindActiveByUserID", mock.Anything, "user-1").Return([]model.Session{}, nil)

	svc := NewSessionService(repo)
	_, err := svc.CloseSessions(context.Background(), "user-1", CloseParams{
		Reason: model.CloseReasonUserRequest,
	})

	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeNotFound, apperrors.GetCode(err))
}

func TestCloseSessions_NoMatchIsNotFound(t *testing.T) {
	repo := new(mockSessionRepo)
	repo.On("FindActiveByUserID", mock.Anything, "user-1").Return([]model.Session{
		idleSession("sess-1", "fp-a"),
	}, nil)

	svc := NewSessionService(repo)
	_, err := svc.CloseSessions(context.Background(), "user-1", CloseParams{
		SessionID: strPtr("sess-unknown"),
		Reason:    model.CloseReasonUserRequest,
	})

	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeNotFound, apperrors.GetCode(err))
	repo.AssertNotCalled(t, "CloseByIDs", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCloseSessions_InvalidReason(t *testing.T) {
	repo := new(mockSessionRepo)

	svc := NewSessionService(repo)
	_, err := svc.CloseSessions(context.Background(), "user-1", CloseParams{
		Reason: model.CloseReason("because"),
	})

	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeInvalidInput, apperrors.GetCode(err))
}

func TestRegisterSession(t *testing.T) {
	repo := new(mockSessionRepo)
	repo.On("Create", mock.Anything, mock.MatchedBy(func(p model.CreateSessionParams) bool {
		return p.ID != "" && p.UserID == "user-1" && p.FingerprintID == "fp-a"
	})).Return(&model.Session{ID: "sess-1", UserID: "user-1"}, nil)

	svc := NewSessionService(repo)
	session, err := svc.RegisterSession(context.Background(), RegisterSessionParams{
		UserID:        "user-1",
		TokenHash:     "hash",
		FingerprintID: "fp-a",
	})

	require.NoError(t, err)
	assert.Equal(t, "sess-1", session.ID)
	repo.AssertExpectations(t)
}

func TestClaimAndReleaseStream(t *testing.T) {
	repo := new(mockSessionRepo)
	repo.On("SetActiveStream", mock.Anything, "sess-1", mock.MatchedBy(func(s *string) bool {
		return s != nil && *s == "stream-1"
	})).Return(nil)
	repo.On("SetActiveStream", mock.Anything, "sess-1", (*string)(nil)).Return(nil)

	svc := NewSessionService(repo)
	require.NoError(t, svc.ClaimStream(context.Background(), "sess-1", "stream-1"))
	require.NoError(t, svc.ReleaseStream(context.Background(), "sess-1"))
	repo.AssertExpectations(t)
}

// Full device-switch sequence: device A streams, device B is blocked, closing
// A's session by stream frees the slot for B.
func TestDeviceSwitchScenario(t *testing.T) {
	repo := new(mockSessionRepo)
	svc := NewSessionService(repo)
	ctx := context.Background()

	withA := []model.Session{
		streamingSession("sess-a", "fp-a", "stream-1"),
		idleSession("sess-b", "fp-b"),
	}
	repo.On("FindActiveByUserID", mock.Anything, "user-1").Return(withA, nil).Times(2)

	check, err := svc.CheckSession(ctx, "user-1", "fp-b")
	require.NoError(t, err)
	require.False(t, check.CanStream)

	repo.On("CloseByIDs", mock.Anything, "user-1", []string{"sess-a"}, model.CloseReasonDeviceLimit).
		Return(int64(1), nil).Once()
	closed, err := svc.CloseSessions(ctx, "user-1", CloseParams{
		SessionID: strPtr("sess-a"),
		Reason:    model.CloseReasonDeviceLimit,
	})
	require.NoError(t, err)
	require.Equal(t, int64(1), closed)

	afterClose := []model.Session{idleSession("sess-b", "fp-b")}
	repo.On("FindActiveByUserID", mock.Anything, "user-1").Return(afterClose, nil).Once()

	check, err = svc.CheckSession(ctx, "user-1", "fp-b")
	require.NoError(t, err)
	assert.True(t, check.CanStream)
}
