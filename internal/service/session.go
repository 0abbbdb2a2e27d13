package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	apperrors "github.com/streamgate/gate-server-go/internal/errors"
	"github.com/streamgate/gate-server-go/internal/model"
	"github.com/streamgate/gate-server-go/internal/repository"
)

// ConflictingDevice is one foreign device holding the viewer slot.
type ConflictingDevice struct {
	SessionID     string    `json:"sessionId"`
	FingerprintID string    `json:"fingerprintId"`
	DeviceLabel   string    `json:"deviceLabel,omitempty"`
	Browser       string    `json:"browser,omitempty"`
	OS            string    `json:"os,omitempty"`
	StreamID      string    `json:"streamId"`
	LastActivity  time.Time `json:"lastActivity"`
}

type CheckResult struct {
	CanStream        bool                `json:"canStream"`
	HasActiveSession bool                `json:"hasActiveSession"`
	ActiveDevices    []ConflictingDevice `json:"activeDevices"`
}

type SessionList struct {
	TotalSessions  int             `json:"totalSessions"`
	StreamSessions int             `json:"streamSessions"`
	Sessions       []model.Session `json:"sessions"`
}

type CloseParams struct {
	SessionID *string
	StreamID  *string
	Reason    model.CloseReason
}

type RegisterSessionParams struct {
	UserID        string
	TokenHash     string
	FingerprintID string
	DeviceInfo    model.DeviceInfo
}

type SessionService struct {
	sessionRepo repository.SessionRepository
}

func NewSessionService(sessionRepo repository.SessionRepository) *SessionService {
	return &SessionService{sessionRepo: sessionRepo}
}

// CheckSession decides whether the caller's device may start streaming.
// A foreign-fingerprint streaming session blocks; the caller's own device
// never does. An empty fingerprint cannot be matched against anything, so
// every streaming session counts as foreign.
//
// This is a plain read with no lock: two devices checking concurrently can
// both be told canStream=true until one of them claims the slot and the
// other re-checks. Enforcement is advisory, not transactional.
func (s *SessionService) CheckSession(ctx context.Context, userID, fingerprint string) (*CheckResult, error) {
	sessions, err := s.sessionRepo.FindActiveByUserID(ctx, userID)
	if err != nil {
		return nil, apperrors.Database(err)
	}

	result := &CheckResult{
		CanStream:        true,
		HasActiveSession: len(sessions) > 0,
		ActiveDevices:    []ConflictingDevice{},
	}

	for _, sess := range sessions {
		if !sess.Streaming() {
			continue
		}
		if fingerprint != "" && sess.FingerprintID == fingerprint {
			continue
		}
		result.ActiveDevices = append(result.ActiveDevices, ConflictingDevice{
			SessionID:     sess.ID,
			FingerprintID: sess.FingerprintID,
			DeviceLabel:   sess.DeviceInfo.DeviceLabel,
			Browser:       sess.DeviceInfo.Browser,
			OS:            sess.DeviceInfo.OS,
			StreamID:      *sess.DeviceInfo.ActiveStreamID,
			LastActivity:  sess.LastActivity,
		})
	}

	result.CanStream = len(result.ActiveDevices) == 0
	return result, nil
}

func (s *SessionService) ListSessions(ctx context.Context, userID string) (*SessionList, error) {
	sessions, err := s.sessionRepo.FindActiveByUserID(ctx, userID)
	if err != nil {
		return nil, apperrors.Database(err)
	}

	streaming := 0
	for _, sess := range sessions {
		if sess.Streaming() {
			streaming++
		}
	}

	return &SessionList{
		TotalSessions:  len(sessions),
		StreamSessions: streaming,
		Sessions:       sessions,
	}, nil
}

// CloseSessions deactivates the caller's sessions: one by id, those watching
// a given stream, or all of them. Matching no active session is a NotFound,
// never a fault; closing an already-closed session lands here too, which
// keeps the operation idempotent.
func (s *SessionService) CloseSessions(ctx context.Context, userID string, params CloseParams) (int64, error) {
	if !params.Reason.Valid() {
		return 0, apperrors.InvalidInput("reason", "unknown close reason")
	}

	sessions, err := s.sessionRepo.FindActiveByUserID(ctx, userID)
	if err != nil {
		return 0, apperrors.Database(err)
	}
	if len(sessions) == 0 {
		return 0, apperrors.NotFound("Active session")
	}

	targetIDs := make([]string, 0, len(sessions))
	for _, sess := range sessions {
		switch {
		case params.SessionID != nil:
			if sess.ID == *params.SessionID {
				targetIDs = append(targetIDs, sess.ID)
			}
		case params.StreamID != nil:
			if sess.DeviceInfo.ActiveStreamID != nil && *sess.DeviceInfo.ActiveStreamID == *params.StreamID {
				targetIDs = append(targetIDs, sess.ID)
			}
		default:
			targetIDs = append(targetIDs, sess.ID)
		}
	}

	if len(targetIDs) == 0 {
		return 0, apperrors.NotFound("Matching session")
	}

	closed, err := s.sessionRepo.CloseByIDs(ctx, userID, targetIDs, params.Reason)
	if err != nil {
		return 0, apperrors.Database(err)
	}

	log.Info().
		Str("userId", userID).
		Int64("closed", closed).
		Str("reason", string(params.Reason)).
		Msg("sessions closed")

	return closed, nil
}

// RegisterSession records a new device-login. Sessions are only ever
// soft-deactivated afterwards, never deleted.
func (s *SessionService) RegisterSession(ctx context.Context, params RegisterSessionParams) (*model.Session, error) {
	session, err := s.sessionRepo.Create(ctx, model.CreateSessionParams{
		ID:            uuid.NewString(),
		UserID:        params.UserID,
		TokenHash:     params.TokenHash,
		FingerprintID: params.FingerprintID,
		DeviceInfo:    params.DeviceInfo,
	})
	if err != nil {
		return nil, apperrors.Database(err)
	}

	log.Info().
		Str("sessionId", session.ID).
		Str("userId", params.UserID).
		Str("fingerprintId", params.FingerprintID).
		Msg("session registered")

	return session, nil
}

// ClaimStream marks the session as the one watching streamID. Paired with
// CheckSession this is the check-then-act sequence; the window between the
// two is the documented inconsistency of the gate.
func (s *SessionService) ClaimStream(ctx context.Context, sessionID, streamID string) error {
	if err := s.sessionRepo.SetActiveStream(ctx, sessionID, &streamID); err != nil {
		return apperrors.Database(err)
	}
	return nil
}

// ReleaseStream clears the session's stream marker without closing it.
func (s *SessionService) ReleaseStream(ctx context.Context, sessionID string) error {
	if err := s.sessionRepo.SetActiveStream(ctx, sessionID, nil); err != nil {
		return apperrors.Database(err)
	}
	return nil
}
