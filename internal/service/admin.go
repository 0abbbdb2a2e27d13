package service

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	apperrors "github.com/streamgate/gate-server-go/internal/errors"
	"github.com/streamgate/gate-server-go/internal/model"
	"github.com/streamgate/gate-server-go/internal/repository"
	"github.com/streamgate/gate-server-go/internal/util"
)

const adminSessionTTL = 24 * time.Hour

type AdminService struct {
	sessionRepo       repository.AdminSessionRepository
	userRepo          repository.UserRepository
	paymentRepo       repository.PaymentRepository
	streamRepo        repository.StreamRepository
	userSessionRepo   repository.SessionRepository
	paymentService    *PaymentService
	adminPasswordHash string
	sessionSecret     string
}

func NewAdminService(
	sessionRepo repository.AdminSessionRepository,
	userRepo repository.UserRepository,
	paymentRepo repository.PaymentRepository,
	streamRepo repository.StreamRepository,
	userSessionRepo repository.SessionRepository,
	paymentService *PaymentService,
	adminPasswordHash, sessionSecret string,
) *AdminService {
	return &AdminService{
		sessionRepo:       sessionRepo,
		userRepo:          userRepo,
		paymentRepo:       paymentRepo,
		streamRepo:        streamRepo,
		userSessionRepo:   userSessionRepo,
		paymentService:    paymentService,
		adminPasswordHash: adminPasswordHash,
		sessionSecret:     sessionSecret,
	}
}

// Login returns a session token on success, empty string on a wrong password.
func (s *AdminService) Login(ctx context.Context, password string) (string, error) {
	if s.adminPasswordHash == "" || !util.CheckPasswordHash(password, s.adminPasswordHash) {
		return "", nil
	}

	token, err := util.GenerateToken()
	if err != nil {
		return "", err
	}

	_, err = s.sessionRepo.Create(ctx, model.CreateAdminSessionParams{
		TokenHash: util.HmacSHA256(s.sessionSecret, token),
		ExpiresAt: time.Now().Add(adminSessionTTL),
	})
	if err != nil {
		return "", err
	}

	return token, nil
}

func (s *AdminService) Logout(ctx context.Context, token string) error {
	return s.sessionRepo.DeleteByTokenHash(ctx, util.HmacSHA256(s.sessionSecret, token))
}

func (s *AdminService) ValidateSession(ctx context.Context, token string) bool {
	session, err := s.sessionRepo.FindByTokenHash(ctx, util.HmacSHA256(s.sessionSecret, token))
	return err == nil && session != nil
}

type Stats struct {
	Users             int `json:"users"`
	Payments          int `json:"payments"`
	ActiveSessions    int `json:"activeSessions"`
	StreamingSessions int `json:"streamingSessions"`
}

func (s *AdminService) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}

	users, _ := s.userRepo.Count(ctx)
	stats.Users = users

	payments, _ := s.paymentRepo.Count(ctx)
	stats.Payments = payments

	active, _ := s.userSessionRepo.CountActive(ctx)
	stats.ActiveSessions = active

	streaming, _ := s.userSessionRepo.CountStreaming(ctx)
	stats.StreamingSessions = streaming

	return stats, nil
}

func (s *AdminService) ListUsers(ctx context.Context, limit, offset int) ([]model.User, int, error) {
	users, err := s.userRepo.List(ctx, limit, offset)
	if err != nil {
		return nil, 0, apperrors.Database(err)
	}
	total, err := s.userRepo.Count(ctx)
	if err != nil {
		return nil, 0, apperrors.Database(err)
	}
	return users, total, nil
}

func (s *AdminService) ListPayments(ctx context.Context, limit, offset int) ([]model.Payment, int, error) {
	payments, err := s.paymentRepo.List(ctx, limit, offset)
	if err != nil {
		return nil, 0, apperrors.Database(err)
	}
	total, err := s.paymentRepo.Count(ctx)
	if err != nil {
		return nil, 0, apperrors.Database(err)
	}
	return payments, total, nil
}

func (s *AdminService) RefundPayment(ctx context.Context, paymentID string) (*model.Payment, error) {
	return s.paymentService.Refund(ctx, paymentID)
}

func (s *AdminService) UpdateStream(ctx context.Context, id string, params model.UpdateStreamParams) (*model.Stream, error) {
	stream, err := s.streamRepo.Update(ctx, id, params)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if stream == nil {
		return nil, apperrors.NotFound("Stream")
	}
	return stream, nil
}

func (s *AdminService) ListUserSessions(ctx context.Context, userID string) ([]model.Session, error) {
	sessions, err := s.userSessionRepo.FindActiveByUserID(ctx, userID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	return sessions, nil
}

// EvictSession closes another user's device session. This is the only path
// that crosses user boundaries; the user-facing close endpoint always scopes
// to the authenticated caller.
func (s *AdminService) EvictSession(ctx context.Context, userID, sessionID string) error {
	closed, err := s.userSessionRepo.CloseByIDs(ctx, userID, []string{sessionID}, model.CloseReasonAdminAction)
	if err != nil {
		return apperrors.Database(err)
	}
	if closed == 0 {
		return apperrors.NotFound("Active session")
	}

	log.Info().
		Str("userId", userID).
		Str("sessionId", sessionID).
		Msg("session evicted by admin")

	return nil
}
