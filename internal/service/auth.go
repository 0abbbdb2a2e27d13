package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/streamgate/gate-server-go/internal/config"
	apperrors "github.com/streamgate/gate-server-go/internal/errors"
	"github.com/streamgate/gate-server-go/internal/mail"
	"github.com/streamgate/gate-server-go/internal/model"
	"github.com/streamgate/gate-server-go/internal/redis"
	"github.com/streamgate/gate-server-go/internal/repository"
	"github.com/streamgate/gate-server-go/internal/util"
)

type AuthService struct {
	userRepo       repository.UserRepository
	linkRepo       repository.MagicLinkRepository
	sessionService *SessionService
	sessionRepo    repository.SessionRepository
	rateLimiter    *RateLimiter
	mailer         mail.Mailer
	sessionSecret  string
	publicBaseURL  string
	linkTTL        time.Duration
}

func NewAuthService(
	userRepo repository.UserRepository,
	linkRepo repository.MagicLinkRepository,
	sessionService *SessionService,
	sessionRepo repository.SessionRepository,
	rateLimiter *RateLimiter,
	mailer mail.Mailer,
	sessionSecret, publicBaseURL string,
	linkTTL time.Duration,
) *AuthService {
	return &AuthService{
		userRepo:       userRepo,
		linkRepo:       linkRepo,
		sessionService: sessionService,
		sessionRepo:    sessionRepo,
		rateLimiter:    rateLimiter,
		mailer:         mailer,
		sessionSecret:  sessionSecret,
		publicBaseURL:  publicBaseURL,
		linkTTL:        linkTTL,
	}
}

// RequestLink issues a single-use login link for the address. The caller
// must respond identically whether or not the address is known, so this
// never reports whether a user exists.
func (s *AuthService) RequestLink(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))

	allowed, _ := s.rateLimiter.CheckLimit(
		ctx, redis.MagicLinkThrottleKey(email),
		config.MagicLinkRequestsPerHour, time.Hour,
	)
	if !allowed {
		return apperrors.RateLimitExceeded()
	}

	token, err := util.GenerateToken()
	if err != nil {
		return apperrors.Internal("failed to generate login token").WithCause(err)
	}

	expiresAt := time.Now().Add(s.linkTTL)
	if _, err := s.linkRepo.Create(ctx, model.CreateMagicLinkParams{
		Email:     email,
		TokenHash: util.HashToken(token),
		ExpiresAt: expiresAt,
	}); err != nil {
		return apperrors.Database(err)
	}

	link := fmt.Sprintf("%s/v1/auth/verify?token=%s", s.publicBaseURL, token)
	if err := s.mailer.SendMagicLink(ctx, email, link); err != nil {
		return apperrors.External("mailer", err)
	}

	log.Info().
		Str("email", util.MaskEmail(email)).
		Time("expiresAt", expiresAt).
		Msg("magic link created")

	return nil
}

type LoginResult struct {
	User         *model.User
	Session      *model.Session
	SessionToken string
}

// VerifyLink trades a magic-link token for a logged-in session. This is the
// creation point for session rows: each successful login is one device-login
// row tagged with the client's fingerprint.
func (s *AuthService) VerifyLink(ctx context.Context, token, fingerprint string, deviceInfo model.DeviceInfo, userAgent, ip string) (*LoginResult, error) {
	link, err := s.linkRepo.FindActiveByTokenHash(ctx, util.HashToken(token))
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if link == nil {
		return nil, apperrors.InvalidMagicLink()
	}
	if time.Now().After(link.ExpiresAt) {
		return nil, apperrors.MagicLinkExpired()
	}

	if err := s.linkRepo.MarkUsed(ctx, link.ID); err != nil {
		return nil, apperrors.Database(err)
	}

	user, err := s.userRepo.FindByEmail(ctx, link.Email)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if user == nil {
		user, err = s.userRepo.Create(ctx, model.CreateUserParams{Email: link.Email})
		if err != nil {
			return nil, apperrors.Database(err)
		}
	}

	if err := s.userRepo.UpdateLastLogin(ctx, user.ID); err != nil {
		log.Warn().Err(err).Str("userId", user.ID).Msg("failed to update last login")
	}

	// Self-reported and untrusted; the fallback only exists so conflict
	// detection has something to partition on.
	if fingerprint == "" {
		fingerprint = util.FingerprintFallback(userAgent, ip)
	}

	sessionToken, err := util.GenerateToken()
	if err != nil {
		return nil, apperrors.Internal("failed to generate session token").WithCause(err)
	}

	session, err := s.sessionService.RegisterSession(ctx, RegisterSessionParams{
		UserID:        user.ID,
		TokenHash:     util.HmacSHA256(s.sessionSecret, sessionToken),
		FingerprintID: fingerprint,
		DeviceInfo:    deviceInfo,
	})
	if err != nil {
		return nil, err
	}

	return &LoginResult{
		User:         user,
		Session:      session,
		SessionToken: sessionToken,
	}, nil
}

// ValidateSession resolves a session cookie token to its user and session
// row, refreshing last_activity as the heartbeat.
func (s *AuthService) ValidateSession(ctx context.Context, token string) (*model.User, *model.Session, error) {
	session, err := s.sessionRepo.FindActiveByTokenHash(ctx, util.HmacSHA256(s.sessionSecret, token))
	if err != nil {
		return nil, nil, apperrors.Database(err)
	}
	if session == nil {
		return nil, nil, nil
	}

	user, err := s.userRepo.FindByID(ctx, session.UserID)
	if err != nil {
		return nil, nil, apperrors.Database(err)
	}
	if user == nil || user.DisabledAt != nil {
		return nil, nil, nil
	}

	if err := s.sessionRepo.Touch(ctx, session.ID); err != nil {
		log.Warn().Err(err).Str("sessionId", session.ID).Msg("failed to touch session")
	}

	return user, session, nil
}

// Logout closes the device session behind the cookie. Missing or already
// closed sessions are a no-op: logging out twice is not an error.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	session, err := s.sessionRepo.FindActiveByTokenHash(ctx, util.HmacSHA256(s.sessionSecret, token))
	if err != nil || session == nil {
		return nil
	}

	_, err = s.sessionRepo.CloseByIDs(ctx, session.UserID, []string{session.ID}, model.CloseReasonUserRequest)
	return err
}
