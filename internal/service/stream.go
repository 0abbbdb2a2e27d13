package service

import (
	"context"

	"github.com/rs/zerolog/log"

	apperrors "github.com/streamgate/gate-server-go/internal/errors"
	"github.com/streamgate/gate-server-go/internal/model"
	"github.com/streamgate/gate-server-go/internal/repository"
)

type StreamService struct {
	streamRepo     repository.StreamRepository
	paymentService *PaymentService
	sessionService *SessionService
}

func NewStreamService(
	streamRepo repository.StreamRepository,
	paymentService *PaymentService,
	sessionService *SessionService,
) *StreamService {
	return &StreamService{
		streamRepo:     streamRepo,
		paymentService: paymentService,
		sessionService: sessionService,
	}
}

type CurrentStreamResult struct {
	Stream   *model.Stream `json:"stream"`
	Entitled bool          `json:"entitled"`
}

func (s *StreamService) Current(ctx context.Context, userID string) (*CurrentStreamResult, error) {
	stream, err := s.streamRepo.Current(ctx)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if stream == nil {
		return nil, apperrors.NotFound("Stream")
	}

	entitled, err := s.paymentService.IsEntitled(ctx, userID, stream.ID)
	if err != nil {
		return nil, err
	}

	return &CurrentStreamResult{Stream: stream, Entitled: entitled}, nil
}

type WatchResult struct {
	PlaybackURL string `json:"playbackUrl"`
	StreamID    string `json:"streamId"`
}

// Watch hands out the playback URL, which is the act of taking the single
// viewer slot: it requires a completed payment, runs the conflict check, and
// on success marks the caller's session as the streaming one. Check and
// claim are two separate statements; a conflicting device that checks in
// the window between them slips through until the next check.
func (s *StreamService) Watch(ctx context.Context, userID string, session *model.Session) (*WatchResult, error) {
	stream, err := s.streamRepo.Current(ctx)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if stream == nil {
		return nil, apperrors.NotFound("Stream")
	}

	entitled, err := s.paymentService.IsEntitled(ctx, userID, stream.ID)
	if err != nil {
		return nil, err
	}
	if !entitled {
		return nil, apperrors.PaymentNotPaid()
	}

	check, err := s.sessionService.CheckSession(ctx, userID, session.FingerprintID)
	if err != nil {
		return nil, err
	}
	if !check.CanStream {
		return nil, apperrors.New(apperrors.ErrCodeConflict, "Another device is streaming").
			WithDetails(check.ActiveDevices)
	}

	if err := s.sessionService.ClaimStream(ctx, session.ID, stream.ID); err != nil {
		return nil, err
	}

	log.Info().
		Str("userId", userID).
		Str("sessionId", session.ID).
		Str("streamId", stream.ID).
		Msg("stream claimed")

	return &WatchResult{PlaybackURL: stream.PlaybackURL, StreamID: stream.ID}, nil
}
