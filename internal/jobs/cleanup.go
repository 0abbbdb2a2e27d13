package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/streamgate/gate-server-go/internal/repository"
)

// CleanupJob periodically closes idle sessions and removes expired rows.
// Sessions are soft-closed with reason session_timeout; magic links and admin
// sessions are deleted outright, pending payments are failed after their TTL.
type CleanupJob struct {
	sessionRepo      repository.SessionRepository
	linkRepo         repository.MagicLinkRepository
	adminSessionRepo repository.AdminSessionRepository
	paymentRepo      repository.PaymentRepository
	interval         time.Duration
	idleTimeout      time.Duration
	pendingTTL       time.Duration
}

func NewCleanupJob(
	sessionRepo repository.SessionRepository,
	linkRepo repository.MagicLinkRepository,
	adminSessionRepo repository.AdminSessionRepository,
	paymentRepo repository.PaymentRepository,
	interval, idleTimeout, pendingTTL time.Duration,
) *CleanupJob {
	return &CleanupJob{
		sessionRepo:      sessionRepo,
		linkRepo:         linkRepo,
		adminSessionRepo: adminSessionRepo,
		paymentRepo:      paymentRepo,
		interval:         interval,
		idleTimeout:      idleTimeout,
		pendingTTL:       pendingTTL,
	}
}

// Start runs the cleanup loop until ctx is cancelled. One pass runs
// immediately so a restart does not postpone overdue timeouts.
func (j *CleanupJob) Start(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.RunOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("cleanup job stopped")
			return
		case <-ticker.C:
			j.RunOnce(ctx)
		}
	}
}

// RunOnce executes a single cleanup pass. Each step logs and continues on
// failure; a broken step must not starve the others.
func (j *CleanupJob) RunOnce(ctx context.Context) {
	now := time.Now()

	closed, err := j.sessionRepo.CloseStale(ctx, now.Add(-j.idleTimeout))
	if err != nil {
		log.Error().Err(err).Msg("cleanup: failed to close stale sessions")
	} else if closed > 0 {
		log.Info().Int64("closed", closed).Msg("cleanup: stale sessions closed")
	}

	deleted, err := j.linkRepo.DeleteExpired(ctx)
	if err != nil {
		log.Error().Err(err).Msg("cleanup: failed to delete expired magic links")
	} else if deleted > 0 {
		log.Info().Int64("deleted", deleted).Msg("cleanup: expired magic links removed")
	}

	deleted, err = j.adminSessionRepo.DeleteExpired(ctx)
	if err != nil {
		log.Error().Err(err).Msg("cleanup: failed to delete expired admin sessions")
	} else if deleted > 0 {
		log.Info().Int64("deleted", deleted).Msg("cleanup: expired admin sessions removed")
	}

	expired, err := j.paymentRepo.ExpirePending(ctx, now.Add(-j.pendingTTL))
	if err != nil {
		log.Error().Err(err).Msg("cleanup: failed to expire pending payments")
	} else if expired > 0 {
		log.Info().Int64("expired", expired).Msg("cleanup: pending payments expired")
	}
}
