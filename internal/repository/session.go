package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/streamgate/gate-server-go/internal/model"
)

type SessionRepository interface {
	FindByID(ctx context.Context, id string) (*model.Session, error)
	FindActiveByTokenHash(ctx context.Context, tokenHash string) (*model.Session, error)
	// FindActiveByUserID returns all active sessions for a user, most
	// recently active first.
	FindActiveByUserID(ctx context.Context, userID string) ([]model.Session, error)
	Create(ctx context.Context, params model.CreateSessionParams) (*model.Session, error)
	Touch(ctx context.Context, id string) error
	SetActiveStream(ctx context.Context, id string, streamID *string) error
	// CloseByIDs deactivates the given sessions, scoped to the owning user.
	// Rows that are already inactive are not matched.
	CloseByIDs(ctx context.Context, userID string, ids []string, reason model.CloseReason) (int64, error)
	// CloseStale deactivates active sessions idle since before cutoff.
	CloseStale(ctx context.Context, cutoff time.Time) (int64, error)
	CountActiveByUserID(ctx context.Context, userID string) (int, error)
	CountActive(ctx context.Context) (int, error)
	CountStreaming(ctx context.Context) (int, error)
	// WithTx returns a new repository that uses the given transaction
	WithTx(tx *sqlx.Tx) SessionRepository
}

// sessionDB is an interface satisfied by both *sqlx.DB and *sqlx.Tx
type sessionDB interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

type sessionRepo struct {
	db sessionDB
}

func NewSessionRepository(db *sqlx.DB) SessionRepository {
	return &sessionRepo{db: db}
}

func (r *sessionRepo) WithTx(tx *sqlx.Tx) SessionRepository {
	return &sessionRepo{db: tx}
}

func (r *sessionRepo) FindByID(ctx context.Context, id string) (*model.Session, error) {
	var session model.Session
	err := r.db.GetContext(ctx, &session, `
		SELECT * FROM sessions WHERE id = $1
	`, id)
	return HandleNotFound(&session, err)
}

func (r *sessionRepo) FindActiveByTokenHash(ctx context.Context, tokenHash string) (*model.Session, error) {
	var session model.Session
	err := r.db.GetContext(ctx, &session, `
		SELECT * FROM sessions
		WHERE token_hash = $1
		AND is_active = true
		AND (expires_at IS NULL OR expires_at > NOW())
	`, tokenHash)
	return HandleNotFound(&session, err)
}

func (r *sessionRepo) FindActiveByUserID(ctx context.Context, userID string) ([]model.Session, error) {
	sessions := []model.Session{}
	err := r.db.SelectContext(ctx, &sessions, `
		SELECT * FROM sessions
		WHERE user_id = $1 AND is_active = true
		ORDER BY last_activity DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	return sessions, nil
}

func (r *sessionRepo) Create(ctx context.Context, params model.CreateSessionParams) (*model.Session, error) {
	var session model.Session
	err := r.db.GetContext(ctx, &session, `
		INSERT INTO sessions (id, user_id, token_hash, fingerprint_id, device_info, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING *
	`, params.ID, params.UserID, params.TokenHash, params.FingerprintID, params.DeviceInfo, params.ExpiresAt)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *sessionRepo) Touch(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE sessions SET last_activity = $2 WHERE id = $1
	`, id, time.Now())
	return err
}

func (r *sessionRepo) SetActiveStream(ctx context.Context, id string, streamID *string) error {
	if streamID == nil {
		_, err := r.db.ExecContext(ctx, `
			UPDATE sessions SET
				device_info = device_info - 'activeStreamId',
				last_activity = $2
			WHERE id = $1
		`, id, time.Now())
		return err
	}

	_, err := r.db.ExecContext(ctx, `
		UPDATE sessions SET
			device_info = jsonb_set(device_info, '{activeStreamId}', to_jsonb($2::text), true),
			last_activity = $3
		WHERE id = $1
	`, id, *streamID, time.Now())
	return err
}

func (r *sessionRepo) CloseByIDs(ctx context.Context, userID string, ids []string, reason model.CloseReason) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	result, err := r.db.ExecContext(ctx, `
		UPDATE sessions SET
			is_active = false,
			closed_reason = $3,
			last_activity = $4
		WHERE user_id = $1 AND id = ANY($2) AND is_active = true
	`, userID, pq.Array(ids), reason, time.Now())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *sessionRepo) CloseStale(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE sessions SET
			is_active = false,
			closed_reason = $1
		WHERE is_active = true AND last_activity < $2
	`, model.CloseReasonSessionTimeout, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *sessionRepo) CountActiveByUserID(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM sessions WHERE user_id = $1 AND is_active = true
	`, userID)
	return count, err
}

func (r *sessionRepo) CountActive(ctx context.Context) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM sessions WHERE is_active = true
	`)
	return count, err
}

func (r *sessionRepo) CountStreaming(ctx context.Context) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM sessions
		WHERE is_active = true AND device_info ? 'activeStreamId'
	`)
	return count, err
}
