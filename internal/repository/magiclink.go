package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/streamgate/gate-server-go/internal/model"
)

type MagicLinkRepository interface {
	Create(ctx context.Context, params model.CreateMagicLinkParams) (*model.MagicLink, error)
	FindActiveByTokenHash(ctx context.Context, tokenHash string) (*model.MagicLink, error)
	MarkUsed(ctx context.Context, id string) error
	DeleteExpired(ctx context.Context) (int64, error)
}

type magicLinkRepo struct {
	db *sqlx.DB
}

func NewMagicLinkRepository(db *sqlx.DB) MagicLinkRepository {
	return &magicLinkRepo{db: db}
}

func (r *magicLinkRepo) Create(ctx context.Context, params model.CreateMagicLinkParams) (*model.MagicLink, error) {
	var link model.MagicLink
	err := r.db.GetContext(ctx, &link, `
		INSERT INTO magic_links (email, token_hash, expires_at)
		VALUES ($1, $2, $3)
		RETURNING *
	`, params.Email, params.TokenHash, params.ExpiresAt)
	if err != nil {
		return nil, err
	}
	return &link, nil
}

func (r *magicLinkRepo) FindActiveByTokenHash(ctx context.Context, tokenHash string) (*model.MagicLink, error) {
	var link model.MagicLink
	err := r.db.GetContext(ctx, &link, `
		SELECT * FROM magic_links
		WHERE token_hash = $1 AND used_at IS NULL
	`, tokenHash)
	return HandleNotFound(&link, err)
}

func (r *magicLinkRepo) MarkUsed(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE magic_links SET used_at = $2 WHERE id = $1 AND used_at IS NULL
	`, id, time.Now())
	return err
}

func (r *magicLinkRepo) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM magic_links
		WHERE expires_at < NOW() OR used_at IS NOT NULL
	`)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
