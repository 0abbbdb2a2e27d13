package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/streamgate/gate-server-go/internal/model"
)

type StreamRepository interface {
	FindByID(ctx context.Context, id string) (*model.Stream, error)
	// Current returns the stream event being sold, the most recently
	// scheduled one.
	Current(ctx context.Context) (*model.Stream, error)
	Update(ctx context.Context, id string, params model.UpdateStreamParams) (*model.Stream, error)
}

type streamRepo struct {
	db *sqlx.DB
}

func NewStreamRepository(db *sqlx.DB) StreamRepository {
	return &streamRepo{db: db}
}

func (r *streamRepo) FindByID(ctx context.Context, id string) (*model.Stream, error) {
	var stream model.Stream
	err := r.db.GetContext(ctx, &stream, `
		SELECT * FROM streams WHERE id = $1
	`, id)
	return HandleNotFound(&stream, err)
}

func (r *streamRepo) Current(ctx context.Context) (*model.Stream, error) {
	var stream model.Stream
	err := r.db.GetContext(ctx, &stream, `
		SELECT * FROM streams
		ORDER BY starts_at DESC
		LIMIT 1
	`)
	return HandleNotFound(&stream, err)
}

func (r *streamRepo) Update(ctx context.Context, id string, params model.UpdateStreamParams) (*model.Stream, error) {
	var stream model.Stream
	err := r.db.GetContext(ctx, &stream, `
		UPDATE streams SET
			title = COALESCE($2, title),
			description = COALESCE($3, description),
			playback_url = COALESCE($4, playback_url),
			price_minor = COALESCE($5, price_minor),
			currency = COALESCE($6, currency),
			starts_at = COALESCE($7, starts_at),
			is_live = COALESCE($8, is_live),
			updated_at = $9
		WHERE id = $1
		RETURNING *
	`, id, params.Title, params.Description, params.PlaybackURL,
		params.PriceMinor, params.Currency, params.StartsAt, params.IsLive, time.Now())
	return HandleNotFound(&stream, err)
}
