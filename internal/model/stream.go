package model

import (
	"time"
)

type Stream struct {
	ID          string    `db:"id" json:"id"`
	Title       string    `db:"title" json:"title"`
	Description *string   `db:"description" json:"description,omitempty"`
	PlaybackURL string    `db:"playback_url" json:"-"`
	PriceMinor  int64     `db:"price_minor" json:"priceMinor"`
	Currency    string    `db:"currency" json:"currency"`
	StartsAt    time.Time `db:"starts_at" json:"startsAt"`
	IsLive      bool      `db:"is_live" json:"isLive"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `db:"updated_at" json:"updatedAt"`
}

type UpdateStreamParams struct {
	Title       *string
	Description *string
	PlaybackURL *string
	PriceMinor  *int64
	Currency    *string
	StartsAt    *time.Time
	IsLive      *bool
}
