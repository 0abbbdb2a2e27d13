package model

import (
	"time"
)

type MagicLink struct {
	ID        string     `db:"id" json:"id"`
	Email     string     `db:"email" json:"email"`
	TokenHash string     `db:"token_hash" json:"-"`
	ExpiresAt time.Time  `db:"expires_at" json:"expiresAt"`
	UsedAt    *time.Time `db:"used_at" json:"usedAt,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"createdAt"`
}

type CreateMagicLinkParams struct {
	Email     string
	TokenHash string
	ExpiresAt time.Time
}
