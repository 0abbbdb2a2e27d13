package model

import (
	"time"
)

type User struct {
	ID          string     `db:"id" json:"id"`
	Email       string     `db:"email" json:"email"`
	DisplayName *string    `db:"display_name" json:"displayName,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"createdAt"`
	LastLoginAt *time.Time `db:"last_login_at" json:"lastLoginAt,omitempty"`
	DisabledAt  *time.Time `db:"disabled_at" json:"disabledAt,omitempty"`
}

type CreateUserParams struct {
	Email string
}
