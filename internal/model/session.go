package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// DeviceInfo describes the browser/device behind a session. It is stored as
// a JSONB column. ActiveStreamID is set while the device is (or was last)
// watching a stream; a session with it set counts as a streaming session.
type DeviceInfo struct {
	DeviceLabel    string  `json:"deviceLabel,omitempty"`
	Browser        string  `json:"browser,omitempty"`
	OS             string  `json:"os,omitempty"`
	ActiveStreamID *string `json:"activeStreamId,omitempty"`
}

func (d DeviceInfo) Value() (driver.Value, error) {
	return json.Marshal(d)
}

func (d *DeviceInfo) Scan(src any) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, d)
	case string:
		return json.Unmarshal([]byte(v), d)
	case nil:
		*d = DeviceInfo{}
		return nil
	default:
		return fmt.Errorf("unsupported device_info type %T", src)
	}
}

// Session is one device-login row. Sessions are never deleted; closing a
// session flips is_active off and records the reason.
type Session struct {
	ID            string       `db:"id" json:"id"`
	UserID        string       `db:"user_id" json:"userId"`
	TokenHash     string       `db:"token_hash" json:"-"`
	FingerprintID string       `db:"fingerprint_id" json:"fingerprintId"`
	DeviceInfo    DeviceInfo   `db:"device_info" json:"deviceInfo"`
	LastActivity  time.Time    `db:"last_activity" json:"lastActivity"`
	IsActive      bool         `db:"is_active" json:"isActive"`
	ClosedReason  *CloseReason `db:"closed_reason" json:"closedReason,omitempty"`
	CreatedAt     time.Time    `db:"created_at" json:"createdAt"`
	ExpiresAt     *time.Time   `db:"expires_at" json:"expiresAt,omitempty"`
}

// Streaming reports whether this session currently occupies the viewer slot.
func (s *Session) Streaming() bool {
	return s.IsActive && s.DeviceInfo.ActiveStreamID != nil
}

type CreateSessionParams struct {
	ID            string
	UserID        string
	TokenHash     string
	FingerprintID string
	DeviceInfo    DeviceInfo
	ExpiresAt     *time.Time
}
