package model

// CloseReason records why a streaming session was deactivated.
type CloseReason string

const (
	CloseReasonUserRequest    CloseReason = "user_request"
	CloseReasonAdminAction    CloseReason = "admin_action"
	CloseReasonSessionTimeout CloseReason = "session_timeout"
	CloseReasonDeviceLimit    CloseReason = "device_limit"
)

func (r CloseReason) Valid() bool {
	switch r {
	case CloseReasonUserRequest, CloseReasonAdminAction,
		CloseReasonSessionTimeout, CloseReasonDeviceLimit:
		return true
	}
	return false
}

type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusFailed   PaymentStatus = "failed"
	PaymentStatusRefunded PaymentStatus = "refunded"
)
