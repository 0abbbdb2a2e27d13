package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/streamgate/gate-server-go/internal/model"
)

type PaymentRepository interface {
	FindByID(ctx context.Context, id string) (*model.Payment, error)
	FindByOrderID(ctx context.Context, orderID string) (*model.Payment, error)
	// FindPaidByUserAndStream is the entitlement check: a paid, unrefunded
	// payment for this user and stream.
	FindPaidByUserAndStream(ctx context.Context, userID, streamID string) (*model.Payment, error)
	Create(ctx context.Context, params model.CreatePaymentParams) (*model.Payment, error)
	MarkPaid(ctx context.Context, orderID, transactionID string, payerToken *string) error
	MarkFailed(ctx context.Context, orderID, reason string) error
	MarkRefunded(ctx context.Context, id string) error
	List(ctx context.Context, limit, offset int) ([]model.Payment, error)
	Count(ctx context.Context) (int, error)
	// ExpirePending fails pending payments created before cutoff.
	ExpirePending(ctx context.Context, cutoff time.Time) (int64, error)
}

type paymentRepo struct {
	db *sqlx.DB
}

func NewPaymentRepository(db *sqlx.DB) PaymentRepository {
	return &paymentRepo{db: db}
}

func (r *paymentRepo) FindByID(ctx context.Context, id string) (*model.Payment, error) {
	var payment model.Payment
	err := r.db.GetContext(ctx, &payment, `
		SELECT * FROM payments WHERE id = $1
	`, id)
	return HandleNotFound(&payment, err)
}

func (r *paymentRepo) FindByOrderID(ctx context.Context, orderID string) (*model.Payment, error) {
	var payment model.Payment
	err := r.db.GetContext(ctx, &payment, `
		SELECT * FROM payments WHERE order_id = $1
	`, orderID)
	return HandleNotFound(&payment, err)
}

func (r *paymentRepo) FindPaidByUserAndStream(ctx context.Context, userID, streamID string) (*model.Payment, error) {
	var payment model.Payment
	err := r.db.GetContext(ctx, &payment, `
		SELECT * FROM payments
		WHERE user_id = $1 AND stream_id = $2 AND status = 'paid'
		ORDER BY paid_at DESC
		LIMIT 1
	`, userID, streamID)
	return HandleNotFound(&payment, err)
}

func (r *paymentRepo) Create(ctx context.Context, params model.CreatePaymentParams) (*model.Payment, error) {
	var payment model.Payment
	err := r.db.GetContext(ctx, &payment, `
		INSERT INTO payments (order_id, user_id, stream_id, amount_minor, currency, status)
		VALUES ($1, $2, $3, $4, $5, 'pending')
		RETURNING *
	`, params.OrderID, params.UserID, params.StreamID, params.AmountMinor, params.Currency)
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *paymentRepo) MarkPaid(ctx context.Context, orderID, transactionID string, payerToken *string) error {
	now := time.Now()
	_, err := r.db.ExecContext(ctx, `
		UPDATE payments SET
			status = 'paid',
			transaction_id = $2,
			payer_token = $3,
			paid_at = $4,
			updated_at = $4
		WHERE order_id = $1 AND status = 'pending'
	`, orderID, transactionID, payerToken, now)
	return err
}

func (r *paymentRepo) MarkFailed(ctx context.Context, orderID, reason string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE payments SET
			status = 'failed',
			fail_reason = $2,
			updated_at = $3
		WHERE order_id = $1 AND status = 'pending'
	`, orderID, reason, time.Now())
	return err
}

func (r *paymentRepo) MarkRefunded(ctx context.Context, id string) error {
	now := time.Now()
	_, err := r.db.ExecContext(ctx, `
		UPDATE payments SET
			status = 'refunded',
			refunded_at = $2,
			updated_at = $2
		WHERE id = $1 AND status = 'paid'
	`, id, now)
	return err
}

func (r *paymentRepo) List(ctx context.Context, limit, offset int) ([]model.Payment, error) {
	payments := []model.Payment{}
	err := r.db.SelectContext(ctx, &payments, `
		SELECT * FROM payments
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	return payments, nil
}

func (r *paymentRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM payments`)
	return count, err
}

func (r *paymentRepo) ExpirePending(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE payments SET
			status = 'failed',
			fail_reason = 'abandoned',
			updated_at = NOW()
		WHERE status = 'pending' AND created_at < $1
	`, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
