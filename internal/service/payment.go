package service

import (
	"context"
	"fmt"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog/log"

	apperrors "github.com/streamgate/gate-server-go/internal/errors"
	"github.com/streamgate/gate-server-go/internal/model"
	"github.com/streamgate/gate-server-go/internal/payment"
	"github.com/streamgate/gate-server-go/internal/repository"
	"github.com/streamgate/gate-server-go/internal/util"
)

type PaymentService struct {
	paymentRepo   repository.PaymentRepository
	streamRepo    repository.StreamRepository
	gateway       payment.Gateway
	publicBaseURL string
	encryptionKey string
}

func NewPaymentService(
	paymentRepo repository.PaymentRepository,
	streamRepo repository.StreamRepository,
	gateway payment.Gateway,
	publicBaseURL, encryptionKey string,
) *PaymentService {
	return &PaymentService{
		paymentRepo:   paymentRepo,
		streamRepo:    streamRepo,
		gateway:       gateway,
		publicBaseURL: publicBaseURL,
		encryptionKey: encryptionKey,
	}
}

type PaymentIntent struct {
	Payment *model.Payment `json:"payment"`
	PayURL  string         `json:"payUrl"`
}

// CreateIntent opens a pending payment for the stream and hands back the
// gateway's redirect URL. Order ids are ULIDs so payments sort by creation
// time in the admin list.
func (s *PaymentService) CreateIntent(ctx context.Context, userID, streamID string) (*PaymentIntent, error) {
	stream, err := s.streamRepo.FindByID(ctx, streamID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if stream == nil {
		return nil, apperrors.NotFound("Stream")
	}

	existing, err := s.paymentRepo.FindPaidByUserAndStream(ctx, userID, streamID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if existing != nil {
		return nil, apperrors.New(apperrors.ErrCodeAlreadyExists, "Stream already purchased")
	}

	orderID := ulid.Make().String()
	pmt, err := s.paymentRepo.Create(ctx, model.CreatePaymentParams{
		OrderID:     orderID,
		UserID:      userID,
		StreamID:    streamID,
		AmountMinor: stream.PriceMinor,
		Currency:    stream.Currency,
	})
	if err != nil {
		return nil, apperrors.Database(err)
	}

	result, err := s.gateway.CreatePayment(ctx, payment.CreateParams{
		OrderID:     orderID,
		AmountMinor: stream.PriceMinor,
		Currency:    stream.Currency,
		Description: stream.Title,
		OkURL:       fmt.Sprintf("%s/payment/success", s.publicBaseURL),
		FailURL:     fmt.Sprintf("%s/payment/failed", s.publicBaseURL),
		CallbackURL: fmt.Sprintf("%s/v1/payments/webhook", s.publicBaseURL),
	})
	if err != nil {
		if markErr := s.paymentRepo.MarkFailed(ctx, orderID, "gateway error"); markErr != nil {
			log.Error().Err(markErr).Str("orderId", orderID).Msg("failed to mark payment failed")
		}
		return nil, apperrors.External("payment gateway", err)
	}

	log.Info().
		Str("orderId", orderID).
		Str("userId", userID).
		Str("streamId", streamID).
		Int64("amount", stream.PriceMinor).
		Msg("payment intent created")

	return &PaymentIntent{Payment: pmt, PayURL: result.PayURL}, nil
}

// CallbackPayload is the decoded webhook body after signature verification.
type CallbackPayload struct {
	OrderID       string `json:"orderId" validate:"required"`
	Status        string `json:"status" validate:"required,oneof=OK FAILED"`
	TransactionID string `json:"payId"`
	PayerToken    string `json:"payerToken"`
	FailReason    string `json:"failReason"`
}

// HandleCallback applies a gateway result to the pending payment. The row
// update is conditional on status='pending', so replayed callbacks are
// no-ops at the data layer.
func (s *PaymentService) HandleCallback(ctx context.Context, payload CallbackPayload) error {
	pmt, err := s.paymentRepo.FindByOrderID(ctx, payload.OrderID)
	if err != nil {
		return apperrors.Database(err)
	}
	if pmt == nil {
		return apperrors.NotFound("Payment")
	}

	if payload.Status != "OK" {
		if err := s.paymentRepo.MarkFailed(ctx, payload.OrderID, payload.FailReason); err != nil {
			return apperrors.Database(err)
		}
		log.Warn().
			Str("orderId", payload.OrderID).
			Str("reason", payload.FailReason).
			Msg("payment failed")
		return nil
	}

	payerToken := s.encryptPayerToken(payload.PayerToken)
	if err := s.paymentRepo.MarkPaid(ctx, payload.OrderID, payload.TransactionID, payerToken); err != nil {
		return apperrors.Database(err)
	}

	log.Info().
		Str("orderId", payload.OrderID).
		Str("transactionId", payload.TransactionID).
		Msg("payment completed")

	return nil
}

// Refund reverses a paid payment at the gateway and marks the row refunded.
func (s *PaymentService) Refund(ctx context.Context, paymentID string) (*model.Payment, error) {
	pmt, err := s.paymentRepo.FindByID(ctx, paymentID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if pmt == nil {
		return nil, apperrors.NotFound("Payment")
	}
	if pmt.Status != model.PaymentStatusPaid {
		return nil, apperrors.InvalidInput("payment", "only paid payments can be refunded")
	}
	if pmt.TransactionID == nil {
		return nil, apperrors.Internal("paid payment has no transaction id")
	}

	if err := s.gateway.Refund(ctx, *pmt.TransactionID, pmt.AmountMinor); err != nil {
		return nil, apperrors.External("payment gateway", err)
	}

	if err := s.paymentRepo.MarkRefunded(ctx, pmt.ID); err != nil {
		return nil, apperrors.Database(err)
	}

	log.Info().
		Str("paymentId", pmt.ID).
		Str("orderId", pmt.OrderID).
		Msg("payment refunded")

	return s.paymentRepo.FindByID(ctx, pmt.ID)
}

// IsEntitled reports whether the user holds a completed payment for the stream.
func (s *PaymentService) IsEntitled(ctx context.Context, userID, streamID string) (bool, error) {
	pmt, err := s.paymentRepo.FindPaidByUserAndStream(ctx, userID, streamID)
	if err != nil {
		return false, apperrors.Database(err)
	}
	return pmt != nil, nil
}

func (s *PaymentService) encryptPayerToken(token string) *string {
	if token == "" {
		return nil
	}
	if s.encryptionKey == "" {
		return &token
	}
	encrypted, err := util.Encrypt(s.encryptionKey, token)
	if err != nil {
		log.Warn().Err(err).Msg("failed to encrypt payer token, storing nothing")
		return nil
	}
	return &encrypted
}
