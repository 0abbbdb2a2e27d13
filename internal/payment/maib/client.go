// Package maib is a thin client for the MAIB e-commerce gateway. It covers
// only what the server needs: initiating a payment, issuing a refund, and
// verifying callback signatures.
package maib

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/streamgate/gate-server-go/internal/config"
	"github.com/streamgate/gate-server-go/internal/payment"
)

type Client struct {
	baseURL       string
	projectID     string
	projectSecret string
	httpClient    *http.Client
}

var _ payment.Gateway = (*Client)(nil)

func NewClient(baseURL, projectID, projectSecret string) *Client {
	return &Client{
		baseURL:       baseURL,
		projectID:     projectID,
		projectSecret: projectSecret,
		// Single fixed timeout, no retries; a timeout is a hard failure.
		httpClient: &http.Client{Timeout: config.PaymentGatewayTimeout},
	}
}

type payRequest struct {
	ProjectID   string `json:"projectId"`
	OrderID     string `json:"orderId"`
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
	Description string `json:"description,omitempty"`
	OkURL       string `json:"okUrl"`
	FailURL     string `json:"failUrl"`
	CallbackURL string `json:"callbackUrl"`
}

type payResponse struct {
	PayURL string `json:"payUrl"`
	PayID  string `json:"payId"`
}

func (c *Client) CreatePayment(ctx context.Context, params payment.CreateParams) (*payment.CreateResult, error) {
	req := payRequest{
		ProjectID:   c.projectID,
		OrderID:     params.OrderID,
		Amount:      params.AmountMinor,
		Currency:    params.Currency,
		Description: params.Description,
		OkURL:       params.OkURL,
		FailURL:     params.FailURL,
		CallbackURL: params.CallbackURL,
	}

	var resp payResponse
	if err := c.post(ctx, "/v1/pay", req, &resp); err != nil {
		return nil, err
	}
	if resp.PayURL == "" || resp.PayID == "" {
		return nil, fmt.Errorf("maib: incomplete pay response")
	}

	return &payment.CreateResult{
		PayURL:        resp.PayURL,
		TransactionID: resp.PayID,
	}, nil
}

type refundRequest struct {
	ProjectID    string `json:"projectId"`
	PayID        string `json:"payId"`
	RefundAmount int64  `json:"refundAmount"`
}

func (c *Client) Refund(ctx context.Context, transactionID string, amountMinor int64) error {
	req := refundRequest{
		ProjectID:    c.projectID,
		PayID:        transactionID,
		RefundAmount: amountMinor,
	}
	return c.post(ctx, "/v1/refund", req, &struct{}{})
}

func (c *Client) post(ctx context.Context, path string, body, dest any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("maib: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("maib: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.projectSecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("maib: %s: %w", path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("maib: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("maib: %s returned %d: %s", path, resp.StatusCode, raw)
	}

	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("maib: decode response: %w", err)
	}
	return nil
}

// VerifySignature checks the HMAC-SHA256 hex signature MAIB attaches to
// callback payloads. An empty key disables verification (dev only; warned
// about at startup).
func VerifySignature(signatureKey string, body []byte, signature string) bool {
	if signatureKey == "" {
		return true
	}

	mac := hmac.New(sha256.New, []byte(signatureKey))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
