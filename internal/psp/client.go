package psp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound    = errors.New("psp: resource not found")
	ErrRateLimited = errors.New("psp: rate limited")
)

// RateLimitError содержит паузу, которую рекомендует провайдер.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e RateLimitError) Error() string {
	return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter)
}

// ChargeStatus - статус платежа на стороне провайдера.
type ChargeStatus string

const (
	ChargeStatusPending   ChargeStatus = "pending"
	ChargeStatusPaid      ChargeStatus = "paid"
	ChargeStatusExpired   ChargeStatus = "expired"
	ChargeStatusCancelled ChargeStatus = "cancelled"
	ChargeStatusFailed    ChargeStatus = "failed"
)

// PayoutStatus - статус выплаты на стороне провайдера.
type PayoutStatus string

const (
	PayoutStatusProcessing PayoutStatus = "processing"
	PayoutStatusCompleted  PayoutStatus = "completed"
	PayoutStatusFailed     PayoutStatus = "failed"
)

// ChargeRequest - запрос на создание PIX-платежа у провайдера.
type ChargeRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	ExpiresAt   time.Time       `json:"expires_at"`
}

// ChargeResponse - ответ провайдера на создание платежа.
type ChargeResponse struct {
	ReferenceCode string       `json:"reference_code"`
	PixCopyPaste  string       `json:"pix_copy_paste"`
	QRCodeImage   string       `json:"qr_code_image"`
	Status        ChargeStatus `json:"status"`
	ExpiresAt     time.Time    `json:"expires_at"`
}

// ChargeStatusResponse - ответ провайдера на запрос статуса платежа.
type ChargeStatusResponse struct {
	ReferenceCode string       `json:"reference_code"`
	Status        ChargeStatus `json:"status"`
}

// PayoutRequest - запрос на выплату по PIX-ключу.
type PayoutRequest struct {
	PixKey     string          `json:"pix_key"`
	PixKeyType string          `json:"pix_key_type"`
	Amount     decimal.Decimal `json:"amount"`
	Receiver   string          `json:"receiver,omitempty"`
}

// PayoutResponse - ответ провайдера на создание выплаты.
type PayoutResponse struct {
	PayoutID string       `json:"payout_id"`
	Status   PayoutStatus `json:"status"`
}

// AccountBalance - живой баланс платёжного счёта провайдера.
type AccountBalance struct {
	Available decimal.Decimal `json:"available"`
	Blocked   decimal.Decimal `json:"blocked"`
	Total     decimal.Decimal `json:"total"`
}

// Client определяет интерфейс платёжного провайдера.
type Client interface {
	CreateCharge(ctx context.Context, req ChargeRequest) (*ChargeResponse, error)
	GetChargeStatus(ctx context.Context, referenceCode string) (*ChargeStatusResponse, error)
	CreatePayout(ctx context.Context, accountID string, req PayoutRequest) (*PayoutResponse, error)
	GetPayoutStatus(ctx context.Context, accountID, payoutID string) (*PayoutResponse, error)
	GetAccountBalance(ctx context.Context, accountID string) (*AccountBalance, error)
}

// HTTPClient реализует Client поверх HTTP API провайдера.
type HTTPClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewHTTPClient создаёт HTTP-клиент провайдера.
func NewHTTPClient(baseURL, apiKey string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// CreateCharge создаёт PIX-платёж у провайдера.
func (c *HTTPClient) CreateCharge(ctx context.Context, req ChargeRequest) (*ChargeResponse, error) {
	var resp ChargeResponse
	if err := c.do(ctx, http.MethodPost, "/api/charges", req, &resp); err != nil {
		return nil, err
	}
	if resp.ReferenceCode == "" {
		return nil, fmt.Errorf("psp returned empty reference code")
	}
	return &resp, nil
}

// GetChargeStatus запрашивает статус платежа по reference code.
func (c *HTTPClient) GetChargeStatus(ctx context.Context, referenceCode string) (*ChargeStatusResponse, error) {
	var resp ChargeStatusResponse
	path := fmt.Sprintf("/api/charges/%s", url.PathEscape(referenceCode))
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CreatePayout создаёт выплату с указанного счёта провайдера.
func (c *HTTPClient) CreatePayout(ctx context.Context, accountID string, req PayoutRequest) (*PayoutResponse, error) {
	var resp PayoutResponse
	path := fmt.Sprintf("/api/accounts/%s/payouts", url.PathEscape(accountID))
	if err := c.do(ctx, http.MethodPost, path, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetPayoutStatus запрашивает статус выплаты.
func (c *HTTPClient) GetPayoutStatus(ctx context.Context, accountID, payoutID string) (*PayoutResponse, error) {
	var resp PayoutResponse
	path := fmt.Sprintf("/api/accounts/%s/payouts/%s", url.PathEscape(accountID), url.PathEscape(payoutID))
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetAccountBalance запрашивает живой баланс счёта провайдера.
func (c *HTTPClient) GetAccountBalance(ctx context.Context, accountID string) (*AccountBalance, error) {
	var resp AccountBalance
	path := fmt.Sprintf("/api/accounts/%s/balance", url.PathEscape(accountID))
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// do выполняет запрос к провайдеру и декодирует ответ.
func (c *HTTPClient) do(ctx context.Context, method, path string, body, out interface{}) error {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return fmt.Errorf("invalid psp base url: %w", err)
	}
	u.Path = u.Path + path

	var reqBody *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reqBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode psp response: %w", err)
		}
		return nil
	case http.StatusNotFound, http.StatusNoContent:
		return ErrNotFound
	case http.StatusTooManyRequests:
		retryAfter := parseRetryAfter(resp.Header.Get("Retry-After"))
		return RateLimitError{RetryAfter: retryAfter}
	default:
		return fmt.Errorf("unexpected psp status: %d", resp.StatusCode)
	}
}

func parseRetryAfter(val string) time.Duration {
	if val == "" {
		return 5 * time.Second
	}
	// support seconds value
	if secs, err := strconv.Atoi(val); err == nil {
		return time.Duration(secs) * time.Second
	}
	// try http-date
	if t, err := http.ParseTime(val); err == nil {
		return time.Until(t)
	}
	return 5 * time.Second
}
