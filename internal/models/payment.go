package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentStatus описывает статус PIX-платежа.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusPaid      PaymentStatus = "paid"
	PaymentStatusExpired   PaymentStatus = "expired"
	PaymentStatusCancelled PaymentStatus = "cancelled"
)

// IsTerminal сообщает, является ли статус конечным.
func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentStatusPaid || s == PaymentStatusExpired || s == PaymentStatusCancelled
}

// Payment представляет один PIX-платёж пользователя.
// ReferenceCode выдаётся провайдером и служит ключом идемпотентности
// для всех последующих операций сверки.
type Payment struct {
	ID              uuid.UUID       `db:"id"`
	UserID          uuid.UUID       `db:"user_id"`
	Amount          decimal.Decimal `db:"amount"`
	CommissionRate  decimal.Decimal `db:"commission_rate"`
	Description     string          `db:"description"`
	Status          PaymentStatus   `db:"status"`
	ReferenceCode   string          `db:"reference_code"`
	PixCopyPaste    string          `db:"pix_copy_paste"`
	QRCodeImage     string          `db:"qr_code_image"`
	ProviderPayload json.RawMessage `db:"provider_payload"`
	CreatedAt       time.Time       `db:"created_at"`
	ExpiresAt       time.Time       `db:"expires_at"`
	PaidAt          *time.Time      `db:"paid_at"`
}

// NetAmount возвращает сумму к зачислению пользователю
// за вычетом комиссии по зафиксированной на платеже ставке.
func (p *Payment) NetAmount() decimal.Decimal {
	return p.Amount.Sub(p.CommissionAmount())
}

// CommissionAmount возвращает комиссию платформы по этому платежу.
func (p *Payment) CommissionAmount() decimal.Decimal {
	return p.Amount.Mul(p.CommissionRate).Round(2)
}

// GenerateChargeRequest - запрос на создание PIX-платежа.
type GenerateChargeRequest struct {
	Amount      float64 `json:"amount"`
	Description string  `json:"description"`
}

// PaymentResponse DTO для ответа по платежу.
type PaymentResponse struct {
	ID            uuid.UUID `json:"id"`
	Amount        float64   `json:"amount"`
	Status        string    `json:"status"`
	PixCopiaECola string    `json:"pixCopiaECola,omitempty"`
	QRCodeImage   string    `json:"qrCodeImage,omitempty"`
	ExpiresAt     string    `json:"expiresAt"`
	PaidAt        *string   `json:"paidAt,omitempty"`
}

// NewPaymentResponse преобразует платёж в DTO.
func NewPaymentResponse(p *Payment) *PaymentResponse {
	amount, _ := p.Amount.Float64()
	resp := &PaymentResponse{
		ID:            p.ID,
		Amount:        amount,
		Status:        string(p.Status),
		PixCopiaECola: p.PixCopyPaste,
		QRCodeImage:   p.QRCodeImage,
		ExpiresAt:     p.ExpiresAt.Format(time.RFC3339),
	}
	if p.PaidAt != nil {
		paidAt := p.PaidAt.Format(time.RFC3339)
		resp.PaidAt = &paidAt
	}
	return resp
}
